// Package continuity implements the optimistic cross-device staleness check.
//
// Every authenticated response carries the record's current universe time, a
// "{day}:{message_count}" ordinal. Clients assert the last value they saw via
// the Assert-Yours-Universe-Time request header; a client strictly behind the
// server is about to clobber progress made from another device and gets a
// 409 instead.
//
// This is an advisory read-time check, not a lock: two writers at the same
// version race to a last-write-wins save. Accepted tradeoff for a personal
// notebook; the upgrade path is a compare-and-swap on universe time at the
// storage layer.
package continuity

import (
	"fmt"
	"strconv"
	"strings"
)

// Header names for the universe-time handshake.
const (
	AssertHeader = "Assert-Yours-Universe-Time"
	StateHeader  = "Yours-Universe-Time"
)

// ErrorKind is the machine-readable tag in the 409 body.
const ErrorKind = "continuity_divergence"

// Divergence is the structured conflict signal returned when a client's
// asserted universe time is behind the server's.
type Divergence struct {
	Kind               string `json:"error"`
	Message            string `json:"message"`
	ServerUniverseTime string `json:"server_universe_time"`
}

// Parse splits a "{day}:{count}" universe time into its components.
func Parse(s string) (day, count int, err error) {
	before, after, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, fmt.Errorf("malformed universe time %q", s)
	}
	day, err = strconv.Atoi(before)
	if err != nil || day < 0 {
		return 0, 0, fmt.Errorf("malformed universe time %q", s)
	}
	count, err = strconv.Atoi(after)
	if err != nil || count < 0 {
		return 0, 0, fmt.Errorf("malformed universe time %q", s)
	}
	return day, count, nil
}

// Check compares a client-asserted universe time against the server's.
// It returns a Divergence only when the client is strictly behind: an absent
// assertion passes (no check requested), and a client ahead of the server
// passes too; that is non-authoritative noise, not a conflict. Unparseable
// assertions are ignored for the same reason.
func Check(clientTime, serverTime string) *Divergence {
	if clientTime == "" {
		return nil
	}

	clientDay, clientCount, err := Parse(clientTime)
	if err != nil {
		return nil
	}
	serverDay, serverCount, err := Parse(serverTime)
	if err != nil {
		return nil
	}

	behind := clientDay < serverDay ||
		(clientDay == serverDay && clientCount < serverCount)
	if !behind {
		return nil
	}

	return &Divergence{
		Kind:               ErrorKind,
		Message:            "Your universe has moved on since this device last saw it. Refresh to continue.",
		ServerUniverseTime: serverTime,
	}
}
