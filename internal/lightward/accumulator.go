// Package lightward is the client for the upstream Lightward AI streaming
// API. It relays the upstream SSE body byte-for-byte to a downstream writer
// while incrementally parsing the same bytes for text deltas, so the full
// assistant reply is known once the stream ends.
package lightward

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

// SSE event types in the upstream response.
const (
	EventMessageStart      = "message_start"
	EventContentBlockDelta = "content_block_delta"
	EventMessageStop       = "message_stop"

	deltaTypeText = "text_delta"
)

type deltaPayload struct {
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// Accumulator is an incremental SSE frame parser. Feed it raw chunks via
// Write in whatever sizes the network delivers them, including a single
// logical field split across two chunks, and it extracts complete lines,
// tracks the current event type, and collects text_delta fragments.
// An incomplete trailing line stays buffered until more bytes arrive.
type Accumulator struct {
	buf   []byte
	event string
	text  strings.Builder
}

// Write implements io.Writer and never fails; malformed frames are skipped.
func (a *Accumulator) Write(p []byte) (int, error) {
	a.buf = append(a.buf, p...)
	for {
		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			return len(p), nil
		}
		line := strings.TrimSpace(string(a.buf[:idx]))
		a.buf = a.buf[idx+1:]
		a.consume(line)
	}
}

func (a *Accumulator) consume(line string) {
	switch {
	case line == "":
	case strings.HasPrefix(line, "event:"):
		a.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
	case strings.HasPrefix(line, "data:"):
		raw := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if a.event != EventContentBlockDelta {
			return
		}
		var payload deltaPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			// Shouldn't happen with proper buffering upstream; not fatal.
			slog.Warn("skipping malformed sse data frame", "error", err)
			return
		}
		if payload.Delta.Type == deltaTypeText {
			a.text.WriteString(payload.Delta.Text)
		}
	}
}

// Text returns the accumulated assistant reply so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}
