package lightward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/useyours/yours-backend/internal/models"
)

// ErrUpstream covers non-success upstream status codes and transport
// failures. Callers surface it as a client-visible error event, never as a
// raw stack trace.
var ErrUpstream = errors.New("lightward: upstream request failed")

// ErrClientGone means the downstream writer failed mid-relay: the client
// disconnected before the reply finished. The exchange never fully reached
// the user, so callers must not persist it.
var ErrClientGone = errors.New("lightward: client disconnected mid-stream")

// Client talks to the Lightward AI endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	ChatLog []models.Turn `json:"chat_log"`
}

// flusher is what a buffered downstream writer exposes for immediate
// delivery; *bufio.Writer satisfies it.
type flusher interface {
	Flush() error
}

// Stream POSTs the chat log and forwards each raw upstream chunk to
// downstream as it arrives, accumulating text deltas in the same pass
// (forward-and-accumulate, never buffer-then-forward). It returns whatever
// text accumulated, even alongside an error, so callers can log a partial
// reply after a mid-stream failure. A downstream write failure returns
// ErrClientGone: the user never saw the full reply, so nothing should be
// saved on its strength.
//
// Downstream lifecycle (the final end event, closing the stream) belongs to
// the caller: the relay has no opinion about what the client sees after the
// passthrough stops.
func (c *Client) Stream(ctx context.Context, chatLog []models.Turn, downstream io.Writer) (string, error) {
	resp, err := c.post(ctx, chatLog)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	acc := &Accumulator{}
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := downstream.Write(buf[:n]); werr != nil {
				// Stop forwarding; the deferred Body.Close aborts the
				// rest of the upstream read.
				return acc.Text(), fmt.Errorf("%w: %v", ErrClientGone, werr)
			}
			if f, ok := downstream.(flusher); ok {
				_ = f.Flush()
			}
			_, _ = acc.Write(buf[:n])
		}
		if err == io.EOF {
			return acc.Text(), nil
		}
		if err != nil {
			return acc.Text(), fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}
}

// Complete runs the same accumulation as Stream with no passthrough; the
// result is the full accumulated text after the upstream body completes.
// Used for the day-boundary integration call.
func (c *Client) Complete(ctx context.Context, chatLog []models.Turn) (string, error) {
	resp, err := c.post(ctx, chatLog)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	acc := &Accumulator{}
	if _, err := io.Copy(acc, resp.Body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return acc.Text(), nil
}

func (c *Client) post(ctx context.Context, chatLog []models.Turn) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{ChatLog: chatLog})
	if err != nil {
		return nil, fmt.Errorf("encode chat log: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return resp, nil
}
