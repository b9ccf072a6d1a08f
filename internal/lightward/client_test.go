package lightward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useyours/yours-backend/internal/models"
)

const helloFrames = "event: message_start\n" +
	"data: {\"message\":{\"id\":\"msg_1\"}}\n\n" +
	"event: content_block_delta\n" +
	"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}\n\n" +
	"event: content_block_delta\n" +
	"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"!\"}}\n\n" +
	"event: message_stop\n" +
	"data: {}\n\n"

func sseUpstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.ChatLog)

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)

		// Deliver in awkward chunk sizes to exercise reassembly.
		flusher := w.(http.Flusher)
		for i := 0; i < len(body); i += 7 {
			end := i + 7
			if end > len(body) {
				end = len(body)
			}
			_, _ = w.Write([]byte(body[i:end]))
			flusher.Flush()
		}
	}))
}

func TestClient_Stream(t *testing.T) {
	upstream := sseUpstream(t, http.StatusOK, helloFrames)
	defer upstream.Close()

	client := NewClient(upstream.URL, 5*time.Second)
	chatLog := []models.Turn{models.TextTurn(models.RoleUser, "hi")}

	var downstream bytes.Buffer
	text, err := client.Stream(context.Background(), chatLog, &downstream)
	require.NoError(t, err)

	assert.Equal(t, "Hello!", text)
	// Byte-for-byte passthrough, untouched by the parser.
	assert.Equal(t, helloFrames, downstream.String())
}

func TestClient_Stream_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	client := NewClient(upstream.URL, 5*time.Second)
	chatLog := []models.Turn{models.TextTurn(models.RoleUser, "hi")}

	var downstream bytes.Buffer
	_, err := client.Stream(context.Background(), chatLog, &downstream)
	require.ErrorIs(t, err, ErrUpstream)
	// Nothing forwarded for a failed upstream.
	assert.Empty(t, downstream.String())
}

// deadWriter refuses every write, like a peer that closed the connection.
type deadWriter struct{}

func (deadWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestClient_Stream_DownstreamGone(t *testing.T) {
	upstream := sseUpstream(t, http.StatusOK, helloFrames)
	defer upstream.Close()

	client := NewClient(upstream.URL, 5*time.Second)
	chatLog := []models.Turn{models.TextTurn(models.RoleUser, "hi")}

	_, err := client.Stream(context.Background(), chatLog, deadWriter{})
	assert.ErrorIs(t, err, ErrClientGone)
}

func TestClient_Stream_UnreachableUpstream(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)
	chatLog := []models.Turn{models.TextTurn(models.RoleUser, "hi")}

	_, err := client.Stream(context.Background(), chatLog, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_Complete(t *testing.T) {
	upstream := sseUpstream(t, http.StatusOK, helloFrames)
	defer upstream.Close()

	client := NewClient(upstream.URL, 5*time.Second)
	chatLog := []models.Turn{models.TextTurn(models.RoleUser, "integrate")}

	text, err := client.Complete(context.Background(), chatLog)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
}

func TestClient_Complete_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	client := NewClient(upstream.URL, 5*time.Second)
	chatLog := []models.Turn{models.TextTurn(models.RoleUser, "integrate")}

	_, err := client.Complete(context.Background(), chatLog)
	assert.ErrorIs(t, err, ErrUpstream)
}
