package lightward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(t *testing.T, a *Accumulator, chunks ...string) {
	t.Helper()
	for _, c := range chunks {
		n, err := a.Write([]byte(c))
		require.NoError(t, err)
		require.Equal(t, len(c), n)
	}
}

func TestAccumulator_SingleEvent(t *testing.T) {
	a := &Accumulator{}
	feed(t, a,
		"event: content_block_delta\n",
		"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n",
		"\n",
	)
	assert.Equal(t, "Hi", a.Text())
}

func TestAccumulator_SplitAcrossChunks(t *testing.T) {
	// A single logical field split mid-JSON across two physical chunks
	// must accumulate exactly once.
	a := &Accumulator{}
	feed(t, a,
		"event: content_block_delta\ndata: {\"delta\"",
		":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n",
	)
	assert.Equal(t, "Hi", a.Text())
}

func TestAccumulator_ByteAtATime(t *testing.T) {
	a := &Accumulator{}
	frames := "event: content_block_delta\ndata: {\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello!\"}}\n\n"
	for i := 0; i < len(frames); i++ {
		feed(t, a, frames[i:i+1])
	}
	assert.Equal(t, "Hello!", a.Text())
}

func TestAccumulator_MultipleDeltas(t *testing.T) {
	a := &Accumulator{}
	feed(t, a,
		"event: message_start\n",
		"data: {\"message\":{\"id\":\"msg_1\"}}\n\n",
		"event: content_block_delta\n",
		"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"Hel\"}}\n\n",
		"event: content_block_delta\n",
		"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"lo!\"}}\n\n",
		"event: message_stop\n",
		"data: {}\n\n",
	)
	assert.Equal(t, "Hello!", a.Text())
}

func TestAccumulator_IgnoresNonTextDeltas(t *testing.T) {
	a := &Accumulator{}
	feed(t, a,
		"event: content_block_delta\n",
		"data: {\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\"}}\n\n",
	)
	assert.Empty(t, a.Text())
}

func TestAccumulator_IgnoresDataOutsideDeltaEvent(t *testing.T) {
	a := &Accumulator{}
	feed(t, a,
		"event: message_start\n",
		"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"nope\"}}\n\n",
	)
	assert.Empty(t, a.Text())
}

func TestAccumulator_MalformedJSONIsSkipped(t *testing.T) {
	a := &Accumulator{}
	feed(t, a,
		"event: content_block_delta\n",
		"data: {not json\n\n",
		"event: content_block_delta\n",
		"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"still going\"}}\n\n",
	)
	assert.Equal(t, "still going", a.Text())
}

func TestAccumulator_TrailingPartialLineStaysBuffered(t *testing.T) {
	a := &Accumulator{}
	feed(t, a,
		"event: content_block_delta\n",
		"data: {\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}",
	)
	// No newline yet: nothing extracted.
	assert.Empty(t, a.Text())

	feed(t, a, "\n")
	assert.Equal(t, "Hi", a.Text())
}
