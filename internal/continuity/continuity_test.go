package continuity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	day, count, err := Parse("3:14")
	require.NoError(t, err)
	assert.Equal(t, 3, day)
	assert.Equal(t, 14, count)

	for _, s := range []string{"", "3", "3:", ":14", "a:b", "3:14:5", "-1:2", "1:-2"} {
		_, _, err := Parse(s)
		assert.Error(t, err, "expected %q to fail", s)
	}
}

func TestCheck_ClientBehindSameDay(t *testing.T) {
	d := Check("1:3", "1:5")
	require.NotNil(t, d)
	assert.Equal(t, ErrorKind, d.Kind)
	assert.Equal(t, "1:5", d.ServerUniverseTime)
	assert.NotEmpty(t, d.Message)
}

func TestCheck_ClientBehindOnDay(t *testing.T) {
	d := Check("1:99", "2:0")
	require.NotNil(t, d)
	assert.Equal(t, "2:0", d.ServerUniverseTime)
}

func TestCheck_Equal(t *testing.T) {
	assert.Nil(t, Check("1:5", "1:5"))
}

func TestCheck_ClientAheadIsTolerated(t *testing.T) {
	assert.Nil(t, Check("2:0", "1:99"))
	assert.Nil(t, Check("1:6", "1:5"))
}

func TestCheck_NoAssertion(t *testing.T) {
	assert.Nil(t, Check("", "1:5"))
}

func TestCheck_MalformedAssertionIgnored(t *testing.T) {
	assert.Nil(t, Check("garbage", "1:5"))
	assert.Nil(t, Check("1:", "1:5"))
}
