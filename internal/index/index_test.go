package index

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsdb/kvs/pkg/logging"
)

func testConfig() *Config {
	return &Config{Logger: logging.Noop()}
}

func TestSetReturnsOldOffsetAndMarksItStale(t *testing.T) {
	idx, err := New(testConfig())
	require.NoError(t, err)

	_, hadOld := idx.Set("k", 0)
	assert.False(t, hadOld)

	old, hadOld := idx.Set("k", 42)
	assert.True(t, hadOld)
	assert.Equal(t, int64(0), old)
	assert.True(t, idx.IsStale(0))
	assert.False(t, idx.IsStale(42))

	offset, ok := idx.Get("k")
	require.True(t, ok)
	assert.Equal(t, int64(42), offset)
}

func TestRemoveReturnsOldOffsetWithoutMarkingStale(t *testing.T) {
	idx, err := New(testConfig())
	require.NoError(t, err)

	idx.Set("k", 10)

	old, existed := idx.Remove("k")
	assert.True(t, existed)
	assert.Equal(t, int64(10), old)
	assert.False(t, idx.IsStale(10), "Remove must not mark stale itself; the caller decides")

	_, ok := idx.Get("k")
	assert.False(t, ok)

	_, existed = idx.Remove("k")
	assert.False(t, existed)
}

func TestStaleCountAndClearStale(t *testing.T) {
	idx, err := New(testConfig())
	require.NoError(t, err)

	idx.Set("a", 0)
	idx.Set("a", 1)
	idx.MarkStale(5)
	assert.Equal(t, 2, idx.StaleCount())

	idx.ClearStale()
	assert.Equal(t, 0, idx.StaleCount())
	assert.False(t, idx.IsStale(0))
}

func TestRemap(t *testing.T) {
	idx, err := New(testConfig())
	require.NoError(t, err)

	idx.Set("a", 7)
	idx.Remap("a", 99)

	offset, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(99), offset)
}

func TestBuildReplaysSetsAndRemoves(t *testing.T) {
	log := `{"key":"a","value":"1","command_type":"SET"}` +
		`{"key":"b","value":"2","command_type":"SET"}` +
		`{"key":"a","value":"3","command_type":"SET"}` +
		`{"key":"b","value":null,"command_type":"RM"}`

	idx, err := Build(context.Background(), strings.NewReader(log), testConfig())
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())

	offset, ok := idx.Get("a")
	require.True(t, ok)
	assert.True(t, offset > 0, "a's live offset should be its second SET, not the first")

	_, ok = idx.Get("b")
	assert.False(t, ok)

	// Stale: a's first SET, b's SET, and b's RM record itself.
	assert.Equal(t, 3, idx.StaleCount())
}

// P7 Replay idempotence: building the index from the same log twice must
// yield the same live mapping and the same stale set both times.
func TestBuildTwiceOnSameLogYieldsSameIndex(t *testing.T) {
	log := `{"key":"a","value":"1","command_type":"SET"}` +
		`{"key":"b","value":"2","command_type":"SET"}` +
		`{"key":"a","value":"3","command_type":"SET"}` +
		`{"key":"b","value":null,"command_type":"RM"}`

	first, err := Build(context.Background(), strings.NewReader(log), testConfig())
	require.NoError(t, err)

	second, err := Build(context.Background(), strings.NewReader(log), testConfig())
	require.NoError(t, err)

	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.StaleCount(), second.StaleCount())

	for _, key := range []string{"a", "b"} {
		offset1, ok1 := first.Get(key)
		offset2, ok2 := second.Get(key)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, offset1, offset2)
	}
}

func TestBuildFailsOnTruncatedRecord(t *testing.T) {
	log := `{"key":"a","value":"1","command_type":"SET"}{"key":"a"`

	_, err := Build(context.Background(), strings.NewReader(log), testConfig())
	require.Error(t, err)
}

func TestCloseIsIdempotentFailure(t *testing.T) {
	idx, err := New(testConfig())
	require.NoError(t, err)

	require.NoError(t, idx.Close())
	assert.ErrorIs(t, idx.Close(), ErrIndexClosed)
}
