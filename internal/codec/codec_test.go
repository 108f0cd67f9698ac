package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Command{
		NewSet("k", "v"),
		NewSet("k", ""),
		NewRemove("k"),
	}

	for _, cmd := range cases {
		b, err := Encode(cmd)
		require.NoError(t, err)

		got, n, err := DecodeOne(bytes.NewReader(b))
		require.NoError(t, err)
		assert.Equal(t, cmd.Key, got.Key)
		assert.Equal(t, cmd.Type, got.Type)
		if cmd.Value == nil {
			assert.Nil(t, got.Value)
		} else {
			require.NotNil(t, got.Value)
			assert.Equal(t, *cmd.Value, *got.Value)
		}
		assert.Equal(t, int64(len(b)), n)
	}
}

func TestDecodeOneEmptyReaderIsEOF(t *testing.T) {
	_, _, err := DecodeOne(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeOneTruncatedIsMalformed(t *testing.T) {
	_, _, err := DecodeOne(bytes.NewReader([]byte(`{"key":"k","value":"v"`)))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeOneAcceptsLegacyGetTag(t *testing.T) {
	raw := []byte(`{"key":"k","value":"v","command_type":"GET"}`)
	cmd, n, err := DecodeOne(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, Get, cmd.Type)
	assert.Equal(t, int64(len(raw)), n)
}

func TestStreamDecoderTracksOffsets(t *testing.T) {
	var buf bytes.Buffer
	cmds := []Command{NewSet("a", "1"), NewSet("b", "2"), NewRemove("a")}
	var offsets []int64
	for _, c := range cmds {
		offsets = append(offsets, int64(buf.Len()))
		b, err := Encode(c)
		require.NoError(t, err)
		buf.Write(b)
	}

	sd := NewStreamDecoder(bytes.NewReader(buf.Bytes()))
	for i, want := range cmds {
		got, start, err := sd.Next()
		require.NoError(t, err)
		assert.Equal(t, offsets[i], start)
		assert.Equal(t, want.Key, got.Key)
		assert.Equal(t, want.Type, got.Type)
	}

	_, _, err := sd.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamDecoderFatalOnCorruptMidStream(t *testing.T) {
	var buf bytes.Buffer
	b, err := Encode(NewSet("a", "1"))
	require.NoError(t, err)
	buf.Write(b)
	buf.WriteString(`{"key":"b","value":`) // truncated second record

	sd := NewStreamDecoder(&buf)
	_, _, err = sd.Next()
	require.NoError(t, err)

	_, _, err = sd.Next()
	assert.ErrorIs(t, err, ErrMalformed)
}
