package bus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convene/convene/internal/bus"
)

func TestCompressDecompress_RoundTrip(t *testing.T) {
	original := []byte(`{"agentId":"alice","content":"hello world"}`)
	compressed, alg := bus.Compress(original)
	assert.Equal(t, bus.CompressionZstd, alg)

	got, err := bus.Decompress(compressed, alg)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestDecompress_None(t *testing.T) {
	data := []byte("raw")
	got, err := bus.Decompress(data, bus.CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDecompress_Unsupported(t *testing.T) {
	_, err := bus.Decompress([]byte("x"), bus.Compression(99))
	assert.Error(t, err)
}
