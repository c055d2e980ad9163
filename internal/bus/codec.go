package bus

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compression identifies the algorithm used to encode a networked bus
// frame's body.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// Package-level encoder/decoder, safe for concurrent use.
var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("bus: init zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("bus: init zstd decoder: %v", err))
	}
}

// Compress zstd-encodes a networked bus frame body.
func Compress(data []byte) ([]byte, Compression) {
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), CompressionZstd
}

// Decompress reverses Compress. CompressionNone passes data through
// unchanged, for transports too small to benefit from compression.
func Decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionZstd:
		return decoder.DecodeAll(data, nil)
	case CompressionNone:
		return data, nil
	default:
		return nil, fmt.Errorf("bus: unsupported compression: %v", c)
	}
}
