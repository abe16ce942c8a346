// Package compress provides compression and decompression codecs for bsread wire payloads.
//
// The wire protocol (spec §4.2, §6) only ever names three compression
// algorithms for a channel's value payload or the data-header blob: none,
// lz4 and bitshuffle_lz4. Every CompressionType is one of these three.
package compress

import "fmt"

// CompressionType identifies a compression algorithm.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota + 1
	CompressionLZ4
	CompressionBitshuffleLZ4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionBitshuffleLZ4:
		return "bitshuffle_lz4"
	default:
		return "unknown"
	}
}

// ParseCompressionType parses the wire/metadata string form of a compression
// name.
func ParseCompressionType(s string) (CompressionType, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "bitshuffle_lz4":
		return CompressionBitshuffleLZ4, nil
	default:
		return 0, fmt.Errorf("compress: unknown compression type %q", s)
	}
}

// IsWireType reports whether c is one of the three algorithms the wire
// protocol allows for a channel's compression field (spec §3).
func (c CompressionType) IsWireType() bool {
	switch c {
	case CompressionNone, CompressionLZ4, CompressionBitshuffleLZ4:
		return true
	default:
		return false
	}
}

// Compressor compresses a byte payload.
//
// Memory management:
//   - Returned slice is newly allocated and owned by the caller
//   - Input slice is not modified
//   - Internal buffers may be reused for efficiency
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a byte payload previously produced by the
// matching Compressor.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec is a factory function that creates a Codec for the given
// compression type.
func CreateCodec(compressionType CompressionType, target string) (Codec, error) {
	switch compressionType {
	case CompressionNone:
		return NewNoOpCompressor(), nil
	case CompressionLZ4:
		return NewLZ4Compressor(), nil
	case CompressionBitshuffleLZ4:
		return NewBitshuffleLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[CompressionType]Codec{
	CompressionNone:          NewNoOpCompressor(),
	CompressionLZ4:           NewLZ4Compressor(),
	CompressionBitshuffleLZ4: NewBitshuffleLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("compress: unsupported compression type: %s", compressionType)
}
