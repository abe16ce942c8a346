package compress

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/paulscherrerinstitute/bsread-go/internal/bitshuffle"
)

// bitshuffleHeaderSize is the 12-byte framing prefix described in spec §4.2/§6:
//
//	bytes [0..8):  elements, uint64 big-endian
//	bytes [8..12): block_size * element_size, uint32 big-endian
//	bytes [12..):  lz4-compressed, bitshuffled payload
const bitshuffleHeaderSize = 12

// BitshuffleLZ4Compressor implements the bitshuffle_lz4 compression
// adapter: a bit-level transpose (internal/bitshuffle) followed by LZ4
// block compression, framed with a 12-byte prefix carrying the element
// count and block size so a decoder with no other context can recover the
// decompressed size.
//
// The element size used for shuffling is not itself part of the frame; it
// must be supplied by the caller (the channel descriptor knows its own
// element width) via NewBitshuffleLZ4CompressorForElement. The zero-value
// BitshuffleLZ4Compressor defaults to 1-byte elements (bits are still
// transposed across each group of 8 bytes; only used when the element
// width is unknown up front).
type BitshuffleLZ4Compressor struct {
	elemSize int
}

var _ Codec = BitshuffleLZ4Compressor{}

// NewBitshuffleLZ4Compressor creates a bitshuffle_lz4 codec assuming
// 1-byte elements (no shuffling benefit, but a valid, self-consistent
// codec). Channel dispatch should prefer
// NewBitshuffleLZ4CompressorForElement with the channel's real element
// width.
func NewBitshuffleLZ4Compressor() BitshuffleLZ4Compressor {
	return BitshuffleLZ4Compressor{elemSize: 1}
}

// NewBitshuffleLZ4CompressorForElement creates a bitshuffle_lz4 codec for
// the given element byte width (e.g. 8 for float64/int64/uint64, 4 for
// float32/int32/uint32).
func NewBitshuffleLZ4CompressorForElement(elemSize int) BitshuffleLZ4Compressor {
	if elemSize <= 0 {
		elemSize = 1
	}

	return BitshuffleLZ4Compressor{elemSize: elemSize}
}

// Compress bitshuffles data at the configured element size, then
// LZ4-compresses the result, prefixed with the 12-byte framing header.
func (c BitshuffleLZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	elemSize := c.elemSize
	if elemSize <= 0 {
		elemSize = 1
	}
	if len(data)%elemSize != 0 {
		return nil, fmt.Errorf("compress: bitshuffle_lz4: data length %d not a multiple of element size %d", len(data), elemSize)
	}
	elements := len(data) / elemSize

	shuffled, err := bitshuffle.Shuffle(data, elemSize)
	if err != nil {
		return nil, fmt.Errorf("compress: bitshuffle_lz4: %w", err)
	}

	lz4Compressor := NewLZ4Compressor()
	body, err := lz4Compressor.Compress(shuffled)
	if err != nil {
		return nil, fmt.Errorf("compress: bitshuffle_lz4: lz4 compress: %w", err)
	}

	blockSize := bitshuffle.BlockSize(elemSize)

	out := make([]byte, bitshuffleHeaderSize+len(body))
	binary.BigEndian.PutUint64(out[0:8], uint64(elements))
	binary.BigEndian.PutUint32(out[8:12], uint32(blockSize*elemSize))
	copy(out[bitshuffleHeaderSize:], body)

	return out, nil
}

// Decompress reads the 12-byte framing prefix to recover the element
// count, LZ4-decompresses the remaining payload, and reverses the bit
// transpose.
func (c BitshuffleLZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < bitshuffleHeaderSize {
		return nil, errors.New("compress: bitshuffle_lz4: frame shorter than 12-byte header")
	}

	elements := int(binary.BigEndian.Uint64(data[0:8]))
	// bytes [8:12) (block_size*element_size) is informational only; the
	// actual element size for unshuffling must come from the caller's
	// configured elemSize, same as for Compress.
	elemSize := c.elemSize
	if elemSize <= 0 {
		elemSize = 1
	}

	lz4Decompressor := NewLZ4Compressor()
	shuffled, err := lz4Decompressor.Decompress(data[bitshuffleHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("compress: bitshuffle_lz4: lz4 decompress: %w", err)
	}

	out, err := bitshuffle.Unshuffle(shuffled, elemSize, elements)
	if err != nil {
		return nil, fmt.Errorf("compress: bitshuffle_lz4: %w", err)
	}

	return out, nil
}
