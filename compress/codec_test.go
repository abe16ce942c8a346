package compress_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulscherrerinstitute/bsread-go/compress"
)

func TestNoOpRoundTrip(t *testing.T) {
	c := compress.NewNoOpCompressor()
	data := []byte("hello world")
	compressed, err := c.Compress(data)
	require.NoError(t, err)
	out, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestLZ4RoundTrip(t *testing.T) {
	c := compress.NewLZ4Compressor()
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 251)
	}
	compressed, err := c.Compress(data)
	require.NoError(t, err)
	out, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestLZ4EmptyInput(t *testing.T) {
	c := compress.NewLZ4Compressor()
	compressed, err := c.Compress(nil)
	require.NoError(t, err)
	assert.Nil(t, compressed)
	out, err := c.Decompress(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestBitshuffleLZ4RoundTrip(t *testing.T) {
	for _, elemSize := range []int{1, 4, 8} {
		elemSize := elemSize
		t.Run(elemSizeName(elemSize), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			elements := 257 // deliberately not a multiple of 8
			data := make([]byte, elements*elemSize)
			rng.Read(data)

			c := compress.NewBitshuffleLZ4CompressorForElement(elemSize)
			compressed, err := c.Compress(data)
			require.NoError(t, err)

			out, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestBitshuffleLZ4EmptyInput(t *testing.T) {
	c := compress.NewBitshuffleLZ4CompressorForElement(8)
	compressed, err := c.Compress(nil)
	require.NoError(t, err)
	assert.Nil(t, compressed)
}

func TestCreateCodecRejectsUnknown(t *testing.T) {
	_, err := compress.CreateCodec(compress.CompressionType(200), "test")
	assert.Error(t, err)
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		in      string
		want    compress.CompressionType
		wireOK  bool
		wantErr bool
	}{
		{"", compress.CompressionNone, true, false},
		{"none", compress.CompressionNone, true, false},
		{"lz4", compress.CompressionLZ4, true, false},
		{"bitshuffle_lz4", compress.CompressionBitshuffleLZ4, true, false},
		{"bogus", 0, false, true},
	}
	for _, tt := range tests {
		got, err := compress.ParseCompressionType(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.wireOK, got.IsWireType())
	}
}

func TestGetCodecAllRegistered(t *testing.T) {
	for _, ct := range []compress.CompressionType{
		compress.CompressionNone,
		compress.CompressionLZ4,
		compress.CompressionBitshuffleLZ4,
	} {
		codec, err := compress.GetCodec(ct)
		require.NoError(t, err)
		require.NotNil(t, codec)
	}
}

func elemSizeName(n int) string {
	switch n {
	case 1:
		return "1byte"
	case 4:
		return "4byte"
	case 8:
		return "8byte"
	default:
		return "other"
	}
}
