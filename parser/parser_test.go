package parser_test

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulscherrerinstitute/bsread-go/channel"
	"github.com/paulscherrerinstitute/bsread-go/compress"
	"github.com/paulscherrerinstitute/bsread-go/message"
	"github.com/paulscherrerinstitute/bsread-go/parser"
	"github.com/paulscherrerinstitute/bsread-go/schemacache"
	"github.com/paulscherrerinstitute/bsread-go/value"
)

func buildFrame(t *testing.T, channels []*channel.Config, values []value.Value, ts message.Timestamp, pulseID uint64) [][]byte {
	t.Helper()

	dh, err := message.BuildDataHeaderJSON(channels)
	require.NoError(t, err)

	sum := md5.Sum(dh)
	hash := hex.EncodeToString(sum[:])

	mh := message.MainHeader{Htype: message.MainHeaderHtype, PulseID: pulseID, Hash: hash}
	mhBytes, err := json.Marshal(mh)
	require.NoError(t, err)

	parts := [][]byte{mhBytes, dh}

	for i, c := range channels {
		v, err := c.Encode(values[i])
		require.NoError(t, err)

		tsBytes := make([]byte, 16)
		binary.LittleEndian.PutUint64(tsBytes[0:8], uint64(ts.Sec))
		binary.LittleEndian.PutUint64(tsBytes[8:16], uint64(ts.Ns))

		parts = append(parts, v, tsBytes)
	}

	return parts
}

func TestParseSingleChannel(t *testing.T) {
	c, err := channel.New("c", value.TypeUint64, nil, true, compress.CompressionNone)
	require.NoError(t, err)

	parts := buildFrame(t, []*channel.Config{c}, []value.Value{value.NewUint64(42)}, message.Timestamp{Sec: 1700000000, Ns: 123000000}, 7)

	p := parser.New(schemacache.New(4))
	res, err := p.Parse(parts)
	require.NoError(t, err)
	assert.True(t, res.HeaderChanged)

	v, ok := res.Message.GetValue("c")
	require.True(t, ok)
	n, _ := v.Uint64()
	assert.Equal(t, uint64(42), n)
	assert.Equal(t, uint64(7), res.Message.ID())
}

func TestParseSchemaReuse(t *testing.T) {
	c, err := channel.New("c", value.TypeInt32, nil, true, compress.CompressionNone)
	require.NoError(t, err)

	cache := schemacache.New(4)
	p := parser.New(cache)

	parts1 := buildFrame(t, []*channel.Config{c}, []value.Value{value.NewInt32(1)}, message.Timestamp{}, 1)
	res1, err := p.Parse(parts1)
	require.NoError(t, err)
	assert.True(t, res1.HeaderChanged)

	parts2 := buildFrame(t, []*channel.Config{c}, []value.Value{value.NewInt32(2)}, message.Timestamp{}, 2)
	res2, err := p.Parse(parts2)
	require.NoError(t, err)
	assert.False(t, res2.HeaderChanged)
	assert.Equal(t, 1, cache.Len())
}

func TestParseBadTimestampLengthSkipsChannel(t *testing.T) {
	c, err := channel.New("c", value.TypeInt32, nil, true, compress.CompressionNone)
	require.NoError(t, err)

	parts := buildFrame(t, []*channel.Config{c}, []value.Value{value.NewInt32(5)}, message.Timestamp{}, 1)
	parts[3] = []byte{1, 2, 3} // corrupt the timestamp part

	p := parser.New(schemacache.New(4))
	res, err := p.Parse(parts)
	require.NoError(t, err)

	_, ok := res.Message.GetValue("c")
	assert.False(t, ok)
}

func TestParseWrongPartCount(t *testing.T) {
	c, err := channel.New("c", value.TypeInt32, nil, true, compress.CompressionNone)
	require.NoError(t, err)

	parts := buildFrame(t, []*channel.Config{c}, []value.Value{value.NewInt32(5)}, message.Timestamp{}, 1)
	parts = parts[:len(parts)-1] // drop the timestamp part

	p := parser.New(schemacache.New(4))
	_, err = p.Parse(parts)
	assert.Error(t, err)
}

func TestParseMissingHash(t *testing.T) {
	p := parser.New(schemacache.New(4))
	_, err := p.Parse([][]byte{[]byte(`{"htype":"bsr_m-1.1"}`), []byte(`{}`)})
	assert.Error(t, err)
}

func TestParseTooFewParts(t *testing.T) {
	p := parser.New(schemacache.New(4))
	_, err := p.Parse([][]byte{[]byte(`{}`)})
	assert.Error(t, err)
}
