// Package channel implements ChannelConfig, the immutable per-channel
// descriptor carried in every bsread data header (spec §3 "ChannelConfig",
// §4.3 "Channel descriptor & codec dispatch"): name, logical type, shape,
// endianness and compression, plus the metadata JSON projection used when
// building or parsing a data header, and dispatch to the wire codec.
package channel

import (
	"encoding/json"
	"fmt"

	"github.com/paulscherrerinstitute/bsread-go/compress"
	"github.com/paulscherrerinstitute/bsread-go/endian"
	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/value"
	"github.com/paulscherrerinstitute/bsread-go/wire"
)

// Config is an immutable per-channel descriptor.
type Config struct {
	name         string
	typ          value.Type
	shape        []int // nil or empty => scalar
	littleEndian bool
	compression  compress.CompressionType
}

// New constructs a Config. It returns an errs.Unsupported error if typ is
// value.TypeString and shape is non-empty: string arrays are not carried
// on the wire (spec §3, §4.3).
func New(name string, typ value.Type, shape []int, littleEndian bool, compression compress.CompressionType) (*Config, error) {
	if typ == value.TypeString && len(shape) > 0 {
		return nil, errs.New(errs.Unsupported, "channel: string arrays are not supported")
	}

	return &Config{
		name:         name,
		typ:          typ,
		shape:        shape,
		littleEndian: littleEndian,
		compression:  compression,
	}, nil
}

// Name returns the channel's name.
func (c *Config) Name() string { return c.name }

// Type returns the channel's logical value type.
func (c *Config) Type() value.Type { return c.typ }

// Shape returns the channel's declared shape, or nil for a scalar.
func (c *Config) Shape() []int { return c.shape }

// IsArray reports whether the channel carries an array value.
func (c *Config) IsArray() bool { return len(c.shape) > 0 }

// LittleEndian reports whether the channel's values are little-endian
// encoded on the wire.
func (c *Config) LittleEndian() bool { return c.littleEndian }

// Compression returns the channel's per-value compression.
func (c *Config) Compression() compress.CompressionType { return c.compression }

// Elements returns the product of Shape(), or 1 for a scalar.
func (c *Config) Elements() int {
	if len(c.shape) == 0 {
		return 1
	}

	n := 1
	for _, d := range c.shape {
		n *= d
	}

	return n
}

// PayloadBytes returns Elements() * element width of Type().
//
// Open question (spec §9): for bool channels this does not equal the
// actual number of bytes the wire codec emits, since value.TypeBool
// reports a 4-byte logical ElementWidth while wire always writes 1 byte
// per bool. PayloadBytes is therefore advisory (display; bitshuffle_lz4
// block sizing uses wireElementWidth instead) and must not be used to
// size a receive buffer for bool channels; see value.Type.ElementWidth.
func (c *Config) PayloadBytes() int {
	return c.Elements() * c.typ.ElementWidth()
}

// Engine returns the endian engine matching LittleEndian().
func (c *Config) Engine() endian.EndianEngine {
	if c.littleEndian {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}

// Encode encodes v per the channel's type/endianness, then compresses the
// result per Compression(). v must match Type()/IsArray().
func (c *Config) Encode(v value.Value) ([]byte, error) {
	if v.Type() != c.typ || v.IsArray() != c.IsArray() {
		return nil, errs.Newf(errs.InvalidInput, "channel %q: value type/shape mismatch", c.name)
	}

	raw, err := wire.Encode(c.Engine(), v)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "channel: encode value")
	}

	codec, err := c.codec()
	if err != nil {
		return nil, err
	}

	out, err := codec.Compress(raw)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "channel: compress value")
	}

	return out, nil
}

// Decode decompresses data per Compression(), then decodes it per the
// channel's type/endianness/elements.
func (c *Config) Decode(data []byte) (value.Value, error) {
	codec, err := c.codec()
	if err != nil {
		return value.Value{}, err
	}

	raw, err := codec.Decompress(data)
	if err != nil {
		return value.Value{}, errs.Wrap(errs.InvalidInput, err, "channel: decompress value")
	}

	v, err := wire.Decode(c.Engine(), c.typ, c.IsArray(), c.Elements(), raw)
	if err != nil {
		return value.Value{}, errs.Wrap(errs.InvalidData, err, "channel: decode value")
	}

	return v, nil
}

func (c *Config) codec() (compress.Codec, error) {
	// bitshuffle_lz4's block size depends on the channel's element width
	// (spec §4.2), so it cannot use the shared 1-byte-element singleton
	// compress.GetCodec returns; build one sized for this channel instead.
	if c.compression == compress.CompressionBitshuffleLZ4 {
		return compress.NewBitshuffleLZ4CompressorForElement(wireElementWidth(c.typ)), nil
	}

	codec, err := compress.GetCodec(c.compression)
	if err != nil {
		return nil, errs.Wrap(errs.Unsupported, err, "channel: unknown compression")
	}

	return codec, nil
}

// metadataDTO is the JSON shape of a channel entry in a data header's
// "channels" array (spec §4.3).
type metadataDTO struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Shape       []uint64 `json:"shape"`
	Encoding    string   `json:"encoding"`
	Compression string   `json:"compression,omitempty"`
}

// ShapeUint64 returns Shape() widened to the unsigned array form the
// wire's metadata projection uses.
func (c *Config) ShapeUint64() []uint64 {
	shape := make([]uint64, len(c.shape))
	for i, d := range c.shape {
		shape[i] = uint64(d)
	}

	return shape
}

// EncodingString returns "little" or "big" per LittleEndian().
func (c *Config) EncodingString() string {
	if c.littleEndian {
		return "little"
	}

	return "big"
}

// MarshalJSON implements the metadata projection used inside the data
// header: name, type, shape (empty array if scalar), encoding
// ("little"/"big"), and compression (omitted when "none").
func (c *Config) MarshalJSON() ([]byte, error) {
	shape := c.ShapeUint64()
	encoding := c.EncodingString()

	dto := metadataDTO{
		Name:     c.name,
		Type:     c.typ.String(),
		Shape:    shape,
		Encoding: encoding,
	}

	if c.compression != compress.CompressionNone {
		dto.Compression = c.compression.String()
	}

	return json.Marshal(dto)
}

// ParseMetadata parses one channel entry from a data header's "channels"
// array. Absent attributes default per spec §4.5: type = "float64",
// shape = none, encoding = little, compression = "none". The legacy
// encoding value ">" (from the original bsread wire format) is accepted
// as an alias for "big".
func ParseMetadata(data []byte) (*Config, error) {
	var dto metadataDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, errs.Wrap(errs.InvalidData, err, "channel: parse metadata")
	}

	if dto.Name == "" {
		return nil, errs.New(errs.InvalidData, "channel: metadata missing name")
	}

	typName := dto.Type
	if typName == "" {
		typName = "float64"
	}

	typ, err := value.ParseType(typName)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidData, err, "channel: parse type")
	}

	var shape []int
	for _, d := range dto.Shape {
		shape = append(shape, int(d))
	}

	littleEndian := dto.Encoding != ">" && dto.Encoding != "big"

	compType := compress.CompressionNone
	if dto.Compression != "" {
		compType, err = compress.ParseCompressionType(dto.Compression)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidData, err, "channel: parse compression")
		}
	}

	return New(dto.Name, typ, shape, littleEndian, compType)
}

// wireElementWidth returns the number of bytes the wire codec (package
// wire) actually emits per element of t, which for bool is 1 — unlike
// value.Type.ElementWidth()'s logical 4-byte report for bool (spec §9
// open question). bitshuffle_lz4 block sizing must use this, not the
// logical width, or it mis-sizes the shuffle block for bool channels.
func wireElementWidth(t value.Type) int {
	if t == value.TypeBool {
		return 1
	}

	return t.ElementWidth()
}

var _ fmt.Stringer = (*Config)(nil)

// String returns a short human-readable description, useful for logging.
func (c *Config) String() string {
	return fmt.Sprintf("channel{name=%s type=%s shape=%v compression=%s}", c.name, c.typ, c.shape, c.compression)
}
