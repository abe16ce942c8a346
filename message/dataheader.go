package message

import (
	"encoding/json"

	"github.com/paulscherrerinstitute/bsread-go/channel"
	"github.com/paulscherrerinstitute/bsread-go/compress"
	"github.com/paulscherrerinstitute/bsread-go/errs"
)

// BuildDataHeaderJSON serializes channels into a data-header JSON blob
// with keys in canonical (sorted) order, required so that two producers
// with identical logical schemas hash to the same md5 digest (spec §4.6
// "the ordered-key serialization is required so that hash equality
// between producers with identical logical schemas is stable").
//
// Go's encoding/json sorts map keys alphabetically when marshaling a
// map, so each channel object and the root object are built as
// map[string]any rather than structs (whose fields would otherwise
// serialize in declaration order) to get that guarantee for free.
func BuildDataHeaderJSON(channels []*channel.Config) ([]byte, error) {
	chs := make([]map[string]any, len(channels))
	for i, c := range channels {
		obj := map[string]any{
			"name":     c.Name(),
			"type":     c.Type().String(),
			"shape":    c.ShapeUint64(),
			"encoding": c.EncodingString(),
		}
		if c.Compression() != compress.CompressionNone {
			obj["compression"] = c.Compression().String()
		}
		chs[i] = obj
	}

	root := map[string]any{
		"htype":    DataHeaderHtype,
		"channels": chs,
	}

	return json.Marshal(root)
}

// dataHeaderDTO is used only for parsing: each channel entry is kept as
// raw JSON so channel.ParseMetadata can apply its own defaulting.
type dataHeaderDTO struct {
	Htype    string            `json:"htype"`
	Channels []json.RawMessage `json:"channels"`
}

// ParseDataHeader parses a data-header JSON blob into its channel
// descriptors, in declaration order (spec §4.5).
func ParseDataHeader(data []byte) (htype string, channels []*channel.Config, err error) {
	var dto dataHeaderDTO
	if jerr := json.Unmarshal(data, &dto); jerr != nil {
		return "", nil, errs.Wrap(errs.InvalidData, jerr, "message: parse data header")
	}

	channels = make([]*channel.Config, len(dto.Channels))
	for i, raw := range dto.Channels {
		c, cerr := channel.ParseMetadata(raw)
		if cerr != nil {
			return "", nil, cerr
		}
		channels[i] = c
	}

	return dto.Htype, channels, nil
}

// ParseMainHeader parses the first frame part into a MainHeader. It
// fails with errs.InvalidData if the mandatory "hash" key is missing.
func ParseMainHeader(data []byte) (MainHeader, error) {
	var mh MainHeader
	if err := json.Unmarshal(data, &mh); err != nil {
		return MainHeader{}, errs.Wrap(errs.InvalidData, err, "message: parse main header")
	}

	if mh.Hash == "" {
		return MainHeader{}, errs.New(errs.InvalidData, "message: main header missing hash")
	}

	return mh, nil
}
