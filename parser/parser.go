// Package parser implements the 5-step frame-parsing algorithm (spec
// §4.5): decode the main header, resolve the data header either from the
// schema cache or by decompressing and decoding part[1], validate the
// part count, decode each channel's (value, timestamp) pair, and
// reinsert the resolved schema into the cache.
package parser

import (
	"encoding/binary"

	"github.com/paulscherrerinstitute/bsread-go/compress"
	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/message"
	"github.com/paulscherrerinstitute/bsread-go/schemacache"
)

// Parser resolves frame parts into a message.Message using a schema
// cache owned by the caller (typically a receiver, spec §4.7).
type Parser struct {
	cache *schemacache.Cache
}

// New creates a Parser backed by cache. cache is typically void until
// the owning receiver sizes it at first listen (spec §4.4).
func New(cache *schemacache.Cache) *Parser {
	return &Parser{cache: cache}
}

// Result reports what Parse did to the schema cache, so the caller can
// maintain its own "header changes" counter (spec §4.7 counters).
type Result struct {
	Message       *message.Message
	HeaderChanged bool // true on a schema-cache miss
}

// Parse implements spec §4.5's 5-step algorithm over an ordered list of
// frame parts.
func (p *Parser) Parse(parts [][]byte) (Result, error) {
	if len(parts) < 2 {
		return Result{}, errs.New(errs.InvalidData, "parser: frame has fewer than 2 parts")
	}

	mainHeader, err := message.ParseMainHeader(parts[0])
	if err != nil {
		return Result{}, err
	}

	entry, headerChanged, err := p.resolveSchema(mainHeader, parts[1])
	if err != nil {
		return Result{}, err
	}

	channels := entry.Channels
	if len(parts) != 2+2*len(channels) {
		return Result{}, errs.Newf(errs.InvalidData, "parser: expected %d parts for %d channels, got %d", 2+2*len(channels), len(channels), len(parts))
	}

	msg := message.New(mainHeader, entry.DataHeaderJSON, channels)

	for i, c := range channels {
		v := parts[2+2*i]
		ts := parts[3+2*i]

		if len(ts) != 16 {
			continue // spec §4.5 step 4: malformed timestamp => no data for this channel, not a fatal error
		}

		val, err := c.Decode(v)
		if err != nil {
			continue // per-channel decode errors are swallowed; caller counts via its own error path if desired
		}

		sec := int64(binary.LittleEndian.Uint64(ts[0:8]))
		ns := int64(binary.LittleEndian.Uint64(ts[8:16]))

		msg.Set(c.Name(), &message.ChannelData{
			Value:     val,
			Timestamp: message.Timestamp{Sec: sec, Ns: ns},
		})
	}

	p.cache.Insert(mainHeader.Hash, entry)

	return Result{Message: msg, HeaderChanged: headerChanged}, nil
}

// resolveSchema implements step 2: reuse a cached entry on hit, or
// decompress+decode part[1] into a fresh one on miss.
func (p *Parser) resolveSchema(mainHeader message.MainHeader, dataHeaderPart []byte) (schemacache.Entry, bool, error) {
	if entry, ok := p.cache.Remove(mainHeader.Hash); ok {
		return entry, false, nil
	}

	dhCompression := compress.CompressionNone
	if mainHeader.DHCompression != "" {
		var err error
		dhCompression, err = compress.ParseCompressionType(mainHeader.DHCompression)
		if err != nil {
			return schemacache.Entry{}, false, errs.Wrap(errs.InvalidData, err, "parser: parse dh_compression")
		}
	}

	codec, err := compress.GetCodec(dhCompression)
	if err != nil {
		return schemacache.Entry{}, false, errs.Wrap(errs.Unsupported, err, "parser: dh_compression codec")
	}

	raw, err := codec.Decompress(dataHeaderPart)
	if err != nil {
		return schemacache.Entry{}, false, errs.Wrap(errs.InvalidData, err, "parser: decompress data header")
	}

	_, channels, err := message.ParseDataHeader(raw)
	if err != nil {
		return schemacache.Entry{}, false, err
	}

	return schemacache.Entry{DataHeaderJSON: raw, Channels: channels}, true, nil
}
