// Package message defines the assembled bsread frame (spec §3 "Message"):
// a main header, a data header, the ordered channel descriptors it
// declares, and the per-channel (value, timestamp) data carried by a
// single frame.
package message

import (
	"encoding/json"

	"github.com/paulscherrerinstitute/bsread-go/channel"
	"github.com/paulscherrerinstitute/bsread-go/value"
)

// MainHeaderHtype is the required htype of every main header.
const MainHeaderHtype = "bsr_m-1.1"

// DataHeaderHtype is the required htype of every data header.
const DataHeaderHtype = "bsr_d-1.1"

// GlobalTimestamp is the main header's optional wall-clock stamp for the
// whole frame, distinct from any individual channel's Timestamp.
type GlobalTimestamp struct {
	Sec uint64 `json:"sec"`
	Ns  uint64 `json:"ns"`
}

// MainHeader is the first part of every frame (spec §6).
type MainHeader struct {
	Htype           string           `json:"htype"`
	PulseID         uint64           `json:"pulse_id"`
	Hash            string           `json:"hash"`
	DHCompression   string           `json:"dh_compression,omitempty"`
	GlobalTimestamp *GlobalTimestamp `json:"global_timestamp,omitempty"`
}

// Timestamp is a (seconds, nanoseconds) pair as carried in each channel's
// 16-byte timestamp part.
type Timestamp struct {
	Sec int64
	Ns  int64
}

// TimestampNow is the sentinel value requesting wall-clock substitution
// at send time (spec §3 "ChannelData").
var TimestampNow = Timestamp{Sec: 0, Ns: 0}

// ChannelData is one channel's payload within a single frame.
type ChannelData struct {
	Value     value.Value
	Timestamp Timestamp
}

// Message is an assembled frame: channels in declaration order plus the
// per-channel data present for this particular frame (a channel absent
// from Data simply has no entry for this frame, per spec §6).
type Message struct {
	MainHeader     MainHeader
	DataHeaderJSON json.RawMessage // data-header JSON, decompressed if dh_compression was set
	Channels       []*channel.Config
	Data           map[string]*ChannelData
}

// New constructs an empty Message for the given header and channel list.
func New(mainHeader MainHeader, dataHeaderJSON json.RawMessage, channels []*channel.Config) *Message {
	return &Message{
		MainHeader:     mainHeader,
		DataHeaderJSON: dataHeaderJSON,
		Channels:       channels,
		Data:           make(map[string]*ChannelData, len(channels)),
	}
}

// Set records data for the named channel.
func (m *Message) Set(name string, data *ChannelData) {
	m.Data[name] = data
}

// Get returns the data recorded for the named channel, if any.
func (m *Message) Get(name string) (*ChannelData, bool) {
	d, ok := m.Data[name]
	return d, ok
}

// GetValue returns the value recorded for the named channel, if any.
func (m *Message) GetValue(name string) (value.Value, bool) {
	d, ok := m.Data[name]
	if !ok {
		return value.Value{}, false
	}

	return d.Value, true
}

// ID returns the frame's pulse id.
func (m *Message) ID() uint64 { return m.MainHeader.PulseID }

// Hash returns the md5 hex digest of the data-header blob as transmitted.
func (m *Message) Hash() string { return m.MainHeader.Hash }

// Htype returns the main header's htype.
func (m *Message) Htype() string { return m.MainHeader.Htype }

// DHCompression returns the data-header blob's compression, or "" if
// none was applied.
func (m *Message) DHCompression() string { return m.MainHeader.DHCompression }

// Names returns the channel names in declaration order.
func (m *Message) Names() []string {
	names := make([]string, len(m.Channels))
	for i, c := range m.Channels {
		names[i] = c.Name()
	}

	return names
}
