package sender

import (
	"crypto/md5" //nolint:gosec // wire-mandated digest (spec §4.6), not a security use
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paulscherrerinstitute/bsread-go/channel"
	"github.com/paulscherrerinstitute/bsread-go/compress"
	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/internal/options"
	"github.com/paulscherrerinstitute/bsread-go/message"
	"github.com/paulscherrerinstitute/bsread-go/transport"
	"github.com/paulscherrerinstitute/bsread-go/transportctx"
)

// Sender publishes frames on one socket: a data header is prepared once
// with CreateDataHeader (or implicitly by the first SendMessage), then
// Send/SendMessage emit a main-header/data-header/value/timestamp frame
// per call, reusing the prepared data header until it changes.
type Sender struct {
	ctx    *transportctx.Context
	socket transport.Socket
	logger *zap.Logger

	cfg *config

	mu                sync.Mutex
	started           bool
	dataHeaderBlob    []byte
	dataHeaderHash    string
	dataHeaderChans   []*channel.Config
	dhCompressionName string
	pulseID           uint64
}

// New constructs a Sender bound to ctx, of socketType, publishing on
// port. Options configure the bind address, queue size, blocking
// behavior, starting pulse id and header compression.
func New(ctx *transportctx.Context, socketType transport.SocketType, port int, logger *zap.Logger, opts ...Option) (*Sender, error) {
	cfg := newConfig(socketType, port)
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	socket, err := ctx.NewSocket(socketType)
	if err != nil {
		return nil, err
	}

	if err := socket.SetSendHWM(cfg.queueSize); err != nil {
		_ = socket.Close()
		return nil, err
	}

	ctx.Acquire()

	return &Sender{
		ctx:     ctx,
		socket:  socket,
		logger:  logger,
		cfg:     cfg,
		pulseID: cfg.startID,
	}, nil
}

// Start binds the socket to its configured endpoint. Calling Start twice
// without an intervening Stop returns errs.AlreadyExists.
func (s *Sender) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errs.New(errs.AlreadyExists, "sender: already started")
	}

	if err := s.socket.Bind(s.cfg.url()); err != nil {
		return err
	}

	s.logger.Info("sender bound", zap.String("url", s.cfg.url()))
	s.started = true

	return nil
}

// Stop unbinds the socket. An unbind failure is logged, not returned
// (the socket is being torn down regardless).
func (s *Sender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false

	if err := s.socket.Unbind(s.cfg.url()); err != nil {
		s.logger.Warn("sender unbind failed", zap.String("url", s.cfg.url()), zap.Error(err))
	}
}

// IsStarted reports whether Start has been called without a matching Stop.
func (s *Sender) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started
}

// Close releases the Sender's socket and its reference on the shared
// Context.
func (s *Sender) Close() error {
	s.Stop()

	if err := s.socket.Close(); err != nil {
		return err
	}

	return s.ctx.Release()
}

// CreateDataHeader builds the data-header JSON for channels in canonical
// (sorted-key) order, compresses it per the configured header
// compression, and records the resulting blob's md5 hex digest for
// future Send calls (spec §4.6).
func (s *Sender) CreateDataHeader(channels []*channel.Config) error {
	raw, err := message.BuildDataHeaderJSON(channels)
	if err != nil {
		return err
	}

	codec, err := compress.GetCodec(s.cfg.headerCompression)
	if err != nil {
		return errs.Wrap(errs.Unsupported, err, "sender: header compression codec")
	}

	blob, err := codec.Compress(raw)
	if err != nil {
		return errs.Wrap(errs.InvalidInput, err, "sender: compress data header")
	}

	sum := md5.Sum(blob) //nolint:gosec
	hash := hex.EncodeToString(sum[:])

	dhCompressionName := ""
	if s.cfg.headerCompression != compress.CompressionNone {
		dhCompressionName = s.cfg.headerCompression.String()
	}

	s.mu.Lock()
	s.dataHeaderBlob = blob
	s.dataHeaderHash = hash
	s.dataHeaderChans = channels
	s.dhCompressionName = dhCompressionName
	s.mu.Unlock()

	return nil
}

// Send emits one frame: main header, data header (reusing the blob
// CreateDataHeader last prepared), and a value/timestamp part pair per
// non-nil entry in data. data must have the same length as the channels
// CreateDataHeader was last called with; a nil entry skips that
// channel's part pair entirely, mirroring a frame where that channel has
// no new sample this cycle.
//
// id == IDSimulated substitutes the Sender's own incrementing pulse id.
// ts == message.TimestampNow substitutes the current wall-clock time, and
// so does a channel entry whose Timestamp is message.TimestampNow.
func (s *Sender) Send(id uint64, ts message.Timestamp, channels []*channel.Config, data []*message.ChannelData) error {
	if len(data) == 0 {
		return errs.New(errs.InvalidInput, "sender: empty channel data list")
	}

	if len(data) != len(channels) {
		return errs.New(errs.InvalidInput, "sender: channel data list size mismatch")
	}

	s.mu.Lock()
	blob := s.dataHeaderBlob
	hash := s.dataHeaderHash
	dhCompression := s.dhCompressionName

	if id == IDSimulated {
		id = s.pulseID
		s.pulseID++
	} else {
		s.pulseID = id
	}
	s.mu.Unlock()

	if hash == "" {
		return errs.New(errs.InvalidInput, "sender: CreateDataHeader was never called")
	}

	if ts == (message.Timestamp{}) {
		ts = currentTimestamp()
	}

	mh := message.MainHeader{
		Htype:         message.MainHeaderHtype,
		PulseID:       id,
		Hash:          hash,
		DHCompression: dhCompression,
		GlobalTimestamp: &message.GlobalTimestamp{
			Sec: uint64(ts.Sec),
			Ns:  uint64(ts.Ns),
		},
	}

	mhBlob, err := json.Marshal(mh)
	if err != nil {
		return errs.Wrap(errs.InvalidInput, err, "sender: marshal main header")
	}

	valid := 0
	for _, d := range data {
		if d != nil {
			valid++
		}
	}

	parts := make([][]byte, 0, 2+2*valid)
	parts = append(parts, mhBlob, blob)

	for i, ch := range channels {
		d := data[i]
		if d == nil {
			continue
		}

		encoded, err := ch.Encode(d.Value)
		if err != nil {
			return err
		}

		cts := d.Timestamp
		if cts == message.TimestampNow {
			cts = currentTimestamp()
		}

		parts = append(parts, encoded, encodeTimestamp(cts))
	}

	return s.emit(parts)
}

// SendMessage sends the assembled frame msg.Channels/msg.Data as one
// call. If rebuildHeader is true, or no data header has been prepared
// yet, CreateDataHeader is run from msg.Channels first (e.g. the schema
// changed since the last send); otherwise the previously prepared data
// header is reused.
func (s *Sender) SendMessage(msg *message.Message, rebuildHeader bool) error {
	s.mu.Lock()
	haveHeader := s.dataHeaderHash != ""
	s.mu.Unlock()

	if rebuildHeader || !haveHeader {
		if err := s.CreateDataHeader(msg.Channels); err != nil {
			return err
		}
	}

	data := make([]*message.ChannelData, len(msg.Channels))
	for i, ch := range msg.Channels {
		if d, ok := msg.Data[ch.Name()]; ok {
			data[i] = d
		}
	}

	id := msg.MainHeader.PulseID
	if id == 0 {
		id = IDSimulated
	}

	ts := message.TimestampNow
	if msg.MainHeader.GlobalTimestamp != nil {
		ts = message.Timestamp{
			Sec: int64(msg.MainHeader.GlobalTimestamp.Sec),
			Ns:  int64(msg.MainHeader.GlobalTimestamp.Ns),
		}
	}

	return s.Send(id, ts, msg.Channels, data)
}

// Forward emits parts verbatim as a single multi-part message, bypassing
// header construction entirely (e.g. a relay that re-publishes frames it
// received unmodified).
func (s *Sender) Forward(parts [][]byte) error {
	return s.emit(parts)
}

func (s *Sender) emit(parts [][]byte) error {
	dontWait := !s.cfg.block
	return s.socket.Send(parts, dontWait)
}

func encodeTimestamp(ts message.Timestamp) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ts.Sec))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ts.Ns))

	return buf
}

func currentTimestamp() message.Timestamp {
	now := time.Now()
	return message.Timestamp{Sec: now.Unix(), Ns: int64(now.Nanosecond())}
}
