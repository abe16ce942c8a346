// Package receiver implements the consuming half of the protocol: a
// tracked socket, a parse loop driven by package parser, a bounded
// schema cache sized lazily at first listen, and three consumption
// modes (blocking listen, forked worker, buffered FIFO) with an
// optional forwarder hook (spec §4.7 "Receiver").
package receiver

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/internal/fifo"
	"github.com/paulscherrerinstitute/bsread-go/internal/options"
	"github.com/paulscherrerinstitute/bsread-go/message"
	"github.com/paulscherrerinstitute/bsread-go/parser"
	"github.com/paulscherrerinstitute/bsread-go/schemacache"
	"github.com/paulscherrerinstitute/bsread-go/sender"
	"github.com/paulscherrerinstitute/bsread-go/transport"
	"github.com/paulscherrerinstitute/bsread-go/transportctx"
)

// Callback is invoked once per successfully parsed message by Listen and
// Fork, unless a FIFO is installed (Start), in which case messages are
// pushed to it instead.
type Callback func(msg *message.Message)

// State is a Receiver's position in the state machine of spec §4.7.
type State int

const (
	// StateIdle is the state right after construction.
	StateIdle State = iota
	// StateListeningSync is Listen's synchronous blocking loop.
	StateListeningSync
	// StateListeningAsync is a loop running in a forked goroutine.
	StateListeningAsync
	// StateBuffered is a forked loop pushing into a FIFO.
	StateBuffered
	// StateStopped is entered after the loop exits, by interruption or exhaustion.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListeningSync:
		return "listening-sync"
	case StateListeningAsync:
		return "listening-async"
	case StateBuffered:
		return "buffered"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Receiver owns one transport socket, its connected endpoints, a schema
// cache and parser, and (while running) a worker goroutine and optional
// FIFO.
type Receiver struct {
	ctx        *transportctx.Context
	socketType transport.SocketType
	socket     *trackedSocket
	logger     *zap.Logger

	mu        sync.Mutex
	endpoints []string

	cache  *schemacache.Cache
	parser *parser.Parser

	local transportctx.LocalFlag

	callbackMu sync.Mutex
	callback   Callback

	fifoMu sync.Mutex
	fifo   *fifo.Queue[*message.Message]

	forwarder     *sender.Sender
	ownsForwarder bool
	forwarderCfg  *forwarderParams

	messagesReceived atomic.Uint64
	socketErrors     atomic.Uint64
	headerChanges    atomic.Uint64

	stateMu sync.Mutex
	state   State

	workerWG    sync.WaitGroup
	workerErrCh chan string
}

// New constructs a Receiver bound to ctx, using a socket of socketType.
// Options set the planned endpoint list and/or a forwarder.
func New(ctx *transportctx.Context, socketType transport.SocketType, logger *zap.Logger, opts ...Option) (*Receiver, error) {
	cfg := newConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	sock, err := ctx.NewSocket(socketType)
	if err != nil {
		return nil, err
	}

	ctx.Acquire()

	cache := schemacache.NewVoid()

	r := &Receiver{
		ctx:          ctx,
		socketType:   socketType,
		socket:       newTrackedSocket(sock, socketType),
		logger:       logger,
		endpoints:    append([]string(nil), cfg.endpoints...),
		cache:        cache,
		parser:       parser.New(cache),
		forwarder:    cfg.forwarder,
		forwarderCfg: cfg.forwarderCfg,
		state:        StateIdle,
	}

	return r, nil
}

// Connect idempotently connects the socket to endpoint; for Sub sockets
// the first connection subscribes to everything.
func (r *Receiver) Connect(endpoint string) error {
	return r.socket.Connect(endpoint)
}

// Disconnect disconnects endpoint; a no-op if never connected.
func (r *Receiver) Disconnect(endpoint string) error {
	return r.socket.Disconnect(endpoint)
}

// DisconnectAll disconnects every currently connected endpoint.
func (r *Receiver) DisconnectAll() error {
	return r.socket.DisconnectAll()
}

// AddEndpoint appends endpoint to the planned list connectAll (driven by
// Listen/Fork/Start) will connect to.
func (r *Receiver) AddEndpoint(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = append(r.endpoints, endpoint)
}

// State reports the receiver's current lifecycle state.
func (r *Receiver) State() State {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	return r.state
}

func (r *Receiver) setState(s State) {
	r.stateMu.Lock()
	r.state = s
	r.stateMu.Unlock()
}

// MessagesReceived is the count of successfully parsed messages.
func (r *Receiver) MessagesReceived() uint64 { return r.messagesReceived.Load() }

// SocketErrors is the count of transport-level receive failures and
// frame parse failures — the single "error counter" of spec §7, which
// covers both "transport receive errors" and "parse errors".
func (r *Receiver) SocketErrors() uint64 { return r.socketErrors.Load() }

// HeaderChanges is the count of schema-cache misses (spec §4.7 counters).
func (r *Receiver) HeaderChanges() uint64 { return r.headerChanges.Load() }

// FIFODrops is the count of messages the installed FIFO has dropped for
// being full, or 0 if no FIFO is installed.
func (r *Receiver) FIFODrops() uint64 {
	if f := r.activeFIFO(); f != nil {
		return f.DroppedCount()
	}

	return 0
}

// Receive returns the next assembled Message. If a forwarder is
// attached, the raw multi-part frame is forwarded first so a parse
// failure never blocks forwarding (spec §4.7).
func (r *Receiver) Receive() (*message.Message, error) {
	parts, err := r.socket.socket.Recv()
	if err != nil {
		r.socketErrors.Add(1)
		return nil, err
	}

	if fw := r.activeForwarder(); fw != nil {
		if ferr := fw.Forward(parts); ferr != nil {
			r.logger.Warn("receiver: forward failed", zap.Error(ferr))
		}
	}

	result, err := r.parser.Parse(parts)
	if err != nil {
		r.socketErrors.Add(1)
		return nil, err
	}

	if result.HeaderChanged {
		r.headerChanges.Add(1)
	}

	r.messagesReceived.Add(1)

	return result.Message, nil
}

// Listen connects every planned endpoint, auto-sizes the schema cache if
// still void, then blocks running the receive loop until max messages
// have been received (max <= 0 means unlimited), the receiver is
// interrupted, or its Context is cancelled (spec §4.7).
func (r *Receiver) Listen(callback Callback, max int) error {
	r.setState(StateListeningSync)
	r.setCallback(callback)

	err := r.loop(max)
	r.setState(StateStopped)

	return err
}

// Fork starts an equivalent loop in a goroutine and returns immediately;
// call Join to wait for it and retrieve its error.
func (r *Receiver) Fork(callback Callback, max int) {
	if r.activeFIFO() != nil {
		r.setState(StateBuffered)
	} else {
		r.setState(StateListeningAsync)
	}
	r.setCallback(callback)

	r.workerErrCh = make(chan string, 1)
	r.workerWG.Add(1)

	go func() {
		defer r.workerWG.Done()
		defer func() {
			if p := recover(); p != nil {
				r.setState(StateStopped)
				r.workerErrCh <- errs.EncodeCrossBoundary(errs.Newf(errs.Other, "receiver: worker panic: %v", p))
			}
		}()

		err := r.loop(max)
		r.setState(StateStopped)
		r.workerErrCh <- errs.EncodeCrossBoundary(err)
	}()
}

// Join waits for a forked worker to finish and returns its error, with
// the original Kind preserved across the goroutine boundary (spec §4.7
// "Worker thread panic/error surfaces via join() as a domain error").
func (r *Receiver) Join() error {
	r.workerWG.Wait()

	if r.workerErrCh == nil {
		return nil
	}

	select {
	case s := <-r.workerErrCh:
		return errs.DecodeCrossBoundary(s)
	default:
		return nil
	}
}

// Start installs a bounded FIFO and forks a worker that pushes every
// received message into it; consume via Get or Wait (spec §4.7).
func (r *Receiver) Start(bufferSize int) error {
	r.fifoMu.Lock()
	if r.fifo != nil {
		r.fifoMu.Unlock()
		return errs.New(errs.AlreadyExists, "receiver: already started")
	}

	r.fifo = fifo.New[*message.Message](bufferSize)
	r.fifoMu.Unlock()

	r.setState(StateBuffered)
	r.Fork(nil, 0)

	return nil
}

// Get pops the next buffered message, or false if the FIFO is empty or
// not installed.
func (r *Receiver) Get() (*message.Message, bool) {
	f := r.activeFIFO()
	if f == nil {
		return nil, false
	}

	return f.Get()
}

// Wait polls Get until a message is available or timeout elapses,
// failing with errs.TimedOut on expiry (spec §4.7).
func (r *Receiver) Wait(timeout time.Duration) (*message.Message, error) {
	deadline := time.Now().Add(timeout)

	for {
		if msg, ok := r.Get(); ok {
			return msg, nil
		}

		if time.Now().After(deadline) {
			return nil, errs.New(errs.TimedOut, "receiver: timed out waiting for message")
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// Count returns the number of messages currently buffered in the FIFO,
// or 0 if none is installed.
func (r *Receiver) Count() int {
	if f := r.activeFIFO(); f != nil {
		return f.AvailableCount()
	}

	return 0
}

// Interrupt raises the receiver's local cancellation flag; its loop
// exits at the next check.
func (r *Receiver) Interrupt() {
	r.local.Set()
}

// Stop interrupts the loop, joins the worker (if any) and drops the
// FIFO. Safe to call more than once.
func (r *Receiver) Stop() error {
	r.Interrupt()
	err := r.Join()

	r.fifoMu.Lock()
	r.fifo = nil
	r.fifoMu.Unlock()

	r.mu.Lock()
	owned, fwd := r.ownsForwarder, r.forwarder
	if owned {
		r.forwarder = nil
		r.ownsForwarder = false
	}
	r.mu.Unlock()

	if owned && fwd != nil {
		if ferr := fwd.Close(); ferr != nil {
			r.logger.Warn("receiver: forwarder close failed", zap.Error(ferr))
		}
	}

	return err
}

// Close disconnects every endpoint, closes the socket and releases the
// Receiver's reference on the shared Context.
func (r *Receiver) Close() error {
	if err := r.socket.DisconnectAll(); err != nil {
		r.logger.Warn("receiver: disconnect failed", zap.Error(err))
	}

	if err := r.socket.socket.Close(); err != nil {
		return err
	}

	return r.ctx.Release()
}

func (r *Receiver) loop(max int) error {
	if err := r.connectAll(); err != nil {
		return err
	}

	if err := r.ensureForwarder(); err != nil {
		return err
	}

	r.ensureCacheSized()

	count := 0
	for {
		msg, err := r.Receive()
		if err != nil {
			r.logger.Warn("receiver: socket error", zap.Error(err))
		} else {
			if f := r.activeFIFO(); f != nil {
				f.Add(msg)
			} else if cb := r.activeCallback(); cb != nil {
				cb(msg)
			}

			count++
		}

		if max > 0 && count >= max {
			return nil
		}

		if transportctx.Cancelled(r.ctx, &r.local) {
			return nil
		}
	}
}

func (r *Receiver) connectAll() error {
	r.mu.Lock()
	endpoints := append([]string(nil), r.endpoints...)
	r.mu.Unlock()

	for _, e := range endpoints {
		if err := r.socket.Connect(e); err != nil {
			return err
		}
	}

	return nil
}

func (r *Receiver) ensureCacheSized() {
	if !r.cache.IsVoid() {
		return
	}

	n := len(r.socket.Connections())
	if n < 1 {
		n = 1
	}

	r.cache.Resize(n)
}

func (r *Receiver) ensureForwarder() error {
	r.mu.Lock()
	need := r.forwarder == nil && r.forwarderCfg != nil
	cfg := r.forwarderCfg
	r.mu.Unlock()

	if !need {
		return nil
	}

	opts := []sender.Option{sender.WithAddress(cfg.address)}
	if cfg.queueSize > 0 {
		opts = append(opts, sender.WithQueueSize(cfg.queueSize))
	}

	fwd, err := sender.New(r.ctx, cfg.socketType, cfg.port, r.logger, opts...)
	if err != nil {
		return err
	}

	if err := fwd.Start(); err != nil {
		return err
	}

	r.mu.Lock()
	r.forwarder = fwd
	r.ownsForwarder = true
	r.mu.Unlock()

	return nil
}

func (r *Receiver) setCallback(cb Callback) {
	r.callbackMu.Lock()
	r.callback = cb
	r.callbackMu.Unlock()
}

func (r *Receiver) activeCallback() Callback {
	r.callbackMu.Lock()
	defer r.callbackMu.Unlock()

	return r.callback
}

func (r *Receiver) activeFIFO() *fifo.Queue[*message.Message] {
	r.fifoMu.Lock()
	defer r.fifoMu.Unlock()

	return r.fifo
}

func (r *Receiver) activeForwarder() *sender.Sender {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.forwarder
}
