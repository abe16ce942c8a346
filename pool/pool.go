// Package pool distributes a set of endpoints across N worker Receivers
// and drives them in sync or buffered mode (spec §4.8 "Pool"), ported
// from the Rust Pool in original_source/src/pool.rs.
package pool

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/message"
	"github.com/paulscherrerinstitute/bsread-go/receiver"
	"github.com/paulscherrerinstitute/bsread-go/transport"
	"github.com/paulscherrerinstitute/bsread-go/transportctx"
)

const idleSleep = 10 * time.Millisecond

// Pool owns a fixed set of Receivers, each covering a disjoint share of
// a larger endpoint list.
type Pool struct {
	ctx        *transportctx.Context
	socketType transport.SocketType
	logger     *zap.Logger
	receivers  []*receiver.Receiver

	consumersWG sync.WaitGroup
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewAuto creates n Receivers and round-robin-assigns endpoints across
// them (spec §4.8 "auto").
func NewAuto(ctx *transportctx.Context, endpoints []string, socketType transport.SocketType, n int, logger *zap.Logger) (*Pool, error) {
	if n <= 0 {
		return nil, errs.New(errs.InvalidInput, "pool: invalid number of receivers")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	receivers := make([]*receiver.Receiver, n)
	for i := range receivers {
		r, err := receiver.New(ctx, socketType, logger)
		if err != nil {
			return nil, err
		}

		receivers[i] = r
	}

	for i, e := range endpoints {
		receivers[i%n].AddEndpoint(e)
	}

	return &Pool{ctx: ctx, socketType: socketType, logger: logger, receivers: receivers, stopCh: make(chan struct{})}, nil
}

// NewManual creates one Receiver per group in groups, each covering
// exactly that group's endpoints (spec §4.8 "manual").
func NewManual(ctx *transportctx.Context, groups [][]string, socketType transport.SocketType, logger *zap.Logger) (*Pool, error) {
	if len(groups) == 0 {
		return nil, errs.New(errs.InvalidInput, "pool: invalid configuration")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	receivers := make([]*receiver.Receiver, len(groups))
	for i, group := range groups {
		r, err := receiver.New(ctx, socketType, logger, receiver.WithEndpoints(group...))
		if err != nil {
			return nil, err
		}

		receivers[i] = r
	}

	return &Pool{ctx: ctx, socketType: socketType, logger: logger, receivers: receivers, stopCh: make(chan struct{})}, nil
}

// SocketType returns the socket type shared by every Receiver in the pool.
func (p *Pool) SocketType() transport.SocketType { return p.socketType }

// Threads returns the number of Receivers in the pool.
func (p *Pool) Threads() int { return len(p.receivers) }

// Receivers returns the pool's Receivers, in assignment order.
func (p *Pool) Receivers() []*receiver.Receiver { return p.receivers }

// StartSync forks every Receiver with a shared callback, serialized by a
// mutex so concurrent deliveries from different Receivers never overlap
// (spec §4.8 "start_sync").
func (p *Pool) StartSync(callback receiver.Callback) {
	var mu sync.Mutex

	shared := func(msg *message.Message) {
		mu.Lock()
		defer mu.Unlock()
		callback(msg)
	}

	for _, r := range p.receivers {
		r.Fork(shared, 0)
	}
}

// StartBuffered starts every Receiver in buffered mode and spawns one
// consumer goroutine per Receiver; each consumer drains its FIFO with a
// short idle sleep when empty and invokes the shared callback, serialized
// the same way as StartSync (spec §4.8 "start_buffered").
func (p *Pool) StartBuffered(callback receiver.Callback, bufferSize int) error {
	var mu sync.Mutex

	for _, r := range p.receivers {
		if err := r.Start(bufferSize); err != nil {
			return err
		}

		p.consumersWG.Add(1)

		go func(r *receiver.Receiver) {
			defer p.consumersWG.Done()

			for {
				select {
				case <-p.stopCh:
					return
				default:
				}

				msg, ok := r.Get()
				if !ok {
					time.Sleep(idleSleep)
					continue
				}

				mu.Lock()
				callback(msg)
				mu.Unlock()
			}
		}(r)
	}

	return nil
}

// Stop interrupts every Receiver, joins every worker, and waits for any
// StartBuffered consumer goroutines to drain (spec §4.8 "stop").
func (p *Pool) Stop() error {
	p.stopOnce.Do(func() { close(p.stopCh) })

	var firstErr error
	for _, r := range p.receivers {
		r.Interrupt()
	}

	for _, r := range p.receivers {
		if err := r.Join(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	p.consumersWG.Wait()

	return firstErr
}

// Close releases every Receiver's socket and Context reference.
func (p *Pool) Close() error {
	var firstErr error
	for _, r := range p.receivers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
