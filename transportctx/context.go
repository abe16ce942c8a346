// Package transportctx implements the shared, reference-counted
// transport context and two-level cancellation described in spec §3
// ("Context") and §5 ("Cancellation: two-level. The shared context flag
// cancels all receivers sharing it; each receiver additionally has a
// local flag. A receiver loop checks local || context after each frame
// and exits cleanly.").
package transportctx

import (
	"sync"
	"sync/atomic"

	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/transport"
)

// Context wraps a transport.Context with a shared cancellation flag and
// reference counting, so it can be created once and shared across
// Receivers, Pools and Senders (spec §3 "Lifecycle").
type Context struct {
	transport transport.Context

	mu       sync.Mutex
	refCount int
	closed   bool

	cancelled atomic.Bool
}

// New wraps transport with an initial reference count of 1. The caller
// that creates a Context owns that first reference and must Release it.
func New(t transport.Context) *Context {
	return &Context{transport: t, refCount: 1}
}

// Acquire takes an additional reference on c, e.g. when a Receiver or
// Sender is constructed from a shared Context. Pair with Release.
func (c *Context) Acquire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refCount++
}

// Release drops a reference. When the last reference is released, the
// underlying transport.Context is closed.
func (c *Context) Release() error {
	c.mu.Lock()
	c.refCount--
	shouldClose := c.refCount <= 0 && !c.closed
	if shouldClose {
		c.closed = true
	}
	c.mu.Unlock()

	if shouldClose {
		return c.transport.Close()
	}

	return nil
}

// NewSocket creates a socket from the underlying transport context.
func (c *Context) NewSocket(t transport.SocketType) (transport.Socket, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return nil, errs.New(errs.ConnectionRefused, "transportctx: context already closed")
	}

	return c.transport.NewSocket(t)
}

// Cancel broadcasts cancellation to every receiver sharing this Context
// (spec §5 "interrupt() on the context is broadcast").
func (c *Context) Cancel() {
	c.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called.
func (c *Context) IsCancelled() bool {
	return c.cancelled.Load()
}

// LocalFlag is a receiver's own cancellation flag, OR-ed with its
// Context's shared flag to decide when its loop should exit (spec §5).
type LocalFlag struct {
	flag atomic.Bool
}

// Set raises the local flag. Idempotent.
func (l *LocalFlag) Set() {
	l.flag.Store(true)
}

// IsSet reports whether the local flag has been raised.
func (l *LocalFlag) IsSet() bool {
	return l.flag.Load()
}

// Reset clears the local flag, allowing the owning receiver to be
// restarted after a stop.
func (l *LocalFlag) Reset() {
	l.flag.Store(false)
}

// Cancelled reports local || ctx.IsCancelled(), the check a receiver
// loop makes after each frame (spec §5).
func Cancelled(ctx *Context, local *LocalFlag) bool {
	return local.IsSet() || ctx.IsCancelled()
}
