// Package transport defines the thin socket/context abstraction the rest
// of this module programs against (spec §1 "the socket transport itself
// is... assumed: a multi-part message-oriented transport supporting
// PUB/SUB and PUSH/PULL semantics with high-water-mark queueing").
//
// Socket and Context are satisfied by the ZeroMQ-backed implementation in
// zmq.go (github.com/pebbe/zmq4), kept behind an interface so sender,
// receiver and pool never import zmq4 directly — grounded on the same
// "accept interfaces, wrap the concrete driver at the edge" shape the
// teacher repo uses for its compression Codec interface.
package transport

import "github.com/paulscherrerinstitute/bsread-go/errs"

// SocketType identifies one of the four socket kinds this module uses.
type SocketType int

const (
	// Pub is a publisher socket (one-to-many, no buffering guarantee per peer).
	Pub SocketType = iota
	// Sub is a subscriber socket, paired with Pub.
	Sub
	// Push is a pipeline sender, paired with Pull.
	Push
	// Pull is a pipeline receiver, paired with Push.
	Pull
)

func (t SocketType) String() string {
	switch t {
	case Pub:
		return "PUB"
	case Sub:
		return "SUB"
	case Push:
		return "PUSH"
	case Pull:
		return "PULL"
	default:
		return "UNKNOWN"
	}
}

// Socket is a multi-part message-oriented socket. Implementations are not
// required to be safe for concurrent use by more than one goroutine at a
// time (spec §5: "each socket is owned by exactly one thread at a time").
type Socket interface {
	// Bind binds the socket to endpoint (server-side: Pub, sometimes Push).
	Bind(endpoint string) error
	// Unbind undoes a prior Bind. The ZeroMQ implementation returns an
	// error for an endpoint that was never bound.
	Unbind(endpoint string) error
	// Connect connects the socket to endpoint (client-side: Sub, Push, Pull).
	Connect(endpoint string) error
	// Disconnect undoes a prior Connect. The ZeroMQ implementation returns
	// an error for an endpoint that was never connected; the receiver's
	// tracked socket skips such endpoints itself.
	Disconnect(endpoint string) error
	// SetSubscribe subscribes a Sub socket to messages with the given
	// prefix; an empty filter subscribes to everything.
	SetSubscribe(filter string) error
	// SetSendHWM sets the send-side high-water mark.
	SetSendHWM(n int) error
	// SetRecvHWM sets the receive-side high-water mark.
	SetRecvHWM(n int) error
	// Send transmits parts as one multi-part message. If dontWait is
	// true and the high-water mark would block, Send fails immediately
	// with an errs.ConnectionRefused-kind error instead of blocking.
	Send(parts [][]byte, dontWait bool) error
	// Recv blocks for the next multi-part message.
	Recv() ([][]byte, error)
	// Close releases the socket.
	Close() error
}

// Context owns zero or more Sockets and any transport-level background
// resources. It is shared (reference-counted) across receivers, pools
// and senders, per spec §3 "Context".
type Context interface {
	// NewSocket creates a Socket of the given type bound to this context.
	NewSocket(t SocketType) (Socket, error)
	// Close releases the context. Sockets created from it must be closed
	// first.
	Close() error
}

// ErrWouldBlock is returned by Socket.Send when dontWait is true and the
// transport cannot accept the message immediately (spec §5 back-pressure,
// "WouldBlock-equivalent").
var ErrWouldBlock = errs.New(errs.ConnectionRefused, "transport: send would block")
