package transport

import (
	"syscall"

	"github.com/pebbe/zmq4"

	"github.com/paulscherrerinstitute/bsread-go/errs"
)

// zmqContext adapts a *zmq4.Context to the Context interface.
type zmqContext struct {
	ctx *zmq4.Context
}

// NewZMQContext creates a transport Context backed by ZeroMQ.
func NewZMQContext() (Context, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionRefused, err, "transport: create zmq context")
	}

	return &zmqContext{ctx: ctx}, nil
}

func (c *zmqContext) NewSocket(t SocketType) (Socket, error) {
	zt, err := zmqSocketType(t)
	if err != nil {
		return nil, err
	}

	sock, err := c.ctx.NewSocket(zt)
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionRefused, err, "transport: create socket")
	}

	return &zmqSocket{sock: sock}, nil
}

func (c *zmqContext) Close() error {
	if err := c.ctx.Term(); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: terminate zmq context")
	}

	return nil
}

func zmqSocketType(t SocketType) (zmq4.Type, error) {
	switch t {
	case Pub:
		return zmq4.PUB, nil
	case Sub:
		return zmq4.SUB, nil
	case Push:
		return zmq4.PUSH, nil
	case Pull:
		return zmq4.PULL, nil
	default:
		return 0, errs.Newf(errs.InvalidInput, "transport: unknown socket type %d", t)
	}
}

// zmqSocket adapts a *zmq4.Socket to the Socket interface.
type zmqSocket struct {
	sock *zmq4.Socket
}

func (s *zmqSocket) Bind(endpoint string) error {
	if err := s.sock.Bind(endpoint); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: bind "+endpoint)
	}

	return nil
}

func (s *zmqSocket) Unbind(endpoint string) error {
	if err := s.sock.Unbind(endpoint); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: unbind "+endpoint)
	}

	return nil
}

func (s *zmqSocket) Connect(endpoint string) error {
	if err := s.sock.Connect(endpoint); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: connect "+endpoint)
	}

	return nil
}

func (s *zmqSocket) Disconnect(endpoint string) error {
	if err := s.sock.Disconnect(endpoint); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: disconnect "+endpoint)
	}

	return nil
}

func (s *zmqSocket) SetSubscribe(filter string) error {
	if err := s.sock.SetSubscribe(filter); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: subscribe")
	}

	return nil
}

func (s *zmqSocket) SetSendHWM(n int) error {
	if err := s.sock.SetSndhwm(n); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: set send hwm")
	}

	return nil
}

func (s *zmqSocket) SetRecvHWM(n int) error {
	if err := s.sock.SetRcvhwm(n); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: set recv hwm")
	}

	return nil
}

func (s *zmqSocket) Send(parts [][]byte, dontWait bool) error {
	if len(parts) == 0 {
		return errs.New(errs.InvalidInput, "transport: send requires at least one part")
	}

	flags := zmq4.Flag(0)
	if dontWait {
		flags |= zmq4.DONTWAIT
	}

	for i, part := range parts {
		partFlags := flags
		if i < len(parts)-1 {
			partFlags |= zmq4.SNDMORE
		}

		if _, err := s.sock.SendBytes(part, partFlags); err != nil {
			if dontWait && err == syscall.EAGAIN {
				return ErrWouldBlock
			}

			return errs.Wrap(errs.ConnectionRefused, err, "transport: send")
		}
	}

	return nil
}

func (s *zmqSocket) Recv() ([][]byte, error) {
	parts, err := s.sock.RecvMessageBytes(0)
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionRefused, err, "transport: recv")
	}

	return parts, nil
}

func (s *zmqSocket) Close() error {
	if err := s.sock.Close(); err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "transport: close socket")
	}

	return nil
}
