package receiver

import (
	"github.com/paulscherrerinstitute/bsread-go/internal/options"
	"github.com/paulscherrerinstitute/bsread-go/sender"
	"github.com/paulscherrerinstitute/bsread-go/transport"
)

// forwarderParams is the auto-create form of the forwarder configuration
// (spec §4.7 "Forwarder configuration"): a receiver listening builds and
// lifecycle-manages its own Sender from these fields.
type forwarderParams struct {
	socketType transport.SocketType
	port       int
	address    string
	queueSize  int
}

type config struct {
	endpoints    []string
	forwarder    *sender.Sender
	forwarderCfg *forwarderParams
}

func newConfig() *config {
	return &config{}
}

// Option configures a Receiver at construction time.
type Option = options.Option[*config]

// WithEndpoints sets the planned endpoint list connectAll uses.
func WithEndpoints(endpoints ...string) Option {
	return options.NoError(func(c *config) { c.endpoints = append(c.endpoints, endpoints...) })
}

// WithForwarder attaches an already-constructed, externally managed
// Sender: every received frame is forwarded through it verbatim before
// parsing. Its lifecycle (Start/Stop) is the caller's responsibility.
func WithForwarder(s *sender.Sender) Option {
	return options.NoError(func(c *config) { c.forwarder = s })
}

// WithForwarderParams has the receiver auto-create and lifecycle-manage
// its own forwarding Sender from these parameters when it starts
// listening (spec §4.7).
func WithForwarderParams(socketType transport.SocketType, port int, address string, queueSize int) Option {
	return options.NoError(func(c *config) {
		c.forwarderCfg = &forwarderParams{socketType: socketType, port: port, address: address, queueSize: queueSize}
	})
}
