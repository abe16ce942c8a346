// Package sender implements the publishing half of the protocol: binding
// a socket, building the compressed data header and its hash, and
// emitting main-header/data-header/value/timestamp frames in order
// (spec §4.6 "Sender").
package sender

import (
	"strconv"
	"strings"

	"github.com/paulscherrerinstitute/bsread-go/compress"
	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/internal/options"
	"github.com/paulscherrerinstitute/bsread-go/transport"
)

// IDSimulated requests that Send substitute its own monotonically
// increasing pulse id instead of a caller-supplied one.
const IDSimulated uint64 = 0

const defaultQueueSize = 10

// config holds a Sender's construction parameters, applied via Option.
type config struct {
	socketType        transport.SocketType
	port              int
	address           string
	queueSize         int
	block             bool
	startID           uint64
	headerCompression compress.CompressionType
}

func newConfig(socketType transport.SocketType, port int) *config {
	return &config{
		socketType:        socketType,
		port:              port,
		address:           "tcp://*",
		queueSize:         defaultQueueSize,
		headerCompression: compress.CompressionNone,
	}
}

func (c *config) setAddress(addr string) {
	if !strings.HasPrefix(addr, "tcp://") {
		addr = "tcp://" + addr
	}

	c.address = addr
}

func (c *config) setQueueSize(n int) error {
	if n < 1 {
		return errs.New(errs.InvalidInput, "sender: queue size must be positive")
	}

	c.queueSize = n

	return nil
}

func (c *config) setHeaderCompression(t compress.CompressionType) error {
	if !t.IsWireType() {
		return errs.Newf(errs.Unsupported, "sender: header compression %q is not a wire type", t)
	}

	c.headerCompression = t

	return nil
}

func (c *config) url() string {
	return c.address + ":" + strconv.Itoa(c.port)
}

// Option configures a Sender at construction time.
type Option = options.Option[*config]

// WithAddress sets the bind address (default "tcp://*"). A "tcp://"
// prefix is added automatically if missing.
func WithAddress(addr string) Option {
	return options.NoError(func(c *config) { c.setAddress(addr) })
}

// WithQueueSize sets the socket's send high-water mark (default 10).
func WithQueueSize(n int) Option {
	return options.New(func(c *config) error { return c.setQueueSize(n) })
}

// WithBlock makes Send block instead of failing immediately when the
// high-water mark would be exceeded (default false).
func WithBlock(block bool) Option {
	return options.NoError(func(c *config) { c.block = block })
}

// WithStartID sets the first simulated pulse id Send assigns when the
// caller passes IDSimulated (default 0, so the first sent frame is id 0,
// then 1, 2, ...).
func WithStartID(id uint64) Option {
	return options.NoError(func(c *config) { c.startID = id })
}

// WithHeaderCompression compresses the data-header blob with t before
// hashing and transmitting it (default compress.CompressionNone).
func WithHeaderCompression(t compress.CompressionType) Option {
	return options.New(func(c *config) error { return c.setHeaderCompression(t) })
}
