package receiver

import "github.com/paulscherrerinstitute/bsread-go/transport"

// trackedSocket wraps a transport.Socket with the list of endpoints it
// has connected to, so Connect is idempotent and a Sub socket is
// auto-subscribed to everything on first connect (spec §4.7, ported from
// the Rust TrackedSocket in original_source/src/receiver.rs).
type trackedSocket struct {
	socket      transport.Socket
	socketType  transport.SocketType
	connections []string
}

func newTrackedSocket(socket transport.Socket, socketType transport.SocketType) *trackedSocket {
	return &trackedSocket{socket: socket, socketType: socketType}
}

// Connect connects to endpoint unless already connected to it. A Sub
// socket subscribes to everything (empty prefix) the first time any
// endpoint is connected.
func (t *trackedSocket) Connect(endpoint string) error {
	if t.hasConnectedTo(endpoint) {
		return nil
	}

	if err := t.socket.Connect(endpoint); err != nil {
		return err
	}

	if t.socketType == transport.Sub && len(t.connections) == 0 {
		if err := t.socket.SetSubscribe(""); err != nil {
			return err
		}
	}

	t.connections = append(t.connections, endpoint)

	return nil
}

// Disconnect disconnects from endpoint. Disconnecting an endpoint never
// connected is a no-op.
func (t *trackedSocket) Disconnect(endpoint string) error {
	idx := -1
	for i, e := range t.connections {
		if e == endpoint {
			idx = i
			break
		}
	}

	if idx == -1 {
		return nil
	}

	if err := t.socket.Disconnect(endpoint); err != nil {
		return err
	}

	t.connections = append(t.connections[:idx], t.connections[idx+1:]...)

	return nil
}

// DisconnectAll disconnects every tracked endpoint.
func (t *trackedSocket) DisconnectAll() error {
	for _, e := range append([]string(nil), t.connections...) {
		if err := t.Disconnect(e); err != nil {
			return err
		}
	}

	return nil
}

func (t *trackedSocket) hasConnectedTo(endpoint string) bool {
	for _, e := range t.connections {
		if e == endpoint {
			return true
		}
	}

	return false
}

func (t *trackedSocket) Connections() []string {
	return append([]string(nil), t.connections...)
}
