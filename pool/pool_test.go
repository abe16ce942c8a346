package pool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulscherrerinstitute/bsread-go/message"
	"github.com/paulscherrerinstitute/bsread-go/pool"
	"github.com/paulscherrerinstitute/bsread-go/transport"
	"github.com/paulscherrerinstitute/bsread-go/transportctx"
)

// fakeSocket never delivers a frame; Recv blocks until Close, so a
// Receiver's loop parks cleanly until the test interrupts it.
type fakeSocket struct {
	mu      sync.Mutex
	connect []string
	closed  chan struct{}
	once    sync.Once
}

func newFakeSocket() *fakeSocket { return &fakeSocket{closed: make(chan struct{})} }

func (s *fakeSocket) Bind(string) error   { return nil }
func (s *fakeSocket) Unbind(string) error { return nil }
func (s *fakeSocket) Connect(e string) error {
	s.mu.Lock()
	s.connect = append(s.connect, e)
	s.mu.Unlock()

	return nil
}
func (s *fakeSocket) Disconnect(string) error   { return nil }
func (s *fakeSocket) SetSubscribe(string) error { return nil }
func (s *fakeSocket) SetSendHWM(int) error      { return nil }
func (s *fakeSocket) SetRecvHWM(int) error      { return nil }
func (s *fakeSocket) Send([][]byte, bool) error { return nil }

func (s *fakeSocket) Recv() ([][]byte, error) {
	<-s.closed
	return nil, transport.ErrWouldBlock
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) connectedEndpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.connect...)
}

// fakeContext hands out a fresh fakeSocket per NewSocket call and tracks
// all of them so a test can close every one to unblock parked Receivers.
type fakeContext struct {
	mu      sync.Mutex
	sockets []*fakeSocket
}

func (f *fakeContext) NewSocket(transport.SocketType) (transport.Socket, error) {
	s := newFakeSocket()
	f.mu.Lock()
	f.sockets = append(f.sockets, s)
	f.mu.Unlock()

	return s, nil
}

func (f *fakeContext) Close() error { return nil }

func (f *fakeContext) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.sockets {
		s.Close()
	}
}

func (f *fakeContext) socketEndpoints() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]string, len(f.sockets))
	for i, s := range f.sockets {
		out[i] = s.connectedEndpoints()
	}

	return out
}

func TestNewAutoRoundRobinsEndpoints(t *testing.T) {
	ft := &fakeContext{}
	ctx := transportctx.New(ft)

	p, err := pool.NewAuto(ctx, []string{"a", "b", "c", "d", "e"}, transport.Sub, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Threads())
	assert.Equal(t, transport.Sub, p.SocketType())
	assert.Len(t, p.Receivers(), 2)

	p.StartSync(func(*message.Message) {})
	time.Sleep(10 * time.Millisecond)

	ft.closeAll()
	require.NoError(t, p.Stop())

	got := ft.socketEndpoints()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "c", "e"}, got[0])
	assert.Equal(t, []string{"b", "d"}, got[1])
}

func TestNewManualAssignsGroups(t *testing.T) {
	ft := &fakeContext{}
	ctx := transportctx.New(ft)

	groups := [][]string{{"x1", "x2"}, {"y1"}}
	p, err := pool.NewManual(ctx, groups, transport.Sub, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Threads())

	p.StartSync(func(*message.Message) {})
	time.Sleep(10 * time.Millisecond)

	ft.closeAll()
	require.NoError(t, p.Stop())

	got := ft.socketEndpoints()
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"x1", "x2"}, got[0])
	assert.ElementsMatch(t, []string{"y1"}, got[1])
}

func TestNewAutoRejectsNonPositiveThreads(t *testing.T) {
	ctx := transportctx.New(&fakeContext{})
	_, err := pool.NewAuto(ctx, nil, transport.Sub, 0, nil)
	assert.Error(t, err)
}

func TestStartBufferedDrainsIntoCallback(t *testing.T) {
	ft := &fakeContext{}
	ctx := transportctx.New(ft)

	p, err := pool.NewAuto(ctx, []string{"a"}, transport.Sub, 1, nil)
	require.NoError(t, err)

	var calls atomic.Int64
	require.NoError(t, p.StartBuffered(func(*message.Message) { calls.Add(1) }, 4))

	time.Sleep(15 * time.Millisecond)
	ft.closeAll()
	require.NoError(t, p.Stop())

	// No frames were ever delivered by the fake socket, so the callback
	// is never invoked, but Stop must still return cleanly.
	assert.Equal(t, int64(0), calls.Load())
}
