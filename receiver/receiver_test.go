package receiver_test

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulscherrerinstitute/bsread-go/channel"
	"github.com/paulscherrerinstitute/bsread-go/compress"
	"github.com/paulscherrerinstitute/bsread-go/message"
	"github.com/paulscherrerinstitute/bsread-go/receiver"
	"github.com/paulscherrerinstitute/bsread-go/transport"
	"github.com/paulscherrerinstitute/bsread-go/transportctx"
	"github.com/paulscherrerinstitute/bsread-go/value"
)

func buildFrame(t *testing.T, channels []*channel.Config, values []value.Value, pulseID uint64) [][]byte {
	t.Helper()

	dh, err := message.BuildDataHeaderJSON(channels)
	require.NoError(t, err)

	sum := md5.Sum(dh)
	hash := hex.EncodeToString(sum[:])

	mh := message.MainHeader{Htype: message.MainHeaderHtype, PulseID: pulseID, Hash: hash}
	mhBytes, err := json.Marshal(mh)
	require.NoError(t, err)

	parts := [][]byte{mhBytes, dh}

	for i, c := range channels {
		v, err := c.Encode(values[i])
		require.NoError(t, err)

		ts := make([]byte, 16)
		binary.LittleEndian.PutUint64(ts[0:8], 1)
		binary.LittleEndian.PutUint64(ts[8:16], 2)

		parts = append(parts, v, ts)
	}

	return parts
}

// fakeSocket serves a fixed queue of pre-built frames and blocks (via a
// channel close signal) once exhausted, so Recv never busy-spins in
// tests that stop the receiver instead of hitting a message cap.
type fakeSocket struct {
	mu      sync.Mutex
	frames  [][][]byte
	closed  chan struct{}
	once    sync.Once
	connect []string
}

func newFakeSocket(frames [][][]byte) *fakeSocket {
	return &fakeSocket{frames: frames, closed: make(chan struct{})}
}

func (s *fakeSocket) Bind(string) error      { return nil }
func (s *fakeSocket) Unbind(string) error    { return nil }
func (s *fakeSocket) Connect(e string) error { s.connect = append(s.connect, e); return nil }
func (s *fakeSocket) Disconnect(string) error { return nil }
func (s *fakeSocket) SetSubscribe(string) error { return nil }
func (s *fakeSocket) SetSendHWM(int) error      { return nil }
func (s *fakeSocket) SetRecvHWM(int) error      { return nil }
func (s *fakeSocket) Send([][]byte, bool) error { return nil }

func (s *fakeSocket) Recv() ([][]byte, error) {
	s.mu.Lock()
	if len(s.frames) > 0 {
		next := s.frames[0]
		s.frames = s.frames[1:]
		s.mu.Unlock()
		return next, nil
	}
	s.mu.Unlock()

	<-s.closed // block forever once exhausted, until Close unblocks it

	return nil, transport.ErrWouldBlock
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeContext struct {
	socket *fakeSocket
}

func (f *fakeContext) NewSocket(transport.SocketType) (transport.Socket, error) { return f.socket, nil }
func (f *fakeContext) Close() error                                             { return nil }

func TestListenInvokesCallbackUntilMax(t *testing.T) {
	c, err := channel.New("c", value.TypeFloat64, nil, true, compress.CompressionNone)
	require.NoError(t, err)

	sock := newFakeSocket([][][]byte{
		buildFrame(t, []*channel.Config{c}, []value.Value{value.NewFloat64(1)}, 1),
		buildFrame(t, []*channel.Config{c}, []value.Value{value.NewFloat64(2)}, 2),
	})
	defer sock.Close()

	ctx := transportctx.New(&fakeContext{socket: sock})
	r, err := receiver.New(ctx, transport.Sub, nil, receiver.WithEndpoints("tcp://localhost:1234"))
	require.NoError(t, err)

	var received []float64
	err = r.Listen(func(msg *message.Message) {
		v, ok := msg.GetValue("c")
		require.True(t, ok)
		f, _ := v.Float64()
		received = append(received, f)
	}, 2)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2}, received)
	assert.Equal(t, uint64(2), r.MessagesReceived())
	assert.Equal(t, uint64(1), r.HeaderChanges(), "schema reused on the second frame")
	assert.Equal(t, []string{"tcp://localhost:1234"}, sock.connect)
}

func TestListenCountsParseErrorsWithoutDeliveringMessage(t *testing.T) {
	c1, err := channel.New("c1", value.TypeFloat64, nil, true, compress.CompressionNone)
	require.NoError(t, err)
	c2, err := channel.New("c2", value.TypeFloat64, nil, true, compress.CompressionNone)
	require.NoError(t, err)

	channels := []*channel.Config{c1, c2}

	badFrame := buildFrame(t, channels, []value.Value{value.NewFloat64(1), value.NewFloat64(2)}, 1)
	badFrame = badFrame[:len(badFrame)-1] // declares 2 channels but is missing the last part (S5)

	goodFrame := buildFrame(t, channels, []value.Value{value.NewFloat64(3), value.NewFloat64(4)}, 2)

	sock := newFakeSocket([][][]byte{badFrame, goodFrame})
	defer sock.Close()

	ctx := transportctx.New(&fakeContext{socket: sock})
	r, err := receiver.New(ctx, transport.Sub, nil)
	require.NoError(t, err)

	var delivered int
	err = r.Listen(func(*message.Message) { delivered++ }, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, delivered, "only the good frame is delivered")
	assert.Equal(t, uint64(1), r.MessagesReceived())
	assert.Equal(t, uint64(1), r.SocketErrors(), "the bad part count increments the error counter")
}

func TestStartBufferedConsumption(t *testing.T) {
	c, err := channel.New("c", value.TypeInt32, nil, true, compress.CompressionNone)
	require.NoError(t, err)

	sock := newFakeSocket([][][]byte{
		buildFrame(t, []*channel.Config{c}, []value.Value{value.NewInt32(9)}, 1),
	})
	defer sock.Close()

	ctx := transportctx.New(&fakeContext{socket: sock})
	r, err := receiver.New(ctx, transport.Sub, nil, receiver.WithEndpoints("tcp://localhost:1234"))
	require.NoError(t, err)

	require.NoError(t, r.Start(8))

	var msg *message.Message

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m, ok := r.Get(); ok {
			msg = m
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, msg)

	v, ok := msg.GetValue("c")
	require.True(t, ok)
	n, _ := v.Int32()
	assert.Equal(t, int32(9), n)

	r.Interrupt()
	sock.Close() // unblocks the worker's pending Recv so Stop's Join can return
	require.NoError(t, r.Stop())
}

func TestWaitReturnsTimedOutWhenFifoStaysEmpty(t *testing.T) {
	sock := newFakeSocket(nil)
	defer sock.Close()

	ctx := transportctx.New(&fakeContext{socket: sock})
	r, err := receiver.New(ctx, transport.Sub, nil)
	require.NoError(t, err)

	require.NoError(t, r.Start(4))

	_, err = r.Wait(20 * time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 0, r.Count())

	r.Interrupt()
	sock.Close()
	require.NoError(t, r.Stop())
}

func TestDisconnectRemovesEndpoint(t *testing.T) {
	sock := newFakeSocket(nil)
	defer sock.Close()

	ctx := transportctx.New(&fakeContext{socket: sock})
	r, err := receiver.New(ctx, transport.Sub, nil)
	require.NoError(t, err)

	require.NoError(t, r.Connect("tcp://a:1"))
	require.NoError(t, r.Disconnect("tcp://a:1"))
	require.NoError(t, r.Disconnect("tcp://a:1"), "disconnecting twice is a no-op")
}

func TestConnectIsIdempotent(t *testing.T) {
	sock := newFakeSocket(nil)
	defer sock.Close()

	ctx := transportctx.New(&fakeContext{socket: sock})
	r, err := receiver.New(ctx, transport.Sub, nil)
	require.NoError(t, err)

	require.NoError(t, r.Connect("tcp://a:1"))
	require.NoError(t, r.Connect("tcp://a:1"))
	assert.Equal(t, []string{"tcp://a:1"}, sock.connect)
}

func TestInterruptStopsListenLoop(t *testing.T) {
	c, err := channel.New("c", value.TypeBool, nil, true, compress.CompressionNone)
	require.NoError(t, err)

	sock := newFakeSocket([][][]byte{
		buildFrame(t, []*channel.Config{c}, []value.Value{value.NewBool(true)}, 1),
	})
	defer sock.Close()

	ctx := transportctx.New(&fakeContext{socket: sock})
	r, err := receiver.New(ctx, transport.Sub, nil)
	require.NoError(t, err)

	r.Fork(func(*message.Message) {}, 0)
	time.Sleep(20 * time.Millisecond)
	r.Interrupt()
	sock.Close() // unblocks the worker's pending Recv so Join can observe the interrupt

	require.NoError(t, r.Join())
}
