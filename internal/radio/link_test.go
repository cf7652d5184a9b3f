package radio

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helmet-signal/internal/logger"
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/types"
)

var quiet = logger.NewLogger(nil, logger.LogLevelNone)

// duplex joins two io.Pipes into a byte stream pair.
type duplex struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (d duplex) Close() error {
	for _, c := range d.closers {
		c.Close()
	}
	return nil
}

func streamPair() (io.ReadWriteCloser, io.ReadWriteCloser) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return duplex{ar, aw, []io.Closer{ar, aw}}, duplex{br, bw, []io.Closer{br, bw}}
}

func receive(t *testing.T, l Link) protocol.Frame {
	t.Helper()
	select {
	case f := <-l.Frames():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return protocol.Frame{}
	}
}

func TestStreamLinkRoundTrip(t *testing.T) {
	a, b := streamPair()
	la := NewStreamLink(a, quiet)
	lb := NewStreamLink(b, quiet)
	defer la.Close()
	defer lb.Close()

	ctx := context.Background()
	require.NoError(t, la.Send(ctx, protocol.NewSignalFrame(0, 1, 7, types.SignalRight)))

	f := receive(t, lb)
	sig, err := protocol.DecodeSignal(f)
	require.NoError(t, err)
	assert.Equal(t, types.SignalRight, sig)
	assert.Equal(t, uint16(7), f.Header.ID)
}

func TestStreamLinkSendAfterClose(t *testing.T) {
	a, _ := streamPair()
	la := NewStreamLink(a, quiet)
	require.NoError(t, la.Close())
	assert.ErrorIs(t, la.Send(context.Background(), protocol.NewSignalFrame(0, 1, 1, types.SignalOff)), ErrClosed)
	assert.NoError(t, la.Close(), "second close is a no-op")
}

func TestPipeDeliversBothWays(t *testing.T) {
	a, b := Pipe()
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, protocol.NewSignalFrame(0, 1, 1, types.SignalLeft)))
	require.NoError(t, b.Send(ctx, protocol.NewHeartbeatFrame(1, 0, 1, 3)))

	assert.Equal(t, protocol.TypeSignal, receive(t, b).Header.Type)
	assert.Equal(t, protocol.TypeHeartbeat, receive(t, a).Header.Type)
}

func TestPipeDropsOldestWhenFull(t *testing.T) {
	a, b := Pipe()
	ctx := context.Background()
	for i := 1; i <= frameQueueSize+4; i++ {
		require.NoError(t, a.Send(ctx, protocol.NewSignalFrame(0, 1, uint16(i), types.SignalOff)))
	}

	first := receive(t, b)
	assert.Equal(t, uint16(5), first.Header.ID)
	assert.Len(t, b.Frames(), frameQueueSize-1)
}

func TestPipeClosed(t *testing.T) {
	a, b := Pipe()
	require.NoError(t, b.Close())
	err := a.Send(context.Background(), protocol.NewSignalFrame(0, 1, 1, types.SignalOff))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenUnknownKind(t *testing.T) {
	_, _, err := Open(Config{Kind: "carrier-pigeon"}, quiet)
	assert.Error(t, err)

	near, far, err := Open(Config{Kind: KindSim}, quiet)
	require.NoError(t, err)
	assert.NotNil(t, near)
	assert.NotNil(t, far)
}

func TestRunDemoSendsSequence(t *testing.T) {
	near, far := Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go RunDemo(ctx, far, 0, 1, 5*time.Millisecond, quiet)

	for _, want := range demoSequence[:3] {
		sig, err := protocol.DecodeSignal(receive(t, near))
		require.NoError(t, err)
		assert.Equal(t, want, sig)
	}
}
