package radio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"

	"helmet-signal/internal/logger"
	"helmet-signal/internal/metrics"
	"helmet-signal/internal/protocol"
)

// SerialLink talks to an nRF24 modem over a UART.
type SerialLink struct {
	port    io.ReadWriteCloser
	logger  *logger.Logger
	frames  chan protocol.Frame
	dec     Decoder
	corrupt atomic.Uint64
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	closed  atomic.Bool
}

func OpenSerial(name string, baud int, l *logger.Logger) (*SerialLink, error) {
	l.Infof("Opening serial port %s at %d baud", name, baud)
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return NewStreamLink(port, l), nil
}

// NewStreamLink runs the serial framing over any byte stream.
func NewStreamLink(port io.ReadWriteCloser, l *logger.Logger) *SerialLink {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SerialLink{
		port:   port,
		logger: l.WithTag("link"),
		frames: make(chan protocol.Frame, frameQueueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *SerialLink) readLoop() {
	defer close(s.done)
	buf := make([]byte, 64)

	for {
		n, err := s.port.Read(buf)
		if s.ctx.Err() != nil {
			return
		}
		if n > 0 {
			s.logger.DebugHex("rx", buf[:n])
			before := s.dec.Errors()
			for _, f := range s.dec.Feed(buf[:n]) {
				enqueue(s.frames, f)
			}
			if bad := s.dec.Errors() - before; bad > 0 {
				s.corrupt.Add(bad)
				for i := uint64(0); i < bad; i++ {
					metrics.FrameDropped("crc")
				}
				s.logger.Debugf("Dropped %d corrupt frames", bad)
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			// read timeout on the tty
			time.Sleep(10 * time.Millisecond)
		default:
			s.logger.Warnf("Error reading serial port: %v", err)
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (s *SerialLink) Send(ctx context.Context, f protocol.Frame) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeSerial(f)
	if err != nil {
		return fmt.Errorf("failed to encode frame %s: %w", f.Header, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.logger.DebugHex("tx", data)
	for off := 0; off < len(data); {
		n, err := s.port.Write(data[off:])
		if err != nil {
			return fmt.Errorf("failed to write frame %s: %w", f.Header, err)
		}
		off += n
	}
	return nil
}

func (s *SerialLink) Frames() <-chan protocol.Frame {
	return s.frames
}

func (s *SerialLink) Errors() uint64 {
	return s.corrupt.Load()
}

func (s *SerialLink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	err := s.port.Close()
	closeWithTimeout(s.done, s.logger, "serial reader")
	return err
}
