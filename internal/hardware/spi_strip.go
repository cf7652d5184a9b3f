package hardware

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"helmet-signal/internal/led"
	"helmet-signal/internal/logger"
)

// SPIStrip drives a WS2812 chain from the MOSI pin of a spidev device.
type SPIStrip struct {
	logger *logger.Logger
	device string
	fd     int
	mu     sync.Mutex
	count  int
	closed bool
}

func OpenSPIStrip(device string, l *logger.Logger) (*SPIStrip, error) {
	fd, err := unix.Open(device, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}

	settings := []struct {
		name  string
		req   uint
		value int
	}{
		{"mode", spiIocWrMode, spiMode},
		{"bits per word", spiIocWrBitsPerWord, spiBitsPerWord},
		{"speed", spiIocWrMaxSpeedHz, spiSpeedHz},
	}
	for _, s := range settings {
		if err := unix.IoctlSetPointerInt(fd, s.req, s.value); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set SPI %s on %s: %w", s.name, device, err)
		}
	}

	l = l.WithTag("strip")
	l.Infof("Opened %s at %d Hz", device, spiSpeedHz)
	return &SPIStrip{logger: l, device: device, fd: fd}, nil
}

// Show pushes one frame to the pixels.
func (s *SPIStrip) Show(frame []led.RGB) error {
	buf := EncodeWS2812(frame)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("strip %s closed", s.device)
	}
	s.count = len(frame)
	for offset := 0; offset < len(buf); {
		n, err := unix.Write(s.fd, buf[offset:])
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", s.device, err)
		}
		offset += n
	}
	return nil
}

// Close blanks the strip and releases the device.
func (s *SPIStrip) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	count := s.count
	s.mu.Unlock()

	if err := s.Show(make([]led.RGB, count)); err != nil {
		s.logger.Warnf("Failed to latch strip on close: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return unix.Close(s.fd)
}

// EncodeWS2812 expands pixels into the SPI bit stream: GRB byte order,
// MSB first, each bit as 110 (one) or 100 (zero), followed by the latch.
func EncodeWS2812(frame []led.RGB) []byte {
	out := make([]byte, len(frame)*9+ws2812LatchBytes)
	var w bitWriter
	w.buf = out
	for _, p := range frame {
		for _, b := range [3]uint8{p.G, p.R, p.B} {
			for bit := 7; bit >= 0; bit-- {
				if b&(1<<bit) != 0 {
					w.put(1, 1, 0)
				} else {
					w.put(1, 0, 0)
				}
			}
		}
	}
	return out
}

type bitWriter struct {
	buf []byte
	pos int
}

func (w *bitWriter) put(bits ...uint8) {
	for _, b := range bits {
		if b != 0 {
			w.buf[w.pos/8] |= 0x80 >> (w.pos % 8)
		}
		w.pos++
	}
}
