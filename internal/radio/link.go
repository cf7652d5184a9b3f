// Package radio carries protocol frames between nodes. The physical nRF24
// radio sits behind a modem; this package only sees whole frames.
package radio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"helmet-signal/internal/logger"
	"helmet-signal/internal/metrics"
	"helmet-signal/internal/protocol"
)

var ErrClosed = errors.New("link closed")

const frameQueueSize = 16

// Link is a point of attachment to the mesh.
type Link interface {
	Send(ctx context.Context, f protocol.Frame) error
	// Frames delivers frames addressed to this node. The channel is never
	// closed; stop reading when the owning context is done.
	Frames() <-chan protocol.Frame
	// Errors counts frames dropped as corrupt.
	Errors() uint64
	Close() error
}

const (
	KindSerial = "serial"
	KindRedis  = "redis"
	KindSim    = "sim"
)

type Config struct {
	Kind      string
	Port      string
	Baud      int
	RedisAddr string
	Node      uint16
}

// Open connects to the mesh using the configured link kind. For KindSim
// the far end of the pipe is returned as well so the caller can drive it.
func Open(cfg Config, l *logger.Logger) (Link, Link, error) {
	switch cfg.Kind {
	case KindSerial:
		link, err := OpenSerial(cfg.Port, cfg.Baud, l)
		return link, nil, err
	case KindRedis:
		link, err := OpenRedis(cfg.RedisAddr, cfg.Node, l)
		return link, nil, err
	case KindSim:
		near, far := Pipe()
		return near, far, nil
	default:
		return nil, nil, fmt.Errorf("unknown link kind: %q", cfg.Kind)
	}
}

// enqueue delivers f without blocking, dropping the oldest queued frame
// when the consumer falls behind.
func enqueue(ch chan protocol.Frame, f protocol.Frame) {
	select {
	case ch <- f:
		return
	default:
	}
	select {
	case <-ch:
		metrics.FrameDropped("overflow")
	default:
	}
	select {
	case ch <- f:
	default:
		metrics.FrameDropped("overflow")
	}
}

func closeWithTimeout(done <-chan struct{}, l *logger.Logger, what string) {
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		l.Warnf("Timeout waiting for %s to stop", what)
	}
}
