package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"helmet-signal/internal/hardware"
	"helmet-signal/internal/logger"
	"helmet-signal/internal/messaging"
	"helmet-signal/internal/metrics"
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/radio"
	"helmet-signal/internal/types"
)

const sendTimeout = time.Second

type BaseConfig struct {
	Node              uint16
	Helmet            uint16
	HeartbeatInterval time.Duration
	BlinkInterval     time.Duration
}

// BaseSystem turns handlebar switch positions into signal frames.
type BaseSystem struct {
	cfg    BaseConfig
	logger *logger.Logger
	io     SwitchIO
	link   radio.Link
	redis  MessagingClient
	seq    protocol.Sequencer

	// sendMu orders signal frames: the signal is read and its frame sent
	// under one hold, so a later frame never carries an older signal.
	sendMu sync.Mutex

	mu        sync.RWMutex
	switches  map[string]bool
	lastTurn  string
	signal    types.Signal
	indicator bool
	started   time.Time
}

var switchChannels = []string{
	hardware.InputBlinkerLeft,
	hardware.InputBlinkerRight,
	hardware.InputBrake,
	hardware.InputHazard,
}

func NewBaseSystem(cfg BaseConfig, io SwitchIO, link radio.Link, redis MessagingClient, l *logger.Logger) *BaseSystem {
	if redis == nil {
		redis = messaging.Nop{}
	}
	return &BaseSystem{
		cfg:      cfg,
		logger:   l.WithTag("base"),
		io:       io,
		link:     link,
		redis:    redis,
		switches: make(map[string]bool),
		signal:   types.SignalOff,
	}
}

func (b *BaseSystem) Start() error {
	b.logger.Infof("Starting base node %s, helmet at %s",
		protocol.FormatAddress(b.cfg.Node), protocol.FormatAddress(b.cfg.Helmet))
	b.started = time.Now()

	b.redis.SetCallbacks(messaging.Callbacks{
		SignalCallback:     b.handleSignalRequest,
		BrightnessCallback: b.handleBrightnessRequest,
	})
	if err := b.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := b.io.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}

	// Edges arriving from here on wait on sendMu and apply on top of the
	// levels read below.
	b.sendMu.Lock()
	for _, ch := range switchChannels {
		b.io.RegisterInputCallback(ch, b.handleInputChange)
	}

	b.mu.Lock()
	for _, ch := range switchChannels {
		value, err := b.io.ReadDigitalInput(ch)
		if err != nil {
			b.logger.Warnf("Failed to read initial %s state: %v", ch, err)
			continue
		}
		b.switches[ch] = value
		if value && (ch == hardware.InputBlinkerLeft || ch == hardware.InputBlinkerRight) {
			b.lastTurn = ch
		}
	}
	b.signal = b.compose()
	sig := b.signal
	b.mu.Unlock()

	b.logger.Infof("Initial signal: %s", sig)
	b.publishSwitches(sig)
	if err := b.sendSignal(sig); err != nil {
		b.logger.Warnf("Failed to send initial signal: %v", err)
	}
	b.sendMu.Unlock()

	if err := b.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}
	return nil
}

// handleInputChange records a switch edge and sends the new signal if the
// composed state changed.
func (b *BaseSystem) handleInputChange(channel string, value bool) error {
	b.logger.Debugf("Input %s=%v", channel, value)

	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.mu.Lock()
	b.switches[channel] = value
	if value && (channel == hardware.InputBlinkerLeft || channel == hardware.InputBlinkerRight) {
		b.lastTurn = channel
	}
	sig := b.compose()
	changed := sig != b.signal
	prev := b.signal
	b.signal = sig
	b.mu.Unlock()

	if !changed {
		return nil
	}
	b.logger.Infof("Signal %s -> %s", prev, sig)
	b.publishSwitches(sig)
	return b.sendSignal(sig)
}

// compose derives the signal from the switch levels. Hazard forces both
// indicators; with both turn switches on, the most recent press wins.
// Callers hold mu.
func (b *BaseSystem) compose() types.Signal {
	left := b.switches[hardware.InputBlinkerLeft]
	right := b.switches[hardware.InputBlinkerRight]

	blinker := types.BlinkerOff
	switch {
	case b.switches[hardware.InputHazard]:
		blinker = types.BlinkerBoth
	case left && right:
		blinker = types.BlinkerLeft
		if b.lastTurn == hardware.InputBlinkerRight {
			blinker = types.BlinkerRight
		}
	case left:
		blinker = types.BlinkerLeft
	case right:
		blinker = types.BlinkerRight
	}
	return types.SignalOff.WithBlinker(blinker).WithBrake(b.switches[hardware.InputBrake])
}

func (b *BaseSystem) publishSwitches(sig types.Signal) {
	if err := b.redis.SetBlinkerSwitch(sig.Blinker()); err != nil {
		b.logger.Warnf("Failed to publish blinker switch: %v", err)
	}
	if err := b.redis.SetBrakeState(sig.Braking()); err != nil {
		b.logger.Warnf("Failed to publish brake state: %v", err)
	}
}

// sendSignal sends sig to the helmet. Callers hold sendMu.
func (b *BaseSystem) sendSignal(sig types.Signal) error {
	f := protocol.NewSignalFrame(b.cfg.Node, b.cfg.Helmet, b.seq.Next(), sig)
	if err := b.send(f, sendTimeout); err != nil {
		return err
	}
	if err := b.redis.PublishSignal(sig); err != nil {
		b.logger.Warnf("Failed to publish signal: %v", err)
	}
	return nil
}

func (b *BaseSystem) send(f protocol.Frame, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	name := protocol.TypeName(f.Header.Type)
	if err := b.link.Send(ctx, f); err != nil {
		metrics.SendFailed()
		return fmt.Errorf("failed to send %s frame: %w", name, err)
	}
	metrics.FrameSent(name)
	return nil
}

// Run sends a heartbeat and the current signal every heartbeat interval
// and blinks the pilot lamp while an indicator is on.
func (b *BaseSystem) Run(ctx context.Context) {
	heartbeat := time.NewTicker(b.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	blink := time.NewTicker(b.cfg.BlinkInterval)
	defer blink.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			b.heartbeat()
		case <-blink.C:
			b.blinkIndicator()
		}
	}
}

func (b *BaseSystem) heartbeat() {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	uptime := uint32(time.Since(b.started) / time.Second)
	if err := b.send(protocol.NewHeartbeatFrame(b.cfg.Node, b.cfg.Helmet, b.seq.Next(), uptime), sendTimeout); err != nil {
		b.logger.Warnf("Heartbeat failed: %v", err)
		return
	}

	b.mu.RLock()
	sig := b.signal
	b.mu.RUnlock()
	// resend so a helmet that missed an edge or rebooted catches up
	f := protocol.NewSignalFrame(b.cfg.Node, b.cfg.Helmet, b.seq.Next(), sig)
	if err := b.send(f, sendTimeout); err != nil {
		b.logger.Warnf("Signal resend failed: %v", err)
	}
}

func (b *BaseSystem) blinkIndicator() {
	b.mu.Lock()
	turning := b.signal.Turning()
	if !turning && !b.indicator {
		b.mu.Unlock()
		return
	}
	b.indicator = turning && !b.indicator
	on := b.indicator
	b.mu.Unlock()

	if err := b.io.WriteDigitalOutput(hardware.OutputIndicator, on); err != nil {
		b.logger.Debugf("Failed to set indicator: %v", err)
	}
}

// Signal returns the signal currently sent to the helmet.
func (b *BaseSystem) Signal() types.Signal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.signal
}

// Shutdown tells the helmet to go dark before releasing hardware.
func (b *BaseSystem) Shutdown() {
	b.logger.Infof("Shutting down base")

	b.sendMu.Lock()
	b.mu.Lock()
	b.signal = types.SignalOff
	b.mu.Unlock()
	if err := b.sendSignal(types.SignalOff); err != nil {
		b.logger.Warnf("Failed to send final off: %v", err)
	}
	b.sendMu.Unlock()
	if err := b.io.WriteDigitalOutput(hardware.OutputIndicator, false); err != nil {
		b.logger.Debugf("Failed to clear indicator: %v", err)
	}
	b.io.Cleanup()
	if err := b.link.Close(); err != nil {
		b.logger.Warnf("Failed to close link: %v", err)
	}
	if err := b.redis.Close(); err != nil {
		b.logger.Warnf("Failed to close Redis: %v", err)
	}
}
