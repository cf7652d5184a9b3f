package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"helmet-signal/internal/hardware"
	"helmet-signal/internal/led"
	"helmet-signal/internal/logger"
	"helmet-signal/internal/messaging"
	"helmet-signal/internal/metrics"
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/radio"
	"helmet-signal/internal/types"
)

// BrightnessRange maps ambient ADC readings onto strip brightness.
type BrightnessRange struct {
	AdcMin, AdcMax int
	Min, Max       uint8
}

type HelmetConfig struct {
	Node               uint16
	Base               uint16
	StripCount         int
	Settings           led.Settings
	Brightness         BrightnessRange
	FrameInterval      time.Duration
	BrightnessInterval time.Duration
	LinkTimeout        time.Duration
}

// HelmetSystem receives signal frames from the base and renders them.
type HelmetSystem struct {
	cfg      HelmetConfig
	logger   *logger.Logger
	link     radio.Link
	out      Strip
	sensor   AmbientSensor
	redis    MessagingClient
	animator *led.Animator
	dedup    *protocol.Deduper

	mu           sync.RWMutex
	signal       types.Signal
	brightness   uint8
	override     bool
	lastHeard    time.Time
	linkUp       bool
	lastSample   time.Time
	sensorFailed bool
	dirty        bool
	lastFrame    []led.RGB
	pending      []func() error
}

// NewHelmetSystem wires the helmet. sensor may be nil, in which case the
// strip runs at the configured maximum brightness.
func NewHelmetSystem(cfg HelmetConfig, link radio.Link, out Strip, sensor AmbientSensor, redis MessagingClient, l *logger.Logger) (*HelmetSystem, error) {
	animator, err := led.NewAnimator(led.NewStrip(cfg.StripCount), cfg.Settings, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create animator: %w", err)
	}
	if redis == nil {
		redis = messaging.Nop{}
	}
	return &HelmetSystem{
		cfg:        cfg,
		logger:     l.WithTag("helmet"),
		link:       link,
		out:        out,
		sensor:     sensor,
		redis:      redis,
		animator:   animator,
		dedup:      protocol.NewDeduper(),
		signal:     types.SignalOff,
		brightness: cfg.Brightness.Max,
		dirty:      true,
	}, nil
}

func (h *HelmetSystem) Start() error {
	h.logger.Infof("Starting helmet node %s", protocol.FormatAddress(h.cfg.Node))

	h.redis.SetCallbacks(messaging.Callbacks{
		BrightnessCallback: h.handleBrightnessRequest,
		AnimationCallback:  h.handleAnimationRequest,
	})
	if err := h.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	h.mu.Lock()
	h.setBrightness()
	h.lastSample = time.Now()
	h.animator.Strip().SetBrightness(h.brightness)
	h.animator.Render(h.signal, time.Now())
	h.show()
	h.pending = nil
	brightness, mode := h.brightness, h.brightnessMode()
	h.mu.Unlock()

	metrics.SetLinkUp(false)
	metrics.SetSignal(types.SignalOff)
	metrics.SetBrightness(brightness)
	if err := h.redis.SetLinkState(false); err != nil {
		h.logger.Warnf("Failed to publish link state: %v", err)
	}
	if err := h.redis.PublishSignal(types.SignalOff); err != nil {
		h.logger.Warnf("Failed to publish signal: %v", err)
	}
	if err := h.redis.PublishBrightness(brightness, mode); err != nil {
		h.logger.Warnf("Failed to publish brightness: %v", err)
	}

	if err := h.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}
	return nil
}

// Run drives mainloop once per frame interval until ctx is done.
func (h *HelmetSystem) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.mainloop(now)
		}
	}
}

// mainloop is one control tick: read the radio, supervise the link,
// sample brightness, render.
func (h *HelmetSystem) mainloop(now time.Time) {
	h.mu.Lock()
	h.getState(now)
	h.superviseLink(now)
	if now.Sub(h.lastSample) >= h.cfg.BrightnessInterval {
		h.lastSample = now
		h.setBrightness()
	}
	if h.animator.Render(h.signal, now) || h.dirty {
		h.show()
	}
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, publish := range pending {
		if err := publish(); err != nil {
			h.logger.Warnf("Failed to publish state: %v", err)
		}
	}
}

// getState drains every frame the link has queued. Callers hold mu.
func (h *HelmetSystem) getState(now time.Time) {
	for {
		select {
		case f := <-h.link.Frames():
			h.handleFrame(f, now)
		default:
			return
		}
	}
}

func (h *HelmetSystem) handleFrame(f protocol.Frame, now time.Time) {
	if f.Header.ToNode != h.cfg.Node {
		h.logger.Debugf("Ignoring frame for %s", protocol.FormatAddress(f.Header.ToNode))
		metrics.FrameDropped("misaddressed")
		return
	}
	if f.Header.FromNode != h.cfg.Base {
		h.logger.Debugf("Ignoring frame from %s", protocol.FormatAddress(f.Header.FromNode))
		metrics.FrameDropped("foreign")
		return
	}
	if h.dedup.Seen(f.Header) {
		h.logger.Debugf("Dropping repeated frame %s", f.Header)
		metrics.FrameDropped("duplicate")
		return
	}

	switch f.Header.Type {
	case protocol.TypeSignal:
		sig, err := protocol.DecodeSignal(f)
		if err != nil {
			h.dropMalformed(f, err)
			return
		}
		h.markHeard(now)
		h.setSignal(sig)

	case protocol.TypeBrightness:
		value, mode, err := protocol.DecodeBrightness(f)
		if err != nil {
			h.dropMalformed(f, err)
			return
		}
		h.markHeard(now)
		if mode == protocol.BrightnessManual {
			h.applyManualBrightness(value)
		} else {
			h.applyAutoBrightness()
		}

	case protocol.TypeHeartbeat:
		uptime, err := protocol.DecodeHeartbeat(f)
		if err != nil {
			h.dropMalformed(f, err)
			return
		}
		h.markHeard(now)
		h.logger.Debugf("Heartbeat from %s, up %ds", protocol.FormatAddress(f.Header.FromNode), uptime)

	default:
		h.dropMalformed(f, fmt.Errorf("%w: %d", protocol.ErrUnexpectedType, f.Header.Type))
		return
	}
	metrics.FrameReceived(protocol.TypeName(f.Header.Type))
}

func (h *HelmetSystem) dropMalformed(f protocol.Frame, err error) {
	metrics.FrameDropped("malformed")
	if !h.logger.DebugEnabled() {
		return
	}
	h.logger.Debugf("Dropping frame %s: %v", f.Header, err)
	if raw, mErr := f.MarshalBinary(); mErr == nil {
		h.logger.DebugHex("frame", raw)
	}
}

func (h *HelmetSystem) markHeard(now time.Time) {
	h.lastHeard = now
	if h.linkUp {
		return
	}
	h.linkUp = true
	h.logger.Infof("Link to base up")
	metrics.SetLinkUp(true)
	h.pending = append(h.pending, func() error { return h.redis.SetLinkState(true) })
}

// superviseLink forces the signal off when the base has gone quiet.
func (h *HelmetSystem) superviseLink(now time.Time) {
	if !h.linkUp || now.Sub(h.lastHeard) <= h.cfg.LinkTimeout {
		return
	}
	h.linkUp = false
	h.logger.Warnf("No frames from base for %s, forcing signal off", h.cfg.LinkTimeout)
	metrics.SetLinkUp(false)
	h.pending = append(h.pending, func() error { return h.redis.SetLinkState(false) })
	h.setSignal(types.SignalOff)
}

func (h *HelmetSystem) setSignal(sig types.Signal) {
	if sig == h.signal {
		return
	}
	h.logger.Infof("Signal %s -> %s", h.signal, sig)
	h.signal = sig
	metrics.SetSignal(sig)
	h.pending = append(h.pending, func() error { return h.redis.PublishSignal(sig) })
}

// setBrightness samples the ambient sensor and applies the mapped
// brightness unless a manual override is active. It returns the
// brightness in effect. Callers hold mu.
func (h *HelmetSystem) setBrightness() int {
	if h.override {
		return int(h.brightness)
	}
	if h.sensor == nil {
		h.updateBrightness(h.cfg.Brightness.Max)
		return int(h.brightness)
	}

	raw, err := h.sensor.ReadAmbient()
	if err != nil {
		if !h.sensorFailed {
			h.logger.Warnf("Failed to read ambient light, keeping brightness %d: %v", h.brightness, err)
			h.sensorFailed = true
		} else {
			h.logger.Debugf("Ambient light read failed: %v", err)
		}
		return int(h.brightness)
	}
	if h.sensorFailed {
		h.logger.Infof("Ambient light sensor recovered")
		h.sensorFailed = false
	}

	r := h.cfg.Brightness
	h.updateBrightness(hardware.MapBrightness(raw, r.AdcMin, r.AdcMax, r.Min, r.Max))
	return int(h.brightness)
}

func (h *HelmetSystem) updateBrightness(b uint8) bool {
	if b == h.brightness && h.animator.Strip().Brightness() == b {
		return false
	}
	h.logger.Debugf("Brightness %d -> %d", h.brightness, b)
	h.brightness = b
	h.animator.Strip().SetBrightness(b)
	h.dirty = true
	metrics.SetBrightness(b)
	h.publishBrightness()
	return true
}

func (h *HelmetSystem) publishBrightness() {
	b, mode := h.brightness, h.brightnessMode()
	h.pending = append(h.pending, func() error { return h.redis.PublishBrightness(b, mode) })
}

func (h *HelmetSystem) applyManualBrightness(b uint8) {
	wasManual := h.override
	h.override = true
	h.logger.Infof("Manual brightness %d", b)
	if !h.updateBrightness(b) && !wasManual {
		h.publishBrightness()
	}
}

func (h *HelmetSystem) applyAutoBrightness() {
	if h.override {
		h.logger.Infof("Brightness back to ambient control")
		h.override = false
		h.publishBrightness()
	}
	h.lastSample = time.Time{}
}

func (h *HelmetSystem) brightnessMode() string {
	if h.override {
		return protocol.BrightnessManual.String()
	}
	return protocol.BrightnessAuto.String()
}

// show pushes the current buffer to the strip. Callers hold mu.
func (h *HelmetSystem) show() {
	frame := h.animator.Strip().Frame()
	if err := h.out.Show(frame); err != nil {
		h.logger.Warnf("Failed to show frame: %v", err)
	}
	h.dirty = false
	h.lastFrame = frame
	metrics.FrameRendered()
}

// Snapshot returns the last frame shown and the signal it renders.
func (h *HelmetSystem) Snapshot() ([]led.RGB, types.Signal) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]led.RGB(nil), h.lastFrame...), h.signal
}

// ApplyConfig swaps animation settings and the brightness range without
// a restart.
func (h *HelmetSystem) ApplyConfig(settings led.Settings, r BrightnessRange) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.animator.Apply(settings); err != nil {
		return err
	}
	h.cfg.Settings = settings
	h.cfg.Brightness = r
	h.lastSample = time.Time{}
	if h.sensor == nil && !h.override {
		h.updateBrightness(r.Max)
	}
	h.logger.Infof("Configuration applied")
	return nil
}

func (h *HelmetSystem) Shutdown() {
	h.logger.Infof("Shutting down helmet")

	h.mu.Lock()
	if err := h.out.Show(make([]led.RGB, h.cfg.StripCount)); err != nil {
		h.logger.Warnf("Failed to blank strip: %v", err)
	}
	h.mu.Unlock()

	if err := h.out.Close(); err != nil {
		h.logger.Warnf("Failed to close strip: %v", err)
	}
	if err := h.link.Close(); err != nil {
		h.logger.Warnf("Failed to close link: %v", err)
	}
	if err := h.redis.SetLinkState(false); err != nil {
		h.logger.Debugf("Failed to publish link state: %v", err)
	}
	if err := h.redis.Close(); err != nil {
		h.logger.Warnf("Failed to close Redis: %v", err)
	}
}
