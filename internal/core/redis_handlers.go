package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"helmet-signal/internal/led"
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/types"
)

// handleBrightnessRequest handles "auto" or a fixed 0-255 brightness from Redis
func (h *HelmetSystem) handleBrightnessRequest(value string) error {
	h.logger.Debugf("Handling brightness request: %s", value)

	h.mu.Lock()
	defer h.mu.Unlock()
	if value == "auto" {
		h.applyAutoBrightness()
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > 255 {
		return fmt.Errorf("invalid brightness: %s", value)
	}
	h.applyManualBrightness(uint8(n))
	return nil
}

// handleAnimationRequest handles idle animation and colour changes from Redis
func (h *HelmetSystem) handleAnimationRequest(value string) error {
	h.logger.Debugf("Handling animation request: %s", value)

	h.mu.Lock()
	defer h.mu.Unlock()

	switch value {
	case "cylon":
		h.animator.SetSweep(true)
		return nil
	case "off":
		h.animator.SetSweep(false)
		return nil
	}

	assignment, ok := strings.CutPrefix(value, "color:")
	if !ok {
		return fmt.Errorf("invalid animation command: %s", value)
	}
	zone, name, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("invalid color command: %s", value)
	}
	code, err := led.ParseColor(name)
	if err != nil {
		return err
	}

	settings := h.animator.Settings()
	switch zone {
	case "turn":
		settings.TurnColor = code
	case "brake":
		settings.BrakeColor = code
	default:
		return fmt.Errorf("invalid color zone: %s", zone)
	}
	if err := h.animator.Apply(settings); err != nil {
		return err
	}
	h.cfg.Settings = settings
	h.logger.Infof("%s colour set to %s", zone, code)
	return nil
}

// handleSignalRequest sends a signal requested over Redis to the helmet
func (b *BaseSystem) handleSignalRequest(value string) error {
	b.logger.Debugf("Handling signal request: %s", value)
	sig, err := types.ParseSignal(value)
	if err != nil {
		return err
	}

	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.mu.Lock()
	changed := sig != b.signal
	b.signal = sig
	b.mu.Unlock()

	if !changed {
		return nil
	}
	b.logger.Infof("Signal %s requested over Redis", sig)
	return b.sendSignal(sig)
}

// handleBrightnessRequest forwards a brightness request to the helmet
func (b *BaseSystem) handleBrightnessRequest(value string) error {
	b.logger.Debugf("Handling brightness request: %s", value)

	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	var f protocol.Frame
	if value == "auto" {
		f = protocol.NewBrightnessFrame(b.cfg.Node, b.cfg.Helmet, b.seq.Next(), 0, protocol.BrightnessAuto)
	} else {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 255 {
			return fmt.Errorf("invalid brightness: %s", value)
		}
		f = protocol.NewBrightnessFrame(b.cfg.Node, b.cfg.Helmet, b.seq.Next(), uint8(n), protocol.BrightnessManual)
	}
	return b.send(f, time.Second)
}
