package core

import (
	"context"
	"testing"
	"time"

	"helmet-signal/internal/led"
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/radio"
	"helmet-signal/internal/types"
)

func testHelmetConfig() HelmetConfig {
	return HelmetConfig{
		Node:               1,
		Base:               0,
		StripCount:         24,
		Settings:           led.DefaultSettings(24),
		Brightness:         BrightnessRange{AdcMin: 0, AdcMax: 4095, Min: 16, Max: 255},
		FrameInterval:      10 * time.Millisecond,
		BrightnessInterval: time.Second,
		LinkTimeout:        2 * time.Second,
	}
}

func newTestHelmet(t *testing.T, sensor *mockSensor) (*HelmetSystem, radio.Link, *mockStrip, *mockMessagingClient) {
	t.Helper()
	near, far := radio.Pipe()
	strip := &mockStrip{}
	redis := &mockMessagingClient{}

	var s AmbientSensor
	if sensor != nil {
		s = sensor
	}
	h, err := NewHelmetSystem(testHelmetConfig(), near, strip, s, redis, testLogger())
	if err != nil {
		t.Fatalf("NewHelmetSystem failed: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return h, far, strip, redis
}

func sendFrame(t *testing.T, l radio.Link, f protocol.Frame) {
	t.Helper()
	if err := l.Send(context.Background(), f); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestHelmetStartPublishesInitialState(t *testing.T) {
	_, _, strip, redis := newTestHelmet(t, nil)

	if len(strip.frames) != 1 {
		t.Fatalf("Expected one frame shown at start, got %d", len(strip.frames))
	}
	if len(redis.linkStates) != 1 || redis.linkStates[0] {
		t.Errorf("Expected link published down, got %v", redis.linkStates)
	}
	if redis.lastSignal() != types.SignalOff {
		t.Errorf("Expected signal off, got %v", redis.lastSignal())
	}
	if len(redis.brightness) != 1 || redis.brightness[0].value != 255 || redis.brightness[0].mode != "auto" {
		t.Errorf("Unexpected brightness publish %v", redis.brightness)
	}
}

func TestHelmetRendersLeftSignal(t *testing.T) {
	h, far, strip, redis := newTestHelmet(t, nil)
	now := time.Now()
	orange := led.Orange.RGB()

	sendFrame(t, far, protocol.NewSignalFrame(0, 1, 1, types.SignalLeft))
	h.mainloop(now)

	frame, sig := h.Snapshot()
	if sig != types.SignalLeft {
		t.Fatalf("Expected left, got %v", sig)
	}
	if frame[0] != orange || frame[7] != orange {
		t.Errorf("Expected left zone lit, got %v %v", frame[0], frame[7])
	}
	if frame[8] != (led.RGB{}) || frame[16] != (led.RGB{}) {
		t.Errorf("Expected brake and right zones dark, got %v %v", frame[8], frame[16])
	}
	if redis.lastSignal() != types.SignalLeft {
		t.Errorf("Expected left published, got %v", redis.lastSignal())
	}
	if !h.linkUp || redis.linkStates[len(redis.linkStates)-1] != true {
		t.Error("Expected link up after first frame")
	}

	// off phase after one blink interval
	h.mainloop(now.Add(400 * time.Millisecond))
	if strip.last()[0] != (led.RGB{}) {
		t.Errorf("Expected left zone dark in off phase, got %v", strip.last()[0])
	}
}

func TestHelmetBrakeWithTurn(t *testing.T) {
	h, far, strip, _ := newTestHelmet(t, nil)
	red := led.Red.RGB()

	sendFrame(t, far, protocol.NewSignalFrame(0, 1, 1, types.SignalRight|types.SignalBrake))
	h.mainloop(time.Now())

	frame := strip.last()
	if frame[0] != red || frame[8] != red {
		t.Errorf("Expected brake across left and brake zones, got %v %v", frame[0], frame[8])
	}
	if frame[16] != led.Orange.RGB() {
		t.Errorf("Expected right zone orange, got %v", frame[16])
	}
}

func TestHelmetLinkTimeoutForcesOff(t *testing.T) {
	h, far, _, redis := newTestHelmet(t, nil)
	now := time.Now()

	sendFrame(t, far, protocol.NewSignalFrame(0, 1, 1, types.SignalHazard))
	h.mainloop(now)

	h.mainloop(now.Add(2 * time.Second))
	if _, sig := h.Snapshot(); sig != types.SignalHazard {
		t.Fatalf("Signal should hold until the timeout passes, got %v", sig)
	}

	h.mainloop(now.Add(2*time.Second + time.Millisecond))
	if _, sig := h.Snapshot(); sig != types.SignalOff {
		t.Errorf("Expected failsafe off, got %v", sig)
	}
	if h.linkUp {
		t.Error("Expected link down")
	}
	if got := redis.linkStates; len(got) != 3 || got[2] {
		t.Errorf("Expected link states [down up down], got %v", got)
	}
	if redis.lastSignal() != types.SignalOff {
		t.Errorf("Expected off published, got %v", redis.lastSignal())
	}
}

func TestHelmetIgnoresBadFrames(t *testing.T) {
	h, far, _, _ := newTestHelmet(t, nil)

	sendFrame(t, far, protocol.NewSignalFrame(0, 2, 1, types.SignalLeft))
	sendFrame(t, far, protocol.Frame{
		Header:  protocol.Header{FromNode: 0, ToNode: 1, ID: 2, Type: protocol.TypeSignal},
		Payload: []byte{0x80},
	})
	sendFrame(t, far, protocol.Frame{
		Header: protocol.Header{FromNode: 0, ToNode: 1, ID: 3, Type: 'Z'},
	})
	h.mainloop(time.Now())

	if _, sig := h.Snapshot(); sig != types.SignalOff {
		t.Errorf("Bad frames must not change the signal, got %v", sig)
	}
	if h.linkUp {
		t.Error("Bad frames must not bring the link up")
	}
}

func TestHelmetIgnoresOtherSenders(t *testing.T) {
	h, far, _, _ := newTestHelmet(t, nil)

	sendFrame(t, far, protocol.NewSignalFrame(3, 1, 1, types.SignalBrake))
	sendFrame(t, far, protocol.NewHeartbeatFrame(011, 1, 2, 60))
	h.mainloop(time.Now())

	if _, sig := h.Snapshot(); sig != types.SignalOff {
		t.Errorf("Frames from other nodes must not change the signal, got %v", sig)
	}
	if h.linkUp {
		t.Error("Frames from other nodes must not bring the link up")
	}

	sendFrame(t, far, protocol.NewSignalFrame(0, 1, 1, types.SignalBrake))
	h.mainloop(time.Now())
	if _, sig := h.Snapshot(); sig != types.SignalBrake {
		t.Errorf("Expected brake from the base, got %v", sig)
	}
}

func TestHelmetDropsRepeatedFrame(t *testing.T) {
	h, far, _, _ := newTestHelmet(t, nil)

	sendFrame(t, far, protocol.NewSignalFrame(0, 1, 5, types.SignalLeft))
	sendFrame(t, far, protocol.NewSignalFrame(0, 1, 5, types.SignalOff))
	h.mainloop(time.Now())

	if _, sig := h.Snapshot(); sig != types.SignalLeft {
		t.Errorf("Repeated frame ID should be dropped, got %v", sig)
	}
}

func TestHelmetAmbientBrightness(t *testing.T) {
	sensor := &mockSensor{value: 4095}
	h, _, _, redis := newTestHelmet(t, sensor)
	start := time.Now()

	if h.brightness != 255 {
		t.Fatalf("Expected full brightness in daylight, got %d", h.brightness)
	}

	sensor.value = 0
	h.mainloop(start.Add(500 * time.Millisecond))
	if h.brightness != 255 {
		t.Errorf("Brightness should not resample before the interval, got %d", h.brightness)
	}

	h.mainloop(start.Add(2 * time.Second))
	if h.brightness != 16 {
		t.Errorf("Expected minimum brightness in the dark, got %d", h.brightness)
	}
	last := redis.brightness[len(redis.brightness)-1]
	if last.value != 16 || last.mode != "auto" {
		t.Errorf("Unexpected brightness publish %v", last)
	}

	sensor.err = errSensor
	h.mainloop(start.Add(4 * time.Second))
	if h.brightness != 16 || !h.sensorFailed {
		t.Errorf("Expected last brightness kept on sensor failure, got %d", h.brightness)
	}
}

func TestHelmetManualBrightnessOverride(t *testing.T) {
	sensor := &mockSensor{value: 4095}
	h, far, strip, _ := newTestHelmet(t, sensor)
	start := time.Now()

	sendFrame(t, far, protocol.NewBrightnessFrame(0, 1, 1, 50, protocol.BrightnessManual))
	sendFrame(t, far, protocol.NewSignalFrame(0, 1, 2, types.SignalBrake))
	h.mainloop(start.Add(2 * time.Second))

	if h.brightness != 50 || !h.override {
		t.Fatalf("Expected manual brightness 50, got %d (override %v)", h.brightness, h.override)
	}
	// 255 * 51 >> 8
	if got := strip.last()[8].R; got != 50 {
		t.Errorf("Expected brake pixel scaled to 50, got %d", got)
	}

	reads := sensor.reads
	h.mainloop(start.Add(4 * time.Second))
	if sensor.reads != reads {
		t.Error("Sensor must not be sampled while overridden")
	}

	sendFrame(t, far, protocol.NewBrightnessFrame(0, 1, 3, 0, protocol.BrightnessAuto))
	h.mainloop(start.Add(4*time.Second + 10*time.Millisecond))
	if h.override || h.brightness != 255 {
		t.Errorf("Expected ambient brightness restored, got %d (override %v)", h.brightness, h.override)
	}
}

func TestHelmetRedisHandlers(t *testing.T) {
	h, _, strip, redis := newTestHelmet(t, nil)
	now := time.Now()

	for _, bad := range []string{"300", "-1", "dim"} {
		if err := h.handleBrightnessRequest(bad); err == nil {
			t.Errorf("Expected error for brightness %q", bad)
		}
	}
	if err := h.handleBrightnessRequest("100"); err != nil {
		t.Fatalf("handleBrightnessRequest failed: %v", err)
	}
	h.mainloop(now)
	last := redis.brightness[len(redis.brightness)-1]
	if last.value != 100 || last.mode != "manual" {
		t.Errorf("Unexpected brightness publish %v", last)
	}

	if err := h.handleAnimationRequest("color:turn=blue"); err != nil {
		t.Fatalf("color request failed: %v", err)
	}
	if h.animator.Settings().TurnColor != led.Blue {
		t.Errorf("Expected blue turn colour, got %v", h.animator.Settings().TurnColor)
	}
	for _, bad := range []string{"color:side=red", "color:brake=ultraviolet", "sparkle"} {
		if err := h.handleAnimationRequest(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}

	if err := h.handleAnimationRequest("off"); err != nil {
		t.Fatalf("off request failed: %v", err)
	}
	h.mainloop(now.Add(time.Second))
	for i, p := range strip.last() {
		if p != (led.RGB{}) {
			t.Fatalf("Expected dark strip with sweep off, pixel %d is %v", i, p)
		}
	}
}

func TestHelmetApplyConfig(t *testing.T) {
	h, _, _, _ := newTestHelmet(t, nil)

	settings := led.DefaultSettings(24)
	settings.BrakeColor = led.Blue
	if err := h.ApplyConfig(settings, BrightnessRange{AdcMin: 0, AdcMax: 100, Min: 10, Max: 200}); err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}
	if h.brightness != 200 {
		t.Errorf("Expected new maximum brightness without a sensor, got %d", h.brightness)
	}

	settings.Layout.Right = []int{99}
	if err := h.ApplyConfig(settings, BrightnessRange{AdcMax: 1, Max: 255}); err == nil {
		t.Error("Expected invalid layout to be rejected")
	}
}

func TestHelmetShutdownBlanksStrip(t *testing.T) {
	h, far, strip, _ := newTestHelmet(t, nil)
	sendFrame(t, far, protocol.NewSignalFrame(0, 1, 1, types.SignalBrake))
	h.mainloop(time.Now())

	h.Shutdown()
	if !strip.closed {
		t.Error("Expected strip closed")
	}
	for i, p := range strip.last() {
		if p != (led.RGB{}) {
			t.Fatalf("Expected blank strip, pixel %d is %v", i, p)
		}
	}
}
