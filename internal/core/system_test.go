package core

import (
	"errors"
	"testing"
	"time"

	"helmet-signal/internal/hardware"
	"helmet-signal/internal/led"
	"helmet-signal/internal/logger"
	"helmet-signal/internal/messaging"
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/radio"
	"helmet-signal/internal/types"
)

// Mock MessagingClient
type mockMessagingClient struct {
	callbacks messaging.Callbacks

	signals    []types.Signal
	brightness []struct {
		value uint8
		mode  string
	}
	linkStates []bool
	blinkers   []types.Blinker
	brakes     []bool
}

func (m *mockMessagingClient) SetCallbacks(callbacks messaging.Callbacks) { m.callbacks = callbacks }
func (m *mockMessagingClient) Connect() error                             { return nil }
func (m *mockMessagingClient) StartListening() error                      { return nil }
func (m *mockMessagingClient) Close() error                               { return nil }

func (m *mockMessagingClient) PublishSignal(sig types.Signal) error {
	m.signals = append(m.signals, sig)
	return nil
}

func (m *mockMessagingClient) PublishBrightness(value uint8, mode string) error {
	m.brightness = append(m.brightness, struct {
		value uint8
		mode  string
	}{value, mode})
	return nil
}

func (m *mockMessagingClient) SetLinkState(up bool) error {
	m.linkStates = append(m.linkStates, up)
	return nil
}

func (m *mockMessagingClient) SetBlinkerSwitch(state types.Blinker) error {
	m.blinkers = append(m.blinkers, state)
	return nil
}

func (m *mockMessagingClient) SetBrakeState(pressed bool) error {
	m.brakes = append(m.brakes, pressed)
	return nil
}

func (m *mockMessagingClient) lastSignal() types.Signal {
	if len(m.signals) == 0 {
		return types.SignalOff
	}
	return m.signals[len(m.signals)-1]
}

// Mock Strip
type mockStrip struct {
	frames [][]led.RGB
	closed bool
}

func (s *mockStrip) Show(frame []led.RGB) error {
	s.frames = append(s.frames, append([]led.RGB(nil), frame...))
	return nil
}

func (s *mockStrip) Close() error {
	s.closed = true
	return nil
}

func (s *mockStrip) last() []led.RGB {
	return s.frames[len(s.frames)-1]
}

// Mock AmbientSensor
type mockSensor struct {
	value int
	err   error
	reads int
}

func (s *mockSensor) ReadAmbient() (int, error) {
	s.reads++
	return s.value, s.err
}

// Mock SwitchIO
type mockSwitchIO struct {
	digitalInputs  map[string]bool
	digitalOutputs map[string]bool
	outputWrites   []bool
	inputCallbacks map[string]hardware.InputCallback
	initialized    bool
	cleanedUp      bool
}

func newMockSwitchIO() *mockSwitchIO {
	return &mockSwitchIO{
		digitalInputs:  make(map[string]bool),
		digitalOutputs: make(map[string]bool),
		inputCallbacks: make(map[string]hardware.InputCallback),
	}
}

func (m *mockSwitchIO) Initialize() error { m.initialized = true; return nil }
func (m *mockSwitchIO) Cleanup()          { m.cleanedUp = true }

func (m *mockSwitchIO) ReadDigitalInput(channel string) (bool, error) {
	return m.digitalInputs[channel], nil
}

func (m *mockSwitchIO) WriteDigitalOutput(channel string, value bool) error {
	m.digitalOutputs[channel] = value
	m.outputWrites = append(m.outputWrites, value)
	return nil
}

func (m *mockSwitchIO) RegisterInputCallback(channel string, callback hardware.InputCallback) {
	m.inputCallbacks[channel] = callback
}

// press drives a switch edge through the registered callback.
func (m *mockSwitchIO) press(t *testing.T, channel string, value bool) {
	t.Helper()
	m.digitalInputs[channel] = value
	cb, ok := m.inputCallbacks[channel]
	if !ok {
		t.Fatalf("No callback registered for %s", channel)
	}
	if err := cb(channel, value); err != nil {
		t.Fatalf("Callback for %s failed: %v", channel, err)
	}
}

func testLogger() *logger.Logger {
	return logger.NewLogger(nil, logger.LogLevelError)
}

// recvFrame reads the next frame from a link or fails the test.
func recvFrame(t *testing.T, l radio.Link) protocol.Frame {
	t.Helper()
	select {
	case f := <-l.Frames():
		return f
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for frame")
		return protocol.Frame{}
	}
}

func expectNoFrame(t *testing.T, l radio.Link) {
	t.Helper()
	select {
	case f := <-l.Frames():
		t.Fatalf("Unexpected frame %s", f.Header)
	default:
	}
}

var errSensor = errors.New("sensor unplugged")
