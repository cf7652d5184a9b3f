package messaging

import (
	"testing"

	"helmet-signal/internal/logger"
)

// The handlers validate input before any redis round trip, so no server is
// needed here.
func newTestClient(cb Callbacks) *RedisClient {
	return NewRedisClient("127.0.0.1:0", HashHelmet, logger.NewLogger(nil, logger.LogLevelError), cb)
}

func TestBrightnessCommandValidation(t *testing.T) {
	var got []string
	r := newTestClient(Callbacks{BrightnessCallback: func(v string) error {
		got = append(got, v)
		return nil
	}})
	defer r.Close()

	for _, v := range []string{"auto", "0", "255", "128"} {
		if err := r.handleBrightnessCommand(v); err != nil {
			t.Errorf("Unexpected error for %q: %v", v, err)
		}
	}
	for _, v := range []string{"-1", "256", "bright", ""} {
		if err := r.handleBrightnessCommand(v); err == nil {
			t.Errorf("Expected error for %q", v)
		}
	}
	if len(got) != 4 {
		t.Errorf("Expected 4 accepted commands, got %v", got)
	}
}

func TestAnimationCommandValidation(t *testing.T) {
	calls := 0
	r := newTestClient(Callbacks{AnimationCallback: func(string) error {
		calls++
		return nil
	}})
	defer r.Close()

	for _, v := range []string{"cylon", "off", "color:turn=orange"} {
		if err := r.handleAnimationCommand(v); err != nil {
			t.Errorf("Unexpected error for %q: %v", v, err)
		}
	}
	for _, v := range []string{"rainbow", "color:turn"} {
		if err := r.handleAnimationCommand(v); err == nil {
			t.Errorf("Expected error for %q", v)
		}
	}
	if calls != 3 {
		t.Errorf("Expected 3 callbacks, got %d", calls)
	}
}

func TestSignalCommandValidation(t *testing.T) {
	var last string
	r := newTestClient(Callbacks{SignalCallback: func(v string) error {
		last = v
		return nil
	}})
	defer r.Close()

	if err := r.handleSignalCommand("left+brake"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if last != "left+brake" {
		t.Errorf("Expected left+brake, got %q", last)
	}
	if err := r.handleSignalCommand("up"); err == nil {
		t.Error("Expected error for unknown signal")
	}
}

func TestNilCallbacksIgnored(t *testing.T) {
	r := newTestClient(Callbacks{})
	defer r.Close()

	if err := r.handleBrightnessCommand("garbage"); err != nil {
		t.Errorf("Expected nil without callback, got %v", err)
	}
	if r.BrightnessKey() != "helmet:brightness" {
		t.Errorf("Unexpected brightness key %q", r.BrightnessKey())
	}
}
