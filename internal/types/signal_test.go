package types

import "testing"

func TestSignalString(t *testing.T) {
	cases := []struct {
		sig  Signal
		want string
	}{
		{SignalOff, "off"},
		{SignalLeft, "left"},
		{SignalRight, "right"},
		{SignalHazard, "both"},
		{SignalBrake, "brake"},
		{SignalLeft | SignalBrake, "left+brake"},
		{SignalHazard | SignalBrake, "both+brake"},
		{Signal(0x80), "invalid(0x80)"},
	}
	for _, c := range cases {
		if got := c.sig.String(); got != c.want {
			t.Errorf("Signal(%d).String() = %q, want %q", c.sig, got, c.want)
		}
	}
}

func TestParseSignalRoundTrip(t *testing.T) {
	for s := Signal(0); s <= signalMask; s++ {
		parsed, err := ParseSignal(s.String())
		if err != nil {
			t.Fatalf("ParseSignal(%q) failed: %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("ParseSignal(%q) = %v, want %v", s.String(), parsed, s)
		}
	}
}

func TestParseSignalAliasesAndErrors(t *testing.T) {
	if s, err := ParseSignal(" Hazard "); err != nil || s != SignalHazard {
		t.Errorf("Expected hazard alias, got %v, %v", s, err)
	}
	if _, err := ParseSignal("up"); err == nil {
		t.Error("Expected error for unknown signal")
	}
	if _, err := ParseSignal("up+brake"); err == nil {
		t.Error("Expected error for unknown signal with brake suffix")
	}
}

func TestWithBlinkerKeepsBrake(t *testing.T) {
	s := SignalBrake.WithBlinker(BlinkerLeft)
	if s != SignalLeft|SignalBrake {
		t.Errorf("Expected left+brake, got %v", s)
	}
	s = s.WithBlinker(BlinkerOff)
	if s != SignalBrake {
		t.Errorf("Expected brake only, got %v", s)
	}
	if s.WithBrake(false) != SignalOff {
		t.Error("Expected brake to clear")
	}
}
