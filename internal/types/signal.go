package types

import (
	"fmt"
	"strings"
)

// Signal is the set of lamps requested by the base unit.
type Signal uint8

const (
	SignalLeft Signal = 1 << iota
	SignalRight
	SignalBrake

	SignalOff    Signal = 0
	SignalHazard        = SignalLeft | SignalRight
	signalMask          = SignalLeft | SignalRight | SignalBrake
)

// Blinker is the switch-level view of the turn indicators.
type Blinker string

const (
	BlinkerOff   Blinker = "off"
	BlinkerLeft  Blinker = "left"
	BlinkerRight Blinker = "right"
	BlinkerBoth  Blinker = "both"
)

func (s Signal) Valid() bool {
	return s&^signalMask == 0
}

func (s Signal) Left() bool { return s&SignalLeft != 0 }
func (s Signal) Right() bool { return s&SignalRight != 0 }
func (s Signal) Braking() bool { return s&SignalBrake != 0 }

// Turning reports whether either indicator is requested.
func (s Signal) Turning() bool { return s&SignalHazard != 0 }

func (s Signal) Blinker() Blinker {
	switch s & SignalHazard {
	case SignalLeft:
		return BlinkerLeft
	case SignalRight:
		return BlinkerRight
	case SignalHazard:
		return BlinkerBoth
	}
	return BlinkerOff
}

// WithBlinker replaces the indicator bits and keeps the brake bit.
func (s Signal) WithBlinker(b Blinker) Signal {
	s &^= SignalHazard
	switch b {
	case BlinkerLeft:
		s |= SignalLeft
	case BlinkerRight:
		s |= SignalRight
	case BlinkerBoth:
		s |= SignalHazard
	}
	return s
}

// WithBrake sets or clears the brake bit.
func (s Signal) WithBrake(on bool) Signal {
	if on {
		return s | SignalBrake
	}
	return s &^ SignalBrake
}

func (s Signal) String() string {
	if !s.Valid() {
		return fmt.Sprintf("invalid(0x%02X)", uint8(s))
	}
	blinker := s.Blinker()
	switch {
	case !s.Braking():
		return string(blinker)
	case blinker == BlinkerOff:
		return "brake"
	default:
		return string(blinker) + "+brake"
	}
}

// ParseSignal accepts the names produced by Signal.String.
func ParseSignal(name string) (Signal, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	brake := false
	if name == "brake" {
		return SignalBrake, nil
	}
	if base, ok := strings.CutSuffix(name, "+brake"); ok {
		name = base
		brake = true
	}

	var s Signal
	switch Blinker(name) {
	case BlinkerOff:
	case BlinkerLeft:
		s = SignalLeft
	case BlinkerRight:
		s = SignalRight
	case BlinkerBoth, "hazard":
		s = SignalHazard
	default:
		return SignalOff, fmt.Errorf("invalid signal: %q", name)
	}
	return s.WithBrake(brake), nil
}
