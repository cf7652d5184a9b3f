package protocol

import (
	"encoding/binary"
	"fmt"

	"helmet-signal/internal/types"
)

// Message types sit in the RF24Network user range (65-127).
const (
	TypeBrightness uint8 = 'B'
	TypeHeartbeat  uint8 = 'H'
	TypeSignal     uint8 = 'S'
)

func TypeName(t uint8) string {
	switch t {
	case TypeSignal:
		return "signal"
	case TypeBrightness:
		return "brightness"
	case TypeHeartbeat:
		return "heartbeat"
	}
	return "unknown"
}

type BrightnessMode uint8

const (
	BrightnessAuto BrightnessMode = iota
	BrightnessManual
)

func (m BrightnessMode) String() string {
	if m == BrightnessManual {
		return "manual"
	}
	return "auto"
}

func NewSignalFrame(from, to, id uint16, sig types.Signal) Frame {
	return Frame{
		Header:  Header{FromNode: from, ToNode: to, ID: id, Type: TypeSignal},
		Payload: []byte{byte(sig)},
	}
}

func DecodeSignal(f Frame) (types.Signal, error) {
	if f.Header.Type != TypeSignal {
		return types.SignalOff, fmt.Errorf("%w: %c", ErrUnexpectedType, f.Header.Type)
	}
	if len(f.Payload) != 1 {
		return types.SignalOff, fmt.Errorf("%w: signal payload of %d bytes", ErrBadPayload, len(f.Payload))
	}
	sig := types.Signal(f.Payload[0])
	if !sig.Valid() {
		return types.SignalOff, fmt.Errorf("%w: 0x%02X", ErrInvalidSignal, f.Payload[0])
	}
	return sig, nil
}

func NewBrightnessFrame(from, to, id uint16, value uint8, mode BrightnessMode) Frame {
	return Frame{
		Header:  Header{FromNode: from, ToNode: to, ID: id, Type: TypeBrightness},
		Payload: []byte{value, byte(mode)},
	}
}

func DecodeBrightness(f Frame) (uint8, BrightnessMode, error) {
	if f.Header.Type != TypeBrightness {
		return 0, BrightnessAuto, fmt.Errorf("%w: %c", ErrUnexpectedType, f.Header.Type)
	}
	if len(f.Payload) != 2 {
		return 0, BrightnessAuto, fmt.Errorf("%w: brightness payload of %d bytes", ErrBadPayload, len(f.Payload))
	}
	mode := BrightnessMode(f.Payload[1])
	if mode > BrightnessManual {
		return 0, BrightnessAuto, fmt.Errorf("%w: brightness mode %d", ErrBadPayload, mode)
	}
	return f.Payload[0], mode, nil
}

func NewHeartbeatFrame(from, to, id uint16, uptimeSec uint32) Frame {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uptimeSec)
	return Frame{
		Header:  Header{FromNode: from, ToNode: to, ID: id, Type: TypeHeartbeat},
		Payload: payload,
	}
}

func DecodeHeartbeat(f Frame) (uint32, error) {
	if f.Header.Type != TypeHeartbeat {
		return 0, fmt.Errorf("%w: %c", ErrUnexpectedType, f.Header.Type)
	}
	if len(f.Payload) != 4 {
		return 0, fmt.Errorf("%w: heartbeat payload of %d bytes", ErrBadPayload, len(f.Payload))
	}
	return binary.LittleEndian.Uint32(f.Payload), nil
}
