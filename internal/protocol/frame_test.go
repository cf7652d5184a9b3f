package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helmet-signal/internal/types"
)

func TestHeaderWireLayout(t *testing.T) {
	h := Header{FromNode: 0x0102, ToNode: 01, ID: 0xBEEF, Type: TypeSignal}
	b, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01, 0x01, 0x00, 0xEF, 0xBE, 'S', 0x00}, b)

	var back Header
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, h, back)
}

func TestParseFrameErrors(t *testing.T) {
	_, err := ParseFrame([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = ParseFrame(make([]byte, MaxFrameSize+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = Frame{Payload: make([]byte, MaxPayloadSize+1)}.MarshalBinary()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestParseFrameCopiesPayload(t *testing.T) {
	raw, err := NewSignalFrame(0, 1, 7, types.SignalLeft).MarshalBinary()
	require.NoError(t, err)

	f, err := ParseFrame(raw)
	require.NoError(t, err)
	raw[HeaderSize] = 0xFF
	assert.Equal(t, []byte{byte(types.SignalLeft)}, f.Payload)
}

func TestSignalMessage(t *testing.T) {
	f := NewSignalFrame(MasterNode, 01, 3, types.SignalHazard|types.SignalBrake)
	sig, err := DecodeSignal(f)
	require.NoError(t, err)
	assert.Equal(t, types.SignalHazard|types.SignalBrake, sig)

	f.Payload = []byte{0x10}
	_, err = DecodeSignal(f)
	assert.ErrorIs(t, err, ErrInvalidSignal)

	f.Payload = []byte{1, 2}
	_, err = DecodeSignal(f)
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = DecodeSignal(NewHeartbeatFrame(0, 1, 1, 5))
	assert.ErrorIs(t, err, ErrUnexpectedType)
}

func TestBrightnessMessage(t *testing.T) {
	v, mode, err := DecodeBrightness(NewBrightnessFrame(0, 1, 9, 200, BrightnessManual))
	require.NoError(t, err)
	assert.Equal(t, uint8(200), v)
	assert.Equal(t, BrightnessManual, mode)

	bad := NewBrightnessFrame(0, 1, 9, 200, BrightnessMode(7))
	_, _, err = DecodeBrightness(bad)
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestHeartbeatMessage(t *testing.T) {
	up, err := DecodeHeartbeat(NewHeartbeatFrame(0, 1, 2, 86400))
	require.NoError(t, err)
	assert.Equal(t, uint32(86400), up)
	assert.Equal(t, "heartbeat", TypeName(TypeHeartbeat))
	assert.Equal(t, "unknown", TypeName('?'))
}
