// Package protocol implements the RF24Network frames exchanged between the
// base unit and the helmet.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	HeaderSize = 8
	// MaxFrameSize is the nRF24L01 payload limit.
	MaxFrameSize   = 32
	MaxPayloadSize = MaxFrameSize - HeaderSize
)

var (
	ErrShortFrame      = errors.New("frame shorter than header")
	ErrPayloadTooLarge = errors.New("payload exceeds radio frame")
	ErrUnexpectedType  = errors.New("unexpected message type")
	ErrBadPayload      = errors.New("malformed payload")
	ErrInvalidSignal   = errors.New("invalid signal bits")
)

// Header is the RF24Network frame header, little endian on the wire.
type Header struct {
	FromNode uint16
	ToNode   uint16
	ID       uint16
	Type     uint8
	Reserved uint8
}

func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf, nil
}

func (h Header) put(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], h.FromNode)
	binary.LittleEndian.PutUint16(buf[2:4], h.ToNode)
	binary.LittleEndian.PutUint16(buf[4:6], h.ID)
	buf[6] = h.Type
	buf[7] = h.Reserved
}

func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrShortFrame
	}
	h.FromNode = binary.LittleEndian.Uint16(data[0:2])
	h.ToNode = binary.LittleEndian.Uint16(data[2:4])
	h.ID = binary.LittleEndian.Uint16(data[4:6])
	h.Type = data[6]
	h.Reserved = data[7]
	return nil
}

func (h Header) String() string {
	return fmt.Sprintf("0%o->0%o id=%d type=%c", h.FromNode, h.ToNode, h.ID, h.Type)
}

type Frame struct {
	Header  Header
	Payload []byte
}

func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(f.Payload))
	f.Header.put(buf)
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

// ParseFrame decodes a received radio frame. The payload is copied.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := f.Header.UnmarshalBinary(data); err != nil {
		return Frame{}, err
	}
	if len(data) > MaxFrameSize {
		return Frame{}, ErrPayloadTooLarge
	}
	f.Payload = append([]byte(nil), data[HeaderSize:]...)
	return f, nil
}
