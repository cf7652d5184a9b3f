package radio

import (
	"bytes"

	"github.com/sigurn/crc8"

	"helmet-signal/internal/protocol"
)

// Serial framing between the host and the radio modem:
//
//	0x7E | len | frame (len bytes) | crc8
//
// The CRC is CRC-8/MAXIM over the length byte and the frame.
const frameStart = 0x7E

var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

func EncodeSerial(f protocol.Frame) ([]byte, error) {
	raw, err := f.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(raw)+3)
	out = append(out, frameStart, byte(len(raw)))
	out = append(out, raw...)
	out = append(out, crc8.Checksum(out[1:], crcTable))
	return out, nil
}

// Decoder reassembles frames from a byte stream and resynchronises on the
// next start byte after any error.
type Decoder struct {
	buf    []byte
	errors uint64
}

// Feed appends data and returns every complete frame found.
func (d *Decoder) Feed(data []byte) []protocol.Frame {
	d.buf = append(d.buf, data...)
	var out []protocol.Frame

	for {
		start := bytes.IndexByte(d.buf, frameStart)
		if start < 0 {
			d.buf = d.buf[:0]
			return out
		}
		d.buf = d.buf[start:]
		if len(d.buf) < 2 {
			return out
		}
		n := int(d.buf[1])
		if n < protocol.HeaderSize || n > protocol.MaxFrameSize {
			d.reject()
			continue
		}
		total := 2 + n + 1
		if len(d.buf) < total {
			return out
		}
		if crc8.Checksum(d.buf[1:2+n], crcTable) != d.buf[2+n] {
			d.reject()
			continue
		}
		f, err := protocol.ParseFrame(d.buf[2 : 2+n])
		if err != nil {
			d.reject()
			continue
		}
		out = append(out, f)
		d.buf = d.buf[total:]
	}
}

func (d *Decoder) reject() {
	d.errors++
	d.buf = d.buf[1:]
}

func (d *Decoder) Errors() uint64 {
	return d.errors
}
