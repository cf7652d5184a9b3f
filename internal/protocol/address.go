package protocol

import (
	"fmt"
	"strconv"
	"sync"
)

// MasterNode is the root of the RF24Network tree. The base unit uses it.
const MasterNode uint16 = 0

// ValidAddress reports whether a is a legal RF24Network node address:
// up to four octal digits, each 1-5, or 0 for the master.
func ValidAddress(a uint16) bool {
	if a == MasterNode {
		return true
	}
	for level := 0; a != 0; level++ {
		if level >= 4 {
			return false
		}
		d := a & 07
		if d < 1 || d > 5 {
			return false
		}
		a >>= 3
	}
	return true
}

// Levels is the depth of a in the tree. The master is level 0.
func Levels(a uint16) int {
	n := 0
	for ; a != 0; a >>= 3 {
		n++
	}
	return n
}

// ParseAddress reads an octal node address such as "01" or "0125".
func ParseAddress(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 8, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid node address %q: %w", s, err)
	}
	a := uint16(v)
	if !ValidAddress(a) {
		return 0, fmt.Errorf("invalid node address %q", s)
	}
	return a, nil
}

func FormatAddress(a uint16) string {
	return "0" + strconv.FormatUint(uint64(a), 8)
}

// Sequencer hands out frame IDs.
type Sequencer struct {
	mu   sync.Mutex
	next uint16
}

func (s *Sequencer) Next() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Deduper drops retransmitted frames: a frame whose ID matches the last
// one seen from the same node.
type Deduper struct {
	last map[uint16]uint16
}

func NewDeduper() *Deduper {
	return &Deduper{last: make(map[uint16]uint16)}
}

// Seen records h and reports whether it repeats the previous frame.
func (d *Deduper) Seen(h Header) bool {
	prev, ok := d.last[h.FromNode]
	d.last[h.FromNode] = h.ID
	return ok && prev == h.ID
}
