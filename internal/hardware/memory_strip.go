package hardware

import (
	"sync"

	"helmet-signal/internal/led"
)

// MemoryStrip stands in for the pixels when running without hardware.
type MemoryStrip struct {
	mu    sync.RWMutex
	last  []led.RGB
	shows int
}

func NewMemoryStrip() *MemoryStrip {
	return &MemoryStrip{}
}

func (m *MemoryStrip) Show(frame []led.RGB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last[:0], frame...)
	m.shows++
	return nil
}

// Last returns a copy of the most recent frame.
func (m *MemoryStrip) Last() []led.RGB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]led.RGB(nil), m.last...)
}

func (m *MemoryStrip) Shows() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shows
}

func (m *MemoryStrip) Close() error {
	return nil
}
