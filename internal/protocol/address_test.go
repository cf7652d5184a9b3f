package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAddress(t *testing.T) {
	for _, a := range []uint16{0, 01, 05, 011, 0155, 05555} {
		assert.True(t, ValidAddress(a), "0%o", a)
	}
	for _, a := range []uint16{06, 010, 0106, 015555, 07} {
		assert.False(t, ValidAddress(a), "0%o", a)
	}
}

func TestLevels(t *testing.T) {
	assert.Equal(t, 0, Levels(0))
	assert.Equal(t, 1, Levels(04))
	assert.Equal(t, 3, Levels(0123))
}

func TestParseAndFormatAddress(t *testing.T) {
	a, err := ParseAddress("0125")
	require.NoError(t, err)
	assert.Equal(t, uint16(0125), a)
	assert.Equal(t, "0125", FormatAddress(a))
	assert.Equal(t, "00", FormatAddress(MasterNode))

	_, err = ParseAddress("09")
	assert.Error(t, err)
	_, err = ParseAddress("06")
	assert.Error(t, err)
}

func TestSequencer(t *testing.T) {
	var s Sequencer
	assert.Equal(t, uint16(1), s.Next())
	assert.Equal(t, uint16(2), s.Next())
}

func TestDeduper(t *testing.T) {
	d := NewDeduper()
	h := Header{FromNode: 0, ID: 5}

	assert.False(t, d.Seen(h))
	assert.True(t, d.Seen(h), "retransmit is dropped")

	h.ID = 6
	assert.False(t, d.Seen(h))

	other := Header{FromNode: 02, ID: 6}
	assert.False(t, d.Seen(other), "IDs are tracked per node")
}
