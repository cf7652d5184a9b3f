package led

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout(24)
	assert.Equal(t, span(0, 7), l.Left)
	assert.Equal(t, span(8, 15), l.Brake)
	assert.Equal(t, span(16, 23), l.Right)
	require.NoError(t, l.Validate(24))

	l = DefaultLayout(10)
	assert.Equal(t, []int{0, 1, 2}, l.Left)
	assert.Equal(t, []int{3, 4, 5, 6}, l.Brake)
	assert.Equal(t, []int{7, 8, 9}, l.Right)
}

func TestLayoutValidate(t *testing.T) {
	cases := map[string]Layout{
		"empty zone":   {Left: nil, Right: []int{1}, Brake: []int{2}},
		"out of range": {Left: []int{0}, Right: []int{1}, Brake: []int{9}},
		"turn overlap": {Left: []int{0, 1}, Right: []int{1, 2}, Brake: []int{1}},
	}
	for name, l := range cases {
		err := l.Validate(4)
		assert.ErrorIs(t, err, ErrInvalidLayout, name)
	}

	// brake may overlap the turn zones
	ok := Layout{Left: []int{0, 1}, Right: []int{2, 3}, Brake: []int{0, 1, 2, 3}}
	assert.NoError(t, ok.Validate(4))
	assert.ErrorIs(t, ok.Validate(0), ErrInvalidLayout)
}

func TestParseZone(t *testing.T) {
	got, err := ParseZone("0-3, 6,8-9")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 6, 8, 9}, got)

	for _, bad := range []string{"", "a-3", "5-2", "-1", "1-x"} {
		_, err := ParseZone(bad)
		assert.ErrorIs(t, err, ErrInvalidLayout, bad)
	}
}

func TestParseZoneRejectsHugeRange(t *testing.T) {
	_, err := ParseZone("0-2000000000")
	assert.ErrorIs(t, err, ErrInvalidLayout)

	zone, err := ParseZone("1020-1023")
	require.NoError(t, err)
	assert.Equal(t, []int{1020, 1021, 1022, 1023}, zone)

	_, err = ParseZone("1024")
	assert.ErrorIs(t, err, ErrInvalidLayout)
}
