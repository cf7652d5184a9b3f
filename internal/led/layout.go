package led

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidLayout = errors.New("invalid layout")

// MaxPixels is the longest strip a layout may address.
const MaxPixels = 1024

// Layout assigns strip pixels to the signal zones.
type Layout struct {
	Left  []int
	Right []int
	Brake []int
}

// DefaultLayout splits n pixels into left, brake and right thirds.
func DefaultLayout(n int) Layout {
	third := n / 3
	return Layout{
		Left:  span(0, third-1),
		Brake: span(third, n-third-1),
		Right: span(n-third, n-1),
	}
}

func span(from, to int) []int {
	if to < from {
		return nil
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func (l Layout) Validate(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: strip has no pixels", ErrInvalidLayout)
	}
	zones := []struct {
		name string
		idx  []int
	}{
		{"left", l.Left},
		{"right", l.Right},
		{"brake", l.Brake},
	}
	for _, z := range zones {
		if len(z.idx) == 0 {
			return fmt.Errorf("%w: %s zone is empty", ErrInvalidLayout, z.name)
		}
		for _, i := range z.idx {
			if i < 0 || i >= n {
				return fmt.Errorf("%w: %s zone index %d outside strip of %d", ErrInvalidLayout, z.name, i, n)
			}
		}
	}
	left := make(map[int]bool, len(l.Left))
	for _, i := range l.Left {
		left[i] = true
	}
	for _, i := range l.Right {
		if left[i] {
			return fmt.Errorf("%w: pixel %d is in both turn zones", ErrInvalidLayout, i)
		}
	}
	return nil
}

// ParseZone parses a pixel list such as "0-7" or "0,2,4-6".
func ParseZone(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("%w: bad zone %q", ErrInvalidLayout, s)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("%w: bad zone %q", ErrInvalidLayout, s)
			}
		}
		if from < 0 || to < from {
			return nil, fmt.Errorf("%w: bad range %q", ErrInvalidLayout, part)
		}
		if to >= MaxPixels {
			return nil, fmt.Errorf("%w: pixel %d beyond %d", ErrInvalidLayout, to, MaxPixels-1)
		}
		out = append(out, span(from, to)...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty zone", ErrInvalidLayout)
	}
	return out, nil
}
