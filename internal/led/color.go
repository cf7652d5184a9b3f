package led

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is one pixel in strip order-independent form.
type RGB struct {
	R, G, B uint8
}

// ColorCode is an HTML colour code, 0xRRGGBB.
type ColorCode uint32

const (
	Black      ColorCode = 0x000000
	White      ColorCode = 0xFFFFFF
	Red        ColorCode = 0xFF0000
	DarkRed    ColorCode = 0x8B0000
	OrangeRed  ColorCode = 0xFF4500
	DarkOrange ColorCode = 0xFF8C00
	Orange     ColorCode = 0xFFA500
	Gold       ColorCode = 0xFFD700
	Yellow     ColorCode = 0xFFFF00
	Lime       ColorCode = 0x00FF00
	Green      ColorCode = 0x008000
	Blue       ColorCode = 0x0000FF
	Amethyst   ColorCode = 0x9966CC
)

var colorNames = map[string]ColorCode{
	"black":      Black,
	"white":      White,
	"red":        Red,
	"darkred":    DarkRed,
	"orangered":  OrangeRed,
	"darkorange": DarkOrange,
	"orange":     Orange,
	"gold":       Gold,
	"yellow":     Yellow,
	"lime":       Lime,
	"green":      Green,
	"blue":       Blue,
	"amethyst":   Amethyst,
}

func (c ColorCode) RGB() RGB {
	return RGB{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c)}
}

func (c ColorCode) String() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xFFFFFF)
}

func (c RGB) Code() ColorCode {
	return ColorCode(c.R)<<16 | ColorCode(c.G)<<8 | ColorCode(c.B)
}

func (c RGB) String() string {
	return c.Code().String()
}

// ParseColor accepts an HTML colour name, "#rrggbb" or "0xrrggbb".
func ParseColor(s string) (ColorCode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if code, ok := colorNames[strings.ReplaceAll(s, "_", "")]; ok {
		return code, nil
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(hex) != 6 {
		return Black, fmt.Errorf("unknown color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Black, fmt.Errorf("unknown color %q", s)
	}
	return ColorCode(v), nil
}

// scale8 scales c by (s+1)/256, so 255 keeps full value and 0 gives black.
func scale8(c, s uint8) uint8 {
	return uint8((uint16(c) * (1 + uint16(s))) >> 8)
}

func (c RGB) Scale(s uint8) RGB {
	return RGB{R: scale8(c.R, s), G: scale8(c.G, s), B: scale8(c.B, s)}
}

// hsv2rgb converts a hue at full saturation and value.
func hsv2rgb(hue uint8) RGB {
	h := int(hue)
	region := h / 43
	rem := (h - region*43) * 6
	q := uint8(255 - rem)
	t := uint8(rem)

	switch region {
	case 0:
		return RGB{255, t, 0}
	case 1:
		return RGB{q, 255, 0}
	case 2:
		return RGB{0, 255, t}
	case 3:
		return RGB{0, q, 255}
	case 4:
		return RGB{t, 0, 255}
	default:
		return RGB{255, 0, q}
	}
}
