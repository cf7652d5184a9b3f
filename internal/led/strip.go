package led

// Strip is the frame buffer for an addressable LED strip.
// It is not safe for concurrent use.
type Strip struct {
	pixels     []RGB
	brightness uint8
}

const fadeScale = 250

func NewStrip(n int) *Strip {
	return &Strip{
		pixels:     make([]RGB, n),
		brightness: 255,
	}
}

func (s *Strip) Len() int {
	return len(s.pixels)
}

func (s *Strip) At(i int) RGB {
	if i < 0 || i >= len(s.pixels) {
		return RGB{}
	}
	return s.pixels[i]
}

func (s *Strip) Set(i int, c RGB) {
	if i < 0 || i >= len(s.pixels) {
		return
	}
	s.pixels[i] = c
}

// Fill sets the listed pixels. Out of range indices are ignored.
func (s *Strip) Fill(indices []int, c RGB) {
	for _, i := range indices {
		s.Set(i, c)
	}
}

func (s *Strip) SetAll(code ColorCode) {
	c := code.RGB()
	for i := range s.pixels {
		s.pixels[i] = c
	}
}

func (s *Strip) Clear() {
	s.SetAll(Black)
}

// FadeAll dims every pixel to 250/256 of its value.
func (s *Strip) FadeAll() {
	for i, p := range s.pixels {
		s.pixels[i] = p.Scale(fadeScale)
	}
}

func (s *Strip) SetBrightness(b uint8) {
	s.brightness = b
}

func (s *Strip) Brightness() uint8 {
	return s.brightness
}

// Frame returns a copy of the buffer with the global brightness applied.
func (s *Strip) Frame() []RGB {
	out := make([]RGB, len(s.pixels))
	for i, p := range s.pixels {
		out[i] = p.Scale(s.brightness)
	}
	return out
}
