package led

import (
	"fmt"
	"time"

	"helmet-signal/internal/logger"
	"helmet-signal/internal/types"
)

// Settings are the tunables the animator can swap at runtime.
type Settings struct {
	Layout        Layout
	TurnColor     ColorCode
	BrakeColor    ColorCode
	BlinkInterval time.Duration
	CylonInterval time.Duration
}

func DefaultSettings(n int) Settings {
	return Settings{
		Layout:        DefaultLayout(n),
		TurnColor:     Orange,
		BrakeColor:    Red,
		BlinkInterval: 400 * time.Millisecond,
		CylonInterval: 20 * time.Millisecond,
	}
}

func (s Settings) Validate(n int) error {
	if err := s.Layout.Validate(n); err != nil {
		return err
	}
	if s.BlinkInterval <= 0 || s.CylonInterval <= 0 {
		return fmt.Errorf("animation intervals must be positive")
	}
	return nil
}

// forceRedraw is never a valid signal, so the next Render treats the
// state as changed.
const forceRedraw types.Signal = 0xFF

// Animator renders the signal state onto a Strip. It is driven from a
// single goroutine.
type Animator struct {
	strip    *Strip
	settings Settings
	logger   *logger.Logger

	active     types.Signal
	leftState  bool
	rightState bool
	lastBlink  time.Time

	cylonPos  int
	cylonUp   bool
	hue       uint8
	lastCylon time.Time
	noSweep   bool
}

func NewAnimator(strip *Strip, settings Settings, l *logger.Logger) (*Animator, error) {
	if err := settings.Validate(strip.Len()); err != nil {
		return nil, err
	}
	return &Animator{
		strip:    strip,
		settings: settings,
		logger:   l.WithTag("anim"),
		active:   forceRedraw,
		cylonUp:  true,
	}, nil
}

func (a *Animator) Strip() *Strip {
	return a.strip
}

func (a *Animator) Settings() Settings {
	return a.settings
}

// Apply swaps the settings and forces a full redraw on the next Render.
func (a *Animator) Apply(settings Settings) error {
	if err := settings.Validate(a.strip.Len()); err != nil {
		return err
	}
	a.settings = settings
	a.active = forceRedraw
	a.logger.Debugf("Settings applied: turn=%s brake=%s blink=%s cylon=%s",
		settings.TurnColor, settings.BrakeColor, settings.BlinkInterval, settings.CylonInterval)
	return nil
}

func (a *Animator) Left() {
	a.strip.Fill(a.settings.Layout.Left, a.settings.TurnColor.RGB())
}

func (a *Animator) Right() {
	a.strip.Fill(a.settings.Layout.Right, a.settings.TurnColor.RGB())
}

// Brake lights the brake zone and every pixel not held by an active
// turn indicator.
func (a *Animator) Brake() {
	held := make(map[int]bool)
	if a.active != forceRedraw {
		if a.active.Left() {
			for _, i := range a.settings.Layout.Left {
				held[i] = true
			}
		}
		if a.active.Right() {
			for _, i := range a.settings.Layout.Right {
				held[i] = true
			}
		}
	}
	c := a.settings.BrakeColor.RGB()
	a.strip.Fill(a.settings.Layout.Brake, c)
	for i := 0; i < a.strip.Len(); i++ {
		if !held[i] {
			a.strip.Set(i, c)
		}
	}
}

// SetSweep enables or disables the idle sweep. With the sweep off the
// strip stays dark while no signal is active.
func (a *Animator) SetSweep(on bool) {
	if a.noSweep != on {
		return
	}
	a.noSweep = !on
	a.active = forceRedraw
}

// DoSignal flips the blink phase of one side and paints it.
func (a *Animator) DoSignal(side []int, sideState *bool) {
	*sideState = !*sideState
	a.paintSide(side, *sideState)
	a.logger.Debugf("Side %v phase %v", side, *sideState)
}

func (a *Animator) paintSide(side []int, on bool) {
	if on {
		a.strip.Fill(side, a.settings.TurnColor.RGB())
		return
	}
	a.strip.Fill(side, RGB{})
}

// CylonStep returns the pixel after i, reversing direction at either end.
func (a *Animator) CylonStep(i int) int {
	n := a.strip.Len()
	if n <= 1 {
		return 0
	}
	if i < 0 {
		i = 0
	} else if i > n-1 {
		i = n - 1
	}
	if a.cylonUp {
		if i >= n-1 {
			a.cylonUp = false
			return n - 2
		}
		return i + 1
	}
	if i <= 0 {
		a.cylonUp = true
		return 1
	}
	return i - 1
}

// Cylon advances the idle sweep by one pixel.
func (a *Animator) Cylon(countUp bool) {
	a.cylonUp = countUp
	a.strip.FadeAll()
	a.strip.Set(a.cylonPos, hsv2rgb(a.hue))
	a.hue++
	a.cylonPos = a.CylonStep(a.cylonPos)
}

// Render draws sig for time now and reports whether the buffer changed.
func (a *Animator) Render(sig types.Signal, now time.Time) bool {
	prev := a.active
	a.active = sig
	if sig == types.SignalOff {
		return a.renderIdle(prev, now)
	}

	toggle := false
	if sig.Turning() {
		if prev == forceRedraw || sig&types.SignalHazard != prev&types.SignalHazard {
			// restart both phases so the first flash is immediate and in sync
			a.leftState, a.rightState = false, false
			toggle = true
		} else if now.Sub(a.lastBlink) >= a.settings.BlinkInterval {
			toggle = true
		}
	}
	if !toggle && sig == prev {
		return false
	}

	a.strip.Clear()
	if sig.Braking() {
		a.Brake()
	}
	if toggle {
		a.lastBlink = now
	}
	layout := a.settings.Layout
	if sig.Left() {
		if toggle {
			a.DoSignal(layout.Left, &a.leftState)
		} else {
			a.paintSide(layout.Left, a.leftState)
		}
	}
	if sig.Right() {
		if toggle {
			a.DoSignal(layout.Right, &a.rightState)
		} else {
			a.paintSide(layout.Right, a.rightState)
		}
	}
	return true
}

func (a *Animator) renderIdle(prev types.Signal, now time.Time) bool {
	changed := false
	if prev != types.SignalOff {
		a.strip.Clear()
		a.cylonPos, a.cylonUp = 0, true
		a.lastCylon = time.Time{}
		changed = true
	}
	if a.noSweep {
		return changed
	}
	if a.lastCylon.IsZero() || now.Sub(a.lastCylon) >= a.settings.CylonInterval {
		a.Cylon(a.cylonUp)
		a.lastCylon = now
		return true
	}
	return changed
}

// BlinkPhase reports the current phase of the left and right sides.
func (a *Animator) BlinkPhase() (left, right bool) {
	return a.leftState, a.rightState
}
