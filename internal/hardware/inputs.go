package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"helmet-signal/internal/logger"
)

type InputCallback func(channel string, value bool) error

// SwitchConfig maps the handlebar switches onto GPIO lines of one chip.
type SwitchConfig struct {
	Chip      string
	Inputs    map[string]int
	Indicator int // -1 disables the pilot lamp
	ActiveLow bool
	Debounce  time.Duration
}

func DefaultSwitchConfig() SwitchConfig {
	inputs := make(map[string]int, len(DefaultInputLines))
	for name, offset := range DefaultInputLines {
		inputs[name] = offset
	}
	return SwitchConfig{
		Chip:      DefaultGpioChip,
		Inputs:    inputs,
		Indicator: DefaultIndicatorLine,
		ActiveLow: true,
		Debounce:  DefaultDebounce,
	}
}

// SwitchInputs watches the base unit's switches and drives its pilot lamp.
type SwitchInputs struct {
	logger         *logger.Logger
	cfg            SwitchConfig
	chip           *gpiocdev.Chip
	inputs         map[string]*gpiocdev.Line
	outputs        map[string]*gpiocdev.Line
	names          map[int]string
	inputCallbacks map[string]InputCallback
	mu             sync.RWMutex
}

func NewSwitchInputs(cfg SwitchConfig, l *logger.Logger) *SwitchInputs {
	names := make(map[int]string, len(cfg.Inputs))
	for name, offset := range cfg.Inputs {
		names[offset] = name
	}
	return &SwitchInputs{
		logger:         l.WithTag("gpio"),
		cfg:            cfg,
		inputs:         make(map[string]*gpiocdev.Line),
		outputs:        make(map[string]*gpiocdev.Line),
		names:          names,
		inputCallbacks: make(map[string]InputCallback),
	}
}

func (s *SwitchInputs) Initialize() error {
	s.logger.Infof("Initializing switch inputs on %s", s.cfg.Chip)

	chip, err := gpiocdev.NewChip(s.cfg.Chip, gpiocdev.WithConsumer("helmet-base"))
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %s: %w", s.cfg.Chip, err)
	}
	s.chip = chip

	for name, offset := range s.cfg.Inputs {
		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsInput,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(s.handleEvent),
		}
		if s.cfg.ActiveLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		if s.cfg.Debounce > 0 {
			opts = append(opts, gpiocdev.WithDebounce(s.cfg.Debounce))
		}
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			s.Cleanup()
			return fmt.Errorf("failed to request GPIO line %d (%s): %w", offset, name, err)
		}
		s.mu.Lock()
		s.inputs[name] = line
		s.mu.Unlock()
		s.logger.Infof("Configured DI %s: line=%d", name, offset)
	}

	if s.cfg.Indicator >= 0 {
		line, err := chip.RequestLine(s.cfg.Indicator, gpiocdev.AsOutput(0))
		if err != nil {
			s.Cleanup()
			return fmt.Errorf("failed to request GPIO line %d (%s): %w", s.cfg.Indicator, OutputIndicator, err)
		}
		s.mu.Lock()
		s.outputs[OutputIndicator] = line
		s.mu.Unlock()
		s.logger.Infof("Configured DO %s: line=%d", OutputIndicator, s.cfg.Indicator)
	}
	return nil
}

func (s *SwitchInputs) handleEvent(evt gpiocdev.LineEvent) {
	s.mu.RLock()
	channel, known := s.names[evt.Offset]
	callback, exists := s.inputCallbacks[channel]
	s.mu.RUnlock()

	if !known {
		s.logger.Debugf("Event on unmapped line %d", evt.Offset)
		return
	}
	value := evt.Type == gpiocdev.LineEventRisingEdge
	s.logger.Debugf("Input %s=%v (seq %d)", channel, value, evt.Seqno)

	if !exists {
		s.logger.Debugf("No callback registered for channel: %s", channel)
		return
	}
	if err := callback(channel, value); err != nil {
		s.logger.Errorf("Error in callback for %s: %v", channel, err)
	}
}

func (s *SwitchInputs) RegisterInputCallback(channel string, callback InputCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputCallbacks[channel] = callback
	s.logger.Debugf("Registered callback for channel: %s", channel)
}

// ReadDigitalInput returns the logical (active-low corrected) switch level.
func (s *SwitchInputs) ReadDigitalInput(channel string) (bool, error) {
	s.mu.RLock()
	line, ok := s.inputs[channel]
	s.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("unknown input channel: %s", channel)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read DI %s: %w", channel, err)
	}
	return v == 1, nil
}

func (s *SwitchInputs) WriteDigitalOutput(channel string, value bool) error {
	s.mu.RLock()
	line, ok := s.outputs[channel]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown digital output channel: %s", channel)
	}

	val := 0
	if value {
		val = 1
	}
	if err := line.SetValue(val); err != nil {
		return fmt.Errorf("failed to set DO %s=%v: %w", channel, value, err)
	}
	return nil
}

func (s *SwitchInputs) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, line := range s.inputs {
		line.Close()
		delete(s.inputs, name)
	}
	for name, line := range s.outputs {
		line.SetValue(0)
		line.Close()
		delete(s.outputs, name)
	}
	if s.chip != nil {
		s.chip.Close()
		s.chip = nil
	}
	s.logger.Infof("GPIO cleanup complete")
}
