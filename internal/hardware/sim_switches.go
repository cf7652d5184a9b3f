package hardware

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"helmet-signal/internal/logger"
)

// SimSwitches stands in for SwitchInputs when no GPIO chip is present.
// Set drives an edge the same way a line event would.
type SimSwitches struct {
	logger    *logger.Logger
	mu        sync.RWMutex
	levels    map[string]bool
	outputs   map[string]bool
	callbacks map[string]InputCallback
}

func NewSimSwitches(l *logger.Logger) *SimSwitches {
	levels := make(map[string]bool, len(DefaultInputLines))
	for name := range DefaultInputLines {
		levels[name] = false
	}
	return &SimSwitches{
		logger:    l.WithTag("sim-gpio"),
		levels:    levels,
		outputs:   map[string]bool{OutputIndicator: false},
		callbacks: make(map[string]InputCallback),
	}
}

func (s *SimSwitches) Initialize() error {
	s.logger.Infof("Using simulated switches")
	return nil
}

func (s *SimSwitches) Cleanup() {}

func (s *SimSwitches) RegisterInputCallback(channel string, callback InputCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[channel] = callback
}

func (s *SimSwitches) ReadDigitalInput(channel string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.levels[channel]
	if !ok {
		return false, fmt.Errorf("unknown input channel: %s", channel)
	}
	return v, nil
}

func (s *SimSwitches) WriteDigitalOutput(channel string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.outputs[channel]; !ok {
		return fmt.Errorf("unknown digital output channel: %s", channel)
	}
	s.outputs[channel] = value
	return nil
}

// Output returns the last value written to an output channel.
func (s *SimSwitches) Output(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputs[channel]
}

// Set changes a switch level and fires its callback if the level changed.
func (s *SimSwitches) Set(channel string, value bool) error {
	s.mu.Lock()
	prev, ok := s.levels[channel]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown input channel: %s", channel)
	}
	s.levels[channel] = value
	callback := s.callbacks[channel]
	s.mu.Unlock()

	if prev == value || callback == nil {
		return nil
	}
	return callback(channel, value)
}

// Command applies one "<channel> on|off" line, e.g. "brake on".
func (s *SimSwitches) Command(line string) error {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return fmt.Errorf("expected \"<channel> on|off\", got %q", line)
	}
	var value bool
	switch strings.ToLower(fields[1]) {
	case "on", "1", "true":
		value = true
	case "off", "0", "false":
	default:
		return fmt.Errorf("invalid switch level: %s", fields[1])
	}
	return s.Set(fields[0], value)
}

// RunConsole reads commands from r until EOF.
func (s *SimSwitches) RunConsole(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.Command(line); err != nil {
			s.logger.Warnf("%v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warnf("Console read failed: %v", err)
	}
}
