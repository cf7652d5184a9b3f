package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"helmet-signal/internal/hardware"
	"helmet-signal/internal/led"
	"helmet-signal/internal/logger"
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/radio"
)

// SimDevice selects the in-memory strip instead of spidev.
const SimDevice = "sim"

// HelmetOptions - flat structure with toml mapping. Field names map to
// flag names, so StripDevice is --strip-device.
type HelmetOptions struct {
	Config string `help:"Path to TOML config file"`

	Log      string `toml:"log.level" env:"LOG_LEVEL" help:"Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG, or a level name)"`
	Debug    bool   `toml:"log.debug" env:"DEBUG" help:"Same as --log 4"`
	Simulate bool   `help:"Run against a simulated base and an in-memory strip"`

	NodeAddress string `toml:"node.address" env:"NODE_ADDRESS"`
	NodeBase    string `toml:"node.base" env:"NODE_BASE"`

	StripCount  int    `toml:"strip.count" env:"STRIP_COUNT"`
	StripDevice string `toml:"strip.device" env:"STRIP_DEVICE"`
	StripLeft   string `toml:"strip.left" env:"STRIP_LEFT"`
	StripBrake  string `toml:"strip.brake" env:"STRIP_BRAKE"`
	StripRight  string `toml:"strip.right" env:"STRIP_RIGHT"`

	AnimationTurnColor     string        `toml:"animation.turn_color" env:"ANIMATION_TURN_COLOR"`
	AnimationBrakeColor    string        `toml:"animation.brake_color" env:"ANIMATION_BRAKE_COLOR"`
	AnimationBlinkInterval time.Duration `toml:"animation.blink_interval" env:"ANIMATION_BLINK_INTERVAL"`
	AnimationCylonInterval time.Duration `toml:"animation.cylon_interval" env:"ANIMATION_CYLON_INTERVAL"`
	AnimationFrameInterval time.Duration `toml:"animation.frame_interval" env:"ANIMATION_FRAME_INTERVAL"`

	BrightnessAdcDevice  string        `toml:"brightness.adc_device" env:"BRIGHTNESS_ADC_DEVICE"`
	BrightnessAdcChannel int           `toml:"brightness.adc_channel" env:"BRIGHTNESS_ADC_CHANNEL"`
	BrightnessAdcMin     int           `toml:"brightness.adc_min" env:"BRIGHTNESS_ADC_MIN"`
	BrightnessAdcMax     int           `toml:"brightness.adc_max" env:"BRIGHTNESS_ADC_MAX"`
	BrightnessMin        int           `toml:"brightness.min" env:"BRIGHTNESS_MIN"`
	BrightnessMax        int           `toml:"brightness.max" env:"BRIGHTNESS_MAX"`
	BrightnessInterval   time.Duration `toml:"brightness.interval" env:"BRIGHTNESS_INTERVAL"`

	LinkKind    string        `toml:"link.kind" env:"LINK_KIND"`
	LinkPort    string        `toml:"link.port" env:"LINK_PORT"`
	LinkBaud    int           `toml:"link.baud" env:"LINK_BAUD"`
	LinkTimeout time.Duration `toml:"link.timeout" env:"LINK_TIMEOUT"`

	RedisAddr  string `toml:"redis.addr" env:"REDIS_ADDR"`
	HttpListen string `toml:"http.listen" env:"HTTP_LISTEN"`
}

func DefaultHelmetOptions() HelmetOptions {
	return HelmetOptions{
		Log:                    "info",
		NodeAddress:            "01",
		NodeBase:               "00",
		StripCount:             24,
		StripDevice:            "/dev/spidev0.0",
		StripLeft:              "0-7",
		StripBrake:             "8-15",
		StripRight:             "16-23",
		AnimationTurnColor:     "orange",
		AnimationBrakeColor:    "red",
		AnimationBlinkInterval: 400 * time.Millisecond,
		AnimationCylonInterval: 20 * time.Millisecond,
		AnimationFrameInterval: 10 * time.Millisecond,
		BrightnessAdcDevice:    "iio:device0",
		BrightnessAdcChannel:   0,
		BrightnessAdcMin:       0,
		BrightnessAdcMax:       4095,
		BrightnessMin:          16,
		BrightnessMax:          255,
		BrightnessInterval:     time.Second,
		LinkKind:               radio.KindSerial,
		LinkPort:               "/dev/ttyUSB0",
		LinkBaud:               115200,
		LinkTimeout:            2 * time.Second,
		RedisAddr:              "127.0.0.1:6379",
		HttpListen:             ":9110",
	}
}

// LogLevel folds --debug into the configured level.
func (o HelmetOptions) LogLevel() logger.LogLevel {
	return logLevel(o.Log, o.Debug)
}

func (o HelmetOptions) Addresses() (self, base uint16, err error) {
	if self, err = protocol.ParseAddress(o.NodeAddress); err != nil {
		return 0, 0, fmt.Errorf("%w: node.address: %v", ErrInvalid, err)
	}
	if base, err = protocol.ParseAddress(o.NodeBase); err != nil {
		return 0, 0, fmt.Errorf("%w: node.base: %v", ErrInvalid, err)
	}
	if self == base {
		return 0, 0, fmt.Errorf("%w: node.address and node.base are both %s", ErrInvalid, o.NodeAddress)
	}
	return self, base, nil
}

// AnimationSettings builds the animator settings from the strip and
// animation sections.
func (o HelmetOptions) AnimationSettings() (led.Settings, error) {
	var s led.Settings
	var err error
	if s.Layout.Left, err = led.ParseZone(o.StripLeft); err != nil {
		return s, fmt.Errorf("%w: strip.left: %v", ErrInvalid, err)
	}
	if s.Layout.Brake, err = led.ParseZone(o.StripBrake); err != nil {
		return s, fmt.Errorf("%w: strip.brake: %v", ErrInvalid, err)
	}
	if s.Layout.Right, err = led.ParseZone(o.StripRight); err != nil {
		return s, fmt.Errorf("%w: strip.right: %v", ErrInvalid, err)
	}
	if s.TurnColor, err = led.ParseColor(o.AnimationTurnColor); err != nil {
		return s, fmt.Errorf("%w: animation.turn_color: %v", ErrInvalid, err)
	}
	if s.BrakeColor, err = led.ParseColor(o.AnimationBrakeColor); err != nil {
		return s, fmt.Errorf("%w: animation.brake_color: %v", ErrInvalid, err)
	}
	s.BlinkInterval = o.AnimationBlinkInterval
	s.CylonInterval = o.AnimationCylonInterval
	if err := s.Validate(o.StripCount); err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s, nil
}

func (o HelmetOptions) LinkConfig() (radio.Config, error) {
	self, _, err := o.Addresses()
	if err != nil {
		return radio.Config{}, err
	}
	return linkConfig(o.LinkKind, o.LinkPort, o.LinkBaud, o.RedisAddr, self)
}

func (o HelmetOptions) Validate() error {
	if _, err := parseLogLevel(o.Log); err != nil {
		return err
	}
	if o.StripCount <= 0 || o.StripCount > led.MaxPixels {
		return fmt.Errorf("%w: strip.count %d out of range", ErrInvalid, o.StripCount)
	}
	if _, err := o.AnimationSettings(); err != nil {
		return err
	}
	if _, err := o.LinkConfig(); err != nil {
		return err
	}
	if o.AnimationFrameInterval <= 0 || o.BrightnessInterval <= 0 || o.LinkTimeout <= 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalid)
	}
	if o.BrightnessAdcMin >= o.BrightnessAdcMax {
		return fmt.Errorf("%w: brightness.adc_min must be below adc_max", ErrInvalid)
	}
	if o.BrightnessMin < 0 || o.BrightnessMax > 255 || o.BrightnessMin > o.BrightnessMax {
		return fmt.Errorf("%w: brightness range %d..%d", ErrInvalid, o.BrightnessMin, o.BrightnessMax)
	}
	return nil
}

// BaseOptions configure the handlebar unit.
type BaseOptions struct {
	Config string `help:"Path to TOML config file"`

	Log      string `toml:"log.level" env:"LOG_LEVEL" help:"Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG, or a level name)"`
	Debug    bool   `toml:"log.debug" env:"DEBUG" help:"Same as --log 4"`
	Simulate bool   `help:"Read switches from stdin and log frames instead of sending them"`

	NodeAddress string `toml:"node.address" env:"NODE_ADDRESS"`
	NodeHelmet  string `toml:"node.helmet" env:"NODE_HELMET"`

	InputsChip         string        `toml:"inputs.chip" env:"INPUTS_CHIP"`
	InputsBlinkerLeft  int           `toml:"inputs.blinker_left" env:"INPUTS_BLINKER_LEFT"`
	InputsBlinkerRight int           `toml:"inputs.blinker_right" env:"INPUTS_BLINKER_RIGHT"`
	InputsBrake        int           `toml:"inputs.brake" env:"INPUTS_BRAKE"`
	InputsHazard       int           `toml:"inputs.hazard" env:"INPUTS_HAZARD"`
	InputsIndicator    int           `toml:"inputs.indicator" env:"INPUTS_INDICATOR"`
	InputsActiveLow    bool          `toml:"inputs.active_low" env:"INPUTS_ACTIVE_LOW"`
	InputsDebounce     time.Duration `toml:"inputs.debounce" env:"INPUTS_DEBOUNCE"`

	HeartbeatInterval      time.Duration `toml:"heartbeat.interval" env:"HEARTBEAT_INTERVAL"`
	AnimationBlinkInterval time.Duration `toml:"animation.blink_interval" env:"ANIMATION_BLINK_INTERVAL"`

	LinkKind string `toml:"link.kind" env:"LINK_KIND"`
	LinkPort string `toml:"link.port" env:"LINK_PORT"`
	LinkBaud int    `toml:"link.baud" env:"LINK_BAUD"`

	RedisAddr  string `toml:"redis.addr" env:"REDIS_ADDR"`
	HttpListen string `toml:"http.listen" env:"HTTP_LISTEN"`
}

func DefaultBaseOptions() BaseOptions {
	sw := hardware.DefaultSwitchConfig()
	return BaseOptions{
		Log:                    "info",
		NodeAddress:            "00",
		NodeHelmet:             "01",
		InputsChip:             sw.Chip,
		InputsBlinkerLeft:      sw.Inputs[hardware.InputBlinkerLeft],
		InputsBlinkerRight:     sw.Inputs[hardware.InputBlinkerRight],
		InputsBrake:            sw.Inputs[hardware.InputBrake],
		InputsHazard:           sw.Inputs[hardware.InputHazard],
		InputsIndicator:        sw.Indicator,
		InputsActiveLow:        sw.ActiveLow,
		InputsDebounce:         sw.Debounce,
		HeartbeatInterval:      500 * time.Millisecond,
		AnimationBlinkInterval: 400 * time.Millisecond,
		LinkKind:               radio.KindSerial,
		LinkPort:               "/dev/ttyUSB0",
		LinkBaud:               115200,
		RedisAddr:              "127.0.0.1:6379",
		HttpListen:             ":9111",
	}
}

func (o BaseOptions) LogLevel() logger.LogLevel {
	return logLevel(o.Log, o.Debug)
}

func (o BaseOptions) Addresses() (self, helmet uint16, err error) {
	if self, err = protocol.ParseAddress(o.NodeAddress); err != nil {
		return 0, 0, fmt.Errorf("%w: node.address: %v", ErrInvalid, err)
	}
	if helmet, err = protocol.ParseAddress(o.NodeHelmet); err != nil {
		return 0, 0, fmt.Errorf("%w: node.helmet: %v", ErrInvalid, err)
	}
	if self == helmet {
		return 0, 0, fmt.Errorf("%w: node.address and node.helmet are both %s", ErrInvalid, o.NodeAddress)
	}
	return self, helmet, nil
}

func (o BaseOptions) SwitchConfig() hardware.SwitchConfig {
	return hardware.SwitchConfig{
		Chip: o.InputsChip,
		Inputs: map[string]int{
			hardware.InputBlinkerLeft:  o.InputsBlinkerLeft,
			hardware.InputBlinkerRight: o.InputsBlinkerRight,
			hardware.InputBrake:        o.InputsBrake,
			hardware.InputHazard:       o.InputsHazard,
		},
		Indicator: o.InputsIndicator,
		ActiveLow: o.InputsActiveLow,
		Debounce:  o.InputsDebounce,
	}
}

func (o BaseOptions) LinkConfig() (radio.Config, error) {
	self, _, err := o.Addresses()
	if err != nil {
		return radio.Config{}, err
	}
	return linkConfig(o.LinkKind, o.LinkPort, o.LinkBaud, o.RedisAddr, self)
}

func (o BaseOptions) Validate() error {
	if _, err := parseLogLevel(o.Log); err != nil {
		return err
	}
	if _, err := o.LinkConfig(); err != nil {
		return err
	}
	if o.HeartbeatInterval <= 0 || o.AnimationBlinkInterval <= 0 || o.InputsDebounce < 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalid)
	}
	seen := make(map[int]string)
	for name, offset := range o.SwitchConfig().Inputs {
		if offset < 0 {
			return fmt.Errorf("%w: inputs.%s line %d", ErrInvalid, name, offset)
		}
		if other, dup := seen[offset]; dup {
			return fmt.Errorf("%w: inputs.%s and inputs.%s share line %d", ErrInvalid, name, other, offset)
		}
		seen[offset] = name
	}
	if _, dup := seen[o.InputsIndicator]; dup {
		return fmt.Errorf("%w: inputs.indicator shares line %d with an input", ErrInvalid, o.InputsIndicator)
	}
	return nil
}

func linkConfig(kind, port string, baud int, redisAddr string, node uint16) (radio.Config, error) {
	switch kind {
	case radio.KindSerial:
		if port == "" || baud <= 0 {
			return radio.Config{}, fmt.Errorf("%w: serial link needs link.port and link.baud", ErrInvalid)
		}
	case radio.KindRedis:
		if redisAddr == "" {
			return radio.Config{}, fmt.Errorf("%w: redis link needs redis.addr", ErrInvalid)
		}
	case radio.KindSim:
	default:
		return radio.Config{}, fmt.Errorf("%w: unknown link.kind %q", ErrInvalid, kind)
	}
	return radio.Config{Kind: kind, Port: port, Baud: baud, RedisAddr: redisAddr, Node: node}, nil
}

// parseLogLevel accepts a numeric level from 0 to 4 or a name such as
// "warn".
func parseLogLevel(s string) (logger.LogLevel, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < int(logger.LogLevelNone) || n > int(logger.LogLevelDebug) {
			return logger.LogLevelInfo, fmt.Errorf("%w: log.level %d out of range", ErrInvalid, n)
		}
		return logger.LogLevel(n), nil
	}
	level, ok := logger.ParseLevel(s)
	if !ok {
		return logger.LogLevelInfo, fmt.Errorf("%w: unknown log.level %q", ErrInvalid, s)
	}
	return level, nil
}

// logLevel folds --debug into the configured level. Validate has already
// rejected bad names; they fall back to info here.
func logLevel(level string, debug bool) logger.LogLevel {
	if debug {
		return logger.LogLevelDebug
	}
	l, err := parseLogLevel(level)
	if err != nil {
		return logger.LogLevelInfo
	}
	return l
}
