package hardware

import "time"

// Switch channels on the base unit. Input callbacks are keyed by these names.
const (
	InputBlinkerLeft  = "blinker_left"
	InputBlinkerRight = "blinker_right"
	InputBrake        = "brake"
	InputHazard       = "hazard"

	OutputIndicator = "indicator"
)

// DefaultInputLines are the BCM line offsets on gpiochip0 of a Raspberry Pi
// base unit.
var DefaultInputLines = map[string]int{
	InputBlinkerLeft:  17,
	InputBlinkerRight: 27,
	InputBrake:        22,
	InputHazard:       23,
}

const (
	DefaultGpioChip      = "gpiochip0"
	DefaultIndicatorLine = 24
	DefaultDebounce      = 20 * time.Millisecond

	IIODevicesDir = "/sys/bus/iio/devices"
	adcMaxRaw     = 1<<16 - 1

	// WS2812 over SPI: three SPI bits per data bit at 2.4 MHz gives the
	// 1.25 us bit period the pixels expect.
	spiSpeedHz     = 2400000
	spiBitsPerWord = 8
	spiMode        = 0

	// 16 zero bytes hold the line low for ~53 us, enough for the latch.
	ws2812LatchBytes = 16
)

// spidev ioctl requests, _IOW('k', nr, size).
const (
	spiIocWrMode        = 0x40016b01
	spiIocWrBitsPerWord = 0x40016b03
	spiIocWrMaxSpeedHz  = 0x40046b04
)
