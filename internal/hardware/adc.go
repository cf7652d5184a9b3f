package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// readAdcValue reads one raw sample from a sysfs IIO ADC channel.
func readAdcValue(root, device string, channel int) (int, error) {
	path := filepath.Join(root, device, fmt.Sprintf("in_voltage%d_raw", channel))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return -1, fmt.Errorf("ADC sysfs not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("failed reading %s: %w", path, err)
	}

	var value int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &value); err != nil {
		return -1, fmt.Errorf("failed parsing ADC value: %w", err)
	}
	return value, nil
}

func InRange(v, min, max int) bool {
	return v >= min && v <= max
}

// AmbientSensor is the light sensor on the helmet shell.
type AmbientSensor struct {
	root    string
	device  string
	channel int
}

func NewAmbientSensor(device string, channel int) *AmbientSensor {
	return &AmbientSensor{root: IIODevicesDir, device: device, channel: channel}
}

// ReadAmbient returns a raw sample. Values outside the converter's
// 16-bit range mean a misread and are returned as errors.
func (s *AmbientSensor) ReadAmbient() (int, error) {
	v, err := readAdcValue(s.root, s.device, s.channel)
	if err != nil {
		return -1, err
	}
	if !InRange(v, 0, adcMaxRaw) {
		return -1, fmt.Errorf("ADC %s channel %d out of range: %d", s.device, s.channel, v)
	}
	return v, nil
}

// MapBrightness maps a raw ADC reading linearly onto [outMin, outMax].
// Readings outside [adcMin, adcMax] are clamped. More light gives a
// brighter strip.
func MapBrightness(raw, adcMin, adcMax int, outMin, outMax uint8) uint8 {
	if adcMax <= adcMin {
		return outMax
	}
	if raw < adcMin {
		raw = adcMin
	} else if raw > adcMax {
		raw = adcMax
	}
	span := int(outMax) - int(outMin)
	return uint8(int(outMin) + (raw-adcMin)*span/(adcMax-adcMin))
}
