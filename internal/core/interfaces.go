package core

import (
	"helmet-signal/internal/hardware"
	"helmet-signal/internal/led"
	"helmet-signal/internal/messaging"
	"helmet-signal/internal/types"
)

// MessagingClient defines the redis operations needed by both systems
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	PublishSignal(sig types.Signal) error
	PublishBrightness(value uint8, mode string) error
	SetLinkState(up bool) error
	SetBlinkerSwitch(state types.Blinker) error
	SetBrakeState(pressed bool) error
}

// Strip is the pixel output of the helmet
type Strip interface {
	Show(frame []led.RGB) error
	Close() error
}

// AmbientSensor samples the helmet's light sensor
type AmbientSensor interface {
	ReadAmbient() (int, error)
}

// SwitchIO defines the hardware I/O needed by BaseSystem
type SwitchIO interface {
	Initialize() error
	Cleanup()

	ReadDigitalInput(channel string) (bool, error)
	WriteDigitalOutput(channel string, value bool) error
	RegisterInputCallback(channel string, callback hardware.InputCallback)
}
