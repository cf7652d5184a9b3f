package messaging

import "helmet-signal/internal/types"

// Nop stands in for RedisClient when no redis address is configured.
type Nop struct{}

func (Nop) SetCallbacks(Callbacks) {}
func (Nop) Connect() error { return nil }
func (Nop) StartListening() error { return nil }
func (Nop) PublishSignal(types.Signal) error { return nil }
func (Nop) PublishBrightness(uint8, string) error { return nil }
func (Nop) SetLinkState(bool) error { return nil }
func (Nop) SetBlinkerSwitch(types.Blinker) error { return nil }
func (Nop) SetBrakeState(bool) error { return nil }
func (Nop) Close() error { return nil }
