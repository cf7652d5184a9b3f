package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"helmet-signal/internal/logger"
	"helmet-signal/internal/types"
)

// Status hashes. Each node owns one and publishes the changed field name
// on a channel of the same name.
const (
	HashHelmet = "helmet"
	HashBase   = "helmet-base"

	KeyAnimation = "helmet:animation"
	KeySignal    = "helmet:signal"
)

type Callbacks struct {
	BrightnessCallback func(string) error // "auto" or "0".."255"
	AnimationCallback  func(string) error // "cylon", "off", "color:<zone>=<color>"
	SignalCallback     func(string) error // signal name, e.g. "left+brake"
}

type RedisClient struct {
	client    *redis.Client
	hash      string
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewRedisClient creates a client publishing to the given status hash.
func NewRedisClient(addr, hash string, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		hash:      hash,
		callbacks: callbacks,
		logger:    l.WithTag("redis"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")

	if r.callbacks.BrightnessCallback == nil {
		return nil
	}
	// restore a manual brightness that survived a restart
	mode, err := r.GetHashField(r.hash, "brightness:mode")
	if err != nil {
		r.logger.Warnf("Failed to get initial brightness mode: %v", err)
		return nil
	}
	if mode != "manual" {
		return nil
	}
	value, err := r.GetHashField(r.hash, "brightness")
	if err != nil || value == "" {
		return nil
	}
	r.logger.Infof("Restoring manual brightness %s", value)
	if err := r.handleBrightnessCommand(value); err != nil {
		r.logger.Warnf("Failed to restore brightness: %v", err)
	}
	return nil
}

// BrightnessKey is the command list for brightness requests to this node.
func (r *RedisClient) BrightnessKey() string {
	return r.hash + ":brightness"
}

// StartListening starts a list listener for every registered callback.
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	listeners := []struct {
		key     string
		cb      func(string) error
		handler func(string) error
	}{
		{r.BrightnessKey(), r.callbacks.BrightnessCallback, r.handleBrightnessCommand},
		{KeyAnimation, r.callbacks.AnimationCallback, r.handleAnimationCommand},
		{KeySignal, r.callbacks.SignalCallback, r.handleSignalCommand},
	}
	for _, l := range listeners {
		if l.cb == nil {
			continue
		}
		r.wg.Add(1)
		go r.listCommandListener(l.key, l.handler)
	}
	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debugf("Context cancelled, exiting %s listener", key)
			return
		default:
		}

		// short BRPOP timeout so cancellation is noticed
		result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				r.logger.Debugf("Context cancelled, exiting %s listener", key)
				return
			}
			r.logger.Warnf("Error reading from %s list: %v", key, err)
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if len(result) >= 2 { // BRPOP returns [key, value]
			value := result[1]
			r.logger.Debugf("Received command from %s: %s", key, value)
			if err := handler(value); err != nil {
				r.logger.Warnf("Error handling %s command: %v", key, err)
			}
		}
	}
}

func (r *RedisClient) handleBrightnessCommand(value string) error {
	if r.callbacks.BrightnessCallback == nil {
		return nil
	}
	if value != "auto" {
		if n, err := strconv.Atoi(value); err != nil || n < 0 || n > 255 {
			return fmt.Errorf("invalid brightness command: %s", value)
		}
	}
	return r.callbacks.BrightnessCallback(value)
}

func (r *RedisClient) handleAnimationCommand(value string) error {
	if r.callbacks.AnimationCallback == nil {
		return nil
	}
	switch {
	case value == "cylon", value == "off":
	case strings.HasPrefix(value, "color:") && strings.Contains(value, "="):
	default:
		return fmt.Errorf("invalid animation command: %s", value)
	}
	return r.callbacks.AnimationCallback(value)
}

func (r *RedisClient) handleSignalCommand(value string) error {
	if r.callbacks.SignalCallback == nil {
		return nil
	}
	if _, err := types.ParseSignal(value); err != nil {
		return fmt.Errorf("invalid signal command: %w", err)
	}
	return r.callbacks.SignalCallback(value)
}

// publishHashSet atomically updates a hash field and publishes a notification
func (r *RedisClient) publishHashSet(hash, field string, value interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, field, value)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

func (r *RedisClient) PublishSignal(sig types.Signal) error {
	r.logger.Debugf("Publishing signal: %s", sig)
	if err := r.publishHashSet(r.hash, "signal", sig.String(), r.hash, "signal"); err != nil {
		r.logger.Warnf("Failed to publish signal: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) PublishBrightness(value uint8, mode string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, r.hash, "brightness", int(value))
	pipe.HSet(r.ctx, r.hash, "brightness:mode", mode)
	pipe.Publish(r.ctx, r.hash, "brightness")
	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to publish brightness: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) SetLinkState(up bool) error {
	state := "down"
	if up {
		state = "up"
	}
	r.logger.Debugf("Setting link state: %s", state)

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, r.hash, "link", state)
	pipe.HSet(r.ctx, r.hash, "link:timestamp", time.Now().Format(time.RFC3339))
	pipe.Publish(r.ctx, r.hash, "link")
	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to set link state: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) SetBlinkerSwitch(state types.Blinker) error {
	r.logger.Debugf("Setting blinker switch: %s", state)
	if err := r.publishHashSet(r.hash, "blinker:switch", string(state), r.hash, "blinker:switch"); err != nil {
		r.logger.Warnf("Failed to set blinker switch: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) SetBrakeState(isPressed bool) error {
	state := "off"
	if isPressed {
		state = "on"
	}
	if err := r.publishHashSet(r.hash, "brake", state, r.hash, "brake"); err != nil {
		r.logger.Warnf("Failed to set brake state: %v", err)
		return err
	}
	return nil
}

// GetHashField reads a field from a Redis hash using HGET
func (r *RedisClient) GetHashField(hash, field string) (string, error) {
	value, err := r.client.HGet(r.ctx, hash, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get hash field %s from %s: %w", field, hash, err)
	}
	return value, nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Debugf("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Warnf("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
