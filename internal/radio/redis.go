package radio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"helmet-signal/internal/logger"
	"helmet-signal/internal/metrics"
	"helmet-signal/internal/protocol"
)

// RedisLink emulates the mesh over redis pub/sub for bench setups. Each
// node listens on its own channel.
type RedisLink struct {
	client  *redis.Client
	pubsub  *redis.PubSub
	node    uint16
	logger  *logger.Logger
	frames  chan protocol.Frame
	corrupt atomic.Uint64
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Channel is the pub/sub channel a node listens on.
func Channel(node uint16) string {
	return "rf24:" + protocol.FormatAddress(node)
}

func OpenRedis(addr string, node uint16, l *logger.Logger) (*RedisLink, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RedisLink{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: 0}),
		node:   node,
		logger: l.WithTag("link"),
		frames: make(chan protocol.Frame, frameQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		cancel()
		r.client.Close()
		return nil, fmt.Errorf("redis link connection failed: %w", err)
	}

	r.pubsub = r.client.Subscribe(ctx, Channel(node))
	r.logger.Infof("Listening for frames on %s", Channel(node))
	r.wg.Add(1)
	go r.listen()
	return r, nil
}

func (r *RedisLink) listen() {
	defer r.wg.Done()
	ch := r.pubsub.Channel()
	for {
		select {
		case <-r.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				r.logger.Warnf("Redis link channel closed")
				return
			}
			f, err := protocol.ParseFrame([]byte(msg.Payload))
			if err != nil {
				r.corrupt.Add(1)
				metrics.FrameDropped("malformed")
				r.logger.Debugf("Dropping malformed frame: %v", err)
				r.logger.DebugHex("rx", []byte(msg.Payload))
				continue
			}
			enqueue(r.frames, f)
		}
	}
}

func (r *RedisLink) Send(ctx context.Context, f protocol.Frame) error {
	raw, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode frame %s: %w", f.Header, err)
	}
	if err := r.client.Publish(ctx, Channel(f.Header.ToNode), raw).Err(); err != nil {
		return fmt.Errorf("failed to publish frame %s: %w", f.Header, err)
	}
	return nil
}

func (r *RedisLink) Frames() <-chan protocol.Frame {
	return r.frames
}

func (r *RedisLink) Errors() uint64 {
	return r.corrupt.Load()
}

func (r *RedisLink) Close() error {
	r.cancel()
	r.pubsub.Close()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	closeWithTimeout(done, r.logger, "redis link listener")
	return r.client.Close()
}
