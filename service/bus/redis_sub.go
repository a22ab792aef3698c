package bus

import (
	"context"

	"PRelay/logger"
	"PRelay/tools/safe"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisSubscriber consumes the fixed channel set over redis pub/sub.
// This is the default backend and matches the web application's
// broadcaster. One goroutine reads the pub/sub stream and dispatches
// synchronously, so per-channel order is exactly what redis delivered.
type RedisSubscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
}

func NewRedisSubscriber(client *redis.Client) *RedisSubscriber {
	return &RedisSubscriber{client: client}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, channels []string, h Handler) error {
	if len(channels) == 0 {
		return errors.New("no channels to subscribe")
	}
	ps := s.client.Subscribe(ctx, channels...)

	// force the initial SUBSCRIBE round-trip so an unreachable bus
	// fails here instead of silently consuming nothing
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return errors.Wrap(err, "redis subscribe")
	}
	s.pubsub = ps
	logger.Infof("[bus] subscribed to redis channels %v", channels)

	ch := ps.Channel()
	safe.Go(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					logger.Warn("[bus] redis pub/sub stream closed")
					return
				}
				dispatchRaw(m.Channel, []byte(m.Payload), h)
			}
		}
	})
	return nil
}

func (s *RedisSubscriber) Close() error {
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
