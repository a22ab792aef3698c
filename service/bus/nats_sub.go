package bus

import (
	"context"
	"strings"
	"time"

	"PRelay/logger"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// NatsSubscriber is the alternate bus backend for deployments whose
// persistence tier publishes over NATS instead of redis. Core-mode
// subscriptions only: the relay is ephemeral fan-out, so no JetStream
// durability is wanted here.
type NatsSubscriber struct {
	nc   *nats.Conn
	subs []*nats.Subscription
}

func NewNatsSubscriber(servers []string, name string) (*NatsSubscriber, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
	}
	nc, err := nats.Connect(strings.Join(servers, ","), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &NatsSubscriber{nc: nc}, nil
}

func (s *NatsSubscriber) Subscribe(ctx context.Context, channels []string, h Handler) error {
	if len(channels) == 0 {
		return errors.New("no channels to subscribe")
	}
	for _, channel := range channels {
		sub, err := s.nc.Subscribe(channel, func(m *nats.Msg) {
			dispatchRaw(channel, append([]byte(nil), m.Data...), h)
		})
		if err != nil {
			return errors.Wrapf(err, "nats subscribe %s", channel)
		}
		_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
		s.subs = append(s.subs, sub)
	}
	logger.Infof("[bus] subscribed to nats subjects %v", channels)
	return nil
}

func (s *NatsSubscriber) Close() error {
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	if s.nc != nil {
		return s.nc.Drain()
	}
	return nil
}
