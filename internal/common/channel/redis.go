// internal/common/channel/redis.go
package channel

import (
	"context"
	"fmt"
	"sync"

	apperrors "resume-analyzer/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

const defaultBuffer = 100

// RedisBroker carries frames over Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	buffer int
}

func NewRedisBroker(client *redis.Client, buffer int) *RedisBroker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &RedisBroker{client: client, buffer: buffer}
}

// Publish sends payload to topic. Any transport failure is reported as
// CHANNEL_UNAVAILABLE.
func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return apperrors.NewChannelUnavailableError(topic, err)
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription, then streams
// payloads until ctx is cancelled or Close is called.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, apperrors.NewChannelUnavailableError(topic, fmt.Errorf("subscribe: %w", err))
	}

	sub := &redisSubscription{
		ps:   ps,
		out:  make(chan []byte, b.buffer),
		stop: make(chan struct{}),
	}
	go sub.forward(ctx, ps.Channel(redis.WithChannelSize(b.buffer)))
	return sub, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (b *RedisBroker) Close() error {
	return nil
}

type redisSubscription struct {
	ps        *redis.PubSub
	out       chan []byte
	stop      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) forward(ctx context.Context, in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}
}

func (s *redisSubscription) C() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.ps.Close()
	})
	return err
}
