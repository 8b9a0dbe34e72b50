package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Transport carries serialized invalidation events between execution
// contexts. The broadcaster owns serialization; the transport only moves
// bytes.
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context, receive func(payload []byte)) error
	Close() error
}

// RedisTransport relays events over a Redis pub/sub channel.
type RedisTransport struct {
	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
}

// NewRedisTransport creates a transport publishing on the given channel.
func NewRedisTransport(client *redis.Client, channel string) *RedisTransport {
	return &RedisTransport{client: client, channel: channel}
}

func (t *RedisTransport) Publish(ctx context.Context, payload []byte) error {
	if err := t.client.Publish(ctx, t.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to channel %q: %w", t.channel, err)
	}
	return nil
}

// Subscribe confirms the subscription, then consumes messages on a
// background goroutine until ctx is cancelled.
func (t *RedisTransport) Subscribe(ctx context.Context, receive func(payload []byte)) error {
	t.pubsub = t.client.Subscribe(ctx, t.channel)
	if _, err := t.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to channel %q: %w", t.channel, err)
	}

	ch := t.pubsub.Channel()
	go func() {
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				receive([]byte(msg.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (t *RedisTransport) Close() error {
	if t.pubsub != nil {
		return t.pubsub.Close()
	}
	return nil
}

// NoopTransport is used by single-process deployments: local dispatch
// still works, nothing leaves the process.
type NoopTransport struct{}

func (NoopTransport) Publish(context.Context, []byte) error { return nil }

func (NoopTransport) Subscribe(context.Context, func([]byte)) error { return nil }

func (NoopTransport) Close() error { return nil }
