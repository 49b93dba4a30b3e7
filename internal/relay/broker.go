// Package relay bridges websocket clients and a pub/sub broker. Each client
// is identified from its session cookie on upgrade and subscribed to the
// broadcast, user, group and session channels of the facility it connects
// to.
package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Subscription delivers the payloads published to a set of channels.
type Subscription interface {
	// Messages is closed when the subscription ends.
	Messages() <-chan []byte
	Close() error
}

// Broker publishes to and subscribes to named channels.
type Broker interface {
	// Subscribe returns once the broker has registered every channel, so
	// messages published afterwards are delivered.
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

const subscriptionBuffer = 64

// RedisBroker is a Broker on Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker returns a RedisBroker. The client is owned by the caller.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		return newIdleSubscription(), nil
	}
	ps := b.client.Subscribe(ctx, channels...)
	// Wait for the confirmation so the subscription is live on return.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	s := &redisSubscription{
		ps:   ps,
		out:  make(chan []byte, subscriptionBuffer),
		done: make(chan struct{}),
	}
	go s.run(ps.Channel())
	return s, nil
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

// Close is a no-op; the Redis client outlives the broker.
func (b *RedisBroker) Close() error {
	return nil
}

type redisSubscription struct {
	ps        *redis.PubSub
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *redisSubscription) run(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.ps.Close()
	})
	return s.closeErr
}

// idleSubscription never delivers anything.
type idleSubscription struct {
	out       chan []byte
	closeOnce sync.Once
}

func newIdleSubscription() *idleSubscription {
	return &idleSubscription{out: make(chan []byte)}
}

func (s *idleSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *idleSubscription) Close() error {
	s.closeOnce.Do(func() { close(s.out) })
	return nil
}
