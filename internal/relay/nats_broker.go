package relay

import (
	"context"
	"errors"
	"fmt"
	"go-ws-relay/internal/config"
	"go-ws-relay/internal/logger"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const flushTimeout = 5 * time.Second

// NATSBroker is a Broker on NATS core subjects. Channel names are used as
// subjects unchanged.
type NATSBroker struct {
	conn *nats.Conn
	// closed is closed once the connection is closed for good.
	closed chan struct{}
}

// NewNATSBroker connects to NATS with the given config.
func NewNATSBroker(cfg config.NATSConfig, log logger.Logger) (*NATSBroker, error) {
	closed := make(chan struct{})
	var closeOnce sync.Once

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(fmt.Sprintf("NATS disconnected: %v", err))
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(fmt.Sprintf("NATS reconnected to %s", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
			closeOnce.Do(func() { close(closed) })
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Info(fmt.Sprintf("Connected to NATS at %s", nc.ConnectedUrl()))

	return &NATSBroker{conn: nc, closed: closed}, nil
}

func (b *NATSBroker) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		return newIdleSubscription(), nil
	}

	in := make(chan *nats.Msg, subscriptionBuffer)
	s := &natsSubscription{
		out:  make(chan []byte, subscriptionBuffer),
		done: make(chan struct{}),
	}
	for _, ch := range channels {
		sub, err := b.conn.ChanSubscribe(ch, in)
		if err != nil {
			s.unsubscribe()
			return nil, fmt.Errorf("nats subscribe %q: %w", ch, err)
		}
		s.subs = append(s.subs, sub)
	}
	// The server has processed the subscriptions once the flush returns.
	if err := b.conn.FlushTimeout(flushTimeout); err != nil {
		s.unsubscribe()
		return nil, fmt.Errorf("nats flush: %w", err)
	}

	go s.run(in, b.closed)
	return s, nil
}

func (b *NATSBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.conn.Publish(channel, payload)
}

// Close drains pending messages and returns once the connection is closed.
func (b *NATSBroker) Close() error {
	if err := b.conn.Drain(); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return nil
		}
		return err
	}
	<-b.closed
	return nil
}

type natsSubscription struct {
	subs      []*nats.Subscription
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// run forwards messages until the subscription is closed or the connection
// closes for good.
func (s *natsSubscription) run(in <-chan *nats.Msg, connClosed <-chan struct{}) {
	defer close(s.out)
	for {
		select {
		case msg := <-in:
			select {
			case s.out <- msg.Data:
			case <-s.done:
				return
			case <-connClosed:
				return
			}
		case <-s.done:
			return
		case <-connClosed:
			return
		}
	}
}

func (s *natsSubscription) unsubscribe() error {
	var firstErr error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *natsSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *natsSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.unsubscribe()
		close(s.done)
	})
	return err
}
