//go:build unit

package relay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func newTestBroker(t *testing.T) *RedisBroker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBroker(client)
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t)

	sub, err := b.Subscribe(ctx, "a", "b")
	if err != nil {
		t.Fatalf("Subscribe() returned error: %v", err)
	}
	defer sub.Close()

	for _, ch := range []string{"a", "b", "c"} {
		if err := b.Publish(ctx, ch, []byte("to "+ch)); err != nil {
			t.Fatalf("Publish() returned error: %v", err)
		}
	}

	for _, want := range []string{"to a", "to b"} {
		select {
		case got := <-sub.Messages():
			if string(got) != want {
				t.Errorf("want %q; got %q", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	select {
	case got := <-sub.Messages():
		t.Errorf("want nothing from an unsubscribed channel; got %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisBrokerCloseEndsMessages(t *testing.T) {
	b := newTestBroker(t)

	sub, err := b.Subscribe(context.Background(), "a")
	if err != nil {
		t.Fatalf("Subscribe() returned error: %v", err)
	}
	sub.Close()
	// A second Close is harmless.
	sub.Close()

	select {
	case _, ok := <-sub.Messages():
		if ok {
			t.Error("want Messages closed after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Messages to close")
	}
}

func TestRedisBrokerNoChannels(t *testing.T) {
	b := newTestBroker(t)

	sub, err := b.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() returned error: %v", err)
	}
	select {
	case <-sub.Messages():
		t.Fatal("want no messages from an empty subscription")
	default:
	}
	sub.Close()
	if _, ok := <-sub.Messages(); ok {
		t.Error("want Messages closed after Close")
	}
}

func TestNATSSubscriptionEndsWhenConnectionCloses(t *testing.T) {
	in := make(chan *nats.Msg, 1)
	connClosed := make(chan struct{})
	s := &natsSubscription{
		out:  make(chan []byte, subscriptionBuffer),
		done: make(chan struct{}),
	}
	go s.run(in, connClosed)

	in <- &nats.Msg{Data: []byte("before close")}
	select {
	case got := <-s.Messages():
		if string(got) != "before close" {
			t.Errorf("want 'before close'; got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	close(connClosed)
	select {
	case _, ok := <-s.Messages():
		if ok {
			t.Error("want Messages closed once the connection closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Messages to close")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() after connection close returned error: %v", err)
	}
}
