package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestPublisherAndSubscriber(t *testing.T) {
	_, rdb := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	sub := NewSubscriber(rdb, nil)
	sub.Handle(ChannelRestrict, func(_ context.Context, payload string) error {
		got <- payload
		return nil
	})

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx, ready) }()
	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("Run: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber not ready")
	}

	pub := NewPublisher(rdb, nil)
	if err := pub.Restrict(ctx, 42, "pp cap"); err != nil {
		t.Fatalf("Restrict: %v", err)
	}
	// no handler registered: must be ignored
	if err := pub.Announce(ctx, 1); err != nil {
		t.Fatalf("Announce: %v", err)
	}

	select {
	case p := <-got:
		if p != "42|pp cap" {
			t.Fatalf("payload=%q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber did not stop")
	}
}

func TestRunWithoutHandlers(t *testing.T) {
	_, rdb := newTestClient(t)
	if err := NewSubscriber(rdb, nil).Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error without handlers")
	}
}

func TestPublishFailsAfterRetry(t *testing.T) {
	mr, rdb := newTestClient(t)
	mr.Close()
	p := NewPublisher(rdb, nil)
	p.retryDelay = time.Millisecond
	if err := p.ScoreSubmitted(context.Background(), 9); err == nil {
		t.Fatalf("expected error on closed server")
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	if err := p.Publish(context.Background(), "x", "y"); err != nil {
		t.Fatalf("nil publisher: %v", err)
	}
}
