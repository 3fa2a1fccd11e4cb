package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler processes one message payload.
type Handler func(ctx context.Context, payload string) error

// Subscriber dispatches messages from Redis channels to registered handlers.
// Each message is handled on its own goroutine.
type Subscriber struct {
	rdb    redis.UniversalClient
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewSubscriber(rdb redis.UniversalClient, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{rdb: rdb, logger: logger, handlers: make(map[string]Handler)}
}

// Handle registers h for channel. Must be called before Run.
func (s *Subscriber) Handle(channel string, h Handler) {
	s.mu.Lock()
	s.handlers[channel] = h
	s.mu.Unlock()
}

// Run subscribes to every registered channel and blocks until ctx is done.
// ready, when non-nil, is closed once the subscription is confirmed.
func (s *Subscriber) Run(ctx context.Context, ready chan<- struct{}) error {
	s.mu.RLock()
	channels := make([]string, 0, len(s.handlers))
	for ch := range s.handlers {
		channels = append(channels, ch)
	}
	s.mu.RUnlock()
	if len(channels) == 0 {
		return errors.New("pubsub: no handlers registered")
	}

	ps := s.rdb.Subscribe(ctx, channels...)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for _, ch := range channels {
		s.logger.Info("pubsub_subscribed", zap.String("channel", ch))
	}
	if ready != nil {
		close(ready)
	}

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		case msg, ok := <-msgs:
			if !ok {
				s.wg.Wait()
				return nil
			}
			s.dispatch(ctx, msg.Channel, msg.Payload)
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, channel, payload string) {
	s.mu.RLock()
	h := s.handlers[channel]
	s.mu.RUnlock()
	if h == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("pubsub_handler_panic", zap.String("channel", channel), zap.Any("panic", r))
			}
		}()
		if err := h(ctx, payload); err != nil {
			s.logger.Error("pubsub_handler_failed", zap.String("channel", channel), zap.String("payload", payload), zap.Error(err))
		}
	}()
}
