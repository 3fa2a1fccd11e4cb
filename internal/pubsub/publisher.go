package pubsub

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher sends fire-and-forget events to other processes over Redis.
type Publisher struct {
	rdb        redis.UniversalClient
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewPublisher(rdb redis.UniversalClient, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{rdb: rdb, retryDelay: 50 * time.Millisecond, logger: logger}
}

// Publish sends payload on channel, retrying once after a short pause.
func (p *Publisher) Publish(ctx context.Context, channel, payload string) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	err := p.rdb.Publish(ctx, channel, payload).Err()
	if err == nil {
		return nil
	}
	p.logger.Debug("publish_retry", zap.String("channel", channel), zap.Error(err))

	t := time.NewTimer(p.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Announce asks the game server to broadcast a new #1.
func (p *Publisher) Announce(ctx context.Context, scoreID int64) error {
	return p.Publish(ctx, ChannelAnnounce, strconv.FormatInt(scoreID, 10))
}

// Restrict asks the game server to restrict a player.
func (p *Publisher) Restrict(ctx context.Context, userID int64, reason string) error {
	if p != nil {
		p.logger.Warn("restrict_requested", zap.Int64("user_id", userID), zap.String("reason", reason))
	}
	return p.Publish(ctx, ChannelRestrict, fmt.Sprintf("%d|%s", userID, reason))
}

// Notify delivers an in-game message to a player.
func (p *Publisher) Notify(ctx context.Context, userID int64, message string) error {
	return p.Publish(ctx, ChannelNotify, fmt.Sprintf("%d|%s", userID, message))
}

func (p *Publisher) RefreshStats(ctx context.Context, userID int64) error {
	return p.Publish(ctx, ChannelRefreshStats, strconv.FormatInt(userID, 10))
}

func (p *Publisher) ScoreSubmitted(ctx context.Context, scoreID int64) error {
	return p.Publish(ctx, ChannelScoreSubmitted, strconv.FormatInt(scoreID, 10))
}

// RefreshMap tells every process to drop its in-memory copy of a beatmap.
func (p *Publisher) RefreshMap(ctx context.Context, key string) error {
	return p.Publish(ctx, ChannelRefreshMap, key)
}
