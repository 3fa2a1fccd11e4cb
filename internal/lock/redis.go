package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultLease = 15 * time.Second

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker implements Locker with SET NX PX and a token-checked release.
// Handles held by this process are tracked so a second local acquire of the
// same key fails without a round trip, and so shutdown can release them.
type RedisLocker struct {
	rdb        redis.UniversalClient
	attempts   int
	retryDelay time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	inflight map[string]*redisGuard
}

type Option func(*RedisLocker)

// WithAttempts bounds how many times Acquire tries before ErrNotAcquired.
func WithAttempts(n int) Option {
	return func(l *RedisLocker) {
		if n > 0 {
			l.attempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(l *RedisLocker) {
		if d >= 0 {
			l.retryDelay = d
		}
	}
}

func WithLogger(lg *zap.Logger) Option {
	return func(l *RedisLocker) {
		if lg != nil {
			l.logger = lg
		}
	}
}

func NewRedisLocker(rdb redis.UniversalClient, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		rdb:        rdb,
		attempts:   5,
		retryDelay: 100 * time.Millisecond,
		logger:     zap.NewNop(),
		inflight:   make(map[string]*redisGuard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, lease time.Duration) (Guard, error) {
	if lease <= 0 {
		lease = DefaultLease
	}
	for attempt := 1; ; attempt++ {
		g, err := l.tryAcquire(ctx, key, lease)
		if err != nil {
			return nil, err
		}
		if g != nil {
			return g, nil
		}
		if attempt >= l.attempts {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}
		t := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// tryAcquire returns (nil, nil) when the key is held elsewhere.
// 다른 프로세스가 잡고 있으면 오류 없이 nil 반환.
func (l *RedisLocker) tryAcquire(ctx context.Context, key string, lease time.Duration) (*redisGuard, error) {
	l.mu.Lock()
	if g, ok := l.inflight[key]; ok && time.Now().Before(g.expires) {
		l.mu.Unlock()
		return nil, nil
	}
	l.mu.Unlock()

	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, lease).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	g := &redisGuard{locker: l, key: key, token: token, expires: time.Now().Add(lease)}
	l.mu.Lock()
	l.inflight[key] = g
	l.mu.Unlock()
	return g, nil
}

func (l *RedisLocker) forget(g *redisGuard) {
	l.mu.Lock()
	if cur, ok := l.inflight[g.key]; ok && cur == g {
		delete(l.inflight, g.key)
	}
	l.mu.Unlock()
}

// Held returns the number of locks this process currently tracks.
func (l *RedisLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight)
}

// Sweep drops tracked handles whose lease has run out. Redis expires the key itself.
func (l *RedisLocker) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, g := range l.inflight {
		if !now.Before(g.expires) {
			delete(l.inflight, k)
			g.released.Store(true)
			n++
		}
	}
	return n
}

// RunJanitor sweeps expired handles every interval until ctx is done.
func (l *RedisLocker) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := l.Sweep(now); n > 0 {
				l.logger.Warn("lock_handles_expired", zap.Int("count", n))
			}
		}
	}
}

// ReleaseAll releases every handle still held, for shutdown.
func (l *RedisLocker) ReleaseAll(ctx context.Context) {
	l.mu.Lock()
	guards := make([]*redisGuard, 0, len(l.inflight))
	for _, g := range l.inflight {
		guards = append(guards, g)
	}
	l.mu.Unlock()
	for _, g := range guards {
		if err := g.Release(ctx); err != nil {
			l.logger.Warn("lock_release_failed", zap.String("key", g.key), zap.Error(err))
		}
	}
}

type redisGuard struct {
	locker   *RedisLocker
	key      string
	token    string
	expires  time.Time
	released atomic.Bool
}

func (g *redisGuard) Key() string { return g.key }

func (g *redisGuard) Release(ctx context.Context) error {
	if !g.released.CompareAndSwap(false, true) {
		return nil
	}
	g.locker.forget(g)
	if err := releaseScript.Run(ctx, g.locker.rdb, []string{g.key}, g.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("unlock %s: %w", g.key, err)
	}
	return nil
}
