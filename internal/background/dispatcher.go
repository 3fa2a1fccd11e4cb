package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultLimit       = 64
	defaultTaskTimeout = 30 * time.Second
)

// Task is one fire-and-forget side effect. Its error is logged, never returned.
type Task func(ctx context.Context) error

// Dispatcher runs tasks with bounded concurrency, detached from request
// lifetimes, and drains them on shutdown.
type Dispatcher struct {
	sem         *semaphore.Weighted
	taskTimeout time.Duration
	logger      *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type Option func(*Dispatcher)

func WithTaskTimeout(d time.Duration) Option {
	return func(p *Dispatcher) {
		if d > 0 {
			p.taskTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Dispatcher) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewDispatcher(limit int, opts ...Option) *Dispatcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	base, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sem:         semaphore.NewWeighted(int64(limit)),
		taskTimeout: defaultTaskTimeout,
		logger:      zap.NewNop(),
		base:        base,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Go schedules fn and reports whether it was accepted. After Shutdown began
// tasks are refused. Go never blocks on the concurrency limit.
// 한도를 넘은 태스크는 자기 고루틴에서 세마포어를 기다림.
func (d *Dispatcher) Go(name string, fn Task) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("background_task_dropped", zap.String("task", name))
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		if err := d.sem.Acquire(d.base, 1); err != nil {
			d.logger.Warn("background_task_cancelled", zap.String("task", name), zap.Error(err))
			return
		}
		defer d.sem.Release(1)
		d.run(name, fn)
	}()
	return true
}

func (d *Dispatcher) run(name string, fn Task) {
	ctx, cancel := context.WithTimeout(d.base, d.taskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("background_task_panic", zap.String("task", name), zap.Any("panic", r))
		}
	}()
	if err := fn(ctx); err != nil {
		d.logger.Warn("background_task_failed", zap.String("task", name), zap.Error(err))
	}
}

// Shutdown stops accepting tasks and waits for running ones. When ctx ends
// first the remaining tasks are cancelled.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return fmt.Errorf("background drain: %w", ctx.Err())
	}
}
