package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherRunsAndDrains(t *testing.T) {
	d := NewDispatcher(2)
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if !d.Go("count", func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
			return nil
		}) {
			t.Fatalf("task %d refused", i)
		}
	}
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if ran.Load() != 10 {
		t.Fatalf("ran=%d", ran.Load())
	}
	if d.Go("late", func(ctx context.Context) error { return nil }) {
		t.Fatalf("task accepted after shutdown")
	}
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	d := NewDispatcher(3)
	var cur, peak atomic.Int32
	for i := 0; i < 20; i++ {
		d.Go("bounded", func(ctx context.Context) error {
			n := cur.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			cur.Add(-1)
			return nil
		})
	}
	_ = d.Shutdown(context.Background())
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency %d", peak.Load())
	}
}

func TestDispatcherSurvivesFailures(t *testing.T) {
	d := NewDispatcher(1)
	d.Go("fails", func(ctx context.Context) error { return errors.New("boom") })
	d.Go("panics", func(ctx context.Context) error { panic("boom") })
	var ok atomic.Bool
	d.Go("after", func(ctx context.Context) error { ok.Store(true); return nil })
	_ = d.Shutdown(context.Background())
	if !ok.Load() {
		t.Fatalf("task after failures did not run")
	}
}

func TestShutdownDeadlineCancelsTasks(t *testing.T) {
	d := NewDispatcher(1)
	var cancelled atomic.Bool
	d.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); err == nil {
		t.Fatalf("expected drain deadline error")
	}
	if !cancelled.Load() {
		t.Fatalf("slow task not cancelled")
	}
}
