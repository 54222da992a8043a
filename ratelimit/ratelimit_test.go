package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, capacity int, window time.Duration) (*Limiter, *fakeClock) {
	t.Helper()
	l, err := New(capacity, window)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	clock := &fakeClock{now: time.Now()}
	l.nowFunc = clock.Now
	l.lastRefill = clock.Now()
	return l, clock
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(0, time.Minute); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("expected ErrInvalidCapacity, got %v", err)
	}
	if _, err := New(1, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestTryAcquire_DrainsAndRefills(t *testing.T) {
	l, clock := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.TryAcquire() {
			t.Fatalf("acquire %d should succeed", i)
		}
	}
	if l.TryAcquire() {
		t.Fatal("bucket should be empty")
	}

	clock.Advance(20 * time.Second)
	if !l.TryAcquire() {
		t.Error("one token should refill after a third of the window")
	}
	if l.TryAcquire() {
		t.Error("only one token should have refilled")
	}

	clock.Advance(10 * time.Minute)
	if got := l.Capacity().Available; got != 3 {
		t.Errorf("refill should cap at capacity, got %d", got)
	}
}

func TestAcquire_WaitsForRefill(t *testing.T) {
	l, err := New(1, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}

	start := time.Now()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("second acquire returned after %s, expected to wait for refill", elapsed)
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Hour)
	l.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestClose_WakesWaiters(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Hour)
	l.TryAcquire()

	done := make(chan error, 1)
	go func() { done <- l.Acquire(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}

	if l.TryAcquire() {
		t.Error("closed limiter should refuse tokens")
	}
	if err := l.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() = %v", err)
	}
}

func TestReduce(t *testing.T) {
	l, _ := newTestLimiter(t, 15, time.Minute)
	l.Reduce()
	if got := l.Capacity().Total; got != 11 {
		t.Errorf("capacity after reduce = %d, want 11", got)
	}

	small, _ := newTestLimiter(t, 1, time.Minute)
	small.Reduce()
	if got := small.Capacity(); got.Total != 1 || got.Available != 1 {
		t.Errorf("capacity should not drop below one: %+v", got)
	}
}

func TestPerMinute(t *testing.T) {
	l, err := PerMinute(15)
	if err != nil {
		t.Fatalf("PerMinute() error = %v", err)
	}
	if c := l.Capacity(); c.Total != 15 || c.Window != time.Minute {
		t.Errorf("capacity = %+v", c)
	}
}
