// Package ratelimit paces requests to a metered API with a token bucket.
//
// A bucket holds up to Capacity tokens and refills at Capacity per Window.
// Each request takes one token; Acquire blocks until one is available.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Common errors.
var (
	ErrClosed          = errors.New("limiter closed")
	ErrInvalidCapacity = errors.New("invalid capacity")
	ErrInvalidWindow   = errors.New("invalid window")
)

// pollInterval bounds how long a blocked Acquire sleeps before re-checking.
const pollInterval = 50 * time.Millisecond

// Capacity describes the bucket at one instant.
type Capacity struct {
	Available int
	Total     int
	Window    time.Duration
}

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	capacity   int
	available  int
	window     time.Duration
	lastRefill time.Time
	closed     bool
	closedCh   chan struct{}
	nowFunc    func() time.Time // for testing
}

// New creates a full bucket of capacity tokens per window.
func New(capacity int, window time.Duration) (*Limiter, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &Limiter{
		capacity:   capacity,
		available:  capacity,
		window:     window,
		lastRefill: time.Now(),
		closedCh:   make(chan struct{}),
		nowFunc:    time.Now,
	}, nil
}

// PerMinute creates a limiter of n requests per minute.
func PerMinute(n int) (*Limiter, error) {
	return New(n, time.Minute)
}

// refill adds tokens for the time elapsed since the last refill. Must be
// called with mu held.
func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastRefill)
	if elapsed <= 0 {
		return
	}
	// rate = capacity / window
	tokens := int(float64(l.capacity) * float64(elapsed) / float64(l.window))
	if tokens > 0 {
		l.available += tokens
		if l.available > l.capacity {
			l.available = l.capacity
		}
		l.lastRefill = now
	}
}

// TryAcquire takes a token if one is available.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.refill(l.nowFunc())
	if l.available > 0 {
		l.available--
		return true
	}
	return false
}

// Acquire blocks until a token is available, ctx ends or the limiter closes.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		if l.TryAcquire() {
			return nil
		}

		l.mu.Lock()
		closed := l.closed
		wait := l.untilNextToken()
		l.mu.Unlock()
		if closed {
			return ErrClosed
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-l.closedCh:
			timer.Stop()
			return ErrClosed
		case <-timer.C:
		}
	}
}

// untilNextToken estimates the wait for one token. Must be called with mu held.
func (l *Limiter) untilNextToken() time.Duration {
	perToken := l.window / time.Duration(l.capacity)
	wait := perToken - l.nowFunc().Sub(l.lastRefill)
	if wait <= 0 || wait > pollInterval {
		return pollInterval
	}
	return wait
}

// Reduce shrinks capacity by a quarter, keeping at least one token. Call it
// when the API pushes back (HTTP 429).
func (l *Limiter) Reduce() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newCapacity := int(float64(l.capacity) * 0.75)
	if newCapacity < 1 {
		newCapacity = 1
	}
	l.capacity = newCapacity
	if l.available > newCapacity {
		l.available = newCapacity
	}
}

// Capacity reports the current state of the bucket.
func (l *Limiter) Capacity() Capacity {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(l.nowFunc())
	return Capacity{Available: l.available, Total: l.capacity, Window: l.window}
}

// Close wakes every blocked Acquire with ErrClosed.
func (l *Limiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.closed = true
	close(l.closedCh)
	return nil
}
