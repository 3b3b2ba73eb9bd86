// Package ratelimit is an in-process sliding-window request counter.
// State lives for the process lifetime only; a horizontally scaled
// deployment would swap a shared store in behind the same Check shape.
package ratelimit

import (
	"sync"
	"time"
)

const sweepEvery = 5 * time.Minute

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time

	// now is swappable in tests
	now func() time.Time
}

func New() *Limiter {
	return &Limiter{
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Check counts one request against key. The first request for a key opens
// a window of the given duration; once max requests have been counted the
// key is rejected until the window resets. Stale buckets are reclaimed
// lazily here rather than by a background timer.
func (l *Limiter) Check(key string, max int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{count: 0, resetAt: now.Add(window)}
		l.buckets[key] = b
	}

	if b.count >= max {
		return Result{
			Allowed:    false,
			Limit:      max,
			Remaining:  0,
			ResetAt:    b.resetAt,
			RetryAfter: b.resetAt.Sub(now),
		}
	}

	b.count++
	return Result{
		Allowed:   true,
		Limit:     max,
		Remaining: max - b.count,
		ResetAt:   b.resetAt,
	}
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepEvery {
		return
	}
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}
