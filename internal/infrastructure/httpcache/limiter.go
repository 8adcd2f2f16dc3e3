package httpcache

import (
	"context"
	"sync"
	"time"
)

// DefaultRate is one request per second per host.
const DefaultRate = 1.0

// Limiter spaces requests to the same host by at least 1/rate seconds.
type Limiter struct {
	mu          sync.Mutex
	lastRequest map[string]time.Time
	defaultRate float64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter builds a limiter using the wall clock.
func NewLimiter(defaultRate float64) *Limiter {
	if defaultRate <= 0 {
		defaultRate = DefaultRate
	}
	return &Limiter{
		lastRequest: make(map[string]time.Time),
		defaultRate: defaultRate,
		now:         time.Now,
		sleep:       SleepWithContext,
	}
}

// WithClock replaces the clock and sleeper, mainly for tests.
func (l *Limiter) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Limiter {
	l.now = now
	l.sleep = sleep
	return l
}

// Wait blocks until a request to host is allowed. rate <= 0 uses the default rate.
func (l *Limiter) Wait(ctx context.Context, host string, rate float64) error {
	if rate <= 0 {
		rate = l.defaultRate
	}
	interval := time.Duration(float64(time.Second) / rate)

	l.mu.Lock()
	last, seen := l.lastRequest[host]
	l.mu.Unlock()
	if !seen {
		return nil
	}
	return l.sleep(ctx, interval-l.now().Sub(last))
}

// Record stores the time of the latest request to host.
func (l *Limiter) Record(host string) {
	l.mu.Lock()
	l.lastRequest[host] = l.now()
	l.mu.Unlock()
}

// SleepWithContext blocks for d, returning early if the context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
