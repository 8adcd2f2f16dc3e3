package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy reruns a failing operation a fixed number of times.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      *slog.Logger
	// Sleep waits between attempts; nil uses a timer honouring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do calls fn until it succeeds or the attempts are used up. Nothing is retried once
// ctx is done; deadlines of the operation itself, such as client timeouts, are.
func (r RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(r.MaxAttempts, 1)
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == attempts {
			break
		}
		logger.Warn("attempt failed", "attempt", attempt, "of", attempts, "retry_in", r.Delay, "error", err)
		if serr := sleep(ctx, r.Delay); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
