package usecase

import (
	"context"
	"log/slog"
	"time"

	"DailyReleases/internal/ports"
)

// Scheduler wires the daily driver with a pipeline run.
type Scheduler struct {
	driver ports.Scheduler
	run    func(ctx context.Context) error
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, run func(ctx context.Context) error, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, run: run, logger: logger}
}

// Start registers the run with the provided scheduler. Failed runs are logged and
// the schedule continues.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.run == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled run triggered", "at", trigger)
		if err := s.run(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
