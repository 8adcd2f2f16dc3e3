package scheduler

import (
	"context"
	"sync"
	"time"

	"DailyReleases/internal/ports"
)

// DailyScheduler runs a job once a day at a fixed local time of day.
type DailyScheduler struct {
	hour, minute int
	location     *time.Location
	runOnStart   bool
	now          func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler firing at hour:minute in loc.
func NewDailyScheduler(hour, minute int, loc *time.Location, runOnStart bool) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{hour: hour, minute: minute, location: loc, runOnStart: runOnStart, now: time.Now}
}

// NextRun returns the first scheduled time strictly after now.
func (d *DailyScheduler) NextRun(now time.Time) time.Time {
	local := now.In(d.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.location)
	}
	return next
}

// Start runs job in the background until ctx ends or Stop is called. Jobs never
// overlap: the next run is scheduled after the previous one returned.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})

	go d.loop(ctx, job, d.stop, d.done)
	return nil
}

func (d *DailyScheduler) loop(ctx context.Context, job func(time.Time), stop, done chan struct{}) {
	defer close(done)
	if d.runOnStart {
		job(d.now())
	}
	for {
		next := d.NextRun(d.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			job(next)
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// Stop halts the scheduling goroutine and waits for a running job to return.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
