// Package scheduler runs the full update periodically while the server is up.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
)

// Job is one scheduled run. It receives the context passed to Start.
type Job func(ctx context.Context)

// Scheduler invokes a Job every interval, starting immediately. Runs never
// overlap; a run still in progress when the next is due causes that tick to be skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	job       Job
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Scheduler. It does nothing until Start. The clock times each run.
func New(interval time.Duration, job Job, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		job:       job,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the job and returns without waiting for it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		if ctx.Err() != nil {
			return
		}
		start := s.clock.Now()
		s.logger.Info("scheduled update starting")
		s.job(ctx)
		s.logger.Info("scheduled update complete", "duration", s.clock.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("schedule update: %w", err)
	}

	s.scheduler.StartAsync()
	s.metrics.SchedulerRunning.Set(1)
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop cancels future runs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.metrics.SchedulerRunning.Set(0)
	s.logger.Info("scheduler stopped")
}
