package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type Schedules struct {
	Reconcile        string
	IdempotencyClean string
}

type Scheduler struct {
	cron      *cron.Cron
	jobs      *Jobs
	schedules Schedules
	logger    *slog.Logger
}

func New(jobs *Jobs, schedules Schedules, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:      c,
		jobs:      jobs,
		schedules: schedules,
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron loop. Both schedules must parse.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedules.Reconcile, s.jobs.ReconcileStaleTransfers); err != nil {
		return fmt.Errorf("Start: reconcile schedule %q: %w", s.schedules.Reconcile, err)
	}
	s.logger.Info("scheduled stale transfer reconciliation", "schedule", s.schedules.Reconcile)

	if _, err := s.cron.AddFunc(s.schedules.IdempotencyClean, s.jobs.CleanIdempotencyCache); err != nil {
		return fmt.Errorf("Start: idempotency cleanup schedule %q: %w", s.schedules.IdempotencyClean, err)
	}
	s.logger.Info("scheduled idempotency cache cleanup", "schedule", s.schedules.IdempotencyClean)

	s.cron.Start()
	return nil
}

// Stop halts scheduling; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
