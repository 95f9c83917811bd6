package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type transferReconciler interface {
	ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type idempotencyCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// Jobs holds the periodic maintenance tasks.
type Jobs struct {
	transfers   transferReconciler
	idempotency idempotencyCleaner
	staleAfter  time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

func NewJobs(transfers transferReconciler, idempotency idempotencyCleaner, staleAfter time.Duration, logger *slog.Logger) *Jobs {
	return &Jobs{
		transfers:   transfers,
		idempotency: idempotency,
		staleAfter:  staleAfter,
		timeout:     time.Minute,
		logger:      logger,
	}
}

// ReconcileStaleTransfers settles transfers that stopped making progress.
func (j *Jobs) ReconcileStaleTransfers() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.transfers.ReconcileStale(ctx, j.staleAfter)
	if err != nil {
		j.logger.Error("stale transfer reconciliation failed", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("stale transfers reconciled", "count", n)
	}
}

func (j *Jobs) CleanIdempotencyCache() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.idempotency.CleanExpired(ctx)
	if err != nil {
		j.logger.Error("idempotency cache cleanup failed", "error", err)
		return
	}
	j.logger.Info("idempotency cache cleaned", "removed", n)
}
