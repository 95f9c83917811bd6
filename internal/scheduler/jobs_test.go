package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

type reconcilerStub struct {
	olderThan time.Duration
	calls     int
	err       error
}

func (s *reconcilerStub) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	s.calls++
	s.olderThan = olderThan
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return 2, s.err
}

type cleanerStub struct {
	calls int
}

func (s *cleanerStub) CleanExpired(context.Context) (int64, error) {
	s.calls++
	return 3, nil
}

func TestJobs(t *testing.T) {
	rec := &reconcilerStub{}
	cleaner := &cleanerStub{}
	jobs := NewJobs(rec, cleaner, 10*time.Minute, logging.Discard())

	jobs.ReconcileStaleTransfers()
	jobs.CleanIdempotencyCache()

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 10*time.Minute, rec.olderThan)
	assert.Equal(t, 1, cleaner.calls)

	rec.err = errors.New("db down")
	assert.NotPanics(t, jobs.ReconcileStaleTransfers)
	assert.Equal(t, 2, rec.calls)
}

func TestScheduler_Start(t *testing.T) {
	jobs := NewJobs(&reconcilerStub{}, &cleanerStub{}, time.Minute, logging.Discard())

	tests := []struct {
		name      string
		schedules Schedules
		wantErr   bool
	}{
		{"valid", Schedules{Reconcile: "@every 1m", IdempotencyClean: "@hourly"}, false},
		{"bad reconcile", Schedules{Reconcile: "every minute", IdempotencyClean: "@hourly"}, true},
		{"bad cleanup", Schedules{Reconcile: "@every 1m", IdempotencyClean: "61 * * * *"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(jobs, tt.schedules, logging.Discard())
			err := s.Start()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			<-s.Stop().Done()
		})
	}
}
