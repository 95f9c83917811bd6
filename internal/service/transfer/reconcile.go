package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

const reconcileBatch = 100

// ReconcileStale settles transfers stuck in processing for longer than
// olderThan, typically after a crash mid-lifecycle. A captured hold means the
// debit happened and the transfer completes; anything else fails and the hold
// is released.
func (s *Service) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	log := logging.FromContext(ctx)

	stale, err := s.transfers.List(ctx, domain.TransferFilter{
		Status:        domain.TransferStatusProcessing,
		UpdatedBefore: s.now().Add(-olderThan),
		Limit:         reconcileBatch,
	})
	if err != nil {
		return 0, fmt.Errorf("ReconcileStale: %w", err)
	}

	settled := 0
	for i := range stale {
		t := &stale[i]
		tctx := logging.With(ctx, "transfer_id", t.ID)

		var res *domain.Transfer
		hold, err := s.wallet.HoldFor(tctx, t.ID)
		switch {
		case err == nil && hold.Status == domain.HoldStatusCaptured:
			res, err = s.finish(tctx, t)
		case err == nil || errors.Is(err, domain.ErrNotFound):
			res, err = s.fail(tctx, t, t.Step, errStale)
		}
		if err != nil {
			log.Error("failed to reconcile transfer", "transfer_id", t.ID, "error", err)
			continue
		}
		log.Info("reconciled stale transfer", "transfer_id", t.ID, "status", res.Status)
		settled++
	}

	return settled, nil
}

var errStale = errors.New("no progress before reconciliation deadline")
