package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
	"github.com/josh-kwaku/transferpro-backend/internal/network"
)

type step struct {
	name domain.TransferStep
	run  func(ctx context.Context, t *domain.Transfer) error
}

func (s *Service) steps() []step {
	return []step{
		{domain.StepValidatingDetails, s.validateDetails},
		{domain.StepLockingRate, s.lockRate},
		{domain.StepSendingToNetwork, s.sendToNetwork},
		{domain.StepCompleted, s.settle},
	}
}

// Advance starts a pending transfer and drives it to a terminal status before
// returning.
func (s *Service) Advance(ctx context.Context, userID, id uuid.UUID) (*domain.Transfer, error) {
	t, err := s.Start(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("Advance: %w", err)
	}
	t, err = s.Drive(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("Advance: %w", err)
	}
	return t, nil
}

// AdvanceAsync starts a pending transfer and hands the rest of its lifecycle
// to the runner. The returned transfer is in processing.
func (s *Service) AdvanceAsync(ctx context.Context, userID, id uuid.UUID) (*domain.Transfer, error) {
	t, err := s.Start(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("AdvanceAsync: %w", err)
	}

	driveCtx := context.WithoutCancel(ctx)
	snapshot := *t
	err = s.runner.Go(func() {
		if _, err := s.Drive(driveCtx, &snapshot); err != nil {
			logging.FromContext(driveCtx).Error("transfer drive failed", "transfer_id", snapshot.ID, "error", err)
		}
	})
	if err != nil {
		logging.FromContext(ctx).Warn("runner rejected transfer, left for reconciliation", "transfer_id", t.ID, "error", err)
	}
	return t, nil
}

// Start moves a pending transfer to processing. Only one caller can win this
// transition for a given transfer.
func (s *Service) Start(ctx context.Context, userID, id uuid.UUID) (*domain.Transfer, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("Start: %w", err)
	}
	if t.Status != domain.TransferStatusPending {
		return nil, fmt.Errorf("Start: transfer is %s: %w", t.Status, domain.ErrInvalidTransition)
	}

	t, err = s.transfers.UpdateStatus(ctx, id, domain.StatusUpdate{
		From: domain.TransferStatusPending,
		To:   domain.TransferStatusProcessing,
		Step: domain.StepValidatingDetails,
	})
	if err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			return nil, fmt.Errorf("Start: %w", domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("Start: %w", err)
	}

	s.record(ctx, t, domain.TransferEventProcessing, t.Step, 0, "")
	return t, nil
}

// Drive runs a processing transfer through its steps. Step failures end in
// the failed status with the hold released; only storage errors on the final
// write are returned.
func (s *Service) Drive(ctx context.Context, t *domain.Transfer) (*domain.Transfer, error) {
	ctx = logging.With(ctx, "transfer_id", t.ID)
	log := logging.FromContext(ctx)

	for _, st := range s.steps() {
		if st.name != domain.StepValidatingDetails {
			if err := s.transfers.UpdateStep(ctx, t.ID, st.name, t.NetworkReference); err != nil {
				if errors.Is(err, domain.ErrStorageConflict) {
					log.Warn("transfer left processing while driving", "step", st.name)
					return s.transfers.GetByID(ctx, t.ID)
				}
				return nil, fmt.Errorf("Drive: %w", err)
			}
			t.Step = st.name
		}

		if err := s.runStep(ctx, t, st); err != nil {
			return s.fail(ctx, t, st.name, err)
		}
		s.record(ctx, t, domain.TransferEventStepCompleted, st.name, 0, st.name.Label())
	}

	return s.finish(ctx, t)
}

// runStep retries a step with exponential backoff. Each attempt gets its own
// timeout; permanent errors stop the retries at once.
func (s *Service) runStep(ctx context.Context, t *domain.Transfer, st step) error {
	attempt := 0
	op := func() error {
		attempt++
		stepCtx, cancel := context.WithTimeout(ctx, s.config.StepTimeout)
		defer cancel()

		err := st.run(stepCtx, t)
		if err == nil {
			return nil
		}

		logging.FromContext(ctx).Warn("transfer step failed", "step", st.name, "attempt", attempt, "error", err)
		s.record(ctx, t, domain.TransferEventStepFailed, st.name, attempt, err.Error())
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	retries := s.config.StepMaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.config.StepBackoff
	eb.MaxElapsedTime = 0

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx))
}

func (s *Service) validateDetails(_ context.Context, t *domain.Transfer) error {
	if !t.SendAmount.IsPositive() || !t.TotalAmount.IsPositive() {
		return fmt.Errorf("validateDetails: %w", domain.ErrInvalidAmount)
	}
	return domain.ValidateRecipient(t.Recipient, t.DeliveryMethod)
}

// lockRate confirms the quoted total is still held. The rate itself was fixed
// when the transfer was created.
func (s *Service) lockRate(ctx context.Context, t *domain.Transfer) error {
	return s.wallet.Hold(ctx, t)
}

func (s *Service) sendToNetwork(ctx context.Context, t *domain.Transfer) error {
	receipt, err := s.network.Send(ctx, network.DispatchFor(t))
	if err != nil {
		return err
	}
	t.NetworkReference = receipt.Reference
	if err := s.transfers.UpdateStep(ctx, t.ID, domain.StepSendingToNetwork, receipt.Reference); err != nil {
		return backoff.Permanent(fmt.Errorf("sendToNetwork: %w", err))
	}
	return nil
}

func (s *Service) settle(ctx context.Context, t *domain.Transfer) error {
	_, err := s.wallet.Debit(ctx, t)
	return err
}

func (s *Service) finish(ctx context.Context, t *domain.Transfer) (*domain.Transfer, error) {
	done, err := s.transfers.UpdateStatus(ctx, t.ID, domain.StatusUpdate{
		From:             domain.TransferStatusProcessing,
		To:               domain.TransferStatusCompleted,
		Step:             domain.StepCompleted,
		NetworkReference: t.NetworkReference,
	})
	if err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}

	s.record(ctx, done, domain.TransferEventCompleted, domain.StepCompleted, 0, "")
	logging.FromContext(ctx).Info("transfer completed",
		"network_reference", done.NetworkReference,
		"total_amount", done.TotalAmount.StringFixed(domain.MoneyScale),
		"currency", done.FromCurrency,
	)
	return done, nil
}

// fail releases the hold and marks the transfer failed. A hold that was
// already captured means the money moved, so the transfer completes instead.
func (s *Service) fail(ctx context.Context, t *domain.Transfer, at domain.TransferStep, cause error) (*domain.Transfer, error) {
	log := logging.FromContext(ctx)

	if err := s.wallet.Release(ctx, t); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			log.Warn("hold already captured, completing transfer", "step", at, "cause", cause)
			return s.finish(ctx, t)
		}
		return nil, fmt.Errorf("fail: %w", err)
	}

	reason := fmt.Sprintf("%s: %s", at.Label(), failureCause(cause))
	failed, err := s.transfers.UpdateStatus(ctx, t.ID, domain.StatusUpdate{
		From:          domain.TransferStatusProcessing,
		To:            domain.TransferStatusFailed,
		Step:          at,
		FailureReason: reason,
	})
	if err != nil {
		return nil, fmt.Errorf("fail: %w", err)
	}

	s.record(ctx, failed, domain.TransferEventFailed, at, 0, reason)
	log.Warn("transfer failed", "step", at, "reason", reason)
	return failed, nil
}

func failureCause(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient funds"
	case errors.Is(err, domain.ErrDispatchRejected):
		return "rejected by partner network"
	case errors.Is(err, domain.ErrMissingFields):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	return err.Error()
}
