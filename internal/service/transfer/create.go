package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

type CreateRequest struct {
	UserID         uuid.UUID
	IdempotencyKey string
	FromCurrency   domain.Currency
	ToCurrency     domain.Currency
	SendAmount     decimal.Decimal
	DeliveryMethod domain.DeliveryMethod
	Recipient      domain.RecipientDetails
	// RecipientID selects a saved recipient in place of Recipient.
	RecipientID *uuid.UUID
}

// Create prices the request, holds its total against the sender wallet and
// stores it as pending. A repeated idempotency key with the same payload
// returns the transfer created the first time. Concurrent creates sharing a
// (user, key) pair run once; each caller then resolves against what was stored.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Transfer, error) {
	if req.IdempotencyKey == "" {
		return s.create(ctx, req)
	}

	flight := req.UserID.String() + "/" + req.IdempotencyKey
	v, err, shared := s.inflight.Do(flight, func() (any, error) {
		return s.create(ctx, req)
	})
	if shared {
		existing, idempErr := s.checkIdempotency(ctx, req)
		if idempErr != nil {
			return nil, fmt.Errorf("Create: %w", idempErr)
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}
	t := *v.(*domain.Transfer)
	return &t, nil
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*domain.Transfer, error) {
	log := logging.FromContext(ctx)

	existing, err := s.checkIdempotency(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if existing != nil {
		log.Info("idempotent replay", "transfer_id", existing.ID, "idempotency_key", req.IdempotencyKey)
		return existing, nil
	}

	if err := s.validateRequest(req); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	recipient, err := s.resolveRecipient(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if err := domain.ValidateRecipient(recipient, req.DeliveryMethod); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	quote, err := s.rates.GetQuote(ctx, req.FromCurrency, req.ToCurrency)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	b, err := s.calc.Calculate(domain.NewMoney(req.SendAmount, req.FromCurrency), *quote, req.DeliveryMethod)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	now := s.now()
	t := &domain.Transfer{
		ID:             uuid.New(),
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
		FromCurrency:   req.FromCurrency,
		ToCurrency:     req.ToCurrency,
		SendAmount:     b.SendAmount,
		ReceiveAmount:  b.ReceiveAmount,
		ExchangeRate:   b.Rate,
		Fee:            b.Fee,
		TotalAmount:    b.TotalAmount,
		DeliveryMethod: req.DeliveryMethod,
		Recipient:      recipient,
		Status:         domain.TransferStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.wallet.Hold(ctx, t); err != nil {
		// Another instance may have stored this key while we were pricing.
		if existing, idempErr := s.checkIdempotency(ctx, req); idempErr == nil && existing != nil {
			log.Info("idempotent replay (race)", "transfer_id", existing.ID, "idempotency_key", req.IdempotencyKey)
			return existing, nil
		}
		return nil, fmt.Errorf("Create: %w", err)
	}

	if err := s.transfers.Insert(ctx, t); err != nil {
		s.releaseQuietly(ctx, t)
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			existing, idempErr := s.checkIdempotency(ctx, req)
			if idempErr != nil {
				return nil, fmt.Errorf("Create: %w", idempErr)
			}
			if existing != nil {
				log.Info("idempotent replay (race)", "transfer_id", existing.ID, "idempotency_key", req.IdempotencyKey)
				return existing, nil
			}
		}
		return nil, fmt.Errorf("Create: %w", err)
	}

	s.record(ctx, t, domain.TransferEventCreated, "", 0, "")

	log.Info("transfer created",
		"transfer_id", t.ID,
		"send_amount", t.SendAmount.StringFixed(domain.MoneyScale),
		"from_currency", t.FromCurrency,
		"receive_amount", t.ReceiveAmount.StringFixed(domain.MoneyScale),
		"to_currency", t.ToCurrency,
		"fee", t.Fee.StringFixed(domain.MoneyScale),
		"delivery_method", t.DeliveryMethod,
	)

	if s.config.AutoAdvance {
		if _, err := s.AdvanceAsync(ctx, t.UserID, t.ID); err != nil {
			log.Warn("auto advance failed, transfer stays pending", "transfer_id", t.ID, "error", err)
		}
	}

	return t, nil
}

func (s *Service) checkIdempotency(ctx context.Context, req CreateRequest) (*domain.Transfer, error) {
	if req.IdempotencyKey == "" {
		return nil, nil
	}

	existing, err := s.transfers.GetByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, domain.ErrTransferNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkIdempotency: %w", err)
	}

	if existing.FromCurrency != req.FromCurrency ||
		existing.ToCurrency != req.ToCurrency ||
		!existing.SendAmount.Equal(req.SendAmount) ||
		existing.DeliveryMethod != req.DeliveryMethod {
		return nil, fmt.Errorf("checkIdempotency: %w", domain.ErrIdempotencyConflict)
	}

	// A saved recipient deleted since the first call can no longer be
	// compared; the remaining fields decide.
	recipient, err := s.resolveRecipient(ctx, req)
	switch {
	case errors.Is(err, domain.ErrRecipientNotFound):
	case err != nil:
		return nil, fmt.Errorf("checkIdempotency: %w", err)
	case !recipient.Equal(existing.Recipient):
		return nil, fmt.Errorf("checkIdempotency: recipient differs: %w", domain.ErrIdempotencyConflict)
	}

	return existing, nil
}

func (s *Service) validateRequest(req CreateRequest) error {
	if !req.FromCurrency.IsValid() {
		return fmt.Errorf("validateRequest: from %q: %w", req.FromCurrency, domain.ErrInvalidCurrency)
	}
	if !req.ToCurrency.IsValid() {
		return fmt.Errorf("validateRequest: to %q: %w", req.ToCurrency, domain.ErrInvalidCurrency)
	}
	if req.FromCurrency == req.ToCurrency {
		return fmt.Errorf("validateRequest: %w", domain.ErrIdenticalCurrencyPair)
	}

	if !req.SendAmount.IsPositive() || !domain.HasMoneyScale(req.SendAmount) {
		return fmt.Errorf("validateRequest: %w", domain.ErrInvalidAmount)
	}
	if req.SendAmount.LessThan(s.config.TransferMinAmount) {
		return fmt.Errorf("validateRequest: below minimum %s: %w", s.config.TransferMinAmount, domain.ErrInvalidAmount)
	}
	if req.SendAmount.GreaterThan(s.config.TransferMaxAmount) {
		return fmt.Errorf("validateRequest: above maximum %s: %w", s.config.TransferMaxAmount, domain.ErrLimitExceeded)
	}

	if !req.DeliveryMethod.IsValid() {
		return fmt.Errorf("validateRequest: %q: %w", req.DeliveryMethod, domain.ErrInvalidDeliveryMethod)
	}
	return nil
}

func (s *Service) resolveRecipient(ctx context.Context, req CreateRequest) (domain.RecipientDetails, error) {
	if req.RecipientID == nil {
		return req.Recipient, nil
	}
	if s.recipients == nil {
		return domain.RecipientDetails{}, fmt.Errorf("resolveRecipient: %w", domain.ErrRecipientNotFound)
	}

	saved, err := s.recipients.GetForUser(ctx, req.UserID, *req.RecipientID)
	if err != nil {
		return domain.RecipientDetails{}, fmt.Errorf("resolveRecipient: %w", err)
	}
	return saved.Details, nil
}

func (s *Service) releaseQuietly(ctx context.Context, t *domain.Transfer) {
	if err := s.wallet.Release(ctx, t); err != nil {
		logging.FromContext(ctx).Error("failed to release hold", "transfer_id", t.ID, "error", err)
	}
}
