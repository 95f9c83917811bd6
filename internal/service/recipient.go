package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

type recipientRepo interface {
	Create(ctx context.Context, r *domain.SavedRecipient) error
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.SavedRecipient, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SavedRecipient, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type userChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type RecipientService struct {
	recipients recipientRepo
	users      userChecker
}

func NewRecipientService(recipients recipientRepo, users userChecker) *RecipientService {
	return &RecipientService{recipients: recipients, users: users}
}

type SaveRecipientRequest struct {
	UserID         uuid.UUID
	Nickname       string
	DeliveryMethod domain.DeliveryMethod
	Details        domain.RecipientDetails
}

// Save validates the details against the delivery method before storing
// them, so a saved recipient is always usable for a transfer.
func (s *RecipientService) Save(ctx context.Context, req SaveRecipientRequest) (*domain.SavedRecipient, error) {
	log := logging.FromContext(ctx)

	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("Save: %w", err)
	}
	if err := domain.ValidateRecipient(req.Details, req.DeliveryMethod); err != nil {
		return nil, fmt.Errorf("Save: %w", err)
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		nickname = req.Details.Name
	}

	rec := &domain.SavedRecipient{
		ID:             uuid.New(),
		UserID:         req.UserID,
		Nickname:       nickname,
		DeliveryMethod: req.DeliveryMethod,
		Details:        req.Details,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.recipients.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("Save: %w", err)
	}

	log.Info("recipient saved",
		"recipient_id", rec.ID,
		"user_id", rec.UserID,
		"delivery_method", rec.DeliveryMethod,
	)
	return rec, nil
}

func (s *RecipientService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.SavedRecipient, error) {
	rec, err := s.recipients.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec, nil
}

func (s *RecipientService) List(ctx context.Context, userID uuid.UUID) ([]domain.SavedRecipient, error) {
	recs, err := s.recipients.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return recs, nil
}

func (s *RecipientService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.recipients.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	logging.FromContext(ctx).Info("recipient deleted", "recipient_id", id, "user_id", userID)
	return nil
}
