package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
	"github.com/josh-kwaku/transferpro-backend/internal/service"
)

type recipientService interface {
	Save(ctx context.Context, req service.SaveRecipientRequest) (*domain.SavedRecipient, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.SavedRecipient, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.SavedRecipient, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type RecipientHandler struct {
	recipients recipientService
}

func NewRecipientHandler(recipients recipientService) *RecipientHandler {
	return &RecipientHandler{recipients: recipients}
}

type saveRecipientRequest struct {
	Nickname         string          `json:"nickname"`
	DeliveryMethod   string          `json:"deliveryMethod"`
	RecipientDetails json.RawMessage `json:"recipientDetails"`
}

type recipientDTO struct {
	ID               uuid.UUID               `json:"id"`
	Nickname         string                  `json:"nickname"`
	DeliveryMethod   string                  `json:"deliveryMethod"`
	RecipientDetails domain.RecipientDetails `json:"recipientDetails"`
	CreatedAt        time.Time               `json:"createdAt"`
}

func toRecipientDTO(r *domain.SavedRecipient) recipientDTO {
	return recipientDTO{
		ID:               r.ID,
		Nickname:         r.Nickname,
		DeliveryMethod:   string(r.DeliveryMethod),
		RecipientDetails: maskRecipient(r.Details),
		CreatedAt:        r.CreatedAt,
	}
}

func (h *RecipientHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req saveRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var fields []FieldError
	method := domain.DeliveryMethod(req.DeliveryMethod)
	if !method.IsValid() {
		fields = append(fields, FieldError{Field: "deliveryMethod", Message: "must be bank, card, or cash"})
	}
	details, detailErrs := parseRecipient(method, req.RecipientDetails)
	if fields = append(fields, detailErrs...); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rec, err := h.recipients.Save(r.Context(), service.SaveRecipientRequest{
		UserID:         userID,
		Nickname:       req.Nickname,
		DeliveryMethod: method,
		Details:        details,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to save recipient", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toRecipientDTO(rec))
}

func (h *RecipientHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	recs, err := h.recipients.List(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list recipients", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]recipientDTO, len(recs))
	for i := range recs {
		dtos[i] = toRecipientDTO(&recs[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *RecipientHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedPathID(r, ErrRecipientNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	rec, err := h.recipients.Get(r.Context(), userID, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toRecipientDTO(rec))
}

func (h *RecipientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedPathID(r, ErrRecipientNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.recipients.Delete(r.Context(), userID, id); err != nil {
		RespondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
