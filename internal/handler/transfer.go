package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
	"github.com/josh-kwaku/transferpro-backend/internal/service/transfer"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type transferService interface {
	Create(ctx context.Context, req transfer.CreateRequest) (*domain.Transfer, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Transfer, error)
	List(ctx context.Context, userID uuid.UUID, f domain.TransferFilter) ([]domain.Transfer, error)
	AdvanceAsync(ctx context.Context, userID, id uuid.UUID) (*domain.Transfer, error)
	Events(ctx context.Context, userID, id uuid.UUID) ([]domain.TransferEvent, error)
}

type TransferHandler struct {
	transfers transferService
}

func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type createTransferRequest struct {
	FromCurrency     string          `json:"fromCurrency"`
	ToCurrency       string          `json:"toCurrency"`
	SendAmount       decimal.Decimal `json:"sendAmount"`
	DeliveryMethod   string          `json:"deliveryMethod"`
	RecipientDetails json.RawMessage `json:"recipientDetails"`
	RecipientID      *uuid.UUID      `json:"recipientId"`
}

// Validate reports every violated field at once. Recipient details are
// checked here too, against the fields the delivery method requires.
func (r createTransferRequest) Validate() ([]FieldError, domain.RecipientDetails) {
	errs := validateCurrencyPair("fromCurrency", r.FromCurrency, "toCurrency", r.ToCurrency)

	if !r.SendAmount.IsPositive() {
		errs = append(errs, FieldError{Field: "sendAmount", Message: "must be greater than 0"})
	} else if !domain.HasMoneyScale(r.SendAmount) {
		errs = append(errs, FieldError{Field: "sendAmount", Message: "must have at most two decimal places"})
	}

	method := domain.DeliveryMethod(r.DeliveryMethod)
	if r.DeliveryMethod == "" {
		errs = append(errs, FieldError{Field: "deliveryMethod", Message: "required"})
	} else if !method.IsValid() {
		errs = append(errs, FieldError{Field: "deliveryMethod", Message: "must be bank, card, or cash"})
	}

	if r.RecipientID != nil {
		return errs, domain.RecipientDetails{}
	}

	details, recipientErrs := parseRecipient(method, r.RecipientDetails)
	return append(errs, recipientErrs...), details
}

type transferDTO struct {
	ID               uuid.UUID               `json:"id"`
	FromCurrency     string                  `json:"fromCurrency"`
	ToCurrency       string                  `json:"toCurrency"`
	SendAmount       string                  `json:"sendAmount"`
	ReceiveAmount    string                  `json:"receiveAmount"`
	ExchangeRate     string                  `json:"exchangeRate"`
	Fee              string                  `json:"fee"`
	TotalAmount      string                  `json:"totalAmount"`
	DeliveryMethod   string                  `json:"deliveryMethod"`
	RecipientDetails domain.RecipientDetails `json:"recipientDetails"`
	Status           string                  `json:"status"`
	Step             string                  `json:"step,omitempty"`
	StepLabel        string                  `json:"stepLabel,omitempty"`
	NetworkReference string                  `json:"networkReference,omitempty"`
	FailureReason    string                  `json:"failureReason,omitempty"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
	CompletedAt      *time.Time              `json:"completedAt,omitempty"`
}

func toTransferDTO(t *domain.Transfer) transferDTO {
	dto := transferDTO{
		ID:               t.ID,
		FromCurrency:     string(t.FromCurrency),
		ToCurrency:       string(t.ToCurrency),
		SendAmount:       formatMoney(t.SendAmount),
		ReceiveAmount:    formatMoney(t.ReceiveAmount),
		ExchangeRate:     t.ExchangeRate.String(),
		Fee:              formatMoney(t.Fee),
		TotalAmount:      formatMoney(t.TotalAmount),
		DeliveryMethod:   string(t.DeliveryMethod),
		RecipientDetails: maskRecipient(t.Recipient),
		Status:           string(t.Status),
		Step:             string(t.Step),
		NetworkReference: t.NetworkReference,
		FailureReason:    t.FailureReason,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		CompletedAt:      t.CompletedAt,
	}
	if t.Step != "" {
		dto.StepLabel = t.Step.Label()
	}
	return dto
}

type transferEventDTO struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Step      string    `json:"step,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	fields, recipient := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	t, err := h.transfers.Create(r.Context(), transfer.CreateRequest{
		UserID:         userID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		FromCurrency:   domain.Currency(req.FromCurrency),
		ToCurrency:     domain.Currency(req.ToCurrency),
		SendAmount:     req.SendAmount,
		DeliveryMethod: domain.DeliveryMethod(req.DeliveryMethod),
		Recipient:      recipient,
		RecipientID:    req.RecipientID,
	})
	if err != nil {
		log.Warn("transfer creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/transfers/%s", t.ID))
	RespondSuccess(w, http.StatusCreated, toTransferDTO(t))
}

func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	limit, offset, fields := parsePage(r)
	status := domain.TransferStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		fields = append(fields, FieldError{Field: "status", Message: "must be pending, processing, completed, or failed"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	transfers, err := h.transfers.List(r.Context(), userID, domain.TransferFilter{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transfers", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transferDTO, len(transfers))
	for i := range transfers {
		dtos[i] = toTransferDTO(&transfers[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedPathID(r, ErrTransferNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	t, err := h.transfers.Get(r.Context(), userID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransferDTO(t))
}

// Advance moves a pending transfer to processing and returns at once; the
// remaining steps run in the background.
func (h *TransferHandler) Advance(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedPathID(r, ErrTransferNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	t, err := h.transfers.AdvanceAsync(r.Context(), userID, id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer advance failed", "transfer_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusAccepted, toTransferDTO(t))
}

func (h *TransferHandler) Events(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedPathID(r, ErrTransferNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	evts, err := h.transfers.Events(r.Context(), userID, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transferEventDTO, len(evts))
	for i, e := range evts {
		dtos[i] = transferEventDTO{
			ID:        e.ID,
			Type:      string(e.EventType),
			Step:      string(e.Step),
			Attempt:   e.Attempt,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

// parseRecipient reads a flat recipient object: the common fields plus the
// fields of the delivery method's destination.
func parseRecipient(method domain.DeliveryMethod, raw json.RawMessage) (domain.RecipientDetails, []FieldError) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.RecipientDetails{}, []FieldError{{Field: "recipientDetails", Message: "required"}}
	}

	var common struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(raw, &common); err != nil {
		return domain.RecipientDetails{}, []FieldError{{Field: "recipientDetails", Message: "must be an object"}}
	}
	details := domain.RecipientDetails{Name: common.Name, Email: common.Email, Country: common.Country}

	if !method.IsValid() {
		return details, nil
	}
	dest, err := domain.DecodeDestination(method, raw)
	if err != nil {
		return details, []FieldError{{Field: "recipientDetails", Message: "must be an object"}}
	}
	details.Destination = dest

	var missing *domain.MissingFieldsError
	if err := domain.ValidateRecipient(details, method); err != nil && errors.As(err, &missing) {
		return details, missingFieldErrors("recipientDetails", missing.Fields)
	}
	return details, nil
}

func maskRecipient(d domain.RecipientDetails) domain.RecipientDetails {
	if card, ok := d.Destination.(domain.CardDestination); ok {
		d.Destination = card.Masked()
	}
	return d
}

func parsePage(r *http.Request) (limit, offset int, errs []FieldError) {
	limit = defaultPageSize
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			errs = append(errs, FieldError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxPageSize)})
		} else {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "offset", Message: "must be a non-negative integer"})
		} else {
			offset = n
		}
	}
	return limit, offset, errs
}
