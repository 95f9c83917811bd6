package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

var domainErrors = []struct {
	err    error
	appErr *AppError
}{
	{domain.ErrTransferNotFound, ErrTransferNotFound},
	{domain.ErrRecipientNotFound, ErrRecipientNotFound},
	{domain.ErrWalletNotFound, ErrWalletNotFound},
	{domain.ErrNotFound, ErrResourceNotFound},
	{domain.ErrInsufficientFunds, ErrInsufficientFunds},
	{domain.ErrLimitExceeded, ErrLimitExceeded},
	{domain.ErrInvalidCurrency, ErrInvalidCurrency},
	{domain.ErrIdenticalCurrencyPair, ErrIdenticalCurrencyPair},
	{domain.ErrCurrencyMismatch, ErrCurrencyMismatch},
	{domain.ErrInvalidAmount, ErrInvalidAmount},
	{domain.ErrInvalidDeliveryMethod, ErrInvalidDeliveryMethod},
	{domain.ErrInvalidTransition, ErrInvalidTransition},
	{domain.ErrStorageConflict, ErrStorageConflict},
	{domain.ErrIdempotencyConflict, ErrIdempotencyConflict},
	{domain.ErrDuplicateIdempotencyKey, ErrIdempotencyConflict},
	{domain.ErrRateUnavailable, ErrRateUnavailable},
	{domain.ErrDispatchRejected, ErrDispatchRejected},
	{domain.ErrInvalidRequest, ErrInvalidRequest},
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var missing *domain.MissingFieldsError
	if errors.As(err, &missing) {
		RespondValidationError(w, missingFieldErrors("recipientDetails", missing.Fields))
		return
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			RespondAppError(w, m.appErr, nil)
			return
		}
	}

	slog.Error("unhandled domain error", "error", err)
	RespondAppError(w, ErrInternalError, nil)
}

func missingFieldErrors(prefix string, fields []string) []FieldError {
	out := make([]FieldError, len(fields))
	for i, f := range fields {
		out[i] = FieldError{Field: prefix + "." + f, Message: "required"}
	}
	return out
}
