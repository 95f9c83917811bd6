package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrAccountSuspended   = &AppError{http.StatusForbidden, "ACCOUNT_SUSPENDED", "Account is suspended"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds     = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrLimitExceeded         = &AppError{http.StatusUnprocessableEntity, "TRANSFER_LIMIT_EXCEEDED", "Transfer limit exceeded"}
	ErrRecipientNotFound     = &AppError{http.StatusNotFound, "RECIPIENT_NOT_FOUND", "Recipient not found"}
	ErrTransferNotFound      = &AppError{http.StatusNotFound, "TRANSFER_NOT_FOUND", "Transfer not found"}
	ErrWalletNotFound        = &AppError{http.StatusNotFound, "WALLET_NOT_FOUND", "Wallet not found"}
	ErrInvalidCurrency       = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrIdenticalCurrencyPair = &AppError{http.StatusBadRequest, "IDENTICAL_CURRENCY_PAIR", "Source and destination currency must differ"}
	ErrCurrencyMismatch      = &AppError{http.StatusUnprocessableEntity, "CURRENCY_MISMATCH", "Currency mismatch"}
	ErrInvalidAmount         = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero with at most two decimal places"}
	ErrInvalidDeliveryMethod = &AppError{http.StatusBadRequest, "INVALID_DELIVERY_METHOD", "Delivery method must be bank, card, or cash"}
	ErrInvalidTransition     = &AppError{http.StatusConflict, "INVALID_TRANSITION", "Transfer cannot move to the requested status"}
	ErrStorageConflict       = &AppError{http.StatusConflict, "STORAGE_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrRateUnavailable       = &AppError{http.StatusServiceUnavailable, "RATE_UNAVAILABLE", "Exchange rate is currently unavailable"}
	ErrDispatchRejected      = &AppError{http.StatusUnprocessableEntity, "DISPATCH_REJECTED", "Payment network rejected the transfer"}
)
