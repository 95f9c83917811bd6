package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInvalidCurrency         = errors.New("invalid currency")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrLimitExceeded           = errors.New("transfer limit exceeded")
	ErrCurrencyMismatch        = errors.New("currency mismatch")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrIdempotencyConflict     = errors.New("idempotency key already used with a different request")

	ErrIdenticalCurrencyPair = errors.New("source and destination currency are identical")
	ErrRateUnavailable       = errors.New("exchange rate unavailable")
	ErrInvalidDeliveryMethod = errors.New("invalid delivery method")
	ErrMissingFields         = errors.New("missing required fields")
	ErrTransferNotFound      = errors.New("transfer not found")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrStorageConflict       = errors.New("concurrent write conflict")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrRecipientNotFound     = errors.New("recipient not found")
	ErrDispatchRejected      = errors.New("payment network rejected transfer")
)

// MissingFieldsError lists every required recipient field that was empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return ErrMissingFields.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingFields
}
