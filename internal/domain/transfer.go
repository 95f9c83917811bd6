package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusProcessing TransferStatus = "processing"
	TransferStatusCompleted  TransferStatus = "completed"
	TransferStatusFailed     TransferStatus = "failed"
)

func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusProcessing, TransferStatusCompleted, TransferStatusFailed:
		return true
	}
	return false
}

func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed
}

// CanTransitionTo reports whether next directly follows s.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	switch s {
	case TransferStatusPending:
		return next == TransferStatusProcessing
	case TransferStatusProcessing:
		return next == TransferStatusCompleted || next == TransferStatusFailed
	}
	return false
}

// TransferStep names a processing sub-state. Steps are recorded for
// visibility only; the persisted lifecycle is TransferStatus.
type TransferStep string

const (
	StepValidatingDetails TransferStep = "validating_details"
	StepLockingRate       TransferStep = "locking_rate"
	StepSendingToNetwork  TransferStep = "sending_to_network"
	StepCompleted         TransferStep = "completed"
)

var stepLabels = map[TransferStep]string{
	StepValidatingDetails: "Validating transfer details",
	StepLockingRate:       "Locking in your exchange rate",
	StepSendingToNetwork:  "Sending to partner network",
	StepCompleted:         "Transfer completed",
}

func (s TransferStep) Label() string {
	if l, ok := stepLabels[s]; ok {
		return l
	}
	return string(s)
}

type Transfer struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	IdempotencyKey   string
	FromCurrency     Currency
	ToCurrency       Currency
	SendAmount       decimal.Decimal
	ReceiveAmount    decimal.Decimal
	ExchangeRate     decimal.Decimal
	Fee              decimal.Decimal
	TotalAmount      decimal.Decimal
	DeliveryMethod   DeliveryMethod
	Recipient        RecipientDetails
	Status           TransferStatus
	Step             TransferStep
	NetworkReference string
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// Total is the amount held against and finally debited from the sender wallet.
func (t *Transfer) Total() Money {
	return Money{Amount: t.TotalAmount, Currency: t.FromCurrency}
}

type TransferFilter struct {
	UserID        uuid.UUID
	Status        TransferStatus
	UpdatedBefore time.Time
	Limit         int
	Offset        int
}

// StatusUpdate describes a compare-and-swap on a transfer's status.
type StatusUpdate struct {
	From             TransferStatus
	To               TransferStatus
	Step             TransferStep
	NetworkReference string
	FailureReason    string
}
