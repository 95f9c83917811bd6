package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds one user's balance in one currency.
// Available balance is always LedgerBalance - Pending.
type Wallet struct {
	UserID        uuid.UUID
	Currency      Currency
	LedgerBalance decimal.Decimal
	Pending       decimal.Decimal
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (w *Wallet) Available() decimal.Decimal {
	return w.LedgerBalance.Sub(w.Pending)
}

type WalletSummary struct {
	UserID        uuid.UUID
	Currency      Currency
	Balance       decimal.Decimal
	Pending       decimal.Decimal
	LedgerBalance decimal.Decimal
	LastUpdated   time.Time
}

func (w *Wallet) Summary() WalletSummary {
	return WalletSummary{
		UserID:        w.UserID,
		Currency:      w.Currency,
		Balance:       w.Available(),
		Pending:       w.Pending,
		LedgerBalance: w.LedgerBalance,
		LastUpdated:   w.UpdatedAt,
	}
}

type HoldStatus string

const (
	HoldStatusHeld     HoldStatus = "held"
	HoldStatusCaptured HoldStatus = "captured"
	HoldStatusReleased HoldStatus = "released"
)

// Hold reserves a transfer's total against the sender wallet while it is in flight.
type Hold struct {
	TransferID    uuid.UUID
	UserID        uuid.UUID
	Currency      Currency
	Amount        decimal.Decimal
	Status        HoldStatus
	LedgerEntryID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
