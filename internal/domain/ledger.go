package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// LedgerEntry is append-only. Reference is unique per balance-affecting event.
type LedgerEntry struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	EntryType    EntryType
	Amount       decimal.Decimal
	Currency     Currency
	Description  string
	Reference    string
	TransferID   *uuid.UUID
	BalanceAfter decimal.Decimal
	CreatedAt    time.Time
}

func TransferReference(id uuid.UUID) string {
	return "transfer:" + id.String()
}
