package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

// Tx exposes the hold and entry records of one locked wallet.
type Tx interface {
	GetHold(ctx context.Context, transferID uuid.UUID) (*domain.Hold, error)
	SaveHold(ctx context.Context, hold *domain.Hold) error
	GetEntry(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	AppendEntry(ctx context.Context, entry *domain.LedgerEntry) error
}

// Store serialises all writes to a wallet. Update locks the wallet row,
// hands a copy to fn and persists it only if fn returns nil.
type Store interface {
	Update(ctx context.Context, userID uuid.UUID, currency domain.Currency, create bool, fn func(w *domain.Wallet, tx Tx) error) error
	Get(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	GetHold(ctx context.Context, transferID uuid.UUID) (*domain.Hold, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error)
	GetEntry(ctx context.Context, userID, id uuid.UUID) (*domain.LedgerEntry, error)
}

// Ledger owns wallet balances. A transfer's total is held at creation,
// then either captured as a debit entry or released.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Hold reserves t's total against the sender wallet. Repeated calls for
// the same transfer are no-ops.
func (l *Ledger) Hold(ctx context.Context, t *domain.Transfer) error {
	total := t.Total()

	err := l.store.Update(ctx, t.UserID, total.Currency, false, func(w *domain.Wallet, tx Tx) error {
		existing, err := tx.GetHold(ctx, t.ID)
		if err == nil {
			if existing.Status != domain.HoldStatusHeld {
				return fmt.Errorf("hold is %s: %w", existing.Status, domain.ErrInvalidTransition)
			}
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if w.Available().LessThan(total.Amount) {
			return fmt.Errorf("available %s, need %s: %w", w.Available(), total, domain.ErrInsufficientFunds)
		}

		now := l.now()
		w.Pending = w.Pending.Add(total.Amount)
		w.UpdatedAt = now

		return tx.SaveHold(ctx, &domain.Hold{
			TransferID: t.ID,
			UserID:     t.UserID,
			Currency:   total.Currency,
			Amount:     total.Amount,
			Status:     domain.HoldStatusHeld,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return fmt.Errorf("Hold: no %s wallet: %w", total.Currency, domain.ErrInsufficientFunds)
		}
		return fmt.Errorf("Hold: %w", err)
	}

	logging.FromContext(ctx).Info("funds held", "transfer_id", t.ID, "amount", total.String())
	return nil
}

// Debit settles t: ledger balance and pending both drop by the total and a
// debit entry referencing the transfer is appended. A transfer is debited at
// most once; a repeated call returns the original entry.
func (l *Ledger) Debit(ctx context.Context, t *domain.Transfer) (*domain.LedgerEntry, error) {
	total := t.Total()
	var entry *domain.LedgerEntry

	err := l.store.Update(ctx, t.UserID, total.Currency, false, func(w *domain.Wallet, tx Tx) error {
		hold, err := tx.GetHold(ctx, t.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		now := l.now()
		switch {
		case hold == nil:
			if w.Available().LessThan(total.Amount) {
				return fmt.Errorf("available %s, need %s: %w", w.Available(), total, domain.ErrInsufficientFunds)
			}
			hold = &domain.Hold{
				TransferID: t.ID,
				UserID:     t.UserID,
				Currency:   total.Currency,
				Amount:     total.Amount,
				CreatedAt:  now,
			}
		case hold.Status == domain.HoldStatusCaptured:
			entry, err = tx.GetEntry(ctx, *hold.LedgerEntryID)
			return err
		case hold.Status == domain.HoldStatusReleased:
			return fmt.Errorf("hold already released: %w", domain.ErrInvalidTransition)
		default:
			w.Pending = w.Pending.Sub(hold.Amount)
		}

		w.LedgerBalance = w.LedgerBalance.Sub(total.Amount)
		w.UpdatedAt = now

		transferID := t.ID
		entry = &domain.LedgerEntry{
			ID:           uuid.New(),
			UserID:       t.UserID,
			EntryType:    domain.EntryTypeDebit,
			Amount:       total.Amount,
			Currency:     total.Currency,
			Description:  debitDescription(t),
			Reference:    domain.TransferReference(t.ID),
			TransferID:   &transferID,
			BalanceAfter: w.LedgerBalance,
			CreatedAt:    now,
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return err
		}

		hold.Status = domain.HoldStatusCaptured
		hold.LedgerEntryID = &entry.ID
		hold.UpdatedAt = now
		return tx.SaveHold(ctx, hold)
	})
	if err != nil {
		return nil, fmt.Errorf("Debit: %w", err)
	}

	logging.FromContext(ctx).Info("wallet debited", "transfer_id", t.ID, "entry_id", entry.ID, "amount", total.String())
	return entry, nil
}

// Release returns a held total to the available balance. It is a no-op when
// nothing is held for t, and refuses once the hold was captured.
func (l *Ledger) Release(ctx context.Context, t *domain.Transfer) error {
	total := t.Total()
	released := false

	err := l.store.Update(ctx, t.UserID, total.Currency, false, func(w *domain.Wallet, tx Tx) error {
		hold, err := tx.GetHold(ctx, t.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		switch hold.Status {
		case domain.HoldStatusReleased:
			return nil
		case domain.HoldStatusCaptured:
			return fmt.Errorf("hold already captured: %w", domain.ErrInvalidTransition)
		}

		now := l.now()
		w.Pending = w.Pending.Sub(hold.Amount)
		w.UpdatedAt = now
		hold.Status = domain.HoldStatusReleased
		hold.UpdatedAt = now
		released = true
		return tx.SaveHold(ctx, hold)
	})
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return nil
		}
		return fmt.Errorf("Release: %w", err)
	}

	if released {
		logging.FromContext(ctx).Info("hold released", "transfer_id", t.ID, "amount", total.String())
	}
	return nil
}

// Credit tops up a wallet, opening it on first use.
func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount domain.Money, description string) (*domain.LedgerEntry, error) {
	if !amount.Currency.IsValid() {
		return nil, fmt.Errorf("Credit: %w", domain.ErrInvalidCurrency)
	}
	if !amount.IsPositive() || !domain.HasMoneyScale(amount.Amount) {
		return nil, fmt.Errorf("Credit: %w", domain.ErrInvalidAmount)
	}
	if description == "" {
		description = "Wallet top-up"
	}

	var entry *domain.LedgerEntry
	err := l.store.Update(ctx, userID, amount.Currency, true, func(w *domain.Wallet, tx Tx) error {
		now := l.now()
		w.LedgerBalance = w.LedgerBalance.Add(amount.Amount)
		w.UpdatedAt = now

		id := uuid.New()
		entry = &domain.LedgerEntry{
			ID:           id,
			UserID:       userID,
			EntryType:    domain.EntryTypeCredit,
			Amount:       amount.Amount,
			Currency:     amount.Currency,
			Description:  description,
			Reference:    "credit:" + id.String(),
			BalanceAfter: w.LedgerBalance,
			CreatedAt:    now,
		}
		return tx.AppendEntry(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("Credit: %w", err)
	}

	logging.FromContext(ctx).Info("wallet credited", "user_id", userID, "entry_id", entry.ID, "amount", amount.String())
	return entry, nil
}

// Summary reports a wallet; a wallet never credited reads as all zeros.
func (l *Ledger) Summary(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.WalletSummary, error) {
	if !currency.IsValid() {
		return nil, fmt.Errorf("Summary: %w", domain.ErrInvalidCurrency)
	}

	w, err := l.store.Get(ctx, userID, currency)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return &domain.WalletSummary{
			UserID:        userID,
			Currency:      currency,
			Balance:       decimal.Zero,
			Pending:       decimal.Zero,
			LedgerBalance: decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}

	s := w.Summary()
	return &s, nil
}

func (l *Ledger) Summaries(ctx context.Context, userID uuid.UUID) ([]domain.WalletSummary, error) {
	wallets, err := l.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Summaries: %w", err)
	}

	out := make([]domain.WalletSummary, len(wallets))
	for i := range wallets {
		out[i] = wallets[i].Summary()
	}
	return out, nil
}

func (l *Ledger) Entries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	entries, total, err := l.store.ListEntries(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("Entries: %w", err)
	}
	return entries, total, nil
}

func (l *Ledger) Entry(ctx context.Context, userID, id uuid.UUID) (*domain.LedgerEntry, error) {
	e, err := l.store.GetEntry(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("Entry: %w", err)
	}
	return e, nil
}

// HoldFor returns the hold placed for a transfer, or ErrNotFound.
func (l *Ledger) HoldFor(ctx context.Context, transferID uuid.UUID) (*domain.Hold, error) {
	h, err := l.store.GetHold(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("HoldFor: %w", err)
	}
	return h, nil
}

func debitDescription(t *domain.Transfer) string {
	name := t.Recipient.Name
	if name == "" {
		name = "recipient"
	}
	return fmt.Sprintf("Transfer to %s (%s %s)", name, t.ReceiveAmount.StringFixed(domain.MoneyScale), t.ToCurrency)
}
