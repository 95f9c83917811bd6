package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/wallet"
)

const walletColumns = `user_id, currency, ledger_balance, pending, version, created_at, updated_at`

const holdColumns = `transfer_id, user_id, currency, amount, status, ledger_entry_id, created_at, updated_at`

// WalletRepository stores wallets, holds and ledger entries. Every write goes
// through Update, which locks the wallet row for the length of one transaction.
type WalletRepository struct {
	db *DB
}

func NewWalletRepository(db *DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Update(ctx context.Context, userID uuid.UUID, currency domain.Currency, create bool, fn func(w *domain.Wallet, tx wallet.Tx) error) error {
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		if create {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO wallets (user_id, currency) VALUES ($1, $2)
				ON CONFLICT (user_id, currency) DO NOTHING`,
				userID, currency,
			)
			if err != nil {
				return fmt.Errorf("open wallet: %w", err)
			}
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+walletColumns+` FROM wallets
			WHERE user_id = $1 AND currency = $2 FOR UPDATE`,
			userID, currency,
		)
		w, err := scanWallet(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrWalletNotFound
			}
			return fmt.Errorf("lock wallet: %w", err)
		}

		if err := fn(w, &walletTx{tx: tx}); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE wallets SET ledger_balance = $1, pending = $2, version = version + 1, updated_at = $3
			WHERE user_id = $4 AND currency = $5 AND version = $6`,
			w.LedgerBalance, w.Pending, w.UpdatedAt, userID, currency, w.Version,
		)
		if err != nil {
			if isCheckViolation(err) {
				return fmt.Errorf("balance would go negative: %w", domain.ErrInsufficientFunds)
			}
			return fmt.Errorf("save wallet: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("save wallet: rows affected: %w", err)
		}
		if n == 0 {
			return domain.ErrStorageConflict
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (r *WalletRepository) Get(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	row := r.db.Conn().QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 AND currency = $2`,
		userID, currency,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 ORDER BY currency`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByUser: scan: %w", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return wallets, nil
}

func (r *WalletRepository) GetHold(ctx context.Context, transferID uuid.UUID) (*domain.Hold, error) {
	h, err := getHold(ctx, r.db.Conn(), transferID)
	if err != nil {
		return nil, fmt.Errorf("GetHold: %w", err)
	}
	return h, nil
}

func (r *WalletRepository) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	return listLedgerEntries(ctx, r.db.Conn(), userID, limit, offset)
}

func (r *WalletRepository) GetEntry(ctx context.Context, userID, id uuid.UUID) (*domain.LedgerEntry, error) {
	row := r.db.Conn().QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetEntry: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetEntry: %w", err)
	}
	return e, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// walletTx implements wallet.Tx on the transaction holding the wallet lock.
type walletTx struct {
	tx *sql.Tx
}

func (t *walletTx) GetHold(ctx context.Context, transferID uuid.UUID) (*domain.Hold, error) {
	return getHold(ctx, t.tx, transferID)
}

func (t *walletTx) SaveHold(ctx context.Context, h *domain.Hold) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO wallet_holds (`+holdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (transfer_id) DO UPDATE
		SET status = EXCLUDED.status, ledger_entry_id = EXCLUDED.ledger_entry_id, updated_at = EXCLUDED.updated_at`,
		h.TransferID, h.UserID, h.Currency, h.Amount, h.Status, h.LedgerEntryID, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveHold: %w", err)
	}
	return nil
}

func (t *walletTx) GetEntry(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1`, id)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetEntry: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetEntry: %w", err)
	}
	return e, nil
}

func (t *walletTx) AppendEntry(ctx context.Context, e *domain.LedgerEntry) error {
	return insertLedgerEntry(ctx, t.tx, e)
}

func getHold(ctx context.Context, q queryer, transferID uuid.UUID) (*domain.Hold, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM wallet_holds WHERE transfer_id = $1`, transferID,
	)
	h, err := scanHold(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

func scanWallet(s scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.Scan(
		&w.UserID, &w.Currency, &w.LedgerBalance, &w.Pending,
		&w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanHold(s scanner) (*domain.Hold, error) {
	var h domain.Hold
	var entryID uuid.NullUUID
	err := s.Scan(
		&h.TransferID, &h.UserID, &h.Currency, &h.Amount,
		&h.Status, &entryID, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if entryID.Valid {
		h.LedgerEntryID = &entryID.UUID
	}
	return &h, nil
}
