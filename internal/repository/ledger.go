package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

const ledgerColumns = `id, user_id, entry_type, amount, currency, description,
	reference, transfer_id, balance_after, created_at`

func insertLedgerEntry(ctx context.Context, tx *sql.Tx, e *domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, user_id, entry_type, amount, currency, description,
			reference, transfer_id, balance_after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.UserID, e.EntryType, e.Amount, e.Currency, e.Description,
		e.Reference, e.TransferID, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("AppendEntry: reference %s: %w", e.Reference, domain.ErrStorageConflict)
		}
		return fmt.Errorf("AppendEntry: %w", err)
	}
	return nil
}

func listLedgerEntries(ctx context.Context, q queryer, userID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListEntries: count: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListEntries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListEntries: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListEntries: rows: %w", err)
	}
	return entries, total, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var transferID uuid.NullUUID
	err := s.Scan(
		&e.ID, &e.UserID, &e.EntryType, &e.Amount, &e.Currency, &e.Description,
		&e.Reference, &transferID, &e.BalanceAfter, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if transferID.Valid {
		e.TransferID = &transferID.UUID
	}
	return &e, nil
}
