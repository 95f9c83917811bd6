package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

const transferColumns = `id, user_id, idempotency_key, from_currency, to_currency,
	send_amount, receive_amount, exchange_rate, fee, total_amount,
	delivery_method, recipient, status, step, network_reference, failure_reason,
	created_at, updated_at, completed_at`

type TransferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Insert(ctx context.Context, t *domain.Transfer) error {
	recipient, err := json.Marshal(t.Recipient)
	if err != nil {
		return fmt.Errorf("Insert: encode recipient: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transfers (`+transferColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19
		)`,
		t.ID, t.UserID, nullString(t.IdempotencyKey), t.FromCurrency, t.ToCurrency,
		t.SendAmount, t.ReceiveAmount, t.ExchangeRate, t.Fee, t.TotalAmount,
		t.DeliveryMethod, string(recipient), t.Status, t.Step, t.NetworkReference, t.FailureReason,
		t.CreatedAt, t.UpdatedAt, t.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Insert: %w", domain.ErrDuplicateIdempotencyKey)
		}
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id,
	)
	t, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrTransferNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func (r *TransferRepository) GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Transfer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE user_id = $1 AND idempotency_key = $2`,
		userID, key,
	)
	t, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIdempotencyKey: %w", domain.ErrTransferNotFound)
		}
		return nil, fmt.Errorf("GetByIdempotencyKey: %w", err)
	}
	return t, nil
}

func (r *TransferRepository) List(ctx context.Context, f domain.TransferFilter) ([]domain.Transfer, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != uuid.Nil {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if !f.UpdatedBefore.IsZero() {
		add("updated_at < $%d", f.UpdatedBefore)
	}

	query := `SELECT ` + transferColumns + ` FROM transfers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	transfers := []domain.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		transfers = append(transfers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return transfers, nil
}

// UpdateStatus moves a transfer from upd.From to upd.To. It fails with
// ErrStorageConflict when another writer changed the status first.
func (r *TransferRepository) UpdateStatus(ctx context.Context, id uuid.UUID, upd domain.StatusUpdate) (*domain.Transfer, error) {
	var completedAt *time.Time
	if upd.To.IsTerminal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE transfers SET
			status = $1,
			step = $2,
			network_reference = COALESCE(NULLIF($3, ''), network_reference),
			failure_reason = COALESCE(NULLIF($4, ''), failure_reason),
			completed_at = COALESCE($5, completed_at),
			updated_at = now()
		WHERE id = $6 AND status = $7
		RETURNING `+transferColumns,
		upd.To, upd.Step, upd.NetworkReference, upd.FailureReason, completedAt, id, upd.From,
	)
	t, err := scanTransfer(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("UpdateStatus: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("UpdateStatus: %w", err)
	}
	return nil, fmt.Errorf("UpdateStatus: expected %s: %w", upd.From, domain.ErrStorageConflict)
}

func (r *TransferRepository) UpdateStep(ctx context.Context, id uuid.UUID, step domain.TransferStep, networkRef string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transfers SET step = $1, network_reference = COALESCE(NULLIF($2, ''), network_reference), updated_at = now()
		WHERE id = $3 AND status = $4`,
		step, networkRef, id, domain.TransferStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("UpdateStep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStep: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateStep: %w", domain.ErrStorageConflict)
	}
	return nil
}

func scanTransfer(s scanner) (*domain.Transfer, error) {
	var t domain.Transfer
	var key sql.NullString
	var recipient []byte

	err := s.Scan(
		&t.ID, &t.UserID, &key, &t.FromCurrency, &t.ToCurrency,
		&t.SendAmount, &t.ReceiveAmount, &t.ExchangeRate, &t.Fee, &t.TotalAmount,
		&t.DeliveryMethod, &recipient, &t.Status, &t.Step, &t.NetworkReference, &t.FailureReason,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	t.IdempotencyKey = key.String
	if err := json.Unmarshal(recipient, &t.Recipient); err != nil {
		return nil, fmt.Errorf("decode recipient: %w", err)
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
