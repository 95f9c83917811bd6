package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

const recipientColumns = `id, user_id, nickname, delivery_method, details, created_at`

type RecipientRepository struct {
	db *sql.DB
}

func NewRecipientRepository(db *sql.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

func (r *RecipientRepository) Create(ctx context.Context, rec *domain.SavedRecipient) error {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("Create: encode details: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO saved_recipients (`+recipientColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.UserID, rec.Nickname, rec.DeliveryMethod, string(details), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *RecipientRepository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.SavedRecipient, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recipientColumns+` FROM saved_recipients WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	rec, err := scanRecipient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUser: %w", domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("GetForUser: %w", err)
	}
	return rec, nil
}

func (r *RecipientRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SavedRecipient, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recipientColumns+` FROM saved_recipients
		WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	recipients := []domain.SavedRecipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByUser: scan: %w", err)
		}
		recipients = append(recipients, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return recipients, nil
}

func (r *RecipientRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_recipients WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrRecipientNotFound)
	}
	return nil
}

func scanRecipient(s scanner) (*domain.SavedRecipient, error) {
	var rec domain.SavedRecipient
	var details []byte
	err := s.Scan(&rec.ID, &rec.UserID, &rec.Nickname, &rec.DeliveryMethod, &details, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &rec.Details); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	return &rec, nil
}
