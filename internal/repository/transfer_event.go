package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

const transferEventColumns = `id, transfer_id, event_type, step, attempt, message, created_at`

type TransferEventRepository struct {
	db *sql.DB
}

func NewTransferEventRepository(db *sql.DB) *TransferEventRepository {
	return &TransferEventRepository{db: db}
}

func (r *TransferEventRepository) Append(ctx context.Context, e *domain.TransferEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transfer_events (`+transferEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.TransferID, e.EventType, e.Step, e.Attempt, e.Message, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (r *TransferEventRepository) ListByTransfer(ctx context.Context, transferID uuid.UUID) ([]domain.TransferEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transferEventColumns+` FROM transfer_events
		WHERE transfer_id = $1 ORDER BY created_at, id`, transferID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByTransfer: %w", err)
	}
	defer rows.Close()

	events := []domain.TransferEvent{}
	for rows.Next() {
		var e domain.TransferEvent
		if err := rows.Scan(&e.ID, &e.TransferID, &e.EventType, &e.Step, &e.Attempt, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByTransfer: scan: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByTransfer: rows: %w", err)
	}
	return events, nil
}
