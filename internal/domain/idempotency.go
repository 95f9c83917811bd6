package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord is a cached HTTP response replayed for a repeated key.
type IdempotencyRecord struct {
	Key          string
	UserID       uuid.UUID
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}
