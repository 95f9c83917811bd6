package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransferEventType string

const (
	TransferEventCreated       TransferEventType = "created"
	TransferEventProcessing    TransferEventType = "processing"
	TransferEventStepCompleted TransferEventType = "step_completed"
	TransferEventStepFailed    TransferEventType = "step_failed"
	TransferEventCompleted     TransferEventType = "completed"
	TransferEventFailed        TransferEventType = "failed"
)

type TransferEvent struct {
	ID         uuid.UUID
	TransferID uuid.UUID
	EventType  TransferEventType
	Step       TransferStep
	Attempt    int
	Message    string
	CreatedAt  time.Time
}
