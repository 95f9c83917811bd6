package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

type idempotencyKey struct {
	userID uuid.UUID
	key    string
}

// TransferStore is an in-process transfer table with compare-and-swap
// status updates.
type TransferStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]domain.Transfer
	byKey map[idempotencyKey]uuid.UUID
}

func NewTransferStore() *TransferStore {
	return &TransferStore{
		byID:  make(map[uuid.UUID]domain.Transfer),
		byKey: make(map[idempotencyKey]uuid.UUID),
	}
}

func (s *TransferStore) Insert(_ context.Context, t *domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[t.ID]; ok {
		return fmt.Errorf("Insert: id %s: %w", t.ID, domain.ErrStorageConflict)
	}
	if t.IdempotencyKey != "" {
		k := idempotencyKey{t.UserID, t.IdempotencyKey}
		if _, ok := s.byKey[k]; ok {
			return fmt.Errorf("Insert: %w", domain.ErrDuplicateIdempotencyKey)
		}
		s.byKey[k] = t.ID
	}
	s.byID[t.ID] = *t
	return nil
}

func (s *TransferStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrTransferNotFound)
	}
	return &t, nil
}

func (s *TransferStore) GetByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[idempotencyKey{userID, key}]
	if !ok {
		return nil, fmt.Errorf("GetByIdempotencyKey: %w", domain.ErrTransferNotFound)
	}
	t := s.byID[id]
	return &t, nil
}

func (s *TransferStore) List(_ context.Context, f domain.TransferFilter) ([]domain.Transfer, error) {
	s.mu.RLock()
	var out []domain.Transfer
	for _, t := range s.byID {
		if f.UserID != uuid.Nil && t.UserID != f.UserID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if !f.UpdatedBefore.IsZero() && !t.UpdatedAt.Before(f.UpdatedBefore) {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (s *TransferStore) UpdateStatus(_ context.Context, id uuid.UUID, upd domain.StatusUpdate) (*domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("UpdateStatus: %w", domain.ErrTransferNotFound)
	}
	if t.Status != upd.From {
		return nil, fmt.Errorf("UpdateStatus: status is %s, expected %s: %w", t.Status, upd.From, domain.ErrStorageConflict)
	}

	now := time.Now().UTC()
	t.Status = upd.To
	t.Step = upd.Step
	if upd.NetworkReference != "" {
		t.NetworkReference = upd.NetworkReference
	}
	if upd.FailureReason != "" {
		t.FailureReason = upd.FailureReason
	}
	t.UpdatedAt = now
	if upd.To.IsTerminal() {
		t.CompletedAt = &now
	}
	s.byID[id] = t
	return &t, nil
}

func (s *TransferStore) UpdateStep(_ context.Context, id uuid.UUID, step domain.TransferStep, networkRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("UpdateStep: %w", domain.ErrTransferNotFound)
	}
	if t.Status != domain.TransferStatusProcessing {
		return fmt.Errorf("UpdateStep: status is %s: %w", t.Status, domain.ErrStorageConflict)
	}
	t.Step = step
	if networkRef != "" {
		t.NetworkReference = networkRef
	}
	t.UpdatedAt = time.Now().UTC()
	s.byID[id] = t
	return nil
}

// TransferEventStore is an append-only in-process event log.
type TransferEventStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]domain.TransferEvent
}

func NewTransferEventStore() *TransferEventStore {
	return &TransferEventStore{events: make(map[uuid.UUID][]domain.TransferEvent)}
}

func (s *TransferEventStore) Append(_ context.Context, e *domain.TransferEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.TransferID] = append(s.events[e.TransferID], *e)
	return nil
}

func (s *TransferEventStore) ListByTransfer(_ context.Context, transferID uuid.UUID) ([]domain.TransferEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TransferEvent, len(s.events[transferID]))
	copy(out, s.events[transferID])
	return out, nil
}
