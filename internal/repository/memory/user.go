package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]domain.User)}
}

func (s *UserStore) Add(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
}

type RecipientStore struct {
	mu         sync.RWMutex
	recipients map[uuid.UUID]domain.SavedRecipient
}

func NewRecipientStore() *RecipientStore {
	return &RecipientStore{recipients: make(map[uuid.UUID]domain.SavedRecipient)}
}

func (s *RecipientStore) Create(_ context.Context, r *domain.SavedRecipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[r.ID] = *r
	return nil
}

func (s *RecipientStore) GetForUser(_ context.Context, userID, id uuid.UUID) (*domain.SavedRecipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipients[id]
	if !ok || r.UserID != userID {
		return nil, fmt.Errorf("GetForUser: %w", domain.ErrRecipientNotFound)
	}
	return &r, nil
}

func (s *RecipientStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.SavedRecipient, error) {
	s.mu.RLock()
	var out []domain.SavedRecipient
	for _, r := range s.recipients {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *RecipientStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipients[id]
	if !ok || r.UserID != userID {
		return fmt.Errorf("Delete: %w", domain.ErrRecipientNotFound)
	}
	delete(s.recipients, id)
	return nil
}

// IdempotencyStore caches HTTP responses per (key, user) until they expire.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[idempotencyKey]domain.IdempotencyRecord
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[idempotencyKey]domain.IdempotencyRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdempotencyStore) Get(_ context.Context, key string, userID uuid.UUID) (*domain.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[idempotencyKey{userID, key}]
	if !ok || !r.ExpiresAt.After(s.now()) {
		return nil, nil
	}
	return &r, nil
}

func (s *IdempotencyStore) Set(_ context.Context, r *domain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyKey{r.UserID, r.Key}
	if existing, ok := s.records[k]; ok && existing.ExpiresAt.After(s.now()) {
		return nil
	}
	s.records[k] = *r
	return nil
}

func (s *IdempotencyStore) CleanExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for k, r := range s.records {
		if r.ExpiresAt.Before(now) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}
