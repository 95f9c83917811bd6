package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/wallet"
)

type walletKey struct {
	userID   uuid.UUID
	currency domain.Currency
}

// WalletStore keeps wallets, holds and ledger entries in process. Each
// wallet has its own mutex so writers to one wallet run one at a time.
type WalletStore struct {
	mu       sync.Mutex
	wallets  map[walletKey]domain.Wallet
	locks    map[walletKey]*sync.Mutex
	holds    map[uuid.UUID]domain.Hold
	entries  []domain.LedgerEntry
	entryIdx map[uuid.UUID]int
	refs     map[string]struct{}
}

func NewWalletStore() *WalletStore {
	return &WalletStore{
		wallets:  make(map[walletKey]domain.Wallet),
		locks:    make(map[walletKey]*sync.Mutex),
		holds:    make(map[uuid.UUID]domain.Hold),
		entryIdx: make(map[uuid.UUID]int),
		refs:     make(map[string]struct{}),
	}
}

func (s *WalletStore) lockFor(k walletKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[k]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k] = l
	}
	return l
}

func (s *WalletStore) Update(ctx context.Context, userID uuid.UUID, currency domain.Currency, create bool, fn func(w *domain.Wallet, tx wallet.Tx) error) error {
	k := walletKey{userID, currency}
	l := s.lockFor(k)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	s.mu.Lock()
	w, ok := s.wallets[k]
	s.mu.Unlock()
	if !ok {
		if !create {
			return fmt.Errorf("Update: %w", domain.ErrWalletNotFound)
		}
		now := time.Now().UTC()
		w = domain.Wallet{
			UserID:        userID,
			Currency:      currency,
			LedgerBalance: decimal.Zero,
			Pending:       decimal.Zero,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	tx := &walletTx{store: s, holds: make(map[uuid.UUID]domain.Hold)}
	if err := fn(&w, tx); err != nil {
		return err
	}

	if w.LedgerBalance.IsNegative() || w.Pending.IsNegative() || w.Available().IsNegative() {
		return fmt.Errorf("Update: balance would go negative: %w", domain.ErrInsufficientFunds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range tx.entries {
		if _, dup := s.refs[e.Reference]; dup {
			return fmt.Errorf("Update: entry reference %s: %w", e.Reference, domain.ErrStorageConflict)
		}
	}

	w.Version++
	s.wallets[k] = w
	for id, h := range tx.holds {
		s.holds[id] = h
	}
	for _, e := range tx.entries {
		s.entryIdx[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
		s.refs[e.Reference] = struct{}{}
	}
	return nil
}

func (s *WalletStore) Get(_ context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletKey{userID, currency}]
	if !ok {
		return nil, fmt.Errorf("Get: %w", domain.ErrWalletNotFound)
	}
	return &w, nil
}

func (s *WalletStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Wallet
	for k, w := range s.wallets {
		if k.userID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (s *WalletStore) GetHold(_ context.Context, transferID uuid.UUID) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[transferID]
	if !ok {
		return nil, fmt.Errorf("GetHold: %w", domain.ErrNotFound)
	}
	return &h, nil
}

func (s *WalletStore) ListEntries(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mine []domain.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID == userID {
			mine = append(mine, s.entries[i])
		}
	}
	return paginate(mine, limit, offset), len(mine), nil
}

func (s *WalletStore) GetEntry(_ context.Context, userID, id uuid.UUID) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.entryIdx[id]
	if !ok || s.entries[i].UserID != userID {
		return nil, fmt.Errorf("GetEntry: %w", domain.ErrNotFound)
	}
	e := s.entries[i]
	return &e, nil
}

type walletTx struct {
	store   *WalletStore
	holds   map[uuid.UUID]domain.Hold
	entries []domain.LedgerEntry
}

func (tx *walletTx) GetHold(ctx context.Context, transferID uuid.UUID) (*domain.Hold, error) {
	if h, ok := tx.holds[transferID]; ok {
		return &h, nil
	}
	return tx.store.GetHold(ctx, transferID)
}

func (tx *walletTx) SaveHold(_ context.Context, hold *domain.Hold) error {
	tx.holds[hold.TransferID] = *hold
	return nil
}

func (tx *walletTx) GetEntry(_ context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	for _, e := range tx.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	i, ok := tx.store.entryIdx[id]
	if !ok {
		return nil, fmt.Errorf("GetEntry: %w", domain.ErrNotFound)
	}
	e := tx.store.entries[i]
	return &e, nil
}

func (tx *walletTx) AppendEntry(_ context.Context, entry *domain.LedgerEntry) error {
	tx.entries = append(tx.entries, *entry)
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
