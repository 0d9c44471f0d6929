package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

// AutoSellStore is an in-memory implementation of storage.AutoSellStore.
type AutoSellStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.AutoSellEntry
	nextID int64
}

// NewAutoSellStore creates a new in-memory auto-sell store.
func NewAutoSellStore() *AutoSellStore {
	return &AutoSellStore{
		data:   make(map[int64]*domain.AutoSellEntry),
		nextID: 1,
	}
}

// Insert adds an entry and returns its assigned ID.
func (s *AutoSellStore) Insert(_ context.Context, e *domain.AutoSellEntry) (int64, error) {
	if e == nil || e.TokenAddressToSell == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	stored := e.Clone()
	stored.ID = s.nextID
	s.nextID++
	if stored.CreatedAt == 0 {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.data[stored.ID] = stored
	return stored.ID, nil
}

// Update persists sold amount, strategy params and highest price. Returns ErrNotFound if missing.
func (s *AutoSellStore) Update(_ context.Context, e *domain.AutoSellEntry) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[e.ID]
	if !ok {
		return storage.ErrNotFound
	}

	next := e.Clone()
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = time.Now().UnixMilli()
	s.data[e.ID] = next
	return nil
}

// Delete removes an entry. Returns ErrNotFound if missing.
func (s *AutoSellStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// GetByID retrieves an entry. Returns ErrNotFound if missing.
func (s *AutoSellStore) GetByID(_ context.Context, id int64) (*domain.AutoSellEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e.Clone(), nil
}

// GetAll retrieves every entry, ordered by ID ASC.
func (s *AutoSellStore) GetAll(_ context.Context) ([]*domain.AutoSellEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AutoSellEntry, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, e.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

var _ storage.AutoSellStore = (*AutoSellStore)(nil)
