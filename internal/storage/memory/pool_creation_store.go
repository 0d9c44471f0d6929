package memory

import (
	"context"
	"sort"
	"sync"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

// PoolCreationStore is an in-memory implementation of storage.PoolCreationStore.
type PoolCreationStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.PoolCreation // keyed by creation transaction
	nextID int64
}

// NewPoolCreationStore creates a new in-memory pool creation store.
func NewPoolCreationStore() *PoolCreationStore {
	return &PoolCreationStore{
		data:   make(map[string]*domain.PoolCreation),
		nextID: 1,
	}
}

// Insert adds a pool creation record. Returns ErrDuplicateKey if the creation transaction exists.
func (s *PoolCreationStore) Insert(_ context.Context, p *domain.PoolCreation) error {
	if p == nil || p.CreationTransaction == "" || p.SecondaryTokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.CreationTransaction]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	copy.ID = s.nextID
	s.nextID++
	s.data[p.CreationTransaction] = &copy
	return nil
}

// GetBySecondaryToken retrieves pools created for a token, ordered by timestamp ASC.
func (s *PoolCreationStore) GetBySecondaryToken(_ context.Context, mint string) ([]*domain.PoolCreation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PoolCreation
	for _, p := range s.data {
		if p.SecondaryTokenAddress == mint {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

var _ storage.PoolCreationStore = (*PoolCreationStore)(nil)
