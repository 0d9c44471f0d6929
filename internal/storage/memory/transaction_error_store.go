package memory

import (
	"context"
	"sync"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

// TransactionErrorStore is an in-memory implementation of storage.TransactionErrorStore.
type TransactionErrorStore struct {
	mu     sync.RWMutex
	data   []*domain.TransactionError
	nextID int64
}

// NewTransactionErrorStore creates a new in-memory transaction error store.
func NewTransactionErrorStore() *TransactionErrorStore {
	return &TransactionErrorStore{nextID: 1}
}

// Insert adds an error record.
func (s *TransactionErrorStore) Insert(_ context.Context, e *domain.TransactionError) error {
	if e == nil || e.TransactionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	copy.ID = s.nextID
	s.nextID++
	s.data = append(s.data, &copy)
	return nil
}

// GetByTransactionID retrieves errors recorded for a transaction, in insertion order.
func (s *TransactionErrorStore) GetByTransactionID(_ context.Context, txID string) ([]*domain.TransactionError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionError
	for _, e := range s.data {
		if e.TransactionID == txID {
			copy := *e
			result = append(result, &copy)
		}
	}
	return result, nil
}

var _ storage.TransactionErrorStore = (*TransactionErrorStore)(nil)
