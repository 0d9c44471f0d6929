package memory

import (
	"context"
	"sync"
	"time"

	"raydium-engine/internal/storage"
)

// ListenerProgressStore is an in-memory implementation of storage.ListenerProgressStore.
type ListenerProgressStore struct {
	mu       sync.RWMutex
	progress *storage.ListenerProgress
}

// NewListenerProgressStore creates a new in-memory listener progress store.
func NewListenerProgressStore() *ListenerProgressStore {
	return &ListenerProgressStore{}
}

// GetLastProcessed returns the last processed slot.
func (s *ListenerProgressStore) GetLastProcessed(_ context.Context) (*storage.ListenerProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.progress == nil {
		return nil, storage.ErrNotFound
	}
	copy := *s.progress
	return &copy, nil
}

// SetLastProcessed saves the last processed slot.
func (s *ListenerProgressStore) SetLastProcessed(_ context.Context, slot int64) error {
	if slot < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = &storage.ListenerProgress{
		Slot:      slot,
		UpdatedAt: time.Now().UnixMilli(),
	}
	return nil
}

var _ storage.ListenerProgressStore = (*ListenerProgressStore)(nil)
