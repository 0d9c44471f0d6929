package memory

import (
	"context"
	"sort"
	"sync"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu     sync.RWMutex
	data   []*domain.Trade
	nextID int64
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{nextID: 1}
}

// InsertBulk adds all trades atomically. Fails the entire batch on invalid input.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	for _, t := range trades {
		if t == nil || t.TransactionID == "" || t.SecondaryTokenAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		copy := *t
		copy.ID = s.nextID
		s.nextID++
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByBlock retrieves trades of a block, ordered by insertion.
func (s *TradeStore) GetByBlock(_ context.Context, blockNumber int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.BlockNumber == blockNumber {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

// GetBySecondaryToken retrieves trades of a token within [start, end], ordered by timestamp ASC.
func (s *TradeStore) GetBySecondaryToken(_ context.Context, mint string, start, end int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.SecondaryTokenAddress == mint && t.Timestamp >= start && t.Timestamp <= end {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}

// Count returns the number of stored trades.
func (s *TradeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ storage.TradeStore = (*TradeStore)(nil)
