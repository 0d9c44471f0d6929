package storage

import (
	"context"
	"fmt"

	"raydium-engine/internal/domain"
)

// MirrorTradeStore writes trades to a primary store and copies every
// successful batch to secondary stores. Reads are served by the primary.
// A mirror failure never fails the write; it is reported to onError.
type MirrorTradeStore struct {
	primary TradeStore
	mirrors []TradeStore
	onError func(error)
}

// NewMirrorTradeStore creates a MirrorTradeStore. onError may be nil.
func NewMirrorTradeStore(primary TradeStore, onError func(error), mirrors ...TradeStore) *MirrorTradeStore {
	if onError == nil {
		onError = func(error) {}
	}
	return &MirrorTradeStore{primary: primary, mirrors: mirrors, onError: onError}
}

// Compile-time interface check.
var _ TradeStore = (*MirrorTradeStore)(nil)

// InsertBulk inserts into the primary, then into each mirror.
func (s *MirrorTradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if err := s.primary.InsertBulk(ctx, trades); err != nil {
		return err
	}
	for i, m := range s.mirrors {
		if err := m.InsertBulk(ctx, trades); err != nil {
			s.onError(fmt.Errorf("mirror %d: %w", i, err))
		}
	}
	return nil
}

// GetByBlock reads from the primary store.
func (s *MirrorTradeStore) GetByBlock(ctx context.Context, blockNumber int64) ([]*domain.Trade, error) {
	return s.primary.GetByBlock(ctx, blockNumber)
}

// GetBySecondaryToken reads from the primary store.
func (s *MirrorTradeStore) GetBySecondaryToken(ctx context.Context, mint string, start, end int64) ([]*domain.Trade, error) {
	return s.primary.GetBySecondaryToken(ctx, mint, start, end)
}
