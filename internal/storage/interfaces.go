package storage

import (
	"context"

	"raydium-engine/internal/domain"
)

// TradeStore provides access to dex_transactions storage.
type TradeStore interface {
	// InsertBulk adds all trades of one block atomically. Fails the entire batch on any error.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByBlock retrieves trades of a block, ordered by insertion.
	GetByBlock(ctx context.Context, blockNumber int64) ([]*domain.Trade, error)

	// GetBySecondaryToken retrieves trades of a token within [start, end] (Unix seconds, inclusive).
	GetBySecondaryToken(ctx context.Context, mint string, start, end int64) ([]*domain.Trade, error)
}

// PoolCreationStore provides access to token_pair_info storage.
type PoolCreationStore interface {
	// Insert adds a pool creation record. Returns ErrDuplicateKey if the creation transaction exists.
	Insert(ctx context.Context, p *domain.PoolCreation) error

	// GetBySecondaryToken retrieves pools created for a token, ordered by timestamp ASC.
	GetBySecondaryToken(ctx context.Context, mint string) ([]*domain.PoolCreation, error)
}

// AutoSellStore provides access to auto_sell storage.
type AutoSellStore interface {
	// Insert adds an entry and returns its assigned ID.
	Insert(ctx context.Context, e *domain.AutoSellEntry) (int64, error)

	// Update persists sold amount, strategy params and highest price. Returns ErrNotFound if missing.
	Update(ctx context.Context, e *domain.AutoSellEntry) error

	// Delete removes an entry. Returns ErrNotFound if missing.
	Delete(ctx context.Context, id int64) error

	// GetByID retrieves an entry. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id int64) (*domain.AutoSellEntry, error)

	// GetAll retrieves every entry, ordered by ID ASC.
	GetAll(ctx context.Context) ([]*domain.AutoSellEntry, error)
}

// TransactionErrorStore provides access to dex_transactions_errors storage.
type TransactionErrorStore interface {
	// Insert adds an error record.
	Insert(ctx context.Context, e *domain.TransactionError) error

	// GetByTransactionID retrieves errors recorded for a transaction.
	GetByTransactionID(ctx context.Context, txID string) ([]*domain.TransactionError, error)
}
