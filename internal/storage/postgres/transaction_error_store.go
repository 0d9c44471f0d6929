package postgres

import (
	"context"
	"fmt"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

// TransactionErrorStore implements storage.TransactionErrorStore using PostgreSQL.
type TransactionErrorStore struct {
	pool *Pool
}

// NewTransactionErrorStore creates a new TransactionErrorStore.
func NewTransactionErrorStore(pool *Pool) *TransactionErrorStore {
	return &TransactionErrorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionErrorStore = (*TransactionErrorStore)(nil)

// Insert adds an error record.
func (s *TransactionErrorStore) Insert(ctx context.Context, e *domain.TransactionError) error {
	if e == nil || e.TransactionID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO dex_transactions_errors (transaction_id, signer, error, dex_name)
		VALUES ($1, $2, $3, $4)
	`, e.TransactionID, e.Signer, e.Error, e.DexName)
	if err != nil {
		return fmt.Errorf("insert transaction error: %w", err)
	}
	return nil
}

// GetByTransactionID retrieves errors recorded for a transaction, in insertion order.
func (s *TransactionErrorStore) GetByTransactionID(ctx context.Context, txID string) ([]*domain.TransactionError, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, transaction_id, signer, error, dex_name
		FROM dex_transactions_errors
		WHERE transaction_id = $1
		ORDER BY id ASC
	`, txID)
	if err != nil {
		return nil, fmt.Errorf("get transaction errors: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransactionError
	for rows.Next() {
		var e domain.TransactionError
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Signer, &e.Error, &e.DexName); err != nil {
			return nil, fmt.Errorf("scan transaction error row: %w", err)
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
