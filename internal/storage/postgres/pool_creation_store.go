package postgres

import (
	"context"
	"fmt"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/fixedpoint"
	"raydium-engine/internal/storage"
)

// PoolCreationStore implements storage.PoolCreationStore using PostgreSQL.
type PoolCreationStore struct {
	pool *Pool
}

// NewPoolCreationStore creates a new PoolCreationStore.
func NewPoolCreationStore(pool *Pool) *PoolCreationStore {
	return &PoolCreationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolCreationStore = (*PoolCreationStore)(nil)

// Insert adds a pool creation record. Returns ErrDuplicateKey if the creation transaction exists.
func (s *PoolCreationStore) Insert(ctx context.Context, p *domain.PoolCreation) error {
	if p == nil || p.CreationTransaction == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_pair_info (
			primary_token_name, initial_primary_token_in_lp,
			secondary_token_address, initial_secondary_token_in_lp,
			token_pair_creator, timestamp, creation_transaction, dex_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		string(p.PrimaryTokenName), stored(p.InitialPrimaryAmount),
		p.SecondaryTokenAddress, stored(p.InitialSecondaryAmount),
		p.Creator, p.Timestamp, p.CreationTransaction, p.DexName,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool creation: %w", err)
	}
	return nil
}

// GetBySecondaryToken retrieves pools created for a token, ordered by timestamp ASC.
func (s *PoolCreationStore) GetBySecondaryToken(ctx context.Context, mint string) ([]*domain.PoolCreation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, primary_token_name, initial_primary_token_in_lp::text,
		       secondary_token_address, initial_secondary_token_in_lp::text,
		       token_pair_creator, timestamp, creation_transaction, dex_name
		FROM token_pair_info
		WHERE secondary_token_address = $1
		ORDER BY timestamp ASC, id ASC
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("get pools by token: %w", err)
	}
	defer rows.Close()

	var pools []*domain.PoolCreation
	for rows.Next() {
		var p domain.PoolCreation
		var name, primary, sec string
		if err := rows.Scan(
			&p.ID, &name, &primary,
			&p.SecondaryTokenAddress, &sec,
			&p.Creator, &p.Timestamp, &p.CreationTransaction, &p.DexName,
		); err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		p.PrimaryTokenName = domain.PrimaryToken(name)
		if p.InitialPrimaryAmount, err = fixedpoint.Parse(primary); err != nil {
			return nil, fmt.Errorf("parse primary amount: %w", err)
		}
		if p.InitialSecondaryAmount, err = fixedpoint.Parse(sec); err != nil {
			return nil, fmt.Errorf("parse secondary amount: %w", err)
		}
		pools = append(pools, &p)
	}
	return pools, rows.Err()
}
