package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/fixedpoint"
	"raydium-engine/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	id, transaction_id, timestamp, block_number, signer,
	primary_token_name, primary_token_amount::text, primary_token_price::text,
	secondary_token_address, secondary_token_amount::text, secondary_token_price::text,
	transaction_type, transaction_value_in_usd::text, dex_name, is_using_jupiter
`

// InsertBulk adds all trades of one block in a single transaction.
// Decimal values are stored rounded to domain.StoredScale digits.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		if t == nil || t.TransactionID == "" {
			return storage.ErrInvalidInput
		}
		batch.Queue(`
			INSERT INTO dex_transactions (
				transaction_id, timestamp, block_number, signer,
				primary_token_name, primary_token_amount, primary_token_price,
				secondary_token_address, secondary_token_amount, secondary_token_price,
				transaction_type, transaction_value_in_usd, dex_name, is_using_jupiter
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			t.TransactionID, t.Timestamp, t.BlockNumber, t.Signer,
			string(t.PrimaryTokenName), stored(t.PrimaryTokenAmount), stored(t.PrimaryTokenPrice),
			t.SecondaryTokenAddress, stored(t.SecondaryTokenAmount), stored(t.SecondaryTokenPrice),
			string(t.TransactionType), stored(t.TransactionValueInUSD), t.DexName, t.UsingAggregator,
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for range trades {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isCheckViolation(err) {
				return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByBlock retrieves trades of a block, ordered by insertion.
func (s *TradeStore) GetByBlock(ctx context.Context, blockNumber int64) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM dex_transactions
		WHERE block_number = $1
		ORDER BY id ASC
	`, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("get trades by block: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetBySecondaryToken retrieves trades of a token within [start, end], ordered by timestamp ASC.
func (s *TradeStore) GetBySecondaryToken(ctx context.Context, mint string, start, end int64) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM dex_transactions
		WHERE secondary_token_address = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, id ASC
	`, mint, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trades by token: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade
		var primaryName, txType string
		var pAmount, pPrice, sAmount, sPrice, usd string
		err := rows.Scan(
			&t.ID, &t.TransactionID, &t.Timestamp, &t.BlockNumber, &t.Signer,
			&primaryName, &pAmount, &pPrice,
			&t.SecondaryTokenAddress, &sAmount, &sPrice,
			&txType, &usd, &t.DexName, &t.UsingAggregator,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.PrimaryTokenName = domain.PrimaryToken(primaryName)
		t.TransactionType = domain.TransactionType(txType)

		for _, f := range []struct {
			dst *fixedpoint.Decimal
			src string
		}{
			{&t.PrimaryTokenAmount, pAmount},
			{&t.PrimaryTokenPrice, pPrice},
			{&t.SecondaryTokenAmount, sAmount},
			{&t.SecondaryTokenPrice, sPrice},
			{&t.TransactionValueInUSD, usd},
		} {
			if *f.dst, err = fixedpoint.Parse(f.src); err != nil {
				return nil, fmt.Errorf("parse trade decimal: %w", err)
			}
		}
		trades = append(trades, &t)
	}

	return trades, rows.Err()
}

// stored formats a decimal for a NUMERIC(20, 8) column.
func stored(d fixedpoint.Decimal) string {
	return d.StringFixed(domain.StoredScale)
}
