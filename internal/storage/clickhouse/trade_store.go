package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/fixedpoint"
	"raydium-engine/internal/storage"
)

// TradeStore implements storage.TradeStore on the dex_trades analytics table.
// It keeps the full 18 digit precision that PostgreSQL rounds away. Rows have
// no numeric ID, so trades read back carry ID 0.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	transaction_id, block_number, timestamp, signer,
	primary_token_name, primary_token_amount, primary_token_price,
	secondary_token_address, secondary_token_amount, secondary_token_price,
	transaction_type, transaction_value_in_usd, dex_name, is_using_jupiter
`

// InsertBulk adds all trades of one block as a single ClickHouse batch.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TransactionID == "" || t.SecondaryTokenAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO dex_trades (
			id, transaction_id, block_number, event_index, timestamp, signer,
			primary_token_name, primary_token_amount, primary_token_price,
			secondary_token_address, secondary_token_amount, secondary_token_price,
			transaction_type, transaction_value_in_usd, dex_name, is_using_jupiter
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, t := range trades {
		var jupiter uint8
		if t.UsingAggregator {
			jupiter = 1
		}
		err = batch.Append(
			uuid.New(), t.TransactionID, uint64(t.BlockNumber), uint32(i), uint64(t.Timestamp), t.Signer,
			string(t.PrimaryTokenName), t.PrimaryTokenAmount.Decimal(), t.PrimaryTokenPrice.Decimal(),
			t.SecondaryTokenAddress, t.SecondaryTokenAmount.Decimal(), t.SecondaryTokenPrice.Decimal(),
			string(t.TransactionType), t.TransactionValueInUSD.Decimal(), t.DexName, jupiter,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByBlock retrieves trades of a block, ordered by insertion.
func (s *TradeStore) GetByBlock(ctx context.Context, blockNumber int64) ([]*domain.Trade, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM dex_trades
		WHERE block_number = ?
		ORDER BY event_index ASC
	`, uint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("query by block: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetBySecondaryToken retrieves trades of a token within [start, end], ordered by timestamp ASC.
func (s *TradeStore) GetBySecondaryToken(ctx context.Context, mint string, start, end int64) ([]*domain.Trade, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM dex_trades
		WHERE secondary_token_address = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, block_number ASC, event_index ASC
	`, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func scanTrades(rows driver.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var (
			t                    domain.Trade
			block, ts            uint64
			primaryName, txType  string
			pAmount, pPrice      decimal.Decimal
			sAmount, sPrice, usd decimal.Decimal
			jupiter              uint8
		)
		if err := rows.Scan(
			&t.TransactionID, &block, &ts, &t.Signer,
			&primaryName, &pAmount, &pPrice,
			&t.SecondaryTokenAddress, &sAmount, &sPrice,
			&txType, &usd, &t.DexName, &jupiter,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}

		t.BlockNumber = int64(block)
		t.Timestamp = int64(ts)
		t.PrimaryTokenName = domain.PrimaryToken(primaryName)
		t.TransactionType = domain.TransactionType(txType)
		t.PrimaryTokenAmount = fixedpoint.FromDecimal(pAmount)
		t.PrimaryTokenPrice = fixedpoint.FromDecimal(pPrice)
		t.SecondaryTokenAmount = fixedpoint.FromDecimal(sAmount)
		t.SecondaryTokenPrice = fixedpoint.FromDecimal(sPrice)
		t.TransactionValueInUSD = fixedpoint.FromDecimal(usd)
		t.UsingAggregator = jupiter == 1
		trades = append(trades, &t)
	}

	return trades, rows.Err()
}
