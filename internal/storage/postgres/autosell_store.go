package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

// AutoSellStore implements storage.AutoSellStore using PostgreSQL.
type AutoSellStore struct {
	pool *Pool
}

// NewAutoSellStore creates a new AutoSellStore.
func NewAutoSellStore(pool *Pool) *AutoSellStore {
	return &AutoSellStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AutoSellStore = (*AutoSellStore)(nil)

const autoSellColumns = `
	id, user_id, wallet_id, token_address_to_sell, slippage::text,
	token_amount_bought, token_amount_sold, strategy, strategy_params,
	initial_price_expressed_in_sol, highest_price_expressed_in_sol,
	created_at, updated_at
`

// Insert adds an entry and returns its assigned ID.
func (s *AutoSellStore) Insert(ctx context.Context, e *domain.AutoSellEntry) (int64, error) {
	if e == nil || e.TokenAddressToSell == "" {
		return 0, storage.ErrInvalidInput
	}
	params, err := e.MarshalStrategyParams()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO auto_sell (
			user_id, wallet_id, token_address_to_sell, slippage,
			token_amount_bought, token_amount_sold, strategy, strategy_params,
			initial_price_expressed_in_sol, highest_price_expressed_in_sol
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		e.UserID, e.WalletID, e.TokenAddressToSell, e.Slippage.String(),
		e.TokenAmountBought.String(), e.TokenAmountSold.String(), string(e.Strategy), params,
		e.InitialPriceExpressedInSol.String(), e.HighestPriceExpressedInSol.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert auto sell: %w", err)
	}
	return id, nil
}

// Update persists sold amount, strategy params and highest price. Returns ErrNotFound if missing.
func (s *AutoSellStore) Update(ctx context.Context, e *domain.AutoSellEntry) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	params, err := e.MarshalStrategyParams()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE auto_sell
		SET token_amount_sold = $2,
		    strategy_params = $3,
		    highest_price_expressed_in_sol = $4,
		    updated_at = NOW()
		WHERE id = $1
	`, e.ID, e.TokenAmountSold.String(), params, e.HighestPriceExpressedInSol.String())
	if err != nil {
		return fmt.Errorf("update auto sell: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes an entry. Returns ErrNotFound if missing.
func (s *AutoSellStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM auto_sell WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete auto sell: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves an entry. Returns ErrNotFound if missing.
func (s *AutoSellStore) GetByID(ctx context.Context, id int64) (*domain.AutoSellEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+autoSellColumns+`
		FROM auto_sell
		WHERE id = $1
	`, id)

	e, err := scanAutoSell(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// GetAll retrieves every entry, ordered by ID ASC.
func (s *AutoSellStore) GetAll(ctx context.Context) ([]*domain.AutoSellEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+autoSellColumns+`
		FROM auto_sell
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get auto sells: %w", err)
	}
	defer rows.Close()

	var result []*domain.AutoSellEntry
	for rows.Next() {
		e, err := scanAutoSell(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// scanAutoSell scans a single row into an AutoSellEntry.
func scanAutoSell(row pgx.Row) (*domain.AutoSellEntry, error) {
	var e domain.AutoSellEntry
	var slippage, bought, sold, initial, highest, strategy string
	var params []byte
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&e.ID, &e.UserID, &e.WalletID, &e.TokenAddressToSell, &slippage,
		&bought, &sold, &strategy, &params,
		&initial, &highest,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan auto sell row: %w", err)
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&e.Slippage, slippage},
		{&e.TokenAmountBought, bought},
		{&e.TokenAmountSold, sold},
		{&e.InitialPriceExpressedInSol, initial},
		{&e.HighestPriceExpressedInSol, highest},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("parse auto sell decimal %q: %w", f.src, err)
		}
	}

	e.Strategy = domain.Strategy(strategy)
	if err := e.UnmarshalStrategyParams(params); err != nil {
		return nil, err
	}
	e.CreatedAt = createdAt.UnixMilli()
	e.UpdatedAt = updatedAt.UnixMilli()
	return &e, nil
}
