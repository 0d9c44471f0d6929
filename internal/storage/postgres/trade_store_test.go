package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/fixedpoint"
	"raydium-engine/internal/storage"
)

func newTrade(sig string, block, ts int64, mint string) *domain.Trade {
	return &domain.Trade{
		TransactionID:         sig,
		BlockNumber:           block,
		Timestamp:             ts,
		Signer:                "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		PrimaryTokenName:      domain.PrimaryWSOL,
		PrimaryTokenAmount:    fixedpoint.MustParse("1.5"),
		PrimaryTokenPrice:     fixedpoint.MustParse("150.123456789"),
		SecondaryTokenAddress: mint,
		SecondaryTokenAmount:  fixedpoint.MustParse("1000"),
		SecondaryTokenPrice:   fixedpoint.MustParse("0.225185185"),
		TransactionType:       domain.TransactionBuy,
		TransactionValueInUSD: fixedpoint.MustParse("225.18518518"),
		DexName:               domain.DexRaydium,
	}
}

func TestTradeStore_InsertBulkAndGetByBlock(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trades := []*domain.Trade{
		newTrade("sig-1", 100, 1700000000, "MintA"),
		newTrade("sig-2", 100, 1700000000, "MintB"),
	}
	trades[1].UsingAggregator = true
	trades[1].TransactionType = domain.TransactionSell

	require.NoError(t, store.InsertBulk(ctx, trades))

	got, err := store.GetByBlock(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "sig-1", got[0].TransactionID)
	assert.NotZero(t, got[0].ID)
	assert.Equal(t, domain.PrimaryWSOL, got[0].PrimaryTokenName)
	// stored values are rounded to eight decimals
	assert.Equal(t, "150.12345679", got[0].PrimaryTokenPrice.StringFixed(8))
	assert.Equal(t, "0.22518519", got[0].SecondaryTokenPrice.StringFixed(8))
	assert.False(t, got[0].UsingAggregator)

	assert.Equal(t, "sig-2", got[1].TransactionID)
	assert.Equal(t, domain.TransactionSell, got[1].TransactionType)
	assert.True(t, got[1].UsingAggregator)
}

func TestTradeStore_InsertBulkIsAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	bad := newTrade("sig-bad", 200, 1700000000, "MintA")
	bad.TransactionType = "swap" // rejected by CHECK constraint

	err := store.InsertBulk(ctx, []*domain.Trade{newTrade("sig-ok", 200, 1700000000, "MintA"), bad})
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := store.GetByBlock(ctx, 200)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTradeStore_InsertBulkInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	err := store.InsertBulk(context.Background(), []*domain.Trade{newTrade("", 1, 1, "MintA")})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestTradeStore_GetBySecondaryToken(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{newTrade("sig-3", 3, 3000, "MintA")}))
	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{
		newTrade("sig-1", 1, 1000, "MintA"),
		newTrade("sig-x", 1, 1000, "MintB"),
	}))
	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{newTrade("sig-2", 2, 2000, "MintA")}))

	got, err := store.GetBySecondaryToken(ctx, "MintA", 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sig-1", got[0].TransactionID)
	assert.Equal(t, "sig-2", got[1].TransactionID)
}
