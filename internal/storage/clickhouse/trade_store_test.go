package clickhouse

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
		PrimaryTokenPrice:     fixedpoint.MustParse("150.123456789012345678"),
		SecondaryTokenAddress: mint,
		SecondaryTokenAmount:  fixedpoint.MustParse("1000"),
		SecondaryTokenPrice:   fixedpoint.MustParse("0.225185185183518518"),
		TransactionType:       domain.TransactionBuy,
		TransactionValueInUSD: fixedpoint.MustParse("225.185185183518518517"),
		DexName:               domain.DexRaydium,
	}
}

func TestTradeStore_InsertBulkKeepsFullPrecision(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(conn)

	second := newTrade("sig-2", 10, 1700000000, "MintB")
	second.TransactionType = domain.TransactionSell
	second.UsingAggregator = true
	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{newTrade("sig-1", 10, 1700000000, "MintA"), second}))

	got, err := store.GetByBlock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "sig-1", got[0].TransactionID)
	assert.Equal(t, "150.123456789012345678", got[0].PrimaryTokenPrice.String())
	assert.Equal(t, "0.225185185183518518", got[0].SecondaryTokenPrice.String())
	assert.False(t, got[0].UsingAggregator)

	assert.Equal(t, "sig-2", got[1].TransactionID)
	assert.Equal(t, domain.TransactionSell, got[1].TransactionType)
	assert.True(t, got[1].UsingAggregator)
	assert.Equal(t, int64(1700000000), got[1].Timestamp)
}

func TestTradeStore_GetBySecondaryToken(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{newTrade("sig-late", 3, 3000, "MintA")}))
	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{
		newTrade("sig-early", 1, 1000, "MintA"),
		newTrade("sig-other", 1, 1000, "MintB"),
	}))

	got, err := store.GetBySecondaryToken(ctx, "MintA", 0, 2000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sig-early", got[0].TransactionID)
}

func TestTradeStore_InsertBulkInvalidInput(t *testing.T) {
	store := NewTradeStore(nil)
	err := store.InsertBulk(context.Background(), []*domain.Trade{newTrade("", 1, 1, "MintA")})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}
