package storage_test

import (
	"context"
	"errors"
	"testing"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/fixedpoint"
	"raydium-engine/internal/storage"
	"raydium-engine/internal/storage/memory"
)

type failingTradeStore struct {
	*memory.TradeStore
	err error
}

func (s *failingTradeStore) InsertBulk(context.Context, []*domain.Trade) error {
	return s.err
}

func trade(sig string) *domain.Trade {
	return &domain.Trade{
		TransactionID:         sig,
		BlockNumber:           42,
		Timestamp:             1700000000,
		PrimaryTokenName:      domain.PrimaryWSOL,
		PrimaryTokenAmount:    fixedpoint.MustParse("1"),
		SecondaryTokenAddress: "MintA",
		TransactionType:       domain.TransactionBuy,
		DexName:               domain.DexRaydium,
	}
}

func TestMirrorTradeStore_CopiesToMirrors(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewTradeStore()
	mirror := memory.NewTradeStore()
	s := storage.NewMirrorTradeStore(primary, nil, mirror)

	if err := s.InsertBulk(ctx, []*domain.Trade{trade("sig-1"), trade("sig-2")}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if primary.Count() != 2 || mirror.Count() != 2 {
		t.Errorf("counts = %d/%d, want 2/2", primary.Count(), mirror.Count())
	}

	got, err := s.GetByBlock(ctx, 42)
	if err != nil {
		t.Fatalf("GetByBlock failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetByBlock returned %d trades, want 2", len(got))
	}
}

func TestMirrorTradeStore_MirrorFailureIsReported(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewTradeStore()
	broken := &failingTradeStore{TradeStore: memory.NewTradeStore(), err: errors.New("clickhouse down")}
	healthy := memory.NewTradeStore()

	var reported []error
	s := storage.NewMirrorTradeStore(primary, func(err error) { reported = append(reported, err) }, broken, healthy)

	if err := s.InsertBulk(ctx, []*domain.Trade{trade("sig-1")}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if len(reported) != 1 || !errors.Is(reported[0], broken.err) {
		t.Errorf("reported = %v, want one wrapped clickhouse error", reported)
	}
	if healthy.Count() != 1 {
		t.Errorf("healthy mirror count = %d, want 1", healthy.Count())
	}
}

func TestMirrorTradeStore_PrimaryFailureSkipsMirrors(t *testing.T) {
	primary := &failingTradeStore{TradeStore: memory.NewTradeStore(), err: errors.New("postgres down")}
	mirror := memory.NewTradeStore()
	s := storage.NewMirrorTradeStore(primary, nil, mirror)

	err := s.InsertBulk(context.Background(), []*domain.Trade{trade("sig-1")})
	if !errors.Is(err, primary.err) {
		t.Fatalf("err = %v, want primary error", err)
	}
	if mirror.Count() != 0 {
		t.Errorf("mirror count = %d, want 0", mirror.Count())
	}
}
