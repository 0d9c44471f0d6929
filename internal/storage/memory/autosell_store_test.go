package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

func gridEntry() *domain.AutoSellEntry {
	return &domain.AutoSellEntry{
		UserID:                     1,
		WalletID:                   2,
		TokenAddressToSell:         "mintA",
		Slippage:                   decimal.NewFromInt(1),
		TokenAmountBought:          decimal.NewFromInt(1000),
		TokenAmountSold:            decimal.Zero,
		Strategy:                   domain.StrategyGrid,
		InitialPriceExpressedInSol: decimal.NewFromInt(1),
		HighestPriceExpressedInSol: decimal.NewFromInt(1),
		Grid: &domain.GridParams{
			StopLossType:   domain.StopLossStatic,
			StaticStopLoss: 10,
			ProfitTargets: []domain.ProfitTarget{
				{Multiplier: 1.1, SellPercentage: 50},
				{Multiplier: 1.3, SellPercentage: 50},
			},
		},
	}
}

func TestAutoSellStore_InsertAssignsIDs(t *testing.T) {
	store := NewAutoSellStore()
	ctx := context.Background()

	id1, err := store.Insert(ctx, gridEntry())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	id2, err := store.Insert(ctx, gridEntry())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Errorf("IDs = %d, %d; want 1, 2", id1, id2)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != 1 {
		t.Fatalf("GetAll returned %d entries", len(all))
	}
	if all[0].CreatedAt == 0 {
		t.Error("CreatedAt not set")
	}
}

func TestAutoSellStore_UpdateIsolatedFromCaller(t *testing.T) {
	store := NewAutoSellStore()
	ctx := context.Background()

	e := gridEntry()
	id, _ := store.Insert(ctx, e)
	e.ID = id
	e.TokenAmountSold = decimal.NewFromInt(500)
	e.Grid.ProfitTargets[0].Done = true
	if err := store.Update(ctx, e); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Mutating the caller's copy afterwards must not leak into the store.
	e.Grid.ProfitTargets[1].Done = true

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.TokenAmountSold.Equal(decimal.NewFromInt(500)) {
		t.Errorf("TokenAmountSold = %s, want 500", got.TokenAmountSold)
	}
	if !got.Grid.ProfitTargets[0].Done || got.Grid.ProfitTargets[1].Done {
		t.Errorf("Unexpected target state: %+v", got.Grid.ProfitTargets)
	}
}

func TestAutoSellStore_NotFound(t *testing.T) {
	store := NewAutoSellStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID: expected ErrNotFound, got %v", err)
	}
	if err := store.Update(ctx, &domain.AutoSellEntry{ID: 42}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestAutoSellStore_Delete(t *testing.T) {
	store := NewAutoSellStore()
	ctx := context.Background()

	id, _ := store.Insert(ctx, gridEntry())
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	all, _ := store.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("Expected empty store, got %d", len(all))
	}
}
