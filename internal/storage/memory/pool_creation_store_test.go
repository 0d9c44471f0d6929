package memory

import (
	"context"
	"errors"
	"testing"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/fixedpoint"
	"raydium-engine/internal/storage"
)

func TestPoolCreationStore_InsertAndGet(t *testing.T) {
	store := NewPoolCreationStore()
	ctx := context.Background()

	pools := []*domain.PoolCreation{
		{CreationTransaction: "tx2", SecondaryTokenAddress: "mintA", Timestamp: 2000, PrimaryTokenName: domain.PrimaryWSOL, InitialPrimaryAmount: fixedpoint.MustParse("10")},
		{CreationTransaction: "tx1", SecondaryTokenAddress: "mintA", Timestamp: 1000, PrimaryTokenName: domain.PrimaryUSDC, InitialPrimaryAmount: fixedpoint.MustParse("500")},
		{CreationTransaction: "tx3", SecondaryTokenAddress: "mintB", Timestamp: 1500},
	}
	for _, p := range pools {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetBySecondaryToken(ctx, "mintA")
	if err != nil {
		t.Fatalf("GetBySecondaryToken failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 pools, got %d", len(got))
	}
	if got[0].CreationTransaction != "tx1" {
		t.Errorf("Expected tx1 first, got %s", got[0].CreationTransaction)
	}
	if got[0].InitialPrimaryAmount.String() != "500" {
		t.Errorf("InitialPrimaryAmount = %s, want 500", got[0].InitialPrimaryAmount)
	}
}

func TestPoolCreationStore_DuplicateKey(t *testing.T) {
	store := NewPoolCreationStore()
	ctx := context.Background()

	p := &domain.PoolCreation{CreationTransaction: "tx1", SecondaryTokenAddress: "mintA"}
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, p); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
