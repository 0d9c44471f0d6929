package memory

import (
	"context"
	"errors"
	"testing"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

func TestTransactionErrorStore(t *testing.T) {
	store := NewTransactionErrorStore()
	ctx := context.Background()

	for _, msg := range []string{"batch: insert failed", "pool: duplicate key"} {
		if err := store.Insert(ctx, &domain.TransactionError{TransactionID: "sigA", Error: msg, DexName: domain.DexRaydium}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := store.Insert(ctx, &domain.TransactionError{TransactionID: "sigB", Error: "x"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByTransactionID(ctx, "sigA")
	if err != nil {
		t.Fatalf("GetByTransactionID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d errors, want 2", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 || got[1].Error != "pool: duplicate key" {
		t.Errorf("unexpected rows: %+v %+v", got[0], got[1])
	}

	if err := store.Insert(ctx, &domain.TransactionError{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
