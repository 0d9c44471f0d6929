package memory

import (
	"context"
	"errors"
	"testing"

	"raydium-engine/internal/storage"
)

func TestListenerProgressStore(t *testing.T) {
	store := NewListenerProgressStore()
	ctx := context.Background()

	if _, err := store.GetLastProcessed(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before first save, got %v", err)
	}

	if err := store.SetLastProcessed(ctx, 250_000_000); err != nil {
		t.Fatalf("SetLastProcessed failed: %v", err)
	}
	if err := store.SetLastProcessed(ctx, 250_000_001); err != nil {
		t.Fatalf("SetLastProcessed failed: %v", err)
	}

	got, err := store.GetLastProcessed(ctx)
	if err != nil {
		t.Fatalf("GetLastProcessed failed: %v", err)
	}
	if got.Slot != 250_000_001 {
		t.Errorf("Slot = %d, want 250000001", got.Slot)
	}
	if got.UpdatedAt == 0 {
		t.Error("UpdatedAt not set")
	}

	if err := store.SetLastProcessed(ctx, -1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for negative slot, got %v", err)
	}
}
