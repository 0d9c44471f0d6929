package storage

import "context"

// ListenerProgress is the last block the listener finished.
type ListenerProgress struct {
	Slot      int64 // last processed slot
	UpdatedAt int64 // Unix milliseconds
}

// ListenerProgressStore persists the block listener cursor so a restart can
// resume after the last processed slot instead of the chain tip.
type ListenerProgressStore interface {
	// GetLastProcessed returns the last processed slot.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastProcessed(ctx context.Context) (*ListenerProgress, error)

	// SetLastProcessed saves the last processed slot.
	SetLastProcessed(ctx context.Context, slot int64) error
}
