package postgres

import (
	"context"
	"time"

	"raydium-engine/internal/storage"
)

// ListenerProgressStore is a PostgreSQL implementation of storage.ListenerProgressStore.
// The cursor is a single row in listener_progress.
type ListenerProgressStore struct {
	pool *Pool
}

// NewListenerProgressStore creates a new PostgreSQL listener progress store.
func NewListenerProgressStore(pool *Pool) *ListenerProgressStore {
	return &ListenerProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ListenerProgressStore = (*ListenerProgressStore)(nil)

// GetLastProcessed returns the last processed slot.
func (s *ListenerProgressStore) GetLastProcessed(ctx context.Context) (*storage.ListenerProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT slot, updated_at
		FROM listener_progress
		WHERE id = 1
	`)

	var (
		progress  storage.ListenerProgress
		updatedAt time.Time
	)
	if err := row.Scan(&progress.Slot, &updatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	progress.UpdatedAt = updatedAt.UnixMilli()
	return &progress, nil
}

// SetLastProcessed saves the last processed slot.
func (s *ListenerProgressStore) SetLastProcessed(ctx context.Context, slot int64) error {
	if slot < 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO listener_progress (id, slot, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET slot = EXCLUDED.slot,
		    updated_at = NOW()
	`, slot)

	return err
}
