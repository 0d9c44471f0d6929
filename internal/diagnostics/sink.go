// Package diagnostics persists failures that are not retried so an operator can
// replay or inspect them later.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

// Record kinds.
const (
	KindBatchInsert = "batch"
	KindSlot        = "slot"
	KindCorrelation = "correlation"
	KindPool        = "pool"
)

// Record is one diagnostic dump.
type Record struct {
	Kind      string          `json:"kind"`
	Slot      int64           `json:"slot"`
	Signature string          `json:"signature,omitempty"`
	Signer    string          `json:"signer,omitempty"`
	Error     string          `json:"error"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewRecord builds a record, encoding payload as JSON.
// A payload that fails to encode is replaced by its error text.
func NewRecord(kind string, slot int64, err error, payload any) Record {
	rec := Record{
		Kind:      kind,
		Slot:      slot,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if payload != nil {
		data, mErr := json.Marshal(payload)
		if mErr != nil {
			data, _ = json.Marshal(map[string]string{"marshalError": mErr.Error()})
		}
		rec.Payload = data
	}
	return rec
}

// Sink accepts diagnostic records.
type Sink interface {
	Dump(ctx context.Context, rec Record) error
}

// FileSink writes each record as <kind>-<slot>-<uuid>.json under a directory.
type FileSink struct {
	dir  string
	once sync.Once
	err  error
}

// NewFileSink creates a sink writing under dir. The directory is created on first dump.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Dump writes rec to a new file.
func (s *FileSink) Dump(_ context.Context, rec Record) error {
	s.once.Do(func() {
		s.err = os.MkdirAll(s.dir, 0o755)
	})
	if s.err != nil {
		return fmt.Errorf("create dump dir: %w", s.err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	name := fmt.Sprintf("%s-%d-%s.json", rec.Kind, rec.Slot, uuid.NewString())
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return nil
}

// StoreSink records dumps as dex_transactions_errors rows.
type StoreSink struct {
	store storage.TransactionErrorStore
}

// NewStoreSink creates a sink backed by store.
func NewStoreSink(store storage.TransactionErrorStore) *StoreSink {
	return &StoreSink{store: store}
}

// Dump inserts one error row. Records without a signature are keyed by slot.
func (s *StoreSink) Dump(ctx context.Context, rec Record) error {
	txID := rec.Signature
	if txID == "" {
		txID = fmt.Sprintf("slot:%d", rec.Slot)
	}
	row := &domain.TransactionError{
		TransactionID: txID,
		Signer:        rec.Signer,
		Error:         rec.Kind + ": " + rec.Error,
		DexName:       domain.DexRaydium,
	}
	if err := s.store.Insert(ctx, row); err != nil {
		return fmt.Errorf("insert transaction error: %w", err)
	}
	return nil
}

// Multi fans a record out to every sink and joins their errors.
type Multi []Sink

// Dump writes rec to all sinks.
func (m Multi) Dump(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Dump(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every record.
var Discard Sink = discard{}

type discard struct{}

func (discard) Dump(context.Context, Record) error { return nil }
