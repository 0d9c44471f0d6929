package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"raydium-engine/internal/observability"
	"raydium-engine/internal/solana"
)

// TipTracker follows the chain tip announced by slotSubscribe so the block
// loop can wait for a slot instead of polling getBlock ahead of the leader.
type TipTracker struct {
	metrics *observability.Metrics
	log     logrus.FieldLogger

	mu     sync.Mutex
	latest int64
	notify chan struct{} // closed on every advance
}

// NewTipTracker creates a tracker with no known tip.
func NewTipTracker(metrics *observability.Metrics, logger logrus.FieldLogger) *TipTracker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TipTracker{
		metrics: metrics,
		log:     logger.WithField("component", "tip"),
		notify:  make(chan struct{}),
	}
}

// Run subscribes to slot notifications and records them until ctx is done
// or the subscription ends.
func (t *TipTracker) Run(ctx context.Context, sub solana.SlotSubscriber) error {
	ch, err := sub.SubscribeSlots(ctx)
	if err != nil {
		return fmt.Errorf("subscribe slots: %w", err)
	}
	t.log.Info("following chain tip")

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-ch:
			if !ok {
				return errors.New("slot subscription closed")
			}
			t.Observe(n.Slot)
		}
	}
}

// Observe records slot as seen. Older slots are ignored.
func (t *TipTracker) Observe(slot int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot <= t.latest {
		return
	}
	t.latest = slot
	close(t.notify)
	t.notify = make(chan struct{})

	if t.metrics != nil {
		t.metrics.TipSlot.Set(float64(slot))
	}
}

// Latest returns the highest slot seen, 0 if none.
func (t *TipTracker) Latest() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// WaitFor blocks until the tip reaches slot, timeout elapses or ctx is done.
// It reports whether the tip reached slot.
func (t *TipTracker) WaitFor(ctx context.Context, slot int64, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		t.mu.Lock()
		if t.latest >= slot {
			t.mu.Unlock()
			return true
		}
		notify := t.notify
		t.mu.Unlock()

		select {
		case <-notify:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
