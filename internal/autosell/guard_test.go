package autosell

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGuard_CompositeKeys(t *testing.T) {
	g := NewGuard()

	if !g.TryAcquire(1, SubtypeStopLoss) {
		t.Fatal("first acquire of stop_loss failed")
	}
	if g.TryAcquire(1, SubtypeStopLoss) {
		t.Error("second acquire of stop_loss succeeded")
	}
	if !g.TryAcquire(1, TargetSubtype(0)) {
		t.Error("target_0 blocked by stop_loss on the same entry")
	}
	if !g.TryAcquire(2, SubtypeStopLoss) {
		t.Error("stop_loss of another entry blocked")
	}
	if got := g.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}

	g.Release(1, SubtypeStopLoss)
	if g.Held(1, SubtypeStopLoss) {
		t.Error("stop_loss still held after release")
	}
	if !g.Busy(1) {
		t.Error("entry 1 not busy while target_0 is in flight")
	}

	g.Release(1, TargetSubtype(0))
	g.Release(1, TargetSubtype(0))
	if g.Busy(1) {
		t.Error("entry 1 busy after all releases")
	}
}

func TestGuard_ConcurrentAcquireOnce(t *testing.T) {
	g := NewGuard()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire(7, SubtypeSimple) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("acquired %d times, want 1", got)
	}
}

func TestTargetSubtype(t *testing.T) {
	if got := TargetSubtype(12); got != "target_12" {
		t.Errorf("TargetSubtype(12) = %q", got)
	}
}
