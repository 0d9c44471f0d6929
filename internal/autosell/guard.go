package autosell

import (
	"strconv"
	"sync"
)

// Guard subtypes. Grid profit targets use TargetSubtype.
const (
	SubtypeSimple   = "simple"
	SubtypeStopLoss = "stop_loss"
)

// TargetSubtype returns the guard subtype of grid profit target i.
func TargetSubtype(i int) string {
	return "target_" + strconv.Itoa(i)
}

// Guard tracks in-flight sell executions per (entry, subtype). A subtype can
// only be acquired once until released, which keeps overlapping price ticks
// from submitting the same sell twice.
type Guard struct {
	mu       sync.Mutex
	inFlight map[int64]map[string]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{inFlight: make(map[int64]map[string]struct{})}
}

// TryAcquire marks (id, subtype) in flight. It reports false if it already was.
func (g *Guard) TryAcquire(id int64, subtype string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.inFlight[id]
	if !ok {
		set = make(map[string]struct{})
		g.inFlight[id] = set
	}
	if _, busy := set[subtype]; busy {
		return false
	}
	set[subtype] = struct{}{}
	return true
}

// Release clears (id, subtype). Releasing a free subtype is a no-op.
func (g *Guard) Release(id int64, subtype string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.inFlight[id]
	if !ok {
		return
	}
	delete(set, subtype)
	if len(set) == 0 {
		delete(g.inFlight, id)
	}
}

// Held reports whether (id, subtype) is in flight.
func (g *Guard) Held(id int64, subtype string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[id][subtype]
	return ok
}

// Busy reports whether any subtype of id is in flight.
func (g *Guard) Busy(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight[id]) > 0
}

// Len returns the number of in-flight executions.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, set := range g.inFlight {
		n += len(set)
	}
	return n
}
