package autosell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"raydium-engine/internal/domain"
	"raydium-engine/internal/storage"
)

// Cache holds the open auto-sell entries in memory, keyed by id and kept in
// insertion order. Entries enter the cache only after the store accepted
// them. Later changes apply in memory first: a write the store rejects is
// kept in unsynced and retried by Flush, so a sell that already happened
// on-chain is never evaluated again from stale state.
type Cache struct {
	store storage.AutoSellStore

	mu      sync.RWMutex
	entries map[int64]*domain.AutoSellEntry
	order   []int64
	// unsynced holds writes the store rejected; a nil entry is a delete.
	unsynced map[int64]*domain.AutoSellEntry
}

// NewCache creates an empty cache backed by store.
func NewCache(store storage.AutoSellStore) *Cache {
	return &Cache{
		store:    store,
		entries:  make(map[int64]*domain.AutoSellEntry),
		unsynced: make(map[int64]*domain.AutoSellEntry),
	}
}

// Load replaces the cache contents with every stored entry.
func (c *Cache) Load(ctx context.Context) error {
	all, err := c.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load auto sell entries: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int64]*domain.AutoSellEntry, len(all))
	c.order = c.order[:0]
	for _, e := range all {
		c.entries[e.ID] = e
		c.order = append(c.order, e.ID)
	}
	return nil
}

// Add validates and persists e, then starts tracking it. It returns the assigned id.
func (c *Cache) Add(ctx context.Context, e *domain.AutoSellEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if e.HighestPriceExpressedInSol.IsZero() {
		e = e.Clone()
		e.HighestPriceExpressedInSol = e.InitialPriceExpressedInSol
	}

	id, err := c.store.Insert(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("insert auto sell entry: %w", err)
	}
	stored, err := c.store.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("reload auto sell entry %d: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = stored
	c.order = append(c.order, id)
	return id, nil
}

// Update replaces the cached copy of e and persists it. On a store error the
// cached copy still changes and the write is queued for Flush.
func (c *Cache) Update(ctx context.Context, e *domain.AutoSellEntry) error {
	c.mu.Lock()
	_, tracked := c.entries[e.ID]
	if tracked {
		c.entries[e.ID] = e.Clone()
	}
	c.mu.Unlock()
	if !tracked {
		return nil
	}

	if err := c.store.Update(ctx, e); err != nil {
		c.markUnsynced(e.ID, e.Clone())
		return fmt.Errorf("update auto sell entry %d: %w", e.ID, err)
	}
	c.markSynced(e.ID)
	return nil
}

// Remove stops tracking the entry and deletes it from the store. A missing
// store row is not an error; any other store error queues the delete.
func (c *Cache) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	if _, ok := c.entries[id]; ok {
		delete(c.entries, id)
		for i, v := range c.order {
			if v == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()

	if err := c.store.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.markUnsynced(id, nil)
		return fmt.Errorf("delete auto sell entry %d: %w", id, err)
	}
	c.markSynced(id)
	return nil
}

// Flush retries the writes the store rejected earlier. Writes that fail
// again stay queued.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.RLock()
	pending := make(map[int64]*domain.AutoSellEntry, len(c.unsynced))
	for id, e := range c.unsynced {
		pending[id] = e
	}
	c.mu.RUnlock()

	var errs []error
	for id, e := range pending {
		var err error
		if e == nil {
			if err = c.store.Delete(ctx, id); errors.Is(err, storage.ErrNotFound) {
				err = nil
			}
		} else {
			err = c.store.Update(ctx, e)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("sync auto sell entry %d: %w", id, err))
			continue
		}

		c.mu.Lock()
		// a newer failed write may have replaced this one meanwhile
		if cur, ok := c.unsynced[id]; ok && cur == e {
			delete(c.unsynced, id)
		}
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Unsynced returns the number of writes waiting for Flush.
func (c *Cache) Unsynced() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.unsynced)
}

func (c *Cache) markUnsynced(id int64, e *domain.AutoSellEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsynced[id] = e
}

func (c *Cache) markSynced(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.unsynced, id)
}

// Get returns a copy of the entry, or false if it is not tracked.
func (c *Cache) Get(id int64) (*domain.AutoSellEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Entries returns copies of all tracked entries in insertion order.
func (c *Cache) Entries() []*domain.AutoSellEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*domain.AutoSellEntry, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.entries[id].Clone())
	}
	return result
}

// TokenAddresses returns the distinct mints being tracked, or nil when the
// cache is empty so callers can skip the price request.
func (c *Cache) TokenAddresses() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.order) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(c.order))
	var mints []string
	for _, id := range c.order {
		mint := c.entries[id].TokenAddressToSell
		if _, ok := seen[mint]; ok {
			continue
		}
		seen[mint] = struct{}{}
		mints = append(mints, mint)
	}
	return mints
}

// Len returns the number of tracked entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
