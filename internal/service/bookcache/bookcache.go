package bookcache

import (
	"sync"
	"time"

	"wickengine/internal/domain/models"
)

// Cache holds the latest order-book snapshot per symbol. Snapshots are
// replaced whole; readers never see a partially updated book.
type Cache struct {
	mu sync.RWMutex
	m  map[string]*models.OrderBookSnapshot
}

func New() *Cache {
	return &Cache{m: make(map[string]*models.OrderBookSnapshot)}
}

// Put stores the snapshot if it is not older than the one already held.
func (c *Cache) Put(ob *models.OrderBookSnapshot) {
	if ob == nil {
		return
	}
	c.mu.Lock()
	if cur, ok := c.m[ob.Symbol]; !ok || !ob.TS.Before(cur.TS) {
		c.m[ob.Symbol] = ob
	}
	c.mu.Unlock()
}

// Get returns the latest snapshot for a symbol, or nil.
func (c *Cache) Get(symbol string) *models.OrderBookSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[symbol]
}

// Age reports how stale the held snapshot is, or a negative duration when no
// snapshot exists yet.
func (c *Cache) Age(symbol string, now time.Time) time.Duration {
	c.mu.RLock()
	ob := c.m[symbol]
	c.mu.RUnlock()
	if ob == nil {
		return -1
	}
	return now.Sub(ob.TS)
}

// Newest returns the most recent snapshot timestamp across all symbols.
func (c *Cache) Newest() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var newest time.Time
	for _, ob := range c.m {
		if ob.TS.After(newest) {
			newest = ob.TS
		}
	}
	return newest
}

// Symbols lists the symbols with a cached snapshot.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.m))
	for s := range c.m {
		out = append(out, s)
	}
	return out
}
