// Package travelcache memoizes distance and travel-time results between
// subject pairs. Entries are immutable once written (a write is always a
// full replace) so concurrent readers never observe partial updates.
package travelcache

import (
	"context"
	"sync"
	"time"

	"github.com/serenity-care/dispatch/core/model"
)

// DefaultTTL is applied by callers populating the cache after a miss.
const DefaultTTL = 30 * 24 * time.Hour

type key struct {
	fromKind model.SubjectKind
	fromID   string
	toKind   model.SubjectKind
	toID     string
}

// Entry is a cached travel computation between two subjects.
type Entry struct {
	Miles      float64
	Minutes    int
	ComputedAt time.Time
	ExpiresAt  time.Time
}

// Cache is safe for concurrent use. Expiry is lazy: entries past their TTL
// are treated as a miss on read. Invalidation is synchronous with location
// updates; a stale entry surviving a location change is a correctness bug.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]Entry
	now     func() time.Time

	hits   uint64
	misses uint64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[key]Entry), now: time.Now}
}

// Lookup returns the cached entry for the pair, or a miss if none exists or
// the entry has expired.
func (c *Cache) Lookup(from, to model.SubjectRef) (Entry, bool) {
	k := key{from.Kind, from.ID, to.Kind, to.ID}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok || c.now().After(e.ExpiresAt) {
		c.misses++
		return Entry{}, false
	}
	c.hits++
	return e, true
}

// Put stores a fresh entry for the pair, replacing any previous value.
func (c *Cache) Put(from, to model.SubjectRef, miles float64, minutes int, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := c.now()
	e := Entry{Miles: miles, Minutes: minutes, ComputedAt: now, ExpiresAt: now.Add(ttl)}
	k := key{from.Kind, from.ID, to.Kind, to.ID}
	c.mu.Lock()
	c.entries[k] = e
	c.mu.Unlock()
}

// Invalidate removes every entry where the subject appears as either
// endpoint. Called synchronously from the location write path.
func (c *Cache) Invalidate(subject model.SubjectRef) {
	c.mu.Lock()
	for k := range c.entries {
		if (k.fromKind == subject.Kind && k.fromID == subject.ID) ||
			(k.toKind == subject.Kind && k.toID == subject.ID) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// StartSweeper removes expired entries periodically until the context is
// canceled. Purely a storage reclamation; reads already ignore expired
// entries.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.sweep()
			}
		}
	}()
}

func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.ExpiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
