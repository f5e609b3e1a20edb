package mx

import (
	"sync"
	"time"

	"github.com/scoutlabs/mailscout/internal/domain"
)

// Cache holds DomainVerification results per normalized domain for a fixed
// TTL. Entries are shared read-only with callers; only the resolver writes.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	verification *domain.DomainVerification
	expiresAt    time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached verification for name, or nil if absent or expired.
func (c *Cache) Get(name string) *domain.DomainVerification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	if !ok || time.Now().After(e.expiresAt) {
		return nil
	}
	return e.verification
}

func (c *Cache) Set(name string, v *domain.DomainVerification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = cacheEntry{
		verification: v,
		expiresAt:    time.Now().Add(c.ttl),
	}
}

// Purge drops expired entries. Run periodically; Get already ignores stale
// entries, so this only bounds memory.
func (c *Cache) Purge() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for name, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, name)
			removed++
		}
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
