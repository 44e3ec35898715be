package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

const (
	// DefaultCacheEntries bounds a MemoryCache built without an explicit size
	DefaultCacheEntries = 1000

	// expired entries are swept once every purgeEvery writes
	purgeEvery = 128
)

type cacheEntry struct {
	info      *domain.MediaInfo
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache for resolved metadata, bounded to
// maxEntries. When full, the entry closest to expiry is evicted.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	maxEntries int
	writes     int
	now        func() time.Time
}

// NewMemoryCache creates an empty cache holding at most maxEntries
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries < 1 {
		maxEntries = DefaultCacheEntries
	}
	return &MemoryCache{
		entries:    make(map[string]cacheEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a live entry; expired entries are dropped
func (c *MemoryCache) Get(_ context.Context, url string) (*domain.MediaInfo, bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[url]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, url)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.info, true
}

// Set stores info for ttl
func (c *MemoryCache) Set(_ context.Context, url string, info *domain.MediaInfo, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.writes++
	if c.writes%purgeEvery == 0 {
		c.purgeExpired(now)
	}

	if _, exists := c.entries[url]; !exists && len(c.entries) >= c.maxEntries {
		c.purgeExpired(now)
		if len(c.entries) >= c.maxEntries {
			c.evictSoonest()
		}
	}

	c.entries[url] = cacheEntry{info: info, expiresAt: now.Add(ttl)}
	return nil
}

// purgeExpired drops every entry past its deadline; callers hold mu
func (c *MemoryCache) purgeExpired(now time.Time) {
	for url, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, url)
		}
	}
}

// evictSoonest drops the entry that would expire first; callers hold mu
func (c *MemoryCache) evictSoonest() {
	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for url, entry := range c.entries {
		if !found || entry.expiresAt.Before(soonest) {
			victim, soonest, found = url, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}
