package importer

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/Faultbox/midgard-fbx/internal/config"
)

// Cache keeps the last Result per container path and re-imports only when
// the file's size or modification time changed.
type Cache struct {
	entries map[string]cacheEntry
	mu      sync.RWMutex

	// Stats
	hits   int
	misses int
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	result  *Result
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
	}
}

// Load returns the cached Result for path when the file is unchanged and
// imports it otherwise. cached reports which happened.
func (c *Cache) Load(ctx context.Context, path string, cfg *config.Config, opts ...Option) (res *Result, cached bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	e, ok := c.entries[path]
	if ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		c.hits++
		c.mu.Unlock()
		return e.result, true, nil
	}
	c.misses++
	c.mu.Unlock()

	res, err = Import(ctx, path, cfg, opts...)
	if err != nil {
		c.Invalidate(path)
		return nil, false, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), result: res}
	c.mu.Unlock()
	return res, false, nil
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
