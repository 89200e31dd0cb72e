// Package results persists extracted-data payloads behind the
// scrape.ResultStore contract. Two durable backends exist (local filesystem
// and object storage), selected once by configuration; a write-through
// in-memory cache fronts whichever backend is chosen.
package results

import (
	"context"
	"sync"

	"github.com/deckhq/scrape-service/internal/scrape"
)

// Cached is a write-through cache in front of a durable result store.
// Entries are never evicted or expired; unbounded growth is an accepted
// limitation at this scope.
type Cached struct {
	inner scrape.ResultStore

	mu    sync.RWMutex
	cache map[string]scrape.JobResult
}

// WithCache wraps a durable store with the in-process cache.
func WithCache(inner scrape.ResultStore) *Cached {
	return &Cached{
		inner: inner,
		cache: make(map[string]scrape.JobResult),
	}
}

// Save writes the cache first, then the durable backend. A backend failure
// propagates to the caller.
func (c *Cached) Save(ctx context.Context, result scrape.JobResult) (string, error) {
	c.mu.Lock()
	c.cache[result.JobID] = result
	c.mu.Unlock()

	return c.inner.Save(ctx, result)
}

// Get checks the cache and only falls through to the durable backend on a
// miss, populating the cache on a successful durable read.
func (c *Cached) Get(ctx context.Context, jobID string) (*scrape.JobResult, error) {
	c.mu.RLock()
	cached, ok := c.cache[jobID]
	c.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	result, err := c.inner.Get(ctx, jobID)
	if err != nil || result == nil {
		return result, err
	}
	c.mu.Lock()
	c.cache[jobID] = *result
	c.mu.Unlock()
	return result, nil
}

// Flush drops every cache entry. Subsequent reads hit the durable backend.
func (c *Cached) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]scrape.JobResult)
}
