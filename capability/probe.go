// Package capability implements the TTL-cached transport capability probe
// spec.md §4.7 describes. Concurrent first-time callers share one in-flight
// probe instead of each issuing their own (the "thundering herd" spec.md §9
// calls out), grounded on the teacher's SessionManager
// (internal/server/session.go), which wraps github.com/patrickmn/go-cache
// the same way: a TTL'd store refreshed on access.
package capability

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// TTL is the capability cache lifetime (spec.md §3/§6: 30s).
const TTL = 30 * time.Second

const cacheKey = "capability"

// Record mirrors spec.md §3's Capability Record.
type Record struct {
	Available            bool
	Platform             string
	SupportsCustomServer bool
	SupportsAsyncQuery   bool
	APILevel             int // 0 means "not applicable"
	RefreshedAt          time.Time
}

// Prober performs the actual platform capability discovery. Implementations
// are expected to be cheap but not free — that's exactly what the cache and
// single-flight coalescing in Cache exist to amortize.
type Prober func(ctx context.Context) (Record, error)

// Cache is a TTL-bounded, single-flight-guarded capability cache.
type Cache struct {
	probe Prober
	store *cache.Cache
	group singleflight.Group
	mu    sync.Mutex
}

// New builds a Cache that calls probe on first access and after every TTL
// expiry, sharing one in-flight probe across concurrent callers.
func New(probe Prober) *Cache {
	return &Cache{
		probe: probe,
		// cleanupInterval doesn't matter much for a single-key cache; use
		// twice the TTL, matching the teacher's cache.New(ttl, ttl*2) shape.
		store: cache.New(TTL, TTL*2),
	}
}

// Get returns the cached Record if fresh, otherwise performs (or awaits) a
// single in-flight probe and caches its result.
func (c *Cache) Get(ctx context.Context) (Record, error) {
	c.mu.Lock()
	if cached, found := c.store.Get(cacheKey); found {
		c.mu.Unlock()
		return cached.(Record), nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		rec, err := c.probe(ctx)
		if err != nil {
			return Record{}, err
		}
		rec.RefreshedAt = time.Now()
		c.store.Set(cacheKey, rec, cache.DefaultExpiration)
		return rec, nil
	})
	if err != nil {
		return Record{}, err
	}
	return v.(Record), nil
}

// Invalidate drops the cached record so the next Get performs a fresh probe;
// a host calls this on a network-change signal (Wi-Fi <-> cellular),
// spec.md §3/§4.7/§6.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Delete(cacheKey)
}
