package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/ebike-ride/internal/models"
)

// Cache is a small in-memory route cache keyed by profile and endpoints.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	r  Route
	ts time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(p Profile, a, b models.Coord) string {
	return fmt.Sprintf("%s:%.6f,%.6f->%.6f,%.6f", p, a.Lat, a.Lng, b.Lat, b.Lng)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(p Profile, a, b models.Coord) (Route, bool) {
	k := keyFor(p, a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return Route{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return Route{}, false
	}
	return e.r, true
}

func (c *Cache) Set(p Profile, a, b models.Coord, r Route) {
	k := keyFor(p, a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{r: r, ts: time.Now()}
	c.mu.Unlock()
}

// Cached consults the cache before the wrapped router and stores successes.
type Cached struct {
	Next  Router
	Cache *Cache
}

func (c Cached) Route(ctx context.Context, from, to models.Coord, p Profile) (Route, error) {
	if r, ok := c.Cache.Get(p, from, to); ok {
		return r, nil
	}
	r, err := c.Next.Route(ctx, from, to, p)
	if err != nil {
		return Route{}, err
	}
	c.Cache.Set(p, from, to, r)
	return r, nil
}

// Fallback tries Primary and uses Secondary when it errors.
type Fallback struct {
	Primary   Router
	Secondary Router
}

func (f Fallback) Route(ctx context.Context, from, to models.Coord, p Profile) (Route, error) {
	r, err := f.Primary.Route(ctx, from, to, p)
	if err == nil {
		return r, nil
	}
	if ctx.Err() != nil {
		return Route{}, err
	}
	return f.Secondary.Route(ctx, from, to, p)
}
