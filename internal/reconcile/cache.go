package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

// CacheObserver receives lookup cache hit and miss events.
type CacheObserver interface {
	LookupCacheHit(backend string)
	LookupCacheMiss(backend string)
}

// cacheEntry holds a cached lookup. A nil vessel records that the IMO is not
// in the registry.
type cacheEntry struct {
	vessel    *model.Vessel
	expiresAt time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// lookupCache is a thread-safe in-memory TTL cache keyed by IMO.
type lookupCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newLookupCache(ttl time.Duration) *lookupCache {
	return &lookupCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

func (c *lookupCache) get(key string) (*cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired() {
		return nil, false
	}
	return e, true
}

func (c *lookupCache) set(key string, v *model.Vessel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{
		vessel:    v,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *lookupCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// evict removes all expired entries and returns how many were removed.
func (c *lookupCache) evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if e.expired() {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// len returns the number of cached entries, including expired ones.
func (c *lookupCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedLookup memoises registry lookups in process memory for a TTL.
// Lookups that fail are not cached.
type CachedLookup struct {
	next     Lookup
	cache    *lookupCache
	observer CacheObserver
	logger   *zap.Logger
}

// NewCachedLookup wraps next with an in-memory cache.
func NewCachedLookup(next Lookup, ttl time.Duration, logger *zap.Logger) *CachedLookup {
	return &CachedLookup{
		next:   next,
		cache:  newLookupCache(ttl),
		logger: logger,
	}
}

// SetObserver registers a hit/miss observer.
func (l *CachedLookup) SetObserver(o CacheObserver) {
	l.observer = o
}

// LookupVessel implements Lookup. The returned record is a copy.
func (l *CachedLookup) LookupVessel(ctx context.Context, imo string) (*model.Vessel, error) {
	if e, ok := l.cache.get(imo); ok {
		if l.observer != nil {
			l.observer.LookupCacheHit("memory")
		}
		return copyVessel(e.vessel), nil
	}
	if l.observer != nil {
		l.observer.LookupCacheMiss("memory")
	}

	v, err := l.next.LookupVessel(ctx, imo)
	if err != nil {
		return nil, err
	}
	l.cache.set(imo, copyVessel(v))
	return v, nil
}

// Invalidate drops a cached IMO.
func (l *CachedLookup) Invalidate(imo string) {
	l.cache.invalidate(imo)
}

// Len returns the number of cached entries.
func (l *CachedLookup) Len() int {
	return l.cache.len()
}

// StartEviction periodically evicts expired entries until ctx is done.
func (l *CachedLookup) StartEviction(ctx context.Context, interval time.Duration) {
	if interval == 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := l.cache.evict(); n > 0 {
					l.logger.Debug("lookup cache eviction", zap.Int("evicted", n))
				}
			}
		}
	}()
}

func copyVessel(v *model.Vessel) *model.Vessel {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
