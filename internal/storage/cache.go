package storage

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedBackend wraps a Backend with an in-memory LRU read cache whose entries
// expire after a fixed TTL. Writes through the wrapper refresh the cached copy;
// writes made by other processes become visible once the entry expires.
type CachedBackend struct {
	Backend
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedBackend creates a cache decorator around a backend.
func NewCachedBackend(inner Backend, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedBackend {
	return &CachedBackend{
		Backend: inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedBackend) Read(ctx context.Context, key string) ([]byte, error) {
	now := c.clock.Now()
	if data, ok := c.cache.get(key, now); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return data, nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	data, err := c.Backend.Read(ctx, key)
	if err != nil {
		// Misses and failures are not cached so a later write is picked up immediately.
		return nil, err
	}
	c.cache.put(key, data, now.Add(c.ttl))
	return data, nil
}

func (c *CachedBackend) Write(ctx context.Context, key string, data []byte) error {
	if err := c.Backend.Write(ctx, key, data); err != nil {
		c.cache.delete(key)
		return err
	}
	c.cache.put(key, data, c.clock.Now().Add(c.ttl))
	return nil
}

// lruCache is a simple thread-safe LRU cache of blobs with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   []byte
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
