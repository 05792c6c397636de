package dashboard

import (
	"sync"
	"time"
)

// Cache is an in-memory TTL cache for computed dashboard aggregates.
type Cache struct {
	data    map[string]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	value      interface{}
	expiration time.Time
}

// NewCache creates a cache whose entries live for ttl. Close stops the
// background sweep.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		data:    make(map[string]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get retrieves a live value from the cache
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || c.now().After(entry.expiration) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value in the cache
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		value:      value,
		expiration: c.now().Add(c.ttl),
	}
}

// Delete removes a value from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// Size returns the number of entries, expired ones included
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

func (c *Cache) Close() {
	c.once.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}

func (c *Cache) cleanupLoop() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
}
