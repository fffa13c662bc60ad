package chat

import (
	"sync"
	"time"
)

const cacheSweepInterval = time.Minute

// dedupCache is a bounded, time-expiring set of message keys. It is best
// effort: losing an entry only risks a duplicate notification, never a
// missed one.
type dedupCache struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	ttl        time.Duration
	maxEntries int
	stopCh     chan struct{}
	once       sync.Once
	now        func() time.Time
}

func newDedupCache(ttl time.Duration, maxEntries int) *dedupCache {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c := &dedupCache{
		entries:    make(map[string]time.Time),
		ttl:        ttl,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
	go c.sweepLoop()
	return c
}

// Seen records key and reports whether it was already present and unexpired.
func (c *dedupCache) Seen(key string) bool {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, ok := c.entries[key]; ok && now.Before(expiry) {
		return true
	}
	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = now.Add(c.ttl)
	return false
}

func (c *dedupCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, expiry := range c.entries {
		if oldestKey == "" || expiry.Before(oldest) {
			oldestKey = key
			oldest = expiry
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *dedupCache) sweepLoop() {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup(c.now())
		case <-c.stopCh:
			return
		}
	}
}

func (c *dedupCache) cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, expiry := range c.entries {
		if now.After(expiry) {
			delete(c.entries, key)
		}
	}
}

func (c *dedupCache) Close() {
	c.once.Do(func() {
		close(c.stopCh)
	})
}
