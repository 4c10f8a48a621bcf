package license

import (
	"sync"
	"time"
)

// cacheEntry is one cached license record snapshot.
type cacheEntry struct {
	record   *Record
	cachedAt time.Time
	expires  time.Time
	hitCount int
}

// SnapshotCache keeps recently fetched license records so repeated
// validations of the same key within the TTL avoid a round trip to the
// authority. Entries are snapshots; a cached record is cloned on read so
// callers never share one in-memory value.
type SnapshotCache struct {
	entries   map[string]cacheEntry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewSnapshotCache creates a record cache with the given TTL and size
// bound and starts its background cleanup loop.
func NewSnapshotCache(ttl time.Duration, maxSize int) *SnapshotCache {
	c := &SnapshotCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Get returns a clone of the cached record for a key, if present and
// fresh.
func (c *SnapshotCache) Get(key string) (*Record, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		c.missCount++
		return nil, false
	}

	entry.hitCount++
	c.entries[key] = entry
	c.hitCount++

	return entry.record.Clone(), true
}

// Set stores a record snapshot under its key, evicting the oldest entry
// when the cache is full.
func (c *SnapshotCache) Set(key string, rec *Record) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 {
		return
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[key] = cacheEntry{
		record:   rec.Clone(),
		cachedAt: now,
		expires:  now.Add(c.ttl),
	}
}

// Invalidate drops a key from the cache. Called after a persisted usage
// update so the next validation sees the authority's state.
func (c *SnapshotCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// Stats returns cache hit/miss statistics.
func (c *SnapshotCache) Stats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := c.hitCount + c.missCount
	ratio := float64(0)
	if total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}

	return map[string]interface{}{
		"entries":     len(c.entries),
		"max_size":    c.maxSize,
		"hit_count":   c.hitCount,
		"miss_count":  c.missCount,
		"hit_ratio":   ratio,
		"ttl_seconds": c.ttl.Seconds(),
	}
}

func (c *SnapshotCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Stop terminates the cleanup goroutine.
func (c *SnapshotCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *SnapshotCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expires) {
					delete(c.entries, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopChan:
			return
		}
	}
}
