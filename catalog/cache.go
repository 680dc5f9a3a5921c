package catalog

import (
	"sync"
	"time"
)

// Cache provides partitioned caching for catalog list envelopes. Each
// resource owns a partition; writes to a resource evict its whole
// partition (coarse-grained invalidation, matching the small low-churn
// catalog).
type Cache interface {
	Get(resource Resource, key string) (interface{}, bool)
	Set(resource Resource, key string, value interface{}, ttl time.Duration)
	ClearPartition(resource Resource)
	Clear()
	Stats() CacheStats
}

// CacheStats provides cache performance metrics
type CacheStats struct {
	Size      int     `json:"size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// PartitionedCache is an app-scoped in-memory cache with TTL expiry, a
// bounded size, and per-resource partition eviction.
type PartitionedCache struct {
	mu              sync.RWMutex
	partitions      map[Resource]map[string]*cacheItem
	stats           CacheStats
	maxSize         int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewCache creates a cache with default settings.
func NewCache() *PartitionedCache {
	return NewCacheWithOptions(1000, 5*time.Minute)
}

// NewCacheWithOptions creates a cache with custom settings.
func NewCacheWithOptions(maxSize int, cleanupInterval time.Duration) *PartitionedCache {
	c := &PartitionedCache{
		partitions:      make(map[Resource]map[string]*cacheItem),
		maxSize:         maxSize,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go c.cleanupRoutine()

	return c
}

// Get retrieves a cached envelope.
func (c *PartitionedCache) Get(resource Resource, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	partition, ok := c.partitions[resource]
	if !ok {
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	item, found := partition[key]
	if !found {
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	if time.Now().After(item.expiresAt) {
		delete(partition, key)
		c.stats.Evictions++
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	c.stats.Hits++
	c.updateHitRate()
	return item.value, true
}

// Set stores an envelope in the resource's partition.
func (c *PartitionedCache) Set(resource Resource, key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size() >= c.maxSize {
		c.evictExpired()

		if c.size() >= c.maxSize {
			c.evictOldest()
		}
	}

	partition, ok := c.partitions[resource]
	if !ok {
		partition = make(map[string]*cacheItem)
		c.partitions[resource] = partition
	}

	partition[key] = &cacheItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	c.stats.Size = c.size()
}

// ClearPartition evicts every entry for the resource. Called after any
// write to that resource.
func (c *PartitionedCache) ClearPartition(resource Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if partition, ok := c.partitions[resource]; ok {
		c.stats.Evictions += int64(len(partition))
		delete(c.partitions, resource)
	}
	c.stats.Size = c.size()
}

// Clear removes all cached entries.
func (c *PartitionedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.partitions = make(map[Resource]map[string]*cacheItem)
	c.stats.Size = 0
}

// Stats returns cache statistics.
func (c *PartitionedCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = c.size()
	return stats
}

// Stop stops the cleanup routine.
func (c *PartitionedCache) Stop() {
	close(c.stopCleanup)
}

func (c *PartitionedCache) size() int {
	total := 0
	for _, partition := range c.partitions {
		total += len(partition)
	}
	return total
}

func (c *PartitionedCache) cleanupRoutine() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpired()
			c.stats.Size = c.size()
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *PartitionedCache) evictExpired() {
	now := time.Now()
	for resource, partition := range c.partitions {
		for key, item := range partition {
			if now.After(item.expiresAt) {
				delete(partition, key)
				c.stats.Evictions++
			}
		}
		if len(partition) == 0 {
			delete(c.partitions, resource)
		}
	}
}

func (c *PartitionedCache) evictOldest() {
	var oldestResource Resource
	var oldestKey string
	var oldestTime time.Time

	for resource, partition := range c.partitions {
		for key, item := range partition {
			if oldestTime.IsZero() || item.expiresAt.Before(oldestTime) {
				oldestResource = resource
				oldestKey = key
				oldestTime = item.expiresAt
			}
		}
	}

	if oldestKey != "" {
		delete(c.partitions[oldestResource], oldestKey)
		c.stats.Evictions++
	}
}

func (c *PartitionedCache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total)
	}
}

// noopCache disables caching while keeping the Service code uniform.
type noopCache struct{}

func (noopCache) Get(Resource, string) (interface{}, bool)          { return nil, false }
func (noopCache) Set(Resource, string, interface{}, time.Duration)  {}
func (noopCache) ClearPartition(Resource)                           {}
func (noopCache) Clear()                                            {}
func (noopCache) Stats() CacheStats                                 { return CacheStats{} }
