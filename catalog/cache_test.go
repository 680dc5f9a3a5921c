package catalog

import (
	"fmt"
	"testing"
	"time"
)

func newTestCache(t *testing.T, maxSize int) *PartitionedCache {
	t.Helper()
	// long cleanup interval: tests drive expiry through Get
	c := NewCacheWithOptions(maxSize, time.Hour)
	t.Cleanup(c.Stop)
	return c
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t, 10)
	page := &ProductPage{Data: []Product{{ID: "a"}}}

	c.Set(ResourceProducts, "key-1", page, time.Minute)

	got, ok := c.Get(ResourceProducts, "key-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.(*ProductPage).Data[0].ID != "a" {
		t.Errorf("cached value = %+v", got)
	}
}

func TestCacheMiss(t *testing.T) {
	c := newTestCache(t, 10)
	if _, ok := c.Get(ResourceProducts, "absent"); ok {
		t.Fatal("expected cache miss")
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t, 10)
	c.Set(ResourceProducts, "key-1", "value", 10*time.Millisecond)

	if _, ok := c.Get(ResourceProducts, "key-1"); !ok {
		t.Fatal("entry should be live before TTL")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(ResourceProducts, "key-1"); ok {
		t.Fatal("entry should have expired")
	}
	if stats := c.Stats(); stats.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", stats.Evictions)
	}
}

func TestCachePartitionsAreIndependent(t *testing.T) {
	c := newTestCache(t, 10)
	c.Set(ResourceProducts, "key", "products-value", time.Minute)
	c.Set(ResourceCategories, "key", "categories-value", time.Minute)

	c.ClearPartition(ResourceProducts)

	if _, ok := c.Get(ResourceProducts, "key"); ok {
		t.Error("products partition should be empty")
	}
	if got, ok := c.Get(ResourceCategories, "key"); !ok || got != "categories-value" {
		t.Error("categories partition should be untouched")
	}
}

func TestCacheMaxSizeEvictsOldest(t *testing.T) {
	c := newTestCache(t, 3)

	// later entries expire later, so key-0 is the eviction candidate
	for i := 0; i < 3; i++ {
		c.Set(ResourceProducts, fmt.Sprintf("key-%d", i), i, time.Minute+time.Duration(i)*time.Second)
	}
	c.Set(ResourceProducts, "key-3", 3, 2*time.Minute)

	if _, ok := c.Get(ResourceProducts, "key-0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get(ResourceProducts, "key-3"); !ok {
		t.Error("newest entry should be present")
	}
	if stats := c.Stats(); stats.Size != 3 {
		t.Errorf("size = %d, want 3", stats.Size)
	}
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(t, 10)
	c.Set(ResourceProducts, "a", 1, time.Minute)
	c.Set(ResourceFlavors, "b", 2, time.Minute)

	c.Clear()

	if stats := c.Stats(); stats.Size != 0 {
		t.Errorf("size after clear = %d", stats.Size)
	}
}

func TestCacheHitRate(t *testing.T) {
	c := newTestCache(t, 10)
	c.Set(ResourceProducts, "key", "value", time.Minute)

	c.Get(ResourceProducts, "key")    // hit
	c.Get(ResourceProducts, "absent") // miss

	if stats := c.Stats(); stats.HitRate != 0.5 {
		t.Errorf("hit rate = %f, want 0.5", stats.HitRate)
	}
}
