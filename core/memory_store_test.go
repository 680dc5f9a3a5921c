package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Set(ctx, "cart:1", `{"items":[]}`, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := store.Get(ctx, "cart:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != `{"items":[]}` {
		t.Errorf("value = %q", value)
	}
}

func TestMemoryStoreMissingKey(t *testing.T) {
	store := NewMemoryStore()
	value, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "" {
		t.Errorf("value = %q, want empty", value)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Set(ctx, "key", "value", 10*time.Millisecond)

	if v, _ := store.Get(ctx, "key"); v != "value" {
		t.Fatalf("value before TTL = %q", v)
	}

	time.Sleep(20 * time.Millisecond)

	if v, _ := store.Get(ctx, "key"); v != "" {
		t.Errorf("value after TTL = %q, want empty", v)
	}
	if exists, _ := store.Exists(ctx, "key"); exists {
		t.Error("expired key reported as existing")
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Set(ctx, "key", "value", 0)
	time.Sleep(10 * time.Millisecond)

	if v, _ := store.Get(ctx, "key"); v != "value" {
		t.Errorf("value = %q, want value", v)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Set(ctx, "key", "value", 0)
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if exists, _ := store.Exists(ctx, "key"); exists {
		t.Error("deleted key reported as existing")
	}
	// deleting again is fine
	if err := store.Delete(ctx, "key"); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Set(ctx, "key", "old", 0)
	store.Set(ctx, "key", "new", 0)

	if v, _ := store.Get(ctx, "key"); v != "new" {
		t.Errorf("value = %q, want new", v)
	}
}
