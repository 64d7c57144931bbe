package blockcache

import (
	"context"
	"testing"
)

func TestLRU_BasicOperations(t *testing.T) {
	cache := NewLRU(1024 * 1024) // 1MB

	ctx := context.Background()
	key := Key{Path: "lib.mzlb.txt", Block: 0}
	data := []byte("test data")

	// Test Set and Get
	cache.Set(ctx, key, data)
	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	// Test miss
	missKey := Key{Path: "other.msp", Block: 0}
	_, ok = cache.Get(ctx, missKey)
	if ok {
		t.Fatal("expected cache miss")
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats: got %d/%d, want 1/1", hits, misses)
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewLRU(3 * 1024)

	ctx := context.Background()
	data := make([]byte, 1024)

	for i := range 3 {
		cache.Set(ctx, Key{Path: "lib", Block: uint64(i)}, data)
	}

	// Touch block 0 so block 1 becomes the eviction candidate.
	if _, ok := cache.Get(ctx, Key{Path: "lib", Block: 0}); !ok {
		t.Fatal("expected block 0 cached")
	}

	cache.Set(ctx, Key{Path: "lib", Block: 3}, data)

	if _, ok := cache.Get(ctx, Key{Path: "lib", Block: 1}); ok {
		t.Error("expected block 1 evicted")
	}
	if _, ok := cache.Get(ctx, Key{Path: "lib", Block: 0}); !ok {
		t.Error("expected block 0 retained")
	}
	if cache.Size() > 3*1024 {
		t.Errorf("size %d exceeds capacity", cache.Size())
	}
}

func TestLRU_RejectsOversizedItem(t *testing.T) {
	cache := NewLRU(16)

	ctx := context.Background()
	cache.Set(ctx, Key{Path: "lib", Block: 0}, make([]byte, 64))

	if _, ok := cache.Get(ctx, Key{Path: "lib", Block: 0}); ok {
		t.Error("oversized item should not be cached")
	}
	if cache.Size() != 0 {
		t.Errorf("size: got %d, want 0", cache.Size())
	}
}

func TestLRU_UpdateExistingKey(t *testing.T) {
	cache := NewLRU(1024)

	ctx := context.Background()
	key := Key{Path: "lib", Block: 7}

	cache.Set(ctx, key, []byte("old"))
	cache.Set(ctx, key, []byte("newer value"))

	got, ok := cache.Get(ctx, key)
	if !ok || string(got) != "newer value" {
		t.Errorf("got %q, want %q", got, "newer value")
	}
	if cache.Size() != int64(len("newer value")) {
		t.Errorf("size: got %d, want %d", cache.Size(), len("newer value"))
	}
}
