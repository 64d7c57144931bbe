package blockcache

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestSharded_BasicOperations(t *testing.T) {
	cache := NewSharded(1024 * 1024) // 1MB

	ctx := context.Background()
	key := Key{Path: "lib.mzlb.txt", Block: 0}
	data := []byte("test data")

	cache.Set(ctx, key, data)
	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	_, ok = cache.Get(ctx, Key{Path: "missing", Block: 0})
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestSharded_Concurrent(t *testing.T) {
	cache := NewSharded(64 * 1024 * 1024) // 64MB

	ctx := context.Background()
	data := make([]byte, 1024)

	const numGoroutines = 100
	const numOpsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for g := range numGoroutines {
		go func(goroutineID int) {
			defer wg.Done()
			for i := range numOpsPerGoroutine {
				key := Key{
					Path:  fmt.Sprintf("lib-%d", goroutineID),
					Block: uint64(i),
				}
				cache.Set(ctx, key, data)
				cache.Get(ctx, key)
			}
		}(g)
	}

	wg.Wait()

	hits, misses := cache.Stats()
	total := hits + misses
	if total != numGoroutines*numOpsPerGoroutine {
		t.Errorf("stats mismatch: got %d total, want %d", total, numGoroutines*numOpsPerGoroutine)
	}
}

func TestSharded_Invalidate(t *testing.T) {
	cache := NewSharded(64 * 1024 * 1024)

	ctx := context.Background()
	data := []byte("test")

	// Insert blocks for two library files
	for i := range 100 {
		cache.Set(ctx, Key{Path: "a.mzlb.txt", Block: uint64(i)}, data)
		cache.Set(ctx, Key{Path: "b.mzlb.txt", Block: uint64(i)}, data)
	}

	// Invalidate the first file
	cache.Invalidate(func(key Key) bool {
		return key.Path == "a.mzlb.txt"
	})

	_, ok := cache.Get(ctx, Key{Path: "a.mzlb.txt", Block: 0})
	if ok {
		t.Error("expected a.mzlb.txt blocks to be invalidated")
	}

	_, ok = cache.Get(ctx, Key{Path: "b.mzlb.txt", Block: 0})
	if !ok {
		t.Error("expected b.mzlb.txt blocks to still be cached")
	}
}

func BenchmarkSharded_Get(b *testing.B) {
	cache := NewSharded(64 * 1024 * 1024)
	ctx := context.Background()
	key := Key{Path: "lib", Block: 0}
	cache.Set(ctx, key, make([]byte, 4096))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cache.Get(ctx, key)
		}
	})
}
