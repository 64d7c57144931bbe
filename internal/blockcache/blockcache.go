package blockcache

import "context"

// Key identifies one cached block of one blob. Keys must be stable across
// processes: the disk tier encodes them into file paths and rebuilds its
// index from those paths on startup.
type Key struct {
	// Path identifies the source blob (e.g. the library file name).
	Path string
	// Block is the block ordinal within the blob.
	Block uint64
}

// Cache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type Cache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block. Implementations may copy or retain; caller must treat b as immutable.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Close releases any resources (e.g. background workers).
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
