// Package blockcache provides LRU caching for blocks of remote library files.
//
// # Block Cache (RAM)
//
// The Sharded cache stores recently accessed blocks of blob data. It uses
// 64-way sharding so concurrent spectrum fetches contend on different locks.
//
// # Disk Cache (L2)
//
// For cloud storage backends, Disk provides a persistent second tier:
//   - Async writes to keep block fetches off the read path
//   - LRU eviction with configurable size limits
//   - Optional lz4 or zstd compression of cached blocks
//   - Rebuilds its index from disk on startup
//
// Tiered combines both, promoting disk hits into memory.
package blockcache
