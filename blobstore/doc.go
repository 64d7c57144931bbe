// Package blobstore provides storage abstraction for spectral library files.
//
// BlobStore is the interface for reading and writing blobs: library files,
// their .splindex sidecars, and published artifacts. Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap'd reads
//   - MemoryStore: In-memory store for tests
//   - CachingStore: Block-level caching wrapper for remote stores
//   - s3.Store: Amazon S3 with range reads and parallel uploads
//   - minio.Store: MinIO and other S3-compatible object storage
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)            // Open for reading
//	    Create(ctx, name) (WritableBlob, error)  // Create for streaming writes
//	    Put(ctx, name, data) error               // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// For cloud backends, also implement RangeReader for efficient partial reads:
//
//	type RangeReader interface {
//	    ReadRange(off, length int64) (io.ReadCloser, error)
//	}
package blobstore
