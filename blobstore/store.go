package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for accessing library files and their sidecar
// artifacts, locally or in object storage.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create opens a new blob for streaming writes. The blob becomes
	// visible to readers only after Close returns nil.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a streaming write handle returned by Create.
type WritableBlob interface {
	io.Writer
	io.Closer
	// Sync flushes buffered data to stable storage where the backend
	// supports it. Object stores commit only on Close.
	Sync() error
}

// Mappable is an optional interface for Blobs that support memory mapping.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	// This is a zero-copy operation if supported.
	Bytes() ([]byte, error)
}

// RangeReader is an optional interface for Blobs with native range reads.
// Cloud blobs implement it with a ranged GET, which beats issuing many
// small ReadAt calls over the network.
type RangeReader interface {
	ReadRange(off, length int64) (io.ReadCloser, error)
}

// ReadRange returns a reader over blob[off, off+length), using the blob's
// native range support when available. Requests starting past the end of
// the blob return io.EOF; requests extending past the end are truncated.
func ReadRange(blob Blob, off, length int64) (io.ReadCloser, error) {
	if rr, ok := blob.(RangeReader); ok {
		return rr.ReadRange(off, length)
	}

	if off >= blob.Size() {
		return nil, io.EOF
	}
	if off+length > blob.Size() {
		length = blob.Size() - off
	}

	return io.NopCloser(io.NewSectionReader(blob, off, length)), nil
}
