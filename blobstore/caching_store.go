package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/speclib/internal/blockcache"
)

// fetchConcurrency bounds parallel backend reads during cache fills.
const fetchConcurrency = 16

// CachingStore wraps a BlobStore and adds block-level caching. It exists for
// remote stores: a library opened from object storage reads spectra through
// ranged GETs, and the cache keeps hot blocks local.
type CachingStore struct {
	inner     BlobStore
	cache     blockcache.Cache
	blockSize int64
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to 4KB if <= 0.
func NewCachingStore(inner BlobStore, cache blockcache.Cache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = 4096
	}
	return &CachingStore{
		inner:     inner,
		cache:     cache,
		blockSize: blockSize,
	}
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Create passes through to the inner store. Writes are not cached; blobs are
// immutable once published, so there is nothing to invalidate for a new name.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.inner.Create(ctx, name)
}

// Put invalidates any cached blocks of the blob and writes through.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(func(key blockcache.Key) bool {
		return key.Path == name
	})
	return s.inner.Put(ctx, name, data)
}

// Delete invalidates any cached blocks of the blob and deletes it.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(func(key blockcache.Key) bool {
		return key.Path == name
	})
	return s.inner.Delete(ctx, name)
}

// List passes through to the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// CachingBlob wraps a Blob and serves reads from the block cache.
type CachingBlob struct {
	inner     Blob
	cache     blockcache.Cache
	name      string
	blockSize int64
}

// Close closes the underlying blob.
func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

// Size returns the size of the underlying blob.
func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

// ReadAt assembles the request from cached blocks, fetching missing runs
// from the backend first.
func (b *CachingBlob) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= b.Size() {
		return 0, io.EOF
	}

	ctx := context.Background()
	totalRead := 0

	// Align to block boundaries
	startBlock := off / b.blockSize
	endBlock := (off + int64(len(p)) - 1) / b.blockSize

	// Fetch missing blocks in coalesced runs before assembling.
	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * b.blockSize

		// Intersection of [blkStart, blkStart+blockSize) with [off, off+len(p))
		intersectStart := max(blkStart, off)
		intersectEnd := min(blkStart+b.blockSize, off+int64(len(p)))

		if intersectEnd <= intersectStart {
			continue
		}

		copySize := int(intersectEnd - intersectStart)
		dstOffset := intersectStart - off

		blockData, err := b.fetchBlock(ctx, blk)
		if err != nil {
			return totalRead, err
		}

		srcOffset := intersectStart - blkStart

		// The last block of a file is usually short.
		if srcOffset+int64(copySize) > int64(len(blockData)) {
			copySize = len(blockData) - int(srcOffset)
		}

		if copySize > 0 {
			n := copy(p[dstOffset:dstOffset+int64(copySize)], blockData[srcOffset:])
			totalRead += n
		}
	}

	if totalRead < len(p) {
		return totalRead, io.EOF
	}

	return totalRead, nil
}

// ReadRange serves range reads through the same block cache.
func (b *CachingBlob) ReadRange(off, length int64) (io.ReadCloser, error) {
	if off >= b.Size() {
		return nil, io.EOF
	}
	if off+length > b.Size() {
		length = b.Size() - off
	}
	return io.NopCloser(io.NewSectionReader(b, off, length)), nil
}

// fillCache ensures that the blocks in the given range are loaded into the
// cache. Contiguous runs of missing blocks are fetched in single backend
// requests, in parallel across runs.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var missingRuns []struct {
		start, count int64
	}

	runStart := int64(-1)
	runCount := int64(0)

	// Identify missing blocks
	for blk := startBlock; blk <= endBlock; blk++ {
		key := blockcache.Key{Path: b.name, Block: uint64(blk)} //nolint:gosec // block ordinal, never negative
		if _, ok := b.cache.Get(ctx, key); !ok {
			if runStart == -1 {
				runStart = blk
				runCount = 1
			} else {
				runCount++
			}
		} else if runStart != -1 {
			missingRuns = append(missingRuns, struct{ start, count int64 }{runStart, runCount})
			runStart = -1
			runCount = 0
		}
	}
	if runStart != -1 {
		missingRuns = append(missingRuns, struct{ start, count int64 }{runStart, runCount})
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for _, run := range missingRuns {
		g.Go(func() error {
			byteStart := run.start * b.blockSize
			byteSize := run.count * b.blockSize

			fileSize := b.Size()
			if byteStart >= fileSize {
				return nil
			}
			if byteStart+byteSize > fileSize {
				byteSize = fileSize - byteStart
			}

			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if n == 0 {
				return nil
			}

			validData := buf[:n]

			// Populate cache
			for i := int64(0); i < run.count; i++ {
				blkIdx := run.start + i
				offsetInRun := i * b.blockSize

				if offsetInRun >= int64(len(validData)) {
					break
				}

				endInRun := offsetInRun + b.blockSize
				if endInRun > int64(len(validData)) {
					endInRun = int64(len(validData))
				}

				// Copy so cached blocks don't pin the run buffer.
				blockCopy := make([]byte, endInRun-offsetInRun)
				copy(blockCopy, validData[offsetInRun:endInRun])

				key := blockcache.Key{Path: b.name, Block: uint64(blkIdx)} //nolint:gosec // block ordinal, never negative
				b.cache.Set(ctx, key, blockCopy)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *CachingBlob) fetchBlock(ctx context.Context, blkIdx int64) ([]byte, error) {
	key := blockcache.Key{Path: b.name, Block: uint64(blkIdx)} //nolint:gosec // block ordinal, never negative

	if data, ok := b.cache.Get(ctx, key); ok {
		return data, nil
	}

	// Cache refused the block or evicted it between fill and fetch; read
	// it straight from the backend.
	buf := make([]byte, b.blockSize)
	offset := blkIdx * b.blockSize

	n, err := b.inner.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	validData := buf[:n]

	if n > 0 {
		b.cache.Set(ctx, key, validData)
	}

	return validData, nil
}
