package blockcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/semaphore"
)

// Compression selects how blocks are encoded on disk.
type Compression int

const (
	// CompressionNone stores blocks verbatim.
	CompressionNone Compression = iota
	// CompressionLZ4 trades a little ratio for very fast decode.
	CompressionLZ4
	// CompressionZstd favors ratio over decode speed.
	CompressionZstd
)

func (c Compression) ext() string {
	switch c {
	case CompressionLZ4:
		return ".blk.lz4"
	case CompressionZstd:
		return ".blk.zst"
	default:
		return ".blk"
	}
}

// DiskConfig holds configuration for the disk cache.
type DiskConfig struct {
	// RootDir is the directory where cache files are stored.
	RootDir string
	// MaxSizeBytes is the maximum size of the cache in bytes.
	MaxSizeBytes int64
	// Compression selects the on-disk block encoding. Defaults to none.
	Compression Compression
	// MaxConcurrentWrites limits background disk writes to prevent unbounded goroutines.
	// Defaults to 16 if <= 0.
	MaxConcurrentWrites int64
}

// Disk implements Cache backed by the local filesystem.
// It maintains an in-memory LRU index of the files on disk, so cached blocks
// survive process restarts.
type Disk struct {
	mu          sync.Mutex
	rootDir     string
	maxSize     int64
	currentSize int64
	compression Compression

	zenc *zstd.Encoder
	zdec *zstd.Decoder

	// writeSem limits concurrent background writes to prevent goroutine explosion.
	writeSem *semaphore.Weighted

	// Index
	items   map[Key]*lruEntry
	lruHead *lruEntry
	lruTail *lruEntry
	wg      sync.WaitGroup

	// Stats
	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry struct {
	key        Key
	size       int64
	filePath   string
	next, prev *lruEntry
}

// NewDisk creates a new disk-backed block cache. It scans the root directory
// to rebuild the index from files left by a previous run.
func NewDisk(config DiskConfig) (*Disk, error) {
	if err := os.MkdirAll(config.RootDir, 0755); err != nil {
		return nil, err
	}

	maxWrites := config.MaxConcurrentWrites
	if maxWrites <= 0 {
		maxWrites = 16
	}

	c := &Disk{
		rootDir:     config.RootDir,
		maxSize:     config.MaxSizeBytes,
		compression: config.Compression,
		items:       make(map[Key]*lruEntry),
		writeSem:    semaphore.NewWeighted(maxWrites),
	}

	if config.Compression == CompressionZstd {
		var err error
		if c.zenc, err = zstd.NewWriter(nil); err != nil {
			return nil, err
		}
		if c.zdec, err = zstd.NewReader(nil); err != nil {
			return nil, err
		}
	}

	// Synchronous scan keeps Get consistent from the first call:
	// an unindexed file on disk would otherwise be overwritten or
	// double-counted.
	c.scanExistingFiles()

	return c, nil
}

func (c *Disk) scanExistingFiles() {
	_ = filepath.Walk(c.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally ignore walk errors to continue scanning
		}
		if info.IsDir() {
			return nil
		}

		key, ok := c.parsePathToKey(path)
		if !ok {
			return nil
		}

		c.addToLRU(key, path, info.Size())
		return nil
	})
}

// encodeKeyToRelPath creates a relative path string from a key.
// Format: <Path>/<Block>.blk[.lz4|.zst], with the <Path> part preserved as
// directory structure.
func (c *Disk) encodeKeyToRelPath(key Key) string {
	fileName := fmt.Sprintf("%d%s", key.Block, c.compression.ext())
	if key.Path != "" {
		return filepath.Join(key.Path, fileName)
	}
	return filepath.Join("_misc", fileName)
}

func (c *Disk) parsePathToKey(absPath string) (Key, bool) {
	relPath, err := filepath.Rel(c.rootDir, absPath)
	if err != nil {
		return Key{}, false
	}

	dir, file := filepath.Split(relPath)

	// Only index files written with the configured compression; stale files
	// from a differently-configured run are ignored and eventually orphaned.
	base, ok := strings.CutSuffix(file, c.compression.ext())
	if !ok {
		return Key{}, false
	}

	var k Key

	var block uint64
	if _, err := fmt.Sscanf(base, "%d", &block); err != nil {
		return Key{}, false
	}
	k.Block = block

	if dir != "" {
		dir = strings.TrimSuffix(dir, string(filepath.Separator))
		if dir != "_misc" {
			k.Path = dir
		}
	}

	return k, true
}

// Get returns a cached block, reading and decoding it from disk.
func (c *Disk) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	ent, ok := c.items[key]
	if ok {
		c.moveToFront(ent)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	raw, err := os.ReadFile(ent.filePath)
	if err != nil {
		// File missing? Remove from index
		c.mu.Lock()
		c.removeEntry(ent)
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}

	data, err := c.decode(raw)
	if err != nil {
		// Corrupt block; drop it and treat as a miss.
		c.mu.Lock()
		c.removeEntry(ent)
		c.mu.Unlock()
		_ = os.Remove(ent.filePath)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return data, true
}

// Set caches a block. The encode and write happen on a background goroutine;
// the entry becomes visible to Get once the write completes.
func (c *Disk) Set(_ context.Context, key Key, b []byte) {
	c.mu.Lock()

	if ent, ok := c.items[key]; ok {
		c.moveToFront(ent)
		c.mu.Unlock()
		// Blocks are immutable, so an existing entry needs no rewrite.
		return
	}

	relPath := c.encodeKeyToRelPath(key)
	absPath := filepath.Join(c.rootDir, relPath)

	c.mu.Unlock()

	// Non-blocking admission: when too many writes are already in flight, the
	// block simply isn't cached.
	if !c.writeSem.TryAcquire(1) {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.writeSem.Release(1)

		encoded, err := c.encode(b)
		if err != nil {
			return
		}

		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return
		}

		tmpFile, err := os.CreateTemp(filepath.Dir(absPath), "tmp-blk-*")
		if err != nil {
			return
		}
		tmpName := tmpFile.Name()

		defer func() {
			if _, err := os.Stat(tmpName); err == nil {
				_ = os.Remove(tmpName)
			}
		}()

		if _, err := tmpFile.Write(encoded); err != nil {
			_ = tmpFile.Close() // Intentionally ignore: cleanup path
			return
		}
		if err := tmpFile.Close(); err != nil {
			return
		}

		if err := os.Rename(tmpName, absPath); err != nil {
			return
		}

		size := int64(len(encoded))

		c.mu.Lock()
		defer c.mu.Unlock()

		for c.currentSize+size > c.maxSize {
			if c.lruTail == nil {
				break
			}
			c.evictOne()
		}

		c.addToLRU(key, absPath, size)
	}()
}

// Invalidate removes entries matching the predicate, deleting their files.
func (c *Disk) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*lruEntry
	for k, ent := range c.items {
		if predicate(k) {
			toRemove = append(toRemove, ent)
		}
	}

	for _, ent := range toRemove {
		_ = os.Remove(ent.filePath)
		c.removeEntry(ent)
	}
}

// Close waits for all background writes to complete.
func (c *Disk) Close() error {
	c.wg.Wait()
	if c.zenc != nil {
		_ = c.zenc.Close()
	}
	if c.zdec != nil {
		c.zdec.Close()
	}
	return nil
}

// Stats returns hit/miss counters.
func (c *Disk) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Disk) encode(b []byte) ([]byte, error) {
	switch c.compression {
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(b); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CompressionZstd:
		return c.zenc.EncodeAll(b, nil), nil

	default:
		return b, nil
	}
}

func (c *Disk) decode(raw []byte) ([]byte, error) {
	switch c.compression {
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))

	case CompressionZstd:
		return c.zdec.DecodeAll(raw, nil)

	default:
		return raw, nil
	}
}

// Internal LRU helpers (must hold lock)

func (c *Disk) addToLRU(key Key, path string, size int64) {
	ent := &lruEntry{
		key:      key,
		filePath: path,
		size:     size,
	}
	c.items[key] = ent
	c.currentSize += size

	// Push front
	if c.lruHead == nil {
		c.lruHead = ent
		c.lruTail = ent
	} else {
		ent.next = c.lruHead
		c.lruHead.prev = ent
		c.lruHead = ent
	}
}

func (c *Disk) moveToFront(ent *lruEntry) {
	if c.lruHead == ent {
		return
	}

	// Detach
	if ent.prev != nil {
		ent.prev.next = ent.next
	}
	if ent.next != nil {
		ent.next.prev = ent.prev
	}
	if c.lruTail == ent {
		c.lruTail = ent.prev
	}

	// Push front
	ent.prev = nil
	ent.next = c.lruHead
	if c.lruHead != nil {
		c.lruHead.prev = ent
	}
	c.lruHead = ent
	if c.lruTail == nil {
		c.lruTail = ent
	}
}

func (c *Disk) evictOne() {
	ent := c.lruTail
	if ent == nil {
		return
	}
	_ = os.Remove(ent.filePath)
	c.removeEntry(ent)
}

func (c *Disk) removeEntry(ent *lruEntry) {
	if _, ok := c.items[ent.key]; !ok {
		return
	}

	delete(c.items, ent.key)
	c.currentSize -= ent.size

	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.lruHead = ent.next
	}
	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.lruTail = ent.prev
	}
	ent.next = nil
	ent.prev = nil
}
