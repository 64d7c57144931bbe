package backend

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/hupe1980/speclib/blobstore"
)

// gzipMagic is the two-byte header of every gzip stream.
var gzipMagic = [2]byte{0x1f, 0x8b}

// ByteSource is the reading half shared by the stream-oriented formats: a
// named, sized blob plus the ability to open a reader at any byte offset.
// Gzip compression is detected once at construction and decompressed
// transparently; offsets always address the decompressed stream.
type ByteSource struct {
	name      string
	localPath string
	blob      blobstore.Blob
	gzipped   bool
}

// NewByteSource wraps an open blob. name identifies the source in error
// messages and during format detection; the source takes ownership of the
// blob and closes it with Close.
func NewByteSource(name string, blob blobstore.Blob) (*ByteSource, error) {
	var magic [2]byte

	n, err := blob.ReadAt(magic[:], 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("backend: sniff %s: %w", name, err)
	}

	return &ByteSource{
		name:    name,
		blob:    blob,
		gzipped: n == len(magic) && magic == gzipMagic,
	}, nil
}

// OpenFile opens the local file at path as a byte source.
func OpenFile(ctx context.Context, path string) (*ByteSource, error) {
	store := blobstore.NewLocalStore(filepath.Dir(path))

	blob, err := store.Open(ctx, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", path, err)
	}

	src, err := NewByteSource(path, blob)
	if err != nil {
		_ = blob.Close()

		return nil, err
	}

	src.localPath = path

	return src, nil
}

// Name returns the source name given at construction.
func (s *ByteSource) Name() string { return s.name }

// Size returns the stored size in bytes. For gzip sources this is the
// compressed size, not the length of the decompressed stream.
func (s *ByteSource) Size() int64 { return s.blob.Size() }

// Gzipped reports whether the blob holds a gzip stream.
func (s *ByteSource) Gzipped() bool { return s.gzipped }

// LocalPath returns the filesystem path behind the source when it was
// opened from a local file. Database formats need it to hand the file to
// the sqlite driver.
func (s *ByteSource) LocalPath() (string, bool) {
	return s.localPath, s.localPath != ""
}

// SectionAt opens a reader over the decompressed stream starting at
// offset. Plain blobs are addressed directly; gzip blobs decompress from
// the start and discard offset bytes, so random access into a compressed
// library costs time linear in the offset.
func (s *ByteSource) SectionAt(offset int64) (io.ReadCloser, error) {
	if !s.gzipped {
		if offset > s.blob.Size() {
			return nil, fmt.Errorf("backend: offset %d beyond end of %s", offset, s.name)
		}

		return io.NopCloser(io.NewSectionReader(s.blob, offset, s.blob.Size()-offset)), nil
	}

	gz, err := gzip.NewReader(io.NewSectionReader(s.blob, 0, s.blob.Size()))
	if err != nil {
		return nil, fmt.Errorf("backend: open gzip stream %s: %w", s.name, err)
	}

	if offset > 0 {
		if _, err := io.CopyN(io.Discard, gz, offset); err != nil {
			_ = gz.Close()

			return nil, fmt.Errorf("backend: position gzip stream %s at %d: %w", s.name, offset, err)
		}
	}

	return gz, nil
}

// Close releases the underlying blob.
func (s *ByteSource) Close() error {
	return s.blob.Close()
}
