package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/speclib/internal/blockcache"
)

type mockBlob struct {
	data      []byte
	reads     int
	readBytes int
}

func (m *mockBlob) Close() error { return nil }
func (m *mockBlob) Size() int64  { return int64(len(m.data)) }
func (m *mockBlob) ReadAt(p []byte, off int64) (int, error) {
	m.reads++
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	m.readBytes += n
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

type mockStore struct {
	blobs map[string]*mockBlob
	opens int
}

func (m *mockStore) Open(_ context.Context, name string) (Blob, error) {
	m.opens++
	if b, ok := m.blobs[name]; ok {
		return b, nil
	}
	return nil, ErrNotFound
}
func (m *mockStore) Create(_ context.Context, _ string) (WritableBlob, error) { return nil, nil }
func (m *mockStore) Put(_ context.Context, name string, data []byte) error {
	if m.blobs == nil {
		m.blobs = make(map[string]*mockBlob)
	}
	m.blobs[name] = &mockBlob{data: data}
	return nil
}
func (m *mockStore) Delete(_ context.Context, _ string) error           { return nil }
func (m *mockStore) List(_ context.Context, _ string) ([]string, error) { return nil, nil }

func TestCachingStore_ReadAt(t *testing.T) {
	data := make([]byte, 1024) // 1KB
	for i := range data {
		data[i] = byte(i % 255)
	}

	inner := &mockStore{
		blobs: map[string]*mockBlob{
			"lib.mzlb.txt": {data: data},
		},
	}

	cache := blockcache.NewLRU(1024 * 1024)
	store := NewCachingStore(inner, cache, 256)

	ctx := context.Background()
	blob, err := store.Open(ctx, "lib.mzlb.txt")
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	// First read fetches from the backend.
	buf := make([]byte, 100)
	n, err := blob.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.True(t, bytes.Equal(data[:100], buf))

	backendReads := inner.blobs["lib.mzlb.txt"].reads
	require.Positive(t, backendReads)

	// Second read of the same range must be served from cache.
	n, err = blob.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.Equal(t, backendReads, inner.blobs["lib.mzlb.txt"].reads)
}

func TestCachingStore_ReadAcrossBlocks(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}

	inner := &mockStore{blobs: map[string]*mockBlob{"lib": {data: data}}}
	store := NewCachingStore(inner, blockcache.NewLRU(1024*1024), 64)

	ctx := context.Background()
	blob, err := store.Open(ctx, "lib")
	require.NoError(t, err)
	defer blob.Close()

	// Spans several 64-byte blocks, starting mid-block.
	buf := make([]byte, 300)
	n, err := blob.ReadAt(buf, 33)
	require.NoError(t, err)
	require.Equal(t, 300, n)
	require.True(t, bytes.Equal(data[33:333], buf))

	// Short read at the tail returns io.EOF after the available bytes.
	tail := make([]byte, 64)
	n, err = blob.ReadAt(tail, int64(len(data)-10))
	assert.Equal(t, 10, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, bytes.Equal(data[len(data)-10:], tail[:10]))
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	inner := &mockStore{blobs: map[string]*mockBlob{"lib": {data: []byte("old content here")}}}
	cache := blockcache.NewLRU(1024 * 1024)
	store := NewCachingStore(inner, cache, 8)

	ctx := context.Background()
	blob, err := store.Open(ctx, "lib")
	require.NoError(t, err)

	buf := make([]byte, 3)
	_, err = blob.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "old", string(buf))
	require.NoError(t, blob.Close())

	// Put rewrites the blob and must drop its cached blocks.
	require.NoError(t, store.Put(ctx, "lib", []byte("new content here")))

	blob, err = store.Open(ctx, "lib")
	require.NoError(t, err)
	defer blob.Close()

	_, err = blob.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "new", string(buf))
}

func BenchmarkCachingBlob_ReadAtHot(b *testing.B) {
	data := make([]byte, 1<<20)
	inner := &mockStore{blobs: map[string]*mockBlob{"lib": {data: data}}}
	store := NewCachingStore(inner, blockcache.NewSharded(64<<20), 4096)

	blob, err := store.Open(context.Background(), "lib")
	if err != nil {
		b.Fatal(err)
	}
	defer blob.Close()

	buf := make([]byte, 4096)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := blob.ReadAt(buf, int64(i%256)*4096); err != nil {
			b.Fatal(err)
		}
	}
}
