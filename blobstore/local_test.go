package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)

	ctx := context.Background()

	// 1. Create a blob
	blobName := "yeast.mzlb.txt"
	data := []byte("hello world, this is a test library blob")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	err = w.Close()
	require.NoError(t, err)

	// Verify file exists on disk
	expectedPath := filepath.Join(tmpDir, blobName)
	_, err = os.Stat(expectedPath)
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(buf, 6) // "world"
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	// 3. ReadRange
	// Read "this" (offset 13, length 4)
	rangeReader, err := ReadRange(blob, 13, 4)
	require.NoError(t, err)
	defer rangeReader.Close()

	rangeContent, err := io.ReadAll(rangeReader)
	require.NoError(t, err)
	require.Equal(t, "this", string(rangeContent))

	// 4. List
	blobName2 := "yeast.mzlb.txt.splindex"
	require.NoError(t, store.Put(ctx, blobName2, []byte("idx")))

	blobs, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{blobName, blobName2}, blobs)

	// 5. Delete
	err = store.Delete(ctx, blobName)
	require.NoError(t, err)

	blobsAfter, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{blobName2}, blobsAfter)

	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing blob is not an error
	require.NoError(t, store.Delete(ctx, blobName))
}

func TestLocalStore_CreateIsAtomic(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	w, err := store.Create(ctx, "staged.bin")
	require.NoError(t, err)

	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	// The blob must not be visible before Close.
	_, err = store.Open(ctx, "staged.bin")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "staged.bin")
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(len("partial")), blob.Size())
}

func TestLocalStore_MappableZeroCopy(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary.bin", data))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok, "local blobs should be mappable")

	raw, err := m.Bytes()
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, raw))

	// ReadRange past end truncates; starting past EOF errors.
	r, err := ReadRange(blob, 8, 5)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "89", string(content))
	r.Close()

	_, err = ReadRange(blob, 20, 5)
	require.ErrorIs(t, err, io.EOF)
}
