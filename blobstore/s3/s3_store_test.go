package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/speclib/blobstore"
)

// TestStore_Integration runs against a real bucket. Set S3_BUCKET to enable.
func TestStore_Integration(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("S3_BUCKET not set, skipping integration test")
	}

	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg)
	root := fmt.Sprintf("speclib-test/%d", time.Now().UnixNano())
	store := NewStore(client, bucket, root)

	name := "human_hcd.mzlb.txt"
	content := []byte("<mzSpecLib>\nMS:1003186|library format version=1.0\n")

	require.NoError(t, store.Put(ctx, name, content))
	defer func() { _ = store.Delete(ctx, name) }()

	blob, err := store.Open(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), blob.Size())

	p := make([]byte, 11)
	_, err = blob.ReadAt(p, 0)
	require.NoError(t, err)
	assert.Equal(t, "<mzSpecLib>", string(p))

	rc, err := blobstore.ReadRange(blob, 12, 10)
	require.NoError(t, err)
	ranged, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "MS:1003186", string(ranged))
	require.NoError(t, blob.Close())

	// Streamed create, sized to force a couple of parts at the default
	// 8 MiB part size.
	big := "big.bin"
	payload := bytes.Repeat([]byte("0123456789abcdef"), 1<<20)

	w, err := store.Create(ctx, big)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	defer func() { _ = store.Delete(ctx, big) }()

	blob, err = store.Open(ctx, big)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), blob.Size())
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, name)
	assert.Contains(t, names, big)

	require.NoError(t, store.Delete(ctx, name))
	_, err = store.Open(ctx, name)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
