package s3

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/speclib/blobstore"
)

// mockDDBClient keeps commit items in memory and honors the
// attribute_not_exists condition.
type mockDDBClient struct {
	mu    sync.Mutex
	items []map[string]ddbtypes.AttributeValue
}

func itemVersion(item map[string]ddbtypes.AttributeValue) int64 {
	n, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return -1
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return -1
	}
	return v
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if params.ConditionExpression != nil {
		v := itemVersion(params.Item)
		for _, it := range m.items {
			if itemVersion(it) == v {
				return nil, &ddbtypes.ConditionalCheckFailedException{Message: aws.String("version exists")}
			}
		}
	}

	m.items = append(m.items, params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := make([]map[string]ddbtypes.AttributeValue, len(m.items))
	copy(sorted, m.items)
	sort.Slice(sorted, func(i, j int) bool {
		return itemVersion(sorted[i]) > itemVersion(sorted[j])
	})

	limit := len(sorted)
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
	}

	return &dynamodb.QueryOutput{Items: sorted[:limit]}, nil
}

func TestDDBCommitStore_CommitAndCurrent(t *testing.T) {
	ctx := context.Background()
	ddb := &mockDDBClient{}

	store := NewDDBCommitStore(nil, ddb, "bucket", "libs/cptac3", "speclib-commits")

	_, _, err := store.CurrentRelease(ctx)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.CommitRelease(ctx, 1, []byte(`{"release":"v1"}`)))
	require.NoError(t, store.CommitRelease(ctx, 2, []byte(`{"release":"v2"}`)))

	version, manifest, err := store.CurrentRelease(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.Equal(t, `{"release":"v2"}`, string(manifest))
}

func TestDDBCommitStore_ConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	ddb := &mockDDBClient{}

	store := NewDDBCommitStore(nil, ddb, "bucket", "libs", "speclib-commits")

	require.NoError(t, store.CommitRelease(ctx, 7, []byte("first")))

	err := store.CommitRelease(ctx, 7, []byte("second"))
	assert.ErrorIs(t, err, ErrConcurrentModification)

	_, manifest, err := store.CurrentRelease(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", string(manifest))
}

func TestDDBCommitStore_OpenCurrent(t *testing.T) {
	ctx := context.Background()
	ddb := &mockDDBClient{}

	store := NewDDBCommitStore(nil, ddb, "bucket", "libs", "speclib-commits")
	require.NoError(t, store.CommitRelease(ctx, 3, []byte("manifest body")))

	blob, err := store.Open(ctx, CurrentName)
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()

	assert.Equal(t, int64(13), blob.Size())

	p := make([]byte, 8)
	n, err := blob.ReadAt(p, 0)
	require.NoError(t, err)
	assert.Equal(t, "manifest", string(p[:n]))

	rc, err := blobstore.ReadRange(blob, 9, 4)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "body", string(got))
}
