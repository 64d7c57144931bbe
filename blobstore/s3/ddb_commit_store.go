package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/speclib/blobstore"
)

// CurrentName is the virtual blob name that resolves to the most recently
// committed release manifest.
const CurrentName = "CURRENT"

// ErrConcurrentModification is returned by CommitRelease when another
// publisher committed the same version first.
var ErrConcurrentModification = errors.New("s3: release version already committed")

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DDBCommitStore extends Store with a versioned release pointer kept in
// DynamoDB. Publishers upload library files through the embedded Store,
// then commit a manifest under a monotonically increasing version; readers
// open CurrentName to get the latest committed manifest without listing
// the bucket. S3 writes are not transactional across objects, so the
// manifest is the single point of truth for which files form a release.
type DDBCommitStore struct {
	*Store
	ddb       DDBClient
	tableName string
	baseURI   string
}

// NewDDBCommitStore creates a commit store. The DynamoDB table needs
// base_uri (S) as partition key and version (N) as sort key.
func NewDDBCommitStore(s3Client Client, ddbClient DDBClient, bucket, rootPrefix, tableName string) *DDBCommitStore {
	return &DDBCommitStore{
		Store:     NewStore(s3Client, bucket, rootPrefix),
		ddb:       ddbClient,
		tableName: tableName,
		baseURI:   "s3://" + path.Join(bucket, rootPrefix),
	}
}

// Open resolves CurrentName to the latest committed manifest; any other
// name is delegated to the underlying object store.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != CurrentName {
		return s.Store.Open(ctx, name)
	}

	_, manifest, err := s.CurrentRelease(ctx)
	if err != nil {
		return nil, err
	}
	return &virtualCurrentBlob{data: manifest}, nil
}

// CommitRelease records manifest as the given release version. The write
// is conditional on the version not existing yet.
func (s *DDBCommitStore) CommitRelease(ctx context.Context, version int64, manifest []byte) error {
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"base_uri":  &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
			"version":   &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
			"manifest":  &ddbtypes.AttributeValueMemberB{Value: manifest},
			"committed": &ddbtypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var ccf *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConcurrentModification
		}
		return err
	}
	return nil
}

// CurrentRelease returns the highest committed version and its manifest.
// It returns blobstore.ErrNotFound when nothing has been committed yet.
func (s *DDBCommitStore) CurrentRelease(ctx context.Context) (int64, []byte, error) {
	out, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, nil, err
	}
	if len(out.Items) == 0 {
		return 0, nil, blobstore.ErrNotFound
	}

	item := out.Items[0]

	nv, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, nil, fmt.Errorf("s3: commit item missing version attribute")
	}
	version, err := strconv.ParseInt(nv.Value, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("s3: malformed version attribute %q: %w", nv.Value, err)
	}

	mv, ok := item["manifest"].(*ddbtypes.AttributeValueMemberB)
	if !ok {
		return 0, nil, fmt.Errorf("s3: commit item missing manifest attribute")
	}

	return version, mv.Value, nil
}

// virtualCurrentBlob serves a manifest fetched from DynamoDB as a
// read-only blob.
type virtualCurrentBlob struct {
	data []byte
}

func (b *virtualCurrentBlob) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *virtualCurrentBlob) ReadRange(off, length int64) (io.ReadCloser, error) {
	if off >= int64(len(b.data)) {
		return nil, io.EOF
	}
	end := off + length
	if end > int64(len(b.data)) {
		end = int64(len(b.data))
	}
	return io.NopCloser(bytes.NewReader(b.data[off:end])), nil
}

func (b *virtualCurrentBlob) Bytes() ([]byte, error) {
	return b.data, nil
}

func (b *virtualCurrentBlob) Close() error { return nil }

func (b *virtualCurrentBlob) Size() int64 { return int64(len(b.data)) }
