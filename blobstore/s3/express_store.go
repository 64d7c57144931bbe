package s3

import (
	"bytes"
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrConflict is returned by PutIfNotExists when the object already exists.
var ErrConflict = errors.New("s3: object already exists")

// ExpressStore is a Store for S3 Express One Zone directory buckets. The
// lower GET latency suits interactive lookups against remote libraries, and
// conditional writes let concurrent publishers race for a release name
// safely.
type ExpressStore struct {
	*Store
}

// NewExpressStore creates a store for a directory bucket, e.g.
// "speclib--use1-az4--x-s3".
func NewExpressStore(client Client, bucket, rootPrefix string) *ExpressStore {
	return &ExpressStore{Store: NewStore(client, bucket, rootPrefix)}
}

// PutIfNotExists writes data only if no object with that name exists yet.
// It returns ErrConflict when another writer got there first.
func (s *ExpressStore) PutIfNotExists(ctx context.Context, name string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		IfNoneMatch: aws.String("*"),
	}
	if s.uploadCfg.EnableChecksum {
		input.ChecksumCRC32C = aws.String(computeCRC32C(data))
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "PreconditionFailed", "ConditionalRequestConflict":
				return ErrConflict
			}
		}
		return err
	}
	return nil
}
