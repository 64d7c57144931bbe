package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	ihash "github.com/hupe1980/speclib/internal/hash"
)

var errUploadAborted = errors.New("s3: upload aborted")

// UploadConfig tunes multipart uploads. Converted spectral libraries are
// often multi-gigabyte, so Create streams them in parts instead of
// buffering.
type UploadConfig struct {
	// PartSize is the size of each uploaded part in bytes.
	PartSize int64

	// Concurrency is the number of parts uploaded in parallel.
	Concurrency int

	// EnableChecksum attaches CRC32C checksums so S3 verifies each part.
	EnableChecksum bool

	// LeavePartsOnError keeps uploaded parts around after a failure for
	// manual recovery instead of aborting the multipart upload.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the tuning used by NewStore.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// computeCRC32C returns the base64 checksum S3 expects in ChecksumCRC32C.
func computeCRC32C(data []byte) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], ihash.CRC32C(data))
	return base64.StdEncoding.EncodeToString(buf[:])
}

func putWithChecksum(ctx context.Context, client Client, bucket, key string, data []byte, enableChecksum bool) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if enableChecksum {
		input.ChecksumCRC32C = aws.String(computeCRC32C(data))
	}

	_, err := client.PutObject(ctx, input)
	return err
}

// streamingWritableBlob pipes writes into a background multipart upload.
// Close flushes the pipe and reports the upload result.
type streamingWritableBlob struct {
	pw     *io.PipeWriter
	done   chan error
	closed atomic.Bool
}

func newStreamingWritableBlob(ctx context.Context, client Client, bucket, key string, cfg UploadConfig) *streamingWritableBlob {
	pr, pw := io.Pipe()
	b := &streamingWritableBlob{
		pw:   pw,
		done: make(chan error, 1),
	}

	uploader := newUploader(client, cfg)

	go func() {
		input := &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		}
		if cfg.EnableChecksum {
			input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
		}

		_, err := uploader.Upload(ctx, input)
		if err != nil {
			_ = pr.CloseWithError(err)
		}
		b.done <- err
	}()

	return b
}

func (b *streamingWritableBlob) Write(p []byte) (int, error) {
	return b.pw.Write(p)
}

// Sync is a no-op; the object only becomes durable when Close returns.
func (b *streamingWritableBlob) Sync() error {
	return nil
}

func (b *streamingWritableBlob) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := b.pw.Close(); err != nil {
		return err
	}
	return <-b.done
}

// Abort cancels the upload. The object is never created.
func (b *streamingWritableBlob) Abort() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = b.pw.CloseWithError(errUploadAborted)
	<-b.done
	return nil
}
