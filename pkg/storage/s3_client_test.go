package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	f.body, _ = io.ReadAll(input.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{Key: input.Key}, nil
}

type fakeObjects struct {
	deleted string
}

func (f *fakeObjects) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = aws.ToString(params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStore(up *fakeUploader, objects *fakeObjects, prefix string) *S3Store {
	return &S3Store{
		uploader: up,
		objects:  objects,
		presign: func(ctx context.Context, params *s3.GetObjectInput, expiration time.Duration) (string, error) {
			return "https://bucket.example.com/" + aws.ToString(params.Key) + "?expires=" + expiration.String(), nil
		},
		bucket: "portal-archive",
		prefix: prefix,
	}
}

func TestS3StorePut(t *testing.T) {
	up := &fakeUploader{}
	store := newTestStore(up, &fakeObjects{}, "receipts")

	err := store.Put(context.Background(), "receipt-BK-1.pdf", "application/pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)

	assert.Equal(t, "portal-archive", aws.ToString(up.input.Bucket))
	assert.Equal(t, "receipts/receipt-BK-1.pdf", aws.ToString(up.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(up.input.ContentType))
	assert.Equal(t, []byte("%PDF-1.3"), up.body)
}

func TestS3StorePutError(t *testing.T) {
	store := newTestStore(&fakeUploader{err: errors.New("access denied")}, &fakeObjects{}, "")

	err := store.Put(context.Background(), "a.pdf", "application/pdf", nil)
	assert.EqualError(t, err, "failed to upload a.pdf: access denied")
}

func TestS3StoreDeleteAndPresign(t *testing.T) {
	objects := &fakeObjects{}
	store := newTestStore(&fakeUploader{}, objects, "")

	require.NoError(t, store.Delete(context.Background(), "a.pdf"))
	assert.Equal(t, "a.pdf", objects.deleted)

	url, err := store.PresignGet(context.Background(), "a.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example.com/a.pdf?expires=15m0s", url)
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}
