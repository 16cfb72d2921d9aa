package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Content kinds stored for a reference. The sync engine only ever moves the
// keys; the blobs themselves are fetched lazily by viewing code.
const (
	KindFullText = "fulltext"
	KindInsights = "insights"
)

// ContentStore resolves large reference content (full text, generated
// insights) by storage key.
type ContentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioContentStore implements ContentStore for MinIO/S3 compatible storage.
type MinioContentStore struct {
	client *minio.Client
	bucket string
}

// NewMinioContentStore connects to MinIO and ensures the bucket exists.
func NewMinioContentStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioContentStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioContentStore{client: client, bucket: bucket}, nil
}

// Put uploads a content blob.
func (m *MinioContentStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put content: %w", err)
	}
	return nil
}

// PresignGet generates a pre-signed GET URL for lazy viewing.
func (m *MinioContentStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign content: %w", err)
	}
	return url.String(), nil
}

// Delete removes a content blob.
func (m *MinioContentStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}

// ContentKey builds the canonical storage key for a reference's blob.
func ContentKey(ownerID, referenceID, kind string) string {
	return path.Join("references", ownerID, referenceID, kind)
}
