// Package storage provides the blob store for rendered contract PDFs,
// backed by any S3-compatible object store via the MinIO client.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config carries the connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration // lifetime of presigned read URLs
}

// MinioStore stores rendered documents in a single bucket and serves
// presigned read URLs so the API never proxies PDF bytes itself.
type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinioStore connects to the object store described by cfg.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

// EnsureBucket creates the bucket when it does not exist yet. Called once
// at startup.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("storage: create bucket: %w", err)
		}
	}
	return nil
}

// Store uploads data under the given object name.
func (s *MinioStore) Store(ctx context.Context, object string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, object,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", object, err)
	}
	return nil
}

// ReadURL returns a time-limited presigned URL for the object.
func (s *MinioStore) ReadURL(ctx context.Context, object string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, object, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", object, err)
	}
	return u.String(), nil
}

// Fetch downloads an object's bytes. Used to load template sources.
func (s *MinioStore) Fetch(ctx context.Context, object string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", object, err)
	}
	defer obj.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", object, err)
	}
	return buf.Bytes(), nil
}
