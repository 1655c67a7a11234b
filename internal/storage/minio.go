package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig describes an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base URL objects are served from, without the bucket.
	// Empty means the endpoint itself.
	PublicURL string
}

// MinioStore is an ObjectStore backed by any S3-compatible service.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to the endpoint. It does not create the bucket;
// call EnsureBucket for that.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage.NewMinioStore: %w", err)
	}

	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(base, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage.MinioStore.EnsureBucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("storage.MinioStore.EnsureBucket: %w", err)
	}
	return nil
}

func (s *MinioStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("storage.MinioStore.Upload: %w", err)
	}
	return nil
}

func (s *MinioStore) PublicURL(key string) string {
	return s.publicURL + "/" + s.bucket + "/" + key
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("storage.MinioStore.Remove: %w", err)
	}
	return nil
}

func (s *MinioStore) RemovePrefix(ctx context.Context, prefix string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})

	var errs []error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("%s: %w", rerr.ObjectName, rerr.Err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("storage.MinioStore.RemovePrefix: %w", errors.Join(errs...))
	}
	return nil
}
