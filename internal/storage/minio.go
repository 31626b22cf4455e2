package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ Storage = (*MinIOStorage)(nil)

// MinIOStorage talks to MinIO or any S3-compatible endpoint.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	region string
}

func NewMinIOStorage(cfg *Config) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", cfg.Endpoint, err)
	}
	return &MinIOStorage{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the bucket on first start.
func (s *MinIOStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	logger.FromContext(ctx).Info("bucket created", "bucket", s.bucket, "region", s.region)
	return nil
}

func (s *MinIOStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	if key == "" {
		return ErrInvalidKey
	}
	start := time.Now()

	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	logger.FromContext(ctx).Debug("object stored",
		"key", key,
		"bytes", info.Size,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *MinIOStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.open(ctx, key, minio.GetObjectOptions{})
}

func (s *MinIOStorage) DownloadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if start < 0 || end < start {
		return nil, ErrInvalidRange
	}
	var opts minio.GetObjectOptions
	if err := opts.SetRange(start, end); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	return s.open(ctx, key, opts)
}

// open stats the object through the returned handle so a missing key fails
// here instead of on the first Read.
func (s *MinIOStorage) open(ctx context.Context, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, s.translate("get", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, s.translate("get", key, err)
	}
	return obj, nil
}

func (s *MinIOStorage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, s.translate("stat", key, err)
	}
	return &ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return s.translate("delete", key, err)
	}
	return nil
}

func (s *MinIOStorage) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage health check: %w", err)
	}
	if !exists {
		return fmt.Errorf("storage health check: bucket %s does not exist", s.bucket)
	}
	return nil
}

func (s *MinIOStorage) translate(op, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return ErrNotFound
	case "InvalidRange":
		return ErrInvalidRange
	}
	return fmt.Errorf("%s %s/%s: %w", op, s.bucket, key, err)
}
