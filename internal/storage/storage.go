// Package storage holds source uploads, renditions, thumbnails and
// certificate images behind a small object-store interface.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound     = errors.New("storage: object not found")
	ErrInvalidKey   = errors.New("storage: invalid key")
	ErrInvalidRange = errors.New("storage: invalid range")
)

// ObjectInfo describes a stored object without reading its body.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// DownloadRange returns bytes [start, end] inclusive.
	DownloadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	// Delete is idempotent: a missing key is not an error.
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}
