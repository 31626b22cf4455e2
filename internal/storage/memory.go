package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps objects in a map. Tests use it in place of MinIO.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (s *MemoryStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKey
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, contentType: contentType, modified: time.Now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) lookup(ctx context.Context, key string) (memoryObject, error) {
	if err := ctx.Err(); err != nil {
		return memoryObject{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return memoryObject{}, ErrNotFound
	}
	return obj, nil
}

func (s *MemoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// DownloadRange clamps end to the object size like S3 does.
func (s *MemoryStorage) DownloadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	obj, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	size := int64(len(obj.data))
	if start < 0 || end < start || start >= size {
		return nil, ErrInvalidRange
	}
	end = min(end, size-1)
	return io.NopCloser(bytes.NewReader(obj.data[start : end+1])), nil
}

func (s *MemoryStorage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	obj, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	return &ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// GetData returns the stored bytes for key.
func (s *MemoryStorage) GetData(key string) ([]byte, bool) {
	obj, err := s.lookup(context.Background(), key)
	return obj.data, err == nil
}

// Keys returns the sorted keys under prefix.
func (s *MemoryStorage) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *MemoryStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
