// Package streaming serves video renditions with HTTP range support and
// bandwidth-aware quality selection.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrVideoNotFound   = errors.New("streaming: video not found")
	ErrVideoNotReady   = errors.New("streaming: video has no renditions yet")
	ErrQualityNotFound = errors.New("streaming: quality not found")
)

const (
	defaultContentType = "video/mp4"
	// speedHeadroom is the share of the measured bandwidth a rendition may use.
	speedHeadroom = 0.8
)

type Querier interface {
	GetVideo(ctx context.Context, id uuid.UUID) (db.Video, error)
	ListRenditions(ctx context.Context, videoID uuid.UUID) ([]db.Rendition, error)
}

type StreamInfo struct {
	Body         io.ReadCloser
	TotalSize    int64
	Start        int64
	End          int64
	ContentRange string
	Quality      string
	ContentType  string
	Partial      bool
}

func (i *StreamInfo) Length() int64 {
	if i.TotalSize == 0 {
		return 0
	}
	return i.End - i.Start + 1
}

type Service struct {
	queries Querier
	storage storage.Storage
}

func NewService(q Querier, s storage.Storage) *Service {
	return &Service{queries: q, storage: s}
}

// SelectQuality picks a rendition. An explicit quality must exist. Otherwise a
// positive speed hint in kbps selects the highest rendition whose bitrate fits
// in 80% of it, falling back to the lowest; with no hint the highest wins.
func SelectQuality(renditions []db.Rendition, requested string, speedKbps int) (db.Rendition, error) {
	if len(renditions) == 0 {
		return db.Rendition{}, ErrVideoNotReady
	}

	if requested != "" {
		for _, r := range renditions {
			if r.Quality == requested {
				return r, nil
			}
		}
		return db.Rendition{}, fmt.Errorf("%w: %s", ErrQualityNotFound, requested)
	}

	sorted := append([]db.Rendition(nil), renditions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Height != sorted[j].Height {
			return sorted[i].Height < sorted[j].Height
		}
		return sorted[i].Bitrate < sorted[j].Bitrate
	})

	if speedKbps <= 0 {
		return sorted[len(sorted)-1], nil
	}

	budget := float64(speedKbps) * speedHeadroom
	for i := len(sorted) - 1; i >= 0; i-- {
		if float64(sorted[i].Bitrate) <= budget {
			return sorted[i], nil
		}
	}
	return sorted[0], nil
}

// StreamVideo resolves the rendition and opens the requested byte range.
// The caller must close StreamInfo.Body.
func (s *Service) StreamVideo(ctx context.Context, videoID uuid.UUID, quality string, speedKbps int, rangeHeader string) (*StreamInfo, error) {
	if _, err := s.queries.GetVideo(ctx, videoID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("load video: %w", err)
	}

	renditions, err := s.queries.ListRenditions(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("list renditions: %w", err)
	}

	rendition, err := SelectQuality(renditions, quality, speedKbps)
	if err != nil {
		return nil, err
	}

	obj, err := s.storage.Stat(ctx, rendition.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: rendition object missing", ErrQualityNotFound)
		}
		return nil, fmt.Errorf("stat rendition: %w", err)
	}

	br, partial, err := ParseRange(rangeHeader, obj.Size)
	if err != nil {
		return nil, err
	}

	info := &StreamInfo{
		TotalSize:   obj.Size,
		Quality:     rendition.Quality,
		ContentType: obj.ContentType,
		Partial:     partial,
	}
	if info.ContentType == "" || info.ContentType == "application/octet-stream" {
		info.ContentType = defaultContentType
	}

	if !partial || obj.Size == 0 {
		body, err := s.storage.Download(ctx, rendition.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("open rendition: %w", err)
		}
		info.Body = body
		info.Start, info.End = 0, obj.Size-1
		info.Partial = false
		return info, nil
	}

	body, err := s.storage.DownloadRange(ctx, rendition.StorageKey, br.Start, br.End)
	if err != nil {
		return nil, fmt.Errorf("open rendition range: %w", err)
	}
	info.Body = body
	info.Start, info.End = br.Start, br.End
	info.ContentRange = br.ContentRange(obj.Size)
	return info, nil
}

type StreamResponse struct {
	Headers    http.Header
	StatusCode int
}

func GetStreamResponse(info *StreamInfo) StreamResponse {
	h := http.Header{}
	contentType := info.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	h.Set("Content-Type", contentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(info.Length(), 10))
	h.Set("X-Video-Quality", info.Quality)

	status := http.StatusOK
	if info.Partial {
		h.Set("Content-Range", info.ContentRange)
		status = http.StatusPartialContent
	}
	return StreamResponse{Headers: h, StatusCode: status}
}

// UnsatisfiableContentRange formats the Content-Range header for a 416 response.
func UnsatisfiableContentRange(err error) (string, bool) {
	var re *RangeError
	if !errors.As(err, &re) {
		return "", false
	}
	return fmt.Sprintf("bytes */%d", re.Total), true
}
