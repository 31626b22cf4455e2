package worker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/certificate"
	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/video"
	"github.com/google/uuid"
)

type MockQueries struct {
	mu sync.RWMutex

	videos     map[uuid.UUID]db.Video
	renditions map[uuid.UUID][]db.Rendition

	GetVideoErr        error
	CreateRenditionErr map[string]error
	FinishVideoErr     error

	FinishCalls []db.FinishVideoParams
}

func NewMockQueries() *MockQueries {
	return &MockQueries{
		videos:             make(map[uuid.UUID]db.Video),
		renditions:         make(map[uuid.UUID][]db.Rendition),
		CreateRenditionErr: make(map[string]error),
	}
}

func (m *MockQueries) AddVideo(v db.Video) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[v.ID] = v
}

func (m *MockQueries) Video(id uuid.UUID) db.Video {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.videos[id]
}

func (m *MockQueries) Qualities(id uuid.UUID) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, r := range m.renditions[id] {
		out = append(out, r.Quality)
	}
	sort.Strings(out)
	return out
}

func (m *MockQueries) GetVideo(_ context.Context, id uuid.UUID) (db.Video, error) {
	if m.GetVideoErr != nil {
		return db.Video{}, m.GetVideoErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.videos[id]
	if !ok {
		return db.Video{}, db.ErrNotFound
	}
	return v, nil
}

func (m *MockQueries) MarkVideoProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok || v.Status.Terminal() {
		return false, nil
	}
	v.Status = db.VideoStatusProcessing
	v.ProcessingAttempts++
	m.videos[id] = v
	return true, nil
}

func (m *MockQueries) SetStatus(id uuid.UUID, status db.VideoStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.videos[id]
	v.Status = status
	m.videos[id] = v
}

func (m *MockQueries) FinishVideo(_ context.Context, arg db.FinishVideoParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinishCalls = append(m.FinishCalls, arg)
	if m.FinishVideoErr != nil {
		return false, m.FinishVideoErr
	}
	v, ok := m.videos[arg.ID]
	if !ok || v.Status != db.VideoStatusProcessing {
		return false, nil
	}
	v.Status = arg.Status
	v.ProcessingError = arg.ProcessingError
	if arg.ThumbnailKey.Valid {
		v.ThumbnailKey = arg.ThumbnailKey
	}
	m.videos[arg.ID] = v
	return true, nil
}

func (m *MockQueries) ListRenditions(_ context.Context, videoID uuid.UUID) ([]db.Rendition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]db.Rendition(nil), m.renditions[videoID]...), nil
}

func (m *MockQueries) CreateRendition(_ context.Context, arg db.CreateRenditionParams) (db.Rendition, error) {
	if err := m.CreateRenditionErr[arg.Quality]; err != nil {
		return db.Rendition{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := db.Rendition{
		ID:         uuid.New(),
		VideoID:    arg.VideoID,
		Quality:    arg.Quality,
		StorageKey: arg.StorageKey,
		SizeBytes:  arg.SizeBytes,
		Bitrate:    arg.Bitrate,
		Width:      arg.Width,
		Height:     arg.Height,
		CreatedAt:  time.Now(),
	}
	m.renditions[arg.VideoID] = append(m.renditions[arg.VideoID], r)
	return r, nil
}

// FakeTranscoder writes a small file per quality and a real JPEG frame.
type FakeTranscoder struct {
	mu sync.Mutex

	ProbeErr     error
	FrameErr     error
	Fail         map[string]error
	Transcoded   []string
	Duration     float64
	FrameOffsets []float64
}

func NewFakeTranscoder() *FakeTranscoder {
	return &FakeTranscoder{Fail: make(map[string]error), Duration: 30}
}

func (f *FakeTranscoder) Probe(_ context.Context, _ string) (*video.Metadata, error) {
	if f.ProbeErr != nil {
		return nil, f.ProbeErr
	}
	return &video.Metadata{Duration: f.Duration, Width: 1920, Height: 1080, VideoCodec: "h264", HasAudio: true}, nil
}

func (f *FakeTranscoder) Transcode(ctx context.Context, _ string, _ *video.Metadata, q video.Quality, out string) error {
	f.mu.Lock()
	f.Transcoded = append(f.Transcoded, q.Label)
	err := f.Fail[q.Label]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(out, []byte(fmt.Sprintf("mp4:%s", q.Label)), 0o600)
}

func (f *FakeTranscoder) ExtractFrame(_ context.Context, _ string, at float64, out string) error {
	f.mu.Lock()
	f.FrameOffsets = append(f.FrameOffsets, at)
	f.mu.Unlock()
	if f.FrameErr != nil {
		return f.FrameErr
	}
	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for x := 0; x < 1280; x++ {
		img.Set(x, 360, color.White)
	}
	file, err := os.Create(out)
	if err != nil {
		return err
	}
	defer file.Close()
	return jpeg.Encode(file, img, nil)
}

type fakeNotifier struct {
	mu       sync.Mutex
	finished []db.Video
	err      error
}

func (n *fakeNotifier) VideoFinished(_ context.Context, v db.Video, _ []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, v)
	return n.err
}

type fakeCertificates struct {
	req certificate.Request
	res certificate.Result
	err error
}

func (f *fakeCertificates) ProcessJob(_ context.Context, req certificate.Request) (certificate.Result, error) {
	f.req = req
	return f.res, f.err
}

var errBoom = errors.New("boom")
