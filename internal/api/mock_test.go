package api

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/google/uuid"
)

type MockQuerier struct {
	mu         sync.Mutex
	videos     map[uuid.UUID]db.Video
	renditions map[uuid.UUID][]db.Rendition

	createErr error
}

func NewMockQuerier() *MockQuerier {
	return &MockQuerier{
		videos:     make(map[uuid.UUID]db.Video),
		renditions: make(map[uuid.UUID][]db.Rendition),
	}
}

func (m *MockQuerier) CreateVideo(_ context.Context, arg db.CreateVideoParams) (db.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return db.Video{}, m.createErr
	}
	v := db.Video{
		ID:          arg.ID,
		OwnerID:     arg.OwnerID,
		MaterialID:  arg.MaterialID,
		Status:      db.VideoStatusPending,
		Filename:    arg.Filename,
		ContentType: arg.ContentType,
		SizeBytes:   arg.SizeBytes,
		StorageKey:  arg.StorageKey,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.videos[v.ID] = v
	return v, nil
}

func (m *MockQuerier) GetVideo(_ context.Context, id uuid.UUID) (db.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return db.Video{}, db.ErrNotFound
	}
	return v, nil
}

func (m *MockQuerier) ListRenditions(_ context.Context, videoID uuid.UUID) ([]db.Rendition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]db.Rendition(nil), m.renditions[videoID]...), nil
}

func (m *MockQuerier) DeleteVideo(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.videos, id)
	delete(m.renditions, id)
	return nil
}

func (m *MockQuerier) AddVideo(v db.Video, rs ...db.Rendition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[v.ID] = v
	m.renditions[v.ID] = append(m.renditions[v.ID], rs...)
}

type enqueued struct {
	Type    string
	Payload any
}

type MockEnqueuer struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (m *MockEnqueuer) Enqueue(_ context.Context, jobType string, payload any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.jobs = append(m.jobs, enqueued{Type: jobType, Payload: payload})
	return "job-" + uuid.NewString(), nil
}

func (m *MockEnqueuer) Jobs() []enqueued {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]enqueued(nil), m.jobs...)
}

const testSecret = "test-jwt-secret"

type testEnv struct {
	queries  *MockQuerier
	storage  *storage.MemoryStorage
	enqueuer *MockEnqueuer
	router   http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		queries:  NewMockQuerier(),
		storage:  storage.NewMemoryStorage(),
		enqueuer: &MockEnqueuer{},
	}
	env.router = NewRouter(&Config{
		Storage:          env.storage,
		Queries:          env.queries,
		Enqueuer:         env.enqueuer,
		ProgressInterval: 10 * time.Millisecond,
		JWTSecret:        testSecret,
		WebhookSecret:    "whsec_test",
		AllowedOrigins:   []string{"https://learn.cheap"},
	})
	return env
}

func token(t testing.TB, userID uuid.UUID, role string) string {
	t.Helper()
	tok, err := IssueToken(testSecret, userID, role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return tok
}
