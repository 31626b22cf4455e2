package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/apperror"
	"github.com/abdul-hamid-achik/learn.cheap/internal/certificate"
	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/health"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/progress"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/abdul-hamid-achik/learn.cheap/internal/streaming"
	"github.com/abdul-hamid-achik/learn.cheap/internal/tracing"
	"github.com/abdul-hamid-achik/learn.cheap/internal/video"
	"github.com/abdul-hamid-achik/learn.cheap/internal/webhook"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Querier interface {
	CreateVideo(ctx context.Context, arg db.CreateVideoParams) (db.Video, error)
	GetVideo(ctx context.Context, id uuid.UUID) (db.Video, error)
	ListRenditions(ctx context.Context, videoID uuid.UUID) ([]db.Rendition, error)
	DeleteVideo(ctx context.Context, id uuid.UUID) error
}

type Config struct {
	Storage  storage.Storage
	Queries  Querier
	Enqueuer queue.Enqueuer
	Health   *health.Checker

	Ladder           video.Ladder
	ProgressInterval time.Duration
	MaxUploadSize    int64

	JWTSecret     string
	WebhookSecret string

	ServiceName    string
	AllowedOrigins []string
	DevMode        bool
}

const defaultMaxUploadSize = 2 << 30

func NewRouter(cfg *Config) http.Handler {
	ladder := cfg.Ladder
	if ladder.Len() == 0 {
		ladder = video.DefaultLadder
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}
	if cfg.Health == nil {
		cfg.Health = health.NewChecker()
	}

	h := &handlers{
		cfg:      cfg,
		stream:   streaming.NewService(cfg.Queries, cfg.Storage),
		progress: progress.NewReporter(cfg.Queries, ladder, cfg.ProgressInterval),
		verifier: webhook.NewVerifier(cfg.WebhookSecret, webhook.DefaultTolerance),
	}

	auth := RequireAuth(cfg.JWTSecret, false)
	mediaAuth := RequireAuth(cfg.JWTSecret, true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.LivenessHandler())
	mux.HandleFunc("GET /health/live", health.LivenessHandler())
	mux.HandleFunc("GET /health/ready", health.ReadinessHandler(cfg.Health))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /v1/videos", Chain(http.HandlerFunc(h.upload), auth))
	mux.Handle("GET /v1/videos/{id}/stream", Chain(http.HandlerFunc(h.streamVideo), mediaAuth))
	mux.Handle("GET /v1/videos/{id}/status", Chain(http.HandlerFunc(h.status), mediaAuth))
	mux.Handle("GET /v1/videos/{id}/events", Chain(http.HandlerFunc(h.events), mediaAuth))
	mux.Handle("GET /v1/videos/{id}/thumbnail", Chain(http.HandlerFunc(h.thumbnail), mediaAuth))
	mux.Handle("DELETE /v1/videos/{id}", Chain(http.HandlerFunc(h.deleteVideo), auth))

	mux.HandleFunc("POST /v1/webhooks/enrollment-completed", h.enrollmentCompleted)

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "learn-cheap-api"
	}

	return Chain(mux,
		Recovery,
		RequestID,
		tracing.HTTPMiddleware(serviceName),
		RequestLogger,
		metrics.HTTPMetricsMiddleware,
		SecurityHeaders,
		CORS(cfg.AllowedOrigins, cfg.DevMode),
	)
}

type handlers struct {
	cfg      *Config
	stream   *streaming.Service
	progress *progress.Reporter
	verifier *webhook.Verifier
}

// toAppError maps domain errors onto the HTTP error taxonomy.
func toAppError(err error) error {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, db.ErrNotFound), errors.Is(err, streaming.ErrVideoNotFound):
		return apperror.Wrap(err, apperror.ErrVideoNotFound)
	case errors.Is(err, streaming.ErrVideoNotReady):
		return apperror.Wrap(err, apperror.ErrVideoNotReady)
	case errors.Is(err, streaming.ErrQualityNotFound):
		return apperror.Wrap(err, apperror.ErrQualityNotFound)
	case errors.Is(err, streaming.ErrRangeNotSatisfiable):
		return apperror.Wrap(err, apperror.ErrRangeNotSatisfiable)
	case errors.Is(err, streaming.ErrInvalidRange):
		return apperror.Wrap(err, apperror.ErrInvalidRange)
	case errors.Is(err, queue.ErrQueueUnavailable):
		return apperror.Wrap(err, apperror.ErrQueueUnavailable)
	case errors.Is(err, video.ErrUnsupportedType):
		return apperror.Wrap(err, apperror.ErrInvalidFileType)
	case errors.Is(err, webhook.ErrMissingSignature),
		errors.Is(err, webhook.ErrBadSignature),
		errors.Is(err, webhook.ErrExpired):
		return apperror.Wrap(err, apperror.ErrInvalidSignature)
	case errors.Is(err, certificate.ErrInvalidRequest):
		return apperror.WrapWithMessage(err, apperror.ErrBadRequest.Code, "enrollmentId, userId and courseId are required", http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound):
		return apperror.Wrap(err, apperror.ErrNotFound)
	default:
		return apperror.Wrap(err, apperror.ErrInternal)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apperror.WriteJSON(w, r, toAppError(err))
}

func parseVideoID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, apperror.WrapWithMessage(err, "invalid_video_id", "Invalid video ID", http.StatusBadRequest)
	}
	return id, nil
}
