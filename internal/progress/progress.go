// Package progress reports video processing state as JSON snapshots and as a
// Server-Sent Events stream.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/video"
	"github.com/google/uuid"
)

const (
	EventProgress = "progress"
	EventError    = "error"

	DefaultInterval = 2 * time.Second
)

type Querier interface {
	GetVideo(ctx context.Context, id uuid.UUID) (db.Video, error)
	ListRenditions(ctx context.Context, videoID uuid.UUID) ([]db.Rendition, error)
}

type Snapshot struct {
	VideoID            string   `json:"videoId"`
	Status             string   `json:"status"`
	Progress           int      `json:"progress"`
	CompletedQualities []string `json:"completedQualities"`
	TargetQualities    []string `json:"targetQualities"`
	Error              string   `json:"error,omitempty"`
}

func (s Snapshot) Terminal() bool {
	return db.VideoStatus(s.Status).Terminal()
}

type Reporter struct {
	queries  Querier
	ladder   video.Ladder
	interval time.Duration
}

func NewReporter(q Querier, ladder video.Ladder, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{queries: q, ladder: ladder, interval: interval}
}

// Snapshot reads the current state of a video. Progress is the share of
// ladder qualities that have a rendition, rounded to a whole percent.
func (r *Reporter) Snapshot(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	v, err := r.queries.GetVideo(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	renditions, err := r.queries.ListRenditions(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list renditions: %w", err)
	}

	have := make(map[string]bool, len(renditions))
	for _, rd := range renditions {
		have[rd.Quality] = true
	}

	snap := Snapshot{
		VideoID:            v.ID.String(),
		Status:             string(v.Status),
		CompletedQualities: []string{},
		TargetQualities:    r.ladder.Labels(),
		Error:              v.ProcessingError.String,
	}
	for _, q := range r.ladder {
		if have[q.Label] {
			snap.CompletedQualities = append(snap.CompletedQualities, q.Label)
		}
	}
	if n := len(snap.TargetQualities); n > 0 {
		snap.Progress = int(math.Round(float64(len(snap.CompletedQualities)) / float64(n) * 100))
	}
	return snap, nil
}

// ServeSSE emits a progress event immediately and then once per interval until
// the video reaches a terminal status, the client goes away, or a read fails.
func (r *Reporter) ServeSSE(w http.ResponseWriter, req *http.Request, id uuid.UUID) {
	ctx := req.Context()
	log := logger.FromContext(ctx).With("video_id", id.String())

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.ProgressConnections.Inc()
	defer metrics.ProgressConnections.Dec()
	log.Debug("progress stream opened")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		snap, err := r.Snapshot(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			msg := "failed to read video status"
			if errors.Is(err, db.ErrNotFound) {
				msg = "video not found"
			}
			log.Warn("progress read failed", "error", err)
			writeEvent(w, flusher, EventError, map[string]string{"error": msg})
			return
		}

		if err := writeEvent(w, flusher, EventProgress, snap); err != nil {
			log.Debug("progress stream write failed", "error", err)
			return
		}
		if snap.Terminal() {
			log.Debug("progress stream finished", "status", snap.Status)
			return
		}

		select {
		case <-ctx.Done():
			log.Debug("progress client disconnected")
			return
		case <-ticker.C:
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
