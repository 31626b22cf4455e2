// Package reconcile recovers videos left in PROCESSING by a crashed worker.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
	"github.com/abdul-hamid-achik/learn.cheap/internal/worker"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	// DefaultStaleAfter must exceed the video job timeout so a live
	// transcode is never swept.
	DefaultStaleAfter  = 90 * time.Minute
	DefaultMaxAttempts = 3
	batchSize          = 100

	timedOutMessage = "processing timed out"
)

var ErrLocked = errors.New("reconcile: another sweep holds the lock")

type Querier interface {
	ListStaleProcessingVideos(ctx context.Context, before time.Time, limit int32) ([]db.Video, error)
	RequeueVideo(ctx context.Context, id uuid.UUID, before time.Time) (bool, error)
	FinishVideo(ctx context.Context, arg db.FinishVideoParams) (bool, error)
}

type SweepStats struct {
	Requeued int `json:"requeued"`
	Failed   int `json:"failed"`
	Errors   int `json:"errors"`
}

type Sweeper struct {
	queries     Querier
	enqueuer    queue.Enqueuer
	maxAttempts int32
	now         func() time.Time
}

func NewSweeper(q Querier, e queue.Enqueuer, maxAttempts int32) *Sweeper {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Sweeper{queries: q, enqueuer: e, maxAttempts: maxAttempts, now: time.Now}
}

// Sweep handles every video whose processing started more than staleAfter ago.
// Videos that already used maxAttempts are failed, the rest are re-enqueued.
// Rows that finished or were picked up again after listing are left alone.
func (s *Sweeper) Sweep(ctx context.Context, staleAfter time.Duration) (SweepStats, error) {
	log := logger.FromContext(ctx)
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	var stats SweepStats
	cutoff := s.now().Add(-staleAfter)
	seen := make(map[uuid.UUID]bool)

	for {
		videos, err := s.queries.ListStaleProcessingVideos(ctx, cutoff, batchSize)
		if err != nil {
			return stats, fmt.Errorf("list stale videos: %w", err)
		}

		progressed := false
		for _, v := range videos {
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			progressed = true

			vlog := log.With("video_id", v.ID.String(), "attempts", v.ProcessingAttempts)
			if v.ProcessingAttempts >= s.maxAttempts {
				ok, err := s.queries.FinishVideo(ctx, db.FinishVideoParams{
					ID:              v.ID,
					Status:          db.VideoStatusFailed,
					ProcessingError: db.Text(timedOutMessage),
				})
				if err != nil {
					vlog.Error("failed to mark video timed out", "error", err)
					stats.Errors++
					continue
				}
				if !ok {
					vlog.Info("video finished before it could be timed out")
					continue
				}
				vlog.Warn("video processing timed out")
				stats.Failed++
				continue
			}

			if _, err := s.enqueuer.Enqueue(ctx, queue.TypeVideoTranscode, worker.NewVideoTranscodePayload(v.ID)); err != nil {
				vlog.Error("failed to re-enqueue video", "error", err)
				stats.Errors++
				continue
			}
			reset, err := s.queries.RequeueVideo(ctx, v.ID, cutoff)
			if err != nil {
				vlog.Error("failed to reset video to pending", "error", err)
				stats.Errors++
				continue
			}
			if !reset {
				vlog.Info("video re-enqueued, already picked up again")
				stats.Requeued++
				continue
			}
			vlog.Info("video re-enqueued")
			stats.Requeued++
		}

		if len(videos) < batchSize || !progressed {
			break
		}
	}

	metrics.RecordReconcile("requeued", stats.Requeued)
	metrics.RecordReconcile("failed", stats.Failed)
	metrics.RecordReconcile("error", stats.Errors)
	return stats, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval, staleAfter time.Duration) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.Sweep(ctx, staleAfter)
			if err != nil {
				log.Error("reconcile sweep failed", "error", err)
				continue
			}
			if stats != (SweepStats{}) {
				log.Info("reconcile sweep finished", "requeued", stats.Requeued, "failed", stats.Failed, "errors", stats.Errors)
			}
		}
	}
}

// WithLock runs fn while holding an exclusive file lock at path.
// It returns ErrLocked without running fn when the lock is held elsewhere.
func WithLock(path string, fn func() error) error {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
