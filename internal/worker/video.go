package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/abdul-hamid-achik/learn.cheap/internal/video"
	"github.com/google/uuid"
)

var (
	ErrVideoNotFound  = errors.New("worker: video not found")
	ErrSourceNotFound = errors.New("source file not found")
)

const finishTimeout = 10 * time.Second

type VideoQuerier interface {
	GetVideo(ctx context.Context, id uuid.UUID) (db.Video, error)
	MarkVideoProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	FinishVideo(ctx context.Context, arg db.FinishVideoParams) (bool, error)
	ListRenditions(ctx context.Context, videoID uuid.UUID) ([]db.Rendition, error)
	CreateRendition(ctx context.Context, arg db.CreateRenditionParams) (db.Rendition, error)
}

type VideoNotifier interface {
	VideoFinished(ctx context.Context, v db.Video, qualities []string) error
}

type VideoDependencies struct {
	Queries    VideoQuerier
	Storage    storage.Storage
	Transcoder video.Transcoder
	Ladder     video.Ladder
	Notifier   VideoNotifier
	// TempDir is the parent for per-job work directories. Empty uses os.TempDir.
	TempDir string
}

func RenditionKey(videoID uuid.UUID, quality string) string {
	return fmt.Sprintf("videos/%s/%s.mp4", videoID, quality)
}

func ThumbnailKey(videoID uuid.UUID) string {
	return fmt.Sprintf("videos/%s/thumbnail.jpg", videoID)
}

// VideoTranscodeHandler drives a video from PENDING to a terminal status.
// Once the video is marked PROCESSING the handler always writes COMPLETED or
// FAILED before returning.
func VideoTranscodeHandler(deps *VideoDependencies) queue.Handler {
	return func(ctx context.Context, j *job.Job) error {
		log := logger.FromContext(ctx).With("job_id", j.ID, "job_type", queue.TypeVideoTranscode)
		log.Info("job started")
		start := time.Now()

		var payload VideoTranscodePayload
		if err := j.UnmarshalPayload(&payload); err != nil {
			log.Error("invalid payload", "error", err)
			return middleware.Permanent(fmt.Errorf("invalid payload: %w", err))
		}

		log = log.With("video_id", payload.VideoID.String())
		ctx = logger.WithLogger(ctx, log)

		v, err := deps.Queries.GetVideo(ctx, payload.VideoID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				log.Error("video not found")
				return middleware.Permanent(ErrVideoNotFound)
			}
			log.Error("failed to retrieve video", "error", err)
			return fmt.Errorf("failed to retrieve video: %w", err)
		}

		if v.Status.Terminal() {
			log.Info("video already finished, skipping", "status", v.Status)
			return nil
		}

		marked, err := deps.Queries.MarkVideoProcessing(ctx, v.ID)
		if err != nil {
			log.Error("failed to mark video processing", "error", err)
			return fmt.Errorf("failed to mark video processing: %w", err)
		}
		if !marked {
			log.Info("video finished concurrently, skipping")
			return nil
		}
		v.Status = db.VideoStatusProcessing

		run := &transcodeRun{deps: deps, video: v, log: log}
		err = run.execute(ctx)

		log.Info("job completed",
			"duration_ms", time.Since(start).Milliseconds(),
			"status", run.video.Status,
			"qualities", strings.Join(run.completed, ","),
		)
		return err
	}
}

type qualityFailure struct {
	quality string
	err     error
}

type transcodeRun struct {
	deps      *VideoDependencies
	video     db.Video
	log       *slog.Logger
	completed []string
	failures  []qualityFailure
	thumbnail string
}

func (r *transcodeRun) execute(ctx context.Context) error {
	workDir, err := os.MkdirTemp(r.deps.TempDir, fmt.Sprintf("video-%s-*", r.video.ID))
	if err != nil {
		return r.fail(ctx, fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			r.log.Warn("failed to remove work dir", "dir", workDir, "error", err)
		}
	}()

	sourcePath := filepath.Join(workDir, "source"+filepath.Ext(r.video.StorageKey))
	stageStart := time.Now()
	if err := r.download(ctx, sourcePath); err != nil {
		return r.fail(ctx, err)
	}
	metrics.RecordJobStage(queue.TypeVideoTranscode, "download", time.Since(stageStart).Seconds())

	meta, err := r.deps.Transcoder.Probe(ctx, sourcePath)
	if err != nil {
		return r.fail(ctx, fmt.Errorf("probe failed: %w", err))
	}
	r.log.Debug("source probed", "width", meta.Width, "height", meta.Height, "duration", meta.Duration)

	existing, err := r.deps.Queries.ListRenditions(ctx, r.video.ID)
	if err != nil {
		return r.fail(ctx, fmt.Errorf("list renditions: %w", err))
	}
	done := make(map[string]bool, len(existing))
	for _, rd := range existing {
		done[rd.Quality] = true
	}

	for _, q := range r.deps.Ladder {
		if done[q.Label] {
			r.log.Debug("rendition exists, skipping", "quality", q.Label)
			r.completed = append(r.completed, q.Label)
			continue
		}

		qStart := time.Now()
		err := r.renderQuality(ctx, sourcePath, workDir, meta, q)
		metrics.RecordRendition(q.Label, err == nil, time.Since(qStart).Seconds())
		if err != nil {
			r.log.Warn("quality failed", "quality", q.Label, "error", err)
			r.failures = append(r.failures, qualityFailure{quality: q.Label, err: err})
			continue
		}
		r.log.Info("quality completed", "quality", q.Label, "duration_ms", time.Since(qStart).Milliseconds())
		r.completed = append(r.completed, q.Label)
	}

	if len(r.completed) > 0 {
		stageStart = time.Now()
		if err := r.renderThumbnail(ctx, sourcePath, workDir, meta); err != nil {
			r.log.Warn("thumbnail failed", "error", err)
		}
		metrics.RecordJobStage(queue.TypeVideoTranscode, "thumbnail", time.Since(stageStart).Seconds())
	}

	return r.finish(ctx)
}

func (r *transcodeRun) download(ctx context.Context, dst string) error {
	reader, err := r.deps.Storage.Download(ctx, r.video.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSourceNotFound
		}
		return fmt.Errorf("download source: %w", err)
	}
	defer closeSafely(r.log, reader, "source reader")

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create source file: %w", err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		_ = f.Close()
		return fmt.Errorf("write source file: %w", err)
	}
	return f.Close()
}

func (r *transcodeRun) renderQuality(ctx context.Context, src, workDir string, meta *video.Metadata, q video.Quality) error {
	out := filepath.Join(workDir, q.Label+".mp4")
	defer os.Remove(out)

	if err := r.deps.Transcoder.Transcode(ctx, src, meta, q, out); err != nil {
		return err
	}

	f, err := os.Open(out)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer closeSafely(r.log, f, "rendition file")

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}

	key := RenditionKey(r.video.ID, q.Label)
	if err := r.deps.Storage.Upload(ctx, key, f, "video/mp4", info.Size()); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	_, err = r.deps.Queries.CreateRendition(ctx, db.CreateRenditionParams{
		VideoID:    r.video.ID,
		Quality:    q.Label,
		StorageKey: key,
		SizeBytes:  info.Size(),
		Bitrate:    int32(q.Bitrate()),
		Width:      int32(q.Width),
		Height:     int32(q.Height),
	})
	if err != nil {
		if derr := r.deps.Storage.Delete(context.WithoutCancel(ctx), key); derr != nil {
			r.log.Warn("failed to remove orphaned rendition", "storage_key", key, "error", derr)
		}
		return fmt.Errorf("save rendition: %w", err)
	}
	return nil
}

func (r *transcodeRun) renderThumbnail(ctx context.Context, src, workDir string, meta *video.Metadata) error {
	frame := filepath.Join(workDir, "frame.jpg")
	if err := r.deps.Transcoder.ExtractFrame(ctx, src, video.ThumbnailOffset(meta.Duration), frame); err != nil {
		return err
	}

	f, err := os.Open(frame)
	if err != nil {
		return fmt.Errorf("open frame: %w", err)
	}
	defer closeSafely(r.log, f, "frame file")

	data, err := video.NormalizeThumbnail(f)
	if err != nil {
		return err
	}

	key := ThumbnailKey(r.video.ID)
	if err := r.deps.Storage.Upload(ctx, key, bytes.NewReader(data), "image/jpeg", int64(len(data))); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}
	r.thumbnail = key
	return nil
}

func (r *transcodeRun) fail(ctx context.Context, cause error) error {
	r.failures = nil
	r.completed = nil
	return r.write(ctx, db.VideoStatusFailed, cause.Error(), middleware.Permanent(cause))
}

func (r *transcodeRun) finish(ctx context.Context) error {
	if len(r.completed) == 0 {
		msg := "all conversions failed: " + r.failureDetails()
		return r.write(ctx, db.VideoStatusFailed, msg, middleware.Permanent(errors.New(msg)))
	}

	msg := ""
	if len(r.failures) > 0 {
		msg = "partial: " + r.failureDetails()
	}
	return r.write(ctx, db.VideoStatusCompleted, msg, nil)
}

func (r *transcodeRun) failureDetails() string {
	parts := make([]string, len(r.failures))
	for i, f := range r.failures {
		parts[i] = fmt.Sprintf("%s: %v", f.quality, f.err)
	}
	return strings.Join(parts, "; ")
}

// write persists the terminal status even when the job context is already done.
func (r *transcodeRun) write(ctx context.Context, status db.VideoStatus, msg string, result error) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	ok, err := r.deps.Queries.FinishVideo(wctx, db.FinishVideoParams{
		ID:              r.video.ID,
		Status:          status,
		ProcessingError: db.Text(msg),
		ThumbnailKey:    db.Text(r.thumbnail),
	})
	if err != nil {
		r.log.Error("failed to write final status", "status", status, "error", err)
		return fmt.Errorf("failed to write final status: %w", err)
	}
	if !ok {
		r.log.Warn("video no longer processing, final status dropped", "status", status)
		return result
	}

	r.video.Status = status
	r.video.ProcessingError = db.Text(msg)
	metrics.RecordVideoFinished(string(status), status == db.VideoStatusCompleted && msg != "")

	if r.deps.Notifier != nil {
		if err := r.deps.Notifier.VideoFinished(wctx, r.video, r.completed); err != nil {
			r.log.Warn("video notification incomplete", "error", err)
		}
	}
	return result
}

func closeSafely(log *slog.Logger, c io.Closer, name string) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close resource", "resource", name, "error", err)
	}
}
