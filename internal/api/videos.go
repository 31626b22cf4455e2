package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/apperror"
	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/abdul-hamid-achik/learn.cheap/internal/streaming"
	"github.com/abdul-hamid-achik/learn.cheap/internal/video"
	"github.com/abdul-hamid-achik/learn.cheap/internal/worker"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const cleanupTimeout = 10 * time.Second

type uploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Status   string `json:"status"`
	JobID    string `json:"jobId"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	userID, ok := GetUserID(ctx)
	if !ok {
		apperror.WriteJSON(w, r, apperror.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrFileTooLarge))
			return
		}
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrMissingFile))
		return
	}
	defer func() { _ = file.Close() }()

	var materialID pgtype.UUID
	if raw := r.FormValue("materialId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperror.WriteJSON(w, r, apperror.WrapWithMessage(err, "invalid_material_id", "Invalid materialId", http.StatusBadRequest))
			return
		}
		materialID = db.ToPgUUID(&id)
	}

	filename := SanitizeFilename(header.Filename)
	if IsBlockedExtension(filename) {
		apperror.WriteJSON(w, r, apperror.ErrInvalidFileType)
		return
	}

	contentType, allowed, err := video.DetectContentType(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("sniff upload: %w", err))
		return
	}
	if !allowed {
		log.Info("rejected upload", "filename", filename, "content_type", contentType)
		writeError(w, r, video.ErrUnsupportedType)
		return
	}

	videoID := uuid.New()
	key := fmt.Sprintf("videos/%s/source%s", videoID, SourceExtension(contentType, filename))
	log = log.With("video_id", videoID.String())

	if err := h.cfg.Storage.Upload(ctx, key, file, contentType, header.Size); err != nil {
		metrics.RecordVideoUpload("error", 0)
		writeError(w, r, fmt.Errorf("store source: %w", err))
		return
	}

	v, err := h.cfg.Queries.CreateVideo(ctx, db.CreateVideoParams{
		ID:          videoID,
		OwnerID:     userID,
		MaterialID:  materialID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   header.Size,
		StorageKey:  key,
	})
	if err != nil {
		metrics.RecordVideoUpload("error", 0)
		h.removeObjects(ctx, key)
		writeError(w, r, fmt.Errorf("create video: %w", err))
		return
	}

	jobID, err := h.cfg.Enqueuer.Enqueue(ctx, queue.TypeVideoTranscode, worker.NewVideoTranscodePayload(v.ID))
	if err != nil {
		metrics.RecordVideoUpload("error", 0)
		log.Error("failed to enqueue transcode", "error", err)
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		if derr := h.cfg.Queries.DeleteVideo(cleanupCtx, v.ID); derr != nil {
			log.Warn("failed to remove unqueued video", "error", derr)
		}
		cancel()
		h.removeObjects(ctx, key)
		writeError(w, r, err)
		return
	}

	metrics.RecordVideoUpload("success", header.Size)
	log.Info("video uploaded", "job_id", jobID, "size", header.Size, "content_type", contentType)

	writeJSON(w, http.StatusAccepted, uploadResponse{
		ID:       v.ID.String(),
		Filename: v.Filename,
		Size:     v.SizeBytes,
		Status:   string(v.Status),
		JobID:    jobID,
	})
}

func (h *handlers) streamVideo(w http.ResponseWriter, r *http.Request) {
	id, err := parseVideoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	speed := 0
	if raw := q.Get("speed"); raw != "" {
		speed, err = strconv.Atoi(raw)
		if err != nil || speed < 0 {
			apperror.WriteJSON(w, r, apperror.WrapWithMessage(err, "invalid_speed", "speed must be a non-negative number of kbps", http.StatusBadRequest))
			return
		}
	}

	info, err := h.stream.StreamVideo(r.Context(), id, q.Get("quality"), speed, r.Header.Get("Range"))
	if err != nil {
		if cr, ok := streaming.UnsatisfiableContentRange(err); ok {
			w.Header().Set("Content-Range", cr)
		}
		writeError(w, r, err)
		return
	}
	defer func() { _ = info.Body.Close() }()

	resp := streaming.GetStreamResponse(info)
	for k, vals := range resp.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	n, err := io.Copy(w, info.Body)
	metrics.RecordStream(info.Quality, info.Partial, n)
	if err != nil {
		logger.FromContext(r.Context()).Debug("stream interrupted", "video_id", id.String(), "bytes", n, "error", err)
	}
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	id, err := parseVideoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := h.progress.Snapshot(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id, err := parseVideoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.cfg.Queries.GetVideo(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.progress.ServeSSE(w, r, id)
}

func (h *handlers) thumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := parseVideoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.cfg.Queries.GetVideo(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !v.ThumbnailKey.Valid {
		apperror.WriteJSON(w, r, apperror.New("thumbnail_not_found", "Thumbnail not available yet", http.StatusNotFound))
		return
	}

	body, err := h.cfg.Storage.Download(r.Context(), v.ThumbnailKey.String)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", ImageContentType(v.ThumbnailKey.String))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

func (h *handlers) deleteVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseVideoID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.cfg.Queries.GetVideo(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID, _ := GetUserID(ctx)
	if v.OwnerID != userID && GetRole(ctx) != RoleAdmin {
		apperror.WriteJSON(w, r, apperror.ErrForbidden)
		return
	}

	renditions, err := h.cfg.Queries.ListRenditions(ctx, id)
	if err != nil {
		writeError(w, r, fmt.Errorf("list renditions: %w", err))
		return
	}

	keys := []string{v.StorageKey}
	for _, rd := range renditions {
		keys = append(keys, rd.StorageKey)
	}
	if v.ThumbnailKey.Valid {
		keys = append(keys, v.ThumbnailKey.String)
	}

	for _, key := range keys {
		if err := h.cfg.Storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, fmt.Errorf("delete object %s: %w", key, err))
			return
		}
	}

	if err := h.cfg.Queries.DeleteVideo(ctx, id); err != nil {
		writeError(w, r, fmt.Errorf("delete video: %w", err))
		return
	}

	logger.FromContext(ctx).Info("video deleted", "video_id", id.String(), "objects", len(keys))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) removeObjects(ctx context.Context, keys ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if err := h.cfg.Storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.FromContext(ctx).Warn("failed to remove object", "key", key, "error", err)
		}
	}
}
