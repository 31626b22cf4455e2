package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const videoColumns = `id, owner_id, material_id, status, processing_error, filename, content_type,
	size_bytes, storage_key, thumbnail_key, processing_attempts, processing_started_at, created_at, updated_at`

func scanVideo(row pgx.Row) (Video, error) {
	var v Video
	err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.MaterialID,
		&v.Status,
		&v.ProcessingError,
		&v.Filename,
		&v.ContentType,
		&v.SizeBytes,
		&v.StorageKey,
		&v.ThumbnailKey,
		&v.ProcessingAttempts,
		&v.ProcessingStartedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	return v, err
}

type CreateVideoParams struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	MaterialID  pgtype.UUID
	Filename    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
}

const createVideo = `INSERT INTO videos (id, owner_id, material_id, status, filename, content_type, size_bytes, storage_key)
VALUES ($1, $2, $3, 'PENDING', $4, $5, $6, $7)
RETURNING ` + videoColumns

func (q *Queries) CreateVideo(ctx context.Context, arg CreateVideoParams) (Video, error) {
	row := q.db.QueryRow(ctx, createVideo,
		arg.ID,
		arg.OwnerID,
		arg.MaterialID,
		arg.Filename,
		arg.ContentType,
		arg.SizeBytes,
		arg.StorageKey,
	)
	return scanVideo(row)
}

const getVideo = `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

func (q *Queries) GetVideo(ctx context.Context, id uuid.UUID) (Video, error) {
	v, err := scanVideo(q.db.QueryRow(ctx, getVideo, id))
	return v, notFound(err)
}

const markVideoProcessing = `UPDATE videos
SET status = 'PROCESSING', processing_started_at = now(), processing_attempts = processing_attempts + 1, updated_at = now()
WHERE id = $1 AND status IN ('PENDING', 'PROCESSING')`

// MarkVideoProcessing moves a non-terminal video into PROCESSING.
// It reports false when the video is already terminal.
func (q *Queries) MarkVideoProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, markVideoProcessing, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

type FinishVideoParams struct {
	ID              uuid.UUID
	Status          VideoStatus
	ProcessingError pgtype.Text
	ThumbnailKey    pgtype.Text
}

const finishVideo = `UPDATE videos
SET status = $2, processing_error = $3, thumbnail_key = COALESCE($4, thumbnail_key), updated_at = now()
WHERE id = $1 AND status = 'PROCESSING'`

// FinishVideo writes a terminal status. It reports false when the video is
// no longer PROCESSING, so a terminal status is never overwritten.
func (q *Queries) FinishVideo(ctx context.Context, arg FinishVideoParams) (bool, error) {
	tag, err := q.db.Exec(ctx, finishVideo, arg.ID, arg.Status, arg.ProcessingError, arg.ThumbnailKey)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const requeueVideo = `UPDATE videos
SET status = 'PENDING', processing_started_at = NULL, updated_at = now()
WHERE id = $1 AND status = 'PROCESSING' AND processing_started_at < $2`

// RequeueVideo resets a video that started processing before the cutoff.
// A delivery that marked it PROCESSING after the cutoff is left alone.
func (q *Queries) RequeueVideo(ctx context.Context, id uuid.UUID, before time.Time) (bool, error) {
	tag, err := q.db.Exec(ctx, requeueVideo, id, before)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const listStaleProcessingVideos = `SELECT ` + videoColumns + ` FROM videos
WHERE status = 'PROCESSING' AND processing_started_at < $1
ORDER BY processing_started_at
LIMIT $2`

func (q *Queries) ListStaleProcessingVideos(ctx context.Context, before time.Time, limit int32) ([]Video, error) {
	rows, err := q.db.Query(ctx, listStaleProcessingVideos, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const deleteVideo = `DELETE FROM videos WHERE id = $1`

func (q *Queries) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteVideo, id)
	return err
}

const renditionColumns = `id, video_id, quality, storage_key, size_bytes, bitrate, width, height, created_at`

func scanRendition(row pgx.Row) (Rendition, error) {
	var r Rendition
	err := row.Scan(
		&r.ID,
		&r.VideoID,
		&r.Quality,
		&r.StorageKey,
		&r.SizeBytes,
		&r.Bitrate,
		&r.Width,
		&r.Height,
		&r.CreatedAt,
	)
	return r, err
}

type CreateRenditionParams struct {
	VideoID    uuid.UUID
	Quality    string
	StorageKey string
	SizeBytes  int64
	Bitrate    int32
	Width      int32
	Height     int32
}

// One row per (video_id, quality): a redelivered job overwrites its own row.
const createRendition = `INSERT INTO video_renditions (id, video_id, quality, storage_key, size_bytes, bitrate, width, height)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT ON CONSTRAINT video_renditions_video_quality_key DO UPDATE
SET storage_key = EXCLUDED.storage_key, size_bytes = EXCLUDED.size_bytes, bitrate = EXCLUDED.bitrate,
	width = EXCLUDED.width, height = EXCLUDED.height
RETURNING ` + renditionColumns

func (q *Queries) CreateRendition(ctx context.Context, arg CreateRenditionParams) (Rendition, error) {
	row := q.db.QueryRow(ctx, createRendition,
		uuid.New(),
		arg.VideoID,
		arg.Quality,
		arg.StorageKey,
		arg.SizeBytes,
		arg.Bitrate,
		arg.Width,
		arg.Height,
	)
	return scanRendition(row)
}

const listRenditions = `SELECT ` + renditionColumns + ` FROM video_renditions
WHERE video_id = $1
ORDER BY height, bitrate`

func (q *Queries) ListRenditions(ctx context.Context, videoID uuid.UUID) ([]Rendition, error) {
	rows, err := q.db.Query(ctx, listRenditions, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Rendition
	for rows.Next() {
		r, err := scanRendition(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
