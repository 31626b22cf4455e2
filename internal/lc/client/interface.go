package client

import (
	"context"
	"io"
)

// ClientInterface is the API surface the CLI commands use.
type ClientInterface interface {
	SetToken(token string)

	Upload(ctx context.Context, filePath, materialID string, progress io.Writer) (*UploadResponse, error)
	Status(ctx context.Context, videoID string) (*Progress, error)
	Watch(ctx context.Context, videoID string, fn func(Progress)) (*Progress, error)
	StreamURL(videoID, quality string) string
	DeleteVideo(ctx context.Context, videoID string) error

	EnrollmentCompleted(ctx context.Context, secret string, body EnrollmentCompleted) (*WebhookResponse, error)
}

var _ ClientInterface = (*Client)(nil)
