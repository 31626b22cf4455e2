package worker

import (
	"context"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
)

type Handlers struct {
	Video        *VideoDependencies
	Certificates CertificateProcessor

	// Zero disables the per-type deadline.
	VideoTimeout       time.Duration
	CertificateTimeout time.Duration
}

// Build returns the handler for each job type, wrapped with hooks when set.
// Transcode concurrency is bounded by the pool consuming queue.VideoQueue.
func (h Handlers) Build(hooks *queue.Hooks) map[string]queue.Handler {
	handlers := map[string]queue.Handler{
		queue.TypeVideoTranscode:      withTimeout(h.VideoTimeout, VideoTranscodeHandler(h.Video)),
		queue.TypeCertificateGenerate: withTimeout(h.CertificateTimeout, CertificateHandler(h.Certificates)),
	}
	if hooks != nil {
		for jobType, handler := range handlers {
			handlers[jobType] = hooks.Wrap(jobType, handler)
		}
	}
	return handlers
}

func withTimeout(d time.Duration, next queue.Handler) queue.Handler {
	if d <= 0 {
		return next
	}
	return func(ctx context.Context, j *job.Job) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx, j)
	}
}
