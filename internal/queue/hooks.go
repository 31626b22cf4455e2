package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/tracing"
)

// Result is the outcome of one handler invocation.
type Result struct {
	JobID    string
	JobType  string
	Err      error
	Duration time.Duration
}

// Hooks wraps handlers so each outcome is published on a bounded channel and
// dispatched to the registered OnCompleted/OnFailed callbacks by Run.
// Callbacks are for logging and metrics only.
type Hooks struct {
	results chan Result

	mu          sync.RWMutex
	onCompleted []func(jobID string)
	onFailed    []func(jobID string, err error)
}

func NewHooks(buffer int) *Hooks {
	if buffer < 1 {
		buffer = 1
	}
	return &Hooks{results: make(chan Result, buffer)}
}

func (h *Hooks) OnCompleted(fn func(jobID string)) {
	h.mu.Lock()
	h.onCompleted = append(h.onCompleted, fn)
	h.mu.Unlock()
}

func (h *Hooks) OnFailed(fn func(jobID string, err error)) {
	h.mu.Lock()
	h.onFailed = append(h.onFailed, fn)
	h.mu.Unlock()
}

func (h *Hooks) Results() <-chan Result {
	return h.results
}

// Wrap runs next inside a job span and publishes its Result without blocking.
// A permanent error exhausts the job's retry budget so the broker drops it.
func (h *Hooks) Wrap(jobType string, next Handler) Handler {
	return func(ctx context.Context, j *job.Job) error {
		ctx, span := tracing.StartJobSpan(ctx, jobType, j.ID)
		defer span.End()

		start := time.Now()
		err := next(ctx, j)
		if err != nil {
			span.RecordError(err)
		}

		select {
		case h.results <- Result{JobID: j.ID, JobType: jobType, Err: err, Duration: time.Since(start)}:
		default:
			metrics.JobResultsDropped.Inc()
		}

		var perm *middleware.PermanentError
		if errors.As(err, &perm) {
			j.MaxRetries = j.RetryCount
		}
		return err
	}
}

// Run drains results until ctx is done, logging each one and invoking callbacks.
func (h *Hooks) Run(ctx context.Context, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-h.results:
			h.dispatch(log, r)
		}
	}
}

func (h *Hooks) dispatch(log *slog.Logger, r Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if r.Err != nil {
		log.Error("job failed", "job_id", r.JobID, "job_type", r.JobType, "duration_ms", r.Duration.Milliseconds(), "error", r.Err)
		for _, fn := range h.onFailed {
			fn(r.JobID, r.Err)
		}
		return
	}

	log.Info("job completed", "job_id", r.JobID, "job_type", r.JobType, "duration_ms", r.Duration.Milliseconds())
	for _, fn := range h.onCompleted {
		fn(r.JobID)
	}
}
