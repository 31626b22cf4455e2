// Package queue adapts the job-queue library to the application's enqueue and
// handler contracts: typed unavailability errors, per-type routing and
// deadlines, and completion hooks delivered over a bounded channel.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/tracing"
	"go.opentelemetry.io/otel/codes"
)

const (
	TypeVideoTranscode      = "video_transcode"
	TypeCertificateGenerate = "certificate_generate"

	DefaultQueue = "default"
	// VideoQueue is consumed by its own pool so transcodes never hold
	// certificate slots.
	VideoQueue = "video"

	DefaultMaxRetries   = 3
	DefaultJobTimeout   = 5 * time.Minute
	DefaultVideoTimeout = 60 * time.Minute
)

// ErrQueueUnavailable wraps broker connectivity and backpressure failures.
var ErrQueueUnavailable = errors.New("queue: unavailable")

// Handler matches the job-queue registry's handler signature.
type Handler = func(ctx context.Context, j *job.Job) error

// JobBroker is the subset of the job-queue broker used for producing jobs.
type JobBroker interface {
	Enqueue(ctx context.Context, j *job.Job) error
}

type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any) (string, error)
}

// QueueFor returns the broker queue that carries jobType.
func QueueFor(jobType string) string {
	if jobType == TypeVideoTranscode {
		return VideoQueue
	}
	return DefaultQueue
}

type Client struct {
	broker     JobBroker
	maxRetries int
	timeouts   map[string]time.Duration
}

type ClientOption func(*Client)

// WithRetries lets the broker redeliver a failed job up to DefaultMaxRetries
// times. Jobs are delivered once when disabled.
func WithRetries(enabled bool) ClientOption {
	return func(c *Client) {
		if enabled {
			c.maxRetries = DefaultMaxRetries
		} else {
			c.maxRetries = 0
		}
	}
}

// WithTimeout sets the execution deadline stamped on jobs of jobType.
// Non-positive durations are ignored.
func WithTimeout(jobType string, d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeouts[jobType] = d
		}
	}
}

func NewClient(b JobBroker, opts ...ClientOption) *Client {
	c := &Client{
		broker: b,
		timeouts: map[string]time.Duration{
			TypeVideoTranscode:      DefaultVideoTimeout,
			TypeCertificateGenerate: DefaultJobTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) timeoutFor(jobType string) time.Duration {
	if d, ok := c.timeouts[jobType]; ok {
		return d
	}
	return DefaultJobTimeout
}

// Enqueue serializes payload into a new job and hands it to the broker.
// It returns as soon as the broker accepts the job.
func (c *Client) Enqueue(ctx context.Context, jobType string, payload any) (string, error) {
	ctx, span := tracing.StartJobEnqueueSpan(ctx, jobType)
	defer span.End()

	j, err := job.NewWithOptions(jobType, payload,
		job.WithQueue(QueueFor(jobType)),
		job.WithMaxRetries(c.maxRetries),
		job.WithTimeout(c.timeoutFor(jobType)),
	)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("create %s job: %w", jobType, err)
	}

	if err := c.broker.Enqueue(ctx, j); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		metrics.RecordJobEnqueued(jobType, err)
		return "", fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	metrics.RecordJobEnqueued(jobType, nil)
	return j.ID, nil
}
