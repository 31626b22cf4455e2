package metrics

import (
	"time"
)

// JobCollector receives job lifecycle events from the job-queue
// MetricsMiddleware. Results are labelled success, error or retry.
type JobCollector struct {
	// queues restricts the queue label to known names so a bad payload
	// cannot grow cardinality.
	queues map[string]bool
}

func NewJobCollector(queues ...string) *JobCollector {
	c := &JobCollector{queues: make(map[string]bool, len(queues))}
	for _, q := range queues {
		c.queues[q] = true
	}
	return c
}

func (c *JobCollector) queueLabel(queue string) string {
	if c.queues[queue] {
		return queue
	}
	return "other"
}

func (c *JobCollector) JobStarted(jobType, queue string) {
	WorkerPoolActiveJobs.WithLabelValues(jobType).Inc()
}

func (c *JobCollector) JobCompleted(jobType, queue string, duration time.Duration) {
	c.finish(jobType, "success", duration)
}

// JobFailed is called once the job will not be redelivered.
func (c *JobCollector) JobFailed(jobType, queue string, duration time.Duration) {
	c.finish(jobType, "error", duration)
}

func (c *JobCollector) JobRetrying(jobType, queue string, attempt int) {
	JobsProcessedTotal.WithLabelValues(jobType, "retry").Inc()
	JobRetriesTotal.WithLabelValues(jobType, c.queueLabel(queue)).Inc()
	JobAttempts.WithLabelValues(jobType).Observe(float64(attempt))
}

func (c *JobCollector) finish(jobType, status string, duration time.Duration) {
	WorkerPoolActiveJobs.WithLabelValues(jobType).Dec()
	JobsProcessedTotal.WithLabelValues(jobType, status).Inc()
	RecordJobStage(jobType, "total", duration.Seconds())
}
