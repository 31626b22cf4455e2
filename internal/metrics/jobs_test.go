package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobCollector(t *testing.T) {
	c := NewJobCollector("default")

	before := testutil.ToFloat64(JobsProcessedTotal.WithLabelValues("video_transcode", "success"))
	c.JobStarted("video_transcode", "default")
	if got := testutil.ToFloat64(WorkerPoolActiveJobs.WithLabelValues("video_transcode")); got != 1 {
		t.Errorf("active jobs = %v, want 1", got)
	}
	c.JobCompleted("video_transcode", "default", 2*time.Second)
	if got := testutil.ToFloat64(WorkerPoolActiveJobs.WithLabelValues("video_transcode")); got != 0 {
		t.Errorf("active jobs after completion = %v, want 0", got)
	}
	if got := testutil.ToFloat64(JobsProcessedTotal.WithLabelValues("video_transcode", "success")); got != before+1 {
		t.Errorf("success count = %v, want %v", got, before+1)
	}

	c.JobStarted("certificate_generate", "default")
	c.JobFailed("certificate_generate", "default", time.Second)
	if got := testutil.ToFloat64(JobsProcessedTotal.WithLabelValues("certificate_generate", "error")); got < 1 {
		t.Errorf("error count = %v, want >= 1", got)
	}
}

func TestJobCollector_RetryQueueLabel(t *testing.T) {
	c := NewJobCollector("default")

	c.JobRetrying("video_transcode", "default", 2)
	c.JobRetrying("video_transcode", "attacker-controlled", 3)

	if got := testutil.ToFloat64(JobRetriesTotal.WithLabelValues("video_transcode", "default")); got < 1 {
		t.Errorf("default retries = %v", got)
	}
	if got := testutil.ToFloat64(JobRetriesTotal.WithLabelValues("video_transcode", "other")); got < 1 {
		t.Errorf("unknown queue should be labelled other, got %v", got)
	}
}
