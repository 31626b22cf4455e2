package metrics

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method"},
	)

	VideoUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_video_uploads_total",
			Help: "Total number of video uploads",
		},
		[]string{"status"},
	)

	VideoUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "learn_video_upload_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 4, 8),
		},
	)

	RenditionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_video_renditions_total",
			Help: "Rendition attempts by quality and outcome",
		},
		[]string{"quality", "status"},
	)

	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learn_video_transcode_duration_seconds",
			Help:    "Duration of a single quality transcode",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"quality"},
	)

	VideosFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_videos_finished_total",
			Help: "Videos reaching a terminal status",
		},
		[]string{"status", "partial"},
	)

	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_stream_bytes_total",
			Help: "Bytes served by the streaming endpoint",
		},
		[]string{"quality"},
	)

	StreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_stream_requests_total",
			Help: "Streaming requests by quality and response kind",
		},
		[]string{"quality", "kind"},
	)

	ProgressConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "learn_progress_connections",
			Help: "Open SSE progress connections",
		},
	)

	CertificatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_certificates_total",
			Help: "Certificate job outcomes",
		},
		[]string{"outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_notifications_total",
			Help: "Notification deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_events_published_total",
			Help: "Domain events published by backend and status",
		},
		[]string{"backend", "type", "status"},
	)

	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learn_reconcile_videos_total",
			Help: "Stale videos handled by the reconciliation sweep",
		},
		[]string{"action"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	StorageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_bytes_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type", "status"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total number of jobs processed",
		},
		[]string{"type", "status"},
	)

	JobsProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobs_processing_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900, 1800},
		},
		[]string{"type", "stage"},
	)

	JobResultsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_results_dropped_total",
			Help: "Job results dropped because the result channel was full",
		},
	)

	WorkerPoolActiveJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_pool_active_jobs",
			Help: "Jobs currently being processed, by type",
		},
		[]string{"type"},
	)

	JobRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_retries_total",
			Help: "Job redeliveries scheduled by the broker",
		},
		[]string{"type", "queue"},
	)

	JobAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_retry_attempt",
			Help:    "Attempt number at which a retry was scheduled",
			Buckets: []float64{1, 2, 3, 5, 8},
		},
		[]string{"type"},
	)

	WorkerPoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_pool_size",
			Help: "Size of the worker pool",
		},
		[]string{"queue"},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application information",
		},
		[]string{"version", "environment", "service"},
	)

	AppUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_up",
			Help: "Application is up and running",
		},
	)
)

func NormalizePath(path string) string {
	return uuidRegex.ReplaceAllString(path, ":id")
}

func RecordVideoUpload(status string, sizeBytes int64) {
	VideoUploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		VideoUploadBytes.Observe(float64(sizeBytes))
	}
}

func RecordRendition(quality string, ok bool, durationSeconds float64) {
	status := "success"
	if !ok {
		status = "error"
	}
	RenditionsTotal.WithLabelValues(quality, status).Inc()
	if ok {
		TranscodeDuration.WithLabelValues(quality).Observe(durationSeconds)
	}
}

func RecordVideoFinished(status string, partial bool) {
	p := "false"
	if partial {
		p = "true"
	}
	VideosFinishedTotal.WithLabelValues(status, p).Inc()
}

func RecordStream(quality string, partial bool, bytes int64) {
	kind := "full"
	if partial {
		kind = "partial"
	}
	StreamRequestsTotal.WithLabelValues(quality, kind).Inc()
	StreamBytesTotal.WithLabelValues(quality).Add(float64(bytes))
}

func RecordCertificate(outcome string) {
	CertificatesTotal.WithLabelValues(outcome).Inc()
}

func RecordNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}

func RecordEventPublished(backend, eventType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	EventsPublishedTotal.WithLabelValues(backend, eventType, status).Inc()
}

func RecordReconcile(action string, n int) {
	ReconcileTotal.WithLabelValues(action).Add(float64(n))
}

func RecordJobEnqueued(jobType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	JobsEnqueuedTotal.WithLabelValues(jobType, status).Inc()
}

func RecordJobStage(jobType, stage string, durationSeconds float64) {
	JobsProcessingDuration.WithLabelValues(jobType, stage).Observe(durationSeconds)
}

func SetAppInfo(version, environment, service string) {
	AppInfo.WithLabelValues(version, environment, service).Set(1)
	AppUp.Set(1)
}

func SetWorkerPoolSize(queue string, size int) {
	WorkerPoolSize.WithLabelValues(queue).Set(float64(size))
}
