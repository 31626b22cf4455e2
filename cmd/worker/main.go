package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/broker"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/abdul-hamid-achik/job-queue/pkg/worker"
	"github.com/abdul-hamid-achik/learn.cheap/internal/certificate"
	"github.com/abdul-hamid-achik/learn.cheap/internal/config"
	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/email"
	"github.com/abdul-hamid-achik/learn.cheap/internal/events"
	"github.com/abdul-hamid-achik/learn.cheap/internal/health"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/notify"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
	"github.com/abdul-hamid-achik/learn.cheap/internal/reconcile"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/abdul-hamid-achik/learn.cheap/internal/tracing"
	"github.com/abdul-hamid-achik/learn.cheap/internal/video"
	lcworker "github.com/abdul-hamid-achik/learn.cheap/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	version     = "1.0.0"
	hooksBuffer = 256
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.Init(os.Stdout, cfg.LogLevel, cfg.LogFormat, "worker")
	log.Info("configuration loaded", "environment", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zerologger := logger.Zerolog(os.Stdout, cfg.LogLevel, "worker")

	shutdownTracing, err := tracing.Init(ctx, &tracing.Config{
		ServiceName:    cfg.OTELServiceName + "-worker",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		Insecure:       cfg.OTELInsecure,
		Enabled:        cfg.OTELEndpoint != "",
		SampleRate:     1.0,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	log.Info("connecting to database")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("connecting to object storage")
	store, err := storage.NewMinIOStorage(&storage.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
		Region:    cfg.MinIORegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	log.Info("connecting to redis")
	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpt)
	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	b := broker.NewRedisStreamsBroker(redisClient,
		broker.WithWorkerID(fmt.Sprintf("worker-%d", os.Getpid())),
	)

	ladder, err := video.LoadLadder(cfg.VideoLadderFile)
	if err != nil {
		return fmt.Errorf("failed to load quality ladder: %w", err)
	}
	transcoder, err := video.NewFFmpeg(video.DefaultFFmpegConfig())
	if err != nil {
		return fmt.Errorf("failed to init transcoder: %w", err)
	}
	log.Info("transcoder ready", "qualities", ladder.Labels())

	publisher, err := events.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to init events publisher: %w", err)
	}
	defer func() { _ = publisher.Close() }()

	mailer := email.NewService(email.Config{
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
		FromAddress:  cfg.SMTPFromAddress,
		FromName:     cfg.SMTPFromName,
		BaseURL:      cfg.BaseURL,
	})

	dbStore := db.NewStore(pool)
	instrumentedStore := metrics.NewInstrumentedStorage(store)
	notifier := notify.New(mailer, dbStore, publisher, cfg.BaseURL)

	hooks := queue.NewHooks(hooksBuffer)
	go hooks.Run(ctx, log)

	handlers := lcworker.Handlers{
		Video: &lcworker.VideoDependencies{
			Queries:    dbStore,
			Storage:    instrumentedStore,
			Transcoder: transcoder,
			Ladder:     ladder,
			Notifier:   notifier,
		},
		Certificates:       certificate.NewService(dbStore, instrumentedStore, notifier),
		VideoTimeout:       cfg.VideoJobTimeout,
		CertificateTimeout: cfg.JobTimeout,
	}.Build(hooks)

	registry := worker.NewRegistry()
	for jobType, h := range handlers {
		if err := registry.Register(jobType, h); err != nil {
			return fmt.Errorf("failed to register %s: %w", jobType, err)
		}
	}
	log.Info("handlers registered", "count", len(registry.Types()))

	registry.Use(
		middleware.RecoveryMiddleware(zerologger),
		middleware.LoggingMiddleware(zerologger),
		middleware.TimeoutMiddleware(max(cfg.VideoJobTimeout, cfg.JobTimeout)),
		middleware.MetricsMiddleware(metrics.NewJobCollector(queue.DefaultQueue, queue.VideoQueue)),
	)

	metrics.SetAppInfo(version, cfg.Environment, "worker")
	metrics.SetWorkerPoolSize(queue.DefaultQueue, cfg.WorkerConcurrency)
	metrics.SetWorkerPoolSize(queue.VideoQueue, cfg.VideoConcurrency)
	log.Info("creating worker pools", "concurrency", cfg.WorkerConcurrency, "video_concurrency", cfg.VideoConcurrency)

	pools := []*worker.Pool{
		newPool(b, registry, zerologger, queue.DefaultQueue, cfg.WorkerConcurrency),
		newPool(b, registry, zerologger, queue.VideoQueue, cfg.VideoConcurrency),
	}

	if cfg.ReconcileInterval > 0 {
		sweeper := reconcile.NewSweeper(dbStore, newQueueClient(b, cfg), reconcile.DefaultMaxAttempts)
		go sweeper.Run(ctx, cfg.ReconcileInterval, cfg.ReconcileStaleAfter)
		log.Info("reconcile sweep enabled", "interval", cfg.ReconcileInterval, "stale_after", cfg.ReconcileStaleAfter)
	}

	checker := health.NewChecker().WithDatabase(pool).WithRedis(redisClient).WithStorage(store)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/health", health.LivenessHandler())
	metricsMux.HandleFunc("/health/ready", health.ReadinessHandler(checker))

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("metrics server starting", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	poolErr := make(chan error, len(pools))
	for _, p := range pools {
		go func(p *worker.Pool) {
			poolErr <- p.Start(ctx)
		}(p)
	}
	log.Info("worker pools started")

	select {
	case err := <-poolErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker pool error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		for _, p := range pools {
			if err := p.Stop(shutdownCtx); err != nil {
				log.Error("error stopping pool", "error", err)
			}
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("error stopping metrics server", "error", err)
		}
		cancel()
	}

	log.Info("worker pool stopped gracefully")
	return nil
}

// newPool consumes a single queue so one job type cannot occupy another's slots.
func newPool(b broker.Broker, registry *worker.Registry, zl zerolog.Logger, name string, concurrency int) *worker.Pool {
	return worker.NewPool(b, registry,
		worker.WithConcurrency(concurrency),
		worker.WithPoolQueues([]string{name}),
		worker.WithPoolPollInterval(time.Second),
		worker.WithShutdownTimeout(30*time.Second),
		worker.WithPoolLogger(zl),
	)
}

func newQueueClient(b queue.JobBroker, cfg *config.Config) *queue.Client {
	return queue.NewClient(b,
		queue.WithRetries(cfg.RetriesEnabled),
		queue.WithTimeout(queue.TypeVideoTranscode, cfg.VideoJobTimeout),
		queue.WithTimeout(queue.TypeCertificateGenerate, cfg.JobTimeout),
	)
}
