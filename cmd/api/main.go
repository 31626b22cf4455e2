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
	"github.com/abdul-hamid-achik/learn.cheap/internal/api"
	"github.com/abdul-hamid-achik/learn.cheap/internal/config"
	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/health"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/abdul-hamid-achik/learn.cheap/internal/tracing"
	"github.com/abdul-hamid-achik/learn.cheap/internal/video"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

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

	log := logger.Init(os.Stdout, cfg.LogLevel, cfg.LogFormat, "api")
	log.Info("configuration loaded", "environment", cfg.Environment)

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, &tracing.Config{
		ServiceName:    cfg.OTELServiceName + "-api",
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
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations applied")
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
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
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

	ladder, err := video.LoadLadder(cfg.VideoLadderFile)
	if err != nil {
		return fmt.Errorf("failed to load quality ladder: %w", err)
	}

	metrics.SetAppInfo(version, cfg.Environment, "api")

	checker := health.NewChecker().
		WithDatabase(pool).
		WithRedis(redisClient).
		WithStorage(store)

	enqueuer := queue.NewClient(broker.NewRedisStreamsBroker(redisClient),
		queue.WithRetries(cfg.RetriesEnabled),
		queue.WithTimeout(queue.TypeVideoTranscode, cfg.VideoJobTimeout),
		queue.WithTimeout(queue.TypeCertificateGenerate, cfg.JobTimeout),
	)

	router := api.NewRouter(&api.Config{
		Storage:          metrics.NewInstrumentedStorage(store),
		Queries:          db.New(pool),
		Enqueuer:         enqueuer,
		Health:           checker,
		Ladder:           ladder,
		ProgressInterval: cfg.ProgressInterval,
		MaxUploadSize:    cfg.MaxUploadSize,
		JWTSecret:        cfg.JWTSecret,
		WebhookSecret:    cfg.WebhookSecret,
		ServiceName:      cfg.OTELServiceName + "-api",
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		DevMode:          cfg.Environment == "development",
	})
	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET not set, enrollment webhooks are disabled")
	}

	// WriteTimeout stays unset: streams and SSE connections are long lived.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			return fmt.Errorf("forced shutdown: %w", err)
		}
	}

	log.Info("server stopped gracefully")
	return nil
}
