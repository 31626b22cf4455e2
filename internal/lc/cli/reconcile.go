package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/broker"
	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/output"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
	"github.com/abdul-hamid-achik/learn.cheap/internal/reconcile"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Requeue or fail videos stuck in PROCESSING",
	Long: `Run one reconciliation sweep against the database and queue.

Videos that have been PROCESSING longer than --stale-after are re-enqueued for
transcoding, or marked FAILED once they have used --max-attempts. Only one
sweep runs per host at a time.

Requires DATABASE_URL and REDIS_URL (or database_url/redis_url in config).`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

var (
	reconcileStaleAfter   time.Duration
	reconcileVideoTimeout time.Duration
	reconcileMaxAttempts  int32
)

// sweepFunc is replaced in tests.
var sweepFunc = sweepWithInfra

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileStaleAfter, "stale-after", reconcile.DefaultStaleAfter, "How long a video may stay PROCESSING")
	reconcileCmd.Flags().DurationVar(&reconcileVideoTimeout, "video-timeout", queue.DefaultVideoTimeout, "Deadline stamped on re-enqueued transcode jobs")
	reconcileCmd.Flags().Int32Var(&reconcileMaxAttempts, "max-attempts", reconcile.DefaultMaxAttempts, "Attempts before a stuck video is failed")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if cfg.DatabaseURL == "" || cfg.RedisURL == "" {
		return errors.New("reconcile needs DATABASE_URL and REDIS_URL")
	}
	if reconcileStaleAfter <= 0 {
		return errors.New("--stale-after must be positive")
	}
	if reconcileStaleAfter <= reconcileVideoTimeout {
		return fmt.Errorf("--stale-after (%s) must exceed --video-timeout (%s)", reconcileStaleAfter, reconcileVideoTimeout)
	}

	var stats reconcile.SweepStats
	err := reconcile.WithLock(cfg.LockPath(), func() error {
		var err error
		stats, err = sweepFunc(commandContext(cmd), reconcileStaleAfter, reconcileMaxAttempts)
		return err
	})
	if errors.Is(err, reconcile.ErrLocked) {
		return fmt.Errorf("another reconcile is running (lock %s)", cfg.LockPath())
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printer.JSON(stats)
	}

	table := output.NewTable(printer.Out(), []string{"Action", "Videos"}, quietMode)
	table.AlignRight(1)
	table.Append([]string{"requeued", strconv.Itoa(stats.Requeued)})
	table.Append([]string{"failed", strconv.Itoa(stats.Failed)})
	table.Append([]string{"errors", strconv.Itoa(stats.Errors)})
	table.Render()

	if stats.Errors > 0 {
		printer.Warn("%d videos could not be reconciled; see logs and retry", stats.Errors)
	}
	return nil
}

func sweepWithInfra(ctx context.Context, staleAfter time.Duration, maxAttempts int32) (reconcile.SweepStats, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return reconcile.SweepStats{}, fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return reconcile.SweepStats{}, fmt.Errorf("ping database: %w", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return reconcile.SweepStats{}, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return reconcile.SweepStats{}, fmt.Errorf("ping redis: %w", err)
	}

	enqueuer := queue.NewClient(broker.NewRedisStreamsBroker(rdb), queue.WithTimeout(queue.TypeVideoTranscode, reconcileVideoTimeout))
	sweeper := reconcile.NewSweeper(db.New(pool), enqueuer, maxAttempts)
	return sweeper.Sweep(ctx, staleAfter)
}
