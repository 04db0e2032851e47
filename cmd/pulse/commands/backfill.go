package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/internal/external/alpaca"
	"github.com/wonny/pulse/internal/external/engine"
	"github.com/wonny/pulse/internal/external/reddit"
	"github.com/wonny/pulse/internal/pipeline"
	"github.com/wonny/pulse/internal/trading"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/database"
	"github.com/wonny/pulse/pkg/httputil"
	"github.com/wonny/pulse/pkg/logger"
	"github.com/wonny/pulse/pkg/redis"
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Process recent subreddit content once and exit",
	Long: `Runs one backfill sweep: fetches the newest posts from every
configured subreddit, processes them through the full pipeline and
exits once the queue is drained.

Trades proposed in manual mode remain pending in the database for a
later review session.

Example:
  go run ./cmd/pulse backfill`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Pulse Backfill ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	limiter := redis.NewRateLimiter(rdb, "pulse")
	cache := redis.NewCache(rdb, "pulse")

	redditHTTP := httputil.New(log).WithRateLimiter(limiter, redis.RedditRateLimit)
	engineHTTP := httputil.NewWithTimeout(log, cfg.Engine.Timeout).WithRateLimiter(limiter, redis.EngineRateLimit)
	alpacaHTTP := httputil.New(log).WithRateLimiter(limiter, redis.AlpacaRateLimit)
	alpacaOrderHTTP := httputil.New(log).DisableRetry().WithRateLimiter(limiter, redis.AlpacaRateLimit)

	redditClient := reddit.NewClient(cfg.Reddit, redditHTTP, log)
	engineClient := engine.NewClient(cfg.Engine, engineHTTP, log)
	alpacaClient := alpaca.NewClient(cfg.Alpaca, alpacaHTTP, alpacaOrderHTTP, cache, log)

	repo := trading.NewRepository(db.Pool)

	bus := events.NewBus(log)
	defer bus.Close()

	p := pipeline.New(cfg, log, bus, redditClient, engineClient, alpacaClient, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C aborts the drain
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	if err := p.RunBackfillOnce(ctx); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	status := p.Status()
	fmt.Printf("\n✅ Backfill complete: %d processed, %d dropped, %d trades pending\n",
		status.Scheduler.Processed, status.Scheduler.Dropped, status.Store.Pending)
	return nil
}
