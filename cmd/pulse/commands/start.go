package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pulse/internal/api"
	"github.com/wonny/pulse/internal/api/handlers"
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

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sentiment trading pipeline",
	Long: `Starts the full pipeline and the API server.

This command:
- Connects to PostgreSQL and (optionally) Redis
- Backfills recent posts from the configured subreddits
- Polls for new content and processes it through the queue
- Serves the review API and the dashboard event stream

Endpoints:
  GET  /health                    - Health check
  GET  /api/status                - Pipeline counters
  GET  /api/trades/pending        - Trades awaiting review
  POST /api/trades/{id}/approve   - Approve one trade
  POST /api/trades/{id}/reject    - Reject one trade
  POST /api/trades/bulk           - Bulk approve/reject
  GET  /ws                        - Dashboard event stream

Example:
  go run ./cmd/pulse start
  go run ./cmd/pulse start --mode manual --port 8080`,
	RunE: runStart,
}

var (
	startPort string
	startMode string
)

func init() {
	rootCmd.AddCommand(startCmd)

	// Flags
	startCmd.Flags().StringVar(&startPort, "port", "", "API server port (overrides PORT)")
	startCmd.Flags().StringVar(&startMode, "mode", "", "trading mode: autopilot or manual (overrides TRADING_MODE)")
}

func runStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Pulse Sentiment Trading Pipeline ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if startPort != "" {
		cfg.Port = startPort
	}
	if startMode != "" {
		cfg.Trading.Mode = config.TradingMode(startMode)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
		"mode": cfg.Trading.Mode,
	}).Info("Initializing pipeline")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Connect to Redis (optional; everything degrades to local state)
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	limiter := redis.NewRateLimiter(rdb, "pulse")
	cache := redis.NewCache(rdb, "pulse")

	// 5. Create external API clients
	redditHTTP := httputil.New(log).WithRateLimiter(limiter, redis.RedditRateLimit)
	engineHTTP := httputil.NewWithTimeout(log, cfg.Engine.Timeout).WithRateLimiter(limiter, redis.EngineRateLimit)
	alpacaHTTP := httputil.New(log).WithRateLimiter(limiter, redis.AlpacaRateLimit)
	alpacaOrderHTTP := httputil.New(log).DisableRetry().WithRateLimiter(limiter, redis.AlpacaRateLimit)

	redditClient := reddit.NewClient(cfg.Reddit, redditHTTP, log)
	engineClient := engine.NewClient(cfg.Engine, engineHTTP, log)
	alpacaClient := alpaca.NewClient(cfg.Alpaca, alpacaHTTP, alpacaOrderHTTP, cache, log)

	// 6. Create persistence
	repo := trading.NewRepository(db.Pool)

	// 7. Create event bus and pipeline
	bus := events.NewBus(log)
	defer bus.Close()

	p := pipeline.New(cfg, log, bus, redditClient, engineClient, alpacaClient, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	// 8. Create API server
	hub := api.NewHub(bus, log)
	tradesHandler := handlers.NewTradesHandler(p.Store(), log)
	statusHandler := handlers.NewStatusHandler(p, log)
	router := api.NewRouter(tradesHandler, statusHandler, hub, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Pipeline running, API on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	cancel()
	p.Stop()

	log.Info("Pipeline stopped")
	return nil
}
