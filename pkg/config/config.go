package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Loaded once at startup and treated as immutable afterwards; every
// component receives the values it needs via its constructor.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Reddit RedditConfig
	Engine EngineConfig
	Alpaca AlpacaConfig

	// Pipeline
	Trading   TradingConfig
	Queue     QueueConfig
	Sentiment SentimentConfig
	Tickers   TickersConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// RedditConfig holds content-source configuration
type RedditConfig struct {
	BaseURL      string
	UserAgent    string
	Subreddits   []string
	PollInterval time.Duration
	BackfillSize int // items pulled per subreddit on startup
	CommentLimit int // comments pulled per fresh post; 0 disables
}

// EngineConfig holds sentiment/decision engine configuration
type EngineConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AlpacaConfig holds market-data and execution venue configuration
type AlpacaConfig struct {
	BaseURL   string
	DataURL   string
	APIKey    string
	APISecret string
	Paper     bool
}

// TradingMode selects how qualifying signals are handled
type TradingMode string

const (
	ModeAutopilot TradingMode = "autopilot" // execute immediately
	ModeManual    TradingMode = "manual"    // route through human approval
)

// TradingConfig holds signal gating and approval parameters
type TradingConfig struct {
	Mode                TradingMode
	NotionalAmount      float64       // USD per trade
	ConfidenceThreshold float64       // minimum signal confidence
	MagnitudeThreshold  float64       // minimum sentiment magnitude
	MaxTradesPerHour    int           // per-symbol cooldown divisor
	PendingExpiry       time.Duration // pending trade time-to-live
	DecisionGrace       time.Duration // terminal trades stay queryable this long
	Retention           time.Duration // max age of any trade in the active set
}

// CooldownInterval returns the minimum time between two trades on one symbol.
func (t TradingConfig) CooldownInterval() time.Duration {
	if t.MaxTradesPerHour <= 0 {
		return time.Hour
	}
	return time.Hour / time.Duration(t.MaxTradesPerHour)
}

// QueueConfig holds ingestion queue and scheduler parameters
type QueueConfig struct {
	Capacity       int
	MaxConcurrency int
	RetryCeiling   int
	PollInterval   time.Duration
	DrainTimeout   time.Duration // max wait for in-flight work on shutdown
}

// SentimentConfig holds reuse and enrichment parameters
type SentimentConfig struct {
	SimilarityThreshold float64       // token-set IoU for verbatim reuse
	ReuseLookback       time.Duration // how far back reuse candidates go
	WeakMagnitude       float64       // below this a reply is re-scored with parent context
	MinReplyLength      int           // reply must be this long to justify a re-score
}

// TickersConfig holds mention extraction and universe parameters
type TickersConfig struct {
	CacheMaxEntries int           // extraction cache size before trimming
	CacheTrimCount  int           // entries removed per trim
	MaxPerItem      int           // symbols processed per content item
	UniverseRefresh time.Duration // supported-symbol refresh period
}

// Load reads configuration from environment variables.
// This is the only function in the codebase that calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8097"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// External APIs
		Reddit: RedditConfig{
			BaseURL:      getEnv("REDDIT_BASE_URL", "https://oauth.reddit.com"),
			UserAgent:    getEnv("REDDIT_USER_AGENT", "pulse/1.0"),
			Subreddits:   getEnvAsList("REDDIT_SUBREDDITS", "wallstreetbets,CryptoCurrency,stocks"),
			PollInterval: getEnvAsDuration("REDDIT_POLL_INTERVAL", "30s"),
			BackfillSize: getEnvAsInt("REDDIT_BACKFILL_SIZE", 25),
			CommentLimit: getEnvAsInt("REDDIT_COMMENT_LIMIT", 20),
		},

		Engine: EngineConfig{
			BaseURL: getEnv("ENGINE_BASE_URL", "http://localhost:8098"),
			APIKey:  getEnv("ENGINE_API_KEY", ""),
			Timeout: getEnvAsDuration("ENGINE_TIMEOUT", "45s"),
		},

		Alpaca: AlpacaConfig{
			BaseURL:   getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
			DataURL:   getEnv("ALPACA_DATA_URL", "https://data.alpaca.markets"),
			APIKey:    getEnv("ALPACA_API_KEY", ""),
			APISecret: getEnv("ALPACA_API_SECRET", ""),
			Paper:     getEnvAsBool("ALPACA_PAPER", true),
		},

		// Pipeline
		Trading: TradingConfig{
			Mode:                TradingMode(getEnv("TRADING_MODE", "manual")),
			NotionalAmount:      getEnvAsFloat("TRADE_NOTIONAL", 100),
			ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.6),
			MagnitudeThreshold:  getEnvAsFloat("MAGNITUDE_THRESHOLD", 0.6),
			MaxTradesPerHour:    getEnvAsInt("MAX_TRADES_PER_HOUR", 2),
			PendingExpiry:       getEnvAsDuration("PENDING_EXPIRY", "24h"),
			DecisionGrace:       getEnvAsDuration("DECISION_GRACE", "5s"),
			Retention:           getEnvAsDuration("TRADE_RETENTION", "24h"),
		},

		Queue: QueueConfig{
			Capacity:       getEnvAsInt("QUEUE_CAPACITY", 500),
			MaxConcurrency: getEnvAsInt("MAX_CONCURRENCY", 3),
			RetryCeiling:   getEnvAsInt("RETRY_CEILING", 3),
			PollInterval:   getEnvAsDuration("QUEUE_POLL_INTERVAL", "1s"),
			DrainTimeout:   getEnvAsDuration("DRAIN_TIMEOUT", "30s"),
		},

		Sentiment: SentimentConfig{
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.90),
			ReuseLookback:       getEnvAsDuration("REUSE_LOOKBACK", "4h"),
			WeakMagnitude:       getEnvAsFloat("WEAK_MAGNITUDE", 0.30),
			MinReplyLength:      getEnvAsInt("MIN_REPLY_LENGTH", 80),
		},

		Tickers: TickersConfig{
			CacheMaxEntries: getEnvAsInt("TICKER_CACHE_MAX", 1000),
			CacheTrimCount:  getEnvAsInt("TICKER_CACHE_TRIM", 100),
			MaxPerItem:      getEnvAsInt("TICKERS_PER_ITEM", 3),
			UniverseRefresh: getEnvAsDuration("UNIVERSE_REFRESH", "1h"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Trading.Mode != ModeAutopilot && c.Trading.Mode != ModeManual {
		return fmt.Errorf("TRADING_MODE must be autopilot or manual")
	}

	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive")
	}

	if c.Queue.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive")
	}

	if c.Sentiment.SimilarityThreshold < 0 || c.Sentiment.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in [0,1]")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
