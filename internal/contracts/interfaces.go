package contracts

import (
	"context"
	"time"
)

// ContentSource provides social content, both streamed and on demand
type ContentSource interface {
	// GetRecentItems returns the newest items in a container (subreddit)
	GetRecentItems(ctx context.Context, container string, limit int) ([]ContentItem, error)

	// GetChildItems returns replies to an item
	GetChildItems(ctx context.Context, itemID string, limit int) ([]ContentItem, error)

	// GetItemByID fetches a single item, used for parent resolution
	GetItemByID(ctx context.Context, itemID string) (*ContentItem, error)
}

// SentimentEngine wraps the external model that extracts symbols, scores
// sentiment and proposes trades. Scoring internals are a black box here.
type SentimentEngine interface {
	ExtractSymbols(ctx context.Context, text string) ([]string, error)
	ScoreSentiment(ctx context.Context, text, symbol string) (*SentimentResult, error)
	Decide(ctx context.Context, sentiment *SentimentResult, market *MarketData) (*TradeSignal, error)
}

// Venue provides market data and order execution
type Venue interface {
	GetPrice(ctx context.Context, symbol string) (*MarketData, error)
	GetSupportedSymbols(ctx context.Context) ([]string, error)
	SubmitOrder(ctx context.Context, order *OrderRequest) (*TradeExecutionResult, error)
}

// Persistence stores pipeline records. The storage engine behind it is
// an external concern; the pipeline only needs these writes and the one
// startup read.
type Persistence interface {
	SaveContentRecord(ctx context.Context, item *ContentItem, symbols []string) error
	SavePendingTrade(ctx context.Context, trade *PendingTrade) error
	UpdatePendingTradeStatus(ctx context.Context, id string, status TradeStatus, reason string, decidedAt time.Time) error
	LoadActivePendingTrades(ctx context.Context) ([]*PendingTrade, error)
	SaveTradePerformance(ctx context.Context, result *TradeExecutionResult) error
}
