package trading

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/pulse/internal/contracts"
)

// Repository is the PostgreSQL implementation of contracts.Persistence
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a trading repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.Persistence = (*Repository)(nil)

// SaveContentRecord records a processed content item and its symbols
func (r *Repository) SaveContentRecord(ctx context.Context, item *contracts.ContentItem, symbols []string) error {
	query := `
		INSERT INTO pulse.content_records (
			item_id, subreddit, author, score, is_comment, symbols, item_created_at, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (item_id) DO UPDATE SET
			symbols = EXCLUDED.symbols,
			processed_at = EXCLUDED.processed_at
	`

	_, err := r.pool.Exec(ctx, query,
		item.ID, item.Subreddit, item.Author, item.Score, item.IsComment,
		symbols, item.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save content record: %w", err)
	}

	return nil
}

// SavePendingTrade persists a new pending trade with its snapshots
func (r *Repository) SavePendingTrade(ctx context.Context, trade *contracts.PendingTrade) error {
	source, err := json.Marshal(trade.Source)
	if err != nil {
		return fmt.Errorf("failed to marshal source snapshot: %w", err)
	}
	market, err := json.Marshal(trade.Market)
	if err != nil {
		return fmt.Errorf("failed to marshal market snapshot: %w", err)
	}
	sent, err := json.Marshal(trade.Sentiment)
	if err != nil {
		return fmt.Errorf("failed to marshal sentiment snapshot: %w", err)
	}

	query := `
		INSERT INTO pulse.pending_trades (
			id, symbol, action, confidence, notional, rationale, sentiment_score,
			source_snapshot, market_snapshot, sentiment_snapshot,
			status, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.pool.Exec(ctx, query,
		trade.ID, trade.Signal.Symbol, trade.Signal.Action, trade.Signal.Confidence,
		trade.Signal.Notional, trade.Signal.Rationale, trade.Signal.SentimentScore,
		source, market, sent,
		trade.Status, trade.CreatedAt, trade.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save pending trade: %w", err)
	}

	return nil
}

// UpdatePendingTradeStatus records a terminal transition
func (r *Repository) UpdatePendingTradeStatus(ctx context.Context, id string, status contracts.TradeStatus, reason string, decidedAt time.Time) error {
	query := `
		UPDATE pulse.pending_trades
		SET status = $1, decision_reason = $2, decided_at = $3
		WHERE id = $4
	`

	_, err := r.pool.Exec(ctx, query, status, reason, decidedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update pending trade status: %w", err)
	}

	return nil
}

// LoadActivePendingTrades returns trades still pending, oldest first
func (r *Repository) LoadActivePendingTrades(ctx context.Context) ([]*contracts.PendingTrade, error) {
	query := `
		SELECT id, symbol, action, confidence, notional, rationale, sentiment_score,
		       source_snapshot, market_snapshot, sentiment_snapshot,
		       status, created_at, expires_at
		FROM pulse.pending_trades
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending trades: %w", err)
	}
	defer rows.Close()

	var trades []*contracts.PendingTrade
	for rows.Next() {
		var trade contracts.PendingTrade
		var source, market, sent []byte

		err := rows.Scan(
			&trade.ID, &trade.Signal.Symbol, &trade.Signal.Action, &trade.Signal.Confidence,
			&trade.Signal.Notional, &trade.Signal.Rationale, &trade.Signal.SentimentScore,
			&source, &market, &sent,
			&trade.Status, &trade.CreatedAt, &trade.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending trade: %w", err)
		}

		if len(source) > 0 {
			_ = json.Unmarshal(source, &trade.Source)
		}
		if len(market) > 0 {
			_ = json.Unmarshal(market, &trade.Market)
		}
		if len(sent) > 0 {
			_ = json.Unmarshal(sent, &trade.Sentiment)
		}

		trades = append(trades, &trade)
	}

	return trades, rows.Err()
}

// SaveTradePerformance records a venue execution outcome
func (r *Repository) SaveTradePerformance(ctx context.Context, result *contracts.TradeExecutionResult) error {
	query := `
		INSERT INTO pulse.trade_performance (
			order_id, symbol, action, price, notional, fees, status, error, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		result.OrderID, result.Symbol, result.Action, result.Price,
		result.Notional, result.Fees, result.Status, result.Error, result.ExecutedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save trade performance: %w", err)
	}

	return nil
}

// GetTradePerformance returns recent execution records for a symbol
func (r *Repository) GetTradePerformance(ctx context.Context, symbol string, limit int) ([]contracts.TradeExecutionResult, error) {
	query := `
		SELECT order_id, symbol, action, price, notional, fees, status, COALESCE(error, ''), executed_at
		FROM pulse.trade_performance
		WHERE symbol = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trade performance: %w", err)
	}
	defer rows.Close()

	var results []contracts.TradeExecutionResult
	for rows.Next() {
		var res contracts.TradeExecutionResult
		if err := rows.Scan(
			&res.OrderID, &res.Symbol, &res.Action, &res.Price,
			&res.Notional, &res.Fees, &res.Status, &res.Error, &res.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade performance: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}
