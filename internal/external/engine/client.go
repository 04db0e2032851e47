package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/httputil"
	"github.com/wonny/pulse/pkg/logger"
)

// Client talks to the sentiment engine's HTTP API. The engine is a
// black box: extraction, scoring and decision quality are its problem,
// this client only handles the wire format.
type Client struct {
	cfg        config.EngineConfig
	httpClient *httputil.Client
	logger     *logger.Logger
}

var _ contracts.SentimentEngine = (*Client)(nil)

// NewClient creates a sentiment engine client
func NewClient(cfg config.EngineConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     log,
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Symbols []string `json:"symbols"`
}

type scoreRequest struct {
	Text   string `json:"text"`
	Symbol string `json:"symbol"`
}

type scoreResponse struct {
	Score      float64 `json:"score"`
	Magnitude  float64 `json:"magnitude"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type decideRequest struct {
	Symbol     string  `json:"symbol"`
	Score      float64 `json:"score"`
	Magnitude  float64 `json:"magnitude"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	Price      float64 `json:"price"`
	Volume     int64   `json:"volume"`
}

type decideResponse struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Notional   float64 `json:"notional"`
	Rationale  string  `json:"rationale"`
}

// ExtractSymbols asks the engine which tickers a text mentions
func (c *Client) ExtractSymbols(ctx context.Context, text string) ([]string, error) {
	var resp extractResponse
	err := c.httpClient.PostJSON(ctx, c.cfg.BaseURL+"/v1/extract", c.headers(),
		extractRequest{Text: text}, &resp)
	if err != nil {
		return nil, fmt.Errorf("symbol extraction failed: %w", err)
	}
	return resp.Symbols, nil
}

// ScoreSentiment asks the engine for a sentiment verdict on one symbol
func (c *Client) ScoreSentiment(ctx context.Context, text, symbol string) (*contracts.SentimentResult, error) {
	var resp scoreResponse
	err := c.httpClient.PostJSON(ctx, c.cfg.BaseURL+"/v1/score", c.headers(),
		scoreRequest{Text: text, Symbol: symbol}, &resp)
	if err != nil {
		return nil, fmt.Errorf("sentiment scoring failed for %s: %w", symbol, err)
	}

	return &contracts.SentimentResult{
		Symbol:     symbol,
		Score:      resp.Score,
		Magnitude:  resp.Magnitude,
		Confidence: resp.Confidence,
		Rationale:  resp.Rationale,
		ScoredAt:   time.Now(),
	}, nil
}

// Decide asks the engine for a trade proposal given sentiment and a quote
func (c *Client) Decide(ctx context.Context, sentiment *contracts.SentimentResult, market *contracts.MarketData) (*contracts.TradeSignal, error) {
	req := decideRequest{
		Symbol:     sentiment.Symbol,
		Score:      sentiment.Score,
		Magnitude:  sentiment.Magnitude,
		Confidence: sentiment.Confidence,
		Rationale:  sentiment.Rationale,
	}
	if market != nil {
		req.Price = market.Price
		req.Volume = market.Volume
	}

	var resp decideResponse
	err := c.httpClient.PostJSON(ctx, c.cfg.BaseURL+"/v1/decide", c.headers(), req, &resp)
	if err != nil {
		return nil, fmt.Errorf("decision failed for %s: %w", sentiment.Symbol, err)
	}

	return &contracts.TradeSignal{
		Action:         contracts.Action(resp.Action),
		Symbol:         sentiment.Symbol,
		Confidence:     resp.Confidence,
		Notional:       resp.Notional,
		Rationale:      resp.Rationale,
		SentimentScore: sentiment.Score,
		Timestamp:      time.Now(),
	}, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}
}
