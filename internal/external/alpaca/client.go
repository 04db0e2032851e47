package alpaca

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/httputil"
	"github.com/wonny/pulse/pkg/logger"
	"github.com/wonny/pulse/pkg/redis"
)

// Client is the Alpaca trading and market data client. Quotes and the
// supported-symbol list are served through the shared cache when Redis
// is enabled; orders always go straight to the API.
//
// Order submissions use a dedicated client with retry stripped: a
// duplicate fill costs real money, so quote and asset GETs may be
// retried but POST /v2/orders never is.
type Client struct {
	cfg         config.AlpacaConfig
	httpClient  *httputil.Client
	orderClient *httputil.Client
	cache       *redis.Cache
	logger      *logger.Logger
}

var _ contracts.Venue = (*Client)(nil)

// NewClient creates an Alpaca client. orderClient must be dedicated to
// this client; retry is disabled on it here regardless of how it was
// built.
func NewClient(cfg config.AlpacaConfig, httpClient, orderClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		cfg:         cfg,
		httpClient:  httpClient,
		orderClient: orderClient.DisableRetry(),
		cache:       cache,
		logger:      log,
	}
}

type snapshotResponse struct {
	LatestTrade struct {
		Price     float64   `json:"p"`
		Timestamp time.Time `json:"t"`
	} `json:"latestTrade"`
	DailyBar struct {
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Volume int64   `json:"v"`
	} `json:"dailyBar"`
}

type asset struct {
	Symbol   string `json:"symbol"`
	Tradable bool   `json:"tradable"`
}

type orderResponse struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Status         string `json:"status"`
	FilledAvgPrice string `json:"filled_avg_price"`
}

// GetPrice returns the latest quote for a symbol
func (c *Client) GetPrice(ctx context.Context, symbol string) (*contracts.MarketData, error) {
	cacheKey := "quote:" + symbol

	var cached contracts.MarketData
	if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	url := fmt.Sprintf("%s/v2/stocks/%s/snapshot", c.cfg.DataURL, symbol)

	var snap snapshotResponse
	if err := c.httpClient.GetJSON(ctx, url, c.headers(), &snap); err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	market := &contracts.MarketData{
		Symbol:    symbol,
		Price:     snap.LatestTrade.Price,
		Volume:    snap.DailyBar.Volume,
		High:      snap.DailyBar.High,
		Low:       snap.DailyBar.Low,
		Open:      snap.DailyBar.Open,
		Timestamp: snap.LatestTrade.Timestamp,
	}

	if err := c.cache.Set(ctx, cacheKey, market, redis.TTLQuote); err != nil {
		c.logger.WithError(err).Debug("Failed to cache quote")
	}

	return market, nil
}

// GetSupportedSymbols returns all active tradable symbols
func (c *Client) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	const cacheKey = "universe"

	var cached []string
	if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	url := c.cfg.BaseURL + "/v2/assets?status=active&asset_class=us_equity"

	var assets []asset
	if err := c.httpClient.GetJSON(ctx, url, c.headers(), &assets); err != nil {
		return nil, fmt.Errorf("failed to fetch assets: %w", err)
	}

	symbols := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Tradable {
			symbols = append(symbols, a.Symbol)
		}
	}

	if err := c.cache.Set(ctx, cacheKey, symbols, redis.TTLUniverse); err != nil {
		c.logger.WithError(err).Debug("Failed to cache universe")
	}

	c.logger.WithField("symbols", len(symbols)).Debug("Fetched supported symbols")
	return symbols, nil
}

// SubmitOrder places a notional market order. A failed submission is
// surfaced as-is; the order is never resubmitted at this layer.
func (c *Client) SubmitOrder(ctx context.Context, order *contracts.OrderRequest) (*contracts.TradeExecutionResult, error) {
	payload := map[string]interface{}{
		"symbol":        order.Symbol,
		"notional":      strconv.FormatFloat(order.Notional, 'f', 2, 64),
		"side":          strings.ToLower(string(order.Side)),
		"type":          order.Type,
		"time_in_force": order.TimeInForce,
	}

	var resp orderResponse
	err := c.orderClient.PostJSON(ctx, c.cfg.BaseURL+"/v2/orders", c.headers(), payload, &resp)
	if err != nil {
		return nil, fmt.Errorf("order submission failed for %s: %w", order.Symbol, err)
	}

	price, _ := strconv.ParseFloat(resp.FilledAvgPrice, 64)

	status := contracts.ExecutionPending
	if resp.Status == "filled" {
		status = contracts.ExecutionCompleted
	}

	c.logger.WithFields(map[string]interface{}{
		"order_id": resp.ID,
		"symbol":   order.Symbol,
		"side":     order.Side,
		"notional": order.Notional,
		"status":   resp.Status,
	}).Info("Order submitted")

	return &contracts.TradeExecutionResult{
		OrderID:    resp.ID,
		Symbol:     order.Symbol,
		Action:     order.Side,
		Price:      price,
		Notional:   order.Notional,
		Status:     status,
		ExecutedAt: time.Now(),
	}, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"APCA-API-KEY-ID":     c.cfg.APIKey,
		"APCA-API-SECRET-KEY": c.cfg.APISecret,
	}
}
