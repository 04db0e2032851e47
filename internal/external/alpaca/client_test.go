package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/httputil"
	"github.com/wonny/pulse/pkg/logger"
	"github.com/wonny/pulse/pkg/redis"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	rdb, err := redis.New(&config.Config{})
	require.NoError(t, err)

	cfg := config.AlpacaConfig{BaseURL: baseURL, DataURL: baseURL}

	// The order client is built retry-enabled on purpose: the
	// constructor must strip it either way.
	return NewClient(cfg,
		httputil.New(logger.NewNop()),
		httputil.New(logger.NewNop()),
		redis.NewCache(rdb, "test"),
		logger.NewNop())
}

func marketOrder(symbol string) *contracts.OrderRequest {
	return &contracts.OrderRequest{
		Symbol:      symbol,
		Side:        contracts.ActionBuy,
		Notional:    100,
		Type:        "market",
		TimeInForce: "day",
	}
}

func TestClient_SubmitOrderNeverResubmits(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v2/orders" {
			atomic.AddInt32(&posts, 1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.SubmitOrder(context.Background(), marketOrder("TSLA"))
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&posts),
		"a failing order submission reached the venue more than once")
}

func TestClient_SubmitOrderMapsFilledStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/orders", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "TSLA", payload["symbol"])
		assert.Equal(t, "buy", payload["side"])
		assert.Equal(t, "100.00", payload["notional"])

		json.NewEncoder(w).Encode(map[string]string{
			"id":               "ord_1",
			"symbol":           "TSLA",
			"status":           "filled",
			"filled_avg_price": "251.30",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	result, err := c.SubmitOrder(context.Background(), marketOrder("TSLA"))
	require.NoError(t, err)

	assert.Equal(t, "ord_1", result.OrderID)
	assert.Equal(t, contracts.ExecutionCompleted, result.Status)
	assert.Equal(t, 251.30, result.Price)
}
