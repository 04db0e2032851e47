package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/internal/trading"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

type handlerFixture struct {
	router *mux.Router
	store  *trading.Store
	venue  *contracts.MockVenue
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	cfg := config.TradingConfig{
		Mode:             config.ModeManual,
		NotionalAmount:   100,
		MaxTradesPerHour: 2,
		PendingExpiry:    24 * time.Hour,
		DecisionGrace:    5 * time.Second,
		Retention:        24 * time.Hour,
	}

	venue := contracts.NewMockVenue()
	persistence := contracts.NewMockPersistence()
	bus := events.NewBus(logger.NewNop())
	t.Cleanup(bus.Close)

	limiter := trading.NewRateLimiter(cfg.CooldownInterval())
	executor := trading.NewExecutor(venue, limiter, persistence, bus, logger.NewNop())
	store := trading.NewStore(persistence, executor, bus, cfg, logger.NewNop())

	h := NewTradesHandler(store, logger.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/api/trades/pending", h.ListPending).Methods("GET")
	r.HandleFunc("/api/trades/bulk", h.BulkDecide).Methods("POST")
	r.HandleFunc("/api/trades/{id}", h.GetTrade).Methods("GET")
	r.HandleFunc("/api/trades/{id}/approve", h.Approve).Methods("POST")
	r.HandleFunc("/api/trades/{id}/reject", h.Reject).Methods("POST")

	return &handlerFixture{router: r, store: store, venue: venue}
}

func (f *handlerFixture) createTrade(t *testing.T, symbol string) *contracts.PendingTrade {
	t.Helper()
	signal := contracts.TradeSignal{
		Action: contracts.ActionBuy, Symbol: symbol, Confidence: 0.9, Notional: 100,
	}
	trade, err := f.store.Create(context.Background(), signal, nil, nil, nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	return trade
}

func (f *handlerFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestTradesHandler_ListPending(t *testing.T) {
	f := newHandlerFixture(t)
	f.createTrade(t, "TSLA")
	f.createTrade(t, "AAPL")

	rec := f.do(http.MethodGet, "/api/trades/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Trades []contracts.PendingTrade `json:"trades"`
		Count  int                      `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "TSLA", resp.Trades[0].Signal.Symbol, "oldest first")
}

func TestTradesHandler_GetTrade(t *testing.T) {
	f := newHandlerFixture(t)
	trade := f.createTrade(t, "TSLA")

	rec := f.do(http.MethodGet, "/api/trades/"+trade.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/trades/pt_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTradesHandler_ApproveExecutes(t *testing.T) {
	f := newHandlerFixture(t)
	trade := f.createTrade(t, "TSLA")

	rec := f.do(http.MethodPost, "/api/trades/"+trade.ID+"/approve",
		map[string]string{"reason": "solid signal"})
	require.Equal(t, http.StatusOK, rec.Code)

	var decided contracts.PendingTrade
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decided))
	assert.Equal(t, contracts.TradeApproved, decided.Status)
	assert.Equal(t, "solid signal", decided.DecisionReason)
	assert.Equal(t, 1, f.venue.SubmitCalls)
}

func TestTradesHandler_RejectWithoutBody(t *testing.T) {
	f := newHandlerFixture(t)
	trade := f.createTrade(t, "TSLA")

	rec := f.do(http.MethodPost, "/api/trades/"+trade.ID+"/reject", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.venue.SubmitCalls)
}

func TestTradesHandler_DecideErrorStatuses(t *testing.T) {
	f := newHandlerFixture(t)
	trade := f.createTrade(t, "TSLA")

	// Unknown ID
	rec := f.do(http.MethodPost, "/api/trades/pt_missing/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Already decided
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/trades/"+trade.ID+"/reject", nil).Code)
	rec = f.do(http.MethodPost, "/api/trades/"+trade.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTradesHandler_BulkDecide(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.createTrade(t, "TSLA")
	b := f.createTrade(t, "AAPL")

	rec := f.do(http.MethodPost, "/api/trades/bulk", map[string]interface{}{
		"ids":    []string{a.ID, "pt_missing", b.ID},
		"action": "reject",
		"reason": "cleanup",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result trading.BulkResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, []string{a.ID, b.ID}, result.Processed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "pt_missing", result.Errors[0].ID)
}

func TestTradesHandler_BulkDecideValidation(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/api/trades/bulk", map[string]interface{}{
		"ids":    []string{"pt_1"},
		"action": "maybe",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/trades/bulk", map[string]interface{}{
		"ids":    []string{},
		"action": "approve",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
