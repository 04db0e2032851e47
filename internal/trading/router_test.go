package trading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

type routerFixture struct {
	router      *Router
	store       *Store
	venue       *contracts.MockVenue
	persistence *contracts.MockPersistence
	limiter     *RateLimiter
}

func newRouterFixture(t *testing.T, mode config.TradingMode) *routerFixture {
	t.Helper()

	cfg := testTradingConfig()
	cfg.Mode = mode

	venue := contracts.NewMockVenue()
	persistence := contracts.NewMockPersistence()
	bus := events.NewBus(logger.NewNop())
	t.Cleanup(bus.Close)

	limiter := NewRateLimiter(cfg.CooldownInterval())
	executor := NewExecutor(venue, limiter, persistence, bus, logger.NewNop())
	store := NewStore(persistence, executor, bus, cfg, logger.NewNop())
	router := NewRouter(cfg, limiter, executor, store, logger.NewNop())

	return &routerFixture{
		router:      router,
		store:       store,
		venue:       venue,
		persistence: persistence,
		limiter:     limiter,
	}
}

func strongSentiment(symbol string) *contracts.SentimentResult {
	return &contracts.SentimentResult{
		Symbol: symbol, Score: 0.8, Magnitude: 0.7, Confidence: 0.9,
	}
}

func TestRouter_AutopilotExecutesImmediately(t *testing.T) {
	f := newRouterFixture(t, config.ModeAutopilot)

	err := f.router.Route(context.Background(), buySignal("TSLA"), nil, nil, strongSentiment("TSLA"))
	require.NoError(t, err)

	assert.Equal(t, 1, f.venue.SubmitCalls)
	assert.Empty(t, f.store.ListPending(), "autopilot never proposes")
}

func TestRouter_ManualCreatesPendingTrade(t *testing.T) {
	f := newRouterFixture(t, config.ModeManual)

	err := f.router.Route(context.Background(), buySignal("TSLA"), nil, nil, strongSentiment("TSLA"))
	require.NoError(t, err)

	assert.Equal(t, 0, f.venue.SubmitCalls, "manual mode defers execution")

	pending := f.store.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "TSLA", pending[0].Signal.Symbol)
}

func TestRouter_HoldSignalSkipped(t *testing.T) {
	f := newRouterFixture(t, config.ModeAutopilot)

	hold := buySignal("TSLA")
	hold.Action = contracts.ActionHold

	err := f.router.Route(context.Background(), hold, nil, nil, strongSentiment("TSLA"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.venue.SubmitCalls)
}

func TestRouter_LowConfidenceSkipped(t *testing.T) {
	f := newRouterFixture(t, config.ModeAutopilot)

	weak := buySignal("TSLA")
	weak.Confidence = 0.5 // threshold is 0.6, gate is strict

	err := f.router.Route(context.Background(), weak, nil, nil, strongSentiment("TSLA"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.venue.SubmitCalls)
}

func TestRouter_ConfidenceAtThresholdSkipped(t *testing.T) {
	f := newRouterFixture(t, config.ModeAutopilot)

	borderline := buySignal("TSLA")
	borderline.Confidence = 0.6

	err := f.router.Route(context.Background(), borderline, nil, nil, strongSentiment("TSLA"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.venue.SubmitCalls, "confidence must exceed the threshold")
}

func TestRouter_WeakMagnitudeSkipped(t *testing.T) {
	f := newRouterFixture(t, config.ModeAutopilot)

	sent := strongSentiment("TSLA")
	sent.Magnitude = 0.5 // threshold is 0.6 inclusive

	err := f.router.Route(context.Background(), buySignal("TSLA"), nil, nil, sent)
	require.NoError(t, err)
	assert.Equal(t, 0, f.venue.SubmitCalls)
}

func TestRouter_MagnitudeAtThresholdPasses(t *testing.T) {
	f := newRouterFixture(t, config.ModeAutopilot)

	sent := strongSentiment("TSLA")
	sent.Magnitude = 0.6

	err := f.router.Route(context.Background(), buySignal("TSLA"), nil, nil, sent)
	require.NoError(t, err)
	assert.Equal(t, 1, f.venue.SubmitCalls)
}

func TestRouter_CooldownBlocksSecondTrade(t *testing.T) {
	f := newRouterFixture(t, config.ModeAutopilot)

	err := f.router.Route(context.Background(), buySignal("TSLA"), nil, nil, strongSentiment("TSLA"))
	require.NoError(t, err)

	err = f.router.Route(context.Background(), buySignal("TSLA"), nil, nil, strongSentiment("TSLA"))
	require.NoError(t, err, "a cooled-down signal is skipped, not an error")
	assert.Equal(t, 1, f.venue.SubmitCalls)

	// A different symbol is unaffected
	err = f.router.Route(context.Background(), buySignal("AAPL"), nil, nil, strongSentiment("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.venue.SubmitCalls)
}

func TestRouter_CooldownAppliesInManualMode(t *testing.T) {
	f := newRouterFixture(t, config.ModeManual)

	// Simulate a recent execution on the symbol
	f.limiter.RecordTrade("TSLA", time.Now())

	err := f.router.Route(context.Background(), buySignal("TSLA"), nil, nil, strongSentiment("TSLA"))
	require.NoError(t, err)
	assert.Empty(t, f.store.ListPending(), "cooldown also suppresses proposals")
}
