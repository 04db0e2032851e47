package trading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/pkg/logger"
)

func buySignal(symbol string) *contracts.TradeSignal {
	return &contracts.TradeSignal{
		Action:     contracts.ActionBuy,
		Symbol:     symbol,
		Confidence: 0.9,
		Notional:   100,
		Timestamp:  time.Now(),
	}
}

func newTestExecutor(venue *contracts.MockVenue, persistence *contracts.MockPersistence) (*Executor, *RateLimiter, *events.Bus) {
	limiter := NewRateLimiter(time.Hour)
	bus := events.NewBus(logger.NewNop())
	e := NewExecutor(venue, limiter, persistence, bus, logger.NewNop())
	return e, limiter, bus
}

func TestExecutor_SuccessfulExecution(t *testing.T) {
	venue := contracts.NewMockVenue()
	venue.Prices["TSLA"] = 250
	persistence := contracts.NewMockPersistence()
	e, limiter, bus := newTestExecutor(venue, persistence)
	defer bus.Close()

	result, err := e.Execute(context.Background(), buySignal("TSLA"))
	require.NoError(t, err)

	assert.Equal(t, contracts.ExecutionCompleted, result.Status)
	assert.Equal(t, 250.0, result.Price)
	assert.Equal(t, 1, venue.SubmitCalls)

	order := venue.Submitted[0]
	assert.Equal(t, "market", order.Type)
	assert.Equal(t, "day", order.TimeInForce)
	assert.Equal(t, contracts.ActionBuy, order.Side)

	// Outcome persisted, cooldown consumed
	assert.Len(t, persistence.Performance, 1)
	assert.False(t, limiter.CanTrade("TSLA"))
	assert.Equal(t, uint64(1), e.Stats().Executed)
}

func TestExecutor_FailureRecordedNotRetried(t *testing.T) {
	venue := contracts.NewMockVenue()
	venue.SubmitErr = errors.New("connection refused")
	persistence := contracts.NewMockPersistence()
	e, limiter, bus := newTestExecutor(venue, persistence)
	defer bus.Close()

	result, err := e.Execute(context.Background(), buySignal("TSLA"))

	require.Error(t, err)
	assert.Equal(t, 1, venue.SubmitCalls, "a failed order is never resubmitted")
	assert.Equal(t, contracts.ExecutionFailed, result.Status)
	assert.Contains(t, result.Error, "connection refused")

	// Failed attempt still consumes the cooldown and is persisted
	assert.False(t, limiter.CanTrade("TSLA"))
	require.Len(t, persistence.Performance, 1)
	assert.Equal(t, contracts.ExecutionFailed, persistence.Performance[0].Status)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(1), stats.Errors["connectivity"])
}

func TestExecutor_CooldownBlocksBackToBackExecutions(t *testing.T) {
	venue := contracts.NewMockVenue()
	persistence := contracts.NewMockPersistence()
	e, _, bus := newTestExecutor(venue, persistence)
	defer bus.Close()

	_, err := e.Execute(context.Background(), buySignal("BTC"))
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), buySignal("BTC"))
	assert.ErrorIs(t, err, ErrCooldownActive)
	assert.Equal(t, 1, venue.SubmitCalls, "one execution per symbol per cooldown window")
	assert.Equal(t, uint64(1), e.Stats().Errors["cooldown"])

	// Another symbol is unaffected
	_, err = e.Execute(context.Background(), buySignal("ETH"))
	require.NoError(t, err)
	assert.Equal(t, 2, venue.SubmitCalls)
}

func TestExecutor_FailedAttemptStillHoldsCooldown(t *testing.T) {
	venue := contracts.NewMockVenue()
	venue.SubmitErr = errors.New("connection refused")
	e, _, bus := newTestExecutor(venue, contracts.NewMockPersistence())
	defer bus.Close()

	_, err := e.Execute(context.Background(), buySignal("BTC"))
	require.Error(t, err)

	venue.SubmitErr = nil
	_, err = e.Execute(context.Background(), buySignal("BTC"))
	assert.ErrorIs(t, err, ErrCooldownActive)
	assert.Equal(t, 1, venue.SubmitCalls)
}

func TestExecutor_FailureCategories(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{"context deadline exceeded", "timeout"},
		{"dial tcp: no such host", "connectivity"},
		{"unexpected status 403: forbidden", "rejected"},
		{"internal venue error", "venue"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			venue := contracts.NewMockVenue()
			venue.SubmitErr = errors.New(tt.err)
			e, _, bus := newTestExecutor(venue, contracts.NewMockPersistence())
			defer bus.Close()

			_, err := e.Execute(context.Background(), buySignal("TSLA"))
			require.Error(t, err)
			assert.Equal(t, uint64(1), e.Stats().Errors[tt.want])
		})
	}
}

func TestExecutor_PublishesExecutionEvents(t *testing.T) {
	venue := contracts.NewMockVenue()
	persistence := contracts.NewMockPersistence()
	e, _, bus := newTestExecutor(venue, persistence)
	defer bus.Close()

	got := make(chan events.Event, 1)
	bus.Subscribe(events.TradeExecuted, func(ev events.Event) {
		got <- ev
	})

	_, err := e.Execute(context.Background(), buySignal("TSLA"))
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, "TSLA", ev.Symbol)
		require.NotNil(t, ev.Execution)
		assert.Equal(t, contracts.ExecutionCompleted, ev.Execution.Status)
	case <-time.After(time.Second):
		t.Fatal("no execution event published")
	}
}
