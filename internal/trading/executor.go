package trading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/pkg/logger"
)

// Executor is the single entry point for submitting trades to the venue.
// Both autopilot signals and approved pending trades funnel through
// Execute, which is why at most one execution result exists per signal.
// A failed submission is recorded and surfaced via event but never
// retried: an unconditional retry on a financial order risks duplicate
// fills.
type Executor struct {
	venue       contracts.Venue
	limiter     *RateLimiter
	persistence contracts.Persistence
	bus         *events.Bus
	logger      *logger.Logger

	mu          sync.Mutex
	executed    uint64
	failed      uint64
	errorCounts map[string]uint64
}

// NewExecutor creates an executor
func NewExecutor(venue contracts.Venue, limiter *RateLimiter, persistence contracts.Persistence, bus *events.Bus, log *logger.Logger) *Executor {
	return &Executor{
		venue:       venue,
		limiter:     limiter,
		persistence: persistence,
		bus:         bus,
		logger:      log,
		errorCounts: make(map[string]uint64),
	}
}

// Execute submits a signal to the venue and records the outcome. The
// cooldown check and the trade record are one atomic step here, so
// concurrent signals and approvals on the same symbol cannot both pass.
// The reservation is kept even when the submission fails: a flaky venue
// must not be hammered with rapid retries.
func (e *Executor) Execute(ctx context.Context, signal *contracts.TradeSignal) (*contracts.TradeExecutionResult, error) {
	if !e.limiter.Reserve(signal.Symbol, time.Now()) {
		e.mu.Lock()
		e.errorCounts["cooldown"]++
		e.mu.Unlock()

		e.logger.WithField("symbol", signal.Symbol).
			Warn("Execution blocked, symbol in cooldown")
		return nil, fmt.Errorf("%w: %s", ErrCooldownActive, signal.Symbol)
	}

	order := &contracts.OrderRequest{
		Symbol:      signal.Symbol,
		Side:        signal.Action,
		Notional:    signal.Notional,
		Type:        "market",
		TimeInForce: "day",
	}

	result, err := e.venue.SubmitOrder(ctx, order)
	if err != nil {
		result = &contracts.TradeExecutionResult{
			Symbol:     signal.Symbol,
			Action:     signal.Action,
			Notional:   signal.Notional,
			Status:     contracts.ExecutionFailed,
			Error:      err.Error(),
			ExecutedAt: time.Now(),
		}

		e.recordFailure(err)

		e.logger.WithFields(map[string]interface{}{
			"symbol": signal.Symbol,
			"action": signal.Action,
			"error":  err.Error(),
		}).Error("Trade execution failed")

		if perr := e.persistence.SaveTradePerformance(ctx, result); perr != nil {
			e.logger.WithError(perr).Warn("Failed to persist execution result")
		}

		e.bus.Publish(events.NewExecutionEvent(events.TradeExecutionFailed, result))
		return result, fmt.Errorf("order submission failed: %w", err)
	}

	e.mu.Lock()
	e.executed++
	e.mu.Unlock()

	e.logger.WithFields(map[string]interface{}{
		"symbol":   result.Symbol,
		"action":   result.Action,
		"order_id": result.OrderID,
		"price":    result.Price,
	}).Info("Trade executed")

	if perr := e.persistence.SaveTradePerformance(ctx, result); perr != nil {
		e.logger.WithError(perr).Warn("Failed to persist execution result")
	}

	e.bus.Publish(events.NewExecutionEvent(events.TradeExecuted, result))
	return result, nil
}

// recordFailure counts an execution error by rough category
func (e *Executor) recordFailure(err error) {
	category := "venue"
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline"), strings.Contains(msg, "timeout"):
		category = "timeout"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "no such host"):
		category = "connectivity"
	case strings.Contains(msg, "status 4"):
		category = "rejected"
	}

	e.mu.Lock()
	e.failed++
	e.errorCounts[category]++
	e.mu.Unlock()
}

// ExecutorStats is a point-in-time snapshot of executor counters
type ExecutorStats struct {
	Executed uint64            `json:"executed"`
	Failed   uint64            `json:"failed"`
	Errors   map[string]uint64 `json:"errors"`
}

// Stats returns executor counters
func (e *Executor) Stats() ExecutorStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	errs := make(map[string]uint64, len(e.errorCounts))
	for k, v := range e.errorCounts {
		errs[k] = v
	}
	return ExecutorStats{
		Executed: e.executed,
		Failed:   e.failed,
		Errors:   errs,
	}
}
