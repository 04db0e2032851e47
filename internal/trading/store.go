package trading

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

// Store owns the pending-trade lifecycle: pending → approved, rejected
// or expired, all terminal and irreversible. It keeps an in-memory
// active set for queries and the sweep, persisting every transition.
type Store struct {
	persistence contracts.Persistence
	executor    *Executor
	bus         *events.Bus
	cfg         config.TradingConfig
	logger      *logger.Logger

	mu     sync.Mutex
	active map[string]*contracts.PendingTrade

	sweeping atomic.Bool

	created uint64
	decided uint64
	expired uint64
}

// NewStore creates a pending-trade store
func NewStore(persistence contracts.Persistence, executor *Executor, bus *events.Bus, cfg config.TradingConfig, log *logger.Logger) *Store {
	return &Store{
		persistence: persistence,
		executor:    executor,
		bus:         bus,
		cfg:         cfg,
		logger:      log,
		active:      make(map[string]*contracts.PendingTrade),
	}
}

// Hydrate loads still-pending trades persisted by a previous run
func (s *Store) Hydrate(ctx context.Context) error {
	trades, err := s.persistence.LoadActivePendingTrades(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active pending trades: %w", err)
	}

	s.mu.Lock()
	for _, t := range trades {
		if t.Status == contracts.TradePending {
			s.active[t.ID] = t
		}
	}
	count := len(s.active)
	s.mu.Unlock()

	s.logger.WithField("count", count).Info("Hydrated pending trades")
	return nil
}

// Create registers a new pending trade awaiting human decision
func (s *Store) Create(ctx context.Context, signal contracts.TradeSignal, source *contracts.ContentItem, market *contracts.MarketData, sent *contracts.SentimentResult) (*contracts.PendingTrade, error) {
	now := time.Now()
	trade := &contracts.PendingTrade{
		ID:        fmt.Sprintf("pt_%d", now.UnixNano()),
		Signal:    signal,
		Source:    source,
		Market:    market,
		Sentiment: sent,
		Status:    contracts.TradePending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.PendingExpiry),
	}

	if err := s.persistence.SavePendingTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to persist pending trade: %w", err)
	}

	s.mu.Lock()
	s.active[trade.ID] = trade
	s.created++
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"id":         trade.ID,
		"symbol":     signal.Symbol,
		"action":     signal.Action,
		"expires_at": trade.ExpiresAt,
	}).Info("Pending trade created")

	s.bus.Publish(events.NewTradeEvent(events.PendingTradeCreated, snapshot(trade)))
	return trade, nil
}

// DecideAction is a human verdict on a pending trade
type DecideAction string

const (
	DecideApprove DecideAction = "approve"
	DecideReject  DecideAction = "reject"
)

// Decide applies a human verdict. Fails on unknown, already-decided or
// expired trades; an expired trade fails even before the sweep ran.
// Approval triggers execution of the embedded signal exactly once.
func (s *Store) Decide(ctx context.Context, id string, action DecideAction, reason string) (*contracts.PendingTrade, error) {
	s.mu.Lock()
	trade, ok := s.active[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}
	if trade.Status != contracts.TradePending {
		status := trade.Status
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrTradeNotPending, id, status)
	}
	if trade.Expired(time.Now()) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTradeExpired, id)
	}

	now := time.Now()
	switch action {
	case DecideApprove:
		trade.Status = contracts.TradeApproved
	case DecideReject:
		trade.Status = contracts.TradeRejected
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("unknown decision action: %s", action)
	}
	trade.DecidedAt = &now
	trade.DecisionReason = reason
	s.decided++
	result := snapshot(trade)
	s.mu.Unlock()

	if err := s.persistence.UpdatePendingTradeStatus(ctx, id, result.Status, reason, now); err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("Failed to persist trade decision")
	}

	s.logger.WithFields(map[string]interface{}{
		"id":     id,
		"status": result.Status,
		"reason": reason,
	}).Info("Pending trade decided")

	if result.Status == contracts.TradeApproved {
		s.bus.Publish(events.NewTradeEvent(events.PendingTradeApproved, result))

		// Execution failure does not revert the approval; the outcome is
		// surfaced through the executor's own events.
		if _, err := s.executor.Execute(ctx, &result.Signal); err != nil {
			s.logger.WithError(err).WithField("id", id).
				Error("Approved trade failed to execute")
		}
	} else {
		s.bus.Publish(events.NewTradeEvent(events.PendingTradeRejected, result))
	}

	// The record stays queryable for a short grace period so event
	// consumers can finish reacting, then leaves the active set.
	s.scheduleRemoval(id)

	return result, nil
}

// BulkError records a per-ID failure within a bulk decision
type BulkError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult reports the outcome of a bulk decision
type BulkResult struct {
	Processed []string    `json:"processed"`
	Errors    []BulkError `json:"errors"`
}

// BulkDecide applies one verdict to many trades, sequentially and in the
// given order. A failure on one ID is collected and does not stop the
// rest; there is no transaction across IDs.
func (s *Store) BulkDecide(ctx context.Context, ids []string, action DecideAction, reason string) BulkResult {
	result := BulkResult{
		Processed: make([]string, 0, len(ids)),
	}

	for _, id := range ids {
		if _, err := s.Decide(ctx, id, action, reason); err != nil {
			result.Errors = append(result.Errors, BulkError{ID: id, Error: err.Error()})
			continue
		}
		result.Processed = append(result.Processed, id)
	}

	return result
}

// Get returns a trade from the active set
func (s *Store) Get(id string) (*contracts.PendingTrade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.active[id]
	if !ok {
		return nil, false
	}
	return snapshot(trade), true
}

// ListPending returns all pending trades, oldest first
func (s *Store) ListPending() []*contracts.PendingTrade {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*contracts.PendingTrade, 0, len(s.active))
	for _, trade := range s.active {
		if trade.Status == contracts.TradePending {
			out = append(out, snapshot(trade))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Sweep expires overdue pending trades and purges old records from the
// active set. Skips entirely if a previous sweep is still running.
func (s *Store) Sweep(ctx context.Context) {
	if !s.sweeping.CompareAndSwap(false, true) {
		s.logger.Debug("Sweep already running, skipped")
		return
	}
	defer s.sweeping.Store(false)

	now := time.Now()
	var toExpire []*contracts.PendingTrade
	var toPurge []string

	s.mu.Lock()
	for id, trade := range s.active {
		if trade.Status == contracts.TradePending && trade.Expired(now) {
			trade.Status = contracts.TradeExpired
			decidedAt := now
			trade.DecidedAt = &decidedAt
			s.expired++
			toExpire = append(toExpire, snapshot(trade))
			continue
		}

		// Bound memory: nothing outlives the retention window
		if now.Sub(trade.CreatedAt) > s.cfg.Retention {
			toPurge = append(toPurge, id)
		}
	}
	for _, id := range toPurge {
		delete(s.active, id)
	}
	s.mu.Unlock()

	for _, trade := range toExpire {
		if err := s.persistence.UpdatePendingTradeStatus(ctx, trade.ID, contracts.TradeExpired, "expired by sweep", now); err != nil {
			s.logger.WithError(err).WithField("id", trade.ID).
				Warn("Failed to persist expiry")
		}

		s.logger.WithFields(map[string]interface{}{
			"id":     trade.ID,
			"symbol": trade.Signal.Symbol,
		}).Info("Pending trade expired")

		s.bus.Publish(events.NewTradeEvent(events.PendingTradeExpired, trade))
		s.scheduleRemoval(trade.ID)
	}

	if len(toPurge) > 0 {
		s.logger.WithField("count", len(toPurge)).Debug("Purged trades past retention")
	}
}

// scheduleRemoval drops a terminal trade from the active set after the
// grace period
func (s *Store) scheduleRemoval(id string) {
	time.AfterFunc(s.cfg.DecisionGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.active, id)
	})
}

// snapshot copies a trade so callers never share the store's instance
func snapshot(t *contracts.PendingTrade) *contracts.PendingTrade {
	cp := *t
	return &cp
}

// StoreStats is a point-in-time snapshot of store counters
type StoreStats struct {
	Active  int    `json:"active"`
	Pending int    `json:"pending"`
	Created uint64 `json:"created"`
	Decided uint64 `json:"decided"`
	Expired uint64 `json:"expired"`
}

// Stats returns store counters
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := 0
	for _, t := range s.active {
		if t.Status == contracts.TradePending {
			pending++
		}
	}
	return StoreStats{
		Active:  len(s.active),
		Pending: pending,
		Created: s.created,
		Decided: s.decided,
		Expired: s.expired,
	}
}
