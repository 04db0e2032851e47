package trading

import (
	"context"
	"errors"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

// Router gates qualifying trade signals and routes them by trading mode:
// autopilot executes immediately, manual creates a pending trade for
// human approval. Mode is fixed at process start.
type Router struct {
	cfg      config.TradingConfig
	limiter  *RateLimiter
	executor *Executor
	store    *Store
	logger   *logger.Logger
}

// NewRouter creates a decision router
func NewRouter(cfg config.TradingConfig, limiter *RateLimiter, executor *Executor, store *Store, log *logger.Logger) *Router {
	return &Router{
		cfg:      cfg,
		limiter:  limiter,
		executor: executor,
		store:    store,
		logger:   log,
	}
}

// Route handles one signal. A non-qualifying signal is skipped silently
// (logged at debug); a qualifying one is executed or proposed.
func (r *Router) Route(ctx context.Context, signal *contracts.TradeSignal, source *contracts.ContentItem, market *contracts.MarketData, sent *contracts.SentimentResult) error {
	if !r.qualifies(signal, sent) {
		return nil
	}

	if !r.limiter.CanTrade(signal.Symbol) {
		r.logger.WithFields(map[string]interface{}{
			"symbol": signal.Symbol,
			"action": signal.Action,
		}).Debug("Signal skipped, symbol in cooldown")
		return nil
	}

	if r.cfg.Mode == config.ModeAutopilot {
		_, err := r.executor.Execute(ctx, signal)
		if errors.Is(err, ErrCooldownActive) {
			// The executor holds the authoritative check; losing the
			// race to a concurrent task is a skip, not a failure.
			return nil
		}
		return err
	}

	_, err := r.store.Create(ctx, *signal, source, market, sent)
	return err
}

// qualifies applies the static signal gates
func (r *Router) qualifies(signal *contracts.TradeSignal, sent *contracts.SentimentResult) bool {
	if !signal.IsActionable() {
		return false
	}

	if signal.Confidence <= r.cfg.ConfidenceThreshold {
		r.logger.WithFields(map[string]interface{}{
			"symbol":     signal.Symbol,
			"confidence": signal.Confidence,
		}).Debug("Signal skipped, confidence below threshold")
		return false
	}

	if sent != nil && sent.Magnitude < r.cfg.MagnitudeThreshold {
		r.logger.WithFields(map[string]interface{}{
			"symbol":    signal.Symbol,
			"magnitude": sent.Magnitude,
		}).Debug("Signal skipped, sentiment magnitude below threshold")
		return false
	}

	return true
}
