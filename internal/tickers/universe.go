package tickers

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/logger"
)

// fallbackSymbols is used until the first successful refresh and after
// refresh failures with no prior snapshot
var fallbackSymbols = []string{
	"AAPL", "AMC", "AMD", "AMZN", "BB", "BTC", "COIN", "DOGE", "ETH",
	"GME", "GOOG", "META", "MSFT", "NVDA", "PLTR", "SOFI", "SPY", "TSLA",
}

// Universe tracks the venue's supported-symbol set. Refreshed
// periodically by a scheduled job; on refresh failure the previous
// (stale) snapshot keeps serving.
type Universe struct {
	venue  contracts.Venue
	logger *logger.Logger

	mu          sync.RWMutex
	symbols     map[string]struct{}
	refreshedAt time.Time
	stale       bool
}

// NewUniverse creates a universe seeded with the fallback list
func NewUniverse(venue contracts.Venue, log *logger.Logger) *Universe {
	symbols := make(map[string]struct{}, len(fallbackSymbols))
	for _, s := range fallbackSymbols {
		symbols[s] = struct{}{}
	}
	return &Universe{
		venue:   venue,
		logger:  log,
		symbols: symbols,
		stale:   true,
	}
}

// Refresh pulls the supported-symbol list from the venue. A failed
// refresh leaves the previous snapshot in place, marked stale.
func (u *Universe) Refresh(ctx context.Context) error {
	symbols, err := u.venue.GetSupportedSymbols(ctx)
	if err != nil {
		u.mu.Lock()
		u.stale = true
		u.mu.Unlock()

		u.logger.WithError(err).Warn("Symbol universe refresh failed, keeping stale list")
		return err
	}

	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[contracts.NormalizeSymbol(s)] = struct{}{}
	}

	u.mu.Lock()
	u.symbols = set
	u.refreshedAt = time.Now()
	u.stale = false
	u.mu.Unlock()

	u.logger.WithField("count", len(set)).Info("Symbol universe refreshed")
	return nil
}

// Contains reports whether a symbol is tradable on the venue
func (u *Universe) Contains(symbol string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.symbols[symbol]
	return ok
}

// Filter returns only the symbols supported by the venue, order preserved
func (u *Universe) Filter(symbols []string) []string {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := u.symbols[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Stale reports whether the current snapshot came from the fallback list
// or survived a failed refresh
func (u *Universe) Stale() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.stale
}
