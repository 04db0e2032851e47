package tickers

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

// Resolver maps a content item to the instrument symbols it mentions.
// Extraction is delegated to the engine and cached by text. Replies with
// no extractable symbols inherit from their parent: for free if the
// parent was resolved this session, via an on-demand fetch only for
// high-value replies. Resolved sets are filtered against the venue
// universe and capped.
type Resolver struct {
	cache    *Cache
	engine   contracts.SentimentEngine
	source   contracts.ContentSource
	universe *Universe
	logger   *logger.Logger
	cfg      config.TickersConfig

	// parent item ID -> symbols resolved this session, empty sets
	// included. Trimmed in insertion order at the same bounds as the
	// extraction cache so a long-running process stays flat.
	parentMu    sync.Mutex
	parentMap   map[string][]string
	parentOrder []string

	inherited     uint64
	parentFetches uint64
}

// NewResolver creates a resolver
func NewResolver(cache *Cache, engine contracts.SentimentEngine, source contracts.ContentSource, universe *Universe, cfg config.TickersConfig, log *logger.Logger) *Resolver {
	return &Resolver{
		cache:     cache,
		engine:    engine,
		source:    source,
		universe:  universe,
		logger:    log,
		cfg:       cfg,
		parentMap: make(map[string][]string),
	}
}

// Resolve returns the tradable symbols mentioned by the item, at most
// MaxPerItem of them
func (r *Resolver) Resolve(ctx context.Context, item *contracts.ContentItem) ([]string, error) {
	symbols, err := r.extract(ctx, item.Text())
	if err != nil {
		return nil, err
	}

	if len(symbols) == 0 && item.IsReply() {
		symbols = r.inheritFromParent(ctx, item)
	}

	// Record even empty sets so descendants can inherit the verdict
	r.recordParent(item.ID, symbols)

	filtered := r.universe.Filter(symbols)
	if len(filtered) > r.cfg.MaxPerItem {
		filtered = filtered[:r.cfg.MaxPerItem]
	}

	return filtered, nil
}

// extract returns the deduplicated uppercase symbols for a text, from
// cache or the engine
func (r *Resolver) extract(ctx context.Context, text string) ([]string, error) {
	if symbols, ok := r.cache.Get(text); ok {
		return symbols, nil
	}

	raw, err := r.engine.ExtractSymbols(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("symbol extraction failed: %w", err)
	}

	symbols := dedupe(raw)
	r.cache.Put(text, symbols)
	return symbols, nil
}

// inheritFromParent resolves a symbol-less reply through its parent.
// The in-session map is free; an on-demand parent fetch is paid only for
// high-value replies.
func (r *Resolver) inheritFromParent(ctx context.Context, item *contracts.ContentItem) []string {
	r.parentMu.Lock()
	symbols, ok := r.parentMap[item.ParentID]
	r.parentMu.Unlock()

	if ok {
		if len(symbols) > 0 {
			r.parentMu.Lock()
			r.inherited++
			r.parentMu.Unlock()

			r.logger.WithFields(map[string]interface{}{
				"item":   item.ID,
				"parent": item.ParentID,
			}).Debug("Inherited symbols from parent")
		}
		return symbols
	}

	if !item.HighValue() {
		return nil
	}

	parent, err := r.source.GetItemByID(ctx, item.ParentID)
	if err != nil {
		r.logger.WithError(err).WithField("parent", item.ParentID).
			Warn("Parent fetch failed")
		return nil
	}

	r.parentMu.Lock()
	r.parentFetches++
	r.parentMu.Unlock()

	parentSymbols, err := r.extract(ctx, parent.Text())
	if err != nil {
		r.logger.WithError(err).WithField("parent", item.ParentID).
			Warn("Parent resolution failed")
		return nil
	}

	r.recordParent(parent.ID, parentSymbols)

	return parentSymbols
}

// recordParent stores an item's verdict for its descendants, trimming
// the oldest entries once the map outgrows the cache bound
func (r *Resolver) recordParent(id string, symbols []string) {
	r.parentMu.Lock()
	defer r.parentMu.Unlock()

	if _, ok := r.parentMap[id]; !ok {
		r.parentOrder = append(r.parentOrder, id)
	}
	r.parentMap[id] = symbols

	if r.cfg.CacheMaxEntries <= 0 || len(r.parentOrder) <= r.cfg.CacheMaxEntries {
		return
	}

	trim := r.cfg.CacheTrimCount
	if trim < 1 {
		trim = 1
	}
	if trim > len(r.parentOrder) {
		trim = len(r.parentOrder)
	}
	for _, old := range r.parentOrder[:trim] {
		delete(r.parentMap, old)
	}
	r.parentOrder = append(r.parentOrder[:0], r.parentOrder[trim:]...)
}

// dedupe uppercases, trims and deduplicates raw mentions, order preserved
func dedupe(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		symbol := contracts.NormalizeSymbol(s)
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}

// ResolverStats is a point-in-time snapshot of resolver counters
type ResolverStats struct {
	Cache         CacheStats `json:"cache"`
	Inherited     uint64     `json:"inherited"`
	ParentFetches uint64     `json:"parent_fetches"`
}

// Stats returns resolver counters
func (r *Resolver) Stats() ResolverStats {
	r.parentMu.Lock()
	defer r.parentMu.Unlock()
	return ResolverStats{
		Cache:         r.cache.Stats(),
		Inherited:     r.inherited,
		ParentFetches: r.parentFetches,
	}
}
