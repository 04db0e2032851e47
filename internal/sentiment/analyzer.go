package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

// Analyzer wraps the external scoring engine with consumption-side
// logic: near-duplicate reuse, one-shot reply enrichment with parent
// context, and engagement-based score weighting. Scoring itself stays a
// black box.
type Analyzer struct {
	engine contracts.SentimentEngine
	source contracts.ContentSource
	cfg    config.SentimentConfig
	logger *logger.Logger

	mu     sync.Mutex
	recent map[string][]recentResult
	reused uint64
}

// recentResult is a reuse-window entry for one symbol
type recentResult struct {
	tokens map[string]struct{}
	result contracts.SentimentResult
	at     time.Time
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(engine contracts.SentimentEngine, source contracts.ContentSource, cfg config.SentimentConfig, log *logger.Logger) *Analyzer {
	return &Analyzer{
		engine: engine,
		source: source,
		cfg:    cfg,
		logger: log,
		recent: make(map[string][]recentResult),
	}
}

// Score returns the sentiment for (item, symbol), reusing a recent
// near-duplicate result when one exists
func (a *Analyzer) Score(ctx context.Context, item *contracts.ContentItem, symbol string) (*contracts.SentimentResult, error) {
	text := item.Text()
	tokens := tokenSet(text)

	if prior := a.findReusable(symbol, tokens); prior != nil {
		a.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"item":   item.ID,
		}).Debug("Reused near-duplicate sentiment")
		return prior, nil
	}

	result, err := a.engine.ScoreSentiment(ctx, text, symbol)
	if err != nil {
		return nil, fmt.Errorf("sentiment scoring failed: %w", err)
	}

	result = a.enrichWeakReply(ctx, item, symbol, result)
	a.applyEngagementWeight(item, result)

	a.remember(symbol, tokens, result)
	return result, nil
}

// findReusable scans the lookback window for a token-set near-duplicate.
// Returns a verbatim copy tagged as reused, or nil.
func (a *Analyzer) findReusable(symbol string, tokens map[string]struct{}) *contracts.SentimentResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-a.cfg.ReuseLookback)
	entries := a.recent[symbol]

	// Prune expired entries while scanning; keeps the window bounded
	kept := entries[:0]
	var match *contracts.SentimentResult
	for _, e := range entries {
		if e.at.Before(cutoff) {
			continue
		}
		kept = append(kept, e)

		if match == nil && similarity(tokens, e.tokens) >= a.cfg.SimilarityThreshold {
			cp := e.result
			cp.Reused = true
			match = &cp
		}
	}
	a.recent[symbol] = kept

	if match != nil {
		a.reused++
	}
	return match
}

// enrichWeakReply re-scores once with the parent's text prepended when a
// substantial reply came back weak. One extra call, never a loop.
func (a *Analyzer) enrichWeakReply(ctx context.Context, item *contracts.ContentItem, symbol string, result *contracts.SentimentResult) *contracts.SentimentResult {
	if !item.IsComment || !item.IsReply() {
		return result
	}
	if result.Magnitude >= a.cfg.WeakMagnitude {
		return result
	}
	if len(item.Text()) <= a.cfg.MinReplyLength {
		return result
	}

	parent, err := a.source.GetItemByID(ctx, item.ParentID)
	if err != nil {
		a.logger.WithError(err).WithField("parent", item.ParentID).
			Debug("Parent fetch for enrichment failed")
		return result
	}

	enriched, err := a.engine.ScoreSentiment(ctx, parent.Text()+"\n\n"+item.Text(), symbol)
	if err != nil {
		a.logger.WithError(err).Debug("Enriched re-score failed, keeping original")
		return result
	}

	return enriched
}

// applyEngagementWeight scales the score by engagement with diminishing
// returns, so viral content nudges rather than dominates
func (a *Analyzer) applyEngagementWeight(item *contracts.ContentItem, result *contracts.SentimentResult) {
	if item.Score <= 5 {
		return
	}

	weight := 1 + 0.05*math.Log10(float64(item.Score))
	result.Score = clamp(result.Score*weight, -1, 1)
}

// remember records the final result in the reuse window
func (a *Analyzer) remember(symbol string, tokens map[string]struct{}, result *contracts.SentimentResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recent[symbol] = append(a.recent[symbol], recentResult{
		tokens: tokens,
		result: *result,
		at:     time.Now(),
	})
}

// ReuseCount returns how many scores were served from the reuse window
func (a *Analyzer) ReuseCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reused
}

// tokenSet returns the lowercase words longer than 3 characters
func tokenSet(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if len(word) > 3 {
			tokens[word] = struct{}{}
		}
	}
	return tokens
}

// similarity computes intersection-over-union of two token sets
func similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
