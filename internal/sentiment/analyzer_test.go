package sentiment

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

func testSentimentConfig() config.SentimentConfig {
	return config.SentimentConfig{
		SimilarityThreshold: 0.90,
		ReuseLookback:       4 * time.Hour,
		WeakMagnitude:       0.30,
		MinReplyLength:      80,
	}
}

func newTestAnalyzer() (*Analyzer, *contracts.MockSentimentEngine, *contracts.MockContentSource) {
	engine := contracts.NewMockSentimentEngine()
	source := contracts.NewMockContentSource()
	a := NewAnalyzer(engine, source, testSentimentConfig(), logger.NewNop())
	return a, engine, source
}

func TestAnalyzer_ScoresFreshText(t *testing.T) {
	a, engine, _ := newTestAnalyzer()

	engine.Sentiments["TSLA"] = &contracts.SentimentResult{
		Symbol: "TSLA", Score: 0.8, Magnitude: 0.7, Confidence: 0.9,
	}

	item := &contracts.ContentItem{ID: "t3_1", Title: "TSLA deliveries beat estimates"}
	result, err := a.Score(context.Background(), item, "TSLA")
	require.NoError(t, err)

	assert.Equal(t, 0.8, result.Score)
	assert.False(t, result.Reused)
	assert.Equal(t, 1, engine.ScoreCalls)
}

func TestAnalyzer_ReusesNearDuplicate(t *testing.T) {
	a, engine, _ := newTestAnalyzer()

	engine.Sentiments["TSLA"] = &contracts.SentimentResult{
		Symbol: "TSLA", Score: 0.8, Magnitude: 0.7, Confidence: 0.9,
	}

	first := &contracts.ContentItem{
		ID:    "t3_1",
		Title: "Tesla deliveries beat estimates again this quarter analysts stunned",
	}
	_, err := a.Score(context.Background(), first, "TSLA")
	require.NoError(t, err)

	// Identical token set, different punctuation and casing
	second := &contracts.ContentItem{
		ID:    "t3_2",
		Title: "tesla DELIVERIES beat estimates again, this quarter... analysts stunned!",
	}
	result, err := a.Score(context.Background(), second, "TSLA")
	require.NoError(t, err)

	assert.True(t, result.Reused)
	assert.Equal(t, 0.8, result.Score, "reuse is verbatim")
	assert.Equal(t, 1, engine.ScoreCalls, "no second engine call")
	assert.Equal(t, uint64(1), a.ReuseCount())
}

func TestAnalyzer_DissimilarTextIsNotReused(t *testing.T) {
	a, engine, _ := newTestAnalyzer()

	first := &contracts.ContentItem{ID: "t3_1", Title: "Tesla deliveries beat estimates"}
	_, err := a.Score(context.Background(), first, "TSLA")
	require.NoError(t, err)

	second := &contracts.ContentItem{ID: "t3_2", Title: "Tesla recall announced today"}
	result, err := a.Score(context.Background(), second, "TSLA")
	require.NoError(t, err)

	assert.False(t, result.Reused)
	assert.Equal(t, 2, engine.ScoreCalls)
}

func TestAnalyzer_ReuseIsPerSymbol(t *testing.T) {
	a, engine, _ := newTestAnalyzer()

	item := &contracts.ContentItem{ID: "t3_1", Title: "market wide rally lifts everything today"}
	_, err := a.Score(context.Background(), item, "TSLA")
	require.NoError(t, err)

	same := &contracts.ContentItem{ID: "t3_2", Title: "market wide rally lifts everything today"}
	result, err := a.Score(context.Background(), same, "AAPL")
	require.NoError(t, err)

	assert.False(t, result.Reused, "windows are keyed by symbol")
	assert.Equal(t, 2, engine.ScoreCalls)
}

func TestAnalyzer_WeakLongReplyEnrichedWithParent(t *testing.T) {
	a, engine, source := newTestAnalyzer()

	source.AddItem(contracts.ContentItem{ID: "t3_parent", Title: "TSLA earnings blowout"})

	engine.Sentiments["TSLA"] = &contracts.SentimentResult{
		Symbol: "TSLA", Score: 0.1, Magnitude: 0.1, Confidence: 0.5,
	}

	reply := &contracts.ContentItem{
		ID:        "t1_reply",
		Body:      strings.Repeat("completely agree with the analysis above ", 4),
		ParentID:  "t3_parent",
		IsComment: true,
	}

	_, err := a.Score(context.Background(), reply, "TSLA")
	require.NoError(t, err)

	require.Equal(t, 2, engine.ScoreCalls, "exactly one enrichment re-score")
	enrichedText := engine.ScoredTexts[1]
	assert.True(t, strings.HasPrefix(enrichedText, "TSLA earnings blowout"),
		"re-score prepends the parent text")
	assert.Contains(t, enrichedText, "completely agree")
}

func TestAnalyzer_StrongReplyNotEnriched(t *testing.T) {
	a, engine, source := newTestAnalyzer()

	source.AddItem(contracts.ContentItem{ID: "t3_parent", Title: "TSLA earnings blowout"})

	engine.Sentiments["TSLA"] = &contracts.SentimentResult{
		Symbol: "TSLA", Score: 0.9, Magnitude: 0.8, Confidence: 0.9,
	}

	reply := &contracts.ContentItem{
		ID:        "t1_reply",
		Body:      strings.Repeat("huge quarter, margins expanding everywhere ", 4),
		ParentID:  "t3_parent",
		IsComment: true,
	}

	_, err := a.Score(context.Background(), reply, "TSLA")
	require.NoError(t, err)
	assert.Equal(t, 1, engine.ScoreCalls)
}

func TestAnalyzer_ShortWeakReplyNotEnriched(t *testing.T) {
	a, engine, source := newTestAnalyzer()

	source.AddItem(contracts.ContentItem{ID: "t3_parent", Title: "TSLA earnings blowout"})

	engine.Sentiments["TSLA"] = &contracts.SentimentResult{
		Symbol: "TSLA", Score: 0.1, Magnitude: 0.1, Confidence: 0.5,
	}

	reply := &contracts.ContentItem{
		ID:        "t1_reply",
		Body:      "this", // under the length floor
		ParentID:  "t3_parent",
		IsComment: true,
	}

	_, err := a.Score(context.Background(), reply, "TSLA")
	require.NoError(t, err)
	assert.Equal(t, 1, engine.ScoreCalls)
}

func TestAnalyzer_EngagementWeighting(t *testing.T) {
	tests := []struct {
		name       string
		engagement int
		rawScore   float64
		want       float64
	}{
		{
			name:       "low engagement untouched",
			engagement: 5,
			rawScore:   0.5,
			want:       0.5,
		},
		{
			name:       "100 upvotes scales by 1.1",
			engagement: 100,
			rawScore:   0.5,
			want:       0.5 * (1 + 0.05*2), // log10(100) = 2
		},
		{
			name:       "weighting clamps at 1",
			engagement: 1000,
			rawScore:   0.95,
			want:       1.0,
		},
		{
			name:       "negative scores clamp at -1",
			engagement: 1000,
			rawScore:   -0.95,
			want:       -1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, engine, _ := newTestAnalyzer()
			engine.Sentiments["TSLA"] = &contracts.SentimentResult{
				Symbol: "TSLA", Score: tt.rawScore, Magnitude: 0.7,
			}

			item := &contracts.ContentItem{
				ID:    "t3_1",
				Title: "TSLA discussion thread",
				Score: tt.engagement,
			}

			result, err := a.Score(context.Background(), item, "TSLA")
			require.NoError(t, err)
			assert.InDelta(t, tt.want, result.Score, 1e-9)
		})
	}
}

func TestTokenSet(t *testing.T) {
	tokens := tokenSet("TSLA to the Moon! Moon, moon...")

	// "to" and "the" are too short; the three moons collapse to one
	assert.Equal(t, map[string]struct{}{
		"tsla": {},
		"moon": {},
	}, tokens)
}

func TestSimilarity(t *testing.T) {
	a := map[string]struct{}{"alpha": {}, "beta": {}, "gamma": {}}
	b := map[string]struct{}{"alpha": {}, "beta": {}, "delta": {}}

	// |∩| = 2, |∪| = 4
	assert.InDelta(t, 0.5, similarity(a, b), 1e-9)
	assert.InDelta(t, 1.0, similarity(a, a), 1e-9)
	assert.Equal(t, 0.0, similarity(nil, nil))

	assert.False(t, math.IsNaN(similarity(a, nil)))
}
