package contracts

import "time"

// SentimentResult is the engine's verdict for a (text, symbol) pair
type SentimentResult struct {
	Symbol     string    `json:"symbol"`
	Score      float64   `json:"score"`      // [-1, 1]
	Magnitude  float64   `json:"magnitude"`  // [0, 1]
	Confidence float64   `json:"confidence"` // [0, 1]
	Rationale  string    `json:"rationale"`
	Reused     bool      `json:"reused"` // served from the reuse window, not the engine
	ScoredAt   time.Time `json:"scored_at"`
}

// Action is a proposed trade direction
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// TradeSignal is a proposed trade derived from sentiment
type TradeSignal struct {
	Action         Action    `json:"action"`
	Symbol         string    `json:"symbol"`
	Confidence     float64   `json:"confidence"` // [0, 1]
	Notional       float64   `json:"notional"`   // USD
	Rationale      string    `json:"rationale"`
	SentimentScore float64   `json:"sentiment_score"`
	Timestamp      time.Time `json:"timestamp"`
}

// IsActionable reports whether the signal proposes an actual trade
func (s *TradeSignal) IsActionable() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}

// MarketData is the typed boundary shape for venue quotes.
// Absent fields decode to zero values; callers treat zero as "unknown".
type MarketData struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    int64     `json:"volume"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Open      float64   `json:"open"`
	Timestamp time.Time `json:"timestamp"`
}
