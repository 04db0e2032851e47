package contracts

import "time"

// TradeStatus represents the lifecycle state of a pending trade.
// pending is the only non-terminal state; transitions never revert.
type TradeStatus string

const (
	TradePending  TradeStatus = "pending"
	TradeApproved TradeStatus = "approved"
	TradeRejected TradeStatus = "rejected"
	TradeExpired  TradeStatus = "expired"
)

// IsTerminal reports whether the status can no longer change
func (s TradeStatus) IsTerminal() bool {
	return s == TradeApproved || s == TradeRejected || s == TradeExpired
}

// PendingTrade is a trade signal awaiting human approval
type PendingTrade struct {
	ID             string           `json:"id"`
	Signal         TradeSignal      `json:"signal"`
	Source         *ContentItem     `json:"source,omitempty"`    // item that produced the signal
	Market         *MarketData      `json:"market,omitempty"`    // quote at proposal time
	Sentiment      *SentimentResult `json:"sentiment,omitempty"` // sentiment at proposal time
	Status         TradeStatus      `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	ExpiresAt      time.Time        `json:"expires_at"`
	DecidedAt      *time.Time       `json:"decided_at,omitempty"`
	DecisionReason string           `json:"decision_reason,omitempty"`
}

// Expired reports whether the trade is past its expiry time.
// A trade can be expired in this sense before the sweep marks it so.
func (p *PendingTrade) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// ExecutionStatus represents the venue-side outcome of an order
type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionFailed    ExecutionStatus = "failed"
)

// TradeExecutionResult records the venue outcome for one signal
type TradeExecutionResult struct {
	OrderID    string          `json:"order_id"`
	Symbol     string          `json:"symbol"`
	Action     Action          `json:"action"`
	Price      float64         `json:"price"`
	Notional   float64         `json:"notional"`
	Fees       float64         `json:"fees"`
	Status     ExecutionStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// OrderRequest is the order shape submitted to the venue
type OrderRequest struct {
	Symbol      string  `json:"symbol"`
	Side        Action  `json:"side"`
	Notional    float64 `json:"notional"`
	Type        string  `json:"type"`          // market only for now
	TimeInForce string  `json:"time_in_force"` // day
}
