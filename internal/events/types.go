package events

import (
	"time"

	"github.com/wonny/pulse/internal/contracts"
)

// EventType identifies a pipeline state transition of interest
type EventType string

const (
	PendingTradeCreated  EventType = "pending_trade_created"
	PendingTradeApproved EventType = "pending_trade_approved"
	PendingTradeRejected EventType = "pending_trade_rejected"
	PendingTradeExpired  EventType = "pending_trade_expired"
	TradeExecuted        EventType = "trade_executed"
	TradeExecutionFailed EventType = "trade_execution_failed"
	ItemProcessed        EventType = "item_processed"
	ItemDropped          EventType = "item_dropped"
	ProcessingError      EventType = "processing_error"
)

// Event is a single pipeline notification delivered to subscribers
type Event struct {
	Type      EventType                       `json:"type"`
	Timestamp time.Time                       `json:"timestamp"`
	Trade     *contracts.PendingTrade         `json:"trade,omitempty"`
	Execution *contracts.TradeExecutionResult `json:"execution,omitempty"`
	ItemID    string                          `json:"item_id,omitempty"`
	Symbol    string                          `json:"symbol,omitempty"`
	Message   string                          `json:"message,omitempty"`
}

// NewTradeEvent builds an event carrying a pending trade snapshot
func NewTradeEvent(t EventType, trade *contracts.PendingTrade) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Trade:     trade,
		Symbol:    trade.Signal.Symbol,
	}
}

// NewExecutionEvent builds an event carrying an execution result
func NewExecutionEvent(t EventType, result *contracts.TradeExecutionResult) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Execution: result,
		Symbol:    result.Symbol,
	}
}

// NewItemEvent builds an event about a content item
func NewItemEvent(t EventType, itemID, message string) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		ItemID:    itemID,
		Message:   message,
	}
}
