package contracts

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock collaborators for tests. Production wiring uses the HTTP-backed
// clients in internal/external.

// MockContentSource implements ContentSource with canned items
type MockContentSource struct {
	mu       sync.Mutex
	Items    map[string]*ContentItem
	Recent   map[string][]ContentItem
	Children map[string][]ContentItem

	FetchByIDCalls int
}

// NewMockContentSource creates an empty mock content source
func NewMockContentSource() *MockContentSource {
	return &MockContentSource{
		Items:    make(map[string]*ContentItem),
		Recent:   make(map[string][]ContentItem),
		Children: make(map[string][]ContentItem),
	}
}

// AddItem registers an item for lookup by ID
func (m *MockContentSource) AddItem(item ContentItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := item
	m.Items[item.ID] = &cp
}

func (m *MockContentSource) GetRecentItems(ctx context.Context, container string, limit int) ([]ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.Recent[container]
	if limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockContentSource) GetChildItems(ctx context.Context, itemID string, limit int) ([]ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.Children[itemID]
	if limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockContentSource) GetItemByID(ctx context.Context, itemID string) (*ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchByIDCalls++
	item, ok := m.Items[itemID]
	if !ok {
		return nil, fmt.Errorf("item not found: %s", itemID)
	}
	return item, nil
}

// MockSentimentEngine implements SentimentEngine with canned responses
type MockSentimentEngine struct {
	mu sync.Mutex

	Symbols    map[string][]string         // text -> symbols
	Sentiments map[string]*SentimentResult // symbol -> result
	Signals    map[string]*TradeSignal     // symbol -> signal

	ExtractCalls int
	ScoreCalls   int
	ScoredTexts  []string
	DecideCalls  int

	ExtractErr error
	ScoreErr   error
}

// NewMockSentimentEngine creates an empty mock engine
func NewMockSentimentEngine() *MockSentimentEngine {
	return &MockSentimentEngine{
		Symbols:    make(map[string][]string),
		Sentiments: make(map[string]*SentimentResult),
		Signals:    make(map[string]*TradeSignal),
	}
}

func (m *MockSentimentEngine) ExtractSymbols(ctx context.Context, text string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractCalls++
	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}
	return m.Symbols[text], nil
}

func (m *MockSentimentEngine) ScoreSentiment(ctx context.Context, text, symbol string) (*SentimentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScoreCalls++
	m.ScoredTexts = append(m.ScoredTexts, text)
	if m.ScoreErr != nil {
		return nil, m.ScoreErr
	}
	if r, ok := m.Sentiments[symbol]; ok {
		cp := *r
		cp.ScoredAt = time.Now()
		return &cp, nil
	}
	return &SentimentResult{Symbol: symbol, ScoredAt: time.Now()}, nil
}

func (m *MockSentimentEngine) Decide(ctx context.Context, sentiment *SentimentResult, market *MarketData) (*TradeSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecideCalls++
	if s, ok := m.Signals[sentiment.Symbol]; ok {
		cp := *s
		return &cp, nil
	}
	return &TradeSignal{Action: ActionHold, Symbol: sentiment.Symbol, Timestamp: time.Now()}, nil
}

// MockVenue implements Venue with settable prices and supported symbols
type MockVenue struct {
	mu sync.Mutex

	Prices    map[string]float64
	Supported []string

	SubmitCalls  int
	Submitted    []OrderRequest
	SubmitErr    error
	SupportedErr error
}

// NewMockVenue creates a mock venue with no supported symbols
func NewMockVenue() *MockVenue {
	return &MockVenue{
		Prices: make(map[string]float64),
	}
}

func (m *MockVenue) GetPrice(ctx context.Context, symbol string) (*MarketData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.Prices[symbol]
	if !ok {
		price = 100
	}
	return &MarketData{Symbol: symbol, Price: price, Timestamp: time.Now()}, nil
}

func (m *MockVenue) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SupportedErr != nil {
		return nil, m.SupportedErr
	}
	return append([]string(nil), m.Supported...), nil
}

func (m *MockVenue) SubmitOrder(ctx context.Context, order *OrderRequest) (*TradeExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitCalls++
	m.Submitted = append(m.Submitted, *order)
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}
	price := m.Prices[order.Symbol]
	if price == 0 {
		price = 100
	}
	return &TradeExecutionResult{
		OrderID:    fmt.Sprintf("MOCK-%s-%d", order.Symbol, m.SubmitCalls),
		Symbol:     order.Symbol,
		Action:     order.Side,
		Price:      price,
		Notional:   order.Notional,
		Status:     ExecutionCompleted,
		ExecutedAt: time.Now(),
	}, nil
}

// MockPersistence implements Persistence in memory
type MockPersistence struct {
	mu sync.Mutex

	ContentRecords []string
	Trades         map[string]*PendingTrade
	StatusUpdates  map[string]TradeStatus
	Performance    []TradeExecutionResult
	Active         []*PendingTrade

	SaveTradeErr error
}

// NewMockPersistence creates an empty mock persistence layer
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Trades:        make(map[string]*PendingTrade),
		StatusUpdates: make(map[string]TradeStatus),
	}
}

func (m *MockPersistence) SaveContentRecord(ctx context.Context, item *ContentItem, symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContentRecords = append(m.ContentRecords, item.ID)
	return nil
}

func (m *MockPersistence) SavePendingTrade(ctx context.Context, trade *PendingTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveTradeErr != nil {
		return m.SaveTradeErr
	}
	cp := *trade
	m.Trades[trade.ID] = &cp
	return nil
}

func (m *MockPersistence) UpdatePendingTradeStatus(ctx context.Context, id string, status TradeStatus, reason string, decidedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusUpdates[id] = status
	if t, ok := m.Trades[id]; ok {
		t.Status = status
		t.DecisionReason = reason
	}
	return nil
}

func (m *MockPersistence) LoadActivePendingTrades(ctx context.Context) ([]*PendingTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*PendingTrade(nil), m.Active...), nil
}

func (m *MockPersistence) SaveTradePerformance(ctx context.Context, result *TradeExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Performance = append(m.Performance, *result)
	return nil
}
