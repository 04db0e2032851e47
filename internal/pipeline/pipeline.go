package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/internal/ingest"
	"github.com/wonny/pulse/internal/scheduler"
	"github.com/wonny/pulse/internal/scheduler/jobs"
	"github.com/wonny/pulse/internal/sentiment"
	"github.com/wonny/pulse/internal/tickers"
	"github.com/wonny/pulse/internal/trading"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

// Pipeline wires the full content-to-trade flow: stream/backfill
// producers feed the bounded queue, the scheduler drains it through
// resolution, scoring and routing, and the cron scheduler runs the
// expiry sweep and universe refresh. All collaborators are injected;
// everything else is built here.
type Pipeline struct {
	cfg    *config.Config
	logger *logger.Logger
	bus    *events.Bus

	source      contracts.ContentSource
	engine      contracts.SentimentEngine
	venue       contracts.Venue
	persistence contracts.Persistence

	queue    *ingest.Queue
	sched    *ingest.Scheduler
	resolver *tickers.Resolver
	universe *tickers.Universe
	analyzer *sentiment.Analyzer
	limiter  *trading.RateLimiter
	executor *trading.Executor
	router   *trading.Router
	store    *trading.Store
	cron     *scheduler.Scheduler

	// dedupe of already-ingested item IDs; stream polling re-sees items
	seenMu    sync.Mutex
	seen      map[string]struct{}
	seenOrder []string

	errMu     sync.Mutex
	errCounts map[string]uint64

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// New builds a pipeline from its external collaborators
func New(cfg *config.Config, log *logger.Logger, bus *events.Bus,
	source contracts.ContentSource, engine contracts.SentimentEngine,
	venue contracts.Venue, persistence contracts.Persistence) *Pipeline {

	p := &Pipeline{
		cfg:         cfg,
		logger:      log,
		bus:         bus,
		source:      source,
		engine:      engine,
		venue:       venue,
		persistence: persistence,
		seen:        make(map[string]struct{}),
		errCounts:   make(map[string]uint64),
		stopCh:      make(chan struct{}),
	}

	p.queue = ingest.NewQueue(cfg.Queue.Capacity, log)
	p.universe = tickers.NewUniverse(venue, log)

	cache := tickers.NewCache(cfg.Tickers.CacheMaxEntries, cfg.Tickers.CacheTrimCount)
	p.resolver = tickers.NewResolver(cache, engine, source, p.universe, cfg.Tickers, log)

	p.analyzer = sentiment.NewAnalyzer(engine, source, cfg.Sentiment, log)

	p.limiter = trading.NewRateLimiter(cfg.Trading.CooldownInterval())
	p.executor = trading.NewExecutor(venue, p.limiter, persistence, bus, log)
	p.store = trading.NewStore(persistence, p.executor, bus, cfg.Trading, log)
	p.router = trading.NewRouter(cfg.Trading, p.limiter, p.executor, p.store, log)

	p.sched = ingest.NewScheduler(p.queue, p.process, cfg.Queue, bus, log)

	p.cron = scheduler.New(log)

	return p
}

// Store exposes the pending-trade store for the API layer
func (p *Pipeline) Store() *trading.Store {
	return p.store
}

// Start verifies collaborator connectivity, hydrates state and launches
// the producers and the processing loop. Connectivity failures here are
// fatal; the same failures during steady-state are not.
func (p *Pipeline) Start(ctx context.Context) error {
	p.logger.WithFields(map[string]interface{}{
		"mode":        p.cfg.Trading.Mode,
		"concurrency": p.cfg.Queue.MaxConcurrency,
		"capacity":    p.cfg.Queue.Capacity,
	}).Info("Starting pipeline")

	// Startup connectivity: venue and persistence must answer
	if err := p.universe.Refresh(ctx); err != nil {
		return fmt.Errorf("venue unreachable at startup: %w", err)
	}
	if err := p.store.Hydrate(ctx); err != nil {
		return fmt.Errorf("persistence unreachable at startup: %w", err)
	}

	// Periodic jobs
	if err := p.cron.AddJob(jobs.NewExpirySweepJob(p.store, p.logger)); err != nil {
		return err
	}
	if err := p.cron.AddJob(jobs.NewUniverseRefreshJob(p.universe, p.cfg.Tickers.UniverseRefresh, p.logger)); err != nil {
		return err
	}
	p.cron.Start()

	p.sched.Start(ctx)

	// Backfill sweep, then the polling stream
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.backfill(ctx)
		p.streamLoop(ctx)
	}()

	p.logger.Info("Pipeline started")
	return nil
}

// Stop halts producers, drains the scheduler and stops the cron jobs
func (p *Pipeline) Stop() {
	p.logger.Info("Stopping pipeline")

	p.stopped.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()

	p.sched.Stop()
	p.cron.Stop()

	p.logger.Info("Pipeline stopped")
}

// RunBackfillOnce performs a single backfill sweep and drains the queue.
// Used by the one-shot CLI command; the stream loop never starts.
func (p *Pipeline) RunBackfillOnce(ctx context.Context) error {
	if err := p.universe.Refresh(ctx); err != nil {
		return fmt.Errorf("venue unreachable: %w", err)
	}
	if err := p.store.Hydrate(ctx); err != nil {
		return fmt.Errorf("persistence unreachable: %w", err)
	}

	p.sched.Start(ctx)
	p.backfill(ctx)

	for p.queue.Len() > 0 {
		select {
		case <-ctx.Done():
			p.sched.Stop()
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	p.sched.Stop()
	return nil
}

// OnNewItem accepts a pushed content item from the stream connector
func (p *Pipeline) OnNewItem(item contracts.ContentItem) {
	if !p.markSeen(item.ID) {
		return
	}
	p.queue.Enqueue(item)
}

// backfill pulls recent items from every configured subreddit once
func (p *Pipeline) backfill(ctx context.Context) {
	for _, subreddit := range p.cfg.Reddit.Subreddits {
		items, err := p.source.GetRecentItems(ctx, subreddit, p.cfg.Reddit.BackfillSize)
		if err != nil {
			p.countError("connectivity")
			p.logger.WithError(err).WithField("subreddit", subreddit).
				Warn("Backfill fetch failed")
			continue
		}

		enqueued := 0
		for _, item := range items {
			enqueued += p.ingest(ctx, item)
		}

		p.logger.WithFields(map[string]interface{}{
			"subreddit": subreddit,
			"items":     enqueued,
		}).Info("Backfill complete")
	}
}

// ingest enqueues a fresh item and, for posts, pulls its comments so
// replies flow through the same queue. Returns the number of items
// enqueued.
func (p *Pipeline) ingest(ctx context.Context, item contracts.ContentItem) int {
	if !p.markSeen(item.ID) {
		return 0
	}
	p.queue.Enqueue(item)
	n := 1

	if item.IsComment || p.cfg.Reddit.CommentLimit <= 0 {
		return n
	}

	children, err := p.source.GetChildItems(ctx, item.ID, p.cfg.Reddit.CommentLimit)
	if err != nil {
		p.countError("connectivity")
		p.logger.WithError(err).WithField("item", item.ID).
			Warn("Comment fetch failed")
		return n
	}

	for _, child := range children {
		if p.markSeen(child.ID) {
			p.queue.Enqueue(child)
			n++
		}
	}
	return n
}

// streamLoop polls the content source for fresh items until stopped
func (p *Pipeline) streamLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Reddit.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			for _, subreddit := range p.cfg.Reddit.Subreddits {
				items, err := p.source.GetRecentItems(ctx, subreddit, p.cfg.Reddit.BackfillSize)
				if err != nil {
					// Non-fatal during steady state; counted and logged
					p.countError("connectivity")
					p.logger.WithError(err).WithField("subreddit", subreddit).
						Warn("Stream poll failed")
					continue
				}

				for _, item := range items {
					p.ingest(ctx, item)
				}
			}
		}
	}
}

// process handles one queue entry: resolve mentions, score each symbol,
// decide and route. Returning an error sends the entry back through the
// scheduler's retry path.
func (p *Pipeline) process(ctx context.Context, entry *ingest.Entry) error {
	item := &entry.Item

	symbols, err := p.resolver.Resolve(ctx, item)
	if err != nil {
		p.countError("resolution")
		return err
	}

	if err := p.persistence.SaveContentRecord(ctx, item, symbols); err != nil {
		// Audit write; losing one record is not worth a retry cycle
		p.countError("persistence")
		p.logger.WithError(err).WithField("item", item.ID).
			Warn("Failed to persist content record")
	}

	if len(symbols) == 0 {
		p.bus.Publish(events.NewItemEvent(events.ItemProcessed, item.ID, "no symbols"))
		return nil
	}

	for _, symbol := range symbols {
		if err := p.processSymbol(ctx, item, symbol); err != nil {
			p.countError("scoring")
			p.bus.Publish(events.NewItemEvent(events.ProcessingError, item.ID, err.Error()))
			return err
		}
	}

	p.bus.Publish(events.NewItemEvent(events.ItemProcessed, item.ID, ""))
	return nil
}

// processSymbol runs score → market data → decide → route for one mention
func (p *Pipeline) processSymbol(ctx context.Context, item *contracts.ContentItem, symbol string) error {
	sent, err := p.analyzer.Score(ctx, item, symbol)
	if err != nil {
		return err
	}

	market, err := p.venue.GetPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("market data fetch failed for %s: %w", symbol, err)
	}

	signal, err := p.engine.Decide(ctx, sent, market)
	if err != nil {
		return fmt.Errorf("decision failed for %s: %w", symbol, err)
	}
	if signal.Notional == 0 {
		signal.Notional = p.cfg.Trading.NotionalAmount
	}

	return p.router.Route(ctx, signal, item, market, sent)
}

// markSeen records an item ID, reporting whether it was new. The set is
// trimmed in insertion order once it grows past 10k entries.
func (p *Pipeline) markSeen(id string) bool {
	p.seenMu.Lock()
	defer p.seenMu.Unlock()

	if _, ok := p.seen[id]; ok {
		return false
	}

	p.seen[id] = struct{}{}
	p.seenOrder = append(p.seenOrder, id)

	if len(p.seenOrder) > 10_000 {
		for _, old := range p.seenOrder[:1_000] {
			delete(p.seen, old)
		}
		p.seenOrder = append(p.seenOrder[:0], p.seenOrder[1_000:]...)
	}

	return true
}

// countError increments a per-category error counter
func (p *Pipeline) countError(category string) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	p.errCounts[category]++
}
