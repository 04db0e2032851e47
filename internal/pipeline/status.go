package pipeline

import (
	"time"

	"github.com/wonny/pulse/internal/ingest"
	"github.com/wonny/pulse/internal/tickers"
	"github.com/wonny/pulse/internal/trading"
)

// Status aggregates counters from every stage of the pipeline. The API
// serves it verbatim as the operational snapshot.
type Status struct {
	Mode          string                 `json:"mode"`
	Timestamp     time.Time              `json:"timestamp"`
	Queue         ingest.QueueStats      `json:"queue"`
	Scheduler     ingest.SchedulerStats  `json:"scheduler"`
	Resolver      tickers.ResolverStats  `json:"resolver"`
	UniverseStale bool                   `json:"universe_stale"`
	ReusedScores  uint64                 `json:"reused_scores"`
	Store         trading.StoreStats     `json:"store"`
	Executor      trading.ExecutorStats  `json:"executor"`
	Errors        map[string]uint64      `json:"errors"`
	EventsDropped uint64                 `json:"events_dropped"`
}

// Status returns a point-in-time snapshot across all stages
func (p *Pipeline) Status() Status {
	p.errMu.Lock()
	errs := make(map[string]uint64, len(p.errCounts))
	for k, v := range p.errCounts {
		errs[k] = v
	}
	p.errMu.Unlock()

	return Status{
		Mode:          string(p.cfg.Trading.Mode),
		Timestamp:     time.Now(),
		Queue:         p.queue.Stats(),
		Scheduler:     p.sched.Stats(),
		Resolver:      p.resolver.Stats(),
		UniverseStale: p.universe.Stale(),
		ReusedScores:  p.analyzer.ReuseCount(),
		Store:         p.store.Stats(),
		Executor:      p.executor.Stats(),
		Errors:        errs,
		EventsDropped: p.bus.Dropped(),
	}
}
