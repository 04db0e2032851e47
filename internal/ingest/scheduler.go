package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/pulse/internal/events"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/logger"
)

// ProcessFunc handles one content item. Errors are retried by the
// scheduler up to the configured ceiling.
type ProcessFunc func(ctx context.Context, e *Entry) error

// Scheduler drains the queue into at most MaxConcurrency concurrent
// processing tasks. It ticks on a fixed interval, launches work
// fire-and-forget, and tracks membership in an in-flight set. A failed
// entry is pushed back to the queue tail until it exceeds the retry
// ceiling, then dropped for good.
type Scheduler struct {
	queue   *Queue
	process ProcessFunc
	cfg     config.QueueConfig
	bus     *events.Bus
	logger  *logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}

	processed uint64
	retried   uint64
	dropped   uint64

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
	loopWG  sync.WaitGroup
}

// NewScheduler creates a scheduler; Start must be called to begin draining
func NewScheduler(queue *Queue, process ProcessFunc, cfg config.QueueConfig, bus *events.Bus, log *logger.Logger) *Scheduler {
	return &Scheduler{
		queue:    queue,
		process:  process,
		cfg:      cfg,
		bus:      bus,
		logger:   log,
		inflight: make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the polling loop
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.WithFields(map[string]interface{}{
		"interval":    s.cfg.PollInterval,
		"concurrency": s.cfg.MaxConcurrency,
	}).Info("Starting scheduler")

	s.loopWG.Add(1)
	go s.loop(ctx)
}

// Stop halts new dequeues immediately and waits for in-flight tasks to
// finish, up to the drain timeout, after which it returns regardless.
func (s *Scheduler) Stop() {
	s.stopped.Do(func() {
		close(s.stopCh)
	})
	s.loopWG.Wait()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler drained")
	case <-time.After(s.cfg.DrainTimeout):
		s.logger.WithField("timeout", s.cfg.DrainTimeout).
			Warn("Scheduler drain timeout, proceeding with in-flight work abandoned")
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick dequeues entries while capacity remains and launches each as an
// independent task without waiting for completion
func (s *Scheduler) tick(ctx context.Context) {
	for s.inflightCount() < s.cfg.MaxConcurrency {
		entry, ok := s.queue.Dequeue()
		if !ok {
			return
		}
		s.launch(ctx, entry)
	}
}

func (s *Scheduler) launch(ctx context.Context, entry *Entry) {
	id := entry.Item.ID

	s.mu.Lock()
	s.inflight[id] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.process(ctx, entry)

		// Membership must end before any requeue; otherwise the next
		// tick could relaunch this ID while it still counts here.
		s.mu.Lock()
		delete(s.inflight, id)
		if err == nil {
			s.processed++
		}
		s.mu.Unlock()

		if err != nil {
			s.handleFailure(entry, err)
		}
	}()
}

// handleFailure requeues the entry below the retry ceiling, drops it above.
// One bad item never stops the loop or touches sibling tasks.
func (s *Scheduler) handleFailure(entry *Entry, err error) {
	entry.Retries++

	if entry.Retries <= s.cfg.RetryCeiling {
		s.mu.Lock()
		s.retried++
		s.mu.Unlock()

		s.logger.WithFields(map[string]interface{}{
			"item":    entry.Item.ID,
			"retries": entry.Retries,
			"error":   err.Error(),
		}).Warn("Item processing failed, requeued")

		s.queue.Requeue(entry)
		return
	}

	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"item":    entry.Item.ID,
		"retries": entry.Retries,
		"error":   err.Error(),
	}).Error("Item dropped, retry ceiling exceeded")

	s.bus.Publish(events.NewItemEvent(events.ItemDropped, entry.Item.ID, err.Error()))
}

func (s *Scheduler) inflightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// SchedulerStats is a point-in-time snapshot of scheduler counters
type SchedulerStats struct {
	InFlight  int    `json:"in_flight"`
	Processed uint64 `json:"processed"`
	Retried   uint64 `json:"retried"`
	Dropped   uint64 `json:"dropped"`
}

// Stats returns scheduler counters
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStats{
		InFlight:  len(s.inflight),
		Processed: s.processed,
		Retried:   s.retried,
		Dropped:   s.dropped,
	}
}
