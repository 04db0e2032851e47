package ingest

import (
	"sync"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/logger"
)

// Entry wraps a content item while it waits in the queue
type Entry struct {
	Item       contracts.ContentItem
	EnqueuedAt time.Time
	Retries    int
}

// Queue is a bounded FIFO buffer of content items awaiting processing.
// Enqueue never blocks: when the queue is full, the oldest 10% of entries
// are evicted before the new item is accepted. Freshness over
// completeness; stale social content is worthless for trading anyway.
type Queue struct {
	mu       sync.Mutex
	entries  []*Entry
	capacity int
	logger   *logger.Logger

	evicted  uint64
	enqueued uint64
}

// NewQueue creates a queue with the given capacity
func NewQueue(capacity int, log *logger.Logger) *Queue {
	return &Queue{
		entries:  make([]*Entry, 0, capacity),
		capacity: capacity,
		logger:   log,
	}
}

// Enqueue appends an item, evicting the oldest entries if the queue is full
func (q *Queue) Enqueue(item contracts.ContentItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.push(&Entry{Item: item, EnqueuedAt: time.Now()})
	q.enqueued++
}

// Requeue pushes a retried entry to the tail. The entry loses its original
// position; retried items are deliberately ordered behind fresh ones.
func (q *Queue) Requeue(e *Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.push(e)
}

// push assumes the lock is held
func (q *Queue) push(e *Entry) {
	if len(q.entries) >= q.capacity {
		// Evict the oldest ceil(capacity * 0.1) entries
		drop := (q.capacity + 9) / 10
		if drop > len(q.entries) {
			drop = len(q.entries)
		}
		q.entries = append(q.entries[:0], q.entries[drop:]...)
		q.evicted += uint64(drop)

		q.logger.WithFields(map[string]interface{}{
			"dropped":  drop,
			"capacity": q.capacity,
		}).Warn("Queue overflow, evicted oldest entries")
	}

	q.entries = append(q.entries, e)
}

// Dequeue removes and returns the oldest entry
func (q *Queue) Dequeue() (*Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil, false
	}

	e := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	return e, true
}

// Len returns the current queue length
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// QueueStats is a point-in-time snapshot of queue counters
type QueueStats struct {
	Length   int    `json:"length"`
	Capacity int    `json:"capacity"`
	Enqueued uint64 `json:"enqueued"`
	Evicted  uint64 `json:"evicted"`
}

// Stats returns queue counters
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Length:   len(q.entries),
		Capacity: q.capacity,
		Enqueued: q.enqueued,
		Evicted:  q.evicted,
	}
}
