package ingest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/logger"
)

func item(id string) contracts.ContentItem {
	return contracts.ContentItem{ID: id}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(10, logger.NewNop())

	q.Enqueue(item("a"))
	q.Enqueue(item("b"))
	q.Enqueue(item("c"))

	first, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", first.Item.ID)

	second, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", second.Item.ID)

	assert.Equal(t, 1, q.Len())
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q := NewQueue(10, logger.NewNop())

	e, ok := q.Dequeue()
	assert.False(t, ok)
	assert.Nil(t, e)
}

func TestQueue_OverflowEvictsOldestTenPercent(t *testing.T) {
	q := NewQueue(20, logger.NewNop())

	for i := 0; i < 20; i++ {
		q.Enqueue(item(fmt.Sprintf("item-%d", i)))
	}
	require.Equal(t, 20, q.Len())

	// 21st item evicts ceil(20 * 0.1) = 2 oldest entries
	q.Enqueue(item("overflow"))

	assert.Equal(t, 19, q.Len())

	first, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "item-2", first.Item.ID, "items 0 and 1 should be evicted")

	stats := q.Stats()
	assert.Equal(t, uint64(2), stats.Evicted)
	assert.Equal(t, uint64(21), stats.Enqueued)
}

func TestQueue_OverflowEvictionRoundsUp(t *testing.T) {
	// Capacity 25: ceil(2.5) = 3 evicted per overflow
	q := NewQueue(25, logger.NewNop())

	for i := 0; i < 26; i++ {
		q.Enqueue(item(fmt.Sprintf("item-%d", i)))
	}

	assert.Equal(t, 23, q.Len())
	assert.Equal(t, uint64(3), q.Stats().Evicted)
}

func TestQueue_RequeueGoesToTail(t *testing.T) {
	q := NewQueue(10, logger.NewNop())

	q.Enqueue(item("a"))
	q.Enqueue(item("b"))

	failed, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, "a", failed.Item.ID)

	failed.Retries = 1
	q.Requeue(failed)

	next, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", next.Item.ID, "fresh entry stays ahead of the retried one")

	retried, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", retried.Item.ID)
	assert.Equal(t, 1, retried.Retries)
}

func TestQueue_CapacityNeverExceeded(t *testing.T) {
	q := NewQueue(10, logger.NewNop())

	for i := 0; i < 100; i++ {
		q.Enqueue(item(fmt.Sprintf("item-%d", i)))
		assert.LessOrEqual(t, q.Len(), 10)
	}
}
