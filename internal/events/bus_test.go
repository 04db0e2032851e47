package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/pulse/pkg/logger"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBus_SubscribeByType(t *testing.T) {
	bus := NewBus(logger.NewNop())
	defer bus.Close()

	var mu sync.Mutex
	var got []Event
	bus.Subscribe(ItemDropped, func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	bus.Publish(NewItemEvent(ItemDropped, "a", "retry ceiling exceeded"))
	bus.Publish(NewItemEvent(ItemProcessed, "b", ""))

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "a", got[0].ItemID)
	assert.Equal(t, ItemDropped, got[0].Type)
}

func TestBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := NewBus(logger.NewNop())
	defer bus.Close()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(ev Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewItemEvent(ItemDropped, "a", ""))
	bus.Publish(NewItemEvent(ItemProcessed, "b", ""))
	bus.Publish(NewItemEvent(ProcessingError, "c", "boom"))

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 3
	})
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus(logger.NewNop())
	defer bus.Close()

	block := make(chan struct{})
	bus.SubscribeAll(func(ev Event) {
		<-block
	})

	// One event occupies the handler, the rest fill the buffer, the
	// overflow is counted as dropped. Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferOverfill; i++ {
			bus.Publish(NewItemEvent(ItemProcessed, "x", ""))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	assert.Greater(t, bus.Dropped(), uint64(0))
	close(block)
}

// enough publishes to exceed the per-subscriber buffer plus the one
// event held by the blocked handler
const bufferOverfill = 100

func TestBus_PublishAfterCloseIsDiscarded(t *testing.T) {
	bus := NewBus(logger.NewNop())

	called := false
	bus.SubscribeAll(func(ev Event) { called = true })

	bus.Close()
	bus.Publish(NewItemEvent(ItemProcessed, "a", ""))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, called)
}
