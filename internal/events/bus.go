package events

import (
	"sync"
	"sync/atomic"

	"github.com/wonny/pulse/pkg/logger"
)

// Bus is a typed publish/subscribe hub for pipeline events.
// Publishing is fire-and-forget: each subscriber gets a buffered channel
// drained by its own goroutine, so a slow consumer (dashboard socket,
// audit log) never stalls the pipeline. When a subscriber's buffer is
// full the event is counted as dropped for that subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]*subscription
	all         []*subscription
	logger      *logger.Logger
	bufferSize  int
	closed      bool

	dropped atomic.Uint64
}

type subscription struct {
	ch      chan Event
	done    chan struct{}
	handler func(Event)
}

// NewBus creates an event bus with a per-subscriber buffer
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		subscribers: make(map[EventType][]*subscription),
		logger:      log,
		bufferSize:  64,
	}
}

// Subscribe registers a handler for one event type.
// The handler runs on a dedicated goroutine owned by the bus.
func (b *Bus) Subscribe(t EventType, handler func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := b.newSubscription(handler)
	b.subscribers[t] = append(b.subscribers[t], sub)
}

// SubscribeAll registers a handler for every event type
func (b *Bus) SubscribeAll(handler func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := b.newSubscription(handler)
	b.all = append(b.all, sub)
}

func (b *Bus) newSubscription(handler func(Event)) *subscription {
	sub := &subscription{
		ch:      make(chan Event, b.bufferSize),
		done:    make(chan struct{}),
		handler: handler,
	}
	go func() {
		for {
			select {
			case ev, ok := <-sub.ch:
				if !ok {
					return
				}
				sub.handler(ev)
			case <-sub.done:
				return
			}
		}
	}()
	return sub
}

// Publish delivers an event to all matching subscribers without blocking
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers[ev.Type] {
		b.deliver(sub, ev)
	}
	for _, sub := range b.all {
		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *subscription, ev Event) {
	select {
	case sub.ch <- ev:
	default:
		b.dropped.Add(1)
		b.logger.WithFields(map[string]interface{}{
			"type": ev.Type,
		}).Warn("Event dropped, subscriber buffer full")
	}
}

// Dropped returns the number of events discarded due to full buffers
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops all subscriber goroutines. Events published after Close
// are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.done)
		}
	}
	for _, sub := range b.all {
		close(sub.done)
	}
}
