package memory

import (
	"context"
	"sync"

	"github.com/aescanero/mlsvc/pkg/ports"
)

// subscriptionBuffer is how many events may queue for one subscriber
// before further events to it are dropped
const subscriptionBuffer = 256

type subscription struct {
	id     uint64
	events chan ports.Event
	done   chan struct{}
}

// InMemoryEventBus implements ports.EventBus with in-process handlers.
// Each subscription has one delivery goroutine, so a handler sees events
// in publish order.
type InMemoryEventBus struct {
	subscribers map[string][]*subscription
	nextID      uint64
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]*subscription),
	}
}

// Publish queues an event for all subscribers of a topic. It never blocks:
// a subscriber whose queue is full misses the event.
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event ports.Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, sub := range e.subscribers[topic] {
		select {
		case sub.events <- event:
		default:
		}
	}

	return nil
}

// Subscribe registers a handler until ctx is cancelled
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	sub := &subscription{
		events: make(chan ports.Event, subscriptionBuffer),
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	e.nextID++
	sub.id = e.nextID
	e.subscribers[topic] = append(e.subscribers[topic], sub)
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				e.unsubscribe(topic, sub.id)
				return
			case <-sub.done:
				return
			case event := <-sub.events:
				_ = handler(ctx, event)
			}
		}
	}()

	return nil
}

// Unsubscribe removes all subscriptions from a topic
func (e *InMemoryEventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sub := range e.subscribers[topic] {
		close(sub.done)
	}
	delete(e.subscribers, topic)
	return nil
}

// Close drops every subscriber
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, subs := range e.subscribers {
		for _, sub := range subs {
			close(sub.done)
		}
	}
	e.subscribers = make(map[string][]*subscription)
	return nil
}

// SubscriberCount returns the number of handlers on a topic
func (e *InMemoryEventBus) SubscriberCount(topic string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.subscribers[topic])
}

func (e *InMemoryEventBus) unsubscribe(topic string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[topic]
	for i, s := range subs {
		if s.id == id {
			close(s.done)
			e.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}
