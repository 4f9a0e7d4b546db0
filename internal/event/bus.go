// Package event provides the in-process publish/subscribe bus that connects
// WatchDesk plugins. Delivery is best-effort: a panicking handler is recovered
// and logged, and publishing to a topic with no subscribers is a no-op.
package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// Compile-time interface guard.
var _ plugin.EventBus = (*Bus)(nil)

// subscriberAll is the pseudo-topic used for SubscribeAll handlers.
const subscriberAll = "*"

type subscriber struct {
	id      uint64
	handler plugin.EventHandler
}

// Bus is a topic-based event bus. Safe for concurrent use.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID uint64
	topics map[string][]subscriber
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger,
		topics: make(map[string][]subscriber),
	}
}

// Subscribe registers handler for events published on topic. The returned
// function removes the subscription; calling it more than once is harmless.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) func() {
	return b.add(topic, handler)
}

// SubscribeAll registers handler for every published event.
func (b *Bus) SubscribeAll(handler plugin.EventHandler) func() {
	return b.add(subscriberAll, handler)
}

func (b *Bus) add(topic string, handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscriber{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topics[topic]
		for i, s := range subs {
			if s.id == id {
				b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers event synchronously to all subscribers of its topic and
// all SubscribeAll handlers. Handlers run in registration order on the
// caller's goroutine.
func (b *Bus) Publish(ctx context.Context, event plugin.Event) error {
	for _, s := range b.snapshot(event.Topic) {
		b.dispatch(ctx, s, event)
	}
	return nil
}

// PublishAsync delivers event on a new goroutine and returns immediately.
func (b *Bus) PublishAsync(ctx context.Context, event plugin.Event) {
	subs := b.snapshot(event.Topic)
	go func() {
		for _, s := range subs {
			b.dispatch(ctx, s, event)
		}
	}()
}

// snapshot copies the subscriber lists so publishing never holds the lock
// while handlers run.
func (b *Bus) snapshot(topic string) []subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := make([]subscriber, 0, len(b.topics[topic])+len(b.topics[subscriberAll]))
	subs = append(subs, b.topics[topic]...)
	subs = append(subs, b.topics[subscriberAll]...)
	return subs
}

func (b *Bus) dispatch(ctx context.Context, s subscriber, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.String("source", event.Source),
				zap.Any("panic", r),
			)
		}
	}()
	s.handler(ctx, event)
}
