package plugin

import (
	"context"
	"time"
)

// Event is a message published on the in-process event bus.
type Event struct {
	Topic     string    // Dotted topic, e.g. "watch.device.updated".
	Source    string    // Publishing plugin name.
	Timestamp time.Time // When the event was created.
	Payload   any       // Topic-specific payload; receivers type-assert.
}

// EventHandler processes a single event. Handlers must not block for long;
// slow work should be dispatched to a goroutine by the handler itself.
type EventHandler func(ctx context.Context, event Event)

// EventBus delivers events between plugins.
type EventBus interface {
	// Publish delivers the event synchronously to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// PublishAsync delivers the event on a separate goroutine, fire-and-forget.
	PublishAsync(ctx context.Context, event Event)

	// Subscribe registers a handler for a topic. The returned function
	// removes the subscription.
	Subscribe(topic string, handler EventHandler) func()

	// SubscribeAll registers a handler for every topic.
	SubscribeAll(handler EventHandler) func()
}

// Subscription declares a topic subscription a plugin wants installed at
// startup (see EventSubscriber).
type Subscription struct {
	Topic   string
	Handler EventHandler
}
