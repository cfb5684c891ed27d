// Package event provides the in-process event bus that carries monitoring
// results to the live feed and the optional NATS forwarder.
package event

import (
	"context"
	"time"
)

// Event is a message on the bus.
type Event struct {
	Topic     string    `json:"topic"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"` // Type depends on topic
}

// Handler processes events from the bus.
type Handler func(ctx context.Context, event Event)

// Publisher sends events to the bus. Use this thin interface in code that
// only emits events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber receives events from the bus.
type Subscriber interface {
	Subscribe(topic string, handler Handler) (unsubscribe func())
	SubscribeAll(handler Handler) (unsubscribe func())
}
