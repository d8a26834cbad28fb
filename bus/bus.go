// Package bus distributes and persists flow run events. It lets components
// publish and subscribe to events produced by flow runs, decoupling the
// engine from observers such as loggers, dashboards, and monitoring
// systems, and it offers stores that keep event history for later
// inspection.
package bus

import (
	minllm "github.com/AAxiom-org/MinLLM"
)

// EventBus distributes events to subscribers.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(event minllm.Event)

	// Subscribe registers a subscriber for a specific run.
	// Returns a Subscription that must be closed when done.
	Subscribe(runID string) Subscription

	// SubscribeAll registers a subscriber that receives events from all runs.
	// Returns a Subscription that must be closed when done.
	SubscribeAll() Subscription

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Subscription receives events.
type Subscription interface {
	// Events returns a channel of events for this subscription.
	Events() <-chan minllm.Event

	// Close unsubscribes and releases resources.
	Close() error
}

// Handler returns a minllm.EventHandler that publishes every event to the
// bus. Attach it to a flow with WithEventHandler.
func Handler(b EventBus) minllm.EventHandler {
	return func(e minllm.Event) {
		b.Publish(e)
	}
}
