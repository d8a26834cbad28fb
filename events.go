package minllm

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the type of event emitted during a flow run.
type EventKind string

const (
	// EventRunStarted is emitted when a top-level flow run begins.
	EventRunStarted EventKind = "run_started"

	// EventNodeStarted is emitted when a node's lifecycle begins.
	EventNodeStarted EventKind = "node_started"

	// EventNodeRetried is emitted after a failed exec attempt that will be
	// retried.
	EventNodeRetried EventKind = "node_retried"

	// EventNodeFallback is emitted when all exec attempts are exhausted and
	// the node's fallback is invoked.
	EventNodeFallback EventKind = "node_fallback"

	// EventNodeFailed is emitted when a node's lifecycle ends in error.
	EventNodeFailed EventKind = "node_failed"

	// EventNodeFinished is emitted when a node's lifecycle completes,
	// carrying the action it returned.
	EventNodeFinished EventKind = "node_finished"

	// EventBatchItemFinished is emitted per completed batch item. These can
	// be high-frequency; see bus.RateLimitedHandler.
	EventBatchItemFinished EventKind = "batch_item_finished"

	// EventRunFinished is emitted when a top-level flow run completes.
	EventRunFinished EventKind = "run_finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a structured, streamable record of what happened during a run.
// Events are advisory observability: the engine's semantics never depend on
// a handler being attached.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// RunID is the unique identifier for this run.
	RunID string

	// Seq is a monotonically increasing sequence number within the run.
	Seq uint64

	// Node is the name of the node that produced this event
	// (empty for run-level events).
	Node string

	// NodeKind is the kind of that node (empty for run-level events).
	NodeKind NodeKind

	// Action carries the action a node returned (node_finished only).
	Action Action

	// Attempt is the exec attempt number, 1-indexed (retry events only).
	Attempt int

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration since the run started.
	Elapsed time.Duration

	// Payload contains event-specific data. Keep it small.
	Payload map[string]any
}

// NewEvent creates a new event of the given kind.
func NewEvent(kind EventKind) Event {
	return Event{Kind: kind, Time: time.Now()}
}

// WithNode sets the node information on the event.
func (e Event) WithNode(n Node) Event {
	e.Node = n.Name()
	e.NodeKind = n.Kind()
	return e
}

// WithAction sets the action on the event.
func (e Event) WithAction(action Action) Event {
	e.Action = action
	return e
}

// WithAttempt sets the attempt number on the event.
func (e Event) WithAttempt(attempt int) Event {
	e.Attempt = attempt
	return e
}

// WithPayload adds a key-value pair to the event payload.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// EventHandler receives events during a run. Handlers are invoked inline on
// the emitting goroutine and must be fast and concurrency-safe; parallel
// batch branches emit concurrently.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelEventHandler returns a handler that sends events to a channel.
// Events are dropped if the channel is full.
func ChannelEventHandler(ch chan<- Event) EventHandler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
			// Drop if channel full.
		}
	}
}

// emitter stamps run identity, sequence, and elapsed time onto events and
// forwards them to the run's handler. A nil emitter is valid and drops
// everything.
type emitter struct {
	runID   string
	handler EventHandler
	start   time.Time
	seq     atomic.Uint64
}

func newEmitter(handler EventHandler) *emitter {
	if handler == nil {
		return nil
	}
	return &emitter{
		runID:   uuid.NewString(),
		handler: handler,
		start:   time.Now(),
	}
}

func (em *emitter) emit(e Event) {
	if em == nil {
		return
	}
	e.RunID = em.runID
	e.Seq = em.seq.Add(1)
	e.Elapsed = e.Time.Sub(em.start)
	em.handler(e)
}
