package bus

import (
	"time"

	"golang.org/x/time/rate"

	minllm "github.com/AAxiom-org/MinLLM"
)

// ThrottleConfig controls the behavior of RateLimitedHandler.
type ThrottleConfig struct {
	// EventsPerSecond caps the delivery rate of high-frequency events.
	// Default: 100.
	EventsPerSecond float64

	// Burst is the number of high-frequency events that may pass at once.
	// Default: 50.
	Burst int

	// Kinds lists the event kinds subject to the cap. Default:
	// batch_item_finished and node_retried. Everything else always passes.
	Kinds []minllm.EventKind
}

// RateLimitedHandler wraps an event handler and sheds high-frequency events
// when they exceed the configured rate. Large parallel batches can produce
// per-item events faster than a persistent store can absorb; the limiter
// keeps lifecycle events intact and drops only the excess per-item noise.
type RateLimitedHandler struct {
	next    minllm.EventHandler
	limiter *rate.Limiter
	limited map[minllm.EventKind]bool
}

// NewRateLimitedHandler creates a handler that forwards to next, capping
// the configured high-frequency kinds.
func NewRateLimitedHandler(next minllm.EventHandler, cfg ThrottleConfig) *RateLimitedHandler {
	eps := cfg.EventsPerSecond
	if eps <= 0 {
		eps = 100
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 50
	}
	kinds := cfg.Kinds
	if len(kinds) == 0 {
		kinds = []minllm.EventKind{
			minllm.EventBatchItemFinished,
			minllm.EventNodeRetried,
		}
	}
	limited := make(map[minllm.EventKind]bool, len(kinds))
	for _, k := range kinds {
		limited[k] = true
	}
	return &RateLimitedHandler{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(eps), burst),
		limited: limited,
	}
}

// Handle forwards an event, dropping it when it is a rate-limited kind and
// the cap is exhausted. The limiter is safe for concurrent use, so parallel
// branches can share one handler.
func (h *RateLimitedHandler) Handle(e minllm.Event) {
	if h.limited[e.Kind] && !h.limiter.AllowN(time.Now(), 1) {
		return
	}
	h.next(e)
}
