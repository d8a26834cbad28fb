// Package otel provides OpenTelemetry integration for flow run events.
// Attach its handlers to a flow with WithEventHandler to get spans and
// metrics for every run without touching node code.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	minllm "github.com/AAxiom-org/MinLLM"
)

// TracingHandler translates flow events into OpenTelemetry spans. It keeps
// maps of active run and node spans, creating and ending them based on
// event kind.
type TracingHandler struct {
	tracer trace.Tracer

	mu        sync.RWMutex
	runSpans  map[string]trace.Span      // runID -> span
	runCtxs   map[string]context.Context // runID -> context (for child spans)
	nodeSpans map[string]trace.Span      // runID:node -> span
}

// NewTracingHandler creates a TracingHandler that uses the given tracer to
// create spans from flow events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:    tracer,
		runSpans:  make(map[string]trace.Span),
		runCtxs:   make(map[string]context.Context),
		nodeSpans: make(map[string]trace.Span),
	}
}

// Handle processes a flow event and creates or ends spans accordingly.
// It is a minllm.EventHandler.
func (h *TracingHandler) Handle(e minllm.Event) {
	switch e.Kind {
	case minllm.EventRunStarted:
		h.handleRunStarted(e)
	case minllm.EventNodeStarted:
		h.handleNodeStarted(e)
	case minllm.EventNodeRetried, minllm.EventNodeFallback:
		h.handleAttemptEvent(e)
	case minllm.EventNodeFinished:
		h.handleNodeFinished(e)
	case minllm.EventNodeFailed:
		h.handleNodeFailed(e)
	case minllm.EventRunFinished:
		h.handleRunFinished(e)
	}
}

// handleRunStarted creates a root span for the run.
func (h *TracingHandler) handleRunStarted(e minllm.Event) {
	spanName := "run:" + e.RunID
	if e.Node != "" {
		spanName = "run:" + e.Node
	}

	ctx, span := h.tracer.Start(context.Background(), spanName,
		trace.WithAttributes(
			attribute.String("minllm.run_id", e.RunID),
			attribute.String("minllm.flow", e.Node),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.runSpans[e.RunID] = span
	h.runCtxs[e.RunID] = ctx
	h.mu.Unlock()
}

// handleNodeStarted creates a child span under the run span.
func (h *TracingHandler) handleNodeStarted(e minllm.Event) {
	h.mu.RLock()
	parentCtx, ok := h.runCtxs[e.RunID]
	h.mu.RUnlock()

	if !ok {
		// No parent run span; start from background context.
		parentCtx = context.Background()
	}

	_, span := h.tracer.Start(parentCtx, "node:"+e.Node,
		trace.WithAttributes(
			attribute.String("minllm.run_id", e.RunID),
			attribute.String("minllm.node", e.Node),
			attribute.String("minllm.node_kind", string(e.NodeKind)),
		),
		trace.WithTimestamp(e.Time),
	)

	key := e.RunID + ":" + e.Node
	h.mu.Lock()
	h.nodeSpans[key] = span
	h.mu.Unlock()
}

// handleAttemptEvent records retries and fallbacks as span events on the
// active node span.
func (h *TracingHandler) handleAttemptEvent(e minllm.Event) {
	key := e.RunID + ":" + e.Node

	h.mu.RLock()
	span, ok := h.nodeSpans[key]
	h.mu.RUnlock()

	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("minllm.attempt", e.Attempt),
	}
	if msg, found := e.Payload["error"]; found {
		if s, ok := msg.(string); ok {
			attrs = append(attrs, attribute.String("minllm.error", s))
		}
	}
	span.AddEvent(string(e.Kind), trace.WithTimestamp(e.Time), trace.WithAttributes(attrs...))
}

// handleNodeFinished ends the node span with success status.
func (h *TracingHandler) handleNodeFinished(e minllm.Event) {
	key := e.RunID + ":" + e.Node

	h.mu.Lock()
	span, ok := h.nodeSpans[key]
	if ok {
		delete(h.nodeSpans, key)
	}
	h.mu.Unlock()

	if ok {
		span.SetAttributes(
			attribute.String("minllm.action", string(e.Action)),
			attribute.String("minllm.duration", e.Elapsed.String()),
		)
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Time))
	}
}

// handleNodeFailed ends the node span with error status.
func (h *TracingHandler) handleNodeFailed(e minllm.Event) {
	key := e.RunID + ":" + e.Node

	h.mu.Lock()
	span, ok := h.nodeSpans[key]
	if ok {
		delete(h.nodeSpans, key)
	}
	h.mu.Unlock()

	if ok {
		errMsg := "unknown error"
		if msg, found := e.Payload["error"]; found {
			if s, ok := msg.(string); ok {
				errMsg = s
			}
		}
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(
			spanError(errMsg),
			trace.WithTimestamp(e.Time),
		)
		span.End(trace.WithTimestamp(e.Time))
	}
}

// handleRunFinished ends the root run span.
func (h *TracingHandler) handleRunFinished(e minllm.Event) {
	h.mu.Lock()
	span, ok := h.runSpans[e.RunID]
	if ok {
		delete(h.runSpans, e.RunID)
		delete(h.runCtxs, e.RunID)
	}
	h.mu.Unlock()

	if ok {
		span.SetAttributes(
			attribute.String("minllm.duration", e.Elapsed.String()),
		)

		if msg, found := e.Payload["error"]; found {
			errMsg := "run failed"
			if s, ok := msg.(string); ok {
				errMsg = s
			}
			span.SetStatus(codes.Error, errMsg)
		} else {
			span.SetStatus(codes.Ok, "")
		}

		span.End(trace.WithTimestamp(e.Time))
	}
}

// ActiveSpanContext returns the SpanContext for the active node span
// identified by runID and node name. Returns an empty SpanContext if not
// found.
func (h *TracingHandler) ActiveSpanContext(runID, node string) trace.SpanContext {
	key := runID + ":" + node

	h.mu.RLock()
	span, ok := h.nodeSpans[key]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActiveRunSpanContext returns the SpanContext for the active run span
// identified by runID. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveRunSpanContext(runID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.runSpans[runID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }
