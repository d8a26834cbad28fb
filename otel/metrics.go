package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	minllm "github.com/AAxiom-org/MinLLM"
)

// MetricsHandler translates flow events into OpenTelemetry metrics.
// It records counters for node executions, failures, and retries, and
// histograms for node and run durations.
type MetricsHandler struct {
	nodeExecutions metric.Int64Counter
	nodeFailures   metric.Int64Counter
	nodeRetries    metric.Int64Counter
	nodeDuration   metric.Float64Histogram
	runDuration    metric.Float64Histogram
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to
// create instruments for recording flow run metrics.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	nodeExec, err := meter.Int64Counter("minllm.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeFail, err := meter.Int64Counter("minllm.node.failures",
		metric.WithDescription("Number of node failures"),
	)
	if err != nil {
		return nil, err
	}

	nodeRetry, err := meter.Int64Counter("minllm.node.retries",
		metric.WithDescription("Number of exec attempts that were retried"),
	)
	if err != nil {
		return nil, err
	}

	nodeDur, err := meter.Float64Histogram("minllm.node.duration",
		metric.WithDescription("Duration of node execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runDur, err := meter.Float64Histogram("minllm.run.duration",
		metric.WithDescription("Duration of flow run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		nodeExecutions: nodeExec,
		nodeFailures:   nodeFail,
		nodeRetries:    nodeRetry,
		nodeDuration:   nodeDur,
		runDuration:    runDur,
	}, nil
}

// Handle processes a flow event and records the appropriate metrics.
// It is a minllm.EventHandler.
func (h *MetricsHandler) Handle(e minllm.Event) {
	switch e.Kind {
	case minllm.EventNodeFinished:
		h.handleNodeFinished(e)
	case minllm.EventNodeFailed:
		h.handleNodeFailed(e)
	case minllm.EventNodeRetried:
		h.handleNodeRetried(e)
	case minllm.EventRunFinished:
		h.handleRunFinished(e)
	}
}

// handleNodeFinished increments the execution counter and records duration.
func (h *MetricsHandler) handleNodeFinished(e minllm.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("node_kind", string(e.NodeKind)),
		attribute.String("node", e.Node),
	)
	h.nodeExecutions.Add(ctx, 1, attrs)
	h.nodeDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
}

// handleNodeFailed increments the failure counter.
func (h *MetricsHandler) handleNodeFailed(e minllm.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("node_kind", string(e.NodeKind)),
		attribute.String("node", e.Node),
	)
	h.nodeFailures.Add(ctx, 1, attrs)
}

// handleNodeRetried increments the retry counter.
func (h *MetricsHandler) handleNodeRetried(e minllm.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("node_kind", string(e.NodeKind)),
		attribute.String("node", e.Node),
	)
	h.nodeRetries.Add(ctx, 1, attrs)
}

// handleRunFinished records the flow run duration.
func (h *MetricsHandler) handleRunFinished(e minllm.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("flow", e.Node),
	)
	h.runDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
}
