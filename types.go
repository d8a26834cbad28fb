package minllm

import (
	"context"
	"time"
)

// Action is the string label a node returns from its post phase. The flow
// uses it to select the edge to the next node; it is never persisted.
type Action string

// DefaultAction is the edge label used when a node returns an empty action,
// and the fallback label tried when a returned action has no exact match.
const DefaultAction Action = "default"

// NodeKind identifies how the engine drives a node's exec phase.
// The set of kinds is intentionally small and closed.
type NodeKind string

const (
	KindNode              NodeKind = "node"
	KindBatch             NodeKind = "batch"
	KindParallelBatch     NodeKind = "parallel_batch"
	KindFlow              NodeKind = "flow"
	KindBatchFlow         NodeKind = "batch_flow"
	KindParallelBatchFlow NodeKind = "parallel_batch_flow"
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	return string(k)
}

// Params is a per-node (or per-flow) configuration mapping. A flow hands its
// effective params to each node before the node runs; batch flows merge a
// batch item's params over the flow's own. Params travel down the run call
// stack, so concurrent branches never observe each other's params.
type Params map[string]any

// Clone returns a shallow copy of the params.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// GetString retrieves a param as a string.
// Returns empty string if not found or not a string.
func (p Params) GetString(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// MergeParams overlays override on top of base without mutating either.
// Override keys win; base keys fill the gaps.
func MergeParams(base, override Params) Params {
	if len(override) == 0 {
		return base.Clone()
	}
	out := make(Params, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// RetryPolicy configures the retry behavior of a node's exec phase.
// Only the exec phase retries; prep and post failures propagate immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of exec attempts (1 = no retries).
	MaxAttempts int

	// Wait is the fixed delay between attempts. No wait occurs after the
	// final attempt.
	Wait time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured:
// a single attempt with no wait.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// normalized clamps the policy to its documented invariants.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Wait < 0 {
		p.Wait = 0
	}
	return p
}

// Lifecycle function types for function-backed nodes.
type (
	// PrepFunc reads inputs from the store. It should not mutate the store.
	PrepFunc func(store *Store, params Params) (any, error)

	// ExecFunc is the user logic. It may fail and be retried.
	ExecFunc func(params Params, prep any) (any, error)

	// FallbackFunc runs after all exec attempts fail. The default behavior
	// re-raises execErr.
	FallbackFunc func(params Params, prep any, execErr error) (any, error)

	// PostFunc writes results to the store and returns the next action.
	PostFunc func(store *Store, params Params, prep, exec any) (Action, error)
)

// Async lifecycle function types. Each phase is a suspension point: it
// receives the run's context and should honor cancellation.
type (
	AsyncPrepFunc     func(ctx context.Context, store *Store, params Params) (any, error)
	AsyncExecFunc     func(ctx context.Context, params Params, prep any) (any, error)
	AsyncFallbackFunc func(ctx context.Context, params Params, prep any, execErr error) (any, error)
	AsyncPostFunc     func(ctx context.Context, store *Store, params Params, prep, exec any) (Action, error)
)
