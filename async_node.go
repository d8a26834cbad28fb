package minllm

import (
	"context"
)

// AsyncNode is the capability a node advertises to receive a context in
// its lifecycle. Flows detect it by interface assertion during an async
// run, so sync and async nodes mix freely in one graph: sync nodes run
// their plain lifecycle, async nodes get ctx.
type AsyncNode interface {
	Node

	PrepAsync(ctx context.Context, store *Store, params Params) (any, error)
	ExecAsync(ctx context.Context, params Params, prep any) (any, error)
	ExecFallbackAsync(ctx context.Context, params Params, prep any, execErr error) (any, error)
	PostAsync(ctx context.Context, store *Store, params Params, prep, exec any) (Action, error)
}

// AsyncNodeConfig configures a function-backed async node. Any nil function
// keeps the default behavior for that phase.
type AsyncNodeConfig struct {
	// Name is the display name used in warnings and events.
	// Defaults to the node kind.
	Name string

	// Retry is the exec retry policy. Zero value means a single attempt.
	Retry RetryPolicy

	// Params is the node's own parameter set.
	Params Params

	Prep     AsyncPrepFunc
	Exec     AsyncExecFunc
	Fallback AsyncFallbackFunc
	Post     AsyncPostFunc
}

// BaseAsyncNode is a node whose lifecycle takes a context. It only runs
// inside RunAsync or a flow's RunAsync; invoking it through a synchronous
// run is a wiring error reported as ErrAsyncNode.
type BaseAsyncNode struct {
	*BaseNode

	prepAsync     AsyncPrepFunc
	execAsync     AsyncExecFunc
	fallbackAsync AsyncFallbackFunc
	postAsync     AsyncPostFunc
}

// NewAsyncNode creates an async node whose exec phase runs once per
// invocation.
func NewAsyncNode(cfg AsyncNodeConfig) *BaseAsyncNode {
	return newBaseAsyncNode(KindNode, cfg)
}

// NewAsyncBatchNode creates an async node whose prep phase must yield a
// []any mapped through the exec phase in order, each item with a fresh
// retry budget.
func NewAsyncBatchNode(cfg AsyncNodeConfig) *BaseAsyncNode {
	return newBaseAsyncNode(KindBatch, cfg)
}

// NewAsyncParallelBatchNode is NewAsyncBatchNode with concurrent fan-out.
func NewAsyncParallelBatchNode(cfg AsyncNodeConfig) *BaseAsyncNode {
	return newBaseAsyncNode(KindParallelBatch, cfg)
}

func newBaseAsyncNode(kind NodeKind, cfg AsyncNodeConfig) *BaseAsyncNode {
	return &BaseAsyncNode{
		BaseNode: newBaseNode(kind, NodeConfig{
			Name:   cfg.Name,
			Retry:  cfg.Retry,
			Params: cfg.Params,
		}),
		prepAsync:     cfg.Prep,
		execAsync:     cfg.Exec,
		fallbackAsync: cfg.Fallback,
		postAsync:     cfg.Post,
	}
}

// PrepAsync runs the configured prep function, or returns nil.
func (n *BaseAsyncNode) PrepAsync(ctx context.Context, store *Store, params Params) (any, error) {
	if n.prepAsync == nil {
		return nil, nil
	}
	return n.prepAsync(ctx, store, params)
}

// ExecAsync runs the configured exec function, or returns nil.
func (n *BaseAsyncNode) ExecAsync(ctx context.Context, params Params, prep any) (any, error) {
	if n.execAsync == nil {
		return nil, nil
	}
	return n.execAsync(ctx, params, prep)
}

// ExecFallbackAsync runs the configured fallback, or re-raises execErr.
func (n *BaseAsyncNode) ExecFallbackAsync(ctx context.Context, params Params, prep any, execErr error) (any, error) {
	if n.fallbackAsync == nil {
		return nil, execErr
	}
	return n.fallbackAsync(ctx, params, prep, execErr)
}

// PostAsync runs the configured post function, or returns the empty action.
func (n *BaseAsyncNode) PostAsync(ctx context.Context, store *Store, params Params, prep, exec any) (Action, error) {
	if n.postAsync == nil {
		return "", nil
	}
	return n.postAsync(ctx, store, params, prep, exec)
}

// Prep reports a wiring error: async nodes run only under RunAsync.
func (n *BaseAsyncNode) Prep(store *Store, params Params) (any, error) {
	return nil, ErrAsyncNode
}

// Exec reports a wiring error: async nodes run only under RunAsync.
func (n *BaseAsyncNode) Exec(params Params, prep any) (any, error) {
	return nil, ErrAsyncNode
}

// ExecFallback reports a wiring error: async nodes run only under RunAsync.
func (n *BaseAsyncNode) ExecFallback(params Params, prep any, execErr error) (any, error) {
	return nil, ErrAsyncNode
}

// Post reports a wiring error: async nodes run only under RunAsync.
func (n *BaseAsyncNode) Post(store *Store, params Params, prep, exec any) (Action, error) {
	return "", ErrAsyncNode
}

var _ AsyncNode = (*BaseAsyncNode)(nil)
