package minllm

import (
	"context"
	"fmt"
	"time"
)

// Node is the atomic unit of work. It owns a parameter set, a retry policy,
// and a mapping from action label to successor node, and exposes the
// three-phase lifecycle the engine drives: prep, exec (with retry), post.
//
// Graphs are built by reference: wire successors with Next, wrap the entry
// node in a Flow, and invoke the flow with a Store. A bare node invoked
// through Run executes stand-alone; its successors are not followed.
//
// Custom nodes embed *BaseNode for wiring and override lifecycle methods as
// needed. The engine always dispatches through this interface, so overrides
// on the outer type take effect.
type Node interface {
	// Name returns the node's display name, used in warnings and events.
	Name() string

	// Kind reports how the engine drives the exec phase.
	Kind() NodeKind

	// Params returns the node's own parameter set.
	Params() Params

	// SetParams replaces the node's own parameter set. Not safe to call
	// concurrently with a run that uses this node.
	SetParams(Params)

	// Next registers a successor for an action label and returns the
	// successor for chaining. An empty action means DefaultAction.
	// Registering a second successor for the same label overwrites the
	// first with a warning.
	Next(action Action, n Node) Node

	// Successor looks up the successor for an action label.
	Successor(action Action) (Node, bool)

	// Successors returns the successor map. Callers must not mutate it.
	Successors() map[Action]Node

	// Retry returns the node's retry policy.
	Retry() RetryPolicy

	// Prep reads inputs from the store. The default returns nil.
	Prep(store *Store, params Params) (any, error)

	// Exec is the user logic. It is retried per the node's policy.
	Exec(params Params, prep any) (any, error)

	// ExecFallback runs once after all exec attempts fail. The default
	// re-raises execErr, making the failure fatal to the enclosing run.
	ExecFallback(params Params, prep any, execErr error) (any, error)

	// Post writes results to the store and returns the next action.
	// The default returns the empty action, which resolves to DefaultAction.
	Post(store *Store, params Params, prep, exec any) (Action, error)
}

// NodeConfig configures a function-backed node. Any nil function keeps the
// default behavior for that phase.
type NodeConfig struct {
	// Name is the display name used in warnings and events.
	// Defaults to the node kind.
	Name string

	// Retry is the exec retry policy. Zero value means a single attempt.
	Retry RetryPolicy

	// Params is the node's own parameter set.
	Params Params

	Prep     PrepFunc
	Exec     ExecFunc
	Fallback FallbackFunc
	Post     PostFunc
}

// BaseNode is the standard Node implementation. Create one with NewNode,
// NewBatchNode, or NewParallelBatchNode, or embed a *BaseNode in a custom
// type and override lifecycle methods.
type BaseNode struct {
	name   string
	kind   NodeKind
	params Params
	succs  map[Action]Node
	retry  RetryPolicy

	prep     PrepFunc
	exec     ExecFunc
	fallback FallbackFunc
	post     PostFunc
}

// NewNode creates a node whose exec phase runs once per invocation.
func NewNode(cfg NodeConfig) *BaseNode {
	return newBaseNode(KindNode, cfg)
}

// NewBatchNode creates a node whose prep phase must yield a []any; the exec
// phase is applied to each item in order, each with a fresh retry budget.
// The exec result is the ordered []any of per-item results. The first
// unrecoverable item failure aborts the batch; no partial results surface.
func NewBatchNode(cfg NodeConfig) *BaseNode {
	return newBaseNode(KindBatch, cfg)
}

// NewParallelBatchNode is NewBatchNode with concurrent fan-out: all items
// are dispatched at once and joined on completion. Results keep input
// order. If several items fail, any one of their errors may surface.
func NewParallelBatchNode(cfg NodeConfig) *BaseNode {
	return newBaseNode(KindParallelBatch, cfg)
}

func newBaseNode(kind NodeKind, cfg NodeConfig) *BaseNode {
	name := cfg.Name
	if name == "" {
		name = string(kind)
	}
	return &BaseNode{
		name:     name,
		kind:     kind,
		params:   cfg.Params,
		succs:    make(map[Action]Node),
		retry:    cfg.Retry.normalized(),
		prep:     cfg.Prep,
		exec:     cfg.Exec,
		fallback: cfg.Fallback,
		post:     cfg.Post,
	}
}

// Name returns the node's display name.
func (n *BaseNode) Name() string { return n.name }

// Kind reports how the engine drives the exec phase.
func (n *BaseNode) Kind() NodeKind { return n.kind }

// Params returns the node's own parameter set.
func (n *BaseNode) Params() Params { return n.params }

// SetParams replaces the node's own parameter set.
func (n *BaseNode) SetParams(p Params) { n.params = p }

// Retry returns the node's retry policy.
func (n *BaseNode) Retry() RetryPolicy { return n.retry }

// Next registers a successor for an action label and returns the successor
// so wiring can be chained: a.Next("", b).Next("retry", a).
func (n *BaseNode) Next(action Action, next Node) Node {
	if action == "" {
		action = DefaultAction
	}
	if _, exists := n.succs[action]; exists {
		logger().Warn("overwriting successor",
			"node", n.name, "action", string(action))
	}
	n.succs[action] = next
	return next
}

// Successor looks up the successor for an action label.
func (n *BaseNode) Successor(action Action) (Node, bool) {
	next, ok := n.succs[action]
	return next, ok
}

// Successors returns the successor map.
func (n *BaseNode) Successors() map[Action]Node { return n.succs }

// Prep runs the configured prep function, or returns nil.
func (n *BaseNode) Prep(store *Store, params Params) (any, error) {
	if n.prep == nil {
		return nil, nil
	}
	return n.prep(store, params)
}

// Exec runs the configured exec function, or returns nil.
func (n *BaseNode) Exec(params Params, prep any) (any, error) {
	if n.exec == nil {
		return nil, nil
	}
	return n.exec(params, prep)
}

// ExecFallback runs the configured fallback, or re-raises execErr.
func (n *BaseNode) ExecFallback(params Params, prep any, execErr error) (any, error) {
	if n.fallback == nil {
		return nil, execErr
	}
	return n.fallback(params, prep, execErr)
}

// Post runs the configured post function, or returns the empty action.
func (n *BaseNode) Post(store *Store, params Params, prep, exec any) (Action, error) {
	if n.post == nil {
		return "", nil
	}
	return n.post(store, params, prep, exec)
}

// Run executes a single node's lifecycle stand-alone: prep, exec with
// retry, post. Successors are not followed; if any are registered, a
// warning is emitted since only a Flow follows them. The node's own params
// are the effective params.
func Run(n Node, store *Store) (Action, error) {
	warnSuccessors(n)
	return runNode(&runCtx{}, n, store, n.Params())
}

// RunAsync is Run with a context: async nodes get their ctx-aware lifecycle
// and the run stops at the next phase boundary once ctx is canceled. Sync
// nodes run to completion without suspending.
func RunAsync(ctx context.Context, n Node, store *Store) (Action, error) {
	warnSuccessors(n)
	return runNode(&runCtx{ctx: ctx}, n, store, n.Params())
}

func warnSuccessors(n Node) {
	if len(n.Successors()) > 0 {
		logger().Warn("node will not run successors; wrap it in a Flow",
			"node", n.Name())
	}
}

// runCtx carries per-run plumbing down the traversal call stack. ctx is nil
// for synchronous runs; em is nil when no handler is attached.
type runCtx struct {
	ctx context.Context
	em  *emitter
}

func (rc *runCtx) err() error {
	if rc.ctx == nil {
		return nil
	}
	return rc.ctx.Err()
}

// sleep waits for the retry delay, honoring cancellation on async runs.
func (rc *runCtx) sleep(d time.Duration) error {
	if rc.ctx == nil {
		time.Sleep(d)
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-rc.ctx.Done():
		return rc.ctx.Err()
	case <-t.C:
		return nil
	}
}

// flowNode is the capability implemented by flow types: their exec phase is
// graph traversal rather than user logic.
type flowNode interface {
	runGraph(rc *runCtx, store *Store, params Params, prep any) (any, error)
}

// runNode drives one node's full lifecycle with the given effective params.
// Retry state lives on this call's stack; nothing per-run is stored on the
// node, so one node instance can run in any number of concurrent branches.
func runNode(rc *runCtx, n Node, store *Store, params Params) (Action, error) {
	if err := rc.err(); err != nil {
		return "", err
	}
	rc.em.emit(NewEvent(EventNodeStarted).WithNode(n))

	prep, err := prepPhase(rc, n, store, params)
	if err != nil {
		return "", failNode(rc, n, "prep", err)
	}

	var exec any
	if fl, ok := n.(flowNode); ok {
		exec, err = fl.runGraph(rc, store, params, prep)
	} else {
		exec, err = execPhase(rc, n, params, prep)
	}
	if err != nil {
		return "", failNode(rc, n, "exec", err)
	}

	action, err := postPhase(rc, n, store, params, prep, exec)
	if err != nil {
		return "", failNode(rc, n, "post", err)
	}
	if action == "" {
		action = DefaultAction
	}
	rc.em.emit(NewEvent(EventNodeFinished).WithNode(n).WithAction(action))
	return action, nil
}

func failNode(rc *runCtx, n Node, phase string, err error) error {
	rc.em.emit(NewEvent(EventNodeFailed).WithNode(n).
		WithPayload("phase", phase).
		WithPayload("error", err.Error()))
	return err
}

func prepPhase(rc *runCtx, n Node, store *Store, params Params) (any, error) {
	if rc.ctx != nil {
		if an, ok := n.(AsyncNode); ok {
			return an.PrepAsync(rc.ctx, store, params)
		}
	}
	return n.Prep(store, params)
}

func postPhase(rc *runCtx, n Node, store *Store, params Params, prep, exec any) (Action, error) {
	if rc.ctx != nil {
		if an, ok := n.(AsyncNode); ok {
			return an.PostAsync(rc.ctx, store, params, prep, exec)
		}
	}
	return n.Post(store, params, prep, exec)
}

// execPhase dispatches on the node kind: batch kinds map the exec phase
// over prep's items, everything else execs once.
func execPhase(rc *runCtx, n Node, params Params, prep any) (any, error) {
	switch n.Kind() {
	case KindBatch:
		return execBatch(rc, n, params, prep)
	case KindParallelBatch:
		return execParallelBatch(rc, n, params, prep)
	default:
		return execWithRetry(rc, n, params, prep)
	}
}

// execWithRetry attempts exec up to the policy's MaxAttempts, waiting
// between attempts (never after the last), then routes the final error to
// the node's fallback.
func execWithRetry(rc *runCtx, n Node, params Params, prep any) (any, error) {
	pol := n.Retry().normalized()
	var lastErr error
	for attempt := 1; attempt <= pol.MaxAttempts; attempt++ {
		res, err := callExec(rc, n, params, prep)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt < pol.MaxAttempts {
			rc.em.emit(NewEvent(EventNodeRetried).WithNode(n).
				WithAttempt(attempt).
				WithPayload("error", err.Error()))
			if pol.Wait > 0 {
				if werr := rc.sleep(pol.Wait); werr != nil {
					return nil, werr
				}
			}
		}
	}
	rc.em.emit(NewEvent(EventNodeFallback).WithNode(n).
		WithAttempt(pol.MaxAttempts).
		WithPayload("error", lastErr.Error()))
	return callFallback(rc, n, params, prep, lastErr)
}

func callExec(rc *runCtx, n Node, params Params, prep any) (any, error) {
	if rc.ctx != nil {
		if an, ok := n.(AsyncNode); ok {
			return an.ExecAsync(rc.ctx, params, prep)
		}
	}
	return n.Exec(params, prep)
}

func callFallback(rc *runCtx, n Node, params Params, prep any, execErr error) (any, error) {
	if rc.ctx != nil {
		if an, ok := n.(AsyncNode); ok {
			return an.ExecFallbackAsync(rc.ctx, params, prep, execErr)
		}
	}
	return n.ExecFallback(params, prep, execErr)
}

// batchItems coerces a batch node's prep result into its item slice.
// A nil prep result is a valid empty batch.
func batchItems(prep any) ([]any, error) {
	switch v := prep.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: prep returned %T, want []any", ErrBatchPrep, prep)
	}
}

// Ensure interface compliance at compile time.
var _ Node = (*BaseNode)(nil)
