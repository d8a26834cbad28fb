package minllm

import (
	"context"
)

// Flow runs a graph of nodes starting from a designated entry node,
// following the action returned by each node's post phase to pick the next
// node. A Flow is itself a Node, so flows nest inside other flows as
// ordinary graph members.
//
// During traversal every node receives the flow's effective params; the
// nodes' own params are not consulted. A returned action with no matching
// successor falls back to the "default" edge, and if that is also absent
// the traversal ends at that node.
type Flow struct {
	*BaseNode

	start    Node
	handler  EventHandler
	maxSteps int
}

// NewFlow creates a flow that enters the graph at start.
func NewFlow(start Node) *Flow {
	return &Flow{
		BaseNode: newBaseNode(KindFlow, NodeConfig{}),
		start:    start,
	}
}

// Start returns the flow's entry node.
func (f *Flow) Start() Node { return f.start }

// WithName sets the flow's display name.
func (f *Flow) WithName(name string) *Flow {
	f.name = name
	return f
}

// WithParams sets the flow's params, handed to every node it traverses.
func (f *Flow) WithParams(p Params) *Flow {
	f.params = p
	return f
}

// WithPrep sets a prep function that runs before traversal begins.
func (f *Flow) WithPrep(prep PrepFunc) *Flow {
	f.prep = prep
	return f
}

// WithPost sets a post function that runs after traversal completes. Its
// exec argument is the action returned by the last node in the traversal.
func (f *Flow) WithPost(post PostFunc) *Flow {
	f.post = post
	return f
}

// WithEventHandler attaches a handler that observes this flow's run events.
// The handler is advisory: it cannot alter the run, and it is invoked
// inline, so it must be fast and safe for concurrent calls when parallel
// nodes are in the graph.
func (f *Flow) WithEventHandler(h EventHandler) *Flow {
	f.handler = h
	return f
}

// WithMaxSteps bounds the number of node executions in one traversal.
// Zero means unbounded. Exceeding the bound fails the run with ErrMaxSteps,
// which catches accidental cycles.
func (f *Flow) WithMaxSteps(n int) *Flow {
	f.maxSteps = n
	return f
}

// Exec reports a wiring error: a flow's exec phase is graph traversal and
// is never invoked directly.
func (f *Flow) Exec(params Params, prep any) (any, error) {
	return nil, ErrFlowExec
}

// Run executes the flow against the store and returns the action produced
// by the flow's post phase.
func (f *Flow) Run(store *Store) (Action, error) {
	return runTop(&runCtx{em: newEmitter(f.handler)}, f, store)
}

// RunAsync is Run with cancellation: the traversal stops at the next node
// boundary once ctx is canceled, and async nodes receive ctx directly.
func (f *Flow) RunAsync(ctx context.Context, store *Store) (Action, error) {
	return runTop(&runCtx{ctx: ctx, em: newEmitter(f.handler)}, f, store)
}

// runTop wraps one top-level run with its start and finish events. self is
// the outermost node so embedding types dispatch their own overrides.
func runTop(rc *runCtx, self Node, store *Store) (Action, error) {
	rc.em.emit(NewEvent(EventRunStarted).WithNode(self))
	action, err := runNode(rc, self, store, self.Params())
	ev := NewEvent(EventRunFinished).WithNode(self).WithAction(action)
	if err != nil {
		ev = ev.WithPayload("error", err.Error())
	}
	rc.em.emit(ev)
	return action, err
}

// runGraph is the flow's exec phase: traverse from start until no
// successor matches.
func (f *Flow) runGraph(rc *runCtx, store *Store, params Params, prep any) (any, error) {
	return f.orchestrate(rc, store, params)
}

// orchestrate walks the graph, handing params to every node. It returns
// the action produced by the last node, which feeds the flow's post phase.
func (f *Flow) orchestrate(rc *runCtx, store *Store, params Params) (any, error) {
	var last Action
	steps := 0
	for current := f.start; current != nil; {
		if err := rc.err(); err != nil {
			return nil, err
		}
		steps++
		if f.maxSteps > 0 && steps > f.maxSteps {
			return nil, ErrMaxSteps
		}
		action, err := runNode(rc, current, store, params)
		if err != nil {
			return nil, err
		}
		last = action
		current = nextNode(current, action)
	}
	return last, nil
}

// nextNode resolves the successor for an action, falling back to the
// default edge. A node with successors but no match for the action ends
// the traversal with a warning, since that usually means a mislabeled edge.
func nextNode(current Node, action Action) Node {
	if next, ok := current.Successor(action); ok {
		return next
	}
	if action != DefaultAction {
		if next, ok := current.Successor(DefaultAction); ok {
			return next
		}
	}
	if len(current.Successors()) > 0 {
		logger().Warn("traversal ended on unmatched action",
			"node", current.Name(),
			"action", string(action),
			"registered", registeredActions(current))
	}
	return nil
}

func registeredActions(n Node) []string {
	succs := n.Successors()
	actions := make([]string, 0, len(succs))
	for a := range succs {
		actions = append(actions, string(a))
	}
	return actions
}

var (
	_ Node     = (*Flow)(nil)
	_ flowNode = (*Flow)(nil)
)
