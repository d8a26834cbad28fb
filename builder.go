package minllm

import (
	"fmt"
)

// FlowBuilder provides a fluent API for wiring node graphs. It tracks a
// current node so edges can be chained, and accumulates wiring errors
// until Build.
//
// Example usage:
//
//	flow, err := NewFlowBuilder().
//	    Start(fetch).
//	    Then(parse).
//	    On("retry", fetch).
//	    On("done", report).
//	    Build()
type FlowBuilder struct {
	start   Node
	current Node
	named   map[string]Node
	errors  []error
}

// NewFlowBuilder creates an empty builder. The first node added with
// Start becomes the flow's entry node.
func NewFlowBuilder() *FlowBuilder {
	return &FlowBuilder{named: make(map[string]Node)}
}

// Start sets the entry node and makes it current.
func (b *FlowBuilder) Start(n Node) *FlowBuilder {
	if n == nil {
		b.errors = append(b.errors, fmt.Errorf("cannot start with nil node"))
		return b
	}
	if b.start != nil {
		b.errors = append(b.errors, fmt.Errorf("start node already set to %q", b.start.Name()))
		return b
	}
	b.start = n
	b.current = n
	b.named[n.Name()] = n
	return b
}

// Then wires the current node's default edge to n and makes n current.
func (b *FlowBuilder) Then(n Node) *FlowBuilder {
	return b.edge(DefaultAction, n, true)
}

// On wires the current node's edge for an action to n. The current node
// is unchanged, so several branches can be wired off one node.
func (b *FlowBuilder) On(action Action, n Node) *FlowBuilder {
	return b.edge(action, n, false)
}

// OnThen is On followed by making n the current node, for wiring deeper
// into a branch.
func (b *FlowBuilder) OnThen(action Action, n Node) *FlowBuilder {
	return b.edge(action, n, true)
}

func (b *FlowBuilder) edge(action Action, n Node, advance bool) *FlowBuilder {
	if n == nil {
		b.errors = append(b.errors, fmt.Errorf("cannot wire nil node"))
		return b
	}
	if b.current == nil {
		b.errors = append(b.errors, fmt.Errorf("no current node; call Start first"))
		return b
	}
	if prev, ok := b.named[n.Name()]; ok && prev != n {
		b.errors = append(b.errors, fmt.Errorf("duplicate node name %q", n.Name()))
		return b
	}
	b.current.Next(action, n)
	b.named[n.Name()] = n
	if advance {
		b.current = n
	}
	return b
}

// From switches the current node to a previously wired node by name, for
// building non-linear graphs.
func (b *FlowBuilder) From(name string) *FlowBuilder {
	n, ok := b.named[name]
	if !ok {
		b.errors = append(b.errors, fmt.Errorf("node %q not found", name))
		return b
	}
	b.current = n
	return b
}

// Errors returns any errors accumulated during building.
func (b *FlowBuilder) Errors() []error {
	return b.errors
}

// Build returns a Flow over the wired graph, or the first error.
func (b *FlowBuilder) Build() (*Flow, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("flow builder errors: %v", b.errors)
	}
	if b.start == nil {
		return nil, fmt.Errorf("flow builder has no start node")
	}
	return NewFlow(b.start), nil
}

// MustBuild is like Build but panics on error. Useful in tests and
// examples.
func (b *FlowBuilder) MustBuild() *Flow {
	flow, err := b.Build()
	if err != nil {
		panic(err)
	}
	return flow
}
