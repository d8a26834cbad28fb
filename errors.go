package minllm

import "errors"

// Engine errors. Wiring errors indicate a programming mistake and are never
// retried; exec failures are ordinary errors routed through the retry loop
// and fallback instead.
var (
	// ErrFlowExec is returned when a flow's exec phase is invoked directly.
	// A flow's exec phase is graph traversal and only runs via Run/RunAsync.
	ErrFlowExec = errors.New("flow cannot exec directly; use Run")

	// ErrAsyncNode is returned when an async-only node is run through the
	// synchronous lifecycle.
	ErrAsyncNode = errors.New("async node must run via RunAsync")

	// ErrBatchPrep is returned when a batch node's prep phase yields
	// something other than a []any (or a batch flow's yields other than
	// []Params).
	ErrBatchPrep = errors.New("batch prep result has wrong type")

	// ErrMaxSteps is returned when a flow configured with WithMaxSteps
	// exceeds its step budget, guarding against unintended infinite cycles.
	ErrMaxSteps = errors.New("maximum flow steps exceeded")
)
