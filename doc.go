// Package minllm is a minimal graph-based task orchestration engine.
//
// Units of work ("nodes") are composed into directed graphs ("flows").
// After each node runs, the string action it returns selects the edge to
// the next node; when no edge matches, the flow ends. Nodes expose a
// three-phase lifecycle:
//
//	Prep(store, params)  reads inputs from the shared store
//	Exec(params, prep)   runs the user logic, retried per the node's policy
//	Post(store, ...)     writes results back and returns the next action
//
// A Store is a concurrency-safe key/value container shared by every node
// invocation within one run; it is the only state shared across concurrent
// branches. Batch variants replay the exec phase (or an entire flow) once
// per element of a collection, sequentially or with parallel fan-out.
// Async variants take a context.Context at every phase so runs can be
// canceled mid-traversal.
//
// The engine is a library surface only: it has no wire protocol or graph
// file format. Subpackages add optional observability (bus, otel), a cron
// runner (sched), and a CLI (cli, cmd/minllm).
package minllm
