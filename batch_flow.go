package minllm

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchPrepFunc produces the parameter sets a batch flow iterates over.
type BatchPrepFunc func(store *Store, params Params) ([]Params, error)

// BatchFlow runs its graph once per parameter set produced by its batch
// prep function. For each set the flow's own params are merged with the
// set, the set winning on conflicts, and the merged params are handed to
// every node in that traversal. All runs share the same store, in order.
//
// Zero parameter sets means zero traversals; the flow's post phase still
// runs with an empty result.
type BatchFlow struct {
	*Flow

	batchPrep BatchPrepFunc
}

// NewBatchFlow creates a batch flow entering the graph at start. Configure
// the parameter sets with WithBatchPrep.
func NewBatchFlow(start Node) *BatchFlow {
	bf := &BatchFlow{Flow: NewFlow(start)}
	bf.kind = KindBatchFlow
	bf.name = string(KindBatchFlow)
	return bf
}

// WithBatchPrep sets the function producing the per-run parameter sets.
func (bf *BatchFlow) WithBatchPrep(prep BatchPrepFunc) *BatchFlow {
	bf.batchPrep = prep
	return bf
}

// WithName sets the flow's display name.
func (bf *BatchFlow) WithName(name string) *BatchFlow {
	bf.Flow.WithName(name)
	return bf
}

// WithParams sets the base params merged into every parameter set.
func (bf *BatchFlow) WithParams(p Params) *BatchFlow {
	bf.Flow.WithParams(p)
	return bf
}

// WithPost sets a post function that runs after all traversals complete.
func (bf *BatchFlow) WithPost(post PostFunc) *BatchFlow {
	bf.Flow.WithPost(post)
	return bf
}

// WithEventHandler attaches a handler observing this flow's run events.
func (bf *BatchFlow) WithEventHandler(h EventHandler) *BatchFlow {
	bf.Flow.WithEventHandler(h)
	return bf
}

// WithMaxSteps bounds the node executions of each traversal.
func (bf *BatchFlow) WithMaxSteps(n int) *BatchFlow {
	bf.Flow.WithMaxSteps(n)
	return bf
}

// Prep runs the batch prep function; its parameter sets are the flow's
// prep result.
func (bf *BatchFlow) Prep(store *Store, params Params) (any, error) {
	if bf.batchPrep == nil {
		return nil, nil
	}
	sets, err := bf.batchPrep(store, params)
	if err != nil {
		return nil, err
	}
	return sets, nil
}

// Run executes the batch flow against the store.
func (bf *BatchFlow) Run(store *Store) (Action, error) {
	return runTop(&runCtx{em: newEmitter(bf.handler)}, bf, store)
}

// RunAsync is Run with cancellation.
func (bf *BatchFlow) RunAsync(ctx context.Context, store *Store) (Action, error) {
	return runTop(&runCtx{ctx: ctx, em: newEmitter(bf.handler)}, bf, store)
}

func (bf *BatchFlow) runGraph(rc *runCtx, store *Store, params Params, prep any) (any, error) {
	sets, err := paramSets(prep)
	if err != nil {
		return nil, err
	}
	for i, set := range sets {
		if _, err := bf.orchestrate(rc, store, MergeParams(params, set)); err != nil {
			return nil, err
		}
		rc.em.emit(NewEvent(EventBatchItemFinished).WithNode(bf).
			WithPayload("item", i))
	}
	return nil, nil
}

// paramSets coerces a batch flow's prep result into its parameter sets.
// A nil prep result is a valid empty batch.
func paramSets(prep any) ([]Params, error) {
	switch v := prep.(type) {
	case nil:
		return nil, nil
	case []Params:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: prep returned %T, want []Params", ErrBatchPrep, prep)
	}
}

// ParallelBatchFlow is a BatchFlow that runs all parameter sets
// concurrently over the shared store. Nodes in the graph must be safe to
// run from several goroutines at once; per-run state stays on the call
// stack, so stateless nodes qualify by construction.
type ParallelBatchFlow struct {
	*BatchFlow
}

// NewParallelBatchFlow creates a parallel batch flow entering the graph at
// start.
func NewParallelBatchFlow(start Node) *ParallelBatchFlow {
	pf := &ParallelBatchFlow{BatchFlow: NewBatchFlow(start)}
	pf.kind = KindParallelBatchFlow
	pf.name = string(KindParallelBatchFlow)
	return pf
}

// WithBatchPrep sets the function producing the per-run parameter sets.
func (pf *ParallelBatchFlow) WithBatchPrep(prep BatchPrepFunc) *ParallelBatchFlow {
	pf.BatchFlow.WithBatchPrep(prep)
	return pf
}

// WithName sets the flow's display name.
func (pf *ParallelBatchFlow) WithName(name string) *ParallelBatchFlow {
	pf.BatchFlow.WithName(name)
	return pf
}

// WithParams sets the base params merged into every parameter set.
func (pf *ParallelBatchFlow) WithParams(p Params) *ParallelBatchFlow {
	pf.BatchFlow.WithParams(p)
	return pf
}

// WithPost sets a post function that runs after all traversals complete.
func (pf *ParallelBatchFlow) WithPost(post PostFunc) *ParallelBatchFlow {
	pf.BatchFlow.WithPost(post)
	return pf
}

// WithEventHandler attaches a handler observing this flow's run events.
// Parallel traversals invoke it concurrently.
func (pf *ParallelBatchFlow) WithEventHandler(h EventHandler) *ParallelBatchFlow {
	pf.BatchFlow.WithEventHandler(h)
	return pf
}

// WithMaxSteps bounds the node executions of each traversal.
func (pf *ParallelBatchFlow) WithMaxSteps(n int) *ParallelBatchFlow {
	pf.BatchFlow.WithMaxSteps(n)
	return pf
}

// Run executes the parallel batch flow against the store.
func (pf *ParallelBatchFlow) Run(store *Store) (Action, error) {
	return runTop(&runCtx{em: newEmitter(pf.handler)}, pf, store)
}

// RunAsync is Run with cancellation.
func (pf *ParallelBatchFlow) RunAsync(ctx context.Context, store *Store) (Action, error) {
	return runTop(&runCtx{ctx: ctx, em: newEmitter(pf.handler)}, pf, store)
}

func (pf *ParallelBatchFlow) runGraph(rc *runCtx, store *Store, params Params, prep any) (any, error) {
	sets, err := paramSets(prep)
	if err != nil {
		return nil, err
	}
	ctx := rc.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, set := range sets {
		g.Go(func() error {
			brc := &runCtx{ctx: gctx, em: rc.em}
			if _, err := pf.orchestrate(brc, store, MergeParams(params, set)); err != nil {
				return err
			}
			rc.em.emit(NewEvent(EventBatchItemFinished).WithNode(pf).
				WithPayload("item", i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nil, nil
}

var (
	_ Node     = (*BatchFlow)(nil)
	_ flowNode = (*BatchFlow)(nil)
	_ Node     = (*ParallelBatchFlow)(nil)
	_ flowNode = (*ParallelBatchFlow)(nil)
)
