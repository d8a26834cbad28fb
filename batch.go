package minllm

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// execBatch runs the exec-with-retry cycle once per prep item, in order.
// Each item gets a fresh retry budget. The first item whose fallback also
// fails aborts the batch; earlier results are discarded with the error.
func execBatch(rc *runCtx, n Node, params Params, prep any) (any, error) {
	items, err := batchItems(prep)
	if err != nil {
		return nil, err
	}
	results := make([]any, len(items))
	for i, item := range items {
		if err := rc.err(); err != nil {
			return nil, err
		}
		res, err := execWithRetry(rc, n, params, item)
		if err != nil {
			return nil, err
		}
		results[i] = res
		rc.em.emit(NewEvent(EventBatchItemFinished).WithNode(n).
			WithPayload("item", i))
	}
	return results, nil
}

// execParallelBatch fans the items out concurrently and joins before
// returning. Results keep input order. On failure every in-flight item is
// allowed to finish its attempt cycle, then one of the errors is returned.
func execParallelBatch(rc *runCtx, n Node, params Params, prep any) (any, error) {
	items, err := batchItems(prep)
	if err != nil {
		return nil, err
	}
	ctx := rc.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	g, gctx := errgroup.WithContext(ctx)
	results := make([]any, len(items))
	for i, item := range items {
		g.Go(func() error {
			brc := &runCtx{ctx: gctx, em: rc.em}
			res, err := execWithRetry(brc, n, params, item)
			if err != nil {
				return err
			}
			results[i] = res
			rc.em.emit(NewEvent(EventBatchItemFinished).WithNode(n).
				WithPayload("item", i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
