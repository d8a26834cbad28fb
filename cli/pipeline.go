package cli

import (
	"context"
	"fmt"
	"strings"

	minllm "github.com/AAxiom-org/MinLLM"
)

// Flow is the common surface of Flow, BatchFlow, and ParallelBatchFlow
// that the CLI needs.
type Flow interface {
	RunAsync(ctx context.Context, store *minllm.Store) (minllm.Action, error)
}

// WordCountFlow builds the demo pipeline: a batch flow running a
// tokenize-then-count graph once per text in the store's "texts" slice,
// with a post phase that totals the per-text counts. Parallel mode fans
// the texts out concurrently.
func WordCountFlow(parallel bool, handler minllm.EventHandler) Flow {
	tokenize := minllm.NewNode(minllm.NodeConfig{
		Name: "tokenize",
		Exec: func(params minllm.Params, prep any) (any, error) {
			return strings.Fields(params.GetString("text")), nil
		},
		Post: func(store *minllm.Store, params minllm.Params, prep, exec any) (minllm.Action, error) {
			store.Set(wordsKey(params), exec)
			return "count", nil
		},
	})

	count := minllm.NewNode(minllm.NodeConfig{
		Name: "count",
		Prep: func(store *minllm.Store, params minllm.Params) (any, error) {
			words, ok := store.Get(wordsKey(params))
			if !ok {
				return nil, fmt.Errorf("no tokens for text %v", params["index"])
			}
			return words, nil
		},
		Exec: func(params minllm.Params, prep any) (any, error) {
			return len(prep.([]string)), nil
		},
		Post: func(store *minllm.Store, params minllm.Params, prep, exec any) (minllm.Action, error) {
			store.Remove(wordsKey(params))
			store.Set(countKey(params["index"].(int)), exec)
			return "", nil
		},
	})
	tokenize.Next("count", count)

	batchPrep := func(store *minllm.Store, params minllm.Params) ([]minllm.Params, error) {
		texts, _ := store.Get("texts")
		list, ok := texts.([]string)
		if !ok {
			return nil, fmt.Errorf("store key \"texts\" must hold []string, got %T", texts)
		}
		sets := make([]minllm.Params, len(list))
		for i, t := range list {
			sets[i] = minllm.Params{"text": t, "index": i}
		}
		return sets, nil
	}

	post := func(store *minllm.Store, params minllm.Params, prep, exec any) (minllm.Action, error) {
		total := 0
		for _, key := range store.Keys() {
			if !strings.HasPrefix(key, "count:") {
				continue
			}
			if n, ok := store.Get(key); ok {
				if c, ok := n.(int); ok {
					total += c
				}
			}
		}
		store.Set("total", total)
		return "", nil
	}

	if parallel {
		return minllm.NewParallelBatchFlow(tokenize).
			WithName("wordcount-parallel").
			WithBatchPrep(batchPrep).
			WithPost(post).
			WithEventHandler(handler)
	}
	return minllm.NewBatchFlow(tokenize).
		WithName("wordcount").
		WithBatchPrep(batchPrep).
		WithPost(post).
		WithEventHandler(handler)
}

func wordsKey(params minllm.Params) string {
	return fmt.Sprintf("words:%v", params["index"])
}

func countKey(i int) string {
	return fmt.Sprintf("count:%d", i)
}
