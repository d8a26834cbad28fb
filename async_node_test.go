package minllm

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestAsyncNodeLifecycle(t *testing.T) {
	node := NewAsyncNode(AsyncNodeConfig{
		Name: "async",
		Prep: func(ctx context.Context, store *Store, params Params) (any, error) {
			v, _ := store.Get("input")
			return v, nil
		},
		Exec: func(ctx context.Context, params Params, prep any) (any, error) {
			return prep.(int) + 1, nil
		},
		Post: func(ctx context.Context, store *Store, params Params, prep, exec any) (Action, error) {
			store.Set("output", exec)
			return "done", nil
		},
	})

	store := NewStore()
	store.Set("input", 41)

	action, err := RunAsync(context.Background(), node, store)
	if err != nil {
		t.Fatalf("RunAsync() error = %v", err)
	}
	if action != "done" {
		t.Errorf("RunAsync() action = %q, want \"done\"", action)
	}
	if v, _ := store.Get("output"); v != 42 {
		t.Errorf("output = %v, want 42", v)
	}
}

func TestAsyncNodeSyncRunIsWiringError(t *testing.T) {
	node := NewAsyncNode(AsyncNodeConfig{Name: "async-only"})

	_, err := Run(node, NewStore())
	if !errors.Is(err, ErrAsyncNode) {
		t.Errorf("Run() error = %v, want ErrAsyncNode", err)
	}
}

func TestAsyncNodeCancellationStopsRetryWait(t *testing.T) {
	node := NewAsyncNode(AsyncNodeConfig{
		Name:  "slow-retry",
		Retry: RetryPolicy{MaxAttempts: 5, Wait: time.Hour},
		Exec: func(ctx context.Context, params Params, prep any) (any, error) {
			return nil, errors.New("always fails")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := RunAsync(ctx, node, NewStore())
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunAsync() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunAsync() did not return after cancellation")
	}
}

func TestAsyncNodeFallback(t *testing.T) {
	node := NewAsyncNode(AsyncNodeConfig{
		Retry: RetryPolicy{MaxAttempts: 2},
		Exec: func(ctx context.Context, params Params, prep any) (any, error) {
			return nil, errors.New("permanent")
		},
		Fallback: func(ctx context.Context, params Params, prep any, execErr error) (any, error) {
			return "recovered", nil
		},
		Post: func(ctx context.Context, store *Store, params Params, prep, exec any) (Action, error) {
			store.Set("result", exec)
			return "", nil
		},
	})

	store := NewStore()
	if _, err := RunAsync(context.Background(), node, store); err != nil {
		t.Fatalf("RunAsync() error = %v", err)
	}
	if v, _ := store.Get("result"); v != "recovered" {
		t.Errorf("result = %v, want \"recovered\"", v)
	}
}

func TestAsyncBatchNode(t *testing.T) {
	node := NewAsyncBatchNode(AsyncNodeConfig{
		Prep: func(ctx context.Context, store *Store, params Params) (any, error) {
			return []any{"a", "b"}, nil
		},
		Exec: func(ctx context.Context, params Params, item any) (any, error) {
			return item.(string) + "!", nil
		},
		Post: func(ctx context.Context, store *Store, params Params, prep, exec any) (Action, error) {
			store.Set("results", exec)
			return "", nil
		},
	})

	store := NewStore()
	if _, err := RunAsync(context.Background(), node, store); err != nil {
		t.Fatalf("RunAsync() error = %v", err)
	}
	got, _ := store.Get("results")
	want := []any{"a!", "b!"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("results = %v, want %v", got, want)
	}
}

func TestAsyncParallelBatchNode(t *testing.T) {
	node := NewAsyncParallelBatchNode(AsyncNodeConfig{
		Prep: func(ctx context.Context, store *Store, params Params) (any, error) {
			return []any{1, 2, 3, 4}, nil
		},
		Exec: func(ctx context.Context, params Params, item any) (any, error) {
			return item.(int) * item.(int), nil
		},
		Post: func(ctx context.Context, store *Store, params Params, prep, exec any) (Action, error) {
			store.Set("results", exec)
			return "", nil
		},
	})

	store := NewStore()
	if _, err := RunAsync(context.Background(), node, store); err != nil {
		t.Fatalf("RunAsync() error = %v", err)
	}
	got, _ := store.Get("results")
	want := []any{1, 4, 9, 16}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("results = %v, want %v", got, want)
	}
}

func TestMixedGraphUnderRunAsync(t *testing.T) {
	syncNode := NewNode(NodeConfig{
		Name: "sync",
		Post: func(store *Store, params Params, prep, exec any) (Action, error) {
			store.Set("sync", true)
			return "", nil
		},
	})
	asyncNode := NewAsyncNode(AsyncNodeConfig{
		Name: "async",
		Post: func(ctx context.Context, store *Store, params Params, prep, exec any) (Action, error) {
			store.Set("async", true)
			return "", nil
		},
	})
	syncNode.Next("", asyncNode)

	store := NewStore()
	if _, err := NewFlow(syncNode).RunAsync(context.Background(), store); err != nil {
		t.Fatalf("RunAsync() error = %v", err)
	}
	if !store.Contains("sync") || !store.Contains("async") {
		t.Errorf("mixed graph incomplete: sync=%v async=%v",
			store.Contains("sync"), store.Contains("async"))
	}
}

func TestAsyncNodeInSyncFlowFails(t *testing.T) {
	asyncNode := NewAsyncNode(AsyncNodeConfig{Name: "async-only"})

	_, err := NewFlow(asyncNode).Run(NewStore())
	if !errors.Is(err, ErrAsyncNode) {
		t.Errorf("Run() error = %v, want ErrAsyncNode", err)
	}
}

func TestFlowRunAsyncCancellationStopsTraversal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := NewNode(NodeConfig{
		Name: "first",
		Post: func(store *Store, params Params, prep, exec any) (Action, error) {
			cancel()
			return "", nil
		},
	})
	second := recordNode("second", "")
	first.Next("", second)

	store := NewStore()
	_, err := NewFlow(first).RunAsync(ctx, store)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunAsync() error = %v, want context.Canceled", err)
	}
	if got := trace(t, store); len(got) != 0 {
		t.Errorf("trace = %v, want traversal stopped before second", got)
	}
}
