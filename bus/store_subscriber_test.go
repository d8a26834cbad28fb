package bus

import (
	"context"
	"testing"

	minllm "github.com/AAxiom-org/MinLLM"
)

func TestStoreSubscriberPersistsEvents(t *testing.T) {
	store := NewMemEventStore()
	sub := NewStoreSubscriber(store, nil)

	sub.Handle(busEvent("run-1", 1, minllm.EventRunStarted))
	sub.Handle(busEvent("run-1", 2, minllm.EventRunFinished))

	events, err := store.List(context.Background(), "run-1", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("persisted %d events, want 2", len(events))
	}
}

func TestStoreSubscriberObservesFlow(t *testing.T) {
	store := NewMemEventStore()
	sub := NewStoreSubscriber(store, nil)

	node := minllm.NewNode(minllm.NodeConfig{Name: "step"})
	flow := minllm.NewFlow(node).WithEventHandler(sub.Handle)

	if _, err := flow.Run(minllm.NewStore()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ids, err := store.RunIDs(context.Background())
	if err != nil {
		t.Fatalf("RunIDs: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("RunIDs = %v, want one run", ids)
	}

	seq, err := store.LatestSeq(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("LatestSeq: %v", err)
	}
	if seq == 0 {
		t.Error("no events persisted for the run")
	}
}
