package sched

import (
	"sync/atomic"
	"testing"
	"time"

	minllm "github.com/AAxiom-org/MinLLM"
)

func countingFlow(runs *atomic.Int64) *minllm.Flow {
	node := minllm.NewNode(minllm.NodeConfig{
		Name: "tick",
		Post: func(store *minllm.Store, params minllm.Params, prep, exec any) (minllm.Action, error) {
			runs.Add(1)
			return "", nil
		},
	})
	return minllm.NewFlow(node)
}

func TestSchedulerAddValidatesJobs(t *testing.T) {
	s := New(nil)
	var runs atomic.Int64
	flow := countingFlow(&runs)

	if err := s.Add(Job{Spec: "* * * * *", Flow: flow}); err == nil {
		t.Error("Add() without name: error = nil")
	}
	if err := s.Add(Job{Name: "x", Spec: "* * * * *"}); err == nil {
		t.Error("Add() without flow: error = nil")
	}
	if err := s.Add(Job{Name: "x", Spec: "not a cron spec", Flow: flow}); err == nil {
		t.Error("Add() with bad spec: error = nil")
	}
	if err := s.Add(Job{Name: "x", Spec: "* * * * *", Flow: flow}); err != nil {
		t.Errorf("Add() valid job: %v", err)
	}
	if err := s.Add(Job{Name: "x", Spec: "* * * * *", Flow: flow}); err == nil {
		t.Error("Add() duplicate name: error = nil")
	}
}

func TestSchedulerJobsAndRemove(t *testing.T) {
	s := New(nil)
	var runs atomic.Int64
	flow := countingFlow(&runs)

	if err := s.Add(Job{Name: "a", Spec: "* * * * *", Flow: flow}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(Job{Name: "b", Spec: "* * * * *", Flow: flow}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got := s.Jobs(); len(got) != 2 {
		t.Errorf("Jobs() = %v, want 2 jobs", got)
	}

	s.Remove("a")
	if got := s.Jobs(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Jobs() after Remove = %v, want [b]", got)
	}

	// Removing an unknown name is a no-op.
	s.Remove("ghost")
}

func TestSchedulerRunNow(t *testing.T) {
	s := New(nil)
	var runs atomic.Int64

	if err := s.Add(Job{Name: "job", Spec: "0 0 1 1 *", Flow: countingFlow(&runs)}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.RunNow("job"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}

	if err := s.RunNow("ghost"); err == nil {
		t.Error("RunNow(ghost): error = nil")
	}
}

func TestSchedulerSeedsFreshStore(t *testing.T) {
	s := New(nil)
	var seen atomic.Value

	node := minllm.NewNode(minllm.NodeConfig{
		Post: func(store *minllm.Store, params minllm.Params, prep, exec any) (minllm.Action, error) {
			seen.Store(store.GetString("tenant"))
			// Leak a key to prove the next run gets a fresh store.
			if store.Contains("leak") {
				seen.Store("stale store reused")
			}
			store.Set("leak", true)
			return "", nil
		},
	})

	job := Job{
		Name: "seeded",
		Spec: "0 0 1 1 *",
		Flow: minllm.NewFlow(node),
		Seed: map[string]any{"tenant": "acme"},
	}
	if err := s.Add(job); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.RunNow("seeded"); err != nil {
			t.Fatalf("RunNow: %v", err)
		}
		if got := seen.Load(); got != "acme" {
			t.Fatalf("run %d saw %v, want seeded fresh store", i, got)
		}
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := New(nil)
	var runs atomic.Int64
	if err := s.Add(Job{Name: "job", Spec: "* * * * *", Flow: countingFlow(&runs)}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s.Start()
	time.Sleep(10 * time.Millisecond)
	s.Stop()
}
