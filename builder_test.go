package minllm

import (
	"testing"
)

func TestFlowBuilderLinear(t *testing.T) {
	a := recordNode("a", "")
	b := recordNode("b", "")
	c := recordNode("c", "")

	flow, err := NewFlowBuilder().
		Start(a).
		Then(b).
		Then(c).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	store := NewStore()
	if _, err := flow.Run(store); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := trace(t, store)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("trace = %v, want [a b c]", got)
	}
}

func TestFlowBuilderBranches(t *testing.T) {
	router := NewNode(NodeConfig{
		Name: "router",
		Post: func(store *Store, params Params, prep, exec any) (Action, error) {
			return Action(store.GetString("route")), nil
		},
	})
	approve := recordNode("approve", "")
	reject := recordNode("reject", "")

	flow, err := NewFlowBuilder().
		Start(router).
		On("approve", approve).
		On("reject", reject).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	store := NewStore()
	store.Set("route", "reject")
	if _, err := flow.Run(store); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := trace(t, store)
	if len(got) != 1 || got[0] != "reject" {
		t.Errorf("trace = %v, want [reject]", got)
	}
}

func TestFlowBuilderFromRevisits(t *testing.T) {
	a := recordNode("a", "split")
	left := recordNode("left", "")
	right := recordNode("right", "")

	flow, err := NewFlowBuilder().
		Start(a).
		OnThen("split", left).
		From("a").
		On("other", right).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	store := NewStore()
	if _, err := flow.Run(store); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := trace(t, store)
	if len(got) != 2 || got[1] != "left" {
		t.Errorf("trace = %v, want [a left]", got)
	}
}

func TestFlowBuilderErrors(t *testing.T) {
	t.Run("no start", func(t *testing.T) {
		if _, err := NewFlowBuilder().Build(); err == nil {
			t.Error("Build() error = nil, want missing start error")
		}
	})

	t.Run("then before start", func(t *testing.T) {
		_, err := NewFlowBuilder().Then(recordNode("b", "")).Build()
		if err == nil {
			t.Error("Build() error = nil, want no-current-node error")
		}
	})

	t.Run("nil node", func(t *testing.T) {
		_, err := NewFlowBuilder().Start(nil).Build()
		if err == nil {
			t.Error("Build() error = nil, want nil node error")
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := NewFlowBuilder().
			Start(recordNode("dup", "")).
			Then(recordNode("dup", "")).
			Build()
		if err == nil {
			t.Error("Build() error = nil, want duplicate name error")
		}
	})

	t.Run("unknown from", func(t *testing.T) {
		_, err := NewFlowBuilder().
			Start(recordNode("a", "")).
			From("ghost").
			Build()
		if err == nil {
			t.Error("Build() error = nil, want unknown node error")
		}
	})
}

func TestFlowBuilderMustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustBuild() did not panic on an invalid builder")
		}
	}()
	NewFlowBuilder().MustBuild()
}
