package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	minllm "github.com/AAxiom-org/MinLLM"
	"github.com/AAxiom-org/MinLLM/bus"
)

func TestDemoCommandCountsWords(t *testing.T) {
	cmd := NewDemoCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"hello world", "one two three"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "total words: 5 across 2 texts") {
		t.Errorf("output missing total:\n%s", got)
	}
	if !strings.Contains(got, "hello world") {
		t.Errorf("output missing echoed text:\n%s", got)
	}
}

func TestDemoCommandParallel(t *testing.T) {
	cmd := NewDemoCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--parallel", "a b", "c d", "e f"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "total words: 6 across 3 texts") {
		t.Errorf("output missing total:\n%s", out.String())
	}
}

func TestDemoCommandPersistsEvents(t *testing.T) {
	db := filepath.Join(t.TempDir(), "events.db")

	cmd := NewDemoCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--events-db", db, "hello world"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	store, err := bus.NewSQLiteEventStore(bus.SQLiteStoreConfig{DSN: db})
	if err != nil {
		t.Fatalf("open events db: %v", err)
	}
	defer store.Close()

	ids, err := store.RunIDs(context.Background())
	if err != nil {
		t.Fatalf("RunIDs: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("RunIDs = %v, want one persisted run", ids)
	}
	seq, err := store.LatestSeq(context.Background(), ids[0])
	if err != nil || seq == 0 {
		t.Errorf("LatestSeq = %d, %v, want persisted events", seq, err)
	}
}

func TestEventsCommandListsRunsAndEvents(t *testing.T) {
	db := filepath.Join(t.TempDir(), "events.db")

	// Seed the database through a real run.
	seedStore, err := bus.NewSQLiteEventStore(bus.SQLiteStoreConfig{DSN: db})
	if err != nil {
		t.Fatalf("open events db: %v", err)
	}
	sub := bus.NewStoreSubscriber(seedStore, nil)
	node := minllm.NewNode(minllm.NodeConfig{Name: "step"})
	if _, err := minllm.NewFlow(node).WithEventHandler(sub.Handle).Run(minllm.NewStore()); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	runIDs, err := seedStore.RunIDs(context.Background())
	if err != nil || len(runIDs) != 1 {
		t.Fatalf("seed RunIDs = %v, %v", runIDs, err)
	}
	_ = seedStore.Close()

	listCmd := NewEventsCmd()
	var out bytes.Buffer
	listCmd.SetOut(&out)
	listCmd.SetErr(&out)
	listCmd.SetArgs([]string{"--db", db})
	if err := listCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute(list): %v", err)
	}
	if !strings.Contains(out.String(), runIDs[0]) {
		t.Errorf("run listing missing run id:\n%s", out.String())
	}

	out.Reset()
	showCmd := NewEventsCmd()
	showCmd.SetOut(&out)
	showCmd.SetErr(&out)
	showCmd.SetArgs([]string{"--db", db, "--run", runIDs[0]})
	if err := showCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute(show): %v", err)
	}
	if !strings.Contains(out.String(), string(minllm.EventRunStarted)) {
		t.Errorf("event listing missing run_started:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "step") {
		t.Errorf("event listing missing node name:\n%s", out.String())
	}
}

func TestScheduleCommandRequiresSchedules(t *testing.T) {
	dir := t.TempDir()
	cmd := NewScheduleCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	// Point at an empty config dir so no schedules are found.
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml")})

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Fatal("Execute: error = nil, want failure")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("error = %T, want *ExitError", err)
	}
}

func TestExitError(t *testing.T) {
	err := exitError(exitRuntime, "run %s failed", "x")
	if err.Code != exitRuntime {
		t.Errorf("Code = %d, want %d", err.Code, exitRuntime)
	}
	if err.Error() != "run x failed" {
		t.Errorf("Error() = %q", err.Error())
	}
}
