package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AAxiom-org/MinLLM/bus"
)

// NewEventsCmd creates the "events" subcommand for inspecting persisted
// run events.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect persisted run events",
		RunE:  runEvents,
	}

	cmd.Flags().String("db", "", "SQLite events database (required)")
	cmd.Flags().String("run", "", "Show events for this run (default: list runs)")
	cmd.Flags().Uint64("after", 0, "Only events with a sequence above this")
	cmd.Flags().Int("limit", 0, "Maximum number of events to show")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runEvents(cmd *cobra.Command, args []string) error {
	db, _ := cmd.Flags().GetString("db")

	store, err := bus.NewSQLiteEventStore(bus.SQLiteStoreConfig{DSN: db})
	if err != nil {
		return exitError(exitConfig, "opening events database: %v", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	runID, _ := cmd.Flags().GetString("run")
	if runID == "" {
		ids, err := store.RunIDs(ctx)
		if err != nil {
			return exitError(exitRuntime, "listing runs: %v", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(out, "no runs recorded")
			return nil
		}
		for _, id := range ids {
			seq, err := store.LatestSeq(ctx, id)
			if err != nil {
				return exitError(exitRuntime, "reading run %s: %v", id, err)
			}
			fmt.Fprintf(out, "%s  (%d events)\n", id, seq)
		}
		return nil
	}

	after, _ := cmd.Flags().GetUint64("after")
	limit, _ := cmd.Flags().GetInt("limit")

	events, err := store.List(ctx, runID, after, limit)
	if err != nil {
		return exitError(exitRuntime, "listing events: %v", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "no events for run", runID)
		return nil
	}

	for _, e := range events {
		line := fmt.Sprintf("%4d  %-20s  %-12s", e.Seq, e.Kind, e.Node)
		if e.Action != "" {
			line += "  action=" + string(e.Action)
		}
		if e.Attempt > 0 {
			line += fmt.Sprintf("  attempt=%d", e.Attempt)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
