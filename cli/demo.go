package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	minllm "github.com/AAxiom-org/MinLLM"
	"github.com/AAxiom-org/MinLLM/config"
)

// NewDemoCmd creates the "demo" subcommand, which runs a word-count
// pipeline over the given texts and prints per-text and total counts.
func NewDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo [text ...]",
		Short: "Run a demo word-count pipeline",
		Long: "Runs a batch flow that counts words in each given text. " +
			"With no arguments a small built-in corpus is used.",
		RunE: runDemo,
	}

	cmd.Flags().Bool("parallel", false, "Process texts concurrently")
	cmd.Flags().String("config", "", "Config file path (default: ./minllm.yaml, ~/.minllm/config.yaml)")
	cmd.Flags().String("events-db", "", "Persist run events to this SQLite file")
	cmd.Flags().String("otlp-endpoint", "", "Export traces to this OTLP/HTTP endpoint")
	cmd.Flags().Duration("timeout", time.Minute, "Run timeout")

	return cmd
}

func runDemo(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return exitError(exitConfig, "loading config: %v", err)
	}

	// Flag overrides.
	if db, _ := cmd.Flags().GetString("events-db"); db != "" {
		cfg.Events = config.EventsConfig{Driver: "sqlite", Path: db}
	}
	if ep, _ := cmd.Flags().GetString("otlp-endpoint"); ep != "" {
		cfg.OTLP = config.OTLPConfig{Endpoint: ep, Insecure: true}
	}

	logger := buildLogger(cfg.Log)

	eventStore, closeStore, err := buildEventStore(cfg.Events)
	if err != nil {
		return exitError(exitConfig, "opening event store: %v", err)
	}
	defer closeStore()

	tracing, shutdownTracing, err := buildTracing(cmd.Context(), cfg.OTLP)
	if err != nil {
		return exitError(exitConfig, "setting up tracing: %v", err)
	}
	defer shutdownTracing()

	texts := args
	if len(texts) == 0 {
		texts = []string{
			"the quick brown fox jumps over the lazy dog",
			"to be or not to be",
			"a flow is a graph of nodes",
		}
	}

	parallel, _ := cmd.Flags().GetBool("parallel")
	flow := WordCountFlow(parallel, buildEventHandler(eventStore, logger, tracing))

	store := minllm.NewStore()
	store.Set("texts", texts)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if _, err := flow.RunAsync(ctx, store); err != nil {
		return exitError(exitRuntime, "run failed: %v", err)
	}

	out := cmd.OutOrStdout()
	for i, text := range texts {
		count, _ := store.Get(countKey(i))
		fmt.Fprintf(out, "%3v  %s\n", count, truncate(text, 60))
	}
	total, _ := store.Get("total")
	fmt.Fprintf(out, "total words: %v across %d texts\n", total, len(texts))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
