package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AAxiom-org/MinLLM/config"
	"github.com/AAxiom-org/MinLLM/sched"
)

// NewScheduleCmd creates the "schedule" subcommand, which runs the
// schedules declared in the config file until interrupted. Each schedule
// runs the demo word-count flow with its configured params seeded into a
// fresh store.
func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run configured cron schedules until interrupted",
		RunE:  runSchedule,
	}

	cmd.Flags().String("config", "", "Config file path (default: ./minllm.yaml, ~/.minllm/config.yaml)")

	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return exitError(exitConfig, "loading config: %v", err)
	}
	if len(cfg.Schedules) == 0 {
		return exitError(exitValidation, "no schedules configured")
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

	handler := buildEventHandler(eventStore, logger, tracing)

	scheduler := sched.New(logger)
	for _, sc := range cfg.Schedules {
		seed := map[string]any{
			"texts": []string{"scheduled run for " + sc.Name},
		}
		for k, v := range sc.Params {
			seed[k] = v
		}
		job := sched.Job{
			Name: sc.Name,
			Spec: sc.Cron,
			Flow: WordCountFlow(false, handler),
			Seed: seed,
		}
		if err := scheduler.Add(job); err != nil {
			return exitError(exitValidation, "registering schedule: %v", err)
		}
		logger.Info("schedule registered", "job", sc.Name, "cron", sc.Cron)
	}

	scheduler.Start()
	defer scheduler.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-cmd.Context().Done():
	}
	logger.Info("shutting down scheduler")
	return nil
}
