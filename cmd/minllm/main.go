package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AAxiom-org/MinLLM/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	// Local .env files are optional.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "minllm",
	Short: "MinLLM flow engine CLI",
	Long:  "MinLLM is a CLI for running, scheduling, and inspecting node-graph flows.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("minllm version %s\n", version))

	rootCmd.AddCommand(cli.NewDemoCmd())
	rootCmd.AddCommand(cli.NewEventsCmd())
	rootCmd.AddCommand(cli.NewScheduleCmd())
}
