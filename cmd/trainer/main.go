// trainer runs the offline pipeline for the deviation risk model.
//
// Usage:
//
//	trainer generate --samples 1000 --seed 42 --out data/batches.csv
//	trainer train [--data data/batches.csv] --model-dir models
//	trainer score --temperature 88 --pressure 45 --process-duration 95 --material-quality 0.7 --machine-load 60
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
)

// version is set at build time via -ldflags
var version = "dev"

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "trainer",
		Short: "Generate batch data, train the deviation risk model and score batches offline",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := monitoring.NewLoggerWithWriter(cmd.ErrOrStderr(), logLevel)
			slog.SetDefault(logger.Logger)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	root.Version = version

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newTrainCmd())
	root.AddCommand(newScoreCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
