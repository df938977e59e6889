package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/batchmind/internal/simulator"
	"github.com/ZanzyTHEbar/batchmind/internal/training"
)

func newGenerateCmd() *cobra.Command {
	var (
		samples int
		seed    uint64
		rule    string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a labelled synthetic batch dataset as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			labelRule, err := training.ParseLabelRule(rule)
			if err != nil {
				return err
			}
			if samples <= 0 {
				return fmt.Errorf("--samples must be positive, got %d", samples)
			}

			ds := training.Generate(simulator.NewSampler(seed), samples, labelRule)

			if out == "" || out == "-" {
				return training.WriteCSV(cmd.OutOrStdout(), ds)
			}
			if err := writeFile(out, func(w io.Writer) error { return training.WriteCSV(w, ds) }); err != nil {
				return err
			}

			slog.Info("Dataset written",
				"path", out,
				"samples", len(ds),
				"positives", ds.Positives(),
				"label_rule", string(labelRule))
			return nil
		},
	}

	cmd.Flags().IntVar(&samples, "samples", training.DefaultSamples, "number of batches to draw")
	cmd.Flags().Uint64Var(&seed, "seed", training.DefaultSeed, "random seed")
	cmd.Flags().StringVar(&rule, "rule", string(training.BreachCount), "label rule: breach-count or any-breach")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV path (stdout when empty)")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
