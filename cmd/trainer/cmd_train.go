package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/simulator"
	"github.com/ZanzyTHEbar/batchmind/internal/training"
)

func newTrainCmd() *cobra.Command {
	var (
		dataPath string
		modelDir string
		rule     string
		samples  int
		cfg      = training.DefaultConfig()
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the scaler and classifier and write both artifacts",
		Long: "Train reads a CSV dataset, or generates one when --data is empty, fits the\n" +
			"standard scaler on every row, trains a logistic classifier on a seeded 80/20\n" +
			"split and writes scaler.json and deviation_model.json to --model-dir.",
		RunE: func(cmd *cobra.Command, args []string) error {
			labelRule, err := training.ParseLabelRule(rule)
			if err != nil {
				return err
			}
			cfg.LabelRule = labelRule

			ds, err := loadDataset(dataPath, cfg.Seed, samples, labelRule)
			if err != nil {
				return err
			}

			result, err := training.Train(ds, cfg)
			if err != nil {
				return fmt.Errorf("training failed: %w", err)
			}

			store := analysis.NewArtifactStore(modelDir)
			if err := store.SaveScaler(result.Scaler); err != nil {
				return err
			}
			if err := store.SaveClassifier(result.Classifier, string(labelRule), result.Metrics.Map()); err != nil {
				return err
			}

			slog.Info("Model trained",
				"model_dir", modelDir,
				"train_size", result.TrainSize,
				"test_size", result.TestSize,
				"positives", ds.Positives())

			m := result.Metrics
			fmt.Fprintf(cmd.OutOrStdout(), "accuracy  %.3f\nprecision %.3f\nrecall    %.3f\nsupport   %d\n",
				m.Accuracy, m.Precision, m.Recall, m.Support)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "CSV dataset from 'trainer generate' (generated in memory when empty)")
	cmd.Flags().StringVar(&modelDir, "model-dir", "./models", "directory for the model artifacts")
	cmd.Flags().StringVar(&rule, "rule", string(training.BreachCount), "label rule for generated data: breach-count or any-breach")
	cmd.Flags().IntVar(&samples, "samples", training.DefaultSamples, "samples to generate when --data is empty")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed for generation and the train/test split")
	cmd.Flags().IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "gradient descent epochs")
	cmd.Flags().Float64Var(&cfg.LearningRate, "lr", cfg.LearningRate, "gradient descent learning rate")
	cmd.Flags().Float64Var(&cfg.TestFraction, "test-fraction", cfg.TestFraction, "share of rows held out for evaluation")
	return cmd
}

func loadDataset(path string, seed uint64, samples int, rule training.LabelRule) (training.Dataset, error) {
	if path == "" {
		return training.Generate(simulator.NewSampler(seed), samples, rule), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := training.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ds, nil
}
