package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/training"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestGenerateWritesCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "data", "batches.csv")

	_, err := run(t, "generate", "--samples", "50", "--seed", "3", "--out", out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	ds, err := training.ReadCSV(f)
	require.NoError(t, err)
	assert.Len(t, ds, 50)
}

func TestGenerateToStdoutIsDeterministic(t *testing.T) {
	first, err := run(t, "generate", "--samples", "10")
	require.NoError(t, err)
	second, err := run(t, "generate", "--samples", "10")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 11, strings.Count(first, "\n"), "header plus ten rows")
}

func TestGenerateRejectsBadFlags(t *testing.T) {
	_, err := run(t, "generate", "--rule", "majority")
	assert.Error(t, err)

	_, err = run(t, "generate", "--samples", "0")
	assert.Error(t, err)
}

func TestTrainThenScore(t *testing.T) {
	dir := t.TempDir()
	modelDir := filepath.Join(dir, "models")
	dataPath := filepath.Join(dir, "batches.csv")

	_, err := run(t, "generate", "--out", dataPath)
	require.NoError(t, err)

	out, err := run(t, "train", "--data", dataPath, "--model-dir", modelDir)
	require.NoError(t, err)
	assert.Contains(t, out, "accuracy")

	model, err := analysis.NewArtifactStore(modelDir).LoadModel()
	require.NoError(t, err)
	assert.NotEmpty(t, model.Name())

	out, err = run(t, "score", "--model-dir", modelDir, "--json",
		"--temperature", "95", "--pressure", "48", "--process-duration", "110",
		"--material-quality", "0.65", "--machine-load", "88")
	require.NoError(t, err)

	var scored scoreOutput
	require.NoError(t, json.Unmarshal([]byte(out), &scored))
	assert.Equal(t, 95.0, scored.Batch.Temperature)
	assert.Greater(t, scored.Assessment.Risk.Probability, 0.5)
	assert.Equal(t, "template", string(scored.Insight.Source))
}

func TestTrainGeneratesWhenNoData(t *testing.T) {
	modelDir := t.TempDir()
	_, err := run(t, "train", "--model-dir", modelDir, "--samples", "200", "--epochs", "200", "--rule", "any-breach")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(modelDir, analysis.ScalerFile))
	assert.FileExists(t, filepath.Join(modelDir, analysis.ModelFile))
}

func TestScoreWithThresholdModel(t *testing.T) {
	out, err := run(t, "score", "--threshold",
		"--temperature", "88", "--pressure", "45", "--process-duration", "95",
		"--material-quality", "0.7", "--machine-load", "60")
	require.NoError(t, err)

	assert.Contains(t, out, "probability    0.8")
	assert.Contains(t, out, "risk level     HIGH")
	assert.Contains(t, out, "expected loss  80000")
	assert.Contains(t, out, analysis.AlertMessage)
}

func TestScoreWithoutArtifactsFails(t *testing.T) {
	_, err := run(t, "score", "--model-dir", t.TempDir())
	assert.Error(t, err)
}
