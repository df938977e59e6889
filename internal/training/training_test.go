package training

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/simulator"
)

func TestParseLabelRule(t *testing.T) {
	tests := []struct {
		in      string
		want    LabelRule
		wantErr bool
	}{
		{"", BreachCount, false},
		{"breach-count", BreachCount, false},
		{"any-breach", AnyBreach, false},
		{"majority", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabelRule(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabelRules(t *testing.T) {
	normal := analysis.FeatureVector{Temperature: 70, Pressure: 30, ProcessDuration: 60, MaterialQuality: 0.9, MachineLoad: 60}
	hot := normal
	hot.Temperature = 86
	warm := normal
	warm.Temperature = 82
	three := analysis.FeatureVector{Temperature: 81, Pressure: 41, ProcessDuration: 91, MaterialQuality: 0.9, MachineLoad: 60}

	tests := []struct {
		name        string
		fv          analysis.FeatureVector
		breachCount int
		anyBreach   int
	}{
		{"normal", normal, 0, 0},
		{"one hot reading", hot, 0, 1},
		{"between thresholds", warm, 0, 0},
		{"three breaches", three, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.breachCount, BreachCount.Label(tt.fv))
			assert.Equal(t, tt.anyBreach, AnyBreach.Label(tt.fv))
		})
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := Generate(simulator.NewSampler(DefaultSeed), 50, BreachCount)
	b := Generate(simulator.NewSampler(DefaultSeed), 50, BreachCount)
	assert.Equal(t, a, b)
	assert.Len(t, a, 50)

	for _, s := range a {
		assert.Equal(t, BreachCount.Label(s.Batch), s.Label)
		assert.GreaterOrEqual(t, s.Batch.MaterialQuality, 0.7)
		assert.Less(t, s.Batch.MaterialQuality, 1.0)
		assert.GreaterOrEqual(t, s.Batch.MachineLoad, 40.0)
		assert.Less(t, s.Batch.MachineLoad, 90.0)
	}
}

func TestAnyBreachLabelsMoreThanBreachCount(t *testing.T) {
	strict := Generate(simulator.NewSampler(DefaultSeed), DefaultSamples, BreachCount)
	loose := Generate(simulator.NewSampler(DefaultSeed), DefaultSamples, AnyBreach)
	assert.Greater(t, loose.Positives(), strict.Positives())
}

func TestSplit(t *testing.T) {
	ds := Generate(simulator.NewSampler(3), 100, BreachCount)
	train, test := Split(ds, simulator.NewSampler(9), 0.2)

	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	seen := map[analysis.FeatureVector]int{}
	for _, s := range append(append(Dataset{}, train...), test...) {
		seen[s.Batch]++
	}
	for _, s := range ds {
		assert.Equal(t, 1, seen[s.Batch])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	ds := Generate(simulator.NewSampler(5), 20, AnyBreach)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))
	assert.True(t, strings.HasPrefix(buf.String(), "temperature,pressure,process_duration,material_quality,machine_load,deviation\n"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds, got)
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"wrong header", "temp,pressure,process_duration,material_quality,machine_load,deviation\n"},
		{"bad number", "temperature,pressure,process_duration,material_quality,machine_load,deviation\nx,30,60,0.9,60,0\n"},
		{"bad label", "temperature,pressure,process_duration,material_quality,machine_load,deviation\n70,30,60,0.9,60,2\n"},
		{"non finite", "temperature,pressure,process_duration,material_quality,machine_load,deviation\nNaN,30,60,0.9,60,0\n"},
		{"short row", "temperature,pressure,process_duration,material_quality,machine_load,deviation\n70,30,60\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestFitLogisticSeparatesClasses(t *testing.T) {
	x := [][]float64{{-2}, {-1.5}, {-1}, {-0.5}, {0.5}, {1}, {1.5}, {2}}
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}

	c, err := FitLogistic(x, y, 0.5, 500)
	require.NoError(t, err)
	assert.Greater(t, c.Weights[0], 0.0)

	m, err := Evaluate(c, x, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 1.0, m.Precision)
	assert.Equal(t, 1.0, m.Recall)
}

func TestFitLogisticRejectsBadInput(t *testing.T) {
	_, err := FitLogistic(nil, nil, 0.1, 10)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = FitLogistic([][]float64{{1}}, []int{1, 0}, 0.1, 10)
	assert.Error(t, err)

	_, err = FitLogistic([][]float64{{1}}, []int{1}, 0, 10)
	assert.Error(t, err)
}

func TestEvaluateWithoutPositivePredictions(t *testing.T) {
	c := &analysis.LogisticClassifier{Weights: []float64{0}, Intercept: -10}
	m, err := Evaluate(c, [][]float64{{0}, {0}}, []int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.Accuracy)
	assert.Equal(t, 0.0, m.Precision)
	assert.Equal(t, 0.0, m.Recall)
}

func TestTrainPipeline(t *testing.T) {
	cfg := DefaultConfig()
	ds := Generate(simulator.NewSampler(cfg.Seed), DefaultSamples, AnyBreach)

	result, err := Train(ds, cfg)
	require.NoError(t, err)

	assert.Equal(t, 800, result.TrainSize)
	assert.Equal(t, 200, result.TestSize)
	assert.Equal(t, 200, result.Metrics.Support)
	assert.Greater(t, result.Metrics.Accuracy, 0.65)

	model := analysis.NewScaledModel("trained", result.Scaler, result.Classifier)
	p, err := model.PredictProba(analysis.FeatureVector{Temperature: 95, Pressure: 45, ProcessDuration: 100, MaterialQuality: 0.7, MachineLoad: 88})
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)
}

func TestTrainEmptyDataset(t *testing.T) {
	_, err := Train(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}
