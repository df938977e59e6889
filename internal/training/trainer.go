package training

import (
	"errors"
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/simulator"
)

// Config controls the offline training pipeline
type Config struct {
	Seed         uint64
	TestFraction float64
	LearningRate float64
	Epochs       int
	LabelRule    LabelRule
}

func DefaultConfig() Config {
	return Config{
		Seed:         DefaultSeed,
		TestFraction: 0.2,
		LearningRate: 0.5,
		Epochs:       2000,
		LabelRule:    BreachCount,
	}
}

// Metrics are hold-out classification scores at the 0.5 cut-off
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}

func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
	}
}

// Result holds the fitted artifacts and their evaluation
type Result struct {
	Scaler     *analysis.StandardScaler
	Classifier *analysis.LogisticClassifier
	Metrics    Metrics
	TrainSize  int
	TestSize   int
}

var ErrEmptyDataset = errors.New("dataset is empty")

// Train fits the scaler on the whole dataset, then fits and evaluates the
// classifier on a seeded train/test split of the scaled rows.
func Train(ds Dataset, cfg Config) (*Result, error) {
	if len(ds) == 0 {
		return nil, ErrEmptyDataset
	}

	scaler, err := analysis.FitStandardScaler(ds.Rows())
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}

	train, test := Split(ds, simulator.NewSampler(cfg.Seed), cfg.TestFraction)
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: no training rows after split", ErrEmptyDataset)
	}

	xTrain, err := scaler.TransformAll(train.Rows())
	if err != nil {
		return nil, err
	}
	classifier, err := FitLogistic(xTrain, train.Labels(), cfg.LearningRate, cfg.Epochs)
	if err != nil {
		return nil, err
	}

	// an empty hold-out falls back to scoring the training rows
	evalSet := test
	if len(evalSet) == 0 {
		evalSet = train
	}
	xEval, err := scaler.TransformAll(evalSet.Rows())
	if err != nil {
		return nil, err
	}
	metrics, err := Evaluate(classifier, xEval, evalSet.Labels())
	if err != nil {
		return nil, err
	}

	return &Result{
		Scaler:     scaler,
		Classifier: classifier,
		Metrics:    metrics,
		TrainSize:  len(train),
		TestSize:   len(test),
	}, nil
}

// FitLogistic minimises mean log loss by full batch gradient descent
func FitLogistic(x [][]float64, y []int, learningRate float64, epochs int) (*analysis.LogisticClassifier, error) {
	if len(x) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("got %d rows but %d labels", len(x), len(y))
	}
	if learningRate <= 0 || epochs <= 0 {
		return nil, fmt.Errorf("learning rate and epochs must be positive")
	}

	dim := len(x[0])
	c := &analysis.LogisticClassifier{Weights: make([]float64, dim)}
	gradW := make([]float64, dim)
	n := float64(len(x))

	for epoch := 0; epoch < epochs; epoch++ {
		clear(gradW)
		gradB := 0.0

		for i, row := range x {
			p, err := c.PredictProba(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			diff := p - float64(y[i])
			for j, v := range row {
				gradW[j] += diff * v
			}
			gradB += diff
		}

		for j := range c.Weights {
			c.Weights[j] -= learningRate * gradW[j] / n
		}
		c.Intercept -= learningRate * gradB / n
	}

	for _, w := range c.Weights {
		if !isFinite(w) {
			return nil, fmt.Errorf("training diverged")
		}
	}
	if !isFinite(c.Intercept) {
		return nil, fmt.Errorf("training diverged")
	}
	return c, nil
}

// Evaluate scores the classifier on already scaled rows
func Evaluate(c analysis.Classifier, x [][]float64, y []int) (Metrics, error) {
	var tp, fp, tn, fn int
	for i, row := range x {
		p, err := c.PredictProba(row)
		if err != nil {
			return Metrics{}, fmt.Errorf("row %d: %w", i, err)
		}
		predicted := p >= 0.5
		switch {
		case predicted && y[i] == 1:
			tp++
		case predicted:
			fp++
		case y[i] == 1:
			fn++
		default:
			tn++
		}
	}

	m := Metrics{Support: len(x)}
	if len(x) > 0 {
		m.Accuracy = float64(tp+tn) / float64(len(x))
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	return m, nil
}

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
