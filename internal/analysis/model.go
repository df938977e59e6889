package analysis

import (
	"fmt"
	"math"
)

// Model maps a batch to the probability that it deviates
type Model interface {
	Name() string
	PredictProba(fv FeatureVector) (float64, error)
}

// Classifier is a probabilistic binary classifier over an already scaled row
type Classifier interface {
	PredictProba(x []float64) (float64, error)
}

// ThresholdModel scores a batch by the fraction of threshold rules it breaches.
// It needs no artifacts and is used for development and tests.
type ThresholdModel struct{}

func NewThresholdModel() ThresholdModel { return ThresholdModel{} }

func (ThresholdModel) Name() string { return "threshold" }

func (ThresholdModel) PredictProba(fv FeatureVector) (float64, error) {
	return clip(float64(BreachCount(fv))/float64(len(Rules)), 0, 1), nil
}

// Predict returns the hard label: 1 when three or more rules are breached
func (ThresholdModel) Predict(fv FeatureVector) int {
	if BreachCount(fv) >= 3 {
		return 1
	}
	return 0
}

// LogisticClassifier is a linear model squashed through a sigmoid
type LogisticClassifier struct {
	Weights   []float64
	Intercept float64
}

func (c *LogisticClassifier) PredictProba(x []float64) (float64, error) {
	if len(x) != len(c.Weights) {
		return 0, fmt.Errorf("logistic classifier expects %d inputs, got %d", len(c.Weights), len(x))
	}
	z := c.Intercept
	for i, w := range c.Weights {
		z += w * x[i]
	}
	return sigmoid(z), nil
}

// ScaledModel applies the fitted scaler before the classifier
type ScaledModel struct {
	name       string
	scaler     *StandardScaler
	classifier Classifier
}

func NewScaledModel(name string, scaler *StandardScaler, classifier Classifier) *ScaledModel {
	return &ScaledModel{name: name, scaler: scaler, classifier: classifier}
}

func (m *ScaledModel) Name() string { return m.name }

func (m *ScaledModel) PredictProba(fv FeatureVector) (float64, error) {
	scaled, err := m.scaler.Transform(fv.Values())
	if err != nil {
		return 0, fmt.Errorf("failed to scale features: %w", err)
	}
	p, err := m.classifier.PredictProba(scaled)
	if err != nil {
		return 0, fmt.Errorf("classifier prediction failed: %w", err)
	}
	return p, nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
