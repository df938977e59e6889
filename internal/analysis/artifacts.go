package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const (
	ScalerFile = "scaler.json"
	ModelFile  = "deviation_model.json"

	scalerKind     = "standard_scaler"
	classifierKind = "logistic_regression"
)

// ErrInvalidArtifact marks a model or scaler file that cannot be used
var ErrInvalidArtifact = errors.New("invalid model artifact")

// ScalerArtifact is the persisted form of a StandardScaler
type ScalerArtifact struct {
	Kind     string    `json:"kind"`
	Features []Feature `json:"features"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// ClassifierArtifact is the persisted form of a LogisticClassifier
type ClassifierArtifact struct {
	Kind      string             `json:"kind"`
	Features  []Feature          `json:"features"`
	Weights   []float64          `json:"weights"`
	Intercept float64            `json:"intercept"`
	LabelRule string             `json:"label_rule,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	TrainedAt time.Time          `json:"trained_at"`
}

// ArtifactStore reads and writes model artifacts under a directory
type ArtifactStore struct {
	dir string
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

func (s *ArtifactStore) Dir() string { return s.dir }

// LoadModel loads both artifacts and pairs them into a ScaledModel.
// A missing or malformed artifact is an error; there is no default model.
func (s *ArtifactStore) LoadModel() (*ScaledModel, error) {
	scaler, err := s.LoadScaler()
	if err != nil {
		return nil, err
	}
	classifier, err := s.LoadClassifier()
	if err != nil {
		return nil, err
	}
	return NewScaledModel(classifierKind, scaler, classifier), nil
}

func (s *ArtifactStore) LoadScaler() (*StandardScaler, error) {
	var art ScalerArtifact
	if err := s.readJSON(ScalerFile, &art); err != nil {
		return nil, err
	}
	if art.Kind != scalerKind {
		return nil, fmt.Errorf("%w: %s has kind %q, expected %q", ErrInvalidArtifact, ScalerFile, art.Kind, scalerKind)
	}
	if err := checkColumns(ScalerFile, art.Features, art.Mean, art.Scale); err != nil {
		return nil, err
	}
	for j, sc := range art.Scale {
		if sc < 0 {
			return nil, fmt.Errorf("%w: %s has negative scale for %s", ErrInvalidArtifact, ScalerFile, art.Features[j])
		}
	}
	return &StandardScaler{Mean: art.Mean, Scale: art.Scale}, nil
}

func (s *ArtifactStore) LoadClassifier() (*LogisticClassifier, error) {
	var art ClassifierArtifact
	if err := s.readJSON(ModelFile, &art); err != nil {
		return nil, err
	}
	if art.Kind != classifierKind {
		return nil, fmt.Errorf("%w: %s has kind %q, expected %q", ErrInvalidArtifact, ModelFile, art.Kind, classifierKind)
	}
	if err := checkColumns(ModelFile, art.Features, art.Weights); err != nil {
		return nil, err
	}
	if !finite(art.Intercept) {
		return nil, fmt.Errorf("%w: %s has a non-finite intercept", ErrInvalidArtifact, ModelFile)
	}
	return &LogisticClassifier{Weights: art.Weights, Intercept: art.Intercept}, nil
}

// SaveScaler writes the scaler artifact
func (s *ArtifactStore) SaveScaler(scaler *StandardScaler) error {
	return s.writeJSON(ScalerFile, ScalerArtifact{
		Kind:     scalerKind,
		Features: Features,
		Mean:     scaler.Mean,
		Scale:    scaler.Scale,
	})
}

// SaveClassifier writes the classifier artifact along with training metadata
func (s *ArtifactStore) SaveClassifier(c *LogisticClassifier, labelRule string, metrics map[string]float64) error {
	return s.writeJSON(ModelFile, ClassifierArtifact{
		Kind:      classifierKind,
		Features:  Features,
		Weights:   c.Weights,
		Intercept: c.Intercept,
		LabelRule: labelRule,
		Metrics:   metrics,
		TrainedAt: time.Now().UTC(),
	})
}

func (s *ArtifactStore) readJSON(name string, v any) error {
	filePath := filepath.Join(s.dir, name)

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", filePath, err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %w", ErrInvalidArtifact, filePath, err)
	}
	return nil
}

func (s *ArtifactStore) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	file, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", name, err)
	}
	return nil
}

func checkColumns(name string, features []Feature, columns ...[]float64) error {
	if !slices.Equal(features, Features) {
		return fmt.Errorf("%w: %s feature order %v does not match %v", ErrInvalidArtifact, name, features, Features)
	}
	for _, col := range columns {
		if len(col) != len(Features) {
			return fmt.Errorf("%w: %s has %d values, expected %d", ErrInvalidArtifact, name, len(col), len(Features))
		}
		if !finite(col...) {
			return fmt.Errorf("%w: %s contains non-finite values", ErrInvalidArtifact, name)
		}
	}
	return nil
}
