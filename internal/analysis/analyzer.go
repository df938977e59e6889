package analysis

import (
	"fmt"
	"math"
)

// Analyzer runs the deterministic part of a scoring pass: risk model,
// explanation, recommendations and loss classification.
type Analyzer struct {
	model Model
}

func NewAnalyzer(model Model) *Analyzer {
	return &Analyzer{model: model}
}

func (a *Analyzer) ModelName() string { return a.model.Name() }

// Assess scores a single batch
func (a *Analyzer) Assess(fv FeatureVector) (Assessment, error) {
	if err := fv.Validate(); err != nil {
		return Assessment{}, err
	}

	p, err := a.model.PredictProba(fv)
	if err != nil {
		return Assessment{}, fmt.Errorf("risk model %s failed: %w", a.model.Name(), err)
	}
	if math.IsNaN(p) {
		return Assessment{}, fmt.Errorf("risk model %s returned NaN", a.model.Name())
	}
	p = clip(p, 0, 1)

	explanation := Explain(fv)

	return Assessment{
		Model:           a.model.Name(),
		Risk:            AssessRisk(p),
		Explanation:     explanation,
		Recommendations: Recommend(explanation.TopFeatures),
	}, nil
}
