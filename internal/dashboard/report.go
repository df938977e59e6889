package dashboard

import (
	"time"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/narrative"
)

// Source records how a batch entered the system
type Source string

const (
	SourceManual    Source = "manual"
	SourceSimulated Source = "simulated"
	SourceLive      Source = "live"
)

// AssessmentView is the metric card block of a report
type AssessmentView struct {
	Probability         float64            `json:"probability"`
	ProbabilityDisplay  string             `json:"probability_display"`
	RiskLevel           analysis.RiskLevel `json:"risk_level"`
	ExpectedLoss        float64            `json:"expected_loss"`
	ExpectedLossDisplay int64              `json:"expected_loss_display"`
	Severity            analysis.Severity  `json:"severity"`
	SeverityLabel       string             `json:"severity_label"`
	Alert               bool               `json:"alert"`
	AlertMessage        string             `json:"alert_message,omitempty"`
}

// Report is everything the dashboard shows for one scoring pass
type Report struct {
	ID              string                 `json:"id"`
	Source          Source                 `json:"source"`
	Batch           analysis.FeatureVector `json:"batch"`
	Assessment      AssessmentView         `json:"assessment"`
	Attributions    []analysis.Attribution `json:"attributions"`
	Explanations    []string               `json:"explanations"`
	TopFeatures     []analysis.Feature     `json:"top_features"`
	Recommendations []string               `json:"recommendations"`
	Insight         narrative.Insight      `json:"insight"`
	RiskTrend       []float64              `json:"risk_trend"`
	Model           string                 `json:"model"`
	CreatedAt       time.Time              `json:"created_at"`
}

func newAssessmentView(risk analysis.RiskAssessment) AssessmentView {
	view := AssessmentView{
		Probability:         risk.Probability,
		ProbabilityDisplay:  narrative.FormatScore(risk.Probability),
		RiskLevel:           risk.RiskLevel,
		ExpectedLoss:        risk.ExpectedLoss,
		ExpectedLossDisplay: int64(risk.ExpectedLoss),
		Severity:            risk.Severity,
		SeverityLabel:       risk.Severity.Label(),
		Alert:               risk.Alert,
	}
	if risk.Alert {
		view.AlertMessage = analysis.AlertMessage
	}
	return view
}

