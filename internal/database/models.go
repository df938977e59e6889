package database

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
)

// AuditRecord is one persisted scoring pass
type AuditRecord struct {
	ID            string                 `json:"id" db:"id"`
	Source        string                 `json:"source" db:"source"`
	Model         string                 `json:"model" db:"model"`
	Batch         analysis.FeatureVector `json:"batch"`
	Probability   float64                `json:"probability" db:"probability"`
	RiskLevel     analysis.RiskLevel     `json:"risk_level" db:"risk_level"`
	Severity      analysis.Severity      `json:"severity" db:"severity"`
	ExpectedLoss  float64                `json:"expected_loss" db:"expected_loss"`
	Alert         bool                   `json:"alert" db:"alert"`
	TopFeatures   []analysis.Feature     `json:"top_features"`
	InsightSource string                 `json:"insight_source" db:"insight_source"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
}

// AuditStats summarises the audit table
type AuditStats struct {
	Total  int64 `json:"total"`
	Alerts int64 `json:"alerts"`
}

// NewAuditRecord builds a record for an assessment; an empty id is generated
func NewAuditRecord(id, source string, batch analysis.FeatureVector, a analysis.Assessment, insightSource string, at time.Time) *AuditRecord {
	if id == "" {
		id = uuid.New().String()
	}
	return &AuditRecord{
		ID:            id,
		Source:        source,
		Model:         a.Model,
		Batch:         batch,
		Probability:   a.Risk.Probability,
		RiskLevel:     a.Risk.RiskLevel,
		Severity:      a.Risk.Severity,
		ExpectedLoss:  a.Risk.ExpectedLoss,
		Alert:         a.Risk.Alert,
		TopFeatures:   append([]analysis.Feature(nil), a.Explanation.TopFeatures...),
		InsightSource: insightSource,
		CreatedAt:     at.UTC(),
	}
}

func joinFeatures(features []analysis.Feature) string {
	parts := make([]string, len(features))
	for i, f := range features {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

func splitFeatures(s string) []analysis.Feature {
	if s == "" {
		return []analysis.Feature{}
	}
	parts := strings.Split(s, ",")
	features := make([]analysis.Feature, len(parts))
	for i, p := range parts {
		features[i] = analysis.Feature(p)
	}
	return features
}
