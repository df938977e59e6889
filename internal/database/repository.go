package database

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
)

const (
	stmtInsertAssessment  = "insert_assessment"
	stmtRecentAssessments = "recent_assessments"
	stmtCountAssessments  = "count_assessments"

	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// Repository is the audit log of scoring passes
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveAssessment inserts one record
func (r *Repository) SaveAssessment(ctx context.Context, rec *AuditRecord) error {
	stmt, err := r.db.GetPreparedStatement(stmtInsertAssessment)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		rec.ID, rec.Source, rec.Model,
		rec.Batch.Temperature, rec.Batch.Pressure, rec.Batch.ProcessDuration, rec.Batch.MaterialQuality, rec.Batch.MachineLoad,
		rec.Probability, string(rec.RiskLevel), string(rec.Severity), rec.ExpectedLoss, rec.Alert,
		joinFeatures(rec.TopFeatures), rec.InsightSource, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

// RecentAssessments returns up to limit records, newest first
func (r *Repository) RecentAssessments(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}

	stmt, err := r.db.GetPreparedStatement(stmtRecentAssessments)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	records := make([]AuditRecord, 0, limit)
	for rows.Next() {
		var rec AuditRecord
		var riskLevel, severity, topFeatures string
		if err := rows.Scan(
			&rec.ID, &rec.Source, &rec.Model,
			&rec.Batch.Temperature, &rec.Batch.Pressure, &rec.Batch.ProcessDuration, &rec.Batch.MaterialQuality, &rec.Batch.MachineLoad,
			&rec.Probability, &riskLevel, &severity, &rec.ExpectedLoss, &rec.Alert,
			&topFeatures, &rec.InsightSource, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		rec.RiskLevel = analysis.RiskLevel(riskLevel)
		rec.Severity = analysis.Severity(severity)
		rec.TopFeatures = splitFeatures(topFeatures)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}

	return records, nil
}

// Stats counts stored passes and how many raised a loss alert
func (r *Repository) Stats(ctx context.Context) (AuditStats, error) {
	stmt, err := r.db.GetPreparedStatement(stmtCountAssessments)
	if err != nil {
		return AuditStats{}, err
	}

	var stats AuditStats
	if err := stmt.QueryRowContext(ctx).Scan(&stats.Total, &stats.Alerts); err != nil {
		return AuditStats{}, fmt.Errorf("failed to count assessments: %w", err)
	}
	return stats, nil
}
