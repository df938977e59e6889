package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
)

func newTestRepository(t *testing.T) (*DB, *Repository) {
	t.Helper()
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, NewRepository(db)
}

func testAssessment(p float64) analysis.Assessment {
	return analysis.Assessment{
		Model: "threshold",
		Risk:  analysis.AssessRisk(p),
		Explanation: analysis.Explanation{
			TopFeatures: []analysis.Feature{analysis.Temperature, analysis.Pressure},
		},
	}
}

func TestSaveAndReadAssessments(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	batch := analysis.FeatureVector{Temperature: 85, Pressure: 45, ProcessDuration: 60, MaterialQuality: 0.9, MachineLoad: 60}
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := NewAuditRecord("", "manual", batch, testAssessment(0.4), "template", base)
	second := NewAuditRecord("", "live", batch, testAssessment(0.8), "fallback", base.Add(time.Second))
	require.NotEmpty(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)

	require.NoError(t, repo.SaveAssessment(ctx, first))
	require.NoError(t, repo.SaveAssessment(ctx, second))

	records, err := repo.RecentAssessments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	got := records[0]
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "live", got.Source)
	assert.Equal(t, batch, got.Batch)
	assert.Equal(t, analysis.RiskHigh, got.RiskLevel)
	assert.Equal(t, analysis.SeverityImmediateAction, got.Severity)
	assert.InDelta(t, 80000, got.ExpectedLoss, 1e-9)
	assert.True(t, got.Alert)
	assert.Equal(t, []analysis.Feature{analysis.Temperature, analysis.Pressure}, got.TopFeatures)
	assert.Equal(t, "fallback", got.InsightSource)
	assert.True(t, second.CreatedAt.Equal(got.CreatedAt))

	assert.Equal(t, first.ID, records[1].ID)
	assert.False(t, records[1].Alert)
}

func TestRecentAssessmentsLimit(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		rec := NewAuditRecord("", "simulated", analysis.DefaultFeatureVector(), testAssessment(0.1), "template", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.SaveAssessment(ctx, rec))
	}

	records, err := repo.RecentAssessments(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = repo.RecentAssessments(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestDuplicateIDIsRejected(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	rec := NewAuditRecord("fixed-id", "manual", analysis.DefaultFeatureVector(), testAssessment(0.2), "template", time.Now())
	require.NoError(t, repo.SaveAssessment(ctx, rec))
	assert.Error(t, repo.SaveAssessment(ctx, rec))
}

func TestStats(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, AuditStats{}, stats)

	for _, p := range []float64{0.1, 0.55, 0.9} {
		require.NoError(t, repo.SaveAssessment(ctx, NewAuditRecord("", "manual", analysis.DefaultFeatureVector(), testAssessment(p), "template", time.Now())))
	}

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Alerts)
}

func TestHealthCheckAndClose(t *testing.T) {
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.Contains(t, db.GetPoolStats(), "open_connections")

	require.NoError(t, db.Close())
	assert.Error(t, db.HealthCheck(context.Background()))
}

func TestFeatureListEncoding(t *testing.T) {
	assert.Equal(t, "", joinFeatures(nil))
	assert.Equal(t, []analysis.Feature{}, splitFeatures(""))

	features := []analysis.Feature{analysis.MachineLoad, analysis.MaterialQuality}
	assert.Equal(t, features, splitFeatures(joinFeatures(features)))
}
