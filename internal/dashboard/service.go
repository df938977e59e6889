package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/database"
	apperrors "github.com/ZanzyTHEbar/batchmind/internal/errors"
	"github.com/ZanzyTHEbar/batchmind/internal/history"
	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
	"github.com/ZanzyTHEbar/batchmind/internal/narrative"
	"github.com/ZanzyTHEbar/batchmind/internal/resilience"
	"github.com/ZanzyTHEbar/batchmind/internal/simulator"
)

// LossAlertName is the alert manager name for expected loss alerts
const LossAlertName = "ExpectedLossThreshold"

const auditTimeout = 2 * time.Second

// Narrator produces the insight for a scoring pass and never fails
type Narrator interface {
	Generate(ctx context.Context, req narrative.Request) narrative.Insight
}

// AuditStore persists scoring passes
type AuditStore interface {
	SaveAssessment(ctx context.Context, rec *database.AuditRecord) error
}

// Deps are the collaborators of a Service. Analyzer, Narrator, History and
// Simulator are required; the rest are optional.
type Deps struct {
	Analyzer    *analysis.Analyzer
	Narrator    Narrator
	History     *history.Buffer
	Simulator   *simulator.Simulator
	Audit       AuditStore
	Alerts      *monitoring.AlertManager
	Degradation *resilience.DegradationManager
	Metrics     *monitoring.Metrics
	Logger      *monitoring.Logger
}

// Service runs one scoring pass end to end: assessment, insight, history,
// audit and alerting.
type Service struct {
	deps Deps
	now  func() time.Time
}

func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = &monitoring.Logger{Logger: slog.Default()}
	}
	return &Service{deps: deps, now: time.Now}
}

// ModelName is the name of the active risk model
func (s *Service) ModelName() string { return s.deps.Analyzer.ModelName() }

// History returns the bounded scoring history in append order
func (s *Service) History() []history.Entry { return s.deps.History.Entries() }

// SimulateBatch draws a batch from the service simulator
func (s *Service) SimulateBatch() analysis.FeatureVector { return s.deps.Simulator.Batch() }

// Run scores fv and records the pass. Invalid input yields a validation
// error and leaves history untouched.
func (s *Service) Run(ctx context.Context, fv analysis.FeatureVector, source Source) (*Report, error) {
	return s.run(ctx, fv, source, s.deps.Simulator)
}

// RunWith is Run with a caller supplied simulator for the risk trend
func (s *Service) RunWith(ctx context.Context, fv analysis.FeatureVector, source Source, sim *simulator.Simulator) (*Report, error) {
	return s.run(ctx, fv, source, sim)
}

func (s *Service) run(ctx context.Context, fv analysis.FeatureVector, source Source, sim *simulator.Simulator) (*Report, error) {
	start := time.Now()

	assessment, err := s.deps.Analyzer.Assess(fv)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidFeatureVector) {
			return nil, apperrors.NewValidationErrorWithMap(analysis.FieldErrors(err))
		}
		s.recordService(resilience.ServiceRiskModel, err)
		return nil, apperrors.NewInternalError("Risk model failed", err)
	}
	s.recordService(resilience.ServiceRiskModel, nil)

	risk := assessment.Risk
	insight := s.deps.Narrator.Generate(ctx, narrative.Request{
		RiskLevel:   risk.RiskLevel,
		Probability: risk.Probability,
		TopFeatures: assessment.Explanation.TopFeatures,
		Batch:       fv,
	})

	report := &Report{
		ID:              uuid.NewString(),
		Source:          source,
		Batch:           fv,
		Assessment:      newAssessmentView(risk),
		Attributions:    analysis.RankAttributions(assessment.Explanation.Attributions),
		Explanations:    assessment.Explanation.Explanations,
		TopFeatures:     assessment.Explanation.TopFeatures,
		Recommendations: assessment.Recommendations,
		Insight:         insight,
		RiskTrend:       sim.RiskTrend(risk.Probability),
		Model:           assessment.Model,
		CreatedAt:       s.now().UTC(),
	}

	s.deps.History.Append(history.NewEntry(report.CreatedAt, risk))
	s.audit(ctx, report, assessment)
	if risk.Alert {
		s.fireLossAlert(ctx, report)
	}
	s.observe(report, time.Since(start))

	return report, nil
}

// audit writes the pass to the audit store; failures are logged and counted only
func (s *Service) audit(ctx context.Context, report *Report, assessment analysis.Assessment) {
	if s.deps.Audit == nil {
		return
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	rec := database.NewAuditRecord(report.ID, string(report.Source), report.Batch, assessment, string(report.Insight.Source), report.CreatedAt)
	err := s.deps.Audit.SaveAssessment(auditCtx, rec)
	s.recordService(resilience.ServiceAuditStore, err)
	if err != nil {
		s.deps.Logger.Warn("Failed to write audit record", "report_id", report.ID, "error", err)
		if s.deps.Metrics != nil {
			s.deps.Metrics.IncrementAuditFailure()
		}
	}
}

func (s *Service) fireLossAlert(ctx context.Context, report *Report) {
	if s.deps.Alerts == nil {
		return
	}
	s.deps.Alerts.Fire(ctx, monitoring.Alert{
		Name:        LossAlertName,
		Description: analysis.AlertMessage,
		Severity:    monitoring.SeverityCritical,
		Service:     "dashboard",
		Labels: map[string]string{
			"report_id":   report.ID,
			"source":      string(report.Source),
			"severity":    string(report.Assessment.Severity),
			"probability": strconv.FormatFloat(report.Assessment.Probability, 'f', 4, 64),
		},
		Value:     report.Assessment.ExpectedLoss,
		Threshold: analysis.AlertThreshold,
	})
}

func (s *Service) observe(report *Report, elapsed time.Duration) {
	a := report.Assessment
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordAssessment(string(report.Source), string(a.RiskLevel), string(a.Severity), a.Alert)
	}
	monitoring.ObserveAssessment(string(report.Source), string(a.RiskLevel), string(a.Severity), a.Probability, a.ExpectedLoss, a.Alert)
	s.deps.Logger.AssessmentLogger(string(report.Source), report.Model, a.Probability, string(a.RiskLevel), string(a.Severity), a.ExpectedLoss, a.Alert, elapsed)
}

func (s *Service) recordService(name string, err error) {
	if s.deps.Degradation == nil {
		return
	}
	if err != nil {
		s.deps.Degradation.RecordError(name, err)
		return
	}
	s.deps.Degradation.RecordRequest(name, true)
}
