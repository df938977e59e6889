package types

import (
	"time"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/database"
	"github.com/ZanzyTHEbar/batchmind/internal/history"
	"github.com/ZanzyTHEbar/batchmind/internal/resilience"
)

// BatchRequest is the body of a manual scoring call. Pointers let binding
// tell a missing field from an explicit zero.
type BatchRequest struct {
	Temperature     *float64 `json:"temperature" binding:"required" example:"72"`
	Pressure        *float64 `json:"pressure" binding:"required" example:"31"`
	ProcessDuration *float64 `json:"process_duration" binding:"required" example:"64"`
	MaterialQuality *float64 `json:"material_quality" binding:"required" example:"0.88"`
	MachineLoad     *float64 `json:"machine_load" binding:"required" example:"58"`
}

// ToFeatureVector validates the values and builds the scoring input
func (r BatchRequest) ToFeatureVector() (analysis.FeatureVector, error) {
	return analysis.NewFeatureVector(*r.Temperature, *r.Pressure, *r.ProcessDuration, *r.MaterialQuality, *r.MachineLoad)
}

// SimulateRequest optionally pins the simulator seed for a reproducible batch
type SimulateRequest struct {
	Seed *uint64 `json:"seed,omitempty" example:"42"`
}

type HistoryResponse struct {
	Entries  []history.Entry `json:"entries"`
	Capacity int             `json:"capacity"`
}

type AuditResponse struct {
	Records []*database.AuditRecord `json:"records"`
	Total   int64                   `json:"total"`
	Alerts  int64                   `json:"alerts"`
	Limit   int                     `json:"limit"`
}

type HealthResponse struct {
	Status    string                              `json:"status"`
	Version   string                              `json:"version"`
	Model     string                              `json:"model"`
	Narrative string                              `json:"narrative"`
	Services  map[string]resilience.ServiceHealth `json:"services"`
	Timestamp time.Time                           `json:"timestamp"`
}

// Constants are the fixed business figures behind loss and alerting
type Constants struct {
	BatchValue       float64 `json:"batch_value"`
	LossRate         float64 `json:"loss_rate"`
	AlertThreshold   float64 `json:"alert_threshold"`
	HistoryCapacity  int     `json:"history_capacity"`
	TopFeatureCount  int     `json:"top_feature_count"`
	LiveIntervalSecs float64 `json:"live_interval_seconds"`
}

type ParametersResponse struct {
	Ranges    []analysis.ParameterRange `json:"ranges"`
	Rules     []analysis.Rule           `json:"rules"`
	Defaults  analysis.FeatureVector    `json:"defaults"`
	Constants Constants                 `json:"constants"`
}

// ErrorResponse documents the error body for the API docs
type ErrorResponse struct {
	Code      string            `json:"code" example:"VALIDATION_ERROR"`
	Message   string            `json:"message" example:"Invalid batch parameters"`
	Category  string            `json:"category" example:"validation"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}
