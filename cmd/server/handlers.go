package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/dashboard"
	"github.com/ZanzyTHEbar/batchmind/internal/database"
	apperrors "github.com/ZanzyTHEbar/batchmind/internal/errors"
	"github.com/ZanzyTHEbar/batchmind/internal/history"
	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
	"github.com/ZanzyTHEbar/batchmind/internal/resilience"
	"github.com/ZanzyTHEbar/batchmind/internal/simulator"
	"github.com/ZanzyTHEbar/batchmind/internal/types"
)

const defaultSilence = 30 * time.Minute

func respondError(c *gin.Context, err error) {
	appErr := apperrors.ToAppError(err)
	appErr.RequestID = monitoring.RequestID(c)
	apperrors.LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

// health godoc
// @Summary Service health
// @Tags system
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Failure 503 {object} types.HealthResponse
// @Router /health [get]
func (a *application) health(c *gin.Context) {
	services := a.degradation.GetAllServiceHealth()

	narrativeMode := "template"
	if a.narrator.Delegating() {
		narrativeMode = "llm"
	}

	resp := types.HealthResponse{
		Status:    "ok",
		Version:   version,
		Model:     a.service.ModelName(),
		Narrative: narrativeMode,
		Services:  services,
		Timestamp: time.Now().UTC(),
	}

	for _, svc := range services {
		if svc.Level == resilience.LevelEmergency {
			resp.Status = "degraded"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

// parameters godoc
// @Summary Input ranges, attribution rules and business constants
// @Tags batches
// @Produce json
// @Success 200 {object} types.ParametersResponse
// @Router /api/v1/parameters [get]
func (a *application) parameters(c *gin.Context) {
	c.JSON(http.StatusOK, types.ParametersResponse{
		Ranges:   analysis.ParameterRanges,
		Rules:    analysis.Rules,
		Defaults: analysis.DefaultFeatureVector(),
		Constants: types.Constants{
			BatchValue:       analysis.BatchValue,
			LossRate:         analysis.LossRate,
			AlertThreshold:   analysis.AlertThreshold,
			HistoryCapacity:  history.DefaultCapacity,
			TopFeatureCount:  analysis.TopFeatureCount,
			LiveIntervalSecs: a.cfg.Live.Interval.Seconds(),
		},
	})
}

// scoreBatch godoc
// @Summary Score a manually entered batch
// @Tags batches
// @Accept json
// @Produce json
// @Param batch body types.BatchRequest true "Batch parameters"
// @Success 200 {object} dashboard.Report
// @Failure 400 {object} types.ErrorResponse
// @Failure 429 {object} types.ErrorResponse
// @Router /api/v1/batches/score [post]
func (a *application) scoreBatch(c *gin.Context) {
	var req types.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("Invalid batch parameters", err.Error()))
		return
	}

	fv, err := req.ToFeatureVector()
	if err != nil {
		respondError(c, apperrors.NewValidationErrorWithMap(analysis.FieldErrors(err)))
		return
	}

	report, err := a.service.Run(c.Request.Context(), fv, dashboard.SourceManual)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// simulateBatch godoc
// @Summary Score a simulated batch
// @Description With a seed the batch and its risk trend are reproducible.
// @Tags batches
// @Accept json
// @Produce json
// @Param request body types.SimulateRequest false "Optional simulator seed"
// @Success 200 {object} dashboard.Report
// @Failure 400 {object} types.ErrorResponse
// @Router /api/v1/batches/simulate [post]
func (a *application) simulateBatch(c *gin.Context) {
	var req types.SimulateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("Invalid simulation request", err.Error()))
			return
		}
	}

	var (
		report *dashboard.Report
		err    error
	)
	if req.Seed != nil {
		sim := simulator.New(simulator.NewSampler(*req.Seed))
		report, err = a.service.RunWith(c.Request.Context(), sim.Batch(), dashboard.SourceSimulated, sim)
	} else {
		report, err = a.service.Run(c.Request.Context(), a.service.SimulateBatch(), dashboard.SourceSimulated)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// listHistory godoc
// @Summary Most recent scoring passes, oldest first
// @Tags batches
// @Produce json
// @Success 200 {object} types.HistoryResponse
// @Router /api/v1/history [get]
func (a *application) listHistory(c *gin.Context) {
	c.JSON(http.StatusOK, types.HistoryResponse{
		Entries:  a.service.History(),
		Capacity: history.DefaultCapacity,
	})
}

// auditLog godoc
// @Summary Persisted assessments, newest first
// @Tags batches
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {object} types.AuditResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /api/v1/audit [get]
func (a *application) auditLog(c *gin.Context) {
	if a.audit == nil {
		appErr := apperrors.NewConfigurationError("Audit log is disabled", nil)
		appErr.HTTPStatus = http.StatusServiceUnavailable
		respondError(c, appErr)
		return
	}

	limit := database.DefaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, apperrors.NewValidationError("limit must be a positive integer", raw))
			return
		}
		limit = min(n, database.MaxAuditLimit)
	}

	records, err := a.audit.RecentAssessments(c.Request.Context(), limit)
	if err != nil {
		respondError(c, apperrors.NewInternalError("Failed to read audit log", err))
		return
	}
	stats, err := a.audit.Stats(c.Request.Context())
	if err != nil {
		respondError(c, apperrors.NewInternalError("Failed to read audit stats", err))
		return
	}

	resp := types.AuditResponse{
		Records: make([]*database.AuditRecord, len(records)),
		Total:   stats.Total,
		Alerts:  stats.Alerts,
		Limit:   limit,
	}
	for i := range records {
		resp.Records[i] = &records[i]
	}
	c.JSON(http.StatusOK, resp)
}

// liveStatus godoc
// @Summary Live mode status
// @Tags live
// @Produce json
// @Success 200 {object} dashboard.LiveStatus
// @Router /api/v1/live [get]
func (a *application) liveStatus(c *gin.Context) {
	c.JSON(http.StatusOK, a.live.Status())
}

// liveStart godoc
// @Summary Start live mode
// @Tags live
// @Produce json
// @Success 200 {object} dashboard.LiveStatus
// @Failure 409 {object} types.ErrorResponse
// @Router /api/v1/live/start [post]
func (a *application) liveStart(c *gin.Context) {
	// the loop outlives this request
	if err := a.live.Start(a.ctx); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.live.Status())
}

// liveStop godoc
// @Summary Stop live mode
// @Tags live
// @Produce json
// @Success 200 {object} dashboard.LiveStatus
// @Failure 409 {object} types.ErrorResponse
// @Router /api/v1/live/stop [post]
func (a *application) liveStop(c *gin.Context) {
	if err := a.live.Stop(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.live.Status())
}

// listAlerts godoc
// @Summary Expected loss and operational alerts
// @Tags system
// @Produce json
// @Router /api/v1/alerts [get]
func (a *application) listAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alerts":    a.alerts.GetAlerts(),
		"active":    len(a.alerts.GetActiveAlerts()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// silenceAlert godoc
// @Summary Silence an alert
// @Tags system
// @Produce json
// @Param id path string true "Alert ID"
// @Param duration query string false "Go duration, default 30m"
// @Router /api/v1/alerts/{id}/silence [post]
func (a *application) silenceAlert(c *gin.Context) {
	alertID := c.Param("id")

	duration := defaultSilence
	if raw := c.Query("duration"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondError(c, apperrors.NewValidationError("duration must be a positive Go duration", raw))
			return
		}
		duration = d
	}

	if !a.alerts.SilenceAlert(alertID, duration) {
		appErr := apperrors.NewValidationError("Alert not found", alertID)
		appErr.HTTPStatus = http.StatusNotFound
		respondError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Alert silenced",
		"alert_id": alertID,
		"duration": duration.String(),
	})
}

// stats returns in-process counters for operators
func (a *application) stats(c *gin.Context) {
	resp := gin.H{
		"metrics":     a.metrics.GetStats(),
		"rate_limit":  a.limiter.GetStats(),
		"compression": a.compression.GetStats(),
		"ws_clients":  a.hub.Clients(),
		"history":     len(a.service.History()),
		"live":        a.live.Status(),
	}
	if a.textCache != nil {
		resp["narrative_cache"] = a.textCache.Stats()
	}
	if a.breaker != nil {
		resp["circuit_breaker"] = a.breaker.Stats()
	}
	if a.db != nil {
		resp["audit_pool"] = a.db.GetPoolStats()
	}
	c.JSON(http.StatusOK, resp)
}
