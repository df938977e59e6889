package monitoring

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent []Alert
	err  error
}

func (r *recordingNotifier) SendAlert(ctx context.Context, alert Alert) error {
	r.sent = append(r.sent, alert)
	return r.err
}

func testLogger() (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLoggerWithWriter(buf, "debug"), buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestLoggerWritesJSON(t *testing.T) {
	logger, buf := testLogger()
	logger.AssessmentLogger("manual", "threshold", 0.6, "HIGH", "IMMEDIATE_ACTION", 60000, true, time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, `"msg":"Batch Assessed"`)
	assert.Contains(t, out, `"risk_level":"HIGH"`)
	assert.Contains(t, out, `"timestamp"`)
}

func TestMetricsStats(t *testing.T) {
	m := NewMetrics()
	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.RecordAssessment("manual", "LOW", "MONITOR", false)
	m.RecordAssessment("live", "HIGH", "IMMEDIATE_ACTION", true)
	m.RecordNarrative("template")
	m.IncrementNarrativeCache(true)
	m.IncrementNarrativeCache(false)
	m.RecordExternalAPIRequest("openai", true)
	m.RecordExternalAPIRequest("openai", false)
	m.RecordResponseTime(10 * time.Millisecond)
	m.RecordResponseTime(30 * time.Millisecond)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, 50.0, stats["error_rate_percent"])
	assert.Equal(t, int64(2), stats["assessments"])
	assert.Equal(t, int64(1), stats["loss_alerts"])
	assert.Equal(t, map[string]int64{"manual": 1, "live": 1}, stats["assessments_by_source"])
	assert.Equal(t, 50.0, stats["narrative_cache_hit_rate"])
	assert.Equal(t, 50.0, m.ExternalErrorRate("openai"))
	assert.Equal(t, 0.0, m.ExternalErrorRate("unknown"))
	assert.Equal(t, 30*time.Millisecond, m.GetPercentileResponseTime(100))
}

func TestResponseTimeWindowIsBounded(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < maxResponseSamples+50; i++ {
		m.RecordResponseTime(time.Duration(i))
	}
	assert.Len(t, m.responseTimes, maxResponseSamples)
	assert.Equal(t, time.Duration(50), m.GetPercentileResponseTime(0))
}

func TestAlertManagerFireAndSilence(t *testing.T) {
	logger, _ := testLogger()
	am := NewAlertManager(logger, 3)
	notifier := &recordingNotifier{}
	am.AddNotifier(notifier)

	first := am.Fire(context.Background(), Alert{Name: "ExpectedLossThreshold", Severity: SeverityCritical, Value: 55000, Threshold: 50000})
	require.NotEmpty(t, first.ID)
	assert.Equal(t, StatusActive, first.Status)
	assert.Len(t, notifier.sent, 1)

	require.True(t, am.SilenceAlert(first.ID, time.Hour))
	assert.False(t, am.SilenceAlert("missing", time.Hour))

	second := am.Fire(context.Background(), Alert{Name: "ExpectedLossThreshold"})
	assert.Equal(t, StatusSuppressed, second.Status)
	assert.Len(t, notifier.sent, 1, "silenced alerts are not delivered")

	alerts := am.GetAlerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, second.ID, alerts[0].ID, "newest first")
	assert.Empty(t, am.GetActiveAlerts())
}

func TestAlertManagerSilenceExpires(t *testing.T) {
	logger, _ := testLogger()
	am := NewAlertManager(logger, 0)
	now := time.Now()
	am.now = func() time.Time { return now }

	a := am.Fire(context.Background(), Alert{Name: "x"})
	am.SilenceAlert(a.ID, time.Minute)

	now = now.Add(2 * time.Minute)
	b := am.Fire(context.Background(), Alert{Name: "x"})
	assert.Equal(t, StatusActive, b.Status)
}

func TestAlertManagerCapacity(t *testing.T) {
	logger, _ := testLogger()
	am := NewAlertManager(logger, 2)
	for i := 0; i < 5; i++ {
		am.Fire(context.Background(), Alert{Name: "loss"})
	}
	assert.Len(t, am.GetAlerts(), 2)
}

func TestAlertManagerNotifierFailureIsLogged(t *testing.T) {
	logger, buf := testLogger()
	am := NewAlertManager(logger, 0)
	am.AddNotifier(&recordingNotifier{err: errors.New("webhook down")})

	am.Fire(context.Background(), Alert{Name: "loss"})
	assert.Contains(t, buf.String(), "alert_notification_failed")
}

func TestEvaluateRules(t *testing.T) {
	logger, _ := testLogger()
	am := NewAlertManager(logger, 0)

	value := 20.0
	am.AddRule(AlertRule{Name: "HighErrorRate", Operator: "gt", Threshold: 10, Value: func() float64 { return value }})

	am.EvaluateRules(context.Background())
	am.EvaluateRules(context.Background())
	require.Len(t, am.GetAlerts(), 1, "an open rule alert is not fired twice")
	assert.Len(t, am.GetActiveAlerts(), 1)

	value = 1
	am.EvaluateRules(context.Background())
	alerts := am.GetAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, StatusResolved, alerts[0].Status)
	assert.NotNil(t, alerts[0].ResolvedAt)
}

func TestDefaultAlertRules(t *testing.T) {
	m := NewMetrics()
	rules := DefaultAlertRules(m, "openai")
	require.Len(t, rules, 3)
	for _, r := range rules {
		assert.Equal(t, 0.0, r.Value())
	}
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, buf := testLogger()
	metrics := NewMetrics()

	router := gin.New()
	router.Use(RequestIDMiddleware(), MonitoringMiddleware(metrics, logger), PrometheusMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "abc")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	assert.Equal(t, int64(2), metrics.RequestCount)
	assert.Equal(t, int64(1), metrics.ErrorCount)
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}
