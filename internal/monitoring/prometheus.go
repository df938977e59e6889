package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchmind_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batchmind_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"route"})

	assessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchmind_assessments_total",
		Help: "Scoring passes by input source, risk level and severity",
	}, []string{"source", "risk_level", "severity"})

	riskProbability = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchmind_risk_probability",
		Help:    "Distribution of predicted deviation probabilities",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	expectedLoss = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batchmind_expected_loss",
		Help: "Expected loss of the most recent scoring pass",
	})

	lossAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchmind_loss_alerts_total",
		Help: "Scoring passes whose expected loss reached the alert threshold",
	})

	narrativesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchmind_narratives_total",
		Help: "Generated insights by source and failure kind",
	}, []string{"source", "failure"})

	textGenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchmind_text_generation_duration_seconds",
		Help:    "Latency of external text generation calls",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	liveModeRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batchmind_live_mode_running",
		Help: "1 while the live loop is running",
	})
)

// ObserveAssessment exports one scoring pass
func ObserveAssessment(source, riskLevel, severity string, probability, loss float64, alert bool) {
	assessmentsTotal.WithLabelValues(source, riskLevel, severity).Inc()
	riskProbability.Observe(probability)
	expectedLoss.Set(loss)
	if alert {
		lossAlertsTotal.Inc()
	}
}

// ObserveNarrative exports one narrative generation; failure is empty on success
func ObserveNarrative(source, failure string, duration time.Duration) {
	narrativesTotal.WithLabelValues(source, failure).Inc()
	if duration > 0 {
		textGenerationDuration.Observe(duration.Seconds())
	}
}

func SetLiveModeRunning(running bool) {
	if running {
		liveModeRunning.Set(1)
		return
	}
	liveModeRunning.Set(0)
}

// PrometheusMiddleware records request counts and latency by route template
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// PrometheusHandler serves the default registry
func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
