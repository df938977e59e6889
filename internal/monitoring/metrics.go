package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const maxResponseSamples = 1000

// Metrics holds in-process counters served by /stats
type Metrics struct {
	StartTime time.Time

	RequestCount int64
	ErrorCount   int64

	Assessments    int64
	LossAlerts     int64
	LivePasses     int64
	NarrativeHits  int64
	NarrativeMiss  int64
	AuditFailures  int64
	RateLimitDrops int64
	RateLimitFalls int64
	RateLimitRedis int64

	responseMu    sync.RWMutex
	responseTimes []time.Duration

	statusMu sync.RWMutex
	byStatus map[int]int64

	labelMu     sync.RWMutex
	byRisk      map[string]int64
	bySeverity  map[string]int64
	bySource    map[string]int64
	byNarrative map[string]int64

	externalMu     sync.RWMutex
	externalCalls  map[string]int64
	externalErrors map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:      time.Now(),
		responseTimes:  make([]time.Duration, 0, maxResponseSamples),
		byStatus:       make(map[int]int64),
		byRisk:         make(map[string]int64),
		bySeverity:     make(map[string]int64),
		bySource:       make(map[string]int64),
		byNarrative:    make(map[string]int64),
		externalCalls:  make(map[string]int64),
		externalErrors: make(map[string]int64),
	}
}

func (m *Metrics) IncrementRequest() { atomic.AddInt64(&m.RequestCount, 1) }

func (m *Metrics) IncrementError() { atomic.AddInt64(&m.ErrorCount, 1) }

func (m *Metrics) IncrementLivePass() { atomic.AddInt64(&m.LivePasses, 1) }

func (m *Metrics) IncrementAuditFailure() { atomic.AddInt64(&m.AuditFailures, 1) }

func (m *Metrics) IncrementNarrativeCache(hit bool) {
	if hit {
		atomic.AddInt64(&m.NarrativeHits, 1)
		return
	}
	atomic.AddInt64(&m.NarrativeMiss, 1)
}

// RecordAssessment counts a scoring pass by its labels
func (m *Metrics) RecordAssessment(source, riskLevel, severity string, alert bool) {
	atomic.AddInt64(&m.Assessments, 1)
	if alert {
		atomic.AddInt64(&m.LossAlerts, 1)
	}

	m.labelMu.Lock()
	defer m.labelMu.Unlock()
	m.bySource[source]++
	m.byRisk[riskLevel]++
	m.bySeverity[severity]++
}

// RecordNarrative counts generated insights by where their text came from
func (m *Metrics) RecordNarrative(source string) {
	m.labelMu.Lock()
	defer m.labelMu.Unlock()
	m.byNarrative[source]++
}

// RecordResponseTime keeps the last maxResponseSamples durations
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.responseMu.Lock()
	defer m.responseMu.Unlock()

	m.responseTimes = append(m.responseTimes, duration)
	if len(m.responseTimes) > maxResponseSamples {
		m.responseTimes = m.responseTimes[1:]
	}
}

func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	m.byStatus[statusCode]++
}

func (m *Metrics) RecordExternalAPIRequest(apiName string, success bool) {
	m.externalMu.Lock()
	defer m.externalMu.Unlock()

	m.externalCalls[apiName]++
	if !success {
		m.externalErrors[apiName]++
	}
}

func (m *Metrics) IncrementRateLimitBlock()    { atomic.AddInt64(&m.RateLimitDrops, 1) }
func (m *Metrics) IncrementRateLimitFallback() { atomic.AddInt64(&m.RateLimitFalls, 1) }
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedis, 1)
}

// GetPercentileResponseTime returns the p-th percentile of recent response times
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.responseMu.RLock()
	times := append([]time.Duration(nil), m.responseTimes...)
	m.responseMu.RUnlock()

	if len(times) == 0 {
		return 0
	}

	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}
	return times[index]
}

// ErrorRate is the percentage of requests answered with a status >= 400
func (m *Metrics) ErrorRate() float64 {
	requests := atomic.LoadInt64(&m.RequestCount)
	if requests == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&m.ErrorCount)) / float64(requests) * 100
}

// ExternalErrorRate is the failure percentage for one external API
func (m *Metrics) ExternalErrorRate(apiName string) float64 {
	m.externalMu.RLock()
	defer m.externalMu.RUnlock()

	calls := m.externalCalls[apiName]
	if calls == 0 {
		return 0
	}
	return float64(m.externalErrors[apiName]) / float64(calls) * 100
}

func (m *Metrics) getExternalAPIStats() map[string]interface{} {
	m.externalMu.RLock()
	defer m.externalMu.RUnlock()

	stats := make(map[string]interface{}, len(m.externalCalls))
	for api, calls := range m.externalCalls {
		errs := m.externalErrors[api]
		stats[api] = map[string]interface{}{
			"requests":   calls,
			"errors":     errs,
			"error_rate": float64(errs) / float64(calls) * 100,
		}
	}
	return stats
}

func copyCounts[K comparable](src map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	hits := atomic.LoadInt64(&m.NarrativeHits)
	misses := atomic.LoadInt64(&m.NarrativeMiss)
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses) * 100
	}

	m.statusMu.RLock()
	byStatus := copyCounts(m.byStatus)
	m.statusMu.RUnlock()

	m.labelMu.RLock()
	bySource := copyCounts(m.bySource)
	byRisk := copyCounts(m.byRisk)
	bySeverity := copyCounts(m.bySeverity)
	byNarrative := copyCounts(m.byNarrative)
	m.labelMu.RUnlock()

	return map[string]interface{}{
		"uptime_seconds":     time.Since(m.StartTime).Seconds(),
		"start_time":         m.StartTime.Format(time.RFC3339),
		"total_requests":     atomic.LoadInt64(&m.RequestCount),
		"error_count":        atomic.LoadInt64(&m.ErrorCount),
		"error_rate_percent": m.ErrorRate(),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1e6,
		"status_code_distribution": byStatus,

		"assessments":              atomic.LoadInt64(&m.Assessments),
		"loss_alerts":              atomic.LoadInt64(&m.LossAlerts),
		"live_passes":              atomic.LoadInt64(&m.LivePasses),
		"assessments_by_source":    bySource,
		"assessments_by_risk":      byRisk,
		"assessments_by_severity":  bySeverity,
		"narratives_by_source":     byNarrative,
		"narrative_cache_hits":     hits,
		"narrative_cache_misses":   misses,
		"narrative_cache_hit_rate": hitRate,
		"audit_failures":           atomic.LoadInt64(&m.AuditFailures),
		"external_api_stats":       m.getExternalAPIStats(),

		"rate_limit_blocks":       atomic.LoadInt64(&m.RateLimitDrops),
		"rate_limit_fallbacks":    atomic.LoadInt64(&m.RateLimitFalls),
		"rate_limit_redis_errors": atomic.LoadInt64(&m.RateLimitRedis),
	}
}
