package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	StatusActive     AlertStatus = "active"
	StatusResolved   AlertStatus = "resolved"
	StatusSuppressed AlertStatus = "suppressed"
)

const defaultAlertCapacity = 200

// Alert is a single fired alert
type Alert struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Severity    AlertSeverity     `json:"severity"`
	Status      AlertStatus       `json:"status"`
	Service     string            `json:"service"`
	Labels      map[string]string `json:"labels,omitempty"`
	Value       float64           `json:"value"`
	Threshold   float64           `json:"threshold"`
	FiredAt     time.Time         `json:"fired_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
}

// AlertRule is evaluated periodically against a live value
type AlertRule struct {
	Name        string
	Service     string
	Description string
	Severity    AlertSeverity
	Operator    string // "gt", "gte", "lt", "lte"
	Threshold   float64
	Value       func() float64
}

// AlertNotifier delivers fired alerts
type AlertNotifier interface {
	SendAlert(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log
type LogNotifier struct {
	logger *Logger
}

func NewLogNotifier(logger *Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendAlert(ctx context.Context, alert Alert) error {
	n.logger.WarnContext(ctx, "Alert fired",
		"alert_id", alert.ID,
		"alert", alert.Name,
		"severity", alert.Severity,
		"service", alert.Service,
		"value", alert.Value,
		"threshold", alert.Threshold,
		"labels", alert.Labels,
	)
	return nil
}

// AlertManager records alerts, applies silences and fans out to notifiers.
// It keeps the most recent alerts only.
type AlertManager struct {
	logger    *Logger
	capacity  int
	now       func() time.Time
	notifiers []AlertNotifier

	mu       sync.RWMutex
	rules    []AlertRule
	alerts   []*Alert
	ruleOpen map[string]*Alert
	silences map[string]time.Time
}

// NewAlertManager keeps up to capacity alerts; zero selects the default
func NewAlertManager(logger *Logger, capacity int) *AlertManager {
	if capacity <= 0 {
		capacity = defaultAlertCapacity
	}
	return &AlertManager{
		logger:   logger,
		capacity: capacity,
		now:      time.Now,
		ruleOpen: make(map[string]*Alert),
		silences: make(map[string]time.Time),
	}
}

func (am *AlertManager) AddRule(rule AlertRule) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.rules = append(am.rules, rule)
}

func (am *AlertManager) AddNotifier(notifier AlertNotifier) {
	am.notifiers = append(am.notifiers, notifier)
}

// Fire records an alert and notifies unless its name is silenced
func (am *AlertManager) Fire(ctx context.Context, alert Alert) Alert {
	now := am.now()
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	alert.FiredAt = now
	alert.Status = StatusActive

	am.mu.Lock()
	if until, ok := am.silences[alert.Name]; ok {
		if now.Before(until) {
			alert.Status = StatusSuppressed
		} else {
			delete(am.silences, alert.Name)
		}
	}
	stored := alert
	am.store(&stored)
	am.mu.Unlock()

	if alert.Status == StatusActive {
		am.notify(ctx, alert)
	}
	return alert
}

func (am *AlertManager) store(alert *Alert) {
	am.alerts = append(am.alerts, alert)
	if len(am.alerts) > am.capacity {
		am.alerts = am.alerts[len(am.alerts)-am.capacity:]
	}
}

func (am *AlertManager) notify(ctx context.Context, alert Alert) {
	am.logger.SystemLogger("alert_fired", fmt.Sprintf("Alert %s fired with severity %s", alert.Name, alert.Severity))

	for _, n := range am.notifiers {
		if err := n.SendAlert(ctx, alert); err != nil {
			am.logger.SystemLogger("alert_notification_failed", fmt.Sprintf("Failed to send alert %s: %v", alert.Name, err))
		}
	}
}

// Start evaluates rules every interval until ctx is cancelled
func (am *AlertManager) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			am.EvaluateRules(ctx)
		}
	}
}

// EvaluateRules fires rules whose condition holds and resolves those that cleared
func (am *AlertManager) EvaluateRules(ctx context.Context) {
	am.mu.RLock()
	rules := append([]AlertRule(nil), am.rules...)
	am.mu.RUnlock()

	for _, rule := range rules {
		value := rule.Value()
		met := checkCondition(value, rule.Operator, rule.Threshold)

		am.mu.Lock()
		open, isOpen := am.ruleOpen[rule.Name]
		if !met && isOpen {
			resolved := am.now()
			open.Status = StatusResolved
			open.ResolvedAt = &resolved
			delete(am.ruleOpen, rule.Name)
		}
		am.mu.Unlock()

		if met && !isOpen {
			fired := am.Fire(ctx, Alert{
				Name:        rule.Name,
				Description: rule.Description,
				Severity:    rule.Severity,
				Service:     rule.Service,
				Value:       value,
				Threshold:   rule.Threshold,
			})
			am.mu.Lock()
			am.ruleOpen[rule.Name] = am.find(fired.ID)
			am.mu.Unlock()
		} else if !met && isOpen {
			am.logger.SystemLogger("alert_resolved", fmt.Sprintf("Alert %s resolved", rule.Name))
		}
	}
}

func (am *AlertManager) find(id string) *Alert {
	for _, a := range am.alerts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func checkCondition(value float64, operator string, threshold float64) bool {
	switch operator {
	case "gt":
		return value > threshold
	case "gte":
		return value >= threshold
	case "lt":
		return value < threshold
	case "lte":
		return value <= threshold
	default:
		return false
	}
}

// SilenceAlert suppresses an alert and any alert with the same name for duration
func (am *AlertManager) SilenceAlert(alertID string, duration time.Duration) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	alert := am.find(alertID)
	if alert == nil {
		return false
	}
	alert.Status = StatusSuppressed
	am.silences[alert.Name] = am.now().Add(duration)

	am.logger.SystemLogger("alert_silenced", fmt.Sprintf("Alert %s silenced for %v", alert.Name, duration))
	return true
}

// GetAlerts returns copies of the stored alerts, newest first
func (am *AlertManager) GetAlerts() []Alert {
	return am.filter(func(*Alert) bool { return true })
}

func (am *AlertManager) GetActiveAlerts() []Alert {
	return am.filter(func(a *Alert) bool { return a.Status == StatusActive })
}

func (am *AlertManager) filter(keep func(*Alert) bool) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	out := make([]Alert, 0, len(am.alerts))
	for i := len(am.alerts) - 1; i >= 0; i-- {
		if keep(am.alerts[i]) {
			out = append(out, *am.alerts[i])
		}
	}
	return out
}

// DefaultAlertRules watches service health derived from metrics
func DefaultAlertRules(metrics *Metrics, textGenerator string) []AlertRule {
	return []AlertRule{
		{
			Name:        "HighErrorRate",
			Service:     "api",
			Description: "HTTP error rate is above 10%",
			Severity:    SeverityWarning,
			Operator:    "gt",
			Threshold:   10,
			Value:       metrics.ErrorRate,
		},
		{
			Name:        "SlowResponseTime",
			Service:     "api",
			Description: "p95 response time is above 1000ms",
			Severity:    SeverityWarning,
			Operator:    "gt",
			Threshold:   1000,
			Value: func() float64 {
				return float64(metrics.GetPercentileResponseTime(95)) / float64(time.Millisecond)
			},
		},
		{
			Name:        "TextGenerationFailures",
			Service:     textGenerator,
			Description: "More than half of text generation calls are falling back",
			Severity:    SeverityWarning,
			Operator:    "gt",
			Threshold:   50,
			Value: func() float64 {
				return metrics.ExternalErrorRate(textGenerator)
			},
		},
	}
}
