package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service names tracked by the dashboard
const (
	ServiceRiskModel     = "risk_model"
	ServiceTextGenerator = "text_generator"
	ServiceAuditStore    = "audit_store"
	ServiceRateLimiter   = "rate_limit_store"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

func (l DegradationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *DegradationLevel) UnmarshalText(text []byte) error {
	for level := LevelNormal; level <= LevelEmergency; level++ {
		if level.String() == string(text) {
			*l = level
			return nil
		}
	}
	return fmt.Errorf("unknown degradation level %q", text)
}

// DegradationConfig holds error rate thresholds between 0 and 1
type DegradationConfig struct {
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
	DegradedThreshold   float64
	CriticalThreshold   float64
	EmergencyThreshold  float64
	// MinRequests keeps a single early failure from marking a service unavailable
	MinRequests int64
}

func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		HealthCheckTimeout:  5 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		MinRequests:         5,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime time.Time        `json:"last_error_time,omitempty"`
	StatusMessage string           `json:"status_message"`
}

// HealthCheckFunc probes a dependency
type HealthCheckFunc func(ctx context.Context) error

// DegradationManager tracks error rates for the dashboard's dependencies
type DegradationManager struct {
	config       DegradationConfig
	mutex        sync.RWMutex
	services     map[string]*ServiceHealth
	healthChecks map[string]HealthCheckFunc
}

func NewDegradationManager(config DegradationConfig) *DegradationManager {
	return &DegradationManager{
		config:       config,
		services:     make(map[string]*ServiceHealth),
		healthChecks: make(map[string]HealthCheckFunc),
	}
}

// RegisterService starts tracking a service; healthCheck may be nil
func (dm *DegradationManager) RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.services[serviceName] = &ServiceHealth{
		ServiceName:   serviceName,
		Level:         LevelNormal,
		StatusMessage: "Service is healthy",
	}
	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}

	slog.Info("Registered service for degradation management", "service", serviceName)
}

// RecordRequest records the outcome of one call to a service
func (dm *DegradationManager) RecordRequest(serviceName string, success bool) {
	if success {
		dm.record(serviceName, nil)
		return
	}
	dm.record(serviceName, fmt.Errorf("%s request failed", serviceName))
}

// RecordError records a failed call to a service
func (dm *DegradationManager) RecordError(serviceName string, err error) {
	if err == nil {
		err = fmt.Errorf("%s request failed", serviceName)
	}
	dm.record(serviceName, err)
}

func (dm *DegradationManager) record(serviceName string, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	service.TotalRequests++
	if err != nil {
		service.ErrorCount++
		service.LastError = err.Error()
		service.LastErrorTime = time.Now()
	}
	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)

	dm.updateLevel(service)
}

func (dm *DegradationManager) updateLevel(service *ServiceHealth) {
	oldLevel := service.Level

	newLevel, message := LevelNormal, "Service is healthy"
	if service.TotalRequests >= dm.config.MinRequests {
		switch {
		case service.ErrorRate >= dm.config.EmergencyThreshold:
			newLevel, message = LevelEmergency, "Service is in emergency state - high error rate"
		case service.ErrorRate >= dm.config.CriticalThreshold:
			newLevel, message = LevelCritical, "Service is in critical state - elevated error rate"
		case service.ErrorRate >= dm.config.DegradedThreshold:
			newLevel, message = LevelDegraded, "Service is degraded - moderate error rate"
		}
	}

	service.Level = newLevel
	service.StatusMessage = message

	if oldLevel != newLevel {
		slog.Warn("Service degradation level changed",
			"service", service.ServiceName,
			"old_level", oldLevel.String(),
			"new_level", newLevel.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests)
	}
}

// GetServiceHealth returns a copy of the service health
func (dm *DegradationManager) GetServiceHealth(serviceName string) (ServiceHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return ServiceHealth{}, false
	}
	return *service, true
}

func (dm *DegradationManager) GetAllServiceHealth() map[string]ServiceHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	result := make(map[string]ServiceHealth, len(dm.services))
	for name, service := range dm.services {
		result[name] = *service
	}
	return result
}

// IsServiceAvailable is false only for unknown services and those in emergency
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	return exists && service.Level != LevelEmergency
}

// OverallStatus is "healthy" unless some service has left LevelNormal
func (dm *DegradationManager) OverallStatus() string {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	worst := LevelNormal
	for _, service := range dm.services {
		if service.Level > worst {
			worst = service.Level
		}
	}
	if worst == LevelNormal {
		return "healthy"
	}
	return worst.String()
}

func (dm *DegradationManager) ResetService(serviceName string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if service, exists := dm.services[serviceName]; exists {
		*service = ServiceHealth{
			ServiceName:   serviceName,
			Level:         LevelNormal,
			StatusMessage: "Service is healthy",
		}
		slog.Info("Service health reset", "service", serviceName)
	}
}

// StartHealthChecks runs every registered health check on an interval until ctx ends
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.RunHealthChecks(ctx)
		}
	}
}

// RunHealthChecks runs every registered check once and waits for them
func (dm *DegradationManager) RunHealthChecks(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				dm.RecordError(name, fmt.Errorf("health check failed for service %s: %w", name, err))
				return
			}
			dm.RecordRequest(name, true)
		}(name, check)
	}
	wg.Wait()
}
