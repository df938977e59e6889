package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("text_generator", CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})
	now := time.Now()
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	calls := 0
	fail := func() error { calls++; return boom }

	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Call(fail), ErrCircuitOpen)
	assert.Equal(t, 2, calls, "open breaker must not invoke fn")

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("x", CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Call(func() error { return errors.New("first") })
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	_ = cb.Call(func() error { return errors.New("second") })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.Stats()["state"])
}

func TestDegradationManagerLevels(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService(ServiceTextGenerator, nil)

	// below MinRequests a failure does not change the level
	dm.RecordError(ServiceTextGenerator, errors.New("timeout"))
	health, ok := dm.GetServiceHealth(ServiceTextGenerator)
	require.True(t, ok)
	assert.Equal(t, LevelNormal, health.Level)
	assert.Equal(t, "timeout", health.LastError)

	for i := 0; i < 4; i++ {
		dm.RecordError(ServiceTextGenerator, errors.New("timeout"))
	}
	assert.False(t, dm.IsServiceAvailable(ServiceTextGenerator))
	assert.Equal(t, "emergency", dm.OverallStatus())

	dm.ResetService(ServiceTextGenerator)
	assert.True(t, dm.IsServiceAvailable(ServiceTextGenerator))
	assert.Equal(t, "healthy", dm.OverallStatus())

	assert.False(t, dm.IsServiceAvailable("unknown"))
}

func TestDegradationManagerErrorRate(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService(ServiceAuditStore, nil)

	for i := 0; i < 8; i++ {
		dm.RecordRequest(ServiceAuditStore, true)
	}
	dm.RecordRequest(ServiceAuditStore, false)
	dm.RecordRequest(ServiceAuditStore, false)

	health, _ := dm.GetServiceHealth(ServiceAuditStore)
	assert.InDelta(t, 0.2, health.ErrorRate, 1e-9)
	assert.Equal(t, LevelDegraded, health.Level)
	assert.Len(t, dm.GetAllServiceHealth(), 1)
}

func TestRunHealthChecks(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService("ok", func(ctx context.Context) error { return nil })
	dm.RegisterService("down", func(ctx context.Context) error { return errors.New("unreachable") })

	dm.RunHealthChecks(context.Background())

	ok, _ := dm.GetServiceHealth("ok")
	down, _ := dm.GetServiceHealth("down")
	assert.Equal(t, int64(1), ok.TotalRequests)
	assert.Equal(t, int64(0), ok.ErrorCount)
	assert.Equal(t, int64(1), down.ErrorCount)
	assert.Contains(t, down.LastError, "unreachable")
}

func TestDegradationLevelText(t *testing.T) {
	for level := LevelNormal; level <= LevelEmergency; level++ {
		text, err := level.MarshalText()
		require.NoError(t, err)

		var decoded DegradationLevel
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, level, decoded)
	}

	var bad DegradationLevel
	assert.Error(t, bad.UnmarshalText([]byte("meltdown")))
}
