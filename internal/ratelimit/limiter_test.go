package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
)

func newMemoryLimiter(t *testing.T, perMinute int) (*RateLimiter, *monitoring.Metrics) {
	t.Helper()
	metrics := monitoring.NewMetrics()
	rl := NewRateLimiter(&RedisClient{}, Config{PerMinute: perMinute}, metrics, nil)
	t.Cleanup(rl.Close)
	return rl, metrics
}

func TestNewRedisClientWithoutAddress(t *testing.T) {
	client, err := NewRedisClient(context.Background(), RedisConfig{})
	require.NoError(t, err)
	assert.False(t, client.IsEnabled())
	assert.ErrorIs(t, client.HealthCheck(context.Background()), ErrRedisDisabled)
	assert.NoError(t, client.Close())
	assert.Equal(t, false, client.PoolStats()["enabled"])
}

func TestAllowIPInMemory(t *testing.T) {
	rl, metrics := newMemoryLimiter(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := rl.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 4-i, result.Remaining)
	}

	result, err := rl.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 12*time.Second, result.RetryAfter)

	// other clients have their own bucket
	result, err = rl.AllowIP(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	assert.Equal(t, int64(7), metrics.GetStats()["rate_limit_fallbacks"])
}

func TestDefaultsApplied(t *testing.T) {
	rl := NewRateLimiter(nil, Config{}, nil, nil)
	defer rl.Close()

	stats := rl.GetStats()
	assert.Equal(t, 60, stats["per_minute"])
	assert.Equal(t, false, stats["redis_enabled"])

	result, err := rl.AllowIP(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, rl.GetStats()["memory_buckets"])
}

func TestIPRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, metrics := newMemoryLimiter(t, 2)

	router := gin.New()
	router.Use(rl.IPRateLimitMiddleware())
	router.GET("/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		w := send()
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"category":"rate_limit"`)
	assert.Equal(t, int64(1), metrics.GetStats()["rate_limit_blocks"])
}

func TestCloseIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(nil, Config{CleanupInterval: time.Millisecond}, nil, nil)
	rl.Close()
	rl.Close()
}
