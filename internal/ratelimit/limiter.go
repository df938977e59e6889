package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
	"github.com/ZanzyTHEbar/batchmind/internal/resilience"
)

// Config holds rate limiter settings
type Config struct {
	PerMinute       int // requests per client IP per minute on limited routes
	CleanupInterval time.Duration
	MaxBuckets      int // in-memory buckets kept before a cleanup clears them
}

func DefaultConfig() Config {
	return Config{
		PerMinute:       60,
		CleanupInterval: time.Hour,
		MaxBuckets:      1000,
	}
}

// Result is the outcome of one rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter limits requests through Redis when available and falls back
// to per-process token buckets otherwise.
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics
	degradation  *resilience.DegradationManager

	buckets   map[string]*rate.Limiter
	bucketsMu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts the bucket cleanup goroutine; call Close to stop it.
// redisClient, metrics and degradation may be nil.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics, degradation *resilience.DegradationManager) *RateLimiter {
	defaults := DefaultConfig()
	if config.PerMinute <= 0 {
		config.PerMinute = defaults.PerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.MaxBuckets <= 0 {
		config.MaxBuckets = defaults.MaxBuckets
	}

	rl := &RateLimiter{
		redisClient: redisClient,
		config:      config,
		metrics:     metrics,
		degradation: degradation,
		buckets:     make(map[string]*rate.Limiter),
		stop:        make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.Client())
		slog.Info("Redis rate limiter initialized", "per_minute", config.PerMinute)
	} else {
		slog.Info("Using in-memory rate limiting", "per_minute", config.PerMinute)
	}

	go rl.cleanup()

	return rl
}

// AllowIP checks the per-minute limit for a client address
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.allow(ctx, "ratelimit:ip:"+ip, rl.config.PerMinute, time.Minute)
}

func (rl *RateLimiter) allow(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	if rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, limit, period)
		rl.recordRedis(err)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using in-memory bucket", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowLocal(key, limit, period), nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit,
		Burst:  limit,
		Period: period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

// allowLocal uses a token bucket holding limit tokens refilled over period
func (rl *RateLimiter) allowLocal(key string, limit int, period time.Duration) *Result {
	rl.bucketsMu.Lock()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(float64(limit)/period.Seconds()), limit)
		rl.buckets[key] = bucket
	}
	rl.bucketsMu.Unlock()

	now := time.Now()
	allowed := bucket.AllowN(now, 1)

	remaining := int(bucket.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	// time for one token to refill
	perToken := time.Duration(float64(period) / float64(limit))

	result := &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(limit-remaining) * perToken),
	}
	if !allowed {
		result.RetryAfter = perToken
	}
	return result
}

func (rl *RateLimiter) recordRedis(err error) {
	if rl.degradation == nil {
		return
	}
	if err != nil {
		rl.degradation.RecordError(resilience.ServiceRateLimiter, err)
		return
	}
	rl.degradation.RecordRequest(resilience.ServiceRateLimiter, true)
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.bucketsMu.Lock()
			if len(rl.buckets) > rl.config.MaxBuckets {
				slog.Info("Clearing in-memory rate limit buckets", "count", len(rl.buckets))
				rl.buckets = make(map[string]*rate.Limiter)
			}
			rl.bucketsMu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine; it does not close the Redis client
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.bucketsMu.Lock()
	buckets := len(rl.buckets)
	rl.bucketsMu.Unlock()

	return map[string]interface{}{
		"redis_enabled":  rl.redisLimiter != nil,
		"per_minute":     rl.config.PerMinute,
		"memory_buckets": buckets,
		"redis_pool":     rl.redisClient.PoolStats(),
	}
}
