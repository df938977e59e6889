package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ZanzyTHEbar/batchmind/internal/analysis"
	"github.com/ZanzyTHEbar/batchmind/internal/cache"
	"github.com/ZanzyTHEbar/batchmind/internal/config"
	"github.com/ZanzyTHEbar/batchmind/internal/dashboard"
	"github.com/ZanzyTHEbar/batchmind/internal/database"
	apperrors "github.com/ZanzyTHEbar/batchmind/internal/errors"
	"github.com/ZanzyTHEbar/batchmind/internal/history"
	"github.com/ZanzyTHEbar/batchmind/internal/middleware"
	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
	"github.com/ZanzyTHEbar/batchmind/internal/narrative"
	"github.com/ZanzyTHEbar/batchmind/internal/ratelimit"
	"github.com/ZanzyTHEbar/batchmind/internal/resilience"
	"github.com/ZanzyTHEbar/batchmind/internal/simulator"
	"github.com/ZanzyTHEbar/batchmind/internal/stream"
)

const (
	version = "1.0.0"

	alertEvaluationInterval = 30 * time.Second
)

// application holds every long lived component of the server
type application struct {
	cfg    *config.Config
	ctx    context.Context
	logger *monitoring.Logger

	metrics     *monitoring.Metrics
	degradation *resilience.DegradationManager
	alerts      *monitoring.AlertManager
	breaker     *resilience.CircuitBreaker
	narrator    *narrative.Generator
	textCache   *cache.Cache

	db    *database.DB
	audit *database.Repository // nil when the audit log is disabled

	redis       *ratelimit.RedisClient
	limiter     *ratelimit.RateLimiter
	compression *middleware.CompressionMiddleware

	hub       *stream.Hub
	wsHandler *stream.Handler
	service   *dashboard.Service
	live      *dashboard.LiveLoop
}

// loadModel picks the risk model. A trained model whose artifacts are
// missing or invalid is a configuration error.
func loadModel(cfg *config.Config) (analysis.Model, error) {
	if cfg.Model.Kind == config.ModelThreshold {
		return analysis.NewThresholdModel(), nil
	}

	model, err := analysis.NewArtifactStore(cfg.Model.Dir).LoadModel()
	if err != nil {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("Cannot load model artifacts from %s", cfg.Model.Dir), err)
	}
	return model, nil
}

// newApplication wires the components; ctx bounds every background loop
func newApplication(ctx context.Context, cfg *config.Config, model analysis.Model, logger *monitoring.Logger) (*application, error) {
	a := &application{
		cfg:         cfg,
		ctx:         ctx,
		logger:      logger,
		metrics:     monitoring.NewMetrics(),
		degradation: resilience.NewDegradationManager(resilience.DefaultDegradationConfig()),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		hub:         stream.NewHub(),
	}

	a.alerts = monitoring.NewAlertManager(logger, 0)
	a.alerts.AddNotifier(monitoring.NewLogNotifier(logger))

	if err := a.initNarrative(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initAudit(); err != nil {
		a.Close()
		return nil, err
	}
	a.initRateLimit(ctx)
	a.registerHealthChecks()

	sampler := simulator.NewRandomSampler()
	if cfg.Live.Seed != 0 {
		sampler = simulator.NewSampler(cfg.Live.Seed)
	}

	deps := dashboard.Deps{
		Analyzer:    analysis.NewAnalyzer(model),
		Narrator:    a.narrator,
		History:     history.NewBuffer(history.DefaultCapacity),
		Simulator:   simulator.New(sampler),
		Alerts:      a.alerts,
		Degradation: a.degradation,
		Metrics:     a.metrics,
		Logger:      logger,
	}
	if a.audit != nil {
		deps.Audit = a.audit
	}
	a.service = dashboard.NewService(deps)
	a.live = dashboard.NewLiveLoop(a.service, cfg.Live.Interval, a.hub, a.metrics)
	a.wsHandler = stream.NewHandler(a.hub, originChecker(cfg.Server.CORSOrigins))

	return a, nil
}

func (a *application) initNarrative() error {
	opts := narrative.Options{
		Timeout:     a.cfg.Narrative.Timeout,
		Degradation: a.degradation,
		Metrics:     a.metrics,
		Logger:      a.logger,
	}

	var client narrative.TextGenerator
	if a.cfg.NarrativeEnabled() {
		openaiClient, err := narrative.NewOpenAIClient(narrative.OpenAIConfig{
			APIKey:      a.cfg.Narrative.APIKey,
			BaseURL:     a.cfg.Narrative.BaseURL,
			Model:       a.cfg.Narrative.Model,
			Temperature: a.cfg.Narrative.Temperature,
		})
		if err != nil {
			return apperrors.NewConfigurationError("Cannot create text generation client", err)
		}
		client = openaiClient

		a.breaker = resilience.NewCircuitBreaker(resilience.ServiceTextGenerator, resilience.CircuitBreakerConfig{})
		opts.Breaker = a.breaker
		if a.cfg.Narrative.CacheTTL > 0 {
			a.textCache = cache.NewCache(a.cfg.Narrative.CacheTTL)
			opts.Cache = a.textCache
		}
		a.logger.SystemLogger("narrative_mode", "delegating insights to "+openaiClient.Model())
	} else {
		a.logger.SystemLogger("narrative_mode", "no API key configured, using template insights")
	}

	a.narrator = narrative.NewGenerator(client, opts)

	for _, rule := range monitoring.DefaultAlertRules(a.metrics, resilience.ServiceTextGenerator) {
		a.alerts.AddRule(rule)
	}
	return nil
}

func (a *application) initAudit() error {
	if !a.cfg.Storage.AuditEnabled {
		return nil
	}
	db, err := database.NewDB(a.cfg.Storage.DataDir)
	if err != nil {
		return apperrors.NewConfigurationError("Cannot open audit database", err)
	}
	a.db = db
	a.audit = database.NewRepository(db)
	return nil
}

// initRateLimit never fails: without Redis the limiter keeps per-process buckets
func (a *application) initRateLimit(ctx context.Context) {
	redisClient, err := ratelimit.NewRedisClient(ctx, ratelimit.RedisConfig{
		Addr:     a.cfg.RateLimit.RedisAddr,
		Password: a.cfg.RateLimit.RedisPassword,
		DB:       a.cfg.RateLimit.RedisDB,
	})
	if err != nil {
		a.logger.Warn("Redis unavailable, rate limiting in memory", "addr", a.cfg.RateLimit.RedisAddr, "error", err)
	}
	a.redis = redisClient
	a.limiter = ratelimit.NewRateLimiter(redisClient, ratelimit.Config{PerMinute: a.cfg.RateLimit.PerMinute}, a.metrics, a.degradation)
}

func (a *application) registerHealthChecks() {
	a.degradation.RegisterService(resilience.ServiceRiskModel, nil)

	a.degradation.RegisterService(resilience.ServiceTextGenerator, func(context.Context) error {
		if a.breaker != nil && a.breaker.State() == resilience.StateOpen {
			return errors.New("circuit breaker open")
		}
		return nil
	})

	if a.db != nil {
		a.degradation.RegisterService(resilience.ServiceAuditStore, a.db.HealthCheck)
	}
	if a.redis.IsEnabled() {
		a.degradation.RegisterService(resilience.ServiceRateLimiter, a.redis.HealthCheck)
	}
}

// start launches the background loops; they stop when a.ctx ends
func (a *application) start() {
	go a.hub.Run(a.ctx)
	go a.alerts.Start(a.ctx, alertEvaluationInterval)
	go a.degradation.StartHealthChecks(a.ctx)
}

// Close stops live mode and releases resources. It is safe on a partly
// built application.
func (a *application) Close() {
	if a.live != nil && a.live.Running() {
		if err := a.live.Stop(); err != nil {
			a.logger.Warn("Failed to stop live mode", "error", err)
		}
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.redis != nil {
		apperrors.SafeClose(a.redis, "redis")
	}
	if a.textCache != nil {
		a.textCache.Close()
	}
	if a.db != nil {
		apperrors.SafeClose(a.db, "audit database")
	}
}

// originChecker mirrors the CORS allow list for websocket upgrades
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[o] = true
	}
	if len(allowed) == 0 {
		return nil
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
