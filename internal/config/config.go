package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the YAML file used when Load gets no path
const EnvConfigPath = "BATCHMIND_CONFIG"

const (
	ModelTrained   = "trained"
	ModelThreshold = "threshold"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Model     ModelConfig     `yaml:"model" json:"model"`
	Narrative NarrativeConfig `yaml:"narrative" json:"narrative"`
	Live      LiveConfig      `yaml:"live" json:"live"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

type ServerConfig struct {
	Port           string        `yaml:"port" json:"port" validate:"required,numeric"`
	GinMode        string        `yaml:"gin_mode" json:"gin_mode" validate:"oneof=debug release test"`
	CORSOrigins    []string      `yaml:"cors_origins" json:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"gte=0"`
	EnableHSTS     bool          `yaml:"enable_hsts" json:"enable_hsts"`
}

type ModelConfig struct {
	Kind string `yaml:"kind" json:"kind" validate:"oneof=trained threshold"`
	Dir  string `yaml:"dir" json:"dir" validate:"required_if=Kind trained"`
}

// NarrativeConfig controls the text generator. Without an API key every
// insight comes from the local template.
type NarrativeConfig struct {
	APIKey      string        `yaml:"-" json:"-"`
	BaseURL     string        `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	Model       string        `yaml:"model" json:"model" validate:"required"`
	Temperature float32       `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	CacheTTL    time.Duration `yaml:"cache_ttl" json:"cache_ttl" validate:"gte=0"`
}

type LiveConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval" validate:"gt=0"`
	Seed     uint64        `yaml:"seed" json:"seed"` // 0 draws from a random source
}

type StorageConfig struct {
	DataDir      string `yaml:"data_dir" json:"data_dir" validate:"required_if=AuditEnabled true"`
	AuditEnabled bool   `yaml:"audit_enabled" json:"audit_enabled"`
}

type RateLimitConfig struct {
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db" validate:"gte=0"`
	PerMinute     int    `yaml:"per_minute" json:"per_minute" validate:"gt=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			GinMode:        "release",
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
			RequestTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			Kind: ModelTrained,
			Dir:  "./models",
		},
		Narrative: NarrativeConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			Timeout:     20 * time.Second,
			CacheTTL:    15 * time.Minute,
		},
		Live: LiveConfig{
			Interval: 3 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:      "./data",
			AuditEnabled: true,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load resolves configuration from defaults, then the YAML file at path
// (or $BATCHMIND_CONFIG), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Server.GinMode = getEnvOrDefault("GIN_MODE", cfg.Server.GinMode)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}

	cfg.Model.Kind = getEnvOrDefault("MODEL_KIND", cfg.Model.Kind)
	cfg.Model.Dir = getEnvOrDefault("MODEL_DIR", cfg.Model.Dir)

	cfg.Narrative.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Narrative.Model = getEnvOrDefault("OPENAI_MODEL", cfg.Narrative.Model)
	cfg.Narrative.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", cfg.Narrative.BaseURL)

	cfg.Storage.DataDir = getEnvOrDefault("DATA_DIR", cfg.Storage.DataDir)
	cfg.RateLimit.RedisAddr = getEnvOrDefault("REDIS_ADDR", cfg.RateLimit.RedisAddr)
	cfg.RateLimit.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", cfg.RateLimit.RedisPassword)
	cfg.Logging.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level))

	var err error
	if cfg.Server.EnableHSTS, err = envBool("ENABLE_HSTS", cfg.Server.EnableHSTS); err != nil {
		return err
	}
	if cfg.Storage.AuditEnabled, err = envBool("AUDIT_ENABLED", cfg.Storage.AuditEnabled); err != nil {
		return err
	}
	if cfg.Narrative.Timeout, err = envDuration("NARRATIVE_TIMEOUT", cfg.Narrative.Timeout); err != nil {
		return err
	}
	if cfg.Live.Interval, err = envDuration("LIVE_INTERVAL", cfg.Live.Interval); err != nil {
		return err
	}
	if cfg.RateLimit.RedisDB, err = envInt("REDIS_DB", cfg.RateLimit.RedisDB); err != nil {
		return err
	}
	if cfg.RateLimit.PerMinute, err = envInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimit.PerMinute); err != nil {
		return err
	}
	if raw := os.Getenv("LIVE_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("LIVE_SEED: %w", err)
		}
		cfg.Live.Seed = seed
	}
	return nil
}

var validate = validator.New()

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// NarrativeEnabled reports whether insights are delegated to the LLM
func (c *Config) NarrativeEnabled() bool {
	return strings.TrimSpace(c.Narrative.APIKey) != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// envDuration accepts Go durations ("3s") or plain seconds ("20")
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
