package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigPath, "PORT", "GIN_MODE", "CORS_ORIGINS", "ENABLE_HSTS",
		"MODEL_KIND", "MODEL_DIR", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"NARRATIVE_TIMEOUT", "DATA_DIR", "AUDIT_ENABLED", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "RATE_LIMIT_PER_MINUTE", "LIVE_INTERVAL", "LIVE_SEED", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batchmind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ModelTrained, cfg.Model.Kind)
	assert.Equal(t, "gpt-4o-mini", cfg.Narrative.Model)
	assert.InDelta(t, 0.3, cfg.Narrative.Temperature, 1e-6)
	assert.Equal(t, 20*time.Second, cfg.Narrative.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Live.Interval)
	assert.Equal(t, 60, cfg.RateLimit.PerMinute)
	assert.True(t, cfg.Storage.AuditEnabled)
	assert.False(t, cfg.NarrativeEnabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9090"
  cors_origins: ["https://dash.example"]
model:
  kind: threshold
narrative:
  timeout: 5s
live:
  interval: 500ms
  seed: 7
rate_limit:
  per_minute: 10
logging:
  level: debug
`)

	t.Setenv("PORT", "9191")
	t.Setenv("LIVE_INTERVAL", "2")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9191", cfg.Server.Port, "env wins over file")
	assert.Equal(t, []string{"https://dash.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, ModelThreshold, cfg.Model.Kind)
	assert.Equal(t, 5*time.Second, cfg.Narrative.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Live.Interval)
	assert.Equal(t, uint64(7), cfg.Live.Seed)
	assert.Equal(t, 10, cfg.RateLimit.PerMinute)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.NarrativeEnabled())
}

func TestLoadUsesConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, writeConfig(t, "server:\n  port: \"7070\"\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("AUDIT_ENABLED", "false")
	t.Setenv("NARRATIVE_TIMEOUT", "1m")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Storage.AuditEnabled)
	assert.Equal(t, time.Minute, cfg.Narrative.Timeout)
	assert.Equal(t, "localhost:6379", cfg.RateLimit.RedisAddr)
	assert.Equal(t, 2, cfg.RateLimit.RedisDB)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "malformed yaml", file: "server: [unterminated"},
		{name: "unknown model kind", env: map[string]string{"MODEL_KIND": "forest"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "non numeric port", env: map[string]string{"PORT": "http"}},
		{name: "bad bool", env: map[string]string{"AUDIT_ENABLED": "maybe"}},
		{name: "bad duration", env: map[string]string{"LIVE_INTERVAL": "soon"}},
		{name: "zero interval", env: map[string]string{"LIVE_INTERVAL": "0"}},
		{name: "zero rate limit", env: map[string]string{"RATE_LIMIT_PER_MINUTE": "0"}},
		{name: "bad seed", env: map[string]string{"LIVE_SEED": "-1"}},
		{name: "bad base url", env: map[string]string{"OPENAI_BASE_URL": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSecretsAreNotSerialized(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-secret")
	t.Setenv("REDIS_PASSWORD", "hunter2")

	cfg, err := Load("")
	require.NoError(t, err)

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-secret")
	assert.NotContains(t, string(raw), "hunter2")
}
