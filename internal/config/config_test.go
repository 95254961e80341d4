package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"TELEGRAM_BOT_TOKEN", "API_ENDPOINT", "MODEL_API_URL", "REFERENCE_DATE",
	"SIGNATURE_NAME", "INTERVAL_DAYS", "FLOW", "WEBHOOK_URL", "PORT", "LOG_LEVEL",
	"REQUEST_TIMEOUT", "MAX_ATTEMPTS", "REQUESTS_PER_SEC", "STATE_BACKEND",
	"STATE_TTL", "REDIS_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD",
	"DB_NAME", "DB_SSLMODE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ENDPOINT", "http://model:8501/v1/models/price:predict")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "2024-01-23", cfg.ReferenceDate)
	assert.Equal(t, "serving_default", cfg.SignatureName)
	assert.Equal(t, 4, cfg.IntervalDays)
	assert.Equal(t, "close", cfg.Flow)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeoutDuration())
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5, cfg.RequestsPerSec)
	assert.Equal(t, BackendMemory, cfg.StateBackend)
	assert.Equal(t, 24*time.Hour, cfg.StateTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Empty(t, cfg.WebhookEndpoint())
	assert.Error(t, cfg.RequireBotToken())
	assert.NoError(t, cfg.RequireAPIEndpoint())
}

func TestLoadWithoutEndpoint(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.RequireAPIEndpoint(), "API_ENDPOINT")
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "1:abc")
	t.Setenv("MODEL_API_URL", "http://legacy/predict")
	t.Setenv("FLOW", "OHLC")
	t.Setenv("PORT", "8080")
	t.Setenv("WEBHOOK_URL", "https://bot.example.com/")
	t.Setenv("STATE_BACKEND", "redis")
	t.Setenv("STATE_TTL", "90m")
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("REQUESTS_PER_SEC", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://legacy/predict", cfg.APIEndpoint)
	assert.Equal(t, "ohlc", cfg.Flow)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "https://bot.example.com/bot1:abc", cfg.WebhookEndpoint())
	assert.Equal(t, BackendRedis, cfg.StateBackend)
	assert.Equal(t, 90*time.Minute, cfg.StateTTL)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 2, cfg.RequestsPerSec)
	assert.NoError(t, cfg.RequireBotToken())
}

func TestAPIEndpointWinsOverAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ENDPOINT", "http://new")
	t.Setenv("MODEL_API_URL", "http://old")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://new", cfg.APIEndpoint)
}

func TestMalformedNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ENDPOINT", "http://model")
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("STATE_TTL", "a day")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.StateTTL)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			APIEndpoint:    "http://model",
			ReferenceDate:  "2024-01-23",
			IntervalDays:   4,
			Flow:           "close",
			Port:           "3000",
			LogLevel:       "info",
			RequestTimeout: 10,
			MaxAttempts:    3,
			RequestsPerSec: 5,
			StateBackend:   BackendMemory,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"endpoint checked by commands", func(c *Config) { c.APIEndpoint = "" }, ""},
		{"bad reference", func(c *Config) { c.ReferenceDate = "2024/01/23" }, "REFERENCE_DATE"},
		{"zero interval", func(c *Config) { c.IntervalDays = 0 }, "INTERVAL_DAYS"},
		{"unknown flow", func(c *Config) { c.Flow = "spot" }, "FLOW"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"bad port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "MAX_ATTEMPTS"},
		{"unknown backend", func(c *Config) { c.StateBackend = "etcd" }, "STATE_BACKEND"},
		{"postgres without host", func(c *Config) { c.StateBackend = BackendPostgres }, "DB_HOST"},
		{"redis without ttl", func(c *Config) { c.StateBackend = BackendRedis }, "STATE_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"INTERVAL_DAYS", "FLOW", "STATE_BACKEND"} {
		assert.Contains(t, err.Error(), key)
	}
}
