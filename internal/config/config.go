package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TokenPredictor/internal/interval"
)

// Conversation state backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	APIEndpoint      string        `env:"API_ENDPOINT"`
	ReferenceDate    string        `env:"REFERENCE_DATE" envDefault:"2024-01-23"`
	SignatureName    string        `env:"SIGNATURE_NAME" envDefault:"serving_default"`
	IntervalDays     int           `env:"INTERVAL_DAYS" envDefault:"4"`
	Flow             string        `env:"FLOW" envDefault:"close"`
	WebhookURL       string        `env:"WEBHOOK_URL"`
	Port             string        `env:"PORT" envDefault:"3000"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout   int           `env:"REQUEST_TIMEOUT" envDefault:"10"` // seconds
	MaxAttempts      int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	RequestsPerSec   int           `env:"REQUESTS_PER_SEC" envDefault:"5"`
	StateBackend     string        `env:"STATE_BACKEND" envDefault:"memory"`
	StateTTL         time.Duration `env:"STATE_TTL" envDefault:"24h"`
	RedisURL         string        `env:"REDIS_URL" envDefault:"localhost:6379"`

	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.APIEndpoint = getEnvWithDefault("API_ENDPOINT", os.Getenv("MODEL_API_URL"))
	cfg.ReferenceDate = getEnvWithDefault("REFERENCE_DATE", "2024-01-23")
	cfg.SignatureName = getEnvWithDefault("SIGNATURE_NAME", "serving_default")
	cfg.IntervalDays = getEnvIntWithDefault("INTERVAL_DAYS", 4)
	cfg.Flow = strings.ToLower(getEnvWithDefault("FLOW", "close"))
	cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
	cfg.Port = getEnvWithDefault("PORT", "3000")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 10)
	cfg.MaxAttempts = getEnvIntWithDefault("MAX_ATTEMPTS", 3)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.StateBackend = strings.ToLower(getEnvWithDefault("STATE_BACKEND", BackendMemory))
	cfg.StateTTL = getEnvDurationWithDefault("STATE_TTL", 24*time.Hour)
	cfg.RedisURL = getEnvWithDefault("REDIS_URL", "localhost:6379")

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = os.Getenv("DB_PORT")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBSSLMode = os.Getenv("DB_SSLMODE")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing or malformed setting at once
func (c *Config) Validate() error {
	var errs []error

	if _, err := interval.ParseReference(c.ReferenceDate); err != nil {
		errs = append(errs, fmt.Errorf("REFERENCE_DATE: %w", err))
	}
	if c.IntervalDays <= 0 {
		errs = append(errs, fmt.Errorf("INTERVAL_DAYS must be positive, got %d", c.IntervalDays))
	}
	if c.Flow != "close" && c.Flow != "ohlc" {
		errs = append(errs, fmt.Errorf("FLOW must be close or ohlc, got %q", c.Flow))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %d", c.RequestTimeout))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("MAX_ATTEMPTS must be positive, got %d", c.MaxAttempts))
	}
	if c.RequestsPerSec <= 0 {
		errs = append(errs, fmt.Errorf("REQUESTS_PER_SEC must be positive, got %d", c.RequestsPerSec))
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("PORT %q is not a valid port", c.Port))
	}

	switch c.StateBackend {
	case BackendMemory:
	case BackendRedis:
		if c.StateTTL <= 0 {
			errs = append(errs, errors.New("STATE_TTL must be positive for the redis backend"))
		}
	case BackendPostgres:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STATE_BACKEND must be memory, redis or postgres, got %q", c.StateBackend))
	}

	return errors.Join(errs...)
}

// RequireBotToken fails when no Telegram token is configured
func (c *Config) RequireBotToken() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN not set in environment")
	}
	return nil
}

// RequireAPIEndpoint fails when no model endpoint is configured
func (c *Config) RequireAPIEndpoint() error {
	if c.APIEndpoint == "" {
		return errors.New("API_ENDPOINT (or MODEL_API_URL) not set in environment")
	}
	return nil
}

// Addr is the listen address of the webhook server
func (c *Config) Addr() string {
	return ":" + c.Port
}

// WebhookEndpoint is the public URL registered with Telegram, or "" when
// WEBHOOK_URL is unset
func (c *Config) WebhookEndpoint() string {
	if c.WebhookURL == "" {
		return ""
	}
	return strings.TrimRight(c.WebhookURL, "/") + "/bot" + c.TelegramBotToken
}

// RequestTimeoutDuration converts RequestTimeout to a duration
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer value")
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring malformed duration")
	}
	return defaultValue
}
