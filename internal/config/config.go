// Package config handles loading of ports, callback targets, database strings, etc.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Runtime backends.
const (
	RuntimeSimulated = "simulated"
	RuntimeExec      = "exec"
)

// Config holds all configuration values for the application.
type Config struct {
	// HTTP server port for the controller
	HTTPPort int

	// Database connection string. Empty selects the in-memory ledger.
	DatabaseURL string

	// Plant file. Empty selects the embedded reference plant.
	PlantFile string

	// Where request outcomes are posted, and how long one attempt may take
	CallbackURL     string
	CallbackTimeout time.Duration

	// Maximum number of requests processed at once
	WorkerConcurrency int

	// Step execution backend: "simulated" or "exec"
	Runtime string

	// Simulated runtime: failure probability and wall time per simulated second
	FailureRate float64
	TimeScale   time.Duration

	// Exec runtime: command run for every step
	StepCommand []string

	// Optional bearer token for inbound calls
	APIToken string

	// Per-client request rate (requests/second) and burst. 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int
	// Key clients on X-Forwarded-For. Only safe behind a rewriting proxy.
	TrustForwarded bool

	// OpenTelemetry collector endpoint
	OTELEndpoint string

	// slog level: debug, info, warn or error
	LogLevel string
}

// Load reads configuration from an optional file and environment variables.
// Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 5001)
	v.SetDefault("callback_url", "http://localhost:8081/api/mes/scheduling-callback/step-update")
	v.SetDefault("callback_timeout", 15*time.Second)
	v.SetDefault("worker_concurrency", 16)
	v.SetDefault("runtime", RuntimeSimulated)
	v.SetDefault("failure_rate", 0.02)
	v.SetDefault("time_scale", time.Second)
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("rate_limit_burst", 0)
	v.SetDefault("trust_forwarded", false)
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("log_level", "info")

	envs := map[string]string{
		"http_port":          "PORT",
		"database_url":       "DATABASE_URL",
		"plant_file":         "PLANT_FILE",
		"callback_url":       "CALLBACK_URL",
		"callback_timeout":   "CALLBACK_TIMEOUT",
		"worker_concurrency": "WORKER_CONCURRENCY",
		"runtime":            "RUNTIME",
		"failure_rate":       "FAILURE_RATE",
		"time_scale":         "TIME_SCALE",
		"step_command":       "STEP_COMMAND",
		"api_token":          "API_TOKEN",
		"rate_limit":         "RATE_LIMIT",
		"rate_limit_burst":   "RATE_LIMIT_BURST",
		"trust_forwarded":    "TRUST_FORWARDED",
		"otel_endpoint":      "OTEL_EXPORTER_OTLP_ENDPOINT",
		"log_level":          "LOG_LEVEL",
	}
	for key, env := range envs {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("mesplane")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		HTTPPort:          v.GetInt("http_port"),
		DatabaseURL:       v.GetString("database_url"),
		PlantFile:         v.GetString("plant_file"),
		CallbackURL:       v.GetString("callback_url"),
		CallbackTimeout:   v.GetDuration("callback_timeout"),
		WorkerConcurrency: v.GetInt("worker_concurrency"),
		Runtime:           v.GetString("runtime"),
		FailureRate:       v.GetFloat64("failure_rate"),
		TimeScale:         v.GetDuration("time_scale"),
		StepCommand:       v.GetStringSlice("step_command"),
		APIToken:          v.GetString("api_token"),
		RateLimit:         v.GetFloat64("rate_limit"),
		RateLimitBurst:    v.GetInt("rate_limit_burst"),
		TrustForwarded:    v.GetBool("trust_forwarded"),
		OTELEndpoint:      v.GetString("otel_endpoint"),
		LogLevel:          v.GetString("log_level"),
	}

	if cfg.RateLimit > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = max(1, int(cfg.RateLimit))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d (env: PORT)", c.HTTPPort)
	}
	if c.CallbackURL == "" {
		return errors.New("callback_url is required (env: CALLBACK_URL)")
	}
	if c.CallbackTimeout <= 0 {
		return fmt.Errorf("callback_timeout must be positive, got %v", c.CallbackTimeout)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("worker_concurrency must be at least 1, got %d", c.WorkerConcurrency)
	}
	switch c.Runtime {
	case RuntimeSimulated:
	case RuntimeExec:
		if len(c.StepCommand) == 0 {
			return errors.New("step_command is required for the exec runtime (env: STEP_COMMAND)")
		}
	default:
		return fmt.Errorf("invalid runtime %q: must be %q or %q", c.Runtime, RuntimeSimulated, RuntimeExec)
	}
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("failure_rate must be within [0,1], got %v", c.FailureRate)
	}
	if c.TimeScale < 0 {
		return fmt.Errorf("time_scale must not be negative, got %v", c.TimeScale)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %v", c.RateLimit)
	}
	return nil
}
