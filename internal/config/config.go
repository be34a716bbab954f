// Package config loads the server configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSec int    `yaml:"write_timeout_seconds"`
}

// DatabaseConfig controls the relational store connection. With an empty DSN
// the application falls back to the in-memory store.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// InsightsConfig configures the chat-completions provider used for sentiment
// analysis, affirmations and challenge generation.
type InsightsConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	TimeoutSec  int     `yaml:"timeout_seconds"`
	Temperature float64 `yaml:"temperature"`
}

// PaymentsConfig configures the payment provider integration.
type PaymentsConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	PremiumPrice  string `yaml:"premium_price_id"`
	ProPrice      string `yaml:"professional_price_id"`
}

// AuthConfig configures session token issuance.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// RateLimitConfig configures the per-user request limiter.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	Insights  InsightsConfig       `yaml:"insights"`
	Payments  PaymentsConfig       `yaml:"payments"`
	Auth      AuthConfig           `yaml:"auth"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
}

// Load reads config/server.yaml if present, applies defaults and environment
// overrides.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "server.yaml"))
}

// LoadFromPath loads configuration from a specific file. A missing file is not
// an error; defaults and environment variables still apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 30,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Insights: InsightsConfig{
			Endpoint:    "https://api.openai.com/v1",
			Model:       "gpt-4o",
			TimeoutSec:  20,
			Temperature: 0.7,
		},
		Auth: AuthConfig{
			TokenTTLHours: 72,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Insights.Endpoint, "INSIGHTS_ENDPOINT")
	setString(&cfg.Insights.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Insights.Model, "INSIGHTS_MODEL")
	setString(&cfg.Payments.Endpoint, "PAYMENTS_ENDPOINT")
	setString(&cfg.Payments.APIKey, "STRIPE_SECRET_KEY")
	setString(&cfg.Payments.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&cfg.Payments.PremiumPrice, "STRIPE_PREMIUM_PRICE_ID")
	setString(&cfg.Payments.ProPrice, "STRIPE_PROFESSIONAL_PRICE_ID")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
