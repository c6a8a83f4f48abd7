package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel      OTelConfig
	Forge     ForgeConfig
	Webhook   WebhookConfig
	Dedup     DedupConfig
	Env       string
	Port      string
	FlowsFile string
}

// ForgeConfig holds the credentials for the hosting platform's REST API.
type ForgeConfig struct {
	Token   string
	BaseURL string // empty means the public API
}

type WebhookConfig struct {
	// Secret keys the HMAC signature of inbound deliveries. When empty,
	// signature verification is skipped entirely.
	Secret string
}

// DedupConfig configures the optional redis-backed delivery dedup guard.
type DedupConfig struct {
	RedisURL string
	TTL      time.Duration
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Load loads configuration from environment variables. In development it
// also reads a .env file when one is present.
func Load() (Config, error) {
	if getEnv("FORGEFLOW_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:       getEnv("FORGEFLOW_ENV", "development"),
		Port:      getEnv("PORT", "8383"),
		FlowsFile: getEnv("WORKFLOWS_FILE", "workflows.yaml"),
		Forge: ForgeConfig{
			Token:   getEnv("FORGE_TOKEN", ""),
			BaseURL: getEnv("FORGE_BASE_URL", ""),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
		Dedup: DedupConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      getEnvDuration("DEDUP_TTL", 24*time.Hour),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "forgeflow"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	if cfg.Forge.Token == "" {
		return Config{}, fmt.Errorf("FORGE_TOKEN is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c DedupConfig) Enabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
