// Package config loads service configuration from a YAML file with
// environment-variable overrides for anything secret or deploy-specific.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/newsletter/internal/email"
)

// Config holds all configuration for the application.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Email        EmailConfig        `yaml:"email"`
	Redis        RedisConfig        `yaml:"redis"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// BaseURL is the externally visible address confirmation links are
	// built from, e.g. "https://newsletter.example.com".
	BaseURL string `yaml:"base_url"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// EmailProvider selects the outbound email backend.
type EmailProvider string

const (
	ProviderPostmark EmailProvider = "postmark"
	ProviderSES      EmailProvider = "ses"
)

// EmailConfig holds outbound email transport configuration.
type EmailConfig struct {
	Provider       EmailProvider   `yaml:"provider"`
	Sender         string          `yaml:"sender"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	Postmark       PostmarkConfig  `yaml:"postmark"`
	SES            email.SESConfig `yaml:"ses"`
}

// Timeout returns the per-delivery timeout.
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PostmarkConfig holds the Postmark-wire transport settings.
type PostmarkConfig struct {
	BaseURL     string `yaml:"base_url"`
	ServerToken string `yaml:"server_token"`
}

// RedisConfig holds the optional Redis connection for the dispatch lock.
// An empty Addr disables Redis; the lock falls back to Postgres.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SubscriptionConfig holds subscription lifecycle settings.
type SubscriptionConfig struct {
	// TokenTTLHours bounds confirmation-token lifetime. Zero means tokens
	// never expire.
	TokenTTLHours int `yaml:"token_ttl_hours"`
}

// TokenTTL returns the configured token lifetime.
func (c SubscriptionConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	// DisablePIIRedaction turns off email masking in logs. Leave off
	// anywhere real subscriber data flows.
	DisablePIIRedaction bool `yaml:"disable_pii_redaction"`
}

// Load reads and validates the YAML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = ProviderPostmark
	}
	if cfg.Email.TimeoutSeconds == 0 {
		cfg.Email.TimeoutSeconds = 10
	}
	if cfg.Email.SES.Region == "" {
		cfg.Email.SES.Region = "us-west-2"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Email.Provider != ProviderPostmark && cfg.Email.Provider != ProviderSES {
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}

	return &cfg, nil
}

// LoadFromEnv loads the config file and applies environment overrides.
// A .env file in the working directory is loaded first if present.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if token := os.Getenv("POSTMARK_SERVER_TOKEN"); token != "" {
		cfg.Email.Postmark.ServerToken = token
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.Email.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.Email.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.Email.SES.Region = region
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}

	return cfg, nil
}
