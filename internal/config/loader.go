package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "depoflow.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "DEPOFLOW_PORT")
	setString(&cfg.Server.CORSOrigin, "DEPOFLOW_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "DEPOFLOW_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "DEPOFLOW_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "DEPOFLOW_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "DEPOFLOW_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "DEPOFLOW_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Auth.JWTSecret, "DEPOFLOW_JWT_SECRET")
	setStringSlice(&cfg.Auth.MasterEmails, "DEPOFLOW_MASTER_EMAILS")
	setString(&cfg.Blob.Bucket, "DEPOFLOW_BLOB_BUCKET")
	setDuration(&cfg.Blob.URLTTL, "DEPOFLOW_BLOB_URL_TTL")
	setString(&cfg.Blob.GoogleAccess, "DEPOFLOW_BLOB_GOOGLE_ACCESS_ID")
	setString(&cfg.Blob.PrivateKey, "DEPOFLOW_BLOB_PRIVATE_KEY_FILE")
	setInt(&cfg.Jobs.MaxRetries, "DEPOFLOW_JOB_MAX_RETRIES")
	setDuration(&cfg.Jobs.RetryBase, "DEPOFLOW_JOB_RETRY_BASE")
	setDuration(&cfg.Jobs.RetryMax, "DEPOFLOW_JOB_RETRY_MAX")
	setInt64(&cfg.Stats.CacheSizeMB, "DEPOFLOW_STATS_CACHE_SIZE_MB")
	setDuration(&cfg.Stats.CacheTTL, "DEPOFLOW_STATS_CACHE_TTL")
	setString(&cfg.Logging.Level, "DEPOFLOW_LOG_LEVEL")
	setString(&cfg.Logging.Service, "DEPOFLOW_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "DEPOFLOW_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "DEPOFLOW_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "DEPOFLOW_BREAKER_TIMEOUT")
	setString(&cfg.Otel.Endpoint, "DEPOFLOW_OTEL_ENDPOINT")
	setBool(&cfg.Otel.Enabled, "DEPOFLOW_OTEL_ENABLED")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Jobs.MaxRetries < 0 {
		return errors.New("jobs.max_retries must be >= 0")
	}
	if cfg.Jobs.RetryBase <= 0 || cfg.Jobs.RetryMax < cfg.Jobs.RetryBase {
		return errors.New("jobs.retry_base must be positive and <= jobs.retry_max")
	}
	if len(cfg.Intake.AllowedMimeTypes) == 0 {
		return errors.New("intake.allowed_mime_types must not be empty")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
