package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// Fields absent from the file keep their defaults. The result is validated.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration on top of the defaults.
// Unknown keys are rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention PREDICATE_SECTION_FIELD (e.g., PREDICATE_CATALOG_BACKEND) and
// always take precedence over the file.
//
// An empty path skips the file and starts from the defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Rewrite overrides
	envInt("PREDICATE_REWRITE_MAX_DEPTH", &cfg.Rewrite.MaxDepth)

	// Catalog overrides
	envString("PREDICATE_CATALOG_BACKEND", &cfg.Catalog.Backend)
	envInt("PREDICATE_CATALOG_CACHE_SIZE", &cfg.Catalog.CacheSize)
	envDuration("PREDICATE_CATALOG_CACHE_TTL", &cfg.Catalog.CacheTTL)
	envString("PREDICATE_CATALOG_PRUNE_SCHEDULE", &cfg.Catalog.PruneSchedule)
	envString("PREDICATE_CATALOG_SQLITE_PATH", &cfg.Catalog.SQLite.Path)
	envString("PREDICATE_CATALOG_SQLITE_DRIVER", &cfg.Catalog.SQLite.Driver)
	envInt("PREDICATE_CATALOG_SQLITE_MAX_OPEN_CONNS", &cfg.Catalog.SQLite.MaxOpenConns)
	envBool("PREDICATE_CATALOG_SQLITE_WAL_MODE", &cfg.Catalog.SQLite.WALMode)

	// Watch overrides
	envBool("PREDICATE_WATCH_ENABLED", &cfg.Watch.Enabled)
	envDuration("PREDICATE_WATCH_DEBOUNCE", &cfg.Watch.Debounce)
	if val := os.Getenv("PREDICATE_WATCH_PATHS"); val != "" {
		cfg.Watch.Paths = splitList(val)
	}

	// Telemetry overrides
	envString("PREDICATE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("PREDICATE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("PREDICATE_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("PREDICATE_TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envBool("PREDICATE_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("PREDICATE_TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("PREDICATE_TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("PREDICATE_TELEMETRY_TRACING_EXPORTER", &cfg.Telemetry.Tracing.Exporter)
	envString("PREDICATE_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
}

// Malformed values are ignored and the configured value is kept.

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
