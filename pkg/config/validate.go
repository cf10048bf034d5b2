package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// maxRewriteDepth caps rewrite.max_depth.
const maxRewriteDepth = 1 << 20

// FieldError is a problem with one configuration key.
type FieldError struct {
	Field   string // dotted key, e.g. "catalog.backend"
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError lists every invalid key of a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// validator accumulates field errors.
type validator struct {
	errs []FieldError
}

// require records a FieldError for field unless ok holds.
func (v *validator) require(ok bool, field, format string, args ...any) {
	if !ok {
		v.errs = append(v.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
}

// oneOf records a FieldError unless value is one of choices.
func (v *validator) oneOf(field, value string, choices ...string) {
	v.require(slices.Contains(choices, value), field,
		"%q is not one of %s", value, strings.Join(choices, ", "))
}

// Validate checks every section of cfg and reports all problems at once as
// a ValidationError.
func Validate(cfg *Config) error {
	v := &validator{}
	v.rewrite(&cfg.Rewrite)
	v.catalog(&cfg.Catalog)
	v.watch(&cfg.Watch)
	v.telemetry(&cfg.Telemetry)
	if len(v.errs) == 0 {
		return nil
	}
	return ValidationError{Errors: v.errs}
}

func (v *validator) rewrite(cfg *RewriteConfig) {
	v.require(cfg.MaxDepth <= maxRewriteDepth, "rewrite.max_depth",
		"%d exceeds the limit of %d", cfg.MaxDepth, maxRewriteDepth)
}

func (v *validator) catalog(cfg *CatalogConfig) {
	v.oneOf("catalog.backend", cfg.Backend, "memory", "sqlite")
	if cfg.Backend == "sqlite" {
		v.require(cfg.SQLite.Path != "", "catalog.sqlite.path", "required for the sqlite backend")
		v.oneOf("catalog.sqlite.driver", cfg.SQLite.Driver, "sqlite", "sqlite3")
		v.require(cfg.SQLite.MaxOpenConns >= 0 && cfg.SQLite.MaxIdleConns >= 0,
			"catalog.sqlite", "connection limits must not be negative")
	}
	v.require(cfg.CacheSize >= 0, "catalog.cache_size", "must not be negative")
	v.require(cfg.CacheTTL >= 0, "catalog.cache_ttl", "must not be negative")
	if cfg.PruneSchedule != "" {
		_, err := cron.ParseStandard(cfg.PruneSchedule)
		v.require(err == nil, "catalog.prune_schedule", "invalid cron expression: %v", err)
	}
}

func (v *validator) watch(cfg *WatchConfig) {
	v.require(!cfg.Enabled || len(cfg.Paths) > 0, "watch.paths", "at least one path is required when watching is enabled")
	v.require(cfg.Debounce >= 0, "watch.debounce", "must not be negative")
	for _, ext := range cfg.Extensions {
		v.require(strings.HasPrefix(ext, "."), "watch.extensions", "%q does not start with a dot", ext)
	}
}

func (v *validator) telemetry(cfg *TelemetryConfig) {
	v.oneOf("telemetry.logging.level", strings.ToLower(cfg.Logging.Level), "debug", "info", "warn", "warning", "error")
	v.oneOf("telemetry.logging.format", cfg.Logging.Format, "json", "text")
	v.require(!cfg.Metrics.Enabled || strings.HasPrefix(cfg.Metrics.Path, "/"),
		"telemetry.metrics.path", "%q does not start with /", cfg.Metrics.Path)

	v.oneOf("telemetry.tracing.sampler", cfg.Tracing.Sampler, "always", "never", "ratio")
	if cfg.Tracing.Sampler == "ratio" {
		v.require(cfg.Tracing.SampleRatio >= 0 && cfg.Tracing.SampleRatio <= 1,
			"telemetry.tracing.sample_ratio", "%g outside [0, 1]", cfg.Tracing.SampleRatio)
	}
	v.oneOf("telemetry.tracing.exporter", cfg.Tracing.Exporter, "otlp", "none")
	v.require(!cfg.Tracing.Enabled || cfg.Tracing.Exporter != "otlp" || cfg.Tracing.Endpoint != "",
		"telemetry.tracing.endpoint", "required for the otlp exporter")
}
