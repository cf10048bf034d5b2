package config

import "time"

// Default values for configuration fields.
const (
	// Rewrite defaults
	DefaultRewriteMaxDepth = 4096

	// Catalog defaults
	DefaultCatalogBackend       = "memory"
	DefaultCatalogCacheSize     = 256
	DefaultCatalogCacheTTL      = time.Hour
	DefaultCatalogPruneSchedule = "*/15 * * * *"
	DefaultSQLitePath           = "data/predicates.db"
	DefaultSQLiteDriver         = "sqlite"
	DefaultSQLiteMaxOpenConns   = 10
	DefaultSQLiteMaxIdleConns   = 5
	DefaultSQLiteWALMode        = true
	DefaultSQLiteBusyTimeout    = 5 * time.Second

	// Watch defaults
	DefaultWatchEnabled  = false
	DefaultWatchDebounce = 100 * time.Millisecond

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "predicate"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "otlp"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "predicate"
	DefaultOTLPInsecure       = true
	DefaultOTLPTimeout        = 10 * time.Second
)

// DefaultWatchExtensions are the file extensions loaded by the watcher.
var DefaultWatchExtensions = []string{".yaml", ".yml"}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{
		Catalog: CatalogConfig{
			SQLite: SQLiteConfig{WALMode: DefaultSQLiteWALMode},
		},
		Watch: WatchConfig{Enabled: DefaultWatchEnabled},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{
				Enabled: DefaultTracingEnabled,
				OTLP:    OTLPConfig{Insecure: DefaultOTLPInsecure},
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field that has a default.
// Boolean fields cannot be told apart from an explicit false and are only
// defaulted by Default.
func ApplyDefaults(cfg *Config) {
	// Rewrite defaults
	if cfg.Rewrite.MaxDepth == 0 {
		cfg.Rewrite.MaxDepth = DefaultRewriteMaxDepth
	}

	// Catalog defaults
	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = DefaultCatalogBackend
	}
	if cfg.Catalog.CacheSize == 0 {
		cfg.Catalog.CacheSize = DefaultCatalogCacheSize
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = DefaultCatalogCacheTTL
	}
	if cfg.Catalog.PruneSchedule == "" {
		cfg.Catalog.PruneSchedule = DefaultCatalogPruneSchedule
	}
	if cfg.Catalog.SQLite.Path == "" {
		cfg.Catalog.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Catalog.SQLite.Driver == "" {
		cfg.Catalog.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Catalog.SQLite.MaxOpenConns == 0 {
		cfg.Catalog.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Catalog.SQLite.MaxIdleConns == 0 {
		cfg.Catalog.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Catalog.SQLite.BusyTimeout == 0 {
		cfg.Catalog.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = append([]string(nil), DefaultWatchExtensions...)
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}
