package config

import "time"

// Config is the content of a predicate.yaml file. Defaults for every key
// are in defaults.go.
type Config struct {
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Watch     WatchConfig     `yaml:"watch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RewriteConfig bounds the substituting cloner.
type RewriteConfig struct {
	// MaxDepth is the deepest nesting a cloned tree may reach. Negative
	// means unlimited.
	MaxDepth int `yaml:"max_depth"`
}

// CatalogConfig configures the named predicate catalog and its composite
// cache.
type CatalogConfig struct {
	Backend string       `yaml:"backend"` // memory or sqlite
	SQLite  SQLiteConfig `yaml:"sqlite"`

	CacheSize int           `yaml:"cache_size"` // composites kept in memory
	CacheTTL  time.Duration `yaml:"cache_ttl"`  // idle time before a composite is pruned

	// PruneSchedule is a standard five-field cron expression. Empty turns
	// pruning off.
	PruneSchedule string `yaml:"prune_schedule"`
}

// SQLiteConfig configures the sqlite catalog backend.
type SQLiteConfig struct {
	Path         string        `yaml:"path"`
	Driver       string        `yaml:"driver"` // "sqlite" is modernc (pure Go), "sqlite3" is mattn (cgo)
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	WALMode      bool          `yaml:"wal_mode"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
}

// WatchConfig configures reloading of predicate files.
type WatchConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Paths      []string      `yaml:"paths"`      // files or directories
	Debounce   time.Duration `yaml:"debounce"`   // quiet period before a burst of events is reloaded
	Extensions []string      `yaml:"extensions"` // with the leading dot
}

type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`  // debug, info, warn or error
	Format    string `yaml:"format"` // text or json
	AddSource bool   `yaml:"add_source"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// ListenAddress is where the watch command serves Path. Empty means
	// metrics are recorded but not served.
	ListenAddress string `yaml:"listen_address"`
	Path          string `yaml:"path"`
	Namespace     string `yaml:"namespace"`
	Subsystem     string `yaml:"subsystem"`
}

type TracingConfig struct {
	Enabled     bool       `yaml:"enabled"`
	Sampler     string     `yaml:"sampler"`      // always, never or ratio
	SampleRatio float64    `yaml:"sample_ratio"` // used by the ratio sampler
	Exporter    string     `yaml:"exporter"`     // otlp or none
	Endpoint    string     `yaml:"endpoint"`     // OTLP gRPC collector, host:port
	ServiceName string     `yaml:"service_name"`
	OTLP        OTLPConfig `yaml:"otlp"`
}

type OTLPConfig struct {
	Insecure bool          `yaml:"insecure"` // plaintext gRPC
	Timeout  time.Duration `yaml:"timeout"`
}
