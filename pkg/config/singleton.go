package config

import "sync/atomic"

var current atomic.Pointer[Config]

// Initialize loads path, applies PREDICATE_* overrides and makes the result
// the process-wide configuration. On error the previous configuration stays
// in place.
func Initialize(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	current.Store(cfg)
	return nil
}

// GetConfig returns the process-wide configuration, falling back to Default
// before Initialize succeeds.
func GetConfig() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	return Default()
}

// SetConfig replaces the process-wide configuration. A nil cfg restores the
// defaults.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}
