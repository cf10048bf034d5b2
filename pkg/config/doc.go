// Package config provides configuration management for the predicate tooling.
//
// Configuration is loaded from YAML with environment variable overrides:
//
//	cfg, err := config.LoadConfig("predicate.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("predicate.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention PREDICATE_SECTION_FIELD:
//
//   - PREDICATE_CATALOG_BACKEND overrides catalog.backend
//   - PREDICATE_CATALOG_SQLITE_DRIVER overrides catalog.sqlite.driver
//   - PREDICATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example
//
//	rewrite:
//	  max_depth: 4096
//	catalog:
//	  backend: sqlite
//	  sqlite:
//	    path: data/predicates.db
//	    driver: sqlite
//	  prune_schedule: "*/15 * * * *"
//	watch:
//	  enabled: true
//	  paths: [predicates/]
//	telemetry:
//	  logging:
//	    level: debug
//	    format: json
package config
