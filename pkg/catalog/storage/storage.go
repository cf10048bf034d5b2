package storage

import (
	"fmt"

	"mercator-hq/predicate/pkg/config"
)

// New creates the backend selected by cfg.Backend.
func New(cfg *config.CatalogConfig) (Storage, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "sqlite":
		return NewSQLiteStorage(cfg.SQLite)
	}
	return nil, fmt.Errorf("unknown catalog backend %q", cfg.Backend)
}
