// Package storage persists catalog records.
//
// Two backends implement Storage:
//
//   - MemoryStorage keeps records in a map. It is the default and is meant
//     for tests and short-lived processes.
//   - SQLiteStorage keeps records in a SQLite database. The driver is
//     selectable: "sqlite" (modernc.org/sqlite, pure Go) or "sqlite3"
//     (github.com/mattn/go-sqlite3, cgo).
//
// Use New to build the backend named in a config.CatalogConfig:
//
//	store, err := storage.New(&cfg.Catalog)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage
