package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/predicate/pkg/config"

	"github.com/google/uuid"

	// Both drivers are linked in; config.SQLiteConfig.Driver picks one.
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names registered with database/sql.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverCgo     = "sqlite3" // github.com/mattn/go-sqlite3, requires cgo
)

// SQLiteStorage implements Storage on a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStorage opens the database at cfg.Path with cfg.Driver (modernc
// when empty), applies the pragmas cfg asks for and migrates the schema.
func NewSQLiteStorage(cfg config.SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		logger: slog.Default().With("component", "catalog.storage.sqlite", "path", cfg.Path),
		now:    time.Now,
	}
	if err := s.migrate(pragmas(cfg)); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("catalog database ready", "driver", cfg.Driver, "wal", cfg.WALMode)
	return s, nil
}

// pragmas lists the connection settings cfg asks for.
func pragmas(cfg config.SQLiteConfig) []string {
	var p []string
	if cfg.WALMode {
		p = append(p, "PRAGMA journal_mode=WAL")
	}
	if ms := cfg.BusyTimeout.Milliseconds(); ms > 0 {
		p = append(p, fmt.Sprintf("PRAGMA busy_timeout=%d", ms))
	}
	return p
}

// migrate applies pragmas, creates missing tables and refuses databases
// written by a different schema version.
func (s *SQLiteStorage) migrate(pragmas []string) error {
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return NewStorageError("sqlite", "pragma", fmt.Errorf("%s: %w", p, err))
		}
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var found int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&found); err != nil {
		return NewStorageError("sqlite", "schema_version", err)
	}
	if found != SchemaVersion {
		return NewStorageError("sqlite", "schema_version",
			fmt.Errorf("database has schema %d, this build reads %d", found, SchemaVersion))
	}
	return nil
}

// Put inserts or replaces the record stored under r.Name.
func (s *SQLiteStorage) Put(ctx context.Context, r *Record) error {
	if err := validate(r); err != nil {
		return NewStorageError("sqlite", "put", err)
	}

	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return NewStorageError("sqlite", "put", err)
	}
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UnixNano()

	_, err = s.db.ExecContext(ctx, upsertPredicate,
		id, r.Name, r.Description, string(tags), r.Source, r.Document, r.Hash, now, now)
	if err != nil {
		return NewStorageError("sqlite", "put", err)
	}
	return nil
}

// Get returns the record stored under name.
func (s *SQLiteStorage) Get(ctx context.Context, name string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectPredicate+"WHERE name = ?;", name)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "get", err)
	}
	return r, nil
}

// List returns the records matching q, ordered by name.
func (s *SQLiteStorage) List(ctx context.Context, q *Query) ([]*Record, error) {
	var (
		where []string
		args  []any
	)
	if q != nil && q.Prefix != "" {
		where = append(where, "substr(name, 1, ?) = ?")
		args = append(args, len(q.Prefix), q.Prefix)
	}

	query := selectPredicate
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + " "
	}
	query += "ORDER BY name;"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	var results []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "list", err)
		}
		// Tags are stored as JSON; filter them here.
		if q.Matches(r) {
			results = append(results, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list", err)
	}
	if results == nil {
		results = []*Record{}
	}
	return paginate(results, q), nil
}

// Delete removes the record stored under name.
func (s *SQLiteStorage) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, deletePredicate, name)
	if err != nil {
		return NewStorageError("sqlite", "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NewStorageError("sqlite", "delete", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countPredicates).Scan(&n); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r                    Record
		description, source  sql.NullString
		tags                 sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&r.ID, &r.Name, &description, &tags, &source, &r.Document, &r.Hash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Description = description.String
	r.Source = source.String
	if tags.Valid && tags.String != "" && tags.String != "null" {
		if err := json.Unmarshal([]byte(tags.String), &r.Tags); err != nil {
			return nil, fmt.Errorf("invalid tags for %q: %w", r.Name, err)
		}
	}
	r.CreatedAt = time.Unix(0, createdAt)
	r.UpdatedAt = time.Unix(0, updatedAt)
	return &r, nil
}
