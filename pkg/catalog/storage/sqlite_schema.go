package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the catalog schema.
// Timestamps are stored as Unix nanoseconds so both drivers read them back
// the same way.
const Schema = `
CREATE TABLE IF NOT EXISTS predicates (
    id TEXT NOT NULL UNIQUE,
    name TEXT PRIMARY KEY,
    description TEXT,
    tags TEXT,
    source TEXT,
    document BLOB NOT NULL,
    hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predicates_updated_at ON predicates(updated_at);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const upsertPredicate = `
INSERT INTO predicates (id, name, description, tags, source, document, hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    description = excluded.description,
    tags = excluded.tags,
    source = excluded.source,
    document = excluded.document,
    hash = excluded.hash,
    updated_at = excluded.updated_at;
`

const selectPredicate = `
SELECT id, name, description, tags, source, document, hash, created_at, updated_at
FROM predicates
`

const deletePredicate = `DELETE FROM predicates WHERE name = ?;`

const countPredicates = `SELECT COUNT(*) FROM predicates;`
