package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrNotFound is returned when no predicate is stored under a name.
var ErrNotFound = errors.New("predicate not found")

// Record is a stored predicate document.
type Record struct {
	ID          string    // Stable identifier assigned on first store
	Name        string    // Unique catalog name
	Description string    // Free-form description
	Tags        []string  // Labels used for filtering
	Source      string    // File the document was loaded from, if any
	Document    []byte    // Encoded predicate document (YAML)
	Hash        string    // SHA-256 of Document, hex encoded
	CreatedAt   time.Time // First store
	UpdatedAt   time.Time // Last store
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.Document = append([]byte(nil), r.Document...)
	return &c
}

// Query filters a listing. The zero value matches every record.
type Query struct {
	Prefix string // Name prefix
	Tag    string // Records carrying this tag
	Limit  int    // Max records to return (0 for all)
	Offset int    // Skip N records
}

// Matches reports whether r satisfies the filters of q.
func (q *Query) Matches(r *Record) bool {
	if q == nil {
		return true
	}
	if q.Prefix != "" && !strings.HasPrefix(r.Name, q.Prefix) {
		return false
	}
	return q.Tag == "" || slices.Contains(r.Tags, q.Tag)
}

// Storage persists predicate records by name.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Put inserts or replaces the record stored under r.Name.
	// ID and CreatedAt of an existing record are preserved.
	Put(ctx context.Context, r *Record) error

	// Get returns the record stored under name, or ErrNotFound.
	Get(ctx context.Context, name string) (*Record, error)

	// List returns the records matching q, ordered by name.
	List(ctx context.Context, q *Query) ([]*Record, error)

	// Delete removes the record stored under name, or returns ErrNotFound.
	Delete(ctx context.Context, name string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the backend.
	Close() error
}

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("memory", "sqlite")
	Operation string // Operation that failed ("put", "get", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// paginate applies Offset and Limit to a sorted result.
func paginate(records []*Record, q *Query) []*Record {
	if q == nil {
		return records
	}
	if q.Offset >= len(records) {
		return []*Record{}
	}
	records = records[q.Offset:]
	if q.Limit > 0 && q.Limit < len(records) {
		records = records[:q.Limit]
	}
	return records
}

func validate(r *Record) error {
	switch {
	case r == nil:
		return errors.New("record is nil")
	case r.Name == "":
		return errors.New("record name is empty")
	case len(r.Document) == 0:
		return fmt.Errorf("record %q has no document", r.Name)
	}
	return nil
}
