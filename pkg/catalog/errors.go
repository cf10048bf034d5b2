package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidName indicates a predicate was stored without a usable name.
	ErrInvalidName = errors.New("invalid predicate name")

	// ErrInvalidDocument indicates a document without a predicate body.
	ErrInvalidDocument = errors.New("invalid predicate document")
)

// CatalogError is returned by catalog operations. It names the operation
// and predicate involved and wraps the underlying cause.
type CatalogError struct {
	Operation string // "put", "get", "delete", "compose", ...
	Name      string // Predicate name, empty when not applicable
	Cause     error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("catalog %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("catalog %s %q: %v", e.Operation, e.Name, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *CatalogError) Unwrap() error {
	return e.Cause
}

func newError(op, name string, cause error) error {
	return &CatalogError{Operation: op, Name: name, Cause: cause}
}
