package errors

import (
	stderrors "errors"
	"fmt"

	"mercator-hq/predicate/pkg/expr/ast"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	// ErrArityMismatch indicates two predicates have different parameter counts.
	ErrArityMismatch = stderrors.New("arity mismatch")

	// ErrUnsupportedNodeKind indicates a node kind the rewriter cannot clone.
	ErrUnsupportedNodeKind = stderrors.New("unsupported node kind")

	// ErrDepthExceeded indicates a tree nested deeper than the configured limit.
	ErrDepthExceeded = stderrors.New("expression depth exceeded")
)

// ArityMismatch is returned when combining lambdas whose parameter lists
// differ in length. It is raised before either body is read.
type ArityMismatch struct {
	Left  int // Parameter count of the left predicate
	Right int // Parameter count of the right predicate
}

// Error returns the error message.
func (e *ArityMismatch) Error() string {
	return fmt.Sprintf("arity mismatch: left predicate takes %d parameter(s), right takes %d", e.Left, e.Right)
}

// Is reports whether target is ErrArityMismatch.
func (e *ArityMismatch) Is(target error) bool {
	return target == ErrArityMismatch
}

// UnsupportedNodeKind is returned when a rewrite meets a node it cannot
// reconstruct: a control-flow statement, a kind outside the enumeration,
// or a node whose kind tag does not belong to its variant.
type UnsupportedNodeKind struct {
	Kind   ast.Kind // Offending kind tag
	Reason string   // Why the node was rejected (optional)
}

// Error returns the error message.
func (e *UnsupportedNodeKind) Error() string {
	kind := string(e.Kind)
	if kind == "" {
		kind = "<empty>"
	}
	if e.Reason != "" {
		return fmt.Sprintf("unsupported node kind %q: %s", kind, e.Reason)
	}
	return fmt.Sprintf("unsupported node kind %q", kind)
}

// Is reports whether target is ErrUnsupportedNodeKind.
func (e *UnsupportedNodeKind) Is(target error) bool {
	return target == ErrUnsupportedNodeKind
}

// DepthExceeded is returned when a tree is nested deeper than Limit.
type DepthExceeded struct {
	Limit int
}

// Error returns the error message.
func (e *DepthExceeded) Error() string {
	return fmt.Sprintf("expression nested deeper than %d levels", e.Limit)
}

// Is reports whether target is ErrDepthExceeded.
func (e *DepthExceeded) Is(target error) bool {
	return target == ErrDepthExceeded
}
