package eval

import (
	"errors"
	"fmt"

	"mercator-hq/predicate/pkg/expr/ast"
)

// Sentinel errors wrapped by EvaluationError.
var (
	// ErrArgumentCount indicates a call with the wrong number of arguments.
	ErrArgumentCount = errors.New("wrong number of arguments")

	// ErrUnboundParameter indicates a parameter reference with no value in scope.
	ErrUnboundParameter = errors.New("unbound parameter")

	// ErrNilReference indicates a member access or call on a nil receiver.
	ErrNilReference = errors.New("nil reference")

	// ErrTypeMismatch indicates an operand of the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDivideByZero indicates an integer division or modulo by zero.
	ErrDivideByZero = errors.New("division by zero")

	// ErrOverflow indicates a checked operation overflowed.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrIndexOutOfRange indicates an index outside a collection.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrUnknownFunction indicates a call to a function that is not registered.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnknownMember indicates access to a member the value does not have.
	ErrUnknownMember = errors.New("unknown member")

	// ErrNotBoolean indicates a predicate produced a non-boolean value.
	ErrNotBoolean = errors.New("predicate did not produce a boolean")

	// ErrStepLimit indicates evaluation ran longer than the configured limit.
	ErrStepLimit = errors.New("evaluation step limit exceeded")
)

// EvaluationError reports a failure while evaluating a node.
type EvaluationError struct {
	Kind    ast.Kind // Kind of the node being evaluated
	Message string
	Cause   error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluate %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("evaluate %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

func fail(kind ast.Kind, cause error, format string, args ...any) error {
	return &EvaluationError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}
