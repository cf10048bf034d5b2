package errors

import (
	"strconv"
	"strings"

	"mercator-hq/predicate/pkg/expr/ast"
)

// ErrorType says which stage of reading a predicate document failed.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // not valid YAML
	ErrorTypeStructural ErrorType = "structural" // missing, unknown or mistyped keys
	ErrorTypeSemantic   ErrorType = "semantic"   // unknown kind, duplicate or unbound parameter
	ErrorTypeIO         ErrorType = "io"
)

// Error is a problem found at one place in a predicate document.
type Error struct {
	Type       ErrorType
	Message    string
	Location   ast.Location
	Suggestion string
}

// Error formats e the way compilers do, location first:
//
//	p.yaml:3:5 (body.left): semantic: Unknown expression kind "greter_than"
//		hint: Did you mean 'greater_than'?
func (e *Error) Error() string {
	var sb strings.Builder
	e.writeTo(&sb)
	return sb.String()
}

func (e *Error) writeTo(sb *strings.Builder) {
	if e.Location.IsValid() || e.Location.Path != "" {
		sb.WriteString(e.Location.String())
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Type))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Suggestion != "" {
		sb.WriteString("\n\thint: ")
		sb.WriteString(e.Suggestion)
	}
}

// ErrorList collects every problem in a document so they can be reported
// together.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList returns an empty list.
func NewErrorList() *ErrorList {
	return &ErrorList{}
}

// Add records a problem of type typ at loc. At most one suggestion is kept.
func (el *ErrorList) Add(typ ErrorType, loc ast.Location, message string, suggestion ...string) {
	e := &Error{Type: typ, Message: message, Location: loc}
	if len(suggestion) > 0 {
		e.Suggestion = suggestion[0]
	}
	el.Errors = append(el.Errors, e)
}

// Len returns the number of recorded problems.
func (el *ErrorList) Len() int {
	return len(el.Errors)
}

// Error prints one problem per line group, followed by a count when there
// is more than one.
func (el *ErrorList) Error() string {
	var sb strings.Builder
	for i, e := range el.Errors {
		if i > 0 {
			sb.WriteByte('\n')
		}
		e.writeTo(&sb)
	}
	if n := len(el.Errors); n > 1 {
		sb.WriteString("\n(")
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString(" errors)")
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (el *ErrorList) Unwrap() []error {
	errs := make([]error, len(el.Errors))
	for i, e := range el.Errors {
		errs[i] = e
	}
	return errs
}

// Err returns el as an error, or nil when nothing was recorded.
func (el *ErrorList) Err() error {
	if len(el.Errors) == 0 {
		return nil
	}
	return el
}

// ByType returns the recorded problems of type typ.
func (el *ErrorList) ByType(typ ErrorType) []*Error {
	var out []*Error
	for _, e := range el.Errors {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
