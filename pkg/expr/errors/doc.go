// Package errors defines the errors returned by the expression packages.
//
// Rewrite errors are typed values that also match a sentinel:
//
//	_, err := combine.And(a, b)
//	if errors.Is(err, exprerrors.ErrArityMismatch) { ... }
//
//	var unsupported *exprerrors.UnsupportedNodeKind
//	if errors.As(err, &unsupported) {
//	    fmt.Println("cannot rewrite", unsupported.Kind)
//	}
//
// Document errors (Error, ErrorList) carry a source location and an optional
// suggestion, and are formatted like:
//
//	predicates/positive.yaml:7:9 (body): semantic: Unknown expression kind "greter_than"
//		hint: Did you mean 'greater_than'?
//
// All of them are fatal to the call that returned them. None is retryable.
package errors
