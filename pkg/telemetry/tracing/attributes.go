package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on predicate spans.
const (
	AttrPredicate   = "predicate.name"
	AttrPredicates  = "predicate.count"
	AttrArity       = "predicate.arity"
	AttrNodes       = "predicate.clone.nodes"
	AttrSubstituted = "predicate.clone.substituted"
	AttrDepth       = "predicate.clone.depth"
	AttrCacheHit    = "predicate.cache.hit"
	AttrErrorKind   = "predicate.error.kind"
)

// SetCloneAttributes records what a clone did.
func SetCloneAttributes(span trace.Span, arity, nodes, substituted, depth int) {
	span.SetAttributes(
		attribute.Int(AttrArity, arity),
		attribute.Int(AttrNodes, nodes),
		attribute.Int(AttrSubstituted, substituted),
		attribute.Int(AttrDepth, depth),
	)
}

// RecordError marks the span as failed. kind is a short machine-readable
// classification such as "arity_mismatch".
func RecordError(span trace.Span, err error, kind string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if kind != "" {
		span.SetAttributes(attribute.String(AttrErrorKind, kind))
	}
}
