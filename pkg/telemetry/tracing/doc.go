// Package tracing wraps OpenTelemetry for spans around predicate combination
// and catalog composition. Spans are exported over OTLP/gRPC when enabled;
// otherwise a no-op tracer is used.
package tracing
