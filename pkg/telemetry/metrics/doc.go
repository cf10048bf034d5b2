// Package metrics exposes Prometheus metrics for predicate combination,
// the predicate catalog and evaluation.
//
//	registry := prometheus.NewRegistry()
//	m := metrics.New(&cfg.Telemetry.Metrics, registry)
//	http.Handle(cfg.Telemetry.Metrics.Path, metrics.Handler(registry))
package metrics
