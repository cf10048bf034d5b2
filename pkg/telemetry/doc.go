// Package telemetry groups the observability packages used by the combiner,
// the catalog and the predicate command.
//
// # Components
//
//   - logging: log/slog loggers built from configuration
//   - metrics: Prometheus counters, gauges and histograms
//   - tracing: OpenTelemetry spans around combination and catalog composition
//
// # Usage
//
//	cfg := config.GetConfig()
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//		return err
//	}
//
//	registry := prometheus.NewRegistry()
//	m := metrics.New(&cfg.Telemetry.Metrics, registry)
//
//	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(ctx)
//
//	cb := combine.NewCombiner(
//		combine.WithLogger(logging.WithComponent(logger, "combine")),
//		combine.WithMetrics(m),
//		combine.WithTracer(tracer),
//	)
//
// Metrics and tracers are nil-safe: a nil *metrics.Metrics records nothing,
// and tracing.Noop returns a tracer whose spans are discarded.
package telemetry
