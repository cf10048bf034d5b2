package metrics

import (
	"net/http"
	"time"

	"mercator-hq/predicate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels shared by the counters below.
const (
	ResultOK              = "ok"
	ResultArityMismatch   = "arity_mismatch"
	ResultUnsupportedKind = "unsupported_kind"
	ResultDepthExceeded   = "depth_exceeded"
	ResultError           = "error"
)

// Metrics records predicate combination, catalog and evaluation metrics.
//
// Metrics:
//   - predicate_combinations_total: Combinations by result
//   - predicate_combine_duration_seconds: Time spent combining two predicates
//   - predicate_cloned_nodes: Nodes reconstructed per clone
//   - predicate_substitutions_total: Parameter references rewired
//   - predicate_catalog_operations_total: Catalog operations by operation and result
//   - predicate_catalog_entries: Predicates currently stored
//   - predicate_composite_cache_total: Composite cache lookups by result (hit/miss)
//   - predicate_composite_cache_entries: Composites currently cached
//   - predicate_reloads_total: Watcher reloads by result
//   - predicate_evaluations_total: Evaluations by outcome (true/false/error)
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled bool

	combinationsTotal *prometheus.CounterVec
	combineDuration   prometheus.Histogram
	clonedNodes       prometheus.Histogram
	substitutions     prometheus.Counter

	catalogOperations *prometheus.CounterVec
	catalogEntries    prometheus.Gauge
	cacheLookups      *prometheus.CounterVec
	cacheEntries      prometheus.Gauge

	reloadsTotal     *prometheus.CounterVec
	evaluationsTotal *prometheus.CounterVec
}

// New creates and registers the metrics on registry.
// If registry is nil a fresh registry is created.
func New(cfg *config.MetricsConfig, registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	namespace, subsystem := cfg.Namespace, cfg.Subsystem
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	m := &Metrics{
		enabled: cfg.Enabled,

		combinationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "combinations_total",
				Help:      "Total number of predicate combinations",
			},
			[]string{"result"},
		),

		combineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "combine_duration_seconds",
				Help:      "Duration of predicate combination in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		clonedNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cloned_nodes",
				Help:      "Number of nodes reconstructed per clone",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 to 16K nodes
			},
		),

		substitutions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "substitutions_total",
				Help:      "Total number of parameter references rewired",
			},
		),

		catalogOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "catalog_operations_total",
				Help:      "Total number of catalog operations",
			},
			[]string{"operation", "result"},
		),

		catalogEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "catalog_entries",
				Help:      "Number of predicates in the catalog",
			},
		),

		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "composite_cache_total",
				Help:      "Composite cache lookups",
			},
			[]string{"result"},
		),

		cacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "composite_cache_entries",
				Help:      "Number of cached composite predicates",
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reloads_total",
				Help:      "Total number of predicate file reloads",
			},
			[]string{"result"},
		),

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of predicate evaluations",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.combinationsTotal,
		m.combineDuration,
		m.clonedNodes,
		m.substitutions,
		m.catalogOperations,
		m.catalogEntries,
		m.cacheLookups,
		m.cacheEntries,
		m.reloadsTotal,
		m.evaluationsTotal,
	)

	return m
}

func (m *Metrics) on() bool { return m != nil && m.enabled }

// RecordCombine records one combination.
//
// Parameters:
//   - result: One of the Result* labels
//   - duration: Time taken to combine
//   - nodes: Nodes reconstructed while cloning the right predicate
//   - substituted: Parameter references rewired
func (m *Metrics) RecordCombine(result string, duration time.Duration, nodes, substituted int) {
	if !m.on() {
		return
	}
	m.combinationsTotal.WithLabelValues(result).Inc()
	m.combineDuration.Observe(duration.Seconds())
	if result == ResultOK {
		m.clonedNodes.Observe(float64(nodes))
		m.substitutions.Add(float64(substituted))
	}
}

// RecordCatalogOperation records a catalog operation ("put", "get", "delete", "compose", ...).
func (m *Metrics) RecordCatalogOperation(operation string, err error) {
	if !m.on() {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.catalogOperations.WithLabelValues(operation, result).Inc()
}

// SetCatalogEntries sets the number of stored predicates.
func (m *Metrics) SetCatalogEntries(n int) {
	if !m.on() {
		return
	}
	m.catalogEntries.Set(float64(n))
}

// RecordCacheLookup records a composite cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if !m.on() {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// SetCacheEntries sets the number of cached composites.
func (m *Metrics) SetCacheEntries(n int) {
	if !m.on() {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// RecordReload records a watcher reload.
func (m *Metrics) RecordReload(err error) {
	if !m.on() {
		return
	}
	if err != nil {
		m.reloadsTotal.WithLabelValues(ResultError).Inc()
		return
	}
	m.reloadsTotal.WithLabelValues(ResultOK).Inc()
}

// RecordEvaluation records a predicate evaluation outcome.
func (m *Metrics) RecordEvaluation(value bool, err error) {
	if !m.on() {
		return
	}
	switch {
	case err != nil:
		m.evaluationsTotal.WithLabelValues("error").Inc()
	case value:
		m.evaluationsTotal.WithLabelValues("true").Inc()
	default:
		m.evaluationsTotal.WithLabelValues("false").Inc()
	}
}

// Handler returns an HTTP handler exposing the metrics in registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
