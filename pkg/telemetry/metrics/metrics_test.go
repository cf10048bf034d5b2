package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/predicate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "predicate",
	}
}

func TestMetrics_RecordCombine(t *testing.T) {
	m := New(testConfig(), prometheus.NewRegistry())

	m.RecordCombine(ResultOK, time.Millisecond, 7, 2)
	m.RecordCombine(ResultOK, time.Millisecond, 3, 1)
	m.RecordCombine(ResultArityMismatch, time.Microsecond, 0, 0)

	if got := testutil.ToFloat64(m.combinationsTotal.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("combinations{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.combinationsTotal.WithLabelValues(ResultArityMismatch)); got != 1 {
		t.Errorf("combinations{arity_mismatch} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.substitutions); got != 3 {
		t.Errorf("substitutions = %v, want 3", got)
	}
}

func TestMetrics_Catalog(t *testing.T) {
	m := New(testConfig(), prometheus.NewRegistry())

	m.RecordCatalogOperation("put", nil)
	m.RecordCatalogOperation("put", errors.New("boom"))
	m.SetCatalogEntries(4)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	if got := testutil.ToFloat64(m.catalogOperations.WithLabelValues("put", ResultError)); got != 1 {
		t.Errorf("catalog_operations{put,error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.catalogEntries); got != 4 {
		t.Errorf("catalog_entries = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("composite_cache{miss} = %v, want 2", got)
	}
}

func TestMetrics_DisabledAndNil(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	m := New(cfg, prometheus.NewRegistry())
	m.RecordEvaluation(true, nil)
	if got := testutil.ToFloat64(m.evaluationsTotal.WithLabelValues("true")); got != 0 {
		t.Errorf("evaluations{true} = %v, want 0 when disabled", got)
	}

	var none *Metrics
	none.RecordCombine(ResultOK, time.Second, 1, 1)
	none.RecordReload(nil)
	none.SetCacheEntries(3)
}

func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(testConfig(), registry)
	m.RecordReload(nil)

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_predicate_reloads_total") {
		t.Errorf("body missing reloads metric:\n%s", rec.Body.String())
	}
}
