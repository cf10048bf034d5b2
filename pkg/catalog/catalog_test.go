package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/predicate/pkg/catalog/storage"
	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/expr/ast"
	"mercator-hq/predicate/pkg/expr/combine"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
	"mercator-hq/predicate/pkg/expr/eval"
	"mercator-hq/predicate/pkg/expr/parser"
	"mercator-hq/predicate/pkg/telemetry/logging"
	"mercator-hq/predicate/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const positiveDoc = `
name: positive
description: x is strictly positive
tags: [sign]
parameters:
  - {name: x, type: int}
body:
  kind: greater_than
  left: {kind: parameter, name: x}
  right: {kind: constant, value: 0, type: int}
`

const smallDoc = `
name: small
tags: [range]
parameters:
  - {name: n, type: int}
body:
  kind: less_than
  left: {kind: parameter, name: n}
  right: {kind: constant, value: 10, type: int}
`

const pairDoc = `
name: ordered
parameters:
  - {name: a, type: int}
  - {name: b, type: int}
body:
  kind: less_than
  left: {kind: parameter, name: a}
  right: {kind: parameter, name: b}
`

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCatalog(t *testing.T, opts ...Option) (*Catalog, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithLogger(logging.Discard()), withClock(clk.Now)}, opts...)
	c := New(storage.NewMemoryStorage(), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, clk
}

func mustDoc(t *testing.T, src string) *parser.Document {
	t.Helper()
	doc, err := parser.ParseBytes([]byte(src), "test.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	return doc
}

func mustPut(t *testing.T, c *Catalog, docs ...string) {
	t.Helper()
	for _, src := range docs {
		if _, err := c.Put(context.Background(), "", mustDoc(t, src)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
}

func TestCatalog_PutGet(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	r, err := c.Put(ctx, "", mustDoc(t, positiveDoc))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if r.Name != "positive" || r.ID == "" || len(r.Hash) != 64 {
		t.Errorf("Put() record = %+v", r)
	}

	entry, err := c.Get(ctx, "positive")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got, want := ast.Format(entry.Document.Lambda), "x => x > 0"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
	if entry.Document.Description != "x is strictly positive" {
		t.Errorf("Description = %q", entry.Document.Description)
	}
	if entry.Record.Hash != r.Hash {
		t.Errorf("Hash = %q, want %q", entry.Record.Hash, r.Hash)
	}
}

func TestCatalog_PutRenames(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	if _, err := c.Put(ctx, "greater-than-zero", mustDoc(t, positiveDoc)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	entry, err := c.Get(ctx, "greater-than-zero")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.Document.Name != "greater-than-zero" {
		t.Errorf("Document.Name = %q, want greater-than-zero", entry.Document.Name)
	}
	if _, err := c.Get(ctx, "positive"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(positive) error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_PutErrors(t *testing.T) {
	c, _ := newTestCatalog(t)
	unnamed := mustDoc(t, positiveDoc)
	unnamed.Name = ""

	tests := []struct {
		name    string
		key     string
		doc     *parser.Document
		wantErr error
	}{
		{"nil document", "p", nil, ErrInvalidDocument},
		{"no lambda", "p", &parser.Document{Name: "p"}, ErrInvalidDocument},
		{"no name", "", unnamed, ErrInvalidName},
		{"blank name", "  ", unnamed, ErrInvalidName},
		{"newline in name", "a\nb", unnamed, ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Put(context.Background(), tt.key, tt.doc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Put() error = %v, want %v", err, tt.wantErr)
			}
			var ce *CatalogError
			if !errors.As(err, &ce) || ce.Operation != "put" {
				t.Errorf("Put() error = %#v, want *CatalogError for put", err)
			}
		})
	}
}

func TestCatalog_PutRejectsUnsupportedNodes(t *testing.T) {
	c, _ := newTestCatalog(t)
	x := ast.NewParameter("x", ast.TypeInt)
	doc := &parser.Document{
		Name:   "broken",
		Lambda: ast.NewLambda(ast.AndAlso(
			ast.GreaterThan(x, ast.Const(0, ast.TypeInt)),
			&ast.Statement{Op: ast.KindThrow, ResultType: ast.TypeBool},
		), x),
	}

	if _, err := c.Put(context.Background(), "", doc); !errors.Is(err, exprerrors.ErrUnsupportedNodeKind) {
		t.Fatalf("Put() error = %v, want ErrUnsupportedNodeKind", err)
	}
	if n, _ := c.store.Count(context.Background()); n != 0 {
		t.Errorf("Count() = %d after rejected put, want 0", n)
	}
}

func TestCatalog_PutFile(t *testing.T) {
	c, _ := newTestCatalog(t)
	path := filepath.Join(t.TempDir(), "no_name.yaml")
	body := strings.Replace(positiveDoc, "name: positive\n", "", 1)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := c.PutFile(context.Background(), path)
	if err != nil {
		t.Fatalf("PutFile() error = %v", err)
	}
	if r.Name != "no_name" || r.Source != path {
		t.Errorf("record = %q from %q, want no_name from %q", r.Name, r.Source, path)
	}

	if _, err := c.PutFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("PutFile(missing) expected error")
	}
}

func TestCatalog_ListDelete(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()
	mustPut(t, c, positiveDoc, smallDoc, pairDoc)

	records, err := c.List(ctx, &storage.Query{Tag: "range"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 || records[0].Name != "small" {
		t.Errorf("List(tag=range) = %v", records)
	}

	if err := c.Delete(ctx, "small"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Delete(ctx, "small"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	records, _ = c.List(ctx, nil)
	if len(records) != 2 {
		t.Errorf("len(List()) = %d, want 2", len(records))
	}
}

func TestCatalog_Compose(t *testing.T) {
	c, _ := newTestCatalog(t)
	mustPut(t, c, positiveDoc, smallDoc)

	lambda, err := c.Compose(context.Background(), "positive", "small")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if got, want := ast.Format(lambda), "x => x > 0 && x < 10"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}

	prog, err := eval.Compile(lambda)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	tests := []struct {
		input int
		want  bool
	}{
		{3, true},
		{-1, false},
		{15, false},
		{10, false},
		{0, false},
	}
	for _, tt := range tests {
		got, err := prog.Test(context.Background(), tt.input)
		if err != nil {
			t.Fatalf("Test(%d) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Test(%d) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCatalog_ComposeErrors(t *testing.T) {
	c, _ := newTestCatalog(t)
	mustPut(t, c, positiveDoc, pairDoc)

	tests := []struct {
		name    string
		names   []string
		wantErr error
	}{
		{"no names", nil, combine.ErrNoPredicates},
		{"unknown predicate", []string{"positive", "missing"}, storage.ErrNotFound},
		{"arity mismatch", []string{"positive", "ordered"}, exprerrors.ErrArityMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Compose(context.Background(), tt.names...); !errors.Is(err, tt.wantErr) {
				t.Errorf("Compose() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if n := c.CacheLen(); n != 0 {
		t.Errorf("CacheLen() = %d after failed composes, want 0", n)
	}
}

func TestCatalog_ComposeCache(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(&config.MetricsConfig{Enabled: true}, registry)
	c, _ := newTestCatalog(t, WithMetrics(m))
	ctx := context.Background()
	mustPut(t, c, positiveDoc, smallDoc)

	first, err := c.Compose(ctx, "positive", "small")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	second, err := c.Compose(ctx, "positive", "small")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if first != second {
		t.Error("second Compose() did not reuse the cached composite")
	}
	if n := c.CacheLen(); n != 1 {
		t.Errorf("CacheLen() = %d, want 1", n)
	}

	want := `
# HELP predicate_composite_cache_total Composite cache lookups
# TYPE predicate_composite_cache_total counter
predicate_composite_cache_total{result="hit"} 1
predicate_composite_cache_total{result="miss"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(want), "predicate_composite_cache_total"); err != nil {
		t.Error(err)
	}

	// Replacing a part drops every composite built from it.
	replaced := strings.Replace(smallDoc, "value: 10", "value: 5", 1)
	mustPut(t, c, replaced)
	if n := c.CacheLen(); n != 0 {
		t.Errorf("CacheLen() after replace = %d, want 0", n)
	}
	third, err := c.Compose(ctx, "positive", "small")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if got, want := ast.Format(third), "x => x > 0 && x < 5"; got != want {
		t.Errorf("Format() after replace = %q, want %q", got, want)
	}

	if err := c.Delete(ctx, "positive"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n := c.CacheLen(); n != 0 {
		t.Errorf("CacheLen() after delete = %d, want 0", n)
	}
}

func TestCatalog_ComposeOrderMatters(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()
	mustPut(t, c, positiveDoc, smallDoc)

	ab, err := c.Compose(ctx, "positive", "small")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	ba, err := c.Compose(ctx, "small", "positive")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if got, want := ast.Format(ba), "n => n < 10 && n > 0"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
	if ab == ba || c.CacheLen() != 2 {
		t.Errorf("CacheLen() = %d, want two distinct composites", c.CacheLen())
	}
}

func TestCatalog_CacheSize(t *testing.T) {
	c, _ := newTestCatalog(t, WithCacheSize(1))
	ctx := context.Background()
	mustPut(t, c, positiveDoc, smallDoc)

	for _, names := range [][]string{{"positive", "small"}, {"small", "positive"}} {
		if _, err := c.Compose(ctx, names...); err != nil {
			t.Fatalf("Compose(%v) error = %v", names, err)
		}
	}
	if n := c.CacheLen(); n != 1 {
		t.Errorf("CacheLen() = %d, want 1", n)
	}
}

func TestCatalog_Prune(t *testing.T) {
	c, clk := newTestCatalog(t)
	ctx := context.Background()
	mustPut(t, c, positiveDoc, smallDoc)

	if _, err := c.Compose(ctx, "positive", "small"); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	clk.Advance(30 * time.Minute)
	if _, err := c.Compose(ctx, "small", "positive"); err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	clk.Advance(45 * time.Minute)

	if n := c.Prune(time.Hour); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if n := c.CacheLen(); n != 1 {
		t.Errorf("CacheLen() = %d, want 1", n)
	}
	if n := c.Prune(time.Hour); n != 0 {
		t.Errorf("second Prune() = %d, want 0", n)
	}
}

func TestOpen(t *testing.T) {
	cfg := &config.CatalogConfig{Backend: "memory", CacheSize: 4}
	c, err := Open(cfg, WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()
	if c.cacheSize != 4 {
		t.Errorf("cacheSize = %d, want 4", c.cacheSize)
	}

	if _, err := Open(nil); err == nil {
		t.Error("Open(nil) expected error")
	}
	if _, err := Open(&config.CatalogConfig{Backend: "etcd"}); err == nil {
		t.Error("Open(etcd) expected error")
	}
}

func TestNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"positive.yaml", "positive"},
		{"/etc/predicates/small.range.yml", "small.range"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := NameFromPath(tt.path); got != tt.want {
			t.Errorf("NameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
