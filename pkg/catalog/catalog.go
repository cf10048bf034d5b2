package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"mercator-hq/predicate/pkg/catalog/storage"
	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/expr/ast"
	"mercator-hq/predicate/pkg/expr/combine"
	"mercator-hq/predicate/pkg/expr/parser"
	"mercator-hq/predicate/pkg/expr/rewrite"
	"mercator-hq/predicate/pkg/telemetry/metrics"
	"mercator-hq/predicate/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCacheSize is the number of composites kept when no size is configured.
const DefaultCacheSize = 256

// Entry is a stored predicate together with its parsed document.
type Entry struct {
	Record   *storage.Record
	Document *parser.Document
}

// Catalog stores named predicates and composes them on demand.
// Composites are cached by the names and content hashes of their parts, so a
// replaced predicate is never served from a stale composite.
//
// A Catalog is safe for concurrent use.
type Catalog struct {
	store    storage.Storage
	combiner *combine.Combiner
	cloner   *rewrite.Cloner
	parser   *parser.Parser
	cache    *compositeCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   *tracing.Tracer
	now      func() time.Time

	cacheSize int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger.With("component", "catalog")
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Catalog) {
		c.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Catalog) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithCombiner sets the combiner used by Compose.
func WithCombiner(cb *combine.Combiner) Option {
	return func(c *Catalog) {
		if cb != nil {
			c.combiner = cb
		}
	}
}

// WithCloner sets the cloner used to check predicates before they are stored.
func WithCloner(cl *rewrite.Cloner) Option {
	return func(c *Catalog) {
		if cl != nil {
			c.cloner = cl
		}
	}
}

// WithParser sets the parser used to read stored documents and files.
func WithParser(p *parser.Parser) Option {
	return func(c *Catalog) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithCacheSize limits the number of cached composites. Zero means no limit.
func WithCacheSize(n int) Option {
	return func(c *Catalog) {
		if n >= 0 {
			c.cacheSize = n
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// New creates a catalog backed by store.
func New(store storage.Storage, opts ...Option) *Catalog {
	c := &Catalog{
		store:     store,
		combiner:  combine.NewCombiner(),
		cloner:    rewrite.NewCloner(),
		parser:    parser.NewParser(),
		logger:    slog.Default().With("component", "catalog"),
		tracer:    tracing.Noop(),
		now:       time.Now,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = newCompositeCache(c.cacheSize)
	return c
}

// Open creates the storage backend described by cfg and a catalog on top of it.
func Open(cfg *config.CatalogConfig, opts ...Option) (*Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog config is nil")
	}
	store, err := storage.New(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithCacheSize(cfg.CacheSize)}, opts...)
	return New(store, opts...), nil
}

// Put stores doc under name, replacing any predicate of the same name.
// An empty name falls back to the document's own name. The predicate is
// checked by cloning it before anything is written.
func (c *Catalog) Put(ctx context.Context, name string, doc *parser.Document) (*storage.Record, error) {
	if name == "" && doc != nil {
		name = doc.Name
	}
	r, err := c.put(ctx, name, doc)
	c.metrics.RecordCatalogOperation("put", err)
	if err != nil {
		return nil, newError("put", name, err)
	}
	c.logger.Debug("predicate stored", "name", name, "hash", r.Hash)
	return r, nil
}

// PutFile parses the predicate document at path and stores it. Documents
// without a name are stored under the file name minus its extension.
func (c *Catalog) PutFile(ctx context.Context, path string) (*storage.Record, error) {
	doc, err := c.parser.Parse(path)
	if err != nil {
		c.metrics.RecordCatalogOperation("put", err)
		return nil, newError("put", path, err)
	}
	name := doc.Name
	if name == "" {
		name = NameFromPath(path)
	}
	return c.Put(ctx, name, doc)
}

func (c *Catalog) put(ctx context.Context, name string, doc *parser.Document) (*storage.Record, error) {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "\r\n\t") {
		return nil, ErrInvalidName
	}
	if doc == nil || doc.Lambda == nil || doc.Lambda.Body == nil {
		return nil, ErrInvalidDocument
	}
	if _, err := c.cloner.Clone(doc.Lambda, rewrite.ParameterMap{}); err != nil {
		return nil, err
	}

	named := *doc
	named.Name = name
	data, err := parser.Encode(&named)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)

	record := &storage.Record{
		Name:        name,
		Description: doc.Description,
		Tags:        doc.Tags,
		Source:      doc.Source,
		Document:    data,
		Hash:        hex.EncodeToString(sum[:]),
	}
	if err := c.store.Put(ctx, record); err != nil {
		return nil, err
	}
	c.invalidate(name)
	c.refreshCount(ctx)

	return c.store.Get(ctx, name)
}

// Get returns the predicate stored under name.
func (c *Catalog) Get(ctx context.Context, name string) (*Entry, error) {
	entry, err := c.get(ctx, name)
	c.metrics.RecordCatalogOperation("get", err)
	if err != nil {
		return nil, newError("get", name, err)
	}
	return entry, nil
}

func (c *Catalog) get(ctx context.Context, name string) (*Entry, error) {
	r, err := c.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	doc, err := c.decode(r)
	if err != nil {
		return nil, err
	}
	return &Entry{Record: r, Document: doc}, nil
}

// List returns the stored records matching q, ordered by name.
func (c *Catalog) List(ctx context.Context, q *storage.Query) ([]*storage.Record, error) {
	records, err := c.store.List(ctx, q)
	c.metrics.RecordCatalogOperation("list", err)
	if err != nil {
		return nil, newError("list", "", err)
	}
	return records, nil
}

// Delete removes the predicate stored under name and every cached composite
// built from it.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	err := c.store.Delete(ctx, name)
	c.metrics.RecordCatalogOperation("delete", err)
	if err != nil {
		return newError("delete", name, err)
	}
	c.invalidate(name)
	c.refreshCount(ctx)
	c.logger.Debug("predicate deleted", "name", name)
	return nil
}

// Compose returns the conjunction of the named predicates, in order.
// Results are cached; a cached composite is reused only while every part
// still has the content it had when the composite was built.
// The returned lambda may be shared with later calls and must not be modified.
func (c *Catalog) Compose(ctx context.Context, names ...string) (*ast.Lambda, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.compose",
		trace.WithAttributes(attribute.Int(tracing.AttrPredicates, len(names))),
	)
	defer span.End()

	lambda, hit, err := c.compose(ctx, names)
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, hit))
	c.metrics.RecordCatalogOperation("compose", err)
	if err != nil {
		tracing.RecordError(span, err, "compose")
		return nil, newError("compose", strings.Join(names, ","), err)
	}
	return lambda, nil
}

func (c *Catalog) compose(ctx context.Context, names []string) (*ast.Lambda, bool, error) {
	if len(names) == 0 {
		return nil, false, combine.ErrNoPredicates
	}

	records := make([]*storage.Record, len(names))
	parts := make([]string, len(names))
	for i, name := range names {
		r, err := c.store.Get(ctx, name)
		if err != nil {
			return nil, false, fmt.Errorf("predicate %q: %w", name, err)
		}
		records[i] = r
		parts[i] = name + "@" + r.Hash
	}
	key := strings.Join(parts, "\n")

	if lambda, ok := c.cache.get(key, c.now()); ok {
		c.metrics.RecordCacheLookup(true)
		return lambda, true, nil
	}
	c.metrics.RecordCacheLookup(false)

	lambdas := make([]*ast.Lambda, len(records))
	for i, r := range records {
		doc, err := c.decode(r)
		if err != nil {
			return nil, false, fmt.Errorf("predicate %q: %w", r.Name, err)
		}
		lambdas[i] = doc.Lambda
	}

	lambda, err := c.combiner.AndAll(ctx, lambdas...)
	if err != nil {
		return nil, false, err
	}

	c.cache.add(key, names, lambda, c.now())
	c.metrics.SetCacheEntries(c.cache.len())
	c.logger.Debug("composite built", "predicates", names)
	return lambda, false, nil
}

// Prune drops cached composites that have not been used for olderThan and
// returns how many were dropped.
func (c *Catalog) Prune(olderThan time.Duration) int {
	n := c.cache.prune(c.now().Add(-olderThan))
	c.metrics.SetCacheEntries(c.cache.len())
	if n > 0 {
		c.logger.Debug("composites pruned", "count", n, "older_than", olderThan)
	}
	return n
}

// CacheLen returns the number of cached composites.
func (c *Catalog) CacheLen() int {
	return c.cache.len()
}

// Close drops the cache and closes the storage backend.
func (c *Catalog) Close() error {
	c.cache.clear()
	c.metrics.SetCacheEntries(0)
	return c.store.Close()
}

func (c *Catalog) decode(r *storage.Record) (*parser.Document, error) {
	source := r.Source
	if source == "" {
		source = r.Name
	}
	doc, err := c.parser.ParseBytes(r.Document, source)
	if err != nil {
		return nil, err
	}
	doc.Source = r.Source
	return doc, nil
}

func (c *Catalog) invalidate(name string) {
	if n := c.cache.invalidate(name); n > 0 {
		c.metrics.SetCacheEntries(c.cache.len())
		c.logger.Debug("composites invalidated", "name", name, "count", n)
	}
}

func (c *Catalog) refreshCount(ctx context.Context) {
	n, err := c.store.Count(ctx)
	if err != nil {
		c.logger.Warn("failed to count predicates", "error", err)
		return
	}
	c.metrics.SetCatalogEntries(n)
}

// NameFromPath derives a predicate name from a file path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
