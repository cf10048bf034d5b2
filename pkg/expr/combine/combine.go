package combine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/predicate/pkg/expr/ast"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
	"mercator-hq/predicate/pkg/expr/rewrite"
	"mercator-hq/predicate/pkg/telemetry/metrics"
	"mercator-hq/predicate/pkg/telemetry/tracing"
)

var (
	// ErrNilPredicate indicates a nil lambda was passed in.
	ErrNilPredicate = errors.New("nil predicate")

	// ErrNoPredicates indicates AndAll was called without arguments.
	ErrNoPredicates = errors.New("no predicates to combine")

	// ErrNilParameter indicates a lambda lists a nil parameter.
	ErrNilParameter = errors.New("nil parameter")
)

// Combiner builds conjunctions of predicates. It is safe for concurrent use.
type Combiner struct {
	cloner  *rewrite.Cloner
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
}

// Option configures a Combiner.
type Option func(*Combiner)

// WithCloner sets the cloner used to rewrite the right-hand predicate.
func WithCloner(c *rewrite.Cloner) Option {
	return func(cb *Combiner) {
		if c != nil {
			cb.cloner = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cb *Combiner) {
		if logger != nil {
			cb.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cb *Combiner) {
		cb.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(cb *Combiner) {
		if t != nil {
			cb.tracer = t
		}
	}
}

// NewCombiner creates a Combiner. Without options it uses the default
// cloner, slog.Default() and no metrics or tracing.
func NewCombiner(opts ...Option) *Combiner {
	c := &Combiner{
		cloner: rewrite.NewCloner(),
		logger: slog.Default().With("component", "combine"),
		tracer: tracing.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCombiner = &Combiner{
	cloner: rewrite.NewCloner(),
	logger: slog.New(slog.DiscardHandler),
	tracer: tracing.Noop(),
}

// And returns a predicate equivalent to a(x) && b(x).
//
// The result reuses a's parameters and body. b's body is cloned with each of
// b's parameters replaced, by position, with a's parameter. The conjunction
// short-circuits: b's part is not evaluated when a's part is false.
// Neither input is modified, so both can be combined again.
func And(a, b *ast.Lambda) (*ast.Lambda, error) {
	return defaultCombiner.And(context.Background(), a, b)
}

// AndAll left-folds And over preds: AndAll(p, q, r) is And(And(p, q), r).
// A single predicate is returned as is.
func AndAll(preds ...*ast.Lambda) (*ast.Lambda, error) {
	return defaultCombiner.AndAll(context.Background(), preds...)
}

// And is the package-level And with logging, metrics and tracing.
func (c *Combiner) And(ctx context.Context, a, b *ast.Lambda) (*ast.Lambda, error) {
	ctx, span := c.tracer.Start(ctx, "combine.and")
	defer span.End()

	start := time.Now()
	result, stats, err := c.and(a, b)
	duration := time.Since(start)

	if err != nil {
		kind := classify(err)
		c.metrics.RecordCombine(kind, duration, 0, 0)
		tracing.RecordError(span, err, kind)
		c.logger.DebugContext(ctx, "combination rejected", "error", err, "result", kind)
		return nil, err
	}

	c.metrics.RecordCombine(metrics.ResultOK, duration, stats.Nodes, stats.Substituted)
	tracing.SetCloneAttributes(span, result.Arity(), stats.Nodes, stats.Substituted, stats.Depth)
	c.logger.DebugContext(ctx, "combined predicates",
		"arity", result.Arity(),
		"nodes", stats.Nodes,
		"substituted", stats.Substituted,
		"depth", stats.Depth,
		"duration", duration,
	)
	return result, nil
}

// AndAll is the package-level AndAll with logging, metrics and tracing.
func (c *Combiner) AndAll(ctx context.Context, preds ...*ast.Lambda) (*ast.Lambda, error) {
	if len(preds) == 0 {
		return nil, ErrNoPredicates
	}
	if preds[0] == nil {
		return nil, fmt.Errorf("predicate 0: %w", ErrNilPredicate)
	}

	ctx, span := c.tracer.Start(ctx, "combine.and_all")
	defer span.End()

	acc := preds[0]
	for i, p := range preds[1:] {
		next, err := c.And(ctx, acc, p)
		if err != nil {
			tracing.RecordError(span, err, classify(err))
			return nil, fmt.Errorf("predicate %d: %w", i+1, err)
		}
		acc = next
	}
	return acc, nil
}

func (c *Combiner) and(a, b *ast.Lambda) (*ast.Lambda, rewrite.Stats, error) {
	if a == nil || b == nil {
		return nil, rewrite.Stats{}, ErrNilPredicate
	}
	if len(a.Params) != len(b.Params) {
		return nil, rewrite.Stats{}, &exprerrors.ArityMismatch{Left: len(a.Params), Right: len(b.Params)}
	}
	for i := range a.Params {
		if a.Params[i] == nil {
			return nil, rewrite.Stats{}, fmt.Errorf("left parameter %d: %w", i, ErrNilParameter)
		}
		if b.Params[i] == nil {
			return nil, rewrite.Stats{}, fmt.Errorf("right parameter %d: %w", i, ErrNilParameter)
		}
	}

	m, err := rewrite.Zip(b.Params, a.Params)
	if err != nil {
		return nil, rewrite.Stats{}, err
	}

	right, stats, err := c.cloner.CloneWithStats(b.Body, m)
	if err != nil {
		return nil, stats, err
	}

	return &ast.Lambda{
		Params: append([]*ast.Parameter(nil), a.Params...),
		Body: &ast.Binary{
			Op:         ast.KindAndAlso,
			Left:       a.Body,
			Right:      right,
			ResultType: ast.TypeBool,
		},
		ReturnType: ast.TypeBool,
	}, stats, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, exprerrors.ErrArityMismatch):
		return metrics.ResultArityMismatch
	case errors.Is(err, exprerrors.ErrUnsupportedNodeKind):
		return metrics.ResultUnsupportedKind
	case errors.Is(err, exprerrors.ErrDepthExceeded):
		return metrics.ResultDepthExceeded
	default:
		return metrics.ResultError
	}
}
