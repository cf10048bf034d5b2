package eval

import (
	"context"
	"strings"

	"mercator-hq/predicate/pkg/expr/ast"
	"mercator-hq/predicate/pkg/expr/rewrite"
)

// DefaultMaxSteps bounds the number of nodes a single evaluation may visit.
const DefaultMaxSteps = 1 << 20

// Function is a host function callable from an expression. Instance calls
// receive the receiver as the first argument. Lambda values arrive as
// Function arguments.
type Function func(args ...any) (any, error)

// Program is a compiled predicate. It is immutable and safe for concurrent use.
type Program struct {
	lambda   *ast.Lambda
	funcs    map[string]Function
	globals  map[string]any
	maxSteps int
}

// Option configures a Program.
type Option func(*Program)

// WithFunction registers fn under name. Calls resolve "DeclaringType.Name"
// first, then the bare method name.
func WithFunction(name string, fn Function) Option {
	return func(p *Program) {
		p.funcs[name] = fn
	}
}

// WithGlobal sets the value of a static member, keyed like WithFunction.
func WithGlobal(name string, value any) Option {
	return func(p *Program) {
		p.globals[name] = value
	}
}

// WithMaxSteps limits the nodes visited per evaluation. Zero disables the limit.
func WithMaxSteps(n int) Option {
	return func(p *Program) {
		p.maxSteps = n
	}
}

// Compile prepares lambda for evaluation. It rejects trees holding a kind
// that cannot be rewritten and bodies that reference parameters the lambda
// does not bind. The returned Program holds its own copy of the tree.
func Compile(lambda *ast.Lambda, opts ...Option) (*Program, error) {
	if lambda == nil {
		return nil, fail(ast.KindLambda, ErrNilReference, "nil lambda")
	}

	body, err := rewrite.CloneWithSubstitution(lambda.Body, rewrite.ParameterMap{})
	if err != nil {
		return nil, err
	}

	if free := FreeParameters(lambda); len(free) > 0 {
		names := make([]string, len(free))
		for i, p := range free {
			names[i] = p.Name
		}
		return nil, fail(ast.KindParameter, ErrUnboundParameter, "%s", strings.Join(names, ", "))
	}

	p := &Program{
		lambda: &ast.Lambda{
			Name:       lambda.Name,
			Params:     append([]*ast.Parameter(nil), lambda.Params...),
			Body:       body,
			ReturnType: lambda.ReturnType,
		},
		funcs:    builtins(),
		globals:  make(map[string]any),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// FreeParameters returns the parameters referenced in lambda's body that no
// lambda or block in the tree declares, each once, in first-use order.
func FreeParameters(lambda *ast.Lambda) []*ast.Parameter {
	declared := make(map[ast.ParamID]bool)
	var refs []*ast.Parameter
	_ = ast.Walk(lambda, ast.VisitorFunc(func(n ast.Node) error {
		switch n := n.(type) {
		case *ast.Lambda:
			for _, p := range n.Params {
				declared[p.ID()] = true
			}
		case *ast.Block:
			for _, p := range n.Variables {
				declared[p.ID()] = true
			}
		case *ast.Parameter:
			refs = append(refs, n)
		}
		return nil
	}))

	var free []*ast.Parameter
	seen := make(map[ast.ParamID]bool)
	for _, p := range refs {
		if declared[p.ID()] || seen[p.ID()] {
			continue
		}
		seen[p.ID()] = true
		free = append(free, p)
	}
	return free
}

// Lambda returns the compiled predicate.
func (p *Program) Lambda() *ast.Lambda { return p.lambda }

// Arity returns the number of arguments Eval expects.
func (p *Program) Arity() int { return len(p.lambda.Params) }

// Eval evaluates the predicate body with args bound to its parameters in order.
func (p *Program) Eval(ctx context.Context, args ...any) (any, error) {
	if len(args) != len(p.lambda.Params) {
		return nil, fail(ast.KindLambda, ErrArgumentCount, "predicate takes %d argument(s), got %d", len(p.lambda.Params), len(args))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in := &interp{prog: p, ctx: ctx}
	return in.eval(p.lambda.Body, newFrame(nil, p.lambda.Params, args))
}

// Test evaluates the predicate and requires a boolean result.
func (p *Program) Test(ctx context.Context, args ...any) (bool, error) {
	v, err := p.Eval(ctx, args...)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fail(ast.KindLambda, ErrNotBoolean, "got %s", typeName(v))
	}
	return b, nil
}

func (p *Program) function(m ast.MethodRef) (Function, bool) {
	if m.DeclaringType != "" {
		if fn, ok := p.funcs[string(m.DeclaringType)+"."+m.Name]; ok {
			return fn, true
		}
	}
	fn, ok := p.funcs[m.Name]
	return fn, ok
}

func (p *Program) global(m ast.MemberRef) (any, bool) {
	if m.DeclaringType != "" {
		if v, ok := p.globals[string(m.DeclaringType)+"."+m.Name]; ok {
			return v, true
		}
	}
	v, ok := p.globals[m.Name]
	return v, ok
}

// frame is one lexical scope of parameter values.
type frame struct {
	vars   map[ast.ParamID]any
	parent *frame
}

func newFrame(parent *frame, params []*ast.Parameter, values []any) *frame {
	f := &frame{vars: make(map[ast.ParamID]any, len(params)), parent: parent}
	for i, p := range params {
		f.vars[p.ID()] = values[i]
	}
	return f
}

func (f *frame) lookup(p *ast.Parameter) (any, bool) {
	for ; f != nil; f = f.parent {
		if v, ok := f.vars[p.ID()]; ok {
			return v, true
		}
	}
	return nil, false
}

func (f *frame) assign(p *ast.Parameter, v any) bool {
	for ; f != nil; f = f.parent {
		if _, ok := f.vars[p.ID()]; ok {
			f.vars[p.ID()] = v
			return true
		}
	}
	return false
}

// closure is a lambda value together with the scope it was created in.
type closure struct {
	lambda *ast.Lambda
	env    *frame
	in     *interp
}

func (c *closure) call(args []any) (any, error) {
	if len(args) != len(c.lambda.Params) {
		return nil, fail(ast.KindInvoke, ErrArgumentCount, "lambda takes %d argument(s), got %d", len(c.lambda.Params), len(args))
	}
	return c.in.eval(c.lambda.Body, newFrame(c.env, c.lambda.Params, args))
}

func (c *closure) function() Function {
	return func(args ...any) (any, error) {
		return c.call(args)
	}
}
