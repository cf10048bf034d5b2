package rewrite

import (
	"mercator-hq/predicate/pkg/expr/ast"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
)

// DefaultMaxDepth is the nesting limit used by CloneWithSubstitution.
const DefaultMaxDepth = 4096

// Stats describes one clone.
type Stats struct {
	Nodes       int // Nodes reconstructed
	Substituted int // Parameter references replaced by their target
	Shared      int // Leaves returned as-is (constants and unmapped parameters)
	Depth       int // Deepest nesting level reached
}

// Cloner copies expression trees while substituting parameters.
// A Cloner has no mutable state and is safe for concurrent use.
type Cloner struct {
	maxDepth int
}

// Option configures a Cloner.
type Option func(*Cloner)

// WithMaxDepth limits how deeply nested a cloned tree may be.
// Zero or a negative value disables the limit.
func WithMaxDepth(n int) Option {
	return func(c *Cloner) {
		c.maxDepth = n
	}
}

// NewCloner creates a Cloner. Without options the depth limit is DefaultMaxDepth.
func NewCloner(opts ...Option) *Cloner {
	c := &Cloner{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxDepth returns the configured nesting limit (0 when unlimited).
func (c *Cloner) MaxDepth() int {
	if c.maxDepth < 0 {
		return 0
	}
	return c.maxDepth
}

var defaultCloner = NewCloner()

// CloneWithSubstitution returns a structural copy of node in which every
// parameter mapped by m is replaced by its target. Targets and constants are
// shared with the input, never copied. The input tree is not modified.
//
// On error no partial tree is returned.
func CloneWithSubstitution(node ast.Node, m ParameterMap) (ast.Node, error) {
	return defaultCloner.Clone(node, m)
}

// CloneElementInit clones an element initializer with the same contract as
// CloneWithSubstitution.
func CloneElementInit(init *ast.ElementInit, m ParameterMap) (*ast.ElementInit, error) {
	return defaultCloner.CloneElementInit(init, m)
}

// CloneMemberBinding clones a member binding with the same contract as
// CloneWithSubstitution.
func CloneMemberBinding(b ast.MemberBinding, m ParameterMap) (ast.MemberBinding, error) {
	return defaultCloner.CloneMemberBinding(b, m)
}

// Clone is CloneWithSubstitution using c's limits.
func (c *Cloner) Clone(node ast.Node, m ParameterMap) (ast.Node, error) {
	out, _, err := c.CloneWithStats(node, m)
	return out, err
}

// CloneWithStats is Clone that also reports what the clone did.
func (c *Cloner) CloneWithStats(node ast.Node, m ParameterMap) (ast.Node, Stats, error) {
	r := &run{maxDepth: c.MaxDepth()}
	out, err := r.node(node, m)
	if err != nil {
		return nil, r.stats, err
	}
	return out, r.stats, nil
}

// CloneElementInit clones an element initializer.
func (c *Cloner) CloneElementInit(init *ast.ElementInit, m ParameterMap) (*ast.ElementInit, error) {
	r := &run{maxDepth: c.MaxDepth()}
	return r.elementInit(init, m)
}

// CloneMemberBinding clones a member binding.
func (c *Cloner) CloneMemberBinding(b ast.MemberBinding, m ParameterMap) (ast.MemberBinding, error) {
	r := &run{maxDepth: c.MaxDepth()}
	return r.binding(b, m)
}

// run holds the bookkeeping of a single clone.
type run struct {
	maxDepth int
	depth    int
	stats    Stats
}

func (r *run) enter() error {
	r.depth++
	if r.depth > r.stats.Depth {
		r.stats.Depth = r.depth
	}
	if r.maxDepth > 0 && r.depth > r.maxDepth {
		return &exprerrors.DepthExceeded{Limit: r.maxDepth}
	}
	return nil
}

func (r *run) leave() { r.depth-- }

func (r *run) node(node ast.Node, m ParameterMap) (ast.Node, error) {
	if ast.IsNil(node) {
		return nil, nil
	}
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	switch n := node.(type) {
	case *ast.Parameter:
		if target, ok := m.Lookup(n); ok {
			r.stats.Substituted++
			return target, nil
		}
		r.stats.Shared++
		return n, nil

	case *ast.Constant:
		r.stats.Shared++
		return n, nil

	case *ast.Binary:
		if !n.Op.IsBinary() {
			return nil, mismatch(n.Op, "binary")
		}
		left, err := r.node(n.Left, m)
		if err != nil {
			return nil, err
		}
		right, err := r.node(n.Right, m)
		if err != nil {
			return nil, err
		}
		conversion, err := r.lambda(n.Conversion, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.Binary{
			Op:         n.Op,
			Left:       left,
			Right:      right,
			Checked:    n.Checked,
			LiftToNull: n.LiftToNull,
			Method:     copyMethod(n.Method),
			Conversion: conversion,
			ResultType: n.ResultType,
		}, nil

	case *ast.Unary:
		if !n.Op.IsUnary() {
			return nil, mismatch(n.Op, "unary")
		}
		operand, err := r.node(n.Operand, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.Unary{
			Op:         n.Op,
			Operand:    operand,
			Checked:    n.Checked,
			Method:     copyMethod(n.Method),
			ResultType: n.ResultType,
		}, nil

	case *ast.TypeBinary:
		if !n.Op.IsTypeTest() {
			return nil, mismatch(n.Op, "type test")
		}
		expr, err := r.node(n.Expr, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.TypeBinary{Op: n.Op, Expr: expr, TypeOperand: n.TypeOperand}, nil

	case *ast.Call:
		object, err := r.node(n.Object, m)
		if err != nil {
			return nil, err
		}
		args, err := r.nodes(n.Args, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.Call{Object: object, Method: n.Method, Args: args, ResultType: n.ResultType}, nil

	case *ast.Invoke:
		target, err := r.node(n.Target, m)
		if err != nil {
			return nil, err
		}
		args, err := r.nodes(n.Args, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.Invoke{Target: target, Args: args, ResultType: n.ResultType}, nil

	case *ast.Member:
		object, err := r.node(n.Object, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.Member{Object: object, Member: n.Member}, nil

	case *ast.New:
		ctor, err := r.newExpr(n, m)
		if err != nil {
			return nil, err
		}
		return ctor, nil

	case *ast.NewArray:
		if n.Op != ast.KindNewArrayInit && n.Op != ast.KindNewArrayBounds {
			return nil, mismatch(n.Op, "array construction")
		}
		exprs, err := r.nodes(n.Exprs, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.NewArray{Op: n.Op, ElementType: n.ElementType, Exprs: exprs}, nil

	case *ast.ListInit:
		ctor, err := r.newExpr(n.New, m)
		if err != nil {
			return nil, err
		}
		var inits []*ast.ElementInit
		if n.Initializers != nil {
			inits = make([]*ast.ElementInit, len(n.Initializers))
			for i, init := range n.Initializers {
				if inits[i], err = r.elementInit(init, m); err != nil {
					return nil, err
				}
			}
		}
		r.stats.Nodes++
		return &ast.ListInit{New: ctor, Initializers: inits}, nil

	case *ast.MemberInit:
		ctor, err := r.newExpr(n.New, m)
		if err != nil {
			return nil, err
		}
		bindings, err := r.bindings(n.Bindings, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.MemberInit{New: ctor, Bindings: bindings}, nil

	case *ast.Conditional:
		test, err := r.node(n.Test, m)
		if err != nil {
			return nil, err
		}
		ifTrue, err := r.node(n.IfTrue, m)
		if err != nil {
			return nil, err
		}
		ifFalse, err := r.node(n.IfFalse, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse, ResultType: n.ResultType}, nil

	case *ast.Lambda:
		fn, err := r.lambda(n, m)
		if err != nil {
			return nil, err
		}
		return fn, nil

	case *ast.Block:
		vars, inner := m.rebind(n.Variables)
		exprs, err := r.nodes(n.Exprs, inner)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.Block{
			Variables:  vars,
			Exprs:      exprs,
			ResultType: n.ResultType,
		}, nil

	case *ast.Dynamic:
		args, err := r.nodes(n.Args, m)
		if err != nil {
			return nil, err
		}
		r.stats.Nodes++
		return &ast.Dynamic{Binder: n.Binder, Args: args, ResultType: n.ResultType}, nil

	case *ast.Default:
		r.stats.Nodes++
		return &ast.Default{ResultType: n.ResultType}, nil

	case *ast.Statement:
		return nil, &exprerrors.UnsupportedNodeKind{
			Kind:   n.Op,
			Reason: "control-flow statements cannot be rewritten",
		}
	}

	return nil, &exprerrors.UnsupportedNodeKind{Kind: node.Kind(), Reason: "unknown node variant"}
}

func (r *run) nodes(nodes []ast.Node, m ParameterMap) ([]ast.Node, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		c, err := r.node(n, m)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// lambda clones a nested lambda. Its parameters are new bindings: they
// hide any mapping of the same identity, and they are renamed when a
// substituted parameter would otherwise resolve to them.
func (r *run) lambda(n *ast.Lambda, m ParameterMap) (*ast.Lambda, error) {
	if n == nil {
		return nil, nil
	}
	params, inner := m.rebind(n.Params)
	body, err := r.node(n.Body, inner)
	if err != nil {
		return nil, err
	}
	r.stats.Nodes++
	return &ast.Lambda{
		Name:       n.Name,
		Params:     params,
		Body:       body,
		ReturnType: n.ReturnType,
	}, nil
}

func (r *run) newExpr(n *ast.New, m ParameterMap) (*ast.New, error) {
	if n == nil {
		return nil, nil
	}
	args, err := r.nodes(n.Args, m)
	if err != nil {
		return nil, err
	}
	var members []ast.MemberRef
	if n.Members != nil {
		members = append([]ast.MemberRef(nil), n.Members...)
	}
	r.stats.Nodes++
	return &ast.New{
		Constructor: copyMethod(n.Constructor),
		Args:        args,
		Members:     members,
		ResultType:  n.ResultType,
	}, nil
}

func (r *run) elementInit(init *ast.ElementInit, m ParameterMap) (*ast.ElementInit, error) {
	if init == nil {
		return nil, nil
	}
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	args, err := r.nodes(init.Args, m)
	if err != nil {
		return nil, err
	}
	return &ast.ElementInit{AddMethod: init.AddMethod, Args: args}, nil
}

func (r *run) bindings(bindings []ast.MemberBinding, m ParameterMap) ([]ast.MemberBinding, error) {
	if bindings == nil {
		return nil, nil
	}
	out := make([]ast.MemberBinding, len(bindings))
	for i, b := range bindings {
		c, err := r.binding(b, m)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (r *run) binding(b ast.MemberBinding, m ParameterMap) (ast.MemberBinding, error) {
	if b == nil {
		return nil, nil
	}
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	switch b := b.(type) {
	case *ast.MemberAssignment:
		expr, err := r.node(b.Expr, m)
		if err != nil {
			return nil, err
		}
		return &ast.MemberAssignment{Member: b.Member, Expr: expr}, nil

	case *ast.MemberListBinding:
		var inits []*ast.ElementInit
		if b.Initializers != nil {
			inits = make([]*ast.ElementInit, len(b.Initializers))
			for i, init := range b.Initializers {
				c, err := r.elementInit(init, m)
				if err != nil {
					return nil, err
				}
				inits[i] = c
			}
		}
		return &ast.MemberListBinding{Member: b.Member, Initializers: inits}, nil

	case *ast.MemberMemberBinding:
		children, err := r.bindings(b.Bindings, m)
		if err != nil {
			return nil, err
		}
		return &ast.MemberMemberBinding{Member: b.Member, Bindings: children}, nil
	}

	return nil, &exprerrors.UnsupportedNodeKind{
		Kind:   ast.Kind(b.BindingKind()),
		Reason: "unknown member binding variant",
	}
}

func mismatch(kind ast.Kind, variant string) error {
	reason := "kind does not belong to the " + variant + " variant"
	if !kind.Valid() {
		reason = "unknown kind"
	}
	return &exprerrors.UnsupportedNodeKind{Kind: kind, Reason: reason}
}

func copyMethod(m *ast.MethodRef) *ast.MethodRef {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
