package parser

import (
	"bytes"
	"fmt"
	"strconv"

	"mercator-hq/predicate/pkg/expr/ast"

	"gopkg.in/yaml.v3"
)

// Encode writes doc in the predicate document format. Decoding the output
// yields a tree that is structurally identical to doc.Lambda, with fresh
// parameter identities.
//
// Parameter names are kept where they are unambiguous. Distinct parameters
// that would resolve to the same name are renamed with a numeric suffix
// ("x_2").
func Encode(doc *Document) ([]byte, error) {
	if doc == nil || doc.Lambda == nil {
		return nil, fmt.Errorf("nothing to encode")
	}

	e := newEncoder(doc.Lambda, doc.Free)
	root := newMapping()

	name := doc.Name
	if name == "" {
		name = doc.Lambda.Name
	}
	if name != "" {
		putString(root, "name", name)
	}
	if doc.Description != "" {
		putString(root, "description", doc.Description)
	}
	if len(doc.Tags) > 0 {
		tags := newSequence()
		tags.Style = yaml.FlowStyle
		for _, t := range doc.Tags {
			tags.Content = append(tags.Content, newString(t))
		}
		put(root, "tags", tags)
	}

	e.push(doc.Lambda.Params)
	if len(doc.Lambda.Params) > 0 {
		put(root, "parameters", e.declarations(doc.Lambda.Params))
	}
	put(root, "body", e.node(doc.Lambda.Body))
	e.pop()
	if doc.Lambda.ReturnType != ast.TypeUnknown {
		putString(root, "type", string(doc.Lambda.ReturnType))
	}

	if len(doc.Tests) > 0 {
		tests := newSequence()
		for _, t := range doc.Tests {
			tn := newMapping()
			putString(tn, "name", t.Name)
			args := newSequence()
			args.Style = yaml.FlowStyle
			for _, a := range t.Args {
				an := &yaml.Node{}
				if err := an.Encode(a); err != nil {
					return nil, fmt.Errorf("test %q: %w", t.Name, err)
				}
				args.Content = append(args.Content, an)
			}
			put(tn, "args", args)
			putBool(tn, "expect", t.Expect)
			tests.Content = append(tests.Content, tn)
		}
		put(root, "tests", tests)
	}

	if e.err != nil {
		return nil, e.err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeLambda writes a bare predicate with no metadata.
func EncodeLambda(lambda *ast.Lambda) ([]byte, error) {
	return Encode(&Document{Lambda: lambda})
}

type encoder struct {
	names  map[ast.ParamID]string
	free   map[ast.ParamID]bool
	taken  map[string]bool // names of free parameters
	scopes []map[string]bool
	err    error
}

func newEncoder(lambda *ast.Lambda, free []*ast.Parameter) *encoder {
	e := &encoder{
		names: make(map[ast.ParamID]string),
		free:  make(map[ast.ParamID]bool),
		taken: make(map[string]bool),
	}

	declared := make(map[ast.ParamID]bool)
	for _, p := range lambda.Params {
		declared[p.ID()] = true
	}
	_ = ast.Walk(lambda.Body, ast.VisitorFunc(func(n ast.Node) error {
		switch n := n.(type) {
		case *ast.Lambda:
			for _, p := range n.Params {
				declared[p.ID()] = true
			}
		case *ast.Block:
			for _, p := range n.Variables {
				declared[p.ID()] = true
			}
		}
		return nil
	}))

	for _, p := range free {
		e.addFree(p)
	}
	for _, p := range ast.Parameters(lambda.Body) {
		if !declared[p.ID()] {
			e.addFree(p)
		}
	}
	return e
}

func (e *encoder) addFree(p *ast.Parameter) {
	if e.free[p.ID()] {
		return
	}
	name := e.unique(p.Name, func(s string) bool { return e.taken[s] })
	e.free[p.ID()] = true
	e.taken[name] = true
	e.names[p.ID()] = name
}

// push declares params in a new scope. A name already visible, or used by a
// free parameter, is suffixed so that references resolve to the right binding.
func (e *encoder) push(params []*ast.Parameter) {
	scope := make(map[string]bool, len(params))
	for _, p := range params {
		name := e.unique(p.Name, func(s string) bool {
			return scope[s] || e.taken[s] || e.visible(s)
		})
		scope[name] = true
		e.names[p.ID()] = name
	}
	e.scopes = append(e.scopes, scope)
}

func (e *encoder) pop() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *encoder) visible(name string) bool {
	for _, s := range e.scopes {
		if s[name] {
			return true
		}
	}
	return false
}

func (e *encoder) unique(base string, used func(string) bool) string {
	if base == "" {
		base = "p"
	}
	if !used(base) {
		return base
	}
	for i := 2; ; i++ {
		name := base + "_" + strconv.Itoa(i)
		if !used(name) {
			return name
		}
	}
}

func (e *encoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf(format, args...)
	}
}

func (e *encoder) declarations(params []*ast.Parameter) *yaml.Node {
	seq := newSequence()
	for _, p := range params {
		d := newMapping()
		d.Style = yaml.FlowStyle
		putString(d, "name", e.names[p.ID()])
		if p.ParameterType != ast.TypeUnknown {
			putString(d, "type", string(p.ParameterType))
		}
		if p.ByRef {
			putBool(d, "by_ref", true)
		}
		seq.Content = append(seq.Content, d)
	}
	return seq
}

func (e *encoder) nodes(nodes []ast.Node) *yaml.Node {
	seq := newSequence()
	for _, n := range nodes {
		seq.Content = append(seq.Content, e.node(n))
	}
	return seq
}

func (e *encoder) putNodes(m *yaml.Node, key string, nodes []ast.Node) {
	if len(nodes) > 0 {
		put(m, key, e.nodes(nodes))
	}
}

func (e *encoder) putType(m *yaml.Node, typ, inferred ast.TypeRef) {
	if typ != inferred {
		putString(m, "type", string(typ))
	}
}

func (e *encoder) kind(m *yaml.Node, kind ast.Kind, checked bool) {
	name := string(kind)
	if checked {
		if !kind.Checkable() {
			e.fail("%s has no overflow-checked form", kind)
		}
		name += checkedSuffix
	}
	putString(m, "kind", name)
}

func (e *encoder) node(n ast.Node) *yaml.Node {
	m := newMapping()
	if ast.IsNil(n) {
		e.fail("cannot encode an absent expression")
		return m
	}

	switch n := n.(type) {
	case *ast.Binary:
		e.kind(m, n.Op, n.Checked)
		put(m, "left", e.node(n.Left))
		put(m, "right", e.node(n.Right))
		if n.LiftToNull {
			putBool(m, "lift_to_null", true)
		}
		if n.Method != nil {
			put(m, "method", encodeMethod(*n.Method, ast.MethodRef{Static: true}))
		}
		if n.Conversion != nil {
			put(m, "conversion", e.node(n.Conversion))
		}
		e.putType(m, n.ResultType, ast.MakeBinary(n.Op, n.Left, n.Right).ResultType)

	case *ast.Unary:
		e.kind(m, n.Op, n.Checked)
		put(m, "operand", e.node(n.Operand))
		if n.Method != nil {
			put(m, "method", encodeMethod(*n.Method, ast.MethodRef{Static: true}))
		}
		e.putType(m, n.ResultType, ast.MakeUnary(n.Op, n.Operand, ast.TypeUnknown).ResultType)

	case *ast.TypeBinary:
		e.kind(m, n.Op, false)
		put(m, "operand", e.node(n.Expr))
		putString(m, "type", string(n.TypeOperand))

	case *ast.Call:
		e.kind(m, ast.KindCall, false)
		if n.Object != nil {
			put(m, "object", e.node(n.Object))
		}
		put(m, "method", encodeMethod(n.Method, defaultCallMethod(n.Object)))
		e.putNodes(m, "args", n.Args)
		e.putType(m, n.ResultType, ast.TypeUnknown)

	case *ast.Invoke:
		e.kind(m, ast.KindInvoke, false)
		put(m, "target", e.node(n.Target))
		e.putNodes(m, "args", n.Args)
		e.putType(m, n.ResultType, ast.TypeUnknown)

	case *ast.Member:
		e.kind(m, ast.KindMemberAccess, false)
		if n.Object != nil {
			put(m, "object", e.node(n.Object))
		}
		ref := n.Member
		ref.Type = ast.TypeUnknown
		put(m, "member", encodeMember(ref, defaultMemberAccess(n.Object)))
		e.putType(m, n.Member.Type, ast.TypeUnknown)

	case *ast.New:
		e.kind(m, ast.KindNew, false)
		e.newFields(m, n)

	case *ast.NewArray:
		e.kind(m, n.Op, false)
		key := "elements"
		if n.Op == ast.KindNewArrayBounds {
			key = "bounds"
		}
		e.putNodes(m, key, n.Exprs)
		e.putType(m, n.ElementType, ast.TypeUnknown)

	case *ast.ListInit:
		e.kind(m, ast.KindListInit, false)
		put(m, "new", e.construction(n.New))
		put(m, "initializers", e.initializers(n.Initializers, n.Type()))

	case *ast.MemberInit:
		e.kind(m, ast.KindMemberInit, false)
		put(m, "new", e.construction(n.New))
		put(m, "bindings", e.bindings(n.Bindings, n.Type()))

	case *ast.Conditional:
		e.kind(m, ast.KindConditional, false)
		put(m, "test", e.node(n.Test))
		put(m, "if_true", e.node(n.IfTrue))
		if n.IfFalse != nil {
			put(m, "if_false", e.node(n.IfFalse))
		}
		e.putType(m, n.ResultType, ast.Cond(n.Test, n.IfTrue, n.IfFalse).ResultType)

	case *ast.Lambda:
		e.kind(m, ast.KindLambda, false)
		if n.Name != "" {
			putString(m, "name", n.Name)
		}
		e.push(n.Params)
		if len(n.Params) > 0 {
			put(m, "parameters", e.declarations(n.Params))
		}
		put(m, "body", e.node(n.Body))
		e.pop()
		e.putType(m, n.ReturnType, ast.TypeUnknown)

	case *ast.Block:
		e.kind(m, ast.KindBlock, false)
		e.push(n.Variables)
		if len(n.Variables) > 0 {
			put(m, "variables", e.declarations(n.Variables))
		}
		put(m, "expressions", e.nodes(n.Exprs))
		e.pop()
		e.putType(m, n.ResultType, ast.TypeUnknown)

	case *ast.Dynamic:
		e.kind(m, ast.KindDynamic, false)
		if n.Binder.Operation == "" {
			putString(m, "binder", n.Binder.Name)
		} else {
			binder := newMapping()
			binder.Style = yaml.FlowStyle
			putString(binder, "name", n.Binder.Name)
			putString(binder, "operation", n.Binder.Operation)
			put(m, "binder", binder)
		}
		e.putNodes(m, "args", n.Args)
		e.putType(m, n.ResultType, ast.TypeUnknown)

	case *ast.Parameter:
		m.Style = yaml.FlowStyle
		e.kind(m, ast.KindParameter, false)
		name, ok := e.names[n.ID()]
		if !ok {
			e.addFree(n)
			name = e.names[n.ID()]
		}
		putString(m, "name", name)
		if e.free[n.ID()] {
			e.putType(m, n.ParameterType, ast.TypeUnknown)
		}

	case *ast.Constant:
		m.Style = yaml.FlowStyle
		e.kind(m, ast.KindConstant, false)
		value := &yaml.Node{}
		if err := value.Encode(n.Value); err != nil {
			e.fail("constant %v: %w", n.Value, err)
		}
		put(m, "value", value)
		inferred := constantType(n.Value)
		if _, isFloat := n.Value.(float64); isFloat {
			inferred = ast.TypeUnknown
		}
		e.putType(m, n.ResultType, inferred)

	case *ast.Default:
		m.Style = yaml.FlowStyle
		e.kind(m, ast.KindDefault, false)
		putString(m, "type", string(n.ResultType))

	case *ast.Statement:
		e.kind(m, n.Op, false)
		e.putNodes(m, "operands", n.Operands)
		if n.Label != "" {
			putString(m, "label", n.Label)
		}
		e.putType(m, n.ResultType, ast.TypeUnknown)

	default:
		e.fail("cannot encode %T", n)
	}
	return m
}

func (e *encoder) newFields(m *yaml.Node, n *ast.New) {
	if n.Constructor != nil {
		put(m, "constructor", encodeMethod(*n.Constructor, defaultConstructor(n.ResultType)))
	}
	e.putNodes(m, "args", n.Args)
	if len(n.Members) > 0 {
		members := newSequence()
		for _, ref := range n.Members {
			members.Content = append(members.Content, encodeMember(ref, ast.MemberRef{DeclaringType: n.ResultType}))
		}
		put(m, "members", members)
	}
	e.putType(m, n.ResultType, ast.TypeUnknown)
}

func (e *encoder) construction(n *ast.New) *yaml.Node {
	m := newMapping()
	if n == nil {
		e.fail("initializer has no constructor")
		return m
	}
	e.newFields(m, n)
	return m
}

func (e *encoder) initializers(inits []*ast.ElementInit, owner ast.TypeRef) *yaml.Node {
	seq := newSequence()
	for _, init := range inits {
		m := newMapping()
		if def := defaultAddMethod(owner); init.AddMethod != def {
			put(m, "method", encodeMethod(init.AddMethod, def))
		}
		e.putNodes(m, "args", init.Args)
		seq.Content = append(seq.Content, m)
	}
	return seq
}

func (e *encoder) bindings(bindings []ast.MemberBinding, owner ast.TypeRef) *yaml.Node {
	seq := newSequence()
	for _, b := range bindings {
		m := newMapping()
		put(m, "member", encodeMember(b.BoundMember(), ast.MemberRef{DeclaringType: owner}))
		switch b := b.(type) {
		case *ast.MemberAssignment:
			put(m, "expression", e.node(b.Expr))
		case *ast.MemberListBinding:
			put(m, "initializers", e.initializers(b.Initializers, b.Member.Type))
		case *ast.MemberMemberBinding:
			put(m, "bindings", e.bindings(b.Bindings, b.Member.Type))
		default:
			e.fail("cannot encode binding %T", b)
		}
		seq.Content = append(seq.Content, m)
	}
	return seq
}

// encodeMethod writes ref as a bare name when the rest of it matches def.
func encodeMethod(ref, def ast.MethodRef) *yaml.Node {
	if ref.DeclaringType == def.DeclaringType && ref.Static == def.Static {
		return newString(ref.Name)
	}
	m := newMapping()
	m.Style = yaml.FlowStyle
	putString(m, "name", ref.Name)
	if ref.DeclaringType != def.DeclaringType {
		putString(m, "declaring_type", string(ref.DeclaringType))
	}
	if ref.Static != def.Static {
		putBool(m, "static", ref.Static)
	}
	return m
}

// encodeMember writes ref as a bare name when the rest of it matches def.
func encodeMember(ref, def ast.MemberRef) *yaml.Node {
	if ref.DeclaringType == def.DeclaringType && ref.Type == def.Type {
		return newString(ref.Name)
	}
	m := newMapping()
	m.Style = yaml.FlowStyle
	putString(m, "name", ref.Name)
	if ref.DeclaringType != def.DeclaringType {
		putString(m, "declaring_type", string(ref.DeclaringType))
	}
	if ref.Type != def.Type {
		putString(m, "type", string(ref.Type))
	}
	return m
}
