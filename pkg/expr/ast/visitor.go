package ast

import "reflect"

// Visitor provides an interface for traversing an expression tree.
// Implement this interface to inspect nodes (validation, analysis, etc.).
type Visitor interface {
	VisitNode(Node) error
	VisitElementInit(*ElementInit) error
	VisitBinding(MemberBinding) error
}

// VisitorFunc adapts a function to a Visitor that only sees expression nodes.
type VisitorFunc func(Node) error

func (f VisitorFunc) VisitNode(n Node) error              { return f(n) }
func (f VisitorFunc) VisitElementInit(*ElementInit) error { return nil }
func (f VisitorFunc) VisitBinding(MemberBinding) error    { return nil }

// Walk traverses the tree rooted at node in pre-order and calls the visitor
// for each node, element initializer and member binding. Parameter
// declarations of lambdas and blocks are visited before their bodies.
// It returns the first error encountered, or nil if traversal completes.
func Walk(node Node, v Visitor) error {
	if IsNil(node) {
		return nil
	}
	if err := v.VisitNode(node); err != nil {
		return err
	}

	switch n := node.(type) {
	case *Binary:
		if err := walkAll(v, n.Left, n.Right); err != nil {
			return err
		}
		if n.Conversion != nil {
			return Walk(n.Conversion, v)
		}
	case *Unary:
		return Walk(n.Operand, v)
	case *TypeBinary:
		return Walk(n.Expr, v)
	case *Call:
		if err := Walk(n.Object, v); err != nil {
			return err
		}
		return walkAll(v, n.Args...)
	case *Invoke:
		if err := Walk(n.Target, v); err != nil {
			return err
		}
		return walkAll(v, n.Args...)
	case *Member:
		return Walk(n.Object, v)
	case *New:
		return walkAll(v, n.Args...)
	case *NewArray:
		return walkAll(v, n.Exprs...)
	case *ListInit:
		if err := Walk(n.New, v); err != nil {
			return err
		}
		for _, init := range n.Initializers {
			if err := walkElementInit(init, v); err != nil {
				return err
			}
		}
	case *MemberInit:
		if err := Walk(n.New, v); err != nil {
			return err
		}
		for _, b := range n.Bindings {
			if err := walkBinding(b, v); err != nil {
				return err
			}
		}
	case *Conditional:
		return walkAll(v, n.Test, n.IfTrue, n.IfFalse)
	case *Lambda:
		for _, p := range n.Params {
			if err := Walk(p, v); err != nil {
				return err
			}
		}
		return Walk(n.Body, v)
	case *Block:
		for _, p := range n.Variables {
			if err := Walk(p, v); err != nil {
				return err
			}
		}
		return walkAll(v, n.Exprs...)
	case *Dynamic:
		return walkAll(v, n.Args...)
	case *Statement:
		return walkAll(v, n.Operands...)
	}
	return nil
}

func walkAll(v Visitor, nodes ...Node) error {
	for _, n := range nodes {
		if err := Walk(n, v); err != nil {
			return err
		}
	}
	return nil
}

// walkElementInit skips a nil initializer, which the cloner also treats as
// absent.
func walkElementInit(init *ElementInit, v Visitor) error {
	if init == nil {
		return nil
	}
	if err := v.VisitElementInit(init); err != nil {
		return err
	}
	return walkAll(v, init.Args...)
}

func walkBinding(b MemberBinding, v Visitor) error {
	if b == nil {
		return nil
	}
	if err := v.VisitBinding(b); err != nil {
		return err
	}
	switch b := b.(type) {
	case *MemberAssignment:
		return Walk(b.Expr, v)
	case *MemberListBinding:
		for _, init := range b.Initializers {
			if err := walkElementInit(init, v); err != nil {
				return err
			}
		}
	case *MemberMemberBinding:
		for _, child := range b.Bindings {
			if err := walkBinding(child, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Parameters returns every parameter node reachable from node, in visit order,
// including repeated references.
func Parameters(node Node) []*Parameter {
	var params []*Parameter
	_ = Walk(node, VisitorFunc(func(n Node) error {
		if p, ok := n.(*Parameter); ok {
			params = append(params, p)
		}
		return nil
	}))
	return params
}

// DeepEqual reports whether a and b are structurally identical: same kinds,
// same payload, same parameter identities and equal children.
func DeepEqual(a, b Node) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	if a.Kind() != b.Kind() || a.Type() != b.Type() {
		return false
	}

	switch x := a.(type) {
	case *Binary:
		y := b.(*Binary)
		return x.Checked == y.Checked && x.LiftToNull == y.LiftToNull &&
			equalMethod(x.Method, y.Method) &&
			DeepEqual(x.Left, y.Left) && DeepEqual(x.Right, y.Right) &&
			equalLambda(x.Conversion, y.Conversion)
	case *Unary:
		y := b.(*Unary)
		return x.Checked == y.Checked && equalMethod(x.Method, y.Method) &&
			DeepEqual(x.Operand, y.Operand)
	case *TypeBinary:
		y := b.(*TypeBinary)
		return x.TypeOperand == y.TypeOperand && DeepEqual(x.Expr, y.Expr)
	case *Call:
		y := b.(*Call)
		return x.Method == y.Method && DeepEqual(x.Object, y.Object) && equalNodes(x.Args, y.Args)
	case *Invoke:
		y := b.(*Invoke)
		return DeepEqual(x.Target, y.Target) && equalNodes(x.Args, y.Args)
	case *Member:
		y := b.(*Member)
		return x.Member == y.Member && DeepEqual(x.Object, y.Object)
	case *New:
		return equalNew(x, b.(*New))
	case *NewArray:
		y := b.(*NewArray)
		return x.ElementType == y.ElementType && equalNodes(x.Exprs, y.Exprs)
	case *ListInit:
		y := b.(*ListInit)
		return equalNew(x.New, y.New) && equalInits(x.Initializers, y.Initializers)
	case *MemberInit:
		y := b.(*MemberInit)
		return equalNew(x.New, y.New) && equalBindings(x.Bindings, y.Bindings)
	case *Conditional:
		y := b.(*Conditional)
		return DeepEqual(x.Test, y.Test) && DeepEqual(x.IfTrue, y.IfTrue) && DeepEqual(x.IfFalse, y.IfFalse)
	case *Lambda:
		return equalLambda(x, b.(*Lambda))
	case *Block:
		y := b.(*Block)
		return equalParams(x.Variables, y.Variables) && equalNodes(x.Exprs, y.Exprs)
	case *Dynamic:
		y := b.(*Dynamic)
		return x.Binder == y.Binder && equalNodes(x.Args, y.Args)
	case *Parameter:
		y := b.(*Parameter)
		return x.id == y.id && x.Name == y.Name && x.ByRef == y.ByRef
	case *Constant:
		return reflect.DeepEqual(x.Value, b.(*Constant).Value)
	case *Default:
		return true
	case *Statement:
		y := b.(*Statement)
		return x.Label == y.Label && equalNodes(x.Operands, y.Operands)
	}
	return false
}

// IsNil reports whether n is absent: a nil interface or a typed nil pointer.
func IsNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func equalNodes(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalParams(a, b []*Parameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}

func equalMethod(a, b *MethodRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalLambda(a, b *Lambda) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Name == b.Name && a.ReturnType == b.ReturnType &&
		equalParams(a.Params, b.Params) && DeepEqual(a.Body, b.Body)
}

func equalNew(a, b *New) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.ResultType != b.ResultType || !equalMethod(a.Constructor, b.Constructor) {
		return false
	}
	if !reflect.DeepEqual(a.Members, b.Members) {
		return false
	}
	return equalNodes(a.Args, b.Args)
}

func equalInits(a, b []*ElementInit) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil || b[i] == nil {
			if a[i] != b[i] {
				return false
			}
			continue
		}
		if a[i].AddMethod != b[i].AddMethod || !equalNodes(a[i].Args, b[i].Args) {
			return false
		}
	}
	return true
}

func equalBindings(a, b []MemberBinding) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil || b[i] == nil {
			if a[i] != nil || b[i] != nil {
				return false
			}
			continue
		}
		if a[i].BindingKind() != b[i].BindingKind() || a[i].BoundMember() != b[i].BoundMember() {
			return false
		}
		switch x := a[i].(type) {
		case *MemberAssignment:
			if !DeepEqual(x.Expr, b[i].(*MemberAssignment).Expr) {
				return false
			}
		case *MemberListBinding:
			if !equalInits(x.Initializers, b[i].(*MemberListBinding).Initializers) {
				return false
			}
		case *MemberMemberBinding:
			if !equalBindings(x.Bindings, b[i].(*MemberMemberBinding).Bindings) {
				return false
			}
		}
	}
	return true
}
