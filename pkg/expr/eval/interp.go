package eval

import (
	"context"
	"reflect"
	"strings"

	"mercator-hq/predicate/pkg/expr/ast"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
)

var compoundBase = map[ast.Kind]ast.Kind{
	ast.KindAddAssign:         ast.KindAdd,
	ast.KindSubtractAssign:    ast.KindSubtract,
	ast.KindMultiplyAssign:    ast.KindMultiply,
	ast.KindDivideAssign:      ast.KindDivide,
	ast.KindModuloAssign:      ast.KindModulo,
	ast.KindPowerAssign:       ast.KindPower,
	ast.KindAndAssign:         ast.KindAnd,
	ast.KindOrAssign:          ast.KindOr,
	ast.KindExclusiveOrAssign: ast.KindExclusiveOr,
	ast.KindLeftShiftAssign:   ast.KindLeftShift,
	ast.KindRightShiftAssign:  ast.KindRightShift,
}

// interp evaluates one call of a Program.
type interp struct {
	prog  *Program
	ctx   context.Context
	steps int
}

func (in *interp) step(kind ast.Kind) error {
	in.steps++
	if in.prog.maxSteps > 0 && in.steps > in.prog.maxSteps {
		return fail(kind, ErrStepLimit, "more than %d steps", in.prog.maxSteps)
	}
	if in.steps%256 == 0 {
		return in.ctx.Err()
	}
	return nil
}

func (in *interp) eval(node ast.Node, env *frame) (any, error) {
	if ast.IsNil(node) {
		return nil, nil
	}
	if err := in.step(node.Kind()); err != nil {
		return nil, err
	}

	switch n := node.(type) {
	case *ast.Constant:
		return n.Value, nil

	case *ast.Default:
		return zeroValue(n.ResultType), nil

	case *ast.Parameter:
		v, ok := env.lookup(n)
		if !ok {
			return nil, fail(ast.KindParameter, ErrUnboundParameter, "%s", n.Name)
		}
		return v, nil

	case *ast.Binary:
		return in.binary(n, env)

	case *ast.Unary:
		return in.unary(n, env)

	case *ast.TypeBinary:
		v, err := in.eval(n.Expr, env)
		if err != nil {
			return nil, err
		}
		if n.Op == ast.KindTypeEqual {
			return typeEquals(v, n.TypeOperand), nil
		}
		return typeMatches(v, n.TypeOperand), nil

	case *ast.Call:
		return in.call(n, env)

	case *ast.Invoke:
		target, err := in.eval(n.Target, env)
		if err != nil {
			return nil, err
		}
		args, err := in.evalAll(n.Args, env)
		if err != nil {
			return nil, err
		}
		return in.invoke(target, args)

	case *ast.Member:
		if n.IsStatic() {
			v, ok := in.prog.global(n.Member)
			if !ok {
				return nil, fail(ast.KindMemberAccess, ErrUnknownMember, "static member %q", n.Member.Name)
			}
			return v, nil
		}
		obj, err := in.eval(n.Object, env)
		if err != nil {
			return nil, err
		}
		return memberValue(obj, n.Member.Name)

	case *ast.New:
		return in.construct(n, env)

	case *ast.NewArray:
		return in.newArray(n, env)

	case *ast.ListInit:
		coll, err := in.construct(n.New, env)
		if err != nil {
			return nil, err
		}
		for _, init := range n.Initializers {
			if coll, err = in.addElement(coll, init, env); err != nil {
				return nil, err
			}
		}
		return coll, nil

	case *ast.MemberInit:
		obj, err := in.construct(n.New, env)
		if err != nil {
			return nil, err
		}
		for _, b := range n.Bindings {
			if err := in.bind(obj, b, env); err != nil {
				return nil, err
			}
		}
		return obj, nil

	case *ast.Conditional:
		test, err := in.eval(n.Test, env)
		if err != nil {
			return nil, err
		}
		ok, err := asBool(ast.KindConditional, test)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.eval(n.IfTrue, env)
		}
		return in.eval(n.IfFalse, env)

	case *ast.Lambda:
		return &closure{lambda: n, env: env, in: in}, nil

	case *ast.Block:
		values := make([]any, len(n.Variables))
		for i, v := range n.Variables {
			values[i] = zeroValue(v.ParameterType)
		}
		local := newFrame(env, n.Variables, values)
		var last any
		for _, e := range n.Exprs {
			v, err := in.eval(e, local)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil

	case *ast.Dynamic:
		return in.dynamic(n, env)

	case *ast.Statement:
		return nil, &exprerrors.UnsupportedNodeKind{Kind: n.Op, Reason: "control-flow statements cannot be evaluated"}
	}

	return nil, &exprerrors.UnsupportedNodeKind{Kind: node.Kind(), Reason: "unknown node variant"}
}

func (in *interp) evalAll(nodes []ast.Node, env *frame) ([]any, error) {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := in.eval(n, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (in *interp) binary(n *ast.Binary, env *frame) (any, error) {
	switch {
	case n.Op == ast.KindAndAlso, n.Op == ast.KindOrElse:
		l, err := in.eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		lb, err := asBool(n.Op, l)
		if err != nil {
			return nil, err
		}
		if lb == (n.Op == ast.KindOrElse) {
			return lb, nil
		}
		r, err := in.eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		return asBool(n.Op, r)

	case n.Op == ast.KindCoalesce:
		l, err := in.eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		if isNull(l) {
			return in.eval(n.Right, env)
		}
		if n.Conversion == nil {
			return l, nil
		}
		conv, err := in.eval(n.Conversion, env)
		if err != nil {
			return nil, err
		}
		return in.invoke(conv, []any{l})

	case n.Op.IsAssignment():
		return in.assign(n, env)
	}

	l, err := in.eval(n.Left, env)
	if err != nil {
		return nil, err
	}
	r, err := in.eval(n.Right, env)
	if err != nil {
		return nil, err
	}
	return in.operate(n.Op, n.Method, l, r, n.Checked, n.LiftToNull)
}

func (in *interp) operate(op ast.Kind, method *ast.MethodRef, l, r any, checked, lift bool) (any, error) {
	if method != nil {
		return in.callFunction(op, *method, []any{l, r})
	}
	switch {
	case op.IsComparison():
		return compare(op, l, r, lift)
	case op == ast.KindArrayIndex:
		return indexValue(l, r)
	}
	if lift && (l == nil || r == nil) {
		return nil, nil
	}
	return arith(op, l, r, checked)
}

func (in *interp) assign(n *ast.Binary, env *frame) (any, error) {
	value, err := in.eval(n.Right, env)
	if err != nil {
		return nil, err
	}
	if base, ok := compoundBase[n.Op]; ok {
		current, err := in.eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		if value, err = in.operate(base, n.Method, current, value, n.Checked, n.LiftToNull); err != nil {
			return nil, err
		}
	}
	return value, in.store(n.Op, n.Left, value, env)
}

// store writes value to an assignable expression: a parameter or a member.
func (in *interp) store(kind ast.Kind, target ast.Node, value any, env *frame) error {
	switch t := target.(type) {
	case *ast.Parameter:
		if !env.assign(t, value) {
			return fail(kind, ErrUnboundParameter, "%s", t.Name)
		}
		return nil
	case *ast.Member:
		if t.IsStatic() {
			return fail(kind, ErrTypeMismatch, "cannot assign static member %q", t.Member.Name)
		}
		obj, err := in.eval(t.Object, env)
		if err != nil {
			return err
		}
		return setMember(obj, t.Member.Name, value)
	}
	return fail(kind, ErrTypeMismatch, "cannot assign to %s", target.Kind())
}

func (in *interp) unary(n *ast.Unary, env *frame) (any, error) {
	if n.Op == ast.KindQuote {
		if l, ok := n.Operand.(*ast.Lambda); ok {
			return &closure{lambda: l, env: env, in: in}, nil
		}
	}

	v, err := in.eval(n.Operand, env)
	if err != nil {
		return nil, err
	}
	if n.Method != nil && !n.Op.IsAssignment() {
		return in.callFunction(n.Op, *n.Method, []any{v})
	}

	switch n.Op {
	case ast.KindNegate:
		return negate(v, n.Checked)

	case ast.KindUnaryPlus:
		if _, ok := toFloat64(v); !ok {
			return nil, fail(n.Op, ErrTypeMismatch, "operand %s", typeName(v))
		}
		return v, nil

	case ast.KindNot, ast.KindOnesComplement:
		if b, ok := v.(bool); ok && n.Op == ast.KindNot {
			return !b, nil
		}
		if i, ok := toInt64(v); ok {
			return ^i, nil
		}
		return nil, fail(n.Op, ErrTypeMismatch, "operand %s", typeName(v))

	case ast.KindConvert:
		return convert(v, n.ResultType, n.Checked)

	case ast.KindTypeAs:
		if typeMatches(v, n.ResultType) {
			return v, nil
		}
		return nil, nil

	case ast.KindArrayLength:
		return length(v)

	case ast.KindIncrement:
		return arith(ast.KindAdd, v, int64(1), n.Checked)

	case ast.KindDecrement:
		return arith(ast.KindSubtract, v, int64(1), n.Checked)

	case ast.KindPreIncrementAssign, ast.KindPostIncrementAssign,
		ast.KindPreDecrementAssign, ast.KindPostDecrementAssign:
		op := ast.KindAdd
		if n.Op == ast.KindPreDecrementAssign || n.Op == ast.KindPostDecrementAssign {
			op = ast.KindSubtract
		}
		next, err := arith(op, v, int64(1), n.Checked)
		if err != nil {
			return nil, err
		}
		if err := in.store(n.Op, n.Operand, next, env); err != nil {
			return nil, err
		}
		if n.Op == ast.KindPostIncrementAssign || n.Op == ast.KindPostDecrementAssign {
			return v, nil
		}
		return next, nil

	case ast.KindIsTrue:
		return asBool(n.Op, v)

	case ast.KindIsFalse:
		b, err := asBool(n.Op, v)
		if err != nil {
			return nil, err
		}
		return !b, nil

	case ast.KindQuote, ast.KindUnbox:
		return v, nil
	}

	return nil, &exprerrors.UnsupportedNodeKind{Kind: n.Op, Reason: "not a unary operator"}
}

func (in *interp) call(n *ast.Call, env *frame) (any, error) {
	var obj any
	if !n.IsStatic() {
		var err error
		if obj, err = in.eval(n.Object, env); err != nil {
			return nil, err
		}
		if isNull(obj) {
			return nil, fail(ast.KindCall, ErrNilReference, "call %s on null", n.Method.Name)
		}
	}

	args, err := in.evalAll(n.Args, env)
	if err != nil {
		return nil, err
	}

	if _, ok := in.prog.function(n.Method); ok {
		if !n.IsStatic() {
			args = append([]any{obj}, args...)
		}
		return in.callFunction(ast.KindCall, n.Method, args)
	}

	if !n.IsStatic() {
		out, found, err := callMethod(obj, n.Method.Name, hostArgs(args))
		if found {
			return out, err
		}
	}
	return nil, fail(ast.KindCall, ErrUnknownFunction, "%s", qualified(n.Method))
}

func (in *interp) callFunction(kind ast.Kind, m ast.MethodRef, args []any) (any, error) {
	fn, ok := in.prog.function(m)
	if !ok {
		return nil, fail(kind, ErrUnknownFunction, "%s", qualified(m))
	}
	if err := in.ctx.Err(); err != nil {
		return nil, err
	}
	out, err := fn(hostArgs(args)...)
	if err != nil {
		if _, ok := err.(*EvaluationError); ok {
			return nil, err
		}
		return nil, fail(kind, err, "%s failed", qualified(m))
	}
	return out, nil
}

func (in *interp) invoke(target any, args []any) (any, error) {
	if err := in.ctx.Err(); err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case nil:
		return nil, fail(ast.KindInvoke, ErrNilReference, "invoke null")
	case *closure:
		return t.call(args)
	case Function:
		return t(hostArgs(args)...)
	}
	fn := reflect.ValueOf(target)
	if fn.Kind() != reflect.Func {
		return nil, fail(ast.KindInvoke, ErrTypeMismatch, "cannot invoke %s", typeName(target))
	}
	return callReflect(ast.KindInvoke, "function", fn, hostArgs(args))
}

func (in *interp) dynamic(n *ast.Dynamic, env *frame) (any, error) {
	args, err := in.evalAll(n.Args, env)
	if err != nil {
		return nil, err
	}
	if _, ok := in.prog.funcs[n.Binder.Name]; ok {
		return in.callFunction(ast.KindDynamic, ast.MethodRef{Name: n.Binder.Name}, args)
	}

	switch n.Binder.Operation {
	case "get_member":
		if len(args) == 1 {
			return memberValue(args[0], n.Binder.Name)
		}
	case "get_index":
		if len(args) == 2 {
			return indexValue(args[0], args[1])
		}
	case "invoke":
		if len(args) >= 1 {
			return in.invoke(args[0], args[1:])
		}
	case "invoke_member":
		if len(args) >= 1 {
			out, found, err := callMethod(args[0], n.Binder.Name, hostArgs(args[1:]))
			if found {
				return out, err
			}
		}
	}
	return nil, fail(ast.KindDynamic, ErrUnknownFunction, "binder %s (%s)", n.Binder.Name, n.Binder.Operation)
}

// construct builds the value of a New node. Without a constructor, slice and
// map types produce empty collections and any other type produces an object
// map keyed by member name.
func (in *interp) construct(n *ast.New, env *frame) (any, error) {
	if n == nil {
		return nil, fail(ast.KindNew, ErrNilReference, "missing constructor")
	}
	args, err := in.evalAll(n.Args, env)
	if err != nil {
		return nil, err
	}
	if n.Constructor != nil {
		return in.callFunction(ast.KindNew, *n.Constructor, args)
	}

	t := string(n.ResultType)
	switch {
	case strings.HasPrefix(t, "[]"):
		return append([]any{}, args...), nil
	case strings.HasPrefix(t, "map["):
		if len(args) > 0 {
			return nil, fail(ast.KindNew, ErrArgumentCount, "%s takes no arguments", t)
		}
		return map[any]any{}, nil
	}

	if len(args) != len(n.Members) && len(args) > 0 {
		return nil, fail(ast.KindNew, ErrArgumentCount, "%d argument(s) for %d member(s)", len(args), len(n.Members))
	}
	obj := make(map[string]any, len(args))
	for i, a := range args {
		obj[n.Members[i].Name] = a
	}
	return obj, nil
}

func (in *interp) newArray(n *ast.NewArray, env *frame) (any, error) {
	values, err := in.evalAll(n.Exprs, env)
	if err != nil {
		return nil, err
	}
	if n.Op == ast.KindNewArrayInit {
		return values, nil
	}

	bounds := make([]int, len(values))
	for i, v := range values {
		b, ok := toInt64(v)
		if !ok || b < 0 {
			return nil, fail(n.Op, ErrTypeMismatch, "invalid bound %v", v)
		}
		bounds[i] = int(b)
	}
	return makeArray(bounds, n.ElementType), nil
}

func makeArray(bounds []int, elem ast.TypeRef) any {
	if len(bounds) == 0 {
		return zeroValue(elem)
	}
	out := make([]any, bounds[0])
	for i := range out {
		out[i] = makeArray(bounds[1:], elem)
	}
	return out
}

// addElement applies one element initializer to a collection and returns the
// collection, which may be a new value for slices.
func (in *interp) addElement(coll any, init *ast.ElementInit, env *frame) (any, error) {
	args, err := in.evalAll(init.Args, env)
	if err != nil {
		return nil, err
	}

	if _, ok := in.prog.function(init.AddMethod); ok {
		out, err := in.callFunction(ast.KindListInit, init.AddMethod, append([]any{coll}, args...))
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
		return coll, nil
	}

	switch c := coll.(type) {
	case []any:
		return append(c, args...), nil
	case map[any]any:
		if len(args) != 2 {
			return nil, fail(ast.KindListInit, ErrArgumentCount, "map add takes a key and a value")
		}
		c[args[0]] = args[1]
		return c, nil
	case map[string]any:
		if len(args) != 2 {
			return nil, fail(ast.KindListInit, ErrArgumentCount, "map add takes a key and a value")
		}
		c[toString(args[0])] = args[1]
		return c, nil
	}

	if _, found, err := callMethod(coll, init.AddMethod.Name, hostArgs(args)); found {
		return coll, err
	}
	return nil, fail(ast.KindListInit, ErrUnknownFunction, "%s", qualified(init.AddMethod))
}

func (in *interp) bind(obj any, b ast.MemberBinding, env *frame) error {
	name := b.BoundMember().Name

	switch b := b.(type) {
	case *ast.MemberAssignment:
		v, err := in.eval(b.Expr, env)
		if err != nil {
			return err
		}
		return setMember(obj, name, v)

	case *ast.MemberListBinding:
		current, err := memberValue(obj, name)
		if err != nil {
			return err
		}
		if current == nil {
			current = []any{}
		}
		for _, init := range b.Initializers {
			if current, err = in.addElement(current, init, env); err != nil {
				return err
			}
		}
		return setMember(obj, name, current)

	case *ast.MemberMemberBinding:
		current, err := memberValue(obj, name)
		if err != nil {
			return err
		}
		if current == nil {
			current = map[string]any{}
			if err := setMember(obj, name, current); err != nil {
				return err
			}
		}
		for _, child := range b.Bindings {
			if err := in.bind(current, child, env); err != nil {
				return err
			}
		}
		return nil
	}
	return &exprerrors.UnsupportedNodeKind{Kind: ast.Kind(b.BindingKind()), Reason: "unknown member binding variant"}
}

// hostArgs turns lambda values into Functions before they reach host code.
func hostArgs(args []any) []any {
	var out []any
	for i, a := range args {
		c, ok := a.(*closure)
		if !ok {
			continue
		}
		if out == nil {
			out = append([]any(nil), args...)
		}
		out[i] = c.function()
	}
	if out == nil {
		return args
	}
	return out
}

func qualified(m ast.MethodRef) string {
	if m.DeclaringType == "" {
		return m.Name
	}
	return string(m.DeclaringType) + "." + m.Name
}
