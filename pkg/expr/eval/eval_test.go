package eval

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"mercator-hq/predicate/pkg/expr/ast"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
)

type order struct {
	ID    string
	Total float64
	Items []string
	Tags  map[string]string
	note  string
}

func (o *order) Discounted() bool { return o.Total > 100 }

func (o *order) Over(limit float64) bool { return o.Total > limit }

func num(v int) *ast.Constant { return ast.Const(v, ast.TypeInt) }

func str(s string) *ast.Constant { return ast.Const(s, ast.TypeString) }

func mustCompile(t *testing.T, l *ast.Lambda, opts ...Option) *Program {
	t.Helper()
	p, err := Compile(l, opts...)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return p
}

// evalConst evaluates a parameterless body.
func evalConst(t *testing.T, body ast.Node, opts ...Option) (any, error) {
	t.Helper()
	return mustCompile(t, ast.NewLambda(body), opts...).Eval(context.Background())
}

func TestTestTruthTable(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	pred := ast.NewLambda(ast.AndAlso(ast.GreaterThan(x, num(0)), ast.LessThan(x, num(10))), x)
	prog := mustCompile(t, pred)

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

func TestShortCircuit(t *testing.T) {
	o := ast.NewParameter("o", "*order")
	total := ast.Field(o, "Total", ast.TypeFloat)
	zero := ast.Const(0.0, ast.TypeFloat)

	and := mustCompile(t, ast.NewLambda(ast.AndAlso(ast.NotEqual(o, ast.Null("*order")), ast.GreaterThan(total, zero)), o))
	or := mustCompile(t, ast.NewLambda(ast.OrElse(ast.Equal(o, ast.Null("*order")), ast.GreaterThan(total, zero)), o))

	tests := []struct {
		name  string
		prog  *Program
		input any
		want  bool
	}{
		{"and with typed nil", and, (*order)(nil), false},
		{"and with nil", and, nil, false},
		{"and with value", and, &order{Total: 5}, true},
		{"or with typed nil", or, (*order)(nil), true},
		{"or with value", or, &order{Total: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.prog.Test(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Test() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Test() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("right operand not evaluated", func(t *testing.T) {
		boom := ast.GreaterThan(ast.MakeBinary(ast.KindDivide, num(1), num(0)), num(0))
		got, err := evalConst(t, ast.AndAlso(ast.Const(false, ast.TypeBool), boom))
		if err != nil {
			t.Fatalf("Eval() error = %v", err)
		}
		if got != false {
			t.Errorf("Eval() = %v, want false", got)
		}
	})
}

func TestArithmetic(t *testing.T) {
	checked := func(op ast.Kind, l, r ast.Node) ast.Node {
		return &ast.Binary{Op: op, Left: l, Right: r, Checked: true, ResultType: ast.TypeInt}
	}
	maxInt := ast.Const(int64(math.MaxInt64), ast.TypeInt)

	tests := []struct {
		name    string
		node    ast.Node
		want    any
		wantErr error
	}{
		{"add", ast.MakeBinary(ast.KindAdd, num(2), num(3)), int64(5), nil},
		{"checked add overflow", checked(ast.KindAdd, maxInt, num(1)), nil, ErrOverflow},
		{"unchecked add wraps", ast.MakeBinary(ast.KindAdd, maxInt, num(1)), int64(math.MinInt64), nil},
		{"checked multiply overflow", checked(ast.KindMultiply, maxInt, num(2)), nil, ErrOverflow},
		{"checked subtract", checked(ast.KindSubtract, num(2), num(5)), int64(-3), nil},
		{"integer divide", ast.MakeBinary(ast.KindDivide, num(7), num(2)), int64(3), nil},
		{"divide by zero", ast.MakeBinary(ast.KindDivide, num(7), num(0)), nil, ErrDivideByZero},
		{"modulo by zero", ast.MakeBinary(ast.KindModulo, num(7), num(0)), nil, ErrDivideByZero},
		{"float divide", ast.MakeBinary(ast.KindDivide, ast.Const(7.0, ast.TypeFloat), num(2)), 3.5, nil},
		{"modulo", ast.MakeBinary(ast.KindModulo, num(7), num(3)), int64(1), nil},
		{"power", ast.MakeBinary(ast.KindPower, num(2), num(10)), int64(1024), nil},
		{"checked power overflow", checked(ast.KindPower, num(2), num(64)), nil, ErrOverflow},
		{"string concat", ast.MakeBinary(ast.KindAdd, str("a"), str("b")), "ab", nil},
		{"left shift", ast.MakeBinary(ast.KindLeftShift, num(1), num(4)), int64(16), nil},
		{"bitwise and", ast.MakeBinary(ast.KindAnd, num(6), num(3)), int64(2), nil},
		{"bool xor", ast.MakeBinary(ast.KindExclusiveOr, ast.Const(true, ast.TypeBool), ast.Const(true, ast.TypeBool)), false, nil},
		{"negate", ast.MakeUnary(ast.KindNegate, num(4), ast.TypeUnknown), int64(-4), nil},
		{"checked negate overflow", &ast.Unary{Op: ast.KindNegate, Operand: ast.Const(int64(math.MinInt64), ast.TypeInt), Checked: true}, nil, ErrOverflow},
		{"ones complement", ast.MakeUnary(ast.KindOnesComplement, num(0), ast.TypeUnknown), int64(-1), nil},
		{"type mismatch", ast.MakeBinary(ast.KindSubtract, str("a"), num(1)), nil, ErrTypeMismatch},
		{"null operand", ast.MakeBinary(ast.KindAdd, ast.Null(ast.TypeInt), num(1)), nil, ErrNilReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, tt.node)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Eval() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Eval() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestComparison(t *testing.T) {
	null := ast.Null(ast.TypeInt)
	lifted := &ast.Binary{Op: ast.KindLessThan, Left: null, Right: num(1), LiftToNull: true, ResultType: ast.TypeBool}

	tests := []struct {
		name    string
		node    ast.Node
		want    any
		wantErr error
	}{
		{"int equals float", ast.Equal(num(1), ast.Const(1.0, ast.TypeFloat)), true, nil},
		{"string order", ast.LessThan(str("a"), str("b")), true, nil},
		{"null equals null", ast.Equal(null, ast.Null(ast.TypeString)), true, nil},
		{"null not equal value", ast.NotEqual(null, num(0)), true, nil},
		{"null ordering", ast.LessThan(null, num(1)), false, nil},
		{"lifted null ordering", lifted, nil, nil},
		{"greater or equal", ast.MakeBinary(ast.KindGreaterThanOrEqual, num(3), num(3)), true, nil},
		{"incomparable", ast.LessThan(str("a"), num(1)), nil, ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, tt.node)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Eval() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	conv := func(v any, typ ast.TypeRef, checked bool) ast.Node {
		return &ast.Unary{Op: ast.KindConvert, Operand: ast.Const(v, ast.TypeAny), Checked: checked, ResultType: typ}
	}

	tests := []struct {
		name    string
		node    ast.Node
		want    any
		wantErr error
	}{
		{"float to int truncates", conv(3.9, ast.TypeInt, false), int64(3), nil},
		{"checked float overflow", conv(1e20, ast.TypeInt, true), nil, ErrOverflow},
		{"string to int", conv(" 42", ast.TypeInt, true), int64(42), nil},
		{"bad string to int", conv("4x", ast.TypeInt, false), nil, ErrTypeMismatch},
		{"int to string", conv(3, ast.TypeString, false), "3", nil},
		{"string to bool", conv("true", ast.TypeBool, false), true, nil},
		{"int to float", conv(2, ast.TypeFloat, false), 2.0, nil},
		{"checked int32 overflow", conv(int64(3_000_000_000), "int32", true), nil, ErrOverflow},
		{"unchecked int32 wraps", conv(int64(3_000_000_000), "int32", false), int64(-1294967296), nil},
		{"opaque type passes through", conv("v", "Money", true), "v", nil},
		{"type_as match", &ast.Unary{Op: ast.KindTypeAs, Operand: num(3), ResultType: ast.TypeInt}, 3, nil},
		{"type_as miss", &ast.Unary{Op: ast.KindTypeAs, Operand: str("3"), ResultType: ast.TypeInt}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, tt.node)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Eval() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Eval() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMembers(t *testing.T) {
	o := ast.NewParameter("o", ast.TypeAny)
	sample := &order{ID: "A-1", Total: 120, Tags: map[string]string{"tier": "gold"}, note: "secret"}

	tests := []struct {
		name    string
		node    ast.Node
		input   any
		want    any
		wantErr error
	}{
		{"struct field", ast.Field(o, "ID", ast.TypeString), sample, "A-1", nil},
		{"case-insensitive field", ast.Field(o, "total", ast.TypeFloat), sample, 120.0, nil},
		{"niladic method", ast.Field(o, "Discounted", ast.TypeBool), sample, true, nil},
		{"map key", ast.Field(o, "tier", ast.TypeString), map[string]string{"tier": "gold"}, "gold", nil},
		{"missing map key", ast.Field(o, "absent", ast.TypeString), map[string]any{}, nil, nil},
		{"nested", ast.Field(ast.Field(o, "Tags", "map[string]string"), "tier", ast.TypeString), sample, "gold", nil},
		{"unknown field", ast.Field(o, "Missing", ast.TypeString), sample, nil, ErrUnknownMember},
		{"unexported field", ast.Field(o, "note", ast.TypeString), sample, nil, ErrUnknownMember},
		{"nil receiver", ast.Field(o, "ID", ast.TypeString), (*order)(nil), nil, ErrNilReference},
		{"array length", ast.MakeUnary(ast.KindArrayLength, o, ast.TypeUnknown), []int{1, 2, 3}, int64(3), nil},
		{"index", ast.MakeBinary(ast.KindArrayIndex, o, num(1)), []string{"a", "b"}, "b", nil},
		{"index out of range", ast.MakeBinary(ast.KindArrayIndex, o, num(2)), []string{"a", "b"}, nil, ErrIndexOutOfRange},
		{"dynamic member", &ast.Dynamic{Binder: ast.BinderRef{Name: "Total", Operation: "get_member"}, Args: []ast.Node{o}}, sample, 120.0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustCompile(t, ast.NewLambda(tt.node, o))
			got, err := prog.Eval(context.Background(), tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Eval() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Eval() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCalls(t *testing.T) {
	o := ast.NewParameter("o", "*order")
	sample := &order{ID: "A-1", Total: 50, Items: []string{"pen", "ink"}}
	double := WithFunction("double", func(args ...any) (any, error) {
		v, _ := toInt64(args[0])
		return v * 2, nil
	})

	tests := []struct {
		name    string
		node    ast.Node
		opts    []Option
		want    any
		wantErr error
	}{
		{
			name: "builtin starts_with",
			node: ast.CallMethod(nil, "starts_with", ast.TypeBool, ast.Field(o, "ID", ast.TypeString), str("A-")),
			want: true,
		},
		{
			name: "builtin contains on slice",
			node: ast.CallMethod(nil, "contains", ast.TypeBool, ast.Field(o, "Items", "[]string"), str("ink")),
			want: true,
		},
		{
			name: "registered function",
			node: ast.CallMethod(nil, "double", ast.TypeInt, num(21)),
			opts: []Option{double},
			want: int64(42),
		},
		{
			name: "reflected method",
			node: ast.CallMethod(o, "Over", ast.TypeBool, num(10)),
			want: true,
		},
		{
			name:    "unknown function",
			node:    ast.CallMethod(nil, "nope", ast.TypeBool),
			wantErr: ErrUnknownFunction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustCompile(t, ast.NewLambda(tt.node, o), tt.opts...)
			got, err := prog.Eval(context.Background(), sample)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Eval() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Eval() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCallHostFunctionError(t *testing.T) {
	o := ast.NewParameter("o", "Order")
	call := &ast.Call{Object: o, Method: ast.MethodRef{Name: "Check", DeclaringType: "Order"}, ResultType: ast.TypeBool}
	cause := errors.New("backend down")

	prog := mustCompile(t, ast.NewLambda(call, o), WithFunction("Order.Check", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, ErrArgumentCount
		}
		return nil, cause
	}))

	_, err := prog.Eval(context.Background(), map[string]any{})
	if !errors.Is(err, cause) {
		t.Fatalf("Eval() error = %v, want %v", err, cause)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Kind != ast.KindCall {
		t.Errorf("error = %#v, want *EvaluationError for call", err)
	}

	_, err = prog.Eval(context.Background(), nil)
	if !errors.Is(err, ErrNilReference) {
		t.Errorf("Eval(nil) error = %v, want ErrNilReference", err)
	}
}

func TestConditionalEvaluatesTakenBranch(t *testing.T) {
	boom := ast.MakeBinary(ast.KindDivide, num(1), num(0))

	got, err := evalConst(t, ast.Cond(ast.Const(true, ast.TypeBool), num(1), boom))
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != 1 {
		t.Errorf("Eval() = %v, want 1", got)
	}

	_, err = evalConst(t, ast.Cond(num(1), num(1), num(2)))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("non-boolean test error = %v, want ErrTypeMismatch", err)
	}
}

func TestLambdas(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	item := ast.NewParameter("item", ast.TypeInt)
	inner := ast.NewLambda(ast.GreaterThan(item, x), item)

	t.Run("invoke captures scope", func(t *testing.T) {
		prog := mustCompile(t, ast.NewLambda(&ast.Invoke{Target: inner, Args: []ast.Node{num(5)}, ResultType: ast.TypeBool}, x))
		got, err := prog.Test(context.Background(), 3)
		if err != nil {
			t.Fatalf("Test() error = %v", err)
		}
		if !got {
			t.Error("Test() = false, want true")
		}
	})

	t.Run("lambda passed to host function", func(t *testing.T) {
		anyOf := WithFunction("any", func(args ...any) (any, error) {
			pred, ok := args[1].(Function)
			if !ok {
				return nil, ErrTypeMismatch
			}
			for _, v := range args[0].([]int) {
				ok, err := pred(v)
				if err != nil {
					return nil, err
				}
				if ok == true {
					return true, nil
				}
			}
			return false, nil
		})

		list := ast.NewParameter("list", "[]int")
		prog := mustCompile(t, ast.NewLambda(ast.CallMethod(nil, "any", ast.TypeBool, list, inner), list, x), anyOf)

		tests := []struct {
			list []int
			x    int
			want bool
		}{
			{[]int{1, 2, 9}, 5, true},
			{[]int{1, 2}, 5, false},
			{nil, 0, false},
		}
		for _, tt := range tests {
			got, err := prog.Test(context.Background(), tt.list, tt.x)
			if err != nil {
				t.Fatalf("Test(%v, %d) error = %v", tt.list, tt.x, err)
			}
			if got != tt.want {
				t.Errorf("Test(%v, %d) = %v, want %v", tt.list, tt.x, got, tt.want)
			}
		}
	})

	t.Run("quote", func(t *testing.T) {
		quoted := &ast.Invoke{Target: ast.MakeUnary(ast.KindQuote, inner, ast.TypeUnknown), Args: []ast.Node{num(1)}, ResultType: ast.TypeBool}
		prog := mustCompile(t, ast.NewLambda(quoted, x))
		got, err := prog.Test(context.Background(), 3)
		if err != nil {
			t.Fatalf("Test() error = %v", err)
		}
		if got {
			t.Error("Test() = true, want false")
		}
	})
}

func TestBlockAssignment(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	tmp := ast.NewParameter("tmp", ast.TypeInt)

	block := &ast.Block{
		Variables: []*ast.Parameter{tmp},
		Exprs: []ast.Node{
			&ast.Binary{Op: ast.KindAssign, Left: tmp, Right: ast.MakeBinary(ast.KindAdd, x, num(1)), ResultType: ast.TypeInt},
			ast.MakeUnary(ast.KindPostIncrementAssign, tmp, ast.TypeUnknown),
			&ast.Binary{Op: ast.KindMultiplyAssign, Left: tmp, Right: num(10), ResultType: ast.TypeInt},
			tmp,
		},
		ResultType: ast.TypeInt,
	}

	got, err := mustCompile(t, ast.NewLambda(block, x)).Eval(context.Background(), 1)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != int64(30) {
		t.Errorf("Eval() = %#v, want 30", got)
	}

	defaults := &ast.Block{Variables: []*ast.Parameter{tmp}, Exprs: []ast.Node{tmp}}
	got, err = evalConst(t, defaults)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != int64(0) {
		t.Errorf("uninitialised local = %#v, want 0", got)
	}
}

func TestConstruction(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)

	memberInit := &ast.MemberInit{
		New: &ast.New{ResultType: "Order"},
		Bindings: []ast.MemberBinding{
			&ast.MemberAssignment{Member: ast.MemberRef{Name: "ID"}, Expr: str("A-1")},
			&ast.MemberListBinding{
				Member:       ast.MemberRef{Name: "Items"},
				Initializers: []*ast.ElementInit{{AddMethod: ast.MethodRef{Name: "Add"}, Args: []ast.Node{str("pen")}}},
			},
			&ast.MemberMemberBinding{
				Member:   ast.MemberRef{Name: "Ship"},
				Bindings: []ast.MemberBinding{&ast.MemberAssignment{Member: ast.MemberRef{Name: "Zip"}, Expr: x}},
			},
		},
	}

	tests := []struct {
		name string
		node ast.Node
		want any
	}{
		{
			name: "member init",
			node: memberInit,
			want: map[string]any{
				"ID":    "A-1",
				"Items": []any{"pen"},
				"Ship":  map[string]any{"Zip": 7},
			},
		},
		{
			name: "new with members",
			node: &ast.New{Args: []ast.Node{x}, Members: []ast.MemberRef{{Name: "Qty"}}, ResultType: "Line"},
			want: map[string]any{"Qty": 7},
		},
		{
			name: "list init",
			node: &ast.ListInit{
				New: &ast.New{ResultType: "[]int"},
				Initializers: []*ast.ElementInit{
					{AddMethod: ast.MethodRef{Name: "Add"}, Args: []ast.Node{num(1)}},
					{AddMethod: ast.MethodRef{Name: "Add"}, Args: []ast.Node{x}},
				},
			},
			want: []any{1, 7},
		},
		{
			name: "map init",
			node: &ast.ListInit{
				New:          &ast.New{ResultType: "map[string]int"},
				Initializers: []*ast.ElementInit{{AddMethod: ast.MethodRef{Name: "Add"}, Args: []ast.Node{str("k"), x}}},
			},
			want: map[any]any{"k": 7},
		},
		{
			name: "array init",
			node: &ast.NewArray{Op: ast.KindNewArrayInit, ElementType: ast.TypeInt, Exprs: []ast.Node{x, num(2)}},
			want: []any{7, 2},
		},
		{
			name: "array bounds",
			node: &ast.NewArray{Op: ast.KindNewArrayBounds, ElementType: ast.TypeInt, Exprs: []ast.Node{num(2), num(1)}},
			want: []any{[]any{int64(0)}, []any{int64(0)}},
		},
		{
			name: "default",
			node: &ast.Default{ResultType: ast.TypeString},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mustCompile(t, ast.NewLambda(tt.node, x)).Eval(context.Background(), 7)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Eval() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCoalesce(t *testing.T) {
	s := ast.NewParameter("s", ast.TypeString)
	l := ast.NewParameter("l", ast.TypeString)
	plain := &ast.Binary{Op: ast.KindCoalesce, Left: s, Right: str("none"), ResultType: ast.TypeString}
	converted := &ast.Binary{
		Op:         ast.KindCoalesce,
		Left:       s,
		Right:      str("none"),
		Conversion: ast.NewLambda(ast.MakeBinary(ast.KindAdd, l, str("!")), l),
		ResultType: ast.TypeString,
	}

	tests := []struct {
		name  string
		node  ast.Node
		input any
		want  any
	}{
		{"null takes right", plain, nil, "none"},
		{"value kept", plain, "a", "a"},
		{"conversion applied", converted, "a", "a!"},
		{"conversion skipped for null", converted, nil, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mustCompile(t, ast.NewLambda(tt.node, s)).Eval(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestTypeTests(t *testing.T) {
	v := ast.NewParameter("v", ast.TypeAny)
	is := func(typ ast.TypeRef) ast.Node { return &ast.TypeBinary{Op: ast.KindTypeIs, Expr: v, TypeOperand: typ} }
	equal := func(typ ast.TypeRef) ast.Node { return &ast.TypeBinary{Op: ast.KindTypeEqual, Expr: v, TypeOperand: typ} }

	tests := []struct {
		name  string
		node  ast.Node
		input any
		want  bool
	}{
		{"int family", is(ast.TypeInt), int32(3), true},
		{"not string", is(ast.TypeString), 3, false},
		{"any", is(ast.TypeAny), "x", true},
		{"null is nothing", is(ast.TypeAny), nil, false},
		{"exact pointer type", equal("*eval.order"), &order{}, true},
		{"exact excludes family", equal(ast.TypeInt), int64(3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mustCompile(t, ast.NewLambda(tt.node, v)).Test(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Test() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Test() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	free := ast.NewParameter("limit", ast.TypeInt)

	tests := []struct {
		name    string
		lambda  *ast.Lambda
		wantErr error
	}{
		{"nil lambda", nil, ErrNilReference},
		{"statement", ast.NewLambda(ast.Cond(ast.Const(true, ast.TypeBool), x, &ast.Statement{Op: ast.KindThrow}), x), exprerrors.ErrUnsupportedNodeKind},
		{"free parameter", ast.NewLambda(ast.LessThan(x, free), x), ErrUnboundParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.lambda)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compile() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFreeParameters(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	item := ast.NewParameter("item", ast.TypeInt)
	limit := ast.NewParameter("limit", ast.TypeInt)

	body := ast.AndAlso(
		ast.LessThan(x, limit),
		&ast.Invoke{Target: ast.NewLambda(ast.LessThan(item, limit), item), Args: []ast.Node{x}, ResultType: ast.TypeBool},
	)
	free := FreeParameters(ast.NewLambda(body, x))
	if len(free) != 1 || !free[0].Same(limit) {
		t.Errorf("FreeParameters() = %v, want [limit]", free)
	}
}

func TestEvalErrors(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	prog := mustCompile(t, ast.NewLambda(ast.MakeBinary(ast.KindAdd, x, num(1)), x))

	if _, err := prog.Eval(context.Background()); !errors.Is(err, ErrArgumentCount) {
		t.Errorf("Eval() without args error = %v, want ErrArgumentCount", err)
	}
	if _, err := prog.Test(context.Background(), 1); !errors.Is(err, ErrNotBoolean) {
		t.Errorf("Test() on int body error = %v, want ErrNotBoolean", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := prog.Eval(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Eval() with cancelled context error = %v, want context.Canceled", err)
	}

	limited := mustCompile(t, ast.NewLambda(ast.MakeBinary(ast.KindAdd, x, num(1)), x), WithMaxSteps(2))
	if _, err := limited.Eval(context.Background(), 1); !errors.Is(err, ErrStepLimit) {
		t.Errorf("Eval() over step limit error = %v, want ErrStepLimit", err)
	}
}

func TestStaticMembers(t *testing.T) {
	limit := &ast.Member{Member: ast.MemberRef{Name: "MaxQty", DeclaringType: "limits", Type: ast.TypeInt}}
	prog := mustCompile(t, ast.NewLambda(limit), WithGlobal("limits.MaxQty", 99))

	got, err := prog.Eval(context.Background())
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != 99 {
		t.Errorf("Eval() = %v, want 99", got)
	}

	_, err = evalConst(t, limit)
	if !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Eval() without global error = %v, want ErrUnknownMember", err)
	}
}
