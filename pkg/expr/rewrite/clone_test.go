package rewrite

import (
	"errors"
	"math"
	"strings"
	"testing"

	"mercator-hq/predicate/pkg/expr/ast"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
)

// fixture holds the locals of the sample tree so that two trees built from
// the same fixture share their inner bindings.
type fixture struct {
	item   *ast.Parameter
	tmp    *ast.Parameter
	lhs    *ast.Parameter
	method *ast.MethodRef
	order  ast.TypeRef
}

func newFixture() *fixture {
	return &fixture{
		item:   ast.NewParameter("item", ast.TypeInt),
		tmp:    ast.NewParameter("tmp", ast.TypeInt),
		lhs:    ast.NewParameter("l", ast.TypeInt),
		method: &ast.MethodRef{Name: "Add", DeclaringType: "Money", Static: true},
		order:  "*Order",
	}
}

// build returns a tree that uses every variant and references p throughout.
func (f *fixture) build(p *ast.Parameter) ast.Node {
	one := ast.Const(1, ast.TypeInt)
	list := &ast.New{ResultType: "[]int"}

	return ast.AndAlso(ast.AndAlso(
		ast.GreaterThan(
			&ast.Binary{Op: ast.KindAdd, Left: p, Right: one, Checked: true, Method: f.method, ResultType: ast.TypeInt},
			&ast.Unary{Op: ast.KindConvert, Operand: p, Checked: true, ResultType: ast.TypeInt},
		),
		ast.AndAlso(
			&ast.TypeBinary{Op: ast.KindTypeIs, Expr: p, TypeOperand: ast.TypeInt},
			ast.Equal(
				&ast.Call{
					Object:     ast.Field(p, "Value", ast.TypeInt),
					Method:     ast.MethodRef{Name: "Max", DeclaringType: ast.TypeInt},
					Args:       []ast.Node{p, &ast.Member{Member: ast.MemberRef{Name: "Limit", DeclaringType: "config", Type: ast.TypeInt}}},
					ResultType: ast.TypeInt,
				},
				ast.Cond(
					&ast.Invoke{
						Target:     ast.NewLambda(ast.GreaterThan(f.item, p), f.item),
						Args:       []ast.Node{p},
						ResultType: ast.TypeBool,
					},
					&ast.Block{
						Variables:  []*ast.Parameter{f.tmp},
						Exprs:      []ast.Node{&ast.Binary{Op: ast.KindAssign, Left: f.tmp, Right: p, ResultType: ast.TypeInt}, f.tmp},
						ResultType: ast.TypeInt,
					},
					&ast.Binary{
						Op:         ast.KindCoalesce,
						Left:       &ast.Dynamic{Binder: ast.BinderRef{Name: "b", Operation: "get_member"}, Args: []ast.Node{p}, ResultType: ast.TypeInt},
						Right:      &ast.Default{ResultType: ast.TypeInt},
						Conversion: ast.NewLambda(ast.MakeBinary(ast.KindMultiply, f.lhs, p), f.lhs),
						ResultType: ast.TypeInt,
					},
				),
			),
		)),
		ast.NotEqual(
			&ast.MemberInit{
				New: &ast.New{Constructor: &ast.MethodRef{Name: "NewOrder"}, Args: []ast.Node{p}, Members: []ast.MemberRef{{Name: "ID"}}, ResultType: f.order},
				Bindings: []ast.MemberBinding{
					&ast.MemberAssignment{Member: ast.MemberRef{Name: "Qty", Type: ast.TypeInt}, Expr: p},
					&ast.MemberListBinding{
						Member:       ast.MemberRef{Name: "Tags", Type: "[]int"},
						Initializers: []*ast.ElementInit{{AddMethod: ast.MethodRef{Name: "Add"}, Args: []ast.Node{p}}},
					},
					&ast.MemberMemberBinding{
						Member: ast.MemberRef{Name: "Ship", Type: "Address"},
						Bindings: []ast.MemberBinding{
							&ast.MemberAssignment{Member: ast.MemberRef{Name: "Zip", Type: ast.TypeInt}, Expr: p},
						},
					},
				},
			},
			&ast.ListInit{
				New: list,
				Initializers: []*ast.ElementInit{
					{AddMethod: ast.MethodRef{Name: "Add"}, Args: []ast.Node{
						&ast.NewArray{Op: ast.KindNewArrayInit, ElementType: ast.TypeInt, Exprs: []ast.Node{p, one}},
					}},
					{AddMethod: ast.MethodRef{Name: "Add"}, Args: []ast.Node{
						&ast.NewArray{Op: ast.KindNewArrayBounds, ElementType: ast.TypeInt, Exprs: []ast.Node{p}},
					}},
				},
			},
		),
	)
}

func references(node ast.Node, p *ast.Parameter) int {
	n := 0
	for _, q := range ast.Parameters(node) {
		if q.Same(p) {
			n++
		}
	}
	return n
}

func TestCloneStructuralPreservation(t *testing.T) {
	f := newFixture()
	x := ast.NewParameter("x", ast.TypeInt)
	original := f.build(x)

	out, err := CloneWithSubstitution(original, ParameterMap{})
	if err != nil {
		t.Fatalf("CloneWithSubstitution() error = %v", err)
	}
	if !ast.DeepEqual(out, original) {
		t.Errorf("clone with empty map differs:\n got: %s\nwant: %s", ast.Format(out), ast.Format(original))
	}
	if out == original {
		t.Error("clone should be a new tree")
	}
}

func TestCloneSubstitution(t *testing.T) {
	f := newFixture()
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	original := f.build(x)

	m, err := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})
	if err != nil {
		t.Fatalf("Zip() error = %v", err)
	}

	out, stats, err := NewCloner().CloneWithStats(original, m)
	if err != nil {
		t.Fatalf("CloneWithStats() error = %v", err)
	}

	if !ast.DeepEqual(out, f.build(y)) {
		t.Errorf("substituted clone differs:\n got: %s\nwant: %s", ast.Format(out), ast.Format(f.build(y)))
	}
	if n := references(out, x); n != 0 {
		t.Errorf("clone still references x %d time(s)", n)
	}

	want := references(original, x)
	if got := references(out, y); got != want {
		t.Errorf("references to y = %d, want %d", got, want)
	}
	if stats.Substituted != want {
		t.Errorf("Stats.Substituted = %d, want %d", stats.Substituted, want)
	}
	if stats.Nodes == 0 || stats.Depth == 0 {
		t.Errorf("Stats = %+v, want non-zero nodes and depth", stats)
	}
}

func TestCloneDoesNotMutateInput(t *testing.T) {
	f := newFixture()
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	original := f.build(x)
	before := ast.FormatWithIDs(original)

	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})
	if _, err := CloneWithSubstitution(original, m); err != nil {
		t.Fatalf("CloneWithSubstitution() error = %v", err)
	}

	if after := ast.FormatWithIDs(original); after != before {
		t.Errorf("input modified:\nbefore: %s\n after: %s", before, after)
	}
	if !ast.DeepEqual(original, f.build(x)) {
		t.Error("input no longer equals a freshly built tree")
	}
}

func TestCloneSharesConstants(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})

	tests := []struct {
		name  string
		value any
		typ   ast.TypeRef
	}{
		{"zero", 0, ast.TypeInt},
		{"negative", -1, ast.TypeInt},
		{"max int", int64(math.MaxInt64), ast.TypeInt},
		{"min int", int64(math.MinInt64), ast.TypeInt},
		{"negative zero", math.Copysign(0, -1), ast.TypeFloat},
		{"empty string", "", ast.TypeString},
		{"whitespace string", " \t", ast.TypeString},
		{"false", false, ast.TypeBool},
		{"null", nil, "*Order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ast.Const(tt.value, tt.typ)
			out, err := CloneWithSubstitution(ast.Equal(x, c), m)
			if err != nil {
				t.Fatalf("CloneWithSubstitution() error = %v", err)
			}
			b := out.(*ast.Binary)
			if b.Right != ast.Node(c) {
				t.Error("constant should be shared with the input")
			}
			if b.Left != ast.Node(y) {
				t.Error("parameter should be replaced by the target instance")
			}
		})
	}
}

func TestCloneSharesUnmappedParameters(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	free := ast.NewParameter("limit", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})

	out, stats, err := NewCloner().CloneWithStats(ast.LessThan(x, free), m)
	if err != nil {
		t.Fatalf("CloneWithStats() error = %v", err)
	}
	if out.(*ast.Binary).Right != ast.Node(free) {
		t.Error("unmapped parameter should be shared")
	}
	if stats.Shared != 1 {
		t.Errorf("Stats.Shared = %d, want 1", stats.Shared)
	}
}

func TestClonePreservesFlags(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})
	method := &ast.MethodRef{Name: "Cmp", DeclaringType: "Money", Static: true}

	in := &ast.Binary{
		Op:         ast.KindLessThan,
		Left:       x,
		Right:      ast.Const(3, ast.TypeInt),
		LiftToNull: true,
		Method:     method,
		ResultType: ast.TypeBool,
	}
	out, err := CloneWithSubstitution(in, m)
	if err != nil {
		t.Fatalf("CloneWithSubstitution() error = %v", err)
	}

	b := out.(*ast.Binary)
	if !b.LiftToNull {
		t.Error("LiftToNull lost")
	}
	if b.Method == method {
		t.Error("method reference should be copied, not aliased")
	}
	if b.Method == nil || *b.Method != *method {
		t.Errorf("Method = %v, want %v", b.Method, method)
	}

	checked := []ast.Kind{ast.KindAdd, ast.KindSubtract, ast.KindMultiply}
	for _, k := range checked {
		for _, flag := range []bool{false, true} {
			in := &ast.Binary{Op: k, Left: x, Right: x, Checked: flag, ResultType: ast.TypeInt}
			out, err := CloneWithSubstitution(in, m)
			if err != nil {
				t.Fatalf("CloneWithSubstitution(%s) error = %v", k, err)
			}
			if got := out.(*ast.Binary).Checked; got != flag {
				t.Errorf("%s Checked = %v, want %v", k, got, flag)
			}
		}
	}
}

func TestCloneSubstitutesElseBranch(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})

	in := ast.Cond(ast.GreaterThan(x, ast.Const(0, ast.TypeInt)), x, ast.Not(x))
	out, err := CloneWithSubstitution(in, m)
	if err != nil {
		t.Fatalf("CloneWithSubstitution() error = %v", err)
	}

	c := out.(*ast.Conditional)
	if n := references(c.IfFalse, y); n != 1 {
		t.Errorf("else branch references to y = %d, want 1", n)
	}
	if n := references(c.IfFalse, x); n != 0 {
		t.Errorf("else branch references to x = %d, want 0", n)
	}
}

func TestCloneNestedLambdaShadowing(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})

	// The inner lambda rebinds x itself, so its body keeps x.
	inner := ast.NewLambda(ast.GreaterThan(x, ast.Const(1, ast.TypeInt)), x)
	in := ast.AndAlso(
		ast.GreaterThan(x, ast.Const(0, ast.TypeInt)),
		&ast.Invoke{Target: inner, Args: []ast.Node{x}, ResultType: ast.TypeBool},
	)

	out, err := CloneWithSubstitution(in, m)
	if err != nil {
		t.Fatalf("CloneWithSubstitution() error = %v", err)
	}

	call := out.(*ast.Binary).Right.(*ast.Invoke)
	if call.Args[0] != ast.Node(y) {
		t.Error("invocation argument should be substituted")
	}
	lambda := call.Target.(*ast.Lambda)
	if !lambda.Params[0].Same(x) {
		t.Error("nested lambda parameter should be kept")
	}
	if n := references(lambda.Body, x); n != 1 {
		t.Errorf("nested body references to x = %d, want 1", n)
	}
	if lambda == inner {
		t.Error("nested lambda should be reconstructed")
	}
}

func TestCloneBlockShadowing(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})

	in := &ast.Block{Variables: []*ast.Parameter{x}, Exprs: []ast.Node{x}}
	out, err := CloneWithSubstitution(in, m)
	if err != nil {
		t.Fatalf("CloneWithSubstitution() error = %v", err)
	}
	if out.(*ast.Block).Exprs[0] != ast.Node(x) {
		t.Error("block local should not be substituted")
	}
}

func TestCloneRenamesCapturingBinders(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{y}, []*ast.Parameter{x})

	t.Run("lambda", func(t *testing.T) {
		// (x => x < y)(1): after y becomes x, the inner x must not capture it.
		inner := ast.NewLambda(ast.LessThan(x, y), x)
		in := &ast.Invoke{Target: inner, Args: []ast.Node{ast.Const(1, ast.TypeInt)}, ResultType: ast.TypeBool}

		out, err := CloneWithSubstitution(in, m)
		if err != nil {
			t.Fatalf("CloneWithSubstitution() error = %v", err)
		}
		lambda := out.(*ast.Invoke).Target.(*ast.Lambda)
		fresh := lambda.Params[0]
		if fresh.Same(x) {
			t.Fatal("nested parameter kept the identity of a substitution target")
		}
		if fresh.Name != x.Name || fresh.ParameterType != x.ParameterType {
			t.Errorf("fresh parameter = %s %s, want %s %s", fresh.Name, fresh.ParameterType, x.Name, x.ParameterType)
		}
		body := lambda.Body.(*ast.Binary)
		if body.Left != ast.Node(fresh) {
			t.Error("inner reference should resolve to the fresh parameter")
		}
		if body.Right != ast.Node(x) {
			t.Error("substituted reference should resolve to the outer parameter")
		}
		if !inner.Params[0].Same(x) {
			t.Error("input lambda was modified")
		}
	})

	t.Run("block", func(t *testing.T) {
		assign := &ast.Binary{Op: ast.KindAssign, Left: x, Right: ast.Const(1, ast.TypeInt), ResultType: ast.TypeInt}
		in := &ast.Block{Variables: []*ast.Parameter{x}, Exprs: []ast.Node{assign, ast.LessThan(x, y)}, ResultType: ast.TypeBool}

		out, err := CloneWithSubstitution(in, m)
		if err != nil {
			t.Fatalf("CloneWithSubstitution() error = %v", err)
		}
		block := out.(*ast.Block)
		fresh := block.Variables[0]
		if fresh.Same(x) {
			t.Fatal("block variable kept the identity of a substitution target")
		}
		if block.Exprs[0].(*ast.Binary).Left != ast.Node(fresh) {
			t.Error("assignment should target the fresh variable")
		}
		cmp := block.Exprs[1].(*ast.Binary)
		if cmp.Left != ast.Node(fresh) || cmp.Right != ast.Node(x) {
			t.Errorf("comparison = %v < %v, want fresh < outer", cmp.Left, cmp.Right)
		}
		if !in.Variables[0].Same(x) {
			t.Error("input block was modified")
		}
	})
}

func TestCloneErrorReturnsUntypedNil(t *testing.T) {
	throw := &ast.Statement{Op: ast.KindThrow, ResultType: ast.TypeBool}
	tests := []struct {
		name string
		node ast.Node
	}{
		{"lambda", ast.NewLambda(throw)},
		{"constructor", &ast.New{Args: []ast.Node{throw}, ResultType: "*Order"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &run{}
			out, err := r.node(tt.node, ParameterMap{})
			if err == nil {
				t.Fatal("expected error")
			}
			if out != nil {
				t.Errorf("node() = %#v, want untyped nil", out)
			}
		})
	}
}

func TestCloneAbsentReceivers(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})

	static := &ast.Call{Method: ast.MethodRef{Name: "Abs", DeclaringType: "math", Static: true}, Args: []ast.Node{x}, ResultType: ast.TypeInt}
	field := &ast.Member{Member: ast.MemberRef{Name: "MaxQty", DeclaringType: "limits", Type: ast.TypeInt}}

	out, err := CloneWithSubstitution(ast.LessThan(static, field), m)
	if err != nil {
		t.Fatalf("CloneWithSubstitution() error = %v", err)
	}

	b := out.(*ast.Binary)
	call := b.Left.(*ast.Call)
	if call.Object != nil {
		t.Errorf("static call Object = %v, want nil", call.Object)
	}
	if call.Args[0] != ast.Node(y) {
		t.Error("static call argument should be substituted")
	}
	if b.Right.(*ast.Member).Object != nil {
		t.Error("static member Object should stay nil")
	}
}

func TestCloneNilNode(t *testing.T) {
	out, err := CloneWithSubstitution(nil, ParameterMap{})
	if err != nil || out != nil {
		t.Errorf("CloneWithSubstitution(nil) = %v, %v; want nil, nil", out, err)
	}
}

func TestCloneUnsupportedNodeKind(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	throw := &ast.Statement{Op: ast.KindThrow, Operands: []ast.Node{ast.Const("boom", ast.TypeString)}, ResultType: ast.TypeBool}

	tests := []struct {
		name string
		node ast.Node
		kind ast.Kind
	}{
		{
			name: "root statement",
			node: throw,
			kind: ast.KindThrow,
		},
		{
			name: "unreachable else branch",
			node: ast.Cond(ast.Const(true, ast.TypeBool), x, throw),
			kind: ast.KindThrow,
		},
		{
			name: "nested lambda body",
			node: &ast.Invoke{Target: ast.NewLambda(throw, x), Args: []ast.Node{x}, ResultType: ast.TypeBool},
			kind: ast.KindThrow,
		},
		{
			name: "member binding",
			node: &ast.MemberInit{
				New:      &ast.New{ResultType: "Order"},
				Bindings: []ast.MemberBinding{&ast.MemberAssignment{Member: ast.MemberRef{Name: "OK"}, Expr: throw}},
			},
			kind: ast.KindThrow,
		},
		{
			name: "loop",
			node: ast.AndAlso(x, &ast.Statement{Op: ast.KindLoop, Operands: []ast.Node{x}}),
			kind: ast.KindLoop,
		},
		{
			name: "binary with call tag",
			node: &ast.Binary{Op: ast.KindCall, Left: x, Right: x},
			kind: ast.KindCall,
		},
		{
			name: "unary with unknown tag",
			node: &ast.Unary{Op: "frobnicate", Operand: x},
			kind: "frobnicate",
		},
		{
			name: "type test with comparison tag",
			node: &ast.TypeBinary{Op: ast.KindEqual, Expr: x},
			kind: ast.KindEqual,
		},
		{
			name: "array with wrong tag",
			node: &ast.NewArray{Op: ast.KindNew, ElementType: ast.TypeInt},
			kind: ast.KindNew,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := CloneWithSubstitution(tt.node, ParameterMap{})
			if out != nil {
				t.Error("no partial tree should be returned on error")
			}
			if !errors.Is(err, exprerrors.ErrUnsupportedNodeKind) {
				t.Fatalf("error = %v, want ErrUnsupportedNodeKind", err)
			}
			var unsupported *exprerrors.UnsupportedNodeKind
			if !errors.As(err, &unsupported) {
				t.Fatalf("error type = %T, want *UnsupportedNodeKind", err)
			}
			if unsupported.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", unsupported.Kind, tt.kind)
			}
		})
	}
}

func chain(depth int, leaf ast.Node) ast.Node {
	n := leaf
	for i := 0; i < depth; i++ {
		n = ast.Not(n)
	}
	return n
}

func TestCloneDepthLimit(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeBool)
	tree := chain(10, x) // 11 levels including the leaf

	tests := []struct {
		name    string
		limit   int
		wantErr bool
	}{
		{"below", 10, true},
		{"exact", 11, false},
		{"above", 12, false},
		{"unlimited", 0, false},
		{"negative is unlimited", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCloner(WithMaxDepth(tt.limit))
			_, stats, err := c.CloneWithStats(tree, ParameterMap{})
			if tt.wantErr {
				if !errors.Is(err, exprerrors.ErrDepthExceeded) {
					t.Fatalf("error = %v, want ErrDepthExceeded", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CloneWithStats() error = %v", err)
			}
			if stats.Depth != 11 {
				t.Errorf("Stats.Depth = %d, want 11", stats.Depth)
			}
		})
	}
}

func TestCloneDeepTreeUnlimited(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeBool)
	y := ast.NewParameter("y", ast.TypeBool)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})

	out, err := NewCloner(WithMaxDepth(0)).Clone(chain(DefaultMaxDepth*2, x), m)
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if n := references(out, y); n != 1 {
		t.Errorf("references to y = %d, want 1", n)
	}
}

func TestCloneDefaultDepthLimit(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeBool)
	_, err := CloneWithSubstitution(chain(DefaultMaxDepth, x), ParameterMap{})
	if !errors.Is(err, exprerrors.ErrDepthExceeded) {
		t.Fatalf("error = %v, want ErrDepthExceeded", err)
	}
	if !strings.Contains(err.Error(), "4096") {
		t.Errorf("error = %q, want the limit in the message", err.Error())
	}
}

func TestCloneElementInit(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})
	k := ast.Const("key", ast.TypeString)

	in := &ast.ElementInit{AddMethod: ast.MethodRef{Name: "Set", DeclaringType: "map[string]int"}, Args: []ast.Node{k, x}}
	out, err := CloneElementInit(in, m)
	if err != nil {
		t.Fatalf("CloneElementInit() error = %v", err)
	}
	if out == in {
		t.Error("initializer should be reconstructed")
	}
	if out.AddMethod != in.AddMethod {
		t.Errorf("AddMethod = %v, want %v", out.AddMethod, in.AddMethod)
	}
	if out.Args[0] != ast.Node(k) || out.Args[1] != ast.Node(y) {
		t.Error("arguments not cloned with substitution")
	}
	if in.Args[1] != ast.Node(x) {
		t.Error("input initializer modified")
	}

	bad := &ast.ElementInit{Args: []ast.Node{&ast.Statement{Op: ast.KindGoto}}}
	if _, err := CloneElementInit(bad, m); !errors.Is(err, exprerrors.ErrUnsupportedNodeKind) {
		t.Errorf("CloneElementInit(goto) error = %v, want ErrUnsupportedNodeKind", err)
	}
}

func TestCloneMemberBinding(t *testing.T) {
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})

	tests := []struct {
		name    string
		binding ast.MemberBinding
	}{
		{
			name:    "assignment",
			binding: &ast.MemberAssignment{Member: ast.MemberRef{Name: "Qty"}, Expr: x},
		},
		{
			name: "list binding",
			binding: &ast.MemberListBinding{
				Member:       ast.MemberRef{Name: "Items"},
				Initializers: []*ast.ElementInit{{AddMethod: ast.MethodRef{Name: "Add"}, Args: []ast.Node{x}}},
			},
		},
		{
			name: "member binding",
			binding: &ast.MemberMemberBinding{
				Member: ast.MemberRef{Name: "Ship"},
				Bindings: []ast.MemberBinding{
					&ast.MemberAssignment{Member: ast.MemberRef{Name: "Zip"}, Expr: x},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := CloneMemberBinding(tt.binding, m)
			if err != nil {
				t.Fatalf("CloneMemberBinding() error = %v", err)
			}
			if out.BindingKind() != tt.binding.BindingKind() {
				t.Errorf("BindingKind() = %q, want %q", out.BindingKind(), tt.binding.BindingKind())
			}
			if out.BoundMember() != tt.binding.BoundMember() {
				t.Errorf("BoundMember() = %v, want %v", out.BoundMember(), tt.binding.BoundMember())
			}

			// Wrap in a MemberInit so the shared helpers can inspect it.
			wrapped := &ast.MemberInit{New: &ast.New{}, Bindings: []ast.MemberBinding{out}}
			if n := references(wrapped, y); n != 1 {
				t.Errorf("references to y = %d, want 1", n)
			}
			if n := references(wrapped, x); n != 0 {
				t.Errorf("references to x = %d, want 0", n)
			}
		})
	}
}

func TestClonerConcurrentUse(t *testing.T) {
	f := newFixture()
	x := ast.NewParameter("x", ast.TypeInt)
	y := ast.NewParameter("y", ast.TypeInt)
	m, _ := Zip([]*ast.Parameter{x}, []*ast.Parameter{y})
	tree := f.build(x)
	want := f.build(y)
	c := NewCloner()

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			out, err := c.Clone(tree, m)
			if err == nil && !ast.DeepEqual(out, want) {
				err = errors.New("concurrent clone differs")
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
