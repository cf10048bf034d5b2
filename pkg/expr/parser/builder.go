package parser

import (
	"fmt"
	"slices"
	"strings"

	"mercator-hq/predicate/pkg/expr/ast"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"

	"gopkg.in/yaml.v3"
)

const checkedSuffix = "_checked"

// Keys accepted at the top of a predicate document.
var documentKeys = []string{"name", "description", "tags", "parameters", "body", "type", "tests"}

// Keys accepted by each family of nodes, in addition to "kind".
var (
	binaryKeys      = []string{"left", "right", "checked", "lift_to_null", "method", "conversion", "type"}
	unaryKeys       = []string{"operand", "checked", "method", "type"}
	typeTestKeys    = []string{"operand", "type"}
	callKeys        = []string{"object", "method", "args", "type"}
	invokeKeys      = []string{"target", "args", "type"}
	memberKeys      = []string{"object", "member", "type"}
	newKeys         = []string{"constructor", "args", "members", "type"}
	arrayInitKeys   = []string{"elements", "type"}
	arrayBoundsKeys = []string{"bounds", "type"}
	listInitKeys    = []string{"new", "initializers"}
	memberInitKeys  = []string{"new", "bindings"}
	conditionalKeys = []string{"test", "if_true", "if_false", "type"}
	lambdaKeys      = []string{"name", "parameters", "body", "type"}
	blockKeys       = []string{"variables", "expressions", "type"}
	dynamicKeys     = []string{"binder", "args", "type"}
	parameterKeys   = []string{"name", "type"}
	constantKeys    = []string{"value", "type"}
	defaultKeys     = []string{"type"}
	statementKeys   = []string{"operands", "label", "type"}

	declarationKeys = []string{"name", "type", "by_ref"}
	initializerKeys = []string{"method", "args"}
	bindingKeys     = []string{"member", "expression", "initializers", "bindings"}
	methodKeys      = []string{"name", "declaring_type", "static"}
	memberRefKeys   = []string{"name", "declaring_type", "type"}
	binderKeys      = []string{"name", "operation"}
	testKeys        = []string{"name", "args", "expect"}
)

// builder constructs expression trees from YAML nodes.
// It resolves parameter names lexically and collects every error it finds
// together with its source location.
type builder struct {
	sourcePath string
	errors     *exprerrors.ErrorList

	scopes   []map[string]*ast.Parameter
	free     map[string]*ast.Parameter
	freeList []*ast.Parameter

	depth    int
	maxDepth int
}

// newBuilder creates a new tree builder for the given source file.
func newBuilder(sourcePath string, maxDepth int) *builder {
	return &builder{
		sourcePath: sourcePath,
		errors:     exprerrors.NewErrorList(),
		free:       make(map[string]*ast.Parameter),
		maxDepth:   maxDepth,
	}
}

// document builds a Document from the root of a YAML file.
func (b *builder) document(root *yaml.Node) *Document {
	f, ok := mapping(root)
	if !ok {
		b.structural(root, "", "Predicate document must be a mapping")
		return nil
	}
	b.checkKeys(f, "", "document", documentKeys)

	doc := &Document{Source: b.sourcePath}
	doc.Name = b.optionalString(f, "name", "")
	doc.Description = b.optionalString(f, "description", "")
	doc.Tags = b.stringList(f, "tags", "")

	params := b.declarations(f, "parameters", "")
	body, ok := f.get("body")
	if !ok {
		b.errors.Add(exprerrors.ErrorTypeStructural, b.loc(f.node, ""),
			"Predicate document has no body",
			exprerrors.SuggestMissingKey("body", "{kind: constant, value: true}"))
		return nil
	}

	b.push(params)
	lambda := &ast.Lambda{
		Name:       doc.Name,
		Params:     params,
		Body:       b.node(body, "body"),
		ReturnType: ast.TypeRef(b.optionalString(f, "type", "")),
	}
	b.pop()

	doc.Lambda = lambda
	doc.Free = b.freeList
	doc.Tests = b.tests(f, len(params))
	return doc
}

// tests builds the examples section of a document.
func (b *builder) tests(f *fields, arity int) []Test {
	n, ok := f.get("tests")
	if !ok {
		return nil
	}
	if !isSequence(n) {
		b.structural(n, "tests", "'tests' must be a list")
		return nil
	}

	tests := make([]Test, 0, len(n.Content))
	for i, item := range n.Content {
		path := index("tests", i)
		tf, ok := mapping(item)
		if !ok {
			b.structural(item, path, "Test must be a mapping")
			continue
		}
		b.checkKeys(tf, path, "test", testKeys)

		test := Test{Name: b.optionalString(tf, "name", path)}
		if test.Name == "" {
			test.Name = fmt.Sprintf("test %d", i+1)
		}
		if argsNode, ok := tf.get("args"); ok {
			if !isSequence(argsNode) {
				b.structural(argsNode, join(path, "args"), "'args' must be a list")
				continue
			}
			for j, arg := range argsNode.Content {
				var v any
				if err := arg.Decode(&v); err != nil {
					b.structural(arg, index(join(path, "args"), j), "Invalid argument: %v", err)
					continue
				}
				test.Args = append(test.Args, v)
			}
		}
		if len(test.Args) != arity {
			b.semantic(item, path, "Test %q has %d argument(s), predicate takes %d", test.Name, len(test.Args), arity)
		}

		expect, ok := tf.get("expect")
		if !ok {
			b.missing(tf, path, "expect", "true")
			continue
		}
		test.Expect = b.boolean(expect, join(path, "expect"))
		tests = append(tests, test)
	}
	return tests
}

// node builds one expression node. It returns nil after recording an error.
func (b *builder) node(n *yaml.Node, path string) ast.Node {
	b.depth++
	defer func() { b.depth-- }()
	if b.maxDepth > 0 && b.depth > b.maxDepth {
		b.semantic(n, path, "Expression nested deeper than %d levels", b.maxDepth)
		return nil
	}

	f, ok := mapping(n)
	if !ok {
		b.structural(n, path, "Expression must be a mapping with a 'kind' key")
		return nil
	}
	kindNode, ok := f.get("kind")
	if !ok {
		b.missing(f, path, "kind", "parameter")
		return nil
	}
	if !isScalar(kindNode) {
		b.structural(kindNode, join(path, "kind"), "'kind' must be a string")
		return nil
	}

	name := kindNode.Value
	kind, checked := ast.Kind(name), false
	if base := strings.TrimSuffix(name, checkedSuffix); base != name && ast.Kind(base).Checkable() {
		kind, checked = ast.Kind(base), true
	}
	if !kind.Valid() {
		b.errors.Add(exprerrors.ErrorTypeSemantic, b.loc(kindNode, join(path, "kind")),
			fmt.Sprintf("Unknown expression kind %q", name),
			exprerrors.SuggestKind(name))
		return nil
	}

	switch {
	case kind.IsBinary():
		return b.binary(f, path, kind, checked)
	case kind.IsUnary():
		return b.unary(f, path, kind, checked)
	case kind.IsTypeTest():
		b.checkKeys(f, path, name, typeTestKeys)
		return &ast.TypeBinary{
			Op:          kind,
			Expr:        b.child(f, "operand", path, true),
			TypeOperand: b.requiredType(f, path),
		}
	case kind.IsStatement():
		b.checkKeys(f, path, name, statementKeys)
		return &ast.Statement{
			Op:         kind,
			Operands:   b.list(f, "operands", path),
			Label:      b.optionalString(f, "label", path),
			ResultType: b.typeRef(f, path),
		}
	}

	switch kind {
	case ast.KindCall:
		return b.call(f, path)
	case ast.KindInvoke:
		b.checkKeys(f, path, name, invokeKeys)
		return &ast.Invoke{
			Target:     b.child(f, "target", path, true),
			Args:       b.list(f, "args", path),
			ResultType: b.typeRef(f, path),
		}
	case ast.KindMemberAccess:
		return b.member(f, path)
	case ast.KindNew:
		b.checkKeys(f, path, name, newKeys)
		return b.newObject(f, path)
	case ast.KindNewArrayInit, ast.KindNewArrayBounds:
		return b.newArray(f, path, kind)
	case ast.KindListInit:
		return b.listInit(f, path)
	case ast.KindMemberInit:
		return b.memberInit(f, path)
	case ast.KindConditional:
		b.checkKeys(f, path, name, conditionalKeys)
		c := &ast.Conditional{
			Test:    b.child(f, "test", path, true),
			IfTrue:  b.child(f, "if_true", path, true),
			IfFalse: b.child(f, "if_false", path, false),
		}
		c.ResultType = ast.Cond(c.Test, c.IfTrue, c.IfFalse).ResultType
		if f.has("type") {
			c.ResultType = b.typeRef(f, path)
		}
		return c
	case ast.KindLambda:
		return b.lambda(f, path)
	case ast.KindBlock:
		return b.block(f, path)
	case ast.KindDynamic:
		return b.dynamic(f, path)
	case ast.KindParameter:
		return b.parameterRef(f, path)
	case ast.KindConstant:
		return b.constant(f, path)
	case ast.KindDefault:
		b.checkKeys(f, path, name, defaultKeys)
		return &ast.Default{ResultType: b.requiredType(f, path)}
	}

	b.semantic(kindNode, join(path, "kind"), "Expression kind %q cannot be read from a document", name)
	return nil
}

func (b *builder) binary(f *fields, path string, kind ast.Kind, checked bool) ast.Node {
	b.checkKeys(f, path, string(kind), binaryKeys)

	node := ast.MakeBinary(kind, b.child(f, "left", path, true), b.child(f, "right", path, true))
	node.Checked = b.checkedFlag(f, path, kind, checked)
	if n, ok := f.get("lift_to_null"); ok {
		node.LiftToNull = b.boolean(n, join(path, "lift_to_null"))
	}
	if n, ok := f.get("method"); ok {
		m := b.methodRef(n, join(path, "method"), ast.MethodRef{Static: true})
		node.Method = &m
	}
	if n, ok := f.get("conversion"); ok {
		conv := b.node(n, join(path, "conversion"))
		if lambda, ok := conv.(*ast.Lambda); ok {
			node.Conversion = lambda
		} else if conv != nil {
			b.semantic(n, join(path, "conversion"), "Conversion must be a lambda, got %s", conv.Kind())
		}
	}
	if f.has("type") {
		node.ResultType = b.typeRef(f, path)
	}
	return node
}

func (b *builder) unary(f *fields, path string, kind ast.Kind, checked bool) ast.Node {
	b.checkKeys(f, path, string(kind), unaryKeys)

	node := ast.MakeUnary(kind, b.child(f, "operand", path, true), b.typeRef(f, path))
	node.Checked = b.checkedFlag(f, path, kind, checked)
	if n, ok := f.get("method"); ok {
		m := b.methodRef(n, join(path, "method"), ast.MethodRef{Static: true})
		node.Method = &m
	}
	return node
}

func (b *builder) call(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindCall), callKeys)

	object := b.child(f, "object", path, false)
	methodNode, ok := f.get("method")
	if !ok {
		b.missing(f, path, "method", "contains")
		return nil
	}

	return &ast.Call{
		Object:     object,
		Method:     b.methodRef(methodNode, join(path, "method"), defaultCallMethod(object)),
		Args:       b.list(f, "args", path),
		ResultType: b.typeRef(f, path),
	}
}

func (b *builder) member(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindMemberAccess), memberKeys)

	object := b.child(f, "object", path, false)
	memberNode, ok := f.get("member")
	if !ok {
		b.missing(f, path, "member", "Total")
		return nil
	}

	ref := b.memberRef(memberNode, join(path, "member"), defaultMemberAccess(object))
	if f.has("type") {
		ref.Type = b.typeRef(f, path)
	}
	return &ast.Member{Object: object, Member: ref}
}

func (b *builder) newObject(f *fields, path string) *ast.New {
	node := &ast.New{
		Args:       b.list(f, "args", path),
		ResultType: b.typeRef(f, path),
	}
	if n, ok := f.get("constructor"); ok {
		m := b.methodRef(n, join(path, "constructor"), defaultConstructor(node.ResultType))
		node.Constructor = &m
	}
	if n, ok := f.get("members"); ok {
		p := join(path, "members")
		if !isSequence(n) {
			b.structural(n, p, "'members' must be a list")
		} else {
			for i, item := range n.Content {
				node.Members = append(node.Members, b.memberRef(item, index(p, i), ast.MemberRef{DeclaringType: node.ResultType}))
			}
			if len(node.Members) != len(node.Args) {
				b.semantic(n, p, "Constructor names %d member(s) for %d argument(s)", len(node.Members), len(node.Args))
			}
		}
	}
	return node
}

// construction reads the 'new' key of a list or member initializer.
func (b *builder) construction(f *fields, path string) *ast.New {
	n, ok := f.get("new")
	if !ok {
		b.missing(f, path, "new", "{type: map[string]any}")
		return nil
	}
	p := join(path, "new")
	nf, ok := mapping(n)
	if !ok {
		b.structural(n, p, "'new' must be a mapping")
		return nil
	}
	if k, ok := nf.get("kind"); ok && k.Value != string(ast.KindNew) {
		b.semantic(k, join(p, "kind"), "Initializer must construct with 'new', got %q", k.Value)
		return nil
	}
	b.checkKeys(nf, p, string(ast.KindNew), newKeys)
	return b.newObject(nf, p)
}

func (b *builder) newArray(f *fields, path string, kind ast.Kind) ast.Node {
	key, keys := "elements", arrayInitKeys
	if kind == ast.KindNewArrayBounds {
		key, keys = "bounds", arrayBoundsKeys
	}
	b.checkKeys(f, path, string(kind), keys)

	node := &ast.NewArray{
		Op:          kind,
		ElementType: b.typeRef(f, path),
		Exprs:       b.list(f, key, path),
	}
	if kind == ast.KindNewArrayBounds && len(node.Exprs) == 0 {
		b.missing(f, path, "bounds", "[{kind: constant, value: 4}]")
	}
	return node
}

func (b *builder) listInit(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindListInit), listInitKeys)

	node := &ast.ListInit{New: b.construction(f, path)}
	node.Initializers = b.initializers(f, path, node.Type())
	return node
}

func (b *builder) memberInit(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindMemberInit), memberInitKeys)

	node := &ast.MemberInit{New: b.construction(f, path)}
	node.Bindings = b.bindings(f, path, node.Type())
	return node
}

func (b *builder) initializers(f *fields, path string, owner ast.TypeRef) []*ast.ElementInit {
	n, ok := f.get("initializers")
	if !ok {
		return nil
	}
	p := join(path, "initializers")
	if !isSequence(n) {
		b.structural(n, p, "'initializers' must be a list")
		return nil
	}

	inits := make([]*ast.ElementInit, 0, len(n.Content))
	for i, item := range n.Content {
		ip := index(p, i)
		inf, ok := mapping(item)
		if !ok {
			b.structural(item, ip, "Initializer must be a mapping")
			continue
		}
		b.checkKeys(inf, ip, "initializer", initializerKeys)

		init := &ast.ElementInit{
			AddMethod: defaultAddMethod(owner),
			Args:      b.list(inf, "args", ip),
		}
		if m, ok := inf.get("method"); ok {
			init.AddMethod = b.methodRef(m, join(ip, "method"), init.AddMethod)
		}
		inits = append(inits, init)
	}
	return inits
}

func (b *builder) bindings(f *fields, path string, owner ast.TypeRef) []ast.MemberBinding {
	n, ok := f.get("bindings")
	if !ok {
		return nil
	}
	p := join(path, "bindings")
	if !isSequence(n) {
		b.structural(n, p, "'bindings' must be a list")
		return nil
	}

	bindings := make([]ast.MemberBinding, 0, len(n.Content))
	for i, item := range n.Content {
		if binding := b.binding(item, index(p, i), owner); binding != nil {
			bindings = append(bindings, binding)
		}
	}
	return bindings
}

func (b *builder) binding(n *yaml.Node, path string, owner ast.TypeRef) ast.MemberBinding {
	f, ok := mapping(n)
	if !ok {
		b.structural(n, path, "Binding must be a mapping")
		return nil
	}
	b.checkKeys(f, path, "binding", bindingKeys)

	memberNode, ok := f.get("member")
	if !ok {
		b.missing(f, path, "member", "Items")
		return nil
	}
	ref := b.memberRef(memberNode, join(path, "member"), ast.MemberRef{DeclaringType: owner})

	var forms []string
	for _, key := range []string{"expression", "initializers", "bindings"} {
		if f.has(key) {
			forms = append(forms, key)
		}
	}
	if len(forms) != 1 {
		b.errors.Add(exprerrors.ErrorTypeStructural, b.loc(n, path),
			fmt.Sprintf("Binding of %q needs exactly one of 'expression', 'initializers' or 'bindings'", ref.Name),
			"Use 'expression' to assign, 'initializers' to fill a collection, 'bindings' to set sub-members")
		return nil
	}

	switch forms[0] {
	case "expression":
		return &ast.MemberAssignment{Member: ref, Expr: b.child(f, "expression", path, true)}
	case "initializers":
		return &ast.MemberListBinding{Member: ref, Initializers: b.initializers(f, path, ref.Type)}
	default:
		return &ast.MemberMemberBinding{Member: ref, Bindings: b.bindings(f, path, ref.Type)}
	}
}

func (b *builder) lambda(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindLambda), lambdaKeys)

	params := b.declarations(f, "parameters", path)
	b.push(params)
	defer b.pop()

	return &ast.Lambda{
		Name:       b.optionalString(f, "name", path),
		Params:     params,
		Body:       b.child(f, "body", path, true),
		ReturnType: b.typeRef(f, path),
	}
}

func (b *builder) block(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindBlock), blockKeys)

	vars := b.declarations(f, "variables", path)
	b.push(vars)
	defer b.pop()

	node := &ast.Block{
		Variables:  vars,
		Exprs:      b.list(f, "expressions", path),
		ResultType: b.typeRef(f, path),
	}
	if len(node.Exprs) == 0 {
		b.missing(f, path, "expressions", "[{kind: constant, value: true}]")
	}
	return node
}

func (b *builder) dynamic(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindDynamic), dynamicKeys)

	n, ok := f.get("binder")
	if !ok {
		b.missing(f, path, "binder", "{name: Total, operation: get_member}")
		return nil
	}
	p := join(path, "binder")
	var binder ast.BinderRef
	if isScalar(n) {
		binder.Name = n.Value
	} else if bf, ok := mapping(n); ok {
		b.checkKeys(bf, p, "binder", binderKeys)
		binder.Name = b.optionalString(bf, "name", p)
		binder.Operation = b.optionalString(bf, "operation", p)
	} else {
		b.structural(n, p, "'binder' must be a name or a mapping")
	}

	return &ast.Dynamic{
		Binder:     binder,
		Args:       b.list(f, "args", path),
		ResultType: b.typeRef(f, path),
	}
}

// parameterRef resolves a parameter reference to the nearest enclosing
// declaration. Undeclared names become free parameters of the document.
func (b *builder) parameterRef(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindParameter), parameterKeys)

	name := b.optionalString(f, "name", path)
	if name == "" {
		b.missing(f, path, "name", "x")
		return nil
	}
	typ := b.typeRef(f, path)

	for i := len(b.scopes) - 1; i >= 0; i-- {
		if p, ok := b.scopes[i][name]; ok {
			if typ != ast.TypeUnknown && typ != p.ParameterType {
				b.semantic(f.node, path, "Parameter %q is declared as %q, referenced as %q", name, p.ParameterType, typ)
			}
			return p
		}
	}

	if p, ok := b.free[name]; ok {
		switch {
		case p.ParameterType == ast.TypeUnknown:
			p.ParameterType = typ
		case typ != ast.TypeUnknown && typ != p.ParameterType:
			b.semantic(f.node, path, "Free parameter %q is used as %q and %q", name, p.ParameterType, typ)
		}
		return p
	}
	p := ast.NewParameter(name, typ)
	b.free[name] = p
	b.freeList = append(b.freeList, p)
	return p
}

func (b *builder) constant(f *fields, path string) ast.Node {
	b.checkKeys(f, path, string(ast.KindConstant), constantKeys)

	n, ok := f.get("value")
	if !ok {
		b.missing(f, path, "value", "0")
		return nil
	}
	var value any
	if err := n.Decode(&value); err != nil {
		b.structural(n, join(path, "value"), "Invalid constant: %v", err)
		return nil
	}

	typ := b.typeRef(f, path)
	if typ == ast.TypeUnknown {
		typ = constantType(value)
	}
	return ast.Const(coerceConstant(value, typ), typ)
}

// declarations reads a list of parameter or variable declarations.
func (b *builder) declarations(f *fields, key, path string) []*ast.Parameter {
	n, ok := f.get(key)
	if !ok {
		return nil
	}
	p := join(path, key)
	if !isSequence(n) {
		b.structural(n, p, "'%s' must be a list", key)
		return nil
	}

	params := make([]*ast.Parameter, 0, len(n.Content))
	seen := make(map[string]bool, len(n.Content))
	for i, item := range n.Content {
		ip := index(p, i)
		var param *ast.Parameter
		if isScalar(item) {
			param = ast.NewParameter(item.Value, ast.TypeUnknown)
		} else if df, ok := mapping(item); ok {
			b.checkKeys(df, ip, "declaration", declarationKeys)
			name := b.optionalString(df, "name", ip)
			if name == "" {
				b.missing(df, ip, "name", "x")
				continue
			}
			param = ast.NewParameter(name, b.typeRef(df, ip))
			if byRef, ok := df.get("by_ref"); ok {
				param.ByRef = b.boolean(byRef, join(ip, "by_ref"))
			}
		} else {
			b.structural(item, ip, "Declaration must be a name or a mapping")
			continue
		}

		if seen[param.Name] {
			b.semantic(item, ip, "Duplicate declaration of %q", param.Name)
			continue
		}
		seen[param.Name] = true
		params = append(params, param)
	}
	return params
}

func (b *builder) push(params []*ast.Parameter) {
	scope := make(map[string]*ast.Parameter, len(params))
	for _, p := range params {
		scope[p.Name] = p
	}
	b.scopes = append(b.scopes, scope)
}

func (b *builder) pop() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

// child builds the expression under key. A missing required child is an error.
func (b *builder) child(f *fields, key, path string, required bool) ast.Node {
	n, ok := f.get(key)
	if !ok || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		if required {
			b.missing(f, path, key, "{kind: parameter, name: x}")
		}
		return nil
	}
	return b.node(n, join(path, key))
}

// list builds the sequence of expressions under key.
func (b *builder) list(f *fields, key, path string) []ast.Node {
	n, ok := f.get(key)
	if !ok {
		return nil
	}
	p := join(path, key)
	if !isSequence(n) {
		b.structural(n, p, "'%s' must be a list", key)
		return nil
	}
	nodes := make([]ast.Node, 0, len(n.Content))
	for i, item := range n.Content {
		nodes = append(nodes, b.node(item, index(p, i)))
	}
	return nodes
}

func (b *builder) methodRef(n *yaml.Node, path string, def ast.MethodRef) ast.MethodRef {
	if isScalar(n) {
		def.Name = n.Value
		return def
	}
	f, ok := mapping(n)
	if !ok {
		b.structural(n, path, "Method must be a name or a mapping")
		return def
	}
	b.checkKeys(f, path, "method", methodKeys)
	def.Name = b.optionalString(f, "name", path)
	if def.Name == "" {
		b.missing(f, path, "name", "Add")
	}
	if f.has("declaring_type") {
		def.DeclaringType = ast.TypeRef(b.optionalString(f, "declaring_type", path))
	}
	if s, ok := f.get("static"); ok {
		def.Static = b.boolean(s, join(path, "static"))
	}
	return def
}

func (b *builder) memberRef(n *yaml.Node, path string, def ast.MemberRef) ast.MemberRef {
	if isScalar(n) {
		def.Name = n.Value
		return def
	}
	f, ok := mapping(n)
	if !ok {
		b.structural(n, path, "Member must be a name or a mapping")
		return def
	}
	b.checkKeys(f, path, "member", memberRefKeys)
	def.Name = b.optionalString(f, "name", path)
	if def.Name == "" {
		b.missing(f, path, "name", "Total")
	}
	if f.has("declaring_type") {
		def.DeclaringType = ast.TypeRef(b.optionalString(f, "declaring_type", path))
	}
	if f.has("type") {
		def.Type = b.typeRef(f, path)
	}
	return def
}

func (b *builder) checkedFlag(f *fields, path string, kind ast.Kind, fromName bool) bool {
	n, ok := f.get("checked")
	if !ok {
		return fromName
	}
	checked := b.boolean(n, join(path, "checked"))
	if checked && !kind.Checkable() {
		b.semantic(n, join(path, "checked"), "Kind %q has no overflow-checked form", kind)
		return false
	}
	return checked || fromName
}

func (b *builder) typeRef(f *fields, path string) ast.TypeRef {
	return ast.TypeRef(b.optionalString(f, "type", path))
}

func (b *builder) requiredType(f *fields, path string) ast.TypeRef {
	if !f.has("type") {
		b.missing(f, path, "type", "int")
		return ast.TypeUnknown
	}
	return b.typeRef(f, path)
}

func (b *builder) optionalString(f *fields, key, path string) string {
	n, ok := f.get(key)
	if !ok {
		return ""
	}
	if !isScalar(n) {
		b.structural(n, join(path, key), "'%s' must be a string", key)
		return ""
	}
	return n.Value
}

func (b *builder) stringList(f *fields, key, path string) []string {
	n, ok := f.get(key)
	if !ok {
		return nil
	}
	var out []string
	if err := n.Decode(&out); err != nil {
		b.structural(n, join(path, key), "'%s' must be a list of strings", key)
		return nil
	}
	return out
}

func (b *builder) boolean(n *yaml.Node, path string) bool {
	var v bool
	if err := n.Decode(&v); err != nil {
		b.structural(n, path, "Expected true or false, got %q", n.Value)
		return false
	}
	return v
}

// checkKeys reports keys that the node does not accept.
func (b *builder) checkKeys(f *fields, path, what string, allowed []string) {
	for _, key := range f.order {
		if key == "kind" || slices.Contains(allowed, key) {
			continue
		}
		b.errors.Add(exprerrors.ErrorTypeStructural, b.loc(f.keys[key], join(path, key)),
			fmt.Sprintf("Unknown key %q for %s", key, what),
			exprerrors.SuggestName(key, allowed))
	}
}

func (b *builder) missing(f *fields, path, key, example string) {
	b.errors.Add(exprerrors.ErrorTypeStructural, b.loc(f.node, path),
		fmt.Sprintf("Missing required key '%s'", key),
		exprerrors.SuggestMissingKey(key, example))
}

func (b *builder) structural(n *yaml.Node, path, format string, args ...any) {
	b.errors.Add(exprerrors.ErrorTypeStructural, b.loc(n, path), fmt.Sprintf(format, args...))
}

func (b *builder) semantic(n *yaml.Node, path, format string, args ...any) {
	b.errors.Add(exprerrors.ErrorTypeSemantic, b.loc(n, path), fmt.Sprintf(format, args...))
}

func (b *builder) loc(n *yaml.Node, path string) ast.Location {
	loc := ast.Location{File: b.sourcePath, Path: path}
	if n != nil {
		loc.Line, loc.Column = n.Line, n.Column
	}
	return loc
}

// Defaults applied when a reference is written as a bare name.

func defaultCallMethod(object ast.Node) ast.MethodRef {
	if object == nil {
		return ast.MethodRef{Static: true}
	}
	return ast.MethodRef{DeclaringType: object.Type()}
}

func defaultMemberAccess(object ast.Node) ast.MemberRef {
	if object == nil {
		return ast.MemberRef{}
	}
	return ast.MemberRef{DeclaringType: object.Type()}
}

func defaultConstructor(typ ast.TypeRef) ast.MethodRef {
	return ast.MethodRef{DeclaringType: typ, Static: true}
}

func defaultAddMethod(owner ast.TypeRef) ast.MethodRef {
	return ast.MethodRef{Name: "Add", DeclaringType: owner}
}

// constantType infers the declared type of an untyped literal.
func constantType(v any) ast.TypeRef {
	switch v.(type) {
	case bool:
		return ast.TypeBool
	case int, int64, uint64:
		return ast.TypeInt
	case float64:
		return ast.TypeFloat
	case string:
		return ast.TypeString
	}
	return ast.TypeAny
}

// coerceConstant converts YAML integers written for a float type.
func coerceConstant(v any, typ ast.TypeRef) any {
	if typ != ast.TypeFloat && typ != "float32" {
		return v
	}
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return v
}
