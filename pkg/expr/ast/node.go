package ast

import (
	"strings"

	"github.com/google/uuid"
)

// TypeRef names the declared static type of a node ("bool", "int", "*Order").
// The node model never interprets it; it is payload carried through rewrites.
type TypeRef string

// Common type references.
const (
	TypeBool    TypeRef = "bool"
	TypeInt     TypeRef = "int"
	TypeFloat   TypeRef = "float64"
	TypeString  TypeRef = "string"
	TypeAny     TypeRef = "any"
	TypeVoid    TypeRef = "void"
	TypeUnknown TypeRef = ""
)

// MethodRef identifies a callable: a method, a function, a constructor or a
// custom operator implementation.
type MethodRef struct {
	Name          string  // Method or function name
	DeclaringType TypeRef // Type that declares it (empty for free functions)
	Static        bool    // True when no receiver is passed
}

// MemberRef identifies a field or property.
type MemberRef struct {
	Name          string  // Member name
	DeclaringType TypeRef // Type that declares the member
	Type          TypeRef // Declared type of the member
}

// BinderRef identifies a late-bound operation of a Dynamic node.
type BinderRef struct {
	Name      string // Binder name
	Operation string // Operation performed (e.g. "get_member", "invoke")
}

// Node is an expression tree node.
//
// The set of implementations is sealed: only the types in this package satisfy
// Node, so a type switch over them is exhaustive.
type Node interface {
	// Kind returns the node kind tag.
	Kind() Kind
	// Type returns the declared static type of the node's value.
	Type() TypeRef

	node()
}

// ParamID is the identity of a parameter binding site.
// It is assigned once by NewParameter and never derived from name or type.
type ParamID uuid.UUID

// String returns the canonical UUID form of the identity.
func (id ParamID) String() string { return uuid.UUID(id).String() }

// Short returns the first eight hex digits of the identity, for display.
func (id ParamID) Short() string { return id.String()[:8] }

// Binary is a two-operand operator node.
type Binary struct {
	Op         Kind       // Binary kind
	Left       Node       // Left operand
	Right      Node       // Right operand
	Checked    bool       // Overflow-checked arithmetic
	LiftToNull bool       // Comparison of nullable operands yields null instead of false
	Method     *MethodRef // Custom operator implementation (optional)
	Conversion *Lambda    // Conversion applied to the left operand of a coalesce (optional)
	ResultType TypeRef    // Declared result type
}

// Unary is a one-operand operator node.
type Unary struct {
	Op         Kind       // Unary kind
	Operand    Node       // Operand
	Checked    bool       // Overflow-checked arithmetic/conversion
	Method     *MethodRef // Custom operator implementation (optional)
	ResultType TypeRef    // Declared result type (target type for convert/type_as)
}

// TypeBinary tests the runtime type of an expression.
type TypeBinary struct {
	Op          Kind    // KindTypeIs or KindTypeEqual
	Expr        Node    // Tested expression
	TypeOperand TypeRef // Type tested against
}

// Call invokes a method. Object is nil for static calls.
type Call struct {
	Object     Node
	Method     MethodRef
	Args       []Node
	ResultType TypeRef
}

// Invoke applies a delegate or lambda expression to arguments.
type Invoke struct {
	Target     Node
	Args       []Node
	ResultType TypeRef
}

// Member accesses a field or property. Object is nil for static members.
type Member struct {
	Object Node
	Member MemberRef
}

// New constructs an object.
type New struct {
	Constructor *MethodRef  // Nil for the implicit zero-value constructor
	Args        []Node      // Constructor arguments
	Members     []MemberRef // Members initialised by each argument (optional)
	ResultType  TypeRef
}

// NewArray constructs an array from elements or from bounds.
type NewArray struct {
	Op          Kind    // KindNewArrayInit or KindNewArrayBounds
	ElementType TypeRef // Element type
	Exprs       []Node  // Elements, or one bound per dimension
}

// ListInit constructs a collection and populates it through its add method.
type ListInit struct {
	New          *New
	Initializers []*ElementInit
}

// MemberInit constructs an object and binds some of its members.
type MemberInit struct {
	New      *New
	Bindings []MemberBinding
}

// Conditional is a ternary test ? ifTrue : ifFalse.
type Conditional struct {
	Test       Node
	IfTrue     Node
	IfFalse    Node
	ResultType TypeRef
}

// Lambda is a function literal with its own parameter bindings.
type Lambda struct {
	Name       string       // Optional name
	Params     []*Parameter // Parameters, in order
	Body       Node         // Body expression
	ReturnType TypeRef      // Declared return type (defaults to the body type)
}

// Block is a sequence of expressions with local variables.
// Its value is the value of the last expression.
type Block struct {
	Variables  []*Parameter
	Exprs      []Node
	ResultType TypeRef
}

// Dynamic is a late-bound operation resolved by a binder at run time.
type Dynamic struct {
	Binder     BinderRef
	Args       []Node
	ResultType TypeRef
}

// Parameter is a formal parameter or local variable.
// Two parameters are the same binding only if their IDs are equal.
type Parameter struct {
	id            ParamID
	Name          string
	ParameterType TypeRef
	ByRef         bool
}

// Constant is a literal value.
type Constant struct {
	Value      any
	ResultType TypeRef
}

// Default produces the zero value of a type.
type Default struct {
	ResultType TypeRef
}

// Statement is a control-flow construct (throw, loop, goto, ...).
// It is representable but has no expression semantics for predicates.
type Statement struct {
	Op         Kind
	Operands   []Node
	Label      string
	ResultType TypeRef
}

func (*Binary) node()      {}
func (*Unary) node()       {}
func (*TypeBinary) node()  {}
func (*Call) node()        {}
func (*Invoke) node()      {}
func (*Member) node()      {}
func (*New) node()         {}
func (*NewArray) node()    {}
func (*ListInit) node()    {}
func (*MemberInit) node()  {}
func (*Conditional) node() {}
func (*Lambda) node()      {}
func (*Block) node()       {}
func (*Dynamic) node()     {}
func (*Parameter) node()   {}
func (*Constant) node()    {}
func (*Default) node()     {}
func (*Statement) node()   {}

func (n *Binary) Kind() Kind     { return n.Op }
func (n *Unary) Kind() Kind      { return n.Op }
func (n *TypeBinary) Kind() Kind { return n.Op }
func (*Call) Kind() Kind         { return KindCall }
func (*Invoke) Kind() Kind       { return KindInvoke }
func (*Member) Kind() Kind       { return KindMemberAccess }
func (*New) Kind() Kind          { return KindNew }
func (n *NewArray) Kind() Kind   { return n.Op }
func (*ListInit) Kind() Kind     { return KindListInit }
func (*MemberInit) Kind() Kind   { return KindMemberInit }
func (*Conditional) Kind() Kind  { return KindConditional }
func (*Lambda) Kind() Kind       { return KindLambda }
func (*Block) Kind() Kind        { return KindBlock }
func (*Dynamic) Kind() Kind      { return KindDynamic }
func (*Parameter) Kind() Kind    { return KindParameter }
func (*Constant) Kind() Kind     { return KindConstant }
func (*Default) Kind() Kind      { return KindDefault }
func (n *Statement) Kind() Kind  { return n.Op }

func (n *Binary) Type() TypeRef      { return n.ResultType }
func (n *Unary) Type() TypeRef       { return n.ResultType }
func (*TypeBinary) Type() TypeRef    { return TypeBool }
func (n *Call) Type() TypeRef        { return n.ResultType }
func (n *Invoke) Type() TypeRef      { return n.ResultType }
func (n *Member) Type() TypeRef      { return n.Member.Type }
func (n *New) Type() TypeRef         { return n.ResultType }
func (n *NewArray) Type() TypeRef    { return "[]" + n.ElementType }
func (n *Conditional) Type() TypeRef { return n.ResultType }
func (n *Dynamic) Type() TypeRef     { return n.ResultType }
func (n *Parameter) Type() TypeRef   { return n.ParameterType }
func (n *Constant) Type() TypeRef    { return n.ResultType }
func (n *Default) Type() TypeRef     { return n.ResultType }
func (n *Statement) Type() TypeRef   { return n.ResultType }

// Type returns the function type of the lambda, e.g. "func(int) bool".
func (n *Lambda) Type() TypeRef {
	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		params[i] = string(p.ParameterType)
	}
	return TypeRef("func(" + strings.Join(params, ", ") + ") " + string(n.Result()))
}

// Result returns the declared return type, falling back to the body type.
func (n *Lambda) Result() TypeRef {
	if n.ReturnType != TypeUnknown || n.Body == nil {
		return n.ReturnType
	}
	return n.Body.Type()
}

// Type returns the type of the constructed collection.
func (n *ListInit) Type() TypeRef {
	if n.New == nil {
		return TypeUnknown
	}
	return n.New.Type()
}

// Type returns the type of the constructed object.
func (n *MemberInit) Type() TypeRef {
	if n.New == nil {
		return TypeUnknown
	}
	return n.New.Type()
}

// Arity returns the number of parameters.
func (n *Lambda) Arity() int { return len(n.Params) }

// Type returns the declared type, falling back to the last expression's type.
func (n *Block) Type() TypeRef {
	if n.ResultType != TypeUnknown || len(n.Exprs) == 0 {
		return n.ResultType
	}
	return n.Exprs[len(n.Exprs)-1].Type()
}

// ID returns the parameter identity.
func (p *Parameter) ID() ParamID { return p.id }

// Same reports whether p and other are the same binding.
func (p *Parameter) Same(other *Parameter) bool {
	return p != nil && other != nil && p.id == other.id
}

// IsStatic reports whether the call has no receiver.
func (n *Call) IsStatic() bool { return n.Object == nil }

// IsStatic reports whether the member access has no receiver.
func (n *Member) IsStatic() bool { return n.Object == nil }

// IsNull reports whether the constant is the null literal.
func (n *Constant) IsNull() bool { return n.Value == nil }
