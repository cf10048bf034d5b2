package ast

import "github.com/google/uuid"

// NewParameter creates a parameter with a fresh identity.
// Parameters built any other way share the zero identity and must not be
// used as substitution sources or targets.
func NewParameter(name string, typ TypeRef) *Parameter {
	return &Parameter{
		id:            ParamID(uuid.New()),
		Name:          name,
		ParameterType: typ,
	}
}

// NewLambda creates a lambda over the given parameters.
func NewLambda(body Node, params ...*Parameter) *Lambda {
	return &Lambda{
		Params: params,
		Body:   body,
	}
}

// Const creates a constant of the given declared type.
func Const(value any, typ TypeRef) *Constant {
	return &Constant{Value: value, ResultType: typ}
}

// Null creates the null literal of the given declared type.
func Null(typ TypeRef) *Constant {
	return &Constant{Value: nil, ResultType: typ}
}

// MakeBinary creates a binary node. Comparisons and logical operators are
// typed bool; every other operator takes the type of its left operand.
func MakeBinary(op Kind, left, right Node) *Binary {
	typ := TypeUnknown
	switch {
	case op.IsComparison(), op == KindAndAlso, op == KindOrElse:
		typ = TypeBool
	case left != nil:
		typ = left.Type()
	}
	return &Binary{Op: op, Left: left, Right: right, ResultType: typ}
}

// MakeUnary creates a unary node typed like its operand unless typ is set.
func MakeUnary(op Kind, operand Node, typ TypeRef) *Unary {
	if typ == TypeUnknown {
		switch {
		case op == KindNot && operand != nil && operand.Type() == TypeBool,
			op == KindIsTrue, op == KindIsFalse:
			typ = TypeBool
		case op == KindArrayLength:
			typ = TypeInt
		case operand != nil:
			typ = operand.Type()
		}
	}
	return &Unary{Op: op, Operand: operand, ResultType: typ}
}

// AndAlso creates a short-circuit conjunction.
func AndAlso(left, right Node) *Binary { return MakeBinary(KindAndAlso, left, right) }

// OrElse creates a short-circuit disjunction.
func OrElse(left, right Node) *Binary { return MakeBinary(KindOrElse, left, right) }

// Equal creates an equality comparison.
func Equal(left, right Node) *Binary { return MakeBinary(KindEqual, left, right) }

// NotEqual creates an inequality comparison.
func NotEqual(left, right Node) *Binary { return MakeBinary(KindNotEqual, left, right) }

// LessThan creates a < comparison.
func LessThan(left, right Node) *Binary { return MakeBinary(KindLessThan, left, right) }

// GreaterThan creates a > comparison.
func GreaterThan(left, right Node) *Binary { return MakeBinary(KindGreaterThan, left, right) }

// Not creates a logical or bitwise negation.
func Not(operand Node) *Unary { return MakeUnary(KindNot, operand, TypeUnknown) }

// Field creates a member access on obj.
func Field(obj Node, name string, typ TypeRef) *Member {
	m := &Member{Object: obj, Member: MemberRef{Name: name, Type: typ}}
	if obj != nil {
		m.Member.DeclaringType = obj.Type()
	}
	return m
}

// CallMethod creates an instance call on obj, or a static call when obj is nil.
func CallMethod(obj Node, method string, typ TypeRef, args ...Node) *Call {
	c := &Call{
		Object:     obj,
		Method:     MethodRef{Name: method, Static: obj == nil},
		Args:       args,
		ResultType: typ,
	}
	if obj != nil {
		c.Method.DeclaringType = obj.Type()
	}
	return c
}

// Cond creates a conditional typed like its true branch.
func Cond(test, ifTrue, ifFalse Node) *Conditional {
	c := &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}
	if ifTrue != nil {
		c.ResultType = ifTrue.Type()
	}
	return c
}
