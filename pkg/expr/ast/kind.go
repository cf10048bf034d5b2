package ast

import "sort"

// Kind identifies the variant of an expression node.
// The set of kinds is closed: every Node reports one of the constants below.
type Kind string

// Binary operator kinds.
const (
	KindAdd                Kind = "add"
	KindSubtract           Kind = "subtract"
	KindMultiply           Kind = "multiply"
	KindDivide             Kind = "divide"
	KindModulo             Kind = "modulo"
	KindPower              Kind = "power"
	KindAnd                Kind = "and"          // bitwise / eager logical AND
	KindOr                 Kind = "or"           // bitwise / eager logical OR
	KindExclusiveOr        Kind = "exclusive_or" // XOR
	KindAndAlso            Kind = "and_also"     // short-circuit AND
	KindOrElse             Kind = "or_else"      // short-circuit OR
	KindLeftShift          Kind = "left_shift"
	KindRightShift         Kind = "right_shift"
	KindEqual              Kind = "equal"
	KindNotEqual           Kind = "not_equal"
	KindLessThan           Kind = "less_than"
	KindLessThanOrEqual    Kind = "less_than_or_equal"
	KindGreaterThan        Kind = "greater_than"
	KindGreaterThanOrEqual Kind = "greater_than_or_equal"
	KindCoalesce           Kind = "coalesce"
	KindArrayIndex         Kind = "array_index"

	KindAssign            Kind = "assign"
	KindAddAssign         Kind = "add_assign"
	KindSubtractAssign    Kind = "subtract_assign"
	KindMultiplyAssign    Kind = "multiply_assign"
	KindDivideAssign      Kind = "divide_assign"
	KindModuloAssign      Kind = "modulo_assign"
	KindPowerAssign       Kind = "power_assign"
	KindAndAssign         Kind = "and_assign"
	KindOrAssign          Kind = "or_assign"
	KindExclusiveOrAssign Kind = "exclusive_or_assign"
	KindLeftShiftAssign   Kind = "left_shift_assign"
	KindRightShiftAssign  Kind = "right_shift_assign"
)

// Unary operator kinds.
const (
	KindNegate              Kind = "negate"
	KindUnaryPlus           Kind = "unary_plus"
	KindNot                 Kind = "not"
	KindOnesComplement      Kind = "ones_complement"
	KindConvert             Kind = "convert"
	KindTypeAs              Kind = "type_as"
	KindQuote               Kind = "quote"
	KindArrayLength         Kind = "array_length"
	KindIncrement           Kind = "increment"
	KindDecrement           Kind = "decrement"
	KindPreIncrementAssign  Kind = "pre_increment_assign"
	KindPreDecrementAssign  Kind = "pre_decrement_assign"
	KindPostIncrementAssign Kind = "post_increment_assign"
	KindPostDecrementAssign Kind = "post_decrement_assign"
	KindIsTrue              Kind = "is_true"
	KindIsFalse             Kind = "is_false"
	KindUnbox               Kind = "unbox"
)

// Type test kinds.
const (
	KindTypeIs    Kind = "type_is"
	KindTypeEqual Kind = "type_equal"
)

// Structural kinds.
const (
	KindCall           Kind = "call"
	KindInvoke         Kind = "invoke"
	KindMemberAccess   Kind = "member_access"
	KindNew            Kind = "new"
	KindNewArrayInit   Kind = "new_array_init"
	KindNewArrayBounds Kind = "new_array_bounds"
	KindListInit       Kind = "list_init"
	KindMemberInit     Kind = "member_init"
	KindConditional    Kind = "conditional"
	KindLambda         Kind = "lambda"
	KindBlock          Kind = "block"
	KindDynamic        Kind = "dynamic"
	KindParameter      Kind = "parameter"
	KindConstant       Kind = "constant"
	KindDefault        Kind = "default"
)

// Statement kinds. Upstream producers may emit them, but they carry control
// flow that a predicate cannot be rewritten through.
const (
	KindThrow            Kind = "throw"
	KindLoop             Kind = "loop"
	KindGoto             Kind = "goto"
	KindLabel            Kind = "label"
	KindSwitch           Kind = "switch"
	KindTry              Kind = "try"
	KindDebugInfo        Kind = "debug_info"
	KindRuntimeVariables Kind = "runtime_variables"
	KindExtension        Kind = "extension"
)

var binaryKinds = map[Kind]bool{
	KindAdd: true, KindSubtract: true, KindMultiply: true, KindDivide: true,
	KindModulo: true, KindPower: true, KindAnd: true, KindOr: true,
	KindExclusiveOr: true, KindAndAlso: true, KindOrElse: true,
	KindLeftShift: true, KindRightShift: true, KindEqual: true,
	KindNotEqual: true, KindLessThan: true, KindLessThanOrEqual: true,
	KindGreaterThan: true, KindGreaterThanOrEqual: true, KindCoalesce: true,
	KindArrayIndex: true, KindAssign: true, KindAddAssign: true,
	KindSubtractAssign: true, KindMultiplyAssign: true, KindDivideAssign: true,
	KindModuloAssign: true, KindPowerAssign: true, KindAndAssign: true,
	KindOrAssign: true, KindExclusiveOrAssign: true, KindLeftShiftAssign: true,
	KindRightShiftAssign: true,
}

var unaryKinds = map[Kind]bool{
	KindNegate: true, KindUnaryPlus: true, KindNot: true,
	KindOnesComplement: true, KindConvert: true, KindTypeAs: true,
	KindQuote: true, KindArrayLength: true, KindIncrement: true,
	KindDecrement: true, KindPreIncrementAssign: true,
	KindPreDecrementAssign: true, KindPostIncrementAssign: true,
	KindPostDecrementAssign: true, KindIsTrue: true, KindIsFalse: true,
	KindUnbox: true,
}

var statementKinds = map[Kind]bool{
	KindThrow: true, KindLoop: true, KindGoto: true, KindLabel: true,
	KindSwitch: true, KindTry: true, KindDebugInfo: true,
	KindRuntimeVariables: true, KindExtension: true,
}

// checkable lists the kinds that have an overflow-checked variant.
var checkable = map[Kind]bool{
	KindAdd: true, KindSubtract: true, KindMultiply: true,
	KindAddAssign: true, KindSubtractAssign: true, KindMultiplyAssign: true,
	KindNegate: true, KindConvert: true,
}

var otherKinds = []Kind{
	KindTypeIs, KindTypeEqual, KindCall, KindInvoke, KindMemberAccess,
	KindNew, KindNewArrayInit, KindNewArrayBounds, KindListInit,
	KindMemberInit, KindConditional, KindLambda, KindBlock, KindDynamic,
	KindParameter, KindConstant, KindDefault,
}

// IsBinary reports whether k is a binary operator kind.
func (k Kind) IsBinary() bool { return binaryKinds[k] }

// IsUnary reports whether k is a unary operator kind.
func (k Kind) IsUnary() bool { return unaryKinds[k] }

// IsTypeTest reports whether k is a type test kind.
func (k Kind) IsTypeTest() bool { return k == KindTypeIs || k == KindTypeEqual }

// IsStatement reports whether k is a control-flow statement kind.
func (k Kind) IsStatement() bool { return statementKinds[k] }

// IsAssignment reports whether k writes to its left operand.
func (k Kind) IsAssignment() bool {
	switch k {
	case KindAssign, KindAddAssign, KindSubtractAssign, KindMultiplyAssign,
		KindDivideAssign, KindModuloAssign, KindPowerAssign, KindAndAssign,
		KindOrAssign, KindExclusiveOrAssign, KindLeftShiftAssign,
		KindRightShiftAssign, KindPreIncrementAssign, KindPreDecrementAssign,
		KindPostIncrementAssign, KindPostDecrementAssign:
		return true
	}
	return false
}

// IsComparison reports whether k yields a boolean from two operands.
func (k Kind) IsComparison() bool {
	switch k {
	case KindEqual, KindNotEqual, KindLessThan, KindLessThanOrEqual,
		KindGreaterThan, KindGreaterThanOrEqual:
		return true
	}
	return false
}

// Checkable reports whether k has an overflow-checked variant.
func (k Kind) Checkable() bool { return checkable[k] }

// Valid reports whether k belongs to the closed enumeration.
func (k Kind) Valid() bool {
	if binaryKinds[k] || unaryKinds[k] || statementKinds[k] {
		return true
	}
	for _, o := range otherKinds {
		if o == k {
			return true
		}
	}
	return false
}

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// Kinds returns every kind of the enumeration in lexical order.
func Kinds() []Kind {
	all := make([]Kind, 0, len(binaryKinds)+len(unaryKinds)+len(statementKinds)+len(otherKinds))
	for k := range binaryKinds {
		all = append(all, k)
	}
	for k := range unaryKinds {
		all = append(all, k)
	}
	for k := range statementKinds {
		all = append(all, k)
	}
	all = append(all, otherKinds...)
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}
