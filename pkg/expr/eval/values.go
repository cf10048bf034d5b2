package eval

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"mercator-hq/predicate/pkg/expr/ast"
)

// toInt64 converts any Go integer to int64.
func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		if uint64(val) > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	default:
		return 0, false
	}
}

// toFloat64 converts any Go number to float64.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if u, ok := v.(uint64); ok {
		return float64(u), true
	}
	if u, ok := v.(uint); ok {
		return float64(u), true
	}
	return 0, false
}

// isNull reports whether v is nil or a nil pointer, interface or function.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func isInteger(v any) bool {
	_, ok := toInt64(v)
	return ok
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}

// typeName returns the name used for type tests on a runtime value.
func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return reflect.TypeOf(v).String()
}

// typeMatches reports whether v is an instance of the declared type t.
// The common names "int" and "float64" match every integer or float width.
func typeMatches(v any, t ast.TypeRef) bool {
	if v == nil {
		return false
	}
	switch t {
	case ast.TypeAny:
		return true
	case ast.TypeInt, "int64":
		return isInteger(v)
	case ast.TypeFloat, "float", "float32":
		return isFloat(v)
	}
	return typeName(v) == string(t)
}

// typeEquals reports whether v's runtime type is exactly t.
func typeEquals(v any, t ast.TypeRef) bool {
	return v != nil && typeName(v) == string(t)
}

// zeroValue returns the default value of a declared type.
func zeroValue(t ast.TypeRef) any {
	switch t {
	case ast.TypeBool:
		return false
	case ast.TypeInt, "int64":
		return int64(0)
	case ast.TypeFloat, "float", "float32":
		return 0.0
	case ast.TypeString:
		return ""
	}
	return nil
}

func equalValues(l, r any) bool {
	if isNull(l) || isNull(r) {
		return isNull(l) && isNull(r)
	}
	if li, ok := toInt64(l); ok {
		if ri, ok := toInt64(r); ok {
			return li == ri
		}
	}
	if lf, ok := toFloat64(l); ok {
		if rf, ok := toFloat64(r); ok {
			return lf == rf
		}
	}
	return reflect.DeepEqual(l, r)
}

// compareValues orders two numbers or two strings.
func compareValues(l, r any) (int, bool) {
	if li, ok := toInt64(l); ok {
		if ri, ok := toInt64(r); ok {
			switch {
			case li < ri:
				return -1, true
			case li > ri:
				return 1, true
			}
			return 0, true
		}
	}
	if lf, ok := toFloat64(l); ok {
		if rf, ok := toFloat64(r); ok {
			switch {
			case lf < rf:
				return -1, true
			case lf > rf:
				return 1, true
			case lf == rf:
				return 0, true
			}
			// NaN is unordered.
			return 0, false
		}
	}
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			return strings.Compare(ls, rs), true
		}
	}
	return 0, false
}

func compare(op ast.Kind, l, r any, lift bool) (any, error) {
	if lift && (isNull(l) || isNull(r)) {
		return nil, nil
	}

	switch op {
	case ast.KindEqual:
		return equalValues(l, r), nil
	case ast.KindNotEqual:
		return !equalValues(l, r), nil
	}

	if isNull(l) || isNull(r) {
		return false, nil
	}
	c, ok := compareValues(l, r)
	if !ok {
		if isFloat(l) || isFloat(r) {
			return false, nil
		}
		return nil, fail(op, ErrTypeMismatch, "cannot compare %s with %s", typeName(l), typeName(r))
	}

	switch op {
	case ast.KindLessThan:
		return c < 0, nil
	case ast.KindLessThanOrEqual:
		return c <= 0, nil
	case ast.KindGreaterThan:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func arith(op ast.Kind, l, r any, checked bool) (any, error) {
	if l == nil || r == nil {
		return nil, fail(op, ErrNilReference, "operand is null")
	}

	if op == ast.KindAdd {
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
	}

	if lb, ok := l.(bool); ok {
		if rb, ok := r.(bool); ok {
			switch op {
			case ast.KindAnd:
				return lb && rb, nil
			case ast.KindOr:
				return lb || rb, nil
			case ast.KindExclusiveOr:
				return lb != rb, nil
			}
		}
	}

	if li, ok := toInt64(l); ok {
		if ri, ok := toInt64(r); ok {
			return intArith(op, li, ri, checked)
		}
	}

	lf, lok := toFloat64(l)
	rf, rok := toFloat64(r)
	if !lok || !rok {
		return nil, fail(op, ErrTypeMismatch, "operands %s and %s", typeName(l), typeName(r))
	}
	return floatArith(op, lf, rf)
}

func intArith(op ast.Kind, a, b int64, checked bool) (any, error) {
	overflow := func() (any, error) {
		return nil, fail(op, ErrOverflow, "%d and %d", a, b)
	}

	switch op {
	case ast.KindAdd:
		s := a + b
		if checked && ((b > 0 && s < a) || (b < 0 && s > a)) {
			return overflow()
		}
		return s, nil
	case ast.KindSubtract:
		d := a - b
		if checked && ((b > 0 && d > a) || (b < 0 && d < a)) {
			return overflow()
		}
		return d, nil
	case ast.KindMultiply:
		p, ok := mulInt(a, b)
		if checked && !ok {
			return overflow()
		}
		return p, nil
	case ast.KindDivide:
		if b == 0 {
			return nil, fail(op, ErrDivideByZero, "%d / 0", a)
		}
		if checked && a == math.MinInt64 && b == -1 {
			return overflow()
		}
		return a / b, nil
	case ast.KindModulo:
		if b == 0 {
			return nil, fail(op, ErrDivideByZero, "%d %% 0", a)
		}
		return a % b, nil
	case ast.KindPower:
		if b < 0 {
			return math.Pow(float64(a), float64(b)), nil
		}
		result, base, overflowed := int64(1), a, false
		for exp := b; exp > 0; exp >>= 1 {
			var ok bool
			if exp&1 == 1 {
				if result, ok = mulInt(result, base); !ok {
					overflowed = true
				}
			}
			if exp > 1 {
				if base, ok = mulInt(base, base); !ok {
					overflowed = true
				}
			}
		}
		if checked && overflowed {
			return overflow()
		}
		return result, nil
	case ast.KindAnd:
		return a & b, nil
	case ast.KindOr:
		return a | b, nil
	case ast.KindExclusiveOr:
		return a ^ b, nil
	case ast.KindLeftShift, ast.KindRightShift:
		if b < 0 {
			return nil, fail(op, ErrTypeMismatch, "negative shift count %d", b)
		}
		if op == ast.KindLeftShift {
			return a << uint64(b), nil
		}
		return a >> uint64(b), nil
	}
	return nil, fail(op, ErrTypeMismatch, "not an integer operator")
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return p, false
	}
	return p, true
}

func floatArith(op ast.Kind, a, b float64) (any, error) {
	switch op {
	case ast.KindAdd:
		return a + b, nil
	case ast.KindSubtract:
		return a - b, nil
	case ast.KindMultiply:
		return a * b, nil
	case ast.KindDivide:
		return a / b, nil
	case ast.KindModulo:
		return math.Mod(a, b), nil
	case ast.KindPower:
		return math.Pow(a, b), nil
	}
	return nil, fail(op, ErrTypeMismatch, "operator does not apply to float64")
}

func negate(v any, checked bool) (any, error) {
	if i, ok := toInt64(v); ok {
		if checked && i == math.MinInt64 {
			return nil, fail(ast.KindNegate, ErrOverflow, "-(%d)", i)
		}
		return -i, nil
	}
	if f, ok := toFloat64(v); ok {
		return -f, nil
	}
	return nil, fail(ast.KindNegate, ErrTypeMismatch, "operand %s", typeName(v))
}

// convert converts v to the declared type t. Unknown type names pass the value
// through unchanged.
func convert(v any, t ast.TypeRef, checked bool) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case ast.TypeInt, "int64", "int32":
		var i int64
		switch val := v.(type) {
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
			if err != nil {
				return nil, fail(ast.KindConvert, ErrTypeMismatch, "%q is not an integer", val)
			}
			i = parsed
		case bool:
			return nil, fail(ast.KindConvert, ErrTypeMismatch, "bool to %s", t)
		default:
			if n, ok := toInt64(v); ok {
				i = n
			} else if f, ok := toFloat64(v); ok {
				if checked && (math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64) {
					return nil, fail(ast.KindConvert, ErrOverflow, "%v to %s", f, t)
				}
				i = int64(f)
			} else if u, ok := v.(uint64); ok {
				if checked {
					return nil, fail(ast.KindConvert, ErrOverflow, "%d to %s", u, t)
				}
				i = int64(u)
			} else {
				return nil, fail(ast.KindConvert, ErrTypeMismatch, "%s to %s", typeName(v), t)
			}
		}
		if t == "int32" {
			if checked && (i < math.MinInt32 || i > math.MaxInt32) {
				return nil, fail(ast.KindConvert, ErrOverflow, "%d to int32", i)
			}
			return int64(int32(i)), nil
		}
		return i, nil

	case ast.TypeFloat, "float", "float32":
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fail(ast.KindConvert, ErrTypeMismatch, "%q is not a number", s)
			}
			return f, nil
		}
		f, ok := toFloat64(v)
		if !ok {
			return nil, fail(ast.KindConvert, ErrTypeMismatch, "%s to %s", typeName(v), t)
		}
		return f, nil

	case ast.TypeString:
		return toString(v), nil

	case ast.TypeBool:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, fail(ast.KindConvert, ErrTypeMismatch, "%q is not a boolean", val)
			}
			return b, nil
		}
		return nil, fail(ast.KindConvert, ErrTypeMismatch, "%s to bool", typeName(v))
	}
	return v, nil
}

func asBool(kind ast.Kind, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fail(kind, ErrTypeMismatch, "expected bool, got %s", typeName(v))
	}
	return b, nil
}
