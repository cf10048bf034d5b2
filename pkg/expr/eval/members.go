package eval

import (
	"reflect"
	"strings"

	"mercator-hq/predicate/pkg/expr/ast"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// memberValue reads a field of a struct, a key of a string-keyed map, or the
// result of a niladic method. Struct fields match case-insensitively when no
// exact match exists. Missing map keys read as nil.
func memberValue(obj any, name string) (any, error) {
	if obj == nil {
		return nil, fail(ast.KindMemberAccess, ErrNilReference, "read %q", name)
	}

	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, fail(ast.KindMemberAccess, ErrNilReference, "read %q", name)
	}
	if m := v.MethodByName(name); m.IsValid() && m.Type().NumIn() == 0 {
		return callReflect(ast.KindMemberAccess, name, m, nil)
	}

	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fail(ast.KindMemberAccess, ErrNilReference, "read %q", name)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		e := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !e.IsValid() {
			return nil, nil
		}
		return e.Interface(), nil

	case reflect.Struct:
		f := structField(v, name)
		if !f.IsValid() {
			return nil, fail(ast.KindMemberAccess, ErrUnknownMember, "%s has no member %q", v.Type(), name)
		}
		if !f.CanInterface() {
			return nil, fail(ast.KindMemberAccess, ErrUnknownMember, "member %q is unexported", name)
		}
		return f.Interface(), nil
	}

	return nil, fail(ast.KindMemberAccess, ErrUnknownMember, "%s has no member %q", typeName(obj), name)
}

func structField(v reflect.Value, name string) reflect.Value {
	if f := v.FieldByName(name); f.IsValid() {
		return f
	}
	return v.FieldByNameFunc(func(n string) bool {
		return strings.EqualFold(n, name)
	})
}

// setMember writes a key of a string-keyed map or a field of a struct
// reached through a pointer.
func setMember(obj any, name string, value any) error {
	if obj == nil {
		return fail(ast.KindMemberInit, ErrNilReference, "write %q", name)
	}

	if m, ok := obj.(map[string]any); ok {
		m[name] = value
		return nil
	}

	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fail(ast.KindMemberInit, ErrTypeMismatch, "cannot set %q on %s", name, typeName(obj))
	}
	f := structField(v.Elem(), name)
	if !f.IsValid() || !f.CanSet() {
		return fail(ast.KindMemberInit, ErrUnknownMember, "%s has no settable member %q", v.Type(), name)
	}
	rv, err := valueFor(value, f.Type())
	if err != nil {
		return fail(ast.KindMemberInit, err, "member %q", name)
	}
	f.Set(rv)
	return nil
}

// indexValue reads coll[idx] for slices, arrays, strings and maps.
func indexValue(coll, idx any) (any, error) {
	if coll == nil {
		return nil, fail(ast.KindArrayIndex, ErrNilReference, "index null")
	}
	v := reflect.ValueOf(coll)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fail(ast.KindArrayIndex, ErrNilReference, "index null")
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := toInt64(idx)
		if !ok {
			return nil, fail(ast.KindArrayIndex, ErrTypeMismatch, "index of type %s", typeName(idx))
		}
		if i < 0 || i >= int64(v.Len()) {
			return nil, fail(ast.KindArrayIndex, ErrIndexOutOfRange, "index %d, length %d", i, v.Len())
		}
		return v.Index(int(i)).Interface(), nil

	case reflect.Map:
		k, err := valueFor(idx, v.Type().Key())
		if err != nil {
			return nil, fail(ast.KindArrayIndex, err, "map key")
		}
		e := v.MapIndex(k)
		if !e.IsValid() {
			return nil, nil
		}
		return e.Interface(), nil
	}

	return nil, fail(ast.KindArrayIndex, ErrTypeMismatch, "cannot index %s", typeName(coll))
}

func length(v any) (any, error) {
	if v == nil {
		return nil, fail(ast.KindArrayLength, ErrNilReference, "length of null")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String, reflect.Map:
		return int64(rv.Len()), nil
	}
	return nil, fail(ast.KindArrayLength, ErrTypeMismatch, "length of %s", typeName(v))
}

// callMethod invokes a method of obj through reflection.
func callMethod(obj any, name string, args []any) (any, bool, error) {
	m := reflect.ValueOf(obj).MethodByName(name)
	if !m.IsValid() {
		return nil, false, nil
	}
	out, err := callReflect(ast.KindCall, name, m, args)
	return out, true, err
}

// callReflect calls fn with args converted to its parameter types. Functions
// may return nothing, a value, an error, or a value and an error.
func callReflect(kind ast.Kind, name string, fn reflect.Value, args []any) (any, error) {
	t := fn.Type()
	if t.IsVariadic() && len(args) < t.NumIn()-1 || !t.IsVariadic() && len(args) != t.NumIn() {
		return nil, fail(kind, ErrArgumentCount, "%s takes %d argument(s), got %d", name, t.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := t.In(min(i, t.NumIn()-1))
		if t.IsVariadic() && i >= t.NumIn()-1 {
			pt = pt.Elem()
		}
		rv, err := valueFor(a, pt)
		if err != nil {
			return nil, fail(kind, err, "%s argument %d", name, i)
		}
		in[i] = rv
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errorType {
			if err, _ := out[0].Interface().(error); err != nil {
				return nil, fail(kind, err, "%s failed", name)
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	default:
		if err, _ := out[len(out)-1].Interface().(error); err != nil {
			return nil, fail(kind, err, "%s failed", name)
		}
		return out[0].Interface(), nil
	}
}

// valueFor converts a to a reflect.Value assignable to t.
func valueFor(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, ErrNilReference
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumericKind(v.Kind()) && isNumericKind(t.Kind()) {
		return v.Convert(t), nil
	}
	if v.Kind() == t.Kind() && v.Type().ConvertibleTo(t) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, ErrTypeMismatch
}

func isNumericKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
