package eval

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// builtins returns the functions every Program starts with.
func builtins() map[string]Function {
	return map[string]Function{
		"contains":    stringOrElement(strings.Contains),
		"starts_with": stringPair(strings.HasPrefix),
		"ends_with":   stringPair(strings.HasSuffix),
		"matches":     matches,
		"in":          inCollection,
		"len":         lengthOf,
		"lower":       stringFunc(strings.ToLower),
		"upper":       stringFunc(strings.ToUpper),
		"trim":        stringFunc(strings.TrimSpace),
	}
}

func stringPair(fn func(s, x string) bool) Function {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, ErrArgumentCount
		}
		if args[0] == nil {
			return false, nil
		}
		return fn(toString(args[0]), toString(args[1])), nil
	}
}

func stringFunc(fn func(string) string) Function {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, ErrArgumentCount
		}
		if args[0] == nil {
			return nil, nil
		}
		return fn(toString(args[0])), nil
	}
}

// stringOrElement tests substrings of strings and membership of slices.
func stringOrElement(fn func(s, x string) bool) Function {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, ErrArgumentCount
		}
		if args[0] == nil {
			return false, nil
		}
		if s, ok := args[0].(string); ok {
			return fn(s, toString(args[1])), nil
		}
		return containsElement(args[0], args[1])
	}
}

func matches(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, ErrArgumentCount
	}
	pattern, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("matches requires a string pattern: %w", ErrTypeMismatch)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	if args[0] == nil {
		return false, nil
	}
	return re.MatchString(toString(args[0])), nil
}

func inCollection(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, ErrArgumentCount
	}
	return containsElement(args[1], args[0])
}

func lengthOf(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, ErrArgumentCount
	}
	return length(args[0])
}

func containsElement(coll, elem any) (any, error) {
	v := reflect.ValueOf(coll)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if equalValues(v.Index(i).Interface(), elem) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		for _, k := range v.MapKeys() {
			if equalValues(k.Interface(), elem) {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, fmt.Errorf("membership test on %s: %w", typeName(coll), ErrTypeMismatch)
}
