package rewrite

import (
	"mercator-hq/predicate/pkg/expr/ast"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
)

// Pair maps one source parameter to its replacement.
type Pair struct {
	Source *ast.Parameter
	Target *ast.Parameter
}

// ParameterMap is an ordered set of parameter substitutions keyed by
// parameter identity. The zero value is an empty map.
type ParameterMap struct {
	pairs []Pair
	index map[ast.ParamID]*ast.Parameter
}

// Zip pairs sources and targets by position. Names and types are ignored.
// Lists of different lengths yield an *errors.ArityMismatch.
func Zip(sources, targets []*ast.Parameter) (ParameterMap, error) {
	if len(sources) != len(targets) {
		return ParameterMap{}, &exprerrors.ArityMismatch{Left: len(targets), Right: len(sources)}
	}
	var m ParameterMap
	for i := range sources {
		m = m.With(sources[i], targets[i])
	}
	return m, nil
}

// With returns a copy of m that also maps source to target.
// A later mapping for the same source replaces the earlier one. A nil
// source or target leaves m unchanged.
func (m ParameterMap) With(source, target *ast.Parameter) ParameterMap {
	if source == nil || target == nil {
		return m
	}
	out := ParameterMap{
		pairs: make([]Pair, 0, len(m.pairs)+1),
		index: make(map[ast.ParamID]*ast.Parameter, len(m.index)+1),
	}
	for _, p := range m.pairs {
		if p.Source.Same(source) {
			continue
		}
		out.pairs = append(out.pairs, p)
		out.index[p.Source.ID()] = p.Target
	}
	out.pairs = append(out.pairs, Pair{Source: source, Target: target})
	out.index[source.ID()] = target
	return out
}

// Lookup returns the replacement for p, if p is mapped.
func (m ParameterMap) Lookup(p *ast.Parameter) (*ast.Parameter, bool) {
	if p == nil || m.index == nil {
		return nil, false
	}
	target, ok := m.index[p.ID()]
	return target, ok
}

// Len returns the number of mappings.
func (m ParameterMap) Len() int { return len(m.pairs) }

// Pairs returns the mappings in insertion order.
func (m ParameterMap) Pairs() []Pair {
	return append([]Pair(nil), m.pairs...)
}

// without returns m minus any mapping whose source is rebound by params.
// It returns m itself when nothing is shadowed.
func (m ParameterMap) without(params []*ast.Parameter) ParameterMap {
	shadowed := false
	for _, p := range params {
		if _, ok := m.Lookup(p); ok {
			shadowed = true
			break
		}
	}
	if !shadowed {
		return m
	}

	out := ParameterMap{index: make(map[ast.ParamID]*ast.Parameter, len(m.index))}
	for _, pair := range m.pairs {
		if containsParam(params, pair.Source) {
			continue
		}
		out.pairs = append(out.pairs, pair)
		out.index[pair.Source.ID()] = pair.Target
	}
	return out
}

func containsParam(params []*ast.Parameter, p *ast.Parameter) bool {
	for _, q := range params {
		if q.Same(p) {
			return true
		}
	}
	return false
}

// targets reports whether p is the replacement of some mapping.
func (m ParameterMap) targets(p *ast.Parameter) bool {
	for _, pair := range m.pairs {
		if pair.Target.Same(p) {
			return true
		}
	}
	return false
}

// rebind prepares the scope of binders introduced by a nested lambda or
// block. Mappings of the binders themselves are dropped. A binder that is
// also a mapping's target is replaced by a fresh parameter of the same name
// and type, so substituted references keep resolving to the outer binding.
// It returns the binders to emit and the map for the scope.
func (m ParameterMap) rebind(binders []*ast.Parameter) ([]*ast.Parameter, ParameterMap) {
	inner := m.without(binders)
	out := append([]*ast.Parameter(nil), binders...)
	for i, p := range binders {
		if p == nil || !inner.targets(p) {
			continue
		}
		if fresh, ok := inner.Lookup(p); ok {
			out[i] = fresh
			continue
		}
		fresh := ast.NewParameter(p.Name, p.ParameterType)
		fresh.ByRef = p.ByRef
		out[i] = fresh
		inner = inner.With(p, fresh)
	}
	return out, inner
}
