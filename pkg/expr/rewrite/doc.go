// Package rewrite copies expression trees while substituting parameters.
//
// A ParameterMap pairs source parameters with their replacements by identity.
// CloneWithSubstitution walks a tree and rebuilds every interior node with the
// same kind, payload and flags, replacing each mapped parameter reference by
// its target. Constants and unmapped parameters are shared with the input.
// The input tree is never modified.
//
// Parameters declared by a nested lambda or block shadow the map inside that
// scope, so a local binding is never substituted even when it has the same
// identity as a mapped source.
//
// Control-flow statements, unknown kinds and nodes whose kind tag does not
// belong to their variant abort the clone with an *errors.UnsupportedNodeKind,
// wherever they appear in the tree, including branches that would never run.
package rewrite
