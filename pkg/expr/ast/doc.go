// Package ast defines the expression tree used to represent predicates.
//
// A predicate is a *Lambda whose body is built from a closed set of node
// variants. Each variant implements Node and reports a Kind from the closed
// enumeration in kind.go; the interface is sealed so that a type switch over
// the variants is exhaustive.
//
// # Core Types
//
// Lambda: function literal with its own parameters and a body
//
// Parameter: formal parameter or block local, identified by a ParamID handle
//
// Binary, Unary, TypeBinary: operators, with a Checked flag for overflow-checked arithmetic
//
// Call, Invoke, Member: calls, delegate invocation, field access
//
// New, NewArray, ListInit, MemberInit: construction
//
// Conditional, Block, Dynamic, Constant, Default: the remaining expression kinds
//
// Statement: control flow (throw, loop, ...) kept only so producers can represent it
//
// ElementInit and MemberBinding are satellite structures that appear inside
// construction nodes. They are not Nodes.
//
// # Parameter Identity
//
// Parameters are matched by identity, never by name or type:
//
//	x1 := ast.NewParameter("x", ast.TypeInt)
//	x2 := ast.NewParameter("x", ast.TypeInt)
//	x1.Same(x2) // false
//
// # Basic Usage
//
// Build a predicate and print it:
//
//	x := ast.NewParameter("x", ast.TypeInt)
//	positive := ast.NewLambda(ast.GreaterThan(x, ast.Const(0, ast.TypeInt)), x)
//	fmt.Println(ast.Format(positive)) // x => x > 0
//
// Walk a tree:
//
//	params := ast.Parameters(positive.Body)
//
// Nodes are never mutated after construction. Rewrites allocate new trees
// (see package rewrite).
package ast
