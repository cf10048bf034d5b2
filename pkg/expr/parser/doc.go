// Package parser reads and writes predicate documents.
//
// A predicate document is a YAML file holding one lambda: its parameters,
// its body as a tree of expression nodes, and optional examples.
//
//	name: positive
//	parameters:
//	  - {name: x, type: int}
//	body:
//	  kind: greater_than
//	  left: {kind: parameter, name: x}
//	  right: {kind: constant, value: 0}
//	tests:
//	  - {name: three, args: [3], expect: true}
//
// Every node is a mapping with a "kind" key naming an ast.Kind. Kinds that
// have an overflow-checked form accept a "_checked" suffix ("add_checked").
//
// # Parameters
//
// A parameter reference resolves to the nearest enclosing declaration:
// the lambda's own parameters, then the parameters of enclosing lambdas and
// the variables of enclosing blocks. A name that resolves to nothing is a
// free parameter. All references to the same free name share one parameter,
// which is listed in Document.Free.
//
// # Errors
//
// The parser does not stop at the first problem. It returns an
// *errors.ErrorList whose entries carry the file, line, column and the
// position inside the document ("body.left.kind"), plus a suggestion where
// one can be made:
//
//	typo.yaml:5:9 (body.kind): semantic: Unknown expression kind "greater_thn"
//		hint: Did you mean 'greater_than'?
//
// # Encoding
//
// Encode writes a Document back in the same format. Decoding the output
// gives a tree with the same structure, names and types.
package parser
