// Package eval is a reference interpreter for predicate trees.
//
// Compile checks a lambda and returns a Program that evaluates its body
// against Go values:
//
//	prog, err := eval.Compile(pred)
//	ok, err := prog.Test(ctx, order)
//
// Members resolve against struct fields, string-keyed maps and niladic
// methods. Calls resolve against functions registered with WithFunction and
// then against methods of the receiver. Integer arithmetic is carried out in
// int64 and honours the Checked flag; float arithmetic never overflows.
//
// and_also and or_else short-circuit, so the right operand is not evaluated
// when the left one decides the result. Conditionals evaluate only the taken
// branch.
package eval
