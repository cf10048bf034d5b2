// Package combine joins predicates into conjunctions.
//
//	x := ast.NewParameter("x", ast.TypeInt)
//	positive := ast.NewLambda(ast.GreaterThan(x, ast.Const(0, ast.TypeInt)), x)
//
//	y := ast.NewParameter("y", ast.TypeInt)
//	small := ast.NewLambda(ast.LessThan(y, ast.Const(10, ast.TypeInt)), y)
//
//	both, err := combine.And(positive, small) // x => x > 0 && x < 10
//
// Parameters are paired by position, never by name. Predicates with different
// parameter counts are rejected with an *errors.ArityMismatch before either
// body is read. A node the rewriter cannot clone aborts the whole call with an
// *errors.UnsupportedNodeKind.
//
// Use a Combiner to attach a logger, Prometheus metrics and tracing.
package combine
