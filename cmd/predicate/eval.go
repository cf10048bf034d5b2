package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mercator-hq/predicate/pkg/cli"
	"mercator-hq/predicate/pkg/expr/ast"
	"mercator-hq/predicate/pkg/expr/eval"
	"mercator-hq/predicate/pkg/expr/parser"
	"mercator-hq/predicate/pkg/telemetry/logging"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		args  []string
		binds []string
	)

	cmd := &cobra.Command{
		Use:   "eval FILE...",
		Short: "Evaluate a predicate for given arguments",
		Long: `Evaluate a predicate, or the conjunction of several, for one set of
arguments. Arguments are YAML scalars: 3, 2.5, true, "text" or null.

Free parameters (referenced but never declared in the document) are bound by
name with --bind.

Examples:
  predicate eval positive.yaml --arg 3
  predicate eval positive.yaml small.yaml --arg 15
  predicate eval order_limit.yaml --arg '{Total: 12.5}' --bind limit=20`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			format, err := a.output()
			if err != nil {
				return err
			}
			res, err := a.evaluate(cmd.Context(), files, args, binds)
			a.metrics.RecordEvaluation(res.Result, err)
			if err != nil {
				return cli.NewCommandError("eval", err)
			}
			return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringArrayVarP(&args, "arg", "a", nil, "argument value, once per parameter in order")
	cmd.Flags().StringArrayVarP(&binds, "bind", "b", nil, "free parameter binding as name=value")
	return cmd
}

// evalResult is the outcome of one evaluation.
type evalResult struct {
	Predicate string `json:"predicate" yaml:"predicate"`
	Args      []any  `json:"args" yaml:"args"`
	Result    bool   `json:"result" yaml:"result"`
}

func (r evalResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, r.Result)
	return err
}

func (a *app) evaluate(ctx context.Context, files, rawArgs, rawBinds []string) (evalResult, error) {
	doc, err := a.combineFiles(ctx, files, "")
	if err != nil {
		return evalResult{}, err
	}
	args, err := parseValues(rawArgs)
	if err != nil {
		return evalResult{}, err
	}
	binds, err := parseBindings(rawBinds)
	if err != nil {
		return evalResult{}, err
	}

	prog, free, err := compile(doc.Lambda, binds)
	if err != nil {
		return evalResult{}, err
	}
	if len(args) != len(doc.Lambda.Params) {
		return evalResult{}, fmt.Errorf("predicate takes %d argument(s), got %d", len(doc.Lambda.Params), len(args))
	}

	ok, err := prog.Test(ctx, append(args, free...)...)
	if err != nil {
		return evalResult{}, err
	}
	logging.FromContext(logging.WithPredicate(ctx, doc.Name)).Debug("predicate evaluated", "args", args, "result", ok)
	return evalResult{Predicate: ast.Format(doc.Lambda), Args: args, Result: ok}, nil
}

// compile prepares lambda for evaluation. Free parameters become trailing
// parameters of the compiled program; the returned values fill them.
func compile(lambda *ast.Lambda, binds map[string]any) (*eval.Program, []any, error) {
	free := eval.FreeParameters(lambda)
	values := make([]any, len(free))
	for i, p := range free {
		v, ok := binds[p.Name]
		if !ok {
			return nil, nil, fmt.Errorf("free parameter %q is not bound (use --bind %s=VALUE)", p.Name, p.Name)
		}
		values[i] = v
	}

	closed := &ast.Lambda{
		Name:       lambda.Name,
		Params:     append(append([]*ast.Parameter(nil), lambda.Params...), free...),
		Body:       lambda.Body,
		ReturnType: lambda.ReturnType,
	}
	prog, err := eval.Compile(closed)
	if err != nil {
		return nil, nil, err
	}
	return prog, values, nil
}

// runTests evaluates the examples embedded in doc.
func runTests(ctx context.Context, doc *parser.Document, binds map[string]any) ([]testResult, error) {
	if len(doc.Tests) == 0 {
		return nil, nil
	}
	prog, free, err := compile(doc.Lambda, binds)
	if err != nil {
		return nil, err
	}

	results := make([]testResult, len(doc.Tests))
	for i, tc := range doc.Tests {
		results[i] = testResult{Name: tc.Name, Expect: tc.Expect}
		got, err := prog.Test(ctx, append(append([]any(nil), tc.Args...), free...)...)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Got = got
		results[i].Passed = got == tc.Expect
	}
	return results, nil
}

func parseValues(raw []string) ([]any, error) {
	values := make([]any, len(raw))
	for i, s := range raw {
		var v any
		if err := yaml.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		values[i] = v
	}
	return values, nil
}

func parseBindings(raw []string) (map[string]any, error) {
	binds := make(map[string]any, len(raw))
	for _, s := range raw {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("binding %q must have the form name=value", s)
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			return nil, fmt.Errorf("binding %q: %w", name, err)
		}
		binds[name] = v
	}
	return binds, nil
}
