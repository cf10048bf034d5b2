package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mercator-hq/predicate/pkg/cli"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
	"mercator-hq/predicate/pkg/expr/rewrite"
	"mercator-hq/predicate/pkg/telemetry/logging"

	"github.com/spf13/cobra"
)

func newLintCmd(a *app) *cobra.Command {
	var (
		binds   []string
		noTests bool
	)

	cmd := &cobra.Command{
		Use:   "lint PATH...",
		Short: "Check predicate files and run their embedded tests",
		Long: `Check predicate files for errors. Each file is:
  - parsed (YAML syntax, node structure, parameter references)
  - rewritten once, which rejects node kinds that cannot be combined
  - evaluated against the examples under its 'tests' key

Directories are searched recursively for files with the configured
extensions (.yaml and .yml by default).

Examples:
  predicate lint positive.yaml
  predicate lint predicates/ --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			format, err := a.output()
			if err != nil {
				return err
			}
			bound, err := parseBindings(binds)
			if err != nil {
				return cli.NewCommandError("lint", err)
			}
			files, err := a.predicateFiles(paths)
			if err != nil {
				return cli.NewCommandError("lint", err)
			}

			report := lintReport{marks: cli.MarksFor(cmd.OutOrStdout())}
			for _, file := range files {
				res := a.lintFile(cmd.Context(), file, bound, !noTests)
				logging.FromContext(logging.WithPredicate(cmd.Context(), res.Name)).Debug("file linted",
					"file", file, "valid", res.Valid, "errors", len(res.Errors), "tests", len(res.Tests))
				report.Files = append(report.Files, res)
			}
			if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), &report); err != nil {
				return err
			}
			if report.failed() > 0 {
				return cli.NewCommandError("lint", cli.ErrValidationFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&binds, "bind", "b", nil, "free parameter binding for tests as name=value")
	cmd.Flags().BoolVar(&noTests, "no-tests", false, "skip embedded tests")
	return cmd
}

// lintReport is the result of linting a set of files.
type lintReport struct {
	Files []fileResult `json:"files" yaml:"files"`
	marks cli.Marks
}

// fileResult is the lint result for one predicate file.
type fileResult struct {
	File   string       `json:"file" yaml:"file"`
	Name   string       `json:"name,omitempty" yaml:"name,omitempty"`
	Valid  bool         `json:"valid" yaml:"valid"`
	Errors []lintError  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Tests  []testResult `json:"tests,omitempty" yaml:"tests,omitempty"`
}

// lintError is one problem found in a file.
type lintError struct {
	Line       int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column     int    `json:"column,omitempty" yaml:"column,omitempty"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// testResult is the outcome of one embedded example.
type testResult struct {
	Name   string `json:"name" yaml:"name"`
	Expect bool   `json:"expect" yaml:"expect"`
	Got    bool   `json:"got" yaml:"got"`
	Passed bool   `json:"passed" yaml:"passed"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (a *app) lintFile(ctx context.Context, file string, binds map[string]any, tests bool) fileResult {
	result := fileResult{File: file}

	doc, err := a.parser().Parse(file)
	if err != nil {
		result.Errors = lintErrors(err)
		return result
	}
	result.Name = doc.Name

	if _, err := a.cloner().Clone(doc.Lambda, rewrite.ParameterMap{}); err != nil {
		result.Errors = lintErrors(err)
		return result
	}

	if tests {
		results, err := runTests(ctx, doc, binds)
		if err != nil {
			result.Errors = lintErrors(err)
			return result
		}
		result.Tests = results
	}

	result.Valid = true
	for _, tr := range result.Tests {
		if !tr.Passed {
			result.Valid = false
		}
	}
	return result
}

// lintErrors flattens parser errors into lint errors.
func lintErrors(err error) []lintError {
	var list *exprerrors.ErrorList
	if errors.As(err, &list) {
		out := make([]lintError, 0, len(list.Errors))
		for _, e := range list.Errors {
			out = append(out, fromExprError(e))
		}
		return out
	}
	var single *exprerrors.Error
	if errors.As(err, &single) {
		return []lintError{fromExprError(single)}
	}
	return []lintError{{Message: err.Error()}}
}

func fromExprError(e *exprerrors.Error) lintError {
	return lintError{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Path:       e.Location.Path,
		Type:       string(e.Type),
		Message:    e.Message,
		Suggestion: e.Suggestion,
	}
}

func (r *lintReport) failed() int {
	var n int
	for _, f := range r.Files {
		if !f.Valid {
			n++
		}
	}
	return n
}

// WriteText prints one block per file and a summary line.
func (r *lintReport) WriteText(w io.Writer) error {
	var tests, failedTests int
	for _, f := range r.Files {
		fmt.Fprintf(w, "%s\n", f.File)
		for _, e := range f.Errors {
			fmt.Fprintf(w, "  %s %s", r.marks.Fail, e.Message)
			if e.Line > 0 {
				fmt.Fprintf(w, " (line %d, col %d)", e.Line, e.Column)
			}
			if e.Type != "" {
				fmt.Fprintf(w, " [%s]", e.Type)
			}
			fmt.Fprintln(w)
			if e.Suggestion != "" {
				fmt.Fprintf(w, "    suggestion: %s\n", e.Suggestion)
			}
		}
		if len(f.Errors) == 0 {
			fmt.Fprintf(w, "  %s %s is well-formed\n", r.marks.OK, f.Name)
		}
		for _, tr := range f.Tests {
			tests++
			switch {
			case tr.Error != "":
				failedTests++
				fmt.Fprintf(w, "  %s %s: %s\n", r.marks.Fail, tr.Name, tr.Error)
			case !tr.Passed:
				failedTests++
				fmt.Fprintf(w, "  %s %s: got %v, want %v\n", r.marks.Fail, tr.Name, tr.Got, tr.Expect)
			default:
				fmt.Fprintf(w, "  %s %s\n", r.marks.OK, tr.Name)
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%d file(s), %d invalid; %d test(s), %d failed\n",
		len(r.Files), r.failed(), tests, failedTests)
	return err
}

// predicateFiles expands directories into the predicate files they hold.
func (a *app) predicateFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != path && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && a.hasPredicateExtension(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no predicate files found in %s", strings.Join(paths, ", "))
	}
	return files, nil
}

func (a *app) hasPredicateExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.ContainsFunc(a.cfg.Watch.Extensions, func(want string) bool {
		return strings.ToLower(want) == ext
	})
}
