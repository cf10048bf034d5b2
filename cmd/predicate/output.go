package main

import (
	"fmt"
	"io"

	"mercator-hq/predicate/pkg/cli"
	"mercator-hq/predicate/pkg/expr/ast"
	"mercator-hq/predicate/pkg/expr/parser"
)

// predicateSummary is the JSON form of a predicate.
type predicateSummary struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Parameters []string `json:"parameters" yaml:"parameters"`
	Free       []string `json:"free,omitempty" yaml:"free,omitempty"`
	Predicate  string   `json:"predicate" yaml:"predicate"`
}

func summarize(doc *parser.Document) predicateSummary {
	s := predicateSummary{
		Name:       doc.Name,
		Parameters: make([]string, len(doc.Lambda.Params)),
		Predicate:  ast.Format(doc.Lambda),
	}
	for i, p := range doc.Lambda.Params {
		s.Parameters[i] = fmt.Sprintf("%s: %s", p.Name, p.ParameterType)
	}
	for _, p := range doc.Free {
		s.Free = append(s.Free, fmt.Sprintf("%s: %s", p.Name, p.ParameterType))
	}
	return s
}

// writeDocument prints a predicate: its source form as text, the document
// itself as YAML, or a summary as JSON.
func writeDocument(w io.Writer, format cli.OutputFormat, doc *parser.Document) error {
	switch format {
	case cli.FormatYAML:
		data, err := parser.Encode(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case cli.FormatJSON:
		return cli.NewFormatter(format).FormatTo(w, summarize(doc))
	default:
		_, err := fmt.Fprintln(w, ast.Format(doc.Lambda))
		return err
	}
}
