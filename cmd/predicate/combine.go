package main

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/predicate/pkg/catalog"
	"mercator-hq/predicate/pkg/cli"
	"mercator-hq/predicate/pkg/expr/ast"
	"mercator-hq/predicate/pkg/expr/parser"

	"github.com/spf13/cobra"
)

func newCombineCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "combine FILE...",
		Short: "Conjoin predicate files",
		Long: `Combine predicate files into one predicate that holds exactly when all of
them hold. Every file must declare the same number of parameters; the result
uses the first file's parameters.

Examples:
  # Print the combined predicate
  predicate combine positive.yaml small.yaml

  # Write it as a predicate document
  predicate combine positive.yaml small.yaml --name small_positive --format yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.output()
			if err != nil {
				return err
			}
			doc, err := a.combineFiles(cmd.Context(), args, name)
			if err != nil {
				return cli.NewCommandError("combine", err)
			}
			return writeDocument(cmd.OutOrStdout(), format, doc)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the combined predicate (default: joined file names)")
	return cmd
}

// combineFiles parses files and conjoins them left to right.
func (a *app) combineFiles(ctx context.Context, files []string, name string) (*parser.Document, error) {
	p := a.parser()
	docs := make([]*parser.Document, len(files))
	for i, file := range files {
		doc, err := p.Parse(file)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return a.combineDocuments(ctx, docs, name)
}

func (a *app) combineDocuments(ctx context.Context, docs []*parser.Document, name string) (*parser.Document, error) {
	if len(docs) == 1 {
		return docs[0], nil
	}

	lambdas := make([]*ast.Lambda, len(docs))
	names := make([]string, len(docs))
	var free []*ast.Parameter
	for i, doc := range docs {
		lambdas[i] = doc.Lambda
		names[i] = doc.Name
		if names[i] == "" {
			names[i] = catalog.NameFromPath(doc.Source)
		}
		free = append(free, doc.Free...)
	}

	lambda, err := a.combiner().AndAll(ctx, lambdas...)
	if err != nil {
		return nil, fmt.Errorf("failed to combine %s: %w", strings.Join(names, ", "), err)
	}
	if name == "" {
		name = strings.Join(names, "_and_")
	}
	lambda.Name = name

	return &parser.Document{Name: name, Lambda: lambda, Free: free}, nil
}
