// Predicate combines, evaluates and catalogs boolean predicates written as
// YAML expression trees.
//
// Usage:
//
//	# Conjoin two predicate files and print the result
//	predicate combine positive.yaml small.yaml
//
//	# Evaluate a predicate for an argument
//	predicate eval positive.yaml --arg 3
//
//	# Check predicate files and run their embedded tests
//	predicate lint predicates/
//
//	# Store predicates and compose them by name
//	predicate catalog put predicates/*.yaml
//	predicate catalog compose positive small
//
//	# Keep the catalog in sync with a directory
//	predicate watch predicates/
package main

import (
	"fmt"
	"os"

	"mercator-hq/predicate/pkg/cli"
)

func main() {
	os.Exit(Execute())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}
