package errors

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/predicate/pkg/expr/ast"
)

// SuggestKind suggests the closest known node kind for an unknown one.
// Overflow-checked spellings ("add_checked") are offered as well.
func SuggestKind(unknown string) string {
	candidates := make([]string, 0, len(ast.Kinds()))
	for _, k := range ast.Kinds() {
		candidates = append(candidates, string(k))
		if k.Checkable() {
			candidates = append(candidates, string(k)+"_checked")
		}
	}
	return SuggestName(unknown, candidates)
}

// SuggestName suggests the closest valid name for an unknown one.
// It uses Levenshtein distance and only suggests a match within a few edits.
func SuggestName(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}

	minDistance := -1
	var bestMatch string
	for _, name := range valid {
		dist := levenshteinDistance(strings.ToLower(unknown), strings.ToLower(name))
		if minDistance < 0 || dist < minDistance {
			minDistance = dist
			bestMatch = name
		}
	}

	if minDistance <= maxSuggestDistance(unknown) {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}

	sorted := append([]string(nil), valid...)
	sort.Strings(sorted)
	if len(sorted) > 5 {
		return fmt.Sprintf("Valid values include: %s, ...", strings.Join(sorted[:5], ", "))
	}
	return fmt.Sprintf("Valid values: %s", strings.Join(sorted, ", "))
}

// SuggestMissingKey suggests adding a required key to a node.
func SuggestMissingKey(key, example string) string {
	if example != "" {
		return fmt.Sprintf("Add '%s: %s' to the node", key, example)
	}
	return fmt.Sprintf("Add '%s' to the node", key)
}

func maxSuggestDistance(s string) int {
	switch {
	case len(s) <= 3:
		return 1
	case len(s) <= 8:
		return 2
	default:
		return 4
	}
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // Deletion
				curr[j-1]+1,    // Insertion
				prev[j-1]+cost, // Substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
