package ast

import "fmt"

// Location is the source position of a node in a predicate document.
// Nodes do not carry it; the parser reports it in errors.
type Location struct {
	File   string // Path to the predicate file
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
	Path   string // Position inside the document, e.g. "body.left.object"
}

// String returns "file:line:column", followed by the document path if known.
func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		if l.Path != "" {
			return l.Path
		}
		return "<unknown>"
	}
	file := l.File
	if file == "" {
		file = "<input>"
	}
	s := fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
	if l.Path != "" {
		s += " (" + l.Path + ")"
	}
	return s
}

// IsValid returns true if the location has line information.
func (l Location) IsValid() bool {
	return l.Line > 0
}
