package parser

import (
	"fmt"
	"os"

	"mercator-hq/predicate/pkg/expr/ast"
	exprerrors "mercator-hq/predicate/pkg/expr/errors"
	"mercator-hq/predicate/pkg/expr/rewrite"

	"gopkg.in/yaml.v3"
)

// DefaultMaxFileSize is the largest predicate document Parse accepts.
const DefaultMaxFileSize = 10 * 1024 * 1024

// Document is a parsed predicate file.
type Document struct {
	Name        string
	Description string
	Tags        []string

	// Lambda is the predicate. Its Name is the document name.
	Lambda *ast.Lambda

	// Free lists parameters referenced but never declared, in first-use
	// order. Each name maps to one parameter shared by the whole document.
	Free []*ast.Parameter

	// Tests are example inputs with their expected outcome.
	Tests []Test

	// Source is the file the document was read from, if any.
	Source string
}

// Test is one example embedded in a predicate document.
type Test struct {
	Name   string
	Args   []any
	Expect bool
}

// Parser reads predicate documents.
type Parser struct {
	maxFileSize int64
	maxDepth    int
}

// NewParser creates a parser with default limits.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: DefaultMaxFileSize,
		maxDepth:    rewrite.DefaultMaxDepth,
	}
}

// WithMaxFileSize sets the maximum document size in bytes.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithMaxDepth sets the maximum node nesting depth. Zero disables the limit.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// Parse reads the predicate document at path.
func (p *Parser) Parse(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &exprerrors.Error{
			Type:     exprerrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	if info.Size() > p.maxFileSize {
		return nil, &exprerrors.Error{
			Type:     exprerrors.ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &exprerrors.Error{
			Type:     exprerrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	return p.ParseBytes(data, path)
}

// ParseBytes parses a predicate document held in memory. sourcePath is used
// in error locations only.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*Document, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &exprerrors.Error{
			Type:     exprerrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &exprerrors.Error{
			Type:       exprerrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	b := newBuilder(sourcePath, p.maxDepth)
	doc := b.document(&root)
	if err := b.errors.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse reads a predicate document with the default parser.
func Parse(path string) (*Document, error) {
	return NewParser().Parse(path)
}

// ParseBytes parses a predicate document with the default parser.
func ParseBytes(data []byte, sourcePath string) (*Document, error) {
	return NewParser().ParseBytes(data, sourcePath)
}
