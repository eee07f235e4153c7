// Package inherit renders Jinja-style templates with template inheritance:
// a child template extends a parent and overrides its named blocks, with
// the overridden content available as block.super.
package inherit

import (
	"path/filepath"

	"github.com/deicod/inherit/nodes"
	"github.com/deicod/inherit/runtime"
)

// Version of the inherit library
const Version = "0.1.0"

// Template represents a parsed template
type Template = runtime.Template

// Environment holds loaders, filters and the template cache
type Environment = runtime.Environment

// Context represents the template rendering context
type Context = runtime.Context

// BlockContext holds the block overrides pending during one render
type BlockContext = runtime.BlockContext

// Markup is a string that is never HTML-escaped
type Markup = runtime.Markup

// NewEnvironment creates a new environment
func NewEnvironment() *Environment {
	return runtime.NewEnvironment()
}

// NewBlockContext creates a block registry seeded with one override per entry
func NewBlockContext(blocks map[string]*nodes.Block) *BlockContext {
	return runtime.NewBlockContext(blocks)
}

// ParseString parses a template from a string
func ParseString(source string) (*Template, error) {
	env := runtime.NewEnvironment()
	return env.NewTemplate(source)
}

// ParseFile parses a template from a file. Templates it extends or
// includes are resolved relative to the file's directory.
func ParseFile(filename string) (*Template, error) {
	if filename == "" {
		return nil, runtime.NewError(runtime.ErrorTypeTemplate, "filename must not be empty", nodes.Position{}, nil)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	return ParseDir(filepath.Dir(absPath), filepath.Base(absPath))
}

// ParseDir loads the template called name from dir
func ParseDir(dir, name string) (*Template, error) {
	env := runtime.NewEnvironment()
	env.SetLoader(runtime.NewFileSystemLoader(dir))

	tmpl, err := env.ParseFile(name)
	if err != nil {
		return nil, err
	}

	return tmpl, nil
}

// Node access for AST manipulation

// Node represents an AST node
type Node = nodes.Node

// TemplateNode represents a template AST node
type TemplateNode = nodes.Template

// DumpAST returns a string representation of the AST for debugging
func DumpAST(node Node) string {
	return nodes.Dump(node)
}

// Walk traverses the AST using the visitor pattern
func Walk(visitor nodes.Visitor, node Node) {
	nodes.Walk(visitor, node)
}

// Error types

// Error represents a render error
type Error = runtime.Error

// ErrorType represents the type of error
type ErrorType = runtime.ErrorType

// TemplateNotFoundError is returned when a loader cannot find a template
type TemplateNotFoundError = runtime.TemplateNotFoundError
