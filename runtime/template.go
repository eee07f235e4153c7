package runtime

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/deicod/inherit/nodes"
)

// Template represents a parsed template ready for rendering. Templates are
// immutable and may be rendered concurrently.
type Template struct {
	name        string
	environment *Environment
	ast         *nodes.Template
	blocks      map[string]*nodes.Block
}

// NewTemplate creates a new template from an AST
func NewTemplate(env *Environment, ast *nodes.Template, name string) (*Template, error) {
	if env == nil {
		return nil, NewError(ErrorTypeTemplate, "environment cannot be nil", nodes.Position{}, nil)
	}
	if ast == nil {
		return nil, NewError(ErrorTypeTemplate, "AST cannot be nil", nodes.Position{}, nil)
	}
	return newTemplate(env, ast, name), nil
}

func newTemplate(env *Environment, ast *nodes.Template, name string) *Template {
	t := &Template{
		name:        name,
		environment: env,
		ast:         ast,
		blocks:      make(map[string]*nodes.Block),
	}
	t.preprocess()
	return t
}

// preprocess collects the blocks defined anywhere in the template
func (t *Template) preprocess() {
	visitor := nodes.NodeVisitorFunc(func(node nodes.Node) interface{} {
		if block, ok := node.(*nodes.Block); ok {
			if _, seen := t.blocks[block.Name]; !seen {
				t.blocks[block.Name] = block
			}
		}
		return nil
	})

	nodes.Walk(visitor, t.ast)
}

// Execute renders the template with vars into writer. Nothing is written
// when rendering fails.
func (t *Template) Execute(vars map[string]interface{}, writer io.Writer) error {
	return t.ExecuteWithContext(NewContextWithEnvironment(t.environment, vars), writer)
}

// ExecuteWithContext renders the template using an existing context. A
// block registry already bound to ctx with WithBlocks takes part in the
// inheritance chain of this render.
func (t *Template) ExecuteWithContext(ctx *Context, writer io.Writer) error {
	if writer == nil {
		return NewError(ErrorTypeTemplate, "writer cannot be nil", nodes.Position{}, nil)
	}

	start := time.Now()
	ctx.logger.Debug("render started", "render", ctx.renderID, "template", t.name)

	var buffer bytes.Buffer
	previous := ctx.writer
	ctx.writer = &buffer
	err := t.render(ctx)
	ctx.writer = previous
	if err != nil {
		ctx.logger.Debug("render failed", "render", ctx.renderID, "template", t.name, "err", err)
		return err
	}

	ctx.logger.Debug("render finished", "render", ctx.renderID, "template", t.name, "took", time.Since(start))
	_, err = writer.Write(buffer.Bytes())
	return err
}

// ExecuteToString executes the template and returns the result as a string
func (t *Template) ExecuteToString(vars map[string]interface{}) (string, error) {
	var builder strings.Builder
	if err := t.Execute(vars, &builder); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// render evaluates the template body into the context writer
func (t *Template) render(ctx *Context) error {
	return ctx.enter(t.name, func() error {
		if result := NewEvaluator(ctx).Evaluate(t.ast); result != nil {
			if err, ok := result.(error); ok {
				return err
			}
		}
		return nil
	})
}

// Name returns the template name
func (t *Template) Name() string {
	return t.name
}

// Environment returns the template's environment
func (t *Template) Environment() *Environment {
	return t.environment
}

// AST returns the template's AST
func (t *Template) AST() *nodes.Template {
	return t.ast
}

// GetBlock returns a block by name
func (t *Template) GetBlock(name string) (*nodes.Block, bool) {
	block, ok := t.blocks[name]
	return block, ok
}

// HasBlock checks if the template has a block
func (t *Template) HasBlock(name string) bool {
	_, ok := t.blocks[name]
	return ok
}

// BlockNames returns the sorted names of every block in the template
func (t *Template) BlockNames() []string {
	names := make([]string, 0, len(t.blocks))
	for name := range t.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parent returns the name of the template this one extends when it is
// given as a string literal.
func (t *Template) Parent() (string, bool) {
	for _, node := range t.ast.Body {
		extends, ok := node.(*nodes.Extends)
		if !ok {
			continue
		}
		if c, ok := extends.Template.(*nodes.Const); ok {
			name, ok := c.Value.(string)
			return name, ok
		}
		return "", false
	}
	return "", false
}

// RenderBlock renders a single block of the template on its own, outside
// any inheritance chain. block.super is not available.
func (t *Template) RenderBlock(blockName string, vars map[string]interface{}, writer io.Writer) error {
	block, ok := t.blocks[blockName]
	if !ok {
		return NewError(ErrorTypeTemplate, fmt.Sprintf("block '%s' not found in template %s", blockName, t.name), nodes.Position{}, nil)
	}

	ctx := NewContextWithEnvironment(t.environment, vars)
	var buffer bytes.Buffer
	ctx.writer = &buffer

	err := ctx.enter(t.name, func() error {
		return NewEvaluator(ctx).renderBlock(block, nil)
	})
	if err != nil {
		return err
	}
	_, err = writer.Write(buffer.Bytes())
	return err
}

// RenderBlockToString renders a single block and returns the result
func (t *Template) RenderBlockToString(blockName string, vars map[string]interface{}) (string, error) {
	var builder strings.Builder
	if err := t.RenderBlock(blockName, vars, &builder); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// String returns a string representation of the template
func (t *Template) String() string {
	return fmt.Sprintf("Template(name=%s)", t.name)
}

// Dump returns an indented tree of the template's AST
func (t *Template) Dump() string {
	return nodes.Dump(t.ast)
}
