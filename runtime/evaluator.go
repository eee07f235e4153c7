package runtime

import (
	"fmt"
	"html/template"
	"io"
	"reflect"

	"github.com/deicod/inherit/nodes"
)

// Markup represents a string that should not be HTML-escaped
type Markup string

// Evaluator implements the visitor pattern for evaluating AST nodes.
// Statement visitors write to the context writer and return nil or an
// error; expression visitors return the value or an error.
type Evaluator struct {
	ctx *Context
}

// NewEvaluator creates a new evaluator
func NewEvaluator(ctx *Context) *Evaluator {
	return &Evaluator{ctx: ctx}
}

// Evaluate evaluates a node and returns the result
func (e *Evaluator) Evaluate(node nodes.Node) interface{} {
	if node == nil {
		return nil
	}
	return node.Accept(e)
}

// Write writes rendered content to the context writer
func (e *Evaluator) Write(content string) {
	if e.ctx.writer != nil {
		io.WriteString(e.ctx.writer, content)
	}
}

// Visit implements the Visitor interface
func (e *Evaluator) Visit(node nodes.Node) interface{} {
	switch n := node.(type) {
	case *nodes.Template:
		return e.visitTemplate(n)
	case *nodes.Output:
		return e.visitOutput(n)
	case *nodes.Block:
		return e.visitBlock(n)
	case *nodes.Extends:
		return e.visitExtends(n)
	case *nodes.Include:
		return e.visitInclude(n)

	// Expression nodes
	case *nodes.Name:
		return e.visitName(n)
	case *nodes.Const:
		return n.Value
	case *nodes.TemplateData:
		return n.Data
	case *nodes.Getattr:
		return e.visitGetattr(n)
	case *nodes.Getitem:
		return e.visitGetitem(n)
	case *nodes.Call:
		return e.visitCall(n)
	case *nodes.Filter:
		return e.visitFilter(n)

	default:
		return NewError(ErrorTypeTemplate, fmt.Sprintf("unknown node type: %T", node), node.GetPosition(), node)
	}
}

// renderNodes renders a node sequence, stopping at the first error
func (e *Evaluator) renderNodes(body []nodes.Node) error {
	for _, child := range body {
		if result := e.Evaluate(child); result != nil {
			if err, ok := result.(error); ok {
				return err
			}
		}
	}
	return nil
}

// Statement node visitors

func (e *Evaluator) visitTemplate(node *nodes.Template) interface{} {
	if err := e.renderNodes(node.Body); err != nil {
		return err
	}
	return nil
}

func (e *Evaluator) visitOutput(node *nodes.Output) interface{} {
	for _, expr := range node.Nodes {
		if data, ok := expr.(*nodes.TemplateData); ok {
			e.Write(data.Data)
			continue
		}

		value := e.Evaluate(expr)
		if err, ok := value.(error); ok {
			return err
		}

		if markup, ok := value.(Markup); ok {
			e.Write(string(markup))
			continue
		}

		str := toString(value)
		if e.ctx.ShouldAutoescape() {
			str = template.HTMLEscapeString(str)
		}
		e.Write(str)
	}
	return nil
}

func (e *Evaluator) visitInclude(node *nodes.Include) interface{} {
	if e.ctx.environment == nil {
		return NewError(ErrorTypeTemplate, "no environment available for includes", node.GetPosition(), node)
	}

	value := e.Evaluate(node.Template)
	if err, ok := value.(error); ok {
		return err
	}
	name, ok := value.(string)
	if !ok {
		return NewError(ErrorTypeTemplate, fmt.Sprintf("'%s' could not be resolved as a string", describeExpr(node.Template)), node.GetPosition(), node)
	}

	if e.ctx.including(name) {
		return NewError(ErrorTypeTemplate, fmt.Sprintf("circular template include detected: %s", chainString(e.ctx.includeChain(), name)), node.GetPosition(), node)
	}

	tmpl, err := e.ctx.environment.LoadTemplate(name)
	if err != nil {
		return err
	}

	// included templates see the variables but neither the overrides nor
	// the inheritance chain of the template that includes them
	err = e.ctx.WithBlocks(nil, func() error {
		return e.ctx.include(func() error {
			return e.ctx.Push(nil, func() error {
				return tmpl.render(e.ctx)
			})
		})
	})
	if err != nil {
		return err
	}
	return nil
}

// Expression node visitors

func (e *Evaluator) visitName(node *nodes.Name) interface{} {
	if value, ok := e.ctx.Get(node.Name); ok {
		return value
	}
	if e.ctx.environment != nil && e.ctx.environment.StrictUndefined() {
		return NewUndefinedError(node.Name, node.GetPosition(), node)
	}
	return Undefined{Name: node.Name}
}

func (e *Evaluator) visitGetattr(node *nodes.Getattr) interface{} {
	obj := e.Evaluate(node.Node)
	if err, ok := obj.(error); ok {
		return err
	}

	value, found := resolveAttribute(obj, node.Attr)
	if !found {
		return e.undefined(describeExpr(node), node)
	}
	return value
}

func (e *Evaluator) visitGetitem(node *nodes.Getitem) interface{} {
	obj := e.Evaluate(node.Node)
	if err, ok := obj.(error); ok {
		return err
	}

	index := e.Evaluate(node.Arg)
	if err, ok := index.(error); ok {
		return err
	}

	value, found, err := resolveIndex(obj, index)
	if err != nil {
		return NewErrorWithCause(ErrorTypeTemplate, err.Error(), node.GetPosition(), node, err)
	}
	if !found {
		return e.undefined(describeExpr(node), node)
	}
	return value
}

func (e *Evaluator) visitCall(node *nodes.Call) interface{} {
	callable := e.Evaluate(node.Node)
	if err, ok := callable.(error); ok {
		return err
	}

	args := make([]interface{}, len(node.Args))
	for i, arg := range node.Args {
		value := e.Evaluate(arg)
		if err, ok := value.(error); ok {
			return err
		}
		args[i] = value
	}

	result, err := e.callFunction(callable, args)
	if err != nil {
		return WrapError(err, ErrorTypeTemplate, node.GetPosition(), node)
	}
	return result
}

func (e *Evaluator) callFunction(callable interface{}, args []interface{}) (interface{}, error) {
	switch fn := callable.(type) {
	case GlobalFunc:
		return fn(e.ctx, args...)
	case func(*Context, ...interface{}) (interface{}, error):
		return fn(e.ctx, args...)
	case Undefined:
		return nil, fmt.Errorf("'%s' is undefined and cannot be called", fn.Name)
	}

	fn := reflect.ValueOf(callable)
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T is not callable", callable)
	}

	typ := fn.Type()
	if !typ.IsVariadic() && typ.NumIn() != len(args) {
		return nil, fmt.Errorf("function expects %d arguments, got %d", typ.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if typ.IsVariadic() && i >= typ.NumIn()-1 {
			want = typ.In(typ.NumIn() - 1).Elem()
		} else {
			want = typ.In(i)
		}
		if arg == nil {
			in[i] = reflect.Zero(want)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(want) {
			if !v.Type().ConvertibleTo(want) {
				return nil, fmt.Errorf("argument %d: cannot use %T as %s", i+1, arg, want)
			}
			v = v.Convert(want)
		}
		in[i] = v
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if err, ok := out[0].Interface().(error); ok && typ.Out(0) == errorType {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		if err, ok := out[len(out)-1].Interface().(error); ok && err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (e *Evaluator) visitFilter(node *nodes.Filter) interface{} {
	input := e.Evaluate(node.Node)
	if err, ok := input.(error); ok {
		if !IsUndefinedError(err) || node.Name != "default" {
			return err
		}
		input = Undefined{}
	}

	args := make([]interface{}, len(node.Args))
	for i, arg := range node.Args {
		value := e.Evaluate(arg)
		if err, ok := value.(error); ok {
			return err
		}
		args[i] = value
	}

	if e.ctx.environment == nil {
		return NewFilterError(node.Name, "no environment available for filters", node.GetPosition(), node, nil)
	}
	filterFunc, ok := e.ctx.environment.GetFilter(node.Name)
	if !ok {
		return NewFilterError(node.Name, "unknown filter", node.GetPosition(), node, nil)
	}

	result, err := filterFunc(e.ctx, input, args...)
	if err != nil {
		return NewFilterError(node.Name, err.Error(), node.GetPosition(), node, err)
	}
	return result
}

// undefined returns the value of a missing name or attribute
func (e *Evaluator) undefined(name string, node nodes.Node) interface{} {
	if e.ctx.environment != nil && e.ctx.environment.StrictUndefined() {
		return NewUndefinedError(name, node.GetPosition(), node)
	}
	return Undefined{Name: name}
}

// describeExpr renders an expression back to template source for messages
func describeExpr(expr nodes.Expr) string {
	switch n := expr.(type) {
	case *nodes.Name:
		return n.Name
	case *nodes.Const:
		if s, ok := n.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprintf("%v", n.Value)
	case *nodes.Getattr:
		return describeExpr(n.Node) + "." + n.Attr
	case *nodes.Getitem:
		return describeExpr(n.Node) + "[" + describeExpr(n.Arg) + "]"
	case *nodes.Call:
		return describeExpr(n.Node) + "(...)"
	case *nodes.Filter:
		return describeExpr(n.Node) + "|" + n.Name
	}
	return expr.String()
}
