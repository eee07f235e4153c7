package nodes

import (
	"fmt"
	"sort"
	"strings"
)

// Position is a line and column in the template source, both 1-based.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func NewPosition(line, column int) Position {
	return Position{
		Line:   line,
		Column: column,
	}
}

// Node is implemented by every element of a parsed template.
type Node interface {
	GetPosition() Position
	SetPosition(pos Position)

	// GetChildren lists the nodes Walk descends into, in source order.
	GetChildren() []Node

	Accept(visitor Visitor) interface{}
	String() string

	// Type is the node kind as printed by Dump.
	Type() string
}

// BaseNode carries the position shared by all nodes.
type BaseNode struct {
	Pos Position `json:"pos"`
}

func (n *BaseNode) GetPosition() Position {
	return n.Pos
}

func (n *BaseNode) SetPosition(pos Position) {
	n.Pos = pos
}

func (n *BaseNode) GetChildren() []Node {
	return []Node{}
}

func (n *BaseNode) Type() string {
	return "BaseNode"
}

// Visitor is called by Accept and Walk. The evaluator is a Visitor whose
// return value is the rendered value or an error.
type Visitor interface {
	Visit(node Node) interface{}
}

// NodeVisitorFunc adapts a function to Visitor.
type NodeVisitorFunc func(node Node) interface{}

func (f NodeVisitorFunc) Visit(node Node) interface{} {
	return f(node)
}

// Walk visits node and then its children depth first. A non-nil result
// from the visitor skips the node's children.
func Walk(visitor Visitor, node Node) {
	if node == nil {
		return
	}

	if visitor.Visit(node) != nil {
		return
	}

	for _, child := range node.GetChildren() {
		Walk(visitor, child)
	}
}

// Stmt marks nodes produced by tags.
type Stmt interface {
	Node
	isStmt()
}

type BaseStmt struct {
	BaseNode
}

func (n *BaseStmt) isStmt() {}

func (n *BaseStmt) Type() string {
	return "Stmt"
}

// Expr marks nodes that evaluate to a value.
type Expr interface {
	Node
	isExpr()

	// AsConst returns the value of a literal, or an error for anything else.
	AsConst() (interface{}, error)
}

type BaseExpr struct {
	BaseNode
}

func (n *BaseExpr) isExpr() {}

func (n *BaseExpr) Type() string {
	return "Expr"
}

func (n *BaseExpr) AsConst() (interface{}, error) {
	return nil, fmt.Errorf("expression cannot be evaluated as constant")
}

// Template is the root of a parsed template.
type Template struct {
	BaseStmt
	Name string `json:"name"`
	Body []Node `json:"body"`
}

func (t *Template) Accept(visitor Visitor) interface{} {
	return visitor.Visit(t)
}

func (t *Template) GetChildren() []Node {
	return t.Body
}

func (t *Template) String() string {
	return fmt.Sprintf("Template(name=%s, body=%v)", t.Name, t.Body)
}

func (t *Template) Type() string {
	return "Template"
}

// Output holds the expressions of a single {{ ... }} tag or a run of text
type Output struct {
	BaseStmt
	Nodes []Expr `json:"nodes"`
}

func (o *Output) Accept(visitor Visitor) interface{} {
	return visitor.Visit(o)
}

func (o *Output) GetChildren() []Node {
	children := make([]Node, len(o.Nodes))
	for i, node := range o.Nodes {
		children[i] = node
	}
	return children
}

func (o *Output) String() string {
	return fmt.Sprintf("Output(nodes=%v)", o.Nodes)
}

func (o *Output) Type() string {
	return "Output"
}

// Extends represents an extends statement together with the blocks the
// extending template defines at its top level.
type Extends struct {
	BaseStmt
	Template Expr              `json:"template"`
	Blocks   map[string]*Block `json:"blocks"`
}

func (e *Extends) Accept(visitor Visitor) interface{} {
	return visitor.Visit(e)
}

func (e *Extends) GetChildren() []Node {
	children := []Node{}
	if e.Template != nil {
		children = append(children, e.Template)
	}
	for _, name := range e.BlockNames() {
		children = append(children, e.Blocks[name])
	}
	return children
}

// BlockNames returns the names of the collected blocks in sorted order
func (e *Extends) BlockNames() []string {
	names := make([]string, 0, len(e.Blocks))
	for name := range e.Blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Extends) String() string {
	return fmt.Sprintf("Extends(template=%v, blocks=%v)", e.Template, e.BlockNames())
}

func (e *Extends) Type() string {
	return "Extends"
}

// Block represents a named, overridable region
type Block struct {
	BaseStmt
	Name string `json:"name"`
	Body []Node `json:"body"`
}

func (b *Block) Accept(visitor Visitor) interface{} {
	return visitor.Visit(b)
}

func (b *Block) GetChildren() []Node {
	return b.Body
}

func (b *Block) String() string {
	return fmt.Sprintf("Block(name=%s, body=%v)", b.Name, b.Body)
}

func (b *Block) Type() string {
	return "Block"
}

// Include renders another template in place, with the current variables.
type Include struct {
	BaseStmt
	Template Expr `json:"template"`
}

func (i *Include) Accept(visitor Visitor) interface{} {
	return visitor.Visit(i)
}

func (i *Include) GetChildren() []Node {
	if i.Template != nil {
		return []Node{i.Template}
	}
	return []Node{}
}

func (i *Include) String() string {
	return fmt.Sprintf("Include(template=%v)", i.Template)
}

func (i *Include) Type() string {
	return "Include"
}

// Const is a string, integer or boolean literal.
type Const struct {
	BaseExpr
	Value interface{} `json:"value"`
}

func NewConst(value interface{}, line, column int) *Const {
	node := &Const{Value: value}
	node.SetPosition(NewPosition(line, column))
	return node
}

func (c *Const) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *Const) GetChildren() []Node {
	return []Node{}
}

func (c *Const) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("Const(value=%q)", s)
	}
	return fmt.Sprintf("Const(value=%v)", c.Value)
}

func (c *Const) Type() string {
	return "Const"
}

func (c *Const) AsConst() (interface{}, error) {
	return c.Value, nil
}

// TemplateData represents constant template text
type TemplateData struct {
	BaseExpr
	Data string `json:"data"`
}

func (t *TemplateData) Accept(visitor Visitor) interface{} {
	return visitor.Visit(t)
}

func (t *TemplateData) GetChildren() []Node {
	return []Node{}
}

func (t *TemplateData) String() string {
	return fmt.Sprintf("TemplateData(data=%q)", t.Data)
}

func (t *TemplateData) Type() string {
	return "TemplateData"
}

func (t *TemplateData) AsConst() (interface{}, error) {
	return t.Data, nil
}

// Name looks up a variable.
type Name struct {
	BaseExpr
	Name string `json:"name"`
}

// NewName creates a new name node
func NewName(name string, line, column int) *Name {
	node := &Name{Name: name}
	node.SetPosition(NewPosition(line, column))
	return node
}

func (n *Name) Accept(visitor Visitor) interface{} {
	return visitor.Visit(n)
}

func (n *Name) GetChildren() []Node {
	return []Node{}
}

func (n *Name) String() string {
	return fmt.Sprintf("Name(name=%s)", n.Name)
}

func (n *Name) Type() string {
	return "Name"
}

func (n *Name) AsConst() (interface{}, error) {
	switch n.Name {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	case "none", "None":
		return nil, nil
	}
	return nil, fmt.Errorf("cannot evaluate name '%s' as constant", n.Name)
}

// Getattr represents attribute access (foo.bar)
type Getattr struct {
	BaseExpr
	Node Expr   `json:"node"`
	Attr string `json:"attr"`
}

func (g *Getattr) Accept(visitor Visitor) interface{} {
	return visitor.Visit(g)
}

func (g *Getattr) GetChildren() []Node {
	if g.Node != nil {
		return []Node{g.Node}
	}
	return []Node{}
}

func (g *Getattr) String() string {
	return fmt.Sprintf("Getattr(node=%v, attr=%s)", g.Node, g.Attr)
}

func (g *Getattr) Type() string {
	return "Getattr"
}

// Getitem represents subscript access (foo["bar"], foo[0])
type Getitem struct {
	BaseExpr
	Node Expr `json:"node"`
	Arg  Expr `json:"arg"`
}

func (g *Getitem) Accept(visitor Visitor) interface{} {
	return visitor.Visit(g)
}

func (g *Getitem) GetChildren() []Node {
	var children []Node
	if g.Node != nil {
		children = append(children, g.Node)
	}
	if g.Arg != nil {
		children = append(children, g.Arg)
	}
	return children
}

func (g *Getitem) String() string {
	return fmt.Sprintf("Getitem(node=%v, arg=%v)", g.Node, g.Arg)
}

func (g *Getitem) Type() string {
	return "Getitem"
}

// Call invokes a global, such as super(), with positional arguments.
type Call struct {
	BaseExpr
	Node Expr   `json:"node"`
	Args []Expr `json:"args"`
}

func (c *Call) Accept(visitor Visitor) interface{} {
	return visitor.Visit(c)
}

func (c *Call) GetChildren() []Node {
	children := []Node{}
	if c.Node != nil {
		children = append(children, c.Node)
	}
	for _, arg := range c.Args {
		children = append(children, arg)
	}
	return children
}

func (c *Call) String() string {
	return fmt.Sprintf("Call(node=%v, args=%v)", c.Node, c.Args)
}

func (c *Call) Type() string {
	return "Call"
}

// Filter represents a filter application (value|name(args))
type Filter struct {
	BaseExpr
	Node Expr   `json:"node"`
	Name string `json:"name"`
	Args []Expr `json:"args"`
}

func (f *Filter) Accept(visitor Visitor) interface{} {
	return visitor.Visit(f)
}

func (f *Filter) GetChildren() []Node {
	children := []Node{}
	if f.Node != nil {
		children = append(children, f.Node)
	}
	for _, arg := range f.Args {
		children = append(children, arg)
	}
	return children
}

func (f *Filter) String() string {
	return fmt.Sprintf("Filter(node=%v, name=%s, args=%v)", f.Node, f.Name, f.Args)
}

func (f *Filter) Type() string {
	return "Filter"
}

// Dump returns an indented representation of the AST for debugging
func Dump(node Node) string {
	if node == nil {
		return "nil"
	}

	var buf strings.Builder
	dumpNode(&buf, node, 0)
	return buf.String()
}

func dumpNode(buf *strings.Builder, node Node, indent int) {
	buf.WriteString(strings.Repeat("  ", indent))
	if node == nil {
		buf.WriteString("nil\n")
		return
	}

	buf.WriteString(node.Type())
	switch n := node.(type) {
	case *Template:
		if n.Name != "" {
			fmt.Fprintf(buf, "(name=%s)", n.Name)
		}
	case *Block:
		fmt.Fprintf(buf, "(name=%s)", n.Name)
	case *Const:
		fmt.Fprintf(buf, "(value=%v)", n.Value)
	case *TemplateData:
		fmt.Fprintf(buf, "(data=%q)", n.Data)
	case *Name:
		fmt.Fprintf(buf, "(name=%s)", n.Name)
	case *Getattr:
		fmt.Fprintf(buf, "(attr=%s)", n.Attr)
	case *Filter:
		fmt.Fprintf(buf, "(name=%s)", n.Name)
	}
	buf.WriteString("\n")

	for _, child := range node.GetChildren() {
		dumpNode(buf, child, indent+1)
	}
}
