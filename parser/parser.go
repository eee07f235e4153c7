package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deicod/inherit/lexer"
	"github.com/deicod/inherit/nodes"
)

// TemplateSyntaxError represents a syntax error in a template
type TemplateSyntaxError struct {
	Message  string
	Line     int
	Column   int
	Name     string
	Filename string
}

func (e *TemplateSyntaxError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s at line %d, column %d in %s", e.Message, e.Line, e.Column, e.Filename)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s at line %d, column %d in %s", e.Message, e.Line, e.Column, e.Name)
	}
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// Extension adds custom tags to the parser. Parse receives the tag token
// whose first component is one of the names returned by Tags.
type Extension interface {
	Tags() []string
	Parse(parser *Parser, token lexer.Token) (nodes.Node, error)
}

// Environment holds the parser settings shared by every template
type Environment struct {
	Extensions          []Extension
	KeepTrailingNewline bool
}

// Parser turns a token stream into a template AST
type Parser struct {
	environment   *Environment
	stream        *lexer.TokenStream
	name          string
	filename      string
	extensions    map[string]Extension
	tagStack      []string
	endTokenStack [][]string
}

// NewParser creates a new parser instance
func NewParser(env *Environment, source, name, filename string) (*Parser, error) {
	lexerConfig := lexer.DefaultLexerConfig()
	if env != nil {
		lexerConfig.KeepTrailingNewline = env.KeepTrailingNewline
	}

	stream, err := lexer.NewLexer(lexerConfig).Tokenize(source)
	if err != nil {
		var lexErr *lexer.LexerError
		if errors.As(err, &lexErr) {
			return nil, &TemplateSyntaxError{
				Message:  lexErr.Message,
				Line:     lexErr.Line,
				Column:   lexErr.Column,
				Name:     name,
				Filename: filename,
			}
		}
		return nil, err
	}

	parser := &Parser{
		environment:   env,
		stream:        stream,
		name:          name,
		filename:      filename,
		extensions:    make(map[string]Extension),
		tagStack:      make([]string, 0),
		endTokenStack: make([][]string, 0),
	}

	if env != nil {
		for _, ext := range env.Extensions {
			for _, tag := range ext.Tags() {
				parser.extensions[tag] = ext
			}
		}
	}

	return parser, nil
}

// Name returns the name of the template being parsed
func (p *Parser) Name() string {
	return p.name
}

// Stream exposes the token stream to extensions
func (p *Parser) Stream() *lexer.TokenStream {
	return p.stream
}

// Fail creates a syntax error with position information. A zero line
// falls back to the position of the next token.
func (p *Parser) Fail(msg string, line, column int) error {
	if line == 0 {
		token := p.stream.Peek()
		if token.Type != lexer.TokenEOF {
			line, column = token.Line, token.Column
		} else {
			line = 1
		}
	}

	return &TemplateSyntaxError{
		Message:  msg,
		Line:     line,
		Column:   column,
		Name:     p.name,
		Filename: p.filename,
	}
}

// FailUnknownTag is called when the parser encounters an unknown tag
func (p *Parser) FailUnknownTag(token lexer.Token, name string) error {
	return p.failUntilEOF(name, p.endTokenStack, token.Line, token.Column)
}

// FailEOF is called when EOF is encountered unexpectedly
func (p *Parser) FailEOF(endTokens []string, line, column int) error {
	stack := make([][]string, len(p.endTokenStack))
	copy(stack, p.endTokenStack)
	if endTokens != nil {
		stack = append(stack, endTokens)
	}
	return p.failUntilEOF("", stack, line, column)
}

func (p *Parser) failUntilEOF(name string, endTokenStack [][]string, line, column int) error {
	expected := make(map[string]bool)
	for _, tags := range endTokenStack {
		for _, tag := range tags {
			expected[tag] = true
		}
	}

	var currentlyLooking string
	if len(endTokenStack) > 0 {
		currentlyLooking = strings.Join(endTokenStack[len(endTokenStack)-1], " or ")
	}

	var message strings.Builder
	if name == "" {
		message.WriteString("Unexpected end of template.")
	} else {
		message.WriteString(fmt.Sprintf("Encountered unknown tag %q.", name))
	}

	if currentlyLooking != "" {
		if name != "" && expected[name] {
			message.WriteString(fmt.Sprintf(" You probably made a nesting mistake. The parser is expecting this tag, but currently looking for %s.", currentlyLooking))
		} else {
			message.WriteString(fmt.Sprintf(" The parser was looking for the following tags: %s.", currentlyLooking))
		}
	}

	if len(p.tagStack) > 0 {
		message.WriteString(fmt.Sprintf(" The innermost block that needs to be closed is %q.", p.tagStack[len(p.tagStack)-1]))
	}

	return p.Fail(message.String(), line, column)
}

// Parse parses the whole template into a Template node
func (p *Parser) Parse() (*nodes.Template, error) {
	body, err := p.Subparse(nil)
	if err != nil {
		return nil, err
	}

	template := &nodes.Template{Name: p.name, Body: body}
	template.SetPosition(nodes.NewPosition(1, 1))
	return template, nil
}

// Subparse parses nodes until a tag whose name is one of endTokens is
// reached, or until the end of the stream when endTokens is nil. The end
// tag itself is left in the stream for the caller to consume.
func (p *Parser) Subparse(endTokens []string) ([]nodes.Node, error) {
	var body []nodes.Node
	var dataBuffer []nodes.Expr

	if endTokens != nil {
		p.endTokenStack = append(p.endTokenStack, endTokens)
		defer func() {
			p.endTokenStack = p.endTokenStack[:len(p.endTokenStack)-1]
		}()
	}

	flushData := func() {
		if len(dataBuffer) == 0 {
			return
		}
		output := &nodes.Output{Nodes: dataBuffer}
		output.SetPosition(dataBuffer[0].GetPosition())
		body = append(body, output)
		dataBuffer = nil
	}

	for !p.stream.Eof() {
		token := p.stream.Peek()

		switch token.Type {
		case lexer.TokenText:
			data := &nodes.TemplateData{Data: token.Value}
			data.SetPosition(nodes.NewPosition(token.Line, token.Column))
			dataBuffer = append(dataBuffer, data)
			p.stream.Next()
		case lexer.TokenComment:
			p.stream.Next()
		case lexer.TokenVariable:
			p.stream.Next()
			expr, err := p.ParseExpression(token.Value, token.Line, token.Column)
			if err != nil {
				return nil, err
			}
			dataBuffer = append(dataBuffer, expr)
		case lexer.TokenBlock:
			flushData()

			if endTokens != nil && p.testEndTokens(token, endTokens) {
				return body, nil
			}

			p.stream.Next()
			stmt, err := p.ParseStatement(token)
			if err != nil {
				return nil, err
			}
			if stmt != nil {
				body = append(body, stmt)
			}
		default:
			return nil, fmt.Errorf("internal parsing error: unexpected token type %s", token.Type)
		}
	}

	flushData()
	return body, nil
}

// testEndTokens checks if the tag token names one of the end tokens
func (p *Parser) testEndTokens(token lexer.Token, endTokens []string) bool {
	name := tagName(token)
	for _, endToken := range endTokens {
		if name == endToken {
			return true
		}
	}
	return false
}

// ParseStatement dispatches a tag token to its parse function
func (p *Parser) ParseStatement(token lexer.Token) (nodes.Node, error) {
	name := tagName(token)
	if name == "" {
		return nil, p.Fail("tag name expected", token.Line, token.Column)
	}

	ext, isExtension := p.extensions[name]
	if !builtinTags[name] && !isExtension {
		return nil, p.FailUnknownTag(token, name)
	}

	p.tagStack = append(p.tagStack, name)
	defer func() {
		p.tagStack = p.tagStack[:len(p.tagStack)-1]
	}()

	switch name {
	case "extends":
		return p.parseExtends(token)
	case "block":
		return p.parseBlock(token)
	case "include":
		return p.parseInclude(token)
	}
	return ext.Parse(p, token)
}

var builtinTags = map[string]bool{
	"extends": true,
	"block":   true,
	"include": true,
}

func tagName(token lexer.Token) string {
	components := token.Components()
	if len(components) == 0 {
		return ""
	}
	return components[0]
}
