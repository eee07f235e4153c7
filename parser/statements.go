package parser

import (
	"fmt"

	"github.com/deicod/inherit/lexer"
	"github.com/deicod/inherit/nodes"
)

// parseExtends parses an extends tag. The rest of the template is parsed
// here as well: its top-level blocks become the overrides carried by the
// returned node and everything else after the tag is dropped.
func (p *Parser) parseExtends(token lexer.Token) (nodes.Node, error) {
	components := token.Components()
	if len(components) != 2 {
		return nil, p.Fail("'extends' takes one argument, the template file to be extended", token.Line, token.Column)
	}

	template, err := p.ParseExpression(components[1], token.Line, token.Column)
	if err != nil {
		return nil, err
	}

	remainder, err := p.Subparse(nil)
	if err != nil {
		return nil, err
	}

	isExtends := func(node nodes.Node) bool {
		_, ok := node.(*nodes.Extends)
		return ok
	}
	if dup, found := firstMatch(remainder, isExtends); found {
		pos := dup.GetPosition()
		return nil, p.Fail("'extends' cannot appear more than once in the same template", pos.Line, pos.Column)
	}

	blocks := make(map[string]*nodes.Block)
	for _, node := range remainder {
		if block, ok := node.(*nodes.Block); ok {
			blocks[block.Name] = block
		}
	}

	extends := &nodes.Extends{Template: template, Blocks: blocks}
	extends.SetPosition(nodes.NewPosition(token.Line, token.Column))
	return extends, nil
}

// parseBlock parses a block up to and including its endblock tag
func (p *Parser) parseBlock(token lexer.Token) (nodes.Node, error) {
	components := token.Components()
	if len(components) != 2 {
		return nil, p.Fail("'block' tag takes one argument, the block name", token.Line, token.Column)
	}
	name := components[1]

	body, err := p.Subparse([]string{"endblock"})
	if err != nil {
		return nil, err
	}
	if p.stream.Eof() {
		return nil, p.FailEOF([]string{"endblock"}, token.Line, token.Column)
	}

	end := p.stream.Next()
	switch endComponents := end.Components(); len(endComponents) {
	case 1:
	case 2:
		if endComponents[1] != name {
			return nil, p.Fail(fmt.Sprintf("mismatched endblock: expected %q, got %q", name, endComponents[1]), end.Line, end.Column)
		}
	default:
		return nil, p.Fail("'endblock' takes at most one argument, the block name", end.Line, end.Column)
	}

	block := &nodes.Block{Name: name, Body: body}
	block.SetPosition(nodes.NewPosition(token.Line, token.Column))
	return block, nil
}

// parseInclude parses an include tag
func (p *Parser) parseInclude(token lexer.Token) (nodes.Node, error) {
	components := token.Components()
	if len(components) != 2 {
		return nil, p.Fail("'include' takes one argument, the template file to be included", token.Line, token.Column)
	}

	template, err := p.ParseExpression(components[1], token.Line, token.Column)
	if err != nil {
		return nil, err
	}

	include := &nodes.Include{Template: template}
	include.SetPosition(nodes.NewPosition(token.Line, token.Column))
	return include, nil
}
