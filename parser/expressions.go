package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/deicod/inherit/lexer"
	"github.com/deicod/inherit/nodes"
)

// ParseExpression parses the source of a variable tag or tag argument.
// line and column locate the source for error reporting.
func (p *Parser) ParseExpression(source string, line, column int) (nodes.Expr, error) {
	tokens, err := lexer.TokenizeExpression(source, line, column)
	if err != nil {
		var lexErr *lexer.LexerError
		if errors.As(err, &lexErr) {
			return nil, p.Fail(lexErr.Message, lexErr.Line, lexErr.Column)
		}
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, p.Fail("expected an expression", line, column)
	}

	ep := &exprParser{parser: p, tokens: tokens, line: line, column: column}
	expr, err := ep.parseFilterExpr()
	if err != nil {
		return nil, err
	}
	if !ep.eof() {
		tok := ep.peek()
		return nil, p.Fail(fmt.Sprintf("unexpected '%s' after expression", tok.Value), tok.Line, tok.Column)
	}
	return expr, nil
}

// exprParser is a recursive descent parser over expression tokens
type exprParser struct {
	parser *Parser
	tokens []lexer.Token
	pos    int
	line   int
	column int
}

func (ep *exprParser) eof() bool {
	return ep.pos >= len(ep.tokens)
}

func (ep *exprParser) peek() lexer.Token {
	if ep.eof() {
		return lexer.Token{Type: lexer.TokenEOF, Line: ep.line, Column: ep.column}
	}
	return ep.tokens[ep.pos]
}

func (ep *exprParser) next() lexer.Token {
	tok := ep.peek()
	if !ep.eof() {
		ep.pos++
	}
	return tok
}

func (ep *exprParser) skipIf(typ lexer.TokenType) bool {
	if ep.peek().Type == typ {
		ep.pos++
		return true
	}
	return false
}

func (ep *exprParser) expect(typ lexer.TokenType) (lexer.Token, error) {
	tok := ep.next()
	if tok.Type != typ {
		return tok, ep.parser.Fail(fmt.Sprintf("expected %s, got %s", describeToken(typ), describeToken(tok.Type)), tok.Line, tok.Column)
	}
	return tok, nil
}

func describeToken(typ lexer.TokenType) string {
	switch typ {
	case lexer.TokenEOF:
		return "end of expression"
	case lexer.TokenName:
		return "name"
	case lexer.TokenString:
		return "string"
	case lexer.TokenNumber:
		return "integer"
	case lexer.TokenDot:
		return "'.'"
	case lexer.TokenPipe:
		return "'|'"
	case lexer.TokenComma:
		return "','"
	case lexer.TokenLeftParen:
		return "'('"
	case lexer.TokenRightParen:
		return "')'"
	case lexer.TokenLeftBracket:
		return "'['"
	case lexer.TokenRightBracket:
		return "']'"
	}
	return typ.String()
}

// parseFilterExpr parses `primary postfix* ('|' name args?)*`
func (ep *exprParser) parseFilterExpr() (nodes.Expr, error) {
	node, err := ep.parsePrimary()
	if err != nil {
		return nil, err
	}
	node, err = ep.parsePostfix(node)
	if err != nil {
		return nil, err
	}

	for ep.peek().Type == lexer.TokenPipe {
		pipe := ep.next()
		nameTok, err := ep.expect(lexer.TokenName)
		if err != nil {
			return nil, err
		}

		filter := &nodes.Filter{Node: node, Name: nameTok.Value}
		filter.SetPosition(nodes.NewPosition(pipe.Line, pipe.Column))
		if ep.skipIf(lexer.TokenLeftParen) {
			filter.Args, err = ep.parseArgs()
			if err != nil {
				return nil, err
			}
		}
		node = filter
	}

	return node, nil
}

func (ep *exprParser) parsePrimary() (nodes.Expr, error) {
	tok := ep.next()

	switch tok.Type {
	case lexer.TokenString:
		return nodes.NewConst(tok.Value, tok.Line, tok.Column), nil
	case lexer.TokenNumber:
		value, err := strconv.Atoi(tok.Value)
		if err != nil {
			return nil, ep.parser.Fail(fmt.Sprintf("invalid integer %s", tok.Value), tok.Line, tok.Column)
		}
		return nodes.NewConst(value, tok.Line, tok.Column), nil
	case lexer.TokenName:
		name := nodes.NewName(tok.Value, tok.Line, tok.Column)
		if value, err := name.AsConst(); err == nil {
			return nodes.NewConst(value, tok.Line, tok.Column), nil
		}
		return name, nil
	case lexer.TokenLeftParen:
		expr, err := ep.parseFilterExpr()
		if err != nil {
			return nil, err
		}
		if _, err := ep.expect(lexer.TokenRightParen); err != nil {
			return nil, err
		}
		return expr, nil
	}

	return nil, ep.parser.Fail(fmt.Sprintf("unexpected %s, expected an expression", describeToken(tok.Type)), tok.Line, tok.Column)
}

func (ep *exprParser) parsePostfix(node nodes.Expr) (nodes.Expr, error) {
	for {
		tok := ep.peek()

		switch tok.Type {
		case lexer.TokenDot:
			ep.next()
			attr := ep.next()
			switch attr.Type {
			case lexer.TokenName:
				getattr := &nodes.Getattr{Node: node, Attr: attr.Value}
				getattr.SetPosition(nodes.NewPosition(tok.Line, tok.Column))
				node = getattr
			case lexer.TokenNumber:
				index, _ := strconv.Atoi(attr.Value)
				getitem := &nodes.Getitem{Node: node, Arg: nodes.NewConst(index, attr.Line, attr.Column)}
				getitem.SetPosition(nodes.NewPosition(tok.Line, tok.Column))
				node = getitem
			default:
				return nil, ep.parser.Fail(fmt.Sprintf("expected name after '.', got %s", describeToken(attr.Type)), attr.Line, attr.Column)
			}
		case lexer.TokenLeftBracket:
			ep.next()
			arg, err := ep.parseFilterExpr()
			if err != nil {
				return nil, err
			}
			if _, err := ep.expect(lexer.TokenRightBracket); err != nil {
				return nil, err
			}
			getitem := &nodes.Getitem{Node: node, Arg: arg}
			getitem.SetPosition(nodes.NewPosition(tok.Line, tok.Column))
			node = getitem
		case lexer.TokenLeftParen:
			ep.next()
			args, err := ep.parseArgs()
			if err != nil {
				return nil, err
			}
			call := &nodes.Call{Node: node, Args: args}
			call.SetPosition(nodes.NewPosition(tok.Line, tok.Column))
			node = call
		default:
			return node, nil
		}
	}
}

// parseArgs parses a comma separated argument list; the opening
// parenthesis has already been consumed.
func (ep *exprParser) parseArgs() ([]nodes.Expr, error) {
	args := []nodes.Expr{}
	if ep.skipIf(lexer.TokenRightParen) {
		return args, nil
	}

	for {
		arg, err := ep.parseFilterExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if ep.skipIf(lexer.TokenComma) {
			continue
		}
		if _, err := ep.expect(lexer.TokenRightParen); err != nil {
			return nil, err
		}
		return args, nil
	}
}
