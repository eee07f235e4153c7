package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenText
	TokenVariable
	TokenBlock
	TokenComment

	// Expression tokens, produced by TokenizeExpression
	TokenName
	TokenString
	TokenNumber
	TokenDot
	TokenPipe
	TokenComma
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenText:         "TEXT",
	TokenVariable:     "VARIABLE",
	TokenBlock:        "BLOCK",
	TokenComment:      "COMMENT",
	TokenName:         "NAME",
	TokenString:       "STRING",
	TokenNumber:       "NUMBER",
	TokenDot:          "DOT",
	TokenPipe:         "PIPE",
	TokenComma:        "COMMA",
	TokenLeftParen:    "LPAREN",
	TokenRightParen:   "RPAREN",
	TokenLeftBracket:  "LBRACKET",
	TokenRightBracket: "RBRACKET",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", tt)
}

// Token represents a single token in the template. For tag tokens Value
// holds the trimmed contents between the delimiters.
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s('%s') at %d:%d", t.Type, t.Value, t.Line, t.Column)
}

// Components splits the contents of a tag on whitespace. Quoted sections
// are kept together, quotes included, so `extends "my base.html"` yields
// two components.
func (t Token) Components() []string {
	var (
		parts   []string
		current strings.Builder
		quote   rune
		escaped bool
	)

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, r := range t.Value {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote != 0:
			current.WriteRune(r)
			if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			current.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return parts
}

// TokenStream represents a stream of tokens
type TokenStream struct {
	tokens []Token
	pos    int
}

func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{
		tokens: tokens,
		pos:    0,
	}
}

func (ts *TokenStream) Next() Token {
	if ts.pos >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	token := ts.tokens[ts.pos]
	ts.pos++
	return token
}

func (ts *TokenStream) Peek() Token {
	if ts.pos >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	return ts.tokens[ts.pos]
}

func (ts *TokenStream) PeekN(n int) Token {
	if ts.pos+n >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	return ts.tokens[ts.pos+n]
}

func (ts *TokenStream) Consume(expected TokenType) (Token, error) {
	token := ts.Next()
	if token.Type != expected {
		return token, fmt.Errorf("expected %s, got %s at %d:%d",
			expected, token.Type, token.Line, token.Column)
	}
	return token, nil
}

func (ts *TokenStream) Eof() bool {
	return ts.Peek().Type == TokenEOF
}

// Tokens returns a copy of the remaining tokens
func (ts *TokenStream) Tokens() []Token {
	if ts.pos >= len(ts.tokens) {
		return nil
	}
	return append([]Token(nil), ts.tokens[ts.pos:]...)
}
