package lexer

import (
	"regexp"
)

// Precompiled regular expressions for tokenizing expressions. All of them
// are anchored at the start of the remaining input.
var (
	WhitespaceRegex = regexp.MustCompile(`\A\s+`)

	// String literals (single and double quoted, with escape sequences)
	StringRegex = regexp.MustCompile(`\A('([^'\\]*(?:\\.[^'\\]*)*)'|"([^"\\]*(?:\\.[^"\\]*)*)")`)

	IntegerRegex = regexp.MustCompile(`\A-?\d+`)

	NameRegex = regexp.MustCompile(`\A[a-zA-Z_][a-zA-Z0-9_]*`)
)

// Delimiters holds the tag delimiters recognised by the lexer
type Delimiters struct {
	BlockStart    string
	BlockEnd      string
	VariableStart string
	VariableEnd   string
	CommentStart  string
	CommentEnd    string
}

func DefaultDelimiters() Delimiters {
	return Delimiters{
		BlockStart:    "{%",
		BlockEnd:      "%}",
		VariableStart: "{{",
		VariableEnd:   "}}",
		CommentStart:  "{#",
		CommentEnd:    "#}",
	}
}

var punctuation = map[byte]TokenType{
	'.': TokenDot,
	'|': TokenPipe,
	',': TokenComma,
	'(': TokenLeftParen,
	')': TokenRightParen,
	'[': TokenLeftBracket,
	']': TokenRightBracket,
}
