package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LexerError represents a lexing error
type LexerError struct {
	Message string
	Line    int
	Column  int
}

func (e *LexerError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// LexerConfig holds configuration for the lexer
type LexerConfig struct {
	Delimiters          Delimiters
	KeepTrailingNewline bool
}

func DefaultLexerConfig() LexerConfig {
	return LexerConfig{
		Delimiters:          DefaultDelimiters(),
		KeepTrailingNewline: false,
	}
}

// Lexer splits template source into text and tag tokens
type Lexer struct {
	config LexerConfig
}

// NewLexer creates a new lexer with the given configuration
func NewLexer(config LexerConfig) *Lexer {
	if config.Delimiters == (Delimiters{}) {
		config.Delimiters = DefaultDelimiters()
	}
	return &Lexer{config: config}
}

type tagKind struct {
	open  string
	close string
	typ   TokenType
	name  string
}

// cursor tracks line and column while walking the source
type cursor struct {
	line   int
	column int
}

func (c *cursor) advance(s string) {
	for _, r := range s {
		if r == '\n' {
			c.line++
			c.column = 1
		} else {
			c.column++
		}
	}
}

// Tokenize tokenizes the given source string and returns a stream of tokens
func (l *Lexer) Tokenize(source string) (*TokenStream, error) {
	tokens, err := l.tokenize(source)
	if err != nil {
		return nil, err
	}
	return NewTokenStream(tokens), nil
}

func (l *Lexer) tokenize(source string) ([]Token, error) {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	if !l.config.KeepTrailingNewline && strings.HasSuffix(source, "\n") {
		source = strings.TrimSuffix(source, "\n")
	}

	d := l.config.Delimiters
	kinds := []tagKind{
		{open: d.CommentStart, close: d.CommentEnd, typ: TokenComment, name: "comment"},
		{open: d.BlockStart, close: d.BlockEnd, typ: TokenBlock, name: "block"},
		{open: d.VariableStart, close: d.VariableEnd, typ: TokenVariable, name: "variable"},
	}

	var tokens []Token
	pos := 0
	cur := cursor{line: 1, column: 1}
	trimNext := false

	emitText := func(text string, at cursor) {
		if trimNext {
			text = strings.TrimLeftFunc(text, unicode.IsSpace)
			trimNext = false
		}
		if text != "" {
			tokens = append(tokens, Token{Type: TokenText, Value: text, Line: at.line, Column: at.column})
		}
	}

	for pos < len(source) {
		start, kind := l.nextTag(source[pos:], kinds)
		if start < 0 {
			emitText(source[pos:], cur)
			break
		}

		textStart := cur
		text := source[pos : pos+start]
		cur.advance(text)
		tagPos := cur

		contentStart := pos + start + len(kind.open)
		trimLeft := strings.HasPrefix(source[contentStart:], "-")
		if trimLeft {
			contentStart++
			text = strings.TrimRightFunc(text, unicode.IsSpace)
		}
		emitText(text, textStart)

		closeIdx := findClose(source[contentStart:], kind.close, kind.typ != TokenComment)
		if closeIdx < 0 {
			return nil, &LexerError{
				Message: fmt.Sprintf("unclosed %s tag, missing %q", kind.name, kind.close),
				Line:    tagPos.line,
				Column:  tagPos.column,
			}
		}

		content := source[contentStart : contentStart+closeIdx]
		if strings.HasSuffix(content, "-") {
			content = content[:len(content)-1]
			trimNext = true
		}

		tokens = append(tokens, Token{
			Type:   kind.typ,
			Value:  strings.TrimSpace(content),
			Line:   tagPos.line,
			Column: tagPos.column,
		})

		end := contentStart + closeIdx + len(kind.close)
		cur.advance(source[pos+start : end])
		pos = end
	}

	return tokens, nil
}

// nextTag returns the offset of the earliest opening delimiter in s
func (l *Lexer) nextTag(s string, kinds []tagKind) (int, tagKind) {
	best := -1
	var found tagKind
	for _, k := range kinds {
		idx := strings.Index(s, k.open)
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
			found = k
		}
	}
	return best, found
}

// findClose locates the closing delimiter, skipping quoted strings when
// quoted is set.
func findClose(s, closing string, quoted bool) int {
	if !quoted {
		return strings.Index(s, closing)
	}
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(s[i:], closing):
			return i
		}
	}
	return -1
}

// TokenizeExpression splits an expression (the contents of a variable tag
// or a tag argument) into expression tokens. line and column locate the
// expression in the template for error reporting.
func TokenizeExpression(source string, line, column int) ([]Token, error) {
	var tokens []Token
	pos := 0
	col := column

	for pos < len(source) {
		rest := source[pos:]

		if loc := WhitespaceRegex.FindStringIndex(rest); loc != nil {
			col += utf8.RuneCountInString(rest[:loc[1]])
			pos += loc[1]
			continue
		}

		if typ, ok := punctuation[rest[0]]; ok {
			tokens = append(tokens, Token{Type: typ, Value: rest[:1], Line: line, Column: col})
			pos++
			col++
			continue
		}

		if loc := StringRegex.FindStringIndex(rest); loc != nil {
			raw := rest[:loc[1]]
			value, err := unquote(raw)
			if err != nil {
				return nil, &LexerError{Message: fmt.Sprintf("invalid string literal %s", raw), Line: line, Column: col}
			}
			tokens = append(tokens, Token{Type: TokenString, Value: value, Line: line, Column: col})
			col += utf8.RuneCountInString(raw)
			pos += loc[1]
			continue
		}

		if loc := IntegerRegex.FindStringIndex(rest); loc != nil {
			tokens = append(tokens, Token{Type: TokenNumber, Value: rest[:loc[1]], Line: line, Column: col})
			col += loc[1]
			pos += loc[1]
			continue
		}

		if loc := NameRegex.FindStringIndex(rest); loc != nil {
			tokens = append(tokens, Token{Type: TokenName, Value: rest[:loc[1]], Line: line, Column: col})
			col += loc[1]
			pos += loc[1]
			continue
		}

		r, _ := utf8.DecodeRuneInString(rest)
		return nil, &LexerError{
			Message: fmt.Sprintf("unexpected character %q", r),
			Line:    line,
			Column:  col,
		}
	}

	return tokens, nil
}

func unquote(raw string) (string, error) {
	if strings.HasPrefix(raw, "'") {
		inner := raw[1 : len(raw)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		raw = `"` + inner + `"`
	}
	return strconv.Unquote(raw)
}
