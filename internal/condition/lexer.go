package condition

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokBool
	tokAnd    // && or "and"
	tokOr     // || or "or"
	tokNot    // ! or "not"
	tokEq     // ==
	tokNeq    // !=
	tokLParen // (
	tokRParen // )
	tokDot    // .
)

type token struct {
	kind tokenKind
	text string // identifier name, string contents or "true"/"false"
	pos  int    // byte offset in the source expression
}

// ParseError describes a malformed condition expression.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("condition: parse error at offset %d: %s", e.Pos, e.Msg)
}

type lexer struct {
	src string
	off int
}

func (l *lexer) errf(pos int, format string, args ...any) error {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// next returns the next token, skipping whitespace.
func (l *lexer) next() (token, error) {
	for l.off < len(l.src) && unicode.IsSpace(rune(l.src[l.off])) {
		l.off++
	}
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: l.off}, nil
	}

	start := l.off
	c := l.src[l.off]
	switch c {
	case '(':
		l.off++
		return token{kind: tokLParen, pos: start}, nil
	case ')':
		l.off++
		return token{kind: tokRParen, pos: start}, nil
	case '.':
		l.off++
		return token{kind: tokDot, pos: start}, nil
	case '&':
		if strings.HasPrefix(l.src[l.off:], "&&") {
			l.off += 2
			return token{kind: tokAnd, pos: start}, nil
		}
		return token{}, l.errf(start, "unexpected %q (did you mean \"&&\"?)", "&")
	case '|':
		if strings.HasPrefix(l.src[l.off:], "||") {
			l.off += 2
			return token{kind: tokOr, pos: start}, nil
		}
		return token{}, l.errf(start, "unexpected %q (did you mean \"||\"?)", "|")
	case '=':
		if strings.HasPrefix(l.src[l.off:], "==") {
			l.off += 2
			return token{kind: tokEq, pos: start}, nil
		}
		return token{}, l.errf(start, "unexpected %q (did you mean \"==\"?)", "=")
	case '!':
		if strings.HasPrefix(l.src[l.off:], "!=") {
			l.off += 2
			return token{kind: tokNeq, pos: start}, nil
		}
		l.off++
		return token{kind: tokNot, pos: start}, nil
	case '\'', '"':
		return l.lexString(c)
	}

	if isIdentStart(c) {
		return l.lexIdent()
	}
	return token{}, l.errf(start, "unexpected character %q", string(c))
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.off
	l.off++ // opening quote
	var sb strings.Builder
	for l.off < len(l.src) {
		c := l.src[l.off]
		if c == quote {
			l.off++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		if c == '\\' && l.off+1 < len(l.src) {
			// Only quote and backslash escapes are meaningful here.
			nxt := l.src[l.off+1]
			if nxt == quote || nxt == '\\' {
				sb.WriteByte(nxt)
				l.off += 2
				continue
			}
		}
		sb.WriteByte(c)
		l.off++
	}
	return token{}, l.errf(start, "unterminated string literal")
}

func (l *lexer) lexIdent() (token, error) {
	start := l.off
	for l.off < len(l.src) && isIdentPart(l.src[l.off]) {
		l.off++
	}
	word := l.src[start:l.off]

	// Keywords are case-insensitive; identifiers are not.
	switch strings.ToLower(word) {
	case "and":
		return token{kind: tokAnd, pos: start}, nil
	case "or":
		return token{kind: tokOr, pos: start}, nil
	case "not":
		return token{kind: tokNot, pos: start}, nil
	case "true":
		return token{kind: tokBool, text: "true", pos: start}, nil
	case "false":
		return token{kind: tokBool, text: "false", pos: start}, nil
	}
	return token{kind: tokIdent, text: word, pos: start}, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
