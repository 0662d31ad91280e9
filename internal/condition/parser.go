package condition

import (
	"strings"
)

// Attribute kinds exposed to conditions. Only these five names may appear
// in an expression.
var identKinds = map[string]valueKind{
	"subject":        kindString,
	"sender":         kindString,
	"senderEmail":    kindString,
	"isRead":         kindBool,
	"hasAttachments": kindBool,
}

var methods = map[string]stringMethod{
	"contains":   methodContains,
	"startsWith": methodStartsWith,
	"endsWith":   methodEndsWith,
}

// Parse parses a condition expression into an evaluatable Expr. Malformed
// input, unknown identifiers and unknown methods are reported as
// *ParseError.
func Parse(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &ParseError{Pos: 0, Msg: "empty condition"}
	}

	p := &parser{lex: &lexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errf("unexpected trailing input")
	}
	return expr, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errf(format string, args ...any) error {
	return p.lex.errf(p.tok.pos, format, args...)
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.tok.kind == tokNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notExpr{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.tok.kind {
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errf("expected \")\"")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseComparison(expr)

	case tokString:
		lit := &litExpr{val: value{kind: kindString, str: p.tok.text}}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseComparison(lit)

	case tokBool:
		lit := &litExpr{val: value{kind: kindBool, b: p.tok.text == "true"}}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseComparison(lit)

	case tokIdent:
		return p.parseIdent()
	}
	return nil, p.errf("expected an attribute, literal or \"(\"")
}

// parseIdent handles an identifier and everything that may follow it: a
// method call or a comparison.
func (p *parser) parseIdent() (Expr, error) {
	name := p.tok.text
	if _, ok := identKinds[name]; !ok {
		return nil, p.errf("unknown attribute %q", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.tok.kind == tokDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseCall(name)
	}
	return p.parseComparison(&identExpr{name: name})
}

func (p *parser) parseCall(ident string) (Expr, error) {
	if identKinds[ident] != kindString {
		return nil, p.errf("attribute %q does not support string methods", ident)
	}
	if p.tok.kind != tokIdent {
		return nil, p.errf("expected a method name after \".\"")
	}
	method, ok := methods[p.tok.text]
	if !ok {
		return nil, p.errf("unknown method %q (supported: contains, startsWith, endsWith)", p.tok.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokLParen {
		return nil, p.errf("expected \"(\" after method name")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokString {
		return nil, p.errf("expected a string argument")
	}
	arg := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokRParen {
		return nil, p.errf("expected \")\"")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &callExpr{ident: ident, method: method, arg: arg}, nil
}

// parseComparison optionally extends left with == or != and a right-hand
// operand.
func (p *parser) parseComparison(left Expr) (Expr, error) {
	var op cmpOp
	switch p.tok.kind {
	case tokEq:
		op = cmpEq
	case tokNeq:
		op = cmpNeq
	default:
		return left, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var right Expr
	switch p.tok.kind {
	case tokIdent:
		name := p.tok.text
		if _, ok := identKinds[name]; !ok {
			return nil, p.errf("unknown attribute %q", name)
		}
		right = &identExpr{name: name}
	case tokString:
		right = &litExpr{val: value{kind: kindString, str: p.tok.text}}
	case tokBool:
		right = &litExpr{val: value{kind: kindBool, b: p.tok.text == "true"}}
	default:
		return nil, p.errf("expected an attribute or literal after comparison")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &cmpExpr{op: op, left: left, right: right}, nil
}
