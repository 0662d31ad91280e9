package condition

import (
	"fmt"
	"strings"
)

// Env supplies attribute bindings for evaluation. Lookups report whether
// the attribute exists; the parser guarantees only whitelisted names reach
// an Env, so a failed lookup indicates a wiring bug rather than bad input.
type Env interface {
	StringVar(name string) (string, bool)
	BoolVar(name string) (bool, bool)
}

// Expr is a parsed condition expression.
type Expr interface {
	// Eval evaluates the expression against the given bindings.
	Eval(env Env) (bool, error)

	eval(env Env) (value, error)
}

type valueKind int

const (
	kindString valueKind = iota
	kindBool
)

type value struct {
	kind valueKind
	str  string
	b    bool
}

func (v value) String() string {
	if v.kind == kindBool {
		return fmt.Sprintf("%t", v.b)
	}
	return fmt.Sprintf("%q", v.str)
}

// boolResult coerces an evaluated value into the boolean the expression
// must produce at the top level and inside connectives.
func boolResult(v value, ctx string) (bool, error) {
	if v.kind != kindBool {
		return false, fmt.Errorf("condition: %s requires a boolean, got string %s", ctx, v.String())
	}
	return v.b, nil
}

type orExpr struct {
	left, right Expr
}

func (e *orExpr) Eval(env Env) (bool, error) { return evalBool(e, env) }

func (e *orExpr) eval(env Env) (value, error) {
	lv, err := e.left.eval(env)
	if err != nil {
		return value{}, err
	}
	lb, err := boolResult(lv, "operand of \"or\"")
	if err != nil {
		return value{}, err
	}
	if lb {
		return value{kind: kindBool, b: true}, nil
	}
	rv, err := e.right.eval(env)
	if err != nil {
		return value{}, err
	}
	rb, err := boolResult(rv, "operand of \"or\"")
	if err != nil {
		return value{}, err
	}
	return value{kind: kindBool, b: rb}, nil
}

type andExpr struct {
	left, right Expr
}

func (e *andExpr) Eval(env Env) (bool, error) { return evalBool(e, env) }

func (e *andExpr) eval(env Env) (value, error) {
	lv, err := e.left.eval(env)
	if err != nil {
		return value{}, err
	}
	lb, err := boolResult(lv, "operand of \"and\"")
	if err != nil {
		return value{}, err
	}
	if !lb {
		return value{kind: kindBool, b: false}, nil
	}
	rv, err := e.right.eval(env)
	if err != nil {
		return value{}, err
	}
	rb, err := boolResult(rv, "operand of \"and\"")
	if err != nil {
		return value{}, err
	}
	return value{kind: kindBool, b: rb}, nil
}

type notExpr struct {
	inner Expr
}

func (e *notExpr) Eval(env Env) (bool, error) { return evalBool(e, env) }

func (e *notExpr) eval(env Env) (value, error) {
	iv, err := e.inner.eval(env)
	if err != nil {
		return value{}, err
	}
	ib, err := boolResult(iv, "operand of \"not\"")
	if err != nil {
		return value{}, err
	}
	return value{kind: kindBool, b: !ib}, nil
}

type cmpOp int

const (
	cmpEq cmpOp = iota
	cmpNeq
)

type cmpExpr struct {
	op          cmpOp
	left, right Expr
}

func (e *cmpExpr) Eval(env Env) (bool, error) { return evalBool(e, env) }

func (e *cmpExpr) eval(env Env) (value, error) {
	lv, err := e.left.eval(env)
	if err != nil {
		return value{}, err
	}
	rv, err := e.right.eval(env)
	if err != nil {
		return value{}, err
	}
	if lv.kind != rv.kind {
		return value{}, fmt.Errorf("condition: cannot compare %s with %s", lv.String(), rv.String())
	}

	var eq bool
	if lv.kind == kindBool {
		eq = lv.b == rv.b
	} else {
		eq = strings.EqualFold(lv.str, rv.str)
	}
	if e.op == cmpNeq {
		eq = !eq
	}
	return value{kind: kindBool, b: eq}, nil
}

type stringMethod int

const (
	methodContains stringMethod = iota
	methodStartsWith
	methodEndsWith
)

type callExpr struct {
	ident  string
	method stringMethod
	arg    string
}

func (e *callExpr) Eval(env Env) (bool, error) { return evalBool(e, env) }

func (e *callExpr) eval(env Env) (value, error) {
	s, ok := env.StringVar(e.ident)
	if !ok {
		return value{}, fmt.Errorf("condition: no string attribute %q", e.ident)
	}
	haystack := strings.ToLower(s)
	needle := strings.ToLower(e.arg)

	var match bool
	switch e.method {
	case methodContains:
		match = strings.Contains(haystack, needle)
	case methodStartsWith:
		match = strings.HasPrefix(haystack, needle)
	case methodEndsWith:
		match = strings.HasSuffix(haystack, needle)
	}
	return value{kind: kindBool, b: match}, nil
}

type identExpr struct {
	name string
}

func (e *identExpr) Eval(env Env) (bool, error) { return evalBool(e, env) }

func (e *identExpr) eval(env Env) (value, error) {
	if s, ok := env.StringVar(e.name); ok {
		return value{kind: kindString, str: s}, nil
	}
	if b, ok := env.BoolVar(e.name); ok {
		return value{kind: kindBool, b: b}, nil
	}
	return value{}, fmt.Errorf("condition: no attribute %q", e.name)
}

type litExpr struct {
	val value
}

func (e *litExpr) Eval(env Env) (bool, error) { return evalBool(e, env) }

func (e *litExpr) eval(Env) (value, error) {
	return e.val, nil
}

func evalBool(e Expr, env Env) (bool, error) {
	v, err := e.eval(env)
	if err != nil {
		return false, err
	}
	return boolResult(v, "condition")
}
