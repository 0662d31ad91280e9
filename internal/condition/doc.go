// Package condition implements the boolean expression language used by
// email rules.
//
// Conditions are parsed into a small AST and evaluated against a fixed set
// of attribute bindings. User input is never compiled or executed; the
// grammar is a closed whitelist:
//
//	expr       := orExpr
//	orExpr     := andExpr { ("||" | "or") andExpr }
//	andExpr    := unaryExpr { ("&&" | "and") unaryExpr }
//	unaryExpr  := ("!" | "not") unaryExpr | primary
//	primary    := "(" expr ")" | literal | methodCall | identifier [ ("==" | "!=") operand ]
//	methodCall := identifier "." method "(" string ")"
//	method     := "contains" | "startsWith" | "endsWith"
//	operand    := identifier | string | "true" | "false"
//	literal    := string | "true" | "false"
//
// String literals may be single- or double-quoted. The keywords and, or,
// not, true and false are case-insensitive. Identifiers are restricted to
// the five email attributes: subject, sender, senderEmail, isRead and
// hasAttachments. All string comparisons are case-insensitive.
//
// Example conditions:
//
//	senderEmail.contains("linkedin.com")
//	subject.startsWith("invoice") && !isRead
//	sender == "amazon orders" or hasAttachments
//
// Parse reports malformed input as a *ParseError. Evaluation never panics;
// a type mismatch (for example comparing a string attribute to a boolean
// literal) is returned as an error so callers can treat the rule as a
// non-match.
package condition
