package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccepts(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "method call", src: `senderEmail.contains("linkedin.com")`},
		{name: "single quoted argument", src: `subject.startsWith('invoice')`},
		{name: "ends with", src: `senderEmail.endsWith("@example.com")`},
		{name: "bare bool attribute", src: `hasAttachments`},
		{name: "negated attribute", src: `!isRead`},
		{name: "keyword not", src: `not isRead`},
		{name: "equality", src: `sender == "amazon orders"`},
		{name: "inequality", src: `subject != 'spam'`},
		{name: "bool comparison", src: `isRead == false`},
		{name: "and chain", src: `subject.contains("report") && hasAttachments && !isRead`},
		{name: "keyword connectives", src: `sender == "boss" or subject.contains("urgent") and not isRead`},
		{name: "parenthesised", src: `(isRead || hasAttachments) && sender.contains("github")`},
		{name: "uppercase keywords", src: `isRead OR hasAttachments`},
		{name: "escaped quote", src: `subject.contains("say \"hi\"")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.src)
			require.NoError(t, err)
			assert.NotNil(t, expr)
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "empty", src: ""},
		{name: "whitespace only", src: "   "},
		{name: "unknown attribute", src: `body.contains("x")`},
		{name: "unknown method", src: `subject.matches("x")`},
		{name: "method on bool attribute", src: `isRead.contains("x")`},
		{name: "missing argument", src: `subject.contains()`},
		{name: "non-string argument", src: `subject.contains(isRead)`},
		{name: "unterminated string", src: `subject.contains("oops`},
		{name: "trailing input", src: `isRead true`},
		{name: "dangling operator", src: `isRead &&`},
		{name: "single ampersand", src: `isRead & hasAttachments`},
		{name: "single equals", src: `sender = "x"`},
		{name: "unclosed paren", src: `(isRead || hasAttachments`},
		{name: "arbitrary code", src: `process.exit(1)`},
		{name: "numeric literal", src: `subject == 42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}
