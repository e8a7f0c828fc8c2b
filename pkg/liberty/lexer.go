package liberty

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// LibertyLexer tokenizes Liberty (.lib) timing library files.
// Values are loosely typed, so anything that is not structure is a String,
// Number, Ident or single-character Op and is glued back together by the
// grammar.
var LibertyLexer = lexer.MustSimple([]lexer.SimpleRule{
	// C style comments
	{Name: "Comment", Pattern: `(?s)/\*.*?\*/`},
	{Name: "LineComment", Pattern: `//[^\n]*`},

	// Backslash line continuation outside strings
	{Name: "Continuation", Pattern: `\\\r?\n`},

	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	// Strings may span lines with a trailing backslash
	{Name: "String", Pattern: `"(?:[^"\\]|\\[\s\S])*"`},

	{Name: "Number", Pattern: `[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?`},

	// Identifiers, including bus bits such as D[3]
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.\[\]$]*`},

	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "Comma", Pattern: `,`},

	// Expression operators in unquoted values
	{Name: "Op", Pattern: `[-+*/!&|^<>=~'%?@#.]`},
})

// unquote strips the quotes of a String token and joins continued lines.
// Running it once in the lexer means no caller ever sees quoted names.
func unquote(tok lexer.Token) (lexer.Token, error) {
	v := tok.Value
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	v = strings.ReplaceAll(v, "\\\r\n", "")
	v = strings.ReplaceAll(v, "\\\n", "")
	tok.Value = v
	return tok, nil
}
