package liberty

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// File is a parsed Liberty file. It normally holds a single library group.
type File struct {
	Statements []*Statement `@@*`
}

// Statement is a group, a simple attribute or a complex attribute.
//
//	cell (INV) { ... }        group
//	direction : input ;       simple attribute
//	voltage_map (VDD, 1.8) ;  complex attribute
type Statement struct {
	Pos lexer.Position

	Name   string   `@Ident`
	Value  *Value   `(  Colon @@ Semicolon`
	Params []*Value `| LParen ( @@ ( Comma @@ )* )? RParen`
	Block  *Block   `  ( @@ | Semicolon? ) )`
}

// Block is the braced body of a group.
type Block struct {
	Statements []*Statement `LBrace @@* RBrace`
}

// Value is an attribute value or group argument. Quotes are already removed.
type Value struct {
	Text string `@( String | Number | Ident | Op )+`
}

// IsGroup reports whether the statement has a braced body.
func (s *Statement) IsGroup() bool {
	return s.Block != nil
}

// Args returns the parenthesized arguments of a group or complex attribute.
func (s *Statement) Args() []string {
	out := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		out = append(out, strings.TrimSpace(p.Text))
	}
	return out
}

// Arg returns the first argument, or "" when there is none.
func (s *Statement) Arg() string {
	if len(s.Params) == 0 {
		return ""
	}
	return strings.TrimSpace(s.Params[0].Text)
}

// Groups returns the direct child groups with the given name.
func (s *Statement) Groups(name string) []*Statement {
	if s.Block == nil {
		return nil
	}
	return groups(s.Block.Statements, name)
}

// Attr returns the value of a direct simple attribute.
func (s *Statement) Attr(name string) (string, bool) {
	if s.Block == nil {
		return "", false
	}
	for _, st := range s.Block.Statements {
		if st.Name == name && st.Value != nil {
			return strings.TrimSpace(st.Value.Text), true
		}
	}
	return "", false
}

// Libraries returns the top-level library groups.
func (f *File) Libraries() []*Statement {
	return groups(f.Statements, "library")
}

func groups(stmts []*Statement, name string) []*Statement {
	var out []*Statement
	for _, st := range stmts {
		if st.Name == name && st.IsGroup() {
			out = append(out, st)
		}
	}
	return out
}
