// Package liberty parses Liberty timing library files far enough to walk
// library, cell and pin groups and read their attributes.
package liberty

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser represents a Liberty file parser
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new Liberty parser instance
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(LibertyLexer),
		participle.Elide("Comment", "LineComment", "Continuation", "Whitespace"),
		participle.Map(unquote, "String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// Parse parses a Liberty file from a reader
func (p *Parser) Parse(r io.Reader) (*File, error) {
	lib, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return lib, nil
}

// ParseString parses a Liberty file from a string
func (p *Parser) ParseString(input string) (*File, error) {
	lib, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return lib, nil
}

// ParseFile parses a Liberty file from a file path
func (p *Parser) ParseFile(filename string) (*File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	lib, err := p.parser.Parse(filename, file)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return lib, nil
}
