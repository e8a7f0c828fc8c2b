package direction

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/gds2lef/pkg/liberty"
)

// FromLibertyFile parses a Liberty file and builds its direction table.
func FromLibertyFile(path string) (*Table, error) {
	parser, err := liberty.NewParser()
	if err != nil {
		return nil, err
	}
	file, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLiberty, path, err)
	}
	return FromLiberty(file), nil
}

// FromLiberty walks every cell of every library. Each cell first gets
// VDD=OUTPUT and GND=INPUT, then one entry per pin with a direction
// attribute. Pins inside bus and bundle groups are included.
func FromLiberty(file *liberty.File) *Table {
	t := NewTable()
	for _, lib := range file.Libraries() {
		for _, cell := range lib.Groups("cell") {
			name := cell.Arg()
			t.Set(name, PowerPin, Output)
			t.Set(name, GroundPin, Input)
			addPins(t, name, cell, "")
		}
	}
	return t
}

// addPins records pin groups below g. inherited is the direction of an
// enclosing bus, used by bit pins that do not state their own.
func addPins(t *Table, cell string, g *liberty.Statement, inherited string) {
	for _, pin := range g.Groups("pin") {
		dir, ok := pin.Attr("direction")
		if !ok {
			dir = inherited
		}
		if dir == "" {
			continue
		}
		for _, name := range pin.Args() {
			t.Set(cell, strings.TrimSpace(name), Normalize(dir))
		}
	}
	for _, kind := range []string{"bus", "bundle"} {
		for _, bus := range g.Groups(kind) {
			dir, _ := bus.Attr("direction")
			addPins(t, cell, bus, dir)
		}
	}
}
