// Package direction builds the (cell, pin) → direction table used for LEF
// PIN blocks, from either a Liberty timing library or a Verilog netlist
// elaborated by yosys.
package direction

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Direction is a LEF pin direction.
type Direction string

const (
	Input  Direction = "INPUT"
	Output Direction = "OUTPUT"
	Inout  Direction = "INOUT"
)

// Power and ground pin names get directions even when no source lists them.
const (
	PowerPin  = "VDD"
	GroundPin = "GND"
)

var (
	// ErrElaboration is returned when the netlist elaborator fails or its
	// output holds no JSON payload.
	ErrElaboration = errors.New("direction: netlist elaboration failed")
	// ErrLiberty is returned for unreadable Liberty sources.
	ErrLiberty = errors.New("direction: invalid liberty source")
)

// Normalize upper-cases a direction value from any source.
func Normalize(s string) Direction {
	return Direction(strings.ToUpper(strings.TrimSpace(s)))
}

// Table maps cell and pin names to directions. Build it once and share it
// read-only.
type Table struct {
	cells map[string]map[string]Direction
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{cells: make(map[string]map[string]Direction)}
}

// Set records a direction, replacing any previous entry.
func (t *Table) Set(cell, pin string, d Direction) {
	pins, ok := t.cells[cell]
	if !ok {
		pins = make(map[string]Direction)
		t.cells[cell] = pins
	}
	pins[pin] = d
}

// Lookup returns the explicit entry for a pin. A nil table has no entries.
func (t *Table) Lookup(cell, pin string) (Direction, bool) {
	if t == nil {
		return "", false
	}
	d, ok := t.cells[cell][pin]
	return d, ok
}

// Resolve returns the table entry, falling back to OUTPUT for VDD and INPUT
// for GND. Any other unknown pin is unresolved.
func (t *Table) Resolve(cell, pin string) (Direction, bool) {
	if d, ok := t.Lookup(cell, pin); ok && d != "" {
		return d, true
	}
	switch pin {
	case PowerPin:
		return Output, true
	case GroundPin:
		return Input, true
	}
	return "", false
}

// HasCell reports whether the source described the cell at all.
func (t *Table) HasCell(cell string) bool {
	if t == nil {
		return false
	}
	_, ok := t.cells[cell]
	return ok
}

// Cells returns the number of cells in the table.
func (t *Table) Cells() int {
	if t == nil {
		return 0
	}
	return len(t.cells)
}

// Load builds a table from path: .v and .sv files go through elab, anything
// else is read as Liberty.
func Load(ctx context.Context, path string, elab Elaborator) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".v", ".sv":
		return FromVerilog(ctx, path, elab)
	default:
		return FromLibertyFile(path)
	}
}
