// Package macro extracts LEF macro geometry from a GDS cell: pin ports found
// by matching text labels against rectangle groups, one obstruction per metal
// layer, and the cell size.
//
// Extraction never fails on suspicious input. Problems such as polygons that
// cannot be reduced to rectangles, labels outside any shape, or repeated
// boundary shapes are collected as Warnings on the Macro so the caller
// decides whether to proceed.
package macro

import (
	"fmt"

	"github.com/OpenTraceLab/gds2lef/pkg/geom"
)

// WarningKind classifies an extraction diagnostic.
type WarningKind int

const (
	BadPolygon WarningKind = iota
	UnmatchedLabel
	DuplicateLabel
	MultipleBoundaries
	EmptyCell
	UnresolvedDirection
)

func (k WarningKind) String() string {
	switch k {
	case BadPolygon:
		return "bad polygon"
	case UnmatchedLabel:
		return "unmatched label"
	case DuplicateLabel:
		return "duplicate label"
	case MultipleBoundaries:
		return "multiple boundaries"
	case EmptyCell:
		return "empty cell"
	case UnresolvedDirection:
		return "unresolved direction"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a non-fatal extraction problem.
type Warning struct {
	Kind    WarningKind
	Cell    string
	Layer   string
	Message string
}

func (w Warning) String() string {
	if w.Layer == "" {
		return fmt.Sprintf("%s: %s: %s", w.Cell, w.Kind, w.Message)
	}
	return fmt.Sprintf("%s/%s: %s: %s", w.Cell, w.Layer, w.Kind, w.Message)
}

// Group is the rectangles of one merged region.
type Group []geom.Box

// Contains reports whether any rectangle of the group contains pt, edges
// included.
func (g Group) Contains(pt geom.Point) bool {
	for _, b := range g {
		if b.Contains(pt) {
			return true
		}
	}
	return false
}

// Port is the geometry of a pin on one metal layer.
type Port struct {
	Layer string
	Rects []geom.Box
}

// Pin is a labelled pin with one port per metal layer, in association order.
type Pin struct {
	Name  string
	Ports []*Port
}

// Port returns the pin's port on a layer, or nil.
func (p *Pin) Port(layer string) *Port {
	for _, port := range p.Ports {
		if port.Layer == layer {
			return port
		}
	}
	return nil
}

// Obstruction blocks the whole extent of a metal layer.
type Obstruction struct {
	Layer string
	Rect  geom.Box
}

// Macro is the extracted view of one top cell. Width and Height are in
// database units.
type Macro struct {
	Name         string
	Width        int64
	Height       int64
	Pins         []*Pin
	Obstructions []Obstruction
	Warnings     []Warning
}

// Pin returns the named pin, or nil.
func (m *Macro) Pin(name string) *Pin {
	for _, p := range m.Pins {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (m *Macro) warn(kind WarningKind, layer, format string, args ...any) {
	m.Warnings = append(m.Warnings, Warning{
		Kind:    kind,
		Cell:    m.Name,
		Layer:   layer,
		Message: fmt.Sprintf(format, args...),
	})
}
