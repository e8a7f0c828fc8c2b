package gds

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/gds2lef/pkg/geom"
)

// Layer identifies a GDS layer and datatype. For texts the datatype slot
// holds the texttype.
type Layer struct {
	Number   int
	Datatype int
}

// String formats the layer as "number/datatype".
func (l Layer) String() string {
	return fmt.Sprintf("%d/%d", l.Number, l.Datatype)
}

// ParseLayer parses "8/0", "8" (datatype 0) or the KLayout source form
// "8/0@1".
func ParseLayer(s string) (Layer, error) {
	s = strings.TrimSpace(s)
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	num, dt, hasDT := strings.Cut(s, "/")
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Layer{}, fmt.Errorf("invalid layer %q: %w", s, err)
	}
	l := Layer{Number: n}
	if hasDT {
		d, err := strconv.Atoi(strings.TrimSpace(dt))
		if err != nil {
			return Layer{}, fmt.Errorf("invalid datatype in layer %q: %w", s, err)
		}
		l.Datatype = d
	}
	return l, nil
}

// Boundary is a filled polygon. BOX elements are stored as boundaries too.
type Boundary struct {
	Layer  Layer
	Points []geom.Point
}

// Path is a wire with a width along a center line.
type Path struct {
	Layer     Layer
	PathType  int
	Width     int64
	BeginExtn int64
	EndExtn   int64
	Points    []geom.Point
}

// Text is a label anchored at a point.
type Text struct {
	Layer  Layer
	Anchor geom.Point
	String string
}

// Reference is an SREF or AREF placement of another cell.
type Reference struct {
	Name   string
	Origin geom.Point
}

// Cell is one GDS structure.
type Cell struct {
	Name       string
	Boundaries []Boundary
	Paths      []Path
	Texts      []Text
	Refs       []Reference
}

// Polygons returns every boundary and path on the layer as polygons, in file
// order. Paths contribute one polygon per segment.
func (c *Cell) Polygons(l Layer) []geom.Polygon {
	var out []geom.Polygon
	for _, b := range c.Boundaries {
		if b.Layer == l {
			out = append(out, geom.NewPolygon(b.Points...))
		}
	}
	for _, p := range c.Paths {
		if p.Layer == l {
			out = append(out, p.Polygons()...)
		}
	}
	return out
}

// TextsOn returns the labels on a layer in file order.
func (c *Cell) TextsOn(l Layer) []Text {
	var out []Text
	for _, t := range c.Texts {
		if t.Layer == l {
			out = append(out, t)
		}
	}
	return out
}

// Polygons converts the path outline into one polygon per segment. Interior
// joints are extended by half the width so bends are filled; the ends follow
// the path type (0 and 1 flush, 2 half-width, 4 explicit extensions).
func (p Path) Polygons() []geom.Polygon {
	if len(p.Points) < 2 {
		return nil
	}
	half := p.Width / 2
	if half < 0 {
		half = -half
	}
	if half == 0 {
		return nil
	}

	var begin, end int64
	switch p.PathType {
	case 2:
		begin, end = half, half
	case 4:
		begin, end = p.BeginExtn, p.EndExtn
	}

	last := len(p.Points) - 2
	out := make([]geom.Polygon, 0, len(p.Points)-1)
	for i := 0; i <= last; i++ {
		ea, eb := half, half
		if i == 0 {
			ea = begin
		}
		if i == last {
			eb = end
		}
		out = append(out, segmentPolygon(p.Points[i], p.Points[i+1], half, ea, eb))
	}
	return out
}

func segmentPolygon(a, b geom.Point, half, extA, extB int64) geom.Polygon {
	switch {
	case a.X == b.X:
		lo, hi := min(a.Y, b.Y), max(a.Y, b.Y)
		if a.Y > b.Y {
			extA, extB = extB, extA
		}
		return geom.BoxPolygon(geom.Box{Left: a.X - half, Bottom: lo - extA, Right: a.X + half, Top: hi + extB})
	case a.Y == b.Y:
		lo, hi := min(a.X, b.X), max(a.X, b.X)
		if a.X > b.X {
			extA, extB = extB, extA
		}
		return geom.BoxPolygon(geom.Box{Left: lo - extA, Bottom: a.Y - half, Right: hi + extB, Top: a.Y + half})
	}

	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	length := math.Hypot(dx, dy)
	ux, uy := dx/length, dy/length
	nx, ny := -uy*float64(half), ux*float64(half)
	ax, ay := float64(a.X)-ux*float64(extA), float64(a.Y)-uy*float64(extA)
	bx, by := float64(b.X)+ux*float64(extB), float64(b.Y)+uy*float64(extB)
	pt := func(x, y float64) geom.Point {
		return geom.Point{X: int64(math.Round(x)), Y: int64(math.Round(y))}
	}
	return geom.NewPolygon(pt(ax+nx, ay+ny), pt(bx+nx, by+ny), pt(bx-nx, by-ny), pt(ax-nx, ay-ny))
}

// Library is a parsed GDS file.
type Library struct {
	Name string
	// UserUnit is the size of a database unit in user units.
	UserUnit float64
	// MetersPerUnit is the size of a database unit in meters.
	MetersPerUnit float64
	Cells         []*Cell

	layers []Layer
	seen   map[Layer]bool
}

// UnitsPerMicron returns how many database units make one micron, 1000 when
// the file carries no UNITS record.
func (lib *Library) UnitsPerMicron() float64 {
	if lib.MetersPerUnit <= 0 {
		return 1000
	}
	return math.Round(1e-6/lib.MetersPerUnit*1e6) / 1e6
}

// Layers lists every layer used in the library in order of first appearance.
func (lib *Library) Layers() []Layer {
	out := make([]Layer, len(lib.layers))
	copy(out, lib.layers)
	return out
}

// HasLayer reports whether any element of the library uses the layer.
func (lib *Library) HasLayer(l Layer) bool {
	return lib.seen[l]
}

// Cell looks up a cell by name.
func (lib *Library) Cell(name string) *Cell {
	for _, c := range lib.Cells {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TopCells returns the cells no other cell references, in file order.
func (lib *Library) TopCells() []*Cell {
	referenced := make(map[string]bool)
	for _, c := range lib.Cells {
		for _, r := range c.Refs {
			referenced[r.Name] = true
		}
	}
	var out []*Cell
	for _, c := range lib.Cells {
		if !referenced[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

func (lib *Library) noteLayer(l Layer) {
	if lib.seen == nil {
		lib.seen = make(map[Layer]bool)
	}
	if !lib.seen[l] {
		lib.seen[l] = true
		lib.layers = append(lib.layers, l)
	}
}

// AddCell appends a cell and registers its layers. It is used when building
// libraries in code.
func (lib *Library) AddCell(c *Cell) {
	lib.Cells = append(lib.Cells, c)
	for _, b := range c.Boundaries {
		lib.noteLayer(b.Layer)
	}
	for _, p := range c.Paths {
		lib.noteLayer(p.Layer)
	}
	for _, t := range c.Texts {
		lib.noteLayer(t.Layer)
	}
}
