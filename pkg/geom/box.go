// Package geom provides the integer layout geometry used by the extractor:
// points, boxes, rectilinear polygons and regions that merge polygons into
// connected pieces.
//
// All coordinates are database units. Nothing here knows about microns.
package geom

import "fmt"

// Point is a location in database units.
type Point struct {
	X, Y int64
}

// Box is an axis-aligned rectangle. A box with Right <= Left or
// Top <= Bottom is empty.
type Box struct {
	Left, Bottom, Right, Top int64
}

// NewBox returns the box spanned by two corner points in any order.
func NewBox(a, b Point) Box {
	return Box{
		Left:   min(a.X, b.X),
		Bottom: min(a.Y, b.Y),
		Right:  max(a.X, b.X),
		Top:    max(a.Y, b.Y),
	}
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int64 { return b.Right - b.Left }

// Height returns the vertical extent of the box.
func (b Box) Height() int64 { return b.Top - b.Bottom }

// Area returns width times height, or zero for an empty box.
func (b Box) Area() int64 {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Empty reports whether the box has no interior.
func (b Box) Empty() bool {
	return b.Right <= b.Left || b.Top <= b.Bottom
}

// Contains reports whether p lies inside the box or on its edge.
func (b Box) Contains(p Point) bool {
	return p.X >= b.Left && p.X <= b.Right && p.Y >= b.Bottom && p.Y <= b.Top
}

// Union returns the smallest box covering both boxes. Empty boxes are
// ignored.
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	return Box{
		Left:   min(b.Left, o.Left),
		Bottom: min(b.Bottom, o.Bottom),
		Right:  max(b.Right, o.Right),
		Top:    max(b.Top, o.Top),
	}
}

// Intersect returns the common part of two boxes, which may be empty.
func (b Box) Intersect(o Box) Box {
	return Box{
		Left:   max(b.Left, o.Left),
		Bottom: max(b.Bottom, o.Bottom),
		Right:  min(b.Right, o.Right),
		Top:    min(b.Top, o.Top),
	}
}

// Overlaps reports whether the interiors of two boxes intersect. Boxes that
// only share an edge do not overlap.
func (b Box) Overlaps(o Box) bool {
	return !b.Intersect(o).Empty()
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d;%d,%d)", b.Left, b.Bottom, b.Right, b.Top)
}
