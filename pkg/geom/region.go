package geom

import "slices"

// Shape is a region the decomposition engine can work on.
//
// Split performs one subdivision step. When no cut exists it returns a
// single-element slice holding the receiver.
type Shape interface {
	BBox() Box
	IsBox() bool
	Area() int64
	Split() []Shape
}

// Region collects the polygons of one layer.
type Region struct {
	polygons []Polygon
}

// NewRegion returns a region holding the given polygons.
func NewRegion(polys ...Polygon) *Region {
	r := &Region{}
	r.Insert(polys...)
	return r
}

// Insert adds polygons to the region.
func (r *Region) Insert(polys ...Polygon) {
	r.polygons = append(r.polygons, polys...)
}

// Len returns the number of raw polygons in the region.
func (r *Region) Len() int { return len(r.polygons) }

// BBox returns the bounding box of every polygon in the region.
func (r *Region) BBox() Box {
	var b Box
	for _, p := range r.polygons {
		b = b.Union(p.BBox())
	}
	return b
}

// Area returns the area covered by the region after merging overlaps.
func (r *Region) Area() int64 {
	var a int64
	for _, s := range r.Merge() {
		a += s.Area()
	}
	return a
}

// Merge unions the rectilinear polygons and returns one Piece per connected
// component, ordered by their lowest, then leftmost, cell. Shapes that only
// touch at a corner join the same component. Polygons with diagonal edges
// cannot be merged and are appended unchanged after the pieces.
func (r *Region) Merge() []Shape {
	var manhattan []Polygon
	var other []Shape
	for _, p := range r.polygons {
		if p.Area() == 0 {
			continue
		}
		if p.IsRectilinear() {
			manhattan = append(manhattan, p)
		} else {
			other = append(other, p)
		}
	}

	var out []Shape
	if len(manhattan) > 0 {
		for _, c := range rasterize(manhattan).components() {
			out = append(out, c)
		}
	}
	return append(out, other...)
}

// Piece is a rectilinear area stored as a coverage mask over a compressed
// grid. xs and ys are the grid lines; cell (c, r) spans xs[c]..xs[c+1] and
// ys[r]..ys[r+1].
type Piece struct {
	xs, ys []int64
	fill   []bool
}

func (p *Piece) cols() int { return max(len(p.xs)-1, 0) }
func (p *Piece) rows() int { return max(len(p.ys)-1, 0) }

func (p *Piece) filled(c, r int) bool { return p.fill[r*p.cols()+c] }

// BBox returns the extent of the piece. Pieces are always trimmed, so the
// outer grid lines bound covered cells.
func (p *Piece) BBox() Box {
	if p.cols() == 0 || p.rows() == 0 {
		return Box{}
	}
	return Box{Left: p.xs[0], Bottom: p.ys[0], Right: p.xs[len(p.xs)-1], Top: p.ys[len(p.ys)-1]}
}

// IsBox reports whether every cell is covered.
func (p *Piece) IsBox() bool {
	if len(p.fill) == 0 {
		return false
	}
	for _, f := range p.fill {
		if !f {
			return false
		}
	}
	return true
}

// Area returns the covered area.
func (p *Piece) Area() int64 {
	var a int64
	for r := 0; r < p.rows(); r++ {
		for c := 0; c < p.cols(); c++ {
			if p.filled(c, r) {
				a += (p.xs[c+1] - p.xs[c]) * (p.ys[r+1] - p.ys[r])
			}
		}
	}
	return a
}

// Contains reports whether pt lies in a covered cell, edges included.
func (p *Piece) Contains(pt Point) bool {
	for r := 0; r < p.rows(); r++ {
		for c := 0; c < p.cols(); c++ {
			if p.filled(c, r) && (Box{p.xs[c], p.ys[r], p.xs[c+1], p.ys[r+1]}).Contains(pt) {
				return true
			}
		}
	}
	return false
}

// Split cuts the piece along the first vertical grid line where coverage
// changes, or failing that the first such horizontal line. Such a line always
// runs through a reflex vertex of the outline. Both halves are trimmed and
// non-empty.
func (p *Piece) Split() []Shape {
	cols, rows := p.cols(), p.rows()
	for c := 1; c < cols; c++ {
		if !p.sameColumn(c-1, c) {
			return []Shape{p.sub(0, c, 0, rows), p.sub(c, cols, 0, rows)}
		}
	}
	for r := 1; r < rows; r++ {
		if !p.sameRow(r-1, r) {
			return []Shape{p.sub(0, cols, 0, r), p.sub(0, cols, r, rows)}
		}
	}
	return []Shape{p}
}

func (p *Piece) sameColumn(a, b int) bool {
	for r := 0; r < p.rows(); r++ {
		if p.filled(a, r) != p.filled(b, r) {
			return false
		}
	}
	return true
}

func (p *Piece) sameRow(a, b int) bool {
	for c := 0; c < p.cols(); c++ {
		if p.filled(c, a) != p.filled(c, b) {
			return false
		}
	}
	return true
}

// sub copies cells [c0,c1) x [r0,r1) into a new piece and trims empty
// border rows and columns.
func (p *Piece) sub(c0, c1, r0, r1 int) *Piece {
	colUsed := func(c int) bool {
		for r := r0; r < r1; r++ {
			if p.filled(c, r) {
				return true
			}
		}
		return false
	}
	rowUsed := func(r int) bool {
		for c := c0; c < c1; c++ {
			if p.filled(c, r) {
				return true
			}
		}
		return false
	}
	for c0 < c1 && !colUsed(c0) {
		c0++
	}
	for c1 > c0 && !colUsed(c1-1) {
		c1--
	}
	for r0 < r1 && !rowUsed(r0) {
		r0++
	}
	for r1 > r0 && !rowUsed(r1-1) {
		r1--
	}
	if c0 == c1 || r0 == r1 {
		return &Piece{}
	}

	q := &Piece{
		xs:   slices.Clone(p.xs[c0 : c1+1]),
		ys:   slices.Clone(p.ys[r0 : r1+1]),
		fill: make([]bool, (c1-c0)*(r1-r0)),
	}
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			q.fill[(r-r0)*(c1-c0)+(c-c0)] = p.filled(c, r)
		}
	}
	return q
}

// rasterize paints the polygons onto a grid made of their vertex
// coordinates. Coverage is even-odd per polygon, union across polygons.
func rasterize(polys []Polygon) *Piece {
	var xs, ys []int64
	for _, p := range polys {
		for _, pt := range p.Points {
			xs = append(xs, pt.X)
			ys = append(ys, pt.Y)
		}
	}
	slices.Sort(xs)
	slices.Sort(ys)
	xs = slices.Compact(xs)
	ys = slices.Compact(ys)

	g := &Piece{xs: xs, ys: ys, fill: make([]bool, max(len(xs)-1, 0)*max(len(ys)-1, 0))}
	for _, p := range polys {
		g.paint(p)
	}
	return g
}

// paint scans each grid row through its vertical center, pairing up the
// vertical edges it crosses.
func (g *Piece) paint(p Polygon) {
	bb := p.BBox()
	r0, _ := slices.BinarySearch(g.ys, bb.Bottom)
	r1, _ := slices.BinarySearch(g.ys, bb.Top)
	n := len(p.Points)
	cols := g.cols()

	var crossings []int64
	for r := r0; r < r1; r++ {
		mid2 := g.ys[r] + g.ys[r+1]
		crossings = crossings[:0]
		for i := 0; i < n; i++ {
			a, b := p.Points[i], p.Points[(i+1)%n]
			if a.X != b.X {
				continue
			}
			if 2*min(a.Y, b.Y) < mid2 && mid2 < 2*max(a.Y, b.Y) {
				crossings = append(crossings, a.X)
			}
		}
		slices.Sort(crossings)
		for k := 0; k+1 < len(crossings); k += 2 {
			ca, _ := slices.BinarySearch(g.xs, crossings[k])
			cb, _ := slices.BinarySearch(g.xs, crossings[k+1])
			for c := ca; c < cb; c++ {
				g.fill[r*cols+c] = true
			}
		}
	}
}

// components splits the grid into connected pieces. Cells sharing an edge or
// only a corner vertex belong to the same piece.
func (g *Piece) components() []*Piece {
	cols, rows := g.cols(), g.rows()
	seen := make([]bool, len(g.fill))
	var out []*Piece
	var cells, stack []int

	for start := range g.fill {
		if !g.fill[start] || seen[start] {
			continue
		}
		cells = cells[:0]
		c0, c1, r0, r1 := cols, 0, rows, 0

		stack = append(stack[:0], start)
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cells = append(cells, i)
			c, r := i%cols, i/cols
			c0, c1 = min(c0, c), max(c1, c+1)
			r0, r1 = min(r0, r), max(r1, r+1)

			for nr := r - 1; nr <= r+1; nr++ {
				for nc := c - 1; nc <= c+1; nc++ {
					if nc < 0 || nc >= cols || nr < 0 || nr >= rows {
						continue
					}
					j := nr*cols + nc
					if g.fill[j] && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		out = append(out, g.piece(cells, c0, c1, r0, r1))
	}
	return out
}

// piece builds a piece over cells [c0,c1) x [r0,r1) of g covering only the
// given cell indices. The bounds must be the extent of cells.
func (g *Piece) piece(cells []int, c0, c1, r0, r1 int) *Piece {
	cols, w := g.cols(), c1-c0
	q := &Piece{
		xs:   slices.Clone(g.xs[c0 : c1+1]),
		ys:   slices.Clone(g.ys[r0 : r1+1]),
		fill: make([]bool, w*(r1-r0)),
	}
	for _, i := range cells {
		q.fill[(i/cols-r0)*w+(i%cols-c0)] = true
	}
	return q
}
