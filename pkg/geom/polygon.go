package geom

// Polygon is a simple polygon given by its hull. The closing point is
// implicit.
type Polygon struct {
	Points []Point
}

// NewPolygon builds a polygon from a point list, dropping an explicit closing
// point, repeated points and redundant points in the middle of straight
// horizontal or vertical runs.
func NewPolygon(pts ...Point) Polygon {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}

	// Removing one redundant point can expose another, so repeat until stable.
	for changed := true; changed && len(out) > 2; {
		changed = false
		n := len(out)
		for i := 0; i < n; i++ {
			prev, cur, next := out[(i+n-1)%n], out[i], out[(i+1)%n]
			if (prev.X == cur.X && cur.X == next.X) || (prev.Y == cur.Y && cur.Y == next.Y) {
				out = append(out[:i], out[i+1:]...)
				changed = true
				break
			}
		}
	}
	return Polygon{Points: out}
}

// BoxPolygon returns the four-corner polygon of a box.
func BoxPolygon(b Box) Polygon {
	return Polygon{Points: []Point{
		{b.Left, b.Bottom},
		{b.Left, b.Top},
		{b.Right, b.Top},
		{b.Right, b.Bottom},
	}}
}

// BBox returns the bounding box of the hull.
func (p Polygon) BBox() Box {
	if len(p.Points) == 0 {
		return Box{}
	}
	b := Box{Left: p.Points[0].X, Bottom: p.Points[0].Y, Right: p.Points[0].X, Top: p.Points[0].Y}
	for _, pt := range p.Points[1:] {
		b.Left = min(b.Left, pt.X)
		b.Bottom = min(b.Bottom, pt.Y)
		b.Right = max(b.Right, pt.X)
		b.Top = max(b.Top, pt.Y)
	}
	return b
}

// Area returns the enclosed area (shoelace formula, truncated for
// non-rectilinear polygons).
func (p Polygon) Area() int64 {
	n := len(p.Points)
	if n < 3 {
		return 0
	}
	var twice int64
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		twice += a.X*b.Y - b.X*a.Y
	}
	if twice < 0 {
		twice = -twice
	}
	return twice / 2
}

// IsRectilinear reports whether every edge is horizontal or vertical.
func (p Polygon) IsRectilinear() bool {
	n := len(p.Points)
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		if a.X != b.X && a.Y != b.Y {
			return false
		}
	}
	return true
}

// IsBox reports whether the polygon is an axis-aligned rectangle.
func (p Polygon) IsBox() bool {
	return len(p.Points) == 4 && p.IsRectilinear() && p.Area() == p.BBox().Area() && p.Area() > 0
}

// Split rasterizes a rectilinear polygon and cuts it once. Polygons with
// diagonal edges cannot be cut and come back unchanged.
func (p Polygon) Split() []Shape {
	if !p.IsRectilinear() {
		return []Shape{p}
	}
	pieces := NewRegion(p).Merge()
	switch len(pieces) {
	case 0:
		return []Shape{p}
	case 1:
		return pieces[0].Split()
	default:
		return pieces
	}
}
