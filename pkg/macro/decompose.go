package macro

import "github.com/OpenTraceLab/gds2lef/pkg/geom"

// Decompose reduces a shape to rectangles whose disjoint union is the shape.
// Parts that cannot be split any further without being rectangles are
// returned in bad.
func Decompose(s geom.Shape) (boxes []geom.Box, bad []geom.Shape) {
	if s.IsBox() {
		return []geom.Box{s.BBox()}, nil
	}

	work := []geom.Shape{s}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		parts := p.Split()
		if len(parts) < 2 {
			bad = append(bad, p)
			continue
		}
		for _, part := range parts {
			if part.IsBox() {
				boxes = append(boxes, part.BBox())
			} else {
				work = append(work, part)
			}
		}
	}
	return boxes, bad
}
