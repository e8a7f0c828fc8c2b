package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/gds2lef/pkg/gds"
	"github.com/OpenTraceLab/gds2lef/pkg/geom"
	"github.com/OpenTraceLab/gds2lef/pkg/layers"
)

var (
	metal1  = gds.Layer{Number: 8}
	label1  = gds.Layer{Number: 8, Datatype: 2}
	metal2  = gds.Layer{Number: 10}
	outline = gds.Layer{Number: 235}
)

func testCatalog() *layers.Catalog {
	return layers.NewCatalog(
		layers.Record{ID: metal1, Name: "metal1", Kind: layers.Metal},
		layers.Record{ID: label1, Name: "metal1", Kind: layers.Label},
		layers.Record{ID: metal2, Name: "metal2", Kind: layers.Metal},
		layers.Record{ID: outline, Name: "OUTLINE", Kind: layers.Boundary},
	)
}

func rect(l gds.Layer, b geom.Box) gds.Boundary {
	return gds.Boundary{Layer: l, Points: geom.BoxPolygon(b).Points}
}

func label(l gds.Layer, x, y int64, s string) gds.Text {
	return gds.Text{Layer: l, Anchor: geom.Point{X: x, Y: y}, String: s}
}

func extract(t *testing.T, cell *gds.Cell) *Macro {
	t.Helper()
	lib := &gds.Library{Name: "TEST", UserUnit: 1e-3, MetersPerUnit: 1e-9}
	lib.AddCell(cell)
	return NewExtractor(lib, testCatalog(), nil).Extract(cell)
}

func kinds(ws []Warning) []WarningKind {
	var out []WarningKind
	for _, w := range ws {
		out = append(out, w.Kind)
	}
	return out
}

func sumArea(boxes []geom.Box) int64 {
	var a int64
	for _, b := range boxes {
		a += b.Area()
	}
	return a
}

func TestDecomposeSingleRectangle(t *testing.T) {
	b := geom.Box{Left: 10, Bottom: 20, Right: 110, Top: 70}
	boxes, bad := Decompose(geom.BoxPolygon(b))
	assert.Equal(t, []geom.Box{b}, boxes)
	assert.Empty(t, bad)
}

func TestDecomposeLShape(t *testing.T) {
	l := geom.NewPolygon(
		geom.Point{X: 0, Y: 0}, geom.Point{X: 300, Y: 0}, geom.Point{X: 300, Y: 100},
		geom.Point{X: 100, Y: 100}, geom.Point{X: 100, Y: 300}, geom.Point{X: 0, Y: 300},
	)
	regions := geom.NewRegion(l).Merge()
	require.Len(t, regions, 1)

	boxes, bad := Decompose(regions[0])
	assert.Empty(t, bad)
	assert.Equal(t, l.Area(), sumArea(boxes))
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			assert.False(t, boxes[i].Overlaps(boxes[j]), "%s overlaps %s", boxes[i], boxes[j])
		}
	}
}

func TestDecomposeComb(t *testing.T) {
	// A comb with four teeth: many reflex vertices, one region.
	r := geom.NewRegion(geom.BoxPolygon(geom.Box{Left: 0, Bottom: 0, Right: 700, Top: 100}))
	for x := int64(0); x < 700; x += 200 {
		r.Insert(geom.BoxPolygon(geom.Box{Left: x, Bottom: 100, Right: x + 100, Top: 400}))
	}
	regions := r.Merge()
	require.Len(t, regions, 1)

	boxes, bad := Decompose(regions[0])
	assert.Empty(t, bad)
	assert.Equal(t, int64(700*100+4*100*300), sumArea(boxes))
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			assert.False(t, boxes[i].Overlaps(boxes[j]))
		}
	}
}

func TestDecomposeReportsDiagonalPolygon(t *testing.T) {
	tri := geom.NewPolygon(geom.Point{X: 0, Y: 0}, geom.Point{X: 100, Y: 0}, geom.Point{X: 0, Y: 100})
	boxes, bad := Decompose(tri)
	assert.Empty(t, boxes)
	require.Len(t, bad, 1)
	assert.Equal(t, geom.Box{Left: 0, Bottom: 0, Right: 100, Top: 100}, bad[0].BBox())
}

func TestExtractAssociatesLabelWithGroup(t *testing.T) {
	cell := &gds.Cell{
		Name: "BUF",
		Boundaries: []gds.Boundary{
			rect(metal1, geom.Box{Left: 0, Bottom: 0, Right: 200, Top: 200}),
			rect(metal1, geom.Box{Left: 1000, Bottom: 0, Right: 1200, Top: 200}),
			rect(metal1, geom.Box{Left: 1000, Bottom: 200, Right: 1100, Top: 600}),
		},
		Texts: []gds.Text{label(label1, 1050, 500, "Y")},
	}
	m := extract(t, cell)

	require.Len(t, m.Pins, 1)
	pin := m.Pins[0]
	assert.Equal(t, "Y", pin.Name)
	require.Len(t, pin.Ports, 1)
	port := pin.Ports[0]
	assert.Equal(t, "metal1", port.Layer)
	assert.Equal(t, int64(200*200+100*400), sumArea(port.Rects))
	for _, r := range port.Rects {
		assert.GreaterOrEqual(t, r.Left, int64(1000), "rectangle %s belongs to the other region", r)
	}
	assert.Empty(t, m.Warnings)
}

func TestExtractLabelOnEdgeMatches(t *testing.T) {
	cell := &gds.Cell{
		Name:       "EDGE",
		Boundaries: []gds.Boundary{rect(metal1, geom.Box{Left: 0, Bottom: 0, Right: 200, Top: 200})},
		Texts:      []gds.Text{label(label1, 200, 100, "A")},
	}
	m := extract(t, cell)
	require.NotNil(t, m.Pin("A"))
}

func TestExtractNoLabelLayerRecordsNoPins(t *testing.T) {
	label2 := gds.Layer{Number: 10, Datatype: 2}
	cell := &gds.Cell{
		Name:       "M2ONLY",
		Boundaries: []gds.Boundary{rect(metal2, geom.Box{Left: 0, Bottom: 0, Right: 200, Top: 200})},
		Texts:      []gds.Text{label(label2, 100, 100, "A")},
	}
	m := extract(t, cell)
	assert.Empty(t, m.Pins)
	assert.Len(t, m.Obstructions, 1)
	assert.Empty(t, m.Warnings)
}

func TestExtractLabelLayerMissingFromLayout(t *testing.T) {
	catalog := layers.NewCatalog(
		layers.Record{ID: metal1, Name: "metal1", Kind: layers.Metal},
		layers.Record{ID: gds.Layer{Number: 8, Datatype: 7}, Name: "metal1", Kind: layers.Label},
	)
	box := geom.Box{Left: 0, Bottom: 0, Right: 200, Top: 200}
	cell := &gds.Cell{
		Name:       "NOLBL",
		Boundaries: []gds.Boundary{rect(metal1, box)},
		Texts:      []gds.Text{label(label1, 100, 100, "A")},
	}
	lib := &gds.Library{Name: "TEST", UserUnit: 1e-3, MetersPerUnit: 1e-9}
	lib.AddCell(cell)
	require.False(t, lib.HasLayer(gds.Layer{Number: 8, Datatype: 7}))

	m := NewExtractor(lib, catalog, nil).Extract(cell)
	assert.Empty(t, m.Pins)
	assert.Empty(t, m.Warnings)
	assert.Equal(t, []Obstruction{{Layer: "metal1", Rect: box}}, m.Obstructions)
}

func TestExtractCornerTouchingShapesShareAPin(t *testing.T) {
	lower := geom.Box{Left: 0, Bottom: 0, Right: 200, Top: 200}
	upper := geom.Box{Left: 200, Bottom: 200, Right: 400, Top: 400}
	cell := &gds.Cell{
		Name:       "DIAG",
		Boundaries: []gds.Boundary{rect(metal1, lower), rect(metal1, upper)},
		Texts:      []gds.Text{label(label1, 100, 100, "A")},
	}
	m := extract(t, cell)
	pin := m.Pin("A")
	require.NotNil(t, pin)
	require.Len(t, pin.Ports, 1)
	assert.ElementsMatch(t, []geom.Box{lower, upper}, pin.Ports[0].Rects)
	assert.Empty(t, m.Warnings)
}

func TestExtractUnmatchedLabelWarns(t *testing.T) {
	cell := &gds.Cell{
		Name:       "U",
		Boundaries: []gds.Boundary{rect(metal1, geom.Box{Left: 0, Bottom: 0, Right: 200, Top: 200})},
		Texts:      []gds.Text{label(label1, 500, 500, "A")},
	}
	m := extract(t, cell)
	assert.Empty(t, m.Pins)
	assert.Equal(t, []WarningKind{UnmatchedLabel}, kinds(m.Warnings))
	assert.Equal(t, "metal1", m.Warnings[0].Layer)
	assert.Equal(t, "U", m.Warnings[0].Cell)
}

func TestExtractDuplicateLabelFirstWins(t *testing.T) {
	first := geom.Box{Left: 0, Bottom: 0, Right: 200, Top: 200}
	cell := &gds.Cell{
		Name: "DUP",
		Boundaries: []gds.Boundary{
			rect(metal1, first),
			rect(metal1, geom.Box{Left: 1000, Bottom: 0, Right: 1200, Top: 200}),
		},
		Texts: []gds.Text{
			label(label1, 100, 100, "A"),
			label(label1, 1100, 100, "A"),
			label(label1, 150, 150, "A"),
		},
	}
	m := extract(t, cell)
	require.Len(t, m.Pins, 1)
	require.Len(t, m.Pins[0].Ports, 1)
	assert.Equal(t, []geom.Box{first}, m.Pins[0].Ports[0].Rects)
	assert.Equal(t, []WarningKind{DuplicateLabel}, kinds(m.Warnings))
}

func TestExtractPinOrderFollowsLabels(t *testing.T) {
	cell := &gds.Cell{
		Name:       "ORD",
		Boundaries: []gds.Boundary{rect(metal1, geom.Box{Left: 0, Bottom: 0, Right: 2000, Top: 200})},
		Texts: []gds.Text{
			label(label1, 1500, 100, "Z"),
			label(label1, 100, 100, "A"),
		},
	}
	m := extract(t, cell)
	require.Len(t, m.Pins, 2)
	assert.Equal(t, "Z", m.Pins[0].Name)
	assert.Equal(t, "A", m.Pins[1].Name)
}

func TestExtractObstructionPerLayer(t *testing.T) {
	cell := &gds.Cell{
		Name: "OBS",
		Boundaries: []gds.Boundary{
			rect(metal1, geom.Box{Left: 0, Bottom: 0, Right: 100, Top: 100}),
			rect(metal1, geom.Box{Left: 500, Bottom: 300, Right: 600, Top: 900}),
			rect(metal2, geom.Box{Left: 50, Bottom: 50, Right: 60, Top: 70}),
		},
		Paths: []gds.Path{{Layer: metal2, Width: 20, Points: []geom.Point{{X: 0, Y: 10}, {X: 100, Y: 10}}}},
	}
	m := extract(t, cell)
	assert.Equal(t, []Obstruction{
		{Layer: "metal1", Rect: geom.Box{Left: 0, Bottom: 0, Right: 600, Top: 900}},
		{Layer: "metal2", Rect: geom.Box{Left: 0, Bottom: 0, Right: 100, Top: 70}},
	}, m.Obstructions)
}

func TestExtractSizeFromBoundary(t *testing.T) {
	cell := &gds.Cell{
		Name: "INV",
		Boundaries: []gds.Boundary{
			rect(outline, geom.Box{Left: 0, Bottom: 0, Right: 2000, Top: 4000}),
			rect(metal1, geom.Box{Left: -100, Bottom: 0, Right: 5000, Top: 200}),
		},
	}
	m := extract(t, cell)
	assert.Equal(t, int64(2000), m.Width)
	assert.Equal(t, int64(4000), m.Height)
	assert.Empty(t, m.Warnings)
}

func TestExtractLastBoundaryWins(t *testing.T) {
	cell := &gds.Cell{
		Name: "TWO",
		Boundaries: []gds.Boundary{
			rect(outline, geom.Box{Left: 0, Bottom: 0, Right: 2000, Top: 4000}),
			rect(outline, geom.Box{Left: 0, Bottom: 0, Right: 3000, Top: 5000}),
		},
	}
	m := extract(t, cell)
	assert.Equal(t, int64(3000), m.Width)
	assert.Equal(t, int64(5000), m.Height)
	assert.Equal(t, []WarningKind{MultipleBoundaries}, kinds(m.Warnings))
}

func TestExtractSizeFromAllShapes(t *testing.T) {
	other := gds.Layer{Number: 99}
	cell := &gds.Cell{
		Name: "NOBND",
		Boundaries: []gds.Boundary{
			rect(metal1, geom.Box{Left: 0, Bottom: 0, Right: 1000, Top: 200}),
			rect(other, geom.Box{Left: 500, Bottom: 100, Right: 1500, Top: 3000}),
		},
	}
	m := extract(t, cell)
	assert.Equal(t, int64(1500), m.Width)
	assert.Equal(t, int64(3000), m.Height)
}

func TestExtractEmptyCell(t *testing.T) {
	m := extract(t, &gds.Cell{Name: "EMPTY"})
	assert.Zero(t, m.Width)
	assert.Zero(t, m.Height)
	assert.Equal(t, []WarningKind{EmptyCell}, kinds(m.Warnings))
}

func TestExtractDiagonalShapeWarns(t *testing.T) {
	cell := &gds.Cell{
		Name: "DIAG",
		Boundaries: []gds.Boundary{
			{Layer: metal1, Points: []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}}},
		},
	}
	m := extract(t, cell)
	assert.Equal(t, []WarningKind{BadPolygon}, kinds(m.Warnings))
	require.Len(t, m.Obstructions, 1, "diagonal shapes still obstruct")
}

func TestExtractInverter(t *testing.T) {
	cell := &gds.Cell{
		Name: "INV",
		Boundaries: []gds.Boundary{
			rect(outline, geom.Box{Left: 0, Bottom: 0, Right: 2000, Top: 4000}),
			rect(metal1, geom.Box{Left: 100, Bottom: 100, Right: 500, Top: 900}),
		},
		Texts: []gds.Text{label(label1, 300, 500, "A")},
	}
	m := extract(t, cell)
	assert.Equal(t, "INV", m.Name)
	require.Len(t, m.Pins, 1)
	assert.Equal(t, []geom.Box{{Left: 100, Bottom: 100, Right: 500, Top: 900}}, m.Pins[0].Ports[0].Rects)
	assert.Len(t, m.Obstructions, 1)
	assert.Empty(t, m.Warnings)
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: UnmatchedLabel, Cell: "INV", Layer: "metal1", Message: "label \"A\""}
	assert.Equal(t, "INV/metal1: unmatched label: label \"A\"", w.String())
	w.Layer = ""
	assert.Equal(t, "INV: unmatched label: label \"A\"", w.String())
}
