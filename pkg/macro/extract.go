package macro

import (
	"github.com/charmbracelet/log"

	"github.com/OpenTraceLab/gds2lef/pkg/gds"
	"github.com/OpenTraceLab/gds2lef/pkg/geom"
	"github.com/OpenTraceLab/gds2lef/pkg/layers"
)

// Extractor turns top cells of one library into macros. The library and
// catalog are only read.
type Extractor struct {
	lib     *gds.Library
	catalog *layers.Catalog
	logger  *log.Logger
}

// NewExtractor creates an extractor. A nil logger uses log.Default().
func NewExtractor(lib *gds.Library, catalog *layers.Catalog, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{lib: lib, catalog: catalog, logger: logger}
}

// pinKey identifies a port by pin name and metal layer.
type pinKey struct {
	pin, layer string
}

// Extract builds the macro for one cell. Metal layers are visited in the
// order they first appear in the library.
func (e *Extractor) Extract(cell *gds.Cell) *Macro {
	m := &Macro{Name: cell.Name}
	matched := make(map[pinKey]int)

	for _, id := range e.lib.Layers() {
		name, ok := e.catalog.MetalName(id)
		if !ok {
			continue
		}
		groups, extent := e.layerGroups(m, cell, id, name)
		if extent.Area() > 0 {
			m.Obstructions = append(m.Obstructions, Obstruction{Layer: name, Rect: extent})
		}
		if len(groups) > 0 {
			e.associate(m, cell, name, groups, matched)
		}
	}

	e.size(m, cell)
	return m
}

// layerGroups merges the polygons of one metal layer and decomposes every
// connected region into its own group. extent is the bounding box of the
// merged regions.
func (e *Extractor) layerGroups(m *Macro, cell *gds.Cell, id gds.Layer, name string) (groups []Group, extent geom.Box) {
	polys := cell.Polygons(id)
	if len(polys) == 0 {
		return nil, geom.Box{}
	}

	for _, region := range geom.NewRegion(polys...).Merge() {
		extent = extent.Union(region.BBox())
		boxes, bad := Decompose(region)
		for _, b := range bad {
			m.warn(BadPolygon, name, "region at %s cannot be split into rectangles", b.BBox())
		}
		if len(boxes) > 0 {
			groups = append(groups, Group(boxes))
		}
	}
	return groups, extent
}

// associate attaches each label on the metal layer's label layer to the
// first group containing its anchor.
func (e *Extractor) associate(m *Macro, cell *gds.Cell, metal string, groups []Group, matched map[pinKey]int) {
	labelLayer, ok := e.catalog.LabelLayer(metal)
	if !ok {
		e.logger.Debug("no label layer, skipping pins", "cell", cell.Name, "layer", metal)
		return
	}
	if !e.lib.HasLayer(labelLayer) {
		e.logger.Debug("label layer not in layout, skipping pins", "cell", cell.Name, "layer", metal, "label", labelLayer)
		return
	}

	for _, text := range cell.TextsOn(labelLayer) {
		idx := -1
		for i, g := range groups {
			if g.Contains(text.Anchor) {
				idx = i
				break
			}
		}
		if idx < 0 {
			m.warn(UnmatchedLabel, metal, "label %q at (%d, %d) is outside every shape", text.String, text.Anchor.X, text.Anchor.Y)
			continue
		}

		key := pinKey{pin: text.String, layer: metal}
		if prev, seen := matched[key]; seen {
			if prev != idx {
				m.warn(DuplicateLabel, metal, "label %q also marks another shape, keeping the first", text.String)
			}
			continue
		}
		matched[key] = idx

		pin := m.Pin(text.String)
		if pin == nil {
			pin = &Pin{Name: text.String}
			m.Pins = append(m.Pins, pin)
		}
		rects := make([]geom.Box, len(groups[idx]))
		copy(rects, groups[idx])
		pin.Ports = append(pin.Ports, &Port{Layer: metal, Rects: rects})
	}
}

// size sets the macro size from the boundary layer, or from the extent of
// every polygon in the cell when there is no boundary shape.
func (e *Extractor) size(m *Macro, cell *gds.Cell) {
	if id, ok := e.catalog.Boundary(); ok {
		if polys := cell.Polygons(id); len(polys) > 0 {
			if len(polys) > 1 {
				m.warn(MultipleBoundaries, "", "%d boundary shapes on %s, using the last", len(polys), id)
			}
			b := polys[len(polys)-1].BBox()
			m.Width, m.Height = b.Width(), b.Height()
			return
		}
	}

	var all geom.Box
	for _, id := range e.lib.Layers() {
		for _, p := range cell.Polygons(id) {
			all = all.Union(p.BBox())
		}
	}
	if all.Empty() {
		m.warn(EmptyCell, "", "cell has no shapes, size is 0 x 0")
		return
	}
	m.Width, m.Height = all.Width(), all.Height()
}
