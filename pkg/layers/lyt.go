package layers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/OpenTraceLab/gds2lef/pkg/gds"
)

// TechOptions are the LEF/DEF reader options of a technology file that drive
// layer classification.
type TechOptions struct {
	RoutingSuffix   string
	RoutingDatatype int
	LabelSuffix     string
	LabelDatatype   int
	OutlineLayer    string
	LayerMap        []MapEntry
}

// MapEntry is one "name : number/datatype" item of a layer map.
type MapEntry struct {
	Name  string
	Layer gds.Layer
}

// ParseTechFile reads a KLayout technology (.lyt) file.
func ParseTechFile(path string) (*Catalog, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return techCatalog(doc)
}

// ParseTech reads a technology file from r.
func ParseTech(r io.Reader) (*Catalog, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read technology file: %w", err)
	}
	return techCatalog(doc)
}

func techCatalog(doc *etree.Document) (*Catalog, error) {
	opts, err := readTechOptions(doc)
	if err != nil {
		return nil, err
	}
	return opts.Catalog(), nil
}

// Catalog classifies the layer map entries. An entry is a metal layer when it
// ends in the routing suffix and has the routing datatype, else a label layer
// when it ends in the label suffix and has the label datatype, else the
// boundary layer when its name equals the outline layer name. Label records
// are keyed by the metal name left after removing the suffix. Anything else is
// ignored.
func (o TechOptions) Catalog() *Catalog {
	c := newCatalog()
	for _, e := range o.LayerMap {
		switch {
		case o.isMetal(e):
			c.add(Record{ID: e.Layer, Name: strings.TrimSuffix(e.Name, o.RoutingSuffix), Kind: Metal})
		case hasBase(e.Name, o.LabelSuffix) && e.Layer.Datatype == o.LabelDatatype:
			c.add(Record{ID: e.Layer, Name: strings.TrimSuffix(e.Name, o.LabelSuffix), Kind: Label})
		case o.OutlineLayer != "" && e.Name == o.OutlineLayer:
			c.add(Record{ID: e.Layer, Name: e.Name, Kind: Boundary})
		}
	}
	return c
}

// isMetal reports whether e is a routing layer. With an empty routing suffix
// every entry at the routing datatype is one, except the outline layer.
func (o TechOptions) isMetal(e MapEntry) bool {
	if e.Layer.Datatype != o.RoutingDatatype || !hasBase(e.Name, o.RoutingSuffix) {
		return false
	}
	return o.RoutingSuffix != "" || e.Name != o.OutlineLayer
}

// hasBase reports whether name is a non-empty base followed by suffix.
func hasBase(name, suffix string) bool {
	return len(name) > len(suffix) && strings.HasSuffix(name, suffix)
}

func readTechOptions(doc *etree.Document) (TechOptions, error) {
	var opts TechOptions

	lefdef := doc.FindElement("//reader-options/lefdef")
	if lefdef == nil {
		return opts, malformed("no reader-options/lefdef section")
	}

	text := func(tag string) (string, error) {
		el := lefdef.SelectElement(tag)
		if el == nil {
			return "", malformed("lefdef option <%s> is missing", tag)
		}
		return strings.TrimSpace(el.Text()), nil
	}
	datatype := func(tag string) (int, error) {
		s, err := text(tag)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, malformed("lefdef option <%s> is not a datatype: %q", tag, s)
		}
		return v, nil
	}

	var err error
	if opts.RoutingSuffix, err = text("routing-suffix-string"); err != nil {
		return opts, err
	}
	if opts.RoutingDatatype, err = datatype("routing-datatype-string"); err != nil {
		return opts, err
	}
	if opts.LabelSuffix, err = text("labels-suffix"); err != nil {
		return opts, err
	}
	if opts.LabelDatatype, err = datatype("labels-datatype"); err != nil {
		return opts, err
	}
	if opts.OutlineLayer, err = text("cell-outline-layer"); err != nil {
		return opts, err
	}
	raw, err := text("layer-map")
	if err != nil {
		return opts, err
	}
	if opts.LayerMap, err = ParseLayerMap(raw); err != nil {
		return opts, err
	}
	return opts, nil
}

// ParseLayerMap parses KLayout's layer_map('name : n/d';'name : n/d') string.
func ParseLayerMap(s string) ([]MapEntry, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "layer_map(") || !strings.HasSuffix(s, ")") {
		return nil, malformed("layer map %q is not layer_map(...)", s)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "layer_map("), ")")

	var out []MapEntry
	for _, item := range strings.Split(body, ";") {
		item = strings.Trim(strings.TrimSpace(item), "'")
		if item == "" {
			continue
		}
		i := strings.LastIndex(item, ":")
		if i < 0 {
			return nil, malformed("layer map entry %q has no ':'", item)
		}
		layer, err := gds.ParseLayer(item[i+1:])
		if err != nil {
			return nil, malformed("layer map entry %q: %v", item, err)
		}
		out = append(out, MapEntry{Name: strings.TrimSpace(item[:i]), Layer: layer})
	}
	return out, nil
}
