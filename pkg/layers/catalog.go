// Package layers resolves GDS layer numbers to the metal, label and boundary
// layer names used in LEF output.
//
// Two KLayout metadata formats are understood: layer property files (.lyp),
// which only name layers, and technology files (.lyt), whose LEF/DEF reader
// options also describe pin-label and cell-outline layers.
package layers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/gds2lef/pkg/gds"
)

// ErrMalformed is returned for metadata files missing required fields.
var ErrMalformed = errors.New("layers: malformed layer metadata")

// Kind classifies a layer record.
type Kind int

const (
	Metal Kind = iota
	Label
	Boundary
)

func (k Kind) String() string {
	switch k {
	case Metal:
		return "metal"
	case Label:
		return "label"
	case Boundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// Record is one resolved layer. Label records carry the name of the metal
// layer they annotate.
type Record struct {
	ID   gds.Layer
	Name string
	Kind Kind
}

// Catalog is the resolved layer table. It is immutable once built.
type Catalog struct {
	records  []Record
	metals   map[gds.Layer]string
	labels   map[string]gds.Layer
	boundary *Record
}

func newCatalog() *Catalog {
	return &Catalog{
		metals: make(map[gds.Layer]string),
		labels: make(map[string]gds.Layer),
	}
}

func (c *Catalog) add(r Record) {
	switch r.Kind {
	case Metal:
		c.metals[r.ID] = r.Name
	case Label:
		c.labels[r.Name] = r.ID
	case Boundary:
		b := r
		c.boundary = &b
	}
	c.records = append(c.records, r)
}

// NewCatalog builds a catalog from explicit records. Later records replace
// earlier ones with the same key.
func NewCatalog(records ...Record) *Catalog {
	c := newCatalog()
	for _, r := range records {
		c.add(r)
	}
	return c
}

// Load reads a metadata file, choosing the format by extension: .lyp is a
// layer property list, anything else is treated as a technology file.
func Load(path string) (*Catalog, error) {
	if strings.EqualFold(filepath.Ext(path), ".lyp") {
		return ParseNameListFile(path)
	}
	return ParseTechFile(path)
}

// MetalName returns the metal layer name for a GDS layer.
func (c *Catalog) MetalName(id gds.Layer) (string, bool) {
	name, ok := c.metals[id]
	return name, ok
}

// LabelLayer returns the GDS layer carrying pin labels for a metal layer.
func (c *Catalog) LabelLayer(metal string) (gds.Layer, bool) {
	id, ok := c.labels[metal]
	return id, ok
}

// Boundary returns the cell outline layer, if one is configured.
func (c *Catalog) Boundary() (gds.Layer, bool) {
	if c.boundary == nil {
		return gds.Layer{}, false
	}
	return c.boundary.ID, true
}

// Records returns every resolved record in file order.
func (c *Catalog) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// HasLabels reports whether any label layer is known. Name-list catalogs
// never have one, so no pins can be found with them.
func (c *Catalog) HasLabels() bool {
	return len(c.labels) > 0
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
