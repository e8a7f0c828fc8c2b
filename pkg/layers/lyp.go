package layers

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/OpenTraceLab/gds2lef/pkg/gds"
)

// ParseNameListFile reads a KLayout layer properties (.lyp) file.
func ParseNameListFile(path string) (*Catalog, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nameList(doc)
}

// ParseNameList reads layer properties from r. Every <properties> entry must
// have a name of the form "DisplayName - number/datatype"; each one becomes a
// metal record.
func ParseNameList(r io.Reader) (*Catalog, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to read layer properties: %w", err)
	}
	return nameList(doc)
}

func nameList(doc *etree.Document) (*Catalog, error) {
	root := doc.Root()
	if root == nil {
		return nil, malformed("empty layer properties document")
	}

	c := newCatalog()
	for i, props := range root.SelectElements("properties") {
		nameEl := props.SelectElement("name")
		if nameEl == nil {
			return nil, malformed("properties entry %d has no <name>", i)
		}
		display, id, ok := strings.Cut(nameEl.Text(), " - ")
		if !ok {
			return nil, malformed("properties entry %d: name %q is not \"Name - layer/datatype\"", i, nameEl.Text())
		}
		layer, err := gds.ParseLayer(id)
		if err != nil {
			return nil, malformed("properties entry %d: %v", i, err)
		}
		c.add(Record{ID: layer, Name: strings.TrimSpace(display), Kind: Metal})
	}
	return c, nil
}
