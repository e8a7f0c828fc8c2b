package layers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/gds2lef/pkg/gds"
)

const sampleLyp = `<?xml version="1.0" encoding="utf-8"?>
<layer-properties>
 <properties>
  <frame-color>#ff0000</frame-color>
  <name>Metal1 - 8/0</name>
  <source>8/0@1</source>
 </properties>
 <properties>
  <name>Metal2 - 10/0</name>
  <source>10/0@1</source>
 </properties>
</layer-properties>
`

const sampleLyt = `<?xml version="1.0" encoding="utf-8"?>
<technology>
 <name>demo</name>
 <reader-options>
  <lefdef>
   <routing-suffix-string>.drawing</routing-suffix-string>
   <routing-datatype-string>0</routing-datatype-string>
   <labels-suffix>.label</labels-suffix>
   <labels-datatype>2</labels-datatype>
   <cell-outline-layer>OUTLINE</cell-outline-layer>
   <layer-map>layer_map('metal1.drawing : 8/0';'metal1.label : 8/2';'metal2.drawing : 10/0';'metal2.label : 10/3';'OUTLINE : 235/0';'via1 : 9/0')</layer-map>
  </lefdef>
 </reader-options>
</technology>
`

func TestParseNameList(t *testing.T) {
	c, err := ParseNameList(strings.NewReader(sampleLyp))
	require.NoError(t, err)

	name, ok := c.MetalName(gds.Layer{Number: 8})
	require.True(t, ok)
	assert.Equal(t, "Metal1", name)

	name, ok = c.MetalName(gds.Layer{Number: 10})
	require.True(t, ok)
	assert.Equal(t, "Metal2", name)

	_, ok = c.LabelLayer("Metal1")
	assert.False(t, ok, "name lists carry no label layers")
	assert.False(t, c.HasLabels())
	_, ok = c.Boundary()
	assert.False(t, ok)
}

func TestParseNameListRejectsBadName(t *testing.T) {
	_, err := ParseNameList(strings.NewReader(`<layer-properties><properties><name>Metal1</name></properties></layer-properties>`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseNameList(strings.NewReader(`<layer-properties><properties><source>1/0</source></properties></layer-properties>`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseTech(t *testing.T) {
	c, err := ParseTech(strings.NewReader(sampleLyt))
	require.NoError(t, err)

	name, ok := c.MetalName(gds.Layer{Number: 8, Datatype: 0})
	require.True(t, ok)
	assert.Equal(t, "metal1", name)

	label, ok := c.LabelLayer("metal1")
	require.True(t, ok)
	assert.Equal(t, gds.Layer{Number: 8, Datatype: 2}, label)

	_, ok = c.LabelLayer("metal2")
	assert.False(t, ok, "metal2.label has datatype 3, not the label datatype")

	boundary, ok := c.Boundary()
	require.True(t, ok)
	assert.Equal(t, gds.Layer{Number: 235}, boundary)

	_, ok = c.MetalName(gds.Layer{Number: 9})
	assert.False(t, ok, "via1 has no routing suffix")

	kinds := map[Kind]int{}
	for _, r := range c.Records() {
		kinds[r.Kind]++
	}
	assert.Equal(t, map[Kind]int{Metal: 2, Label: 1, Boundary: 1}, kinds)
}

func TestParseTechMissingNode(t *testing.T) {
	doc := strings.Replace(sampleLyt, "<labels-datatype>2</labels-datatype>", "", 1)
	_, err := ParseTech(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseTech(strings.NewReader(`<technology><name>x</name></technology>`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseTechBadDatatype(t *testing.T) {
	doc := strings.Replace(sampleLyt, "<routing-datatype-string>0<", "<routing-datatype-string>zero<", 1)
	_, err := ParseTech(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseLayerMap(t *testing.T) {
	entries, err := ParseLayerMap("layer_map('a : 1/0';'b.pin : 1/2')")
	require.NoError(t, err)
	assert.Equal(t, []MapEntry{
		{Name: "a", Layer: gds.Layer{Number: 1}},
		{Name: "b.pin", Layer: gds.Layer{Number: 1, Datatype: 2}},
	}, entries)

	entries, err = ParseLayerMap("layer_map()")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = ParseLayerMap("'a : 1/0'")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = ParseLayerMap("layer_map('a 1/0')")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEmptyRoutingSuffixMatchesByDatatype(t *testing.T) {
	opts := TechOptions{
		RoutingDatatype: 0,
		LabelSuffix:     ".pin",
		LabelDatatype:   2,
		OutlineLayer:    "prBoundary",
		LayerMap: []MapEntry{
			{Name: "M1", Layer: gds.Layer{Number: 8}},
			{Name: "M1.pin", Layer: gds.Layer{Number: 8, Datatype: 2}},
			{Name: "prBoundary", Layer: gds.Layer{Number: 235}},
		},
	}
	c := opts.Catalog()
	name, ok := c.MetalName(gds.Layer{Number: 8})
	require.True(t, ok)
	assert.Equal(t, "M1", name)
	_, ok = c.MetalName(gds.Layer{Number: 235})
	assert.False(t, ok, "the outline layer is never a metal")
	_, ok = c.LabelLayer("M1")
	assert.True(t, ok)
}

func TestMetalTakesPrecedenceOverOutline(t *testing.T) {
	opts := TechOptions{
		RoutingSuffix:   ".drawing",
		RoutingDatatype: 0,
		LabelSuffix:     ".label",
		LabelDatatype:   2,
		OutlineLayer:    "prb.drawing",
		LayerMap: []MapEntry{
			{Name: "prb.drawing", Layer: gds.Layer{Number: 235}},
			{Name: "met1.label", Layer: gds.Layer{Number: 8, Datatype: 2}},
		},
	}
	c := opts.Catalog()
	name, ok := c.MetalName(gds.Layer{Number: 235})
	require.True(t, ok)
	assert.Equal(t, "prb", name)
	_, ok = c.Boundary()
	assert.False(t, ok)

	opts.OutlineLayer = "met1.label"
	c = opts.Catalog()
	_, ok = c.LabelLayer("met1")
	assert.True(t, ok, "label classification comes before the outline")
	_, ok = c.Boundary()
	assert.False(t, ok)
}

func TestLoadPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	lyp := filepath.Join(dir, "layers.lyp")
	lyt := filepath.Join(dir, "tech.lyt")
	require.NoError(t, os.WriteFile(lyp, []byte(sampleLyp), 0o644))
	require.NoError(t, os.WriteFile(lyt, []byte(sampleLyt), 0o644))

	c, err := Load(lyp)
	require.NoError(t, err)
	assert.False(t, c.HasLabels())

	c, err = Load(lyt)
	require.NoError(t, err)
	assert.True(t, c.HasLabels())

	_, err = Load(filepath.Join(dir, "missing.lyt"))
	assert.Error(t, err)
}
