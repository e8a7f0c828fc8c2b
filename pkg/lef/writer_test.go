package lef

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/gds2lef/pkg/direction"
	"github.com/OpenTraceLab/gds2lef/pkg/geom"
	"github.com/OpenTraceLab/gds2lef/pkg/macro"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func render(t *testing.T, opts Options, dirs *direction.Table, macros ...*macro.Macro) string {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, opts, quietLogger())
	require.NoError(t, w.WriteHeader())
	for _, m := range macros {
		require.NoError(t, w.WriteMacro(m, dirs))
	}
	require.NoError(t, w.Close())
	return buf.String()
}

func pinMacro(rects ...geom.Box) *macro.Macro {
	return &macro.Macro{
		Name:   "CELL",
		Width:  1000,
		Height: 1000,
		Pins: []*macro.Pin{{
			Name:  "A",
			Ports: []*macro.Port{{Layer: "metal1", Rects: rects}},
		}},
	}
}

func TestWriteInverter(t *testing.T) {
	m := &macro.Macro{
		Name:   "INV",
		Width:  2000,
		Height: 4000,
		Pins: []*macro.Pin{{
			Name:  "A",
			Ports: []*macro.Port{{Layer: "metal1", Rects: []geom.Box{{Left: 100, Bottom: 100, Right: 500, Top: 900}}}},
		}},
		Obstructions: []macro.Obstruction{{Layer: "metal1", Rect: geom.Box{Left: 100, Bottom: 100, Right: 500, Top: 900}}},
	}
	dirs := direction.NewTable()
	dirs.Set("INV", "A", direction.Input)

	want := `VERSION 5.6 ;
BUSBITCHARS "[]" ;
DIVIDERCHAR "/" ;

MACRO INV
  CLASS CORE ;
  ORIGIN 0 0 ;
  SIZE 2.00 BY 4.00 ;
  SYMMETRY X Y R90 ;
  SITE CoreSite ;

  PIN A
    DIRECTION INPUT ;
    USE SIGNAL ;
    PORT
      LAYER metal1 ;
        RECT 0.1000 0.1000 0.5000 0.9000 ;
    END
  END A
  OBS
    LAYER metal1 ;
        RECT 0.1000 0.1000 0.5000 0.9000 ;
  END
END INV

END LIBRARY
`
	assert.Equal(t, want, render(t, DefaultOptions(), dirs, m))
	assert.Empty(t, m.Warnings)
}

func TestUnitConversion(t *testing.T) {
	out := render(t, DefaultOptions(), nil, pinMacro(geom.Box{Left: 0, Bottom: 0, Right: 1000, Top: 2000}))
	assert.Contains(t, out, "RECT 0.0000 0.0000 1.0000 2.0000 ;")
}

func TestMinimumFeatureFilter(t *testing.T) {
	tests := []struct {
		name  string
		width int64
		kept  bool
	}{
		{"below", 40, false},
		{"at", 50, true},
		{"above", 51, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep := geom.Box{Left: 0, Bottom: 0, Right: 500, Top: 500}
			probe := geom.Box{Left: 1000, Bottom: 0, Right: 1000 + tt.width, Top: 500}
			out := render(t, DefaultOptions(), nil, pinMacro(keep, probe))
			assert.Equal(t, tt.kept, strings.Contains(out, "RECT 1.0000 "), out)
			assert.Contains(t, out, "RECT 0.0000 0.0000 0.5000 0.5000 ;")
		})
	}
}

func TestMinimumFeatureAppliesToHeight(t *testing.T) {
	out := render(t, DefaultOptions(), nil, pinMacro(
		geom.Box{Left: 0, Bottom: 0, Right: 500, Top: 500},
		geom.Box{Left: 0, Bottom: 1000, Right: 500, Top: 1049},
	))
	assert.Equal(t, 1, strings.Count(out, "        RECT"), out)
}

func TestPortWithOnlySliversIsDropped(t *testing.T) {
	m := pinMacro(geom.Box{Left: 0, Bottom: 0, Right: 10, Top: 10})
	out := render(t, DefaultOptions(), nil, m)
	assert.NotContains(t, out, "PIN A")
	assert.NotContains(t, out, "PORT")
}

func TestObstructionsAreNotFiltered(t *testing.T) {
	m := &macro.Macro{
		Name:         "OBS",
		Obstructions: []macro.Obstruction{{Layer: "metal2", Rect: geom.Box{Left: 0, Bottom: 0, Right: 10, Top: 10}}},
	}
	out := render(t, DefaultOptions(), nil, m)
	assert.Contains(t, out, "  OBS\n    LAYER metal2 ;\n        RECT 0.0000 0.0000 0.0100 0.0100 ;\n  END\n")
}

func TestPowerPins(t *testing.T) {
	box := []geom.Box{{Left: 0, Bottom: 0, Right: 500, Top: 500}}
	m := &macro.Macro{
		Name: "TIE",
		Pins: []*macro.Pin{
			{Name: "VDD", Ports: []*macro.Port{{Layer: "metal1", Rects: box}}},
			{Name: "GND", Ports: []*macro.Port{{Layer: "metal1", Rects: box}}},
		},
	}
	out := render(t, DefaultOptions(), direction.NewTable(), m)
	assert.Contains(t, out, "  PIN VDD\n    DIRECTION OUTPUT ;\n    USE POWER ;\n")
	assert.Contains(t, out, "  PIN GND\n    DIRECTION INPUT ;\n    USE GROUND ;\n")
	assert.Empty(t, m.Warnings)
}

func TestUnresolvedDirectionOmitsLine(t *testing.T) {
	m := pinMacro(geom.Box{Left: 0, Bottom: 0, Right: 500, Top: 500})
	out := render(t, DefaultOptions(), direction.NewTable(), m)
	assert.Contains(t, out, "  PIN A\n    USE SIGNAL ;\n")
	require.Len(t, m.Warnings, 1)
	assert.Equal(t, macro.UnresolvedDirection, m.Warnings[0].Kind)
}

func TestCustomOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Site = "unithd"
	opts.Class = "BLOCK"
	opts.UnitsPerMicron = 2000
	out := render(t, opts, nil, &macro.Macro{Name: "X", Width: 3000, Height: 1000})
	assert.Contains(t, out, "  CLASS BLOCK ;\n")
	assert.Contains(t, out, "  SITE unithd ;\n")
	assert.Contains(t, out, "  SIZE 1.50 BY 0.50 ;\n")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteErrorIsSticky(t *testing.T) {
	w := NewWriter(failingWriter{}, DefaultOptions(), quietLogger())
	require.NoError(t, w.WriteHeader(), "buffered")
	err := w.Close()
	require.Error(t, err)
	assert.Equal(t, err, w.WriteMacro(&macro.Macro{Name: "X"}, nil))
}

func TestUse(t *testing.T) {
	assert.Equal(t, "POWER", Use("VDD"))
	assert.Equal(t, "GROUND", Use("GND"))
	assert.Equal(t, "SIGNAL", Use("A"))
}
