package preview

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/OpenTraceLab/gds2lef/pkg/geom"
	"github.com/OpenTraceLab/gds2lef/pkg/macro"
)

// Layer names used in DXF output besides the per-metal PIN_ and OBS_
// layers.
const (
	OutlineLayer = "OUTLINE"
	LabelLayer   = "LABELS"
)

// macroGap is the horizontal spacing between macros in microns.
const macroGap = 2.0

var dxfColors = []color.ColorNumber{color.Blue, color.Red, color.Green, color.Yellow, color.Magenta, color.Cyan}

type dxfWriter struct {
	d      *drawing.Drawing
	layers map[string]bool
	metals map[string]color.ColorNumber
	upm    float64
}

// WriteDXF draws all macros in one DXF file, left to right, in microns.
// Outlines, pin rectangles (PIN_<layer>), obstructions (OBS_<layer>) and pin
// names each get their own DXF layer.
func WriteDXF(path string, macros []*macro.Macro, unitsPerMicron float64) error {
	if len(macros) == 0 {
		return fmt.Errorf("no macros to render")
	}
	if unitsPerMicron <= 0 {
		unitsPerMicron = 1000
	}

	w := &dxfWriter{
		d:      dxf.NewDrawing(),
		layers: map[string]bool{},
		metals: map[string]color.ColorNumber{},
		upm:    unitsPerMicron,
	}
	var x float64
	for _, m := range macros {
		if err := w.macro(m, x); err != nil {
			return fmt.Errorf("macro %s: %w", m.Name, err)
		}
		x += float64(extent(m).Right)/w.upm + macroGap
	}
	return w.d.SaveAs(path)
}

func (w *dxfWriter) use(layer string, c color.ColorNumber) error {
	if w.layers[layer] {
		return w.d.ChangeLayer(layer)
	}
	if _, err := w.d.AddLayer(layer, c, dxf.DefaultLineType, true); err != nil {
		return err
	}
	w.layers[layer] = true
	return nil
}

// color gives each metal layer a color in order of first use.
func (w *dxfWriter) color(metal string) color.ColorNumber {
	c, ok := w.metals[metal]
	if !ok {
		c = dxfColors[len(w.metals)%len(dxfColors)]
		w.metals[metal] = c
	}
	return c
}

func (w *dxfWriter) rect(b geom.Box, dx float64) error {
	l, r := float64(b.Left)/w.upm+dx, float64(b.Right)/w.upm+dx
	bo, t := float64(b.Bottom)/w.upm, float64(b.Top)/w.upm
	_, err := w.d.LwPolyline(true, []float64{l, bo}, []float64{r, bo}, []float64{r, t}, []float64{l, t})
	return err
}

func (w *dxfWriter) macro(m *macro.Macro, dx float64) error {
	if err := w.use(OutlineLayer, color.White); err != nil {
		return err
	}
	if err := w.rect(geom.Box{Right: m.Width, Top: m.Height}, dx); err != nil {
		return err
	}

	for _, o := range m.Obstructions {
		if err := w.use("OBS_"+o.Layer, w.color(o.Layer)); err != nil {
			return err
		}
		if err := w.rect(o.Rect, dx); err != nil {
			return err
		}
	}

	for _, pin := range m.Pins {
		for _, port := range pin.Ports {
			if err := w.use("PIN_"+port.Layer, w.color(port.Layer)); err != nil {
				return err
			}
			for _, r := range port.Rects {
				if err := w.rect(r, dx); err != nil {
					return err
				}
			}
		}
	}

	if err := w.use(LabelLayer, color.White); err != nil {
		return err
	}
	if _, err := w.d.Text(m.Name, dx, -1, 0, 0.5); err != nil {
		return err
	}
	for _, pin := range m.Pins {
		if len(pin.Ports) == 0 || len(pin.Ports[0].Rects) == 0 {
			continue
		}
		r := pin.Ports[0].Rects[0]
		cx := float64(r.Left+r.Right)/2/w.upm + dx
		cy := float64(r.Bottom+r.Top)/2/w.upm
		if _, err := w.d.Text(pin.Name, cx, cy, 0, 0.2); err != nil {
			return err
		}
	}
	return nil
}
