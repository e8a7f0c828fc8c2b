// Package preview renders extracted macros for visual inspection, as a PDF
// with one page per macro or as a DXF drawing with all macros side by side.
package preview

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/OpenTraceLab/gds2lef/pkg/geom"
	"github.com/OpenTraceLab/gds2lef/pkg/macro"
)

// layerColor is an RGB fill for one metal layer.
type layerColor struct {
	R, G, B int
}

var layerColors = []layerColor{
	{R: 33, G: 150, B: 243}, // blue
	{R: 244, G: 67, B: 54},  // red
	{R: 76, G: 175, B: 80},  // green
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 121, G: 85, B: 72},  // brown
	{R: 255, G: 235, B: 59}, // yellow
}

// Page layout constants (A4 portrait in mm).
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 10.0
	legendHeight = 30.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// palette assigns colors to layers in order of first use across all macros.
type palette map[string]layerColor

func (p palette) color(layer string) layerColor {
	if c, ok := p[layer]; ok {
		return c
	}
	c := layerColors[len(p)%len(layerColors)]
	p[layer] = c
	return c
}

// extent is the area a macro occupies: its declared size, grown to cover
// any geometry outside it.
func extent(m *macro.Macro) geom.Box {
	b := geom.Box{Right: m.Width, Top: m.Height}
	for _, o := range m.Obstructions {
		b = b.Union(o.Rect)
	}
	for _, pin := range m.Pins {
		for _, port := range pin.Ports {
			for _, r := range port.Rects {
				b = b.Union(r)
			}
		}
	}
	return b
}

// WritePDF renders every macro on its own page: the cell outline,
// obstructions as outlines and pin rectangles filled per layer.
func WritePDF(path string, macros []*macro.Macro, unitsPerMicron float64) error {
	if len(macros) == 0 {
		return fmt.Errorf("no macros to render")
	}
	if unitsPerMicron <= 0 {
		unitsPerMicron = 1000
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	colors := palette{}

	for _, m := range macros {
		pdf.AddPage()
		renderMacroPage(pdf, m, colors, unitsPerMicron)
	}
	return pdf.OutputFileAndClose(path)
}

func renderMacroPage(pdf *fpdf.Fpdf, m *macro.Macro, colors palette, upm float64) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("%s (%.2f x %.2f um)", m.Name, float64(m.Width)/upm, float64(m.Height)/upm)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Pins: %d | Obstruction layers: %d | Warnings: %d", len(m.Pins), len(m.Obstructions), len(m.Warnings))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	ext := extent(m)
	if ext.Empty() {
		return
	}

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight
	scale := math.Min(drawWidth/float64(ext.Width()), drawHeight/float64(ext.Height()))
	canvasW := float64(ext.Width()) * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// toPage maps a layout box to a page rectangle; the layout y axis points up.
	toPage := func(b geom.Box) (x, y, w, h float64) {
		x = offsetX + float64(b.Left-ext.Left)*scale
		y = offsetY + float64(ext.Top-b.Top)*scale
		return x, y, float64(b.Width()) * scale, float64(b.Height()) * scale
	}

	// Cell outline
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	x, y, w, h := toPage(geom.Box{Right: m.Width, Top: m.Height})
	pdf.Rect(x, y, w, h, "D")

	// Obstructions, dashed
	pdf.SetLineWidth(0.3)
	pdf.SetDashPattern([]float64{1.5, 1}, 0)
	for _, o := range m.Obstructions {
		c := colors.color(o.Layer)
		pdf.SetDrawColor(c.R, c.G, c.B)
		x, y, w, h := toPage(o.Rect)
		pdf.Rect(x, y, w, h, "D")
	}
	pdf.SetDashPattern([]float64{}, 0)

	// Pins
	pdf.SetAlpha(0.6, "Normal")
	for _, pin := range m.Pins {
		for _, port := range pin.Ports {
			c := colors.color(port.Layer)
			pdf.SetFillColor(c.R, c.G, c.B)
			pdf.SetDrawColor(30, 30, 30)
			pdf.SetLineWidth(0.2)
			for _, r := range port.Rects {
				x, y, w, h := toPage(r)
				pdf.Rect(x, y, w, h, "FD")
			}
		}
	}
	pdf.SetAlpha(1, "Normal")

	// Pin names at the center of each pin's first rectangle
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	for _, pin := range m.Pins {
		if len(pin.Ports) == 0 || len(pin.Ports[0].Rects) == 0 {
			continue
		}
		x, y, w, h := toPage(pin.Ports[0].Rects[0])
		tw := pdf.GetStringWidth(pin.Name)
		pdf.Text(x+(w-tw)/2, y+h/2+1, pin.Name)
	}

	drawLegend(pdf, m, colors, offsetY+float64(ext.Height())*scale+5)
}

// drawLegend lists the layers used on the page with their colors.
func drawLegend(pdf *fpdf.Fpdf, m *macro.Macro, colors palette, top float64) {
	seen := map[string]bool{}
	var layers []string
	for _, o := range m.Obstructions {
		if !seen[o.Layer] {
			seen[o.Layer] = true
			layers = append(layers, o.Layer)
		}
	}

	pdf.SetFont("Helvetica", "", 8)
	x := marginLeft
	for _, l := range layers {
		c := colors.color(l)
		pdf.SetFillColor(c.R, c.G, c.B)
		pdf.Rect(x, top, 4, 4, "F")
		pdf.SetXY(x+5, top)
		pdf.CellFormat(25, 4, l, "", 0, "L", false, 0, "")
		x += 32
		if x > pageWidth-marginRight-30 {
			x = marginLeft
			top += 6
		}
	}
}
