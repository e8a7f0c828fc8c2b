// Package lef writes extracted macros as a LEF library.
//
// A Writer emits the header, one MACRO block per call to WriteMacro, and the
// closing END LIBRARY line on Close. Coordinates are converted from database
// units to microns; port rectangles smaller than the minimum feature are
// dropped, obstructions never are.
package lef

import (
	"bufio"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/OpenTraceLab/gds2lef/pkg/direction"
	"github.com/OpenTraceLab/gds2lef/pkg/geom"
	"github.com/OpenTraceLab/gds2lef/pkg/macro"
)

// Options control the fixed parts of the output.
type Options struct {
	Version     string
	BusBitChars string
	Divider     string
	Class       string
	Site        string
	Symmetry    string
	// MinFeature drops port rectangles narrower or lower than this many
	// database units.
	MinFeature int64
	// UnitsPerMicron converts database units to microns.
	UnitsPerMicron float64
}

// DefaultOptions returns the options for a 1000 units per micron layout.
func DefaultOptions() Options {
	return Options{
		Version:        "5.6",
		BusBitChars:    "[]",
		Divider:        "/",
		Class:          "CORE",
		Site:           "CoreSite",
		Symmetry:       "X Y R90",
		MinFeature:     50,
		UnitsPerMicron: 1000,
	}
}

// Writer serializes macros. Errors are sticky: after the first failed write
// every method returns that error.
type Writer struct {
	w      *bufio.Writer
	opts   Options
	logger *log.Logger
	err    error
}

// NewWriter creates a writer. A nil logger uses log.Default().
func NewWriter(w io.Writer, opts Options, logger *log.Logger) *Writer {
	if opts.UnitsPerMicron <= 0 {
		opts.UnitsPerMicron = 1000
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{w: bufio.NewWriter(w), opts: opts, logger: logger}
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

// WriteHeader writes the VERSION, BUSBITCHARS and DIVIDERCHAR lines.
func (w *Writer) WriteHeader() error {
	w.printf("VERSION %s ;\n", w.opts.Version)
	w.printf("BUSBITCHARS \"%s\" ;\n", w.opts.BusBitChars)
	w.printf("DIVIDERCHAR \"%s\" ;\n", w.opts.Divider)
	return w.err
}

// WriteMacro writes one MACRO block. Pins whose direction cannot be resolved
// get no DIRECTION line and an UnresolvedDirection warning on m.
func (w *Writer) WriteMacro(m *macro.Macro, dirs *direction.Table) error {
	w.printf("\nMACRO %s\n", m.Name)
	w.printf("  CLASS %s ;\n", w.opts.Class)
	w.printf("  ORIGIN 0 0 ;\n")
	w.printf("  SIZE %.2f BY %.2f ;\n", w.microns(m.Width), w.microns(m.Height))
	w.printf("  SYMMETRY %s ;\n", w.opts.Symmetry)
	w.printf("  SITE %s ;\n", w.opts.Site)

	for _, pin := range m.Pins {
		w.writePin(m, pin, dirs)
	}

	w.printf("  OBS\n")
	for _, obs := range m.Obstructions {
		w.printf("    LAYER %s ;\n", obs.Layer)
		w.printf("        RECT %s ;\n", w.rect(obs.Rect))
	}
	w.printf("  END\n")
	w.printf("END %s\n", m.Name)
	return w.err
}

func (w *Writer) writePin(m *macro.Macro, pin *macro.Pin, dirs *direction.Table) {
	type port struct {
		layer string
		rects []geom.Box
	}
	var ports []port
	for _, p := range pin.Ports {
		kept := w.filter(p.Rects)
		if len(kept) == 0 {
			w.logger.Debug("port has no rectangle above the minimum feature", "cell", m.Name, "pin", pin.Name, "layer", p.Layer)
			continue
		}
		ports = append(ports, port{layer: p.Layer, rects: kept})
	}
	if len(ports) == 0 {
		w.logger.Warn("pin dropped, every rectangle is below the minimum feature", "cell", m.Name, "pin", pin.Name)
		return
	}

	w.printf("\n  PIN %s\n", pin.Name)
	if dir, ok := dirs.Resolve(m.Name, pin.Name); ok {
		w.printf("    DIRECTION %s ;\n", dir)
	} else {
		w.logger.Warn("no direction for pin", "cell", m.Name, "pin", pin.Name)
		m.Warnings = append(m.Warnings, macro.Warning{
			Kind:    macro.UnresolvedDirection,
			Cell:    m.Name,
			Message: fmt.Sprintf("pin %q has no direction", pin.Name),
		})
	}
	w.printf("    USE %s ;\n", Use(pin.Name))

	for _, p := range ports {
		w.printf("    PORT\n")
		w.printf("      LAYER %s ;\n", p.layer)
		for _, r := range p.rects {
			w.printf("        RECT %s ;\n", w.rect(r))
		}
		w.printf("    END\n")
	}
	w.printf("  END %s\n", pin.Name)
}

// Close writes END LIBRARY and flushes. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	w.printf("\nEND LIBRARY\n")
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

// Use returns the LEF USE class for a pin name.
func Use(pin string) string {
	switch pin {
	case direction.PowerPin:
		return "POWER"
	case direction.GroundPin:
		return "GROUND"
	default:
		return "SIGNAL"
	}
}

func (w *Writer) filter(rects []geom.Box) []geom.Box {
	var out []geom.Box
	for _, r := range rects {
		if r.Width() < w.opts.MinFeature || r.Height() < w.opts.MinFeature {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (w *Writer) microns(v int64) float64 {
	return float64(v) / w.opts.UnitsPerMicron
}

func (w *Writer) rect(b geom.Box) string {
	return fmt.Sprintf("%.4f %.4f %.4f %.4f",
		w.microns(b.Left), w.microns(b.Bottom), w.microns(b.Right), w.microns(b.Top))
}
