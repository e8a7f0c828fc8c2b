package gds

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/gds2lef/pkg/geom"
)

// Writer emits a GDSII stream. Timestamps are written as zero so output is
// reproducible.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteFile writes lib to a new file at path.
func WriteFile(path string, lib *Library) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := NewWriter(f).WriteLibrary(lib); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteLibrary writes the complete library and flushes.
func (w *Writer) WriteLibrary(lib *Library) error {
	w.int16s(recHeader, 600)
	w.int16s(recBgnLib, make([]int16, 12)...)
	w.ascii(recLibName, lib.Name)

	user, meters := lib.UserUnit, lib.MetersPerUnit
	if meters <= 0 {
		user, meters = 1e-3, 1e-9
	}
	w.reals(recUnits, user, meters)

	for _, c := range lib.Cells {
		w.cell(c)
	}
	w.empty(recEndLib)

	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *Writer) cell(c *Cell) {
	w.int16s(recBgnStr, make([]int16, 12)...)
	w.ascii(recStrName, c.Name)

	for _, b := range c.Boundaries {
		w.empty(recBoundary)
		w.int16s(recLayer, int16(b.Layer.Number))
		w.int16s(recDatatype, int16(b.Layer.Datatype))
		pts := b.Points
		if len(pts) > 0 && pts[0] != pts[len(pts)-1] {
			pts = append(append([]geom.Point(nil), pts...), pts[0])
		}
		w.xy(pts)
		w.empty(recEndEl)
	}

	for _, p := range c.Paths {
		w.empty(recPath)
		w.int16s(recLayer, int16(p.Layer.Number))
		w.int16s(recDatatype, int16(p.Layer.Datatype))
		w.int16s(recPathType, int16(p.PathType))
		w.int32s(recWidth, int32(p.Width))
		if p.PathType == 4 {
			w.int32s(recBgnExtn, int32(p.BeginExtn))
			w.int32s(recEndExtn, int32(p.EndExtn))
		}
		w.xy(p.Points)
		w.empty(recEndEl)
	}

	for _, t := range c.Texts {
		w.empty(recText)
		w.int16s(recLayer, int16(t.Layer.Number))
		w.int16s(recTextType, int16(t.Layer.Datatype))
		w.xy([]geom.Point{t.Anchor})
		w.ascii(recString, t.String)
		w.empty(recEndEl)
	}

	for _, r := range c.Refs {
		w.empty(recSRef)
		w.ascii(recSName, r.Name)
		w.xy([]geom.Point{r.Origin})
		w.empty(recEndEl)
	}

	w.empty(recEndStr)
}

func (w *Writer) header(typ, dt byte, n int) {
	if w.err != nil {
		return
	}
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[:2], uint16(n+4))
	hdr[2], hdr[3] = typ, dt
	_, w.err = w.w.Write(hdr[:])
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *Writer) empty(typ byte) {
	w.header(typ, dtNone, 0)
}

func (w *Writer) int16s(typ byte, vals ...int16) {
	w.header(typ, dtInt16, 2*len(vals))
	var buf [2]byte
	for _, v := range vals {
		binary.BigEndian.PutUint16(buf[:], uint16(v))
		w.write(buf[:])
	}
}

func (w *Writer) int32s(typ byte, vals ...int32) {
	w.header(typ, dtInt32, 4*len(vals))
	var buf [4]byte
	for _, v := range vals {
		binary.BigEndian.PutUint32(buf[:], uint32(v))
		w.write(buf[:])
	}
}

func (w *Writer) reals(typ byte, vals ...float64) {
	w.header(typ, dtReal8, 8*len(vals))
	for _, v := range vals {
		b := encodeReal8(v)
		w.write(b[:])
	}
}

func (w *Writer) ascii(typ byte, s string) {
	b := []byte(s)
	if len(b)%2 != 0 {
		b = append(b, 0)
	}
	w.header(typ, dtASCII, len(b))
	w.write(b)
}

func (w *Writer) xy(pts []geom.Point) {
	vals := make([]int32, 0, 2*len(pts))
	for _, p := range pts {
		vals = append(vals, int32(p.X), int32(p.Y))
	}
	w.int32s(recXY, vals...)
}
