package gds

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/gds2lef/pkg/geom"
)

// element accumulates the records between an element header and ENDEL.
type element struct {
	kind      byte
	layer     Layer
	pathType  int
	width     int64
	beginExtn int64
	endExtn   int64
	points    []geom.Point
	text      string
	sname     string
}

// ParseFile reads a GDS file from disk.
func ParseFile(filename string) (*Library, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a GDS stream up to ENDLIB.
func Parse(r io.Reader) (*Library, error) {
	rr := newRecordReader(r)
	lib := &Library{}

	var cell *Cell
	var el *element

	inElement := func(rec record) error {
		if el == nil {
			return fmt.Errorf("%w: record 0x%02X outside an element at offset %d", ErrFormat, rec.Type, rec.Offset)
		}
		return nil
	}

	for {
		rec, err := rr.next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing ENDLIB", ErrFormat)
		}
		if err != nil {
			return nil, err
		}

		switch rec.Type {
		case recHeader, recBgnLib:
			// Version and timestamps are not needed.

		case recLibName:
			lib.Name = rec.str()

		case recUnits:
			units := rec.real8s()
			if rec.DataType != dtReal8 || len(units) != 2 {
				return nil, fmt.Errorf("%w: UNITS record needs two 8-byte reals", ErrFormat)
			}
			lib.UserUnit, lib.MetersPerUnit = units[0], units[1]

		case recEndLib:
			if cell != nil {
				return nil, fmt.Errorf("%w: ENDLIB inside structure %q", ErrFormat, cell.Name)
			}
			return lib, nil

		case recBgnStr:
			if cell != nil {
				return nil, fmt.Errorf("%w: nested structure at offset %d", ErrFormat, rec.Offset)
			}
			cell = &Cell{}

		case recStrName:
			if cell == nil {
				return nil, fmt.Errorf("%w: STRNAME outside a structure", ErrFormat)
			}
			cell.Name = rec.str()

		case recEndStr:
			if cell == nil || el != nil {
				return nil, fmt.Errorf("%w: unbalanced ENDSTR at offset %d", ErrFormat, rec.Offset)
			}
			lib.Cells = append(lib.Cells, cell)
			cell = nil

		case recBoundary, recPath, recSRef, recARef, recText, recNode, recBox:
			if cell == nil || el != nil {
				return nil, fmt.Errorf("%w: element 0x%02X out of place at offset %d", ErrFormat, rec.Type, rec.Offset)
			}
			el = &element{kind: rec.Type}

		case recLayer:
			if err := inElement(rec); err != nil {
				return nil, err
			}
			v, err := rec.uint()
			if err != nil {
				return nil, err
			}
			el.layer.Number = v

		case recDatatype, recTextType, recBoxType, recNodeType:
			if err := inElement(rec); err != nil {
				return nil, err
			}
			v, err := rec.uint()
			if err != nil {
				return nil, err
			}
			el.layer.Datatype = v

		case recWidth, recPathType, recBgnExtn, recEndExtn:
			if err := inElement(rec); err != nil {
				return nil, err
			}
			v, err := rec.int()
			if err != nil {
				return nil, err
			}
			switch rec.Type {
			case recWidth:
				el.width = v
			case recPathType:
				el.pathType = int(v)
			case recBgnExtn:
				el.beginExtn = v
			case recEndExtn:
				el.endExtn = v
			}

		case recXY:
			if err := inElement(rec); err != nil {
				return nil, err
			}
			coords := rec.int32s()
			if rec.DataType != dtInt32 || len(coords)%2 != 0 {
				return nil, fmt.Errorf("%w: XY record at offset %d", ErrFormat, rec.Offset)
			}
			el.points = make([]geom.Point, 0, len(coords)/2)
			for i := 0; i < len(coords); i += 2 {
				el.points = append(el.points, geom.Point{X: int64(coords[i]), Y: int64(coords[i+1])})
			}

		case recString:
			if err := inElement(rec); err != nil {
				return nil, err
			}
			el.text = rec.str()

		case recSName:
			if err := inElement(rec); err != nil {
				return nil, err
			}
			el.sname = rec.str()

		case recEndEl:
			if err := inElement(rec); err != nil {
				return nil, err
			}
			if err := addElement(lib, cell, el); err != nil {
				return nil, err
			}
			el = nil

		default:
			// COLROW, STRANS, MAG, ANGLE, PRESENTATION, properties and
			// anything newer carry nothing the extractor uses.
		}
	}
}

func addElement(lib *Library, cell *Cell, el *element) error {
	switch el.kind {
	case recBoundary, recBox:
		if len(el.points) < 4 {
			return fmt.Errorf("%w: polygon with %d points in %q", ErrFormat, len(el.points), cell.Name)
		}
		cell.Boundaries = append(cell.Boundaries, Boundary{Layer: el.layer, Points: el.points})
		lib.noteLayer(el.layer)

	case recPath:
		cell.Paths = append(cell.Paths, Path{
			Layer:     el.layer,
			PathType:  el.pathType,
			Width:     el.width,
			BeginExtn: el.beginExtn,
			EndExtn:   el.endExtn,
			Points:    el.points,
		})
		lib.noteLayer(el.layer)

	case recText:
		if len(el.points) == 0 {
			return fmt.Errorf("%w: text %q without anchor in %q", ErrFormat, el.text, cell.Name)
		}
		cell.Texts = append(cell.Texts, Text{Layer: el.layer, Anchor: el.points[0], String: el.text})
		lib.noteLayer(el.layer)

	case recSRef, recARef:
		ref := Reference{Name: el.sname}
		if len(el.points) > 0 {
			ref.Origin = el.points[0]
		}
		cell.Refs = append(cell.Refs, ref)
	}
	return nil
}
