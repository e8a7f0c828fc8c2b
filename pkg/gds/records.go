// Package gds reads and writes GDSII stream files.
//
// Only the parts of the format the LEF extractor needs are modeled: cells
// with boundaries, boxes, paths, texts and references. Properties,
// transformations and array parameters are read and dropped.
package gds

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ErrFormat is returned for streams that violate the GDSII record layout.
var ErrFormat = errors.New("gds: malformed stream")

// Record types.
const (
	recHeader       = 0x00
	recBgnLib       = 0x01
	recLibName      = 0x02
	recUnits        = 0x03
	recEndLib       = 0x04
	recBgnStr       = 0x05
	recStrName      = 0x06
	recEndStr       = 0x07
	recBoundary     = 0x08
	recPath         = 0x09
	recSRef         = 0x0A
	recARef         = 0x0B
	recText         = 0x0C
	recLayer        = 0x0D
	recDatatype     = 0x0E
	recWidth        = 0x0F
	recXY           = 0x10
	recEndEl        = 0x11
	recSName        = 0x12
	recColRow       = 0x13
	recNode         = 0x15
	recTextType     = 0x16
	recPresentation = 0x17
	recString       = 0x19
	recStrans       = 0x1A
	recMag          = 0x1B
	recAngle        = 0x1C
	recPathType     = 0x21
	recNodeType     = 0x2A
	recPropAttr     = 0x2B
	recPropValue    = 0x2C
	recBox          = 0x2D
	recBoxType      = 0x2E
	recBgnExtn      = 0x30
	recEndExtn      = 0x31
)

// Record data types.
const (
	dtNone     = 0x00
	dtBitArray = 0x01
	dtInt16    = 0x02
	dtInt32    = 0x03
	dtReal4    = 0x04
	dtReal8    = 0x05
	dtASCII    = 0x06
)

// record is one length-prefixed GDSII record.
type record struct {
	Type     byte
	DataType byte
	Data     []byte
	Offset   int64
}

func (r record) int16s() []int16 {
	out := make([]int16, len(r.Data)/2)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(r.Data[2*i:]))
	}
	return out
}

func (r record) int32s() []int32 {
	out := make([]int32, len(r.Data)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(r.Data[4*i:]))
	}
	return out
}

func (r record) real8s() []float64 {
	out := make([]float64, len(r.Data)/8)
	for i := range out {
		out[i] = decodeReal8(r.Data[8*i:])
	}
	return out
}

func (r record) str() string {
	return strings.TrimRight(string(r.Data), "\x00")
}

// int returns the first integer value of an INT16 or INT32 record.
func (r record) int() (int64, error) {
	switch {
	case r.DataType == dtInt16 && len(r.Data) >= 2:
		return int64(r.int16s()[0]), nil
	case r.DataType == dtInt32 && len(r.Data) >= 4:
		return int64(r.int32s()[0]), nil
	}
	return 0, fmt.Errorf("%w: record 0x%02X at offset %d has no integer payload", ErrFormat, r.Type, r.Offset)
}

// uint returns the first value of an INT16 record read as unsigned. Layer and
// datatype numbers use the full 0..65535 range.
func (r record) uint() (int, error) {
	if r.DataType == dtInt16 && len(r.Data) >= 2 {
		return int(binary.BigEndian.Uint16(r.Data)), nil
	}
	return 0, fmt.Errorf("%w: record 0x%02X at offset %d has no INT16 payload", ErrFormat, r.Type, r.Offset)
}

// recordReader splits a stream into records.
type recordReader struct {
	r      *bufio.Reader
	offset int64
}

func newRecordReader(r io.Reader) *recordReader {
	return &recordReader{r: bufio.NewReader(r)}
}

// next returns the next record, or io.EOF at a clean end of input.
func (rr *recordReader) next() (record, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(rr.r, hdr[:]); err != nil {
		if err == io.EOF {
			return record{}, io.EOF
		}
		return record{}, fmt.Errorf("%w: truncated record header at offset %d", ErrFormat, rr.offset)
	}

	length := int(binary.BigEndian.Uint16(hdr[:2]))
	if length == 0 {
		// Zero padding after ENDLIB.
		return record{}, io.EOF
	}
	if length < 4 || length%2 != 0 {
		return record{}, fmt.Errorf("%w: bad record length %d at offset %d", ErrFormat, length, rr.offset)
	}

	rec := record{Type: hdr[2], DataType: hdr[3], Data: make([]byte, length-4), Offset: rr.offset}
	if _, err := io.ReadFull(rr.r, rec.Data); err != nil {
		return record{}, fmt.Errorf("%w: truncated record 0x%02X at offset %d", ErrFormat, rec.Type, rr.offset)
	}
	rr.offset += int64(length)
	return rec, nil
}

// decodeReal8 converts a GDSII excess-64 base-16 real.
func decodeReal8(b []byte) float64 {
	bits := binary.BigEndian.Uint64(b)
	exp := int((bits>>56)&0x7F) - 64
	mant := float64(bits&0x00FFFFFFFFFFFFFF) / (1 << 56)
	v := mant * math.Pow(16, float64(exp))
	if bits>>63 == 1 {
		v = -v
	}
	return v
}

// encodeReal8 is the inverse of decodeReal8.
func encodeReal8(v float64) [8]byte {
	var out [8]byte
	if v == 0 {
		return out
	}
	var sign uint64
	if v < 0 {
		sign = 1 << 63
		v = -v
	}
	exp := 64
	for v >= 1 {
		v /= 16
		exp++
	}
	for v < 1.0/16 {
		v *= 16
		exp--
	}
	mant := uint64(math.Round(v * (1 << 56)))
	if mant >= 1<<56 {
		mant >>= 4
		exp++
	}
	binary.BigEndian.PutUint64(out[:], sign|uint64(exp&0x7F)<<56|mant)
	return out
}
