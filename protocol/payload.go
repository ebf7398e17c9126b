// File: protocol/payload.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Array payload codec. A payload is the raw row-major memory of a numeric
// slice plus its element tag and shape; no byte swapping or conversion is done.

package protocol

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/x448/float16"
)

// Element type tags. They name numeric kind and width and are stable on the wire.
const (
	DTypeFloat64 = "float64"
	DTypeFloat32 = "float32"
	DTypeFloat16 = "float16"
	DTypeInt8    = "int8"
	DTypeInt16   = "int16"
	DTypeInt32   = "int32"
	DTypeInt64   = "int64"
	DTypeUint8   = "uint8"
	DTypeUint16  = "uint16"
	DTypeUint32  = "uint32"
	DTypeUint64  = "uint64"
)

var elementSizes = map[string]int{
	DTypeFloat64: 8, DTypeFloat32: 4, DTypeFloat16: 2,
	DTypeInt8: 1, DTypeInt16: 2, DTypeInt32: 4, DTypeInt64: 8,
	DTypeUint8: 1, DTypeUint16: 2, DTypeUint32: 4, DTypeUint64: 8,
}

// ErrShapeMismatch is returned when a shape does not describe the element count.
var ErrShapeMismatch = fmt.Errorf("shape does not match element count")

// ElementSize returns the width in bytes of dtype, or 0 if the tag is unknown.
func ElementSize(dtype string) int {
	return elementSizes[dtype]
}

// Array is a flat numeric slice with a row-major shape.
// Data must be one of []float64, []float32, []float16.Float16,
// []int8..[]int64 or []uint8..[]uint64. A nil Shape means (len(Data),).
type Array struct {
	Data  any
	Shape []int
}

// Vector wraps a 1-D slice.
func Vector(data any) Array {
	return Array{Data: data}
}

// Matrix wraps a rows x cols slice stored row-major.
func Matrix(data any, rows, cols int) Array {
	return Array{Data: data, Shape: []int{rows, cols}}
}

// Stack wraps a sequence of frames x rows x cols images stored row-major.
func Stack(data any, frames, rows, cols int) Array {
	return Array{Data: data, Shape: []int{frames, rows, cols}}
}

// XY packs two equal-length coordinate slices into a (2, n) array.
func XY(xs, ys []float64) (Array, error) {
	if len(xs) != len(ys) {
		return Array{}, fmt.Errorf("%w: xs has %d points, ys has %d", ErrShapeMismatch, len(xs), len(ys))
	}
	data := make([]float64, 0, 2*len(xs))
	data = append(data, xs...)
	data = append(data, ys...)
	return Matrix(data, 2, len(xs)), nil
}

// Payload is the wire view of an Array. Bytes aliases the array memory.
type Payload struct {
	DType string
	Shape []int
	Bytes []byte
}

// Len is the byte length recorded as arrsize in the header.
func (p Payload) Len() int {
	return len(p.Bytes)
}

// EncodeArray produces the element tag, shape and byte view of a.
func EncodeArray(a Array) (Payload, error) {
	var (
		dtype string
		raw   []byte
		n     int
	)
	switch d := a.Data.(type) {
	case []float64:
		dtype, raw, n = DTypeFloat64, view(d), len(d)
	case []float32:
		dtype, raw, n = DTypeFloat32, view(d), len(d)
	case []float16.Float16:
		dtype, raw, n = DTypeFloat16, view(d), len(d)
	case []int8:
		dtype, raw, n = DTypeInt8, view(d), len(d)
	case []int16:
		dtype, raw, n = DTypeInt16, view(d), len(d)
	case []int32:
		dtype, raw, n = DTypeInt32, view(d), len(d)
	case []int64:
		dtype, raw, n = DTypeInt64, view(d), len(d)
	case []uint8:
		dtype, raw, n = DTypeUint8, d, len(d)
	case []uint16:
		dtype, raw, n = DTypeUint16, view(d), len(d)
	case []uint32:
		dtype, raw, n = DTypeUint32, view(d), len(d)
	case []uint64:
		dtype, raw, n = DTypeUint64, view(d), len(d)
	default:
		return Payload{}, &api.UnsupportedElementTypeError{Type: fmt.Sprintf("%T", a.Data)}
	}
	shape := a.Shape
	if shape == nil {
		shape = []int{n}
	}
	if err := checkShape(shape); err != nil {
		return Payload{}, err
	}
	if count(shape) != n {
		return Payload{}, fmt.Errorf("%w: shape %v for %d elements", ErrShapeMismatch, shape, n)
	}
	return Payload{DType: dtype, Shape: append([]int(nil), shape...), Bytes: raw}, nil
}

// DecodeArray rebuilds an Array from a payload read out of the segment.
// raw is copied; the result does not alias it.
func DecodeArray(dtype string, shape []int, raw []byte) (Array, error) {
	size := ElementSize(dtype)
	if size == 0 {
		return Array{}, &api.UnsupportedElementTypeError{Type: dtype}
	}
	if err := checkShape(shape); err != nil {
		return Array{}, err
	}
	n := count(shape)
	if n > len(raw)/size || n*size != len(raw) {
		return Array{}, fmt.Errorf("%w: shape %v of %s needs %d bytes, got %d", ErrShapeMismatch, shape, dtype, n*size, len(raw))
	}
	var data any
	switch dtype {
	case DTypeFloat64:
		data = fromBytes[float64](raw, n)
	case DTypeFloat32:
		data = fromBytes[float32](raw, n)
	case DTypeFloat16:
		data = fromBytes[float16.Float16](raw, n)
	case DTypeInt8:
		data = fromBytes[int8](raw, n)
	case DTypeInt16:
		data = fromBytes[int16](raw, n)
	case DTypeInt32:
		data = fromBytes[int32](raw, n)
	case DTypeInt64:
		data = fromBytes[int64](raw, n)
	case DTypeUint8:
		data = fromBytes[uint8](raw, n)
	case DTypeUint16:
		data = fromBytes[uint16](raw, n)
	case DTypeUint32:
		data = fromBytes[uint32](raw, n)
	case DTypeUint64:
		data = fromBytes[uint64](raw, n)
	}
	return Array{Data: data, Shape: append([]int(nil), shape...)}, nil
}

// checkShape rejects negative dimensions and element counts that overflow int.
func checkShape(shape []int) error {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in shape %v", ErrShapeMismatch, shape)
		}
		if d > 0 && n > math.MaxInt/d {
			return fmt.Errorf("%w: shape %v overflows", ErrShapeMismatch, shape)
		}
		n *= d
	}
	return nil
}

func count(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// view reinterprets the backing array of s as bytes without copying.
func view[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

func fromBytes[T any](raw []byte, n int) []T {
	out := make([]T, n)
	copy(view(out), raw)
	return out
}
