package protocol_test

import (
	"math"
	"testing"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestEncodeDecodeEveryElementType(t *testing.T) {
	cases := []struct {
		data  any
		dtype string
	}{
		{[]float64{1.5, -2, 3}, protocol.DTypeFloat64},
		{[]float32{1.5, -2, 3}, protocol.DTypeFloat32},
		{[]float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2), float16.Fromfloat32(3)}, protocol.DTypeFloat16},
		{[]int8{1, -2, 3}, protocol.DTypeInt8},
		{[]int16{1, -2, 3}, protocol.DTypeInt16},
		{[]int32{1, -2, 3}, protocol.DTypeInt32},
		{[]int64{1, -2, 3}, protocol.DTypeInt64},
		{[]uint8{1, 2, 3}, protocol.DTypeUint8},
		{[]uint16{1, 2, 3}, protocol.DTypeUint16},
		{[]uint32{1, 2, 3}, protocol.DTypeUint32},
		{[]uint64{1, 2, 3}, protocol.DTypeUint64},
	}
	for _, tc := range cases {
		t.Run(tc.dtype, func(t *testing.T) {
			p, err := protocol.EncodeArray(protocol.Vector(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.dtype, p.DType)
			assert.Equal(t, []int{3}, p.Shape)
			assert.Equal(t, 3*protocol.ElementSize(tc.dtype), p.Len())

			got, err := protocol.DecodeArray(p.DType, p.Shape, p.Bytes)
			require.NoError(t, err)
			assert.Equal(t, tc.data, got.Data)
			assert.Equal(t, []int{3}, got.Shape)
		})
	}
}

func TestFloat16Values(t *testing.T) {
	in := []float16.Float16{float16.Fromfloat32(0.5), float16.Fromfloat32(65504)}
	p, err := protocol.EncodeArray(protocol.Vector(in))
	require.NoError(t, err)
	assert.Equal(t, 4, p.Len())

	got, err := protocol.DecodeArray(p.DType, p.Shape, p.Bytes)
	require.NoError(t, err)
	out := got.Data.([]float16.Float16)
	assert.Equal(t, float32(0.5), out[0].Float32())
	assert.Equal(t, float32(65504), out[1].Float32())
}

func TestShapes(t *testing.T) {
	p, err := protocol.EncodeArray(protocol.Stack(make([]uint8, 24), 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, p.Shape)
	assert.Equal(t, 24, p.Len())

	_, err = protocol.EncodeArray(protocol.Matrix(make([]float64, 5), 2, 3))
	assert.ErrorIs(t, err, protocol.ErrShapeMismatch)

	xy, err := protocol.XY([]float64{1, 2}, []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, xy.Shape)
	assert.Equal(t, []float64{1, 2, 3, 4}, xy.Data)

	_, err = protocol.XY([]float64{1}, nil)
	assert.ErrorIs(t, err, protocol.ErrShapeMismatch)
}

func TestEncodeIsZeroCopy(t *testing.T) {
	data := []uint8{1, 2, 3}
	p, err := protocol.EncodeArray(protocol.Vector(data))
	require.NoError(t, err)
	data[0] = 9
	assert.Equal(t, byte(9), p.Bytes[0])
}

func TestDecodeCopies(t *testing.T) {
	raw := []byte{1, 0, 2, 0}
	arr, err := protocol.DecodeArray(protocol.DTypeUint16, []int{2}, raw)
	require.NoError(t, err)
	raw[0] = 7
	assert.Equal(t, []uint16{1, 2}, arr.Data)
}

func TestUnsupportedElementType(t *testing.T) {
	_, err := protocol.EncodeArray(protocol.Vector([]complex128{1}))
	assert.ErrorIs(t, err, api.ErrUnsupportedElementType)
	var unsupported *api.UnsupportedElementTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "[]complex128", unsupported.Type)

	_, err = protocol.DecodeArray("complex64", []int{1}, make([]byte, 8))
	assert.ErrorIs(t, err, api.ErrUnsupportedElementType)
}

func TestDecodeSizeMismatch(t *testing.T) {
	_, err := protocol.DecodeArray(protocol.DTypeFloat64, []int{2}, make([]byte, 15))
	assert.ErrorIs(t, err, protocol.ErrShapeMismatch)
}

func TestNegativeDimensionsRejected(t *testing.T) {
	_, err := protocol.EncodeArray(protocol.Array{Data: []float64{1, 2, 3, 4}, Shape: []int{-2, -2}})
	assert.ErrorIs(t, err, protocol.ErrShapeMismatch)

	_, err = protocol.DecodeArray(protocol.DTypeFloat64, []int{-1, -1}, make([]byte, 8))
	assert.ErrorIs(t, err, protocol.ErrShapeMismatch)

	_, err = protocol.DecodeArray(protocol.DTypeUint8, []int{math.MaxInt / 2, 4}, make([]byte, 8))
	assert.ErrorIs(t, err, protocol.ErrShapeMismatch)
}
