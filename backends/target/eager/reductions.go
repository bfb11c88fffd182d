// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eager

import (
	"math"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/target"
	"github.com/pkg/errors"
)

// finiteLimits returns the lowest and highest finite values of a dtype, as TensorFlow's
// numeric_limits<T>::lowest() and max().
func finiteLimits(dtype dtypes.DType) (lowest, highest float64) {
	switch dtype {
	case dtypes.Float64:
		return -math.MaxFloat64, math.MaxFloat64
	case dtypes.Float32:
		return -math.MaxFloat32, math.MaxFloat32
	case dtypes.Float16:
		return -65504, 65504
	case dtypes.BFloat16:
		return -3.3895313892515355e38, 3.3895313892515355e38
	case dtypes.Int64:
		return math.MinInt64, math.MaxInt64
	case dtypes.Int32:
		return math.MinInt32, math.MaxInt32
	case dtypes.Int16:
		return math.MinInt16, math.MaxInt16
	case dtypes.Int8:
		return math.MinInt8, math.MaxInt8
	case dtypes.Uint64:
		return 0, math.MaxUint64
	case dtypes.Uint32:
		return 0, math.MaxUint32
	case dtypes.Uint16:
		return 0, math.MaxUint16
	case dtypes.Uint8:
		return 0, math.MaxUint8
	}
	return 0, 1
}

// UnsortedSegment implements target.Ops.
//
// segmentIDs must have the shape of the leading axes of data. Negative ids are dropped, as TensorFlow does,
// and ids >= numSegments are an error.
func (o *Ops) UnsortedSegment(reduction target.SegmentReduction, data, segmentIDs target.Value, numSegments int) (target.Value, error) {
	opName := reduction.String()
	d, err := toArray(opName, data)
	if err != nil {
		return nil, err
	}
	ids, err := toArray(opName, segmentIDs)
	if err != nil {
		return nil, err
	}
	if !ids.shape.DType.IsInt() {
		return nil, errors.Errorf("eager.%s: segment ids must be integers, got %s", opName, ids.shape)
	}
	if d.shape.DType == dtypes.Bool || d.shape.DType.IsComplex() {
		return nil, errors.Errorf("eager.%s: dtype %s not supported", opName, d.shape.DType)
	}
	idsRank := ids.shape.Rank()
	if idsRank > d.shape.Rank() || !slices.Equal(ids.shape.Dimensions, d.shape.Dimensions[:idsRank]) {
		return nil, errors.Errorf("eager.%s: segment ids shape %s must be a prefix of data shape %s", opName, ids.shape, d.shape)
	}
	if numSegments < 0 {
		return nil, errors.Errorf("eager.%s: numSegments must be non-negative, got %d", opName, numSegments)
	}

	var identity float64
	var combine func(a, b float64) float64
	lowest, highest := finiteLimits(d.shape.DType)
	switch reduction {
	case target.SegmentSum:
		identity, combine = 0, func(a, b float64) float64 { return a + b }
	case target.SegmentProd:
		identity, combine = 1, func(a, b float64) float64 { return a * b }
	case target.SegmentMin:
		identity, combine = highest, math.Min
	case target.SegmentMax:
		identity, combine = lowest, math.Max
	default:
		return nil, errors.Errorf("eager.UnsortedSegment: unknown reduction %d", reduction)
	}

	innerDims := d.shape.Dimensions[idsRank:]
	out := newArray(d.shape.DType, append([]int{numSegments}, innerDims...)...)
	for ii := range out.data {
		out.data[ii] = identity
	}
	innerSize := 1
	for _, dim := range innerDims {
		innerSize *= dim
	}
	for ii, idValue := range ids.data {
		id := int(idValue)
		if id < 0 {
			continue
		}
		if id >= numSegments {
			return nil, errors.Errorf("eager.%s: segment id %d out of range [0, %d)", opName, id, numSegments)
		}
		for jj := range innerSize {
			out.data[id*innerSize+jj] = combine(out.data[id*innerSize+jj], d.data[ii*innerSize+jj])
		}
	}
	return out.value()
}

// ArgMinMax implements target.Ops. Ties resolve to the lowest index.
func (o *Ops) ArgMinMax(x target.Value, axis int, isMin bool, outputDType dtypes.DType) (target.Value, error) {
	a, err := toArray("ArgMinMax", x)
	if err != nil {
		return nil, err
	}
	if outputDType != dtypes.Int32 && outputDType != dtypes.Int64 {
		return nil, errors.Errorf("eager.ArgMinMax: output dtype must be Int32 or Int64, got %s", outputDType)
	}
	if a.shape.DType == dtypes.Bool || a.shape.DType.IsComplex() {
		return nil, errors.Errorf("eager.ArgMinMax: dtype %s not supported", a.shape.DType)
	}
	rank := a.shape.Rank()
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, errors.Errorf("eager.ArgMinMax: axis out of range for %s", a.shape)
	}
	dim := a.shape.Dimensions[axis]
	if dim == 0 {
		return nil, errors.Errorf("eager.ArgMinMax: reduction axis %d of %s is empty", axis, a.shape)
	}
	outDims := slices.Delete(slices.Clone(a.shape.Dimensions), axis, axis+1)
	out := newArray(outputDType, outDims...)
	if len(a.data) == 0 {
		return out.value()
	}
	axisStride := a.shape.Strides()[axis]
	outer := len(a.data) / (dim * axisStride)
	for outerIdx := range outer {
		for inner := range axisStride {
			base := outerIdx*dim*axisStride + inner
			best, bestIdx := a.data[base], 0
			for i := 1; i < dim; i++ {
				v := a.data[base+i*axisStride]
				if (isMin && v < best) || (!isMin && v > best) {
					best, bestIdx = v, i
				}
			}
			out.data[outerIdx*axisStride+inner] = float64(bestIdx)
		}
	}
	return out.value()
}
