// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eager

import (
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/shapeinference"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/support/sets"
	"github.com/pkg/errors"
)

// FillGather implements target.FillGatherer: a general gather (the index vector is the last axis of
// startIndices) where the slices that don't fit entirely in the operand are filled with fillValue.
func (o *Ops) FillGather(operand, startIndices target.Value, offsetDims, collapsedSliceDims, startIndexMap, sliceSizes []int,
	fillValue float64) (target.Value, error) {
	arrays, err := toArrays("FillGather", operand, startIndices)
	if err != nil {
		return nil, err
	}
	op, idx := arrays[0], arrays[1]
	dims := backends.GatherDimensionNumbers{
		OffsetDims:         offsetDims,
		CollapsedSliceDims: collapsedSliceDims,
		StartIndexMap:      startIndexMap,
	}
	outShape, err := shapeinference.Gather(op.shape, idx.shape, dims, shapes.ConcreteDims(sliceSizes...))
	if err != nil {
		return nil, errors.WithMessage(err, "eager.FillGather")
	}
	out := newArray(outShape.DType, outShape.Dimensions...)

	// Map output axes to either the batch axes of startIndices or to the (non-collapsed) operand axes.
	rank := op.shape.Rank()
	offsetAxesSet := sets.MakeWith(offsetDims...)
	offsetOperandAxes := sets.Remaining(sets.MakeWith(collapsedSliceDims...), rank)
	opStrides := op.shape.Strides()
	batchIndices := make([]int, idx.shape.Rank()-1)
	batchStrides := idx.shape.Strides()[:len(batchIndices)]
	starts := make([]int, rank)
	opIndices := make([]int, rank)
	for outIdx, outIndices := range outShape.Iter() {
		batchAxis := 0
		for axis, i := range outIndices {
			if !offsetAxesSet.Has(axis) {
				batchIndices[batchAxis] = i
				batchAxis++
			}
		}
		vectorStart := flatIndex(batchIndices, batchStrides)
		inBounds := true
		clear(starts)
		for k, axis := range startIndexMap {
			start := int(idx.data[vectorStart+k])
			upper := op.shape.Dimensions[axis] - sliceSizes[axis]
			if start < 0 || start > upper {
				inBounds = false
				break
			}
			starts[axis] = start
		}
		if !inBounds {
			out.data[outIdx] = fillValue
			continue
		}
		copy(opIndices, starts)
		offsetAxis := 0
		for axis := range outIndices {
			if offsetAxesSet.Has(axis) {
				opIndices[offsetOperandAxes[offsetAxis]] += outIndices[axis]
				offsetAxis++
			}
		}
		out.data[outIdx] = op.data[flatIndex(opIndices, opStrides)]
	}
	return out.value()
}
