// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapeinference

import (
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/support/sets"
	"github.com/pkg/errors"
)

// Gather returns the output shape of a Gather operation.
//
// The index vector is the last axis of startIndices, so the batch axes are all the other axes.
// Symbolic batch axes and symbolic slice sizes are carried over to the output.
func Gather(operand, startIndices shapes.Shape, dims backends.GatherDimensionNumbers, sliceSizes []shapes.Dim) (output shapes.Shape, err error) {
	if operand.IsScalar() {
		return output, errors.Errorf("Gather() requires a non-scalar operand, got %s", operand)
	}
	if startIndices.Rank() < 1 {
		return output, errors.Errorf("Gather() requires startIndices of rank >= 1, got %s", startIndices)
	}
	if !startIndices.DType.IsInt() {
		return output, errors.Errorf("Gather() requires integer startIndices, got %s", startIndices)
	}
	if err = checkAxes("Gather", "collapsed slice", dims.CollapsedSliceDims, operand.Rank()); err != nil {
		return
	}
	setCollapsedAxes := sets.MakeWith(dims.CollapsedSliceDims...)

	// Check slice sizes.
	if len(sliceSizes) != operand.Rank() {
		return output, errors.Errorf("sliceSizes must have one value per operand axes, so it length (%d) must match operand rank (%d)", len(sliceSizes), operand.Rank())
	}
	operandDims := operand.Dims()
	for axis, sliceSize := range sliceSizes {
		if sliceSize.IsSymbolic() {
			if !sliceSize.Equal(operandDims[axis]) {
				return output, errors.Errorf("symbolic sliceSize %s for axis %d must match the operand dimension %s", sliceSize, axis, operandDims[axis])
			}
			continue
		}
		if sliceSize.Value < 0 {
			return output, errors.Errorf("sliceSize %d for axis %d is negative, it must be non-negative", sliceSize.Value, axis)
		}
		if !operandDims[axis].IsSymbolic() && operandDims[axis].Value < sliceSize.Value {
			return output, errors.Errorf("sliceSize %d for axis %d is larger than the corresponding operand dimension %d", sliceSize.Value, axis, operandDims[axis].Value)
		}
	}
	for _, collapseAxis := range dims.CollapsedSliceDims {
		if !sliceSizes[collapseAxis].EqualValue(1) {
			return output, errors.Errorf("collapsed slice axis %d must have sliceSize 1, but got %s", collapseAxis, sliceSizes[collapseAxis])
		}
	}
	if operand.Rank() != len(dims.CollapsedSliceDims)+len(dims.OffsetDims) {
		return output, errors.Errorf("the number of collapsedSliceDims (%d) + the number of offsetDims (%d) must be equal to the number of axes in the operand (operand.Rank()=%d)",
			len(dims.CollapsedSliceDims), len(dims.OffsetDims), operand.Rank())
	}

	// Check startIndexMap is set for the dimensions of the index vector axis.
	indexDepth := startIndices.AxisDim(-1)
	if !indexDepth.EqualValue(len(dims.StartIndexMap)) {
		return output, errors.Errorf("startIndexMap must have one value per element of the last axis of startIndices, so its length (%d) must match %s",
			len(dims.StartIndexMap), startIndices)
	}
	if err = checkAxes("Gather", "start index map", dims.StartIndexMap, operand.Rank()); err != nil {
		return
	}

	// Build output shape: axes in OffsetDims take their dimensions sequentially from the non-collapsed
	// slice sizes, remaining axes are filled in order from the batch axes of startIndices.
	batchRank := startIndices.Rank() - 1
	outputRank := batchRank + len(dims.OffsetDims)
	if err = checkAxes("Gather", "offset", dims.OffsetDims, outputRank); err != nil {
		return
	}
	setOffsetOutputAxes := sets.MakeWith(dims.OffsetDims...)
	offsetDims := make([]shapes.Dim, 0, len(dims.OffsetDims))
	for axis, sliceSize := range sliceSizes {
		if !setCollapsedAxes.Has(axis) {
			offsetDims = append(offsetDims, sliceSize)
		}
	}
	indicesDims := startIndices.Dims()
	outputDims := make([]shapes.Dim, outputRank)
	offsetDimsIdx, batchDimsIdx := 0, 0
	for axis := range outputDims {
		if setOffsetOutputAxes.Has(axis) {
			outputDims[axis] = offsetDims[offsetDimsIdx]
			offsetDimsIdx++
		} else {
			outputDims[axis] = indicesDims[batchDimsIdx]
			batchDimsIdx++
		}
	}
	return shapes.FromDims(operand.DType, outputDims), nil
}

// ScatterOp checks that the parameters are consistent. The output shape returned is the unchanged operand -- the scattered
// updates are applied to the operand, but its shape is unchanged.
//
// The index vector is the last axis of indices.
func ScatterOp(operand, indices, updates shapes.Shape, dims backends.ScatterDimensionNumbers) (output shapes.Shape, err error) {
	if !operand.Ok() || !indices.Ok() || !updates.Ok() {
		return shapes.Invalid(), errors.Errorf("invalid shape for operand (%s), indices (%s) or updates (%s) for ScatterOp", operand, indices, updates)
	}
	if operand.DType != updates.DType {
		return shapes.Invalid(), errors.Errorf("data types (DType) for ScatterOp operand (%s) and updates (%s) must match", operand, updates)
	}
	if !indices.DType.IsInt() {
		return shapes.Invalid(), errors.Errorf("indices DType (%s) must be an integer type", indices)
	}
	if indices.Rank() < 1 {
		return shapes.Invalid(), errors.Errorf("ScatterOp requires indices of rank >= 1, got %s", indices)
	}
	if !indices.AxisDim(-1).EqualValue(len(dims.ScatterDimsToOperandDims)) {
		return shapes.Invalid(), errors.Errorf("scatterDimsToOperandDims length (%d) must match the last axis of indices %s",
			len(dims.ScatterDimsToOperandDims), indices)
	}
	if err = checkAxes("ScatterOp", "scatter to operand", dims.ScatterDimsToOperandDims, operand.Rank()); err != nil {
		return
	}
	if err = checkAxes("ScatterOp", "update window", dims.UpdateWindowDims, updates.Rank()); err != nil {
		return
	}
	if err = checkAxes("ScatterOp", "inserted window", dims.InsertedWindowDims, operand.Rank()); err != nil {
		return
	}

	numBatchAxes := indices.Rank() - 1
	if len(dims.UpdateWindowDims)+numBatchAxes != updates.Rank() {
		return shapes.Invalid(), errors.Errorf("numBatchAxes (%d) + len(updateWindowDims) (%d) must match updates.Rank() (%d)",
			numBatchAxes, len(dims.UpdateWindowDims), updates.Rank())
	}
	if len(dims.UpdateWindowDims)+len(dims.InsertedWindowDims) != operand.Rank() {
		return shapes.Invalid(), errors.Errorf("operand.Rank() (%d) must match len(updateWindowDims)(%d)+len(insertedWindowDims)(%d), so operand indices can be fully defined",
			operand.Rank(), len(dims.UpdateWindowDims), len(dims.InsertedWindowDims))
	}

	// Validate that update dimensions fit into output dimensions.
	operandUpdatedWindowAxes := sets.Remaining(sets.MakeWith(dims.InsertedWindowDims...), operand.Rank())
	for ii, updatesAxis := range dims.UpdateWindowDims {
		operandAxis := operandUpdatedWindowAxes[ii]
		u, o := updates.AxisDim(updatesAxis), operand.AxisDim(operandAxis)
		if u.IsSymbolic() || o.IsSymbolic() {
			continue
		}
		if u.Value > o.Value {
			return shapes.Invalid(), errors.Errorf("updates.Dimensions[axis=%d](%d) > operand.Dimensions[axis=%d](%d), updates won't fit into the operand",
				updatesAxis, u.Value, operandAxis, o.Value)
		}
	}

	// Batch axes of updates must match the batch axes of indices.
	updateWindowSet := sets.MakeWith(dims.UpdateWindowDims...)
	batchIdx := 0
	for axis := range updates.Rank() {
		if updateWindowSet.Has(axis) {
			continue
		}
		u, i := updates.AxisDim(axis), indices.AxisDim(batchIdx)
		if !u.Equal(i) && !u.IsSymbolic() && !i.IsSymbolic() {
			return shapes.Invalid(), errors.Errorf("updates batch axis %d (%s) doesn't match indices batch axis %d (%s)", axis, u, batchIdx, i)
		}
		batchIdx++
	}
	return operand.Clone(), nil
}
