// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/shapeinference"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DynamicSliceAttrs are the attributes of backends.OpTypeDynamicSlice. The operands are the operand followed
// by one scalar integer start index per axis.
type DynamicSliceAttrs struct {
	// SliceSizes has one value per axis. Symbolic values must be bound by the operands descriptors.
	SliceSizes []shapes.Dim
}

// checkStartIndices checks that the operands from first on are integer scalars.
func checkStartIndices(operands []shapes.Shape, first int) error {
	for ii, shape := range operands[first:] {
		if !shape.IsScalar() || !shape.DType.IsInt() {
			return errors.Errorf("start index #%d must be an integer scalar, got %s", ii, shape)
		}
	}
	return nil
}

func inferDynamicSlice(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	attrs, err := attrsAs[DynamicSliceAttrs](st)
	if err != nil {
		return shapes.Invalid(), err
	}
	if err := checkStartIndices(operands, 1); err != nil {
		return shapes.Invalid(), err
	}
	sliceSizes, err := st.bindings.ResolveDims(attrs.SliceSizes)
	if err != nil {
		return shapes.Invalid(), unsupportedError(st.op, "Slice sizes must be known at lowering time: "+err.Error())
	}
	return shapeinference.DynamicSliceOp(operands[0], len(operands)-1, shapes.ConcreteDims(sliceSizes...))
}

// stackedStarts stacks the scalar start indices, from operand #first on, into an Int32 vector.
func (st *callState) stackedStarts(first int) target.Value {
	starts := make([]target.Value, 0, len(st.operands)-first)
	for _, start := range st.operands[first:] {
		starts = append(starts, st.cast(start, dtypes.Int32))
	}
	return st.stack(starts...)
}

// lowerDynamicSlice clamps the start indices so the slice is always in bounds, and takes a Slice.
func lowerDynamicSlice(st *callState) (target.Value, error) {
	operandShape := st.concrete[0]
	if operandShape.IsScalar() {
		return st.operands[0], nil
	}
	sliceSizes := st.outShape.Dimensions
	begin := st.clamp(operandShape.Dimensions, st.stackedStarts(1), sliceSizes)
	return st.slice(st.operands[0], begin, sliceSizes), nil
}

func inferDynamicUpdateSlice(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	if err := checkStartIndices(operands, 2); err != nil {
		return shapes.Invalid(), err
	}
	return shapeinference.DynamicUpdateSliceOp(operands[0], operands[1], len(operands)-2)
}

// lowerDynamicUpdateSlice finds the flat positions of the updated window by slicing a tensor of element
// ids, scatters the update and a boolean mask into them, and selects between update and operand.
func lowerDynamicUpdateSlice(st *callState) (target.Value, error) {
	operandShape, updateShape := st.concrete[0], st.concrete[1]
	switch {
	case operandShape.IsScalar():
		return st.operands[1], nil
	case updateShape.IsZeroSize():
		return st.operands[0], nil
	}
	opDims, updateDims := operandShape.Dimensions, updateShape.Dimensions
	opSize, updateSize := operandShape.Size(), updateShape.Size()
	klog.V(1).Infof("lowering %s: scattering %s into %s", st.name, updateShape, operandShape)

	begin := st.clamp(opDims, st.stackedStarts(2), updateDims)
	end := st.add(begin, st.constInt32(updateDims...))
	ids := st.reshape(st.iota(opSize, dtypes.Int32), opDims)
	windowIDs := st.stridedSlice(ids, begin, end, 0)
	flatIndices := st.reshape(windowIDs, []int{updateSize, 1})

	scattered := st.scatterND(flatIndices, st.reshape(st.operands[1], []int{updateSize}), []int{opSize})
	mask := st.scatterND(flatIndices, st.full(shapes.Make(dtypes.Bool, updateSize), 1), []int{opSize})
	return st.where(st.reshape(mask, opDims), st.reshape(scattered, opDims), st.operands[0]), nil
}
