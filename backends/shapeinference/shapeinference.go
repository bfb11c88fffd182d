// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapeinference calculates the shape resulting from the generalized operators and validates their inputs.
//
// Shapes may have symbolic axes (see shapes.Dim): axes that are simply carried over from an operand
// to the output (batch axes, untouched axes) keep their names, while axes whose output dimension
// must be calculated (spatial axes of a convolution, padded axes, etc.) must be concrete.
//
// There is one function per OpType.
package shapeinference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/support/sets"
	"github.com/pkg/errors"
)

// concreteDim returns the value of the dimension of the axis, or an error if it is symbolic.
func concreteDim(opName string, shape shapes.Shape, axis int, role string) (int, error) {
	d := shape.AxisDim(axis)
	if d.IsSymbolic() {
		return 0, errors.Errorf("%s: %s axis %d of %s is symbolic, but its dimension must be known to infer the output shape",
			opName, role, axis, shape)
	}
	return d.Value, nil
}

// checkAxes checks that all axes are within [0, rank) and unique.
func checkAxes(opName, name string, axes []int, rank int) error {
	seen := sets.Make[int](len(axes))
	for _, axis := range axes {
		if axis < 0 || axis >= rank {
			return errors.Errorf("%s: %s axis %d is out-of-bounds for rank %d (%s=%v)", opName, name, axis, rank, name, axes)
		}
		if seen.Has(axis) {
			return errors.Errorf("%s: %s axis %d is defined more than once (%s=%v)", opName, name, axis, name, axes)
		}
		seen.Insert(axis)
	}
	return nil
}

// TransposeOp all axes of the operand.
// There must be one value in permutations for each axis in the operand.
// The output will have: output.Dims()[ii] = operand.Dims()[permutations[i]].
func TransposeOp(operand shapes.Shape, permutations []int) (output shapes.Shape, err error) {
	rank := operand.Rank()
	if len(permutations) != rank {
		err = errors.Errorf("Transpose() requires all axes permutations to be defined, operand has shape %s, but %d permutations were given",
			operand, len(permutations))
		return
	}
	if err = checkAxes("Transpose", "permutation", permutations, rank); err != nil {
		return
	}
	dims := operand.Dims()
	outDims := make([]shapes.Dim, rank)
	for axis, srcAxis := range permutations {
		outDims[axis] = dims[srcAxis]
	}
	return shapes.FromDims(operand.DType, outDims), nil
}

// ArgMinMaxOp calculates the output shape for an ArgMinMax operation.
// It will be the shape of the operand minus the "reduce" axis.
func ArgMinMaxOp(operand shapes.Shape, axis int, outputDType dtypes.DType) (output shapes.Shape, err error) {
	if !outputDType.IsInt() {
		err = errors.Errorf("ArgMinMax outputDType must be an integer type, got %s", outputDType)
		return
	}
	if !operand.DType.IsFloat() && !operand.DType.IsInt() {
		err = errors.Errorf("ArgMinMax operand DType must be a floating point or integer type, got %s", operand)
		return
	}
	if operand.IsScalar() {
		err = errors.Errorf("ArgMinMax requires a non-scalar operand, got %s", operand)
		return
	}
	if axis < 0 || axis >= operand.Rank() {
		err = errors.Errorf("ArgMinMax axis %d is out of range for operand %s", axis, operand)
		return
	}
	dims := slices.Delete(operand.Dims(), axis, axis+1)
	return shapes.FromDims(outputDType, dims), nil
}

// PadOp returns the output shape of padding the operand with the given configuration per axis.
// Missing axes configurations are assumed to be zero. Negative Start/End trim the axis.
func PadOp(operand shapes.Shape, axesConfig []backends.PadAxis) (output shapes.Shape, err error) {
	if !operand.Ok() {
		return shapes.Invalid(), errors.Errorf("PadOp: invalid operand shape %s", operand)
	}
	if len(axesConfig) > operand.Rank() {
		return shapes.Invalid(), errors.Errorf("PadOp: %d axes configurations given for operand %s", len(axesConfig), operand)
	}
	dims := operand.Dims()
	for axis, pad := range axesConfig {
		if pad == (backends.PadAxis{}) {
			continue
		}
		if pad.Interior < 0 {
			return shapes.Invalid(), errors.Errorf("PadOp: negative interior padding %d for axis %d", pad.Interior, axis)
		}
		dim, err := concreteDim("PadOp", operand, axis, "padded")
		if err != nil {
			return shapes.Invalid(), err
		}
		newDim := dim + pad.Start + pad.End
		if dim > 0 {
			newDim += (dim - 1) * pad.Interior
		}
		if newDim < 0 {
			return shapes.Invalid(), errors.Errorf("PadOp: padding %+v for axis %d of %s results in a negative dimension %d",
				pad, axis, operand, newDim)
		}
		dims[axis] = shapes.Concrete(newDim)
	}
	return shapes.FromDims(operand.DType, dims), nil
}

// DotGeneralOp returns the output shape of a DotGeneral: batch axes first, then the lhs free axes,
// then the rhs free axes, all in their original order.
//
// Contracting and batch axes must have structurally equal dimensions (see shapes.Dim.Equal).
func DotGeneralOp(lhs shapes.Shape, lhsContractingAxes, lhsBatchAxes []int,
	rhs shapes.Shape, rhsContractingAxes, rhsBatchAxes []int) (output shapes.Shape, err error) {
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), errors.Errorf("DotGeneral: lhs (%s) and rhs (%s) must have the same dtype", lhs, rhs)
	}
	if len(lhsContractingAxes) != len(rhsContractingAxes) {
		return shapes.Invalid(), errors.Errorf("DotGeneral: number of contracting axes for lhs (%d) doesn't match rhs (%d)",
			len(lhsContractingAxes), len(rhsContractingAxes))
	}
	if len(lhsBatchAxes) != len(rhsBatchAxes) {
		return shapes.Invalid(), errors.Errorf("DotGeneral: number of batch axes for lhs (%d) doesn't match rhs (%d)",
			len(lhsBatchAxes), len(rhsBatchAxes))
	}
	lhsUsed := append(slices.Clone(lhsContractingAxes), lhsBatchAxes...)
	if err = checkAxes("DotGeneral", "lhs contracting/batch", lhsUsed, lhs.Rank()); err != nil {
		return
	}
	rhsUsed := append(slices.Clone(rhsContractingAxes), rhsBatchAxes...)
	if err = checkAxes("DotGeneral", "rhs contracting/batch", rhsUsed, rhs.Rank()); err != nil {
		return
	}
	lhsDims, rhsDims := lhs.Dims(), rhs.Dims()
	for ii, lhsAxis := range lhsContractingAxes {
		rhsAxis := rhsContractingAxes[ii]
		if !lhsDims[lhsAxis].Equal(rhsDims[rhsAxis]) {
			return shapes.Invalid(), errors.Errorf("DotGeneral: contracting axes lhs %d (%s) and rhs %d (%s) have different dimensions",
				lhsAxis, lhsDims[lhsAxis], rhsAxis, rhsDims[rhsAxis])
		}
	}
	var outDims []shapes.Dim
	for ii, lhsAxis := range lhsBatchAxes {
		rhsAxis := rhsBatchAxes[ii]
		if !lhsDims[lhsAxis].Equal(rhsDims[rhsAxis]) {
			return shapes.Invalid(), errors.Errorf("DotGeneral: batch axes lhs %d (%s) and rhs %d (%s) have different dimensions",
				lhsAxis, lhsDims[lhsAxis], rhsAxis, rhsDims[rhsAxis])
		}
		outDims = append(outDims, lhsDims[lhsAxis])
	}
	for axis, d := range lhsDims {
		if !slices.Contains(lhsUsed, axis) {
			outDims = append(outDims, d)
		}
	}
	for axis, d := range rhsDims {
		if !slices.Contains(rhsUsed, axis) {
			outDims = append(outDims, d)
		}
	}
	return shapes.FromDims(lhs.DType, outDims), nil
}

// DynamicSliceOp returns the output shape of a DynamicSlice: the slice sizes, with the operand dtype.
func DynamicSliceOp(operand shapes.Shape, numStartIndices int, sliceSizes []shapes.Dim) (output shapes.Shape, err error) {
	if numStartIndices != operand.Rank() {
		return shapes.Invalid(), errors.Errorf("DynamicSlice: %d start indices given for operand %s, one per axis is required",
			numStartIndices, operand)
	}
	if len(sliceSizes) != operand.Rank() {
		return shapes.Invalid(), errors.Errorf("DynamicSlice: %d slice sizes given for operand %s, one per axis is required",
			len(sliceSizes), operand)
	}
	dims := operand.Dims()
	for axis, size := range sliceSizes {
		if size.IsSymbolic() {
			if !size.Equal(dims[axis]) {
				return shapes.Invalid(), errors.Errorf("DynamicSlice: symbolic slice size %s for axis %d must match the operand dimension %s",
					size, axis, dims[axis])
			}
			continue
		}
		if size.Value < 0 || (!dims[axis].IsSymbolic() && size.Value > dims[axis].Value) {
			return shapes.Invalid(), errors.Errorf("DynamicSlice: slice size %d for axis %d is out of range for operand %s",
				size.Value, axis, operand)
		}
	}
	return shapes.FromDims(operand.DType, sliceSizes), nil
}

// DynamicUpdateSliceOp checks the parameters and returns the output shape, the same as the operand.
func DynamicUpdateSliceOp(operand, update shapes.Shape, numStartIndices int) (output shapes.Shape, err error) {
	if operand.DType != update.DType {
		return shapes.Invalid(), errors.Errorf("DynamicUpdateSlice: operand (%s) and update (%s) must have the same dtype", operand, update)
	}
	if update.Rank() != operand.Rank() || numStartIndices != operand.Rank() {
		return shapes.Invalid(), errors.Errorf("DynamicUpdateSlice: operand %s, update %s and %d start indices must all have the same rank",
			operand, update, numStartIndices)
	}
	for axis := range operand.Rank() {
		u, o := update.AxisDim(axis), operand.AxisDim(axis)
		if u.Equal(o) || u.IsSymbolic() || o.IsSymbolic() {
			continue
		}
		if u.Value > o.Value {
			return shapes.Invalid(), errors.Errorf("DynamicUpdateSlice: update %s doesn't fit operand %s on axis %d", update, operand, axis)
		}
	}
	return operand.Clone(), nil
}
