// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/shapeinference"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/support/sets"
	"github.com/gomlx/lowering/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// ScatterAttrs are the attributes of the scatter operators (backends.OpTypeScatter, backends.OpTypeScatterAdd, ...).
// The operands are the operand, the indices (the index vector is their last axis) and the updates.
type ScatterAttrs struct {
	Dims backends.ScatterDimensionNumbers

	// UniqueIndices asserts that no two indices address the same element.
	UniqueIndices bool

	// Mode must be backends.ModePromiseInBounds.
	Mode backends.GatherScatterMode
}

func inferScatter(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	attrs, err := attrsAs[ScatterAttrs](st)
	if err != nil {
		return shapes.Invalid(), err
	}
	return shapeinference.ScatterOp(operands[0], operands[1], operands[2], attrs.Dims)
}

// scatterCombiner describes how a scatter combines the updates with the operand.
type scatterCombiner struct {
	// combine the original values (x) with the updates (y).
	combine func(st *callState, x, y target.Value) target.Value

	// segment reduces non-unique updates. Not available for replace.
	segment      target.SegmentReduction
	hasSegmentOp bool
}

var scatterCombiners = map[backends.OpType]scatterCombiner{
	backends.OpTypeScatter: {
		combine: func(_ *callState, _, y target.Value) target.Value { return y },
	},
	backends.OpTypeScatterAdd: {
		combine: (*callState).add, segment: target.SegmentSum, hasSegmentOp: true,
	},
	backends.OpTypeScatterMul: {
		combine: (*callState).mul, segment: target.SegmentProd, hasSegmentOp: true,
	},
	backends.OpTypeScatterMin: {
		combine: (*callState).minimum, segment: target.SegmentMin, hasSegmentOp: true,
	},
	backends.OpTypeScatterMax: {
		combine: (*callState).maximum, segment: target.SegmentMax, hasSegmentOp: true,
	},
}

// lowerScatter moves the scattered axes of the operand to the front and the window axes of the updates
// to the back, so the scatter becomes a TensorScatterNDUpdate (unique indices) or an UnsortedSegment
// reduction (non-unique indices, index depth 1).
func lowerScatter(st *callState) (target.Value, error) {
	attrs := mustAttrs[ScatterAttrs](st)
	dims := attrs.Dims
	operandShape, indicesShape, updatesShape := st.concrete[0], st.concrete[1], st.concrete[2]
	reject := func(format string, args ...any) (target.Value, error) {
		return nil, unsupportedError(st.op, withSuffix(scatterSuffix, format, args...))
	}

	if dtype := operandShape.DType; dtype == dtypes.Bool || dtype.IsComplex() {
		return reject("Scatter does not support operands of type %s", dtype)
	}
	if !slices.Equal(dims.InsertedWindowDims, dims.ScatterDimsToOperandDims) {
		return reject("Complex scatters are not supported")
	}
	if attrs.Mode != backends.ModePromiseInBounds {
		return reject("Only scatter mode `PROMISE_IN_BOUNDS` is supported")
	}

	operandPermutation := append(slices.Clone(dims.ScatterDimsToOperandDims),
		sets.Remaining(sets.MakeWith(dims.ScatterDimsToOperandDims...), operandShape.Rank())...)
	updatesPermutation := append(sets.Remaining(sets.MakeWith(dims.UpdateWindowDims...), updatesShape.Rank()),
		dims.UpdateWindowDims...)

	depth := len(dims.ScatterDimsToOperandDims)
	operandWindow := xslices.Permute(operandShape.Dimensions, operandPermutation)[depth:]
	updatesWindow := xslices.Permute(updatesShape.Dimensions, dims.UpdateWindowDims)
	if !slices.Equal(operandWindow, updatesWindow) {
		return reject("Update window dimensions %v must cover the operand dimensions %v not scattered", updatesWindow, operandWindow)
	}

	combiner := scatterCombiners[st.op]
	unique := attrs.UniqueIndices || indicesShape.Rank() == 1
	if !unique && (depth != 1 || !combiner.hasSegmentOp) {
		return reject("Scatter supports unique indices. Scatter also supports non-unique indices with indexing into only one dimension for (add, mul, min, max)")
	}

	operand, indices, updates := st.operands[0], st.operands[1], st.operands[2]
	if !xslices.IsIota(operandPermutation, 0) {
		operand = st.transpose(operand, operandPermutation)
	}
	if !xslices.IsIota(updatesPermutation, 0) {
		updates = st.transpose(updates, updatesPermutation)
	}

	var result target.Value
	if unique {
		klog.V(1).Infof("lowering %s: unique indices, TensorScatterNDUpdate", st.name)
		gathered, err := st.ops.GatherND(operand, indices)
		gathered = st.check("GatherND", gathered, err)
		values := combiner.combine(st, gathered, updates)
		if indicesShape.Rank() == 1 {
			indices = st.expandDims(indices, 0)
			values = st.expandDims(values, 0)
		}
		result, err = st.ops.TensorScatterNDUpdate(operand, indices, values)
		result = st.check("TensorScatterNDUpdate", result, err)
	} else {
		klog.V(1).Infof("lowering %s: non-unique indices, %s", st.name, combiner.segment)
		numSegments := operandShape.Dimensions[dims.ScatterDimsToOperandDims[0]]
		segmented, err := st.ops.UnsortedSegment(combiner.segment, updates, st.squeeze(indices, -1), numSegments)
		segmented = st.check(combiner.segment.String(), segmented, err)
		result = combiner.combine(st, operand, segmented)
	}

	if !xslices.IsIota(operandPermutation, 0) {
		result = st.transpose(result, xslices.InvertPermutation(operandPermutation))
	}
	return result, nil
}
