// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package target defines the narrow primitive set the lowering engine drives: matrix multiply, einsum,
// 2-D convolution (plain, depthwise and transposed), max and average pooling, constant padding,
// strided slicing with axis collapse, gather / gather-nd / scatter-nd / tensor-scatter-nd-update,
// unsorted segment reductions and argmin/argmax, plus the layout and elementwise utilities needed
// to glue them together.
//
// The semantics of each primitive follow the TensorFlow op of the same name, including its layout
// conventions (NHWC inputs, HWIO filters) and boundary behavior.
//
// A Value is opaque to the lowering engine: it only passes it back to the target.
// Implementations: package eager (a pure-Go reference evaluator), package tracing (a logging wrapper)
// and package github.com/gomlx/lowering/backends/notimplemented (a base to embed in partial targets).
package target

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/core/tensors"
)

// Value represents an array in the target's representation.
type Value any

// Padding is the padding scheme of the convolution and pooling primitives.
type Padding int

const (
	// PaddingValid means no padding: windows must fully fit the input.
	PaddingValid Padding = iota

	// PaddingSame pads so that the output spatial dimension is ceil(input/stride), with the extra
	// padding (if odd) at the end.
	PaddingSame

	// PaddingExplicit is any other padding: it is never passed to a primitive, the lowering engine
	// must first materialize it.
	PaddingExplicit
)

// String implements fmt.Stringer.
func (p Padding) String() string {
	switch p {
	case PaddingValid:
		return "VALID"
	case PaddingSame:
		return "SAME"
	case PaddingExplicit:
		return "EXPLICIT"
	}
	return "Padding(?)"
}

// SegmentReduction selects the reduction of UnsortedSegment.
type SegmentReduction int

const (
	SegmentSum SegmentReduction = iota
	SegmentProd
	SegmentMin
	SegmentMax
)

// String implements fmt.Stringer.
func (r SegmentReduction) String() string {
	switch r {
	case SegmentSum:
		return "UnsortedSegmentSum"
	case SegmentProd:
		return "UnsortedSegmentProd"
	case SegmentMin:
		return "UnsortedSegmentMin"
	case SegmentMax:
		return "UnsortedSegmentMax"
	}
	return "UnsortedSegment(?)"
}

// Ops is the primitive set a target must provide.
//
// Every method returns an error, instead of panicking, if the primitive doesn't support the arguments.
type Ops interface {
	// Name of the target.
	Name() string

	// Shape returns the concrete shape of a value.
	Shape(x Value) (shapes.Shape, error)

	// Constant creates a value from a host tensor.
	Constant(t *tensors.Tensor) (Value, error)

	// Full creates a value of the given concrete shape filled with value (converted to the shape dtype).
	Full(shape shapes.Shape, value float64) (Value, error)

	// Range returns [0, 1, ..., n-1] with the given dtype.
	Range(n int, dtype dtypes.DType) (Value, error)

	// Cast converts x to the dtype.
	Cast(x Value, dtype dtypes.DType) (Value, error)

	// Transpose permutes the axes: output axis i is input axis permutation[i].
	Transpose(x Value, permutation []int) (Value, error)

	// Reshape to the given dimensions, the number of elements must match.
	Reshape(x Value, dimensions []int) (Value, error)

	// ExpandDims inserts an axis of dimension 1 at the given position. Negative axes count from
	// the end of the output shape.
	ExpandDims(x Value, axis int) (Value, error)

	// Squeeze removes the given axes, which must have dimension 1.
	Squeeze(x Value, axes ...int) (Value, error)

	// Reverse the order of the elements on the given axes.
	Reverse(x Value, axes ...int) (Value, error)

	// BroadcastTo broadcasts x to the dimensions, with numpy rules.
	BroadcastTo(x Value, dimensions []int) (Value, error)

	// Concatenate values along the axis.
	Concatenate(axis int, xs ...Value) (Value, error)

	// Stack scalars (or values of equal shapes) along a new leading axis.
	Stack(xs ...Value) (Value, error)

	// Add, Sub, Mul, Minimum and Maximum are elementwise with numpy broadcasting.
	Add(x, y Value) (Value, error)
	Sub(x, y Value) (Value, error)
	Mul(x, y Value) (Value, error)
	Minimum(x, y Value) (Value, error)
	Maximum(x, y Value) (Value, error)

	// Where selects onTrue where condition is true, onFalse otherwise. All broadcast.
	Where(condition, onTrue, onFalse Value) (Value, error)

	// ClipByValue clamps x into [lower, upper], with broadcasting.
	ClipByValue(x, lower, upper Value) (Value, error)

	// MatMul is a batched matrix multiplication: [..., m, k] x [..., k, n] -> [..., m, n], where
	// the leading batch axes must be equal.
	MatMul(x, y Value) (Value, error)

	// Einsum evaluates a label equation of the form "ab,bc->ac" over two operands.
	Einsum(equation string, x, y Value) (Value, error)

	// Conv2D convolves an NHWC input with an HWIO filter. strides and dilations have one value per
	// spatial axis. Padding must be VALID or SAME.
	Conv2D(input, filters Value, strides []int, padding Padding, dilations []int) (Value, error)

	// DepthwiseConv2D convolves an NHWC input with a [H, W, in, multiplier] filter.
	DepthwiseConv2D(input, filters Value, strides []int, padding Padding, dilations []int) (Value, error)

	// Conv2DTranspose is the gradient of Conv2D with respect to its input: input is NHWC, filters
	// is [H, W, out, in], outputShape is the NHWC shape of the result.
	Conv2DTranspose(input, filters Value, outputShape []int, strides []int, padding Padding) (Value, error)

	// MaxPool and AvgPool reduce windows of x. ksize and strides have one value per axis of x,
	// dataFormat is one of "NWC", "NHWC" or "NDHWC". Padded elements are not counted by AvgPool.
	MaxPool(x Value, ksize, strides []int, padding Padding, dataFormat string) (Value, error)
	AvgPool(x Value, ksize, strides []int, padding Padding, dataFormat string) (Value, error)

	// Pad with a constant value. paddings has one (low, high) non-negative pair per axis, and
	// constant is a scalar value.
	Pad(x Value, paddings [][2]int, constant Value) (Value, error)

	// Slice extracts size[i] elements from begin[i] on each axis. begin is a rank-1 integer value.
	Slice(x Value, begin Value, size []int) (Value, error)

	// StridedSlice extracts [begin, end) on each axis with unit strides, begin and end are rank-1
	// integer values. Axes whose bit is set in shrinkAxisMask are removed from the result (they must
	// have size 1).
	StridedSlice(x Value, begin, end Value, shrinkAxisMask int) (Value, error)

	// Gather slices of params along axis, indexed by indices.
	Gather(params, indices Value, axis int) (Value, error)

	// GatherND gathers slices of params indexed by the last axis of indices.
	GatherND(params, indices Value) (Value, error)

	// ScatterND writes updates into a zero-initialized value of the given shape.
	// Duplicate indices are summed.
	ScatterND(indices, updates Value, shape []int) (Value, error)

	// TensorScatterNDUpdate writes updates into a copy of x at the given indices.
	TensorScatterNDUpdate(x, indices, updates Value) (Value, error)

	// MapFn applies fn to the slices of elems along their first axis (all elems must have the same
	// first dimension) and stacks the results.
	MapFn(fn func(slices []Value) (Value, error), elems ...Value) (Value, error)

	// UnsortedSegment reduces data into numSegments segments along its leading axes, indexed by
	// segmentIDs. Empty segments are filled with the identity of the reduction: 0 for sum, 1 for
	// product, the highest value for min and the lowest for max.
	UnsortedSegment(reduction SegmentReduction, data, segmentIDs Value, numSegments int) (Value, error)

	// ArgMinMax returns the index of the min (or max) along the axis, as outputDType (Int32 or Int64).
	ArgMinMax(x Value, axis int, isMin bool, outputDType dtypes.DType) (Value, error)
}

// FillGatherer is an optional interface: a target that can evaluate an XLA gather with "fill" out-of-bounds
// semantics directly (slices that are out-of-bounds are filled with fillValue).
type FillGatherer interface {
	FillGather(operand, startIndices Value, offsetDims, collapsedSliceDims, startIndexMap, sliceSizes []int,
		fillValue float64) (Value, error)
}
