// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package notimplemented implements a target.Ops that returns a "not implemented" error for
// every primitive.
//
// It can be embedded to bootstrap a partial target: override only the primitives the target
// supports, and the lowering engine reports the others as not implemented.
package notimplemented

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/pkg/errors"
)

// NotImplementedError is returned (wrapped) by every method.
var NotImplementedError = backends.ErrNotImplemented

// Ops implements target.Ops and returns NotImplementedError wrapped with the primitive name
// for every primitive.
type Ops struct {
	// ErrFn is called to generate the error returned, if not nil.
	ErrFn func(primitive string) error
}

var _ target.Ops = Ops{}

// baseErrFn returns the error corresponding to the primitive.
// It falls back to Ops.ErrFn if it is defined.
func (o Ops) baseErrFn(primitive string) error {
	if o.ErrFn == nil {
		return errors.Wrapf(NotImplementedError, "in %s()", primitive)
	}
	return o.ErrFn(primitive)
}

// Name returns "notimplemented", override it in the embedding target.
func (o Ops) Name() string { return "notimplemented" }

func (o Ops) Shape(x target.Value) (shapes.Shape, error) {
	return shapes.Invalid(), o.baseErrFn("Shape")
}

func (o Ops) Constant(t *tensors.Tensor) (target.Value, error) {
	return nil, o.baseErrFn("Constant")
}

func (o Ops) Full(shape shapes.Shape, value float64) (target.Value, error) {
	return nil, o.baseErrFn("Full")
}

func (o Ops) Range(n int, dtype dtypes.DType) (target.Value, error) {
	return nil, o.baseErrFn("Range")
}

func (o Ops) Cast(x target.Value, dtype dtypes.DType) (target.Value, error) {
	return nil, o.baseErrFn("Cast")
}

func (o Ops) Transpose(x target.Value, permutation []int) (target.Value, error) {
	return nil, o.baseErrFn("Transpose")
}

func (o Ops) Reshape(x target.Value, dimensions []int) (target.Value, error) {
	return nil, o.baseErrFn("Reshape")
}

func (o Ops) ExpandDims(x target.Value, axis int) (target.Value, error) {
	return nil, o.baseErrFn("ExpandDims")
}

func (o Ops) Squeeze(x target.Value, axes ...int) (target.Value, error) {
	return nil, o.baseErrFn("Squeeze")
}

func (o Ops) Reverse(x target.Value, axes ...int) (target.Value, error) {
	return nil, o.baseErrFn("Reverse")
}

func (o Ops) BroadcastTo(x target.Value, dimensions []int) (target.Value, error) {
	return nil, o.baseErrFn("BroadcastTo")
}

func (o Ops) Concatenate(axis int, xs ...target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Concatenate")
}

func (o Ops) Stack(xs ...target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Stack")
}

func (o Ops) Add(x, y target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Add")
}

func (o Ops) Sub(x, y target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Sub")
}

func (o Ops) Mul(x, y target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Mul")
}

func (o Ops) Minimum(x, y target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Minimum")
}

func (o Ops) Maximum(x, y target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Maximum")
}

func (o Ops) Where(condition, onTrue, onFalse target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Where")
}

func (o Ops) ClipByValue(x, lower, upper target.Value) (target.Value, error) {
	return nil, o.baseErrFn("ClipByValue")
}

func (o Ops) MatMul(x, y target.Value) (target.Value, error) {
	return nil, o.baseErrFn("MatMul")
}

func (o Ops) Einsum(equation string, x, y target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Einsum")
}

func (o Ops) Conv2D(input, filters target.Value, strides []int, padding target.Padding, dilations []int) (target.Value, error) {
	return nil, o.baseErrFn("Conv2D")
}

func (o Ops) DepthwiseConv2D(input, filters target.Value, strides []int, padding target.Padding, dilations []int) (target.Value, error) {
	return nil, o.baseErrFn("DepthwiseConv2D")
}

func (o Ops) Conv2DTranspose(input, filters target.Value, outputShape []int, strides []int, padding target.Padding) (target.Value, error) {
	return nil, o.baseErrFn("Conv2DTranspose")
}

func (o Ops) MaxPool(x target.Value, ksize, strides []int, padding target.Padding, dataFormat string) (target.Value, error) {
	return nil, o.baseErrFn("MaxPool")
}

func (o Ops) AvgPool(x target.Value, ksize, strides []int, padding target.Padding, dataFormat string) (target.Value, error) {
	return nil, o.baseErrFn("AvgPool")
}

func (o Ops) Pad(x target.Value, paddings [][2]int, constant target.Value) (target.Value, error) {
	return nil, o.baseErrFn("Pad")
}

func (o Ops) Slice(x target.Value, begin target.Value, size []int) (target.Value, error) {
	return nil, o.baseErrFn("Slice")
}

func (o Ops) StridedSlice(x target.Value, begin, end target.Value, shrinkAxisMask int) (target.Value, error) {
	return nil, o.baseErrFn("StridedSlice")
}

func (o Ops) Gather(params, indices target.Value, axis int) (target.Value, error) {
	return nil, o.baseErrFn("Gather")
}

func (o Ops) GatherND(params, indices target.Value) (target.Value, error) {
	return nil, o.baseErrFn("GatherND")
}

func (o Ops) ScatterND(indices, updates target.Value, shape []int) (target.Value, error) {
	return nil, o.baseErrFn("ScatterND")
}

func (o Ops) TensorScatterNDUpdate(x, indices, updates target.Value) (target.Value, error) {
	return nil, o.baseErrFn("TensorScatterNDUpdate")
}

func (o Ops) MapFn(fn func(slices []target.Value) (target.Value, error), elems ...target.Value) (target.Value, error) {
	return nil, o.baseErrFn("MapFn")
}

func (o Ops) UnsortedSegment(reduction target.SegmentReduction, data, segmentIDs target.Value, numSegments int) (target.Value, error) {
	return nil, o.baseErrFn(reduction.String())
}

func (o Ops) ArgMinMax(x target.Value, axis int, isMin bool, outputDType dtypes.DType) (target.Value, error) {
	return nil, o.baseErrFn("ArgMinMax")
}
