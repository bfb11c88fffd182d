// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tracing implements a target.Ops that wraps another target, logging (with klog.V(2)) and
// recording the name of every primitive called.
//
// It is used to inspect which primitives a lowering uses:
//
//	ops := tracing.New(eager.Must())
//	engine := lowering.NewWithConfig(ops, lowering.Config{})
//	_, _ = engine.DotGeneral(...)
//	fmt.Println(ops.Calls()) // [Shape Shape MatMul]
package tracing

import (
	"slices"
	"sync"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Ops wraps a target.Ops. It is safe for concurrent use if the wrapped target is.
type Ops struct {
	base target.Ops

	mu    sync.Mutex
	calls []string
}

var (
	_ target.Ops          = (*Ops)(nil)
	_ target.FillGatherer = (*Ops)(nil)
)

// New returns a tracing wrapper around base.
func New(base target.Ops) *Ops {
	return &Ops{base: base}
}

// Base returns the wrapped target.
func (o *Ops) Base() target.Ops { return o.base }

func (o *Ops) record(primitive string) {
	klog.V(2).Infof("%s: %s()", o.base.Name(), primitive)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, primitive)
}

// Calls returns the names of the primitives called so far, in order.
func (o *Ops) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.calls)
}

// Count returns how many times the primitive was called.
func (o *Ops) Count(primitive string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	count := 0
	for _, call := range o.calls {
		if call == primitive {
			count++
		}
	}
	return count
}

// Reset clears the recorded calls.
func (o *Ops) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = nil
}

// Name implements target.Ops.
func (o *Ops) Name() string { return "tracing(" + o.base.Name() + ")" }

func (o *Ops) Shape(x target.Value) (shapes.Shape, error) {
	o.record("Shape")
	return o.base.Shape(x)
}

func (o *Ops) Constant(t *tensors.Tensor) (target.Value, error) {
	o.record("Constant")
	return o.base.Constant(t)
}

func (o *Ops) Full(shape shapes.Shape, value float64) (target.Value, error) {
	o.record("Full")
	return o.base.Full(shape, value)
}

func (o *Ops) Range(n int, dtype dtypes.DType) (target.Value, error) {
	o.record("Range")
	return o.base.Range(n, dtype)
}

func (o *Ops) Cast(x target.Value, dtype dtypes.DType) (target.Value, error) {
	o.record("Cast")
	return o.base.Cast(x, dtype)
}

func (o *Ops) Transpose(x target.Value, permutation []int) (target.Value, error) {
	o.record("Transpose")
	return o.base.Transpose(x, permutation)
}

func (o *Ops) Reshape(x target.Value, dimensions []int) (target.Value, error) {
	o.record("Reshape")
	return o.base.Reshape(x, dimensions)
}

func (o *Ops) ExpandDims(x target.Value, axis int) (target.Value, error) {
	o.record("ExpandDims")
	return o.base.ExpandDims(x, axis)
}

func (o *Ops) Squeeze(x target.Value, axes ...int) (target.Value, error) {
	o.record("Squeeze")
	return o.base.Squeeze(x, axes...)
}

func (o *Ops) Reverse(x target.Value, axes ...int) (target.Value, error) {
	o.record("Reverse")
	return o.base.Reverse(x, axes...)
}

func (o *Ops) BroadcastTo(x target.Value, dimensions []int) (target.Value, error) {
	o.record("BroadcastTo")
	return o.base.BroadcastTo(x, dimensions)
}

func (o *Ops) Concatenate(axis int, xs ...target.Value) (target.Value, error) {
	o.record("Concatenate")
	return o.base.Concatenate(axis, xs...)
}

func (o *Ops) Stack(xs ...target.Value) (target.Value, error) {
	o.record("Stack")
	return o.base.Stack(xs...)
}

func (o *Ops) Add(x, y target.Value) (target.Value, error) {
	o.record("Add")
	return o.base.Add(x, y)
}

func (o *Ops) Sub(x, y target.Value) (target.Value, error) {
	o.record("Sub")
	return o.base.Sub(x, y)
}

func (o *Ops) Mul(x, y target.Value) (target.Value, error) {
	o.record("Mul")
	return o.base.Mul(x, y)
}

func (o *Ops) Minimum(x, y target.Value) (target.Value, error) {
	o.record("Minimum")
	return o.base.Minimum(x, y)
}

func (o *Ops) Maximum(x, y target.Value) (target.Value, error) {
	o.record("Maximum")
	return o.base.Maximum(x, y)
}

func (o *Ops) Where(condition, onTrue, onFalse target.Value) (target.Value, error) {
	o.record("Where")
	return o.base.Where(condition, onTrue, onFalse)
}

func (o *Ops) ClipByValue(x, lower, upper target.Value) (target.Value, error) {
	o.record("ClipByValue")
	return o.base.ClipByValue(x, lower, upper)
}

func (o *Ops) MatMul(x, y target.Value) (target.Value, error) {
	o.record("MatMul")
	return o.base.MatMul(x, y)
}

func (o *Ops) Einsum(equation string, x, y target.Value) (target.Value, error) {
	o.record("Einsum")
	return o.base.Einsum(equation, x, y)
}

func (o *Ops) Conv2D(input, filters target.Value, strides []int, padding target.Padding, dilations []int) (target.Value, error) {
	o.record("Conv2D")
	return o.base.Conv2D(input, filters, strides, padding, dilations)
}

func (o *Ops) DepthwiseConv2D(input, filters target.Value, strides []int, padding target.Padding, dilations []int) (target.Value, error) {
	o.record("DepthwiseConv2D")
	return o.base.DepthwiseConv2D(input, filters, strides, padding, dilations)
}

func (o *Ops) Conv2DTranspose(input, filters target.Value, outputShape []int, strides []int, padding target.Padding) (target.Value, error) {
	o.record("Conv2DTranspose")
	return o.base.Conv2DTranspose(input, filters, outputShape, strides, padding)
}

func (o *Ops) MaxPool(x target.Value, ksize, strides []int, padding target.Padding, dataFormat string) (target.Value, error) {
	o.record("MaxPool")
	return o.base.MaxPool(x, ksize, strides, padding, dataFormat)
}

func (o *Ops) AvgPool(x target.Value, ksize, strides []int, padding target.Padding, dataFormat string) (target.Value, error) {
	o.record("AvgPool")
	return o.base.AvgPool(x, ksize, strides, padding, dataFormat)
}

func (o *Ops) Pad(x target.Value, paddings [][2]int, constant target.Value) (target.Value, error) {
	o.record("Pad")
	return o.base.Pad(x, paddings, constant)
}

func (o *Ops) Slice(x target.Value, begin target.Value, size []int) (target.Value, error) {
	o.record("Slice")
	return o.base.Slice(x, begin, size)
}

func (o *Ops) StridedSlice(x target.Value, begin, end target.Value, shrinkAxisMask int) (target.Value, error) {
	o.record("StridedSlice")
	return o.base.StridedSlice(x, begin, end, shrinkAxisMask)
}

func (o *Ops) Gather(params, indices target.Value, axis int) (target.Value, error) {
	o.record("Gather")
	return o.base.Gather(params, indices, axis)
}

func (o *Ops) GatherND(params, indices target.Value) (target.Value, error) {
	o.record("GatherND")
	return o.base.GatherND(params, indices)
}

func (o *Ops) ScatterND(indices, updates target.Value, shape []int) (target.Value, error) {
	o.record("ScatterND")
	return o.base.ScatterND(indices, updates, shape)
}

func (o *Ops) TensorScatterNDUpdate(x, indices, updates target.Value) (target.Value, error) {
	o.record("TensorScatterNDUpdate")
	return o.base.TensorScatterNDUpdate(x, indices, updates)
}

func (o *Ops) MapFn(fn func(slices []target.Value) (target.Value, error), elems ...target.Value) (target.Value, error) {
	o.record("MapFn")
	return o.base.MapFn(fn, elems...)
}

func (o *Ops) UnsortedSegment(reduction target.SegmentReduction, data, segmentIDs target.Value, numSegments int) (target.Value, error) {
	o.record(reduction.String())
	return o.base.UnsortedSegment(reduction, data, segmentIDs, numSegments)
}

func (o *Ops) ArgMinMax(x target.Value, axis int, isMin bool, outputDType dtypes.DType) (target.Value, error) {
	o.record("ArgMinMax")
	return o.base.ArgMinMax(x, axis, isMin, outputDType)
}

// FillGather implements target.FillGatherer if the wrapped target does, otherwise it returns
// a backends.ErrNotImplemented error.
func (o *Ops) FillGather(operand, startIndices target.Value, offsetDims, collapsedSliceDims, startIndexMap, sliceSizes []int,
	fillValue float64) (target.Value, error) {
	o.record("FillGather")
	fg, ok := o.base.(target.FillGatherer)
	if !ok {
		return nil, errors.Wrapf(backends.ErrNotImplemented, "target %q doesn't support FillGather", o.base.Name())
	}
	return fg.FillGather(operand, startIndices, offsetDims, collapsedSliceDims, startIndexMap, sliceSizes, fillValue)
}
