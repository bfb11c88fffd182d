// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/pkg/errors"
)

// The methods below call the target primitives, and panic with the (annotated) error if they fail.
// Engine.Lower converts the panic back to an error.

func (st *callState) check(primitive string, v target.Value, err error) target.Value {
	if err != nil {
		panic(errors.WithMessagef(err, "lowering %s: target primitive %s failed", st.name, primitive))
	}
	return v
}

func (st *callState) constant(t *tensors.Tensor) target.Value {
	v, err := st.ops.Constant(t)
	return st.check("Constant", v, err)
}

// constInt32 returns a rank-1 Int32 constant.
func (st *callState) constInt32(values ...int) target.Value {
	flat := make([]int32, len(values))
	for ii, v := range values {
		flat[ii] = int32(v)
	}
	return st.constant(tensors.FromFlatDataAndDimensions(flat, len(flat)))
}

// scalar returns a scalar of the given dtype.
func (st *callState) scalar(dtype dtypes.DType, value float64) target.Value {
	return st.full(shapes.Make(dtype), value)
}

func (st *callState) full(shape shapes.Shape, value float64) target.Value {
	v, err := st.ops.Full(shape, value)
	return st.check("Full", v, err)
}

func (st *callState) iota(n int, dtype dtypes.DType) target.Value {
	v, err := st.ops.Range(n, dtype)
	return st.check("Range", v, err)
}

func (st *callState) cast(x target.Value, dtype dtypes.DType) target.Value {
	v, err := st.ops.Cast(x, dtype)
	return st.check("Cast", v, err)
}

func (st *callState) transpose(x target.Value, permutation []int) target.Value {
	v, err := st.ops.Transpose(x, permutation)
	return st.check("Transpose", v, err)
}

func (st *callState) reshape(x target.Value, dimensions []int) target.Value {
	v, err := st.ops.Reshape(x, dimensions)
	return st.check("Reshape", v, err)
}

func (st *callState) expandDims(x target.Value, axis int) target.Value {
	v, err := st.ops.ExpandDims(x, axis)
	return st.check("ExpandDims", v, err)
}

func (st *callState) squeeze(x target.Value, axes ...int) target.Value {
	v, err := st.ops.Squeeze(x, axes...)
	return st.check("Squeeze", v, err)
}

func (st *callState) reverse(x target.Value, axes ...int) target.Value {
	v, err := st.ops.Reverse(x, axes...)
	return st.check("Reverse", v, err)
}

func (st *callState) broadcastTo(x target.Value, dimensions []int) target.Value {
	v, err := st.ops.BroadcastTo(x, dimensions)
	return st.check("BroadcastTo", v, err)
}

func (st *callState) concatenate(axis int, xs ...target.Value) target.Value {
	v, err := st.ops.Concatenate(axis, xs...)
	return st.check("Concatenate", v, err)
}

func (st *callState) stack(xs ...target.Value) target.Value {
	v, err := st.ops.Stack(xs...)
	return st.check("Stack", v, err)
}

func (st *callState) add(x, y target.Value) target.Value {
	v, err := st.ops.Add(x, y)
	return st.check("Add", v, err)
}

func (st *callState) mul(x, y target.Value) target.Value {
	v, err := st.ops.Mul(x, y)
	return st.check("Mul", v, err)
}

func (st *callState) minimum(x, y target.Value) target.Value {
	v, err := st.ops.Minimum(x, y)
	return st.check("Minimum", v, err)
}

func (st *callState) maximum(x, y target.Value) target.Value {
	v, err := st.ops.Maximum(x, y)
	return st.check("Maximum", v, err)
}

func (st *callState) where(condition, onTrue, onFalse target.Value) target.Value {
	v, err := st.ops.Where(condition, onTrue, onFalse)
	return st.check("Where", v, err)
}

func (st *callState) clipByValue(x, lower, upper target.Value) target.Value {
	v, err := st.ops.ClipByValue(x, lower, upper)
	return st.check("ClipByValue", v, err)
}

func (st *callState) pad(x target.Value, paddings [][2]int, constant target.Value) target.Value {
	v, err := st.ops.Pad(x, paddings, constant)
	return st.check("Pad", v, err)
}

func (st *callState) slice(x, begin target.Value, size []int) target.Value {
	v, err := st.ops.Slice(x, begin, size)
	return st.check("Slice", v, err)
}

func (st *callState) stridedSlice(x, begin, end target.Value, shrinkAxisMask int) target.Value {
	v, err := st.ops.StridedSlice(x, begin, end, shrinkAxisMask)
	return st.check("StridedSlice", v, err)
}

func (st *callState) scatterND(indices, updates target.Value, shape []int) target.Value {
	v, err := st.ops.ScatterND(indices, updates, shape)
	return st.check("ScatterND", v, err)
}
