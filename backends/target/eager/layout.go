// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eager

import (
	"slices"

	"github.com/gomlx/lowering/backends/shapeinference"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Transpose implements target.Ops.
func (o *Ops) Transpose(x target.Value, permutation []int) (target.Value, error) {
	a, err := toArray("Transpose", x)
	if err != nil {
		return nil, err
	}
	out, err := a.transpose(permutation)
	if err != nil {
		return nil, err
	}
	return out.value()
}

func (a *array) transpose(permutation []int) (*array, error) {
	outShape, err := shapeinference.TransposeOp(a.shape, permutation)
	if err != nil {
		return nil, err
	}
	out := newArray(outShape.DType, outShape.Dimensions...)
	inStrides := a.shape.Strides()
	permutedStrides := make([]int, len(permutation))
	for axis, inAxis := range permutation {
		permutedStrides[axis] = inStrides[inAxis]
	}
	for outIdx, indices := range outShape.Iter() {
		out.data[outIdx] = a.data[flatIndex(indices, permutedStrides)]
	}
	return out, nil
}

// Reshape implements target.Ops.
func (o *Ops) Reshape(x target.Value, dimensions []int) (target.Value, error) {
	a, err := toArray("Reshape", x)
	if err != nil {
		return nil, err
	}
	out, err := a.reshape(dimensions)
	if err != nil {
		return nil, err
	}
	return out.value()
}

func (a *array) reshape(dimensions []int) (*array, error) {
	size := 1
	for _, dim := range dimensions {
		if dim < 0 {
			return nil, errors.Errorf("eager.Reshape: invalid dimensions %v", dimensions)
		}
		size *= dim
	}
	if size != len(a.data) {
		return nil, errors.Errorf("eager.Reshape: cannot reshape %s (size %d) to dimensions %v (size %d)",
			a.shape, len(a.data), dimensions, size)
	}
	return &array{shape: shapes.Make(a.shape.DType, dimensions...), data: a.data}, nil
}

// ExpandDims implements target.Ops.
func (o *Ops) ExpandDims(x target.Value, axis int) (target.Value, error) {
	a, err := toArray("ExpandDims", x)
	if err != nil {
		return nil, err
	}
	rank := a.shape.Rank()
	if axis < 0 {
		axis += rank + 1
	}
	if axis < 0 || axis > rank {
		return nil, errors.Errorf("eager.ExpandDims: axis out of range for %s", a.shape)
	}
	dims := slices.Insert(slices.Clone(a.shape.Dimensions), axis, 1)
	out, err := a.reshape(dims)
	if err != nil {
		return nil, err
	}
	return out.value()
}

// Squeeze implements target.Ops. If no axes are given, all axes of dimension 1 are removed.
func (o *Ops) Squeeze(x target.Value, axes ...int) (target.Value, error) {
	a, err := toArray("Squeeze", x)
	if err != nil {
		return nil, err
	}
	out, err := a.squeeze(axes...)
	if err != nil {
		return nil, err
	}
	return out.value()
}

func (a *array) squeeze(axes ...int) (*array, error) {
	rank := a.shape.Rank()
	remove := make([]bool, rank)
	if len(axes) == 0 {
		for axis, dim := range a.shape.Dimensions {
			remove[axis] = dim == 1
		}
	}
	for _, axis := range axes {
		if axis < 0 {
			axis += rank
		}
		if axis < 0 || axis >= rank {
			return nil, errors.Errorf("eager.Squeeze: axis out of range for %s", a.shape)
		}
		if a.shape.Dimensions[axis] != 1 {
			return nil, errors.Errorf("eager.Squeeze: cannot squeeze axis %d of %s, its dimension is not 1", axis, a.shape)
		}
		remove[axis] = true
	}
	dims := make([]int, 0, rank)
	for axis, dim := range a.shape.Dimensions {
		if !remove[axis] {
			dims = append(dims, dim)
		}
	}
	return a.reshape(dims)
}

// Reverse implements target.Ops.
func (o *Ops) Reverse(x target.Value, axes ...int) (target.Value, error) {
	a, err := toArray("Reverse", x)
	if err != nil {
		return nil, err
	}
	rank := a.shape.Rank()
	reversed := make([]bool, rank)
	for _, axis := range axes {
		if axis < 0 {
			axis += rank
		}
		if axis < 0 || axis >= rank {
			return nil, errors.Errorf("eager.Reverse: axis out of range for %s", a.shape)
		}
		reversed[axis] = true
	}
	out := newArray(a.shape.DType, a.shape.Dimensions...)
	strides := a.shape.Strides()
	inIndices := make([]int, rank)
	for outIdx, indices := range a.shape.Iter() {
		for axis, i := range indices {
			if reversed[axis] {
				i = a.shape.Dimensions[axis] - 1 - i
			}
			inIndices[axis] = i
		}
		out.data[outIdx] = a.data[flatIndex(inIndices, strides)]
	}
	return out.value()
}

// broadcastDimensions returns the numpy-style broadcast of the given dimensions.
func broadcastDimensions(opName string, allDims ...[]int) ([]int, error) {
	rank := 0
	for _, dims := range allDims {
		rank = max(rank, len(dims))
	}
	out := slices.Repeat([]int{1}, rank)
	for _, dims := range allDims {
		offset := rank - len(dims)
		for axis, dim := range dims {
			switch {
			case dim == out[offset+axis] || dim == 1:
			case out[offset+axis] == 1:
				out[offset+axis] = dim
			default:
				return nil, errors.Errorf("eager.%s: incompatible dimensions for broadcasting %v", opName, allDims)
			}
		}
	}
	return out, nil
}

// broadcastTo materializes a broadcast to the given dimensions. The result shares the data if no
// broadcast is needed.
func (a *array) broadcastTo(dimensions []int) (*array, error) {
	if slices.Equal(a.shape.Dimensions, dimensions) {
		return a, nil
	}
	rank := len(dimensions)
	offset := rank - a.shape.Rank()
	if offset < 0 {
		return nil, errors.Errorf("eager.BroadcastTo: cannot broadcast %s to dimensions %v", a.shape, dimensions)
	}
	inStrides := a.shape.Strides()
	strides := make([]int, rank)
	for axis, dim := range a.shape.Dimensions {
		switch dim {
		case dimensions[offset+axis]:
			strides[offset+axis] = inStrides[axis]
		case 1:
			// Broadcast axis: stride 0.
		default:
			return nil, errors.Errorf("eager.BroadcastTo: cannot broadcast %s to dimensions %v", a.shape, dimensions)
		}
	}
	out := newArray(a.shape.DType, dimensions...)
	for outIdx, indices := range out.shape.Iter() {
		out.data[outIdx] = a.data[flatIndex(indices, strides)]
	}
	return out, nil
}

// BroadcastTo implements target.Ops.
func (o *Ops) BroadcastTo(x target.Value, dimensions []int) (target.Value, error) {
	a, err := toArray("BroadcastTo", x)
	if err != nil {
		return nil, err
	}
	out, err := a.broadcastTo(dimensions)
	if err != nil {
		return nil, err
	}
	return out.value()
}

// Concatenate implements target.Ops.
func (o *Ops) Concatenate(axis int, xs ...target.Value) (target.Value, error) {
	if len(xs) == 0 {
		return nil, errors.New("eager.Concatenate: no values given")
	}
	arrays, err := toArrays("Concatenate", xs...)
	if err != nil {
		return nil, err
	}
	out, err := concatenate(axis, arrays...)
	if err != nil {
		return nil, err
	}
	return out.value()
}

func concatenate(axis int, arrays ...*array) (*array, error) {
	if err := sameDType("Concatenate", arrays...); err != nil {
		return nil, err
	}
	first := arrays[0].shape
	rank := first.Rank()
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, errors.Errorf("eager.Concatenate: axis out of range for %s", first)
	}
	outDims := slices.Clone(first.Dimensions)
	outDims[axis] = 0
	for _, a := range arrays {
		if a.shape.Rank() != rank {
			return nil, errors.Errorf("eager.Concatenate: ranks differ, %s and %s", first, a.shape)
		}
		for ii, dim := range a.shape.Dimensions {
			if ii != axis && dim != first.Dimensions[ii] {
				return nil, errors.Errorf("eager.Concatenate: dimensions differ on axis %d, %s and %s", ii, first, a.shape)
			}
		}
		outDims[axis] += a.shape.Dimensions[axis]
	}
	out := newArray(first.DType, outDims...)

	// Copy blocks: "outer" is the product of the leading axes, each block is the contiguous chunk at and after axis.
	outer := 1
	for _, dim := range outDims[:axis] {
		outer *= dim
	}
	pos := 0
	for i := range outer {
		for _, a := range arrays {
			block := len(a.data) / outer
			copy(out.data[pos:pos+block], a.data[i*block:(i+1)*block])
			pos += block
		}
	}
	return out, nil
}

// Stack implements target.Ops.
func (o *Ops) Stack(xs ...target.Value) (target.Value, error) {
	if len(xs) == 0 {
		return nil, errors.New("eager.Stack: no values given")
	}
	arrays, err := toArrays("Stack", xs...)
	if err != nil {
		return nil, err
	}
	out, err := stack(arrays...)
	if err != nil {
		return nil, err
	}
	return out.value()
}

func stack(arrays ...*array) (*array, error) {
	expanded := make([]*array, len(arrays))
	for ii, a := range arrays {
		var err error
		expanded[ii], err = a.reshape(append([]int{1}, a.shape.Dimensions...))
		if err != nil {
			return nil, err
		}
	}
	return concatenate(0, expanded...)
}
