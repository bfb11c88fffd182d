// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eager

import (
	"slices"

	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Pad implements target.Ops.
func (o *Ops) Pad(x target.Value, paddings [][2]int, constant target.Value) (target.Value, error) {
	arrays, err := toArrays("Pad", x, constant)
	if err != nil {
		return nil, err
	}
	a, c := arrays[0], arrays[1]
	if err = sameDType("Pad", a, c); err != nil {
		return nil, err
	}
	if !c.shape.IsScalar() {
		return nil, errors.Errorf("eager.Pad: constant must be a scalar, got %s", c.shape)
	}
	rank := a.shape.Rank()
	if len(paddings) != rank {
		return nil, errors.Errorf("eager.Pad: paddings %v must have one pair per axis of %s", paddings, a.shape)
	}
	outDims := make([]int, rank)
	for axis, pad := range paddings {
		if pad[0] < 0 || pad[1] < 0 {
			return nil, errors.Errorf("eager.Pad: paddings must be non-negative, got %v", paddings)
		}
		outDims[axis] = a.shape.Dimensions[axis] + pad[0] + pad[1]
	}
	out := newArray(a.shape.DType, outDims...)
	for ii := range out.data {
		out.data[ii] = c.data[0]
	}
	outStrides := out.shape.Strides()
	outIndices := make([]int, rank)
	for inIdx, indices := range a.shape.Iter() {
		for axis, i := range indices {
			outIndices[axis] = i + paddings[axis][0]
		}
		out.data[flatIndex(outIndices, outStrides)] = a.data[inIdx]
	}
	return out.value()
}

// sliceBlock copies the block [begin, begin+size) of a.
func (a *array) sliceBlock(begin, size []int) *array {
	out := newArray(a.shape.DType, size...)
	inStrides := a.shape.Strides()
	inIndices := make([]int, len(begin))
	for outIdx, indices := range out.shape.Iter() {
		for axis, i := range indices {
			inIndices[axis] = begin[axis] + i
		}
		out.data[outIdx] = a.data[flatIndex(inIndices, inStrides)]
	}
	return out
}

// Slice implements target.Ops. A size of -1 takes all remaining elements of the axis.
func (o *Ops) Slice(x target.Value, begin target.Value, size []int) (target.Value, error) {
	a, err := toArray("Slice", x)
	if err != nil {
		return nil, err
	}
	starts, err := toInts("Slice", "begin", begin)
	if err != nil {
		return nil, err
	}
	out, err := a.slice(starts, size)
	if err != nil {
		return nil, err
	}
	return out.value()
}

func (a *array) slice(begin, size []int) (*array, error) {
	rank := a.shape.Rank()
	if len(begin) != rank || len(size) != rank {
		return nil, errors.Errorf("eager.Slice: begin %v and size %v must have one value per axis of %s", begin, size, a.shape)
	}
	size = slices.Clone(size)
	for axis, dim := range a.shape.Dimensions {
		if size[axis] == -1 {
			size[axis] = dim - begin[axis]
		}
		if begin[axis] < 0 || size[axis] < 0 || begin[axis]+size[axis] > dim {
			return nil, errors.Errorf("eager.Slice: begin %v and size %v out of bounds for %s", begin, size, a.shape)
		}
	}
	return a.sliceBlock(begin, size), nil
}

// StridedSlice implements target.Ops, with unit strides.
//
// begin and end are clamped to the axes' dimensions, and an end smaller than begin yields an empty axis.
// Axes in shrinkAxisMask take the single element at begin, which must be in range, and are removed.
func (o *Ops) StridedSlice(x target.Value, begin, end target.Value, shrinkAxisMask int) (target.Value, error) {
	a, err := toArray("StridedSlice", x)
	if err != nil {
		return nil, err
	}
	starts, err := toInts("StridedSlice", "begin", begin)
	if err != nil {
		return nil, err
	}
	ends, err := toInts("StridedSlice", "end", end)
	if err != nil {
		return nil, err
	}
	rank := a.shape.Rank()
	if len(starts) != rank || len(ends) != rank {
		return nil, errors.Errorf("eager.StridedSlice: begin %v and end %v must have one value per axis of %s", starts, ends, a.shape)
	}
	size := make([]int, rank)
	var outDims []int
	for axis, dim := range a.shape.Dimensions {
		if shrinkAxisMask&(1<<axis) != 0 {
			if starts[axis] < 0 || starts[axis] >= dim {
				return nil, errors.Errorf("eager.StridedSlice: index %d out of bounds for shrunk axis %d of %s",
					starts[axis], axis, a.shape)
			}
			size[axis] = 1
			continue
		}
		starts[axis] = min(max(starts[axis], 0), dim)
		ends[axis] = min(max(ends[axis], 0), dim)
		size[axis] = max(ends[axis]-starts[axis], 0)
		outDims = append(outDims, size[axis])
	}
	out, err := a.sliceBlock(starts, size).reshape(outDims)
	if err != nil {
		return nil, err
	}
	return out.value()
}

// Gather implements target.Ops.
func (o *Ops) Gather(params, indices target.Value, axis int) (target.Value, error) {
	p, err := toArray("Gather", params)
	if err != nil {
		return nil, err
	}
	idxArray, err := toArray("Gather", indices)
	if err != nil {
		return nil, err
	}
	if !idxArray.shape.DType.IsInt() {
		return nil, errors.Errorf("eager.Gather: indices must be integers, got %s", idxArray.shape)
	}
	rank := p.shape.Rank()
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, errors.Errorf("eager.Gather: axis out of range for %s", p.shape)
	}
	dim := p.shape.Dimensions[axis]
	outDims := slices.Concat(p.shape.Dimensions[:axis], idxArray.shape.Dimensions, p.shape.Dimensions[axis+1:])
	out := newArray(p.shape.DType, outDims...)
	inStrides := p.shape.Strides()
	inIndices := make([]int, rank)
	idxRank := idxArray.shape.Rank()
	idxStrides := idxArray.shape.Strides()
	for outIdx, indices := range out.shape.Iter() {
		copy(inIndices[:axis], indices[:axis])
		copy(inIndices[axis+1:], indices[axis+idxRank:])
		i := int(idxArray.data[flatIndex(indices[axis:axis+idxRank], idxStrides)])
		if i < 0 || i >= dim {
			return nil, errors.Errorf("eager.Gather: index %d out of bounds for axis %d of %s", i, axis, p.shape)
		}
		inIndices[axis] = i
		out.data[outIdx] = p.data[flatIndex(inIndices, inStrides)]
	}
	return out.value()
}

// ndIndices reads indices of shape [..., depth] and returns the flat list of the index vectors, along with the
// batch dimensions (all but the last).
func ndIndices(opName string, indices target.Value) (vectors [][]int, depth int, batchDims []int, err error) {
	idxArray, err := toArray(opName, indices)
	if err != nil {
		return nil, 0, nil, err
	}
	if !idxArray.shape.DType.IsInt() || idxArray.shape.Rank() < 1 {
		return nil, 0, nil, errors.Errorf("eager.%s: indices must be integers of rank >= 1, got %s", opName, idxArray.shape)
	}
	depth = xslices.Last(idxArray.shape.Dimensions)
	batchDims = idxArray.shape.Dimensions[:idxArray.shape.Rank()-1]
	numVectors := 1
	for _, dim := range batchDims {
		numVectors *= dim
	}
	vectors = make([][]int, numVectors)
	for ii := range vectors {
		vectors[ii] = make([]int, depth)
		for jj := range depth {
			vectors[ii][jj] = int(idxArray.data[ii*depth+jj])
		}
	}
	return vectors, depth, batchDims, nil
}

// ndSlices maps each index vector (pointing into the leading axes of dims) to the flat offset of the
// corresponding slice, returning also the size of each slice and its dimensions.
func ndSlices(opName string, vectors [][]int, depth int, dims []int) (offsets []int, sliceSize int, sliceDims []int, err error) {
	if depth > len(dims) {
		return nil, 0, nil, errors.Errorf("eager.%s: index depth %d larger than the rank of %v", opName, depth, dims)
	}
	sliceDims = dims[depth:]
	sliceSize = 1
	for _, dim := range sliceDims {
		sliceSize *= dim
	}
	offsets = make([]int, len(vectors))
	for ii, vector := range vectors {
		offset := 0
		for axis, i := range vector {
			if i < 0 || i >= dims[axis] {
				return nil, 0, nil, errors.Errorf("eager.%s: index %v out of bounds for dimensions %v", opName, vector, dims)
			}
			offset = offset*dims[axis] + i
		}
		offsets[ii] = offset * sliceSize
	}
	return
}

// GatherND implements target.Ops.
func (o *Ops) GatherND(params, indices target.Value) (target.Value, error) {
	p, err := toArray("GatherND", params)
	if err != nil {
		return nil, err
	}
	vectors, depth, batchDims, err := ndIndices("GatherND", indices)
	if err != nil {
		return nil, err
	}
	offsets, sliceSize, sliceDims, err := ndSlices("GatherND", vectors, depth, p.shape.Dimensions)
	if err != nil {
		return nil, err
	}
	out := newArray(p.shape.DType, slices.Concat(batchDims, sliceDims)...)
	for ii, offset := range offsets {
		copy(out.data[ii*sliceSize:(ii+1)*sliceSize], p.data[offset:offset+sliceSize])
	}
	return out.value()
}

// scatterND writes (or, if accumulate, adds) the updates into out.
func scatterND(opName string, out *array, indices, updates target.Value, accumulate bool) error {
	u, err := toArray(opName, updates)
	if err != nil {
		return err
	}
	if err = sameDType(opName, out, u); err != nil {
		return err
	}
	vectors, depth, batchDims, err := ndIndices(opName, indices)
	if err != nil {
		return err
	}
	offsets, sliceSize, sliceDims, err := ndSlices(opName, vectors, depth, out.shape.Dimensions)
	if err != nil {
		return err
	}
	if wantDims := slices.Concat(batchDims, sliceDims); !slices.Equal(u.shape.Dimensions, wantDims) {
		return errors.Errorf("eager.%s: updates shape %s doesn't match the expected dimensions %v", opName, u.shape, wantDims)
	}
	for ii, offset := range offsets {
		for jj := range sliceSize {
			if accumulate {
				out.data[offset+jj] += u.data[ii*sliceSize+jj]
			} else {
				out.data[offset+jj] = u.data[ii*sliceSize+jj]
			}
		}
	}
	return nil
}

// ScatterND implements target.Ops. The result has the dtype of updates; for bool updates, duplicates are or-ed.
func (o *Ops) ScatterND(indices, updates target.Value, shape []int) (target.Value, error) {
	u, err := toTensor("ScatterND", updates)
	if err != nil {
		return nil, err
	}
	for _, dim := range shape {
		if dim < 0 {
			return nil, errors.Errorf("eager.ScatterND: invalid shape %v", shape)
		}
	}
	out := newArray(u.DType(), shape...)
	if err = scatterND("ScatterND", out, indices, updates, true); err != nil {
		return nil, err
	}
	return out.value()
}

// TensorScatterNDUpdate implements target.Ops. For duplicate indices the last update wins.
func (o *Ops) TensorScatterNDUpdate(x, indices, updates target.Value) (target.Value, error) {
	a, err := toArray("TensorScatterNDUpdate", x)
	if err != nil {
		return nil, err
	}
	out := &array{shape: a.shape, data: slices.Clone(a.data)}
	if err = scatterND("TensorScatterNDUpdate", out, indices, updates, false); err != nil {
		return nil, err
	}
	return out.value()
}

// MapFn implements target.Ops. The calls to fn are distributed over the pool of workers, so fn must
// be safe for concurrent use.
func (o *Ops) MapFn(fn func(slices []target.Value) (target.Value, error), elems ...target.Value) (target.Value, error) {
	if len(elems) == 0 {
		return nil, errors.New("eager.MapFn: no elements given")
	}
	arrays, err := toArrays("MapFn", elems...)
	if err != nil {
		return nil, err
	}
	n := -1
	for _, a := range arrays {
		if a.shape.Rank() == 0 || (n >= 0 && a.shape.Dimensions[0] != n) {
			return nil, errors.Errorf("eager.MapFn: elements must have the same leading dimension, got %s", a.shape)
		}
		n = a.shape.Dimensions[0]
	}
	if n == 0 {
		return nil, errors.New("eager.MapFn: cannot infer the shape of the result of mapping over 0 elements")
	}
	results := make([]*array, n)
	err = o.pool.Map(n, func(i int) error {
		sliced := make([]target.Value, len(arrays))
		for ii, a := range arrays {
			begin := make([]int, a.shape.Rank())
			begin[0] = i
			size := slices.Clone(a.shape.Dimensions)
			size[0] = 1
			element, err := a.sliceBlock(begin, size).reshape(size[1:])
			if err != nil {
				return err
			}
			if sliced[ii], err = element.value(); err != nil {
				return err
			}
		}
		result, err := fn(sliced)
		if err != nil {
			return err
		}
		results[i], err = toArray("MapFn", result)
		return err
	})
	if err != nil {
		return nil, errors.WithMessage(err, "eager.MapFn")
	}
	for _, r := range results[1:] {
		if !r.shape.Equal(results[0].shape) {
			return nil, errors.Errorf("eager.MapFn: fn returned values of different shapes, %s and %s", results[0].shape, r.shape)
		}
	}
	out, err := stack(results...)
	if err != nil {
		return nil, err
	}
	return out.value()
}
