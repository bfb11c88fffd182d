// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/backends/target/tracing"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherDims(offsetDims, collapsedSliceDims, startIndexMap []int) backends.GatherDimensionNumbers {
	return backends.GatherDimensionNumbers{
		OffsetDims:         offsetDims,
		CollapsedSliceDims: collapsedSliceDims,
		StartIndexMap:      startIndexMap,
	}
}

func TestGather(t *testing.T) {
	operand := iotaTensor(S(dtypes.Int32, 3, 3))

	t.Run("ScalarIndexing", func(t *testing.T) {
		tr := tracing.New(ops)
		e := NewWithConfig(tr, Config{})
		attrs := GatherAttrs{Dims: gatherDims([]int{0}, []int{0}, []int{0}), SliceSizes: shapes.ConcreteDims(1, 3)}
		got, err := e.Gather(operand, c([]int32{1}), attrs)
		requireValue(t, []int32{3, 4, 5}, got, err)
		assert.Equal(t, 1, tr.Count("StridedSlice"))

		// Out-of-bounds start indices are clamped.
		got, err = e.Gather(operand, c([]int32{5}), attrs)
		requireValue(t, []int32{6, 7, 8}, got, err)

		// Column.
		got, err = e.Gather(operand, c([]int64{1}), GatherAttrs{
			Dims: gatherDims([]int{0}, []int{1}, []int{1}), SliceSizes: shapes.ConcreteDims(3, 1)})
		requireValue(t, []int32{1, 4, 7}, got, err)

		// Slice without collapsed axes.
		got, err = e.Gather(operand, c([]int32{1, 1}), GatherAttrs{
			Dims: gatherDims([]int{0, 1}, nil, []int{0, 1}), SliceSizes: shapes.ConcreteDims(2, 2)})
		requireValue(t, [][]int32{{4, 5}, {7, 8}}, got, err)
	})

	t.Run("MultidimIndexing", func(t *testing.T) {
		tr := tracing.New(ops)
		e := NewWithConfig(tr, Config{})
		got, err := e.Gather(operand, c([][]int32{{2}, {0}}), GatherAttrs{
			Dims: gatherDims([]int{1}, []int{0}, []int{0}), SliceSizes: shapes.ConcreteDims(1, 3)})
		requireValue(t, [][]int32{{6, 7, 8}, {0, 1, 2}}, got, err)
		assert.Equal(t, 1, tr.Count("Gather"))

		got, err = e.Gather(operand, c([][]int32{{0}, {2}}), GatherAttrs{
			Dims: gatherDims([]int{0}, []int{1}, []int{1}), SliceSizes: shapes.ConcreteDims(3, 1)})
		requireValue(t, [][]int32{{0, 2}, {3, 5}, {6, 8}}, got, err)

		// Out-of-bounds indices are clamped.
		got, err = e.Gather(operand, c([][]int32{{-1}, {7}}), GatherAttrs{
			Dims: gatherDims([]int{1}, []int{0}, []int{0}), SliceSizes: shapes.ConcreteDims(1, 3)})
		requireValue(t, [][]int32{{0, 1, 2}, {6, 7, 8}}, got, err)
	})

	t.Run("BatchDims", func(t *testing.T) {
		tr := tracing.New(ops)
		got, err := NewWithConfig(tr, Config{}).Gather(iotaTensor(S(dtypes.Float32, 3, 4)),
			c([][]int32{{0, 1}, {1, 2}, {2, 0}}), GatherAttrs{
				Dims: gatherDims([]int{1}, []int{0}, []int{0, 1}), SliceSizes: shapes.ConcreteDims(1, 2)})
		requireValue(t, [][]float32{{1, 2}, {6, 7}, {8, 9}}, got, err)
		assert.Equal(t, 1, tr.Count("MapFn"))
	})

	t.Run("Rejections", func(t *testing.T) {
		_, err := engine.Gather(iotaTensor(S(dtypes.Float32, 3, 4)), c([][]int32{{0, 1}, {1, 2}}), GatherAttrs{
			Dims: gatherDims([]int{1}, []int{0}, []int{0, 1}), SliceSizes: shapes.ConcreteDims(1, 4)})
		lowerErr := requireLoweringError(t, err, KindUnsupported, "Unsupported arguments for gather: operand shape=")
		assert.Equal(t, []Rejection{
			{Strategy: "scalar_indexing", Reason: "start_indices shape should be 1"},
			{Strategy: "multidim_indexing", Reason: "unsupported dimension numbers"},
			{Strategy: "batch_dims", Reason: "Batch dimensions in operand and start_indices don't agree"},
		}, lowerErr.Rejections)
		assert.Contains(t, err.Error(), "\nbatch_dims: Batch dimensions in operand and start_indices don't agree")
	})

	t.Run("ConfiguredStrategies", func(t *testing.T) {
		e := NewWithConfig(ops, Config{GatherStrategies: []string{"batch_dims"}})
		_, err := e.Gather(operand, c([]int32{1}), GatherAttrs{
			Dims: gatherDims([]int{0}, []int{0}, []int{0}), SliceSizes: shapes.ConcreteDims(1, 3)})
		lowerErr := requireLoweringError(t, err, KindUnsupported, "Unsupported arguments for gather")
		assert.Equal(t, []Rejection{{Strategy: "batch_dims", Reason: "batch_dims is 0 but should be 1"}},
			lowerErr.Rejections)
	})

	t.Run("SymbolicSliceSizes", func(t *testing.T) {
		call := &Call{
			Op:       backends.OpTypeGather,
			Operands: []target.Value{operand, c([]int32{1})},
			InShapes: []shapes.Shape{shapes.MakeDynamic(dtypes.Int32, 3, "n"), S(dtypes.Int32, 1)},
			Attrs: GatherAttrs{
				Dims:       gatherDims([]int{0}, []int{0}, []int{0}),
				SliceSizes: []shapes.Dim{shapes.Concrete(1), shapes.Symbolic("n")},
			},
		}
		got, err := engine.Lower(call)
		requireValue(t, []int32{3, 4, 5}, got, err)

		call.InShapes = nil
		_, err = engine.Lower(call)
		requireLoweringError(t, err, KindUnsupported, "Slice sizes must be known at lowering time")
	})

	t.Run("FillOrDrop", func(t *testing.T) {
		fillValue := -1.0
		attrs := GatherAttrs{
			Dims:       gatherDims([]int{1}, []int{0}, []int{0}),
			SliceSizes: shapes.ConcreteDims(1, 3),
			Mode:       backends.ModeFillOrDrop,
			FillValue:  &fillValue,
		}
		got, err := engine.Gather(operand, c([][]int32{{1}, {5}}), attrs)
		requireValue(t, [][]int32{{3, 4, 5}, {-1, -1, -1}}, got, err)

		wrapped := NewWithConfig(struct{ target.Ops }{ops}, Config{})
		_, err = wrapped.Gather(operand, c([][]int32{{1}, {5}}), attrs)
		requireLoweringError(t, err, KindNotImplemented, "requires a target implementing FillGatherer")
	})
}

func TestGatherStrategiesAreExclusive(t *testing.T) {
	for _, tc := range []struct {
		operand, indices shapes.Shape
		dims             backends.GatherDimensionNumbers
		sizes            []int
	}{
		{S(dtypes.Float32, 3, 3), S(dtypes.Int32, 1), gatherDims([]int{0}, []int{0}, []int{0}), []int{1, 3}},
		{S(dtypes.Float32, 3, 3), S(dtypes.Int32, 2, 1), gatherDims([]int{1}, []int{0}, []int{0}), []int{1, 3}},
		{S(dtypes.Float32, 4), S(dtypes.Int32, 1), gatherDims(nil, []int{0}, []int{0}), []int{1}},
		{S(dtypes.Float32, 4), S(dtypes.Int32, 4, 1), gatherDims(nil, []int{0}, []int{0}), []int{1}},
		{S(dtypes.Float32, 3, 4), S(dtypes.Int32, 3, 2), gatherDims([]int{1}, []int{0}, []int{0, 1}), []int{1, 2}},
		{S(dtypes.Float32, 3, 4, 5), S(dtypes.Int32, 3, 3), gatherDims([]int{1, 2}, []int{0}, []int{0, 1, 2}), []int{1, 2, 2}},
	} {
		request, err := NewGatherRequest(tc.operand, tc.indices, tc.dims, shapes.ConcreteDims(tc.sizes...))
		require.NoError(t, err)
		var accepted []string
		for _, strategy := range gatherStrategies {
			if strategy.precondition(request) == nil {
				accepted = append(accepted, strategy.name)
			}
		}
		assert.Lenf(t, accepted, 1, "request %s accepted by %v", request, accepted)
	}
}

func TestGatherRequest(t *testing.T) {
	_, err := NewGatherRequest(S(dtypes.Float32, 3, 3), S(dtypes.Int32, 1), gatherDims([]int{0}, []int{0}, []int{0}),
		shapes.ConcreteDims(1))
	require.ErrorContains(t, err, "1 slice sizes were given")

	sizes := shapes.ConcreteDims(1, 3)
	dims := gatherDims([]int{0}, []int{0}, []int{0})
	request, err := NewGatherRequest(S(dtypes.Float32, 3, 3), S(dtypes.Int32, 1), dims, sizes)
	require.NoError(t, err)
	sizes[1] = shapes.Concrete(7)
	dims.OffsetDims[0] = 5
	assert.Equal(t, shapes.ConcreteDims(1, 3), request.SliceSizes())
	assert.Equal(t, []int{0}, request.Dims().OffsetDims)
	request.Dims().OffsetDims[0] = 5
	request.Dims().StartIndexMap[0] = 1
	request.SliceSizes()[0] = shapes.Concrete(3)
	assert.Equal(t, []int{0}, request.Dims().OffsetDims)
	assert.Equal(t, []int{0}, request.Dims().StartIndexMap)
	assert.Equal(t, shapes.ConcreteDims(1, 3), request.SliceSizes())
	assert.Contains(t, request.String(), "operand shape=")
	assert.Contains(t, request.String(), "slice_sizes=")
}

func TestDefaultFillValue(t *testing.T) {
	assert.Equal(t, 1.0, defaultFillValue(dtypes.Bool))
	assert.Equal(t, float64(math.MinInt32), defaultFillValue(dtypes.Int32))
	assert.Equal(t, float64(math.MaxUint8), defaultFillValue(dtypes.Uint8))
	assert.True(t, math.IsNaN(defaultFillValue(dtypes.Float32)))
}
