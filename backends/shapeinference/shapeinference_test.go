// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapeinference

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Aliases
var (
	Bool    = dtypes.Bool
	F32     = dtypes.Float32
	I32     = dtypes.Int32
	I64     = dtypes.Int64
	S       = shapes.Make
	SD      = shapes.MakeDynamic
	MakeDim = shapes.MakeDims
)

func TestTransposeOp(t *testing.T) {
	output, err := TransposeOp(SD(F32, "batch", 3, 5), []int{2, 0, 1})
	require.NoError(t, err)
	assert.True(t, output.Equal(SD(F32, 5, "batch", 3)), "got %s", output)

	_, err = TransposeOp(S(F32, 2, 3), []int{0, 0})
	require.Error(t, err)
	_, err = TransposeOp(S(F32, 2, 3), []int{0})
	require.Error(t, err)
}

func TestArgMinMaxOp(t *testing.T) {
	output, err := ArgMinMaxOp(SD(F32, "batch", 7, 3), 1, I32)
	require.NoError(t, err)
	assert.True(t, output.Equal(SD(I32, "batch", 3)))
	_, err = ArgMinMaxOp(S(F32, 7), 0, F32)
	require.Error(t, err)
	_, err = ArgMinMaxOp(S(Bool, 7), 0, I32)
	require.Error(t, err)
	_, err = ArgMinMaxOp(S(F32, 7), 1, I32)
	require.Error(t, err)
}

func TestPadOp(t *testing.T) {
	output, err := PadOp(SD(F32, "batch", 4, 3), []backends.PadAxis{{}, {Start: 1, End: 2, Interior: 1}, {Start: -1, End: -1}})
	require.NoError(t, err)
	assert.True(t, output.Equal(SD(F32, "batch", 10, 1)), "got %s", output)

	// Zero-sized axis gets no interior padding.
	output, err = PadOp(S(F32, 0), []backends.PadAxis{{Start: 1, End: 1, Interior: 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, output.Dimensions)

	_, err = PadOp(SD(F32, "batch"), []backends.PadAxis{{Start: 1}})
	require.ErrorContains(t, err, "symbolic")
	_, err = PadOp(S(F32, 2), []backends.PadAxis{{Start: -3}})
	require.Error(t, err)
	_, err = PadOp(S(F32, 2), []backends.PadAxis{{Interior: -1}})
	require.Error(t, err)
}

func TestDotGeneralOp(t *testing.T) {
	output, err := DotGeneralOp(S(F32, 5, 4), []int{1}, nil, S(F32, 4, 6), []int{0}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, output.Dimensions)

	output, err = DotGeneralOp(SD(F32, 3, "batch", 4), []int{2}, []int{1}, SD(F32, "batch", 4, 7), []int{1}, []int{0})
	require.NoError(t, err)
	assert.True(t, output.Equal(SD(F32, "batch", 3, 7)), "got %s", output)

	_, err = DotGeneralOp(S(F32, 5, 4), []int{1}, nil, S(F32, 3, 6), []int{0}, nil)
	require.Error(t, err)
	_, err = DotGeneralOp(S(F32, 5, 4), []int{1}, nil, S(I32, 4, 6), []int{0}, nil)
	require.Error(t, err)
	// Symbolic vs concrete are never structurally equal.
	_, err = DotGeneralOp(SD(F32, 5, "n"), []int{1}, nil, S(F32, 4, 6), []int{0}, nil)
	require.Error(t, err)
}

func TestDynamicSliceOps(t *testing.T) {
	output, err := DynamicSliceOp(SD(F32, "batch", 10), 2, MakeDim("batch", 5))
	require.NoError(t, err)
	assert.True(t, output.Equal(SD(F32, "batch", 5)))
	_, err = DynamicSliceOp(S(F32, 10), 1, MakeDim(11))
	require.Error(t, err)
	_, err = DynamicSliceOp(S(F32, 10), 2, MakeDim(1))
	require.Error(t, err)

	output, err = DynamicUpdateSliceOp(S(F32, 10, 3), S(F32, 2, 3), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 3}, output.Dimensions)
	_, err = DynamicUpdateSliceOp(S(F32, 10, 3), S(F32, 2, 4), 2)
	require.Error(t, err)
}

func TestReduceWindowOp(t *testing.T) {
	output, err := ReduceWindowOp(SD(F32, "batch", 8, 8, 3), []int{1, 2, 2, 1}, []int{1, 2, 2, 1}, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, output.Equal(SD(F32, "batch", 4, 4, 3)), "got %s", output)

	output, err = ReduceWindowOp(S(F32, 5), []int{3}, []int{1}, nil, nil, [][2]int{{1, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, output.Dimensions)

	_, err = ReduceWindowOp(S(F32, 2), []int{3}, []int{1}, nil, nil, nil)
	require.Error(t, err)
	_, err = ReduceWindowOp(SD(F32, "n"), []int{2}, []int{1}, nil, nil, nil)
	require.Error(t, err)
}

func TestConvGeneralOp(t *testing.T) {
	axes := backends.ChannelsFirstAxes(2)
	output, err := ConvGeneralOp(S(F32, 1, 3, 8, 8), S(F32, 4, 3, 3, 3), axes, []int{1, 1}, nil, nil, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 6, 6}, output.Dimensions)

	// Symbolic batch, strides, padding and dilations.
	output, err = ConvGeneralOp(SD(F32, "batch", 3, 9, 9), S(F32, 4, 3, 3, 3), axes, []int{2, 2}, [][2]int{{1, 1}, {0, 0}}, nil, []int{2, 1}, 1, 1)
	require.NoError(t, err)
	assert.True(t, output.Equal(SD(F32, "batch", 4, 4, 4)), "got %s", output)

	// Input dilation (transposed convolution).
	output, err = ConvGeneralOp(S(F32, 1, 1, 3), S(F32, 1, 1, 2), backends.ChannelsFirstAxes(1), nil, [][2]int{{1, 1}}, []int{2}, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 6}, output.Dimensions)

	// Kernel larger than input: empty spatial output.
	output, err = ConvGeneralOp(S(F32, 1, 3, 2, 8), S(F32, 4, 3, 3, 3), axes, nil, nil, nil, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 0, 6}, output.Dimensions)

	// Depthwise.
	output, err = ConvGeneralOp(S(F32, 2, 4, 5, 5), S(F32, 8, 1, 3, 3), axes, nil, nil, nil, nil, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 8, 3, 3}, output.Dimensions)

	// Errors.
	_, err = ConvGeneralOp(S(F32, 1, 3, 8, 8), S(F32, 4, 2, 3, 3), axes, nil, nil, nil, nil, 1, 1)
	require.Error(t, err)
	_, err = ConvGeneralOp(S(F32, 1, 3, 8), S(F32, 4, 3, 3, 3), axes, nil, nil, nil, nil, 1, 1)
	require.Error(t, err)
	_, err = ConvGeneralOp(S(F32, 1, 3, 8, 8), S(F32, 4, 3, 3, 3), axes, []int{1}, nil, nil, nil, 1, 1)
	require.Error(t, err)
	_, err = ConvGeneralOp(SD(F32, 1, 3, "h", 8), S(F32, 4, 3, 3, 3), axes, nil, nil, nil, nil, 1, 1)
	require.ErrorContains(t, err, "symbolic")
}

func TestGather(t *testing.T) {
	// Take rows along axis 0: operand [5, 3], indices [4, 1] -> [4, 3].
	dims := backends.GatherDimensionNumbers{OffsetDims: []int{1}, CollapsedSliceDims: []int{0}, StartIndexMap: []int{0}}
	output, err := Gather(S(F32, 5, 3), S(I32, 4, 1), dims, MakeDim(1, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, output.Dimensions)

	// Symbolic batch of indices and symbolic slice size.
	output, err = Gather(SD(F32, 5, "n"), SD(I32, "batch", 1), dims, MakeDim(1, "n"))
	require.NoError(t, err)
	assert.True(t, output.Equal(SD(F32, "batch", "n")), "got %s", output)

	// Scalar indexing: indices [2] -> slices of size [2, 2] with no collapsed axes.
	dims2 := backends.GatherDimensionNumbers{OffsetDims: []int{0, 1}, StartIndexMap: []int{0, 1}}
	output, err = Gather(S(F32, 5, 3), S(I32, 2), dims2, MakeDim(2, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, output.Dimensions)

	_, err = Gather(S(F32, 5, 3), S(I32, 4, 1), dims, MakeDim(2, 3))
	require.ErrorContains(t, err, "collapsed")
	_, err = Gather(S(F32, 5, 3), S(I32, 4, 2), dims, MakeDim(1, 3))
	require.ErrorContains(t, err, "startIndexMap")
	_, err = Gather(S(F32, 5, 3), S(F32, 4, 1), dims, MakeDim(1, 3))
	require.Error(t, err)
	_, err = Gather(S(F32, 5, 3), S(I32, 4, 1), dims, MakeDim(1, 4))
	require.Error(t, err)
}

func TestScatterOp(t *testing.T) {
	dims := backends.ScatterDimensionNumbers{InsertedWindowDims: []int{0}, ScatterDimsToOperandDims: []int{0}}
	output, err := ScatterOp(S(F32, 4), S(I32, 3, 1), S(F32, 3), dims)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, output.Dimensions)

	dims2 := backends.ScatterDimensionNumbers{UpdateWindowDims: []int{1}, InsertedWindowDims: []int{0}, ScatterDimsToOperandDims: []int{0}}
	_, err = ScatterOp(S(F32, 4, 3), S(I32, 2, 1), S(F32, 2, 3), dims2)
	require.NoError(t, err)
	_, err = ScatterOp(S(F32, 4, 3), S(I32, 2, 1), S(F32, 2, 5), dims2)
	require.Error(t, err)
	_, err = ScatterOp(S(F32, 4, 3), S(I32, 2, 1), S(F32, 3, 3), dims2)
	require.Error(t, err)
	_, err = ScatterOp(S(F32, 4), S(I32, 3, 1), S(I32, 3), dims)
	require.Error(t, err)
	_, err = ScatterOp(S(F32, 4), S(I32, 3, 2), S(F32, 3), dims)
	require.Error(t, err)
}
