// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target/tracing"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
)

// scatterAttrs for scatters with index depth 1 into the operand axis, in bounds.
func scatterAttrs(axis int, updateWindowDims ...int) ScatterAttrs {
	return ScatterAttrs{
		Dims: backends.ScatterDimensionNumbers{
			UpdateWindowDims:         updateWindowDims,
			InsertedWindowDims:       []int{axis},
			ScatterDimsToOperandDims: []int{axis},
		},
		Mode: backends.ModePromiseInBounds,
	}
}

func TestScatter(t *testing.T) {
	t.Run("UniqueReplace", func(t *testing.T) {
		tr := tracing.New(ops)
		attrs := scatterAttrs(0, 1)
		attrs.UniqueIndices = true
		got, err := NewWithConfig(tr, Config{}).Scatter(backends.OpTypeScatter,
			tensors.FromShape(S(dtypes.Float32, 3, 2)), c([][]int32{{2}, {0}}), c([][]float32{{1, 2}, {3, 4}}), attrs)
		requireValue(t, [][]float32{{3, 4}, {0, 0}, {1, 2}}, got, err)
		assert.Equal(t, 1, tr.Count("TensorScatterNDUpdate"))
	})

	t.Run("RankOneIndices", func(t *testing.T) {
		got, err := engine.Scatter(backends.OpTypeScatterAdd,
			c([]float32{1, 2, 3, 4}), c([]int32{1}), c(float32(10)), scatterAttrs(0))
		requireValue(t, []float32{1, 12, 3, 4}, got, err)
	})

	t.Run("AddNonFrontAxis", func(t *testing.T) {
		tr := tracing.New(ops)
		got, err := NewWithConfig(tr, Config{}).Scatter(backends.OpTypeScatterAdd,
			tensors.FromShape(S(dtypes.Float32, 2, 3)), c([][]int32{{2}, {0}, {2}}),
			c([][]float32{{1, 2}, {5, 6}, {3, 4}}), scatterAttrs(1, 1))
		requireValue(t, [][]float32{{5, 0, 4}, {6, 0, 6}}, got, err)
		assert.Equal(t, 1, tr.Count("UnsortedSegmentSum"))
		assert.Equal(t, 2, tr.Count("Transpose"))
	})

	t.Run("Duplicates", func(t *testing.T) {
		operand, indices, updates := c([]float32{1, 5, 3}), c([][]int32{{0}, {0}, {2}}), c([]float32{4, 2, 1})
		for _, tc := range []struct {
			op   backends.OpType
			want []float32
		}{
			{backends.OpTypeScatterAdd, []float32{7, 5, 4}},
			{backends.OpTypeScatterMax, []float32{4, 5, 3}},
			{backends.OpTypeScatterMin, []float32{1, 5, 1}},
			{backends.OpTypeScatterMul, []float32{8, 5, 3}},
		} {
			t.Run(tc.op.String(), func(t *testing.T) {
				got, err := engine.Scatter(tc.op, operand, indices, updates, scatterAttrs(0))
				requireValue(t, tc.want, got, err)
			})
		}
	})

	t.Run("OrderIndependent", func(t *testing.T) {
		operand := c([]int32{2, 2, 2, 2})
		for _, tc := range []struct {
			op   backends.OpType
			want []int32
		}{
			{backends.OpTypeScatterAdd, []int32{8, 2, 6, 2}},
			{backends.OpTypeScatterMin, []int32{2, 2, 1, 2}},
			{backends.OpTypeScatterMax, []int32{6, 2, 3, 2}},
		} {
			t.Run(tc.op.String(), func(t *testing.T) {
				got, err := engine.Scatter(tc.op, operand, c([][]int32{{2}, {0}, {2}}), c([]int32{1, 6, 3}), scatterAttrs(0))
				requireValue(t, tc.want, got, err)
				got, err = engine.Scatter(tc.op, operand, c([][]int32{{2}, {2}, {0}}), c([]int32{3, 1, 6}), scatterAttrs(0))
				requireValue(t, tc.want, got, err)
			})
		}
	})

	t.Run("Rejections", func(t *testing.T) {
		clip := scatterAttrs(0)
		clip.Mode = backends.ModeClip
		for _, tc := range []struct {
			name                      string
			op                        backends.OpType
			operand, indices, updates any
			attrs                     ScatterAttrs
			msg                       string
		}{
			{"Bool", backends.OpTypeScatter, []bool{true, false}, [][]int32{{0}}, []bool{false},
				scatterAttrs(0), "Scatter does not support operands of type Bool"},
			{"NonUniqueReplace", backends.OpTypeScatter, []float32{1, 2}, [][]int32{{0}, {1}}, []float32{3, 4},
				scatterAttrs(0), "Scatter supports unique indices"},
			{"ComplexScatter", backends.OpTypeScatterAdd, []float32{1, 2, 3, 4}, [][]int32{{1}}, [][]float32{{5}},
				ScatterAttrs{Dims: backends.ScatterDimensionNumbers{
					UpdateWindowDims: []int{1}, ScatterDimsToOperandDims: []int{0}}, Mode: backends.ModePromiseInBounds},
				"Complex scatters are not supported"},
			{"ClipMode", backends.OpTypeScatterAdd, []float32{1, 2}, [][]int32{{0}}, []float32{3},
				clip, "Only scatter mode `PROMISE_IN_BOUNDS` is supported"},
			{"PartialWindow", backends.OpTypeScatterAdd, [][]float32{{1, 2, 3}, {4, 5, 6}}, [][]int32{{0}}, [][]float32{{1, 1}},
				scatterAttrs(0, 1), "Update window dimensions [2] must cover the operand dimensions [3] not scattered"},
			{"NonUniqueDepth2", backends.OpTypeScatterAdd, [][]float32{{1, 2}, {3, 4}}, [][]int32{{0, 1}, {1, 0}}, []float32{1, 1},
				ScatterAttrs{Dims: backends.ScatterDimensionNumbers{
					InsertedWindowDims: []int{0, 1}, ScatterDimsToOperandDims: []int{0, 1}}, Mode: backends.ModePromiseInBounds},
				"Scatter supports unique indices"},
		} {
			t.Run(tc.name, func(t *testing.T) {
				_, err := engine.Scatter(tc.op, c(tc.operand), c(tc.indices), c(tc.updates), tc.attrs)
				lowerErr := requireLoweringError(t, err, KindUnsupported, tc.msg)
				assert.Contains(t, lowerErr.Reason, scatterSuffix)
			})
		}
	})
}
