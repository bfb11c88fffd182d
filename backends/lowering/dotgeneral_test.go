// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/target/tracing"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transpose2D returns the transposed of a rank-2 tensor.
func transpose2D(x *tensors.Tensor) *tensors.Tensor {
	flat, err := x.Float64s()
	if err != nil {
		panic(err)
	}
	rows, cols := x.Shape().Dimensions[0], x.Shape().Dimensions[1]
	transposed := make([]float64, len(flat))
	for i := range rows {
		for j := range cols {
			transposed[j*rows+i] = flat[i*cols+j]
		}
	}
	t, err := tensors.FromFloat64s(x.DType(), []int{cols, rows}, transposed)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDotGeneral(t *testing.T) {
	for _, noMatMul := range []bool{false, true} {
		tr := tracing.New(ops)
		e := NewWithConfig(tr, Config{NoMatMul: noMatMul})
		expectPrimitive := func(t *testing.T) {
			if noMatMul {
				assert.Equal(t, 1, tr.Count("Einsum"))
				assert.Equal(t, 0, tr.Count("MatMul"))
			} else {
				assert.Equal(t, 1, tr.Count("MatMul"))
				assert.Equal(t, 0, tr.Count("Einsum"))
			}
			tr.Reset()
		}

		t.Run("Batched", func(t *testing.T) {
			lhs := iotaTensor(S(dtypes.Float32, 2, 3, 4))
			rhs := iotaTensor(S(dtypes.Float32, 2, 4, 5))
			got, err := e.DotGeneral(lhs, rhs, DotGeneralAttrs{
				LhsBatchAxes: []int{0}, LhsContractingAxes: []int{2},
				RhsBatchAxes: []int{0}, RhsContractingAxes: []int{1}})
			require.NoError(t, err)
			requireShape(t, S(dtypes.Float32, 2, 3, 5), got)
			lhsFlat, _ := lhs.Float64s()
			rhsFlat, _ := rhs.Float64s()
			want := make([][][]float32, 2)
			for b := range 2 {
				want[b] = naiveMatMul(
					tensors.FromFlatDataAndDimensions(toFloat32s(lhsFlat[b*12:(b+1)*12]), 3, 4),
					tensors.FromFlatDataAndDimensions(toFloat32s(rhsFlat[b*20:(b+1)*20]), 4, 5))
			}
			requireValue(t, want, got, nil)
			expectPrimitive(t)
		})

		t.Run("VectorMatrix", func(t *testing.T) {
			got, err := e.DotGeneral(c([]float32{1, 2}), c([][]float32{{1, 2, 3}, {4, 5, 6}}), DotGeneralAttrs{
				LhsContractingAxes: []int{0}, RhsContractingAxes: []int{0}})
			requireValue(t, []float32{9, 12, 15}, got, err)
			expectPrimitive(t)
		})

		t.Run("MatrixVector", func(t *testing.T) {
			got, err := e.DotGeneral(c([][]float32{{1, 2, 3}, {4, 5, 6}}), c([]float32{1, 0, -1}), DotGeneralAttrs{
				LhsContractingAxes: []int{1}, RhsContractingAxes: []int{0}})
			requireValue(t, []float32{-2, -2}, got, err)
			expectPrimitive(t)
		})

		t.Run("VectorVector", func(t *testing.T) {
			got, err := e.DotGeneral(c([]float32{1, 2, 3}), c([]float32{4, 5, 6}), DotGeneralAttrs{
				LhsContractingAxes: []int{0}, RhsContractingAxes: []int{0}})
			requireValue(t, float32(32), got, err)
			expectPrimitive(t)
		})
	}

	t.Run("TransposedContraction", func(t *testing.T) {
		tr := tracing.New(ops)
		lhs := iotaTensor(S(dtypes.Float32, 4, 5))
		rhs := iotaTensor(S(dtypes.Float32, 4, 3))
		got, err := NewWithConfig(tr, Config{}).DotGeneral(lhs, rhs, DotGeneralAttrs{
			LhsContractingAxes: []int{0}, RhsContractingAxes: []int{0}})
		requireValue(t, naiveMatMul(transpose2D(lhs), rhs), got, err)
		assert.Equal(t, 1, tr.Count("Einsum"))
		assert.Equal(t, 0, tr.Count("MatMul"))
	})

	t.Run("DTypeMismatch", func(t *testing.T) {
		_, err := engine.DotGeneral(c([]float32{1}), c([]float64{1}), DotGeneralAttrs{
			LhsContractingAxes: []int{0}, RhsContractingAxes: []int{0}})
		requireLoweringError(t, err, KindUnsupported, "Operands must have the same dtype")
	})
}

func toFloat32s(values []float64) []float32 {
	result := make([]float32, len(values))
	for ii, v := range values {
		result[ii] = float32(v)
	}
	return result
}

func TestIsMatMul(t *testing.T) {
	assert.True(t, isMatMul(DotGeneralAttrs{LhsContractingAxes: []int{1}, RhsContractingAxes: []int{0}}, 2, 2))
	assert.True(t, isMatMul(DotGeneralAttrs{
		LhsBatchAxes: []int{0, 1}, LhsContractingAxes: []int{3},
		RhsBatchAxes: []int{0, 1}, RhsContractingAxes: []int{2}}, 4, 4))
	// Batch axes not leading.
	assert.False(t, isMatMul(DotGeneralAttrs{
		LhsBatchAxes: []int{1}, LhsContractingAxes: []int{2},
		RhsBatchAxes: []int{1}, RhsContractingAxes: []int{0}}, 3, 3))
	// Contracting the first axis of lhs.
	assert.False(t, isMatMul(DotGeneralAttrs{LhsContractingAxes: []int{0}, RhsContractingAxes: []int{0}}, 2, 2))
	// Two contracting axes.
	assert.False(t, isMatMul(DotGeneralAttrs{LhsContractingAxes: []int{1, 2}, RhsContractingAxes: []int{0, 1}}, 3, 3))
}

func TestEinsumEquation(t *testing.T) {
	equation, err := einsumEquation(DotGeneralAttrs{LhsContractingAxes: []int{0}, RhsContractingAxes: []int{0}}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "eb,ed->bd", equation)

	equation, err = einsumEquation(DotGeneralAttrs{
		LhsBatchAxes: []int{1}, LhsContractingAxes: []int{2},
		RhsBatchAxes: []int{0}, RhsContractingAxes: []int{1}}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, "agf,gf->ga", equation)

	_, err = einsumEquation(DotGeneralAttrs{}, 30, 30)
	require.ErrorContains(t, err, "labels")
}
