// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"testing"

	"github.com/gomlx/lowering/backends/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaddingFor(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 0}, {0, 0}}, PaddingFor(target.PaddingValid, []int{5, 5}, []int{3, 2}, []int{1, 2}))
	assert.Equal(t, [][2]int{{1, 1}, {0, 1}}, PaddingFor(target.PaddingSame, []int{5, 5}, []int{3, 2}, []int{1, 2}))

	// Windows smaller than the stride need no padding.
	assert.Equal(t, [][2]int{{0, 0}}, PaddingFor(target.PaddingSame, []int{6}, []int{2}, []int{3}))
}

func TestClassifyPadding(t *testing.T) {
	in, window, strides := []int{5, 5}, []int{3, 2}, []int{1, 2}
	for _, scheme := range []target.Padding{target.PaddingValid, target.PaddingSame} {
		paddings := PaddingFor(scheme, in, window, strides)
		assert.Equal(t, scheme, ClassifyPadding(in, window, strides, paddings))
	}
	assert.Equal(t, target.PaddingExplicit, ClassifyPadding(in, window, strides, [][2]int{{2, 0}, {0, 0}}))

	// When both schemes match, VALID is reported.
	assert.Equal(t, target.PaddingValid, ClassifyPadding([]int{4}, []int{1}, []int{1}, [][2]int{{0, 0}}))
}

func TestClassifyTransposePadding(t *testing.T) {
	padding, err := ClassifyTransposePadding([]int{3, 3}, []int{2, 2}, [][2]int{{2, 2}, {2, 2}})
	require.NoError(t, err)
	assert.Equal(t, target.PaddingValid, padding)

	padding, err = ClassifyTransposePadding([]int{3, 3}, []int{2, 2}, [][2]int{{2, 1}, {2, 1}})
	require.NoError(t, err)
	assert.Equal(t, target.PaddingSame, padding)

	padding, err = ClassifyTransposePadding([]int{2}, []int{3}, [][2]int{{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, target.PaddingValid, padding)

	_, err = ClassifyTransposePadding([]int{3, 3}, []int{2, 2}, [][2]int{{0, 0}, {0, 0}})
	require.ErrorContains(t, err, "Transpose convolution padding mode must be `SAME` or `VALID`.")

	_, err = ClassifyTransposePadding([]int{3}, []int{2, 2}, [][2]int{{2, 2}})
	require.ErrorContains(t, err, "found different lengths")
}
