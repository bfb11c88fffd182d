// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIota(t *testing.T) {
	require.Equal(t, []float64{3, 4}, Iota(3.0, 2))
	require.Equal(t, []int{}, Iota(0, 0))
	assert.True(t, IsIota([]int{0, 1, 2}, 0))
	assert.True(t, IsIota([]int{2, 3}, 2))
	assert.False(t, IsIota([]int{0, 2}, 0))
	assert.True(t, IsIota([]int{}, 0))
}

func TestReductions(t *testing.T) {
	assert.Equal(t, 24, Product([]int{2, 3, 4}))
	assert.Equal(t, 1, Product([]int(nil)))
	assert.Equal(t, 1, Min([]int{3, 7, 1}))
	assert.True(t, AllEqual([]int{1, 1}, 1))
	assert.False(t, AllEqual([]int{1, 2}, 1))
	assert.Equal(t, 1, Last([]int{3, 7, 1}))
	assert.Equal(t, []string{"x", "x"}, SliceWithValue(2, "x"))
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
}

func TestPermutations(t *testing.T) {
	nchwToNHWC := []int{0, 2, 3, 1}
	assert.Equal(t, []int{2, 5, 7, 3}, Permute([]int{2, 3, 5, 7}, nchwToNHWC))
	assert.Equal(t, []string{"c", "a"}, Permute([]string{"a", "b", "c"}, []int{2, 0}))
	inv := InvertPermutation(nchwToNHWC)
	assert.Equal(t, []int{0, 3, 1, 2}, inv)
	assert.True(t, IsIota(Permute(nchwToNHWC, inv), 0))
	assert.Empty(t, InvertPermutation(nil))
}

func TestFlag(t *testing.T) {
	values := Flag("test_xslices_flag", []int{1}, "test flag", strconv.Atoi)
	require.NoError(t, flag.Set("test_xslices_flag", "3, 4,5"))
	require.Equal(t, []int{3, 4, 5}, *values)
	require.Error(t, flag.Set("test_xslices_flag", "a"))
}
