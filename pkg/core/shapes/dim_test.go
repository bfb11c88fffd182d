// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimEqual(t *testing.T) {
	assert.True(t, Concrete(3).Equal(Concrete(3)))
	assert.False(t, Concrete(3).Equal(Concrete(4)))
	assert.True(t, Symbolic("b").Equal(Symbolic("b")))
	assert.False(t, Symbolic("b").Equal(Symbolic("t")))
	assert.False(t, Symbolic("b").Equal(Concrete(3)))
	assert.False(t, Concrete(1).Equal(Symbolic("b")))
	assert.False(t, Concrete(DimDynamic).Equal(Concrete(DimDynamic)), "unnamed dynamic dims are never equal")
	assert.True(t, Concrete(1).EqualValue(1))
	assert.False(t, Symbolic("one").EqualValue(1))
}

func TestDims(t *testing.T) {
	s := MakeDynamic(dtypes.Float32, "batch", 3)
	require.Equal(t, []Dim{Symbolic("batch"), Concrete(3)}, s.Dims())
	require.Equal(t, Symbolic("batch"), s.AxisDim(0))
	require.Equal(t, Concrete(3), s.AxisDim(-1))
	require.True(t, DimsEqual(s.Dims(), MakeDims("batch", 3)))
	require.False(t, DimsEqual(s.Dims(), MakeDims("batch", 3, 1)))
	require.Equal(t, "(batch, 3)", DimsString(s.Dims()))
	require.True(t, FromDims(dtypes.Float32, s.Dims()).Equal(s))
	require.Equal(t, ConcreteDims(1, 2), MakeDims(1, 2))
}
