// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestAxisBindingsKey(t *testing.T) {
	tests := []struct {
		name     string
		bindings AxisBindings
		want     string
	}{
		{name: "empty", bindings: AxisBindings{}, want: ""},
		{name: "nil", bindings: nil, want: ""},
		{name: "single", bindings: AxisBindings{"batch": 32}, want: "batch=32"},
		{name: "insertion_order_ignored", bindings: AxisBindings{"seq": 128, "batch": 32, "hidden": 512},
			want: "batch=32,hidden=512,seq=128"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.bindings.Key())
		})
	}
}

func TestAxisBindingsCloneAndMerge(t *testing.T) {
	original := AxisBindings{"batch": 32, "seq": 128}
	clone := original.Clone()
	require.Equal(t, original, clone)
	clone["batch"] = 64
	require.Equal(t, 32, original["batch"])
	var nilBindings AxisBindings
	require.Nil(t, nilBindings.Clone())

	ab := AxisBindings{"batch": 32}
	require.NoError(t, ab.Merge(AxisBindings{"seq": 128, "batch": 32}))
	require.Equal(t, 128, ab["seq"])
	err := ab.Merge(AxisBindings{"batch": 64})
	require.Error(t, err)
	require.Contains(t, err.Error(), "conflicting")
}

func TestShapeResolve(t *testing.T) {
	pattern := MakeDynamic(dtypes.Float32, "batch", "seq", 512)

	resolved := pattern.Resolve(AxisBindings{"batch": 32, "seq": 128})
	require.Equal(t, []int{32, 128, 512}, resolved.Dimensions)
	require.True(t, resolved.IsFullyConcrete())
	require.True(t, resolved.Equal(Make(dtypes.Float32, 32, 128, 512)))
	require.Equal(t, DimDynamic, pattern.Dimensions[0], "original must not change")

	partial := pattern.Resolve(AxisBindings{"batch": 32})
	require.Equal(t, []int{32, DimDynamic, 512}, partial.Dimensions)
	require.Equal(t, "seq", partial.AxisName(1))
	require.False(t, partial.IsFullyConcrete())

	static := Make(dtypes.Float32, 32, 512)
	require.Equal(t, static, static.Resolve(AxisBindings{"batch": 64}))
	require.Equal(t, pattern, pattern.Resolve(nil))
}

func TestResolveDims(t *testing.T) {
	ab := AxisBindings{"batch": 7}
	values, err := ab.ResolveDims(MakeDims("batch", 1, 3))
	require.NoError(t, err)
	require.Equal(t, []int{7, 1, 3}, values)

	_, err = ab.ResolveDims(MakeDims("seq", 1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "seq")
}

func TestExtractBindings(t *testing.T) {
	t.Run("multiple_axes", func(t *testing.T) {
		bindings, err := ExtractBindings(MakeDynamic(dtypes.Float32, "batch", "seq", 512), Make(dtypes.Float32, 32, 128, 512))
		require.NoError(t, err)
		require.Equal(t, AxisBindings{"batch": 32, "seq": 128}, bindings)
	})

	t.Run("same_axis_different_value", func(t *testing.T) {
		_, err := ExtractBindings(MakeDynamic(dtypes.Float32, "batch", "batch"), Make(dtypes.Float32, 32, 64))
		require.Error(t, err)
		require.Contains(t, err.Error(), "conflicting")
	})

	t.Run("static_dimension_mismatch", func(t *testing.T) {
		_, err := ExtractBindings(MakeDynamic(dtypes.Float32, "batch", 512), Make(dtypes.Float32, 32, 256))
		require.Error(t, err)
		require.Contains(t, err.Error(), "mismatch")
	})

	t.Run("rank_mismatch", func(t *testing.T) {
		_, err := ExtractBindings(MakeDynamic(dtypes.Float32, "batch", 512), Make(dtypes.Float32, 32, 512, 768))
		require.Error(t, err)
		require.Contains(t, err.Error(), "rank")
	})

	t.Run("dtype_mismatch", func(t *testing.T) {
		_, err := ExtractBindings(MakeDynamic(dtypes.Float32, "batch", 512), Make(dtypes.Float64, 32, 512))
		require.Error(t, err)
		require.Contains(t, err.Error(), "dtype")
	})

	t.Run("accumulate", func(t *testing.T) {
		ab := AxisBindings{}
		require.NoError(t, ab.Extract(MakeDynamic(dtypes.Float32, "batch", 3), Make(dtypes.Float32, 5, 3)))
		require.NoError(t, ab.Extract(MakeDynamic(dtypes.Int32, "batch", "k"), Make(dtypes.Int32, 5, 2)))
		require.Equal(t, AxisBindings{"batch": 5, "k": 2}, ab)
		require.Error(t, ab.Extract(MakeDynamic(dtypes.Int32, "batch"), Make(dtypes.Int32, 6)))
	})
}
