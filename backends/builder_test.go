// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvolveAxesConfig(t *testing.T) {
	// Channels last: input NHWC, kernel HWIO, output NHWC.
	axes := ConvolveAxesConfig{
		InputBatch: 0, InputChannels: 3, InputSpatial: []int{1, 2},
		KernelInputChannels: 2, KernelOutputChannels: 3, KernelSpatial: []int{0, 1},
		OutputBatch: 0, OutputChannels: 3, OutputSpatial: []int{1, 2},
	}
	assert.Equal(t, []int{0, 3, 1, 2}, axes.InputPermutation())
	assert.Equal(t, []int{3, 2, 0, 1}, axes.KernelPermutation())
	assert.Equal(t, []int{0, 3, 1, 2}, axes.OutputPermutation())
	assert.Equal(t, 2, axes.NumSpatial())

	c2 := axes.Clone()
	c2.InputSpatial[0] = 7
	assert.Equal(t, 1, axes.InputSpatial[0])

	cf := ChannelsFirstAxes(1)
	assert.Equal(t, []int{0, 1, 2}, cf.InputPermutation())
	assert.Equal(t, []int{0, 1, 2}, cf.KernelPermutation())
	assert.Equal(t, "(lhs_spec=[0 1 2], rhs_spec=[0 1 2], out_spec=[0 1 2])", cf.String())
}

func TestOpTypeEnumer(t *testing.T) {
	assert.Equal(t, "ConvGeneral", OpTypeConvGeneral.String())
	assert.Equal(t, "DynamicUpdateSlice", OpTypeDynamicUpdateSlice.String())
	op, err := OpTypeString("scatteradd")
	require.NoError(t, err)
	assert.Equal(t, OpTypeScatterAdd, op)
	_, err = OpTypeString("foo")
	require.Error(t, err)
	assert.Len(t, OpTypeValues(), int(OpTypeLast)+1)
	assert.Equal(t, "OpType(100)", OpType(100).String())
}

func TestCapabilities(t *testing.T) {
	c := Capabilities{
		Operations: map[OpType]bool{OpTypePad: true, OpTypeConvGeneral: true, OpTypeSort: false},
		DTypes:     map[dtypes.DType]bool{dtypes.Float32: true},
	}
	c2 := c.Clone()
	c2.Operations[OpTypeSort] = true
	assert.Equal(t, []OpType{OpTypeConvGeneral, OpTypePad}, c.SupportedOps())
	assert.Equal(t, []OpType{OpTypeConvGeneral, OpTypePad, OpTypeSort}, c2.SupportedOps())
	assert.Equal(t, "PROMISE_IN_BOUNDS", ModePromiseInBounds.String())
}
