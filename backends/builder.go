// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"slices"
)

// ConvolveAxesConfig defines the interpretation of the input/kernel/output tensor axes.
// There must be the same number of spatial dimensions (axes) for each of the 3 tensors.
// Input and output have batch and channel axes. Kernel has inputChannel and outputChannel axes.
type ConvolveAxesConfig struct {
	InputBatch, InputChannels int
	InputSpatial              []int

	KernelInputChannels, KernelOutputChannels int
	KernelSpatial                             []int

	OutputBatch, OutputChannels int
	OutputSpatial               []int
}

// Clone returns a deep copy of the structure.
func (c ConvolveAxesConfig) Clone() ConvolveAxesConfig {
	c2 := c
	c2.InputSpatial = slices.Clone(c.InputSpatial)
	c2.KernelSpatial = slices.Clone(c.KernelSpatial)
	c2.OutputSpatial = slices.Clone(c.OutputSpatial)
	return c2
}

// NumSpatial returns the number of spatial axes.
func (c ConvolveAxesConfig) NumSpatial() int { return len(c.InputSpatial) }

// InputPermutation is the transposition that converts the input to the "NCHW" layout: batch, channels
// and then the spatial axes.
func (c ConvolveAxesConfig) InputPermutation() []int {
	return append([]int{c.InputBatch, c.InputChannels}, c.InputSpatial...)
}

// KernelPermutation is the transposition that converts the kernel to the "OIHW" layout: output channels,
// input channels and then the spatial axes.
func (c ConvolveAxesConfig) KernelPermutation() []int {
	return append([]int{c.KernelOutputChannels, c.KernelInputChannels}, c.KernelSpatial...)
}

// OutputPermutation is the transposition that converts the output to the "NCHW" layout.
// Use its inverse to go from "NCHW" to the output layout.
func (c ConvolveAxesConfig) OutputPermutation() []int {
	return append([]int{c.OutputBatch, c.OutputChannels}, c.OutputSpatial...)
}

// ChannelsFirstAxes returns the axes configuration for the "NCHW" input, "OIHW" kernel and "NCHW" output
// layouts with the given number of spatial axes.
func ChannelsFirstAxes(numSpatial int) ConvolveAxesConfig {
	spatial := make([]int, numSpatial)
	for ii := range spatial {
		spatial[ii] = ii + 2
	}
	return ConvolveAxesConfig{
		InputBatch: 0, InputChannels: 1, InputSpatial: spatial,
		KernelOutputChannels: 0, KernelInputChannels: 1, KernelSpatial: slices.Clone(spatial),
		OutputBatch: 0, OutputChannels: 1, OutputSpatial: slices.Clone(spatial),
	}
}

// String implements fmt.Stringer, in the compact "lhs_spec, rhs_spec, out_spec" permutation form.
func (c ConvolveAxesConfig) String() string {
	return fmt.Sprintf("(lhs_spec=%v, rhs_spec=%v, out_spec=%v)",
		c.InputPermutation(), c.KernelPermutation(), c.OutputPermutation())
}

// PadAxis defines the amount of padding preceding one axis (Start), at the end of axis (End)
// or in between the inputs (Interior).
// Start and End can be negative, in which case elements are trimmed. Interior must be non-negative.
type PadAxis struct {
	Start, End, Interior int
}

// GatherDimensionNumbers describes how a gather maps indices to slices of the operand.
type GatherDimensionNumbers struct {
	// OffsetDims are the output axes that hold the (non-collapsed) axes of the slices taken from the operand.
	OffsetDims []int

	// CollapsedSliceDims are the operand axes that are fully consumed: their slice size must be 1, and they
	// don't show up in the output.
	CollapsedSliceDims []int

	// StartIndexMap maps each element of the last axis of the start indices to an operand axis.
	StartIndexMap []int
}

// String implements fmt.Stringer.
func (d GatherDimensionNumbers) String() string {
	return fmt.Sprintf("GatherDimensionNumbers(offset_dims=%v, collapsed_slice_dims=%v, start_index_map=%v)",
		d.OffsetDims, d.CollapsedSliceDims, d.StartIndexMap)
}

// ScatterDimensionNumbers describes how a scatter maps indices and updates to the operand.
type ScatterDimensionNumbers struct {
	// UpdateWindowDims are the axes of the updates that hold the window written into the operand.
	UpdateWindowDims []int

	// InsertedWindowDims are the operand axes not present in the update windows (with implicit size 1).
	InsertedWindowDims []int

	// ScatterDimsToOperandDims maps each element of the last axis of the indices to an operand axis.
	ScatterDimsToOperandDims []int
}

// String implements fmt.Stringer.
func (d ScatterDimensionNumbers) String() string {
	return fmt.Sprintf("ScatterDimensionNumbers(update_window_dims=%v, inserted_window_dims=%v, scatter_dims_to_operand_dims=%v)",
		d.UpdateWindowDims, d.InsertedWindowDims, d.ScatterDimsToOperandDims)
}

// GatherScatterMode defines how out-of-bounds indices are handled by gather and scatter.
type GatherScatterMode int

const (
	// ModeClip clamps indices so that the slices are always within bounds.
	ModeClip GatherScatterMode = iota

	// ModeFillOrDrop returns a fill value for out-of-bounds gathered slices, and drops out-of-bounds scatter
	// updates.
	ModeFillOrDrop

	// ModePromiseInBounds assumes the caller guarantees indices are in bounds.
	ModePromiseInBounds
)

// String implements fmt.Stringer.
func (m GatherScatterMode) String() string {
	switch m {
	case ModeClip:
		return "CLIP"
	case ModeFillOrDrop:
		return "FILL_OR_DROP"
	case ModePromiseInBounds:
		return "PROMISE_IN_BOUNDS"
	}
	return fmt.Sprintf("GatherScatterMode(%d)", int(m))
}
