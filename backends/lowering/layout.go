// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/support/xslices"
)

// composePermutations returns the single permutation equivalent to transposing with p and then with q.
func composePermutations(p, q []int) []int {
	return xslices.Permute(p, q)
}

// Layouts of the 2D convolution primitives, relative to the channels-first layouts.
var (
	nchwToNHWC = []int{0, 2, 3, 1}
	nhwcToNCHW = []int{0, 3, 1, 2}
	oihwToHWIO = []int{2, 3, 1, 0}
	ncwToNWC   = []int{0, 2, 1}
	oiwToWIO   = []int{2, 1, 0}
)

// convInputToNHWC transposes the convolution input to NHWC. A 1D input (NWC) gets a trailing spatial axis of
// dimension 1.
func (st *callState) convInputToNHWC(x target.Value, axes backends.ConvolveAxesConfig) target.Value {
	if axes.NumSpatial() == 1 {
		x = st.transpose(x, composePermutations(axes.InputPermutation(), ncwToNWC))
		return st.expandDims(x, 2)
	}
	return st.transpose(x, composePermutations(axes.InputPermutation(), nchwToNHWC))
}

// convKernelToHWIO transposes the convolution kernel to HWIO. A 1D kernel (WIO) gets a trailing spatial axis of
// dimension 1.
func (st *callState) convKernelToHWIO(kernel target.Value, axes backends.ConvolveAxesConfig) target.Value {
	if axes.NumSpatial() == 1 {
		kernel = st.transpose(kernel, composePermutations(axes.KernelPermutation(), oiwToWIO))
		return st.expandDims(kernel, 1)
	}
	return st.transpose(kernel, composePermutations(axes.KernelPermutation(), oihwToHWIO))
}

// convOutputFromNHWC converts the NHWC result of a 2D convolution primitive to the output layout.
func (st *callState) convOutputFromNHWC(y target.Value, axes backends.ConvolveAxesConfig) target.Value {
	toChannelsFirst := nhwcToNCHW
	if axes.NumSpatial() == 1 {
		y = st.squeeze(y, 2)
		toChannelsFirst = xslices.InvertPermutation(ncwToNWC)
	}
	return st.transpose(y, composePermutations(toChannelsFirst, xslices.InvertPermutation(axes.OutputPermutation())))
}

// conv2DDims converts the dimensions of a convolution operand to the layout of the 2D primitives:
// channelsFirst is its permutation to NCHW (or OIHW), and toPrimitive the permutation from there to
// NHWC (or HWIO). 1D operands get a trailing spatial axis of dimension 1.
func conv2DDims(dims, channelsFirst, toPrimitive []int) []int {
	dims = xslices.Permute(dims, channelsFirst)
	if len(dims) == 3 {
		dims = append(dims, 1)
	}
	return xslices.Permute(dims, toPrimitive)
}
