// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/gomlx/lowering/pkg/support/xslices"
)

// clamp adjusts start indices so that slices of sliceSizes starting at them fit in maxExtents: each start is
// clipped to [0, maxExtents[i]-sliceSizes[i]]. The result is Int32.
//
// starts is an integer value whose last axis has len(maxExtents) elements (or broadcasts to it),
// so it can hold a batch of start indices.
func (st *callState) clamp(maxExtents []int, starts target.Value, sliceSizes []int) target.Value {
	maxStarts := make([]int32, len(maxExtents))
	for ii, extent := range maxExtents {
		maxStarts[ii] = int32(extent - sliceSizes[ii])
	}
	if xslices.Min(maxStarts) < 0 {
		panic(invalidArgumentf("%s: slice sizes %v don't fit in the dimensions %v", st.name, sliceSizes, maxExtents))
	}
	starts = st.cast(starts, dtypes.Int32)
	return st.clipByValue(starts,
		st.constant(tensors.FromScalar(int32(0))),
		st.constant(tensors.FromFlatDataAndDimensions(maxStarts, len(maxStarts))))
}
