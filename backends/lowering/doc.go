// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package lowering implements the lowering engine: it expresses the generalized operators of package
// backends (convolutions and gathers described with XLA-style dimension numbers, dot-general with
// arbitrary batch and contracting axes, padding with interior and negative components, etc.) as
// sequences of calls on the narrow primitive set of a target.Ops.
//
// Create an Engine for a target and call Engine.Lower (or one of the typed helpers, like
// Engine.ConvGeneral) for each operator instance. An Engine is stateless and safe for concurrent use.
//
// When an operator instance can't be lowered, the returned error is an *Error: errors.Is matches it
// with backends.ErrNotImplemented if the operator (or variant) has no lowering at all, or with
// backends.ErrUnsupported if the static attributes fall outside the supported subset.
//
// # Supported subsets
//
// ConvGeneral: 1 or 2 spatial axes, any axes layout. At most one of "depthwise" (feature group count
// equal to the number of input channels), "atrous" (kernel dilations) and "transposed" (input
// dilations) is allowed, except depthwise with kernel dilations. Other grouped convolutions, batch
// grouping and a preferred output dtype different from the input are not supported. Transposed
// convolutions require unit window strides and a padding equivalent to "VALID" or "SAME".
// If the dilated kernel doesn't fit the (padded) input on some axis and the padding is not "SAME",
// the result is all zeros with the expected output shape.
//
// DotGeneral: always lowerable. A batched matrix multiplication is used if the batch axes are the
// leading axes of both operands, each operand has 1 or 2 other axes, and the contraction is over
// the last axis of lhs and the first non-batch axis of rhs. Otherwise an einsum is used.
//
// Pad: always lowerable, interior padding is materialized with a scatter.
//
// ReduceWindowSum and ReduceWindowMax: 1 to 3 spatial axes (axes other than a leading batch axis and
// a trailing channels axis, both with window 1), no base or window dilations, and a padding equivalent
// to "VALID" or "SAME". Sums require a float dtype, max doesn't accept booleans, Uint32, Uint64 or
// complex numbers.
//
// Gather: out-of-bounds start indices are clamped. One of 3 patterns must match: "scalar_indexing" (rank-1
// start indices), "multidim_indexing" (take along one axis, with a trailing index axis of size 1) or
// "batch_dims" (one batch axis shared by operand and start indices, as in a vectorized dynamic slice).
// With mode backends.ModeFillOrDrop the gather is delegated to the target, if it implements
// target.FillGatherer.
//
// Scatter, ScatterAdd, ScatterMul, ScatterMin and ScatterMax: the inserted window axes must be the same as
// (and in the same order as) the scatter axes, the window must cover the full operand axes, and the
// mode must be backends.ModePromiseInBounds. Indices are either unique (asserted by the caller or
// implied by rank-1 indices) or index only one axis, in which case replacing scatters are not
// supported. Booleans and complex numbers are not supported.
//
// DynamicSlice and DynamicUpdateSlice: always lowerable, start indices are clamped so the slice fits.
//
// ArgMin and ArgMax: always lowerable.
//
// ReduceWindowMin, ReduceWindow, Reduce, SelectAndScatterAdd, RNGBitGenerator and Sort are not implemented.
//
// # Configuration
//
// New reads the configuration from the environment variable GOMLX_LOWERING, NewWithConfig takes it
// explicitly. It is a comma-separated list of options:
//
//   - "strict_symbolic": fail with backends.ErrUnsupported if the output shape descriptor has symbolic axes
//     that are not bound by the operands.
//   - "no_matmul": always use einsum for DotGeneral.
//   - "gather=<strategy>[+<strategy>...]": restrict the gather strategies tried, in the given order.
//   - "disable=<op>[+<op>...]": report the given operators (e.g. "DotGeneral") as not implemented.
package lowering
