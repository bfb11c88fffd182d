// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/shapeinference"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// ReduceWindowAttrs are the attributes of the reduce-window operators. All fields have one value per
// axis of the operand, or are empty for the defaults: window dimensions, dilations and paddings
// default to 1, 1 and 0, and strides default to the window dimensions.
type ReduceWindowAttrs struct {
	WindowDimensions, Strides      []int
	BaseDilations, WindowDilations []int
	Paddings                       [][2]int
}

func inferReduceWindow(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	attrs, err := attrsAs[ReduceWindowAttrs](st)
	if err != nil {
		return shapes.Invalid(), err
	}
	return shapeinference.ReduceWindowOp(operands[0], attrs.WindowDimensions, attrs.Strides,
		attrs.BaseDilations, attrs.WindowDilations, attrs.Paddings)
}

// poolDataFormats for 1, 2 and 3 spatial axes.
var poolDataFormats = []string{"NWC", "NHWC", "NDHWC"}

// lowerReduceWindow lowers reduce_window_max to MaxPool, and reduce_window_sum to AvgPool times the
// window size. Missing batch or channels axes (axes with a window of 1) are added for the pooling.
func lowerReduceWindow(st *callState) (target.Value, error) {
	attrs := mustAttrs[ReduceWindowAttrs](st)
	shape := st.concrete[0]
	rank := shape.Rank()
	reject := func(format string, args ...any) (target.Value, error) {
		return nil, unsupportedError(st.op, withSuffix(reduceWindowSuffix, format, args...))
	}

	dtype := shape.DType
	isMax := st.op == backends.OpTypeReduceWindowMax
	if isMax && (dtype == dtypes.Bool || dtype == dtypes.Uint32 || dtype == dtypes.Uint64 || dtype.IsComplex()) {
		return reject("MaxPool does not support operands of type %s", dtype)
	}
	if !isMax && dtype != dtypes.Float16 && dtype != dtypes.Float32 && dtype != dtypes.Float64 {
		return reject("AvgPool does not support operands of type %s", dtype)
	}

	window := attrs.WindowDimensions
	if len(window) == 0 {
		window = xslices.SliceWithValue(rank, 1)
	}
	strides := attrs.Strides
	if len(strides) == 0 {
		strides = window
	}
	paddings := attrs.Paddings
	if len(paddings) == 0 {
		paddings = make([][2]int, rank)
	}
	hasBatch, hasChannels := window[0] == 1, xslices.Last(window) == 1
	numSpatial := rank
	if hasBatch {
		numSpatial--
	}
	if hasChannels {
		numSpatial--
	}
	if numSpatial < 1 || numSpatial > 3 {
		return reject("Pooling is only supported for arrays with 1, 2, or 3 spatial dimensions")
	}
	if len(attrs.BaseDilations) > 0 && !xslices.AllEqual(attrs.BaseDilations, 1) {
		return reject("Unimplemented support for base dilation")
	}
	if len(attrs.WindowDilations) > 0 && !xslices.AllEqual(attrs.WindowDilations, 1) {
		return reject("Unimplemented support for window dilation")
	}
	if (hasBatch && strides[0] != 1) || (hasChannels && xslices.Last(strides) != 1) {
		return reject("Strides %v over the batch or channels axes are not supported", strides)
	}
	padding := ClassifyPadding(shape.Dimensions, window, strides, paddings)
	if padding == target.PaddingExplicit {
		return reject("Padding should either be 'VALID' or 'SAME'.")
	}

	x := st.operands[0]
	if !isMax && padding == target.PaddingSame && slices.ContainsFunc(paddings, func(p [2]int) bool { return p != [2]int{} }) {
		// AvgPool doesn't count padded elements, so the padding is materialized with zeros.
		x, _ = st.edgePad(x, shape.Dimensions, paddings, st.scalar(dtype, 0))
		padding = target.PaddingValid
	}

	ksize, poolStrides := slices.Clone(window), slices.Clone(strides)
	var squeezeAxes []int
	if !hasBatch {
		x = st.expandDims(x, 0)
		ksize = slices.Insert(ksize, 0, 1)
		poolStrides = slices.Insert(poolStrides, 0, 1)
		squeezeAxes = append(squeezeAxes, 0)
	}
	if !hasChannels {
		x = st.expandDims(x, len(ksize))
		squeezeAxes = append(squeezeAxes, len(ksize))
		ksize = append(ksize, 1)
		poolStrides = append(poolStrides, 1)
	}
	dataFormat := poolDataFormats[numSpatial-1]
	klog.V(1).Infof("lowering %s: pooling %s with ksize=%v, strides=%v, padding=%s, format=%s",
		st.name, shape, ksize, poolStrides, padding, dataFormat)

	var result target.Value
	var err error
	if isMax {
		result, err = st.ops.MaxPool(x, ksize, poolStrides, padding, dataFormat)
		result = st.check("MaxPool", result, err)
	} else {
		result, err = st.ops.AvgPool(x, ksize, poolStrides, padding, dataFormat)
		result = st.check("AvgPool", result, err)
		result = st.mul(result, st.scalar(dtype, float64(xslices.Product(window))))
	}
	if len(squeezeAxes) > 0 {
		result = st.squeeze(result, squeezeAxes...)
	}
	return result, nil
}
