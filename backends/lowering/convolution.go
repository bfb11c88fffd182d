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

// ConvAttrs are the attributes of backends.OpTypeConvGeneral.
//
// Strides, Paddings, InputDilations and KernelDilations have one value per spatial axis, or are empty
// for the defaults (1 for strides and dilations, no padding).
type ConvAttrs struct {
	Axes     backends.ConvolveAxesConfig
	Strides  []int
	Paddings [][2]int

	// InputDilations (also known as lhs dilation) are the strides of a transposed convolution.
	InputDilations, KernelDilations []int

	// ChannelGroupCount (feature group count) and BatchGroupCount: 0 is the same as 1.
	ChannelGroupCount, BatchGroupCount int

	// OutputDType is the preferred output dtype. If not set (dtypes.InvalidDType), it is the input dtype.
	OutputDType dtypes.DType
}

func (attrs ConvAttrs) groupCounts() (channelGroups, batchGroups int) {
	return max(attrs.ChannelGroupCount, 1), max(attrs.BatchGroupCount, 1)
}

func inferConvGeneral(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	attrs, err := attrsAs[ConvAttrs](st)
	if err != nil {
		return shapes.Invalid(), err
	}
	if operands[0].DType != operands[1].DType {
		return shapes.Invalid(), invalidArgumentf("input (%s) and kernel (%s) must have the same dtype", operands[0], operands[1])
	}
	channelGroups, batchGroups := attrs.groupCounts()
	output, err := shapeinference.ConvGeneralOp(operands[0], operands[1], attrs.Axes, attrs.Strides, attrs.Paddings,
		attrs.InputDilations, attrs.KernelDilations, channelGroups, batchGroups)
	if err != nil {
		return shapes.Invalid(), err
	}
	if attrs.OutputDType != dtypes.InvalidDType {
		output = output.WithDType(attrs.OutputDType)
	}
	return output, nil
}

// spatialParams returns the per-spatial-axis values of a convolution parameter, with the default for empty
// values, and a trailing default for 1D convolutions.
func spatialParams[T any](values []T, numSpatial int, defaultValue T) []T {
	if len(values) == 0 {
		values = xslices.SliceWithValue(numSpatial, defaultValue)
	}
	if numSpatial == 1 {
		values = append(slices.Clone(values), defaultValue)
	}
	return values
}

// lowerConvGeneral lowers a convolution with 1 or 2 spatial axes to Conv2D, DepthwiseConv2D or Conv2DTranspose.
// Operands are converted to the NHWC/HWIO layouts, and 1D convolutions get a trailing spatial axis of dimension 1.
func lowerConvGeneral(st *callState) (target.Value, error) {
	attrs := mustAttrs[ConvAttrs](st)
	axes := attrs.Axes
	reject := func(format string, args ...any) (target.Value, error) {
		return nil, unsupportedError(st.op, withSuffix(convSuffix, format, args...))
	}

	numSpatial := axes.NumSpatial()
	if numSpatial > 2 {
		return reject("We only support 1D or 2D convolutions, but found %d.", numSpatial)
	}
	strides := spatialParams(attrs.Strides, numSpatial, 1)
	paddings := spatialParams(attrs.Paddings, numSpatial, [2]int{})
	inputDilations := spatialParams(attrs.InputDilations, numSpatial, 1)
	kernelDilations := spatialParams(attrs.KernelDilations, numSpatial, 1)

	inputShape, kernelShape := st.concrete[0], st.concrete[1]
	inputDims := conv2DDims(inputShape.Dimensions, axes.InputPermutation(), nchwToNHWC)
	kernelDims := conv2DDims(kernelShape.Dimensions, axes.KernelPermutation(), oihwToHWIO)
	inChannels, outChannels := inputDims[3], kernelDims[3]

	channelGroups, batchGroups := attrs.groupCounts()
	isTranspose := !xslices.AllEqual(inputDilations, 1)
	isAtrous := !xslices.AllEqual(kernelDilations, 1)
	isDepthwise := inChannels == channelGroups && channelGroups > 1
	if channelGroups > 1 && !isDepthwise {
		return reject("Grouped convolutions are unsupported")
	}
	if !(isDepthwise && isAtrous && !isTranspose) {
		numFlags := 0
		for _, flag := range []bool{isDepthwise, isAtrous, isTranspose} {
			if flag {
				numFlags++
			}
		}
		if numFlags > 1 {
			return reject("Can only do one of depthwise (%v), atrous (%v) and transposed convolutions (%v)",
				isDepthwise, isAtrous, isTranspose)
		}
	}
	if batchGroups != 1 {
		return reject("Unimplemented support for batch_group_count != 1 (found %d)", batchGroups)
	}
	if attrs.OutputDType != dtypes.InvalidDType && attrs.OutputDType != inputShape.DType {
		return reject("Unimplemented support for preferred_element_type")
	}

	input := st.convInputToNHWC(st.operands[0], axes)
	kernel := st.convKernelToHWIO(st.operands[1], axes)
	kernelSpatial := kernelDims[:2]
	dilatedKernel := make([]int, 2)
	for ii, k := range kernelSpatial {
		dilatedKernel[ii] = (k-1)*kernelDilations[ii] + 1
	}

	var padding target.Padding
	if isTranspose {
		var err error
		padding, err = ClassifyTransposePadding(kernelSpatial, inputDilations, paddings)
		if err != nil {
			return reject("%s", err.Error())
		}
		if !xslices.AllEqual(strides, 1) {
			return reject("Transposed convolutions with window strides %v are not supported", attrs.Strides)
		}
	} else {
		padding = ClassifyPadding(inputDims[1:3], dilatedKernel, strides, paddings)
		if padding == target.PaddingExplicit {
			input, inputDims = st.edgePad(input, inputDims, [][2]int{{0, 0}, paddings[0], paddings[1], {0, 0}},
				st.scalar(inputShape.DType, 0))
			padding = target.PaddingValid
		}
	}

	// The target rejects windows larger than the input, where the result is all zeros (or empty).
	if padding != target.PaddingSame && (dilatedKernel[0] > inputDims[1] || dilatedKernel[1] > inputDims[2]) {
		klog.V(1).Infof("lowering %s: kernel %v larger than the input %v, returning zeros",
			st.name, dilatedKernel, inputDims[1:3])
		return st.full(st.outShape, 0), nil
	}

	var output target.Value
	var err error
	switch {
	case isDepthwise:
		klog.V(1).Infof("lowering %s: DepthwiseConv2D, padding=%s", st.name, padding)
		filters := st.reshape(kernel, []int{kernelDims[0], kernelDims[1], inChannels, outChannels / inChannels})
		output, err = st.ops.DepthwiseConv2D(input, filters, strides, padding, kernelDilations)
		output = st.check("DepthwiseConv2D", output, err)
	case isTranspose:
		klog.V(1).Infof("lowering %s: Conv2DTranspose, padding=%s", st.name, padding)
		filters := st.transpose(st.reverse(kernel, 0, 1), []int{0, 1, 3, 2})
		outputDims := conv2DDims(st.outShape.Dimensions, axes.OutputPermutation(), nchwToNHWC)
		output, err = st.ops.Conv2DTranspose(input, filters, outputDims, inputDilations, padding)
		output = st.check("Conv2DTranspose", output, err)
	default:
		klog.V(1).Infof("lowering %s: Conv2D, padding=%s", st.name, padding)
		output, err = st.ops.Conv2D(input, kernel, strides, padding, kernelDilations)
		output = st.check("Conv2D", output, err)
	}
	return st.convOutputFromNHWC(output, axes), nil
}
