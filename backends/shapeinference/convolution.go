// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapeinference

import (
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/pkg/errors"
)

// ReduceWindowOp returns the expected output shape for the operation.
//
// Notice it doesn't take as input the reduction type, since it doesn't affect the output shape.
// Empty windowDimensions, strides or paddings, and nil dilations are taken as the default values.
func ReduceWindowOp(operand shapes.Shape, windowDimensions, strides, baseDilations, windowDilations []int, paddings [][2]int) (shapes.Shape, error) {
	if !operand.Ok() {
		return shapes.Invalid(), errors.Errorf("ReduceWindowOp: invalid operand shape %s", operand)
	}
	rank := operand.Rank()
	if len(windowDimensions) != 0 && len(windowDimensions) != rank {
		return shapes.Invalid(), errors.Errorf("ReduceWindowOp: len(windowDimensions)=%d, but operand rank is %d", len(windowDimensions), rank)
	}
	if len(strides) != 0 && len(strides) != rank {
		return shapes.Invalid(), errors.Errorf("ReduceWindowOp: len(strides)=%d, but operand rank is %d", len(strides), rank)
	}
	if len(paddings) != 0 && len(paddings) != rank {
		return shapes.Invalid(), errors.Errorf("ReduceWindowOp: len(paddings)=%d, but operand rank is %d", len(paddings), rank)
	}
	if baseDilations != nil && len(baseDilations) != rank {
		return shapes.Invalid(), errors.Errorf("ReduceWindowOp: baseDilations is not nil and len(baseDilations)=%d, but operand rank is %d", len(baseDilations), rank)
	}
	if windowDilations != nil && len(windowDilations) != rank {
		return shapes.Invalid(), errors.Errorf("ReduceWindowOp: windowDilations is not nil and len(windowDilations)=%d, but operand rank is %d", len(windowDilations), rank)
	}

	// Each output dimension is calculated orthogonally to the others.
	outputDims := operand.Dims()
	for i := range rank {
		windowDim := 1
		if len(windowDimensions) > 0 {
			windowDim = windowDimensions[i]
			if windowDim < 1 {
				return shapes.Invalid(), errors.Errorf("ReduceWindowOp: windowDimensions[%d]=%d must be >= 1 for operand shape %s", i, windowDim, operand)
			}
		}
		stride := windowDim
		if len(strides) > 0 {
			stride = strides[i]
			if stride < 1 {
				return shapes.Invalid(), errors.Errorf("ReduceWindowOp: strides[%d]=%d must be >= 1 for operand shape %s", i, stride, operand)
			}
		}
		paddingLow, paddingHigh := 0, 0
		if len(paddings) > 0 {
			paddingLow, paddingHigh = paddings[i][0], paddings[i][1]
			if paddingLow < 0 || paddingHigh < 0 {
				return shapes.Invalid(), errors.Errorf("ReduceWindowOp: paddings[%d]=[%d, %d] must be non-negative for operand shape %s", i, paddingLow, paddingHigh, operand)
			}
		}
		baseDilation, windowDilation := 1, 1
		if baseDilations != nil {
			baseDilation = baseDilations[i]
		}
		if windowDilations != nil {
			windowDilation = windowDilations[i]
		}
		if baseDilation < 1 || windowDilation < 1 {
			return shapes.Invalid(), errors.Errorf("ReduceWindowOp: dilations for axis %d (base=%d, window=%d) must be >= 1 for operand shape %s",
				i, baseDilation, windowDilation, operand)
		}
		if windowDim == 1 && stride == 1 && paddingLow == 0 && paddingHigh == 0 && baseDilation == 1 {
			// Axis is unchanged, symbolic dimensions are preserved.
			continue
		}
		inputDim, err := concreteDim("ReduceWindowOp", operand, i, "reduced")
		if err != nil {
			return shapes.Invalid(), err
		}

		effectiveInputDim := 0
		if inputDim > 0 {
			effectiveInputDim = (inputDim-1)*baseDilation + 1
		}
		effectiveWindowDim := (windowDim-1)*windowDilation + 1
		paddedEffectiveInputDim := effectiveInputDim + paddingLow + paddingHigh
		if effectiveWindowDim > paddedEffectiveInputDim {
			return shapes.Invalid(), errors.Errorf(
				"ReduceWindowOp: effective window dimension %d for axis %d is larger than padded effective input dimension %d. (input_dim: %d, base_dilation: %d, window_dim: %d, window_dilation: %d, padding: [%d,%d]) for operand shape %s",
				effectiveWindowDim, i, paddedEffectiveInputDim, inputDim, baseDilation, windowDim, windowDilation, paddingLow, paddingHigh, operand)
		}
		outputDims[i] = shapes.Concrete((paddedEffectiveInputDim-effectiveWindowDim)/stride + 1)
	}
	return shapes.FromDims(operand.DType, outputDims), nil
}

// ConvGeneralOp returns the expected output shape for the ConvGeneral operation.
//
// Spatial axes whose dilated kernel doesn't fit the (dilated and padded) input get an output
// dimension of 0. The batch axis may be symbolic, in which case it is carried over to the output.
func ConvGeneralOp(input, kernel shapes.Shape, axes backends.ConvolveAxesConfig,
	strides []int, paddings [][2]int,
	inputDilations, kernelDilations []int,
	channelGroupCount, batchGroupCount int) (shapes.Shape, error) {
	// Convenient error returns.
	errorf := func(format string, args ...any) (shapes.Shape, error) {
		return shapes.Invalid(), errors.Errorf("ConvGeneralOp: "+format, args...)
	}

	if !input.Ok() {
		return errorf("invalid input (operand) shape %s", input)
	}
	if !kernel.Ok() {
		return errorf("invalid kernel shape %s", kernel)
	}

	// Check ranks.
	rank := input.Rank()
	spatialRank := rank - 2
	if rank < 3 {
		return errorf("input (operand) needs to be at least rank-3 with axes (in any order) batch, channels and spatial -- input shape is %s", input)
	}
	if kernel.Rank() != rank {
		return errorf("input (operand) and kernel have different rank!? -- input shape is %s and kernel shape is %s", input, kernel)
	}

	// Check axes configuration:
	checkLayout := func(name string, axes []int) error {
		if len(axes) != rank {
			return errors.Errorf("ConvGeneralOp: %s axes %v must provide one value for each axis (rank=%d)", name, axes, rank)
		}
		return checkAxes("ConvGeneralOp", name, axes, rank)
	}
	if err := checkLayout("input", axes.InputPermutation()); err != nil {
		return shapes.Invalid(), err
	}
	if err := checkLayout("kernel", axes.KernelPermutation()); err != nil {
		return shapes.Invalid(), err
	}
	if err := checkLayout("output", axes.OutputPermutation()); err != nil {
		return shapes.Invalid(), err
	}

	// Check strides, paddings, inputDilations and kernelDilations.
	for _, param := range []struct {
		name   string
		length int
	}{{"strides", len(strides)}, {"paddings", len(paddings)}, {"inputDilations", len(inputDilations)}, {"kernelDilations", len(kernelDilations)}} {
		if param.length != 0 && param.length != spatialRank {
			return errorf("%s must either be nil or provide one value for each spatial axis (%d), input shape is %s",
				param.name, spatialRank, input)
		}
	}
	for i, dilation := range inputDilations {
		if dilation < 1 {
			return errorf("inputDilations[%d]=%d must be >= 1 for input shape %s", i, dilation, input)
		}
	}
	for i, dilation := range kernelDilations {
		if dilation < 1 {
			return errorf("kernelDilations[%d]=%d must be >= 1 for input shape %s", i, dilation, input)
		}
	}
	if channelGroupCount < 1 || batchGroupCount < 1 {
		return errorf("channelGroupCount=%d and batchGroupCount=%d must be >= 1", channelGroupCount, batchGroupCount)
	}
	if channelGroupCount > 1 && batchGroupCount > 1 {
		return errorf("at most one of channelGroupCount (%d) or batchGroupCount (%d) can be set to > 1", channelGroupCount, batchGroupCount)
	}

	// Check that channels (feature dimensions) are valid.
	inputChannels, err := concreteDim("ConvGeneralOp", input, axes.InputChannels, "input channels")
	if err != nil {
		return shapes.Invalid(), err
	}
	outputChannels, err := concreteDim("ConvGeneralOp", kernel, axes.KernelOutputChannels, "kernel output channels")
	if err != nil {
		return shapes.Invalid(), err
	}
	kernelInputChannels, err := concreteDim("ConvGeneralOp", kernel, axes.KernelInputChannels, "kernel input channels")
	if err != nil {
		return shapes.Invalid(), err
	}
	if inputChannels%channelGroupCount != 0 {
		return errorf("input channels dimension %d must be divisible by channelGroupCount %d", inputChannels, channelGroupCount)
	}
	if outputChannels%channelGroupCount != 0 {
		return errorf("kernel output channels dimension %d must be divisible by channelGroupCount %d", outputChannels, channelGroupCount)
	}
	if inputChannels != kernelInputChannels*channelGroupCount {
		return errorf("we must have inputChannels (=%d) = kernelInputChannels (=%d) * channelGroupCount (=%d) -- input shape is %s, kernel shape is %s",
			inputChannels, kernelInputChannels, channelGroupCount, input, kernel)
	}
	if outputChannels%batchGroupCount != 0 {
		return errorf("output channels dimension %d must be divisible by batchGroupCount %d", outputChannels, batchGroupCount)
	}

	outputDims := make([]shapes.Dim, rank)
	batchDim := input.AxisDim(axes.InputBatch)
	if batchGroupCount > 1 {
		if batchDim.IsSymbolic() {
			return errorf("input batch axis must be concrete when batchGroupCount=%d", batchGroupCount)
		}
		if batchDim.Value%batchGroupCount != 0 {
			return errorf("input batch dimension %d must be divisible by batchGroupCount %d", batchDim.Value, batchGroupCount)
		}
		batchDim = shapes.Concrete(batchDim.Value / batchGroupCount)
	}
	outputDims[axes.OutputBatch] = batchDim
	outputDims[axes.OutputChannels] = shapes.Concrete(outputChannels)

	for spatialAxisIdx, inputAxis := range axes.InputSpatial {
		inputDim, err := concreteDim("ConvGeneralOp", input, inputAxis, "input spatial")
		if err != nil {
			return shapes.Invalid(), err
		}
		kernelDim, err := concreteDim("ConvGeneralOp", kernel, axes.KernelSpatial[spatialAxisIdx], "kernel spatial")
		if err != nil {
			return shapes.Invalid(), err
		}
		stride := 1
		var padding [2]int
		if len(strides) > 0 {
			stride = strides[spatialAxisIdx]
		}
		if len(paddings) > 0 {
			padding = paddings[spatialAxisIdx]
		}
		inputDilation, kernelDilation := 1, 1
		if len(inputDilations) > 0 {
			inputDilation = inputDilations[spatialAxisIdx]
		}
		if len(kernelDilations) > 0 {
			kernelDilation = kernelDilations[spatialAxisIdx]
		}
		if stride < 1 {
			return errorf("stride[%d]=%d must be >= 1 for input shape %s", spatialAxisIdx, stride, input)
		}

		effectiveInputDim := 0
		if inputDim > 0 {
			effectiveInputDim = (inputDim-1)*inputDilation + 1
		}
		effectiveKernelDim := (kernelDim-1)*kernelDilation + 1
		paddedEffectiveInputDim := effectiveInputDim + padding[0] + padding[1]
		outputDim := 0
		if effectiveKernelDim <= paddedEffectiveInputDim {
			outputDim = (paddedEffectiveInputDim-effectiveKernelDim)/stride + 1
		}
		outputDims[axes.OutputSpatial[spatialAxisIdx]] = shapes.Concrete(outputDim)
	}
	return shapes.FromDims(input.DType, outputDims), nil
}
