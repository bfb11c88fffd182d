// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eager

import (
	"math"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/support/xslices"
	"github.com/pkg/errors"
)

// windowOutput returns the output dimension and the low padding of a window of (dilated) size window
// sliding over an axis of dimension in, with the given stride and padding scheme.
func windowOutput(opName string, in, window, stride int, padding target.Padding) (out, lowPad int, err error) {
	if stride < 1 || window < 1 {
		return 0, 0, errors.Errorf("eager.%s: invalid window %d or stride %d", opName, window, stride)
	}
	switch padding {
	case target.PaddingValid:
		if window > in {
			return 0, 0, errors.Errorf("eager.%s: window of size %d is larger than the input dimension %d with VALID padding",
				opName, window, in)
		}
		return (in-window)/stride + 1, 0, nil
	case target.PaddingSame:
		out = (in + stride - 1) / stride
		total := max((out-1)*stride+window-in, 0)
		return out, total / 2, nil
	}
	return 0, 0, errors.Errorf("eager.%s: padding must be VALID or SAME, got %s", opName, padding)
}

// spatialParams normalizes strides or dilations given either per spatial axis (2 values) or for the full
// NHWC rank (4 values, with 1 for the batch and channels axes).
func spatialParams(opName, name string, values []int) ([]int, error) {
	switch len(values) {
	case 0:
		return []int{1, 1}, nil
	case 2:
		return values, nil
	case 4:
		if values[0] != 1 || values[3] != 1 {
			return nil, errors.Errorf("eager.%s: %s %v must be 1 on the batch and channels axes", opName, name, values)
		}
		return values[1:3], nil
	}
	return nil, errors.Errorf("eager.%s: %s %v must have 2 or 4 values", opName, name, values)
}

// conv2DGeometry holds the dimensions shared by the 2D convolutions.
type conv2DGeometry struct {
	batch, inH, inW, inChannels int
	kH, kW                      int
	outH, outW                  int
	strides, dilations          []int
	lowPads                     [2]int
}

func newConv2DGeometry(opName string, input, filters *array, strides []int, padding target.Padding, dilations []int) (
	g conv2DGeometry, err error) {
	if input.shape.Rank() != 4 || filters.shape.Rank() != 4 {
		return g, errors.Errorf("eager.%s: input (NHWC) and filters must have rank 4, got %s and %s",
			opName, input.shape, filters.shape)
	}
	if err = sameDType(opName, input, filters); err != nil {
		return
	}
	if g.strides, err = spatialParams(opName, "strides", strides); err != nil {
		return
	}
	if g.dilations, err = spatialParams(opName, "dilations", dilations); err != nil {
		return
	}
	g.batch, g.inH, g.inW, g.inChannels = input.shape.Dimensions[0], input.shape.Dimensions[1], input.shape.Dimensions[2], input.shape.Dimensions[3]
	g.kH, g.kW = filters.shape.Dimensions[0], filters.shape.Dimensions[1]
	if filters.shape.Dimensions[2] != g.inChannels {
		return g, errors.Errorf("eager.%s: filters %s input channels don't match input %s", opName, filters.shape, input.shape)
	}
	if g.outH, g.lowPads[0], err = windowOutput(opName, g.inH, (g.kH-1)*g.dilations[0]+1, g.strides[0], padding); err != nil {
		return
	}
	g.outW, g.lowPads[1], err = windowOutput(opName, g.inW, (g.kW-1)*g.dilations[1]+1, g.strides[1], padding)
	return
}

// forEachTap calls fn for every output position and every kernel tap that falls inside the input.
func (g conv2DGeometry) forEachTap(fn func(n, oh, ow, ih, iw, kh, kw int)) {
	for n := range g.batch {
		for oh := range g.outH {
			for ow := range g.outW {
				for kh := range g.kH {
					ih := oh*g.strides[0] - g.lowPads[0] + kh*g.dilations[0]
					if ih < 0 || ih >= g.inH {
						continue
					}
					for kw := range g.kW {
						iw := ow*g.strides[1] - g.lowPads[1] + kw*g.dilations[1]
						if iw < 0 || iw >= g.inW {
							continue
						}
						fn(n, oh, ow, ih, iw, kh, kw)
					}
				}
			}
		}
	}
}

// Conv2D implements target.Ops.
func (o *Ops) Conv2D(input, filters target.Value, strides []int, padding target.Padding, dilations []int) (target.Value, error) {
	arrays, err := toArrays("Conv2D", input, filters)
	if err != nil {
		return nil, err
	}
	x, f := arrays[0], arrays[1]
	g, err := newConv2DGeometry("Conv2D", x, f, strides, padding, dilations)
	if err != nil {
		return nil, err
	}
	outChannels := f.shape.Dimensions[3]
	out := newArray(x.shape.DType, g.batch, g.outH, g.outW, outChannels)
	xStrides, fStrides, outStrides := x.shape.Strides(), f.shape.Strides(), out.shape.Strides()
	g.forEachTap(func(n, oh, ow, ih, iw, kh, kw int) {
		outBase := flatIndex([]int{n, oh, ow, 0}, outStrides)
		for c := range g.inChannels {
			v := x.data[flatIndex([]int{n, ih, iw, c}, xStrides)]
			fBase := flatIndex([]int{kh, kw, c, 0}, fStrides)
			for oc := range outChannels {
				out.data[outBase+oc] += v * f.data[fBase+oc]
			}
		}
	})
	return out.value()
}

// DepthwiseConv2D implements target.Ops. Output channel c*multiplier+m is the convolution of input channel c
// with filters[:, :, c, m].
func (o *Ops) DepthwiseConv2D(input, filters target.Value, strides []int, padding target.Padding, dilations []int) (target.Value, error) {
	arrays, err := toArrays("DepthwiseConv2D", input, filters)
	if err != nil {
		return nil, err
	}
	x, f := arrays[0], arrays[1]
	g, err := newConv2DGeometry("DepthwiseConv2D", x, f, strides, padding, dilations)
	if err != nil {
		return nil, err
	}
	multiplier := f.shape.Dimensions[3]
	out := newArray(x.shape.DType, g.batch, g.outH, g.outW, g.inChannels*multiplier)
	xStrides, fStrides, outStrides := x.shape.Strides(), f.shape.Strides(), out.shape.Strides()
	g.forEachTap(func(n, oh, ow, ih, iw, kh, kw int) {
		outBase := flatIndex([]int{n, oh, ow, 0}, outStrides)
		for c := range g.inChannels {
			v := x.data[flatIndex([]int{n, ih, iw, c}, xStrides)]
			fBase := flatIndex([]int{kh, kw, c, 0}, fStrides)
			for m := range multiplier {
				out.data[outBase+c*multiplier+m] += v * f.data[fBase+m]
			}
		}
	})
	return out.value()
}

// Conv2DTranspose implements target.Ops: it scatters each input element, weighted by the filters, into the
// output positions the forward convolution (with the same strides and padding) would read it from.
func (o *Ops) Conv2DTranspose(input, filters target.Value, outputShape []int, strides []int, padding target.Padding) (target.Value, error) {
	arrays, err := toArrays("Conv2DTranspose", input, filters)
	if err != nil {
		return nil, err
	}
	x, f := arrays[0], arrays[1]
	if x.shape.Rank() != 4 || f.shape.Rank() != 4 || len(outputShape) != 4 {
		return nil, errors.Errorf("eager.Conv2DTranspose: input, filters and output shape must have rank 4, got %s, %s and %v",
			x.shape, f.shape, outputShape)
	}
	if err = sameDType("Conv2DTranspose", x, f); err != nil {
		return nil, err
	}
	strides, err = spatialParams("Conv2DTranspose", "strides", strides)
	if err != nil {
		return nil, err
	}
	inChannels, outChannels := f.shape.Dimensions[3], f.shape.Dimensions[2]
	if x.shape.Dimensions[3] != inChannels || outputShape[3] != outChannels || outputShape[0] != x.shape.Dimensions[0] {
		return nil, errors.Errorf("eager.Conv2DTranspose: input %s, filters %s ([H, W, out, in]) and output shape %v don't match",
			x.shape, f.shape, outputShape)
	}
	var lowPads [2]int
	for spatial := range 2 {
		inDim := outputShape[1+spatial]
		forwardOut, lowPad, err := windowOutput("Conv2DTranspose", inDim, f.shape.Dimensions[spatial], strides[spatial], padding)
		if err != nil {
			return nil, err
		}
		if forwardOut != x.shape.Dimensions[1+spatial] {
			return nil, errors.Errorf("eager.Conv2DTranspose: output shape %v is not compatible with input %s, filters %s, strides %v and %s padding",
				outputShape, x.shape, f.shape, strides, padding)
		}
		lowPads[spatial] = lowPad
	}
	out := newArray(x.shape.DType, outputShape...)
	fStrides, outStrides := f.shape.Strides(), out.shape.Strides()
	kH, kW := f.shape.Dimensions[0], f.shape.Dimensions[1]
	for xIdx, xIndices := range x.shape.Iter() {
		n, i, j, ic := xIndices[0], xIndices[1], xIndices[2], xIndices[3]
		v := x.data[xIdx]
		for kh := range kH {
			oh := i*strides[0] - lowPads[0] + kh
			if oh < 0 || oh >= outputShape[1] {
				continue
			}
			for kw := range kW {
				ow := j*strides[1] - lowPads[1] + kw
				if ow < 0 || ow >= outputShape[2] {
					continue
				}
				outBase := flatIndex([]int{n, oh, ow, 0}, outStrides)
				for oc := range outChannels {
					out.data[outBase+oc] += v * f.data[flatIndex([]int{kh, kw, oc, ic}, fStrides)]
				}
			}
		}
	}
	return out.value()
}

var poolDataFormats = []string{"NWC", "NHWC", "NDHWC"}

// checkPoolDType reproduces the dtypes accepted by the TensorFlow pooling kernels.
func checkPoolDType(opName string, dtype dtypes.DType) error {
	var ok bool
	switch opName {
	case "AvgPool":
		ok = dtype.IsFloat()
	default:
		ok = dtype != dtypes.Bool && dtype != dtypes.Uint32 && dtype != dtypes.Uint64 && !dtype.IsComplex()
	}
	if !ok {
		return errors.Errorf("eager.%s: dtype %s not supported", opName, dtype)
	}
	return nil
}

// pool reduces the windows of x, calling reduceFn with the (non-padded) elements of each window.
func pool(opName string, x target.Value, ksize, strides []int, padding target.Padding, dataFormat string,
	reduceFn func(window []float64) float64) (target.Value, error) {
	a, err := toArray(opName, x)
	if err != nil {
		return nil, err
	}
	if err = checkPoolDType(opName, a.shape.DType); err != nil {
		return nil, err
	}
	rank := a.shape.Rank()
	if !slices.Contains(poolDataFormats, dataFormat) || len(dataFormat) != rank {
		return nil, errors.Errorf("eager.%s: data format %q not supported for %s, use one of %v",
			opName, dataFormat, a.shape, poolDataFormats)
	}
	if len(ksize) != rank || len(strides) != rank {
		return nil, errors.Errorf("eager.%s: ksize %v and strides %v must have one value per axis of %s",
			opName, ksize, strides, a.shape)
	}
	if ksize[0] != 1 || xslices.Last(ksize) != 1 || strides[0] != 1 || xslices.Last(strides) != 1 {
		return nil, errors.Errorf("eager.%s: pooling over the batch or channels axes is not supported (ksize=%v, strides=%v)",
			opName, ksize, strides)
	}
	outDims := slices.Clone(a.shape.Dimensions)
	lowPads := make([]int, rank)
	for axis := 1; axis < rank-1; axis++ {
		outDims[axis], lowPads[axis], err = windowOutput(opName, a.shape.Dimensions[axis], ksize[axis], strides[axis], padding)
		if err != nil {
			return nil, err
		}
	}
	out := newArray(a.shape.DType, outDims...)
	inStrides := a.shape.Strides()
	windowShape := shapes.Make(a.shape.DType, ksize...)
	inIndices := make([]int, rank)
	window := make([]float64, 0, windowShape.Size())
	for outIdx, outIndices := range out.shape.Iter() {
		window = window[:0]
		for _, offsets := range windowShape.Iter() {
			inside := true
			for axis := range rank {
				inIndices[axis] = outIndices[axis]*strides[axis] - lowPads[axis] + offsets[axis]
				if inIndices[axis] < 0 || inIndices[axis] >= a.shape.Dimensions[axis] {
					inside = false
					break
				}
			}
			if inside {
				window = append(window, a.data[flatIndex(inIndices, inStrides)])
			}
		}
		out.data[outIdx] = reduceFn(window)
	}
	return out.value()
}

// MaxPool implements target.Ops.
func (o *Ops) MaxPool(x target.Value, ksize, strides []int, padding target.Padding, dataFormat string) (target.Value, error) {
	return pool("MaxPool", x, ksize, strides, padding, dataFormat, func(window []float64) float64 {
		result := math.Inf(-1)
		for _, v := range window {
			result = math.Max(result, v)
		}
		return result
	})
}

// AvgPool implements target.Ops. Padded elements are not included in the average.
func (o *Ops) AvgPool(x target.Value, ksize, strides []int, padding target.Padding, dataFormat string) (target.Value, error) {
	return pool("AvgPool", x, ksize, strides, padding, dataFormat, func(window []float64) float64 {
		if len(window) == 0 {
			return 0
		}
		var sum float64
		for _, v := range window {
			sum += v
		}
		return sum / float64(len(window))
	})
}
