// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/backends/target/tracing"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patternTensor returns a Float64 tensor with small integer values, so convolutions are exact.
func patternTensor(dims ...int) *tensors.Tensor {
	shape := S(dtypes.Float64, dims...)
	data := make([]float64, shape.Size())
	for ii := range data {
		data[ii] = float64(ii%7 - 3)
	}
	return tensors.FromFlatDataAndDimensions(data, dims...)
}

// naiveConv computes a convolution of an NCHW input with an OIHW kernel.
func naiveConv(input, kernel *tensors.Tensor, attrs ConvAttrs) *tensors.Tensor {
	in, _ := input.Float64s()
	k, _ := kernel.Float64s()
	inDims, kDims := input.Shape().Dimensions, kernel.Shape().Dimensions
	batch, inChannels := inDims[0], inDims[1]
	outChannels, kernelInChannels := kDims[0], kDims[1]
	groups := max(attrs.ChannelGroupCount, 1)
	param := func(values []int, axis int) int {
		if len(values) == 0 {
			return 1
		}
		return values[axis]
	}
	outDims := []int{batch, outChannels, 0, 0}
	for axis := range 2 {
		var pad [2]int
		if len(attrs.Paddings) > 0 {
			pad = attrs.Paddings[axis]
		}
		dilatedIn := (inDims[2+axis]-1)*param(attrs.InputDilations, axis) + 1
		dilatedKernel := (kDims[2+axis]-1)*param(attrs.KernelDilations, axis) + 1
		outDims[2+axis] = max((dilatedIn+pad[0]+pad[1]-dilatedKernel)/param(attrs.Strides, axis)+1, 0)
	}
	out := make([]float64, outDims[0]*outDims[1]*outDims[2]*outDims[3])
	outIdx := 0
	for n := range batch {
		for o := range outChannels {
			group := o / (outChannels / groups)
			for oh := range outDims[2] {
				for ow := range outDims[3] {
					var sum float64
					for ci := range kernelInChannels {
						inChannel := group*kernelInChannels + ci
						for kh := range kDims[2] {
							for kw := range kDims[3] {
								pos := [2]int{oh, ow}
								kpos := [2]int{kh, kw}
								inPos := [2]int{}
								valid := true
								for axis := range 2 {
									lowPad := 0
									if len(attrs.Paddings) > 0 {
										lowPad = attrs.Paddings[axis][0]
									}
									inDil := param(attrs.InputDilations, axis)
									p := pos[axis]*param(attrs.Strides, axis) + kpos[axis]*param(attrs.KernelDilations, axis) - lowPad
									if p < 0 || p > (inDims[2+axis]-1)*inDil || p%inDil != 0 {
										valid = false
										break
									}
									inPos[axis] = p / inDil
								}
								if !valid {
									continue
								}
								inValue := in[((n*inChannels+inChannel)*inDims[2]+inPos[0])*inDims[3]+inPos[1]]
								kValue := k[((o*kernelInChannels+ci)*kDims[2]+kh)*kDims[3]+kw]
								sum += inValue * kValue
							}
						}
					}
					out[outIdx] = sum
					outIdx++
				}
			}
		}
	}
	return tensors.FromFlatDataAndDimensions(out, outDims...)
}

// requireTensor compares got against the tensor want.
func requireTensor(t *testing.T, want *tensors.Tensor, got target.Value, err error) {
	t.Helper()
	require.NoError(t, err)
	gotT := got.(*tensors.Tensor)
	require.Truef(t, want.Shape().Equal(gotT.Shape()), "want shape %s, got %s", want.Shape(), gotT.Shape())
	require.Truef(t, want.InDelta(gotT, 1e-6), "want %s, got %s", want, gotT)
}

func mustTranspose(x target.Value, permutation ...int) target.Value {
	return must.M1(ops.Transpose(x, permutation))
}

func TestConvGeneral(t *testing.T) {
	nchw := backends.ChannelsFirstAxes(2)
	for _, tc := range []struct {
		name                string
		inputDims, kernDims []int
		attrs               ConvAttrs
		primitive           string
	}{
		{"Valid", []int{2, 3, 7, 6}, []int{4, 3, 3, 2}, ConvAttrs{}, "Conv2D"},
		{"StridedSame", []int{1, 2, 7, 7}, []int{3, 2, 3, 3},
			ConvAttrs{Strides: []int{2, 2}, Paddings: [][2]int{{1, 1}, {1, 1}}}, "Conv2D"},
		{"StridedSameAsymmetric", []int{1, 2, 6, 6}, []int{3, 2, 3, 3},
			ConvAttrs{Strides: []int{2, 2}, Paddings: [][2]int{{0, 1}, {0, 1}}}, "Conv2D"},
		{"Explicit", []int{1, 2, 5, 6}, []int{2, 2, 3, 3},
			ConvAttrs{Paddings: [][2]int{{2, 0}, {1, 3}}}, "Conv2D"},
		{"Atrous", []int{1, 2, 7, 7}, []int{2, 2, 3, 3},
			ConvAttrs{KernelDilations: []int{2, 2}}, "Conv2D"},
		{"Depthwise", []int{1, 3, 6, 6}, []int{6, 1, 3, 3},
			ConvAttrs{ChannelGroupCount: 3}, "DepthwiseConv2D"},
		{"DepthwiseAtrous", []int{1, 3, 7, 7}, []int{3, 1, 3, 3},
			ConvAttrs{ChannelGroupCount: 3, KernelDilations: []int{2, 1}}, "DepthwiseConv2D"},
		{"TransposeValid", []int{1, 2, 4, 4}, []int{3, 2, 3, 3},
			ConvAttrs{InputDilations: []int{2, 2}, Paddings: [][2]int{{2, 2}, {2, 2}}}, "Conv2DTranspose"},
		{"TransposeSame", []int{1, 2, 4, 4}, []int{3, 2, 3, 3},
			ConvAttrs{InputDilations: []int{2, 2}, Paddings: [][2]int{{2, 1}, {2, 1}}}, "Conv2DTranspose"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			input, kernel := patternTensor(tc.inputDims...), patternTensor(tc.kernDims...)
			tc.attrs.Axes = nchw
			want := naiveConv(input, kernel, tc.attrs)
			tr := tracing.New(ops)
			got, err := NewWithConfig(tr, Config{}).ConvGeneral(input, kernel, tc.attrs)
			requireTensor(t, want, got, err)
			assert.Equal(t, 1, tr.Count(tc.primitive))
		})
	}

	t.Run("TransposeOutputShape", func(t *testing.T) {
		got, err := engine.ConvGeneral(patternTensor(1, 2, 4, 4), patternTensor(3, 2, 3, 3), ConvAttrs{
			Axes: nchw, InputDilations: []int{2, 2}, Paddings: [][2]int{{2, 2}, {2, 2}}})
		require.NoError(t, err)
		requireShape(t, S(dtypes.Float64, 1, 3, 9, 9), got)
	})

	t.Run("ChannelsLast", func(t *testing.T) {
		input, kernel := patternTensor(2, 3, 5, 6), patternTensor(4, 3, 2, 3)
		attrs := ConvAttrs{Axes: nchw, Strides: []int{1, 2}}
		want := mustTranspose(naiveConv(input, kernel, attrs), 0, 2, 3, 1)
		attrs.Axes = backends.ConvolveAxesConfig{
			InputBatch: 0, InputChannels: 3, InputSpatial: []int{1, 2},
			KernelInputChannels: 2, KernelOutputChannels: 3, KernelSpatial: []int{0, 1},
			OutputBatch: 0, OutputChannels: 3, OutputSpatial: []int{1, 2},
		}
		got, err := engine.ConvGeneral(mustTranspose(input, 0, 2, 3, 1), mustTranspose(kernel, 2, 3, 1, 0), attrs)
		requireTensor(t, want.(*tensors.Tensor), got, err)
	})

	t.Run("Conv1D", func(t *testing.T) {
		input, kernel := patternTensor(2, 3, 9), patternTensor(4, 3, 3)
		input2D := tensors.FromFlatDataAndDimensions(tensors.CopyFlatData[float64](input), 2, 3, 9, 1)
		kernel2D := tensors.FromFlatDataAndDimensions(tensors.CopyFlatData[float64](kernel), 4, 3, 3, 1)
		want2D := naiveConv(input2D, kernel2D, ConvAttrs{Strides: []int{2, 1}})
		want := tensors.FromFlatDataAndDimensions(tensors.CopyFlatData[float64](want2D), 2, 4, 4)
		got, err := engine.ConvGeneral(input, kernel, ConvAttrs{Axes: backends.ChannelsFirstAxes(1), Strides: []int{2}})
		requireTensor(t, want, got, err)
	})

	t.Run("KernelLargerThanInput", func(t *testing.T) {
		tr := tracing.New(ops)
		got, err := NewWithConfig(tr, Config{}).ConvGeneral(patternTensor(1, 1, 2, 2), patternTensor(1, 1, 3, 3),
			ConvAttrs{Axes: nchw})
		require.NoError(t, err)
		requireShape(t, S(dtypes.Float64, 1, 1, 0, 0), got)
		assert.Equal(t, 0, tr.Count("Conv2D"))
	})

	t.Run("TransposeKernelLargerThanInput", func(t *testing.T) {
		tr := tracing.New(ops)
		got, err := NewWithConfig(tr, Config{}).ConvGeneral(patternTensor(1, 1, 2, 2), patternTensor(1, 1, 3, 3),
			ConvAttrs{Axes: nchw, InputDilations: []int{2, 2}, Paddings: [][2]int{{2, 2}, {2, 2}}})
		requireTensor(t, tensors.FromShape(S(dtypes.Float64, 1, 1, 5, 5)), got, err)
		assert.Equal(t, 0, tr.Count("Conv2DTranspose"))
	})

	t.Run("Rejections", func(t *testing.T) {
		for _, tc := range []struct {
			name                string
			inputDims, kernDims []int
			attrs               ConvAttrs
			msg                 string
		}{
			{"3D", []int{1, 1, 4, 4, 4}, []int{1, 1, 2, 2, 2}, ConvAttrs{Axes: backends.ChannelsFirstAxes(3)},
				"We only support 1D or 2D convolutions, but found 3."},
			{"Grouped", []int{1, 4, 5, 5}, []int{4, 2, 3, 3}, ConvAttrs{Axes: nchw, ChannelGroupCount: 2},
				"Grouped convolutions are unsupported"},
			{"BatchGroups", []int{2, 3, 5, 5}, []int{4, 3, 3, 3}, ConvAttrs{Axes: nchw, BatchGroupCount: 2},
				"Unimplemented support for batch_group_count != 1 (found 2)"},
			{"TransposeAndAtrous", []int{1, 2, 4, 4}, []int{3, 2, 3, 3},
				ConvAttrs{Axes: nchw, InputDilations: []int{2, 2}, KernelDilations: []int{2, 2}, Paddings: [][2]int{{2, 2}, {2, 2}}},
				"Can only do one of depthwise (false), atrous (true) and transposed convolutions (true)"},
			{"TransposeStrides", []int{1, 2, 4, 4}, []int{3, 2, 3, 3},
				ConvAttrs{Axes: nchw, InputDilations: []int{2, 2}, Strides: []int{2, 2}, Paddings: [][2]int{{2, 2}, {2, 2}}},
				"Transposed convolutions with window strides"},
			{"TransposePadding", []int{1, 2, 4, 4}, []int{3, 2, 3, 3},
				ConvAttrs{Axes: nchw, InputDilations: []int{2, 2}},
				"Transpose convolution padding mode must be `SAME` or `VALID`."},
			{"PreferredType", []int{1, 2, 4, 4}, []int{3, 2, 3, 3},
				ConvAttrs{Axes: nchw, OutputDType: dtypes.Float32},
				"Unimplemented support for preferred_element_type"},
		} {
			t.Run(tc.name, func(t *testing.T) {
				_, err := engine.ConvGeneral(patternTensor(tc.inputDims...), patternTensor(tc.kernDims...), tc.attrs)
				lowerErr := requireLoweringError(t, err, KindUnsupported, tc.msg)
				assert.True(t, errors.Is(err, backends.ErrUnsupported))
				assert.Contains(t, lowerErr.Reason, convSuffix)
			})
		}
	})

	t.Run("DTypeMismatch", func(t *testing.T) {
		kernel := tensors.FromShape(shapes.Make(dtypes.Float32, 1, 1, 1, 1))
		_, err := engine.ConvGeneral(patternTensor(1, 1, 2, 2), kernel, ConvAttrs{Axes: nchw})
		require.ErrorContains(t, err, "must have the same dtype")
		var lowerErr *Error
		assert.False(t, errors.As(err, &lowerErr))
	})
}
