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
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PadAttrs are the attributes of backends.OpTypePad. Its operands are the value to pad and a scalar
// padding value of the same dtype.
type PadAttrs struct {
	// Axes configuration, missing trailing axes are not padded.
	Axes []backends.PadAxis
}

func inferPad(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	attrs, err := attrsAs[PadAttrs](st)
	if err != nil {
		return shapes.Invalid(), err
	}
	if !operands[1].IsScalar() || operands[1].DType != operands[0].DType {
		return shapes.Invalid(), errors.Errorf("padding value must be a scalar of dtype %s, got %s", operands[0].DType, operands[1])
	}
	return shapeinference.PadOp(operands[0], attrs.Axes)
}

func lowerPad(st *callState) (target.Value, error) {
	attrs := mustAttrs[PadAttrs](st)
	x, padValue := st.operands[0], st.operands[1]
	dims := slices.Clone(st.concrete[0].Dimensions)
	axes := make([]backends.PadAxis, len(dims))
	copy(axes, attrs.Axes)

	if slices.ContainsFunc(axes, func(a backends.PadAxis) bool { return a.Interior != 0 }) {
		x, dims = st.interiorPad(x, padValue, st.concrete[0], axes)
	}
	edges := make([][2]int, len(axes))
	for ii, a := range axes {
		edges[ii] = [2]int{a.Start, a.End}
	}
	x, _ = st.edgePad(x, dims, edges, padValue)
	return x, nil
}

// edgePad pads x (with dimensions dims) with padValue. Negative paddings trim the axis.
// It returns the padded value and its dimensions.
func (st *callState) edgePad(x target.Value, dims []int, paddings [][2]int, padValue target.Value) (target.Value, []int) {
	nonNegative := make([][2]int, len(paddings))
	begins := make([]int, len(paddings))
	outDims := make([]int, len(paddings))
	var hasPositive, hasNegative bool
	for ii, p := range paddings {
		nonNegative[ii] = [2]int{max(p[0], 0), max(p[1], 0)}
		begins[ii] = max(-p[0], 0)
		outDims[ii] = dims[ii] + p[0] + p[1]
		hasPositive = hasPositive || p[0] > 0 || p[1] > 0
		hasNegative = hasNegative || p[0] < 0 || p[1] < 0
	}
	if hasPositive {
		x = st.pad(x, nonNegative, padValue)
	}
	if hasNegative {
		x = st.slice(x, st.constInt32(begins...), outDims)
	}
	return x, outDims
}

// interiorPad inserts axes[i].Interior copies of padValue in between the elements of each axis i of x.
//
// The elements of x are scattered into their positions in the dilated result, and a scattered boolean mask
// selects between them and padValue.
func (st *callState) interiorPad(x, padValue target.Value, shape shapes.Shape, axes []backends.PadAxis) (target.Value, []int) {
	rank := shape.Rank()
	dilatedDims := make([]int, rank)
	for axis, dim := range shape.Dimensions {
		if dim > 0 {
			dilatedDims[axis] = dim*(axes[axis].Interior+1) - axes[axis].Interior
		}
	}
	if shape.IsZeroSize() {
		return st.broadcastTo(padValue, dilatedDims), dilatedDims
	}
	klog.V(1).Infof("lowering %s: interior padding %s to %v", st.name, shape, dilatedDims)

	// indices has shape [dims..., rank]: the position of each element of x in the dilated result.
	indicesDims := append(slices.Clone(shape.Dimensions), 1)
	perAxis := make([]target.Value, rank)
	for axis, dim := range shape.Dimensions {
		positions := st.mul(st.iota(dim, dtypes.Int32), st.constInt32(axes[axis].Interior+1))
		axisDims := xslices.SliceWithValue(rank+1, 1)
		axisDims[axis] = dim
		perAxis[axis] = st.broadcastTo(st.reshape(positions, axisDims), indicesDims)
	}
	indices := st.concatenate(rank, perAxis...)

	scattered := st.scatterND(indices, x, dilatedDims)
	mask := st.scatterND(indices, st.full(shapes.Make(dtypes.Bool, shape.Dimensions...), 1), dilatedDims)
	return st.where(mask, scattered, padValue), dilatedDims
}
