// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/lowering/backends/shapeinference"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DotGeneralAttrs are the attributes of backends.OpTypeDotGeneral.
//
// The output axes are the batch axes, followed by the remaining lhs axes and then the remaining rhs axes.
type DotGeneralAttrs struct {
	LhsContractingAxes, LhsBatchAxes []int
	RhsContractingAxes, RhsBatchAxes []int
}

// einsumLabels are the labels available to the einsum equations.
const einsumLabels = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func inferDotGeneral(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	attrs, err := attrsAs[DotGeneralAttrs](st)
	if err != nil {
		return shapes.Invalid(), err
	}
	lhs, rhs := operands[0], operands[1]
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), unsupportedError(st.op, fmt.Sprintf(
			"Operands must have the same dtype, got lhs %s and rhs %s.", lhs.DType, rhs.DType))
	}
	return shapeinference.DotGeneralOp(lhs, attrs.LhsContractingAxes, attrs.LhsBatchAxes,
		rhs, attrs.RhsContractingAxes, attrs.RhsBatchAxes)
}

// isMatMul returns whether the dot-general is a (batched) matrix/matrix, vector/matrix, matrix/vector
// or vector/vector product, with leading batch axes in the same order on both sides.
func isMatMul(attrs DotGeneralAttrs, lhsRank, rhsRank int) bool {
	numBatch := len(attrs.LhsBatchAxes)
	return xslices.IsIota(attrs.LhsBatchAxes, 0) &&
		slices.Equal(attrs.RhsBatchAxes, attrs.LhsBatchAxes) &&
		lhsRank-rhsRank >= -1 && lhsRank-rhsRank <= 1 &&
		lhsRank-numBatch >= 1 && lhsRank-numBatch <= 2 &&
		rhsRank-numBatch >= 1 && rhsRank-numBatch <= 2 &&
		slices.Equal(attrs.LhsContractingAxes, []int{lhsRank - 1}) &&
		slices.Equal(attrs.RhsContractingAxes, []int{numBatch})
}

func lowerDotGeneral(st *callState) (target.Value, error) {
	attrs := mustAttrs[DotGeneralAttrs](st)
	lhs, rhs := st.operands[0], st.operands[1]
	lhsRank, rhsRank := st.concrete[0].Rank(), st.concrete[1].Rank()

	if !st.config.NoMatMul && isMatMul(attrs, lhsRank, rhsRank) {
		klog.V(1).Infof("lowering %s: MatMul of %s and %s", st.name, st.concrete[0], st.concrete[1])
		numBatch := len(attrs.LhsBatchAxes)
		var squeezeAxes []int
		if lhsRank-numBatch == 1 {
			lhs = st.expandDims(lhs, lhsRank-1)
			squeezeAxes = append(squeezeAxes, numBatch)
		}
		if rhsRank-numBatch == 1 {
			rhs = st.expandDims(rhs, rhsRank)
			squeezeAxes = append(squeezeAxes, numBatch+1)
		}
		result, err := st.ops.MatMul(lhs, rhs)
		result = st.check("MatMul", result, err)
		if len(squeezeAxes) > 0 {
			result = st.squeeze(result, squeezeAxes...)
		}
		return result, nil
	}

	equation, err := einsumEquation(attrs, lhsRank, rhsRank)
	if err != nil {
		return nil, unsupportedError(st.op, err.Error())
	}
	klog.V(1).Infof("lowering %s: Einsum %q", st.name, equation)
	result, err := st.ops.Einsum(equation, lhs, rhs)
	return st.check("Einsum", result, err), nil
}

// einsumEquation builds the einsum equation of a dot-general: each axis gets its own label, except
// contracting and batch pairs, which share one.
func einsumEquation(attrs DotGeneralAttrs, lhsRank, rhsRank int) (string, error) {
	numLabels := lhsRank + rhsRank + len(attrs.LhsContractingAxes) + len(attrs.LhsBatchAxes)
	if numLabels > len(einsumLabels) {
		return "", errors.Errorf("Einsum equation would need %d labels, only %d are available.", numLabels, len(einsumLabels))
	}
	next := 0
	newLabel := func() byte {
		next++
		return einsumLabels[next-1]
	}
	lhsLabels, rhsLabels := make([]byte, lhsRank), make([]byte, rhsRank)
	for ii := range lhsLabels {
		lhsLabels[ii] = newLabel()
	}
	for ii := range rhsLabels {
		rhsLabels[ii] = newLabel()
	}
	lhsFree, rhsFree := slices.Repeat([]bool{true}, lhsRank), slices.Repeat([]bool{true}, rhsRank)
	share := func(lhsAxis, rhsAxis int) byte {
		label := newLabel()
		lhsLabels[lhsAxis], rhsLabels[rhsAxis] = label, label
		lhsFree[lhsAxis], rhsFree[rhsAxis] = false, false
		return label
	}
	for ii, lhsAxis := range attrs.LhsContractingAxes {
		share(lhsAxis, attrs.RhsContractingAxes[ii])
	}
	var out strings.Builder
	for ii, lhsAxis := range attrs.LhsBatchAxes {
		out.WriteByte(share(lhsAxis, attrs.RhsBatchAxes[ii]))
	}
	for axis, free := range lhsFree {
		if free {
			out.WriteByte(lhsLabels[axis])
		}
	}
	for axis, free := range rhsFree {
		if free {
			out.WriteByte(rhsLabels[axis])
		}
	}
	return string(lhsLabels) + "," + string(rhsLabels) + "->" + out.String(), nil
}
