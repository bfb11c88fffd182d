// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eager

import (
	"slices"
	"strings"

	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MatMul implements target.Ops, multiplying each pair of matrices of the batch with gonum.
func (o *Ops) MatMul(x, y target.Value) (target.Value, error) {
	arrays, err := toArrays("MatMul", x, y)
	if err != nil {
		return nil, err
	}
	lhs, rhs := arrays[0], arrays[1]
	if err = sameDType("MatMul", lhs, rhs); err != nil {
		return nil, err
	}
	rank := lhs.shape.Rank()
	if rank < 2 || rhs.shape.Rank() != rank {
		return nil, errors.Errorf("eager.MatMul: operands must have the same rank >= 2, got %s and %s", lhs.shape, rhs.shape)
	}
	batchDims := lhs.shape.Dimensions[:rank-2]
	if !slices.Equal(batchDims, rhs.shape.Dimensions[:rank-2]) {
		return nil, errors.Errorf("eager.MatMul: batch dimensions must match, got %s and %s", lhs.shape, rhs.shape)
	}
	m, k := lhs.shape.Dimensions[rank-2], lhs.shape.Dimensions[rank-1]
	k2, n := rhs.shape.Dimensions[rank-2], rhs.shape.Dimensions[rank-1]
	if k != k2 {
		return nil, errors.Errorf("eager.MatMul: contracting dimensions don't match, got %s and %s", lhs.shape, rhs.shape)
	}
	out := newArray(lhs.shape.DType, append(slices.Clone(batchDims), m, n)...)
	if m == 0 || n == 0 || k == 0 {
		// gonum doesn't accept empty matrices: the result is empty or zeros.
		return out.value()
	}
	numBatches := len(out.data) / (m * n)
	var product mat.Dense
	for b := range numBatches {
		a := mat.NewDense(m, k, lhs.data[b*m*k:(b+1)*m*k])
		c := mat.NewDense(k, n, rhs.data[b*k*n:(b+1)*k*n])
		product.Reset()
		product.Mul(a, c)
		for row := range m {
			copy(out.data[b*m*n+row*n:b*m*n+(row+1)*n], product.RawRowView(row))
		}
	}
	return out.value()
}

// Einsum implements target.Ops, for equations on two operands with one letter per axis,
// e.g. "abc,acd->abd". Labels not in the output are summed over.
func (o *Ops) Einsum(equation string, x, y target.Value) (target.Value, error) {
	arrays, err := toArrays("Einsum", x, y)
	if err != nil {
		return nil, err
	}
	if err = sameDType("Einsum", arrays...); err != nil {
		return nil, err
	}
	inputs, output, found := strings.Cut(strings.ReplaceAll(equation, " ", ""), "->")
	if !found {
		return nil, errors.Errorf("eager.Einsum: equation %q must be of the form \"<lhs>,<rhs>-><output>\"", equation)
	}
	operandLabels := strings.Split(inputs, ",")
	if len(operandLabels) != 2 {
		return nil, errors.Errorf("eager.Einsum: equation %q must have exactly 2 operands", equation)
	}

	// Collect the dimension of each label.
	labelDims := make(map[rune]int)
	var labels []rune
	for ii, a := range arrays {
		operand := []rune(operandLabels[ii])
		if len(operand) != a.shape.Rank() {
			return nil, errors.Errorf("eager.Einsum: equation %q has %d labels for operand #%d, but it has shape %s",
				equation, len(operand), ii, a.shape)
		}
		for axis, label := range operand {
			dim := a.shape.Dimensions[axis]
			if prev, ok := labelDims[label]; ok {
				if prev != dim {
					return nil, errors.Errorf("eager.Einsum: label %q has dimensions %d and %d in equation %q",
						label, prev, dim, equation)
				}
				if slices.Index(operand, label) != axis {
					return nil, errors.Errorf("eager.Einsum: repeated label %q in operand #%d of equation %q not supported",
						label, ii, equation)
				}
				continue
			}
			labelDims[label] = dim
			labels = append(labels, label)
		}
	}
	outLabels := []rune(output)
	outDims := make([]int, len(outLabels))
	for axis, label := range outLabels {
		dim, ok := labelDims[label]
		if !ok {
			return nil, errors.Errorf("eager.Einsum: output label %q not present in the operands of %q", label, equation)
		}
		if slices.Index(outLabels, label) != axis {
			return nil, errors.Errorf("eager.Einsum: repeated output label %q in %q", label, equation)
		}
		outDims[axis] = dim
	}

	// Strides of each operand (and the output) with respect to the list of all labels.
	labelStrides := func(operandLabels []rune, dims []int) []int {
		operandStrides := shapes.Make(arrays[0].shape.DType, dims...).Strides()
		strides := make([]int, len(labels))
		for axis, label := range operandLabels {
			strides[slices.Index(labels, label)] = operandStrides[axis]
		}
		return strides
	}
	lhsStrides := labelStrides([]rune(operandLabels[0]), arrays[0].shape.Dimensions)
	rhsStrides := labelStrides([]rune(operandLabels[1]), arrays[1].shape.Dimensions)
	outStrides := labelStrides(outLabels, outDims)

	allDims := make([]int, len(labels))
	for ii, label := range labels {
		allDims[ii] = labelDims[label]
	}
	out := newArray(arrays[0].shape.DType, outDims...)
	for _, indices := range shapes.Make(arrays[0].shape.DType, allDims...).Iter() {
		out.data[flatIndex(indices, outStrides)] +=
			arrays[0].data[flatIndex(indices, lhsStrides)] * arrays[1].data[flatIndex(indices, rhsStrides)]
	}
	return out.value()
}
