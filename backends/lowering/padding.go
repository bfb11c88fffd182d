// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"slices"

	"github.com/gomlx/lowering/backends/target"
	"github.com/pkg/errors"
)

// PaddingFor returns the explicit paddings equivalent to the VALID or SAME schemes, for windows of the given
// (dilated) size sliding over inputs with the given strides.
//
// For SAME the output dimension is ceil(in/stride), and the odd padding element (if any) goes to the end.
func PaddingFor(scheme target.Padding, in, window, strides []int) [][2]int {
	paddings := make([][2]int, len(in))
	if scheme != target.PaddingSame {
		return paddings
	}
	for ii := range in {
		out := (in[ii] + strides[ii] - 1) / strides[ii]
		total := max((out-1)*strides[ii]+window[ii]-in[ii], 0)
		paddings[ii] = [2]int{total / 2, total - total/2}
	}
	return paddings
}

// ClassifyPadding returns target.PaddingValid or target.PaddingSame if the explicit paddings are equal to
// the ones the scheme would produce, or target.PaddingExplicit otherwise. VALID is checked first.
//
// in, window (the dilated window dimensions), strides and paddings must all have the same length.
func ClassifyPadding(in, window, strides []int, paddings [][2]int) target.Padding {
	for _, scheme := range []target.Padding{target.PaddingValid, target.PaddingSame} {
		if slices.Equal(PaddingFor(scheme, in, window, strides), paddings) {
			return scheme
		}
	}
	return target.PaddingExplicit
}

// ClassifyTransposePadding returns the scheme of a transposed convolution with the given kernel spatial
// dimensions, input dilations (the strides of the transposed convolution) and paddings (of the dilated input).
//
// It returns an error if the paddings match neither scheme.
func ClassifyTransposePadding(kernel, inputDilations []int, paddings [][2]int) (target.Padding, error) {
	if len(kernel) != len(inputDilations) || len(kernel) != len(paddings) {
		return target.PaddingExplicit, errors.Errorf("found different lengths for kernel spatial dimensions (%v), input dilations (%v) and paddings (%v)",
			kernel, inputDilations, paddings)
	}
	isValid, isSame := true, true
	for ii, k := range kernel {
		s := inputDilations[ii]
		padA := k - 1
		padB := k + s - 2 + max(k-s, 0) - padA
		if paddings[ii] != [2]int{padA, padB} {
			isValid = false
		}

		sameTotal := k + s - 2
		if s > k-1 {
			padA = k - 1
		} else {
			padA = (sameTotal + 1) / 2
		}
		if paddings[ii] != [2]int{padA, sameTotal - padA} {
			isSame = false
		}
	}
	switch {
	case isValid:
		return target.PaddingValid, nil
	case isSame:
		return target.PaddingSame, nil
	}
	return target.PaddingExplicit, errors.New("Transpose convolution padding mode must be `SAME` or `VALID`.")
}
