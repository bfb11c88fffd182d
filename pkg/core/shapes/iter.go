// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"iter"

	"github.com/gomlx/exceptions"
)

// Iter iterates sequentially, in row-major order, over all indices of the given concrete shape.
//
// It yields the flat index (counter) and a slice of indices for each axis.
// The yielded indices slice is owned by Iter: don't change it inside the loop.
func (s Shape) Iter() iter.Seq2[int, []int] {
	return s.IterOn(make([]int, s.Rank()))
}

// IterOn is like Iter, but the iteration updates the given indices slice, which must have
// length equal to the rank.
func (s Shape) IterOn(indices []int) iter.Seq2[int, []int] {
	if len(indices) != s.Rank() {
		exceptions.Panicf("Shape.IterOn given len(indices) == %d, want it to be equal to the rank %d", len(indices), s.Rank())
	}
	if s.IsDynamic() {
		exceptions.Panicf("Shape.IterOn undefined for shape with symbolic axes %s", s)
	}
	return func(yield func(int, []int) bool) {
		if !s.Ok() || s.IsZeroSize() {
			return
		}
		for i := range indices {
			indices[i] = 0
		}
		rank := s.Rank()
		flatIdx := 0
		for {
			if !yield(flatIdx, indices) {
				return
			}
			flatIdx++
			axis := rank - 1
			for ; axis >= 0; axis-- {
				indices[axis]++
				if indices[axis] < s.Dimensions[axis] {
					break
				}
				indices[axis] = 0
			}
			if axis < 0 {
				return
			}
		}
	}
}
