// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implements a generic Set, mostly used for sets of axes and of operator types.
package sets

import (
	"cmp"
	"slices"
)

// Set of values of type T, backed by a map.
type Set[T comparable] map[T]struct{}

// Make returns an empty Set. The optional size reserves space.
func Make[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// MakeWith returns a Set with the given elements.
func MakeWith[T comparable](elements ...T) Set[T] {
	s := Make[T](len(elements))
	s.Insert(elements...)
	return s
}

// Has returns whether key is in the set.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert keys into the set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// Sorted returns the elements of the set in increasing order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	elements := make([]T, 0, len(s))
	for k := range s {
		elements = append(elements, k)
	}
	slices.Sort(elements)
	return elements
}

// Remaining returns the axes in [0, rank) not in s, in increasing order.
// E.g. the axes of an operand that are not collapsed by a gather.
func Remaining(s Set[int], rank int) []int {
	remaining := make([]int, 0, max(rank-len(s), 0))
	for axis := range rank {
		if !s.Has(axis) {
			remaining = append(remaining, axis)
		}
	}
	return remaining
}
