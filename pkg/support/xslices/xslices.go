// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide missing functionality to the slices package: generic helpers over
// slices of axes, dimensions and flat data used across the lowering code.
package xslices

import (
	"cmp"
	"flag"
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// Last returns the last element of a slice, e.g. the channels axis of a channels-last layout.
func Last[T any](slice []T) T {
	return slice[len(slice)-1]
}

// SliceWithValue creates a slice of given size filled with given value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	for ii := range s {
		s[ii] = value
	}
	return s
}

// Iota returns {start, start+1, ..., start+len-1}.
func Iota[T interface {
	constraints.Integer | constraints.Float
}](start T, len int) (slice []T) {
	slice = make([]T, len)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// IsIota returns whether slice is exactly {start, start+1, ..., start+len(slice)-1}.
func IsIota[T constraints.Integer](slice []T, start T) bool {
	for ii, v := range slice {
		if v != start+T(ii) {
			return false
		}
	}
	return true
}

// AllEqual returns whether all elements of slice are equal to value. It returns true for empty slices.
func AllEqual[T comparable](slice []T, value T) bool {
	for _, v := range slice {
		if v != value {
			return false
		}
	}
	return true
}

// Product returns the product of all elements of slice, 1 for an empty slice.
func Product[T interface {
	constraints.Integer | constraints.Float
}](slice []T) T {
	p := T(1)
	for _, v := range slice {
		p *= v
	}
	return p
}

// Map returns fn applied to every element of in.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// Permute returns the values of slice reordered by permutation: result[i] = slice[permutation[i]].
// Applied to dimensions it gives the dimensions after a transpose, applied to a permutation p it gives
// the composition "first p, then permutation".
func Permute[T any](slice []T, permutation []int) []T {
	permuted := make([]T, len(permutation))
	for ii, axis := range permutation {
		permuted[ii] = slice[axis]
	}
	return permuted
}

// InvertPermutation returns the permutation that undoes p.
func InvertPermutation(p []int) []int {
	inv := make([]int, len(p))
	for ii, axis := range p {
		inv[axis] = ii
	}
	return inv
}

// Min returns the smallest value of slice, or the zero value if it is empty.
func Min[T cmp.Ordered](slice []T) (min T) {
	if len(slice) == 0 {
		return
	}
	min = slice[0]
	for _, v := range slice {
		if v < min {
			min = v
		}
	}
	return
}

// Flag defines a comma-separated list flag with the given name, parsing each element with parseFn.
// The returned pointer holds defaultValue until the flag is set. Setting it to "" yields an empty list.
func Flag[T any](name string, defaultValue []T, usage string, parseFn func(string) (T, error)) *[]T {
	f := &listFlag[T]{values: defaultValue, parseFn: parseFn}
	flag.Var(f, name, usage)
	return &f.values
}

// listFlag implements flag.Value for Flag.
type listFlag[T any] struct {
	values  []T
	parseFn func(string) (T, error)
}

func (f *listFlag[T]) String() string {
	return strings.Join(Map(f.values, func(v T) string { return fmt.Sprint(v) }), ",")
}

func (f *listFlag[T]) Set(list string) error {
	values := make([]T, 0)
	if list != "" {
		for _, part := range strings.Split(list, ",") {
			v, err := f.parseFn(strings.TrimSpace(part))
			if err != nil {
				return err
			}
			values = append(values, v)
		}
	}
	f.values = values
	return nil
}
