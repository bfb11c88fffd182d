// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Dim is the extent of a single axis: either a concrete value, or a symbolic axis identified by Name.
type Dim struct {
	Value int
	Name  string
}

// Concrete returns a Dim with a known value.
func Concrete(value int) Dim { return Dim{Value: value} }

// Symbolic returns a Dim for the named symbolic axis.
func Symbolic(name string) Dim { return Dim{Value: DimDynamic, Name: name} }

// IsSymbolic returns whether the dimension is not known at lowering time.
func (d Dim) IsSymbolic() bool { return d.Name != "" || d.Value == DimDynamic }

// Equal compares two dimensions structurally.
//
// Concrete dimensions are compared by value and symbolic ones by name. A concrete dimension
// is never equal to a symbolic one, and unnamed symbolic dimensions are never equal to anything.
func (d Dim) Equal(other Dim) bool {
	if d.IsSymbolic() != other.IsSymbolic() {
		return false
	}
	if d.IsSymbolic() {
		return d.Name != "" && d.Name == other.Name
	}
	return d.Value == other.Value
}

// EqualValue returns whether d is concrete and equal to value.
func (d Dim) EqualValue(value int) bool {
	return !d.IsSymbolic() && d.Value == value
}

// String implements fmt.Stringer.
func (d Dim) String() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Value == DimDynamic {
		return "?"
	}
	return fmt.Sprintf("%d", d.Value)
}

// Dims returns the dimensions of the shape as a slice of Dim.
func (s Shape) Dims() []Dim {
	dims := make([]Dim, s.Rank())
	for axis, value := range s.Dimensions {
		dims[axis] = Dim{Value: value, Name: s.AxisName(axis)}
	}
	return dims
}

// AxisDim returns the Dim of the given axis. Negative axes count from the end.
func (s Shape) AxisDim(axis int) Dim {
	axis = s.normalizeAxis(axis)
	return Dim{Value: s.Dimensions[axis], Name: s.AxisName(axis)}
}

// MakeDims converts a list of ints (concrete) and strings (symbolic axis names) to a slice of Dim.
func MakeDims(dimensions ...any) []Dim {
	dims := make([]Dim, len(dimensions))
	for ii, dim := range dimensions {
		switch v := dim.(type) {
		case int:
			dims[ii] = Concrete(v)
		case string:
			dims[ii] = Symbolic(v)
		case Dim:
			dims[ii] = v
		default:
			exceptions.Panicf("shapes.MakeDims(%v): element #%d must be an int, a string or a Dim, got %T", dimensions, ii, dim)
		}
	}
	return dims
}

// ConcreteDims converts a list of ints to a slice of concrete Dim.
func ConcreteDims(values ...int) []Dim {
	dims := make([]Dim, len(values))
	for ii, v := range values {
		dims[ii] = Concrete(v)
	}
	return dims
}

// DimsEqual compares two lists of dimensions structurally, see Dim.Equal.
func DimsEqual(a, b []Dim) bool {
	if len(a) != len(b) {
		return false
	}
	for ii := range a {
		if !a[ii].Equal(b[ii]) {
			return false
		}
	}
	return true
}

// DimsString pretty-prints a list of dimensions, e.g. "(batch, 3, 1)".
func DimsString(dims []Dim) string {
	parts := make([]string, len(dims))
	for ii, d := range dims {
		parts[ii] = d.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FromDims builds a shape from a list of Dim.
func FromDims(dtype dtypes.DType, dims []Dim) Shape {
	s := Shape{DType: dtype, Dimensions: make([]int, len(dims))}
	for axis, d := range dims {
		if d.Name != "" {
			if s.AxisNames == nil {
				s.AxisNames = make([]string, len(dims))
			}
			s.AxisNames[axis] = d.Name
			s.Dimensions[axis] = DimDynamic
			continue
		}
		s.Dimensions[axis] = d.Value
	}
	return s
}
