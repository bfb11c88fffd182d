// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the description of the dtype and dimensions of an N-dimensional array.
//
// A Shape may carry symbolic dimensions: axes whose extent is not known at lowering time and is
// only identified by a name (e.g. "batch"). Symbolic axes have Dimensions[axis] == DimDynamic and
// a non-empty AxisNames[axis].
//
// Precondition checks that depend on dimensions must compare them structurally (see Dim.Equal):
// two concrete dimensions are equal if they have the same value, two symbolic dimensions are
// equal if they have the same name, and a concrete dimension is never equal to a symbolic one.
//
// ## Glossary
//
//   - Rank: number of axes of an array.
//   - Axis: index of a dimension. Negative axes count from the end in the methods that say so.
//   - Dimension: the extent of an array on one of its axes. Zero is a valid dimension.
//   - DType: the data type of the array's elements, see github.com/gomlx/gopjrt/dtypes.
//   - Scalar: a shape with rank 0.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// DimDynamic marks an axis whose dimension is not known at lowering time.
const DimDynamic = -1

// Shape represents the shape of an array: its DType and the dimension of each axis.
//
// Use Make or MakeDynamic to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// AxisNames is either nil, or it has one entry per axis: the name of a symbolic axis, or "" for
	// concrete axes.
	AxisNames []string
}

// Make returns a Shape with the given concrete dimensions.
//
// It panics if a dimension is negative.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s, %v): cannot create a shape with a negative dimension", dtype, dimensions)
		}
	}
	return s
}

// MakeDynamic returns a Shape where each dimension is either an int (a concrete dimension) or a
// string (the name of a symbolic axis).
//
// Example: MakeDynamic(dtypes.Float32, "batch", 28, 28) is a batch of 28x28 arrays of unknown batch size.
func MakeDynamic(dtype dtypes.DType, dimensions ...any) Shape {
	s := Shape{DType: dtype, Dimensions: make([]int, len(dimensions))}
	for axis, dim := range dimensions {
		switch v := dim.(type) {
		case int:
			if v < 0 {
				exceptions.Panicf("shapes.MakeDynamic(%s, %v): negative dimension %d for axis %d", dtype, dimensions, v, axis)
			}
			s.Dimensions[axis] = v
		case string:
			if v == "" {
				exceptions.Panicf("shapes.MakeDynamic(%s, %v): empty axis name for axis %d", dtype, dimensions, axis)
			}
			if s.AxisNames == nil {
				s.AxisNames = make([]string, len(dimensions))
			}
			s.Dimensions[axis] = DimDynamic
			s.AxisNames[axis] = v
		default:
			exceptions.Panicf("shapes.MakeDynamic(%s, %v): dimension for axis %d must be an int or a string, got %T",
				dtype, dimensions, axis, dim)
		}
	}
	return s
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T dtypes.Number]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no axes (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// normalizeAxis converts a negative axis to its positive counterpart, and panics if it is out-of-bounds.
func (s Shape) normalizeAxis(axis int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += s.Rank()
	}
	if adjusted < 0 || adjusted >= s.Rank() {
		exceptions.Panicf("axis %d out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return adjusted
}

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
//
// Symbolic axes return DimDynamic. It panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	return s.Dimensions[s.normalizeAxis(axis)]
}

// AxisName returns the name of the symbolic axis, or "" if the axis is concrete.
func (s Shape) AxisName(axis int) string {
	if s.AxisNames == nil {
		return ""
	}
	return s.AxisNames[s.normalizeAxis(axis)]
}

// IsDynamic returns whether any of the axes is symbolic.
func (s Shape) IsDynamic() bool {
	return slices.Contains(s.Dimensions, DimDynamic)
}

// HasNamedAxes returns whether any of the axes has a name.
func (s Shape) HasNamedAxes() bool {
	for _, name := range s.AxisNames {
		if name != "" {
			return true
		}
	}
	return false
}

// IsFullyConcrete returns whether all dimensions are known.
func (s Shape) IsFullyConcrete() bool { return !s.IsDynamic() }

// IsZeroSize returns whether any of the axes has dimension 0, in which case the array has no elements.
func (s Shape) IsZeroSize() bool {
	return slices.Contains(s.Dimensions, 0)
}

// Shape returns a shallow copy of itself.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, pretty-prints the shape as "(dtype)[dim0 dim1 ...]".
//
// Symbolic axes are printed by their name.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, s.Rank())
	for axis, dim := range s.Dimensions {
		if name := s.AxisName(axis); name != "" {
			parts[axis] = name
		} else if dim == DimDynamic {
			parts[axis] = "?"
		} else {
			parts[axis] = fmt.Sprintf("%d", dim)
		}
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// Size returns the number of elements of DType needed for this shape. It's the product of all dimensions.
//
// It panics if the shape has symbolic axes.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		if d == DimDynamic {
			exceptions.Panicf("Shape.Size() undefined for shape with symbolic axes %s", s)
		}
		size *= d
	}
	return
}

// Memory returns the memory used to store an array of the given shape, the same as the size in bytes.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype, dimensions and axis names are compared.
func (s Shape) Equal(s2 Shape) bool {
	return s.DType == s2.DType && s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for structural equality of dimensions. Dtypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	return DimsEqual(s.Dims(), s2.Dims())
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	s2.AxisNames = slices.Clone(s.AxisNames)
	return
}

// WithDType returns a copy of the shape with the given dtype.
func (s Shape) WithDType(dtype dtypes.DType) Shape {
	s2 := s.Clone()
	s2.DType = dtype
	return s2
}

// Strides returns the strides for each axis of the shape, assuming a "row-major" layout.
//
// Notice the strides are **not in bytes**, but in indices. It panics for shapes with symbolic axes.
func (s Shape) Strides() (strides []int) {
	rank := s.Rank()
	if rank == 0 {
		return
	}
	if s.IsDynamic() {
		exceptions.Panicf("Shape.Strides() undefined for shape with symbolic axes %s", s)
	}
	strides = make([]int, rank)
	currentStride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= s.Dimensions[axis]
	}
	return
}
