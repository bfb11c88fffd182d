// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a host-memory Tensor: a concrete shape plus a flat slice of values
// of the Go type corresponding to the shape's DType.
//
// It is the value representation used by the eager target, and by tests to feed operands and
// check results.
//
// There are various ways to construct a Tensor:
//
//   - FromShape(shape): zero-initialized tensor of the given shape.
//   - FromScalar(value): a scalar tensor, the DType is inferred from the value.
//   - FromFlatDataAndDimensions(data, dimensions...): data is copied and laid out in row-major order.
//   - FromValue[S MultiDimensionSlice](value S): from a scalar or from a regular multidimensional
//     slice, e.g.: FromValue([][]float32{{1, 2}, {3, 5}, {7, 11}}).
//   - FromAnyValue(value any): same as FromValue but non-generic.
//   - FromFloat64s(dtype, dimensions, data): converts float64 values to the given dtype.
package tensors

import (
	"fmt"
	"math"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Tensor holds the values of an array in host memory.
//
// Tensors are not safe for concurrent mutation, but can be read concurrently.
type Tensor struct {
	shape shapes.Shape

	// flat holds the array with actual data: a slice of the Go type of the dtype.
	flat any
}

// MultiDimensionSlice lists the Go types a Tensor can be converted to/from. There are no
// recursions in generics' constraint definitions, so we enumerate up to 6 levels of slices.
type MultiDimensionSlice interface {
	bool | float32 | float64 | int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float16.Float16 | bfloat16.BFloat16 |
		[]bool | []float32 | []float64 | []int | []int8 | []int16 | []int32 | []int64 | []uint8 | []uint16 | []uint32 | []uint64 |
		[][]bool | [][]float32 | [][]float64 | [][]int | [][]int8 | [][]int16 | [][]int32 | [][]int64 | [][]uint8 | [][]uint16 | [][]uint32 | [][]uint64 |
		[][][]bool | [][][]float32 | [][][]float64 | [][][]int | [][][]int8 | [][][]int16 | [][][]int32 | [][][]int64 | [][][]uint8 | [][][]uint16 | [][][]uint32 | [][][]uint64 |
		[][][][]bool | [][][][]float32 | [][][][]float64 | [][][][]int | [][][][]int8 | [][][][]int16 | [][][][]int32 | [][][][]int64 | [][][][]uint8 | [][][][]uint16 | [][][][]uint32 | [][][][]uint64 |
		[][][][][]bool | [][][][][]float32 | [][][][][]float64 | [][][][][]int | [][][][][]int8 | [][][][][]int16 | [][][][][]int32 | [][][][][]int64 | [][][][][]uint8 | [][][][][]uint16 | [][][][][]uint32 | [][][][][]uint64 |
		[][][][][][]bool | [][][][][][]float32 | [][][][][][]float64 | [][][][][][]int | [][][][][][]int8 | [][][][][][]int16 | [][][][][][]int32 | [][][][][][]int64 | [][][][][][]uint8 | [][][][][][]uint16 | [][][][][][]uint32 | [][][][][][]uint64
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
//
// It panics if you provide an invalid shape or one with symbolic axes.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	if shape.IsDynamic() {
		exceptions.Panicf("tensors.FromShape(%s): cannot allocate a tensor with symbolic axes", shape)
	}
	shape = shape.Clone()
	shape.AxisNames = nil
	size := shape.Size()
	return &Tensor{
		shape: shape,
		flat:  reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, size).Interface(),
	}
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor's elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size returns the number of elements of the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Flat returns the underlying flat slice of values, a slice of the Go type of the dtype.
// It is owned by the Tensor.
func (t *Tensor) Flat() any { return t.flat }

// FromScalar creates a tensor with the given scalar. The DType is inferred from the value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromFlatDataAndDimensions([]T{value})
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor. The DType is inferred from the data type.
//
// It panics if the size of data is wrong for the shape.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	copyConverted(reflect.ValueOf(t.flat), reflect.ValueOf(data))
	return t
}

// copyConverted copies src to dst, converting element by element if the Go types differ (e.g.: int to int64).
func copyConverted(dst, src reflect.Value) {
	if dst.Type() == src.Type() {
		reflect.Copy(dst, src)
		return
	}
	elemT := dst.Type().Elem()
	for ii := range src.Len() {
		dst.Index(ii).Set(src.Index(ii).Convert(elemT))
	}
}

// FromValue returns a tensor constructed from the given multi-dimension slice (or scalar).
// If the rank of the value is larger than 1, the shape of all sub-slices must be the same.
//
// It panics if the shape is not regular.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is a non-generic version of FromValue.
// If the input is a tensor already, it is simply returned.
//
// It panics with an error if the value type is unsupported or the shape is not regular.
func FromAnyValue(value any) *Tensor {
	if valueT, ok := value.(*Tensor); ok {
		return valueT
	}
	shape, err := shapeForValue(value)
	if err != nil {
		panic(errors.Wrapf(err, "cannot create shape from %T", value))
	}
	t := FromShape(shape)
	flatV := reflect.ValueOf(t.flat)
	if shape.IsScalar() {
		flatV.Index(0).Set(reflect.ValueOf(value).Convert(flatV.Type().Elem()))
		return t
	}
	copySlicesRecursively(flatV, reflect.ValueOf(value), shape.Strides())
	return t
}

// copySlicesRecursively copy values on a multi-dimension slice to a flat data slice
// assuming the strides for each dimension.
func copySlicesRecursively(data reflect.Value, mdSlice reflect.Value, strides []int) {
	if len(strides) == 1 {
		copyConverted(data, mdSlice)
		return
	}
	subStrides := strides[1:]
	for ii := range mdSlice.Len() {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		copySlicesRecursively(subData, mdSlice.Index(ii), subStrides)
	}
}

func shapeForValue(v any) (shapes.Shape, error) {
	var shape shapes.Shape
	err := shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return shape, err
}

func shapeForValueRecursive(shape *shapes.Shape, v reflect.Value, t reflect.Type) error {
	switch t.Kind() {
	case reflect.Slice:
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()
		if v.Len() == 0 {
			return errors.Errorf("value with empty slice not valid for Tensor conversion: %T -- use FromShape for tensors with zero-dimensions", v.Interface())
		}
		err := shapeForValueRecursive(shape, v.Index(0), t)
		if err != nil {
			return err
		}

		// Test that other elements have the same shape as the first one.
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			err = shapeForValueRecursive(&shapeTest, v.Index(ii), t)
			if err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %q, and %q", shape, shapeTest)
			}
		}

	case reflect.Pointer:
		return errors.Errorf("cannot convert Pointer (%s) to a concrete value for tensors", t)

	default:
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("cannot convert type %s to a value concrete tensor type (maybe type not supported yet?)", t)
		}
	}
	return nil
}

// Value returns a multidimensional slice (except if the shape is a scalar) containing a copy of the values stored
// in the tensor.
// This is expensive and usually only used for smaller tensors in tests and to print results.
func (t *Tensor) Value() any {
	flatV := reflect.ValueOf(t.flat)
	if t.shape.IsScalar() {
		return flatV.Index(0).Interface()
	}
	flatCopyV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(flatCopyV, flatV)
	return convertDataToSlices(flatCopyV, t.shape.Dimensions...).Interface()
}

// convertDataToSlices takes data as a flat slice and creates a multidimensional slice with the given dimensions that
// points to the given data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	strides := shapes.Make(dtypes.Int8, dimensions...).Strides()
	return createSlicesRecursively(resultT, dataV, dimensions, strides)
}

func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(strides) == 1 {
		return data
	}
	numElements := dimensions[0]
	slice := reflect.MakeSlice(resultT, numElements, numElements)
	for ii := range numElements {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		slice.Index(ii).Set(createSlicesRecursively(resultT.Elem(), subData, dimensions[1:], strides[1:]))
	}
	return slice
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// Even scalar values have a flattened data representation of one element.
//
// The slice is owned by the Tensor and should not be changed.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) error {
	flat, ok := t.flat.([]T)
	if !ok {
		var v T
		return errors.Errorf("ConstFlatData[%T] is incompatible with Tensor's dtype %s", v, t.shape.DType)
	}
	accessFn(flat)
	return nil
}

// CopyFlatData returns a copy of the flat data of the tensor, it panics if T doesn't match the dtype.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	var out []T
	err := ConstFlatData(t, func(flat []T) {
		out = make([]T, len(flat))
		copy(out, flat)
	})
	if err != nil {
		panic(err)
	}
	return out
}

// Equal checks whether t == other: same shape and same values.
func (t *Tensor) Equal(other *Tensor) bool {
	if t == other {
		return true
	}
	if !t.shape.Equal(other.shape) {
		return false
	}
	return reflect.DeepEqual(t.flat, other.flat)
}

// InDelta checks whether Abs(t - other) <= delta for every element.
// Shapes must be equal. Bool tensors must be equal.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if t == other {
		return true
	}
	if !t.shape.Equal(other.shape) {
		return false
	}
	if t.shape.DType == dtypes.Bool {
		return t.Equal(other)
	}
	v0, err0 := t.Float64s()
	v1, err1 := other.Float64s()
	if err0 != nil || err1 != nil {
		return false
	}
	for ii := range v0 {
		a, b := v0[ii], v1[ii]
		if a == b || (math.IsNaN(a) && math.IsNaN(b)) {
			continue
		}
		if !(math.Abs(a-b) <= delta) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer, it uses Summary with the default precision.
func (t *Tensor) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Summary(4)
}

// GoString implements fmt.GoStringer.
func (t *Tensor) GoString() string {
	return fmt.Sprintf("tensors.Tensor{%s}", t.shape)
}
