// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package eager implements target.Ops with a pure Go reference evaluator: every primitive is
// evaluated immediately on host tensors (*tensors.Tensor), following the semantics (and the error
// conditions) of the TensorFlow op of the same name.
//
// Values are computed in float64 and converted back to the dtype of the result, so integers
// beyond 2^53 lose precision. It is meant for tests and for checking the lowering engine, not for speed.
//
// Configuration, passed to New as a comma-separated list of options:
//
//   - "parallelism=N": number of goroutines used by MapFn. 0 disables parallelism, -1 means unlimited.
//     Default is runtime.NumCPU().
package eager

import (
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/internal/workerspool"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Name of the target.
const Name = "eager"

// Ops implements target.Ops and target.FillGatherer. It is safe for concurrent use.
type Ops struct {
	pool *workerspool.Pool
}

var (
	_ target.Ops          = (*Ops)(nil)
	_ target.FillGatherer = (*Ops)(nil)
)

// New returns an eager target configured by the given options, see package documentation.
func New(config string) (*Ops, error) {
	o := &Ops{pool: workerspool.New()}
	for _, option := range strings.Split(config, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		key, value, _ := strings.Cut(option, "=")
		switch key {
		case "parallelism":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, errors.Wrapf(err, "eager: invalid value for option %q", option)
			}
			o.pool = workerspool.NewWithParallelism(n)
		default:
			return nil, errors.Errorf("eager: unknown configuration option %q", option)
		}
	}
	return o, nil
}

// Must returns an eager target with the default configuration.
func Must() *Ops {
	o, err := New("")
	if err != nil {
		panic(err)
	}
	return o
}

// Name implements target.Ops.
func (o *Ops) Name() string { return Name }

// Parallelism returns the number of goroutines MapFn uses.
func (o *Ops) Parallelism() int { return o.pool.MaxParallelism() }

// array is the working representation of a value: its shape and its values as float64.
type array struct {
	shape shapes.Shape
	data  []float64
}

func newArray(dtype dtypes.DType, dimensions ...int) *array {
	shape := shapes.Make(dtype, dimensions...)
	return &array{shape: shape, data: make([]float64, shape.Size())}
}

// toTensor returns the *tensors.Tensor of the value, or an error if it is not one.
func toTensor(opName string, x target.Value) (*tensors.Tensor, error) {
	t, ok := x.(*tensors.Tensor)
	if !ok || t == nil {
		return nil, errors.Errorf("eager.%s: value must be a non-nil *tensors.Tensor, got %T", opName, x)
	}
	return t, nil
}

func toArray(opName string, x target.Value) (*array, error) {
	t, err := toTensor(opName, x)
	if err != nil {
		return nil, err
	}
	data, err := t.Float64s()
	if err != nil {
		return nil, errors.WithMessagef(err, "eager.%s", opName)
	}
	return &array{shape: t.Shape(), data: data}, nil
}

func toArrays(opName string, xs ...target.Value) ([]*array, error) {
	arrays := make([]*array, len(xs))
	for ii, x := range xs {
		var err error
		arrays[ii], err = toArray(opName, x)
		if err != nil {
			return nil, errors.WithMessagef(err, "operand #%d", ii)
		}
	}
	return arrays, nil
}

// toInts reads an integer value as a flat list of ints.
func toInts(opName, name string, x target.Value) ([]int, error) {
	a, err := toArray(opName, x)
	if err != nil {
		return nil, err
	}
	if !a.shape.DType.IsInt() {
		return nil, errors.Errorf("eager.%s: %s must be an integer value, got %s", opName, name, a.shape)
	}
	ints := make([]int, len(a.data))
	for ii, v := range a.data {
		ints[ii] = int(v)
	}
	return ints, nil
}

func (a *array) value() (target.Value, error) {
	return tensors.FromFloat64s(a.shape.DType, a.shape.Dimensions, a.data)
}

// flatIndex converts a multi-dimensional index to a flat index, given the strides.
func flatIndex(indices, strides []int) int {
	idx := 0
	for axis, i := range indices {
		idx += i * strides[axis]
	}
	return idx
}

func sameDType(opName string, arrays ...*array) error {
	for _, a := range arrays[1:] {
		if a.shape.DType != arrays[0].shape.DType {
			return errors.Errorf("eager.%s: operands must have the same dtype, got %s and %s",
				opName, arrays[0].shape.DType, a.shape.DType)
		}
	}
	return nil
}

// Shape implements target.Ops.
func (o *Ops) Shape(x target.Value) (shapes.Shape, error) {
	t, err := toTensor("Shape", x)
	if err != nil {
		return shapes.Invalid(), err
	}
	return t.Shape(), nil
}

// Constant implements target.Ops. Tensors are never mutated by the eager target, so it is used as is.
func (o *Ops) Constant(t *tensors.Tensor) (target.Value, error) {
	if t == nil {
		return nil, errors.New("eager.Constant: nil tensor")
	}
	return t, nil
}

// Full implements target.Ops.
func (o *Ops) Full(shape shapes.Shape, value float64) (target.Value, error) {
	if shape.IsDynamic() {
		return nil, errors.Errorf("eager.Full: shape %s must be concrete", shape)
	}
	a := newArray(shape.DType, shape.Dimensions...)
	for ii := range a.data {
		a.data[ii] = value
	}
	return a.value()
}

// Range implements target.Ops.
func (o *Ops) Range(n int, dtype dtypes.DType) (target.Value, error) {
	if n < 0 {
		return nil, errors.Errorf("eager.Range: n must be non-negative, got %d", n)
	}
	a := newArray(dtype, n)
	for ii := range a.data {
		a.data[ii] = float64(ii)
	}
	return a.value()
}

// Cast implements target.Ops.
func (o *Ops) Cast(x target.Value, dtype dtypes.DType) (target.Value, error) {
	a, err := toArray("Cast", x)
	if err != nil {
		return nil, err
	}
	a.shape = a.shape.WithDType(dtype)
	return a.value()
}
