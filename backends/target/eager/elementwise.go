// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eager

import (
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/target"
	"github.com/pkg/errors"
)

// elementwise broadcasts the operands to a common shape and applies fn to each tuple of elements.
// The dtype of the result is the dtype of the operand at resultFrom.
func elementwise(opName string, operands []*array, resultFrom int, fn func(values []float64) float64) (*array, error) {
	allDims := make([][]int, len(operands))
	for ii, a := range operands {
		allDims[ii] = a.shape.Dimensions
	}
	dims, err := broadcastDimensions(opName, allDims...)
	if err != nil {
		return nil, err
	}
	broadcast := make([]*array, len(operands))
	for ii, a := range operands {
		if broadcast[ii], err = a.broadcastTo(dims); err != nil {
			return nil, errors.WithMessagef(err, "eager.%s", opName)
		}
	}
	out := newArray(operands[resultFrom].shape.DType, dims...)
	values := make([]float64, len(operands))
	for idx := range out.data {
		for ii, a := range broadcast {
			values[ii] = a.data[idx]
		}
		out.data[idx] = fn(values)
	}
	return out, nil
}

func (o *Ops) binaryOp(opName string, x, y target.Value, fn func(a, b float64) float64) (target.Value, error) {
	arrays, err := toArrays(opName, x, y)
	if err != nil {
		return nil, err
	}
	if err = sameDType(opName, arrays...); err != nil {
		return nil, err
	}
	out, err := elementwise(opName, arrays, 0, func(values []float64) float64 { return fn(values[0], values[1]) })
	if err != nil {
		return nil, err
	}
	return out.value()
}

// Add implements target.Ops.
func (o *Ops) Add(x, y target.Value) (target.Value, error) {
	return o.binaryOp("Add", x, y, func(a, b float64) float64 { return a + b })
}

// Sub implements target.Ops.
func (o *Ops) Sub(x, y target.Value) (target.Value, error) {
	return o.binaryOp("Sub", x, y, func(a, b float64) float64 { return a - b })
}

// Mul implements target.Ops.
func (o *Ops) Mul(x, y target.Value) (target.Value, error) {
	return o.binaryOp("Mul", x, y, func(a, b float64) float64 { return a * b })
}

// Minimum implements target.Ops. NaN is propagated.
func (o *Ops) Minimum(x, y target.Value) (target.Value, error) {
	return o.binaryOp("Minimum", x, y, math.Min)
}

// Maximum implements target.Ops. NaN is propagated.
func (o *Ops) Maximum(x, y target.Value) (target.Value, error) {
	return o.binaryOp("Maximum", x, y, math.Max)
}

// Where implements target.Ops.
func (o *Ops) Where(condition, onTrue, onFalse target.Value) (target.Value, error) {
	arrays, err := toArrays("Where", condition, onTrue, onFalse)
	if err != nil {
		return nil, err
	}
	if arrays[0].shape.DType != dtypes.Bool {
		return nil, errors.Errorf("eager.Where: condition must be a bool value, got %s", arrays[0].shape)
	}
	if err = sameDType("Where", arrays[1:]...); err != nil {
		return nil, err
	}
	out, err := elementwise("Where", arrays, 1, func(values []float64) float64 {
		if values[0] != 0 {
			return values[1]
		}
		return values[2]
	})
	if err != nil {
		return nil, err
	}
	return out.value()
}

// ClipByValue implements target.Ops.
func (o *Ops) ClipByValue(x, lower, upper target.Value) (target.Value, error) {
	arrays, err := toArrays("ClipByValue", x, lower, upper)
	if err != nil {
		return nil, err
	}
	if err = sameDType("ClipByValue", arrays...); err != nil {
		return nil, err
	}
	out, err := elementwise("ClipByValue", arrays, 0, func(values []float64) float64 {
		return math.Min(math.Max(values[0], values[1]), values[2])
	})
	if err != nil {
		return nil, err
	}
	return out.value()
}
