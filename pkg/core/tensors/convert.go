// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Float64s returns a copy of the tensor values converted to float64. Bool values are converted to 0 or 1.
//
// It returns an error for complex dtypes.
func (t *Tensor) Float64s() ([]float64, error) {
	switch flat := t.flat.(type) {
	case []float64:
		return append([]float64(nil), flat...), nil
	case []float32:
		return toFloat64s(flat, func(v float32) float64 { return float64(v) }), nil
	case []float16.Float16:
		return toFloat64s(flat, func(v float16.Float16) float64 { return float64(v.Float32()) }), nil
	case []bfloat16.BFloat16:
		return toFloat64s(flat, func(v bfloat16.BFloat16) float64 { return float64(v.Float32()) }), nil
	case []int64:
		return toFloat64s(flat, func(v int64) float64 { return float64(v) }), nil
	case []int32:
		return toFloat64s(flat, func(v int32) float64 { return float64(v) }), nil
	case []int16:
		return toFloat64s(flat, func(v int16) float64 { return float64(v) }), nil
	case []int8:
		return toFloat64s(flat, func(v int8) float64 { return float64(v) }), nil
	case []uint64:
		return toFloat64s(flat, func(v uint64) float64 { return float64(v) }), nil
	case []uint32:
		return toFloat64s(flat, func(v uint32) float64 { return float64(v) }), nil
	case []uint16:
		return toFloat64s(flat, func(v uint16) float64 { return float64(v) }), nil
	case []uint8:
		return toFloat64s(flat, func(v uint8) float64 { return float64(v) }), nil
	case []bool:
		return toFloat64s(flat, func(v bool) float64 {
			if v {
				return 1
			}
			return 0
		}), nil
	}
	return nil, errors.Errorf("tensor of dtype %s cannot be converted to float64", t.shape.DType)
}

func toFloat64s[T any](flat []T, convertFn func(T) float64) []float64 {
	out := make([]float64, len(flat))
	for ii, v := range flat {
		out[ii] = convertFn(v)
	}
	return out
}

// Ints returns a copy of the tensor values converted to int. Float values are truncated.
func (t *Tensor) Ints() ([]int, error) {
	values, err := t.Float64s()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(values))
	for ii, v := range values {
		out[ii] = int(v)
	}
	return out, nil
}

// FromFloat64s creates a tensor of the given dtype and dimensions from float64 values.
//
// Values are converted to the dtype: integer dtypes are truncated and saturated to the dtype's range,
// bool is true for any non-zero value.
func FromFloat64s(dtype dtypes.DType, dimensions []int, data []float64) (*Tensor, error) {
	if dtype.IsComplex() || dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("cannot create tensor of dtype %s from float64 values", dtype)
	}
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		return nil, errors.Errorf("FromFloat64s(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	switch flat := t.flat.(type) {
	case []float64:
		copy(flat, data)
	case []float32:
		fromFloat64s(flat, data, func(v float64) float32 { return float32(v) })
	case []float16.Float16:
		fromFloat64s(flat, data, func(v float64) float16.Float16 { return float16.Fromfloat32(float32(v)) })
	case []bfloat16.BFloat16:
		fromFloat64s(flat, data, func(v float64) bfloat16.BFloat16 { return bfloat16.FromFloat32(float32(v)) })
	case []int64:
		fromFloat64s(flat, data, func(v float64) int64 {
			if v = saturate(v, math.MinInt64, math.MaxInt64); v >= math.MaxInt64 {
				return math.MaxInt64
			}
			return int64(v)
		})
	case []int32:
		fromFloat64s(flat, data, func(v float64) int32 { return int32(saturate(v, math.MinInt32, math.MaxInt32)) })
	case []int16:
		fromFloat64s(flat, data, func(v float64) int16 { return int16(saturate(v, math.MinInt16, math.MaxInt16)) })
	case []int8:
		fromFloat64s(flat, data, func(v float64) int8 { return int8(saturate(v, math.MinInt8, math.MaxInt8)) })
	case []uint64:
		fromFloat64s(flat, data, func(v float64) uint64 {
			if v = saturate(v, 0, math.MaxUint64); v >= math.MaxUint64 {
				return math.MaxUint64
			}
			return uint64(v)
		})
	case []uint32:
		fromFloat64s(flat, data, func(v float64) uint32 { return uint32(saturate(v, 0, math.MaxUint32)) })
	case []uint16:
		fromFloat64s(flat, data, func(v float64) uint16 { return uint16(saturate(v, 0, math.MaxUint16)) })
	case []uint8:
		fromFloat64s(flat, data, func(v float64) uint8 { return uint8(saturate(v, 0, math.MaxUint8)) })
	case []bool:
		fromFloat64s(flat, data, func(v float64) bool { return v != 0 })
	default:
		return nil, errors.Errorf("FromFloat64s: dtype %s not supported", dtype)
	}
	return t, nil
}

func fromFloat64s[T any](flat []T, data []float64, convertFn func(float64) T) {
	for ii, v := range data {
		flat[ii] = convertFn(v)
	}
}

// saturate truncates v and limits it to [lowest, highest]. NaN becomes 0.
func saturate(v, lowest, highest float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Trunc(v)
	if v < lowest {
		return lowest
	}
	if v >= highest {
		return highest
	}
	return v
}
