// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/notimplemented"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/backends/target/eager"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracing(t *testing.T) {
	ops := New(eager.Must())
	assert.Equal(t, "tracing(eager)", ops.Name())

	x, err := ops.Full(shapes.Make(dtypes.Float32, 2, 2), 3)
	require.NoError(t, err)
	y, err := ops.MatMul(x, x)
	require.NoError(t, err)
	_, err = ops.UnsortedSegment(target.SegmentSum, y, tensors.FromValue([]int32{0, 0}), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Full", "MatMul", "UnsortedSegmentSum"}, ops.Calls())
	assert.Equal(t, 1, ops.Count("MatMul"))

	// Calls made inside MapFn are recorded too.
	_, err = ops.MapFn(func(slices []target.Value) (target.Value, error) {
		return ops.Add(slices[0], slices[0])
	}, y)
	require.NoError(t, err)
	assert.Equal(t, 2, ops.Count("Add"))

	ops.Reset()
	assert.Empty(t, ops.Calls())

	_, err = ops.FillGather(x, tensors.FromValue([][]int32{{0}}), []int{1}, []int{0}, []int{0}, []int{1, 2}, 0)
	require.NoError(t, err)
}

func TestTracingWithoutFillGather(t *testing.T) {
	ops := New(notimplemented.Ops{})
	_, err := ops.FillGather(nil, nil, nil, nil, nil, nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, backends.ErrNotImplemented))
	assert.Equal(t, []string{"FillGather"}, ops.Calls())
}
