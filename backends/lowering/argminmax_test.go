// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends/target/tracing"
	"github.com/stretchr/testify/assert"
)

func TestArgMinMax(t *testing.T) {
	x := c([][]float32{{1, 5, 2}, {7, 0, 3}})
	tr := tracing.New(ops)
	e := NewWithConfig(tr, Config{})

	got, err := e.ArgMinMax(x, false, ArgMinMaxAttrs{Axis: 1, OutputDType: dtypes.Int32})
	requireValue(t, []int32{1, 0}, got, err)
	assert.Equal(t, 0, tr.Count("Cast"))

	tr.Reset()
	got, err = e.ArgMinMax(x, true, ArgMinMaxAttrs{Axis: 0, OutputDType: dtypes.Int64})
	requireValue(t, []int64{0, 1, 0}, got, err)
	assert.Equal(t, 0, tr.Count("Cast"))

	tr.Reset()
	got, err = e.ArgMinMax(x, false, ArgMinMaxAttrs{Axis: 1, OutputDType: dtypes.Int8})
	requireValue(t, []int8{1, 0}, got, err)
	assert.Equal(t, 1, tr.Count("Cast"))

	// Ties go to the first index.
	got, err = engine.ArgMinMax(c([]int32{3, 1, 3}), false, ArgMinMaxAttrs{OutputDType: dtypes.Int32})
	requireValue(t, int32(0), got, err)
}
