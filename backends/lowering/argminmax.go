// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/shapeinference"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
)

// ArgMinMaxAttrs are the attributes of backends.OpTypeArgMin and backends.OpTypeArgMax.
type ArgMinMaxAttrs struct {
	// Axis reduced, it must be non-negative.
	Axis int

	// OutputDType of the indices, an integer dtype.
	OutputDType dtypes.DType
}

func inferArgMinMax(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	attrs, err := attrsAs[ArgMinMaxAttrs](st)
	if err != nil {
		return shapes.Invalid(), err
	}
	return shapeinference.ArgMinMaxOp(operands[0], attrs.Axis, attrs.OutputDType)
}

// lowerArgMinMax uses the target ArgMinMax, which only outputs Int32 or Int64: the result is computed
// in the one wide enough and cast to the requested dtype.
func lowerArgMinMax(st *callState) (target.Value, error) {
	attrs := mustAttrs[ArgMinMaxAttrs](st)
	indexDType := dtypes.Int32
	if attrs.OutputDType.Memory() > 4 {
		indexDType = dtypes.Int64
	}
	result, err := st.ops.ArgMinMax(st.operands[0], attrs.Axis, st.op == backends.OpTypeArgMin, indexDType)
	result = st.check("ArgMinMax", result, err)
	if indexDType != attrs.OutputDType {
		result = st.cast(result, attrs.OutputDType)
	}
	return result, nil
}
