// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
)

// loweringFn lowers one operator instance. Target primitive failures panic (see callState), and
// rejections are returned as *Error.
type loweringFn func(st *callState) (target.Value, error)

// inferFn returns the concrete output shape given the concrete shapes of the operands.
// It also validates the arguments.
type inferFn func(st *callState, operands []shapes.Shape) (shapes.Shape, error)

// entry of the dispatch table.
type entry struct {
	// name used in diagnostics.
	name string

	// numOperands is the exact number of operands, or the minimum if variadic.
	numOperands int
	variadic    bool

	infer inferFn

	// lower is nil for operators that are not implemented.
	lower loweringFn
}

// registry is the dispatch table, read-only after init().
var registry map[backends.OpType]entry

func init() {
	registry = make(map[backends.OpType]entry, int(backends.OpTypeLast))
	register := func(op backends.OpType, e entry) {
		if _, found := registry[op]; found {
			panic(fmt.Sprintf("lowering: operator %s registered twice", op))
		}
		registry[op] = e
	}
	unimplemented := func(op backends.OpType, name string) {
		register(op, entry{name: name})
	}

	register(backends.OpTypeConvGeneral, entry{name: "conv_general_dilated", numOperands: 2,
		infer: inferConvGeneral, lower: lowerConvGeneral})
	register(backends.OpTypeDotGeneral, entry{name: "dot_general", numOperands: 2,
		infer: inferDotGeneral, lower: lowerDotGeneral})
	register(backends.OpTypePad, entry{name: "pad", numOperands: 2,
		infer: inferPad, lower: lowerPad})
	register(backends.OpTypeReduceWindowSum, entry{name: "reduce_window_sum", numOperands: 1,
		infer: inferReduceWindow, lower: lowerReduceWindow})
	register(backends.OpTypeReduceWindowMax, entry{name: "reduce_window_max", numOperands: 1,
		infer: inferReduceWindow, lower: lowerReduceWindow})
	register(backends.OpTypeArgMin, entry{name: "argmin", numOperands: 1,
		infer: inferArgMinMax, lower: lowerArgMinMax})
	register(backends.OpTypeArgMax, entry{name: "argmax", numOperands: 1,
		infer: inferArgMinMax, lower: lowerArgMinMax})
	register(backends.OpTypeGather, entry{name: "gather", numOperands: 2,
		infer: inferGather, lower: lowerGather})
	for op, name := range map[backends.OpType]string{
		backends.OpTypeScatter:    "scatter",
		backends.OpTypeScatterAdd: "scatter_add",
		backends.OpTypeScatterMul: "scatter_mul",
		backends.OpTypeScatterMin: "scatter_min",
		backends.OpTypeScatterMax: "scatter_max",
	} {
		register(op, entry{name: name, numOperands: 3, infer: inferScatter, lower: lowerScatter})
	}
	register(backends.OpTypeDynamicSlice, entry{name: "dynamic_slice", numOperands: 1, variadic: true,
		infer: inferDynamicSlice, lower: lowerDynamicSlice})
	register(backends.OpTypeDynamicUpdateSlice, entry{name: "dynamic_update_slice", numOperands: 2, variadic: true,
		infer: inferDynamicUpdateSlice, lower: lowerDynamicUpdateSlice})

	unimplemented(backends.OpTypeReduceWindowMin, "reduce_window_min")
	unimplemented(backends.OpTypeReduceWindow, "reduce_window")
	unimplemented(backends.OpTypeReduce, "reduce")
	unimplemented(backends.OpTypeSelectAndScatterAdd, "select_and_scatter_add")
	unimplemented(backends.OpTypeRNGBitGenerator, "rng_bit_generator")
	unimplemented(backends.OpTypeSort, "sort")
}

// OpName returns the name used in diagnostics for the operator, e.g. "conv_general_dilated".
func OpName(op backends.OpType) string {
	if e, found := registry[op]; found {
		return e.name
	}
	return op.String()
}

// OpStatus is the lowering status of an operator for an Engine.
type OpStatus int

const (
	// StatusUnknown is for operators not in the dispatch table.
	StatusUnknown OpStatus = iota

	// StatusLowered means the operator can be lowered, at least for some attributes.
	StatusLowered

	// StatusNotImplemented means the operator has no lowering.
	StatusNotImplemented

	// StatusDisabled means the operator was disabled by the configuration.
	StatusDisabled
)

// String implements fmt.Stringer.
func (s OpStatus) String() string {
	switch s {
	case StatusLowered:
		return "lowered"
	case StatusNotImplemented:
		return "not implemented"
	case StatusDisabled:
		return "disabled"
	}
	return "unknown"
}

// OpStatus returns the status of the operator for this engine.
func (e *Engine) OpStatus(op backends.OpType) OpStatus {
	ent, found := registry[op]
	switch {
	case !found:
		return StatusUnknown
	case e.config.Disabled.Has(op):
		return StatusDisabled
	case ent.lower == nil:
		return StatusNotImplemented
	}
	return StatusLowered
}

// supportedDTypes are the dtypes the lowerings accept, at least for some operators.
var supportedDTypes = []dtypes.DType{
	dtypes.Bool,
	dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
	dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64,
	dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64,
}

// Capabilities lists the operators with a lowering, minus the ones disabled by the configuration.
func (e *Engine) Capabilities() backends.Capabilities {
	c := backends.Capabilities{
		Operations: make(map[backends.OpType]bool, len(registry)),
		DTypes:     make(map[dtypes.DType]bool, len(supportedDTypes)),
	}
	for op := range registry {
		c.Operations[op] = e.OpStatus(op) == StatusLowered
	}
	for _, dtype := range supportedDTypes {
		c.DTypes[dtype] = true
	}
	return c
}
