// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

// OpType is an enum of the generalized operators known to the lowering engine.
//
// Not all of them have a lowering: see lowering.Capabilities for the status of each one.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeConvGeneral
	OpTypeDotGeneral
	OpTypePad
	OpTypeReduceWindowSum
	OpTypeReduceWindowMax
	OpTypeReduceWindowMin
	OpTypeReduceWindow
	OpTypeReduce
	OpTypeSelectAndScatterAdd
	OpTypeRNGBitGenerator
	OpTypeSort
	OpTypeArgMin
	OpTypeArgMax
	OpTypeGather
	OpTypeScatter
	OpTypeScatterAdd
	OpTypeScatterMul
	OpTypeScatterMin
	OpTypeScatterMax
	OpTypeDynamicSlice
	OpTypeDynamicUpdateSlice

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)
