// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/lowering"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/backends/target/tracing"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

// maxValuesShown is the largest output printed in full in the scenarios table.
const maxValuesShown = 12

type scenario struct {
	name, description string
	run               func(engine *lowering.Engine) (target.Value, error)
}

var scenarios = []scenario{
	{
		name:        "conv",
		description: "conv_general_dilated of ones (1,3,8,8) with ones (4,3,3,3), NCHW",
		run: func(engine *lowering.Engine) (target.Value, error) {
			ops := engine.Target()
			input := must.M1(ops.Full(shapes.Make(dtypes.Float32, 1, 3, 8, 8), 1))
			kernel := must.M1(ops.Full(shapes.Make(dtypes.Float32, 4, 3, 3, 3), 1))
			return engine.ConvGeneral(input, kernel, lowering.ConvAttrs{Axes: backends.ChannelsFirstAxes(2)})
		},
	},
	{
		name:        "dot_general",
		description: "dot_general of (5,4) and (4,6) contracting the inner axes",
		run: func(engine *lowering.Engine) (target.Value, error) {
			ops := engine.Target()
			lhs := must.M1(ops.Reshape(must.M1(ops.Range(20, dtypes.Float32)), []int{5, 4}))
			rhs := must.M1(ops.Reshape(must.M1(ops.Range(24, dtypes.Float32)), []int{4, 6}))
			return engine.DotGeneral(lhs, rhs, lowering.DotGeneralAttrs{
				LhsContractingAxes: []int{1}, RhsContractingAxes: []int{0}})
		},
	},
	{
		name:        "dynamic_slice",
		description: "dynamic_slice of iota(10) starting at 8 with size 5 (start clamped to 5)",
		run: func(engine *lowering.Engine) (target.Value, error) {
			ops := engine.Target()
			operand := must.M1(ops.Range(10, dtypes.Int32))
			start := must.M1(ops.Constant(tensors.FromScalar(int32(8))))
			return engine.DynamicSlice(operand, []target.Value{start}, []int{5})
		},
	},
	{
		name:        "scatter_add",
		description: "scatter_add of [1,2,3] into zeros(4) at indices [[0],[0],[2]]",
		run: func(engine *lowering.Engine) (target.Value, error) {
			ops := engine.Target()
			operand := must.M1(ops.Full(shapes.Make(dtypes.Float32, 4), 0))
			indices := must.M1(ops.Constant(tensors.FromValue([][]int32{{0}, {0}, {2}})))
			updates := must.M1(ops.Constant(tensors.FromValue([]float32{1, 2, 3})))
			return engine.Scatter(backends.OpTypeScatterAdd, operand, indices, updates, lowering.ScatterAttrs{
				Dims: backends.ScatterDimensionNumbers{
					InsertedWindowDims:       []int{0},
					ScatterDimsToOperandDims: []int{0},
				},
				Mode: backends.ModePromiseInBounds,
			})
		},
	},
}

func scenarioNames() []string {
	names := make([]string, len(scenarios))
	for ii, s := range scenarios {
		names[ii] = s.name
	}
	return names
}

// scenariosTable runs the selected scenarios. If traced is not nil, the primitives used by each
// scenario are listed.
func scenariosTable(engine *lowering.Engine, traced *tracing.Ops, selected []string) *tableWithErrors {
	headers := []string{"Scenario", "Description", "Output", "Elements", "Bytes", "Values"}
	if traced != nil {
		headers = append(headers, "Primitives")
	}
	table := newTable(headers...)
	for _, s := range scenarios {
		if !slices.Contains(selected, s.name) {
			continue
		}
		if traced != nil {
			traced.Reset()
		}
		row := []string{s.name, s.description}
		result, err := s.run(engine)
		var primitives string
		if traced != nil {
			primitives = strings.Join(traced.Calls(), " ")
		}
		if err != nil {
			klog.Errorf("Scenario %q failed: %+v", s.name, err)
			row = append(row, "error", "", "", firstLine(err.Error()))
		} else {
			shape := must.M1(engine.Target().Shape(result))
			values := "…"
			if shape.Size() <= maxValuesShown {
				if t, ok := result.(*tensors.Tensor); ok {
					values = fmt.Sprintf("%v", t.Value())
				}
			}
			row = append(row, shape.String(), humanize.Comma(int64(shape.Size())),
				humanize.Bytes(uint64(shape.Memory())), values)
		}
		if traced != nil {
			row = append(row, primitives)
		}
		table.Row(err != nil, row...)
	}
	return table
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
