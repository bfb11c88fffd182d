// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// lowering_table prints which operators the lowering engine can convert, and runs a few example
// lowerings on the eager target.
//
// Usage:
//
//	lowering_table [-config=no_matmul] [-target=parallelism=4] [-scenarios=conv,scatter_add] [-trace]
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/lowering"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/backends/target/eager"
	"github.com/gomlx/lowering/backends/target/tracing"
	"github.com/gomlx/lowering/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagConfig = flag.String("config", "",
		fmt.Sprintf("Configuration of the lowering engine. If empty, it is read from $%s.", lowering.ConfigEnvVar))
	flagTarget = flag.String("target", "", "Configuration of the eager target, e.g. \"parallelism=4\".")
	flagTable  = flag.Bool("table", true, "Print the table of operators and their lowering status.")
	flagTrace  = flag.Bool("trace", false, "List the target primitives used by each scenario.")

	flagScenarios = xslices.Flag("scenarios", scenarioNames(),
		"Comma-separated list of scenarios to run. Set to empty to run none.", parseScenarioName)
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if len(flag.Args()) > 0 {
		klog.Errorf("lowering_table takes no arguments, got %q. See 'lowering_table -help'.", flag.Args())
		os.Exit(1)
	}

	ops := must.M1(eager.New(*flagTarget))
	var traced *tracing.Ops
	var tgt target.Ops = ops
	if *flagTrace {
		traced = tracing.New(ops)
		tgt = traced
	}
	engine, err := newEngine(tgt)
	if err != nil {
		klog.Fatalf("Failed to create lowering engine: %+v", err)
	}

	if *flagTable {
		fmt.Println(titleStyle.Render(fmt.Sprintf("Operators (config=%q)", engine.Config().String())))
		fmt.Println(operatorsTable(engine).Render())
	}
	if len(*flagScenarios) > 0 {
		fmt.Println(titleStyle.Render(fmt.Sprintf("Scenarios (target=%s)", ops.Name())))
		fmt.Println(scenariosTable(engine, traced, *flagScenarios).Render())
	}
}

func newEngine(tgt target.Ops) (*lowering.Engine, error) {
	if *flagConfig == "" {
		return lowering.New(tgt)
	}
	config, err := lowering.ParseConfig(*flagConfig)
	if err != nil {
		return nil, errors.WithMessage(err, "while parsing -config")
	}
	return lowering.NewWithConfig(tgt, config), nil
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
	failedRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1)

	statusStyles = map[lowering.OpStatus]lipgloss.Style{
		lowering.StatusLowered:        lipgloss.NewStyle().Foreground(lipgloss.Color("#0A0")),
		lowering.StatusNotImplemented: lipgloss.NewStyle().Foreground(lipgloss.Color("#A00")),
		lowering.StatusDisabled:       lipgloss.NewStyle().Foreground(lipgloss.Color("#AA0")),
	}

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

// tableWithErrors is a table where rows can be marked as failed, and are then rendered in red.
type tableWithErrors struct {
	*lgtable.Table
	count  int
	failed map[int]bool
}

// Row adds a row to the table.
func (t *tableWithErrors) Row(failed bool, row ...string) {
	if failed {
		t.failed[t.count] = true
	}
	t.Table.Row(row...)
	t.count++
}

func newTable(headers ...string) *tableWithErrors {
	t := &tableWithErrors{failed: make(map[int]bool)}
	t.Table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers(headers...).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			switch {
			case row < 0:
				return headerRowStyle
			case t.failed[row]:
				s = failedRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
	return t
}

// operatorsTable lists every operator known to the lowering engine.
func operatorsTable(engine *lowering.Engine) *tableWithErrors {
	table := newTable("OpType", "Name", "Status")
	for _, op := range backends.OpTypeValues() {
		status := engine.OpStatus(op)
		if status == lowering.StatusUnknown {
			continue
		}
		statusStr := status.String()
		if style, found := statusStyles[status]; found {
			statusStr = style.Render(statusStr)
		}
		table.Row(false, op.String(), lowering.OpName(op), statusStr)
	}
	return table
}

func parseScenarioName(name string) (string, error) {
	if !slices.Contains(scenarioNames(), name) {
		return "", errors.Errorf("unknown scenario %q, valid scenarios are %q", name, scenarioNames())
	}
	return name, nil
}
