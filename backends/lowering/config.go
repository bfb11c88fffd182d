// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"slices"
	"strings"

	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/pkg/support/sets"
	"github.com/pkg/errors"
)

// ConfigEnvVar is the environment variable New reads the configuration from.
const ConfigEnvVar = "GOMLX_LOWERING"

// Config of an Engine, see the package documentation for the options.
type Config struct {
	// StrictSymbolic fails lowerings whose output descriptor has unbound symbolic axes.
	StrictSymbolic bool

	// NoMatMul always lowers DotGeneral with an einsum.
	NoMatMul bool

	// GatherStrategies restricts the gather strategies tried, in order. If nil all are tried.
	GatherStrategies []string

	// Disabled operators are reported as not implemented.
	Disabled sets.Set[backends.OpType]
}

// ParseConfig parses a comma-separated configuration string.
func ParseConfig(config string) (Config, error) {
	c := Config{Disabled: sets.Make[backends.OpType]()}
	for _, option := range strings.Split(config, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		key, value, hasValue := strings.Cut(option, "=")
		switch key {
		case "strict_symbolic":
			c.StrictSymbolic = true
		case "no_matmul":
			c.NoMatMul = true
		case "gather":
			if !hasValue || value == "" {
				return Config{}, errors.Errorf("lowering: option %q requires a list of strategies, e.g. \"gather=batch_dims\"", option)
			}
			for _, name := range strings.Split(value, "+") {
				if !slices.ContainsFunc(gatherStrategies, func(s gatherStrategy) bool { return s.name == name }) {
					return Config{}, errors.Errorf("lowering: unknown gather strategy %q in option %q, valid strategies are %v",
						name, option, GatherStrategyNames())
				}
				c.GatherStrategies = append(c.GatherStrategies, name)
			}
		case "disable":
			if !hasValue || value == "" {
				return Config{}, errors.Errorf("lowering: option %q requires a list of operators, e.g. \"disable=DotGeneral\"", option)
			}
			for _, name := range strings.Split(value, "+") {
				op, err := backends.OpTypeString(name)
				if err != nil {
					return Config{}, errors.Wrapf(err, "lowering: invalid operator in option %q", option)
				}
				c.Disabled.Insert(op)
			}
		default:
			return Config{}, errors.Errorf("lowering: unknown configuration option %q", option)
		}
	}
	return c, nil
}

// String returns the configuration in the format accepted by ParseConfig.
func (c Config) String() string {
	var parts []string
	if c.StrictSymbolic {
		parts = append(parts, "strict_symbolic")
	}
	if c.NoMatMul {
		parts = append(parts, "no_matmul")
	}
	if len(c.GatherStrategies) > 0 {
		parts = append(parts, "gather="+strings.Join(c.GatherStrategies, "+"))
	}
	if len(c.Disabled) > 0 {
		names := make([]string, 0, len(c.Disabled))
		for _, op := range sets.Sorted(c.Disabled) {
			names = append(names, op.String())
		}
		parts = append(parts, "disable="+strings.Join(names, "+"))
	}
	return strings.Join(parts, ",")
}
