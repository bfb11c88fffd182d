// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"maps"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
)

// Capabilities holds mappings of what can be lowered.
type Capabilities struct {
	// Operations that can be lowered, at least for some arguments.
	// If not listed, it's assumed to be false, hence not supported.
	Operations map[OpType]bool

	// DTypes list the data types supported.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	var c2 Capabilities
	c2.Operations = make(map[OpType]bool, len(c.Operations))
	maps.Copy(c2.Operations, c.Operations)
	c2.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	maps.Copy(c2.DTypes, c.DTypes)
	return c2
}

// SupportedOps returns the list of supported operations, sorted.
func (c Capabilities) SupportedOps() []OpType {
	ops := make([]OpType, 0, len(c.Operations))
	for op, ok := range c.Operations {
		if ok {
			ops = append(ops, op)
		}
	}
	slices.Sort(ops)
	return ops
}
