// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// AxisBindings maps symbolic axis names to concrete dimension values.
//
// The lowering engine extracts them by matching the (possibly symbolic) shape descriptors of the
// operands against the concrete shapes reported by the target, and uses them to resolve
// symbolic output shapes and slice sizes.
type AxisBindings map[string]int

// Key returns a canonical string representation, "name1=val1,name2=val2" with names sorted
// alphabetically. Returns an empty string for empty or nil bindings.
func (ab AxisBindings) Key() string {
	if len(ab) == 0 {
		return ""
	}
	names := make([]string, 0, len(ab))
	for name := range ab {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, ab[name])
	}
	return strings.Join(parts, ",")
}

// Clone returns a copy of the bindings.
func (ab AxisBindings) Clone() AxisBindings {
	if ab == nil {
		return nil
	}
	clone := make(AxisBindings, len(ab))
	for k, v := range ab {
		clone[k] = v
	}
	return clone
}

// Merge combines bindings from another AxisBindings into this one.
// Returns an error if there are conflicting values for the same axis name.
func (ab AxisBindings) Merge(other AxisBindings) error {
	for name, val := range other {
		if existing, ok := ab[name]; ok && existing != val {
			return errors.Errorf("conflicting values for axis %q: %d vs %d", name, existing, val)
		}
		ab[name] = val
	}
	return nil
}

// ResolveDim returns the concrete value of d, and whether it could be resolved.
func (ab AxisBindings) ResolveDim(d Dim) (int, bool) {
	if !d.IsSymbolic() {
		return d.Value, true
	}
	val, ok := ab[d.Name]
	return val, ok && d.Name != ""
}

// ResolveDims returns the concrete values of dims, or an error naming the first unbound symbolic axis.
func (ab AxisBindings) ResolveDims(dims []Dim) ([]int, error) {
	values := make([]int, len(dims))
	for ii, d := range dims {
		val, ok := ab.ResolveDim(d)
		if !ok {
			return nil, errors.Errorf("symbolic dimension %s (position %d of %s) is not bound, bindings={%s}",
				d, ii, DimsString(dims), ab.Key())
		}
		values[ii] = val
	}
	return values, nil
}

// Resolve replaces named axes with concrete values from bindings.
// Named axes without a binding remain dynamic (DimDynamic); static dimensions are unchanged.
func (s Shape) Resolve(bindings AxisBindings) Shape {
	if !s.HasNamedAxes() || bindings == nil {
		return s.Clone()
	}
	result := s.Clone()
	for i, name := range s.AxisNames {
		if name == "" {
			continue
		}
		if val, ok := bindings[name]; ok {
			result.Dimensions[i] = val
			result.AxisNames[i] = ""
		}
	}
	if !result.HasNamedAxes() {
		result.AxisNames = nil
	}
	return result
}

// ExtractBindings gets axis bindings from a concrete shape matching a pattern.
// The pattern may have named symbolic axes; concrete must have actual values.
//
// Returns error if:
//   - Shapes have different ranks
//   - Shapes have different dtypes
//   - Static dimensions don't match
//   - Same axis name has conflicting values
func ExtractBindings(pattern, concrete Shape) (AxisBindings, error) {
	bindings := make(AxisBindings)
	if err := bindings.Extract(pattern, concrete); err != nil {
		return nil, err
	}
	return bindings, nil
}

// Extract adds to ab the bindings of the symbolic axes of pattern found in concrete.
// See ExtractBindings.
func (ab AxisBindings) Extract(pattern, concrete Shape) error {
	if pattern.Rank() != concrete.Rank() {
		return errors.Errorf("rank mismatch: pattern %s has rank %d, concrete %s has rank %d",
			pattern, pattern.Rank(), concrete, concrete.Rank())
	}
	if pattern.DType != concrete.DType {
		return errors.Errorf("dtype mismatch: pattern is %s, concrete is %s", pattern.DType, concrete.DType)
	}
	for i := range pattern.Dimensions {
		name := pattern.AxisName(i)
		concreteVal := concrete.Dimensions[i]
		if name != "" {
			if existing, ok := ab[name]; ok && existing != concreteVal {
				return errors.Errorf("axis %q has conflicting values at axis %d: %d vs %d",
					name, i, existing, concreteVal)
			}
			ab[name] = concreteVal
		} else if pattern.Dimensions[i] != DimDynamic && pattern.Dimensions[i] != concreteVal {
			return errors.Errorf("dimension of axis %d mismatch: pattern %s, concrete %s", i, pattern, concrete)
		}
		// Unnamed DimDynamic accepts any value.
	}
	return nil
}
