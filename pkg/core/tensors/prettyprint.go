// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
)

// maxRowElements is the number of elements of a row printed in full, larger rows are printed with an ellipsis.
const maxRowElements = 6

// elementFormatter returns a function that formats the flat element at the given index.
func (t *Tensor) elementFormatter(precision int) func(int) string {
	values, err := t.Float64s()
	if err != nil {
		// Complex values: let fmt handle them.
		flat := reflect.ValueOf(t.flat)
		return func(ii int) string { return fmt.Sprintf("%.*g", precision, flat.Index(ii).Interface()) }
	}
	dtype := t.shape.DType
	switch {
	case dtype == dtypes.Bool:
		return func(ii int) string { return strconv.FormatBool(values[ii] != 0) }
	case dtype.IsFloat():
		return func(ii int) string { return strconv.FormatFloat(values[ii], 'g', precision, 64) }
	default:
		return func(ii int) string { return strconv.FormatFloat(values[ii], 'f', -1, 64) }
	}
}

// Summary returns the tensor's content in a numpy-like layout, with floats printed with the given precision.
// Rows longer than maxRowElements are elided in the middle.
func (t *Tensor) Summary(precision int) string {
	if t.shape.IsZeroSize() {
		return t.shape.String()
	}
	format := t.elementFormatter(precision)
	var sb strings.Builder
	dims := t.shape.Dimensions
	for _, dim := range dims {
		fmt.Fprintf(&sb, "[%d]", dim)
	}
	sb.WriteString(reflect.TypeOf(t.flat).Elem().String())
	if len(dims) == 0 {
		fmt.Fprintf(&sb, "(%s)", format(0))
		return sb.String()
	}

	strides := t.shape.Strides()
	var writeAxis func(axis, offset int)
	writeAxis = func(axis, offset int) {
		dim := dims[axis]
		sb.WriteByte('{')
		for ii := range dim {
			if axis == len(dims)-1 {
				if dim > maxRowElements && ii >= 3 && ii < dim-3 {
					if ii == 3 {
						sb.WriteString(", ...")
					}
					continue
				}
				if ii > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(format(offset + ii))
				continue
			}
			if ii > 0 {
				sb.WriteString(",\n")
				sb.WriteString(strings.Repeat(" ", axis+1))
			}
			writeAxis(axis+1, offset+ii*strides[axis])
		}
		sb.WriteByte('}')
	}
	writeAxis(0, 0)
	return sb.String()
}
