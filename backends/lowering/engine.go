// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"fmt"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Engine lowers operators onto a target. It holds no mutable state, and it is safe for concurrent use
// if the target is.
type Engine struct {
	ops    target.Ops
	config Config
}

// New creates an Engine for the target, configured by the environment variable GOMLX_LOWERING (see ConfigEnvVar).
func New(ops target.Ops) (*Engine, error) {
	config, err := ParseConfig(os.Getenv(ConfigEnvVar))
	if err != nil {
		return nil, errors.WithMessagef(err, "while parsing $%s", ConfigEnvVar)
	}
	return NewWithConfig(ops, config), nil
}

// NewWithConfig creates an Engine for the target with the given configuration.
func NewWithConfig(ops target.Ops, config Config) *Engine {
	return &Engine{ops: ops, config: config}
}

// Target returns the target the engine lowers to.
func (e *Engine) Target() target.Ops { return e.ops }

// Config returns the configuration of the engine.
func (e *Engine) Config() Config { return e.config }

// Call describes one operator instance to lower.
type Call struct {
	Op       backends.OpType
	Operands []target.Value

	// InShapes are the shape descriptors of the operands, and may contain symbolic axes.
	// If nil, the concrete shapes reported by the target are used.
	InShapes []shapes.Shape

	// OutShape is the shape descriptor of the result. Optional: if not set (shapes.Shape{}) the output
	// shape is inferred. If set, it must match the inferred shape once its symbolic axes are resolved.
	OutShape shapes.Shape

	// Attrs holds the static attributes of the operator, e.g. ConvAttrs for backends.OpTypeConvGeneral.
	// Either the value or a pointer to it is accepted.
	Attrs any
}

// callState holds everything known about one operator instance while it is lowered.
type callState struct {
	ops    target.Ops
	config Config
	op     backends.OpType
	name   string
	attrs  any

	operands []target.Value

	// descriptors are the operands shape descriptors (possibly symbolic) and concrete their shapes as
	// reported by the target.
	descriptors, concrete []shapes.Shape
	bindings              shapes.AxisBindings

	// outShape is the concrete output shape.
	outShape shapes.Shape
}

// Lower the operator instance described by call onto the engine's target.
//
// It returns an *Error if the operator can't be lowered for the given attributes, see package documentation.
// Other errors indicate invalid arguments, or a failure of one of the target primitives.
func (e *Engine) Lower(call *Call) (result target.Value, err error) {
	ent, found := registry[call.Op]
	if !found {
		return nil, errors.Errorf("lowering: unknown operator %s", call.Op)
	}
	if e.config.Disabled.Has(call.Op) {
		return nil, notImplementedError(call.Op, "Operator disabled by the configuration.")
	}
	if ent.lower == nil {
		return nil, notImplementedError(call.Op, "")
	}
	st, err := e.newCallState(call, ent)
	if err != nil {
		return nil, err
	}
	var lowerErr error
	err = exceptions.TryCatch[error](func() { result, lowerErr = ent.lower(st) })
	if err != nil {
		return nil, err
	}
	if lowerErr != nil {
		klog.V(1).Infof("lowering %s rejected: %v", ent.name, lowerErr)
		return nil, lowerErr
	}
	return result, nil
}

// newCallState validates the operands, extracts the axis bindings and infers the output shape.
func (e *Engine) newCallState(call *Call, ent entry) (*callState, error) {
	numOperands := len(call.Operands)
	if numOperands < ent.numOperands || (!ent.variadic && numOperands != ent.numOperands) {
		return nil, errors.Errorf("lowering: %s requires %d operands, got %d", ent.name, ent.numOperands, numOperands)
	}
	st := &callState{
		ops:      e.ops,
		config:   e.config,
		op:       call.Op,
		name:     ent.name,
		attrs:    call.Attrs,
		operands: call.Operands,
		concrete: make([]shapes.Shape, numOperands),
		bindings: make(shapes.AxisBindings),
	}
	for ii, operand := range call.Operands {
		shape, err := e.ops.Shape(operand)
		if err != nil {
			return nil, errors.WithMessagef(err, "lowering: %s: failed to get the shape of operand #%d", ent.name, ii)
		}
		if shape.IsDynamic() {
			return nil, errors.Errorf("lowering: %s: target reported a non-concrete shape %s for operand #%d", ent.name, shape, ii)
		}
		st.concrete[ii] = shape
	}
	st.descriptors = st.concrete
	if call.InShapes != nil {
		if len(call.InShapes) != numOperands {
			return nil, errors.Errorf("lowering: %s: %d shape descriptors given for %d operands", ent.name, len(call.InShapes), numOperands)
		}
		st.descriptors = call.InShapes
		for ii, descriptor := range call.InShapes {
			if err := st.bindings.Extract(descriptor, st.concrete[ii]); err != nil {
				return nil, errors.WithMessagef(err, "lowering: %s: operand #%d doesn't match its descriptor", ent.name, ii)
			}
		}
	}

	outShape, err := ent.infer(st, st.concrete)
	if err != nil {
		var lowerErr *Error
		if errors.As(err, &lowerErr) {
			return nil, lowerErr
		}
		return nil, errors.WithMessagef(err, "lowering: invalid arguments for %s", ent.name)
	}
	st.outShape = outShape
	if call.OutShape.Ok() {
		resolved := call.OutShape.Resolve(st.bindings)
		if resolved.IsDynamic() {
			if e.config.StrictSymbolic {
				return nil, unsupportedError(call.Op, fmt.Sprintf(
					"Output shape %s has symbolic axes not bound by the operands (bindings={%s}).",
					call.OutShape, st.bindings.Key()))
			}
			klog.V(1).Infof("lowering %s: output descriptor %s not fully resolved, using inferred shape %s",
				ent.name, call.OutShape, outShape)
		} else if !resolved.Equal(outShape) {
			return nil, errors.Errorf("lowering: %s: output descriptor %s (resolved to %s) doesn't match the inferred output shape %s",
				ent.name, call.OutShape, resolved, outShape)
		}
	}
	return st, nil
}

// attrsAs returns the attributes of the call as type T, accepting also *T.
func attrsAs[T any](st *callState) (T, error) {
	switch a := st.attrs.(type) {
	case T:
		return a, nil
	case *T:
		if a != nil {
			return *a, nil
		}
	}
	var zero T
	return zero, errors.Errorf("lowering: %s requires attributes of type %T, got %T", st.name, zero, st.attrs)
}

// mustAttrs is like attrsAs, but panics on failure: it is used in the lowerings, after inference already checked them.
func mustAttrs[T any](st *callState) T {
	attrs, err := attrsAs[T](st)
	if err != nil {
		panic(err)
	}
	return attrs
}

// ConvGeneral lowers a backends.OpTypeConvGeneral of input and kernel.
func (e *Engine) ConvGeneral(input, kernel target.Value, attrs ConvAttrs) (target.Value, error) {
	return e.Lower(&Call{Op: backends.OpTypeConvGeneral, Operands: []target.Value{input, kernel}, Attrs: attrs})
}

// DotGeneral lowers a backends.OpTypeDotGeneral of lhs and rhs.
func (e *Engine) DotGeneral(lhs, rhs target.Value, attrs DotGeneralAttrs) (target.Value, error) {
	return e.Lower(&Call{Op: backends.OpTypeDotGeneral, Operands: []target.Value{lhs, rhs}, Attrs: attrs})
}

// Pad lowers a backends.OpTypePad of x, with padValue a scalar of the same dtype.
// Missing axes configurations are taken as no padding.
func (e *Engine) Pad(x, padValue target.Value, axes ...backends.PadAxis) (target.Value, error) {
	return e.Lower(&Call{Op: backends.OpTypePad, Operands: []target.Value{x, padValue}, Attrs: PadAttrs{Axes: axes}})
}

// ReduceWindow lowers one of the reduce-window operators (e.g. backends.OpTypeReduceWindowMax) of x.
func (e *Engine) ReduceWindow(op backends.OpType, x target.Value, attrs ReduceWindowAttrs) (target.Value, error) {
	return e.Lower(&Call{Op: op, Operands: []target.Value{x}, Attrs: attrs})
}

// ArgMinMax lowers a backends.OpTypeArgMin (if isMin) or backends.OpTypeArgMax of x.
func (e *Engine) ArgMinMax(x target.Value, isMin bool, attrs ArgMinMaxAttrs) (target.Value, error) {
	op := backends.OpTypeArgMax
	if isMin {
		op = backends.OpTypeArgMin
	}
	return e.Lower(&Call{Op: op, Operands: []target.Value{x}, Attrs: attrs})
}

// Gather lowers a backends.OpTypeGather.
func (e *Engine) Gather(operand, startIndices target.Value, attrs GatherAttrs) (target.Value, error) {
	return e.Lower(&Call{Op: backends.OpTypeGather, Operands: []target.Value{operand, startIndices}, Attrs: attrs})
}

// Scatter lowers one of the scatter operators (e.g. backends.OpTypeScatterAdd).
func (e *Engine) Scatter(op backends.OpType, operand, indices, updates target.Value, attrs ScatterAttrs) (target.Value, error) {
	return e.Lower(&Call{Op: op, Operands: []target.Value{operand, indices, updates}, Attrs: attrs})
}

// DynamicSlice lowers a backends.OpTypeDynamicSlice: startIndices are scalars, one per axis of operand.
func (e *Engine) DynamicSlice(operand target.Value, startIndices []target.Value, sliceSizes []int) (target.Value, error) {
	return e.Lower(&Call{
		Op:       backends.OpTypeDynamicSlice,
		Operands: append([]target.Value{operand}, startIndices...),
		Attrs:    DynamicSliceAttrs{SliceSizes: shapes.ConcreteDims(sliceSizes...)},
	})
}

// DynamicUpdateSlice lowers a backends.OpTypeDynamicUpdateSlice: startIndices are scalars, one per axis of operand.
func (e *Engine) DynamicUpdateSlice(operand, update target.Value, startIndices []target.Value) (target.Value, error) {
	return e.Lower(&Call{
		Op:       backends.OpTypeDynamicUpdateSlice,
		Operands: append([]target.Value{operand, update}, startIndices...),
	})
}
