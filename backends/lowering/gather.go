// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"fmt"
	"math"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/shapeinference"
	"github.com/gomlx/lowering/backends/target"
	"github.com/gomlx/lowering/pkg/core/shapes"
	"github.com/gomlx/lowering/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GatherAttrs are the attributes of backends.OpTypeGather. The index vector is the last axis of the start indices.
type GatherAttrs struct {
	Dims backends.GatherDimensionNumbers

	// SliceSizes has one value per operand axis. Symbolic values must be bound by the operands descriptors.
	SliceSizes []shapes.Dim

	Mode backends.GatherScatterMode

	// FillValue for out-of-bounds slices, used only with backends.ModeFillOrDrop.
	// If nil, it defaults to NaN for floats, the lowest value for signed integers, the highest value
	// for unsigned integers and true for booleans.
	FillValue *float64
}

func inferGather(st *callState, operands []shapes.Shape) (shapes.Shape, error) {
	attrs, err := attrsAs[GatherAttrs](st)
	if err != nil {
		return shapes.Invalid(), err
	}
	sliceSizes, err := st.bindings.ResolveDims(attrs.SliceSizes)
	if err != nil {
		return shapes.Invalid(), unsupportedError(st.op, "Slice sizes must be known at lowering time: "+err.Error())
	}
	return shapeinference.Gather(operands[0], operands[1], attrs.Dims, shapes.ConcreteDims(sliceSizes...))
}

// GatherRequest bundles the static arguments of a gather, as seen by the strategies preconditions.
// It is immutable.
type GatherRequest struct {
	operand, startIndices shapes.Shape
	dims                  backends.GatherDimensionNumbers
	sliceSizes            []shapes.Dim
}

// NewGatherRequest creates a GatherRequest. operand and startIndices are shape descriptors, and may
// have symbolic axes.
func NewGatherRequest(operand, startIndices shapes.Shape, dims backends.GatherDimensionNumbers, sliceSizes []shapes.Dim) (*GatherRequest, error) {
	if operand.Rank() != len(sliceSizes) {
		return nil, errors.Errorf("gather: operand %s has rank %d, but %d slice sizes were given", operand, operand.Rank(), len(sliceSizes))
	}
	return &GatherRequest{
		operand:      operand.Clone(),
		startIndices: startIndices.Clone(),
		dims: backends.GatherDimensionNumbers{
			OffsetDims:         slices.Clone(dims.OffsetDims),
			CollapsedSliceDims: slices.Clone(dims.CollapsedSliceDims),
			StartIndexMap:      slices.Clone(dims.StartIndexMap),
		},
		sliceSizes: slices.Clone(sliceSizes),
	}, nil
}

// Operand returns the operand shape descriptor.
func (r *GatherRequest) Operand() shapes.Shape { return r.operand.Clone() }

// StartIndices returns the start indices shape descriptor.
func (r *GatherRequest) StartIndices() shapes.Shape { return r.startIndices.Clone() }

// Dims returns a copy of the dimension numbers.
func (r *GatherRequest) Dims() backends.GatherDimensionNumbers {
	return backends.GatherDimensionNumbers{
		OffsetDims:         slices.Clone(r.dims.OffsetDims),
		CollapsedSliceDims: slices.Clone(r.dims.CollapsedSliceDims),
		StartIndexMap:      slices.Clone(r.dims.StartIndexMap),
	}
}

// SliceSizes returns the slice sizes.
func (r *GatherRequest) SliceSizes() []shapes.Dim { return slices.Clone(r.sliceSizes) }

// outputRank is the number of batch axes (all start indices axes but the last) plus the offset axes.
func (r *GatherRequest) outputRank() int {
	return r.startIndices.Rank() - 1 + len(r.dims.OffsetDims)
}

// String implements fmt.Stringer.
func (r *GatherRequest) String() string {
	return fmt.Sprintf("operand shape=%s, start_indices=%s, dimension_numbers=%s, slice_sizes=%s",
		r.operand, r.startIndices, r.dims, shapes.DimsString(r.sliceSizes))
}

// gatherStrategy lowers a subset of the gathers: transform is only called if precondition accepts the request.
type gatherStrategy struct {
	name         string
	precondition func(r *GatherRequest) error
	transform    func(st *callState, r *GatherRequest) target.Value
}

// gatherStrategies in the order they are tried. For any request at most one precondition accepts it.
var gatherStrategies = []gatherStrategy{
	{name: "scalar_indexing", precondition: preGatherScalarIndexing, transform: gatherScalarIndexing},
	{name: "multidim_indexing", precondition: preGatherMultidimIndexing, transform: gatherMultidimIndexing},
	{name: "batch_dims", precondition: preGatherBatchDims, transform: gatherBatchDims},
}

// GatherStrategyNames returns the names of the gather strategies, in the order they are tried.
func GatherStrategyNames() []string {
	return xslices.Map(gatherStrategies, func(s gatherStrategy) string { return s.name })
}

// strategies returns the gather strategies to try, following Config.GatherStrategies if set.
func (c Config) strategies() []gatherStrategy {
	if len(c.GatherStrategies) == 0 {
		return gatherStrategies
	}
	selected := make([]gatherStrategy, 0, len(c.GatherStrategies))
	for _, name := range c.GatherStrategies {
		idx := slices.IndexFunc(gatherStrategies, func(s gatherStrategy) bool { return s.name == name })
		if idx >= 0 {
			selected = append(selected, gatherStrategies[idx])
		}
	}
	return selected
}

// preGatherScalarIndexing accepts indexing with one start vector, e.g. x[2], x[:, :5, :].
func preGatherScalarIndexing(r *GatherRequest) error {
	if r.startIndices.Rank() != 1 {
		return errors.New("start_indices shape should be 1")
	}
	if !xslices.IsIota(r.dims.OffsetDims, 0) {
		return errors.New("unsupported offset_dims")
	}
	return nil
}

// gatherScalarIndexing scatters the start vector into a full begin vector (through StartIndexMap)
// and takes a strided slice, shrinking the collapsed axes.
func gatherScalarIndexing(st *callState, r *GatherRequest) target.Value {
	opDims := st.concrete[0].Dimensions
	sliceSizes := st.gatherSliceSizes()
	numIndices := len(r.dims.StartIndexMap)
	indices := st.reshape(st.constInt32(r.dims.StartIndexMap...), []int{numIndices, 1})
	begin := st.scatterND(indices, st.operands[1], []int{len(opDims)})
	begin = st.clamp(opDims, begin, sliceSizes)
	end := st.add(begin, st.constInt32(sliceSizes...))
	shrinkMask := 0
	for _, axis := range r.dims.CollapsedSliceDims {
		shrinkMask |= 1 << axis
	}
	return st.stridedSlice(st.operands[0], begin, end, shrinkMask)
}

// preGatherMultidimIndexing accepts a "take" along one axis, e.g. take(x, [[0], [1]], axis=0):
// slice sizes must be op[:axis] ++ (1) ++ op[axis+1:], and the offset axes those of the operand
// around the batch axes of the indices.
func preGatherMultidimIndexing(r *GatherRequest) error {
	opRank := r.operand.Rank()
	sim, collapsed := r.dims.StartIndexMap, r.dims.CollapsedSliceDims
	if !(opRank >= 1 && len(sim) == 1 && len(collapsed) == 1 && collapsed[0] == sim[0] &&
		len(r.dims.OffsetDims) == opRank-1) {
		return errors.New("unsupported dimension numbers")
	}
	if !r.startIndices.AxisDim(-1).EqualValue(1) {
		return errors.New("start_indices shape[-1] should be 1")
	}
	if r.startIndices.Rank() < 2 {
		return errors.New("start_indices should have at least one batch axis")
	}
	axis := collapsed[0]
	numIndexAxes := r.startIndices.Rank() - 1
	expectedOffsetDims := append(xslices.Iota(0, axis), xslices.Iota(axis+numIndexAxes, opRank-1-axis)...)
	if !slices.Equal(r.dims.OffsetDims, expectedOffsetDims) {
		return errors.New("unsupported offset_dims")
	}
	expectedSliceSizes := r.operand.Dims()
	expectedSliceSizes[axis] = shapes.Concrete(1)
	if !shapes.DimsEqual(r.sliceSizes, expectedSliceSizes) {
		return errors.New("unsupported slice_sizes")
	}
	return nil
}

func gatherMultidimIndexing(st *callState, r *GatherRequest) target.Value {
	axis := r.dims.CollapsedSliceDims[0]
	indices := st.squeeze(st.operands[1], -1)
	indices = st.clamp([]int{st.concrete[0].Dimensions[axis]}, indices, []int{1})
	v, err := st.ops.Gather(st.operands[0], indices, axis)
	return st.check("Gather", v, err)
}

// preGatherBatchDims accepts a gather with one batch axis, where each start vector indexes all the
// operand axes, e.g. a vectorized dynamic slice.
func preGatherBatchDims(r *GatherRequest) error {
	if numBatch := r.outputRank() - len(r.dims.OffsetDims); numBatch != 1 {
		return errors.Errorf("batch_dims is %d but should be 1", numBatch)
	}
	opRank := r.operand.Rank()
	if !r.startIndices.AxisDim(-1).EqualValue(len(r.dims.StartIndexMap)) ||
		len(r.dims.StartIndexMap) != opRank || !xslices.IsIota(r.dims.StartIndexMap, 0) {
		return errors.New("unsupported start_index_map")
	}
	if opRank < 2 || !slices.Equal(r.dims.CollapsedSliceDims, []int{0}) || !xslices.IsIota(r.dims.OffsetDims, 1) {
		return errors.New("unsupported dimension numbers")
	}
	if !r.operand.AxisDim(0).Equal(r.startIndices.AxisDim(0)) {
		return errors.New("Batch dimensions in operand and start_indices don't agree")
	}
	return nil
}

// gatherBatchDims slices the operand once per start vector, with MapFn.
func gatherBatchDims(st *callState, r *GatherRequest) target.Value {
	if st.concrete[1].Dimensions[0] == 0 {
		return st.full(st.outShape, 0)
	}
	sliceSizes := st.gatherSliceSizes()
	starts := st.clamp(st.concrete[0].Dimensions, st.operands[1], sliceSizes)
	operand := st.operands[0]
	result, err := st.ops.MapFn(func(elems []target.Value) (target.Value, error) {
		return st.ops.Slice(operand, elems[0], sliceSizes)
	}, starts)
	result = st.check("MapFn", result, err)
	return st.squeeze(result, 1)
}

// gatherSliceSizes returns the concrete slice sizes of the gather: inference already checked they resolve.
func (st *callState) gatherSliceSizes() []int {
	attrs := mustAttrs[GatherAttrs](st)
	sizes, err := st.bindings.ResolveDims(attrs.SliceSizes)
	if err != nil {
		panic(err)
	}
	return sizes
}

func lowerGather(st *callState) (target.Value, error) {
	attrs := mustAttrs[GatherAttrs](st)
	if attrs.Mode == backends.ModeFillOrDrop {
		return st.fillGather(attrs)
	}

	request, err := NewGatherRequest(st.descriptors[0], st.descriptors[1], attrs.Dims, attrs.SliceSizes)
	if err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	var rejections []Rejection
	for _, strategy := range st.config.strategies() {
		if err := strategy.precondition(request); err != nil {
			rejections = append(rejections, Rejection{Strategy: strategy.name, Reason: err.Error()})
			continue
		}
		klog.V(1).Infof("lowering %s: strategy %s for %s", st.name, strategy.name, request)
		return strategy.transform(st, request), nil
	}
	return nil, &Error{
		Op:         st.op,
		Kind:       KindUnsupported,
		Reason:     fmt.Sprintf("Unsupported arguments for gather: %s, errors:", request),
		Rejections: rejections,
	}
}

// fillGather delegates gathers with backends.ModeFillOrDrop to the target, if it implements target.FillGatherer.
func (st *callState) fillGather(attrs GatherAttrs) (target.Value, error) {
	fg, ok := st.ops.(target.FillGatherer)
	if !ok {
		return nil, notImplementedError(st.op, fmt.Sprintf(
			"Gather mode %s requires a target implementing FillGatherer, and %s doesn't.", attrs.Mode, st.ops.Name()))
	}
	fillValue := defaultFillValue(st.concrete[0].DType)
	if attrs.FillValue != nil {
		fillValue = *attrs.FillValue
	}
	klog.V(1).Infof("lowering %s: delegating to %s.FillGather, fill value %g", st.name, st.ops.Name(), fillValue)
	v, err := fg.FillGather(st.operands[0], st.operands[1], attrs.Dims.OffsetDims, attrs.Dims.CollapsedSliceDims,
		attrs.Dims.StartIndexMap, st.gatherSliceSizes(), fillValue)
	return st.check("FillGather", v, err), nil
}

// defaultFillValue for out-of-bounds gathered slices.
func defaultFillValue(dtype dtypes.DType) float64 {
	switch dtype {
	case dtypes.Bool:
		return 1
	case dtypes.Int8:
		return math.MinInt8
	case dtypes.Int16:
		return math.MinInt16
	case dtypes.Int32:
		return math.MinInt32
	case dtypes.Int64:
		return math.MinInt64
	case dtypes.Uint8:
		return math.MaxUint8
	case dtypes.Uint16:
		return math.MaxUint16
	case dtypes.Uint32:
		return math.MaxUint32
	case dtypes.Uint64:
		return math.MaxUint64
	}
	return math.NaN()
}
