// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package notimplemented

import (
	"testing"

	"github.com/gomlx/lowering/backends"
	"github.com/gomlx/lowering/backends/target"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOps(t *testing.T) {
	var ops target.Ops = Ops{}
	_, err := ops.MatMul(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, backends.ErrNotImplemented))
	assert.Contains(t, err.Error(), "MatMul")

	_, err = ops.UnsortedSegment(target.SegmentMax, nil, nil, 3)
	assert.Contains(t, err.Error(), "UnsortedSegmentMax")

	custom := errors.New("custom")
	ops = Ops{ErrFn: func(primitive string) error { return errors.Wrap(custom, primitive) }}
	_, err = ops.Conv2D(nil, nil, nil, target.PaddingSame, nil)
	assert.True(t, errors.Is(err, custom))
	assert.Contains(t, err.Error(), "Conv2D")
}
