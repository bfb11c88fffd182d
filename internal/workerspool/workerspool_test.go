// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolMap(t *testing.T) {
	for _, parallelism := range []int{0, 1, 3, -1} {
		pool := NewWithParallelism(parallelism)
		var running, maxRunning atomic.Int32
		results := make([]int, 20)
		err := pool.Map(len(results), func(i int) error {
			current := running.Add(1)
			for {
				prev := maxRunning.Load()
				if current <= prev || maxRunning.CompareAndSwap(prev, current) {
					break
				}
			}
			results[i] = i * i
			running.Add(-1)
			return nil
		})
		require.NoError(t, err)
		for i, v := range results {
			assert.Equal(t, i*i, v)
		}
		if parallelism > 0 {
			// The caller of Map runs tasks inline when all workers are busy.
			assert.LessOrEqual(t, int(maxRunning.Load()), parallelism+1)
		}
		if parallelism == 0 {
			assert.Equal(t, int32(1), maxRunning.Load())
		}
	}
}

func TestPoolMapError(t *testing.T) {
	pool := NewWithParallelism(2)
	var count atomic.Int32
	err := pool.Map(10, func(i int) error {
		count.Add(1)
		if i == 3 || i == 7 {
			return errors.Errorf("failed at %d", i)
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed at 3")
	assert.Contains(t, err.Error(), "task #3 of 10")
	assert.Equal(t, int32(10), count.Load())
}

func TestPoolSettings(t *testing.T) {
	pool := NewWithParallelism(0)
	assert.False(t, pool.IsEnabled())
	pool = NewWithParallelism(-1)
	assert.True(t, pool.IsUnlimited())
	assert.True(t, New().IsEnabled())
	assert.Equal(t, 4, NewWithParallelism(4).MaxParallelism())
}
