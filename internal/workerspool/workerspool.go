// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool bounds the number of goroutines the eager target uses to evaluate
// independent slices of a computation (e.g. the elements of a MapFn).
package workerspool

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// Pool limits the number of tasks running in parallel.
//
// The zero value runs all tasks inline.
type Pool struct {
	// maxParallelism is the limit of tasks running at the same time.
	// If 0 tasks are run inline, if negative there is no limit.
	maxParallelism int

	mu         sync.Mutex
	numRunning int
}

// New returns a new Pool with parallelism set to runtime.NumCPU().
func New() *Pool {
	return NewWithParallelism(runtime.NumCPU())
}

// NewWithParallelism returns a new Pool with the given parallelism: 0 disables parallelism, and a negative
// value means unlimited.
func NewWithParallelism(maxParallelism int) *Pool {
	return &Pool{maxParallelism: maxParallelism}
}

// IsEnabled returns whether parallelism is enabled (maxParallelism != 0).
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0).
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// MaxParallelism returns the configured parallelism.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// lockedIsFull returns whether all workers are in use.
//
// It must be called with w.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.IsUnlimited() {
		return false
	}
	return w.numRunning >= w.maxParallelism
}

// StartIfAvailable runs task in a new goroutine if a worker is available, and returns true.
// Otherwise, it returns false and the caller is expected to run the task itself.
func (w *Pool) StartIfAvailable(task func()) bool {
	if !w.IsEnabled() {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedIsFull() {
		return false
	}
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.mu.Unlock()
	}()
	return true
}

// Map runs fn(i) for i in [0, n), using the pool's workers, and waits for all of them to finish.
//
// It returns the error of the lowest index that failed, if any. All tasks are run even if some fail.
func (w *Pool) Map(n int, fn func(i int) error) error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			errs[i] = fn(i)
		}
		if !w.StartIfAvailable(task) {
			// Run inline: this also keeps nested calls to Map from deadlocking.
			task()
		}
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return errors.WithMessagef(err, "task #%d of %d", i, n)
		}
	}
	return nil
}
