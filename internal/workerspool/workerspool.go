// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool implements a bounded pool of goroutines, used to run independent
// per-row kernel work and independent output blocks in parallel.
package workerspool

import (
	"sync"
	"sync/atomic"
)

// Pool limits the number of tasks running in parallel.
type Pool struct {
	// maxParallelism is a soft target on the limit of parallel work to do.
	maxParallelism int
	mu             sync.Mutex
	numRunning     int
}

// NewWithParallelism returns a new Pool with the given maxParallelism.
// If set to 0 parallelism is disabled, and if set to -1 parallelism is unlimited.
func NewWithParallelism(maxParallelism int) *Pool {
	return &Pool{maxParallelism: maxParallelism}
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0)
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// MaxParallelism is the limit of tasks running in parallel.
// If set to 0 parallelism is disabled.
// If set to -1 parallelism is unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism == 0 {
		return true
	} else if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= w.maxParallelism
}

// lockedRunTaskInGoroutine and keep tabs on w.numRunning.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedRunTaskInGoroutine(task func()) {
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.mu.Unlock()
	}()
}

// StartIfAvailable runs the task in a separate goroutine, if there are enough workers left.
// It returns true if it found workers to run the function, false otherwise.
//
// It's up to the client to synchronize the end of the function execution.
func (w *Pool) StartIfAvailable(task func()) bool {
	if w.IsUnlimited() {
		go task()
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lockedIsFull() {
		return false
	}
	w.lockedRunTaskInGoroutine(task)
	return true
}

// ParallelFor calls fn(idx) for every idx in [0, n), running them in parallel on the available
// workers. Whenever no worker is available the call runs in the current goroutine, so nested use of
// the same pool never deadlocks.
//
// It returns the first error returned by fn. After an error, the remaining indices not yet started are skipped.
func (w *Pool) ParallelFor(n int, fn func(idx int) error) error {
	var (
		wg       sync.WaitGroup
		failed   atomic.Bool
		errOnce  sync.Once
		firstErr error
	)
	run := func(idx int) {
		if failed.Load() {
			return
		}
		if err := fn(idx); err != nil {
			errOnce.Do(func() { firstErr = err })
			failed.Store(true)
		}
	}
	for idx := range n {
		if failed.Load() {
			break
		}
		if w.IsEnabled() {
			wg.Add(1)
			if w.StartIfAvailable(func() {
				defer wg.Done()
				run(idx)
			}) {
				continue
			}
			wg.Done()
		}
		run(idx)
	}
	wg.Wait()
	return firstErr
}
