// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package parallel implements an accelerated backend that executes kernels the way a GPU does:
// each kernel launch is a grid of logical threads, one per output element (y, x), and every thread
// runs the same kernel function.
//
// Rows of threads are scheduled on a bounded workers pool. Within a thread the contraction is
// summed left-to-right, so results are bit-identical to the "go" reference backend.
//
// Configuration (in MATMUL_BACKEND="parallel:<config>"):
//
//   - workers=N: maximum number of rows running in parallel. 0 (the default) uses runtime.NumCPU(),
//     -1 is unlimited.
//   - min_dim=N: kernels with dim smaller than N run sequentially, since goroutine overhead
//     dominates for tiny blocks. Defaults to 8.
package parallel

import (
	"fmt"
	"runtime"

	"github.com/gomlx/blockmatmul/backends"
	"github.com/gomlx/blockmatmul/internal/workerspool"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"k8s.io/klog/v2"
)

// BackendName to be used in MATMUL_BACKEND to specify this backend.
const BackendName = "parallel"

// DefaultMinDim is the default block dimension below which kernels run sequentially.
const DefaultMinDim = 8

func init() {
	backends.Register(BackendName, New)
}

// New constructs a new parallel Backend from a "workers=N,min_dim=N" configuration.
func New(config string) (backends.Backend, error) {
	c, err := backends.ParseConfig(config, "workers", "min_dim")
	if err != nil {
		return nil, err
	}
	workers, err := c.Int("workers", 0)
	if err != nil {
		return nil, err
	}
	minDim, err := c.Int("min_dim", DefaultMinDim)
	if err != nil {
		return nil, err
	}
	return newBackend(workers, minDim), nil
}

func newBackend(workers, minDim int) *Backend {
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return &Backend{
		BackendBase: backends.NewBackendBase(BackendName),
		pool:        workerspool.NewWithParallelism(workers),
		minDim:      minDim,
	}
}

// Backend implements backends.Backend.
type Backend struct {
	*backends.BackendBase
	pool   *workerspool.Pool
	minDim int
}

var _ backends.Backend = &Backend{}

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return fmt.Sprintf("Parallel thread-grid backend (%d workers)", b.pool.MaxParallelism())
}

// threadFn computes the output element at row y and column x: it is the body of one logical thread.
type threadFn func(lhs, rhs []float64, y, x int) float64

// AddKernel implements backends.Backend.
func (b *Backend) AddKernel(dim int) (backends.Kernel, error) {
	base, err := b.BindKernelBase(backends.OpTypeAdd, dim, dim)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("bound kernel %s", base)
	return &kernel{KernelBase: base, backend: b, thread: func(lhs, rhs []float64, y, x int) float64 {
		idx := y*dim + x
		return lhs[idx] + rhs[idx]
	}}, nil
}

// MulKernel implements backends.Backend.
func (b *Backend) MulKernel(dim, contraction int) (backends.Kernel, error) {
	base, err := b.BindKernelBase(backends.OpTypeMul, dim, contraction)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("bound kernel %s", base)
	return &kernel{KernelBase: base, backend: b, thread: func(lhs, rhs []float64, y, x int) float64 {
		var sum float64
		lhsRow := lhs[y*contraction : (y+1)*contraction]
		for k, lhsValue := range lhsRow {
			sum += lhsValue * rhs[k*dim+x]
		}
		return sum
	}}, nil
}

type kernel struct {
	*backends.KernelBase
	backend *Backend
	thread  threadFn
}

// Call implements backends.Kernel: it launches a dim×dim grid of threads.
func (k *kernel) Call(lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
	if err := k.CheckCall(lhs, rhs); err != nil {
		return nil, err
	}
	dim := k.Dim()
	out := matrix.New(dim, dim)
	lhsData, rhsData, outData := lhs.Data(), rhs.Data(), out.Data()
	name := k.String()
	// Each row guards its own panics: rows may run in worker goroutines.
	runRow := func(y int) error {
		return backends.Guard(name, func() {
			row := outData[y*dim : (y+1)*dim]
			for x := range row {
				row[x] = k.thread(lhsData, rhsData, y, x)
			}
		})
	}
	if dim < k.backend.minDim {
		for y := range dim {
			if err := runRow(y); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	if err := k.backend.pool.ParallelFor(dim, runRow); err != nil {
		return nil, err
	}
	return out, nil
}
