// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blockmm

import (
	"fmt"
	"sync/atomic"

	"github.com/gomlx/blockmatmul/backends"
	"github.com/gomlx/blockmatmul/internal/workerspool"
	"github.com/gomlx/blockmatmul/pkg/core/blocks"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ProgressFn is called after each output block is computed, with the number of blocks done and
// the total for the current multiplication. It may be called concurrently.
type ProgressFn func(done, total int)

// Stats holds the counters of a Multiplier, accumulated over all its multiplications.
type Stats struct {
	// AddCalls and MulCalls are the number of kernel invocations.
	AddCalls, MulCalls int64

	// Blocks is the number of output blocks computed.
	Blocks int64
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("%d blocks, %d mul calls, %d add calls", s.Blocks, s.MulCalls, s.AddCalls)
}

// Multiplier multiplies square matrices by blocks using the kernels of a backend.
//
// Create it with New and configure it with the builder methods before use:
//
//	product, err := blockmm.New(backend, 256).Parallelism(4).Remainder(blocks.RemainderPad).Multiply(a, b)
//
// A configured Multiplier can be used concurrently.
type Multiplier struct {
	backend   backends.Backend
	blockSize int
	remainder blocks.Remainder
	pool      *workerspool.Pool
	progress  ProgressFn
	counters  counters
}

// New returns a Multiplier that uses the kernels of backend on blocks of blockSize×blockSize.
//
// By default, output blocks are computed sequentially and matrices whose dimension is not a multiple
// of blockSize are rejected (blocks.RemainderError).
func New(backend backends.Backend, blockSize int) *Multiplier {
	return &Multiplier{backend: backend, blockSize: blockSize}
}

// Parallelism sets the number of output blocks computed in parallel. 0 (the default) computes them
// sequentially, -1 is unlimited.
func (m *Multiplier) Parallelism(parallelism int) *Multiplier {
	m.pool = nil
	if parallelism != 0 {
		m.pool = workerspool.NewWithParallelism(parallelism)
	}
	return m
}

// Remainder sets the policy for matrices whose dimension is not a multiple of the block size.
//
// With blocks.RemainderPad the result is cropped back to the input dimension, with
// blocks.RemainderTruncate the result only covers the whole blocks.
func (m *Multiplier) Remainder(remainder blocks.Remainder) *Multiplier {
	m.remainder = remainder
	return m
}

// OnProgress sets a function to be called after each output block is computed.
func (m *Multiplier) OnProgress(fn ProgressFn) *Multiplier {
	m.progress = fn
	return m
}

// Backend returns the backend used by the Multiplier.
func (m *Multiplier) Backend() backends.Backend { return m.backend }

// BlockSize returns the configured block size.
func (m *Multiplier) BlockSize() int { return m.blockSize }

// Stats returns a snapshot of the counters accumulated so far.
func (m *Multiplier) Stats() Stats {
	return Stats{
		AddCalls: m.counters.addCalls.Load(),
		MulCalls: m.counters.mulCalls.Load(),
		Blocks:   m.counters.blocks.Load(),
	}
}

// ResetStats zeroes the counters.
func (m *Multiplier) ResetStats() {
	m.counters.addCalls.Store(0)
	m.counters.mulCalls.Store(0)
	m.counters.blocks.Store(0)
}

// Multiply returns the product a×b of two square matrices of the same dimension.
//
// It binds the kernels for the block size, partitions both matrices, multiplies the grids of blocks
// and assembles the result. The kernels are finalized before returning, on every path.
func (m *Multiplier) Multiply(a, b *matrix.Matrix) (*matrix.Matrix, error) {
	if err := a.Shape().CheckSquare(); err != nil {
		return nil, errors.WithMessage(err, "Multiply left operand")
	}
	if !a.Shape().Equal(b.Shape()) {
		return nil, errors.Wrapf(matrix.ErrShapeMismatch, "Multiply requires matrices of the same square shape, got %s and %s",
			a.Shape(), b.Shape())
	}
	aBlocks, err := blocks.Partition(a, m.blockSize, m.remainder)
	if err != nil {
		return nil, err
	}
	bBlocks, err := blocks.Partition(b, m.blockSize, m.remainder)
	if err != nil {
		return nil, err
	}

	kernels, err := BindKernels(m.backend, m.blockSize)
	if err != nil {
		return nil, err
	}
	defer kernels.Finalize()
	klog.V(1).Infof("multiplying %s by %s with backend %q: %s", a.Shape(), b.Shape(), m.backend.Name(), aBlocks)

	productBlocks, err := m.MultiplyGrids(kernels, aBlocks, bBlocks)
	if err != nil {
		return nil, err
	}
	product, err := blocks.Assemble(productBlocks)
	if err != nil {
		return nil, err
	}
	if n := a.Rows(); m.remainder == blocks.RemainderPad && product.Rows() != n {
		return product.Crop(n, n)
	}
	return product, nil
}

// MultiplyGrids multiplies the grids of blocks a and b with the given kernels, using the
// Multiplier's parallelism, progress reporting and counters. See MultiplyBlocked.
func (m *Multiplier) MultiplyGrids(kernels *Kernels, a, b *blocks.Grid) (*blocks.Grid, error) {
	var onBlockDone func()
	if m.progress != nil {
		total := a.NumBlockRows() * b.NumBlockCols()
		var done atomic.Int64
		onBlockDone = func() {
			m.progress(int(done.Add(1)), total)
		}
	}
	return multiplyGrids(kernels.Add, kernels.Mul, a, b, kernels.BlockSize, m.pool, &m.counters, onBlockDone)
}
