// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package blockmm implements block matrix multiplication on top of the kernels of an
// accelerator backend (see package backends).
//
// For each output block (i, j), an accumulator block of zeros is combined with the product of
// every pair of blocks along the contraction dimension, in increasing order of k:
//
//	acc = 0
//	for k := range numBlocks {
//		acc = add(acc, mul(a[i][k], b[k][j]))
//	}
//	out[i][j] = acc
//
// Each add and each multiply is one discrete kernel call. Independent output blocks may be
// computed in parallel (see Multiplier.Parallelism), but the contraction loop of a block is
// always sequential, since each step depends on the previous accumulator value.
//
// The Multiplier ties everything together: it binds the kernels, partitions the inputs, runs
// the block multiplication, reassembles the result and releases the kernels.
package blockmm

import (
	"sync/atomic"

	"github.com/gomlx/blockmatmul/backends"
	"github.com/gomlx/blockmatmul/internal/workerspool"
	"github.com/gomlx/blockmatmul/pkg/core/blocks"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/pkg/errors"
)

// MultiplyBlocked multiplies the grids of blocks a and b, returning the grid of blocks of the product.
//
// It requires a.NumBlockCols() == b.NumBlockRows(), every block of both grids with shape
// blockSize×blockSize, add an OpTypeAdd kernel and mul an OpTypeMul kernel, both bound for
// blockSize. Otherwise, it returns an error wrapping matrix.ErrShapeMismatch.
//
// Kernel calls are issued sequentially. The first kernel error aborts the operation and is returned:
// no partial result is ever returned.
func MultiplyBlocked(add, mul backends.Kernel, a, b *blocks.Grid, blockSize int) (*blocks.Grid, error) {
	return multiplyGrids(add, mul, a, b, blockSize, nil, nil, nil)
}

// counters are updated concurrently by the block workers.
type counters struct {
	addCalls, mulCalls, blocks atomic.Int64
}

func checkOperands(add, mul backends.Kernel, a, b *blocks.Grid, blockSize int) error {
	if add == nil || mul == nil {
		return errors.New("block multiplication requires both add and mul kernels")
	}
	if add.OpType() != backends.OpTypeAdd || mul.OpType() != backends.OpTypeMul {
		return errors.Errorf("block multiplication requires an Add and a Mul kernel, got %s and %s",
			add.OpType(), mul.OpType())
	}
	if add.Dim() != blockSize || mul.Dim() != blockSize || mul.Contraction() != blockSize {
		return errors.Wrapf(matrix.ErrShapeMismatch,
			"kernels bound for add dim=%d, mul dim=%d (contraction %d) can't multiply blocks of size %d",
			add.Dim(), mul.Dim(), mul.Contraction(), blockSize)
	}
	if a.BlockSize() != blockSize || b.BlockSize() != blockSize {
		return errors.Wrapf(matrix.ErrShapeMismatch, "grids %s and %s don't have blocks of size %d", a, b, blockSize)
	}
	if a.NumBlockCols() != b.NumBlockRows() {
		return errors.Wrapf(matrix.ErrShapeMismatch,
			"grids %s and %s are incompatible: %d block columns vs %d block rows", a, b, a.NumBlockCols(), b.NumBlockRows())
	}
	return nil
}

// multiplyBlock computes the output block (i, j).
func multiplyBlock(add, mul backends.Kernel, a, b *blocks.Grid, i, j int, c *counters) (*matrix.Matrix, error) {
	acc := matrix.Zeros(a.BlockSize())
	for k := range a.NumBlockCols() {
		product, err := mul.Call(a.Block(i, k), b.Block(k, j))
		if err != nil {
			return nil, errors.WithMessagef(err, "multiplying blocks a(%d, %d) and b(%d, %d)", i, k, k, j)
		}
		c.mulCalls.Add(1)
		acc, err = add.Call(acc, product)
		if err != nil {
			return nil, errors.WithMessagef(err, "accumulating output block (%d, %d) at step %d", i, j, k)
		}
		c.addCalls.Add(1)
	}
	return acc, nil
}

// multiplyGrids runs the block multiplication, in parallel over the output blocks if pool is given.
// onBlockDone, if given, is called (possibly concurrently) after each output block is finished.
func multiplyGrids(add, mul backends.Kernel, a, b *blocks.Grid, blockSize int,
	pool *workerspool.Pool, c *counters, onBlockDone func()) (*blocks.Grid, error) {
	if err := checkOperands(add, mul, a, b, blockSize); err != nil {
		return nil, err
	}
	if c == nil {
		c = &counters{}
	}
	numRows, numCols := a.NumBlockRows(), b.NumBlockCols()
	results := make([][]*matrix.Matrix, numRows)
	for i := range results {
		results[i] = make([]*matrix.Matrix, numCols)
	}

	task := func(idx int) error {
		i, j := idx/numCols, idx%numCols
		block, err := multiplyBlock(add, mul, a, b, i, j, c)
		if err != nil {
			return err
		}
		results[i][j] = block
		c.blocks.Add(1)
		if onBlockDone != nil {
			onBlockDone()
		}
		return nil
	}

	numBlocks := numRows * numCols
	if pool == nil || !pool.IsEnabled() {
		for idx := range numBlocks {
			if err := task(idx); err != nil {
				return nil, err
			}
		}
	} else if err := pool.ParallelFor(numBlocks, task); err != nil {
		return nil, err
	}
	return blocks.FromBlocks(results)
}
