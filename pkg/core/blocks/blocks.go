// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package blocks splits square matrices into grids of equally sized square blocks and
// reassembles grids of blocks back into flat matrices.
//
// Block (h, i) of a grid holds rows [h*blockSize, (h+1)*blockSize) and columns
// [i*blockSize, (i+1)*blockSize) of the source matrix.
package blocks

import (
	"fmt"

	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Grid is a 2D arrangement of square blockSize×blockSize matrices.
//
// Grids created by Partition are square (numBlocks×numBlocks), but products of grids
// (see package blockmm) only require block-level compatibility.
type Grid struct {
	blockSize int
	blocks    [][]*matrix.Matrix
}

// NewGrid returns a grid with the given number of block rows and columns, with all blocks
// initialized to zero matrices of blockSize×blockSize.
//
// It panics if any of the dimensions is not positive.
func NewGrid(numBlockRows, numBlockCols, blockSize int) *Grid {
	g := newEmptyGrid(numBlockRows, numBlockCols, blockSize)
	for _, blockRow := range g.blocks {
		for col := range blockRow {
			blockRow[col] = matrix.Zeros(blockSize)
		}
	}
	return g
}

// newEmptyGrid returns a grid with nil blocks, to be filled by the caller.
func newEmptyGrid(numBlockRows, numBlockCols, blockSize int) *Grid {
	if numBlockRows <= 0 || numBlockCols <= 0 || blockSize <= 0 {
		exceptions.Panicf("blocks: invalid grid %dx%d of blocks of size %d", numBlockRows, numBlockCols, blockSize)
	}
	g := &Grid{blockSize: blockSize, blocks: make([][]*matrix.Matrix, numBlockRows)}
	for row := range g.blocks {
		g.blocks[row] = make([]*matrix.Matrix, numBlockCols)
	}
	return g
}

// FromBlocks creates a Grid referencing the given blocks (they are not copied).
//
// The grid must be rectangular and non-empty, and every block must be square with the same
// dimension, otherwise it returns an error wrapping matrix.ErrShapeMismatch.
func FromBlocks(blocks [][]*matrix.Matrix) (*Grid, error) {
	if len(blocks) == 0 || len(blocks[0]) == 0 || blocks[0][0] == nil {
		return nil, errors.Wrap(matrix.ErrShapeMismatch, "FromBlocks requires a non-empty grid")
	}
	blockSize := blocks[0][0].Rows()
	g := newEmptyGrid(len(blocks), len(blocks[0]), blockSize)
	for row, blockRow := range blocks {
		if len(blockRow) != g.NumBlockCols() {
			return nil, errors.Wrapf(matrix.ErrShapeMismatch, "FromBlocks: block row %d has %d blocks, row 0 has %d",
				row, len(blockRow), g.NumBlockCols())
		}
		for col, block := range blockRow {
			if err := g.SetBlock(row, col, block); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// BlockSize returns the dimension of each (square) block.
func (g *Grid) BlockSize() int { return g.blockSize }

// NumBlockRows returns the number of rows of blocks.
func (g *Grid) NumBlockRows() int { return len(g.blocks) }

// NumBlockCols returns the number of columns of blocks.
func (g *Grid) NumBlockCols() int { return len(g.blocks[0]) }

// IsSquare returns whether the grid has as many rows as columns of blocks.
func (g *Grid) IsSquare() bool { return g.NumBlockRows() == g.NumBlockCols() }

// Shape returns the shape of the matrix this grid assembles into.
func (g *Grid) Shape() matrix.Shape {
	return matrix.MakeShape(g.NumBlockRows()*g.blockSize, g.NumBlockCols()*g.blockSize)
}

// String implements fmt.Stringer.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid[%dx%d blocks of %dx%d]", g.NumBlockRows(), g.NumBlockCols(), g.blockSize, g.blockSize)
}

// Block returns the block at block-row row and block-column col. It is not a copy.
func (g *Grid) Block(row, col int) *matrix.Matrix {
	return g.blocks[row][col]
}

// SetBlock sets the block at (row, col). The block must be blockSize×blockSize.
func (g *Grid) SetBlock(row, col int, block *matrix.Matrix) error {
	if row < 0 || row >= g.NumBlockRows() || col < 0 || col >= g.NumBlockCols() {
		return errors.Wrapf(matrix.ErrShapeMismatch, "block (%d, %d) out of range for %s", row, col, g)
	}
	if block == nil {
		return errors.Wrapf(matrix.ErrShapeMismatch, "nil block at (%d, %d) of %s", row, col, g)
	}
	if err := block.Shape().CheckDims(g.blockSize, g.blockSize); err != nil {
		return errors.WithMessagef(err, "block (%d, %d) of %s", row, col, g)
	}
	g.blocks[row][col] = block
	return nil
}
