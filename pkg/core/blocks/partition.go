// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blocks

import (
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Remainder defines what Partition does when the matrix dimension is not a multiple of the block size.
type Remainder int

const (
	// RemainderError fails with matrix.ErrShapeMismatch. It is the default.
	RemainderError Remainder = iota

	// RemainderPad zero-pads the matrix up to the next multiple of the block size.
	// Padded products can be cropped back to the original dimension without loss.
	RemainderPad

	// RemainderTruncate drops the trailing rows and columns that don't fill a whole block,
	// logging a warning.
	RemainderTruncate
)

var remainderNames = map[Remainder]string{
	RemainderError:    "error",
	RemainderPad:      "pad",
	RemainderTruncate: "truncate",
}

// String implements fmt.Stringer.
func (r Remainder) String() string {
	if name, found := remainderNames[r]; found {
		return name
	}
	return "Remainder(invalid)"
}

// ParseRemainder converts "error", "pad" or "truncate" to a Remainder.
func ParseRemainder(name string) (Remainder, error) {
	for r, rName := range remainderNames {
		if rName == name {
			return r, nil
		}
	}
	return RemainderError, errors.Errorf("unknown remainder policy %q, valid values are \"error\", \"pad\" and \"truncate\"", name)
}

// NumBlocks returns the number of blocks per axis a dimension of size dim is split into,
// for the given policy.
func (r Remainder) NumBlocks(dim, blockSize int) int {
	if r == RemainderPad {
		return (dim + blockSize - 1) / blockSize
	}
	return dim / blockSize
}

// Partition splits the square matrix m into a numBlocks×numBlocks grid of blockSize×blockSize blocks.
//
// If the dimension of m is not a multiple of blockSize the remainder policy decides:
// see RemainderError, RemainderPad and RemainderTruncate.
//
// It returns an error wrapping matrix.ErrShapeMismatch if m is not square, or if the policy
// rejects the remainder. A non-positive blockSize is reported with matrix.ErrBadShape.
func Partition(m *matrix.Matrix, blockSize int, remainder Remainder) (*Grid, error) {
	if blockSize <= 0 {
		return nil, errors.Wrapf(matrix.ErrBadShape, "Partition with invalid block size %d", blockSize)
	}
	if err := m.Shape().CheckSquare(); err != nil {
		return nil, errors.WithMessage(err, "Partition")
	}
	n := m.Rows()
	if n%blockSize != 0 {
		switch remainder {
		case RemainderPad:
			padded := remainder.NumBlocks(n, blockSize) * blockSize
			var err error
			m, err = m.Pad(padded, padded)
			if err != nil {
				return nil, err
			}
		case RemainderTruncate:
			if n < blockSize {
				return nil, errors.Wrapf(matrix.ErrShapeMismatch,
					"Partition of matrix %s: block size %d doesn't fit a single block", m.Shape(), blockSize)
			}
			klog.Warningf("Partition of matrix %s with block size %d: dropping the last %d rows and columns",
				m.Shape(), blockSize, n%blockSize)
		default:
			return nil, errors.Wrapf(matrix.ErrShapeMismatch,
				"Partition of matrix %s: dimension %d is not a multiple of block size %d", m.Shape(), n, blockSize)
		}
	}

	numBlocks := remainder.NumBlocks(n, blockSize)
	g := newEmptyGrid(numBlocks, numBlocks, blockSize)
	for h := range numBlocks {
		for i := range numBlocks {
			block, err := m.Slice(h*blockSize, i*blockSize, blockSize, blockSize)
			if err != nil {
				return nil, err
			}
			g.blocks[h][i] = block
		}
	}
	return g, nil
}

// Assemble converts the grid back into a flat matrix: element (r, c) of the output is element
// (r % blockSize, c % blockSize) of block (r / blockSize, c / blockSize).
//
// Every block must be blockSize×blockSize; a missing (nil) or inconsistent block is a precondition
// violation reported with an error wrapping matrix.ErrShapeMismatch, and no matrix is returned.
func Assemble(g *Grid) (*matrix.Matrix, error) {
	bs := g.blockSize
	for row, blockRow := range g.blocks {
		for col, block := range blockRow {
			if block == nil {
				return nil, errors.Wrapf(matrix.ErrShapeMismatch, "Assemble: missing block (%d, %d) of %s", row, col, g)
			}
			if err := block.Shape().CheckDims(bs, bs); err != nil {
				return nil, errors.WithMessagef(err, "Assemble: block (%d, %d) of %s", row, col, g)
			}
		}
	}

	shape := g.Shape()
	out := matrix.New(shape.Rows, shape.Cols)
	outData := out.Data()
	for r := range shape.Rows {
		blockRow := g.blocks[r/bs]
		cellRow := r % bs
		for blockCol, block := range blockRow {
			copy(outData[r*shape.Cols+blockCol*bs:], block.Row(cellRow))
		}
	}
	return out, nil
}
