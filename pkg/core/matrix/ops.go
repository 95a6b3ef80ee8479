// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matrix

import "github.com/pkg/errors"

// Add returns the elementwise sum a + b. Both operands must have the same shape.
func Add(a, b *Matrix) (*Matrix, error) {
	if !a.shape.Equal(b.shape) {
		return nil, errors.Wrapf(ErrShapeMismatch, "Add requires identical shapes, got %s and %s", a.shape, b.shape)
	}
	out := New(a.shape.Rows, a.shape.Cols)
	for ii, v := range a.data {
		out.data[ii] = v + b.data[ii]
	}
	return out, nil
}

// MatMul is the reference (non-blocked) matrix product a × b, using a plain triple loop.
//
// It requires a.Cols() == b.Rows(). Each output value is accumulated left-to-right over the
// contraction index, starting from 0: accelerated kernels that preserve this order reproduce
// its results bit-for-bit.
//
// It is single-threaded and always allocates a fresh output.
func MatMul(a, b *Matrix) (*Matrix, error) {
	if a.shape.Cols != b.shape.Rows {
		return nil, errors.Wrapf(ErrShapeMismatch, "MatMul of %s × %s: contraction dimensions %d and %d differ",
			a.shape, b.shape, a.shape.Cols, b.shape.Rows)
	}
	rows, cols, contraction := a.shape.Rows, b.shape.Cols, a.shape.Cols
	out := New(rows, cols)
	for i := range rows {
		aRow := a.data[i*contraction : (i+1)*contraction]
		for j := range cols {
			var sum float64
			for k, aValue := range aRow {
				sum += aValue * b.data[k*cols+j]
			}
			out.data[i*cols+j] = sum
		}
	}
	return out, nil
}

// Slice returns a copy of the sub-matrix with the given number of rows and cols,
// starting at (row0, col0). The region must be fully contained in the matrix.
func (m *Matrix) Slice(row0, col0, rows, cols int) (*Matrix, error) {
	if row0 < 0 || col0 < 0 || rows <= 0 || cols <= 0 ||
		row0+rows > m.shape.Rows || col0+cols > m.shape.Cols {
		return nil, errors.Wrapf(ErrShapeMismatch, "Slice(%d, %d, %d, %d) out of bounds of matrix %s",
			row0, col0, rows, cols, m.shape)
	}
	out := New(rows, cols)
	for r := range rows {
		start := (row0+r)*m.shape.Cols + col0
		copy(out.data[r*cols:(r+1)*cols], m.data[start:start+cols])
	}
	return out, nil
}

// Pad returns a copy of the matrix enlarged to rows×cols, with the new values set to zero.
// The new dimensions can't be smaller than the current ones.
func (m *Matrix) Pad(rows, cols int) (*Matrix, error) {
	if rows < m.shape.Rows || cols < m.shape.Cols {
		return nil, errors.Wrapf(ErrShapeMismatch, "Pad of matrix %s to smaller shape %s", m.shape, MakeShape(rows, cols))
	}
	out := New(rows, cols)
	for r := range m.shape.Rows {
		copy(out.data[r*cols:r*cols+m.shape.Cols], m.Row(r))
	}
	return out, nil
}

// Crop returns a copy of the top-left rows×cols sub-matrix.
func (m *Matrix) Crop(rows, cols int) (*Matrix, error) {
	return m.Slice(0, 0, rows, cols)
}
