// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"fmt"
	"math"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Matrix is a dense, row-major matrix of float64 values.
//
// The operations in this module never mutate their inputs: they always return new matrices.
type Matrix struct {
	shape Shape
	data  []float64
}

// New returns a new zero-initialized matrix with the given dimensions.
//
// It panics if any of the dimensions is not positive.
func New(rows, cols int) *Matrix {
	shape := MakeShape(rows, cols)
	if !shape.Ok() {
		exceptions.Panicf("matrix.New%s: cannot create a matrix with a dimension <= 0", shape)
	}
	return &Matrix{shape: shape, data: make([]float64, shape.Size())}
}

// Zeros returns a new square n×n matrix filled with zeros.
func Zeros(n int) *Matrix {
	return New(n, n)
}

// Identity returns the n×n identity matrix.
func Identity(n int) *Matrix {
	m := New(n, n)
	for ii := range n {
		m.data[ii*n+ii] = 1
	}
	return m
}

// FromRows creates a matrix from a slice of rows, copying the values.
//
// It returns an error wrapping ErrBadShape if there are no rows, if the rows are empty,
// or if they don't all have the same length.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Wrap(ErrBadShape, "FromRows requires at least one non-empty row")
	}
	numCols := len(rows[0])
	m := New(len(rows), numCols)
	for rowIdx, row := range rows {
		if len(row) != numCols {
			return nil, errors.Wrapf(ErrBadShape, "FromRows: row %d has %d values, but row 0 has %d",
				rowIdx, len(row), numCols)
		}
		copy(m.data[rowIdx*numCols:], row)
	}
	return m, nil
}

// FromFlat creates a matrix with the given dimensions from row-major flat data, copying the values.
func FromFlat(rows, cols int, data []float64) (*Matrix, error) {
	shape := MakeShape(rows, cols)
	if !shape.Ok() {
		return nil, errors.Wrapf(ErrBadShape, "FromFlat: invalid dimensions %s", shape)
	}
	if len(data) != shape.Size() {
		return nil, errors.Wrapf(ErrBadShape, "FromFlat: shape %s requires %d values, got %d",
			shape, shape.Size(), len(data))
	}
	m := New(rows, cols)
	copy(m.data, data)
	return m, nil
}

// Shape returns the dimensions of the matrix.
func (m *Matrix) Shape() Shape { return m.shape }

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.shape.Rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.shape.Cols }

// At returns the value at row r and column c. It panics if out of range.
func (m *Matrix) At(r, c int) float64 {
	m.checkIndex(r, c)
	return m.data[r*m.shape.Cols+c]
}

// Set sets the value at row r and column c. It panics if out of range.
func (m *Matrix) Set(r, c int, value float64) {
	m.checkIndex(r, c)
	m.data[r*m.shape.Cols+c] = value
}

func (m *Matrix) checkIndex(r, c int) {
	if r < 0 || r >= m.shape.Rows || c < 0 || c >= m.shape.Cols {
		exceptions.Panicf("matrix index (%d, %d) out of range for shape %s", r, c, m.shape)
	}
}

// Row returns a view of row r: changes to it are reflected in the matrix.
func (m *Matrix) Row(r int) []float64 {
	m.checkIndex(r, 0)
	start := r * m.shape.Cols
	return m.data[start : start+m.shape.Cols : start+m.shape.Cols]
}

// Data returns a view of the underlying row-major flat data.
//
// Kernels use it to read operands and fill freshly allocated outputs.
func (m *Matrix) Data() []float64 { return m.data }

// ToRows returns a copy of the values organized as a slice of rows.
func (m *Matrix) ToRows() [][]float64 {
	rows := make([][]float64, m.shape.Rows)
	for r := range rows {
		rows[r] = append([]float64(nil), m.Row(r)...)
	}
	return rows
}

// Clone returns a deep copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{shape: m.shape, data: append([]float64(nil), m.data...)}
}

// Equal returns whether both matrices have the same shape and exactly the same values.
func (m *Matrix) Equal(other *Matrix) bool {
	if m == nil || other == nil {
		return m == other
	}
	if !m.shape.Equal(other.shape) {
		return false
	}
	for ii, v := range m.data {
		if v != other.data[ii] {
			return false
		}
	}
	return true
}

// AllClose returns whether both matrices have the same shape and all values are within
// the absolute tolerance eps of each other.
func (m *Matrix) AllClose(other *Matrix, eps float64) bool {
	if m == nil || other == nil {
		return m == other
	}
	if !m.shape.Equal(other.shape) {
		return false
	}
	for ii, v := range m.data {
		if math.Abs(v-other.data[ii]) > eps {
			return false
		}
	}
	return true
}

// MaxAbsDiff returns the largest absolute difference between corresponding values.
// It returns an error wrapping ErrShapeMismatch if the shapes differ.
func (m *Matrix) MaxAbsDiff(other *Matrix) (float64, error) {
	if !m.shape.Equal(other.shape) {
		return 0, errors.Wrapf(ErrShapeMismatch, "MaxAbsDiff between %s and %s", m.shape, other.shape)
	}
	var maxDiff float64
	for ii, v := range m.data {
		maxDiff = max(maxDiff, math.Abs(v-other.data[ii]))
	}
	return maxDiff, nil
}

// IsZero returns whether all values are 0.
func (m *Matrix) IsZero() bool {
	for _, v := range m.data {
		if v != 0 {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer. Large matrices are not elided.
func (m *Matrix) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Matrix%s{", m.shape)
	for r := range m.shape.Rows {
		if r > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "%v", m.Row(r))
	}
	sb.WriteString("}")
	return sb.String()
}
