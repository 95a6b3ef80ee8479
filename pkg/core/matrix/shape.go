// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"fmt"

	"github.com/pkg/errors"
)

// UncheckedDim can be used in CheckDims for a dimension that doesn't matter.
const UncheckedDim = -1

// Shape holds the dimensions of a 2D matrix.
type Shape struct {
	Rows, Cols int
}

// MakeShape returns a Shape with the given dimensions.
func MakeShape(rows, cols int) Shape {
	return Shape{Rows: rows, Cols: cols}
}

// String implements fmt.Stringer.
func (s Shape) String() string {
	return fmt.Sprintf("(%d×%d)", s.Rows, s.Cols)
}

// Size returns the number of elements.
func (s Shape) Size() int { return s.Rows * s.Cols }

// Memory returns the number of bytes used by the values of a matrix of this shape.
func (s Shape) Memory() uintptr { return uintptr(s.Size()) * 8 }

// IsSquare returns whether Rows == Cols.
func (s Shape) IsSquare() bool { return s.Rows == s.Cols }

// Ok returns whether both dimensions are positive.
func (s Shape) Ok() bool { return s.Rows > 0 && s.Cols > 0 }

// Equal returns whether the shapes have the same dimensions.
func (s Shape) Equal(s2 Shape) bool { return s == s2 }

// CheckDims checks that the shape has the given dimensions. A value of UncheckedDim (-1) means
// the dimension can take any value and is not checked.
//
// The returned error wraps ErrShapeMismatch.
func (s Shape) CheckDims(rows, cols int) error {
	if rows != UncheckedDim && s.Rows != rows {
		return errors.Wrapf(ErrShapeMismatch, "shape %s has %d rows, wanted %d", s, s.Rows, rows)
	}
	if cols != UncheckedDim && s.Cols != cols {
		return errors.Wrapf(ErrShapeMismatch, "shape %s has %d columns, wanted %d", s, s.Cols, cols)
	}
	return nil
}

// CheckSquare returns an error wrapping ErrShapeMismatch if the shape is not square.
func (s Shape) CheckSquare() error {
	if !s.IsSquare() {
		return errors.Wrapf(ErrShapeMismatch, "shape %s is not square", s)
	}
	return nil
}
