// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matrix

import "github.com/pkg/errors"

var (
	// ErrShapeMismatch is returned when operands' dimensions are incompatible for the requested
	// operation: add requires identical shapes, multiply requires the inner dimensions to agree,
	// block reassembly requires uniform block shapes.
	ErrShapeMismatch = errors.New("matrix: shape mismatch")

	// ErrBadShape is returned when the input can't describe a valid matrix, e.g. ragged or empty rows.
	ErrBadShape = errors.New("matrix: invalid shape")
)
