// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package matrix defines the dense Matrix used by the block multiplication pipeline, its Shape,
// the shared error taxonomy, and the reference (non-blocked) operations used as correctness
// oracle and performance baseline.
//
// A Matrix is stored flat in row-major order, with its dimensions recorded in a Shape.
// Values are float64: integer matrices (like the ones generated by Random) are represented
// exactly as long as the values stay below 2^53.
//
// ## Errors
//
// Incompatible operands are reported with errors wrapping ErrShapeMismatch, and invalid
// construction input with errors wrapping ErrBadShape. Use errors.Is to match them:
//
//	product, err := matrix.MatMul(a, b)
//	if errors.Is(err, matrix.ErrShapeMismatch) {
//		...
//	}
//
// Programmer errors, like asking New for a matrix with a non-positive dimension, panic.
package matrix
