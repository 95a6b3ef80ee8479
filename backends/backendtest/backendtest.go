// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backendtest holds a conformance suite that every backend implementation runs in its tests.
package backendtest

import (
	"testing"

	"github.com/gomlx/blockmatmul/backends"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKernelTests checks the Add and Mul kernels of the backend against the reference definitions
// in package matrix.
//
// delta is the accepted absolute difference with the reference results. Values of delta <= 0
// mean only exact (bit-for-bit) equality is accepted.
func RunKernelTests(t *testing.T, backend backends.Backend, delta float64) {
	requireClose := func(t *testing.T, want, got *matrix.Matrix) {
		t.Helper()
		require.Equal(t, want.Shape(), got.Shape())
		if delta <= 0 {
			require.Equal(t, want.Data(), got.Data())
		} else {
			require.Truef(t, want.AllClose(got, delta), "want %s, got %s", want, got)
		}
	}

	t.Run("Add", func(t *testing.T) {
		rng := matrix.NewRNG(11)
		for _, dim := range []int{1, 2, 5, 16} {
			add, err := backend.AddKernel(dim)
			require.NoError(t, err)
			assert.Equal(t, backends.OpTypeAdd, add.OpType())
			assert.Equal(t, dim, add.Dim())

			x := matrix.Random(rng, dim, dim, 10)
			y := matrix.Random(rng, dim, dim, 10)
			want, err := matrix.Add(x, y)
			require.NoError(t, err)
			got, err := add.Call(x, y)
			require.NoError(t, err)
			requireClose(t, want, got)

			// add(X, Y) == add(Y, X)
			reversed, err := add.Call(y, x)
			require.NoError(t, err)
			requireClose(t, got, reversed)

			// add(X, 0) == X
			got, err = add.Call(x, matrix.Zeros(dim))
			require.NoError(t, err)
			requireClose(t, x, got)

			// Operands are not modified.
			xCopy := x.Clone()
			_, err = add.Call(x, x)
			require.NoError(t, err)
			require.True(t, x.Equal(xCopy))
			add.Finalize()
		}
	})

	t.Run("Mul", func(t *testing.T) {
		rng := matrix.NewRNG(13)
		for _, dims := range [][2]int{{1, 1}, {2, 2}, {4, 3}, {17, 17}, {32, 32}} {
			dim, contraction := dims[0], dims[1]
			mul, err := backend.MulKernel(dim, contraction)
			require.NoError(t, err)
			assert.Equal(t, backends.OpTypeMul, mul.OpType())
			assert.Equal(t, contraction, mul.Contraction())

			lhs := matrix.Random(rng, dim, contraction, 10)
			rhs := matrix.Random(rng, contraction, dim, 10)
			want, err := matrix.MatMul(lhs, rhs)
			require.NoError(t, err)
			got, err := mul.Call(lhs, rhs)
			require.NoError(t, err)
			requireClose(t, want, got)

			if dim == contraction {
				got, err = mul.Call(lhs, matrix.Identity(dim))
				require.NoError(t, err)
				requireClose(t, lhs, got)
				got, err = mul.Call(lhs, matrix.Zeros(dim))
				require.NoError(t, err)
				require.True(t, got.IsZero())
			}
			mul.Finalize()
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		add, err := backend.AddKernel(3)
		require.NoError(t, err)
		defer add.Finalize()
		_, err = add.Call(matrix.Zeros(3), matrix.Zeros(2))
		require.ErrorIs(t, err, matrix.ErrShapeMismatch)
		_, err = add.Call(matrix.New(3, 2), matrix.Zeros(3))
		require.ErrorIs(t, err, matrix.ErrShapeMismatch)

		mul, err := backend.MulKernel(3, 2)
		require.NoError(t, err)
		defer mul.Finalize()
		_, err = mul.Call(matrix.Zeros(3), matrix.Zeros(3))
		require.ErrorIs(t, err, matrix.ErrShapeMismatch)

		_, err = backend.AddKernel(0)
		require.ErrorIs(t, err, matrix.ErrBadShape)
		_, err = backend.MulKernel(2, -1)
		require.ErrorIs(t, err, matrix.ErrBadShape)
	})

	t.Run("Finalize", func(t *testing.T) {
		mul, err := backend.MulKernel(2, 2)
		require.NoError(t, err)
		mul.Finalize()
		mul.Finalize()
		_, err = mul.Call(matrix.Identity(2), matrix.Identity(2))
		require.ErrorIs(t, err, backends.ErrFinalized)
	})
}
