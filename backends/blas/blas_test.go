// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blas

import (
	"testing"

	"github.com/gomlx/blockmatmul/backends"
	"github.com/gomlx/blockmatmul/backends/backendtest"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

func TestNew(t *testing.T) {
	b, err := backends.NewWithConfig("blas:")
	require.NoError(t, err)
	defer b.Finalize()
	assert.Equal(t, BackendName, b.Name())

	_, err = New("threads=2")
	assert.ErrorIs(t, err, backends.ErrInvalidConfig)
}

func TestConformance(t *testing.T) {
	b := newBackend()
	defer b.Finalize()
	backendtest.RunKernelTests(t, b, 1e-9)
}

func TestMulKernelFloats(t *testing.T) {
	b := newBackend()
	defer b.Finalize()
	mul, err := b.MulKernel(3, 3)
	require.NoError(t, err)
	lhs, _ := matrix.FromRows([][]float64{{0.1, 0.2, 0.3}, {1e-3, 1, 7.5}, {-2, 0.5, 3}})
	rhs, _ := matrix.FromRows([][]float64{{1.5, -0.25, 2}, {0.3, 0.3, 0.3}, {9, 8, 7}})
	want, err := matrix.MatMul(lhs, rhs)
	require.NoError(t, err)
	got, err := mul.Call(lhs, rhs)
	require.NoError(t, err)
	assert.True(t, want.AllClose(got, 1e-12))
}

func TestGuardedPanic(t *testing.T) {
	err := backends.Guard("test", func() { panic("blas: bad things") })
	require.ErrorIs(t, err, backends.ErrAccelerator)
	assert.Contains(t, err.Error(), "blas: bad things")
}
