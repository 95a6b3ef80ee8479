// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package blas implements an accelerated backend on top of gonum's BLAS: Dgemm for the
// multiply kernel and Daxpy for the add kernel.
//
// Gonum's Dgemm is cache-blocked and parallel for large enough matrices, so its summation order
// differs from the reference: results match the "go" backend up to floating point rounding.
//
// There is no configuration. The BLAS implementation is whatever blas64 is set to use: gonum's
// pure Go one by default, or a cgo one registered by the program with blas64.Use.
package blas

import (
	"github.com/gomlx/blockmatmul/backends"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/pkg/errors"
	gblas "gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"k8s.io/klog/v2"
)

// BackendName to be used in MATMUL_BACKEND to specify this backend.
const BackendName = "blas"

func init() {
	backends.Register(BackendName, New)
}

// New constructs a new BLAS Backend. The configuration must be empty.
func New(config string) (backends.Backend, error) {
	if config != "" {
		return nil, errors.Wrapf(backends.ErrInvalidConfig, "backend %q takes no configuration, got %q", BackendName, config)
	}
	return newBackend(), nil
}

func newBackend() *Backend {
	return &Backend{BackendBase: backends.NewBackendBase(BackendName)}
}

// Backend implements backends.Backend.
type Backend struct {
	*backends.BackendBase
}

var _ backends.Backend = &Backend{}

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "BLAS backend (gonum blas64)"
}

// AddKernel implements backends.Backend.
func (b *Backend) AddKernel(dim int) (backends.Kernel, error) {
	base, err := b.BindKernelBase(backends.OpTypeAdd, dim, dim)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("bound kernel %s", base)
	return &addKernel{base}, nil
}

// MulKernel implements backends.Backend.
func (b *Backend) MulKernel(dim, contraction int) (backends.Kernel, error) {
	base, err := b.BindKernelBase(backends.OpTypeMul, dim, contraction)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("bound kernel %s", base)
	return &mulKernel{base}, nil
}

// general wraps the matrix values as a blas64.General, without copying.
func general(m *matrix.Matrix) blas64.General {
	return blas64.General{Rows: m.Rows(), Cols: m.Cols(), Stride: m.Cols(), Data: m.Data()}
}

type addKernel struct {
	*backends.KernelBase
}

// Call implements backends.Kernel: out = rhs; out += 1*lhs.
func (k *addKernel) Call(lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
	if err := k.CheckCall(lhs, rhs); err != nil {
		return nil, err
	}
	out := rhs.Clone()
	size := lhs.Shape().Size()
	err := backends.Guard(k.String(), func() {
		blas64.Axpy(1,
			blas64.Vector{N: size, Inc: 1, Data: lhs.Data()},
			blas64.Vector{N: size, Inc: 1, Data: out.Data()})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type mulKernel struct {
	*backends.KernelBase
}

// Call implements backends.Kernel: out = 1*lhs×rhs + 0*out.
func (k *mulKernel) Call(lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
	if err := k.CheckCall(lhs, rhs); err != nil {
		return nil, err
	}
	out := matrix.New(k.Dim(), k.Dim())
	err := backends.Guard(k.String(), func() {
		blas64.Gemm(gblas.NoTrans, gblas.NoTrans, 1, general(lhs), general(rhs), 0, general(out))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
