// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simplego implements the scalar reference backend: plain sequential loops, very portable
// and not very fast.
//
// Its kernels reproduce matrix.Add and matrix.MatMul bit-for-bit, and it is the baseline other
// backends are tested against.
package simplego

import (
	"github.com/gomlx/blockmatmul/backends"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName to be used in MATMUL_BACKEND to specify this backend.
const BackendName = "go"

// Registers New() as the constructor for the "go" backend.
func init() {
	backends.Register(BackendName, New)
}

// New constructs a new SimpleGo Backend.
// There are no configurations, and a non-empty configuration is an error.
func New(config string) (backends.Backend, error) {
	if config != "" {
		return nil, errors.Wrapf(backends.ErrInvalidConfig, "backend %q takes no configuration, got %q", BackendName, config)
	}
	return newBackend(), nil
}

func newBackend() *Backend {
	return &Backend{BackendBase: backends.NewBackendBase(BackendName)}
}

// Backend implements the backends.Backend interface.
type Backend struct {
	*backends.BackendBase
}

// Compile-time check that simplego.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Simple Go scalar reference backend"
}

// AddKernel implements backends.Backend.
func (b *Backend) AddKernel(dim int) (backends.Kernel, error) {
	base, err := b.BindKernelBase(backends.OpTypeAdd, dim, dim)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("bound kernel %s", base)
	return &kernel{KernelBase: base, fn: matrix.Add}, nil
}

// MulKernel implements backends.Backend.
func (b *Backend) MulKernel(dim, contraction int) (backends.Kernel, error) {
	base, err := b.BindKernelBase(backends.OpTypeMul, dim, contraction)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("bound kernel %s", base)
	return &kernel{KernelBase: base, fn: matrix.MatMul}, nil
}

// kernel delegates to the reference definitions in package matrix, after validating the operands.
type kernel struct {
	*backends.KernelBase
	fn func(lhs, rhs *matrix.Matrix) (*matrix.Matrix, error)
}

// Call implements backends.Kernel.
func (k *kernel) Call(lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
	if err := k.CheckCall(lhs, rhs); err != nil {
		return nil, err
	}
	return k.fn(lhs, rhs)
}
