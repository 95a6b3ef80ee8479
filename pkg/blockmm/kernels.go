// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blockmm

import (
	"github.com/gomlx/blockmatmul/backends"
	"github.com/pkg/errors"
)

// Kernels holds the pair of kernels used by a block multiplication, bound for one block size.
type Kernels struct {
	Add, Mul  backends.Kernel
	BlockSize int
}

// BindKernels binds the Add and Mul kernels of the backend for blockSize×blockSize blocks.
//
// The caller must call Finalize after the last use, typically with defer.
func BindKernels(backend backends.Backend, blockSize int) (*Kernels, error) {
	add, err := backend.AddKernel(blockSize)
	if err != nil {
		return nil, errors.WithMessagef(err, "binding Add kernel of backend %q", backend.Name())
	}
	mul, err := backend.MulKernel(blockSize, blockSize)
	if err != nil {
		add.Finalize()
		return nil, errors.WithMessagef(err, "binding Mul kernel of backend %q", backend.Name())
	}
	return &Kernels{Add: add, Mul: mul, BlockSize: blockSize}, nil
}

// Finalize releases both kernels. It is safe to call on a nil Kernels, and more than once.
func (k *Kernels) Finalize() {
	if k == nil {
		return
	}
	k.Add.Finalize()
	k.Mul.Finalize()
}
