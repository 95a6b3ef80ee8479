// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"sync/atomic"

	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// KernelBase implements the bookkeeping common to all kernels: the operation, its shape,
// operand validation and the finalized state. Backends embed it in their kernels.
type KernelBase struct {
	backendName      string
	op               OpType
	dim, contraction int
	finalized        atomic.Bool
}

// NewKernelBase validates the shape of a kernel of the given operation and returns its KernelBase.
//
// For OpTypeAdd the contraction must be equal to dim. It returns an error wrapping matrix.ErrBadShape
// for non-positive dimensions.
func NewKernelBase(backendName string, op OpType, dim, contraction int) (*KernelBase, error) {
	if dim <= 0 || contraction <= 0 {
		return nil, errors.Wrapf(matrix.ErrBadShape, "backend %q: %s kernel with invalid dimensions dim=%d, contraction=%d",
			backendName, op, dim, contraction)
	}
	switch op {
	case OpTypeAdd:
		if contraction != dim {
			return nil, errors.Wrapf(matrix.ErrShapeMismatch, "backend %q: Add kernel with dim=%d can't have contraction=%d",
				backendName, dim, contraction)
		}
	case OpTypeMul:
	default:
		return nil, errors.Errorf("backend %q: invalid kernel operation %s", backendName, op)
	}
	return &KernelBase{backendName: backendName, op: op, dim: dim, contraction: contraction}, nil
}

// OpType implements Kernel.
func (k *KernelBase) OpType() OpType { return k.op }

// Dim implements Kernel.
func (k *KernelBase) Dim() int { return k.dim }

// Contraction implements Kernel.
func (k *KernelBase) Contraction() int { return k.contraction }

// Finalize implements Kernel.
func (k *KernelBase) Finalize() { k.finalized.Store(true) }

// IsFinalized returns whether Finalize was called.
func (k *KernelBase) IsFinalized() bool { return k.finalized.Load() }

// String implements fmt.Stringer.
func (k *KernelBase) String() string {
	if k.op == OpTypeAdd {
		return fmt.Sprintf("%s.%s[%d×%d]", k.backendName, k.op, k.dim, k.dim)
	}
	return fmt.Sprintf("%s.%s[%d×%d·%d×%d]", k.backendName, k.op, k.dim, k.contraction, k.contraction, k.dim)
}

// CheckCall validates the kernel is still alive and the operands have the shapes the kernel was bound for.
func (k *KernelBase) CheckCall(lhs, rhs *matrix.Matrix) error {
	if k.IsFinalized() {
		return errors.Wrapf(ErrFinalized, "kernel %s called after Finalize", k)
	}
	if lhs == nil || rhs == nil {
		return errors.Wrapf(matrix.ErrShapeMismatch, "kernel %s called with nil operand", k)
	}
	if err := lhs.Shape().CheckDims(k.dim, k.contraction); err != nil {
		return errors.WithMessagef(err, "kernel %s left operand", k)
	}
	if err := rhs.Shape().CheckDims(k.contraction, k.dim); err != nil {
		return errors.WithMessagef(err, "kernel %s right operand", k)
	}
	return nil
}

// Guard runs fn and converts any panic raised inside it (typically by the accelerator library)
// into an error wrapping ErrAccelerator.
func Guard(name string, fn func()) error {
	exception := exceptions.Try(fn)
	if exception == nil {
		return nil
	}
	return errors.Wrapf(ErrAccelerator, "%s: %v", name, exception)
}
