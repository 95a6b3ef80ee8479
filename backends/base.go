// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
)

// BackendBase keeps track of the kernels bound by a backend, so that finalizing the backend
// also releases every kernel still alive. Backends embed it.
type BackendBase struct {
	name      string
	mu        sync.Mutex
	finalized bool
	kernels   []*KernelBase
}

// NewBackendBase returns a BackendBase for the backend with the given name.
func NewBackendBase(name string) *BackendBase {
	return &BackendBase{name: name}
}

// Name implements Backend.
func (b *BackendBase) Name() string { return b.name }

// String implements fmt.Stringer.
func (b *BackendBase) String() string { return b.name }

// BindKernelBase validates and registers a new kernel of the backend.
// It fails with ErrFinalized if the backend was already finalized.
func (b *BackendBase) BindKernelBase(op OpType, dim, contraction int) (*KernelBase, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return nil, errors.Wrapf(ErrFinalized, "backend %q can't bind %s kernel", b.name, op)
	}
	k, err := NewKernelBase(b.name, op, dim, contraction)
	if err != nil {
		return nil, err
	}
	b.kernels = slices.DeleteFunc(b.kernels, func(k *KernelBase) bool { return k.IsFinalized() })
	b.kernels = append(b.kernels, k)
	return k, nil
}

// NumLiveKernels returns the number of bound kernels not yet finalized.
func (b *BackendBase) NumLiveKernels() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, k := range b.kernels {
		if !k.IsFinalized() {
			count++
		}
	}
	return count
}

// IsFinalized returns whether the backend was finalized.
func (b *BackendBase) IsFinalized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalized
}

// Finalize implements Backend: it finalizes all kernels and makes the backend invalid.
func (b *BackendBase) Finalize() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range b.kernels {
		k.Finalize()
	}
	b.kernels = nil
	b.finalized = true
}
