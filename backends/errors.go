// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import "github.com/pkg/errors"

var (
	// ErrAccelerator is returned when a kernel fails to execute: device errors, resource exhaustion,
	// or a panic inside the accelerator library.
	ErrAccelerator = errors.New("backends: accelerator failure")

	// ErrFinalized is returned when a kernel or backend is used after being finalized. It wraps ErrAccelerator.
	ErrFinalized = errors.Wrap(ErrAccelerator, "already finalized")

	// ErrUnknownBackend is returned when the configuration names a backend that is not registered.
	ErrUnknownBackend = errors.New("backends: unknown backend")

	// ErrInvalidConfig is returned when a backend can't parse its configuration.
	ErrInvalidConfig = errors.New("backends: invalid configuration")
)
