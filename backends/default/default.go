// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package _default includes all the backends of this module, and sets the "parallel" backend
// as the default (unless backends.DefaultConfig was already set).
//
// To use it simply include:
//
//	import _ "github.com/gomlx/blockmatmul/backends/default"
package _default

import (
	"github.com/gomlx/blockmatmul/backends"
	_ "github.com/gomlx/blockmatmul/backends/blas"
	"github.com/gomlx/blockmatmul/backends/parallel"
	_ "github.com/gomlx/blockmatmul/backends/simplego"
)

func init() {
	if backends.DefaultConfig == "" {
		backends.DefaultConfig = parallel.BackendName
	}
}
