// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the accelerator capability used by the block multiplication:
// a Backend binds Kernels, each one a reusable callable for one operation at a fixed block shape.
//
// Backends register themselves (usually during package initialization) with Register, and are
// selected by configuration with New or NewWithConfig. To include all the backends in this module:
//
//	import _ "github.com/gomlx/blockmatmul/backends/default"
//
// Kernels are bound once per block size and reused for every block pair of a multiplication.
// They must be finalized after the last call, on every exit path.
package backends

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/pkg/errors"
)

// OpType identifies the operation a Kernel executes.
type OpType int

const (
	OpTypeInvalid OpType = iota

	// OpTypeAdd is the elementwise sum of two n×n blocks.
	OpTypeAdd

	// OpTypeMul is the matrix product of a n×contraction block by a contraction×n block.
	OpTypeMul
)

// String implements fmt.Stringer.
func (op OpType) String() string {
	switch op {
	case OpTypeAdd:
		return "Add"
	case OpTypeMul:
		return "Mul"
	default:
		return "Invalid"
	}
}

// Kernel is a bound, reusable callable for one operation at a fixed shape.
//
// Implementations hold no per-call state and must be safe for concurrent use.
type Kernel interface {
	// OpType returns the operation executed by the kernel.
	OpType() OpType

	// Dim returns the dimension n of the n×n output blocks.
	Dim() int

	// Contraction returns the contraction length of a OpTypeMul kernel. For OpTypeAdd kernels it is equal to Dim.
	Contraction() int

	// Call executes the kernel. The operands are not modified, and the result is always a new matrix.
	//
	// Operands with the wrong shape are rejected with an error wrapping matrix.ErrShapeMismatch,
	// and execution failures are reported with an error wrapping ErrAccelerator.
	Call(lhs, rhs *matrix.Matrix) (*matrix.Matrix, error)

	// Finalize releases the resources associated with the kernel. Calls after Finalize fail with ErrFinalized.
	// It is safe to call Finalize more than once.
	Finalize()
}

// Backend is the API that needs to be implemented by an accelerator backend.
type Backend interface {
	// Name returns the short name of the backend, the one used in the configuration. E.g.: "go".
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// AddKernel binds a kernel that sums two dim×dim blocks.
	AddKernel(dim int) (Kernel, error)

	// MulKernel binds a kernel that multiplies a dim×contraction block by a contraction×dim block.
	MulKernel(dim, contraction int) (Kernel, error)

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registryMu             sync.Mutex
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the sorted names of the registered backends.
func List() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// MATMUL_BACKEND is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "parallel") and
// "<backend_configuration>" is backend specific (e.g.: for the parallel backend "workers=4").
const MATMUL_BACKEND = "MATMUL_BACKEND" //nolint:revive,staticcheck // Name of the environment variable.

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment MATMUL_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
func New() (Backend, error) {
	config, found := os.LookupEnv(MATMUL_BACKEND)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig takes a configuration string formatted as "<backend_name>:<backend_configuration>".
//
// The "<backend_name>" is the name of a registered backend (e.g.: "blas") and
// "<backend_configuration>" is backend specific. The ":<backend_configuration>" part is optional,
// and an empty config selects the first registered backend.
func NewWithConfig(config string) (Backend, error) {
	registryMu.Lock()
	if len(registeredConstructors) == 0 {
		registryMu.Unlock()
		return nil, errors.Wrap(ErrUnknownBackend,
			`no registered backends -- maybe import the default ones with import _ "github.com/gomlx/blockmatmul/backends/default"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if config != "" {
		backendName = config
		backendConfig = ""
	}
	constructor, found := registeredConstructors[backendName]
	registryMu.Unlock()
	if !found {
		return nil, errors.Wrapf(ErrUnknownBackend, "can't find backend %q for configuration %q given, registered backends: %v",
			backendName, config, List())
	}
	return constructor(backendConfig)
}
