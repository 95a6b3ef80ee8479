// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// blockmatmul multiplies square matrices by blocks on one of the accelerator backends, and
// compares it with the plain CPU multiplication.
//
// Usage:
//
//	blockmatmul -mode=demo
//	blockmatmul -mode=bench -n=2000 -backend=parallel:workers=8 -check
//
// The backend defaults to the MATMUL_BACKEND environment variable, or "parallel" if not set.
package main

import (
	"flag"
	"os"

	"github.com/gomlx/blockmatmul/backends"
	_ "github.com/gomlx/blockmatmul/backends/default"
	"github.com/gomlx/blockmatmul/pkg/blockmm"
	"github.com/gomlx/blockmatmul/pkg/core/blocks"
	"github.com/gomlx/blockmatmul/ui/commandline"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagMode = flag.String("mode", "demo", "One of \"demo\" (multiply two fixed 4x4 matrices and print them) "+
		"or \"bench\" (time the multiplication of random matrices).")
	flagBackend = flag.String("backend", "", "Backend configuration, as \"<name>:<key=value,...>\". "+
		"If empty, it uses the $"+backends.MATMUL_BACKEND+" environment variable, or the default backend.")
	flagN     = flag.Int("n", 1000, "Dimension of the random square matrices in bench mode.")
	flagBlock = flag.Int("block", 0, "Block size. If <= 0, it defaults to n/2.")
	flagSeed  = flag.Uint64("seed", 42, "Seed for the random matrices in bench mode.")
	flagCPU   = flag.Bool("cpu", true, "In bench mode, also time the plain CPU multiplication.")
	flagCheck = flag.Bool("check", true, "In bench mode, check that the blocked product matches the "+
		"CPU product within -eps. Requires -cpu.")
	flagEps         = flag.Float64("eps", 1e-6, "Absolute tolerance for -check.")
	flagRepeat      = flag.Int("repeat", 1, "In bench mode, number of times each multiplication is timed: "+
		"the median time is reported.")
	flagParallelism = flag.Int("parallelism", 0, "Number of output blocks computed in parallel: "+
		"0 computes them sequentially, -1 is unlimited.")
	flagRemainder = flag.String("remainder", blocks.RemainderError.String(), "What to do when the dimension is not "+
		"a multiple of the block size: \"error\", \"pad\" (with zeros) or \"truncate\" (drop the trailing rows and columns).")
	flagPlain = flag.Bool("plain", false, "Disable colors in the output.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	commandline.SetPlain(*flagPlain)

	backend := must.M1(newBackend(*flagBackend))
	defer backend.Finalize()
	remainder := must.M1(blocks.ParseRemainder(*flagRemainder))

	switch *flagMode {
	case "demo":
		m := newMultiplier(backend, *flagBlock, demoBlockSize, remainder)
		must.M(runDemo(os.Stdout, m))
	case "bench":
		m := newMultiplier(backend, *flagBlock, *flagN/2, remainder)
		cfg := benchConfig{
			N: *flagN, Seed: *flagSeed, CPU: *flagCPU, Check: *flagCheck, Eps: *flagEps, Repeat: *flagRepeat,
		}
		must.M(runBench(os.Stdout, os.Stderr, m, cfg))
	default:
		klog.Exitf("Invalid -mode=%q, valid values are \"demo\" and \"bench\"", *flagMode)
	}
}

// newBackend creates the backend from config, or from the environment/default if it is empty.
func newBackend(config string) (backends.Backend, error) {
	if config == "" {
		return backends.New()
	}
	return backends.NewWithConfig(config)
}

// newMultiplier uses blockSize if positive, otherwise defaultBlockSize.
func newMultiplier(backend backends.Backend, blockSize, defaultBlockSize int, remainder blocks.Remainder) *blockmm.Multiplier {
	if blockSize <= 0 {
		blockSize = max(defaultBlockSize, 1)
	}
	klog.V(1).Infof("backend %q (%s), block size %d", backend.Name(), backend.Description(), blockSize)
	return blockmm.New(backend, blockSize).
		Parallelism(*flagParallelism).
		Remainder(remainder)
}
