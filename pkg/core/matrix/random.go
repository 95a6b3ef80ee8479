// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matrix

import "math/rand/v2"

// Random returns a rows×cols matrix filled with integer values uniformly drawn from [0, maxValue).
//
// Integer values keep float64 sums exact, so products of random matrices can be compared
// across backends without tolerance (as long as they fit in 53 bits).
func Random(rng *rand.Rand, rows, cols, maxValue int) *Matrix {
	m := New(rows, cols)
	for ii := range m.data {
		m.data[ii] = float64(rng.IntN(maxValue))
	}
	return m
}

// NewRNG returns a deterministic random number generator for the given seed.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
