// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/gomlx/blockmatmul/pkg/blockmm"
	"github.com/gomlx/blockmatmul/pkg/core/blocks"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/gomlx/blockmatmul/pkg/support/timing"
	"github.com/gomlx/blockmatmul/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// benchMaxValue is the exclusive upper bound of the random integer entries.
const benchMaxValue = 10

type benchConfig struct {
	N          int
	Seed       uint64
	CPU, Check bool
	Eps        float64

	// Repeat is the number of times each multiplication is timed. The median is reported.
	Repeat int
}

// runBench times the block multiplication of two random N×N matrices, and optionally the
// CPU multiplication. Tables are written to w and the progress bars to progressOut.
func runBench(w, progressOut io.Writer, m *blockmm.Multiplier, cfg benchConfig) error {
	if cfg.N <= 0 {
		return errors.Wrapf(matrix.ErrBadShape, "invalid matrix dimension %d", cfg.N)
	}
	rng := matrix.NewRNG(cfg.Seed)
	a := matrix.Random(rng, cfg.N, cfg.N, benchMaxValue)
	b := matrix.Random(rng, cfg.N, cfg.N, benchMaxValue)

	var (
		results []timing.Result
		dense   *matrix.Matrix
	)
	if cfg.CPU {
		r, product, err := timeRepeated("CPU", cfg.Repeat, func() (*matrix.Matrix, error) {
			return matrix.MatMul(a, b)
		})
		if err != nil {
			return err
		}
		results = append(results, r)
		dense = product
	}

	// Upper bound of the number of blocks: the progress bar is adjusted on the first update.
	numBlocks := blocks.RemainderPad.NumBlocks(cfg.N, m.BlockSize())
	label := fmt.Sprintf("Blocked (%s, block %d)", m.Backend().Name(), m.BlockSize())
	r, blocked, err := timeRepeated(label, cfg.Repeat, func() (*matrix.Matrix, error) {
		progress := commandline.NewBlockProgress(progressOut, "output blocks", numBlocks*numBlocks)
		defer progress.Finish()
		m.ResetStats()
		return m.OnProgress(progress.Update).Multiply(a, b)
	})
	if err != nil {
		return err
	}
	results = append(results, r)

	_, _ = fmt.Fprintln(w, commandline.TitleStyle.Render("Timings"))
	_, _ = fmt.Fprintln(w, commandline.TimingsTable(results))
	_, _ = fmt.Fprintln(w, commandline.TitleStyle.Render("Summary"))
	_, _ = fmt.Fprintln(w, commandline.SummaryTable(m, cfg.N))

	if !cfg.Check {
		return nil
	}
	if dense == nil {
		klog.Warning("-check requires -cpu, skipping check")
		return nil
	}
	if !dense.Shape().Equal(blocked.Shape()) {
		// Truncated operands: the reference is the product of the truncated operands.
		if dense, err = truncatedProduct(a, b, blocked.Rows()); err != nil {
			return err
		}
	}
	diff, err := dense.MaxAbsDiff(blocked)
	if err != nil {
		return err
	}
	if diff > cfg.Eps {
		return errors.Errorf("blocked product differs from the CPU product by %g > eps=%g", diff, cfg.Eps)
	}
	_, _ = fmt.Fprintf(w, "Check passed: max absolute difference %g <= %g\n", diff, cfg.Eps)
	return nil
}

func truncatedProduct(a, b *matrix.Matrix, n int) (*matrix.Matrix, error) {
	a, err := a.Crop(n, n)
	if err != nil {
		return nil, err
	}
	b, err = b.Crop(n, n)
	if err != nil {
		return nil, err
	}
	return matrix.MatMul(a, b)
}

// timeRepeated times fn repeat times (at least once), and returns the median time and the
// value of the last run. It stops at the first error.
func timeRepeated(label string, repeat int, fn func() (*matrix.Matrix, error)) (timing.Result, *matrix.Matrix, error) {
	results := make([]timing.Result, 0, max(repeat, 1))
	var value *matrix.Matrix
	for ii := range max(repeat, 1) {
		runLabel := label
		if repeat > 1 {
			runLabel = fmt.Sprintf("%s #%d", label, ii+1)
		}
		r, v, err := timing.Time(runLabel, fn)
		if err != nil {
			return r, nil, err
		}
		r.Label = label
		results = append(results, r)
		value = v
	}
	return timing.Median(results), value, nil
}
