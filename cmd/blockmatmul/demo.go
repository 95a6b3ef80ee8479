// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/gomlx/blockmatmul/pkg/blockmm"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/gomlx/blockmatmul/pkg/support/timing"
	"github.com/gomlx/blockmatmul/ui/commandline"
	"github.com/pkg/errors"
)

const demoBlockSize = 2

var (
	demoA = [][]float64{
		{1, 2, 2, 2},
		{3, 1, 2, 2},
		{3, 3, 1, 2},
		{3, 3, 3, 1},
	}
	demoB = [][]float64{
		{1, 2, 3, 4},
		{4, 2, 2, 1},
		{1, 1, 1, 1},
		{2, 1, 2, 1},
	}
)

// runDemo multiplies the two fixed demo matrices both ways, and prints the operands, the products
// and the timings.
func runDemo(w io.Writer, m *blockmm.Multiplier) error {
	a, err := matrix.FromRows(demoA)
	if err != nil {
		return err
	}
	b, err := matrix.FromRows(demoB)
	if err != nil {
		return err
	}
	printMatrix(w, "A", a)
	printMatrix(w, "B", b)

	cpuResult, dense, err := timing.Time("CPU", func() (*matrix.Matrix, error) {
		return matrix.MatMul(a, b)
	})
	if err != nil {
		return err
	}
	printMatrix(w, "A×B (CPU)", dense)

	label := fmt.Sprintf("Blocked (%s, block %d)", m.Backend().Name(), m.BlockSize())
	blockedResult, blocked, err := timing.Time(label, func() (*matrix.Matrix, error) {
		return m.Multiply(a, b)
	})
	if err != nil {
		return err
	}
	printMatrix(w, "A×B ("+label+")", blocked)

	_, _ = fmt.Fprintln(w, commandline.TitleStyle.Render("Timings"))
	_, _ = fmt.Fprintln(w, commandline.TimingsTable([]timing.Result{cpuResult, blockedResult}))

	if diff, err := dense.MaxAbsDiff(blocked); err != nil {
		return err
	} else if diff > 1e-9 {
		return errors.Errorf("blocked product differs from the CPU product by %g", diff)
	}
	return nil
}

func printMatrix(w io.Writer, title string, m *matrix.Matrix) {
	_, _ = fmt.Fprintln(w, commandline.TitleStyle.Render(title))
	_, _ = fmt.Fprintln(w, commandline.MatrixTable(m))
}
