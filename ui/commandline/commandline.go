// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline renders matrices, timings and the progress of block multiplications
// on the terminal.
package commandline

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/blockmatmul/pkg/blockmm"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/gomlx/blockmatmul/pkg/support/timing"
	"github.com/muesli/termenv"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)

	// TitleStyle is used for the titles printed before each table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

// MaxMatrixDim is the largest number of rows and columns of a matrix rendered by MatrixTable.
// Larger matrices are elided.
var MaxMatrixDim = 8

// SetPlain disables colors and text attributes if plain is true, for terminals that don't
// support them or when the output is redirected.
func SetPlain(plain bool) {
	if plain {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(termenv.EnvColorProfile())
	}
}

// NewTable returns a table with alternating row styles. Columns are aligned with the given
// alignments, and the last one is used for any further columns.
func NewTable(withHeader bool, alignments ...lipgloss.Position) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row < 0 {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// MatrixTable renders the values of m, eliding rows and columns beyond MaxMatrixDim.
func MatrixTable(m *matrix.Matrix) string {
	rows, cols := min(m.Rows(), MaxMatrixDim), min(m.Cols(), MaxMatrixDim)
	elideCols := cols < m.Cols()
	table := NewTable(false, lipgloss.Right)
	for r := range rows {
		row := make([]string, 0, cols+1)
		for c := range cols {
			row = append(row, formatValue(m.At(r, c)))
		}
		if elideCols {
			row = append(row, "…")
		}
		table.Row(row...)
	}
	if rows < m.Rows() {
		row := make([]string, cols, cols+1)
		for c := range row {
			row[c] = "⋮"
		}
		if elideCols {
			row = append(row, "⋱")
		}
		table.Row(row...)
	}
	return table.Render()
}

// TimingsTable renders the measurements, with the speedup of each one relative to the first.
func TimingsTable(results []timing.Result) string {
	table := NewTable(true, lipgloss.Left, lipgloss.Right)
	table.Headers("Operation", "Seconds", "Duration", "Speedup")
	for _, r := range results {
		speedup := "-"
		if r.Elapsed > 0 {
			speedup = fmt.Sprintf("%.2fx", results[0].Seconds()/r.Seconds())
		}
		table.Row(r.Label, fmt.Sprintf("%.2f", r.Seconds()), timing.FormatDuration(r.Elapsed), speedup)
	}
	return table.Render()
}

// SummaryTable renders the configuration and counters of a block multiplication of two n×n matrices.
func SummaryTable(m *blockmm.Multiplier, n int) string {
	stats := m.Stats()
	shape := matrix.MakeShape(n, n)
	table := NewTable(false, lipgloss.Right, lipgloss.Left)
	table.Row("backend", m.Backend().Name())
	table.Row("matrix", shape.String())
	table.Row("block size", humanize.Comma(int64(m.BlockSize())))
	table.Row("# output blocks", humanize.Comma(stats.Blocks))
	table.Row("# mul calls", humanize.Comma(stats.MulCalls))
	table.Row("# add calls", humanize.Comma(stats.AddCalls))
	table.Row("operand memory", humanize.Bytes(uint64(2*shape.Memory())))
	return table.Render()
}
