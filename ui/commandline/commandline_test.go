// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/gomlx/blockmatmul/backends/simplego"
	"github.com/gomlx/blockmatmul/pkg/blockmm"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/gomlx/blockmatmul/pkg/support/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetPlain(true)
}

func TestMatrixTable(t *testing.T) {
	m, err := matrix.FromRows([][]float64{{19, 22}, {43, 50.5}})
	require.NoError(t, err)
	out := MatrixTable(m)
	for _, want := range []string{"19", "22", "43", "50.5"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "…")

	big := matrix.Identity(MaxMatrixDim + 2)
	out = MatrixTable(big)
	assert.Contains(t, out, "…")
	assert.Contains(t, out, "⋮")
	assert.Contains(t, out, "⋱")
}

func TestTimingsTable(t *testing.T) {
	out := TimingsTable([]timing.Result{
		{Label: "cpu", Elapsed: 2 * time.Second},
		{Label: "blocked", Elapsed: 500 * time.Millisecond},
	})
	assert.Contains(t, out, "cpu")
	assert.Contains(t, out, "blocked")
	assert.Contains(t, out, "2.00")
	assert.Contains(t, out, "500.00ms")
	assert.Contains(t, out, "4.00x")
}

func TestSummaryTable(t *testing.T) {
	backend, err := simplego.New("")
	require.NoError(t, err)
	defer backend.Finalize()
	m := blockmm.New(backend, 2)
	_, err = m.Multiply(matrix.Identity(4), matrix.Identity(4))
	require.NoError(t, err)
	out := SummaryTable(m, 4)
	assert.Contains(t, out, simplego.BackendName)
	assert.Contains(t, out, "# mul calls")
	// 2x2 output blocks, 2 steps each.
	assert.Contains(t, out, "8")
	assert.Contains(t, out, "256 B")
}

func TestBlockProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewBlockProgress(&buf, "blocks", 16)
	var wg sync.WaitGroup
	for done := 1; done <= 16; done++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Update(done, 16)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, p.Done())
	p.Update(3, 16)
	assert.Equal(t, 16, p.Done())
	p.Finish()
	assert.Contains(t, buf.String(), "blocks")
}
