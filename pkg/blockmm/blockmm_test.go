// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package blockmm

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gomlx/blockmatmul/backends"
	"github.com/gomlx/blockmatmul/backends/blas"
	"github.com/gomlx/blockmatmul/backends/parallel"
	"github.com/gomlx/blockmatmul/backends/simplego"
	"github.com/gomlx/blockmatmul/pkg/core/blocks"
	"github.com/gomlx/blockmatmul/pkg/core/matrix"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

// testBackends returns one instance of each backend, with the tolerance accepted for its results.
func testBackends(t *testing.T) map[string]struct {
	backend backends.Backend
	delta   float64
} {
	t.Helper()
	goBackend, err := simplego.New("")
	require.NoError(t, err)
	parallelBackend, err := parallel.New("workers=3,min_dim=1")
	require.NoError(t, err)
	blasBackend, err := blas.New("")
	require.NoError(t, err)
	t.Cleanup(func() {
		goBackend.Finalize()
		parallelBackend.Finalize()
		blasBackend.Finalize()
	})
	return map[string]struct {
		backend backends.Backend
		delta   float64
	}{
		simplego.BackendName: {goBackend, 0},
		parallel.BackendName: {parallelBackend, 0},
		blas.BackendName:     {blasBackend, 1e-9},
	}
}

func mustFromRows(t *testing.T, rows [][]float64) *matrix.Matrix {
	t.Helper()
	m, err := matrix.FromRows(rows)
	require.NoError(t, err)
	return m
}

func TestConcreteScenario(t *testing.T) {
	a := mustFromRows(t, [][]float64{{1, 2}, {3, 4}})
	b := mustFromRows(t, [][]float64{{5, 6}, {7, 8}})
	want := [][]float64{{19, 22}, {43, 50}}

	dense, err := matrix.MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, want, dense.ToRows())

	for name, tb := range testBackends(t) {
		for _, blockSize := range []int{1, 2} {
			t.Run(fmt.Sprintf("%s/blockSize=%d", name, blockSize), func(t *testing.T) {
				kernels, err := BindKernels(tb.backend, blockSize)
				require.NoError(t, err)
				defer kernels.Finalize()
				aBlocks, err := blocks.Partition(a, blockSize, blocks.RemainderError)
				require.NoError(t, err)
				bBlocks, err := blocks.Partition(b, blockSize, blocks.RemainderError)
				require.NoError(t, err)
				productBlocks, err := MultiplyBlocked(kernels.Add, kernels.Mul, aBlocks, bBlocks, blockSize)
				require.NoError(t, err)
				got, err := blocks.Assemble(productBlocks)
				require.NoError(t, err)
				assert.Equal(t, want, got.ToRows())
			})
		}
	}
}

func TestBlockedEqualsDense(t *testing.T) {
	rng := matrix.NewRNG(17)
	for name, tb := range testBackends(t) {
		for _, n := range []int{4, 6, 12} {
			a := matrix.Random(rng, n, n, 10)
			b := matrix.Random(rng, n, n, 10)
			want, err := matrix.MatMul(a, b)
			require.NoError(t, err)
			for blockSize := 1; blockSize <= n; blockSize++ {
				if n%blockSize != 0 {
					continue
				}
				for _, parallelism := range []int{0, 3} {
					m := New(tb.backend, blockSize).Parallelism(parallelism)
					got, err := m.Multiply(a, b)
					require.NoErrorf(t, err, "backend=%s, n=%d, blockSize=%d, parallelism=%d", name, n, blockSize, parallelism)
					// Integer values: every summation order is exact.
					require.Truef(t, want.Equal(got), "backend=%s, n=%d, blockSize=%d, parallelism=%d: want %s, got %s",
						name, n, blockSize, parallelism, want, got)
				}
			}
		}
	}
}

func TestBlockedEqualsDenseFloats(t *testing.T) {
	n := 8
	a, b := matrix.New(n, n), matrix.New(n, n)
	for ii := range a.Data() {
		a.Data()[ii] = 1.0 / float64(ii+1)
		b.Data()[ii] = float64(ii%7) * 0.3
	}
	want, err := matrix.MatMul(a, b)
	require.NoError(t, err)
	for name, tb := range testBackends(t) {
		got, err := New(tb.backend, 4).Multiply(a, b)
		require.NoError(t, err)
		assert.Truef(t, want.AllClose(got, 1e-9), "backend %s: want %s, got %s", name, want, got)
	}
}

func TestIdentityAndZero(t *testing.T) {
	rng := matrix.NewRNG(5)
	n := 6
	a := matrix.Random(rng, n, n, 100)
	for name, tb := range testBackends(t) {
		m := New(tb.backend, 3)
		got, err := m.Multiply(a, matrix.Identity(n))
		require.NoError(t, err)
		assert.Truef(t, got.AllClose(a, tb.delta), "backend %s: A×I != A", name)
		got, err = m.Multiply(matrix.Identity(n), a)
		require.NoError(t, err)
		assert.Truef(t, got.AllClose(a, tb.delta), "backend %s: I×A != A", name)

		got, err = m.Multiply(a, matrix.Zeros(n))
		require.NoError(t, err)
		assert.Equal(t, matrix.MakeShape(n, n), got.Shape())
		assert.Truef(t, got.IsZero(), "backend %s: A×0 != 0", name)
	}
}

func TestRemainder(t *testing.T) {
	rng := matrix.NewRNG(9)
	a := matrix.Random(rng, 5, 5, 10)
	b := matrix.Random(rng, 5, 5, 10)
	backend, err := simplego.New("")
	require.NoError(t, err)
	defer backend.Finalize()

	_, err = New(backend, 2).Multiply(a, b)
	require.ErrorIs(t, err, matrix.ErrShapeMismatch)

	want, err := matrix.MatMul(a, b)
	require.NoError(t, err)
	got, err := New(backend, 2).Remainder(blocks.RemainderPad).Multiply(a, b)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = New(backend, 2).Remainder(blocks.RemainderTruncate).Multiply(a, b)
	require.NoError(t, err)
	aCropped, _ := a.Crop(4, 4)
	bCropped, _ := b.Crop(4, 4)
	want, err = matrix.MatMul(aCropped, bCropped)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestMultiplyShapeMismatch(t *testing.T) {
	backend, err := simplego.New("")
	require.NoError(t, err)
	defer backend.Finalize()
	m := New(backend, 2)

	_, err = m.Multiply(matrix.New(2, 4), matrix.New(4, 2))
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
	_, err = m.Multiply(matrix.Zeros(2), matrix.Zeros(4))
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
	_, err = New(backend, 0).Multiply(matrix.Zeros(2), matrix.Zeros(2))
	assert.ErrorIs(t, err, matrix.ErrBadShape)
}

func TestMultiplyBlockedShapeMismatch(t *testing.T) {
	backend, err := simplego.New("")
	require.NoError(t, err)
	defer backend.Finalize()
	kernels, err := BindKernels(backend, 2)
	require.NoError(t, err)
	defer kernels.Finalize()

	a2 := blocks.NewGrid(2, 3, 2)
	b2 := blocks.NewGrid(2, 2, 2)
	_, err = MultiplyBlocked(kernels.Add, kernels.Mul, a2, b2, 2)
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)

	// Rectangular grids are fine as long as they are block-compatible.
	product, err := MultiplyBlocked(kernels.Add, kernels.Mul, a2, blocks.NewGrid(3, 1, 2), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, product.NumBlockRows())
	assert.Equal(t, 1, product.NumBlockCols())

	// Blocks of the wrong size.
	a3 := blocks.NewGrid(1, 1, 3)
	_, err = MultiplyBlocked(kernels.Add, kernels.Mul, a3, a3, 3)
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
	_, err = MultiplyBlocked(kernels.Add, kernels.Mul, a3, a3, 2)
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)

	// Swapped kernels.
	_, err = MultiplyBlocked(kernels.Mul, kernels.Add, b2, b2, 2)
	assert.Error(t, err)
	_, err = MultiplyBlocked(nil, kernels.Mul, b2, b2, 2)
	assert.Error(t, err)
}

// failingBackend wraps another backend, and its Mul kernels fail after failAfter calls.
type failingBackend struct {
	backends.Backend
	failAfter int
	mu        sync.Mutex
	calls     int
}

var errDeviceLost = errors.Wrap(backends.ErrAccelerator, "device lost")

type failingKernel struct {
	backends.Kernel
	backend *failingBackend
}

func (k *failingKernel) Call(lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
	k.backend.mu.Lock()
	k.backend.calls++
	fail := k.backend.calls > k.backend.failAfter
	k.backend.mu.Unlock()
	if fail {
		return nil, errDeviceLost
	}
	return k.Kernel.Call(lhs, rhs)
}

func (b *failingBackend) MulKernel(dim, contraction int) (backends.Kernel, error) {
	k, err := b.Backend.MulKernel(dim, contraction)
	if err != nil {
		return nil, err
	}
	return &failingKernel{Kernel: k, backend: b}, nil
}

func TestKernelFailure(t *testing.T) {
	for _, parallelism := range []int{0, 2} {
		goBackend, err := simplego.New("")
		require.NoError(t, err)
		backend := &failingBackend{Backend: goBackend, failAfter: 5}
		m := New(backend, 1).Parallelism(parallelism)
		product, err := m.Multiply(matrix.Identity(3), matrix.Identity(3))
		require.ErrorIs(t, err, errDeviceLost)
		require.ErrorIs(t, err, backends.ErrAccelerator)
		assert.Nil(t, product)

		// Kernels were released on the error path.
		assert.Equal(t, 0, goBackend.(*simplego.Backend).NumLiveKernels())
		goBackend.Finalize()
	}
}

func TestKernelsReleased(t *testing.T) {
	goBackend, err := simplego.New("")
	require.NoError(t, err)
	defer goBackend.Finalize()
	_, err = New(goBackend, 2).Multiply(matrix.Identity(4), matrix.Identity(4))
	require.NoError(t, err)
	assert.Equal(t, 0, goBackend.(*simplego.Backend).NumLiveKernels())

	// A finalized backend can't bind kernels.
	goBackend.Finalize()
	_, err = New(goBackend, 2).Multiply(matrix.Identity(4), matrix.Identity(4))
	assert.ErrorIs(t, err, backends.ErrFinalized)
}

func TestStatsAndProgress(t *testing.T) {
	backend, err := parallel.New("")
	require.NoError(t, err)
	defer backend.Finalize()

	var (
		mu       sync.Mutex
		lastDone int
		calls    int
	)
	m := New(backend, 2).Parallelism(2).OnProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		lastDone = max(lastDone, done)
		assert.Equal(t, 9, total)
	})
	_, err = m.Multiply(matrix.Identity(6), matrix.Identity(6))
	require.NoError(t, err)
	assert.Equal(t, 9, calls)
	assert.Equal(t, 9, lastDone)
	// 3×3 output blocks, 3 contraction steps each.
	assert.Equal(t, Stats{AddCalls: 27, MulCalls: 27, Blocks: 9}, m.Stats())
	assert.Equal(t, "9 blocks, 27 mul calls, 27 add calls", m.Stats().String())
	assert.Equal(t, 2, m.BlockSize())
	assert.Equal(t, backend, m.Backend())

	m.ResetStats()
	assert.Equal(t, Stats{}, m.Stats())
}

// recordingKernel logs the left operand's first value of each call.
type recordingKernel struct {
	backends.Kernel
	mu  sync.Mutex
	log []float64
}

func (k *recordingKernel) Call(lhs, rhs *matrix.Matrix) (*matrix.Matrix, error) {
	k.mu.Lock()
	k.log = append(k.log, lhs.At(0, 0))
	k.mu.Unlock()
	return k.Kernel.Call(lhs, rhs)
}

func TestContractionOrder(t *testing.T) {
	backend, err := simplego.New("")
	require.NoError(t, err)
	defer backend.Finalize()
	kernels, err := BindKernels(backend, 1)
	require.NoError(t, err)
	defer kernels.Finalize()

	// Block a(i, k) holds k, so the log of the mul calls shows the contraction order.
	n := 3
	a := matrix.New(n, n)
	for i := range n {
		for k := range n {
			a.Set(i, k, float64(k))
		}
	}
	aBlocks, err := blocks.Partition(a, 1, blocks.RemainderError)
	require.NoError(t, err)
	bBlocks, err := blocks.Partition(matrix.Identity(n), 1, blocks.RemainderError)
	require.NoError(t, err)

	mul := &recordingKernel{Kernel: kernels.Mul}
	_, err = MultiplyBlocked(kernels.Add, mul, aBlocks, bBlocks, 1)
	require.NoError(t, err)
	require.Len(t, mul.log, n*n*n)
	for call, value := range mul.log {
		assert.Equal(t, float64(call%n), value)
	}
}
