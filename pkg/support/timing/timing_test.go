// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package timing

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

// captureReports replaces Report and the clock for the duration of the test.
// Each call to the clock advances it by step.
func captureReports(t *testing.T, step time.Duration) *[]Result {
	var reports []Result
	oldReport, oldNow := Report, now
	Report = func(r Result) { reports = append(reports, r) }
	clock := time.Unix(0, 0)
	now = func() time.Time {
		clock = clock.Add(step)
		return clock
	}
	t.Cleanup(func() {
		Report, now = oldReport, oldNow
	})
	return &reports
}

func TestMeasure(t *testing.T) {
	reports := captureReports(t, 1500*time.Millisecond)
	calls := 0
	value, err := Measure("answer", func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, calls)
	require.Len(t, *reports, 1)
	assert.Equal(t, Result{Label: "answer", Elapsed: 1500 * time.Millisecond}, (*reports)[0])
	assert.Equal(t, "answer: 1.50 s", (*reports)[0].String())
}

func TestMeasureError(t *testing.T) {
	reports := captureReports(t, time.Second)
	errFailed := errors.New("failed")
	calls := 0
	value, err := Measure("failing", func() (string, error) {
		calls++
		return "partial", errFailed
	})
	// Value and error are passed through unchanged, and there is no retry.
	assert.Same(t, errFailed, err)
	assert.Equal(t, "partial", value)
	assert.Equal(t, 1, calls)
	assert.Len(t, *reports, 1)
}

func TestMeasureValueAndTime(t *testing.T) {
	reports := captureReports(t, 250*time.Millisecond)
	s := []int{1, 2, 3}
	got := MeasureValue("slice", func() []int { return s })
	assert.Equal(t, &s[0], &got[0])

	r, v, err := Time("time", func() (float64, error) { return 0.5, nil })
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
	assert.Equal(t, "time", r.Label)
	assert.InDelta(t, 0.25, r.Seconds(), 1e-12)
	assert.Len(t, *reports, 2)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, Result{}, Median(nil))
	results := []Result{
		{Label: "x", Elapsed: 3 * time.Second},
		{Label: "y", Elapsed: time.Second},
		{Label: "z", Elapsed: 2 * time.Second},
	}
	assert.Equal(t, Result{Label: "x", Elapsed: 2 * time.Second}, Median(results))
	results = append(results, Result{Elapsed: 10 * time.Second})
	assert.Equal(t, Result{Label: "x", Elapsed: 2500 * time.Millisecond}, Median(results))
	// Input is not reordered.
	assert.Equal(t, "x", results[0].Label)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.23s", FormatDuration(1234567*time.Microsecond))
	assert.Equal(t, "12.35ms", FormatDuration(12345678*time.Nanosecond))
	assert.Equal(t, "500.00ns", FormatDuration(500*time.Nanosecond))
	assert.Equal(t, "0.00s", FormatDuration(0))
}
