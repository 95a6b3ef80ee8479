// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package timing measures the wall-clock time of operations and reports it.
//
// The measured operation always runs exactly once, and its value and error are returned
// unchanged: measuring is transparent to the caller.
package timing

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"k8s.io/klog/v2"
)

// Result of one measurement.
type Result struct {
	Label   string
	Elapsed time.Duration
}

// Seconds returns the elapsed time in seconds.
func (r Result) Seconds() float64 { return r.Elapsed.Seconds() }

// String implements fmt.Stringer, in the same format used by the default Report.
func (r Result) String() string {
	return fmt.Sprintf("%s: %.2f s", r.Label, r.Seconds())
}

// Report is called with the result of every measurement.
//
// It defaults to logging the label and the elapsed seconds with klog.Infof. It can be
// reassigned, for instance by tests or to collect results into a table.
var Report = func(r Result) {
	klog.Infof("%s: %.2f s", r.Label, r.Seconds())
}

// now is replaced in tests.
var now = time.Now

// Time runs fn once and returns the measurement along with fn's value and error.
// The result is reported even if fn fails.
func Time[T any](label string, fn func() (T, error)) (Result, T, error) {
	start := now()
	value, err := fn()
	r := Result{Label: label, Elapsed: now().Sub(start)}
	Report(r)
	return r, value, err
}

// Measure runs fn once, reports the elapsed time under label, and returns fn's value and error
// unchanged.
func Measure[T any](label string, fn func() (T, error)) (T, error) {
	_, value, err := Time(label, fn)
	return value, err
}

// MeasureValue is like Measure for operations that can't fail.
func MeasureValue[T any](label string, fn func() T) T {
	_, value, _ := Time(label, func() (T, error) { return fn(), nil })
	return value
}

// Median returns a Result with the label of the first result and the median elapsed time.
// For an even number of results, it is the mean of the two middle ones. It returns the zero
// Result if results is empty.
func Median(results []Result) Result {
	if len(results) == 0 {
		return Result{}
	}
	elapsed := make([]time.Duration, len(results))
	for ii, r := range results {
		elapsed[ii] = r.Elapsed
	}
	slices.Sort(elapsed)
	mid := len(elapsed) / 2
	median := elapsed[mid]
	if len(elapsed)%2 == 0 {
		median = (elapsed[mid-1] + elapsed[mid]) / 2
	}
	return Result{Label: results[0].Label, Elapsed: median}
}

var durationRe = regexp.MustCompile(`(\d+\.?\d*)([µa-z]+)`)

// FormatDuration pretty prints duration without a long list of decimal points.
func FormatDuration(d time.Duration) string {
	s := d.String()
	matches := durationRe.FindStringSubmatch(s)
	if len(matches) != 3 {
		return s
	}
	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f%s", num, matches[2])
}
