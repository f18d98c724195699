// SPDX-License-Identifier: MIT
// Package testsignal generates deterministic audio test signals for the
// analysis test suites.
package testsignal

import "math"

// Sine returns n samples of a sine wave at the given frequency and
// amplitude.
func Sine(n int, sampleRate, frequency, amplitude float64) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		t := float64(i) / sampleRate
		buf[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buf
}

// Harmonics returns n samples of a 440 Hz fundamental with two harmonics,
// a signal with several well-separated spectral peaks.
func Harmonics(n int, sampleRate float64) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		t := float64(i) / sampleRate
		buf[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return buf
}

// FindPeakBin returns the index of the largest value in values within
// [startBin, endBin], clamped to the valid range.
func FindPeakBin(values []float64, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}
	return peakBin
}
