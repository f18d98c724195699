// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

// detectOn runs one peak detection pass over the given spectrum and
// returns the resulting peak list.
func detectOn(t *testing.T, a *Analyzer, smoothed []float64) []Peak {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()

	a.smoothed = smoothed
	a.detectPeaks()
	out := make([]Peak, len(a.peaks))
	copy(out, a.peaks)
	return out
}

// newPeakAnalyzer returns an 8-bin analyzer with exact 100 Hz bins.
func newPeakAnalyzer(t *testing.T, mutate func(*Settings)) *Analyzer {
	t.Helper()
	return newTestAnalyzer(t, func(s *Settings) {
		s.SampleRate = 1600
		s.FFTOrder = 4
		if mutate != nil {
			mutate(s)
		}
	})
}

func flatSpectrum(bins int, base float64) []float64 {
	s := make([]float64, bins)
	fill(s, base)
	return s
}

func TestDetectPeaksBasic(t *testing.T) {
	a := newPeakAnalyzer(t, nil)

	spectrum := flatSpectrum(8, -90)
	spectrum[3] = -10

	peaks := detectOn(t, a, spectrum)
	if len(peaks) != 1 {
		t.Fatalf("expected 1 peak, got %d", len(peaks))
	}
	if peaks[0].Frequency != 300 || peaks[0].MagnitudeDB != -10 {
		t.Errorf("expected peak (300 Hz, -10 dB), got (%v, %v)", peaks[0].Frequency, peaks[0].MagnitudeDB)
	}
}

func TestDetectPeaksNeighborStrictness(t *testing.T) {
	a := newPeakAnalyzer(t, nil)

	tests := []struct {
		name      string
		mutate    func([]float64)
		wantPeaks int
	}{
		{"isolated maximum", func(s []float64) { s[3] = -10 }, 1},
		{"plateau of two", func(s []float64) { s[3], s[4] = -10, -10 }, 0},
		{"equal second neighbor", func(s []float64) { s[3], s[5] = -10, -10 }, 0},
		{"rising toward the peak", func(s []float64) { s[1], s[2], s[3] = -30, -20, -10 }, 1},
		{"all flat", func(s []float64) {}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spectrum := flatSpectrum(8, -90)
			tt.mutate(spectrum)
			peaks := detectOn(t, a, spectrum)
			if len(peaks) != tt.wantPeaks {
				t.Errorf("expected %d peaks, got %d: %v", tt.wantPeaks, len(peaks), peaks)
			}
		})
	}
}

func TestDetectPeaksEdgeBinsExcluded(t *testing.T) {
	a := newPeakAnalyzer(t, nil)

	// Maxima at the first and last two bins have no full neighborhood and
	// can never qualify.
	for _, bin := range []int{0, 1, 6, 7} {
		spectrum := flatSpectrum(8, -90)
		spectrum[bin] = -5
		if peaks := detectOn(t, a, spectrum); len(peaks) != 0 {
			t.Errorf("bin %d: expected no peaks, got %v", bin, peaks)
		}
	}
}

func TestDetectPeaksMagnitudeFloor(t *testing.T) {
	a := newPeakAnalyzer(t, nil) // floor at -40 dB

	tests := []struct {
		name      string
		magnitude float64
		wantPeaks int
	}{
		{"well above floor", -10, 1},
		{"just above floor", -39.9, 1},
		{"exactly at floor", -40, 0},
		{"below floor", -45, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spectrum := flatSpectrum(8, -90)
			spectrum[3] = tt.magnitude
			peaks := detectOn(t, a, spectrum)
			if len(peaks) != tt.wantPeaks {
				t.Errorf("expected %d peaks, got %d", tt.wantPeaks, len(peaks))
			}
		})
	}
}

func TestDetectPeaksFrequencyRange(t *testing.T) {
	a := newPeakAnalyzer(t, func(s *Settings) {
		s.MinFrequency = 250
		s.MaxFrequency = 350
	})

	// Bins 3 (300 Hz, in range) and 5 (500 Hz, out of range) are both
	// local maxima.
	spectrum := flatSpectrum(8, -90)
	spectrum[3] = -10
	spectrum[5] = -5

	peaks := detectOn(t, a, spectrum)
	if len(peaks) != 1 {
		t.Fatalf("expected 1 peak, got %d: %v", len(peaks), peaks)
	}
	if peaks[0].Frequency != 300 {
		t.Errorf("expected the in-range 300 Hz peak, got %v Hz", peaks[0].Frequency)
	}
}

func TestDetectPeaksSeparation(t *testing.T) {
	spectrum := flatSpectrum(8, -90)
	spectrum[3] = -10 // 300 Hz
	spectrum[5] = -20 // 500 Hz

	// Default 100 Hz separation admits both.
	a := newPeakAnalyzer(t, nil)
	if peaks := detectOn(t, a, spectrum); len(peaks) != 2 {
		t.Errorf("expected 2 peaks with 100 Hz separation, got %v", peaks)
	}

	// A 250 Hz separation suppresses the later, weaker one. Acceptance is
	// in scan order, so the earlier bin wins regardless of magnitude.
	a = newPeakAnalyzer(t, func(s *Settings) { s.PeakSeparation = 250 })
	peaks := detectOn(t, a, spectrum)
	if len(peaks) != 1 {
		t.Fatalf("expected 1 peak with 250 Hz separation, got %v", peaks)
	}
	if peaks[0].Frequency != 300 {
		t.Errorf("expected the first-scanned 300 Hz peak, got %v Hz", peaks[0].Frequency)
	}
}

func TestDetectPeaksRankingAndTruncation(t *testing.T) {
	// 64 exact 100 Hz bins, 15 well-separated candidates.
	a := newTestAnalyzer(t, func(s *Settings) {
		s.SampleRate = 12800
		s.FFTOrder = 7
	})

	spectrum := flatSpectrum(64, -90)
	for k := 0; k < 15; k++ {
		spectrum[2+3*k] = -1 - float64(k)
	}

	peaks := detectOn(t, a, spectrum)
	if len(peaks) != DefaultMaxPeaks {
		t.Fatalf("expected the list truncated to %d peaks, got %d", DefaultMaxPeaks, len(peaks))
	}
	for i, p := range peaks {
		wantMag := -1 - float64(i)
		wantFreq := float64(200 + 300*i)
		if math.Abs(p.MagnitudeDB-wantMag) > floatTolerance || math.Abs(p.Frequency-wantFreq) > floatTolerance {
			t.Errorf("rank %d: expected (%v Hz, %v dB), got (%v, %v)", i, wantFreq, wantMag, p.Frequency, p.MagnitudeDB)
		}
	}
}

func TestDetectPeaksTieOrderIsDeterministic(t *testing.T) {
	a := newPeakAnalyzer(t, nil)

	spectrum := flatSpectrum(8, -90)
	spectrum[3] = -10
	spectrum[5] = -10

	// Equal magnitudes keep ascending bin order after the stable sort.
	for i := 0; i < 10; i++ {
		peaks := detectOn(t, a, spectrum)
		if len(peaks) != 2 {
			t.Fatalf("expected 2 peaks, got %v", peaks)
		}
		if peaks[0].Frequency != 300 || peaks[1].Frequency != 500 {
			t.Fatalf("tie order changed: got %v then %v Hz", peaks[0].Frequency, peaks[1].Frequency)
		}
	}
}

func TestDetectPeaksDegenerateSpectrum(t *testing.T) {
	a := newPeakAnalyzer(t, nil)

	// Fewer than 5 bins leaves no bin with a full neighborhood.
	if peaks := detectOn(t, a, []float64{-10, -5, -10, -20}); len(peaks) != 0 {
		t.Errorf("expected no peaks on a 4-bin spectrum, got %v", peaks)
	}
	if peaks := detectOn(t, a, nil); len(peaks) != 0 {
		t.Errorf("expected no peaks on an empty spectrum, got %v", peaks)
	}
}
