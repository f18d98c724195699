// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sort"
)

// detectPeaks rebuilds the peak list from the smoothed spectrum. A bin is a
// candidate when it strictly exceeds its four nearest neighbors (two on each
// side), clears the magnitude floor and maps into the configured frequency
// range. Candidates are then filtered by minimum frequency separation in
// scan order, stable-sorted descending by magnitude (ties keep ascending
// bin order) and truncated to maxPeaks. Spectra with fewer than 5 bins
// yield an empty list. Callers hold mu.
func (a *Analyzer) detectPeaks() {
	a.peaks = a.peaks[:0]

	bins := len(a.smoothed)
	for i := 2; i <= bins-3; i++ {
		v := a.smoothed[i]
		if v <= a.smoothed[i-1] || v <= a.smoothed[i+1] ||
			v <= a.smoothed[i-2] || v <= a.smoothed[i+2] {
			continue
		}
		if v <= a.peakFloor {
			continue
		}
		freq := a.binFreqs[i]
		if freq < a.minFreq || freq > a.maxFreq {
			continue
		}

		tooClose := false
		for _, p := range a.peaks {
			if math.Abs(freq-p.Frequency) < a.peakSep {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		if len(a.peaks) == cap(a.peaks) {
			break // separation bound reached, cannot accept more
		}
		a.peaks = append(a.peaks, Peak{Frequency: freq, MagnitudeDB: v})
	}

	sort.SliceStable(a.peaks, func(i, j int) bool {
		return a.peaks[i].MagnitudeDB > a.peaks[j].MagnitudeDB
	})
	if len(a.peaks) > a.maxPeaks {
		a.peaks = a.peaks[:a.maxPeaks]
	}
}
