// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// Peak is one ranked spectral peak.
type Peak struct {
	Frequency   float64 `json:"frequency_hz"` // center frequency of the peak bin
	MagnitudeDB float64 `json:"magnitude_db"` // smoothed magnitude at that bin
}

// Snapshot is the result of one complete analysis pass. A published
// Snapshot is immutable: the producer builds a fresh one per pass and never
// writes to it again, so holding a Snapshot across passes is always safe.
type Snapshot struct {
	Generation     uint64    // increments on every publication
	Smoothed       []float64 // decibel magnitude per bin
	PeakHold       []float64 // peak-hold envelope per bin
	BinFrequencies []float64 // Hz per bin, aligned by index
	Peaks          []Peak    // up to MaxPeaks entries, descending by magnitude
}

// publish stores a fresh immutable snapshot of the current analysis state.
// Callers hold mu. The bin map is shared, not copied: it is rebuilt (never
// mutated) on reconfiguration.
func (a *Analyzer) publish() {
	a.generation++
	s := &Snapshot{
		Generation:     a.generation,
		Smoothed:       append(make([]float64, 0, len(a.smoothed)), a.smoothed...),
		PeakHold:       append(make([]float64, 0, len(a.peakHold)), a.peakHold...),
		BinFrequencies: a.binFreqs,
		Peaks:          append(make([]Peak, 0, len(a.peaks)), a.peaks...),
	}
	a.pub.Store(s)
}

// Latest returns the most recently published snapshot. The snapshot is
// immutable; callers must not modify its slices. This is the zero-copy
// read path for rendering and transport consumers.
func (a *Analyzer) Latest() *Snapshot {
	return a.pub.Load()
}

// Smoothed returns a copy of the current smoothed decibel spectrum.
func (a *Analyzer) Smoothed() []float64 {
	s := a.pub.Load()
	out := make([]float64, len(s.Smoothed))
	copy(out, s.Smoothed)
	return out
}

// SmoothedInto copies the current smoothed spectrum into dst, which must
// have exactly one element per bin. It does not allocate.
func (a *Analyzer) SmoothedInto(dst []float64) error {
	s := a.pub.Load()
	if len(dst) != len(s.Smoothed) {
		return fmt.Errorf("destination length %d does not match bin count %d", len(dst), len(s.Smoothed))
	}
	copy(dst, s.Smoothed)
	return nil
}

// PeakHoldEnvelope returns a copy of the current peak-hold envelope.
func (a *Analyzer) PeakHoldEnvelope() []float64 {
	s := a.pub.Load()
	out := make([]float64, len(s.PeakHold))
	copy(out, s.PeakHold)
	return out
}

// PeakHoldInto copies the peak-hold envelope into dst without allocating.
func (a *Analyzer) PeakHoldInto(dst []float64) error {
	s := a.pub.Load()
	if len(dst) != len(s.PeakHold) {
		return fmt.Errorf("destination length %d does not match bin count %d", len(dst), len(s.PeakHold))
	}
	copy(dst, s.PeakHold)
	return nil
}

// BinFrequencies returns a copy of the bin-to-frequency map, aligned by
// index with the spectrum.
func (a *Analyzer) BinFrequencies() []float64 {
	s := a.pub.Load()
	out := make([]float64, len(s.BinFrequencies))
	copy(out, s.BinFrequencies)
	return out
}

// Peaks returns a copy of the current ranked peak list.
func (a *Analyzer) Peaks() []Peak {
	s := a.pub.Load()
	out := make([]Peak, len(s.Peaks))
	copy(out, s.Peaks)
	return out
}

// FrequencyForBin returns the center frequency in Hz for the given bin
// index, or 0 for an out-of-range index. It does not allocate.
func (a *Analyzer) FrequencyForBin(binIndex int) float64 {
	s := a.pub.Load()
	if binIndex < 0 || binIndex >= len(s.BinFrequencies) {
		return 0
	}
	return s.BinFrequencies[binIndex]
}
