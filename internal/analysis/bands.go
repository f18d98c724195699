package analysis

import "math"

// FrequencyBand names one frequency range for summary metering.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// BandLevel is the normalized [0, 1] level of one band.
type BandLevel struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// BandMeter reduces a spectrum snapshot to a handful of named band levels,
// a compact summary for bar-style visualizers.
type BandMeter struct {
	bands  []FrequencyBand
	levels []BandLevel
}

// DefaultBands returns the standard six-band split, with the treble band
// capped at the given Nyquist frequency.
func DefaultBands(nyquistHz float64) []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: nyquistHz},
	}
}

// NewBandMeter creates a meter over the given bands.
func NewBandMeter(bands []FrequencyBand) *BandMeter {
	return &BandMeter{
		bands:  bands,
		levels: make([]BandLevel, len(bands)),
	}
}

// Measure computes per-band levels from a snapshot. Bin magnitudes are
// mapped from decibels back to linear amplitude, averaged as energy within
// each band, then compressed to [0, 1]. The returned slice is reused
// between calls.
func (m *BandMeter) Measure(s *Snapshot) []BandLevel {
	for i, band := range m.bands {
		var energy float64
		var count int
		for bin, freq := range s.BinFrequencies {
			if freq < band.LowHz || freq >= band.HighHz {
				continue
			}
			amp := math.Pow(10, s.Smoothed[bin]/20)
			energy += amp * amp
			count++
		}

		level := 0.0
		if count > 0 {
			level = math.Sqrt(energy/float64(count)) * 50.0
		}
		m.levels[i] = BandLevel{Name: band.Name, Level: math.Min(1.0, level)}
	}
	return m.levels
}
