package analysis

import (
	"math"
	"testing"
)

func bandSnapshot(smoothed []float64, binWidthHz float64) *Snapshot {
	freqs := make([]float64, len(smoothed))
	for i := range freqs {
		freqs[i] = float64(i) * binWidthHz
	}
	return &Snapshot{Smoothed: smoothed, BinFrequencies: freqs}
}

func TestDefaultBands(t *testing.T) {
	bands := DefaultBands(22050)
	if len(bands) != 6 {
		t.Fatalf("expected 6 bands, got %d", len(bands))
	}
	if bands[0].Name != "sub" || bands[0].LowHz != 20 {
		t.Errorf("unexpected first band: %+v", bands[0])
	}
	if bands[5].Name != "treble" || bands[5].HighHz != 22050 {
		t.Errorf("expected treble capped at Nyquist, got %+v", bands[5])
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].LowHz != bands[i-1].HighHz {
			t.Errorf("gap between %q and %q", bands[i-1].Name, bands[i].Name)
		}
	}
}

func TestBandMeterMeasure(t *testing.T) {
	// 100 Hz bins; bins 1 and 2 (100 and 200 Hz) fall in the bass band.
	smoothed := make([]float64, 64)
	fill(smoothed, -200)
	smoothed[1] = 0
	smoothed[2] = 0

	meter := NewBandMeter(DefaultBands(6400))
	levels := meter.Measure(bandSnapshot(smoothed, 100))

	if len(levels) != 6 {
		t.Fatalf("expected 6 levels, got %d", len(levels))
	}
	byName := map[string]float64{}
	for _, l := range levels {
		if l.Level < 0 || l.Level > 1 {
			t.Errorf("band %q level %v outside [0, 1]", l.Name, l.Level)
		}
		byName[l.Name] = l.Level
	}

	// 0 dB bins saturate the compressed level.
	if byName["bass"] != 1 {
		t.Errorf("expected bass saturated at 1, got %v", byName["bass"])
	}
	// Silent bands compress to effectively zero.
	if byName["mid"] > 1e-6 {
		t.Errorf("expected silent mid band near 0, got %v", byName["mid"])
	}
	// The sub band (20-60 Hz) covers no 100 Hz bin at all.
	if byName["sub"] != 0 {
		t.Errorf("expected empty sub band to report 0, got %v", byName["sub"])
	}
}

func TestBandMeterPartialLevel(t *testing.T) {
	// Two -40 dB bins in the bass band: amplitude 0.01, level 0.5.
	smoothed := make([]float64, 64)
	fill(smoothed, -200)
	smoothed[1] = -40
	smoothed[2] = -40

	meter := NewBandMeter(DefaultBands(6400))
	levels := meter.Measure(bandSnapshot(smoothed, 100))

	var bass float64
	for _, l := range levels {
		if l.Name == "bass" {
			bass = l.Level
		}
	}
	if math.Abs(bass-0.5) > 1e-9 {
		t.Errorf("expected bass level 0.5, got %v", bass)
	}
}

func TestBandMeterReusesLevels(t *testing.T) {
	meter := NewBandMeter(DefaultBands(6400))
	s := bandSnapshot(flatSpectrum(64, -200), 100)

	first := meter.Measure(s)
	second := meter.Measure(s)
	if &first[0] != &second[0] {
		t.Error("expected Measure to reuse its level slice")
	}

	allocs := testing.AllocsPerRun(100, func() {
		meter.Measure(s)
	})
	if allocs != 0 {
		t.Errorf("expected 0 allocations per measurement, got %v", allocs)
	}
}
