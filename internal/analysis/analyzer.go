// SPDX-License-Identifier: MIT
/*
Package analysis implements a real-time spectral analysis engine:
- Circular ingestion buffer with 75% overlapped analysis passes
- Windowed magnitude-only forward FFT (gonum dsp/fourier)
- Per-bin decibel conversion, exponential smoothing and peak-hold tracking
- Ranked spectral peak detection with frequency-separation constraints

Thread Safety:
- A single mutex serializes all mutators (Ingest, Configure, setters, Reset)
- Results are published as immutable snapshots through an atomic pointer,
  so readers are lock-free and always see one complete analysis pass
- All buffers are pre-allocated; the ingestion and transform paths do not
  allocate after sizing
*/
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"

	"spectrum/pkg/bitint"
)

// Engine defaults and limits.
const (
	DefaultSampleRate = 44100.0
	DefaultFFTOrder   = 11 // 2^11 = 2048 samples
	MinFFTOrder       = 4
	MaxFFTOrder       = 16

	DefaultSmoothing = 0.8
	MaxSmoothing     = 0.99

	DefaultMinFrequency   = 20.0
	DefaultMaxFrequency   = 20000.0
	DefaultPeakFloorDB    = -40.0
	DefaultPeakSeparation = 100.0 // Hz
	DefaultMaxPeaks       = 10

	// FloorDB is the value per-bin state is reset to. Silent bins settle
	// near 20*log10(epsilonMag) = -200 dB, well below this floor.
	FloorDB = -100.0

	epsilonMag    = 1e-10 // added before log10 to avoid -Inf on silent bins
	peakHoldDecay = 0.999 // per-pass multiplicative decay of the hold envelope
)

// Settings holds the full configuration of an Analyzer. Zero values are not
// usable; start from DefaultSettings.
type Settings struct {
	SampleRate     float64    // Sample rate in Hz, must be positive
	FFTOrder       int        // Transform size exponent, size = 1 << FFTOrder
	Window         WindowFunc // Analysis window function (Hann by default)
	Smoothing      float64    // Exponential smoothing coefficient [0, 0.99]
	PeakHold       bool       // Track a slowly decaying peak-hold envelope
	MinFrequency   float64    // Lower edge of the peak detection range (Hz)
	MaxFrequency   float64    // Upper edge of the peak detection range (Hz)
	PeakFloorDB    float64    // Minimum magnitude for a bin to qualify as a peak
	PeakSeparation float64    // Minimum distance between accepted peaks (Hz)
	MaxPeaks       int        // Upper bound on the returned peak list
}

// DefaultSettings returns the canonical analyzer configuration:
// 2048-point Hann-windowed transform at 44.1 kHz.
func DefaultSettings() Settings {
	return Settings{
		SampleRate:     DefaultSampleRate,
		FFTOrder:       DefaultFFTOrder,
		Window:         Hann,
		Smoothing:      DefaultSmoothing,
		PeakHold:       true,
		MinFrequency:   DefaultMinFrequency,
		MaxFrequency:   DefaultMaxFrequency,
		PeakFloorDB:    DefaultPeakFloorDB,
		PeakSeparation: DefaultPeakSeparation,
		MaxPeaks:       DefaultMaxPeaks,
	}
}

// Analyzer turns a stream of audio samples into a smoothed decibel spectrum
// and a ranked peak list. The producer feeds Ingest; consumers poll the
// snapshot getters at their own cadence.
type Analyzer struct {
	mu sync.Mutex // serializes Ingest, Configure, Reset and setters

	sampleRate float64
	fftOrder   int
	fftSize    int
	bins       int // fftSize / 2

	windowType WindowFunc
	window     []float64

	fft       *fourier.FFT
	scratch   []float64    // windowed ring snapshot, transform input
	coeffs    []complex128 // fftSize/2 + 1 complex coefficients
	magnitude []float64    // linear magnitude per bin, overwritten each pass

	ring      []float64 // most recent fftSize samples
	ringPos   int       // write cursor
	sinceLast int       // samples since the previous analysis pass

	smoothing  float64
	peakHoldOn bool
	minFreq    float64
	maxFreq    float64
	peakFloor  float64
	peakSep    float64
	maxPeaks   int

	smoothed []float64 // producer-owned working arrays; consumers read
	peakHold []float64 // the published snapshot instead
	binFreqs []float64
	peaks    []Peak

	generation uint64
	pub        atomic.Pointer[Snapshot]
}

// New creates an Analyzer from the given settings. Invalid settings are
// rejected before any state exists, so a constructed Analyzer is always
// ready to ingest.
func New(s Settings) (*Analyzer, error) {
	if err := validateSettings(s); err != nil {
		return nil, err
	}

	a := &Analyzer{
		windowType: s.Window,
		smoothing:  s.Smoothing,
		peakHoldOn: s.PeakHold,
		minFreq:    s.MinFrequency,
		maxFreq:    s.MaxFrequency,
		peakFloor:  s.PeakFloorDB,
		peakSep:    s.PeakSeparation,
		maxPeaks:   s.MaxPeaks,
	}
	a.reconfigure(s.SampleRate, s.FFTOrder)
	return a, nil
}

func validateSettings(s Settings) error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %f", s.SampleRate)
	}
	if s.FFTOrder < MinFFTOrder || s.FFTOrder > MaxFFTOrder {
		return fmt.Errorf("fft order must be in [%d, %d], got %d", MinFFTOrder, MaxFFTOrder, s.FFTOrder)
	}
	if !bitint.IsPowerOfTwo(1 << s.FFTOrder) {
		return fmt.Errorf("fft size %d is not a power of 2", 1<<s.FFTOrder)
	}
	if s.Smoothing < 0 || s.Smoothing > MaxSmoothing {
		return fmt.Errorf("smoothing must be in [0, %.2f], got %f", MaxSmoothing, s.Smoothing)
	}
	if s.MinFrequency < 0 || s.MinFrequency >= s.MaxFrequency {
		return fmt.Errorf("invalid frequency range [%f, %f]", s.MinFrequency, s.MaxFrequency)
	}
	if s.PeakSeparation <= 0 {
		return fmt.Errorf("peak separation must be positive, got %f", s.PeakSeparation)
	}
	if s.MaxPeaks <= 0 {
		return fmt.Errorf("max peaks must be positive, got %d", s.MaxPeaks)
	}
	return nil
}

// Configure changes the sample rate and transform size. Invalid arguments
// are rejected and the previous configuration stays in effect. On success
// the window table, ring and every per-bin array are rebuilt, the
// bin-to-frequency map is recomputed and all analysis state is floored.
func (a *Analyzer) Configure(sampleRate float64, fftOrder int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if fftOrder < MinFFTOrder || fftOrder > MaxFFTOrder {
		return fmt.Errorf("fft order must be in [%d, %d], got %d", MinFFTOrder, MaxFFTOrder, fftOrder)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.reconfigure(sampleRate, fftOrder)
	return nil
}

// reconfigure rebuilds all size- and rate-dependent state. Callers hold mu
// (or own the sole reference during construction).
func (a *Analyzer) reconfigure(sampleRate float64, fftOrder int) {
	a.sampleRate = sampleRate
	a.fftOrder = fftOrder
	a.fftSize = 1 << fftOrder
	a.bins = a.fftSize / 2

	a.window = make([]float64, a.fftSize)
	buildWindow(a.window, a.windowType)

	a.fft = fourier.NewFFT(a.fftSize)
	a.scratch = make([]float64, a.fftSize)
	a.coeffs = make([]complex128, a.bins+1)
	a.magnitude = make([]float64, a.bins)

	a.ring = make([]float64, a.fftSize)
	a.smoothed = make([]float64, a.bins)
	a.peakHold = make([]float64, a.bins)
	fill(a.smoothed, FloorDB)
	fill(a.peakHold, FloorDB)

	// The bin map is never mutated after this point; snapshots taken under
	// the old configuration keep their own map.
	binFreqs := make([]float64, a.bins)
	for i := range binFreqs {
		binFreqs[i] = float64(i) * sampleRate / float64(a.fftSize)
	}
	a.binFreqs = binFreqs

	a.peaks = make([]Peak, 0, a.peakCapacity())
	a.ringPos = 0
	a.sinceLast = 0
	a.publish()
}

// peakCapacity bounds the number of separation-constrained peaks the
// detector can accept, so the scan never allocates.
func (a *Analyzer) peakCapacity() int {
	cap := int((a.maxFreq-a.minFreq)/a.peakSep) + 2
	if cap > a.bins {
		cap = a.bins
	}
	if cap < a.maxPeaks {
		cap = a.maxPeaks
	}
	return cap
}

// Ingest feeds one block of single-channel samples. Every fftSize/4 new
// samples (75% overlap) a full analysis pass runs synchronously on the
// calling goroutine; a block longer than the transform size triggers
// multiple passes within the one call. The ring-write path does not
// allocate.
func (a *Analyzer) Ingest(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	mask := a.fftSize - 1
	trigger := a.fftSize / 4
	for _, s := range samples {
		a.ring[a.ringPos] = s
		a.ringPos = (a.ringPos + 1) & mask
		a.sinceLast++
		if a.sinceLast >= trigger {
			a.sinceLast = 0
			a.analyze()
		}
	}
}

// analyze runs one full pass: window, transform, dB conversion, smoothing,
// peak-hold update, peak detection, snapshot publication. Callers hold mu.
func (a *Analyzer) analyze() {
	// Unwrap the ring chronologically (oldest sample first) while applying
	// the window.
	mask := a.fftSize - 1
	for i := 0; i < a.fftSize; i++ {
		a.scratch[i] = a.ring[(a.ringPos+i)&mask] * a.window[i]
	}

	a.fft.Coefficients(a.coeffs, a.scratch)
	for i := 0; i < a.bins; i++ {
		a.magnitude[i] = cmplx.Abs(a.coeffs[i])
	}

	a.ensureBins()
	for i := 0; i < a.bins; i++ {
		db := 20 * math.Log10(a.magnitude[i]+epsilonMag)
		a.smoothed[i] = a.smoothed[i]*a.smoothing + db*(1-a.smoothing)
		if a.peakHoldOn {
			a.peakHold[i] = math.Max(a.peakHold[i]*peakHoldDecay, db)
		}
	}

	a.detectPeaks()
	a.publish()
}

// ensureBins extends the per-bin tracking arrays with floor values if the
// bin count grew past them, instead of failing mid-pass.
func (a *Analyzer) ensureBins() {
	for len(a.smoothed) < a.bins {
		a.smoothed = append(a.smoothed, FloorDB)
	}
	for len(a.peakHold) < a.bins {
		a.peakHold = append(a.peakHold, FloorDB)
	}
}

// Reset floors all analysis state without changing the configuration.
// Calling it twice yields the same state as calling it once.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	fill(a.ring, 0)
	fill(a.smoothed, FloorDB)
	fill(a.peakHold, FloorDB)
	a.ringPos = 0
	a.sinceLast = 0
	a.peaks = a.peaks[:0]
	a.publish()
}

// SetSmoothing adjusts the exponential smoothing coefficient. Values are
// clamped to [0, 0.99]; higher values mean a slower, more averaged
// response.
func (a *Analyzer) SetSmoothing(factor float64) {
	if factor < 0 {
		factor = 0
	}
	if factor > MaxSmoothing {
		factor = MaxSmoothing
	}

	a.mu.Lock()
	a.smoothing = factor
	a.mu.Unlock()
}

// SetPeakHoldEnabled toggles peak-hold tracking. Disabling floors the hold
// envelope immediately; it stays floored until re-enabled.
func (a *Analyzer) SetPeakHoldEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.peakHoldOn == enabled {
		return
	}
	a.peakHoldOn = enabled
	if !enabled {
		fill(a.peakHold, FloorDB)
		a.publish()
	}
}

// SetFrequencyRange adjusts the display range peak candidates must fall in.
func (a *Analyzer) SetFrequencyRange(minHz, maxHz float64) error {
	if minHz < 0 || minHz >= maxHz {
		return fmt.Errorf("invalid frequency range [%f, %f]", minHz, maxHz)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.minFreq = minHz
	a.maxFreq = maxHz
	a.peaks = make([]Peak, 0, a.peakCapacity())
	return nil
}

// FFTSize returns the current transform size in samples.
func (a *Analyzer) FFTSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fftSize
}

// Bins returns the number of frequency bins (FFTSize / 2).
func (a *Analyzer) Bins() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bins
}

// SampleRate returns the configured sample rate in Hz.
func (a *Analyzer) SampleRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sampleRate
}

func fill(s []float64, v float64) {
	for i := range s {
		s[i] = v
	}
}
