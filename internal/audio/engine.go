// SPDX-License-Identifier: MIT
/*
Package audio implements the capture side of the spectrum engine:
- PortAudio input stream driving the spectral analyzer from the callback
- Optional amplitude gate so silent capture does not churn the analyzer
- WAV recording of the analyzed mono channel

The callback is the producer role: it extracts channel 0, feeds the
analyzer and returns. Consumers read the analyzer's published snapshots on
their own threads; the callback never blocks on them.
*/
package audio

import (
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"spectrum/internal/analysis"
	"spectrum/internal/config"
	applog "spectrum/internal/log"
)

// Engine owns the PortAudio input stream and feeds the analyzer.
type Engine struct {
	config   *config.Config
	analyzer *analysis.Analyzer

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Pre-allocated mono buffer the callback converts into.
	monoBuf []float64

	// Amplitude gate. Atomic so the threshold can be adjusted while the
	// stream is running.
	gateEnabled   atomic.Bool
	gateThreshold atomic.Uint64 // float64 bits

	// Recording state.
	isRecording atomic.Bool
	wavEncoder  *wav.Encoder
	outputFile  closableFile
	sampleBuf   *audio.IntBuffer
}

// NewEngine creates a capture engine bound to the configured input device.
// The analyzer must already be configured; the engine never reconfigures
// it.
func NewEngine(cfg *config.Config, analyzer *analysis.Analyzer) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:      cfg,
		analyzer:    analyzer,
		inputDevice: inputDevice,
		monoBuf:     make([]float64, cfg.Audio.FramesPerBuffer),
	}
	e.gateEnabled.Store(cfg.Analysis.GateEnabled)
	e.SetGateThreshold(cfg.Analysis.GateThreshold)

	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}

	applog.Infof("Audio: engine ready (device: %s, %0.f Hz, %d frames/buffer)",
		inputDevice.Name, cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer)
	return e, nil
}

// StartInputStream opens and starts the PortAudio input stream. From this
// point the callback runs at the hardware cadence.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return err
	}
	return nil
}

// StopInputStream stops and closes the input stream.
func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}
	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil
	return nil
}

// processInputStream is the real-time capture callback.
// Performance critical: pre-allocated buffers only, no allocations, no
// blocking operations.
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	extractMono(e.monoBuf, in, e.config.Audio.Channels)

	if !e.gateEnabled.Load() || maxAbs(e.monoBuf) > e.GateThreshold() {
		e.analyzer.Ingest(e.monoBuf)
	}

	if e.isRecording.Load() && e.wavEncoder != nil {
		e.writeRecording()
	}
}

// extractMono copies channel 0 of an interleaved buffer into dst,
// zero-filling if the input is short.
func extractMono(dst []float64, in []float32, channels int) {
	for i := range dst {
		idx := i * channels
		if idx < len(in) {
			dst[i] = float64(in[idx])
		} else {
			dst[i] = 0
		}
	}
}

// maxAbs returns the largest absolute sample value in buf.
func maxAbs(buf []float64) float64 {
	var peak float64
	for _, s := range buf {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// Close stops recording (if active) and the input stream.
func (e *Engine) Close() error {
	if e.isRecording.Load() {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}
	return e.StopInputStream()
}
