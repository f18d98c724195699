// SPDX-License-Identifier: MIT
// Package config defines the runtime configuration of the spectrum engine,
// loaded from YAML with environment variable overrides and CLI flags
// layered on top by cmd.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"spectrum/pkg/bitint"
)

// Defaults and hard limits.
const (
	DefaultSampleRate      = 44100.0
	MinSampleRate          = 8000.0
	MaxSampleRate          = 192000.0
	DefaultFFTOrder        = 11 // 2048-sample transform
	MinFFTOrder            = 4
	MaxFFTOrder            = 16
	DefaultFramesPerBuffer = 512
	MaxBufferFrames        = 8192
	DefaultChannels        = 1
	MinDeviceID            = -1 // -1 selects the system default device
	DefaultSmoothing       = 0.8
	MaxSmoothing           = 0.99
	DefaultMinFrequency    = 20.0
	DefaultMaxFrequency    = 20000.0
	DefaultPeakFloorDB     = -40.0
	DefaultPeakSeparation  = 100.0
	DefaultPublishInterval = 33 * time.Millisecond // ~30 Hz consumer cadence
)

// Config is the root configuration, loaded from YAML.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
	Command  string `yaml:"-"` // set by the CLI, never from file

	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index, -1 for default
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // callback buffer size, power of 2
	Channels        int     `yaml:"channels"`          // captured channels; analysis uses channel 0
	LowLatency      bool    `yaml:"low_latency"`       // request low latency from the device
}

// AnalysisConfig holds spectral analysis settings.
type AnalysisConfig struct {
	FFTOrder       int     `yaml:"fft_order"`          // transform size exponent
	Window         string  `yaml:"window"`             // window function name, e.g. "Hann"
	Smoothing      float64 `yaml:"smoothing"`          // [0, 0.99]
	PeakHold       bool    `yaml:"peak_hold"`          // track peak-hold envelope
	MinFrequency   float64 `yaml:"min_frequency"`      // peak range lower edge (Hz)
	MaxFrequency   float64 `yaml:"max_frequency"`      // peak range upper edge (Hz)
	PeakFloorDB    float64 `yaml:"peak_floor_db"`      // minimum peak magnitude
	PeakSeparation float64 `yaml:"peak_separation_hz"` // minimum distance between peaks
	GateEnabled    bool    `yaml:"gate_enabled"`       // skip analysis of silent buffers
	GateThreshold  float64 `yaml:"gate_threshold"`     // [0, 1] amplitude threshold
}

// RecordingConfig holds WAV capture settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // empty means auto-generated name
}

// TransportConfig holds result publishing settings.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Channels:        DefaultChannels,
			LowLatency:      false,
		},
		Analysis: AnalysisConfig{
			FFTOrder:       DefaultFFTOrder,
			Window:         "Hann",
			Smoothing:      DefaultSmoothing,
			PeakHold:       true,
			MinFrequency:   DefaultMinFrequency,
			MaxFrequency:   DefaultMaxFrequency,
			PeakFloorDB:    DefaultPeakFloorDB,
			PeakSeparation: DefaultPeakSeparation,
			GateEnabled:    false,
			GateThreshold:  0.001,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			PublishInterval:  DefaultPublishInterval,
		},
	}
}

// Load reads configuration from the YAML file at path. An empty path
// searches the default candidates; if none exists the built-in defaults
// are used. Environment overrides apply after the file, and the result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every field that could leave the engine in an unusable
// state. Called after file load and again after CLI overrides.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%0.f, %.0f]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside (0, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) {
		return fmt.Errorf("audio.frames_per_buffer %d is not a power of 2", c.Audio.FramesPerBuffer)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device %d is invalid", c.Audio.InputDevice)
	}
	if c.Analysis.FFTOrder < MinFFTOrder || c.Analysis.FFTOrder > MaxFFTOrder {
		return fmt.Errorf("analysis.fft_order %d outside [%d, %d]", c.Analysis.FFTOrder, MinFFTOrder, MaxFFTOrder)
	}
	if c.Analysis.Smoothing < 0 || c.Analysis.Smoothing > MaxSmoothing {
		return fmt.Errorf("analysis.smoothing %.3f outside [0, %.2f]", c.Analysis.Smoothing, MaxSmoothing)
	}
	if c.Analysis.MinFrequency < 0 || c.Analysis.MinFrequency >= c.Analysis.MaxFrequency {
		return fmt.Errorf("analysis frequency range [%.1f, %.1f] is invalid", c.Analysis.MinFrequency, c.Analysis.MaxFrequency)
	}
	if c.Analysis.PeakSeparation <= 0 {
		return fmt.Errorf("analysis.peak_separation_hz must be positive, got %.1f", c.Analysis.PeakSeparation)
	}
	if c.Analysis.GateThreshold < 0 || c.Analysis.GateThreshold > 1 {
		return fmt.Errorf("analysis.gate_threshold %.3f outside [0, 1]", c.Analysis.GateThreshold)
	}
	if c.Transport.PublishInterval <= 0 {
		return fmt.Errorf("transport.publish_interval must be positive, got %s", c.Transport.PublishInterval)
	}
	return nil
}

// applyEnvOverrides applies SPECTRUM_* environment variables on top of the
// loaded configuration.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRUM_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("SPECTRUM_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("SPECTRUM_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
	}
	if val, ok := os.LookupEnv("SPECTRUM_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("SPECTRUM_UDP_TARGET"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("SPECTRUM_PUBLISH_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.PublishInterval = d
		}
	}
}
