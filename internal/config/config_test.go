// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("expected default sample rate %.0f, got %.0f", DefaultSampleRate, cfg.Audio.SampleRate)
	}
	if cfg.Analysis.FFTOrder != DefaultFFTOrder {
		t.Errorf("expected default fft order %d, got %d", DefaultFFTOrder, cfg.Analysis.FFTOrder)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoad_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
audio:
  sample_rate: 48000
  frames_per_buffer: 1024
analysis:
  fft_order: 10
  smoothing: 0.5
transport:
  publish_interval: 50ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("expected 48000 Hz, got %.0f", cfg.Audio.SampleRate)
	}
	if cfg.Analysis.FFTOrder != 10 {
		t.Errorf("expected fft order 10, got %d", cfg.Analysis.FFTOrder)
	}
	if cfg.Analysis.Smoothing != 0.5 {
		t.Errorf("expected smoothing 0.5, got %f", cfg.Analysis.Smoothing)
	}
	if cfg.Transport.PublishInterval != 50*time.Millisecond {
		t.Errorf("expected 50ms publish interval, got %s", cfg.Transport.PublishInterval)
	}
	// Untouched sections keep defaults.
	if cfg.Analysis.PeakSeparation != DefaultPeakSeparation {
		t.Errorf("expected default peak separation, got %f", cfg.Analysis.PeakSeparation)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample rate too low", func(c *Config) { c.Audio.SampleRate = 100 }},
		{"sample rate too high", func(c *Config) { c.Audio.SampleRate = 500000 }},
		{"frames not power of two", func(c *Config) { c.Audio.FramesPerBuffer = 500 }},
		{"frames too large", func(c *Config) { c.Audio.FramesPerBuffer = 16384 }},
		{"fft order too small", func(c *Config) { c.Analysis.FFTOrder = 2 }},
		{"fft order too large", func(c *Config) { c.Analysis.FFTOrder = 20 }},
		{"smoothing above max", func(c *Config) { c.Analysis.Smoothing = 1.0 }},
		{"smoothing negative", func(c *Config) { c.Analysis.Smoothing = -0.1 }},
		{"inverted frequency range", func(c *Config) { c.Analysis.MinFrequency = 5000; c.Analysis.MaxFrequency = 100 }},
		{"zero peak separation", func(c *Config) { c.Analysis.PeakSeparation = 0 }},
		{"gate threshold above one", func(c *Config) { c.Analysis.GateThreshold = 1.5 }},
		{"zero publish interval", func(c *Config) { c.Transport.PublishInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPECTRUM_DEBUG", "true")
	t.Setenv("SPECTRUM_UDP_TARGET", "10.0.0.1:7000")
	t.Setenv("SPECTRUM_PUBLISH_INTERVAL", "100ms")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Debug {
		t.Error("expected SPECTRUM_DEBUG override to apply")
	}
	if cfg.Transport.UDPTargetAddress != "10.0.0.1:7000" {
		t.Errorf("expected UDP target override, got %s", cfg.Transport.UDPTargetAddress)
	}
	if cfg.Transport.PublishInterval != 100*time.Millisecond {
		t.Errorf("expected 100ms interval, got %s", cfg.Transport.PublishInterval)
	}
}
