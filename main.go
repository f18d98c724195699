package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"spectrum/cmd"
	"spectrum/internal/analysis"
	"spectrum/internal/audio"
	"spectrum/internal/config"
	applog "spectrum/internal/log"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
	"spectrum/pkg/build"
)

// main wires the engine together in three phases:
//
// 1. Startup (cold path): build info, CLI parsing, PortAudio init,
// one-off commands.
//
// 2. Concurrent (hot path): PortAudio callback feeding the analyzer,
// publishers polling the snapshot surface, optional WAV recording.
//
// 3. Shutdown (cold path): signal-driven teardown in reverse order.
func main() {
	build.Initialize()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	configureLogging(cfg)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	switch cfg.Command {
	case "list":
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	case "run":
	default:
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	windowFn, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		applog.Warnf("%v, using %s", err, windowFn)
	}

	analyzer, err := analysis.New(analysis.Settings{
		SampleRate:     cfg.Audio.SampleRate,
		FFTOrder:       cfg.Analysis.FFTOrder,
		Window:         windowFn,
		Smoothing:      cfg.Analysis.Smoothing,
		PeakHold:       cfg.Analysis.PeakHold,
		MinFrequency:   cfg.Analysis.MinFrequency,
		MaxFrequency:   cfg.Analysis.MaxFrequency,
		PeakFloorDB:    cfg.Analysis.PeakFloorDB,
		PeakSeparation: cfg.Analysis.PeakSeparation,
		MaxPeaks:       analysis.DefaultMaxPeaks,
	})
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	engine, err := audio.NewEngine(cfg, analyzer)
	if err != nil {
		return fmt.Errorf("failed to create audio engine: %w", err)
	}
	defer engine.Close()

	if cfg.Analysis.GateEnabled {
		engine.SetGateThreshold(cfg.Analysis.GateThreshold)
		engine.EnableGate()
	}

	// Result publishers poll the analyzer's lock-free snapshot surface,
	// decoupled from the audio callback.
	meter := analysis.NewBandMeter(analysis.DefaultBands(cfg.Audio.SampleRate / 2))

	var wsTransport transport.Transport
	if cfg.Transport.WebSocketEnabled {
		wsTransport = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
	} else {
		wsTransport = transport.NewLoggingTransport()
	}
	publisher, err := transport.NewPublisher(cfg.Transport.PublishInterval, wsTransport, analyzer, meter)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	var udpSender *udp.Sender
	var udpPublisher *udp.Publisher
	if cfg.Transport.UDPEnabled {
		udpSender, err = udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return fmt.Errorf("failed to create UDP sender: %w", err)
		}
		udpPublisher, err = udp.NewPublisher(cfg.Transport.PublishInterval, udpSender, analyzer)
		if err != nil {
			udpSender.Close()
			return fmt.Errorf("failed to create UDP publisher: %w", err)
		}
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	if err := engine.StartInputStream(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
	}

	publisher.Start()
	if udpPublisher != nil {
		udpPublisher.Start()
	}

	applog.Infof("%s running, Ctrl-C to stop", build.GetFlags().Name)
	<-done

	if udpPublisher != nil {
		udpPublisher.Stop()
		udpSender.Close()
	}
	if err := publisher.Stop(); err != nil {
		applog.Errorf("error stopping publisher: %v", err)
	}
	if err := wsTransport.Close(); err != nil {
		applog.Errorf("error closing transport: %v", err)
	}

	if cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("error stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}

	return engine.StopInputStream()
}

func configureLogging(cfg *config.Config) {
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
		return
	}
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
}
