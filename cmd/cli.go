package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"spectrum/internal/config"
	"spectrum/pkg/build"
)

// ParseArgs loads the configuration file, then layers command line flags
// on top. Only flags the user actually set override file values.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetFlags()

	var configPath string
	cfg := config.Default()
	flagCfg := config.Default()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio spectrum analysis engine",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			applyFlagOverrides(cmd, cfg, flagCfg)
			cfg.Command = "run"
			return cfg.Validate()
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML configuration file")

	// Audio device configuration
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.InputDevice, "device", "d", config.MinDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.Channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&flagCfg.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.FramesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&flagCfg.Audio.LowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Analysis configuration
	rootCmd.PersistentFlags().IntVar(&flagCfg.Analysis.FFTOrder, "fft-order", config.DefaultFFTOrder,
		"FFT size exponent (11 = 2048-sample transform)")
	rootCmd.PersistentFlags().StringVarP(&flagCfg.Analysis.Window, "window", "w", "Hann",
		"Window function (Hann, Hamming, Blackman, ...)")
	rootCmd.PersistentFlags().Float64Var(&flagCfg.Analysis.Smoothing, "smoothing", config.DefaultSmoothing,
		"Temporal smoothing factor [0, 0.99]")
	rootCmd.PersistentFlags().BoolVar(&flagCfg.Analysis.PeakHold, "peak-hold", false,
		"Track a slowly decaying peak-hold envelope")
	rootCmd.PersistentFlags().BoolVar(&flagCfg.Analysis.GateEnabled, "gate", false,
		"Skip analysis of near-silent buffers")

	// Recording configuration
	rootCmd.PersistentFlags().BoolVarP(&flagCfg.Recording.Enabled, "record", "r", false,
		"Record captured audio to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&flagCfg.Recording.OutputFile, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Transport configuration
	rootCmd.PersistentFlags().StringVar(&flagCfg.Transport.WebSocketAddr, "ws-addr", ":8080",
		"WebSocket listen address for spectrum frames")
	rootCmd.PersistentFlags().BoolVar(&flagCfg.Transport.UDPEnabled, "udp", false,
		"Enable binary UDP packet publishing")
	rootCmd.PersistentFlags().StringVar(&flagCfg.Transport.UDPTargetAddress, "udp-target", "127.0.0.1:9090",
		"UDP target address for binary spectrum packets")

	// Debug configuration
	rootCmd.PersistentFlags().BoolVarP(&flagCfg.Debug, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	return cfg, nil
}

// applyFlagOverrides copies flag values into cfg for every flag the user
// set explicitly. File and environment values survive otherwise.
func applyFlagOverrides(cmd *cobra.Command, cfg, flagCfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = flagCfg.Audio.InputDevice
	}
	if flags.Changed("channels") {
		cfg.Audio.Channels = flagCfg.Audio.Channels
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = flagCfg.Audio.SampleRate
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = flagCfg.Audio.FramesPerBuffer
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = flagCfg.Audio.LowLatency
	}
	if flags.Changed("fft-order") {
		cfg.Analysis.FFTOrder = flagCfg.Analysis.FFTOrder
	}
	if flags.Changed("window") {
		cfg.Analysis.Window = flagCfg.Analysis.Window
	}
	if flags.Changed("smoothing") {
		cfg.Analysis.Smoothing = flagCfg.Analysis.Smoothing
	}
	if flags.Changed("peak-hold") {
		cfg.Analysis.PeakHold = flagCfg.Analysis.PeakHold
	}
	if flags.Changed("gate") {
		cfg.Analysis.GateEnabled = flagCfg.Analysis.GateEnabled
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = flagCfg.Recording.Enabled
	}
	if flags.Changed("output") {
		cfg.Recording.OutputFile = flagCfg.Recording.OutputFile
	}
	if flags.Changed("ws-addr") {
		cfg.Transport.WebSocketAddr = flagCfg.Transport.WebSocketAddr
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled = flagCfg.Transport.UDPEnabled
	}
	if flags.Changed("udp-target") {
		cfg.Transport.UDPTargetAddress = flagCfg.Transport.UDPTargetAddress
	}
	if flags.Changed("verbose") {
		cfg.Debug = flagCfg.Debug
	}
}
