package cmd

import (
	"fmt"

	"levels/internal/config"
	"levels/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected on the command line.
const (
	CommandRun  = "run"
	CommandList = "list"
)

// Options is the outcome of parsing the command line. Command is empty when
// cobra handled the invocation itself (--help, --version).
type Options struct {
	Command string
	Config  *config.Config
}

// flagValues holds the raw flag values; only flags the user set override the
// loaded configuration.
type flagValues struct {
	configPath      string
	logLevel        string
	backend         string
	format          string
	sampleRate      int
	channels        int
	framesPerBuffer int
	lowLatency      bool
	file            string
	loop            bool
	plain           bool
	metricsAddress  string
}

// ParseArgs parses args (without the program name), loads the configuration
// file and environment, and applies flag overrides on top.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}
	var flags flagValues

	load := func(cmd *cobra.Command, command string) error {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return err
		}
		flags.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		options.Command = command
		options.Config = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandRun)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandList)
		},
	}
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()

	pf.StringVar(&flags.configPath, "config", "",
		"Path to a YAML config file (default ./config.yaml, then the user config dir)")
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn, error")

	// Capture Configuration
	pf.StringVarP(&flags.backend, "backend", "B", config.DefaultBackend,
		"Capture backend: portaudio, malgo, wav, tone")
	pf.StringVarP(&flags.format, "format", "f", "",
		"Sample format: f32, i16, u16 (default: device default)")
	pf.IntVarP(&flags.sampleRate, "sample-rate", "s", 0,
		"Sample rate, measured in Hertz (Hz) (default: device default)")
	pf.IntVarP(&flags.channels, "channels", "c", 0,
		"Number of channels to capture (default: device default)")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per PortAudio buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Replay Configuration
	pf.StringVar(&flags.file, "file", "",
		"WAV file replayed by the wav backend")
	pf.BoolVar(&flags.loop, "loop", false,
		"Restart the WAV file when it ends")

	// Output Configuration
	pf.BoolVarP(&flags.plain, "plain", "p", false,
		"Print one line per reading instead of the terminal meter")
	pf.StringVarP(&flags.metricsAddress, "metrics", "m", "",
		"Serve Prometheus metrics on this address, e.g. :9090")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// apply copies every flag the user set onto cfg.
func (f *flagValues) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("backend") {
		cfg.Audio.Backend = f.backend
	}
	if changed("format") {
		cfg.Audio.Format = f.format
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("channels") {
		cfg.Audio.Channels = f.channels
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("file") {
		cfg.Audio.File = f.file
	}
	if changed("loop") {
		cfg.Audio.Loop = f.loop
	}
	if changed("plain") {
		cfg.UI.Plain = f.plain
	}
	if changed("metrics") {
		cfg.Metrics.ListenAddress = f.metricsAddress
	}
}
