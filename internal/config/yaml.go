// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"levels/internal/log"
	"levels/internal/meter"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel string        `yaml:"log_level" validate:"required"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio    AudioConfig   `yaml:"audio"`                         // Capture settings.
	Tone     ToneConfig    `yaml:"tone"`                          // Synthetic tone, used by the tone backend.
	Metrics  MetricsConfig `yaml:"metrics"`                       // Prometheus endpoint.
	UI       UIConfig      `yaml:"ui"`                            // Terminal output.
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	Backend         string `yaml:"backend" validate:"oneof=portaudio malgo wav tone"`           // Capture backend.
	Format          string `yaml:"format" validate:"omitempty,oneof=f32 i16 u16"`               // Sample format; empty for the device default.
	SampleRate      int    `yaml:"sample_rate"`                                                 // Sample rate in Hz; 0 for the device default.
	Channels        int    `yaml:"channels" validate:"omitempty,gte=1,lte=32"`                  // Interleaved input channels; 0 for the device default.
	FramesPerBuffer int    `yaml:"frames_per_buffer"`                                           // PortAudio callback size in frames.
	LowLatency      bool   `yaml:"low_latency"`                                                 // Request low latency settings from PortAudio device.
	File            string `yaml:"file" validate:"required_if=Backend wav"`                     // WAV file replayed by the wav backend.
	Loop            bool   `yaml:"loop"`                                                        // Restart the WAV file when it ends.
}

// ToneConfig describes the sine wave produced by the tone backend.
type ToneConfig struct {
	Frequency float64 `yaml:"frequency" validate:"gt=0,lte=20000"` // Hz.
	Amplitude float64 `yaml:"amplitude" validate:"gte=0,lte=1"`    // Peak, relative to full scale.
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address" validate:"omitempty,hostname_port"` // e.g. ":9090"; empty disables the endpoint.
}

// UIConfig selects how readings are shown.
type UIConfig struct {
	Plain bool `yaml:"plain"` // Print one line per reading instead of the terminal meter.
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations. If no file is found, it uses built-in defaults.
// After loading defaults or from file, it applies environment variable overrides
// and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load is LoadConfig without validation, for callers that apply further
// overrides (command-line flags) and validate the result themselves.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first existing default config location, or "".
func findConfigFile() string {
	candidates := []string{"config.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "levels", "config.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			errs = append(errs, fmt.Errorf("%s %s", fieldPath(e), formatValidationMessage(e)))
		}
	}

	if r := c.Audio.SampleRate; r != 0 {
		if err := checkRange("audio.sample_rate", r, MinSampleRate, MaxSampleRate); err != nil {
			errs = append(errs, err)
		}
	}
	if err := checkRange("audio.frames_per_buffer", c.Audio.FramesPerBuffer, MinBufferFrames, MaxBufferFrames); err != nil {
		errs = append(errs, err)
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}

	if c.Audio.Backend == BackendWAV && c.Audio.Format != "" && c.Audio.Format != meter.FormatI16.String() {
		errs = append(errs, fmt.Errorf("audio.format must be i16 or empty for the wav backend"))
	}

	return errors.Join(errs...)
}

// checkRange reports v outside [lo, hi] in the validator's wording.
func checkRange(field string, v, lo, hi int) error {
	switch {
	case v < lo:
		return fmt.Errorf("%s must be greater than or equal to %d", field, lo)
	case v > hi:
		return fmt.Errorf("%s must be less than or equal to %d", field, hi)
	}
	return nil
}

// SampleFormat returns the configured sample format, or FormatUnknown when the
// device default should be used.
func (c *Config) SampleFormat() meter.Format {
	if c.Audio.Format == "" {
		return meter.FormatUnknown
	}
	f, err := meter.ParseFormat(c.Audio.Format)
	if err != nil {
		return meter.FormatUnknown
	}
	return f
}

// fieldPath renders "Config.audio.backend" as "audio.backend".
func fieldPath(e validator.FieldError) string {
	_, path, found := strings.Cut(e.Namespace(), ".")
	if !found {
		return e.Field()
	}
	return path
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "hostname_port":
		return "must be a host:port address"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// applyEnvOverrides applies LEVELS_* environment variables on top of the file
// values. Malformed numbers are an error rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"LOG_LEVEL", &c.LogLevel},
		{"BACKEND", &c.Audio.Backend},
		{"FORMAT", &c.Audio.Format},
		{"FILE", &c.Audio.File},
		{"METRICS_ADDRESS", &c.Metrics.ListenAddress},
	}
	for _, s := range strs {
		if val, ok := os.LookupEnv(envPrefix + s.key); ok {
			*s.dst = val
			log.Infof("Config: overriding %s from env: %s", strings.ToLower(s.key), val)
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SAMPLE_RATE", &c.Audio.SampleRate},
		{"CHANNELS", &c.Audio.Channels},
		{"FRAMES_PER_BUFFER", &c.Audio.FramesPerBuffer},
	}
	for _, i := range ints {
		if val, ok := os.LookupEnv(envPrefix + i.key); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, i.key, err)
			}
			*i.dst = n
			log.Infof("Config: overriding %s from env: %d", strings.ToLower(i.key), n)
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"LOOP", &c.Audio.Loop},
		{"PLAIN", &c.UI.Plain},
	}
	for _, b := range bools {
		if val, ok := os.LookupEnv(envPrefix + b.key); ok {
			v, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, b.key, err)
			}
			*b.dst = v
			log.Infof("Config: overriding %s from env: %v", strings.ToLower(b.key), v)
		}
	}

	return nil
}
