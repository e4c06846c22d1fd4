package config

// Defaults and limits for the meter configuration. Zero audio format, sample
// rate and channel values mean "use the device default".
const (
	DefaultLogLevel        = "info"
	DefaultBackend         = BackendPortAudio
	DefaultFramesPerBuffer = 512   // Balanced latency/performance
	DefaultToneFrequency   = 440.0 // A4
	DefaultToneAmplitude   = 0.5   // -6 dBFS

	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MinBufferFrames = 16     // Minimum frames per buffer
	MaxBufferFrames = 8192   // Maximum frames per buffer
)

// Capture backends.
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
	BackendWAV       = "wav"
	BackendTone      = "tone"
)

// envPrefix prefixes every environment override, e.g. LEVELS_BACKEND.
const envPrefix = "LEVELS_"

// NewConfig returns the built-in defaults, before any file, environment or
// flag overrides.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
		Tone: ToneConfig{
			Frequency: DefaultToneFrequency,
			Amplitude: DefaultToneAmplitude,
		},
	}
}
