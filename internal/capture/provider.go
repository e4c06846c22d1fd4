// SPDX-License-Identifier: MIT
/*
Package capture abstracts the audio input subsystem behind a small Provider
interface so the meter can run on PortAudio, miniaudio (malgo), a WAV file or
a synthetic tone without knowing which.

Thread Safety:
- Provider methods are called from the controller goroutine only.
- Callbacks run on a thread owned by the backend. They must not block, lock
  or allocate; the stream handler only performs a lock-free ring write there.
*/
package capture

import "levels/internal/meter"

// Provider acquires input devices and builds capture streams on them.
type Provider interface {
	// DefaultInputDevice returns the system default input device.
	// Fails with ErrDeviceUnavailable.
	DefaultInputDevice() (Device, error)

	// DefaultInputConfig returns the device's preferred stream configuration.
	// Fails with ErrConfigUnavailable.
	DefaultInputConfig(Device) (Config, error)

	// BuildInputStream creates a paused stream delivering samples of
	// cfg.Format to the matching callback. Fails with ErrStreamBuild.
	BuildInputStream(Device, Config, Callbacks) (Stream, error)
}

// DeviceLister is implemented by providers that can enumerate devices.
type DeviceLister interface {
	Devices() ([]Device, error)
}

// Stream is a built capture stream.
type Stream interface {
	Play() error
	Pause() error
	Close() error
}

// Device identifies an input device.
type Device struct {
	ID                string
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool

	handle any // backend-specific device descriptor
}

// Config is the stream configuration: sample rate in Hz, interleaved channel
// count and sample format.
type Config struct {
	SampleRate int
	Channels   int
	Format     meter.Format
}

// Callbacks receives captured samples. Only the callback matching the stream
// format is invoked. Error reports non-fatal runtime errors and may be nil.
type Callbacks struct {
	F32   func([]float32)
	I16   func([]int16)
	U16   func([]uint16)
	Error func(error)
}

func (cb Callbacks) has(format meter.Format) bool {
	switch format {
	case meter.FormatF32:
		return cb.F32 != nil
	case meter.FormatI16:
		return cb.I16 != nil
	case meter.FormatU16:
		return cb.U16 != nil
	default:
		return false
	}
}

func (cb Callbacks) reportError(err error) {
	if cb.Error != nil {
		cb.Error(err)
	}
}

// Preferences override the device defaults returned by DefaultInputConfig.
// Zero fields keep the device default.
type Preferences struct {
	Format     meter.Format
	SampleRate int
	Channels   int
}

func (p Preferences) apply(cfg Config) Config {
	if p.Format != meter.FormatUnknown {
		cfg.Format = p.Format
	}
	if p.SampleRate > 0 {
		cfg.SampleRate = p.SampleRate
	}
	if p.Channels > 0 {
		cfg.Channels = p.Channels
	}
	return cfg
}
