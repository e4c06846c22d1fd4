// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"

	"levels/internal/meter"
	"levels/pkg/utils"
)

// Tone is a synthetic input that produces a continuous sine wave in any
// sample format, paced at real time.
type Tone struct {
	Frequency float64 // Hz
	Amplitude float64 // peak, 0..1 of full scale

	prefs Preferences
}

// NewTone returns a tone source. Preferences default to 48 kHz mono float32.
func NewTone(frequency, amplitude float64, prefs Preferences) *Tone {
	return &Tone{Frequency: frequency, Amplitude: amplitude, prefs: prefs}
}

// DefaultInputDevice returns the single virtual tone device.
func (t *Tone) DefaultInputDevice() (Device, error) {
	if t.Frequency <= 0 || t.Amplitude < 0 || t.Amplitude > 1 {
		return Device{}, fmt.Errorf("%w: invalid tone %g Hz at %g", ErrDeviceUnavailable, t.Frequency, t.Amplitude)
	}
	return Device{
		ID:                "tone",
		Name:              fmt.Sprintf("Sine %g Hz", t.Frequency),
		MaxInputChannels:  2,
		DefaultSampleRate: 48000,
		Default:           true,
		handle:            t,
	}, nil
}

// DefaultInputConfig returns 48 kHz mono float32, overridden by preferences.
func (t *Tone) DefaultInputConfig(d Device) (Config, error) {
	if d.handle != t {
		return Config{}, fmt.Errorf("%w: device %q is not a tone device", ErrConfigUnavailable, d.Name)
	}
	return t.prefs.apply(Config{
		SampleRate: 48000,
		Channels:   1,
		Format:     meter.FormatF32,
	}), nil
}

// BuildInputStream returns a paused stream that emits 10 ms chunks.
func (t *Tone) BuildInputStream(d Device, cfg Config, cb Callbacks) (Stream, error) {
	if d.handle != t {
		return nil, fmt.Errorf("%w: device %q is not a tone device", ErrStreamBuild, d.Name)
	}
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("%w: invalid config %+v", ErrStreamBuild, cfg)
	}
	if !cb.has(cfg.Format) {
		return nil, fmt.Errorf("%w: no callback for %s samples", ErrStreamBuild, cfg.Format)
	}

	frames := max(1, cfg.SampleRate*int(chunkPeriod.Milliseconds())/1000)
	n := frames * cfg.Channels

	var emit func()
	switch cfg.Format {
	case meter.FormatF32:
		emit = toneEmitter(t, cfg, make([]float32, n), cb.F32)
	case meter.FormatI16:
		emit = toneEmitter(t, cfg, make([]int16, n), cb.I16)
	case meter.FormatU16:
		emit = toneEmitter(t, cfg, make([]uint16, n), cb.U16)
	default:
		return nil, fmt.Errorf("%w: unknown format %s", ErrStreamBuild, cfg.Format)
	}

	return newClockedStream(chunkPeriod, emit), nil
}

func toneEmitter[T meter.Sample](t *Tone, cfg Config, chunk []T, deliver func([]T)) func() {
	frame := 0
	return func() {
		frame = utils.Sine(chunk, cfg.Channels, float64(cfg.SampleRate), t.Frequency, t.Amplitude, frame)
		deliver(chunk)
	}
}
