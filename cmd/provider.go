package cmd

import (
	"fmt"
	"io"

	"levels/internal/capture"
	"levels/internal/config"
	"levels/internal/tui"
)

// NewProvider opens the capture backend selected by cfg. The returned release
// function frees backend resources and must be called once metering is over.
func NewProvider(cfg *config.Config) (capture.Provider, func() error, error) {
	prefs := capture.Preferences{
		Format:     cfg.SampleFormat(),
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	}
	noop := func() error { return nil }

	switch cfg.Audio.Backend {
	case config.BackendPortAudio:
		p, err := capture.NewPortAudio(prefs, cfg.Audio.FramesPerBuffer, cfg.Audio.LowLatency)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case config.BackendMalgo:
		m, err := capture.NewMalgo(prefs)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	case config.BackendWAV:
		return capture.NewWAVFile(cfg.Audio.File, cfg.Audio.Loop), noop, nil
	case config.BackendTone:
		return capture.NewTone(cfg.Tone.Frequency, cfg.Tone.Amplitude, prefs), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown capture backend %q", cfg.Audio.Backend)
	}
}

// ListDevices writes the capture devices of provider as a table. Backends
// that cannot enumerate devices report their default input only.
func ListDevices(w io.Writer, provider capture.Provider) error {
	var devices []capture.Device

	if lister, ok := provider.(capture.DeviceLister); ok {
		var err error
		if devices, err = lister.Devices(); err != nil {
			return err
		}
	} else {
		d, err := provider.DefaultInputDevice()
		if err != nil {
			return err
		}
		d.Default = true
		devices = []capture.Device{d}
	}

	_, err := fmt.Fprintln(w, tui.RenderDevices(devices))
	return err
}
