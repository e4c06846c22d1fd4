// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"

	"levels/internal/meter"

	"github.com/gordonklaus/portaudio"
)

// PortAudio function seams, replaced in tests to inject failures.
var (
	paInitialize         = portaudio.Initialize
	paTerminate          = portaudio.Terminate
	paDefaultInputDevice = portaudio.DefaultInputDevice
	paDevices            = portaudio.Devices
)

// PortAudio captures from the host's PortAudio input devices. It supports
// float32 and int16 samples.
type PortAudio struct {
	prefs           Preferences
	framesPerBuffer int
	lowLatency      bool
}

// NewPortAudio initializes the PortAudio subsystem. It must be paired with
// Close.
func NewPortAudio(prefs Preferences, framesPerBuffer int, lowLatency bool) (*PortAudio, error) {
	if framesPerBuffer <= 0 {
		return nil, fmt.Errorf("%w: %d frames per buffer", ErrConfigUnavailable, framesPerBuffer)
	}
	if err := paInitialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudio{prefs: prefs, framesPerBuffer: framesPerBuffer, lowLatency: lowLatency}, nil
}

// Close terminates the PortAudio subsystem.
func (p *PortAudio) Close() error {
	if err := paTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// DefaultInputDevice returns the host's default input device.
func (p *PortAudio) DefaultInputDevice() (Device, error) {
	info, err := paDefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if info == nil || info.MaxInputChannels < 1 {
		return Device{}, ErrDeviceUnavailable
	}
	d := paDevice(info)
	d.Default = true
	return d, nil
}

// DefaultInputConfig returns the device's default sample rate with up to two
// channels of float32, overridden by the configured preferences.
func (p *PortAudio) DefaultInputConfig(d Device) (Config, error) {
	info, ok := d.handle.(*portaudio.DeviceInfo)
	if !ok || info.MaxInputChannels < 1 || info.DefaultSampleRate <= 0 {
		return Config{}, fmt.Errorf("%w: device %q", ErrConfigUnavailable, d.Name)
	}

	cfg := p.prefs.apply(Config{
		SampleRate: int(info.DefaultSampleRate),
		Channels:   min(info.MaxInputChannels, 2),
		Format:     meter.FormatF32,
	})
	if cfg.Channels > info.MaxInputChannels {
		return Config{}, fmt.Errorf("%w: device %q has %d input channels, %d requested",
			ErrConfigUnavailable, d.Name, info.MaxInputChannels, cfg.Channels)
	}
	return cfg, nil
}

// BuildInputStream opens a stopped PortAudio input stream.
func (p *PortAudio) BuildInputStream(d Device, cfg Config, cb Callbacks) (Stream, error) {
	info, ok := d.handle.(*portaudio.DeviceInfo)
	if !ok {
		return nil, fmt.Errorf("%w: device %q is not a PortAudio device", ErrStreamBuild, d.Name)
	}
	if !cb.has(cfg.Format) {
		return nil, fmt.Errorf("%w: no callback for %s samples", ErrStreamBuild, cfg.Format)
	}

	latency := info.DefaultHighInputLatency
	if p.lowLatency {
		latency = info.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: cfg.Channels,
			Device:   info,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: p.framesPerBuffer,
		SampleRate:      float64(cfg.SampleRate),
	}

	var callback any
	switch cfg.Format {
	case meter.FormatF32:
		callback = cb.F32
	case meter.FormatI16:
		callback = cb.I16
	default:
		return nil, fmt.Errorf("%w: PortAudio does not capture %s samples", ErrStreamBuild, cfg.Format)
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamBuild, err)
	}
	return &paStream{stream: stream}, nil
}

// Devices returns all PortAudio devices that can capture.
func (p *PortAudio) Devices() ([]Device, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, err
	}

	var def *portaudio.DeviceInfo
	if info, err := paDefaultInputDevice(); err == nil {
		def = info
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		d := paDevice(info)
		d.Default = def != nil && info.Name == def.Name && info.HostApi == def.HostApi
		devices = append(devices, d)
	}
	return devices, nil
}

func paDevice(info *portaudio.DeviceInfo) Device {
	id := info.Name
	if info.HostApi != nil {
		id = info.HostApi.Name + ":" + info.Name
	}
	return Device{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		handle:            info,
	}
}

type paStream struct {
	stream *portaudio.Stream
}

func (s *paStream) Play() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamPlay, err)
	}
	return nil
}

func (s *paStream) Pause() error {
	return s.stream.Stop()
}

func (s *paStream) Close() error {
	return s.stream.Close()
}
