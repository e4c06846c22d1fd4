// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unsafe"

	"levels/internal/log"
	"levels/internal/meter"

	"github.com/gen2brain/malgo"
)

// malgoInitContext is replaced in tests to inject failures.
var malgoInitContext = malgo.InitContext

// Malgo captures through miniaudio. It supports float32 and int16 samples.
type Malgo struct {
	ctx   *malgo.AllocatedContext
	prefs Preferences
}

// NewMalgo initializes a miniaudio context on the platform's default
// backends. It must be paired with Close.
func NewMalgo(prefs Preferences) (*Malgo, error) {
	ctx, err := malgoInitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debugf("malgo: %s", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}
	return &Malgo{ctx: ctx, prefs: prefs}, nil
}

// Close releases the miniaudio context.
func (m *Malgo) Close() error {
	err := m.ctx.Uninit()
	m.ctx.Free()
	if err != nil {
		return fmt.Errorf("failed to release miniaudio context: %w", err)
	}
	return nil
}

// Devices returns all capture devices.
func (m *Malgo) Devices() ([]Device, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]Device, len(infos))
	for i := range infos {
		info := &infos[i]
		devices[i] = Device{
			ID:      info.ID.String(),
			Name:    info.Name(),
			Default: info.IsDefault == 1,
			handle:  info,
		}
	}
	return devices, nil
}

// DefaultInputDevice returns the capture device miniaudio marks as default,
// or the first one if none is marked.
func (m *Malgo) DefaultInputDevice() (Device, error) {
	devices, err := m.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if len(devices) == 0 {
		return Device{}, ErrDeviceUnavailable
	}
	for _, d := range devices {
		if d.Default {
			return d, nil
		}
	}
	return devices[0], nil
}

// DefaultInputConfig returns 48 kHz mono float32, overridden by the
// configured preferences.
func (m *Malgo) DefaultInputConfig(d Device) (Config, error) {
	if _, ok := d.handle.(*malgo.DeviceInfo); !ok {
		return Config{}, fmt.Errorf("%w: device %q is not a miniaudio device", ErrConfigUnavailable, d.Name)
	}
	return m.prefs.apply(Config{
		SampleRate: 48000,
		Channels:   1,
		Format:     meter.FormatF32,
	}), nil
}

// BuildInputStream initializes a stopped miniaudio capture device.
func (m *Malgo) BuildInputStream(d Device, cfg Config, cb Callbacks) (Stream, error) {
	info, ok := d.handle.(*malgo.DeviceInfo)
	if !ok {
		return nil, fmt.Errorf("%w: device %q is not a miniaudio device", ErrStreamBuild, d.Name)
	}
	if !cb.has(cfg.Format) {
		return nil, fmt.Errorf("%w: no callback for %s samples", ErrStreamBuild, cfg.Format)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Capture.DeviceID = info.ID.Pointer()
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	s := &malgoStream{}

	var onData func(_, in []byte, frames uint32)
	switch cfg.Format {
	case meter.FormatF32:
		deviceConfig.Capture.Format = malgo.FormatF32
		onData = func(_, in []byte, _ uint32) { cb.F32(samplesOf[float32](in)) }
	case meter.FormatI16:
		deviceConfig.Capture.Format = malgo.FormatS16
		onData = func(_, in []byte, _ uint32) { cb.I16(samplesOf[int16](in)) }
	default:
		return nil, fmt.Errorf("%w: miniaudio does not capture %s samples", ErrStreamBuild, cfg.Format)
	}

	callbacks := malgo.DeviceCallbacks{
		Data: onData,
		Stop: func() {
			if !s.pausing.Load() {
				cb.reportError(ErrDeviceStopped)
			}
		},
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamBuild, err)
	}
	s.device = device
	return s, nil
}

type malgoStream struct {
	device  *malgo.Device
	pausing atomic.Bool // set while we stop the device ourselves
}

func (s *malgoStream) Play() error {
	s.pausing.Store(false)
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamPlay, err)
	}
	return nil
}

func (s *malgoStream) Pause() error {
	s.pausing.Store(true)
	return s.device.Stop()
}

func (s *malgoStream) Close() error {
	s.pausing.Store(true)
	s.device.Uninit()
	return nil
}

// samplesOf reinterprets little-endian PCM bytes as samples without copying.
// The result aliases b and is only valid for the duration of the callback.
func samplesOf[T meter.Sample](b []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(b) < size {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/size)
}
