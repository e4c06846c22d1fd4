// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"levels/internal/meter"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVFile replays a 16-bit PCM WAV file as if it were a microphone, paced at
// real time. The file is decoded each time the device is acquired.
type WAVFile struct {
	Path string
	Loop bool
}

// NewWAVFile returns a provider replaying path, optionally looping.
func NewWAVFile(path string, loop bool) *WAVFile {
	return &WAVFile{Path: path, Loop: loop}
}

type wavDevice struct {
	buffer *audio.IntBuffer
}

// DefaultInputDevice decodes the file.
func (w *WAVFile) DefaultInputDevice() (Device, error) {
	f, err := os.Open(w.Path)
	if err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return Device{}, fmt.Errorf("%w: %s is not a valid WAV file", ErrDeviceUnavailable, w.Path)
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return Device{}, fmt.Errorf("%w: decoding %s: %w", ErrDeviceUnavailable, w.Path, err)
	}
	if buffer.SourceBitDepth == 0 {
		buffer.SourceBitDepth = int(decoder.BitDepth)
	}

	return Device{
		ID:                w.Path,
		Name:              filepath.Base(w.Path),
		MaxInputChannels:  int(decoder.NumChans),
		DefaultSampleRate: float64(decoder.SampleRate),
		Default:           true,
		handle:            &wavDevice{buffer: buffer},
	}, nil
}

// DefaultInputConfig returns the file's own format. Only 16-bit PCM is
// supported.
func (w *WAVFile) DefaultInputConfig(d Device) (Config, error) {
	dev, ok := d.handle.(*wavDevice)
	if !ok || dev.buffer.Format == nil {
		return Config{}, fmt.Errorf("%w: device %q is not a WAV file", ErrConfigUnavailable, d.Name)
	}
	if dev.buffer.SourceBitDepth != 16 {
		return Config{}, fmt.Errorf("%w: %d-bit samples, only 16-bit PCM is supported",
			ErrConfigUnavailable, dev.buffer.SourceBitDepth)
	}
	if dev.buffer.Format.NumChannels < 1 || dev.buffer.Format.SampleRate < 1 {
		return Config{}, fmt.Errorf("%w: invalid format %+v", ErrConfigUnavailable, *dev.buffer.Format)
	}
	return Config{
		SampleRate: dev.buffer.Format.SampleRate,
		Channels:   dev.buffer.Format.NumChannels,
		Format:     meter.FormatI16,
	}, nil
}

// BuildInputStream returns a paused stream replaying the decoded samples in
// 10 ms chunks. Without Loop the stream falls silent at the end of the file.
func (w *WAVFile) BuildInputStream(d Device, cfg Config, cb Callbacks) (Stream, error) {
	dev, ok := d.handle.(*wavDevice)
	if !ok {
		return nil, fmt.Errorf("%w: device %q is not a WAV file", ErrStreamBuild, d.Name)
	}
	if cfg.Format != meter.FormatI16 || cb.I16 == nil {
		return nil, fmt.Errorf("%w: WAV replay requires %s samples", ErrStreamBuild, meter.FormatI16)
	}
	if cfg.Channels != dev.buffer.Format.NumChannels || cfg.SampleRate != dev.buffer.Format.SampleRate {
		return nil, fmt.Errorf("%w: config %+v does not match the file", ErrStreamBuild, cfg)
	}

	data := dev.buffer.Data
	frames := max(1, cfg.SampleRate*int(chunkPeriod.Milliseconds())/1000)
	chunk := make([]int16, frames*cfg.Channels)
	pos := 0

	emit := func() {
		if pos >= len(data) {
			if !w.Loop || len(data) == 0 {
				return
			}
			pos = 0
		}
		n := copy16(chunk, data[pos:])
		pos += n
		cb.I16(chunk[:n])
	}

	return newClockedStream(chunkPeriod, emit), nil
}

func copy16(dst []int16, src []int) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = int16(src[i])
	}
	return n
}
