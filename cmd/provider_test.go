package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"levels/internal/capture"
	"levels/internal/config"
	"levels/internal/meter"
)

func TestNewProvider_Tone(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Audio.Backend = config.BackendTone
	cfg.Audio.Format = "i16"
	cfg.Audio.SampleRate = 16000

	provider, release, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer release()

	d, err := provider.DefaultInputDevice()
	if err != nil {
		t.Fatalf("DefaultInputDevice: %v", err)
	}
	got, err := provider.DefaultInputConfig(d)
	if err != nil {
		t.Fatalf("DefaultInputConfig: %v", err)
	}
	want := capture.Config{SampleRate: 16000, Channels: 1, Format: meter.FormatI16}
	if got != want {
		t.Errorf("config = %+v, want %+v", got, want)
	}
}

func TestNewProvider_WAV(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Audio.Backend = config.BackendWAV
	cfg.Audio.File = "missing.wav"

	provider, release, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer release()

	if _, err := provider.DefaultInputDevice(); !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Errorf("DefaultInputDevice = %v, want ErrDeviceUnavailable", err)
	}
}

func TestNewProvider_UnknownBackend(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Audio.Backend = "jack"

	if _, _, err := NewProvider(cfg); err == nil || !strings.Contains(err.Error(), "jack") {
		t.Errorf("NewProvider = %v, want unknown backend error", err)
	}
}

type listerProvider struct {
	*capture.Tone
	devices []capture.Device
	err     error
}

func (l listerProvider) Devices() ([]capture.Device, error) { return l.devices, l.err }

func TestListDevices(t *testing.T) {
	tone := capture.NewTone(440, 0.5, capture.Preferences{})

	t.Run("Default only", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ListDevices(&buf, tone); err != nil {
			t.Fatalf("ListDevices: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Sine 440 Hz") || !strings.Contains(out, "*") {
			t.Errorf("unexpected listing:\n%s", out)
		}
	})

	t.Run("Lister", func(t *testing.T) {
		var buf bytes.Buffer
		provider := listerProvider{Tone: tone, devices: []capture.Device{
			{ID: "Core Audio:Built-in Microphone", Name: "Built-in Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000, Default: true},
			{ID: "Core Audio:USB Interface", Name: "USB Interface", MaxInputChannels: 8, DefaultSampleRate: 96000},
		}}
		if err := ListDevices(&buf, provider); err != nil {
			t.Fatalf("ListDevices: %v", err)
		}
		out := buf.String()
		var defaultRow, usbRow string
		for _, line := range strings.Split(out, "\n") {
			switch {
			case strings.Contains(line, "Built-in Microphone"):
				defaultRow = line
			case strings.Contains(line, "USB Interface"):
				usbRow = line
			}
		}
		if !strings.Contains(defaultRow, "*") || !strings.Contains(defaultRow, "48000 Hz") {
			t.Errorf("default device row = %q", defaultRow)
		}
		if strings.Contains(usbRow, "*") || !strings.Contains(usbRow, "96000 Hz") || !strings.Contains(usbRow, "8") {
			t.Errorf("second device row = %q", usbRow)
		}
		if !strings.Contains(out, "CHANNELS") {
			t.Errorf("listing has no header:\n%s", out)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ListDevices(&buf, listerProvider{Tone: tone}); err != nil {
			t.Fatalf("ListDevices: %v", err)
		}
		if !strings.Contains(buf.String(), "No capture devices") {
			t.Errorf("unexpected listing: %q", buf.String())
		}
	})

	t.Run("Error", func(t *testing.T) {
		boom := errors.New("host unavailable")
		if err := ListDevices(&bytes.Buffer{}, listerProvider{Tone: tone, err: boom}); !errors.Is(err, boom) {
			t.Errorf("ListDevices = %v, want %v", err, boom)
		}
	})
}
