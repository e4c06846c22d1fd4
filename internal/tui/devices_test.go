package tui

import (
	"strings"
	"testing"

	"levels/internal/capture"
)

func TestRenderDevices(t *testing.T) {
	out := RenderDevices([]capture.Device{
		{ID: "ALSA:hw:0", Name: "Internal Mic", MaxInputChannels: 2, DefaultSampleRate: 44100},
		{ID: "ALSA:default", Name: "Default", MaxInputChannels: 32, DefaultSampleRate: 48000, Default: true},
		{ID: "tone", Name: "Sine 440 Hz"},
	})

	rows := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		for _, id := range []string{"ALSA:hw:0", "ALSA:default", "tone"} {
			if strings.Contains(line, id) {
				rows[id] = line
			}
		}
	}

	if len(rows) != 3 {
		t.Fatalf("found %d device rows in:\n%s", len(rows), out)
	}
	if !strings.Contains(rows["ALSA:default"], "*") {
		t.Errorf("default device not marked: %q", rows["ALSA:default"])
	}
	if strings.Contains(rows["ALSA:hw:0"], "*") {
		t.Errorf("non-default device marked: %q", rows["ALSA:hw:0"])
	}
	if !strings.Contains(rows["ALSA:hw:0"], "44100 Hz") {
		t.Errorf("rate missing: %q", rows["ALSA:hw:0"])
	}
	// Unknown channel count and rate render as dashes.
	if strings.Count(rows["tone"], "-") < 2 {
		t.Errorf("unknown fields not dashed: %q", rows["tone"])
	}
}

func TestRenderDevicesEmpty(t *testing.T) {
	if out := RenderDevices(nil); !strings.Contains(out, "No capture devices") {
		t.Errorf("RenderDevices(nil) = %q", out)
	}
}
