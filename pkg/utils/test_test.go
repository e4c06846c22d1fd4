// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
	"testing"
	"time"

	"levels/internal/meter"
)

const (
	testSampleRate = 48000
	testFrequency  = 1000.0
)

func TestFromUnit(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		f32  float32
		i16  int16
		u16  uint16
	}{
		{"Zero", 0, 0, 0, 32768},
		{"Positive full scale", 1, 1, math.MaxInt16, 65535},
		{"Negative full scale", -1, -1, -math.MaxInt16, 1},
		{"Clamped high", 2, 1, math.MaxInt16, 65535},
		{"Clamped low", -3, -1, -math.MaxInt16, 1},
		{"Half", 0.5, 0.5, 16384, 49152},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromUnit[float32](tt.v); got != tt.f32 {
				t.Errorf("float32: got %v, want %v", got, tt.f32)
			}
			if got := FromUnit[int16](tt.v); got != tt.i16 {
				t.Errorf("int16: got %v, want %v", got, tt.i16)
			}
			if got := FromUnit[uint16](tt.v); got != tt.u16 {
				t.Errorf("uint16: got %v, want %v", got, tt.u16)
			}
		})
	}
}

func TestSineContinuesAcrossCalls(t *testing.T) {
	whole := GenerateSine[float32](960, 1, testSampleRate, testFrequency, 0.5)

	parts := make([]float32, 960)
	next := Sine(parts[:480], 1, testSampleRate, testFrequency, 0.5, 0)
	if next != 480 {
		t.Fatalf("next frame = %d, want 480", next)
	}
	Sine(parts[480:], 1, testSampleRate, testFrequency, 0.5, next)

	for i := range whole {
		if whole[i] != parts[i] {
			t.Fatalf("sample %d: %v != %v", i, whole[i], parts[i])
		}
	}
}

func TestSineInterleavesChannels(t *testing.T) {
	buf := GenerateSine[int16](480, 2, testSampleRate, testFrequency, 0.5)
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("frame %d: channels differ (%d, %d)", i/2, buf[i], buf[i+1])
		}
	}
	// 1 kHz at 48 kHz peaks on frame 12.
	if buf[24] != 16384 {
		t.Errorf("peak = %d, want 16384", buf[24])
	}
}

func TestRecordingResponder(t *testing.T) {
	r := NewRecordingResponder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for db := int32(-30); db <= 0; db += 10 {
			r.Deliver(db, meter.BandOf(db))
			time.Sleep(time.Millisecond)
		}
	}()

	got, ok := r.WaitFor(time.Second, func(rd meter.Reading) bool { return rd.Band == meter.Green })
	if !ok {
		t.Fatal("timed out waiting for a green reading")
	}
	if got.Decibel != -10 {
		t.Errorf("got %+v, want -10 dB", got)
	}

	wg.Wait()
	readings := r.Readings()
	if len(readings) != 4 || r.Len() != 4 {
		t.Fatalf("recorded %d readings, want 4", len(readings))
	}
	for i, rd := range readings {
		if want := int32(-30 + 10*i); rd.Decibel != want {
			t.Errorf("reading %d = %d, want %d", i, rd.Decibel, want)
		}
	}
}

func TestWaitForTimeout(t *testing.T) {
	r := NewRecordingResponder()
	r.Deliver(-40, meter.Blue)

	if _, ok := r.WaitFor(20*time.Millisecond, func(rd meter.Reading) bool { return rd.Band == meter.Red }); ok {
		t.Error("WaitFor matched a reading that was never delivered")
	}
}

func BenchmarkSine(b *testing.B) {
	buf := make([]float32, 4800)
	b.ReportAllocs()
	for b.Loop() {
		Sine(buf, 1, testSampleRate, testFrequency, 0.5, 0)
	}
}
