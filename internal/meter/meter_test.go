// SPDX-License-Identifier: MIT
package meter

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestBandBoundaries(t *testing.T) {
	tests := []struct {
		decibel int32
		want    Band
	}{
		{math.MinInt32, Blue},
		{-100, Blue},
		{-21, Blue},
		{-20, SkyBlue},
		{-13, SkyBlue},
		{-12, Green},
		{-8, Green},
		{-7, Yellow},
		{-2, Yellow},
		{-1, Red},
		{0, Red},
		{12, Red},
		{math.MaxInt32, Red},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%s", tt.decibel, tt.want), func(t *testing.T) {
			if got := BandOf(tt.decibel); got != tt.want {
				t.Errorf("BandOf(%d) = %s, want %s", tt.decibel, got, tt.want)
			}
		})
	}
}

func TestBandsAreOrderedAndContiguous(t *testing.T) {
	prev := BandOf(-200)
	seen := map[Band]bool{prev: true}
	for d := int32(-199); d <= 50; d++ {
		b := BandOf(d)
		if b < prev {
			t.Fatalf("band decreased at %d: %s after %s", d, b, prev)
		}
		if b != prev && seen[b] {
			t.Fatalf("band %s appears in two ranges", b)
		}
		seen[b] = true
		prev = b
	}
	if len(seen) != len(Bands) {
		t.Errorf("saw %d bands, want %d", len(seen), len(Bands))
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    Window[float32]
	}{
		{"Empty", nil, Window[float32]{0, 0}},
		{"Symmetric", []float32{0.25, -0.5, 0.5, -0.25}, Window[float32]{-0.5, 0.5}},
		{"All positive keeps zero floor", []float32{0.2, 0.4, 0.3}, Window[float32]{0, 0.4}},
		{"All negative keeps zero ceiling", []float32{-0.2, -0.4}, Window[float32]{-0.4, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for run := range 3 {
				if got := Aggregate(tt.samples); got != tt.want {
					t.Errorf("run %d: Aggregate = %+v, want %+v", run, got, tt.want)
				}
			}
		})
	}
}

func TestAggregateIntegerFormats(t *testing.T) {
	if got := Aggregate([]int16{-32768, 12, 32767}); got != (Window[int16]{-32768, 32767}) {
		t.Errorf("int16 window = %+v", got)
	}
	if got := Aggregate([]uint16{40000, 1000}); got != (Window[uint16]{0, 40000}) {
		t.Errorf("uint16 window = %+v", got)
	}
}

func TestAmplitude(t *testing.T) {
	tests := []struct {
		name string
		got  float32
		want float32
	}{
		{"f32 unity", Amplitude(Window[float32]{-1, 1}), 1},
		{"f32 half", Amplitude(Window[float32]{-0.5, 0.5}), 0.5},
		{"i16 full range does not overflow", Amplitude(Window[int16]{math.MinInt16, math.MaxInt16}), 65535.0 / 2 / 32768},
		{"i16 quarter", Amplitude(Window[int16]{-8192, 8192}), 0.25},
		{"u16 range", Amplitude(Window[uint16]{0, 32768}), 0.5},
		{"flat window", Amplitude(Window[float32]{0.3, 0.3}), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !scalar.EqualWithinAbs(float64(tt.got), float64(tt.want), 1e-6) {
				t.Errorf("Amplitude = %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestUnityAmplitudeIsZeroDecibelsRed(t *testing.T) {
	db := Decibel(1.0)
	if db != 0 {
		t.Fatalf("Decibel(1.0) = %v, want exactly 0", db)
	}

	r := Convert(Window[float32]{-1, 1})
	if r.Decibel != 0 || r.Band != Red {
		t.Errorf("Convert(unity) = %+v, want {0 red}", r)
	}
}

func TestSilenceFloor(t *testing.T) {
	windows := []Window[float32]{{0, 0}, {0.5, 0.5}, {-0.1, -0.1}}
	for _, w := range windows {
		r := Convert(w)
		if r.Decibel != math.MinInt32 {
			t.Errorf("Convert(%+v).Decibel = %d, want %d", w, r.Decibel, int32(math.MinInt32))
		}
		if r.Band != Blue {
			t.Errorf("Convert(%+v).Band = %s, want blue", w, r.Band)
		}
	}

	if got := Round(float32(math.NaN())); got != math.MinInt32 {
		t.Errorf("Round(NaN) = %d, want MinInt32", got)
	}
	if got := Round(float32(math.Inf(1))); got != math.MaxInt32 {
		t.Errorf("Round(+Inf) = %d, want MaxInt32", got)
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   float32
		want int32
	}{
		{0.5, 1},
		{-0.5, -1},
		{2.5, 3},
		{-2.5, -3},
		{-6.02, -6},
		{-12.49, -12},
		{-12.5, -13},
		{0.49, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			if got := Round(tt.in); got != tt.want {
				t.Errorf("Round(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvertKnownAmplitudes(t *testing.T) {
	tests := []struct {
		amplitude float32
		want      Reading
	}{
		{0.5, Reading{-6, Yellow}},
		{0.1, Reading{-20, SkyBlue}},
		{0.25, Reading{-12, Green}},
		{0.01, Reading{-40, Blue}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.amplitude), func(t *testing.T) {
			w := Window[float32]{Min: -tt.amplitude, Max: tt.amplitude}
			if got := Convert(w); got != tt.want {
				t.Errorf("Convert(%+v) = %+v, want %+v", w, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if FormatOf[float32]() != FormatF32 || FormatOf[int16]() != FormatI16 || FormatOf[uint16]() != FormatU16 {
		t.Error("FormatOf returned the wrong format")
	}

	for _, name := range []string{"f32", "I16", "u16"} {
		f, err := ParseFormat(name)
		if err != nil {
			t.Errorf("ParseFormat(%q) error: %v", name, err)
			continue
		}
		if f.String() == "unknown" {
			t.Errorf("ParseFormat(%q) = unknown", name)
		}
	}
	if _, err := ParseFormat("s24"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestConvertNoAllocsHotPath(t *testing.T) {
	samples := make([]int16, 4800)
	for i := range samples {
		samples[i] = int16((i%200 - 100) * 300)
	}

	allocs := testing.AllocsPerRun(100, func() {
		_ = Convert(Aggregate(samples))
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in Aggregate/Convert, got %.1f", allocs)
	}
}

func BenchmarkAggregateConvert(b *testing.B) {
	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 48000))
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = Convert(Aggregate(samples))
	}
}
