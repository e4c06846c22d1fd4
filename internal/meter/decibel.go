// SPDX-License-Identifier: MIT
package meter

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Reading is one loudness report delivered to a responder.
type Reading struct {
	Decibel int32
	Band    Band
}

// Amplitude returns half the peak-to-trough range of w on the normalized
// scale, where 1.0 is full scale for every sample format. Bounds are widened
// to float32 before subtracting so 16-bit ranges cannot overflow.
func Amplitude[T Sample](w Window[T]) float32 {
	return (float32(w.Max) - float32(w.Min)) / 2 / FormatOf[T]().FullScale()
}

// Decibel converts a normalized amplitude to decibels (20*log10). An
// amplitude of zero yields negative infinity.
func Decibel(amplitude float32) float32 {
	return float32(20 * math.Log10(float64(amplitude)))
}

// Round rounds a decibel value half away from zero.
//
// Silence has no finite decibel value: -Inf and NaN map to math.MinInt32,
// which always falls in the lowest band. +Inf and values past the int32
// range saturate at math.MaxInt32.
func Round(decibel float32) int32 {
	d := float64(decibel)
	switch {
	case math.IsNaN(d), d <= math.MinInt32:
		return math.MinInt32
	case d >= math.MaxInt32:
		return math.MaxInt32
	}
	return int32(scalar.Round(d, 0))
}

// Convert runs the full window-to-reading chain.
func Convert[T Sample](w Window[T]) Reading {
	rounded := Round(Decibel(Amplitude(w)))
	return Reading{
		Decibel: rounded,
		Band:    BandOf(rounded),
	}
}
