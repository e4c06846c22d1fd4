// SPDX-License-Identifier: MIT
/*
Package meter turns a window of raw audio samples into a loudness reading.

The pipeline is Aggregate (min/max over the window), Amplitude (half the
peak-to-trough range on a normalized scale), Decibel, Round and BandOf. Every
step is allocation free so it can run once per reporting interval without
putting pressure on the GC.
*/
package meter

import (
	"fmt"
	"strings"
)

// Sample is the set of sample representations a capture stream can deliver.
type Sample interface {
	float32 | int16 | uint16
}

// Format identifies the sample representation of a stream.
type Format int

const (
	FormatUnknown Format = iota
	FormatF32
	FormatI16
	FormatU16
)

// String returns the config name of the format.
func (f Format) String() string {
	switch f {
	case FormatF32:
		return "f32"
	case FormatI16:
		return "i16"
	case FormatU16:
		return "u16"
	default:
		return "unknown"
	}
}

// ParseFormat converts a config name (case-insensitive) to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "f32", "float32":
		return FormatF32, nil
	case "i16", "s16", "int16":
		return FormatI16, nil
	case "u16", "uint16":
		return FormatU16, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown sample format: '%s'", name)
	}
}

// FullScale is the divisor that maps a peak-to-trough half range of this
// format onto the normalized scale where 1.0 is full scale.
func (f Format) FullScale() float32 {
	switch f {
	case FormatI16, FormatU16:
		return 32768
	default:
		return 1
	}
}

// FormatOf returns the Format of the sample type T.
func FormatOf[T Sample]() Format {
	var zero T
	switch any(zero).(type) {
	case float32:
		return FormatF32
	case int16:
		return FormatI16
	case uint16:
		return FormatU16
	default:
		return FormatUnknown
	}
}
