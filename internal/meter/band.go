// SPDX-License-Identifier: MIT
package meter

// Band is a coarse loudness category used for visual feedback.
type Band int

// Bands in increasing loudness order.
const (
	Blue    Band = iota // (-inf, -21]
	SkyBlue             // [-20, -13]
	Green               // [-12, -8]
	Yellow              // [-7, -2]
	Red                 // [-1, +inf)
)

// Bands lists every band in increasing loudness order.
var Bands = [...]Band{Blue, SkyBlue, Green, Yellow, Red}

// BandOf classifies a rounded decibel value. Every int32 maps to exactly
// one band.
func BandOf(decibel int32) Band {
	switch {
	case decibel <= -21:
		return Blue
	case decibel <= -13:
		return SkyBlue
	case decibel <= -8:
		return Green
	case decibel <= -2:
		return Yellow
	default:
		return Red
	}
}

func (b Band) String() string {
	switch b {
	case Blue:
		return "blue"
	case SkyBlue:
		return "sky-blue"
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return "unknown"
	}
}
