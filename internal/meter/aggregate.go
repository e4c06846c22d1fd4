// SPDX-License-Identifier: MIT
package meter

// Window summarizes the samples drained in one polling cycle.
type Window[T Sample] struct {
	Min T
	Max T
}

// Aggregate folds samples into a Window in a single pass.
//
// Both bounds start at the zero value of T, so an empty input yields {0, 0}
// and a window that never crosses zero still reports zero as one bound.
func Aggregate[T Sample](samples []T) Window[T] {
	var w Window[T]
	for _, s := range samples {
		if s < w.Min {
			w.Min = s
		}
		if s > w.Max {
			w.Max = s
		}
	}
	return w
}
