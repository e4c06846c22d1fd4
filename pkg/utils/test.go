// Package utils holds signal generators and a recording responder shared by
// the synthetic capture backend and the tests.
package utils

import (
	"math"
	"sync"
	"time"

	"levels/internal/meter"
)

// Sine fills dst with an interleaved sine of the given frequency and peak
// amplitude (0..1 of full scale), writing the same value to every channel.
// start is the frame index of dst[0]; the index of the frame following dst
// is returned so consecutive calls continue the same waveform.
func Sine[T meter.Sample](dst []T, channels int, sampleRate, frequency, amplitude float64, start int) int {
	if channels < 1 {
		channels = 1
	}
	frame := start
	for i := 0; i+channels <= len(dst); i += channels {
		v := amplitude * math.Sin(2*math.Pi*frequency*float64(frame)/sampleRate)
		s := FromUnit[T](v)
		for c := range channels {
			dst[i+c] = s
		}
		frame++
	}
	return frame
}

// GenerateSine returns n interleaved samples of a sine starting at frame 0.
func GenerateSine[T meter.Sample](n, channels int, sampleRate, frequency, amplitude float64) []T {
	buffer := make([]T, n)
	Sine(buffer, channels, sampleRate, frequency, amplitude, 0)
	return buffer
}

// FromUnit converts a value in [-1, 1] to a sample of type T. Integer formats
// round to nearest and clamp; uint16 is offset by half scale.
func FromUnit[T meter.Sample](v float64) T {
	v = max(-1, min(1, v))

	var s T
	switch p := any(&s).(type) {
	case *float32:
		*p = float32(v)
	case *int16:
		*p = int16(math.Round(v * math.MaxInt16))
	case *uint16:
		*p = uint16(math.Round(v*math.MaxInt16) + 32768)
	}
	return s
}

// Delivery is one reading captured by a RecordingResponder.
type Delivery struct {
	Reading meter.Reading
	At      time.Time
}

// RecordingResponder records every delivered reading. Safe for concurrent use.
type RecordingResponder struct {
	mu         sync.Mutex
	deliveries []Delivery
	notify     chan struct{}
}

// NewRecordingResponder returns an empty recorder.
func NewRecordingResponder() *RecordingResponder {
	return &RecordingResponder{notify: make(chan struct{}, 1)}
}

// Deliver records a reading.
func (r *RecordingResponder) Deliver(decibel int32, band meter.Band) {
	r.mu.Lock()
	r.deliveries = append(r.deliveries, Delivery{
		Reading: meter.Reading{Decibel: decibel, Band: band},
		At:      time.Now(),
	})
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Readings returns a copy of the readings delivered so far, in order.
func (r *RecordingResponder) Readings() []meter.Reading {
	r.mu.Lock()
	defer r.mu.Unlock()

	readings := make([]meter.Reading, len(r.deliveries))
	for i, d := range r.deliveries {
		readings[i] = d.Reading
	}
	return readings
}

// Len returns the number of readings delivered so far.
func (r *RecordingResponder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deliveries)
}

// WaitFor blocks until match accepts a delivered reading or the timeout
// elapses. It returns the first matching reading.
func (r *RecordingResponder) WaitFor(timeout time.Duration, match func(meter.Reading) bool) (meter.Reading, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	seen := 0
	for {
		r.mu.Lock()
		pending := r.deliveries[seen:]
		seen = len(r.deliveries)
		for _, d := range pending {
			if match(d.Reading) {
				r.mu.Unlock()
				return d.Reading, true
			}
		}
		r.mu.Unlock()

		select {
		case <-r.notify:
		case <-deadline.C:
			return meter.Reading{}, false
		}
	}
}
