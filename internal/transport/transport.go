package transport

import "levels/internal/meter"

// Responder receives loudness readings, one call per reading, in the order
// they were produced. Deliver is called from a single goroutine and may block;
// a slow responder delays later readings but never the capture thread or a
// Stop.
type Responder interface {
	Deliver(decibel int32, band meter.Band)
}

// ResponderFunc adapts an ordinary function to the Responder interface.
type ResponderFunc func(decibel int32, band meter.Band)

// Deliver calls f(decibel, band).
func (f ResponderFunc) Deliver(decibel int32, band meter.Band) {
	f(decibel, band)
}

// Multi fans each reading out to every responder in order.
type Multi []Responder

// Deliver forwards the reading to each responder.
func (m Multi) Deliver(decibel int32, band meter.Band) {
	for _, r := range m {
		r.Deliver(decibel, band)
	}
}

// Ensure the adapters satisfy the interface at compile time.
var (
	_ Responder = ResponderFunc(nil)
	_ Responder = Multi(nil)
)
