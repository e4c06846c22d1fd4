package transport

import (
	"fmt"
	"io"
	"math"
	"sync"

	"levels/internal/meter"
)

// LoggingResponder writes one line per reading, for terminals without a UI
// or for piping into other tools.
type LoggingResponder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLoggingResponder creates a LoggingResponder writing to w.
func NewLoggingResponder(w io.Writer) *LoggingResponder {
	return &LoggingResponder{w: w}
}

// Deliver prints the reading, e.g. "-6 dB yellow". The silence floor prints
// as "-inf dB".
func (lr *LoggingResponder) Deliver(decibel int32, band meter.Band) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	fmt.Fprintf(lr.w, "%s dB %s\n", FormatDecibel(decibel), band)
}

// FormatDecibel renders a rounded reading, mapping the saturated extremes to
// infinities.
func FormatDecibel(decibel int32) string {
	switch decibel {
	case math.MinInt32:
		return "-inf"
	case math.MaxInt32:
		return "+inf"
	default:
		return fmt.Sprintf("%d", decibel)
	}
}

// Ensure LoggingResponder satisfies the interface at compile time.
var _ Responder = (*LoggingResponder)(nil)
