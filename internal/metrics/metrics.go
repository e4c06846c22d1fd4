// SPDX-License-Identifier: MIT
// Package metrics exposes meter counters to Prometheus. A nil *Metrics is
// valid and records nothing, so components take it as an optional dependency.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"levels/internal/log"
	"levels/internal/meter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPath = "/metrics"

// Metrics holds the meter's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	overrunSamples prometheus.Counter
	captureErrors  prometheus.Counter
	readings       *prometheus.CounterVec
	transitions    *prometheus.CounterVec

	// Children resolved once so the polling loop never looks up labels.
	byBand [len(meter.Bands)]prometheus.Counter
}

// New creates the meter metrics and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.overrunSamples = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "levels_buffer_overrun_samples_total",
		Help: "Samples dropped because the capture ring buffer was full",
	})
	m.captureErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "levels_capture_errors_total",
		Help: "Non-fatal errors reported by the capture backend",
	})
	m.readings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levels_readings_total",
			Help: "Loudness readings produced, partitioned by colour band",
		},
		[]string{"band"},
	)
	m.transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levels_state_transitions_total",
			Help: "Meter lifecycle state transitions",
		},
		[]string{"from", "to"},
	)

	for i, b := range meter.Bands {
		m.byBand[i] = m.readings.WithLabelValues(b.String())
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.overrunSamples.Describe(ch)
	m.captureErrors.Describe(ch)
	m.readings.Describe(ch)
	m.transitions.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.overrunSamples.Collect(ch)
	m.captureErrors.Collect(ch)
	m.readings.Collect(ch)
	m.transitions.Collect(ch)
}

// RecordOverrun counts dropped samples. Lock-free; safe on the capture thread.
func (m *Metrics) RecordOverrun(samples int) {
	if m == nil || samples <= 0 {
		return
	}
	m.overrunSamples.Add(float64(samples))
}

// RecordCaptureError counts a non-fatal capture error.
func (m *Metrics) RecordCaptureError() {
	if m == nil {
		return
	}
	m.captureErrors.Inc()
}

// RecordReading counts a reading in its band.
func (m *Metrics) RecordReading(b meter.Band) {
	if m == nil || b < 0 || int(b) >= len(m.byBand) {
		return
	}
	m.byBand[b].Inc()
}

// RecordTransition counts a lifecycle transition.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Metrics: serving %s on %s", metricsPath, addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
