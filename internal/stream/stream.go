// SPDX-License-Identifier: MIT
/*
Package stream connects a capture stream to a Responder.

A Handler owns the ring buffer for one capture session. Run builds and plays
the input stream and starts two goroutines:

	capture thread ──Write──▶ ring ──Read──▶ polling ──chan──▶ delivery ──▶ Responder

Thread Safety:
- The capture callback only performs a non-blocking ring write and atomic
  counter updates. It never logs, locks or allocates.
- The polling goroutine is the only ring consumer. It wakes once per Interval,
  aggregates whatever was buffered and queues one reading.
- The delivery goroutine calls the Responder once per reading, in order.
- Stop abandons the ring and joins the polling goroutine. The delivery
  goroutine is not joined: it discards queued readings and exits as soon as
  the Responder returns, so a blocked Responder cannot block Stop.
*/
package stream

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"levels/internal/capture"
	"levels/internal/log"
	"levels/internal/meter"
	"levels/internal/metrics"
	"levels/internal/ring"
	"levels/internal/transport"
)

const (
	// Interval is how often a reading is produced.
	Interval = 100 * time.Millisecond

	// Latency is the extra buffering beyond one interval, absorbing jitter
	// between the capture thread and the polling goroutine.
	Latency = 50 * time.Millisecond

	// readingQueue bounds the readings waiting for the Responder.
	readingQueue = 1000
)

// ErrHandlerUsed is returned when Run is called on a handler that already ran.
var ErrHandlerUsed = errors.New("stream handler already used")

// FrameCounts returns how many samples one Interval spans (readAtATime) and
// how many Latency spans (writeAhead) for the given rate and channel count.
// Both round up.
func FrameCounts(sampleRate, channels int) (readAtATime, writeAhead int) {
	return samplesFor(sampleRate, channels, Interval), samplesFor(sampleRate, channels, Latency)
}

func samplesFor(sampleRate, channels int, d time.Duration) int {
	ms := int(d / time.Millisecond)
	return (sampleRate*channels*ms + 999) / 1000
}

// Option configures a Handler.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics records overruns, capture errors and readings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Handler is a prepared, not yet running, capture session. It is single-use.
type Handler struct {
	provider capture.Provider
	device   capture.Device
	config   capture.Config
	metrics  *metrics.Metrics

	readAtATime int
	writeAhead  int

	session session
	used    bool
}

// New prepares a handler for device and cfg, allocating a ring buffer of
// readAtATime+writeAhead samples of cfg.Format.
func New(provider capture.Provider, device capture.Device, cfg capture.Config, opts ...Option) (*Handler, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("invalid stream config: %d Hz, %d channels", cfg.SampleRate, cfg.Channels)
	}
	readAtATime, writeAhead := FrameCounts(cfg.SampleRate, cfg.Channels)
	capacity := readAtATime + writeAhead

	h := &Handler{
		provider:    provider,
		device:      device,
		config:      cfg,
		metrics:     o.metrics,
		readAtATime: readAtATime,
		writeAhead:  writeAhead,
	}

	var err error
	switch cfg.Format {
	case meter.FormatF32:
		h.session, err = newTyped[float32](capacity, readAtATime, o.metrics)
	case meter.FormatI16:
		h.session, err = newTyped[int16](capacity, readAtATime, o.metrics)
	case meter.FormatU16:
		h.session, err = newTyped[uint16](capacity, readAtATime, o.metrics)
	default:
		return nil, fmt.Errorf("unsupported sample format %s", cfg.Format)
	}
	if err != nil {
		return nil, err
	}

	return h, nil
}

// Device returns the device the handler captures from.
func (h *Handler) Device() capture.Device { return h.device }

// Config returns the stream configuration.
func (h *Handler) Config() capture.Config { return h.config }

// FrameCounts returns the handler's readAtATime and writeAhead sample counts.
func (h *Handler) FrameCounts() (readAtATime, writeAhead int) {
	return h.readAtATime, h.writeAhead
}

// Run builds and plays the input stream and starts delivering readings to
// responder. On error nothing is left running.
func (h *Handler) Run(responder transport.Responder) (*Running, error) {
	if h.used {
		return nil, ErrHandlerUsed
	}
	h.used = true

	cb := h.session.callbacks()
	cb.Error = func(err error) {
		h.metrics.RecordCaptureError()
		log.Errorf("Stream: capture error: %v", err)
	}

	stream, err := h.provider.BuildInputStream(h.device, h.config, cb)
	if err != nil {
		h.session.abandon()
		if !errors.Is(err, capture.ErrStreamBuild) {
			err = fmt.Errorf("%w: %w", capture.ErrStreamBuild, err)
		}
		return nil, err
	}

	if err := stream.Play(); err != nil {
		if cerr := stream.Close(); cerr != nil {
			log.Debugf("Stream: close after failed play: %v", cerr)
		}
		h.session.abandon()
		if !errors.Is(err, capture.ErrStreamPlay) {
			err = fmt.Errorf("%w: %w", capture.ErrStreamPlay, err)
		}
		return nil, err
	}

	r := &Running{
		stream:    stream,
		session:   h.session,
		stopped:   make(chan struct{}),
		delivered: make(chan struct{}),
	}
	readings := make(chan meter.Reading, readingQueue)

	go r.deliver(readings, responder)
	r.polling.Add(1)
	go func() {
		defer r.polling.Done()
		defer close(readings)
		h.session.poll(readings)
	}()

	log.Debugf("Stream: running on %q at %d Hz, %d channel(s), %s (ring %d samples)",
		h.device.Name, h.config.SampleRate, h.config.Channels, h.config.Format, h.readAtATime+h.writeAhead)

	return r, nil
}

// Running is a playing capture session.
type Running struct {
	stream  capture.Stream
	session session

	polling   sync.WaitGroup
	stopped   chan struct{}
	delivered chan struct{}
	stopOnce  sync.Once
}

// deliver hands readings to responder until the queue closes or the session
// is stopped. Readings still queued at Stop are dropped.
func (r *Running) deliver(readings <-chan meter.Reading, responder transport.Responder) {
	defer close(r.delivered)
	for {
		select {
		case <-r.stopped:
			return
		case reading, ok := <-readings:
			if !ok {
				return
			}
			responder.Deliver(reading.Decibel, reading.Band)
		}
	}
}

// Stop pauses and closes the input stream, abandons the ring buffer and waits
// for the polling goroutine to exit. It does not wait for a Responder call in
// progress; see Delivered. Pause and close failures are logged and otherwise
// ignored. Safe to call more than once.
func (r *Running) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopped)
		if err := r.stream.Pause(); err != nil {
			log.Debugf("Stream: pause failed: %v", err)
		}
		if err := r.stream.Close(); err != nil {
			log.Debugf("Stream: close failed: %v", err)
		}
		r.session.abandon()
		r.polling.Wait()
	})
}

// Delivered is closed once the delivery goroutine has exited, that is after
// Stop and after any Responder call in progress has returned.
func (r *Running) Delivered() <-chan struct{} {
	return r.delivered
}

// Dropped returns the total number of samples dropped because the ring buffer
// was full.
func (r *Running) Dropped() uint64 {
	return r.session.dropped()
}

// session hides the sample type of a typed pipeline.
type session interface {
	callbacks() capture.Callbacks
	poll(out chan<- meter.Reading)
	abandon()
	dropped() uint64
}

type typed[T meter.Sample] struct {
	producer *ring.Producer[T]
	consumer *ring.Consumer[T]
	scratch  []T
	metrics  *metrics.Metrics

	pending atomic.Uint64 // dropped since the last warning
	total   atomic.Uint64
}

func newTyped[T meter.Sample](capacity, readAtATime int, m *metrics.Metrics) (*typed[T], error) {
	producer, consumer, err := ring.New[T](capacity)
	if err != nil {
		return nil, err
	}
	return &typed[T]{
		producer: producer,
		consumer: consumer,
		scratch:  make([]T, readAtATime),
		metrics:  m,
	}, nil
}

// onData runs on the capture thread.
func (t *typed[T]) onData(in []T) {
	if leftover := t.producer.Write(in); leftover > 0 {
		t.pending.Add(uint64(leftover))
		t.total.Add(uint64(leftover))
		t.metrics.RecordOverrun(leftover)
	}
}

func (t *typed[T]) callbacks() capture.Callbacks {
	var cb capture.Callbacks
	switch f := any(t.onData).(type) {
	case func([]float32):
		cb.F32 = f
	case func([]int16):
		cb.I16 = f
	case func([]uint16):
		cb.U16 = f
	}
	return cb
}

func (t *typed[T]) poll(out chan<- meter.Reading) {
	abandoned := t.consumer.Abandoned()

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for !t.consumer.IsAbandoned() {
		n := t.consumer.Read(t.scratch)
		reading := meter.Convert(meter.Aggregate(t.scratch[:n]))

		if dropped := t.pending.Swap(0); dropped > 0 {
			log.Warnf("Stream: buffer overrun, %d samples dropped", dropped)
		}

		select {
		case out <- reading:
			t.metrics.RecordReading(reading.Band)
		case <-abandoned:
			return
		}

		select {
		case <-ticker.C:
		case <-abandoned:
			return
		}
	}
}

func (t *typed[T]) abandon() {
	t.producer.Close()
}

func (t *typed[T]) dropped() uint64 {
	return t.total.Load()
}
