// SPDX-License-Identifier: MIT
/*
Package engine implements the meter lifecycle:

	Init ──Run──▶ Ready ──▶ Running ──Stop──▶ Stopped ──Run──▶ Ready ──▶ Running

Every Run from Init or Stopped acquires the default input device afresh and
builds a new ring buffer, so nothing from a previous session is reused.

Thread Safety:
- An Engine is not safe for concurrent use. It is owned by a single
  goroutine, normally the control actor.
*/
package engine

import (
	"fmt"

	"levels/internal/capture"
	"levels/internal/log"
	"levels/internal/metrics"
	"levels/internal/stream"
	"levels/internal/transport"
)

// State identifies a lifecycle state.
type State int

const (
	StateInit State = iota
	StateReady
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// state is the sealed set of lifecycle states; each carries only the
// resources valid in it.
type state interface {
	kind() State
}

type (
	initState    struct{}
	readyState   struct{ handler *stream.Handler }
	runningState struct{ run *stream.Running }
	stoppedState struct{}
)

func (initState) kind() State    { return StateInit }
func (readyState) kind() State   { return StateReady }
func (runningState) kind() State { return StateRunning }
func (stoppedState) kind() State { return StateStopped }

// Status describes the engine and, while running, its capture session.
type Status struct {
	State   State
	Device  capture.Device
	Config  capture.Config
	Dropped uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records state transitions and passes m to every stream.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine drives a capture provider through the lifecycle.
type Engine struct {
	provider capture.Provider
	metrics  *metrics.Metrics
	state    state

	// Session details of the current or last run, for Status.
	device capture.Device
	config capture.Config
}

// New returns an engine in StateInit.
func New(provider capture.Provider, opts ...Option) *Engine {
	e := &Engine{provider: provider, state: initState{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state.kind()
}

// Status returns the current state and session details.
func (e *Engine) Status() Status {
	st := Status{State: e.state.kind()}
	if s, ok := e.state.(runningState); ok {
		st.Device = e.device
		st.Config = e.config
		st.Dropped = s.run.Dropped()
	}
	return st
}

// Run starts metering into responder. From Init or Stopped it first acquires
// the default device and prepares a stream (Ready), then runs it (Running).
// Running is a no-op. On failure the engine returns to Init and the error is
// returned.
func (e *Engine) Run(responder transport.Responder) error {
	if _, ok := e.state.(runningState); ok {
		log.Debugf("Engine: already running")
		return nil
	}

	if _, ok := e.state.(readyState); !ok {
		handler, err := e.prepare()
		if err != nil {
			e.transition(initState{})
			return err
		}
		e.transition(readyState{handler: handler})
	}

	ready := e.state.(readyState)
	run, err := ready.handler.Run(responder)
	if err != nil {
		e.transition(initState{})
		return fmt.Errorf("failed to start stream on %q: %w", e.device.Name, err)
	}
	e.transition(runningState{run: run})

	log.Infof("Engine: metering %q at %d Hz, %d channel(s), %s",
		e.device.Name, e.config.SampleRate, e.config.Channels, e.config.Format)
	return nil
}

func (e *Engine) prepare() (*stream.Handler, error) {
	device, err := e.provider.DefaultInputDevice()
	if err != nil {
		return nil, err
	}
	cfg, err := e.provider.DefaultInputConfig(device)
	if err != nil {
		return nil, err
	}
	handler, err := stream.New(e.provider, device, cfg, stream.WithMetrics(e.metrics))
	if err != nil {
		return nil, err
	}

	e.device, e.config = device, cfg
	return handler, nil
}

// Stop halts a running stream and moves to Stopped. In any other state it
// does nothing.
func (e *Engine) Stop() {
	s, ok := e.state.(runningState)
	if !ok {
		log.Debugf("Engine: stop ignored in state %s", e.state.kind())
		return
	}
	s.run.Stop()
	if dropped := s.run.Dropped(); dropped > 0 {
		log.Infof("Engine: stopped, %d samples dropped during the session", dropped)
	}
	e.transition(stoppedState{})
}

func (e *Engine) transition(next state) {
	from, to := e.state.kind(), next.kind()
	e.state = next
	if from == to {
		return
	}
	e.metrics.RecordTransition(from.String(), to.String())
	log.Debugf("Engine: %s -> %s", from, to)
}
