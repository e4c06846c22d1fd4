// SPDX-License-Identifier: MIT
/*
Package control serializes start/stop requests onto the goroutine that owns
the engine. Requests are processed one at a time in arrival order, so the
engine itself needs no locking.

Thread Safety:
- All Controller methods are safe for concurrent use.
- The engine is touched only by the owner goroutine.
*/
package control

import (
	"context"
	"errors"
	"sync"

	"levels/internal/engine"
	"levels/internal/log"
	"levels/internal/transport"
)

// mailboxSize bounds the pending requests.
const mailboxSize = 200

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("controller closed")

// message is the sealed set of requests the owner goroutine handles.
type message interface {
	handle(e *engine.Engine)
}

type startMsg struct {
	responder transport.Responder
	result    chan<- error
}

type stopMsg struct{}

type statusMsg struct {
	result chan<- engine.Status
}

func (m startMsg) handle(e *engine.Engine) {
	m.result <- e.Run(m.responder)
}

func (stopMsg) handle(e *engine.Engine) {
	e.Stop()
}

func (m statusMsg) handle(e *engine.Engine) {
	m.result <- e.Status()
}

// Controller is the only way to drive an engine from other goroutines.
type Controller struct {
	mailbox chan message
	quit    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

// New takes ownership of e and starts the owner goroutine. Close must be
// called to release it.
func New(e *engine.Engine) *Controller {
	c := &Controller{
		mailbox: make(chan message, mailboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.loop(e)
	return c
}

func (c *Controller) loop(e *engine.Engine) {
	defer close(c.done)

	for {
		select {
		case msg := <-c.mailbox:
			msg.handle(e)
		case <-c.quit:
			e.Stop()
			log.Debugf("Control: owner goroutine exiting")
			return
		}
	}
}

// send enqueues msg, blocking while the mailbox is full.
func (c *Controller) send(ctx context.Context, msg message) error {
	select {
	case <-c.quit:
		return ErrClosed
	default:
	}

	select {
	case c.mailbox <- msg:
		return nil
	case <-c.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start asks the engine to run, delivering readings to responder, and waits
// for the outcome. Starting a running engine succeeds without effect.
func (c *Controller) Start(ctx context.Context, responder transport.Responder) error {
	result := make(chan error, 1)
	if err := c.send(ctx, startMsg{responder: responder, result: result}); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-c.done:
		// The owner exited; it may still have answered first.
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the engine to stop and returns once the request is queued.
func (c *Controller) Stop(ctx context.Context) error {
	return c.send(ctx, stopMsg{})
}

// Status queries the engine through the mailbox, after every request queued
// before it has been handled.
func (c *Controller) Status(ctx context.Context) (engine.Status, error) {
	result := make(chan engine.Status, 1)
	if err := c.send(ctx, statusMsg{result: result}); err != nil {
		return engine.Status{}, err
	}

	select {
	case st := <-result:
		return st, nil
	case <-c.done:
		select {
		case st := <-result:
			return st, nil
		default:
			return engine.Status{}, ErrClosed
		}
	case <-ctx.Done():
		return engine.Status{}, ctx.Err()
	}
}

// State returns the engine's lifecycle state.
func (c *Controller) State(ctx context.Context) (engine.State, error) {
	st, err := c.Status(ctx)
	return st.State, err
}

// Close stops the engine and waits for the owner goroutine to exit. Requests
// still queued are discarded. Calls after the first return ErrClosed.
func (c *Controller) Close() error {
	err := ErrClosed
	c.closeOnce.Do(func() {
		close(c.quit)
		err = nil
	})
	<-c.done
	return err
}
