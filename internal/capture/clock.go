// SPDX-License-Identifier: MIT
package capture

import (
	"sync"
	"time"
)

// chunkPeriod is how much audio a clocked stream emits per tick.
const chunkPeriod = 10 * time.Millisecond

// clockedStream emits one chunk per tick on its own goroutine, standing in
// for a hardware capture thread.
type clockedStream struct {
	period time.Duration
	emit   func()

	mu     sync.Mutex
	stop   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

func newClockedStream(period time.Duration, emit func()) *clockedStream {
	return &clockedStream{period: period, emit: emit}
}

func (s *clockedStream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if s.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	s.stop = stop
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.period)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.emit()
			}
		}
	}()
	return nil
}

// Pause stops the clock and waits until no callback is running.
func (s *clockedStream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
		s.stop = nil
		s.wg.Wait()
	}
	return nil
}

func (s *clockedStream) Close() error {
	if err := s.Pause(); err != nil {
		return err
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
