// SPDX-License-Identifier: MIT
/*
Package ring implements a fixed-capacity single-producer/single-consumer
queue used to hand audio samples from the real-time capture callback to the
analysis goroutine.

Thread Safety:
- Exactly one goroutine may use the Producer and exactly one the Consumer.
- Head and tail are atomic indices on separate cache lines; there are no
  locks, so Write never blocks the capture thread.
- Write and Read copy into pre-allocated storage and never allocate.

The logical capacity is fixed at construction. Storage is rounded up to the
next power of two so positions can be masked instead of divided.
*/
package ring

import (
	"fmt"
	"sync"
	"sync/atomic"

	"levels/pkg/bitint"
)

// cacheLine is the padding unit that keeps head and tail from sharing a line.
const cacheLine = 64

type buffer[T any] struct {
	head atomic.Uint64 // Next position to read; written by the consumer only.
	_    [cacheLine - 8]byte
	tail atomic.Uint64 // Next position to write; written by the producer only.
	_    [cacheLine - 8]byte

	abandoned atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	capacity uint64
	mask     uint64
	data     []T
}

// Producer is the write half of a ring buffer.
type Producer[T any] struct {
	b *buffer[T]
}

// Consumer is the read half of a ring buffer.
type Consumer[T any] struct {
	b *buffer[T]
}

// New creates a ring buffer holding exactly capacity elements and returns its
// two halves.
func New[T any](capacity int) (*Producer[T], *Consumer[T], error) {
	if capacity <= 0 {
		return nil, nil, fmt.Errorf("ring capacity must be positive, got %d", capacity)
	}

	size := bitint.NextPowerOfTwo(capacity)
	b := &buffer[T]{
		done:     make(chan struct{}),
		capacity: uint64(capacity),
		mask:     bitint.Mask(size),
		data:     make([]T, size),
	}

	return &Producer[T]{b: b}, &Consumer[T]{b: b}, nil
}

// Write copies as many leading elements of src as there is free space for and
// publishes them as one batch. It returns the number of elements that did not
// fit; those are dropped. Once the producer is closed every element is dropped.
//
// Real-time safe: no locks, no allocations, no blocking.
func (p *Producer[T]) Write(src []T) int {
	b := p.b
	if b.abandoned.Load() {
		return len(src)
	}

	tail := b.tail.Load()
	free := b.capacity - (tail - b.head.Load())

	n := uint64(len(src))
	if n > free {
		n = free
	}
	if n == 0 {
		return len(src)
	}

	start := tail & b.mask
	first := copy(b.data[start:], src[:n])
	copy(b.data, src[first:n])

	b.tail.Store(tail + n)

	return len(src) - int(n)
}

// Free returns the number of elements that can currently be written.
func (p *Producer[T]) Free() int {
	b := p.b
	return int(b.capacity - (b.tail.Load() - b.head.Load()))
}

// Cap returns the logical capacity.
func (p *Producer[T]) Cap() int {
	return int(p.b.capacity)
}

// Close marks the buffer as abandoned by its producer. Buffered elements stay
// readable. Safe to call more than once.
func (p *Producer[T]) Close() {
	p.b.closeOnce.Do(func() {
		p.b.abandoned.Store(true)
		close(p.b.done)
	})
}

// Read copies up to len(dst) buffered elements into dst in FIFO order and
// returns how many were copied. Fewer than requested is not an error.
func (c *Consumer[T]) Read(dst []T) int {
	b := c.b

	head := b.head.Load()
	n := b.tail.Load() - head
	if want := uint64(len(dst)); n > want {
		n = want
	}
	if n == 0 {
		return 0
	}

	start := head & b.mask
	first := copy(dst[:n], b.data[start:])
	copy(dst[first:n], b.data)

	b.head.Store(head + n)

	return int(n)
}

// Len returns the number of elements currently buffered.
func (c *Consumer[T]) Len() int {
	b := c.b
	return int(b.tail.Load() - b.head.Load())
}

// Cap returns the logical capacity.
func (c *Consumer[T]) Cap() int {
	return int(c.b.capacity)
}

// IsAbandoned reports whether the producer has been closed.
func (c *Consumer[T]) IsAbandoned() bool {
	return c.b.abandoned.Load()
}

// Abandoned returns a channel that is closed when the producer is closed.
func (c *Consumer[T]) Abandoned() <-chan struct{} {
	return c.b.done
}
