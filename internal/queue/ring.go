// Package queue provides the bounded single-producer/single-consumer ring
// buffers used to hand requests between the audio, interaction and physics
// goroutines without locks.
//
// Each Ring must have exactly one producing goroutine and exactly one
// consuming goroutine. Producers never block: a push into a full ring is
// dropped and counted.
package queue

import (
	"errors"
	"sync/atomic"
)

// ErrCapacity is returned by New for a non-positive capacity.
var ErrCapacity = errors.New("queue: capacity must be positive")

// Ring is a lock-free SPSC ring buffer.
type Ring[T any] struct {
	buf  []T
	mask uint64

	head    atomic.Uint64 // next slot to read, written by the consumer
	tail    atomic.Uint64 // next slot to write, written by the producer
	dropped atomic.Uint64
}

// New returns a ring holding at least capacity elements. The capacity is
// rounded up to a power of two.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, size),
		mask: uint64(size - 1),
	}, nil
}

// MustNew is New for capacities known to be valid.
func MustNew[T any](capacity int) *Ring[T] {
	r, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return r
}

// Cap returns the number of slots.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Push appends v. It returns false and drops v when the ring is full.
// Producer side only.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return false
	}
	r.buf[tail&r.mask] = v
	// publish after the slot is written
	r.tail.Store(tail + 1)
	return true
}

// PushBatch appends all of vs or none of them. Producer side only.
func (r *Ring[T]) PushBatch(vs []T) bool {
	if len(vs) == 0 {
		return true
	}
	tail := r.tail.Load()
	free := uint64(len(r.buf)) - (tail - r.head.Load())
	if uint64(len(vs)) > free {
		r.dropped.Add(uint64(len(vs)))
		return false
	}
	for i, v := range vs {
		r.buf[(tail+uint64(i))&r.mask] = v
	}
	r.tail.Store(tail + uint64(len(vs)))
	return true
}

// Drain calls fn for every ready element in FIFO order and returns how many
// were consumed. Elements pushed while Drain runs may be left for the next
// call. Consumer side only.
func (r *Ring[T]) Drain(fn func(T)) int {
	var zero T
	head := r.head.Load()
	tail := r.tail.Load()
	n := 0
	for ; head != tail; head++ {
		idx := head & r.mask
		v := r.buf[idx]
		r.buf[idx] = zero
		// free the slot before running fn so a slow consumer does not hold capacity
		r.head.Store(head + 1)
		fn(v)
		n++
	}
	return n
}

// Pop removes and returns the oldest element. Consumer side only.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	idx := head & r.mask
	v := r.buf[idx]
	r.buf[idx] = zero
	r.head.Store(head + 1)
	return v, true
}

// Len returns an approximate number of queued elements.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Dropped returns how many pushes were rejected because the ring was full.
func (r *Ring[T]) Dropped() uint64 { return r.dropped.Load() }
