// Package ringchan provides a bounded queue with channel semantics on the
// receive side whose producers never block: when the buffer is full the
// oldest element is discarded.
package ringchan

import "sync/atomic"

// RingChannel is a bounded channel-like buffer with overwrite-oldest semantics.
//
//	rc := ringchan.New[device.Notification](64)
//	rc.Send(n)           // never blocks
//	n := <-rc.C()
type RingChannel[T any] struct {
	ch      chan T
	sent    atomic.Int64
	dropped atomic.Int64
}

// Stats is a snapshot of the queue counters.
type Stats struct {
	Sent    int64 `json:"sent"`
	Dropped int64 `json:"dropped"`
	Queued  int   `json:"queued"`
}

// New creates a RingChannel with the given capacity.
func New[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the receive side.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send enqueues v, discarding the oldest buffered element while the buffer is full.
// It reports whether anything was discarded.
func (rc *RingChannel[T]) Send(v T) (dropped bool) {
	for {
		select {
		case rc.ch <- v:
			rc.sent.Add(1)
			return dropped
		default:
		}

		// full: make room, racing consumers and other producers is fine
		select {
		case <-rc.ch:
			rc.dropped.Add(1)
			dropped = true
		default:
		}
	}
}

// Stats returns the counters accumulated since creation.
func (rc *RingChannel[T]) Stats() Stats {
	return Stats{Sent: rc.sent.Load(), Dropped: rc.dropped.Load(), Queued: len(rc.ch)}
}
