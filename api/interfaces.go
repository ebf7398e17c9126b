// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package api

import "time"

// ControlChannel is the ordered, reliable byte stream between producer and consumer.
// It carries the handshake key, fixed-width command headers and ack tokens.
type ControlChannel interface {
	// Write appends p to the outbound stream, blocking until it is flushed.
	Write(p []byte) error
	// ReadExact blocks until n bytes are available or timeout elapses.
	// A non-positive timeout waits indefinitely.
	ReadExact(n int, timeout time.Duration) ([]byte, error)
	// OnDisconnect registers fn to run once when the peer closes the stream.
	// If the peer is already gone, fn runs immediately.
	OnDisconnect(fn func())
	// Done is closed once the peer has closed the stream.
	Done() <-chan struct{}
	Close() error
}

// Segment is a fixed-capacity shared memory region guarded by an
// inter-process lock. Write and Read are only valid while the lock is held.
type Segment interface {
	Key() string
	Capacity() int
	// Fits reports a *PayloadTooLargeError when n exceeds the capacity.
	// It never touches the lock.
	Fits(n int) error
	Lock() error
	Unlock() error
	// Write copies p to the start of the segment. Trailing bytes from
	// earlier, larger writes are left in place.
	Write(p []byte) error
	// Read returns a copy of the first n bytes.
	Read(n int) ([]byte, error)
	// Unlink removes the segment's name once the peer has attached. The
	// memory lives on until every mapping is gone, so an exit without
	// Detach leaks nothing. Safe to call more than once.
	Unlink() error
	// Detach releases the mapping; safe to call more than once.
	Detach() error
}
