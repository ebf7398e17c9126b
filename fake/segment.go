// File: fake/segment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-liveplot/api"
)

// Segment is a fake api.Segment backed by a plain byte slice.
type Segment struct {
	mu       sync.Mutex
	key      string
	data     []byte
	locked   bool
	detached bool
	unlinked bool
	locks    int
	writes   int
	lockErr  error

	// Trace, when set, receives "lock", "copy", "unlock" and "detach" events.
	Trace *Trace
}

// NewSegment returns a segment with the given capacity.
func NewSegment(key string, capacity int) *Segment {
	return &Segment{key: key, data: make([]byte, capacity)}
}

// Factory returns a function usable as a session segment factory that
// records every segment it creates.
func Factory(trace *Trace, created *[]*Segment) func(key string, capacity int) (api.Segment, error) {
	return func(key string, capacity int) (api.Segment, error) {
		s := NewSegment(key, capacity)
		s.Trace = trace
		if created != nil {
			*created = append(*created, s)
		}
		return s, nil
	}
}

// SetLockError makes every later Lock fail with err.
func (s *Segment) SetLockError(err error) {
	s.mu.Lock()
	s.lockErr = err
	s.mu.Unlock()
}

func (s *Segment) Key() string   { return s.key }
func (s *Segment) Capacity() int { return len(s.data) }

func (s *Segment) Fits(n int) error {
	if n > len(s.data) {
		return &api.PayloadTooLargeError{Len: n, Capacity: len(s.data)}
	}
	return nil
}

func (s *Segment) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return api.ErrSegmentDetached
	}
	if s.lockErr != nil {
		return s.lockErr
	}
	if s.locked {
		return fmt.Errorf("fake segment %s: lock already held", s.key)
	}
	s.locked = true
	s.locks++
	s.Trace.Record("lock")
	return nil
}

func (s *Segment) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		return api.ErrSegmentNotLocked
	}
	s.locked = false
	s.Trace.Record("unlock")
	return nil
}

func (s *Segment) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		return api.ErrSegmentNotLocked
	}
	if len(p) > len(s.data) {
		return &api.PayloadTooLargeError{Len: len(p), Capacity: len(s.data)}
	}
	copy(s.data, p)
	s.writes++
	s.Trace.Record("copy")
	return nil
}

func (s *Segment) Read(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		return nil, api.ErrSegmentNotLocked
	}
	if n > len(s.data) {
		return nil, &api.PayloadTooLargeError{Len: n, Capacity: len(s.data)}
	}
	return append([]byte(nil), s.data[:n]...), nil
}

func (s *Segment) Unlink() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlinked = true
	return nil
}

func (s *Segment) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.detached {
		s.detached = true
		s.Trace.Record("detach")
	}
	return nil
}

// Bytes returns a copy of the first n bytes regardless of the lock.
func (s *Segment) Bytes(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data[:n]...)
}

// Locked reports whether the lock is currently held.
func (s *Segment) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Locks counts successful Lock calls.
func (s *Segment) Locks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks
}

// Writes counts successful Write calls.
func (s *Segment) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Detached reports whether Detach was called.
func (s *Segment) Detached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

// Unlinked reports whether Unlink was called.
func (s *Segment) Unlinked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlinked
}
