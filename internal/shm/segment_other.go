//go:build !linux && !darwin

// File: internal/shm/segment_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shm

import "github.com/momentics/hioload-liveplot/api"

// Segment is unavailable on this platform.
type Segment struct {
	key      string
	capacity int
}

// Create is not supported on this platform.
func Create(key string, capacity int) (*Segment, error) {
	return nil, api.Wrap(api.ErrCodeNotSupported, api.ErrSegmentCreateFailed, api.ErrNotSupported.Error()).
		WithContext("key", key)
}

// Attach is not supported on this platform.
func Attach(key string) (*Segment, error) {
	return nil, api.ErrNotSupported
}

func (s *Segment) Lock() error                { return api.ErrNotSupported }
func (s *Segment) Unlock() error              { return api.ErrNotSupported }
func (s *Segment) Write(p []byte) error       { return api.ErrNotSupported }
func (s *Segment) Read(n int) ([]byte, error) { return nil, api.ErrNotSupported }
func (s *Segment) ReadInto(dst []byte) error  { return api.ErrNotSupported }
func (s *Segment) Unlink() error              { return nil }
func (s *Segment) Detach() error              { return nil }
