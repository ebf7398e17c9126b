// File: internal/shm/segment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shm

import (
	"os"
	"path/filepath"

	"github.com/momentics/hioload-liveplot/api"
)

// filePrefix namespaces segment files so they are recognisable in /dev/shm.
const filePrefix = "liveplot_"

var _ api.Segment = (*Segment)(nil)

// Path returns the backing file of the segment identified by key.
func Path(key string) string {
	if isDevShmAvailable() {
		return filepath.Join("/dev/shm", filePrefix+key)
	}
	return filepath.Join(os.TempDir(), filePrefix+key)
}

func isDevShmAvailable() bool {
	info, err := os.Stat("/dev/shm")
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Key returns the identifier both peers use to reach the segment.
func (s *Segment) Key() string {
	return s.key
}

// Capacity is the fixed size of the segment in bytes.
func (s *Segment) Capacity() int {
	return s.capacity
}

// Fits checks n against the capacity without touching the lock.
func (s *Segment) Fits(n int) error {
	if n < 0 {
		return api.ErrInvalidArgument
	}
	if n > s.capacity {
		return &api.PayloadTooLargeError{Len: n, Capacity: s.capacity}
	}
	return nil
}
