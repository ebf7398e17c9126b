//go:build linux || darwin

// File: internal/shm/segment_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// mmap/flock implementation on top of golang.org/x/sys/unix.

package shm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/momentics/hioload-liveplot/api"
	"golang.org/x/sys/unix"
)

// Segment is a mapped shared memory region.
type Segment struct {
	mu       sync.Mutex
	key      string
	path     string
	fd       int
	mem      []byte
	capacity int
	owner    bool
	unlinked bool
	locked   bool
	detached bool
}

// Create allocates a new segment of exactly capacity bytes under key.
// It fails if a segment with the same key already exists.
func Create(key string, capacity int) (*Segment, error) {
	path := Path(key)
	if capacity <= 0 {
		return nil, createFailed(key, fmt.Sprintf("capacity %d", capacity))
	}
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, createFailed(key, fmt.Sprintf("open %s: %v", path, err))
	}
	cleanup := func() {
		unix.Close(fd)
		unix.Unlink(path)
	}
	if err := unix.Ftruncate(fd, int64(capacity)); err != nil {
		cleanup()
		return nil, createFailed(key, fmt.Sprintf("resize %s: %v", path, err))
	}
	mem, err := unix.Mmap(fd, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		cleanup()
		return nil, createFailed(key, fmt.Sprintf("mmap %s: %v", path, err))
	}
	return &Segment{key: key, path: path, fd: fd, mem: mem, capacity: capacity, owner: true}, nil
}

// Attach maps an existing segment created by the peer.
func Attach(key string) (*Segment, error) {
	path := Path(key)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("%w: %s", api.ErrSegmentNotFound, key)
		}
		return nil, fmt.Errorf("%w: open %s: %v", api.ErrSegmentNotFound, path, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: stat %s: %v", api.ErrSegmentNotFound, path, err)
	}
	if st.Size <= 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %s is empty", api.ErrSegmentNotFound, path)
	}
	mem, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap %s: %v", api.ErrSegmentNotFound, path, err)
	}
	return &Segment{key: key, path: path, fd: fd, mem: mem, capacity: int(st.Size)}, nil
}

func createFailed(key, reason string) error {
	return api.Wrap(api.ErrCodeResourceExhausted, api.ErrSegmentCreateFailed, reason).
		WithContext("key", key)
}

// Lock takes the exclusive inter-process lock, blocking until it is free.
func (s *Segment) Lock() error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return api.ErrSegmentDetached
	}
	if s.locked {
		s.mu.Unlock()
		return nil
	}
	fd := s.fd
	s.mu.Unlock()

	for {
		err := unix.Flock(fd, unix.LOCK_EX)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EINTR) {
			return fmt.Errorf("lock segment %s: %w", s.key, err)
		}
	}
	s.mu.Lock()
	s.locked = true
	s.mu.Unlock()
	return nil
}

// Unlock releases the lock taken by Lock.
func (s *Segment) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return api.ErrSegmentDetached
	}
	if !s.locked {
		return api.ErrSegmentNotLocked
	}
	if err := unix.Flock(s.fd, unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock segment %s: %w", s.key, err)
	}
	s.locked = false
	return nil
}

// Write copies p to the start of the segment. The caller must hold the lock.
func (s *Segment) Write(p []byte) error {
	if err := s.Fits(len(p)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAccess(); err != nil {
		return err
	}
	copy(s.mem, p)
	return nil
}

// Read copies out the first n bytes. The caller must hold the lock.
func (s *Segment) Read(n int) ([]byte, error) {
	if err := s.Fits(n); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAccess(); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, s.mem[:n])
	return out, nil
}

// ReadInto copies the first len(dst) bytes into dst. The caller must hold the lock.
func (s *Segment) ReadInto(dst []byte) error {
	if err := s.Fits(len(dst)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAccess(); err != nil {
		return err
	}
	copy(dst, s.mem[:len(dst)])
	return nil
}

func (s *Segment) checkAccess() error {
	if s.detached {
		return api.ErrSegmentDetached
	}
	if !s.locked {
		return api.ErrSegmentNotLocked
	}
	return nil
}

// Unlink removes the backing file on the creating side. Open descriptors and
// mappings stay valid; the kernel frees the memory with the last of them.
func (s *Segment) Unlink() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlinkLocked()
}

func (s *Segment) unlinkLocked() error {
	if !s.owner || s.unlinked {
		return nil
	}
	s.unlinked = true
	if err := unix.Unlink(s.path); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("unlink %s: %w", s.path, err)
	}
	return nil
}

// Detach unmaps the segment and closes its descriptor. The creating side also
// removes the backing file; a peer that is still attached keeps its mapping.
func (s *Segment) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return nil
	}
	s.detached = true
	s.locked = false

	var firstErr error
	if s.mem != nil {
		if err := unix.Munmap(s.mem); err != nil {
			firstErr = fmt.Errorf("munmap %s: %w", s.path, err)
		}
		s.mem = nil
	}
	// Closing the descriptor drops any flock still held on it.
	if err := unix.Close(s.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close %s: %w", s.path, err)
	}
	if err := s.unlinkLocked(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
